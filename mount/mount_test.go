package mount

import (
	"math"
	"testing"
	"time"

	"github.com/eyesky/mount_interface/internal/config"
	"github.com/eyesky/mount_interface/internal/gpio"
)

func newTestController(t *testing.T) (*Controller, *gpio.Mock, config.Mount) {
	t.Helper()
	cfg := config.Default()
	m := gpio.NewMock()
	c, err := New(cfg, m, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, m, cfg
}

// pressHome asserts and releases a homing button across two ticks.
func pressHome(c *Controller, m *gpio.Mock, pin int, now time.Time) time.Time {
	m.SetInput(pin, gpio.High)
	now = now.Add(time.Millisecond)
	c.Tick(now)
	m.SetInput(pin, gpio.Low)
	now = now.Add(time.Millisecond)
	c.Tick(now)
	return now
}

// home drives the controller through a full homing sequence.
func home(t *testing.T, c *Controller, m *gpio.Mock, cfg config.Mount, now time.Time) time.Time {
	t.Helper()
	now = pressHome(c, m, cfg.Azimuth.HomePin, now)
	// Past the debounce window before the second axis.
	now = now.Add(250 * time.Millisecond)
	c.Tick(now)
	now = pressHome(c, m, cfg.Elevation.HomePin, now)
	if status := c.Status(); !status.Ready {
		t.Fatalf("not ready after homing both axes: %+v", status)
	}
	return now
}

func TestHomingSequence(t *testing.T) {
	c, m, cfg := newTestController(t)
	now := time.Unix(1000, 0)

	c.Tick(now)
	if status := c.Status(); status.Ready || status.AzHomed || status.ElHomed {
		t.Fatalf("homed before any button press: %+v", status)
	}
	// Drivers disabled during homing so the mount can move by hand.
	if m.Pin(cfg.EnablePin) != gpio.High {
		t.Error("enable line not high (disabled) during homing")
	}

	now = pressHome(c, m, cfg.Azimuth.HomePin, now)
	status := c.Status()
	if !status.AzHomed || status.ElHomed || status.Ready {
		t.Fatalf("after azimuth press: %+v", status)
	}

	now = now.Add(250 * time.Millisecond)
	c.Tick(now)
	pressHome(c, m, cfg.Elevation.HomePin, now)

	status = c.Status()
	if !status.Ready || !status.AzHomed || !status.ElHomed {
		t.Fatalf("not ready after both presses: %+v", status)
	}
	if status.AzSteps != 0 || status.ElSteps != 0 {
		t.Errorf("axes not zeroed: az %d el %d", status.AzSteps, status.ElSteps)
	}
	if m.Pin(cfg.EnablePin) != gpio.Low {
		t.Error("enable line not low (enabled) after homing")
	}
	if m.Pin(cfg.LEDPin) != gpio.High {
		t.Error("status LED not solid after homing")
	}
}

func TestHomingDebounceSuppressesSecondAxis(t *testing.T) {
	c, m, cfg := newTestController(t)
	now := time.Unix(1000, 0)
	now = pressHome(c, m, cfg.Azimuth.HomePin, now)
	// Second button inside the debounce window is ignored.
	now = pressHome(c, m, cfg.Elevation.HomePin, now)
	if status := c.Status(); status.ElHomed {
		t.Fatalf("elevation homed inside debounce window: %+v", status)
	}
}

func TestHomingIndicatorBlinks(t *testing.T) {
	c, m, cfg := newTestController(t)
	now := time.Unix(1000, 0)
	for i := 0; i < 10; i++ {
		now = now.Add(blinkHalfPeriod + time.Millisecond)
		c.Tick(now)
	}
	writes := m.Writes(cfg.LEDPin)
	if len(writes) < 10 {
		t.Fatalf("LED written %d times over 10 blink periods", len(writes))
	}
	for i := 1; i < len(writes); i++ {
		if writes[i].Level == writes[i-1].Level {
			t.Fatalf("LED did not alternate: %+v", writes)
		}
	}
}

func TestCommandResolution(t *testing.T) {
	c, _, cfg := newTestController(t)
	now := home(t, c, gpioOf(c), cfg, time.Unix(1000, 0))

	c.Target(10, 80)
	now = now.Add(time.Millisecond)
	c.Tick(now)

	status := c.Status()
	wantAz := int64(math.Round(10 * cfg.AzStepsPerDegree()))
	if status.AzTarget != wantAz {
		t.Errorf("azimuth target %d, want %d", status.AzTarget, wantAz)
	}
	// 80 degrees is clamped to the elevation limit.
	wantEl := int64(math.Round(cfg.ElevationMax * cfg.ElStepsPerDegree()))
	if status.ElTarget != wantEl {
		t.Errorf("elevation target %d, want %d", status.ElTarget, wantEl)
	}
	if !status.Moving {
		t.Error("not moving after command")
	}
}

func TestCommandOverwritesPrevious(t *testing.T) {
	c, _, cfg := newTestController(t)
	now := home(t, c, gpioOf(c), cfg, time.Unix(1000, 0))

	c.Target(10, 0)
	c.Target(20, 0)
	now = now.Add(time.Millisecond)
	c.Tick(now)

	want := int64(math.Round(20 * cfg.AzStepsPerDegree()))
	if status := c.Status(); status.AzTarget != want {
		t.Errorf("azimuth target %d, want %d (latest command)", status.AzTarget, want)
	}
}

func TestHomingMonotonic(t *testing.T) {
	c, m, cfg := newTestController(t)
	now := home(t, c, m, cfg, time.Unix(1000, 0))

	// Track a target for a while so the axis has moved off zero.
	c.Target(90, 0)
	for i := 0; i < 500; i++ {
		now = now.Add(10 * time.Millisecond)
		c.Tick(now)
	}
	before := c.Status()
	if before.AzSteps == 0 {
		t.Fatal("azimuth did not move")
	}

	// A homing press after calibration must not re-zero the axis.
	m.SetInput(cfg.Azimuth.HomePin, gpio.High)
	now = now.Add(time.Millisecond)
	c.Tick(now)
	after := c.Status()
	if after.AzSteps != before.AzSteps {
		t.Errorf("azimuth re-zeroed: %d -> %d", before.AzSteps, after.AzSteps)
	}
	if !after.AzHomed {
		t.Error("homed flag lost")
	}
}

func TestEmergencyStopLatch(t *testing.T) {
	c, m, cfg := newTestController(t)
	now := home(t, c, m, cfg, time.Unix(1000, 0))

	c.Target(10, 5)
	now = now.Add(time.Millisecond)
	c.Tick(now)
	before := c.Status()

	m.SetInput(cfg.StopPin, gpio.High)
	now = now.Add(time.Millisecond)
	c.Tick(now)

	status := c.Status()
	if !status.EmergencyStopped {
		t.Fatal("stop input did not latch")
	}
	if m.Pin(cfg.EnablePin) != gpio.High {
		t.Error("enable line not forced high (disabled) on stop")
	}
	if m.Pin(cfg.LEDPin) != gpio.Low {
		t.Error("indicator not forced off on stop")
	}

	// Releasing the input does not clear the latch.
	m.SetInput(cfg.StopPin, gpio.Low)
	now = now.Add(time.Millisecond)
	c.Tick(now)
	if !c.Status().EmergencyStopped {
		t.Error("latch cleared when input released")
	}

	// Valid commands are still accepted upstream but change nothing.
	c.Target(200, -20)
	for i := 0; i < 10; i++ {
		now = now.Add(time.Millisecond)
		c.Tick(now)
	}
	status = c.Status()
	if status.AzTarget != before.AzTarget || status.ElTarget != before.ElTarget {
		t.Errorf("targets changed after stop: %+v", status)
	}
	if status.AzSteps != before.AzSteps || status.ElSteps != before.ElSteps {
		t.Errorf("axes moved after stop: %+v", status)
	}
}

func TestEmergencyStopDuringHoming(t *testing.T) {
	c, m, cfg := newTestController(t)
	now := time.Unix(1000, 0)
	c.Tick(now)

	m.SetInput(cfg.StopPin, gpio.High)
	now = now.Add(time.Millisecond)
	c.Tick(now)
	if !c.Status().EmergencyStopped {
		t.Fatal("stop during homing did not latch")
	}
	if m.Pin(cfg.LEDPin) != gpio.Low {
		t.Error("indicator still lit after stop during homing")
	}

	// Homing can never complete after the halt.
	now = pressHome(c, m, cfg.Azimuth.HomePin, now)
	now = now.Add(250 * time.Millisecond)
	pressHome(c, m, cfg.Elevation.HomePin, now)
	if status := c.Status(); status.Ready || status.AzHomed {
		t.Errorf("homing progressed after stop: %+v", status)
	}
}

func TestWatchdogHoldsPosition(t *testing.T) {
	c, m, cfg := newTestController(t)
	now := home(t, c, m, cfg, time.Unix(1000, 0))

	c.Target(90, 0)
	for i := 0; i < 100; i++ {
		now = now.Add(10 * time.Millisecond)
		c.Tick(now)
	}
	if c.Status().Holding {
		t.Fatal("holding while commands are fresh")
	}

	// Let the command stream go stale.
	now = now.Add(cfg.StaleTimeout() + time.Second)
	c.Tick(now)
	status := c.Status()
	if !status.Holding {
		t.Fatal("watchdog did not trip")
	}
	if status.AzTarget != status.AzSteps {
		t.Errorf("azimuth target %d not pinned to position %d", status.AzTarget, status.AzSteps)
	}
	// Drive stays enabled during a hold.
	if m.Pin(cfg.EnablePin) != gpio.Low {
		t.Error("drive disabled during watchdog hold")
	}

	// The next valid command releases the hold.
	c.Target(120, 0)
	now = now.Add(time.Millisecond)
	c.Tick(now)
	status = c.Status()
	if status.Holding {
		t.Error("hold not released by new command")
	}
	if status.AzTarget == status.AzSteps {
		t.Error("target not re-applied after hold")
	}
}

func TestWatchdogRefreshedByConnection(t *testing.T) {
	c, _, cfg := newTestController(t)
	now := home(t, c, gpioOf(c), cfg, time.Unix(1000, 0))

	// A producer reconnects just before the deadline, before sending
	// any command.
	now = now.Add(cfg.StaleTimeout() - 100*time.Millisecond)
	c.Tick(now)
	c.ClientConnected()
	now = now.Add(time.Millisecond)
	c.Tick(now)

	// Past the original deadline.
	now = now.Add(200 * time.Millisecond)
	c.Tick(now)
	if c.Status().Holding {
		t.Fatal("watchdog tripped despite fresh connection")
	}

	// A connection that never sends a command still goes stale.
	now = now.Add(cfg.StaleTimeout() + time.Second)
	c.Tick(now)
	if !c.Status().Holding {
		t.Fatal("watchdog did not trip after connection went idle")
	}
}

// gpioOf recovers the mock driver for helpers that only have the
// controller at hand.
func gpioOf(c *Controller) *gpio.Mock {
	return c.io.(*gpio.Mock)
}
