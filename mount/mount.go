// Package mount implements the control core for a two-axis stepper
// telescope mount: target resolution, startup homing, the safety
// interlock, and the tick loop that services the motors.
package mount

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/eyesky/mount_interface/internal/config"
	"github.com/eyesky/mount_interface/internal/gpio"
	"github.com/eyesky/mount_interface/motion"
)

const (
	// DefaultTickInterval is the control loop period. Step pulses for
	// both axes are serviced once per tick.
	DefaultTickInterval = time.Millisecond

	debounceDelay   = 200 * time.Millisecond
	blinkHalfPeriod = 300 * time.Millisecond
)

// Status is a snapshot of the controller state, published through the
// status callback whenever it changes.
type Status struct {
	// AzPos is in decimal degrees, reduced to [0, 360).
	// ElPos is in decimal degrees within the elevation limits.
	AzPos float64
	ElPos float64

	AzSteps, ElSteps   int64
	AzTarget, ElTarget int64

	AzHomed, ElHomed bool
	// Ready is true once both axes are homed and drive is enabled.
	Ready bool

	EmergencyStopped bool
	// Holding is true while the staleness watchdog has pinned both
	// targets to the current position.
	Holding bool
	Moving  bool
}

type StatusCallback func(status Status)

type command struct {
	azDeg, elDeg float64
}

// Controller owns all mount state. GPIO, axis and safety state are
// mutated only under mu; the listener and API surfaces hand commands
// over through Target and the tick loop applies them.
type Controller struct {
	cfg            config.Mount
	io             gpio.Driver
	statusCallback StatusCallback

	az *motion.Stepper
	el *motion.Stepper

	mu          sync.Mutex
	pending     *command
	connected   bool
	lastCommand time.Time
	holding     bool
	stopped     bool
	homing      homing
	last        Status
	published   bool
}

// New wires a controller to the GPIO driver. Drive is left disabled
// (enable line high) so the operator can move the mount by hand during
// homing.
func New(cfg config.Mount, io gpio.Driver, statusCallback StatusCallback) (*Controller, error) {
	for _, pin := range []int{cfg.Azimuth.HomePin, cfg.Elevation.HomePin, cfg.StopPin} {
		if err := io.SetupPin(pin, gpio.Input); err != nil {
			return nil, err
		}
	}
	for _, pin := range []int{cfg.EnablePin, cfg.LEDPin} {
		if err := io.SetupPin(pin, gpio.Output); err != nil {
			return nil, err
		}
	}
	c := &Controller{
		cfg:            cfg,
		io:             io,
		statusCallback: statusCallback,
		az:             motion.NewStepper(io, cfg.Azimuth.StepPin, cfg.Azimuth.DirPin, cfg.MaxSpeed, cfg.Acceleration),
		el:             motion.NewStepper(io, cfg.Elevation.StepPin, cfg.Elevation.DirPin, cfg.MaxSpeed, cfg.Acceleration),
	}
	c.setEnable(false)
	return c, nil
}

// Target latches a new angle pair. The tick loop resolves and applies
// it; an unapplied previous command is overwritten, never queued.
func (c *Controller) Target(azDeg, elDeg float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &command{azDeg: azDeg, elDeg: elDeg}
}

// ClientConnected refreshes the staleness watchdog when a command
// producer (re)connects. The refresh takes effect on the next tick.
func (c *Controller) ClientConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
}

// Status returns the current snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Run drives the control loop until the context is canceled.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			c.Tick(now)
		}
	}
}

// Tick performs one control loop iteration: emergency-stop poll,
// homing or motion servicing, command application, watchdog check.
func (c *Controller) Tick(now time.Time) {
	c.mu.Lock()
	c.pollStop(now)
	switch {
	case c.stopped:
		// Hard halt: no motion servicing, no command processing.
	case !c.homing.done():
		c.advanceHoming(now)
	default:
		if c.connected {
			c.connected = false
			c.lastCommand = now
		}
		c.applyPending(now)
		c.checkWatchdog(now)
		c.az.Run(now)
		c.el.Run(now)
	}
	status := c.snapshot()
	changed := !c.published || status != c.last
	c.last = status
	c.published = true
	c.mu.Unlock()
	if changed && c.statusCallback != nil {
		c.statusCallback(status)
	}
}

func (c *Controller) applyPending(now time.Time) {
	cmd := c.pending
	c.pending = nil
	if cmd == nil {
		return
	}
	c.az.MoveTo(azimuthTargetSteps(cmd.azDeg, c.az.CurrentPosition(), c.cfg.AzStepsPerDegree()))
	c.el.MoveTo(elevationTargetSteps(cmd.elDeg, c.cfg.ElevationMin, c.cfg.ElevationMax, c.cfg.ElStepsPerDegree()))
	c.lastCommand = now
	c.holding = false
}

func (c *Controller) snapshot() Status {
	azSteps := c.az.CurrentPosition()
	elSteps := c.el.CurrentPosition()
	return Status{
		AzPos:            reduceDegrees(float64(azSteps) / c.cfg.AzStepsPerDegree()),
		ElPos:            float64(elSteps) / c.cfg.ElStepsPerDegree(),
		AzSteps:          azSteps,
		ElSteps:          elSteps,
		AzTarget:         c.az.TargetPosition(),
		ElTarget:         c.el.TargetPosition(),
		AzHomed:          c.homing.azHomed,
		ElHomed:          c.homing.elHomed,
		Ready:            c.homing.done(),
		EmergencyStopped: c.stopped,
		Holding:          c.holding,
		Moving:           c.az.Moving() || c.el.Moving(),
	}
}

// setEnable drives the shared driver enable line. Active low.
func (c *Controller) setEnable(enabled bool) {
	level := gpio.High
	if enabled {
		level = gpio.Low
	}
	if err := c.io.WritePin(c.cfg.EnablePin, level); err != nil {
		log.Printf("writing enable pin: %v", err)
	}
}

func (c *Controller) setLED(on bool) {
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := c.io.WritePin(c.cfg.LEDPin, level); err != nil {
		log.Printf("writing status LED: %v", err)
	}
}
