package mount

import (
	"log"
	"time"

	"github.com/eyesky/mount_interface/internal/gpio"
)

// homing sequences the operator-assisted startup calibration. Both
// axes must be zeroed by their homing buttons before drive is enabled;
// until then the status LED blinks and the drivers stay disabled so
// the mount can be positioned by hand.
type homing struct {
	azHomed, elHomed bool
	azLast, elLast   gpio.Level
	debounceUntil    time.Time
	lastBlink        time.Time
	ledOn            bool
	announced        bool
}

func (h *homing) done() bool { return h.azHomed && h.elHomed }

// advanceHoming runs one non-blocking homing step. Called from Tick
// with c.mu held while the machine is not done.
func (c *Controller) advanceHoming(now time.Time) {
	h := &c.homing
	if !h.announced {
		h.announced = true
		log.Print("homing: move mount to north/level by hand, then press the axis buttons")
	}

	if now.Sub(h.lastBlink) > blinkHalfPeriod {
		h.ledOn = !h.ledOn
		h.lastBlink = now
		c.setLED(h.ledOn)
	}

	azLevel := c.readInput(c.cfg.Azimuth.HomePin)
	azEdge := azLevel == gpio.High && h.azLast == gpio.Low
	h.azLast = azLevel
	if !h.azHomed && azEdge && now.After(h.debounceUntil) {
		c.az.SetCurrentPosition(0)
		h.azHomed = true
		h.debounceUntil = now.Add(debounceDelay)
		log.Print("homing: azimuth (north) reference set")
	}

	elLevel := c.readInput(c.cfg.Elevation.HomePin)
	elEdge := elLevel == gpio.High && h.elLast == gpio.Low
	h.elLast = elLevel
	if !h.elHomed && elEdge && now.After(h.debounceUntil) {
		c.el.SetCurrentPosition(0)
		h.elHomed = true
		h.debounceUntil = now.Add(debounceDelay)
		log.Print("homing: elevation (level) reference set")
	}

	if h.done() {
		c.setEnable(true)
		c.setLED(true)
		c.lastCommand = now
		log.Print("homing complete: drive enabled, accepting commands")
	}
}

func (c *Controller) readInput(pin int) gpio.Level {
	level, err := c.io.ReadPin(pin)
	if err != nil {
		log.Printf("reading pin %d: %v", pin, err)
		return gpio.Low
	}
	return level
}
