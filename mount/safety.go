package mount

import (
	"log"
	"time"

	"github.com/eyesky/mount_interface/internal/gpio"
)

// pollStop samples the emergency-stop input. Assertion latches until
// restart: drive is cut immediately (no deceleration), the indicator
// goes dark, and every later tick skips command processing and motion
// servicing. Called from Tick with c.mu held.
func (c *Controller) pollStop(now time.Time) {
	if c.stopped {
		return
	}
	if c.readInput(c.cfg.StopPin) != gpio.High {
		return
	}
	c.stopped = true
	c.pending = nil
	c.setEnable(false)
	c.setLED(false)
	if !c.homing.done() {
		log.Print("emergency stop during homing; restart required")
		return
	}
	log.Print("emergency stop asserted; drive cut, restart required")
}

// checkWatchdog pins both targets to the current position when the
// command stream has gone stale. The hold releases on the next valid
// command; drive stays enabled throughout. Called with c.mu held.
func (c *Controller) checkWatchdog(now time.Time) {
	timeout := c.cfg.StaleTimeout()
	if timeout <= 0 || c.holding {
		return
	}
	if now.Sub(c.lastCommand) <= timeout {
		return
	}
	c.holding = true
	c.az.MoveTo(c.az.CurrentPosition())
	c.el.MoveTo(c.el.CurrentPosition())
	log.Printf("no command for %v; holding position", timeout)
}
