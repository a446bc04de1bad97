package gpio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPi drives the Raspberry Pi GPIO header through go-rpio. Requires
// /dev/gpiomem access. The homing and stop inputs have external
// pull-downs, so pins are configured as plain inputs.
type RPi struct {
	pins map[int]rpio.Pin
}

func OpenRPi() (*RPi, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("opening gpio memory: %w", err)
	}
	return &RPi{pins: make(map[int]rpio.Pin)}, nil
}

func (r *RPi) SetupPin(pin int, mode Mode) error {
	p := rpio.Pin(pin)
	r.pins[pin] = p
	switch mode {
	case Input:
		p.Input()
	case Output:
		p.Output()
	default:
		return fmt.Errorf("unknown pin mode %d", mode)
	}
	return nil
}

func (r *RPi) WritePin(pin int, level Level) error {
	p, ok := r.pins[pin]
	if !ok {
		if err := r.SetupPin(pin, Output); err != nil {
			return err
		}
		p = r.pins[pin]
	}
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (r *RPi) ReadPin(pin int) (Level, error) {
	p, ok := r.pins[pin]
	if !ok {
		if err := r.SetupPin(pin, Input); err != nil {
			return Low, err
		}
		p = r.pins[pin]
	}
	if p.Read() == rpio.High {
		return High, nil
	}
	return Low, nil
}

func (r *RPi) Close() error {
	// Drop the lines back to inputs so nothing is left driven.
	for _, p := range r.pins {
		p.Input()
	}
	return rpio.Close()
}
