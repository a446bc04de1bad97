package motion

import (
	"math"
	"time"

	"github.com/eyesky/mount_interface/internal/gpio"
)

// Stepper generates step/dir pulses for one axis with a trapezoidal
// speed profile. Run must be called frequently (once per control tick);
// each call advances the profile by the elapsed wall time and emits any
// step pulses that have come due. Re-targeting mid-move is allowed and
// simply redirects the profile.
type Stepper struct {
	io      gpio.Driver
	stepPin int
	dirPin  int

	maxSpeed float64 // steps/s
	accel    float64 // steps/s^2

	pos     float64 // continuous position estimate, steps
	speed   float64 // signed, steps/s
	emitted int64   // whole steps actually pulsed
	target  int64
	last    time.Time
	dirHigh bool
	dirSet  bool
}

func NewStepper(io gpio.Driver, stepPin, dirPin int, maxSpeed, accel float64) *Stepper {
	_ = io.SetupPin(stepPin, gpio.Output)
	_ = io.SetupPin(dirPin, gpio.Output)
	return &Stepper{
		io:       io,
		stepPin:  stepPin,
		dirPin:   dirPin,
		maxSpeed: maxSpeed,
		accel:    accel,
	}
}

// MoveTo sets the absolute target position in steps.
func (s *Stepper) MoveTo(target int64) {
	s.target = target
}

// SetCurrentPosition re-declares the current position, typically to
// zero an axis after homing. Any pending motion is discarded.
func (s *Stepper) SetCurrentPosition(pos int64) {
	s.pos = float64(pos)
	s.emitted = pos
	s.target = pos
	s.speed = 0
}

func (s *Stepper) CurrentPosition() int64 { return s.emitted }

func (s *Stepper) TargetPosition() int64 { return s.target }

// Moving reports whether the profile has distance or speed left.
func (s *Stepper) Moving() bool {
	return s.speed != 0 || float64(s.target) != s.pos
}

// Run advances the profile to now. Returns true while still moving.
func (s *Stepper) Run(now time.Time) bool {
	if s.last.IsZero() {
		s.last = now
		return s.Moving()
	}
	dt := now.Sub(s.last).Seconds()
	s.last = now
	if dt <= 0 {
		return s.Moving()
	}

	dist := float64(s.target) - s.pos
	if dist == 0 && s.speed == 0 {
		return false
	}

	want := math.Copysign(s.maxSpeed, dist)
	if dist == 0 {
		want = 0
	}
	// Brake when the remaining distance is within stopping range, or
	// when the current speed points away from the target.
	braking := dist*s.speed < 0 || s.speed*s.speed/(2*s.accel) >= math.Abs(dist)
	if braking {
		want = 0
		if dist*s.speed >= 0 && math.Abs(dist) > 0 {
			// Still heading the right way; taper toward the target.
			want = math.Copysign(math.Sqrt(2*s.accel*math.Abs(dist)), dist)
		}
	}
	maxDelta := s.accel * dt
	delta := want - s.speed
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}
	s.speed += delta

	s.pos += s.speed * dt
	// Snap when the profile has effectively arrived.
	if math.Abs(float64(s.target)-s.pos) < 0.5 && math.Abs(s.speed) < s.accel*dt*2 {
		s.pos = float64(s.target)
		s.speed = 0
	}

	for s.pos-float64(s.emitted) >= 1 {
		s.step(true)
	}
	for s.pos-float64(s.emitted) <= -1 {
		s.step(false)
	}
	return s.Moving()
}

func (s *Stepper) step(forward bool) {
	if forward != s.dirHigh || !s.dirSet {
		s.dirHigh = forward
		s.dirSet = true
		level := gpio.Low
		if forward {
			level = gpio.High
		}
		_ = s.io.WritePin(s.dirPin, level)
	}
	_ = s.io.WritePin(s.stepPin, gpio.High)
	_ = s.io.WritePin(s.stepPin, gpio.Low)
	if forward {
		s.emitted++
	} else {
		s.emitted--
	}
}
