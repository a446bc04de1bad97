package gpio

import "sync"

// Level is the logical state of a GPIO line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Mode selects the direction of a GPIO line.
type Mode int

const (
	Input Mode = iota
	Output
)

// Driver abstracts the GPIO hardware so the controller can run against
// a real Raspberry Pi or a mock during development and tests.
type Driver interface {
	SetupPin(pin int, mode Mode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// Mock is an in-memory Driver. Output writes are retained and input
// levels can be set from tests. Safe for concurrent use.
type Mock struct {
	mu      sync.Mutex
	levels  map[int]Level
	modes   map[int]Mode
	history []Write
}

// Write records a single output transition on a pin.
type Write struct {
	Pin   int
	Level Level
}

func NewMock() *Mock {
	return &Mock{
		levels: make(map[int]Level),
		modes:  make(map[int]Mode),
	}
}

func (m *Mock) SetupPin(pin int, mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[pin] = mode
	return nil
}

func (m *Mock) WritePin(pin int, level Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[pin] = level
	m.history = append(m.history, Write{Pin: pin, Level: level})
	return nil
}

func (m *Mock) ReadPin(pin int) (Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[pin], nil
}

func (m *Mock) Close() error { return nil }

// SetInput drives an input pin from a test, simulating an external
// signal such as a homing button.
func (m *Mock) SetInput(pin int, level Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[pin] = level
}

// Pin returns the last level written or set on a pin.
func (m *Mock) Pin(pin int) Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[pin]
}

// Writes returns the output transitions recorded on a pin, in order.
func (m *Mock) Writes(pin int) []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Write
	for _, w := range m.history {
		if w.Pin == pin {
			out = append(out, w)
		}
	}
	return out
}
