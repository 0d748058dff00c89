package hal

import (
	"fmt"
	"sync"
)

// Memory is an in-memory GPIO implementation.  It records claimed pins and
// the last level written to each, which lets tests assert that the recorded
// signal state and the "physical" output never diverge.  It is safe for
// concurrent use.
type Memory struct {
	mu      sync.Mutex
	claimed map[int]bool
	levels  map[int]bool
	closed  bool
}

// NewMemory returns an empty in-memory GPIO chip.
func NewMemory() *Memory {
	return &Memory{
		claimed: make(map[int]bool),
		levels:  make(map[int]bool),
	}
}

// ClaimOutput marks the pin as an output driven low.
func (m *Memory) ClaimOutput(pin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("gpio chip is closed")
	}
	m.claimed[pin] = true
	m.levels[pin] = false
	return nil
}

// Write records the level of a claimed pin.
func (m *Memory) Write(pin int, level bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("gpio chip is closed")
	}
	if !m.claimed[pin] {
		return fmt.Errorf("GPIO pin %d not claimed", pin)
	}
	m.levels[pin] = level
	return nil
}

// Close marks the chip as released.  Further operations fail.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Level reports the last level written to the pin and whether the pin has
// been claimed.  Test helper.
func (m *Memory) Level(pin int) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.claimed[pin] {
		return false, false
	}
	return m.levels[pin], true
}

// Closed reports whether Close has been called.  Test helper.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
