package core

import (
	"errors"
	"fmt"
	"sync"

	"trafficd/internal/config"
)

// ErrUnknownSignal is returned when an operation names a signal ID that is
// not part of the configured intersection.
var ErrUnknownSignal = errors.New("unknown signal")

// entry pairs a signal's static configuration with its mutable state.
type entry struct {
	cfg   config.Signal
	state State
}

// Snapshot is a read-only view of one signal.
type Snapshot struct {
	ID    string
	Cfg   config.Signal
	State State
}

// Store holds the per-signal state table and the process-wide emergency
// flag.  Every mutation happens while holding the single mutex and is paired
// with the corresponding hardware write inside the same critical section, so
// the recorded state and the physical outputs never observably diverge to an
// API client.  Reads take the same lock: correctness relies purely on lock
// ordering, there is no finer-grained locking and no priority queue.
type Store struct {
	mu        sync.Mutex
	driver    *Driver
	order     []string
	signals   map[string]*entry
	emergency bool
}

// NewStore claims the output pins of every configured signal and forces the
// whole intersection to red.  A claim or write failure is returned so the
// caller can abort startup; the process must not serve requests with an
// unclaimed pin.
func NewStore(driver *Driver, signals []config.Signal) (*Store, error) {
	s := &Store{
		driver:  driver,
		signals: make(map[string]*entry, len(signals)),
	}
	for _, sig := range signals {
		if err := driver.Claim(sig); err != nil {
			return nil, err
		}
		s.order = append(s.order, sig.ID)
		s.signals[sig.ID] = &entry{
			cfg:   sig,
			state: State{Status: Red, Direction: DirectionGroup(sig.Direction)},
		}
	}
	if err := s.ResetAllRed(); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns a copy of every signal's state in configured order, plus
// the emergency flag.
func (s *Store) Snapshot() ([]Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.order))
	for _, id := range s.order {
		e := s.signals[id]
		out = append(out, Snapshot{ID: id, Cfg: e.cfg, State: e.state})
	}
	return out, s.emergency
}

// Get returns the state of one signal.
func (s *Store) Get(id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.signals[id]
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownSignal, id)
	}
	return e.state, nil
}

// EmergencyActive reports whether an emergency override is in effect.
func (s *Store) EmergencyActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergency
}

// Set applies a direct command: the signal's status is set, its override
// flag is raised unconditionally, and the light is driven.
func (s *Store) Set(id string, color Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.signals[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSignal, id)
	}
	e.state.Status = color
	e.state.Override = true
	return s.driver.SetLight(e.cfg, color)
}

// SetDirection applies a direction-scoped command.  If the requested group
// matches the signal's configured group, or is the AllDirections wildcard,
// the command behaves as Set and applied is true.  Otherwise nothing is
// mutated and applied is false: a broadcast command sent to every signal
// only takes effect on the ones whose group matches.
func (s *Store) SetDirection(id string, group DirectionGroup, color Color) (applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.signals[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownSignal, id)
	}
	if group != e.state.Direction && group != AllDirections {
		return false, nil
	}
	e.state.Status = color
	e.state.Override = true
	return true, s.driver.SetLight(e.cfg, color)
}

// Sync applies a bulk status update.  Entries naming unknown signals are
// skipped silently; the override flag is left untouched on the rest, which
// is what distinguishes a routine sync from an explicit command.  It returns
// the number of entries attempted and the number actually applied.
func (s *Store) Sync(entries []SyncEntry) (attempted, applied int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempted = len(entries)
	for _, in := range entries {
		e, ok := s.signals[in.ID]
		if !ok {
			continue
		}
		e.state.Status = in.Status
		if err := s.driver.SetLight(e.cfg, in.Status); err != nil {
			return attempted, applied, err
		}
		applied++
	}
	return attempted, applied, nil
}

// ActivateEmergency forces the named signal green with override set and
// every other signal red (their override flags are left unchanged), and
// raises the process-wide emergency flag.  Activation wins over any
// concurrently requested state simply by holding the same lock as every
// other mutation.
func (s *Store) ActivateEmergency(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.signals[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSignal, id)
	}
	s.emergency = true
	for _, sid := range s.order {
		e := s.signals[sid]
		if sid == id {
			e.state.Status = Green
			e.state.Override = true
			if err := s.driver.SetLight(e.cfg, Green); err != nil {
				return err
			}
			continue
		}
		e.state.Status = Red
		if err := s.driver.SetLight(e.cfg, Red); err != nil {
			return err
		}
	}
	return nil
}

// DeactivateEmergency clears the emergency flag and performs a full reset:
// every signal to red with override cleared.  The pre-emergency state is not
// preserved.
func (s *Store) DeactivateEmergency() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergency = false
	for _, sid := range s.order {
		e := s.signals[sid]
		e.state.Status = Red
		e.state.Override = false
		if err := s.driver.SetLight(e.cfg, Red); err != nil {
			return err
		}
	}
	return nil
}

// ResetAllRed records every signal as red and drives the outputs to match.
// Used at startup and during shutdown cleanup.  Override flags are cleared.
func (s *Store) ResetAllRed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for _, sid := range s.order {
		e := s.signals[sid]
		e.state.Status = Red
		e.state.Override = false
		if err := s.driver.SetLight(e.cfg, Red); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// DriveAll drives every output pair to the given colour without touching
// the recorded state.  This mirrors the demonstration endpoints, which
// exercise the lights but do not alter what the API reports.
func (s *Store) DriveAll(color Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sid := range s.order {
		if err := s.driver.SetLight(s.signals[sid].cfg, color); err != nil {
			return err
		}
	}
	return nil
}
