package core

import (
	"context"
	"time"
)

// RunCycle walks the intersection once for demonstration purposes: each
// signal in configured order is driven green (everything else red) for one
// step, and the run finishes with all signals red.  Like DriveAll it only
// exercises the outputs and never alters the recorded state.  Each step
// takes the store lock so it cannot interleave with concurrent API-driven
// changes, and the lock is released while sleeping.  The walk stops early
// when ctx is cancelled; the final all-red is still attempted.
func (s *Store) RunCycle(ctx context.Context, step time.Duration) error {
	ids := s.signalOrder()
	timer := time.NewTimer(step)
	defer timer.Stop()
	for _, id := range ids {
		if err := s.driveOnlyGreen(id); err != nil {
			_ = s.DriveAll(Red)
			return err
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(step)
		select {
		case <-ctx.Done():
			return s.DriveAll(Red)
		case <-timer.C:
		}
	}
	return s.DriveAll(Red)
}

// signalOrder returns a copy of the configured signal order.
func (s *Store) signalOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// driveOnlyGreen drives every signal red and then the target green, as one
// critical section.
func (s *Store) driveOnlyGreen(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sid := range s.order {
		if err := s.driver.SetLight(s.signals[sid].cfg, Red); err != nil {
			return err
		}
	}
	e, ok := s.signals[id]
	if !ok {
		return nil
	}
	return s.driver.SetLight(e.cfg, Green)
}
