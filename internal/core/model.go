// Package core implements the signal domain: the light driver that maps a
// colour onto a red/green output pair, and the state store that keeps the
// per-signal status table and the emergency flag consistent with the
// physical outputs under a single lock.
package core

import "fmt"

// Color is the commanded state of a signal head.  Yellow is modelled but
// never physically driven: the driver maps it onto the red output.
type Color string

const (
	Red    Color = "red"
	Yellow Color = "yellow"
	Green  Color = "green"
)

// ParseColor validates a status value received over the API.
func ParseColor(s string) (Color, error) {
	switch Color(s) {
	case Red, Yellow, Green:
		return Color(s), nil
	default:
		return "", fmt.Errorf("invalid status %q", s)
	}
}

// DirectionGroup groups signals that move together.  AllDirections is the
// broadcast wildcard accepted by direction-scoped commands; it is never a
// signal's configured group.
type DirectionGroup string

const (
	NorthSouth    DirectionGroup = "north_south"
	EastWest      DirectionGroup = "east_west"
	AllDirections DirectionGroup = "all_directions"
)

// Nominal cycle timings reported by the API.  Descriptive metadata only:
// nothing in the service enforces them.
const (
	NominalRedSeconds    = 30
	NominalYellowSeconds = 3
	NominalGreenSeconds  = 30
	CountdownSeconds     = 30
)

// State is the mutable per-signal record.  Signals start red with no
// override; Override becomes true once any direct or emergency command has
// touched the signal, distinguishing it from routine sync updates.
type State struct {
	Status    Color
	Direction DirectionGroup
	Override  bool
}

// SyncEntry is one element of a bulk status update.
type SyncEntry struct {
	ID     string
	Status Color
}
