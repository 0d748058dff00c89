// Package hal provides a narrow hardware abstraction layer for GPIO output
// pins.  The rest of the system depends only on this contract and is
// otherwise hardware-agnostic: the real implementation drives the Raspberry
// Pi pins through periph.io, while the in-memory implementation lets the
// server and its tests run on a desktop machine without Pi hardware.
package hal

// GPIO is the contract for an open GPIO chip.  Pins are addressed by their
// BCM numbers.  A pin must be claimed as an output before it can be written.
type GPIO interface {
	// ClaimOutput configures the pin as an output, initially driven low.
	ClaimOutput(pin int) error
	// Write sets the logic level of a previously claimed pin.
	Write(pin int, level bool) error
	// Close releases every claimed pin.  The handle must not be used again.
	Close() error
}
