package core

import (
	"fmt"

	"trafficd/internal/config"
	"trafficd/internal/hal"
)

// Driver sets the physical output pair of a signal to exactly one of
// red-on/green-off or green-on/red-off.  A write failure is a hardware
// fault and propagates to the caller; there is no debouncing and no retry.
type Driver struct {
	gpio hal.GPIO
}

// NewDriver wraps an open GPIO handle.
func NewDriver(gpio hal.GPIO) *Driver {
	return &Driver{gpio: gpio}
}

// Claim configures both outputs of a signal.  Called once per signal at
// startup; a failure here must be fatal before the server accepts requests.
func (d *Driver) Claim(sig config.Signal) error {
	if err := d.gpio.ClaimOutput(sig.RedPin); err != nil {
		return fmt.Errorf("signal %s: %w", sig.ID, err)
	}
	if err := d.gpio.ClaimOutput(sig.GreenPin); err != nil {
		return fmt.Errorf("signal %s: %w", sig.ID, err)
	}
	return nil
}

// SetLight drives the output pair for the given colour.  Green asserts the
// green output and clears the red output; any other colour (red, and yellow
// which is never physically driven) asserts red and clears green.
func (d *Driver) SetLight(sig config.Signal, color Color) error {
	var green, red bool
	if color == Green {
		green, red = true, false
	} else {
		green, red = false, true
	}
	if err := d.gpio.Write(sig.GreenPin, green); err != nil {
		return fmt.Errorf("signal %s green output: %w", sig.ID, err)
	}
	if err := d.gpio.Write(sig.RedPin, red); err != nil {
		return fmt.Errorf("signal %s red output: %w", sig.ID, err)
	}
	return nil
}
