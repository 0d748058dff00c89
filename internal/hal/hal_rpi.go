//go:build linux && !mockgpio
// +build linux,!mockgpio

// This file provides the Raspberry Pi implementation of the HAL using the
// periph.io library.  When cross-compiling on other platforms or when the
// build tag "mockgpio" is specified, hal_mock.go is used instead.

package hal

import (
	"fmt"

	// Use the new periph module layout.  See https://periph.io/news/2020/a_new_start/
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// chip drives pins through periph's GPIO registry.
type chip struct {
	pins map[int]gpio.PinIO
}

// Open initialises periph host state and returns a handle on the GPIO chip.
// Returning an error here must prevent the server from starting.  host.Init
// can safely be called multiple times; subsequent calls are no-ops.
func Open(index int) (GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("unable to initialise GPIO host: %w", err)
	}
	// periph addresses pins by BCM name rather than chip index; the Pi
	// exposes a single usable chip so the index is accepted and ignored.
	_ = index
	return &chip{pins: make(map[int]gpio.PinIO)}, nil
}

// ClaimOutput resolves the pin by its BCM number and configures it as an
// output driven low.
func (c *chip) ClaimOutput(pin int) error {
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return fmt.Errorf("unknown GPIO pin %d", pin)
	}
	if err := p.Out(gpio.Low); err != nil {
		return fmt.Errorf("unable to claim GPIO%d as output: %w", pin, err)
	}
	c.pins[pin] = p
	return nil
}

// Write sets the logic level of a claimed pin.
func (c *chip) Write(pin int, level bool) error {
	p, ok := c.pins[pin]
	if !ok {
		return fmt.Errorf("GPIO pin %d not claimed", pin)
	}
	if err := p.Out(gpio.Level(level)); err != nil {
		return fmt.Errorf("unable to write GPIO%d: %w", pin, err)
	}
	return nil
}

// Close halts every claimed pin.  The first error encountered is returned,
// but all pins are attempted.
func (c *chip) Close() error {
	var first error
	for pin, p := range c.pins {
		if err := p.Halt(); err != nil && first == nil {
			first = fmt.Errorf("unable to halt GPIO%d: %w", pin, err)
		}
	}
	c.pins = nil
	return first
}
