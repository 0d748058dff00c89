//go:build !linux || mockgpio
// +build !linux mockgpio

package hal

// Open returns an in-memory GPIO implementation so that the server can be
// developed and exercised on a machine without Pi hardware.  Build with the
// "mockgpio" tag to force this behaviour on Linux as well.
func Open(index int) (GPIO, error) {
	_ = index
	return NewMemory(), nil
}
