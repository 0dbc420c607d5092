// Package usbtmc provides byte-level transports for USB Test and
// Measurement Class instruments.
//
// Two transports are available: KernelDevice talks to the usbtmc kernel
// driver through a /dev/usbtmcN character device, and BulkDevice claims the
// USB interface directly through libusb and speaks the USBTMC bulk framing
// itself. Both satisfy Transport, which is all the higher-level driver in
// package scope requires.
package usbtmc

import (
	"errors"
	"fmt"
	"time"
)

// Transport is a synchronous byte channel to one instrument. Implementations
// are not safe for concurrent use; the instrument multiplexes exactly one
// in-flight command, so callers must pair every write with its read before
// issuing the next command.
type Transport interface {
	// Write sends the full buffer and reports the number of bytes accepted.
	Write(p []byte) (int, error)

	// Read fills p with the next response and returns the byte count. A
	// response may be shorter than p; it is never split across calls.
	Read(p []byte) (int, error)

	// SetTimeout bounds every subsequent Read. A stalled instrument
	// surfaces ErrTimeout rather than blocking forever.
	SetTimeout(d time.Duration)

	Close() error
}

// ErrTimeout reports that an instrument produced no response within the
// configured read timeout. It is distinct from an underrun, which means a
// response arrived but was shorter than required.
var ErrTimeout = errors.New("usbtmc: read timeout")

// ErrNotFound reports that no attached device matched the requested
// vendor/product pair or serial number.
var ErrNotFound = errors.New("usbtmc: no matching device")

// UnderrunError reports a binary read that returned fewer bytes than the
// protocol requires at that point in the exchange.
type UnderrunError struct {
	Want int
	Got  int
}

func (e *UnderrunError) Error() string {
	return fmt.Sprintf("usbtmc: short read: want %d bytes, got %d", e.Want, e.Got)
}
