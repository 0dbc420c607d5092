package usbtmc

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff"
)

// KernelDevice is a Transport backed by the Linux usbtmc kernel driver. The
// driver handles the USBTMC bulk framing, so reads and writes carry message
// payloads only.
type KernelDevice struct {
	file    *os.File
	timeout time.Duration
}

// OpenKernelDevice opens a /dev/usbtmcN node. Freshly attached instruments
// can reject the first open while the kernel finishes binding, so the open
// is retried with exponential backoff for a short window.
func OpenKernelDevice(path string) (*KernelDevice, error) {
	var file *os.File

	open := func() error {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return err
		}
		file = f
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = 2 * time.Second
	if err := backoff.Retry(open, policy); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &KernelDevice{file: file, timeout: 5 * time.Second}, nil
}

// SetTimeout bounds subsequent reads.
func (d *KernelDevice) SetTimeout(t time.Duration) {
	d.timeout = t
}

// Write sends one message payload to the instrument.
func (d *KernelDevice) Write(p []byte) (int, error) {
	n, err := d.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("usbtmc write: %w", err)
	}
	return n, nil
}

// Read returns the next message payload, up to len(p) bytes. The usbtmc
// character device is pollable, so a file deadline gives a bounded wait.
func (d *KernelDevice) Read(p []byte) (int, error) {
	if d.timeout > 0 {
		if err := d.file.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
			return 0, fmt.Errorf("arm read deadline: %w", err)
		}
	}
	n, err := d.file.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, ErrTimeout
		}
		return n, fmt.Errorf("usbtmc read: %w", err)
	}
	return n, nil
}

// Close releases the device node.
func (d *KernelDevice) Close() error {
	return d.file.Close()
}
