// Package scope drives Rigol oscilloscopes over a USBTMC transport. It
// exposes instrument state as getter/setter calls that translate to SCPI
// commands, and retrieves waveform records and screenshots through chunked
// binary reads.
//
// One Oscilloscope owns its transport exclusively. The instrument has no
// request framing, so every command must be paired with its response before
// the next is issued; nothing in this package may be called concurrently
// against the same instrument.
package scope

import (
	"fmt"
	"strings"
	"time"

	"github.com/jtambasco/rigoltmc/usbtmc"
)

// defaultReadLen is the buffer size for single-value text responses.
const defaultReadLen = 256

// Conn is the command channel: it turns SCPI command strings into transport
// writes and transport reads into trimmed text or raw byte responses.
type Conn struct {
	tp usbtmc.Transport

	// settle is slept after every write; the instrument needs time to
	// process a command before it accepts the next one.
	settle time.Duration

	// sleep is swappable so tests do not pay the settle delay.
	sleep func(time.Duration)
}

// NewConn wraps a transport with the given per-command settle delay.
func NewConn(tp usbtmc.Transport, settle time.Duration) *Conn {
	return &Conn{tp: tp, settle: settle, sleep: time.Sleep}
}

// Write sends one command and waits out the settle delay.
func (c *Conn) Write(cmd string) error {
	if _, err := c.tp.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	c.sleep(c.settle)
	return nil
}

// Writef formats and sends one command.
func (c *Conn) Writef(format string, args ...any) error {
	return c.Write(fmt.Sprintf(format, args...))
}

// Read returns the next response with surrounding whitespace trimmed.
func (c *Conn) Read(maxLen int) (string, error) {
	buf := make([]byte, maxLen)
	n, err := c.tp.Read(buf)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

// ReadRaw returns the next response untouched, framing bytes included.
func (c *Conn) ReadRaw(maxLen int) ([]byte, error) {
	buf := make([]byte, maxLen)
	n, err := c.tp.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read raw response: %w", err)
	}
	return buf[:n], nil
}

// Ask sends a query and returns its trimmed text response.
func (c *Conn) Ask(cmd string) (string, error) {
	if err := c.Write(cmd); err != nil {
		return "", err
	}
	return c.Read(defaultReadLen)
}

// Askf formats and sends a query, returning its trimmed text response.
func (c *Conn) Askf(format string, args ...any) (string, error) {
	return c.Ask(fmt.Sprintf(format, args...))
}

// AskRaw sends a query and returns up to maxLen raw response bytes.
func (c *Conn) AskRaw(cmd string, maxLen int) ([]byte, error) {
	if err := c.Write(cmd); err != nil {
		return nil, err
	}
	return c.ReadRaw(maxLen)
}

// SetTimeout bounds each underlying transport read.
func (c *Conn) SetTimeout(d time.Duration) {
	c.tp.SetTimeout(d)
}

// Close releases the transport.
func (c *Conn) Close() error {
	return c.tp.Close()
}
