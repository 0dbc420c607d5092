package usbtmc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// USBTMC bulk message IDs (USBTMC standard, table 2).
const (
	msgDevDepOut       = 0x01
	msgRequestDevDepIn = 0x02
)

const bulkHeaderLen = 12

// BulkDevice is a Transport that claims the instrument's USB interface
// through libusb and speaks the USBTMC bulk framing directly. Useful when
// the usbtmc kernel driver is unbound or unavailable.
type BulkDevice struct {
	ctx     *gousb.Context
	dev     *gousb.Device
	intf    *gousb.Interface
	done    func()
	in      *gousb.InEndpoint
	out     *gousb.OutEndpoint
	tag     byte
	timeout time.Duration
}

// OpenBulkDevice opens the first device matching the vendor/product pair and
// claims its default interface's bulk endpoints.
func OpenBulkDevice(vid, pid uint16) (*BulkDevice, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("open device %04x:%04x: %w", vid, pid, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("%w: %04x:%04x", ErrNotFound, vid, pid)
	}

	d := &BulkDevice{ctx: ctx, dev: dev, tag: 1, timeout: 5 * time.Second}

	if err := dev.SetAutoDetach(true); err != nil {
		d.Close()
		return nil, fmt.Errorf("detach kernel driver: %w", err)
	}

	d.intf, d.done, err = dev.DefaultInterface()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("claim interface: %w", err)
	}

	inNum, outNum, err := bulkEndpoints(d.intf.Setting)
	if err != nil {
		d.Close()
		return nil, err
	}
	if d.in, err = d.intf.InEndpoint(inNum); err != nil {
		d.Close()
		return nil, fmt.Errorf("open IN endpoint %d: %w", inNum, err)
	}
	if d.out, err = d.intf.OutEndpoint(outNum); err != nil {
		d.Close()
		return nil, fmt.Errorf("open OUT endpoint %d: %w", outNum, err)
	}

	return d, nil
}

// bulkEndpoints picks the bulk IN and OUT endpoint numbers from an interface
// descriptor.
func bulkEndpoints(s gousb.InterfaceSetting) (in, out int, err error) {
	in, out = -1, -1
	for _, ep := range s.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionIn:
			if in < 0 {
				in = ep.Number
			}
		case gousb.EndpointDirectionOut:
			if out < 0 {
				out = ep.Number
			}
		}
	}
	if in < 0 || out < 0 {
		return 0, 0, fmt.Errorf("interface %s exposes no bulk endpoint pair", s)
	}
	return in, out, nil
}

// SetTimeout bounds subsequent reads.
func (d *BulkDevice) SetTimeout(t time.Duration) {
	d.timeout = t
}

// nextTag returns the next bTag. Zero is reserved, so the counter wraps to 1.
func (d *BulkDevice) nextTag() byte {
	d.tag++
	if d.tag == 0 {
		d.tag = 1
	}
	return d.tag
}

// devDepOutHeader encodes the DEV_DEP_MSG_OUT header (USBTMC standard,
// table 3). Every message is marked end-of-message; the driver never splits
// a command across transfers.
func devDepOutHeader(tag byte, payloadLen int) [bulkHeaderLen]byte {
	var h [bulkHeaderLen]byte
	h[0] = msgDevDepOut
	h[1] = tag
	h[2] = ^tag
	binary.LittleEndian.PutUint32(h[4:8], uint32(payloadLen))
	h[8] = 0x01 // EOM
	return h
}

// requestDevDepInHeader encodes the REQUEST_DEV_DEP_MSG_IN header (USBTMC
// standard, table 4) asking the instrument for up to bufLen response bytes.
func requestDevDepInHeader(tag byte, bufLen int) [bulkHeaderLen]byte {
	var h [bulkHeaderLen]byte
	h[0] = msgRequestDevDepIn
	h[1] = tag
	h[2] = ^tag
	binary.LittleEndian.PutUint32(h[4:8], uint32(bufLen))
	return h
}

// Write sends one command message: header, payload, zero padding to the
// 4-byte transfer alignment the standard requires.
func (d *BulkDevice) Write(p []byte) (int, error) {
	hdr := devDepOutHeader(d.nextTag(), len(p))
	msg := make([]byte, 0, bulkHeaderLen+len(p)+3)
	msg = append(msg, hdr[:]...)
	msg = append(msg, p...)
	if pad := len(msg) % 4; pad != 0 {
		msg = append(msg, make([]byte, 4-pad)...)
	}

	if _, err := d.out.Write(msg); err != nil {
		return 0, fmt.Errorf("bulk write: %w", err)
	}
	return len(p), nil
}

// Read requests and collects one response message. The instrument prefixes
// the payload with a 12-byte DEV_DEP_MSG_IN header carrying the transfer
// size; the payload may span several bulk transfers, so reads continue until
// the advertised size has arrived.
func (d *BulkDevice) Read(p []byte) (int, error) {
	hdr := requestDevDepInHeader(d.nextTag(), len(p))
	if _, err := d.out.Write(hdr[:]); err != nil {
		return 0, fmt.Errorf("bulk read request: %w", err)
	}

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return collectDevDepIn(ctx, d.in.ReadContext, p)
}

// collectDevDepIn assembles one DEV_DEP_MSG_IN response: the 12-byte header
// first, then payload transfers until the advertised size has arrived. A
// zero-length transfer mid-message is an error rather than a retry, and an
// advertised size beyond the caller's buffer is rejected before any payload
// is consumed; accepting either would leave device bytes queued and
// desynchronize the next exchange.
func collectDevDepIn(ctx context.Context, read func(context.Context, []byte) (int, error), p []byte) (int, error) {
	// Transfer alignment can round the final packet up.
	buf := make([]byte, bulkHeaderLen+len(p)+3)
	total := 0
	for total < bulkHeaderLen {
		n, err := read(ctx, buf[total:])
		if err != nil {
			return 0, wrapBulkReadErr(err)
		}
		if n == 0 {
			return 0, fmt.Errorf("bulk read: zero-length transfer after %d header bytes", total)
		}
		total += n
	}

	transferSize := int(binary.LittleEndian.Uint32(buf[4:8]))
	if transferSize > len(p) {
		return 0, fmt.Errorf("bulk read: device offered %d bytes for a %d-byte buffer", transferSize, len(p))
	}
	for total < bulkHeaderLen+transferSize {
		n, err := read(ctx, buf[total:])
		if err != nil {
			return 0, wrapBulkReadErr(err)
		}
		if n == 0 {
			return 0, fmt.Errorf("bulk read: zero-length transfer with %d of %d payload bytes", total-bulkHeaderLen, transferSize)
		}
		total += n
	}

	got := total - bulkHeaderLen
	if got > transferSize {
		// Alignment padding past the advertised size is discarded.
		got = transferSize
	}
	copy(p, buf[bulkHeaderLen:bulkHeaderLen+got])
	return got, nil
}

func wrapBulkReadErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("bulk read: %w", err)
}

// Close releases the interface, device, and libusb context.
func (d *BulkDevice) Close() error {
	if d.done != nil {
		d.done()
		d.done = nil
	}
	var err error
	if d.dev != nil {
		err = d.dev.Close()
		d.dev = nil
	}
	if d.ctx != nil {
		if cerr := d.ctx.Close(); err == nil {
			err = cerr
		}
		d.ctx = nil
	}
	return err
}
