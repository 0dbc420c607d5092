package scope

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jtambasco/rigoltmc/usbtmc"
	"github.com/jtambasco/rigoltmc/wave"
)

const (
	// blockHeaderLen is the TMC binary-block framing each data response
	// carries: '#', one ASCII digit giving the length-of-length, and nine
	// ASCII digits giving the payload byte count.
	blockHeaderLen = 11

	// screenshotTrailerLen is the framing after a display-dump payload.
	screenshotTrailerLen = 4

	// blockReadMargin pads each raw read past the expected payload so the
	// framing and terminator fit.
	blockReadMargin = 10000

	// screenshotMaxLen bounds a display-dump read. Large enough for the
	// biggest uncompressed format any supported family produces.
	screenshotMaxLen = 3850780
)

// fetchWaveform reads out one channel's record: it freezes acquisition,
// routes the channel to the waveform system, decodes the preamble to learn
// the record geometry, transfers the raw bytes (chunked when the record
// exceeds the family's block limit), and converts them to calibrated pairs.
func (o *Oscilloscope) fetchWaveform(ch int, mode WaveMode) (wave.Waveform, error) {
	if !o.profile.SupportsMode(mode) {
		return wave.Waveform{}, invalid("waveform mode", mode)
	}

	if err := o.Stop(); err != nil {
		return wave.Waveform{}, err
	}
	if err := o.conn.Writef(":wav:sour chan%d", ch); err != nil {
		return wave.Waveform{}, err
	}
	if err := o.conn.Writef(":wav:mode %s", mode); err != nil {
		return wave.Waveform{}, err
	}
	if err := o.conn.Write(":wav:form byte"); err != nil {
		return wave.Waveform{}, err
	}

	reply, err := o.conn.Ask(":wav:pre?")
	if err != nil {
		return wave.Waveform{}, err
	}
	pre, err := wave.ParsePreamble(reply)
	if err != nil {
		return wave.Waveform{}, err
	}

	var raw []byte
	if mode == WaveNormal && o.profile.NormPoints > 0 {
		raw, err = o.fetchPreview()
	} else {
		raw, err = o.fetchBlocks(pre.Points)
	}
	if err != nil {
		return wave.Waveform{}, err
	}

	return wave.Decode(raw, pre), nil
}

// fetchPreview reads the fixed-length on-screen record in one transfer.
// Some families expose only this bounded preview in normal mode rather than
// the full acquisition memory.
func (o *Oscilloscope) fetchPreview() ([]byte, error) {
	n := o.profile.NormPoints
	if err := o.conn.Write(":wav:star 1"); err != nil {
		return nil, err
	}
	if err := o.conn.Writef(":wav:stop %d", n); err != nil {
		return nil, err
	}
	return o.readBlock(n)
}

// fetchBlocks plans and runs the chunked transfer: per block, a 1-based
// inclusive range select followed by one raw data read, the framing
// stripped, the payloads concatenated in block order.
func (o *Oscilloscope) fetchBlocks(points int) ([]byte, error) {
	blocks, err := wave.Plan(points, o.profile.MaxBlockSize)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, points)
	for i, b := range blocks {
		if err := o.conn.Writef(":wav:star %d", b.Start); err != nil {
			return nil, err
		}
		if err := o.conn.Writef(":wav:stop %d", b.Stop); err != nil {
			return nil, err
		}
		payload, err := o.readBlock(b.Len())
		if err != nil {
			return nil, fmt.Errorf("block %d of %d: %w", i+1, len(blocks), err)
		}
		buf = append(buf, payload...)

		o.log.WithFields(logrus.Fields{
			"block":   i + 1,
			"blocks":  len(blocks),
			"samples": len(buf),
			"points":  points,
		}).Debug("waveform block transferred")
	}
	return buf, nil
}

// readBlock issues one ":wav:data?" read sized for n samples plus framing
// and returns exactly n payload bytes. The payload is bounded by the length
// the block header advertises, so a trailing terminator is never counted as
// a sample. A payload shorter than n is a transport underrun and aborts the
// fetch.
func (o *Oscilloscope) readBlock(n int) ([]byte, error) {
	raw, err := o.conn.AskRaw(":wav:data?", n+blockHeaderLen+blockReadMargin)
	if err != nil {
		return nil, err
	}
	if len(raw) < blockHeaderLen || raw[0] != '#' || raw[1] != '9' {
		return nil, fmt.Errorf("waveform data response lacks TMC block header (%d bytes)", len(raw))
	}
	advertised, err := strconv.Atoi(string(raw[2:blockHeaderLen]))
	if err != nil {
		return nil, fmt.Errorf("waveform data response has malformed TMC block header %q", raw[:blockHeaderLen])
	}

	payload := raw[blockHeaderLen:]
	if len(payload) > advertised {
		// Terminator and alignment bytes trail the advertised payload.
		payload = payload[:advertised]
	}
	if len(payload) < n {
		return nil, &usbtmc.UnderrunError{Want: n, Got: len(payload)}
	}
	return payload[:n], nil
}

// Screenshot captures the display into the file at path. The format must be
// one the family supports; families that only produce one format override
// the path's extension.
func (o *Oscilloscope) Screenshot(path, format string) error {
	policy := o.profile.Screenshot

	settle, ok := policy.Formats[format]
	if !ok {
		return invalid("screenshot format", format)
	}

	if policy.ForceExt != "" {
		if dot := strings.LastIndexByte(path, '.'); dot >= 0 {
			path = path[:dot]
		}
		path += policy.ForceExt
	}

	if policy.QueryTakesFormat {
		if err := o.conn.Writef(":disp:data? on,off,%s", format); err != nil {
			return err
		}
	} else {
		if err := o.conn.Write(":disp:data?"); err != nil {
			return err
		}
	}
	// The instrument renders the image before answering; give it the
	// format-specific settle time on top of the command delay.
	o.conn.sleep(settle)

	raw, err := o.conn.ReadRaw(screenshotMaxLen)
	if err != nil {
		return err
	}
	if len(raw) < blockHeaderLen+screenshotTrailerLen || raw[0] != '#' {
		return fmt.Errorf("display dump lacks TMC block framing (%d bytes)", len(raw))
	}
	img := raw[blockHeaderLen : len(raw)-screenshotTrailerLen]

	if err := os.WriteFile(path, img, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}

	o.log.WithFields(logrus.Fields{
		"path":  path,
		"bytes": len(img),
	}).Debug("screenshot captured")
	return nil
}
