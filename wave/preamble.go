// Package wave decodes Rigol waveform transfers: the text preamble that
// describes geometry and calibration, the block plan that partitions a long
// record into transferable chunks, and the conversion of raw byte samples
// into calibrated (time, voltage) pairs.
package wave

import (
	"fmt"
	"strconv"
	"strings"
)

// Sample encodings reported in the preamble's format field.
const (
	FormatByte  = 0
	FormatWord  = 1
	FormatASCII = 2
)

// Acquisition kinds reported in the preamble's type field.
const (
	TypeNormal = 0
	TypeMax    = 1
	TypeRaw    = 2
)

// Preamble is the decoded ":wav:pre?" response. It is created fresh for each
// waveform fetch and describes the data about to be transferred.
type Preamble struct {
	// Format is the sample encoding (FormatByte, FormatWord, FormatASCII).
	Format int
	// Type is the acquisition kind the instrument captured with.
	Type int
	// Points is the total number of samples available for the selected
	// source and mode.
	Points int
	// Count is the average count (1 unless average acquisition is active).
	Count int

	// Time axis: t = index*XIncrement + XOrigin + XReference.
	XIncrement float64
	XOrigin    float64
	XReference float64

	// Voltage: v = (raw - YOrigin - YReference) * YIncrement.
	YIncrement float64
	YOrigin    float64
	YReference float64
}

// PreambleError reports a preamble response that could not be decoded. The
// fetch is aborted; no partial buffer is ever returned on a bad preamble.
type PreambleError struct {
	Raw    string
	Reason string
}

func (e *PreambleError) Error() string {
	return fmt.Sprintf("wave: malformed preamble %q: %s", e.Raw, e.Reason)
}

const preambleFields = 10

// ParsePreamble decodes the comma-separated preamble line. Parsing is
// strictly positional: fields 0-3 are integers, fields 4-9 floats. Anything
// else is a *PreambleError.
func ParsePreamble(s string) (Preamble, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields) != preambleFields {
		return Preamble{}, &PreambleError{
			Raw:    s,
			Reason: fmt.Sprintf("expected %d fields, got %d", preambleFields, len(fields)),
		}
	}

	ints := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return Preamble{}, &PreambleError{
				Raw:    s,
				Reason: fmt.Sprintf("field %d %q is not an integer", i, fields[i]),
			}
		}
		ints[i] = v
	}

	floats := make([]float64, 6)
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[4+i]), 64)
		if err != nil {
			return Preamble{}, &PreambleError{
				Raw:    s,
				Reason: fmt.Sprintf("field %d %q is not a number", 4+i, fields[4+i]),
			}
		}
		floats[i] = v
	}

	if ints[2] < 0 {
		return Preamble{}, &PreambleError{
			Raw:    s,
			Reason: fmt.Sprintf("negative point count %d", ints[2]),
		}
	}

	return Preamble{
		Format:     ints[0],
		Type:       ints[1],
		Points:     ints[2],
		Count:      ints[3],
		XIncrement: floats[0],
		XOrigin:    floats[1],
		XReference: floats[2],
		YIncrement: floats[3],
		YOrigin:    floats[4],
		YReference: floats[5],
	}, nil
}
