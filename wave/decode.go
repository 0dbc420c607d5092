package wave

import (
	"gonum.org/v1/gonum/floats"
)

// Waveform is a decoded capture: index-aligned time and voltage sequences,
// one pair per raw sample.
type Waveform struct {
	Time    []float64
	Voltage []float64
}

// Decode converts a raw byte sample buffer into calibrated (time, voltage)
// pairs using the preamble's linear models.
//
// Voltage: v[i] = (raw[i] - YOrigin - YReference) * YIncrement.
//
// Time: samples are evenly spaced by XIncrement starting at
// XOrigin + XReference, i.e. t[i] = XOrigin + XReference + i*XIncrement.
// The record spans len(raw)*XIncrement of elapsed time.
func Decode(raw []byte, pre Preamble) Waveform {
	n := len(raw)
	w := Waveform{
		Time:    make([]float64, n),
		Voltage: make([]float64, n),
	}
	if n == 0 {
		return w
	}

	for i, b := range raw {
		w.Voltage[i] = (float64(b) - pre.YOrigin - pre.YReference) * pre.YIncrement
	}

	t0 := pre.XOrigin + pre.XReference
	if n == 1 {
		w.Time[0] = t0
		return w
	}
	floats.Span(w.Time, t0, t0+float64(n-1)*pre.XIncrement)
	return w
}
