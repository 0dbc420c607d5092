package wave

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
)

func TestDecodeConstantBuffer(t *testing.T) {
	pre := Preamble{
		Points:     1400,
		XIncrement: 1e-8,
		YIncrement: 2e-3,
		YOrigin:    10,
		YReference: 117,
	}
	raw := bytes.Repeat([]byte{200}, 1400)

	w := Decode(raw, pre)

	if len(w.Time) != 1400 || len(w.Voltage) != 1400 {
		t.Fatalf("decoded lengths: %d, %d", len(w.Time), len(w.Voltage))
	}
	want := (200.0 - 10 - 117) * 2e-3
	for i, v := range w.Voltage {
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("voltage[%d] = %g, want %g", i, v, want)
		}
	}
}

// The documented axis/calibration scenario: mid-scale bytes decode to zero
// volts and the time axis steps uniformly by the x increment from the
// origin.
func TestDecodeReferenceScenario(t *testing.T) {
	pre, err := ParsePreamble("2,1,1400,1,1e-8,0,0,2e-3,0,127")
	if err != nil {
		t.Fatalf("ParsePreamble failed: %v", err)
	}

	raw := bytes.Repeat([]byte{127}, 1400)
	w := Decode(raw, pre)

	for i, v := range w.Voltage {
		if v != 0 {
			t.Fatalf("voltage[%d] = %g, want 0", i, v)
		}
	}

	span := float64(pre.Points) * pre.XIncrement
	for i, tv := range w.Time {
		want := float64(i) * 1e-8
		if math.Abs(tv-want) > 1e-15 {
			t.Fatalf("time[%d] = %g, want %g", i, tv, want)
		}
		if tv < 0 || tv >= span {
			t.Fatalf("time[%d] = %g outside [0, %g)", i, tv, span)
		}
	}
}

func TestDecodeEmptyAndSingle(t *testing.T) {
	pre := Preamble{XIncrement: 1e-6, XOrigin: 2e-3, YIncrement: 1}

	w := Decode(nil, pre)
	if len(w.Time) != 0 || len(w.Voltage) != 0 {
		t.Fatalf("empty buffer must decode to empty waveform, got %d samples", len(w.Time))
	}

	w = Decode([]byte{5}, pre)
	if len(w.Time) != 1 {
		t.Fatalf("got %d samples, want 1", len(w.Time))
	}
	if w.Time[0] != 2e-3 {
		t.Errorf("single-sample time = %g, want x origin", w.Time[0])
	}
}

func TestCSVRoundTrip(t *testing.T) {
	pre := Preamble{
		XIncrement: 5e-10,
		XOrigin:    -3e-3,
		YIncrement: 4e-2,
		YOrigin:    12,
		YReference: 127,
	}
	raw := []byte{0, 63, 127, 191, 255}
	w := Decode(raw, pre)

	path := filepath.Join(t.TempDir(), "capture.csv")
	if err := w.WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(got.Time) != len(w.Time) {
		t.Fatalf("got %d samples, want %d", len(got.Time), len(w.Time))
	}
	for i := range w.Time {
		if math.Abs(got.Time[i]-w.Time[i]) > 1e-12*math.Abs(w.Time[i])+1e-18 {
			t.Errorf("time[%d]: got %g, want %g", i, got.Time[i], w.Time[i])
		}
		if math.Abs(got.Voltage[i]-w.Voltage[i]) > 1e-12*math.Abs(w.Voltage[i])+1e-18 {
			t.Errorf("voltage[%d]: got %g, want %g", i, got.Voltage[i], w.Voltage[i])
		}
	}
}

func TestWriteCSVTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.csv")

	long := Decode(bytes.Repeat([]byte{1}, 100), Preamble{XIncrement: 1, YIncrement: 1})
	if err := long.WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	short := Decode([]byte{1, 2}, Preamble{XIncrement: 1, YIncrement: 1})
	if err := short.WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(got.Time) != 2 {
		t.Fatalf("file not truncated: got %d samples, want 2", len(got.Time))
	}
}
