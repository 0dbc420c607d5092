package wave

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WriteCSV writes the waveform as one "<time>,<voltage>" line per sample in
// fixed-precision scientific notation. An existing file at path is
// truncated first, never appended to.
func (w Waveform) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create waveform file: %w", err)
	}

	bw := bufio.NewWriter(f)
	for i := range w.Time {
		if _, err := fmt.Fprintf(bw, "%.12e,%.12e\n", w.Time[i], w.Voltage[i]); err != nil {
			f.Close()
			return fmt.Errorf("write waveform file: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush waveform file: %w", err)
	}
	return f.Close()
}

// ReadCSV loads a waveform previously written by WriteCSV.
func ReadCSV(path string) (Waveform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Waveform{}, fmt.Errorf("read waveform file: %w", err)
	}

	var w Waveform
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		t, v, ok := strings.Cut(line, ",")
		if !ok {
			return Waveform{}, fmt.Errorf("waveform file line %d: missing comma", i+1)
		}
		tf, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return Waveform{}, fmt.Errorf("waveform file line %d: bad time %q", i+1, t)
		}
		vf, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Waveform{}, fmt.Errorf("waveform file line %d: bad voltage %q", i+1, v)
		}
		w.Time = append(w.Time, tf)
		w.Voltage = append(w.Voltage, vf)
	}
	return w, nil
}
