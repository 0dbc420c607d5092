package scope

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jtambasco/rigoltmc/usbtmc"
	"github.com/jtambasco/rigoltmc/wave"
)

// testProfile keeps transfers tiny so scripts stay readable.
func testProfile() Profile {
	return Profile{
		Name:         "test",
		Channels:     2,
		MaxBlockSize: 4,
		Modes:        []WaveMode{WaveNormal, WaveRaw},
		Settle:       time.Millisecond,
		Screenshot: ScreenshotPolicy{
			Formats:          map[string]time.Duration{"png": 0},
			QueryTakesFormat: true,
		},
	}
}

// fetchPrologue is the fixed command sequence every waveform fetch opens
// with.
func fetchPrologue(ch int, mode WaveMode, preamble string) []exchange {
	return []exchange{
		{cmd: ":stop"},
		{cmd: fmt.Sprintf(":wav:sour chan%d", ch)},
		{cmd: fmt.Sprintf(":wav:mode %s", mode)},
		{cmd: ":wav:form byte"},
		{cmd: ":wav:pre?", reply: []byte(preamble + "\n")},
	}
}

func TestDataChunked(t *testing.T) {
	// 10 points with a 4-sample block limit: blocks [1,4], [5,8], [9,10].
	script := fetchPrologue(1, WaveRaw, "0,2,10,1,1e-6,0,0,2e-3,0,127")
	samples := []byte{127, 128, 129, 130, 131, 132, 133, 134, 135, 136}
	script = append(script,
		exchange{cmd: ":wav:star 1"},
		exchange{cmd: ":wav:stop 4"},
		exchange{cmd: ":wav:data?", reply: tmcBlock(samples[0:4])},
		exchange{cmd: ":wav:star 5"},
		exchange{cmd: ":wav:stop 8"},
		exchange{cmd: ":wav:data?", reply: tmcBlock(samples[4:8])},
		exchange{cmd: ":wav:star 9"},
		exchange{cmd: ":wav:stop 10"},
		exchange{cmd: ":wav:data?", reply: tmcBlock(samples[8:10])},
	)

	o, tp := newTestScope(t, testProfile(), script)
	ch, err := o.Channel(1)
	if err != nil {
		t.Fatalf("Channel failed: %v", err)
	}

	w, err := ch.Data(WaveRaw)
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}
	tp.done()

	if len(w.Voltage) != 10 {
		t.Fatalf("got %d samples, want 10", len(w.Voltage))
	}
	for i, raw := range samples {
		want := (float64(raw) - 127) * 2e-3
		if math.Abs(w.Voltage[i]-want) > 1e-12 {
			t.Errorf("voltage[%d]: got %g, want %g", i, w.Voltage[i], want)
		}
		wantT := float64(i) * 1e-6
		if math.Abs(w.Time[i]-wantT) > 1e-15 {
			t.Errorf("time[%d]: got %g, want %g", i, w.Time[i], wantT)
		}
	}
}

func TestDataExactMultipleOfBlockSize(t *testing.T) {
	// 8 points, 4-sample blocks: exactly two full blocks, no empty tail
	// read.
	script := fetchPrologue(2, WaveRaw, "0,2,8,1,1e-6,0,0,2e-3,0,127")
	script = append(script,
		exchange{cmd: ":wav:star 1"},
		exchange{cmd: ":wav:stop 4"},
		exchange{cmd: ":wav:data?", reply: tmcBlock([]byte{1, 2, 3, 4})},
		exchange{cmd: ":wav:star 5"},
		exchange{cmd: ":wav:stop 8"},
		exchange{cmd: ":wav:data?", reply: tmcBlock([]byte{5, 6, 7, 8})},
	)

	o, tp := newTestScope(t, testProfile(), script)
	ch, _ := o.Channel(2)

	w, err := ch.Data(WaveRaw)
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}
	if len(w.Voltage) != 8 {
		t.Fatalf("got %d samples, want 8", len(w.Voltage))
	}
	tp.done()
}

func TestDataZeroPoints(t *testing.T) {
	// A zero-point record produces an empty waveform with no data reads.
	script := fetchPrologue(1, WaveRaw, "0,2,0,1,1e-6,0,0,2e-3,0,127")

	o, tp := newTestScope(t, testProfile(), script)
	ch, _ := o.Channel(1)

	w, err := ch.Data(WaveRaw)
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}
	if len(w.Voltage) != 0 || len(w.Time) != 0 {
		t.Fatalf("expected empty waveform, got %d samples", len(w.Voltage))
	}
	tp.done()
}

func TestDataPreviewMode(t *testing.T) {
	// Families with a preview length read normal mode in one fixed-range
	// transfer instead of chunking.
	p := testProfile()
	p.NormPoints = 5

	script := fetchPrologue(1, WaveNormal, "0,0,5,1,1e-6,0,0,2e-3,0,127")
	script = append(script,
		exchange{cmd: ":wav:star 1"},
		exchange{cmd: ":wav:stop 5"},
		exchange{cmd: ":wav:data?", reply: tmcBlock([]byte{10, 20, 30, 40, 50})},
	)

	o, tp := newTestScope(t, p, script)
	ch, _ := o.Channel(1)

	w, err := ch.Data(WaveNormal)
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}
	if len(w.Voltage) != 5 {
		t.Fatalf("got %d samples, want 5", len(w.Voltage))
	}
	tp.done()
}

func TestDataRejectsUnsupportedMode(t *testing.T) {
	o, tp := newTestScope(t, testProfile(), nil)
	ch, _ := o.Channel(1)

	var verr *ValidationError
	if _, err := ch.Data(WaveMax); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	tp.done()
}

func TestDataMalformedPreambleAborts(t *testing.T) {
	script := fetchPrologue(1, WaveRaw, "0,2,10,1,1e-6,0,0,2e-3,0")

	o, tp := newTestScope(t, testProfile(), script)
	ch, _ := o.Channel(1)

	var perr *wave.PreambleError
	if _, err := ch.Data(WaveRaw); !errors.As(err, &perr) {
		t.Fatalf("expected PreambleError, got %v", err)
	}
	tp.done()
}

func TestDataUnderrunAborts(t *testing.T) {
	script := fetchPrologue(1, WaveRaw, "0,2,4,1,1e-6,0,0,2e-3,0,127")
	script = append(script,
		exchange{cmd: ":wav:star 1"},
		exchange{cmd: ":wav:stop 4"},
		// Three payload bytes where four were promised.
		exchange{cmd: ":wav:data?", reply: tmcBlock([]byte{1, 2, 3})},
	)

	o, tp := newTestScope(t, testProfile(), script)
	ch, _ := o.Channel(1)

	_, err := ch.Data(WaveRaw)
	var uerr *usbtmc.UnderrunError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnderrunError, got %v", err)
	}
	if uerr.Want != 4 || uerr.Got != 3 {
		t.Errorf("underrun detail: %+v", uerr)
	}
	tp.done()
}

func TestDataTerminatorNotCountedAsSample(t *testing.T) {
	// Three samples plus a newline terminator where four samples were
	// promised: the header advertises 3, so the terminator byte must not
	// be taken as the fourth sample.
	script := fetchPrologue(1, WaveRaw, "0,2,4,1,1e-6,0,0,2e-3,0,127")
	script = append(script,
		exchange{cmd: ":wav:star 1"},
		exchange{cmd: ":wav:stop 4"},
		exchange{cmd: ":wav:data?", reply: append(tmcBlock([]byte{1, 2, 3}), '\n')},
	)

	o, tp := newTestScope(t, testProfile(), script)
	ch, _ := o.Channel(1)

	_, err := ch.Data(WaveRaw)
	var uerr *usbtmc.UnderrunError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnderrunError, got %v", err)
	}
	if uerr.Want != 4 || uerr.Got != 3 {
		t.Errorf("underrun detail: %+v", uerr)
	}
	tp.done()
}

func TestDataMalformedBlockLengthAborts(t *testing.T) {
	script := fetchPrologue(1, WaveRaw, "0,2,4,1,1e-6,0,0,2e-3,0,127")
	script = append(script,
		exchange{cmd: ":wav:star 1"},
		exchange{cmd: ":wav:stop 4"},
		exchange{cmd: ":wav:data?", reply: append([]byte("#9xxxxxxxxx"), 1, 2, 3, 4)},
	)

	o, tp := newTestScope(t, testProfile(), script)
	ch, _ := o.Channel(1)

	if _, err := ch.Data(WaveRaw); err == nil {
		t.Fatal("expected error for malformed block length")
	}
	tp.done()
}

func TestDataMissingBlockHeaderAborts(t *testing.T) {
	script := fetchPrologue(1, WaveRaw, "0,2,4,1,1e-6,0,0,2e-3,0,127")
	script = append(script,
		exchange{cmd: ":wav:star 1"},
		exchange{cmd: ":wav:stop 4"},
		exchange{cmd: ":wav:data?", reply: []byte{1, 2, 3, 4}},
	)

	o, tp := newTestScope(t, testProfile(), script)
	ch, _ := o.Channel(1)

	if _, err := ch.Data(WaveRaw); err == nil {
		t.Fatal("expected error for missing block header")
	}
	tp.done()
}

func TestDataToCSV(t *testing.T) {
	script := fetchPrologue(1, WaveRaw, "0,2,3,1,1e-6,0,0,2e-3,0,127")
	script = append(script,
		exchange{cmd: ":wav:star 1"},
		exchange{cmd: ":wav:stop 3"},
		exchange{cmd: ":wav:data?", reply: tmcBlock([]byte{100, 127, 154})},
	)

	o, tp := newTestScope(t, testProfile(), script)
	ch, _ := o.Channel(1)

	path := filepath.Join(t.TempDir(), "ch1.csv")
	w, err := ch.DataToCSV(WaveRaw, path)
	if err != nil {
		t.Fatalf("DataToCSV failed: %v", err)
	}
	tp.done()

	got, err := wave.ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(got.Voltage) != len(w.Voltage) {
		t.Fatalf("file has %d samples, want %d", len(got.Voltage), len(w.Voltage))
	}
}

func TestScreenshot(t *testing.T) {
	img := bytes.Repeat([]byte{0xAB}, 64)
	framed := append(tmcBlock(img), 0, 0, 0, '\n')

	o, tp := newTestScope(t, testProfile(), []exchange{
		{cmd: ":disp:data? on,off,png", reply: framed},
	})

	path := filepath.Join(t.TempDir(), "screen.png")
	if err := o.Screenshot(path, "png"); err != nil {
		t.Fatalf("Screenshot failed: %v", err)
	}
	tp.done()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read screenshot: %v", err)
	}
	if !bytes.Equal(got, img) {
		t.Fatalf("screenshot framing not stripped: %d bytes, want %d", len(got), len(img))
	}
}

func TestScreenshotForcedExtension(t *testing.T) {
	p := testProfile()
	p.Screenshot = ScreenshotPolicy{
		Formats:  map[string]time.Duration{"bmp": 0},
		ForceExt: ".bmp",
	}

	img := []byte("not really a bitmap")
	framed := append(tmcBlock(img), 0, 0, 0, '\n')

	o, tp := newTestScope(t, p, []exchange{
		{cmd: ":disp:data?", reply: framed},
	})

	dir := t.TempDir()
	if err := o.Screenshot(filepath.Join(dir, "screen.png"), "bmp"); err != nil {
		t.Fatalf("Screenshot failed: %v", err)
	}
	tp.done()

	if _, err := os.Stat(filepath.Join(dir, "screen.bmp")); err != nil {
		t.Fatalf("forced extension not applied: %v", err)
	}
}
