package wave

import (
	"errors"
	"testing"
)

func TestParsePreamble(t *testing.T) {
	pre, err := ParsePreamble("0,2,12000000,1,5e-10,-3e-3,0,4e-2,122,127\n")
	if err != nil {
		t.Fatalf("ParsePreamble failed: %v", err)
	}

	if pre.Format != FormatByte {
		t.Errorf("format: got %d", pre.Format)
	}
	if pre.Type != TypeRaw {
		t.Errorf("type: got %d", pre.Type)
	}
	if pre.Points != 12000000 {
		t.Errorf("points: got %d", pre.Points)
	}
	if pre.Count != 1 {
		t.Errorf("count: got %d", pre.Count)
	}
	if pre.XIncrement != 5e-10 {
		t.Errorf("x increment: got %g", pre.XIncrement)
	}
	if pre.XOrigin != -3e-3 {
		t.Errorf("x origin: got %g", pre.XOrigin)
	}
	if pre.YIncrement != 4e-2 {
		t.Errorf("y increment: got %g", pre.YIncrement)
	}
	if pre.YOrigin != 122 {
		t.Errorf("y origin: got %g", pre.YOrigin)
	}
	if pre.YReference != 127 {
		t.Errorf("y reference: got %g", pre.YReference)
	}
}

func TestParsePreambleRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"nine fields", "0,2,1400,1,1e-8,0,0,2e-3,0"},
		{"eleven fields", "0,2,1400,1,1e-8,0,0,2e-3,0,127,9"},
		{"non-integer points", "0,2,x,1,1e-8,0,0,2e-3,0,127"},
		{"non-numeric y origin", "0,2,1400,1,1e-8,0,0,2e-3,?,127"},
		{"negative points", "0,2,-5,1,1e-8,0,0,2e-3,0,127"},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePreamble(tc.in)
			if err == nil {
				t.Fatalf("expected error for %q", tc.in)
			}
			var perr *PreambleError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *PreambleError, got %T: %v", err, err)
			}
		})
	}
}

func TestParsePreambleTrimsFieldSpace(t *testing.T) {
	pre, err := ParsePreamble(" 0, 0, 1400, 1, 1e-8, 0, 0, 2e-3, 0, 127")
	if err != nil {
		t.Fatalf("ParsePreamble failed: %v", err)
	}
	if pre.Points != 1400 || pre.YReference != 127 {
		t.Errorf("unexpected decode: %+v", pre)
	}
}
