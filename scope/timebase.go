package scope

import (
	"fmt"
	"strconv"
	"strings"
)

// Timebase controls the horizontal axis. Timebase-scoped commands carry the
// ":tim" prefix.
type Timebase struct {
	osc *Oscilloscope
}

func (t *Timebase) write(cmd string) error {
	return t.osc.conn.Write(":tim" + cmd)
}

func (t *Timebase) ask(cmd string) (string, error) {
	return t.osc.conn.Ask(":tim" + cmd)
}

func (t *Timebase) askFloat(cmd string) (float64, error) {
	reply, err := t.ask(cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, fmt.Errorf("parse timebase reply %q: %w", reply, err)
	}
	return v, nil
}

// Scale reports the main timebase scale in seconds per division.
func (t *Timebase) Scale() (float64, error) {
	return t.askFloat(":scal?")
}

// SetScale sets the main timebase scale. Legal range: 50 ns to 50 s per
// division.
func (t *Timebase) SetScale(scale float64) error {
	if scale < 50e-9 || scale > 50 {
		return invalid("timebase scale", scale)
	}
	return t.write(fmt.Sprintf(":scal %.4e", scale))
}

var timebaseModes = []string{"main", "xy", "roll"}

// Mode reports the timebase mode.
func (t *Timebase) Mode() (string, error) {
	return t.ask(":mode?")
}

// SetMode selects the timebase mode. Legal values: main, xy, roll.
func (t *Timebase) SetMode(mode string) error {
	lower := ""
	for _, legal := range timebaseModes {
		if strings.EqualFold(mode, legal) {
			lower = legal
		}
	}
	if lower == "" {
		return invalid("timebase mode", mode)
	}
	return t.write(":mode " + lower)
}

// Offset reports the horizontal offset in seconds.
func (t *Timebase) Offset() (float64, error) {
	return t.askFloat(":offs?")
}

// SetOffset sets the horizontal offset in seconds.
func (t *Timebase) SetOffset(offset float64) error {
	return t.write(fmt.Sprintf(":offs %.4e", offset))
}
