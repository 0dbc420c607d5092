package scope

import (
	"fmt"
	"strconv"
)

// Trigger controls the edge trigger.
type Trigger struct {
	osc *Oscilloscope
}

// Level reports the edge trigger level in volts.
func (t *Trigger) Level() (float64, error) {
	reply, err := t.osc.conn.Ask(":trig:edg:lev?")
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, fmt.Errorf("parse trigger level %q: %w", reply, err)
	}
	return v, nil
}

// SetLevel sets the edge trigger level in volts.
func (t *Trigger) SetLevel(level float64) error {
	return t.osc.conn.Writef(":trig:edg:lev %.3e", level)
}

// Holdoff reports the trigger holdoff in seconds.
func (t *Trigger) Holdoff() (float64, error) {
	reply, err := t.osc.conn.Ask(":trig:hold?")
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, fmt.Errorf("parse trigger holdoff %q: %w", reply, err)
	}
	return v, nil
}

// SetHoldoff sets the trigger holdoff in seconds.
func (t *Trigger) SetHoldoff(holdoff float64) error {
	return t.osc.conn.Writef(":trig:hold %.3e", holdoff)
}

// Force generates one trigger event immediately.
func (t *Trigger) Force() error {
	return t.osc.ForceTrigger()
}

// Single arms a single-shot acquisition.
func (t *Trigger) Single() error {
	return t.osc.Single()
}
