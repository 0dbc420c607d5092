package scope

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jtambasco/rigoltmc/wave"
)

// Channel addresses one analog input channel. Channel-scoped commands carry
// the ":chanN" prefix.
type Channel struct {
	osc *Oscilloscope
	n   int
}

// Number returns the 1-based channel index.
func (c *Channel) Number() int {
	return c.n
}

func (c *Channel) write(cmd string) error {
	return c.osc.conn.Writef(":chan%d%s", c.n, cmd)
}

func (c *Channel) ask(cmd string) (string, error) {
	return c.osc.conn.Askf(":chan%d%s", c.n, cmd)
}

func (c *Channel) askFloat(cmd string) (float64, error) {
	reply, err := c.ask(cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, fmt.Errorf("parse channel %d reply %q: %w", c.n, reply, err)
	}
	return v, nil
}

var couplings = []string{"AC", "DC", "GND"}

// Coupling reports the input coupling (AC, DC, or GND).
func (c *Channel) Coupling() (string, error) {
	return c.ask(":coup?")
}

// SetCoupling selects the input coupling. Legal values: AC, DC, GND.
func (c *Channel) SetCoupling(coupling string) error {
	upper := ""
	for _, legal := range couplings {
		if strings.EqualFold(coupling, legal) {
			upper = legal
		}
	}
	if upper == "" {
		return invalid("coupling", coupling)
	}
	return c.write(":coup " + upper)
}

// Enable turns the channel's display on.
func (c *Channel) Enable() error {
	return c.write(":disp 1")
}

// Disable turns the channel's display off.
func (c *Channel) Disable() error {
	return c.write(":disp 0")
}

// Enabled reports whether the channel's display is on.
func (c *Channel) Enabled() (bool, error) {
	reply, err := c.ask(":disp?")
	if err != nil {
		return false, err
	}
	v, err := strconv.Atoi(reply)
	if err != nil {
		return false, fmt.Errorf("parse channel %d display state %q: %w", c.n, reply, err)
	}
	return v != 0, nil
}

// Offset reports the vertical offset in volts.
func (c *Channel) Offset() (float64, error) {
	return c.askFloat(":off?")
}

// SetOffset sets the vertical offset. Legal range: -1000 V to 1000 V.
func (c *Channel) SetOffset(offset float64) error {
	if offset < -1000 || offset > 1000 {
		return invalid("offset", offset)
	}
	return c.write(fmt.Sprintf(":off %.4e", offset))
}

// Range reports the full-scale vertical range in volts.
func (c *Channel) Range() (float64, error) {
	return c.askFloat(":rang?")
}

// SetRange sets the full-scale vertical range. Legal range: 8 mV to 800 V.
func (c *Channel) SetRange(rng float64) error {
	if rng < 8e-3 || rng > 800 {
		return invalid("range", rng)
	}
	return c.write(fmt.Sprintf(":rang %.4e", rng))
}

// SetScale sets the vertical scale per division. Legal range: 1 mV to 100 V.
func (c *Channel) SetScale(scale float64) error {
	if scale < 1e-3 || scale > 100 {
		return invalid("scale", scale)
	}
	return c.write(fmt.Sprintf(":scal %.4e", scale))
}

var probeRatios = []float64{
	0.01, 0.02, 0.05, 0.1, 0.2, 0.5,
	1, 2, 5, 10, 20, 50, 100, 200, 500, 1000,
}

// ProbeRatio reports the probe attenuation ratio.
func (c *Channel) ProbeRatio() (float64, error) {
	return c.askFloat(":prob?")
}

// SetProbeRatio sets the probe attenuation ratio to one of the instrument's
// fixed legal values.
func (c *Channel) SetProbeRatio(ratio float64) error {
	legal := false
	for _, r := range probeRatios {
		if ratio == r {
			legal = true
		}
	}
	if !legal {
		return invalid("probe ratio", ratio)
	}
	return c.write(fmt.Sprintf(":prob %g", ratio))
}

var units = []string{"volt", "watt", "amp", "unkn"}

// Units reports the channel's display unit.
func (c *Channel) Units() (string, error) {
	return c.ask(":unit?")
}

// SetUnits sets the channel's display unit. Legal values: volt, watt, amp,
// unkn.
func (c *Channel) SetUnits(unit string) error {
	lower := ""
	for _, legal := range units {
		if strings.EqualFold(unit, legal) {
			lower = legal
		}
	}
	if lower == "" {
		return invalid("units", unit)
	}
	return c.write(":unit " + lower)
}

// Select makes this channel the measurement source and returns the
// instrument's notion of the selected source.
func (c *Channel) Select() (string, error) {
	if err := c.osc.conn.Writef(":MEAS:SOUR CHAN%d", c.n); err != nil {
		return "", err
	}
	return c.osc.SelectedChannel()
}

// MeasureVRMS queries the RMS voltage measurement for this channel.
func (c *Channel) MeasureVRMS() (float64, error) {
	reply, err := c.osc.conn.Askf(":MEAS:ITEM? VRMS,CHAN%d", c.n)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, fmt.Errorf("parse VRMS %q: %w", reply, err)
	}
	return v, nil
}

// Data fetches this channel's waveform in the given readout mode and
// decodes it to calibrated (time, voltage) pairs.
func (c *Channel) Data(mode WaveMode) (wave.Waveform, error) {
	return c.osc.fetchWaveform(c.n, mode)
}

// DataToCSV fetches the waveform and additionally writes it to path as
// "<time>,<voltage>" lines, replacing any existing file.
func (c *Channel) DataToCSV(mode WaveMode, path string) (wave.Waveform, error) {
	w, err := c.Data(mode)
	if err != nil {
		return wave.Waveform{}, err
	}
	if err := w.WriteCSV(path); err != nil {
		return wave.Waveform{}, err
	}
	return w, nil
}
