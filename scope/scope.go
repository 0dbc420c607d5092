package scope

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jtambasco/rigoltmc/usbtmc"
)

// AcquireType is the instrument's sampling strategy.
type AcquireType string

const (
	AcquireNormal         AcquireType = "normal"
	AcquireAverages       AcquireType = "averages"
	AcquirePeak           AcquireType = "peak"
	AcquireHighResolution AcquireType = "high_resolution"
)

// acquireTypeCommands maps acquire types to their SCPI arguments, and
// acquireTypeReplies maps the instrument's short replies back.
var acquireTypeCommands = map[AcquireType]string{
	AcquireNormal:         "norm",
	AcquireAverages:       "aver",
	AcquirePeak:           "peak",
	AcquireHighResolution: "hres",
}

var acquireTypeReplies = map[string]AcquireType{
	"NORM": AcquireNormal,
	"AVER": AcquireAverages,
	"PEAK": AcquirePeak,
	"HRES": AcquireHighResolution,
}

// Oscilloscope is one instrument. It owns its transport exclusively for its
// lifetime and must not be shared across goroutines.
type Oscilloscope struct {
	conn    *Conn
	profile Profile
	log     *logrus.Logger

	channels []*Channel
	Trigger  *Trigger
	Timebase *Timebase
}

// New wraps an already-open transport. Most callers use Open instead.
func New(tp usbtmc.Transport, profile Profile) *Oscilloscope {
	log := logrus.New()
	log.SetOutput(io.Discard)

	o := &Oscilloscope{
		conn:    NewConn(tp, profile.Settle),
		profile: profile,
		log:     log,
	}
	for n := 1; n <= profile.Channels; n++ {
		o.channels = append(o.channels, &Channel{osc: o, n: n})
	}
	o.Trigger = &Trigger{osc: o}
	o.Timebase = &Timebase{osc: o}
	return o
}

// Open enumerates attached USBTMC devices, picks the first one matching the
// profile's vendor/product pair, and opens its kernel device node.
func Open(profile Profile) (*Oscilloscope, error) {
	info, err := usbtmc.Find(usbtmc.DefaultSysfsRoots(), profile.VendorID, profile.ProductID)
	if err != nil {
		return nil, err
	}
	dev, err := usbtmc.OpenKernelDevice(info.Path)
	if err != nil {
		return nil, err
	}
	return New(dev, profile), nil
}

// SetLogger attaches a logger; fetch progress is reported at debug level.
func (o *Oscilloscope) SetLogger(log *logrus.Logger) {
	if log != nil {
		o.log = log
	}
}

// SetTimeout bounds each transport read.
func (o *Oscilloscope) SetTimeout(d time.Duration) {
	o.conn.SetTimeout(d)
}

// Profile returns the family constants the driver was built with.
func (o *Oscilloscope) Profile() Profile {
	return o.profile
}

// Close releases the transport.
func (o *Oscilloscope) Close() error {
	return o.conn.Close()
}

// Channel returns the 1-based channel accessor.
func (o *Oscilloscope) Channel(n int) (*Channel, error) {
	if n < 1 || n > o.profile.Channels {
		return nil, invalid("channel", n)
	}
	return o.channels[n-1], nil
}

// ID returns the instrument's *IDN? identification string.
func (o *Oscilloscope) ID() (string, error) {
	return o.conn.Ask("*IDN?")
}

// Run resumes acquisition.
func (o *Oscilloscope) Run() error {
	return o.conn.Write(":run")
}

// Stop halts acquisition, freezing waveform memory.
func (o *Oscilloscope) Stop() error {
	return o.conn.Write(":stop")
}

// Single arms a single-shot acquisition.
func (o *Oscilloscope) Single() error {
	return o.conn.Write(":sing")
}

// Autoscale adjusts vertical, horizontal, and trigger settings to the input.
func (o *Oscilloscope) Autoscale() error {
	return o.conn.Write(":aut")
}

// Clear wipes all on-screen waveforms.
func (o *Oscilloscope) Clear() error {
	return o.conn.Write(":clear")
}

// ForceTrigger generates one trigger event immediately.
func (o *Oscilloscope) ForceTrigger() error {
	return o.conn.Write(":tfor")
}

// AcquireType reports the current sampling strategy.
func (o *Oscilloscope) AcquireType() (AcquireType, error) {
	reply, err := o.conn.Ask(":acq:type?")
	if err != nil {
		return "", err
	}
	t, ok := acquireTypeReplies[reply]
	if !ok {
		return "", fmt.Errorf("unrecognized acquire type reply %q", reply)
	}
	return t, nil
}

// SetAcquireType selects the sampling strategy.
func (o *Oscilloscope) SetAcquireType(t AcquireType) error {
	arg, ok := acquireTypeCommands[t]
	if !ok {
		return invalid("acquire type", t)
	}
	return o.conn.Writef(":acq:type %s", arg)
}

// Averages reports the average count used by AcquireAverages.
func (o *Oscilloscope) Averages() (int, error) {
	reply, err := o.conn.Ask(":acq:aver?")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(reply)
	if err != nil {
		return 0, fmt.Errorf("parse average count %q: %w", reply, err)
	}
	return n, nil
}

// SetAverages sets the average count. Legal values are powers of two from
// 2 through 1024.
func (o *Oscilloscope) SetAverages(count int) error {
	if count < 2 || count > 1024 || count&(count-1) != 0 {
		return invalid("average count", count)
	}
	return o.conn.Writef(":acq:aver %d", count)
}

// SamplingRate reports the current sample rate in Sa/s.
func (o *Oscilloscope) SamplingRate() (float64, error) {
	reply, err := o.conn.Ask(":acq:srat?")
	if err != nil {
		return 0, err
	}
	rate, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, fmt.Errorf("parse sampling rate %q: %w", reply, err)
	}
	return rate, nil
}

// MemoryDepth reports the acquisition memory depth in points. auto is true
// when the instrument manages the depth itself, in which case points is 0.
func (o *Oscilloscope) MemoryDepth() (points int, auto bool, err error) {
	reply, err := o.conn.Ask(":acq:mdep?")
	if err != nil {
		return 0, false, err
	}
	if strings.EqualFold(reply, MemoryDepthAuto) {
		return 0, true, nil
	}
	// Some firmware reports the depth in scientific notation.
	f, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse memory depth %q: %w", reply, err)
	}
	return int(f), false, nil
}

// SetMemoryDepth sets the acquisition memory depth. The legal set depends on
// how many channels are currently enabled, so the instrument is queried for
// channel state before the value is validated. Acquisition must be running
// for the depth to change, so the driver issues a run first.
func (o *Oscilloscope) SetMemoryDepth(points int) error {
	enabled, err := o.enabledChannelCount()
	if err != nil {
		return err
	}
	if !containsInt(o.profile.depthsForChannelCount(enabled), points) {
		return invalid(fmt.Sprintf("memory depth with %d channels enabled", enabled), points)
	}
	if err := o.Run(); err != nil {
		return err
	}
	return o.conn.Writef(":acq:mdep %d", points)
}

// SetMemoryDepthAuto hands memory-depth management back to the instrument.
func (o *Oscilloscope) SetMemoryDepthAuto() error {
	if err := o.Run(); err != nil {
		return err
	}
	return o.conn.Writef(":acq:mdep %s", MemoryDepthAuto)
}

// SelectedChannel reports the measurement source channel.
func (o *Oscilloscope) SelectedChannel() (string, error) {
	return o.conn.Ask(":MEAS:SOUR?")
}

// enabledChannelCount queries each channel's display state.
func (o *Oscilloscope) enabledChannelCount() (int, error) {
	count := 0
	for _, ch := range o.channels {
		on, err := ch.Enabled()
		if err != nil {
			return 0, err
		}
		if on {
			count++
		}
	}
	return count, nil
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
