package scope

import "time"

// WaveMode selects which portion of acquisition memory a waveform fetch
// reads out.
type WaveMode string

const (
	// WaveNormal reads the on-screen record.
	WaveNormal WaveMode = "norm"
	// WaveMax reads the full memory when stopped, the screen when running.
	WaveMax WaveMode = "max"
	// WaveRaw reads the full acquisition memory.
	WaveRaw WaveMode = "raw"
)

// MemoryDepthAuto is the instrument-managed memory depth setting.
const MemoryDepthAuto = "AUTO"

// ScreenshotPolicy describes how a family frames display dumps.
type ScreenshotPolicy struct {
	// Formats maps each supported image format to the settle delay the
	// instrument needs before the image is ready to read.
	Formats map[string]time.Duration

	// QueryTakesFormat selects the ":disp:data? on,off,<fmt>" form over the
	// bare ":disp:data?" query.
	QueryTakesFormat bool

	// ForceExt, when set, overrides the extension of the output filename
	// (the instrument only ever produces this format).
	ForceExt string
}

// Profile carries the per-family constants the generic driver core is
// parameterized over. It is read-only configuration; nothing in it is
// derived at runtime.
type Profile struct {
	Name      string
	VendorID  uint16
	ProductID uint16

	// Channels is the number of analog input channels.
	Channels int

	// MaxBlockSize bounds one waveform-data read. Larger single reads trip
	// the multi-second USBTMC transfer timeout on these families.
	MaxBlockSize int

	// Modes is the waveform readout vocabulary the family accepts.
	Modes []WaveMode

	// NormPoints, when nonzero, is the fixed on-screen preview length that
	// WaveNormal exposes instead of the full record. Zero means WaveNormal
	// is chunked like any other mode.
	NormPoints int

	// Settle is slept after every command write.
	Settle time.Duration

	// MemoryDepths enumerates the legal memory-depth values keyed by the
	// number of currently enabled channels.
	MemoryDepths map[int][]int

	Screenshot ScreenshotPolicy
}

// SupportsMode reports whether the family accepts the readout mode.
func (p Profile) SupportsMode(m WaveMode) bool {
	for _, allowed := range p.Modes {
		if m == allowed {
			return true
		}
	}
	return false
}

// depthsForChannelCount returns the legal memory-depth set for the number of
// enabled channels, capping at the densest table entry.
func (p Profile) depthsForChannelCount(enabled int) []int {
	if d, ok := p.MemoryDepths[enabled]; ok {
		return d
	}
	max := 0
	for k := range p.MemoryDepths {
		if k > max {
			max = k
		}
	}
	return p.MemoryDepths[max]
}

// DS1000Z is the profile for the DS1000Z/MSO1000Z series.
func DS1000Z() Profile {
	return Profile{
		Name:         "DS1000Z",
		VendorID:     0x1ab1,
		ProductID:    0x04ce,
		Channels:     4,
		MaxBlockSize: 250000,
		Modes:        []WaveMode{WaveNormal, WaveMax, WaveRaw},
		Settle:       200 * time.Millisecond,
		MemoryDepths: map[int][]int{
			1: {12000, 120000, 1200000, 12000000, 24000000},
			2: {6000, 60000, 600000, 6000000, 12000000},
			3: {3000, 30000, 300000, 3000000, 6000000},
			4: {3000, 30000, 300000, 3000000, 6000000},
		},
		Screenshot: ScreenshotPolicy{
			Formats: map[string]time.Duration{
				"jpeg":  3 * time.Second,
				"png":   500 * time.Millisecond,
				"bmp8":  500 * time.Millisecond,
				"bmp24": 500 * time.Millisecond,
				"tiff":  500 * time.Millisecond,
			},
			QueryTakesFormat: true,
		},
	}
}

// DS2000A is the profile for the DS2000A/MSO2000A series. WaveNormal on this
// family exposes only the 1400-sample on-screen preview.
func DS2000A() Profile {
	return Profile{
		Name:         "DS2000A",
		VendorID:     0x1ab1,
		ProductID:    0x04b0,
		Channels:     2,
		MaxBlockSize: 1800000,
		Modes:        []WaveMode{WaveNormal, WaveRaw},
		NormPoints:   1400,
		Settle:       300 * time.Millisecond,
		MemoryDepths: map[int][]int{
			1: {12000, 120000, 1200000, 12000000, 24000000},
			2: {6000, 60000, 600000, 6000000, 12000000},
		},
		Screenshot: ScreenshotPolicy{
			Formats: map[string]time.Duration{
				"bmp": 300 * time.Millisecond,
			},
			ForceExt: ".bmp",
		},
	}
}

// Profiles returns the known device families keyed by name.
func Profiles() map[string]Profile {
	return map[string]Profile{
		"DS1000Z": DS1000Z(),
		"DS2000A": DS2000A(),
	}
}
