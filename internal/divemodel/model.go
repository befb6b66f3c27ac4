// Package divemodel holds the portable types the core produces:
// device/model identification, dive-mode and gas-mix vocabulary, and the
// decoded sample/dive-log shapes (spec §3, §6).
package divemodel

import "strings"

// ModelTag identifies a recognized dive computer model (spec §6).
type ModelTag byte

const (
	IconHD    ModelTag = 0x14
	IconAir   ModelTag = 0x15
	PuckPro   ModelTag = 0x18
	NemoWide2 ModelTag = 0x19
	Genius    ModelTag = 0x1C
	Puck2     ModelTag = 0x1F
	QuadAir   ModelTag = 0x23
	SmartAir  ModelTag = 0x24
	Quad      ModelTag = 0x29
	Horizon   ModelTag = 0x2C
	PuckAir2  ModelTag = 0x2D
	Sirius    ModelTag = 0x2F
	QuadCi    ModelTag = 0x31
	Quad2     ModelTag = 0x32
	Puck4     ModelTag = 0x35
	Unknown   ModelTag = 0xFF
)

// modelNames maps every exact device-reported name to its ModelTag. Models
// sharing hardware report more than one name (spec §6's "Puck Pro |
// Puck Pro+", "Puck4 | Puck Lite | Puck | Puck Pro U", etc).
var modelNames = map[string]ModelTag{
	"Icon HD":     IconHD,
	"Icon AIR":    IconAir,
	"Puck Pro":    PuckPro,
	"Puck Pro+":   PuckPro,
	"Nemo Wide 2": NemoWide2,
	"Genius":      Genius,
	"Puck 2":      Puck2,
	"Quad Air":    QuadAir,
	"Smart Air":   SmartAir,
	"Quad":        Quad,
	"Horizon":     Horizon,
	"Puck Air 2":  PuckAir2,
	"Sirius":      Sirius,
	"Quad Ci":     QuadCi,
	"Quad2":       Quad2,
	"Puck4":       Puck4,
	"Puck Lite":   Puck4,
	"Puck":        Puck4,
	"Puck Pro U":  Puck4,
}

// LookupModel maps a device-reported name to its ModelTag, or Unknown if
// the name isn't in the table. Trailing NULs/whitespace are trimmed first.
func LookupModel(name string) ModelTag {
	trimmed := strings.TrimSpace(strings.TrimRight(name, "\x00"))
	if tag, ok := modelNames[trimmed]; ok {
		return tag
	}
	return Unknown
}

// DeviceInfo is the CMD_VERSION response, decoded.
type DeviceInfo struct {
	ModelName string
	Model     ModelTag
}

// DiveMode is the decoded mode field of a dive header.
type DiveMode int

const (
	ModeAir DiveMode = iota
	ModeNitrox
	ModeGauge
	ModeFreedive
)

func (m DiveMode) String() string {
	switch m {
	case ModeAir:
		return "air"
	case ModeNitrox:
		return "nitrox"
	case ModeGauge:
		return "gauge"
	case ModeFreedive:
		return "freedive"
	default:
		return "air"
	}
}

// MarshalJSON renders the lowercased variant name (spec §6: "dive_mode
// (lowercased variant name)").
func (m DiveMode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// GasMix is one surviving gas-mix slot from the dive header.
type GasMix struct {
	O2Percent int `json:"o2"`
}

// Sample is one depth/pressure/temperature reading in a dive profile.
type Sample struct {
	TimeSeconds uint32   `json:"time_s"`
	DepthM      float64  `json:"depth_m"`
	TempC       *float64 `json:"temp_c,omitempty"`
	PressureBar *float64 `json:"pressure_bar,omitempty"`
}

// DiveLog is one fully decoded dive.
type DiveLog struct {
	Number           uint32        `json:"number"`
	DateTime         CivilDateTime `json:"datetime"`
	DurationSeconds  uint32        `json:"duration_seconds"`
	DurationFlagged  bool          `json:"-"`
	MaxDepthM        float64       `json:"max_depth_m"`
	Mode             DiveMode      `json:"dive_mode"`
	GasMixes         []GasMix      `json:"gas_mixes"`
	Samples          []Sample      `json:"samples"`
}
