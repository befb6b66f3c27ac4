package divedecode

import (
	"errors"
	"fmt"

	"github.com/srg/divex/internal/divemodel"
)

// HeaderTooShort is returned when a dive header blob is shorter than the
// minimum 0x60 bytes needed to reach the gas-mix table (spec §4.5.2).
var HeaderTooShort = errors.New("dive header too short")

const (
	minHeaderLen = 0x60

	offDiveNumber = 0x04
	offDateTime   = 0x08
	offSettings   = 0x0C
	offNSamples   = 0x20
	offMaxDepth   = 0x22
	offGasMixes   = 0x54
	gasMixSlots   = 5
	gasMixStride  = 20

	sampleIntervalSeconds = 5
)

func readU16LE(b []byte, off int) uint16 {
	return uint16(b[off]) | uint16(b[off+1])<<8
}

func readU32LE(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

// decodeMode maps the low 4 bits of the settings word to a DiveMode
// (spec §4.5.2, grounded on parse_dive_ecop's match arms).
func decodeMode(settings uint32) divemodel.DiveMode {
	switch settings & 0x0F {
	case 0:
		return divemodel.ModeAir
	case 1, 2, 3, 6, 7:
		return divemodel.ModeNitrox
	case 4:
		return divemodel.ModeGauge
	case 5:
		return divemodel.ModeFreedive
	default:
		return divemodel.ModeAir
	}
}

// decodeGasMixes reads the 5 gas-mix slots starting at 0x54 (20 bytes each),
// keeping only slots with state READY or INUSE and a plausible O2 percent.
// Falls back to a single 21% mix if no slot survives (spec §4.5.2, §3).
func decodeGasMixes(header []byte) []divemodel.GasMix {
	var mixes []divemodel.GasMix
	for i := 0; i < gasMixSlots; i++ {
		off := offGasMixes + i*gasMixStride
		if off+4 > len(header) {
			break
		}
		params := readU32LE(header, off)
		o2 := int(params & 0x7F)
		state := (params >> 21) & 0x03
		if state > 0 && state < 3 && o2 > 0 && o2 <= 100 {
			mixes = append(mixes, divemodel.GasMix{O2Percent: o2})
		}
	}
	if len(mixes) == 0 {
		mixes = append(mixes, divemodel.GasMix{O2Percent: 21})
	}
	return mixes
}

// ParsedHeader is the decoded form of a 200-byte dive header, ready to be
// combined with the decoded profile samples into a divemodel.DiveLog.
type ParsedHeader struct {
	Number          uint32
	DateTime        divemodel.CivilDateTime
	DurationSeconds uint32
	DurationFlagged bool
	MaxDepthM       float64
	Mode            divemodel.DiveMode
	GasMixes        []divemodel.GasMix
}

// DecodeHeader parses the fixed-offset fields of a dive header blob
// (spec §4.5.2). diveIndex is the 0-based SDO probe index used to fall
// back the dive number when the header's own field is 0.
func DecodeHeader(diveIndex uint32, header []byte) (ParsedHeader, error) {
	if len(header) < minHeaderLen {
		return ParsedHeader{}, fmt.Errorf("%w: %d bytes", HeaderTooShort, len(header))
	}

	diveNumber := readU32LE(header, offDiveNumber)
	if diveNumber == 0 {
		diveNumber = diveIndex + 1
	}

	dateTime := DecodePackedDateTime(readU32LE(header, offDateTime))

	settings := readU32LE(header, offSettings)
	mode := decodeMode(settings)
	surftimeMinutes := int64((settings >> 13) & 0x3F)

	nsamples := int64(readU16LE(header, offNSamples))
	maxDepthRaw := readU16LE(header, offMaxDepth)

	durationSigned := sampleIntervalSeconds*nsamples - 60*surftimeMinutes
	flagged := durationSigned < 0
	duration := durationSigned
	if flagged {
		duration = 0
	}

	return ParsedHeader{
		Number:          diveNumber,
		DateTime:        dateTime,
		DurationSeconds: uint32(duration),
		DurationFlagged: flagged,
		MaxDepthM:       float64(maxDepthRaw) / 10.0,
		Mode:            mode,
		GasMixes:        decodeGasMixes(header),
	}, nil
}
