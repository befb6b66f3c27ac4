package divedecode

import "github.com/srg/divex/internal/divemodel"

// Record sizes from libdivecomputer's mares_iconhd_parser.c, carried over
// verbatim from the tagged profile stream (spec §4.5.3).
const (
	recordDSTR = 58
	recordTISS = 138
	recordDPRS = 34
	recordAIRS = 16
	recordDEND = 162
)

// DecodeProfile parses the tagged variable-length profile stream into an
// ordered list of samples. AIRS records update the "last seen" pressure
// but don't themselves emit a sample; unrecognized 4-byte tag windows
// resync by advancing one byte at a time (spec §4.5.3).
func DecodeProfile(profile []byte) []divemodel.Sample {
	var samples []divemodel.Sample
	var timeS uint32
	var lastPressureBar *float64

	offset := 0
	if len(profile) >= 8 && string(profile[4:8]) == "DSTR" {
		offset = 4
	}

	for offset+4 <= len(profile) {
		tag := string(profile[offset : offset+4])

		switch tag {
		case "DSTR":
			offset += recordDSTR
		case "TISS":
			offset += recordTISS
		case "DPRS":
			if offset+recordDPRS > len(profile) {
				return samples
			}
			depthRaw := readU16LE(profile, offset+4)
			depthM := float64(depthRaw) / 10.0

			tempRaw := int16(readU16LE(profile, offset+8))
			var tempC *float64
			if tempRaw > 0 {
				v := float64(tempRaw) / 10.0
				tempC = &v
			}

			samples = append(samples, divemodel.Sample{
				TimeSeconds: timeS,
				DepthM:      depthM,
				TempC:       tempC,
				PressureBar: lastPressureBar,
			})
			timeS += sampleIntervalSeconds
			offset += recordDPRS
		case "AIRS":
			if offset+recordAIRS > len(profile) {
				return samples
			}
			pressureRaw := readU16LE(profile, offset+4)
			if pressureRaw > 0 {
				v := float64(pressureRaw) / 100.0
				lastPressureBar = &v
			}
			offset += recordAIRS
		case "DEND":
			offset += recordDEND
		default:
			offset++
		}
	}

	return samples
}
