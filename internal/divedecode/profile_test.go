package divedecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dstrRecord() []byte {
	r := make([]byte, recordDSTR)
	copy(r[0:4], "DSTR")
	return r
}

func tissRecord() []byte {
	r := make([]byte, recordTISS)
	copy(r[0:4], "TISS")
	return r
}

func dendRecord() []byte {
	r := make([]byte, recordDEND)
	copy(r[0:4], "DEND")
	return r
}

// dprsRecord builds a DPRS record with the given depth (tenths of a
// meter) and temperature (tenths of a degree C, 0 means "absent").
func dprsRecord(depthRaw uint16, tempRaw int16) []byte {
	r := make([]byte, recordDPRS)
	copy(r[0:4], "DPRS")
	putU16LE(r, 4, depthRaw)
	putU16LE(r, 8, uint16(tempRaw))
	return r
}

func airsRecord(pressureRaw uint16) []byte {
	r := make([]byte, recordAIRS)
	copy(r[0:4], "AIRS")
	putU16LE(r, 4, pressureRaw)
	return r
}

func TestDecodeProfile_EmptyProfileYieldsNoSamples(t *testing.T) {
	assert.Empty(t, DecodeProfile(nil))
}

// Scenario E: DSTR + one DPRS -> one sample, depth 10.0, temp 20.0, no pressure.
func TestDecodeProfile_ScenarioE(t *testing.T) {
	var profile []byte
	profile = append(profile, dstrRecord()...)
	profile = append(profile, dprsRecord(100, 200)...)

	samples := DecodeProfile(profile)
	require.Len(t, samples, 1)
	s := samples[0]
	assert.Equal(t, uint32(0), s.TimeSeconds)
	assert.Equal(t, 10.0, s.DepthM)
	require.NotNil(t, s.TempC)
	assert.Equal(t, 20.0, *s.TempC)
	assert.Nil(t, s.PressureBar)
}

// Scenario F: AIRS with nonzero pressure immediately before a DPRS sets
// that sample's pressure_bar.
func TestDecodeProfile_ScenarioF_AirsUpdatesNextDprsPressure(t *testing.T) {
	var profile []byte
	profile = append(profile, dstrRecord()...)
	profile = append(profile, airsRecord(210)...) // 2.10 bar
	profile = append(profile, dprsRecord(50, 0)...)

	samples := DecodeProfile(profile)
	require.Len(t, samples, 1)
	require.NotNil(t, samples[0].PressureBar)
	assert.InDelta(t, 2.10, *samples[0].PressureBar, 1e-9)
	assert.Nil(t, samples[0].TempC) // temp=0 means absent
}

// Property 5: one DSTR followed by k DPRS records emits exactly k samples
// with time_s = 0, 5, 10, ..., 5(k-1).
func TestDecodeProfile_KDprsRecordsEmitStrictlyIncreasingTimes(t *testing.T) {
	const k = 6
	var profile []byte
	profile = append(profile, dstrRecord()...)
	for i := 0; i < k; i++ {
		profile = append(profile, dprsRecord(uint16(10*i), 0)...)
	}

	samples := DecodeProfile(profile)
	require.Len(t, samples, k)
	for i, s := range samples {
		assert.Equal(t, uint32(i*5), s.TimeSeconds)
	}
}

func TestDecodeProfile_PressureCarriesAcrossMultipleDprs(t *testing.T) {
	var profile []byte
	profile = append(profile, dstrRecord()...)
	profile = append(profile, airsRecord(200)...)
	profile = append(profile, dprsRecord(10, 0)...)
	profile = append(profile, dprsRecord(20, 0)...)

	samples := DecodeProfile(profile)
	require.Len(t, samples, 2)
	require.NotNil(t, samples[0].PressureBar)
	require.NotNil(t, samples[1].PressureBar)
	assert.Equal(t, *samples[0].PressureBar, *samples[1].PressureBar)
}

func TestDecodeProfile_UnknownTagResyncsByOneByte(t *testing.T) {
	var profile []byte
	profile = append(profile, dstrRecord()...)
	profile = append(profile, []byte{0xFF, 0xFF, 0xFF, 0xFF}...) // unknown tag
	profile = append(profile, dprsRecord(10, 0)...)

	samples := DecodeProfile(profile)
	require.Len(t, samples, 1)
	assert.Equal(t, 1.0, samples[0].DepthM)
}

// TISS records must be skipped wholesale by recordTISS bytes, not
// resynced-around one byte at a time. A tag-shaped sequence planted
// inside the TISS filler would be mistaken for a real record by a
// byte-stepping resync and emit a spurious extra sample.
func TestDecodeProfile_TissRecordSkippedWholesaleNotResynced(t *testing.T) {
	tiss := tissRecord()
	copy(tiss[40:44], "DPRS")

	var profile []byte
	profile = append(profile, dstrRecord()...)
	profile = append(profile, tiss...)
	profile = append(profile, dprsRecord(100, 200)...)

	samples := DecodeProfile(profile)
	require.Len(t, samples, 1)
	assert.Equal(t, 10.0, samples[0].DepthM)
}

// DEND records must likewise be consumed wholesale; a tag-shaped
// sequence planted inside the DEND filler must not produce a
// spurious extra sample via byte-by-byte resync.
func TestDecodeProfile_DendRecordConsumedNotResynced(t *testing.T) {
	dend := dendRecord()
	copy(dend[50:54], "DPRS")

	var profile []byte
	profile = append(profile, dstrRecord()...)
	profile = append(profile, dprsRecord(100, 200)...)
	profile = append(profile, dend...)

	samples := DecodeProfile(profile)
	require.Len(t, samples, 1)
	assert.Equal(t, 10.0, samples[0].DepthM)
}

func TestDecodeProfile_TruncatedDprsRecordStopsCleanly(t *testing.T) {
	var profile []byte
	profile = append(profile, dstrRecord()...)
	profile = append(profile, []byte("DPRS")...) // tag only, no payload

	assert.NotPanics(t, func() {
		samples := DecodeProfile(profile)
		assert.Empty(t, samples)
	})
}
