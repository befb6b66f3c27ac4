package sdo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport replays a scripted sequence of Recv chunks and records
// writes, so the engine's framing/segment logic can be tested without a
// real BLE connection.
type fakeTransport struct {
	recvQueue [][]byte
	written   [][]byte
	drains    int
}

func (f *fakeTransport) Write(_ context.Context, data []byte) error {
	cp := append([]byte(nil), data...)
	f.written = append(f.written, cp)
	return nil
}

func (f *fakeTransport) Recv(_ context.Context, _ time.Duration) ([]byte, error) {
	if len(f.recvQueue) == 0 {
		return nil, ErrBadFraming
	}
	v := f.recvQueue[0]
	f.recvQueue = f.recvQueue[1:]
	return v, nil
}

func (f *fakeTransport) RecvAccumulated(ctx context.Context, minBytes int, timeout time.Duration) ([]byte, error) {
	var acc []byte
	for len(acc) < minBytes && len(f.recvQueue) > 0 {
		chunk, _ := f.Recv(ctx, timeout)
		acc = append(acc, chunk...)
	}
	return acc, nil
}

func (f *fakeTransport) Drain() { f.drains++ }

func newEngine(chunks ...[]byte) (*Engine, *fakeTransport) {
	ft := &fakeTransport{recvQueue: chunks}
	return New(ft, nil), ft
}

// Scenario A: expedited read.
func TestEcopRead_Expedited(t *testing.T) {
	frame := []byte{ACK, 0x42, 0x00, 0x20, 0x04, 0x41, 0x42, 0x43, 0, 0, 0, 0, 0, 0, 0, 0, 0, END}
	e, ft := newEngine(frame)

	data, err := e.EcopRead(context.Background(), 0x2000, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABC\x00\x00\x00\x00\x00\x00\x00\x00\x00"), data)
	assert.Equal(t, 1, ft.drains) // one drain for the BF exchange
}

// Scenario B: segmented read of 300 bytes, 241 + 59.
func TestEcopRead_Segmented(t *testing.T) {
	bf := []byte{ACK, statusSegmented, 0x00, 0x30, 0x04, 0x2C, 0x01, END} // 0x012C = 300
	seg1Data := make([]byte, 241)
	for i := range seg1Data {
		seg1Data[i] = byte(i)
	}
	seg1 := append([]byte{ACK, 0 /* toggle */}, seg1Data...)
	seg1 = append(seg1, END)

	seg2Data := make([]byte, 59)
	for i := range seg2Data {
		seg2Data[i] = byte(200 + i)
	}
	seg2 := append([]byte{ACK, 1}, seg2Data...)
	seg2 = append(seg2, END)

	e, ft := newEngine(bf, seg1, seg2)
	data, err := e.EcopRead(context.Background(), 0x3000, 4)
	require.NoError(t, err)
	require.Len(t, data, 300)
	assert.Equal(t, seg1Data, data[:241])
	assert.Equal(t, seg2Data, data[241:])

	// The BF exchange writes a command header then an 18-byte payload;
	// every write after that is a bare 2-byte segment command header.
	require.Len(t, ft.written, 4)
	assertCmdHeader(t, ft.written[0], CmdSDOUpload)
	assert.Len(t, ft.written[1], bfPayloadLen)
	assertSegmentToggleSequence(t, ft.written[2:], []byte{CmdSDOSegment0, CmdSDOSegment1})
}

// assertCmdHeader checks a written buffer is exactly the 2-byte [cmd,
// cmd^XOR] header for cmd.
func assertCmdHeader(t *testing.T, got []byte, cmd byte) {
	t.Helper()
	require.Len(t, got, 2)
	assert.Equal(t, cmd, got[0])
	assert.Equal(t, cmd^XOR, got[1])
}

// assertSegmentToggleSequence checks that each of writes is a bare
// command header for the corresponding expected segment command, i.e.
// spec Testable Property #7: the toggle alternates 0/1/0/1... with no
// repeats, and the segment count matches ceil(data_size/maxSegmentData).
func assertSegmentToggleSequence(t *testing.T, writes [][]byte, wantCmds []byte) {
	t.Helper()
	require.Len(t, writes, len(wantCmds))
	for i, want := range wantCmds {
		assertCmdHeader(t, writes[i], want)
	}
}

// Property 7 at a larger scale: 3 segments (241 + 241 + 10 bytes) must
// issue CmdSDOSegment0/1 alternating without a repeat, 3 times total.
func TestEcopRead_SegmentedToggleAlternatesAcrossManySegments(t *testing.T) {
	const dataSize = 2*maxSegmentData + 10
	bf := []byte{ACK, statusSegmented, 0x00, 0x30, 0x04, byte(dataSize), byte(dataSize >> 8), END}

	segment := func(toggle byte, n int) []byte {
		data := make([]byte, n)
		seg := append([]byte{ACK, toggle}, data...)
		return append(seg, END)
	}

	e, ft := newEngine(bf, segment(0, maxSegmentData), segment(1, maxSegmentData), segment(0, 10))
	data, err := e.EcopRead(context.Background(), 0x3000, 4)
	require.NoError(t, err)
	require.Len(t, data, dataSize)

	require.Len(t, ft.written, 5) // BF header, BF payload, 3 segment headers
	assertSegmentToggleSequence(t, ft.written[2:], []byte{CmdSDOSegment0, CmdSDOSegment1, CmdSDOSegment0})
}

func TestEcopRead_Abort(t *testing.T) {
	frame := []byte{ACK, statusAbort, 0x00, 0x30, 0x04, END}
	e, _ := newEngine(frame)

	_, err := e.EcopRead(context.Background(), 0x3000, 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Scenario C: count_dives = 3.
func TestCountDives(t *testing.T) {
	expedited := func() []byte {
		return []byte{ACK, statusExpedited, 0, 0, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, END}
	}
	abort := []byte{ACK, statusAbort, 0, 0, 4, END}

	e, _ := newEngine(expedited(), expedited(), expedited(), abort)
	n, err := e.CountDives(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCmdHeader_XORsToFixedConstant(t *testing.T) {
	for cmd := 0; cmd < 256; cmd++ {
		hdr := cmdHeader(byte(cmd))
		assert.Equal(t, byte(cmd), hdr[0])
		assert.Equal(t, XOR, hdr[0]^hdr[1])
	}
}

func TestValidateFraming(t *testing.T) {
	assert.NoError(t, validateFraming([]byte{ACK, 1, 2, END}))
	assert.Error(t, validateFraming(nil))
	assert.Error(t, validateFraming([]byte{0x00, END}))
	assert.Error(t, validateFraming([]byte{ACK, 0x00}))
}
