package diveobj

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/divex/internal/divemodel"
	"github.com/srg/divex/internal/sdo"
)

// fakeTransport replays scripted Recv chunks, mirroring internal/sdo's own
// test double so diveobj can be exercised without a real BLE connection.
type fakeTransport struct {
	recvQueue [][]byte
	written   [][]byte
}

func (f *fakeTransport) Write(_ context.Context, data []byte) error {
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Recv(_ context.Context, _ time.Duration) ([]byte, error) {
	if len(f.recvQueue) == 0 {
		return nil, sdo.ErrBadFraming
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

func (f *fakeTransport) Drain() {}

func newObject(chunks ...[]byte) *Object {
	ft := &fakeTransport{recvQueue: chunks}
	return New(sdo.New(ft, nil))
}

func TestGetDeviceInfo_ParsesModelName(t *testing.T) {
	payload := make([]byte, 150)
	copy(payload[0x46:], "Genius\x00")
	frame := append([]byte{sdo.ACK}, payload...)
	frame = append(frame, sdo.END)

	obj := newObject(frame)
	info, err := obj.GetDeviceInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Genius", info.ModelName)
	assert.Equal(t, divemodel.Genius, info.Model)
}

func TestGetDeviceInfo_TooShortIsError(t *testing.T) {
	payload := make([]byte, 50)
	frame := append([]byte{sdo.ACK}, payload...)
	frame = append(frame, sdo.END)

	obj := newObject(frame)
	_, err := obj.GetDeviceInfo(context.Background())
	assert.Error(t, err)
}

func TestReadPCBNumber_TrimsNUL(t *testing.T) {
	frame := []byte{sdo.ACK, 0x42, 0x00, 0x20, 0x04, '1', '2', '3', 0, 0, 0, 0, 0, 0, 0, 0, 0, sdo.END}
	obj := newObject(frame)
	pcb, err := obj.ReadPCBNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123", pcb)
}

func TestCountDives_Delegates(t *testing.T) {
	expedited := []byte{sdo.ACK, 0x42, 0, 0, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, sdo.END}
	abort := []byte{sdo.ACK, 0x80, 0, 0, 4, sdo.END}
	obj := newObject(expedited, abort)

	n, err := obj.CountDives(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
