// Package diveobj is the typed Object API (C4): the handful of meaningful
// operations a caller actually wants, layered over the raw SDO engine (C3).
package diveobj

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/srg/divex/internal/divemodel"
	"github.com/srg/divex/internal/sdo"
)

const (
	// versionMinLen is the minimum accepted CMD_VERSION payload length
	// (spec §4.4: "MUST be >= 140 bytes").
	versionMinLen = 140
	// modelNameOffset is where the null-terminated model name string
	// starts within the version payload.
	modelNameOffset = 0x46
	// modelNameFallbackWindow bounds the name extraction when no NUL is
	// found before the end of the payload.
	modelNameFallbackWindow = 16

	pcbNumberIndex = 0x2000
	pcbNumberSub   = 4

	diveObjectBase = 0x3000
	diveHeaderSub  = 4
	diveProfileSub = 3
)

// Object wraps an sdo.Engine with the device's meaningful operations
// (spec §4.4).
type Object struct {
	engine *sdo.Engine
}

// New builds an Object API over the given SDO engine.
func New(engine *sdo.Engine) *Object {
	return &Object{engine: engine}
}

// GetDeviceInfo issues CMD_VERSION and decodes the model name (spec §4.4).
func (o *Object) GetDeviceInfo(ctx context.Context) (divemodel.DeviceInfo, error) {
	payload, err := o.engine.GetVersionPayload(ctx)
	if err != nil {
		return divemodel.DeviceInfo{}, fmt.Errorf("get version: %w", err)
	}
	if len(payload) < versionMinLen {
		return divemodel.DeviceInfo{}, fmt.Errorf("version payload too short: %d bytes, want >= %d", len(payload), versionMinLen)
	}

	name := extractModelName(payload)
	return divemodel.DeviceInfo{
		ModelName: name,
		Model:     divemodel.LookupModel(name),
	}, nil
}

// extractModelName trims the model name at the first NUL starting at
// modelNameOffset, falling back to a fixed-width window if no NUL is
// found before the payload ends (spec §4.4).
func extractModelName(payload []byte) string {
	if modelNameOffset >= len(payload) {
		return ""
	}
	window := payload[modelNameOffset:]
	if idx := bytes.IndexByte(window, 0); idx >= 0 {
		return string(window[:idx])
	}
	end := modelNameFallbackWindow
	if end > len(window) {
		end = len(window)
	}
	return string(bytes.TrimRight(window[:end], "\x00"))
}

// SetClock sends the current wall-clock time as seconds-since-epoch
// (spec §4.4).
func (o *Object) SetClock(ctx context.Context) error {
	now := uint32(time.Now().Unix())
	return o.engine.SetDatetime(ctx, now)
}

// ReadPCBNumber SDO-reads (0x2000, 4) and trims it as a null-terminated
// string (spec §4.4).
func (o *Object) ReadPCBNumber(ctx context.Context) (string, error) {
	data, err := o.engine.EcopRead(ctx, pcbNumberIndex, pcbNumberSub)
	if err != nil {
		return "", fmt.Errorf("read pcb number: %w", err)
	}
	if idx := bytes.IndexByte(data, 0); idx >= 0 {
		data = data[:idx]
	}
	return string(data), nil
}

// ReadDiveHeader SDO-reads (0x3000+i, 4): the 200-byte dive header blob
// (spec §4.4).
func (o *Object) ReadDiveHeader(ctx context.Context, diveIndex uint32) ([]byte, error) {
	index := diveObjectIndex(diveIndex)
	data, err := o.engine.EcopRead(ctx, index, diveHeaderSub)
	if err != nil {
		return nil, fmt.Errorf("read dive header %d: %w", diveIndex, err)
	}
	return data, nil
}

// ReadDiveProfile SDO-reads (0x3000+i, 3): the variable-length profile
// blob (spec §4.4).
func (o *Object) ReadDiveProfile(ctx context.Context, diveIndex uint32) ([]byte, error) {
	index := diveObjectIndex(diveIndex)
	data, err := o.engine.EcopRead(ctx, index, diveProfileSub)
	if err != nil {
		return nil, fmt.Errorf("read dive profile %d: %w", diveIndex, err)
	}
	return data, nil
}

// CountDives probes dive objects until the device returns abort or the
// hard cap is hit (spec §4.4, delegates to the engine's BF-only probe).
func (o *Object) CountDives(ctx context.Context) (int, error) {
	return o.engine.CountDives(ctx)
}

func diveObjectIndex(diveIndex uint32) uint16 {
	return uint16(diveObjectBase + diveIndex)
}
