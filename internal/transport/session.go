// Package transport implements the BLE session component (C1): device
// discovery, connection lifecycle, and a reliable notification receive
// queue over a write/notify GATT characteristic pair.
package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
	"github.com/sirupsen/logrus"

	"github.com/srg/divex/internal/groutine"
)

// MaxWriteChunk is the maximum number of bytes written to the write
// characteristic in a single GATT write-without-response call.
const MaxWriteChunk = 20

// DefaultTimeout is the per-call timeout used when a caller doesn't
// supply one explicitly (spec §5: "5s default").
const DefaultTimeout = 5 * time.Second

// writeChunkDelay is paced between successive write-without-response
// chunks so the peripheral's link-layer buffer isn't overrun; mirrors the
// teacher's BLEDevice.WriteToCharacteristic chunking delay.
const writeChunkDelay = 10 * time.Millisecond

// Peripheral is a discovered, not-yet-connected BLE device.
type Peripheral struct {
	Name    string
	Address string
	RSSI    int
	raw     ble.Advertisement
}

// deviceFactory creates the platform BLE central device. Overridable in
// tests the way the teacher's goble.DeviceFactory is.
var deviceFactory = func() (ble.Device, error) {
	return darwin.NewDevice()
}

// Adapter represents the local BLE radio (spec: "Selects the first
// available BLE adapter; fails with NoAdapter if none").
type Adapter struct {
	logger *logrus.Logger
	dev    ble.Device
}

// OpenAdapter opens the first available BLE adapter.
func OpenAdapter(logger *logrus.Logger) (*Adapter, error) {
	if logger == nil {
		logger = logrus.New()
	}
	dev, err := deviceFactory()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAdapter, err)
	}
	ble.SetDefaultDevice(dev)
	return &Adapter{logger: logger, dev: dev}, nil
}

// NamePrefixes is the vendor allow-list devices are filtered by during
// scan (spec §6).
var NamePrefixes = []string{
	"Mares", "Sirius", "Quad Ci", "Quad2", "Puck4", "Puck Lite", "Puck Pro U", "Puck",
}

// Default write/notify characteristic UUIDs (spec §6). Connect accepts
// overrides but callers normally use these.
var (
	DefaultWriteUUID  = ble.MustParse("99a91ebd-b21f-1689-bb43-681f1f55e966")
	DefaultNotifyUUID = ble.MustParse("1d1aae28-d2a8-91a1-1242-9d2973fbe571")
)

func hasAllowedPrefix(name string) bool {
	for _, p := range NamePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Scan discovers peripherals advertising one of the vendor name prefixes,
// deduplicated by address, for up to timeout.
func (a *Adapter) Scan(ctx context.Context, timeout time.Duration) ([]Peripheral, error) {
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	seen := hashmap.New[string, Peripheral]()

	filter := func(adv ble.Advertisement) bool {
		return hasAllowedPrefix(adv.LocalName())
	}
	handler := func(adv ble.Advertisement) {
		addr := adv.Addr().String()
		seen.Set(addr, Peripheral{
			Name:    adv.LocalName(),
			Address: addr,
			RSSI:    adv.RSSI(),
			raw:     adv,
		})
	}

	err := ble.Scan(scanCtx, true, handler, filter)
	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return nil, fmt.Errorf("%w: %v", ErrBleConnect, err)
	}

	out := make([]Peripheral, 0, seen.Len())
	seen.Range(func(_ string, p Peripheral) bool {
		out = append(out, p)
		return true
	})
	return out, nil
}

// Session is an open connection to one peripheral, exposing the
// write/receive surface the SDO engine is layered on. A Session is not
// safe for concurrent Write/Recv calls from multiple goroutines; the
// spec's "single outstanding transaction" model assumes one caller.
type Session struct {
	logger     *logrus.Logger
	client     ble.Client
	writeChar  *ble.Characteristic
	writeMutex sync.Mutex

	queue  *notifyQueue
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// Connect dials the peripheral, discovers its GATT profile, resolves the
// write/notify characteristics, subscribes to notifications, and spawns
// the background forwarder that owns the raw notification stream.
func (a *Adapter) Connect(ctx context.Context, p Peripheral, writeUUID, notifyUUID ble.UUID, connectTimeout time.Duration) (*Session, error) {
	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	a.logger.WithField("address", p.Address).Info("connecting to device")
	client, err := ble.Dial(connCtx, ble.NewAddr(p.Address))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBleConnect, err)
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		_ = client.CancelConnection()
		return nil, fmt.Errorf("%w: discover profile: %v", ErrBleConnect, err)
	}

	var writeChar, notifyChar *ble.Characteristic
	for _, svc := range profile.Services {
		for _, c := range svc.Characteristics {
			if c.UUID.Equal(writeUUID) {
				writeChar = c
			}
			if c.UUID.Equal(notifyUUID) {
				notifyChar = c
			}
		}
	}
	if writeChar == nil || notifyChar == nil {
		_ = client.CancelConnection()
		return nil, fmt.Errorf("%w: write or notify characteristic not present", ErrNoDeviceFound)
	}

	sessCtx, sessCancel := context.WithCancelCause(context.Background())
	s := &Session{
		logger:    a.logger,
		client:    client,
		writeChar: writeChar,
		queue:     newNotifyQueue(),
		ctx:       sessCtx,
		cancel:    sessCancel,
	}

	if err := client.Subscribe(notifyChar, false, s.onNotify); err != nil {
		_ = client.CancelConnection()
		s.queue.stop()
		return nil, fmt.Errorf("%w: subscribe: %v", ErrBleConnect, err)
	}

	groutine.Go(sessCtx, "transport-disconnect-watch", func(ctx context.Context) {
		<-client.Disconnected()
		s.cancel(ErrBleRead)
		s.queue.closeInput()
	})

	return s, nil
}

// onNotify is the single producer into the session's receive queue; it
// runs on the go-ble notification dispatch goroutine.
func (s *Session) onNotify(data []byte) {
	s.queue.push(data)
}

// Write fragments data into ≤20-byte chunks and writes each one without
// response, in order. Fails with ErrBleWrite on any chunk failure.
func (s *Session) Write(ctx context.Context, data []byte) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	for off := 0; off < len(data); off += MaxWriteChunk {
		end := off + MaxWriteChunk
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		if err := s.writeChunk(chunk); err != nil {
			return err
		}
		if end < len(data) {
			time.Sleep(writeChunkDelay)
		}
	}
	return nil
}

func (s *Session) writeChunk(chunk []byte) error {
	type result struct{ err error }
	resultCh := make(chan result, 1)
	groutine.Go(context.Background(), "transport-write", func(ctx context.Context) {
		resultCh <- result{err: s.client.WriteCharacteristic(s.writeChar, chunk, true)}
	})
	select {
	case r := <-resultCh:
		if r.err != nil {
			return fmt.Errorf("%w: %v", ErrBleWrite, normalizeConnError(r.err))
		}
		return nil
	case <-time.After(DefaultTimeout):
		return fmt.Errorf("%w: write chunk", ErrTimeout)
	}
}

// Recv returns the next notification payload, or ErrTimeout, or
// ErrChannelClosed if the forwarder has exited.
func (s *Session) Recv(ctx context.Context, timeout time.Duration) ([]byte, error) {
	return s.queue.pop(ctx, timeout)
}

// RecvAccumulated concatenates received payloads until their combined
// length is at least minBytes, or returns what it has once timeout
// elapses with at least one payload received. Fails with ErrNoData if
// the timeout elapses with nothing received at all.
func (s *Session) RecvAccumulated(ctx context.Context, minBytes int, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	var acc []byte
	for len(acc) < minBytes {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		chunk, err := s.queue.pop(ctx, remaining)
		if err != nil {
			if IsKind(err, KindTimeout) {
				break
			}
			return nil, err
		}
		acc = append(acc, chunk...)
	}
	if len(acc) == 0 {
		return nil, ErrNoData
	}
	return acc, nil
}

// Drain discards all currently queued payloads without blocking. Called
// before each new command to discard stale data.
func (s *Session) Drain() {
	s.queue.drain()
}

// Disconnect closes the peripheral connection and stops the forwarder.
func (s *Session) Disconnect() error {
	s.cancel(nil)
	s.queue.closeInput()
	s.queue.stop()
	if err := s.client.CancelConnection(); err != nil {
		return fmt.Errorf("%w: %v", ErrBleConnect, normalizeConnError(err))
	}
	return nil
}
