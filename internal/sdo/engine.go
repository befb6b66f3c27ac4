package sdo

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout is the per-transaction deadline (spec §6: TIMEOUT_MS=5000).
const DefaultTimeout = 5 * time.Second

// Transport is the byte-stream surface the SDO engine is layered over.
// internal/transport.Session satisfies this; tests substitute a mock.
type Transport interface {
	Write(ctx context.Context, data []byte) error
	Recv(ctx context.Context, timeout time.Duration) ([]byte, error)
	RecvAccumulated(ctx context.Context, minBytes int, timeout time.Duration) ([]byte, error)
	Drain()
}

// Engine drives the BF/AC/FE handshake (C3) over a Transport.
type Engine struct {
	t       Transport
	timeout time.Duration
	logger  *logrus.Logger
}

// New builds an Engine with the default 5s per-transaction timeout.
func New(t Transport, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{t: t, timeout: DefaultTimeout, logger: logger}
}

// variableNoPayload sends cmd with no payload and returns the bytes
// between the leading ACK and trailing END of the response.
func (e *Engine) variableNoPayload(ctx context.Context, cmd byte) ([]byte, error) {
	e.t.Drain()
	hdr := cmdHeader(cmd)
	if err := e.t.Write(ctx, hdr[:]); err != nil {
		return nil, fmt.Errorf("write command header: %w", err)
	}

	resp, err := e.t.RecvAccumulated(ctx, 2, e.timeout)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	e.logger.WithField("frame", hexDump(resp)).Debug("variable-no-payload response")
	if err := validateFraming(resp); err != nil {
		e.logger.WithField("frame", hexDump(resp)).Error("bad framing")
		return nil, err
	}
	return resp[1 : len(resp)-1], nil
}

// sendWithPayload writes the command header, waits for the leading ACK,
// writes payload, then accumulates notifications until the response ends
// with END or the overall deadline elapses. Returns the full response
// including the leading ACK and trailing END.
func (e *Engine) sendWithPayload(ctx context.Context, cmd byte, payload []byte) ([]byte, error) {
	e.t.Drain()
	hdr := cmdHeader(cmd)
	if err := e.t.Write(ctx, hdr[:]); err != nil {
		return nil, fmt.Errorf("write command header: %w", err)
	}

	ack, err := e.t.Recv(ctx, e.timeout)
	if err != nil {
		return nil, fmt.Errorf("no ack after header: %w", err)
	}
	if len(ack) == 0 || ack[0] != ACK {
		return nil, fmt.Errorf("%w: got [%s]", ErrUnexpectedAck, hexDump(ack))
	}

	if err := e.t.Write(ctx, payload); err != nil {
		return nil, fmt.Errorf("write payload: %w", err)
	}

	response := append([]byte(nil), ack...)
	deadline := time.Now().Add(e.timeout)
	for len(response) < 2 || response[len(response)-1] != END {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: timeout waiting for END (got %d bytes: [%s])", ErrBadFraming, len(response), hexDump(response))
		}
		chunk, err := e.t.Recv(ctx, remaining)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		response = append(response, chunk...)
	}
	e.logger.WithField("frame", hexDump(response)).Debug("sendWithPayload response")
	return response, nil
}

// recvSegment receives one SDO segment response: [ACK, toggle/status,
// data..., END]. The trailing END is optional once the expected maximum
// length is reached (spec §9 "framing ambiguity at max segment").
func (e *Engine) recvSegment(ctx context.Context, expectedDataLen int) ([]byte, error) {
	totalExpected := 1 + 1 + expectedDataLen + 1 // ACK + toggle + data + END

	var response []byte
	deadline := time.Now().Add(e.timeout)
	for {
		if len(response) >= 3 && response[len(response)-1] == END {
			break
		}
		if len(response) >= totalExpected {
			break
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: timeout waiting for segment (got %d bytes: [%s])", ErrBadFraming, len(response), hexDump(response))
		}
		chunk, err := e.t.Recv(ctx, remaining)
		if err != nil {
			return nil, fmt.Errorf("read segment: %w", err)
		}
		response = append(response, chunk...)
	}

	if len(response) == 0 || response[0] != ACK {
		return nil, fmt.Errorf("%w: segment got [%s]", ErrUnexpectedAck, hexDump(response))
	}

	end := len(response)
	if response[end-1] == END {
		end--
	}
	return response[1:end], nil
}

// EcopRead performs an SDO upload of object (index, subIndex) and returns
// its data bytes, transparently handling expedited vs. segmented replies.
func (e *Engine) EcopRead(ctx context.Context, index uint16, subIndex byte) ([]byte, error) {
	payload := make([]byte, bfPayloadLen)
	payload[0] = 0x40
	payload[1] = byte(index & 0xFF)
	payload[2] = byte(index >> 8)
	payload[3] = subIndex

	response, err := e.sendWithPayload(ctx, CmdSDOUpload, payload)
	if err != nil {
		return nil, err
	}
	if len(response) < 6 {
		return nil, fmt.Errorf("%w: BF response too short (%d bytes: [%s])", ErrProtocolError, len(response), hexDump(response))
	}

	ecopEnd := len(response)
	if response[ecopEnd-1] == END {
		ecopEnd--
	}
	ecop := response[1:ecopEnd]
	if len(ecop) == 0 {
		return nil, fmt.Errorf("%w: empty ecop response", ErrProtocolError)
	}

	switch status := ecop[0]; status {
	case statusAbort:
		return nil, fmt.Errorf("%w: object 0x%04X sub %d", ErrNotFound, index, subIndex)
	case statusExpedited:
		if len(ecop) < 16 {
			return nil, fmt.Errorf("%w: expedited response too short (%d bytes)", ErrProtocolError, len(ecop))
		}
		return append([]byte(nil), ecop[4:4+expeditedDataLen]...), nil
	case statusSegmented:
		if len(ecop) < 6 {
			return nil, fmt.Errorf("%w: segmented response too short (%d bytes)", ErrProtocolError, len(ecop))
		}
		dataSize := int(ecop[4]) | int(ecop[5])<<8
		return e.readSegments(ctx, dataSize)
	default:
		return nil, fmt.Errorf("%w: unknown SDO status 0x%02X [%s]", ErrProtocolError, status, hexDump(ecop))
	}
}

// readSegments drives the alternating AC/FE segment pump until dataSize
// bytes have been collected, then truncates to exactly that size.
func (e *Engine) readSegments(ctx context.Context, dataSize int) ([]byte, error) {
	data := make([]byte, 0, dataSize)
	toggle := byte(0)

	for len(data) < dataSize {
		remaining := dataSize - len(data)
		segSize := remaining
		if segSize > maxSegmentData {
			segSize = maxSegmentData
		}

		cmd := CmdSDOSegment0
		if toggle != 0 {
			cmd = CmdSDOSegment1
		}

		e.t.Drain()
		hdr := cmdHeader(cmd)
		if err := e.t.Write(ctx, hdr[:]); err != nil {
			return nil, fmt.Errorf("write segment header: %w", err)
		}

		segment, err := e.recvSegment(ctx, segSize)
		if err != nil {
			return nil, err
		}
		if len(segment) == 0 {
			return nil, fmt.Errorf("%w: empty sdo segment", ErrProtocolError)
		}
		data = append(data, segment[1:]...) // drop leading toggle/status byte

		toggle ^= 1
	}

	return data[:dataSize], nil
}

// GetVersionPayload issues CMD_VERSION as a variable-no-payload command.
func (e *Engine) GetVersionPayload(ctx context.Context) ([]byte, error) {
	return e.variableNoPayload(ctx, CmdVersion)
}

// SetDatetime sends the given Unix seconds-since-epoch as a 4-byte LE
// payload via CMD_SET_DATETIME. Any non-error response is accepted.
func (e *Engine) SetDatetime(ctx context.Context, unixSeconds uint32) error {
	payload := []byte{
		byte(unixSeconds),
		byte(unixSeconds >> 8),
		byte(unixSeconds >> 16),
		byte(unixSeconds >> 24),
	}
	response, err := e.sendWithPayload(ctx, CmdSetDatetime, payload)
	if err != nil {
		return err
	}
	if len(response) == 0 {
		return fmt.Errorf("%w: no response to SET_DATETIME", ErrProtocolError)
	}
	return nil
}

// CountDives probes dive objects (0x3000+n, sub-index 4) using only the
// BF exchange, stopping at the first abort or at the hard cap of 256.
func (e *Engine) CountDives(ctx context.Context) (int, error) {
	const hardCap = 256
	count := 0
	for count < hardCap {
		index := uint16(0x3000 + count)
		payload := make([]byte, bfPayloadLen)
		payload[0] = 0x40
		payload[1] = byte(index & 0xFF)
		payload[2] = byte(index >> 8)
		payload[3] = 4

		response, err := e.sendWithPayload(ctx, CmdSDOUpload, payload)
		if err != nil {
			return count, err
		}
		if len(response) < 2 {
			return count, fmt.Errorf("%w: BF response too short during dive count probe", ErrProtocolError)
		}

		ecopEnd := len(response)
		if ecopEnd > 0 && response[ecopEnd-1] == END {
			ecopEnd--
		}
		ecop := response[1:ecopEnd]
		if len(ecop) == 0 || ecop[0] == statusAbort {
			break
		}
		count++
	}
	return count, nil
}
