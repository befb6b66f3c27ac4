package main

import (
	"errors"
	"fmt"

	"github.com/srg/divex/internal/sdo"
	"github.com/srg/divex/internal/transport"
)

// FormatUserError renders err as a short, friendly message for stderr,
// translating the typed errors from internal/transport and internal/sdo
// into plain language where possible.
func FormatUserError(err error) string {
	switch {
	case errors.Is(err, transport.ErrNoAdapter):
		return "no BLE adapter available"
	case errors.Is(err, transport.ErrNoDeviceFound):
		return "device not found or missing required characteristics"
	case errors.Is(err, transport.ErrBleConnect):
		return fmt.Sprintf("connection failed: %v", err)
	case errors.Is(err, transport.ErrTimeout):
		return "operation timed out"
	case errors.Is(err, sdo.ErrNotFound):
		return "dive object not found on device"
	case errors.Is(err, sdo.ErrBadFraming), errors.Is(err, sdo.ErrUnexpectedAck), errors.Is(err, sdo.ErrProtocolError):
		return fmt.Sprintf("protocol error: %v", err)
	default:
		return err.Error()
	}
}
