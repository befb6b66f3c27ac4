package transport

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a category of transport failure, independent of the
// underlying BLE library's own error text.
type Kind string

const (
	KindNoAdapter      Kind = "no_adapter"
	KindNoDeviceFound  Kind = "no_device_found"
	KindBleConnect     Kind = "ble_connect"
	KindBleWrite       Kind = "ble_write"
	KindBleRead        Kind = "ble_read"
	KindTimeout        Kind = "timeout"
	KindChannelClosed  Kind = "channel_closed"
	KindNoData         Kind = "no_data"
)

// Error is a typed transport failure. Two Errors compare equal under
// errors.Is when their Kind matches, regardless of Msg.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Sentinel values for errors.Is comparisons that don't need a message.
var (
	ErrNoAdapter     = &Error{Kind: KindNoAdapter}
	ErrNoDeviceFound = &Error{Kind: KindNoDeviceFound}
	ErrBleConnect    = &Error{Kind: KindBleConnect}
	ErrBleWrite      = &Error{Kind: KindBleWrite}
	ErrBleRead       = &Error{Kind: KindBleRead}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrChannelClosed = &Error{Kind: KindChannelClosed}
	ErrNoData        = &Error{Kind: KindNoData}
)

// normalizeConnError lifts go-ble's string-only errors (observed on some
// platforms) into typed Errors. Mirrors internal/device's NormalizeError
// substring-matching technique, which exists for the same reason: the
// underlying library doesn't expose structured error values on every OS.
func normalizeConnError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not connected"):
		return fmt.Errorf("%w: %v", ErrBleRead, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case strings.Contains(msg, "no such device") || strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %v", ErrNoDeviceFound, err)
	default:
		return err
	}
}

// IsKind reports whether err (or anything it wraps) is a transport *Error
// with the given Kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}
