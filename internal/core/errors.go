package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
)

// ErrorKind is the caller-visible failure category.
type ErrorKind string

const (
	KindDuplicateDevice       ErrorKind = "DuplicateDevice"
	KindUnknownDevice         ErrorKind = "UnknownDevice"
	KindUnsupportedDeviceType ErrorKind = "UnsupportedDeviceType"
	KindConnectFailure        ErrorKind = "ConnectFailure"
	KindNotConnected          ErrorKind = "NotConnected"
	KindCommandFailure        ErrorKind = "CommandFailure"
	KindTimeout               ErrorKind = "Timeout"
	KindInvalidArgument       ErrorKind = "InvalidArgument"
)

// Reason refines ConnectFailure and CommandFailure.
type Reason string

const (
	ReasonAuthentication   Reason = "authentication"
	ReasonTimeout          Reason = "timeout"
	ReasonUnreachable      Reason = "unreachable"
	ReasonTransportDropped Reason = "transportDropped"
	ReasonDeviceRejected   Reason = "deviceRejected"
)

// Driver-level failures. Drivers wrap one of these so sessions can classify
// the error without knowing the transport.
var (
	ErrAuthentication   = errors.New("authentication failed")
	ErrUnreachable      = errors.New("device unreachable")
	ErrTransportDropped = errors.New("transport dropped")
	ErrDeviceRejected   = errors.New("command rejected by device")
	ErrDriverTimeout    = errors.New("timed out waiting for device")
)

// DeviceError is the only error type that leaves the dispatcher.
type DeviceError struct {
	Kind     ErrorKind
	Reason   Reason
	DeviceID string
	Err      error
}

func (e *DeviceError) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += "(" + string(e.Reason) + ")"
	}
	if e.DeviceID != "" {
		msg += " " + e.DeviceID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Message is the human readable part without the kind prefix.
func (e *DeviceError) Message() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func NewDeviceError(kind ErrorKind, deviceID string, err error) *DeviceError {
	return &DeviceError{Kind: kind, DeviceID: deviceID, Err: err}
}

func DuplicateDevice(deviceID string) *DeviceError {
	return NewDeviceError(KindDuplicateDevice, deviceID, fmt.Errorf("device %s is already connected", deviceID))
}

func UnknownDevice(deviceID string) *DeviceError {
	return NewDeviceError(KindUnknownDevice, deviceID, fmt.Errorf("device %s is not connected", deviceID))
}

func NotConnected(deviceID string, state State) *DeviceError {
	return NewDeviceError(KindNotConnected, deviceID, fmt.Errorf("device %s is %s", deviceID, state))
}

func UnsupportedDeviceType(deviceType string) *DeviceError {
	return NewDeviceError(KindUnsupportedDeviceType, "", fmt.Errorf("unsupported device type %q", deviceType))
}

func InvalidArgument(deviceID, format string, args ...any) *DeviceError {
	return NewDeviceError(KindInvalidArgument, deviceID, fmt.Errorf(format, args...))
}

func Timeout(deviceID string, err error) *DeviceError {
	return NewDeviceError(KindTimeout, deviceID, err)
}

// ConnectFailure classifies an error returned by DeviceDriver.Open.
func ConnectFailure(deviceID string, err error) *DeviceError {
	reason := ReasonUnreachable
	switch {
	case errors.Is(err, ErrAuthentication):
		reason = ReasonAuthentication
	case isTimeout(err):
		reason = ReasonTimeout
	}
	return &DeviceError{Kind: KindConnectFailure, Reason: reason, DeviceID: deviceID, Err: err}
}

// CommandFailure classifies an error returned by DeviceConn.Run.
func CommandFailure(deviceID string, err error) *DeviceError {
	reason := ReasonDeviceRejected
	switch {
	case errors.Is(err, ErrTransportDropped), errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		reason = ReasonTransportDropped
	case isTimeout(err):
		reason = ReasonTimeout
	}
	return &DeviceError{Kind: KindCommandFailure, Reason: reason, DeviceID: deviceID, Err: err}
}

// AsDeviceError returns err as a DeviceError, wrapping unknown errors with
// the fallback kind.
func AsDeviceError(err error, deviceID string, fallback ErrorKind) *DeviceError {
	if err == nil {
		return nil
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(deviceID, err)
	}
	return NewDeviceError(fallback, deviceID, err)
}

// KindOf returns the ErrorKind carried by err, or "" when there is none.
func KindOf(err error) ErrorKind {
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func isTimeout(err error) bool {
	if errors.Is(err, ErrDriverTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
