package core

import "context"

// DeviceDriver opens sessions to devices of one dialect.
type DeviceDriver interface {
	Open(ctx context.Context, params ConnectionParams) (DeviceConn, error)
}

// DeviceConn is a live handle to one device. Implementations are not required
// to be safe for concurrent use; the owning session serializes access.
type DeviceConn interface {
	// Run executes the request and returns the device output. On failure the
	// output gathered so far is returned alongside the error.
	Run(ctx context.Context, req Request) (string, error)
	Prompt() string
	Close() error
}

// DriverFactory resolves a device-type tag to a driver.
type DriverFactory interface {
	NewDriver(deviceType string) (DeviceDriver, error)
	Supported() []string
}

// StructuredParser turns raw command output into rows.
type StructuredParser interface {
	Parse(deviceType, command, output string) ([]Row, error)
}

// SessionJournal records session lifecycle events.
type SessionJournal interface {
	Record(ctx context.Context, event SessionEvent) error
	Recent(ctx context.Context, deviceID string, limit int) ([]SessionEvent, error)
}

// PortDefaulter is implemented by drivers whose transport has its own
// well-known port, e.g. 23 for Telnet.
type PortDefaulter interface {
	DefaultPort() int
}
