package core

import "time"

const (
	TuskNetName    = "tusknet"
	TuskNetVersion = "0.1.0"
)

const (
	DefaultPort           = 22
	DefaultConnectTimeout = 30 * time.Second
)

// State is the lifecycle position of a device session.
type State string

const (
	StateConnecting    State = "Connecting"
	StateConnected     State = "Connected"
	StateDisconnecting State = "Disconnecting"
	StateDisconnected  State = "Disconnected"
	StateFailed        State = "Failed"
)

// Terminal reports whether a session in this state can no longer be used.
func (s State) Terminal() bool {
	return s == StateDisconnected || s == StateFailed
}

// Mode selects how a request is sent to the device.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) String() string {
	if m == ModeWrite {
		return "write"
	}
	return "read"
}

// ConnectionParams describes how to reach one device.
type ConnectionParams struct {
	Host       string
	Port       int
	DeviceType string
	Username   string
	Password   string
	Secret     string
	Timeout    time.Duration
}

// WithDefaults fills the port and timeout when they are unset.
func (p ConnectionParams) WithDefaults() ConnectionParams {
	if p.Port <= 0 {
		p.Port = DefaultPort
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultConnectTimeout
	}
	return p
}

// Request is one unit of work handed to a device connection. Read requests
// carry exactly one command; write requests carry an ordered batch.
type Request struct {
	Mode           Mode
	Commands       []string
	StripPrompt    bool
	StripCommand   bool
	ExitConfigMode bool
}

// DeviceInfo is a point-in-time description of a session.
type DeviceInfo struct {
	DeviceID     string     `json:"device_id"`
	Host         string     `json:"host"`
	DeviceType   string     `json:"device_type"`
	Port         int        `json:"port"`
	Timeout      int        `json:"timeout"` // seconds
	State        State      `json:"state"`
	Connected    bool       `json:"connected"`
	Prompt       string     `json:"prompt,omitempty"`
	ConnectedAt  *time.Time `json:"connected_at,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// CommandOptions controls a read command.
type CommandOptions struct {
	StructuredParsing bool
	StripPrompt       bool
	StripCommand      bool
}

// DefaultCommandOptions matches the tool defaults: strip both prompt and echo.
func DefaultCommandOptions() CommandOptions {
	return CommandOptions{StripPrompt: true, StripCommand: true}
}

// Row is one record of structured command output.
type Row map[string]string

// CommandResult is the per-invocation outcome of a command or batch.
type CommandResult struct {
	DeviceID  string        `json:"device_id"`
	Command   string        `json:"command,omitempty"`
	Commands  []string      `json:"commands,omitempty"`
	Success   bool          `json:"success"`
	Output    string        `json:"output,omitempty"`
	Rows      []Row         `json:"rows,omitempty"`
	Parsed    bool          `json:"parsed"`
	Warning   string        `json:"warning,omitempty"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Reason    Reason        `json:"reason,omitempty"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// SessionEvent is one lifecycle transition recorded by the journal.
type SessionEvent struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"device_id"`
	Host       string    `json:"host"`
	DeviceType string    `json:"device_type"`
	State      State     `json:"state"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
