package core

import "time"

type AppConfig interface {
	GetRuntimePath() string
	GetManifestPath() string
	GetDatabasePath() string
	GetCommandTimeout() time.Duration
	GetShutdownTimeout() time.Duration
	IsJournalEnabled() bool
	IsHTTPTransport() bool
	GetHTTPAddr() string
	GetKnownHostsPath() string
}
