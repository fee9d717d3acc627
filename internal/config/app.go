package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/sandevgo/tusknet/internal/core"
	"github.com/sandevgo/tusknet/pkg/log"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

var _ core.AppConfig = (*AppConfig)(nil)

type AppConfig struct {
	RuntimePath  string `env:"TUSKNET_RUNTIME_PATH"`
	ManifestPath string `env:"TUSKNET_MANIFEST"`

	// MCP transport
	Transport string `env:"TUSKNET_TRANSPORT" envDefault:"stdio"`
	HTTPAddr  string `env:"TUSKNET_HTTP_ADDR" envDefault:"127.0.0.1:8808"`

	CommandTimeout  time.Duration `env:"TUSKNET_COMMAND_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"TUSKNET_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	EnableJournal  bool   `env:"TUSKNET_JOURNAL" envDefault:"true"`
	KnownHostsPath string `env:"TUSKNET_KNOWN_HOSTS"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c, err := LoadAppConfig()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

// LoadAppConfig reads the process environment.
func LoadAppConfig() (*AppConfig, error) {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	c.RuntimePath = GetRuntimePath()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c AppConfig) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("TUSKNET_TRANSPORT %q is invalid, must be 'stdio' or 'http'", c.Transport)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("TUSKNET_COMMAND_TIMEOUT must be positive")
	}
	return nil
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

// GetManifestPath falls back to devices.yaml in the runtime directory.
func (c AppConfig) GetManifestPath() string {
	if c.ManifestPath != "" {
		return c.ManifestPath
	}
	return filepath.Join(c.RuntimePath, "devices.yaml")
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "tusknet.db")
}

func (c AppConfig) GetCommandTimeout() time.Duration {
	return c.CommandTimeout
}

func (c AppConfig) GetShutdownTimeout() time.Duration {
	return c.ShutdownTimeout
}

func (c AppConfig) IsJournalEnabled() bool {
	return c.EnableJournal
}

func (c AppConfig) IsHTTPTransport() bool {
	return c.Transport == TransportHTTP
}

func (c AppConfig) GetHTTPAddr() string {
	return c.HTTPAddr
}

func (c AppConfig) GetKnownHostsPath() string {
	return c.KnownHostsPath
}
