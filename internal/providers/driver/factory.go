package driver

import (
	"fmt"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/sandevgo/tusknet/internal/core"
)

var _ core.DriverFactory = (*Factory)(nil)

// Factory builds drivers from the dialect table.
type Factory struct {
	hostKeyCallback ssh.HostKeyCallback
}

type FactoryOption func(*Factory)

// WithHostKeyCallback overrides SSH host key verification.
func WithHostKeyCallback(cb ssh.HostKeyCallback) FactoryOption {
	return func(f *Factory) { f.hostKeyCallback = cb }
}

// NewFactory returns a factory. When knownHostsPath is set SSH host keys are
// checked against it, otherwise any host key is accepted.
func NewFactory(knownHostsPath string, opts ...FactoryOption) (*Factory, error) {
	f := &Factory{hostKeyCallback: ssh.InsecureIgnoreHostKey()}
	if knownHostsPath != "" {
		cb, err := knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("load known hosts %s: %w", knownHostsPath, err)
		}
		f.hostKeyCallback = cb
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Factory) NewDriver(deviceType string) (core.DeviceDriver, error) {
	d, ok := Lookup(deviceType)
	if !ok {
		return nil, core.UnsupportedDeviceType(deviceType)
	}
	if d.Transport == TransportTelnet {
		return &telnetDriver{dialect: d}, nil
	}
	return &sshDriver{dialect: d, hostKeyCallback: f.hostKeyCallback}, nil
}

func (f *Factory) Supported() []string {
	return Tags()
}
