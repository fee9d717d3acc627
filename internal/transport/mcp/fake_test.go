package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sandevgo/tusknet/internal/core"
)

type fakeFactory struct{}

func (fakeFactory) NewDriver(deviceType string) (core.DeviceDriver, error) {
	if deviceType != "cisco_ios" {
		return nil, core.UnsupportedDeviceType(deviceType)
	}
	return fakeDriver{}, nil
}

func (fakeFactory) Supported() []string {
	return []string{"cisco_ios"}
}

type fakeDriver struct{}

func (fakeDriver) Open(_ context.Context, params core.ConnectionParams) (core.DeviceConn, error) {
	if params.Password == "wrong" {
		return nil, fmt.Errorf("login to %s: %w", params.Host, core.ErrAuthentication)
	}
	return &fakeConn{}, nil
}

type fakeConn struct {
	mu   sync.Mutex
	sent [][]string
}

func (c *fakeConn) Run(_ context.Context, req core.Request) (string, error) {
	c.mu.Lock()
	c.sent = append(c.sent, req.Commands)
	c.mu.Unlock()

	if req.Mode == core.ModeRead {
		switch req.Commands[0] {
		case "show version":
			return "Cisco IOS Software, Version 15.2(4)E7\nr1 uptime is 3 weeks", nil
		default:
			return "% Invalid input detected at '^' marker.", core.ErrDeviceRejected
		}
	}

	var out []string
	for _, cmd := range req.Commands {
		if strings.HasPrefix(cmd, "bogus") {
			return strings.Join(out, "\n"), fmt.Errorf("%w: %q", core.ErrDeviceRejected, cmd)
		}
		out = append(out, "r1(config)#"+cmd)
	}
	return strings.Join(out, "\n"), nil
}

func (c *fakeConn) Prompt() string {
	return "r1#"
}

func (c *fakeConn) Close() error {
	return nil
}
