package device

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandevgo/tusknet/internal/core"
)

// mockConn records every request and tracks how many Run calls overlap.
type mockConn struct {
	prompt string
	delay  time.Duration
	runErr error
	output func(req core.Request) string

	mu       sync.Mutex
	requests []core.Request
	closed   atomic.Int32
	active   atomic.Int32
	maxSeen  atomic.Int32
	closeErr error
}

func newMockConn() *mockConn {
	return &mockConn{prompt: "r1#"}
}

func (c *mockConn) Run(ctx context.Context, req core.Request) (string, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		cur := c.maxSeen.Load()
		if n <= cur || c.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.runErr != nil {
		return "partial", c.runErr
	}
	if c.output != nil {
		return c.output(req), nil
	}
	return "output of " + strings.Join(req.Commands, "; "), nil
}

func (c *mockConn) Prompt() string {
	return c.prompt
}

func (c *mockConn) Close() error {
	c.closed.Add(1)
	return c.closeErr
}

func (c *mockConn) Requests() []core.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Request(nil), c.requests...)
}

type mockDriver struct {
	conn    *mockConn
	openErr error
	delay   time.Duration
	opens   atomic.Int32
}

func (d *mockDriver) Open(ctx context.Context, params core.ConnectionParams) (core.DeviceConn, error) {
	d.opens.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.conn, nil
}

// mockFactory hands out one driver per device host so tests can address
// connections by host.
type mockFactory struct {
	mu      sync.Mutex
	drivers map[string]*mockDriver
	def     *mockDriver
}

func newMockFactory() *mockFactory {
	return &mockFactory{
		drivers: make(map[string]*mockDriver),
		def:     &mockDriver{conn: newMockConn()},
	}
}

func (f *mockFactory) NewDriver(deviceType string) (core.DeviceDriver, error) {
	if deviceType != "cisco_ios" && deviceType != "linux" {
		return nil, core.UnsupportedDeviceType(deviceType)
	}
	return &hostDriver{factory: f}, nil
}

func (f *mockFactory) Supported() []string {
	return []string{"cisco_ios", "linux"}
}

func (f *mockFactory) set(host string, d *mockDriver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drivers[host] = d
}

func (f *mockFactory) get(host string) *mockDriver {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.drivers[host]; ok {
		return d
	}
	return f.def
}

type hostDriver struct {
	factory *mockFactory
}

func (h *hostDriver) Open(ctx context.Context, params core.ConnectionParams) (core.DeviceConn, error) {
	return h.factory.get(params.Host).Open(ctx, params)
}

type mockParser struct {
	err error
}

func (p mockParser) Parse(deviceType, command, output string) ([]core.Row, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []core.Row{{"command": command, "device_type": deviceType}}, nil
}

type memJournal struct {
	mu     sync.Mutex
	events []core.SessionEvent
}

func (j *memJournal) Record(_ context.Context, ev core.SessionEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

func (j *memJournal) Recent(_ context.Context, deviceID string, limit int) ([]core.SessionEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []core.SessionEvent
	for _, ev := range j.events {
		if deviceID == "" || ev.DeviceID == deviceID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (j *memJournal) States(deviceID string) []core.State {
	events, _ := j.Recent(context.Background(), deviceID, 0)
	states := make([]core.State, 0, len(events))
	for _, ev := range events {
		states = append(states, ev.State)
	}
	return states
}

var errBoom = errors.New("boom")

func cisco(host string) core.ConnectionParams {
	return core.ConnectionParams{
		Host:       host,
		DeviceType: "cisco_ios",
		Username:   "admin",
		Password:   "secret",
	}
}
