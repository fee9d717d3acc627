package mcp

import (
	"context"
	"errors"
	"io"
	stdlog "log"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/sandevgo/tusknet/internal/core"
	"github.com/sandevgo/tusknet/internal/service/device"
	"github.com/sandevgo/tusknet/pkg/log"
	"github.com/sandevgo/tusknet/pkg/srv"
)

const endpointPath = "/mcp"

// Devices is the dispatcher surface exposed as tools and resources.
type Devices interface {
	ConnectDevice(ctx context.Context, id string, params core.ConnectionParams) (core.DeviceInfo, error)
	DisconnectDevice(ctx context.Context, id string) (string, error)
	SendCommand(ctx context.Context, id, command string, opts core.CommandOptions) (core.CommandResult, error)
	SendConfigCommands(ctx context.Context, id string, commands []string, exitConfigMode bool) (core.CommandResult, error)
	GetDeviceInfo(id string) (core.DeviceInfo, error)
	ListConnectedDevices() []core.DeviceInfo
	SupportedDeviceTypes() []string
	Inventory(id string) (device.InventoryEntry, bool)
	InventoryIDs() []string
}

var _ srv.Service = (*Server)(nil)

type Option func(*Server)

// WithHTTP serves streamable HTTP on addr instead of stdio.
func WithHTTP(addr string) Option {
	return func(s *Server) { s.httpAddr = addr }
}

// WithStdio replaces the process stdin and stdout.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.stdin = in
		s.stdout = out
	}
}

type Server struct {
	devices Devices
	mcp     *server.MCPServer

	stdin    io.Reader
	stdout   io.Writer
	httpAddr string
	http     *server.StreamableHTTPServer
}

func NewServer(devices Devices, opts ...Option) *Server {
	s := &Server{
		devices: devices,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(core.TuskNetName, core.TuskNetVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithInstructions("Manage CLI sessions to network devices. Connect a device first, then send commands by device_id."),
	)
	s.registerTools()
	s.registerResources()

	if s.httpAddr != "" {
		s.http = server.NewStreamableHTTPServer(s.mcp, server.WithEndpointPath(endpointPath))
	}
	return s
}

// MCPServer exposes the protocol server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Start serves until ctx ends. On stdio, a closed stdin returns srv.ErrExited
// so the process shuts down with its client.
func (s *Server) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)

	if s.http != nil {
		logger.Info().Str("addr", s.httpAddr).Str("path", endpointPath).Msg("Serving MCP over HTTP")
		if err := s.http.Start(s.httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	logger.Info().Msg("Serving MCP over stdio")
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(stdlog.New(logger, "", 0))

	err := stdio.Listen(ctx, s.stdin, s.stdout)
	if ctx.Err() != nil {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return srv.ErrExited
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
