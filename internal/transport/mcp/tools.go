package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/sandevgo/tusknet/internal/core"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(connectDeviceTool(s.devices.SupportedDeviceTypes()), s.connectDevice)
	s.mcp.AddTool(disconnectDeviceTool(), s.disconnectDevice)
	s.mcp.AddTool(sendCommandTool(), s.sendCommand)
	s.mcp.AddTool(sendConfigCommandsTool(), s.sendConfigCommands)
	s.mcp.AddTool(getDeviceInfoTool(), s.getDeviceInfo)
	s.mcp.AddTool(listConnectedDevicesTool(), s.listConnectedDevices)
}

func connectDeviceTool(deviceTypes []string) mcpproto.Tool {
	return mcpproto.NewTool("connect_device",
		mcpproto.WithDescription("Open a CLI session to a network device. Parameters left out are taken from the startup manifest entry with the same device_id."),
		mcpproto.WithString("device_id", mcpproto.Required(),
			mcpproto.Description("Unique name for this device session")),
		mcpproto.WithString("host",
			mcpproto.Description("IP address or hostname")),
		mcpproto.WithString("device_type",
			mcpproto.Description("Device dialect, e.g. cisco_ios"),
			mcpproto.Enum(deviceTypes...)),
		mcpproto.WithString("username",
			mcpproto.Description("Login username")),
		mcpproto.WithString("password",
			mcpproto.Description("Login password")),
		mcpproto.WithNumber("port",
			mcpproto.Description("TCP port (default 22, or 23 for telnet dialects)"),
			mcpproto.Min(1), mcpproto.Max(65535)),
		mcpproto.WithString("secret",
			mcpproto.Description("Enable secret for privileged mode")),
		mcpproto.WithNumber("timeout",
			mcpproto.Description("Connect timeout in seconds (default 30)"),
			mcpproto.Min(1)),
	)
}

func (s *Server) connectDevice(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	id, err := req.RequireString("device_id")
	if err != nil {
		return failure(core.InvalidArgument("", "device_id is required"), nil), nil
	}

	params := core.ConnectionParams{
		Host:       strings.TrimSpace(req.GetString("host", "")),
		DeviceType: strings.ToLower(strings.TrimSpace(req.GetString("device_type", ""))),
		Username:   req.GetString("username", ""),
		Password:   req.GetString("password", ""),
		Secret:     req.GetString("secret", ""),
		Port:       req.GetInt("port", 0),
		Timeout:    time.Duration(req.GetInt("timeout", 0)) * time.Second,
	}

	info, err := s.devices.ConnectDevice(ctx, id, params)
	if err != nil {
		return failure(err, nil), nil
	}
	return success(info, ""), nil
}

func disconnectDeviceTool() mcpproto.Tool {
	return mcpproto.NewTool("disconnect_device",
		mcpproto.WithDescription("Close the session to a device and forget it."),
		mcpproto.WithString("device_id", mcpproto.Required(),
			mcpproto.Description("Device session name")),
	)
}

type disconnectResult struct {
	DeviceID     string `json:"device_id"`
	Disconnected bool   `json:"disconnected"`
}

func (s *Server) disconnectDevice(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	id, err := req.RequireString("device_id")
	if err != nil {
		return failure(core.InvalidArgument("", "device_id is required"), nil), nil
	}

	warning, err := s.devices.DisconnectDevice(ctx, id)
	if err != nil {
		return failure(err, nil), nil
	}
	return success(disconnectResult{DeviceID: id, Disconnected: true}, warning), nil
}

func sendCommandTool() mcpproto.Tool {
	return mcpproto.NewTool("send_command",
		mcpproto.WithDescription("Run one read-only command on a connected device and return its output."),
		mcpproto.WithString("device_id", mcpproto.Required(),
			mcpproto.Description("Device session name")),
		mcpproto.WithString("command", mcpproto.Required(),
			mcpproto.Description("Command to run, e.g. 'show version'")),
		mcpproto.WithBoolean("use_structured_parsing",
			mcpproto.Description("Return parsed rows when a parser exists for the command"),
			mcpproto.DefaultBool(false)),
		mcpproto.WithBoolean("strip_prompt",
			mcpproto.Description("Remove the trailing device prompt"),
			mcpproto.DefaultBool(true)),
		mcpproto.WithBoolean("strip_command",
			mcpproto.Description("Remove the echoed command"),
			mcpproto.DefaultBool(true)),
	)
}

func (s *Server) sendCommand(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	id, err := req.RequireString("device_id")
	if err != nil {
		return failure(core.InvalidArgument("", "device_id is required"), nil), nil
	}
	command, err := req.RequireString("command")
	if err != nil {
		return failure(core.InvalidArgument(id, "command is required"), nil), nil
	}

	opts := core.CommandOptions{
		StructuredParsing: req.GetBool("use_structured_parsing", false),
		StripPrompt:       req.GetBool("strip_prompt", true),
		StripCommand:      req.GetBool("strip_command", true),
	}

	result, err := s.devices.SendCommand(ctx, id, command, opts)
	if err != nil {
		return failure(err, nil), nil
	}
	return success(result, result.Warning), nil
}

func sendConfigCommandsTool() mcpproto.Tool {
	return mcpproto.NewTool("send_config_commands",
		mcpproto.WithDescription("Apply an ordered batch of configuration commands. The batch stops at the first line the device rejects."),
		mcpproto.WithString("device_id", mcpproto.Required(),
			mcpproto.Description("Device session name")),
		mcpproto.WithArray("commands", mcpproto.Required(),
			mcpproto.Description("Configuration lines in order"),
			mcpproto.WithStringItems()),
		mcpproto.WithBoolean("exit_config_mode",
			mcpproto.Description("Leave configuration mode after the batch"),
			mcpproto.DefaultBool(true)),
	)
}

func (s *Server) sendConfigCommands(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	id, err := req.RequireString("device_id")
	if err != nil {
		return failure(core.InvalidArgument("", "device_id is required"), nil), nil
	}
	commands, err := stringSlice(req.GetArguments(), "commands")
	if err != nil {
		return failure(core.InvalidArgument(id, "%v", err), nil), nil
	}

	result, err := s.devices.SendConfigCommands(ctx, id, commands, req.GetBool("exit_config_mode", true))
	if err != nil {
		var partial any
		if result.Output != "" {
			partial = result
		}
		return failure(err, partial), nil
	}
	return success(result, ""), nil
}

func getDeviceInfoTool() mcpproto.Tool {
	return mcpproto.NewTool("get_device_info",
		mcpproto.WithDescription("Describe a device session: address, dialect, state and prompt."),
		mcpproto.WithString("device_id", mcpproto.Required(),
			mcpproto.Description("Device session name")),
	)
}

func (s *Server) getDeviceInfo(_ context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	id, err := req.RequireString("device_id")
	if err != nil {
		return failure(core.InvalidArgument("", "device_id is required"), nil), nil
	}

	info, err := s.devices.GetDeviceInfo(id)
	if err != nil {
		return failure(err, nil), nil
	}
	return success(info, ""), nil
}

func listConnectedDevicesTool() mcpproto.Tool {
	return mcpproto.NewTool("list_connected_devices",
		mcpproto.WithDescription("List every registered device session."),
	)
}

type deviceList struct {
	Devices []core.DeviceInfo `json:"devices"`
	Count   int               `json:"count"`
}

func (s *Server) listConnectedDevices(_ context.Context, _ mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	devices := s.devices.ListConnectedDevices()
	if devices == nil {
		devices = []core.DeviceInfo{}
	}
	return success(deviceList{Devices: devices, Count: len(devices)}, ""), nil
}

// stringSlice reads a JSON array of strings from the tool arguments.
func stringSlice(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%s is required", key)
	}

	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", key, i)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}
}
