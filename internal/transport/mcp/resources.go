package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/sandevgo/tusknet/internal/core"
	"github.com/sandevgo/tusknet/internal/providers/driver"
)

const (
	deviceURIScheme   = "device://"
	deviceURITemplate = deviceURIScheme + "{device_id}"
	jsonMIME          = "application/json"
)

type deviceResource struct {
	DeviceID   string     `json:"device_id"`
	Host       string     `json:"host"`
	DeviceType string     `json:"device_type"`
	Port       int        `json:"port"`
	Timeout    int        `json:"timeout"`
	Connected  bool       `json:"connected"`
	State      core.State `json:"state"`
	Prompt     string     `json:"prompt,omitempty"`
}

func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(
		mcpproto.NewResourceTemplate(deviceURITemplate, "device",
			mcpproto.WithTemplateDescription("Session and inventory details for one device"),
			mcpproto.WithTemplateMIMEType(jsonMIME),
		),
		s.readDevice,
	)

	for _, id := range s.devices.InventoryIDs() {
		s.mcp.AddResource(
			mcpproto.NewResource(deviceURIScheme+id, id,
				mcpproto.WithResourceDescription("Manifest device "+id),
				mcpproto.WithMIMEType(jsonMIME),
			),
			s.readDevice,
		)
	}
}

func (s *Server) readDevice(_ context.Context, req mcpproto.ReadResourceRequest) ([]mcpproto.ResourceContents, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, deviceURIScheme)
	if id == uri || id == "" {
		return nil, fmt.Errorf("invalid device uri %q", uri)
	}

	res, err := s.describe(id)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to encode device %s: %w", id, err)
	}

	return []mcpproto.ResourceContents{
		mcpproto.TextResourceContents{
			URI:      uri,
			MIMEType: jsonMIME,
			Text:     string(body),
		},
	}, nil
}

// describe prefers the live session and falls back to the manifest entry.
func (s *Server) describe(id string) (deviceResource, error) {
	if info, err := s.devices.GetDeviceInfo(id); err == nil {
		return deviceResource{
			DeviceID:   info.DeviceID,
			Host:       info.Host,
			DeviceType: info.DeviceType,
			Port:       info.Port,
			Timeout:    info.Timeout,
			Connected:  info.Connected,
			State:      info.State,
			Prompt:     info.Prompt,
		}, nil
	}

	entry, ok := s.devices.Inventory(id)
	if !ok {
		return deviceResource{}, core.UnknownDevice(id)
	}
	p := entry.Params
	if dialect, ok := driver.Lookup(p.DeviceType); ok && p.Port == 0 {
		p.Port = dialect.DefaultPort()
	}
	p = p.WithDefaults()
	return deviceResource{
		DeviceID:   id,
		Host:       p.Host,
		DeviceType: p.DeviceType,
		Port:       p.Port,
		Timeout:    int(p.Timeout / time.Second),
		Connected:  false,
		State:      core.StateDisconnected,
	}, nil
}
