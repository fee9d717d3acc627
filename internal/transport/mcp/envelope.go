package mcp

import (
	"encoding/json"
	"fmt"

	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/sandevgo/tusknet/internal/core"
)

// envelope is the body of every tool result. Domain failures are reported
// here with ok=false, never as protocol errors.
type envelope struct {
	OK        bool           `json:"ok"`
	Data      any            `json:"data,omitempty"`
	Warning   string         `json:"warning,omitempty"`
	ErrorKind core.ErrorKind `json:"errorKind,omitempty"`
	Reason    core.Reason    `json:"reason,omitempty"`
	Message   string         `json:"message,omitempty"`
}

func success(data any, warning string) *mcpproto.CallToolResult {
	return render(envelope{OK: true, Data: data, Warning: warning}, false)
}

// failure reports err. data carries partial results, e.g. the output of a
// config batch up to the rejected line.
func failure(err error, data any) *mcpproto.CallToolResult {
	de := core.AsDeviceError(err, "", core.KindCommandFailure)
	return render(envelope{
		OK:        false,
		Data:      data,
		ErrorKind: de.Kind,
		Reason:    de.Reason,
		Message:   de.Message(),
	}, true)
}

func render(e envelope, isError bool) *mcpproto.CallToolResult {
	body, err := json.Marshal(e)
	if err != nil {
		body = fmt.Appendf(nil, `{"ok":false,"errorKind":%q,"message":%q}`, core.KindCommandFailure, err.Error())
		isError = true
	}
	if isError {
		return mcpproto.NewToolResultError(string(body))
	}
	return mcpproto.NewToolResultText(string(body))
}
