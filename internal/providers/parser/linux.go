package parser

import (
	"strings"

	"github.com/sandevgo/tusknet/internal/core"
)

// parseIPBriefAddr reads `ip -br addr`: name, state, then addresses.
func parseIPBriefAddr(output string) []core.Row {
	var rows []core.Row
	for _, line := range lines(output) {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[1] {
		case "UP", "DOWN", "UNKNOWN", "DORMANT", "LOWERLAYERDOWN", "NOTPRESENT", "TESTING":
		default:
			continue
		}
		rows = append(rows, core.Row{
			"interface": fields[0],
			"state":     fields[1],
			"addresses": strings.Join(fields[2:], " "),
		})
	}
	return rows
}
