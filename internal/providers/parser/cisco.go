package parser

import (
	"regexp"
	"strings"

	"github.com/sandevgo/tusknet/internal/core"
)

var (
	versionRegex  = regexp.MustCompile(`(?m)(?:, Version|Software image version:|^\s*NXOS: version|^\s*system:\s+version)\s+([^\s,]+)`)
	uptimeRegex   = regexp.MustCompile(`(?m)^(\S+) uptime is (.+)$`)
	eosUptime     = regexp.MustCompile(`(?m)^Uptime:\s+(.+)$`)
	imageRegex    = regexp.MustCompile(`System image file is "([^"]+)"`)
	hardwareRegex = regexp.MustCompile(`(?mi)^cisco\s+(\S+)\s.*(?:processor|chassis)`)
	eosHardware   = regexp.MustCompile(`(?m)^Arista\s+(\S+)\s*$`)
	serialRegex   = regexp.MustCompile(`(?mi)(?:Processor board ID|Serial number:)\s+(\S+)`)

	ipBriefRegex = regexp.MustCompile(`^(\S+)\s+(\S+)\s+(YES|NO)\s+(\S+)\s+(up|down|administratively down|deleted)\s+(up|down)\s*$`)
	vlanRegex    = regexp.MustCompile(`^(\d{1,4})\s+(\S+)\s+(active|act/lshut|sus/lshut|act/unsup|suspended|sus)\s*(.*)$`)
	statusRegex  = regexp.MustCompile(`^(\S+)\s+(.*?)\s*\b(connected|notconnect|disabled|err-disabled|inactive|sfpAbsent|xcvrAbsent|monitoring|suspended|noOperMem)\s+(\S+)\s+(\S+)\s+(\S+)\s*(.*)$`)
	trunkRegex   = regexp.MustCompile(`^(\S+)\s+(on|auto|desirable|off|nonegotiate|trunk)\s+(\S+)\s+(\S+)\s+(\d+)\s*$`)
	macRegex     = regexp.MustCompile(`^[0-9a-fA-F]{4}\.[0-9a-fA-F]{4}\.[0-9a-fA-F]{4}$`)
	ifaceRegex   = regexp.MustCompile(`^[A-Za-z][A-Za-z-]*\d+(?:/\d+){0,3}(?:\.\d+)?$`)
)

func parseShowVersion(output string) []core.Row {
	row := core.Row{}
	if m := versionRegex.FindStringSubmatch(output); m != nil {
		row["version"] = m[1]
	}
	if m := uptimeRegex.FindStringSubmatch(output); m != nil {
		row["hostname"] = m[1]
		row["uptime"] = strings.TrimSpace(m[2])
	} else if m := eosUptime.FindStringSubmatch(output); m != nil {
		row["uptime"] = strings.TrimSpace(m[1])
	}
	if m := imageRegex.FindStringSubmatch(output); m != nil {
		row["image"] = m[1]
	}
	if m := hardwareRegex.FindStringSubmatch(output); m != nil {
		row["hardware"] = m[1]
	} else if m := eosHardware.FindStringSubmatch(output); m != nil {
		row["hardware"] = m[1]
	}
	if m := serialRegex.FindStringSubmatch(output); m != nil {
		row["serial"] = m[1]
	}
	if len(row) == 0 {
		return nil
	}
	return []core.Row{row}
}

func parseIPInterfaceBrief(output string) []core.Row {
	var rows []core.Row
	for _, line := range lines(output) {
		m := ipBriefRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rows = append(rows, core.Row{
			"interface":  m[1],
			"ip_address": m[2],
			"ok":         m[3],
			"method":     m[4],
			"status":     m[5],
			"protocol":   m[6],
		})
	}
	return rows
}

// parseVLANBrief folds the wrapped port lines into the VLAN above them.
func parseVLANBrief(output string) []core.Row {
	var rows []core.Row
	var ports []string
	flush := func() {
		if len(rows) > 0 {
			rows[len(rows)-1]["interfaces"] = strings.Join(ports, ",")
		}
		ports = nil
	}

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if m := vlanRegex.FindStringSubmatch(line); m != nil {
			flush()
			rows = append(rows, core.Row{
				"vlan_id": m[1],
				"name":    m[2],
				"status":  m[3],
			})
			ports = splitPorts(m[4])
			continue
		}
		if len(rows) > 0 && strings.HasPrefix(raw, " ") && !isSeparator(line) {
			ports = append(ports, splitPorts(line)...)
		}
	}
	flush()
	return rows
}

func parseInterfacesStatus(output string) []core.Row {
	var rows []core.Row
	for _, line := range lines(output) {
		m := statusRegex.FindStringSubmatch(line)
		if m == nil || !ifaceRegex.MatchString(m[1]) {
			continue
		}
		rows = append(rows, core.Row{
			"port":   m[1],
			"name":   strings.TrimSpace(m[2]),
			"status": m[3],
			"vlan":   m[4],
			"duplex": m[5],
			"speed":  m[6],
			"type":   strings.TrimSpace(m[7]),
		})
	}
	return rows
}

// parseInterfacesTrunk reads the first section of the output only; later
// sections list VLANs per port.
func parseInterfacesTrunk(output string) []core.Row {
	var rows []core.Row
	for _, line := range lines(output) {
		m := trunkRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rows = append(rows, core.Row{
			"port":          m[1],
			"mode":          m[2],
			"encapsulation": m[3],
			"status":        m[4],
			"native_vlan":   m[5],
		})
	}
	return rows
}

func parseMACTable(output string) []core.Row {
	var rows []core.Row
	for _, line := range lines(output) {
		fields := strings.Fields(strings.TrimPrefix(line, "*"))
		macIdx := -1
		for i, f := range fields {
			if macRegex.MatchString(f) {
				macIdx = i
				break
			}
		}
		if macIdx < 1 || macIdx+1 >= len(fields) {
			continue
		}

		port := ""
		for _, f := range fields[macIdx+2:] {
			if ifaceRegex.MatchString(f) || strings.EqualFold(f, "CPU") {
				port = f
				break
			}
		}
		if port == "" {
			port = fields[len(fields)-1]
		}

		rows = append(rows, core.Row{
			"vlan":        fields[macIdx-1],
			"mac_address": strings.ToLower(fields[macIdx]),
			"type":        strings.ToLower(fields[macIdx+1]),
			"port":        port,
		})
	}
	return rows
}

func lines(output string) []string {
	var out []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isSeparator(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func splitPorts(s string) []string {
	var ports []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ports = append(ports, p)
		}
	}
	return ports
}

func isSeparator(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 3 {
		return false
	}
	for _, ch := range trimmed {
		if ch != '-' && ch != '=' && ch != '+' && ch != ' ' {
			return false
		}
	}
	return true
}
