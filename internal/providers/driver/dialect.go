package driver

import (
	"regexp"
	"slices"
	"strings"
)

type Transport string

const (
	TransportSSH    Transport = "ssh"
	TransportTelnet Transport = "telnet"
)

// Dialect describes how to drive the CLI of one device family.
type Dialect struct {
	Name      string
	Family    string
	Transport Transport

	// PromptTerminators are the characters a prompt may end with.
	PromptTerminators string
	// PrivilegedTerminator marks a prompt that needs no enable step.
	PrivilegedTerminator string
	EnableCommand        string
	PagingCommands       []string
	ConfigEnter          string
	ConfigExit           string
	VersionCommand       string
	// ErrorHints are substrings that mark a rejected command.
	ErrorHints []string
}

var ciscoErrors = []string{
	"% Invalid input",
	"% Incomplete command",
	"% Ambiguous command",
	"% Unknown command",
	"% Invalid command",
}

var dialects = map[string]Dialect{
	"cisco_ios": {
		Family:               "cisco",
		PromptTerminators:    ">#",
		PrivilegedTerminator: "#",
		EnableCommand:        "enable",
		PagingCommands:       []string{"terminal length 0", "terminal width 511"},
		ConfigEnter:          "configure terminal",
		ConfigExit:           "end",
		VersionCommand:       "show version",
		ErrorHints:           ciscoErrors,
	},
	"cisco_xe": {
		Family:               "cisco",
		PromptTerminators:    ">#",
		PrivilegedTerminator: "#",
		EnableCommand:        "enable",
		PagingCommands:       []string{"terminal length 0", "terminal width 511"},
		ConfigEnter:          "configure terminal",
		ConfigExit:           "end",
		VersionCommand:       "show version",
		ErrorHints:           ciscoErrors,
	},
	"cisco_nxos": {
		Family:               "cisco_nxos",
		PromptTerminators:    ">#",
		PrivilegedTerminator: "#",
		PagingCommands:       []string{"terminal length 0", "terminal width 511"},
		ConfigEnter:          "configure terminal",
		ConfigExit:           "end",
		VersionCommand:       "show version",
		ErrorHints:           append(slices.Clone(ciscoErrors), "% Permission denied"),
	},
	"cisco_xr": {
		Family:               "cisco_xr",
		PromptTerminators:    ">#",
		PrivilegedTerminator: "#",
		PagingCommands:       []string{"terminal length 0", "terminal width 511"},
		ConfigEnter:          "configure terminal",
		ConfigExit:           "end",
		VersionCommand:       "show version",
		ErrorHints:           ciscoErrors,
	},
	"cisco_asa": {
		Family:               "cisco_asa",
		PromptTerminators:    ">#",
		PrivilegedTerminator: "#",
		EnableCommand:        "enable",
		PagingCommands:       []string{"terminal pager 0"},
		ConfigEnter:          "configure terminal",
		ConfigExit:           "end",
		VersionCommand:       "show version",
		ErrorHints:           append(slices.Clone(ciscoErrors), "ERROR: "),
	},
	"arista_eos": {
		Family:               "arista",
		PromptTerminators:    ">#",
		PrivilegedTerminator: "#",
		EnableCommand:        "enable",
		PagingCommands:       []string{"terminal length 0", "terminal width 511"},
		ConfigEnter:          "configure terminal",
		ConfigExit:           "end",
		VersionCommand:       "show version",
		ErrorHints:           ciscoErrors,
	},
	"juniper_junos": {
		Family:               "juniper",
		PromptTerminators:    ">#%",
		PrivilegedTerminator: ">",
		PagingCommands:       []string{"set cli screen-length 0", "set cli screen-width 511"},
		ConfigEnter:          "configure",
		ConfigExit:           "exit configuration-mode",
		VersionCommand:       "show version",
		ErrorHints:           []string{"syntax error", "unknown command", "error: "},
	},
	"hp_procurve": {
		Family:               "hp",
		PromptTerminators:    ">#",
		PrivilegedTerminator: "#",
		EnableCommand:        "enable",
		PagingCommands:       []string{"no page"},
		ConfigEnter:          "configure terminal",
		ConfigExit:           "end",
		VersionCommand:       "show version",
		ErrorHints:           []string{"Invalid input", "Ambiguous input", "Incomplete input"},
	},
	"dell_force10": {
		Family:               "dell",
		PromptTerminators:    ">#",
		PrivilegedTerminator: "#",
		EnableCommand:        "enable",
		PagingCommands:       []string{"terminal length 0"},
		ConfigEnter:          "configure",
		ConfigExit:           "end",
		VersionCommand:       "show version",
		ErrorHints:           []string{"% Error", "% Invalid input"},
	},
	"paloalto_panos": {
		Family:               "paloalto",
		PromptTerminators:    ">#",
		PrivilegedTerminator: ">",
		PagingCommands:       []string{"set cli pager off"},
		ConfigEnter:          "configure",
		ConfigExit:           "exit",
		VersionCommand:       "show system info",
		ErrorHints:           []string{"Invalid syntax", "Unknown command", "Server error"},
	},
	"fortinet": {
		Family:               "fortinet",
		PromptTerminators:    "#$",
		PrivilegedTerminator: "#",
		VersionCommand:       "get system status",
		ErrorHints:           []string{"Command fail", "Unknown action", "command parse error"},
	},
	"checkpoint_gaia": {
		Family:               "checkpoint",
		PromptTerminators:    ">#",
		PrivilegedTerminator: ">",
		PagingCommands:       []string{"set clienv rows 0"},
		VersionCommand:       "show version all",
		ErrorHints:           []string{"CLINFR0329", "Invalid command", "Incomplete command"},
	},
	"linux": {
		Family:               "linux",
		PromptTerminators:    "$#",
		PrivilegedTerminator: "$#",
		VersionCommand:       "uname -a",
		ErrorHints:           []string{"command not found", "No such file or directory"},
	},
}

// telnetVariants reuse an SSH dialect over Telnet.
var telnetVariants = map[string]string{
	"cisco_ios_telnet":  "cisco_ios",
	"arista_eos_telnet": "arista_eos",
}

// Lookup resolves a device-type tag. Tags are matched case-insensitively.
func Lookup(tag string) (Dialect, bool) {
	tag = normalizeTag(tag)
	if d, ok := dialects[tag]; ok {
		d.Name = tag
		d.Transport = TransportSSH
		return d, true
	}
	if base, ok := telnetVariants[tag]; ok {
		d := dialects[base]
		d.Name = tag
		d.Transport = TransportTelnet
		return d, true
	}
	return Dialect{}, false
}

// Tags lists every supported device-type tag, sorted.
func Tags() []string {
	tags := make([]string, 0, len(dialects)+len(telnetVariants))
	for tag := range dialects {
		tags = append(tags, tag)
	}
	for tag := range telnetVariants {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Family returns the dialect family of tag, or "" when it is unknown.
func Family(tag string) string {
	d, ok := Lookup(tag)
	if !ok {
		return ""
	}
	return d.Family
}

func (d Dialect) DefaultPort() int {
	if d.Transport == TransportTelnet {
		return 23
	}
	return 22
}

// privileged reports whether prompt already grants full command access.
func (d Dialect) privileged(prompt string) bool {
	if prompt == "" {
		return false
	}
	return strings.ContainsRune(d.PrivilegedTerminator, rune(prompt[len(prompt)-1]))
}

// rejected returns the first output line carrying an error hint.
func (d Dialect) rejected(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		for _, hint := range d.ErrorHints {
			if strings.Contains(line, hint) {
				return strings.TrimSpace(line), true
			}
		}
	}
	return "", false
}

// anyPromptPattern matches a prompt of this dialect at the end of output.
func (d Dialect) anyPromptPattern() *regexp.Regexp {
	return regexp.MustCompile(`(?:^|\n)[ \t]*([^\r\n]{1,120}?[` + regexp.QuoteMeta(d.PromptTerminators) + `])[ \t]*$`)
}

// basePromptPattern matches the prompt of host in any mode, e.g. r1#,
// r1> and r1(config-if)#.
func (d Dialect) basePromptPattern(host string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|\n)[ \t]*(` + regexp.QuoteMeta(host) +
		`(?:\([^)\r\n]*\))?[` + regexp.QuoteMeta(d.PromptTerminators) + `])[ \t]*$`)
}

// baseHost trims the mode suffix and terminator from a prompt.
func (d Dialect) baseHost(prompt string) string {
	host := strings.TrimRight(prompt, d.PromptTerminators+" ")
	if i := strings.Index(host, "("); i > 0 {
		host = host[:i]
	}
	return host
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
