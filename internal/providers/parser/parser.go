package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/tusknet/internal/core"
	"github.com/sandevgo/tusknet/internal/providers/driver"
)

var (
	ErrNoTemplate = errors.New("no parse template")
	ErrNoRecords  = errors.New("output did not match the template")
)

type parseFunc func(output string) []core.Row

type template struct {
	command string
	words   []string
	parse   parseFunc
}

var _ core.StructuredParser = (*Parser)(nil)

// Parser turns CLI output into rows using regex templates keyed by dialect
// family and command.
type Parser struct {
	families map[string][]template
}

func New() *Parser {
	p := &Parser{families: make(map[string][]template)}

	ios := []template{
		newTemplate("show version", parseShowVersion),
		newTemplate("show ip interface brief", parseIPInterfaceBrief),
		newTemplate("show vlan brief", parseVLANBrief),
		newTemplate("show interfaces status", parseInterfacesStatus),
		newTemplate("show interfaces trunk", parseInterfacesTrunk),
		newTemplate("show mac address-table", parseMACTable),
		newTemplate("show mac-address-table", parseMACTable),
	}
	for _, family := range []string{"cisco", "cisco_nxos", "cisco_xr", "cisco_asa", "arista"} {
		p.families[family] = ios
	}

	p.families["linux"] = []template{
		newTemplate("ip -br addr", parseIPBriefAddr),
		newTemplate("ip -br address", parseIPBriefAddr),
	}
	return p
}

func newTemplate(command string, fn parseFunc) template {
	return template{command: command, words: strings.Fields(command), parse: fn}
}

// Parse implements core.StructuredParser.
func (p *Parser) Parse(deviceType, command, output string) ([]core.Row, error) {
	family := driver.Family(deviceType)
	tmpl, ok := p.match(family, command)
	if !ok {
		return nil, fmt.Errorf("%w for %q on %s", ErrNoTemplate, command, deviceType)
	}

	rows := tmpl.parse(output)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", tmpl.command, ErrNoRecords)
	}
	return rows, nil
}

// Supported lists the template commands available for deviceType.
func (p *Parser) Supported(deviceType string) []string {
	var commands []string
	for _, t := range p.families[driver.Family(deviceType)] {
		commands = append(commands, t.command)
	}
	return commands
}

// match resolves abbreviated commands such as "sh ip int br". Every word has
// to abbreviate the template word. Flag words may also extend it, as in
// "-brief" for "-br".
func (p *Parser) match(family, command string) (template, bool) {
	if strings.Contains(command, "|") {
		return template{}, false
	}
	words := strings.Fields(strings.ToLower(command))

	for _, t := range p.families[family] {
		if len(t.words) != len(words) {
			continue
		}
		matched := true
		for i, w := range words {
			if !wordMatches(t.words[i], w) {
				matched = false
				break
			}
		}
		if matched {
			return t, true
		}
	}
	return template{}, false
}

func wordMatches(tmpl, word string) bool {
	if strings.HasPrefix(tmpl, word) {
		return true
	}
	return strings.HasPrefix(tmpl, "-") && strings.HasPrefix(word, tmpl)
}
