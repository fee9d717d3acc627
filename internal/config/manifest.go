package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandevgo/tusknet/internal/core"
)

// Manifest is the startup device inventory.
type Manifest struct {
	Server  ServerSection             `yaml:"server,omitempty"`
	Devices map[string]ManifestDevice `yaml:"devices"`
}

type ServerSection struct {
	Name     string `yaml:"name,omitempty"`
	Version  string `yaml:"version,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
}

// ManifestDevice holds connection settings. Host and credential fields may
// reference environment variables as ${VAR}.
type ManifestDevice struct {
	Host        string `yaml:"host"`
	DeviceType  string `yaml:"device_type"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Secret      string `yaml:"secret,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	Timeout     int    `yaml:"timeout,omitempty"`
	AutoConnect bool   `yaml:"auto_connect,omitempty"`
}

// LoadManifest reads path. A missing file yields an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{Devices: map[string]ManifestDevice{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Devices == nil {
		m.Devices = map[string]ManifestDevice{}
	}

	for id, dev := range m.Devices {
		dev.Host = expandVars(strings.TrimSpace(dev.Host))
		dev.Username = expandVars(dev.Username)
		dev.Password = expandVars(dev.Password)
		dev.Secret = expandVars(dev.Secret)
		dev.DeviceType = strings.ToLower(strings.TrimSpace(dev.DeviceType))
		if err := dev.validate(id); err != nil {
			return nil, err
		}
		m.Devices[id] = dev
	}
	return &m, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandVars substitutes ${NAME} references only. Any other "$" is part of
// the value, which matters for passwords.
func expandVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
}

func (d ManifestDevice) validate(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("manifest device with empty id")
	case d.Host == "":
		return fmt.Errorf("manifest device %s: host is required", id)
	case d.DeviceType == "":
		return fmt.Errorf("manifest device %s: device_type is required", id)
	case d.Port < 0 || d.Port > 65535:
		return fmt.Errorf("manifest device %s: port %d is out of range", id, d.Port)
	case d.Timeout < 0:
		return fmt.Errorf("manifest device %s: timeout must not be negative", id)
	}
	return nil
}

// Params converts the entry into connection parameters. Unset port and
// timeout stay zero so the driver defaults apply.
func (d ManifestDevice) Params() core.ConnectionParams {
	return core.ConnectionParams{
		Host:       d.Host,
		Port:       d.Port,
		DeviceType: d.DeviceType,
		Username:   d.Username,
		Password:   d.Password,
		Secret:     d.Secret,
		Timeout:    time.Duration(d.Timeout) * time.Second,
	}
}

func (m *Manifest) IDs() []string {
	ids := make([]string, 0, len(m.Devices))
	for id := range m.Devices {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SampleManifest is the starting point written by `tusknet config generate`.
func SampleManifest() *Manifest {
	return &Manifest{
		Server: ServerSection{
			Name:     core.TuskNetName,
			Version:  core.TuskNetVersion,
			LogLevel: "info",
		},
		Devices: map[string]ManifestDevice{
			"example_router": {
				Host:       "192.168.1.1",
				DeviceType: "cisco_ios",
				Username:   "admin",
				Password:   "${ROUTER_PASSWORD}",
				Secret:     "${ROUTER_ENABLE_SECRET}",
				Port:       22,
				Timeout:    30,
			},
			"example_switch": {
				Host:        "192.168.1.10",
				DeviceType:  "cisco_ios",
				Username:    "admin",
				Password:    "${SWITCH_PASSWORD}",
				Port:        22,
				Timeout:     30,
				AutoConnect: true,
			},
		},
	}
}
