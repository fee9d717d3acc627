package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/tusknet/internal/core"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		tag       string
		ok        bool
		transport Transport
		port      int
	}{
		{"cisco_ios", true, TransportSSH, 22},
		{" Cisco_IOS ", true, TransportSSH, 22},
		{"juniper_junos", true, TransportSSH, 22},
		{"cisco_ios_telnet", true, TransportTelnet, 23},
		{"arista_eos_telnet", true, TransportTelnet, 23},
		{"cisco_pix", false, "", 0},
		{"", false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			d, ok := Lookup(tt.tag)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.transport, d.Transport)
			assert.Equal(t, tt.port, d.DefaultPort())
			assert.NotEmpty(t, d.VersionCommand)
		})
	}
}

func TestTags(t *testing.T) {
	tags := Tags()
	assert.Len(t, tags, 15)
	assert.IsIncreasing(t, tags)
	for _, tag := range []string{
		"cisco_ios", "cisco_xe", "cisco_nxos", "cisco_xr", "cisco_asa",
		"arista_eos", "juniper_junos", "hp_procurve", "dell_force10",
		"paloalto_panos", "fortinet", "checkpoint_gaia", "linux",
		"cisco_ios_telnet", "arista_eos_telnet",
	} {
		assert.Contains(t, tags, tag)
	}
	assert.Equal(t, "cisco", Family("cisco_ios_telnet"))
	assert.Empty(t, Family("nope"))
}

func TestDialect_Prompts(t *testing.T) {
	ios, _ := Lookup("cisco_ios")
	assert.True(t, ios.privileged("r1#"))
	assert.False(t, ios.privileged("r1>"))
	assert.Equal(t, "r1", ios.baseHost("r1(config-if)#"))

	re := ios.basePromptPattern("r1")
	assert.True(t, re.MatchString("output\nr1(config-if)#"))
	assert.True(t, re.MatchString("r1> "))
	assert.False(t, re.MatchString("r2#"))
	assert.False(t, re.MatchString("r1#\nmore output"))

	junos, _ := Lookup("juniper_junos")
	assert.Equal(t, "admin@mx1", junos.baseHost("admin@mx1>"))
	assert.True(t, junos.basePromptPattern("admin@mx1").MatchString("[edit]\nadmin@mx1#"))

	linux, _ := Lookup("linux")
	assert.True(t, linux.privileged("user@host:~$"))
	assert.True(t, linux.anyPromptPattern().MatchString("Last login: today\nuser@host:~$ "))
}

func TestDialect_Rejected(t *testing.T) {
	ios, _ := Lookup("cisco_ios")
	line, bad := ios.rejected("show foo\n% Invalid input detected at '^' marker.\n")
	assert.True(t, bad)
	assert.Equal(t, "% Invalid input detected at '^' marker.", line)

	_, bad = ios.rejected("Gi0/1 up up")
	assert.False(t, bad)
}

func TestFactory(t *testing.T) {
	f, err := NewFactory("")
	require.NoError(t, err)
	assert.Equal(t, Tags(), f.Supported())

	d, err := f.NewDriver("cisco_ios")
	require.NoError(t, err)
	assert.IsType(t, &sshDriver{}, d)

	d, err = f.NewDriver("cisco_ios_telnet")
	require.NoError(t, err)
	assert.IsType(t, &telnetDriver{}, d)
	assert.Equal(t, 23, d.(core.PortDefaulter).DefaultPort())

	_, err = f.NewDriver("cisco_pix")
	assert.Equal(t, core.KindUnsupportedDeviceType, core.KindOf(err))

	_, err = NewFactory("/nonexistent/known_hosts")
	assert.Error(t, err)
}
