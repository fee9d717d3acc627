package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/tusknet/internal/core"
)

func connectedSession(t *testing.T, id, host string) *Session {
	t.Helper()
	s := NewSession(id, cisco(host), &mockDriver{conn: newMockConn()})
	require.NoError(t, s.Connect(context.Background()))
	return s
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name     string
		existing func(t *testing.T) *Session
		wantErr  core.ErrorKind
	}{
		{
			name:     "empty",
			existing: func(t *testing.T) *Session { return nil },
		},
		{
			name: "live_entry",
			existing: func(t *testing.T) *Session {
				return connectedSession(t, "r1", "10.0.0.1")
			},
			wantErr: core.KindDuplicateDevice,
		},
		{
			name: "connecting_entry",
			existing: func(t *testing.T) *Session {
				return NewSession("r1", cisco("10.0.0.1"), &mockDriver{})
			},
			wantErr: core.KindDuplicateDevice,
		},
		{
			name: "disconnected_entry",
			existing: func(t *testing.T) *Session {
				s := connectedSession(t, "r1", "10.0.0.1")
				require.NoError(t, s.Disconnect(context.Background()))
				return s
			},
		},
		{
			name: "failed_entry",
			existing: func(t *testing.T) *Session {
				s := NewSession("r1", cisco("10.0.0.1"), &mockDriver{openErr: errBoom})
				_ = s.Connect(context.Background())
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			if old := tt.existing(t); old != nil {
				r.sessions["r1"] = old
			}

			next := NewSession("r1", cisco("10.0.0.2"), &mockDriver{})
			err := r.Register("r1", next)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, core.KindOf(err))
				return
			}
			require.NoError(t, err)

			got, err := r.Lookup("r1")
			require.NoError(t, err)
			assert.Same(t, next, got)
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("missing")
	assert.Equal(t, core.KindUnknownDevice, core.KindOf(err))
}

func TestRegistry_RemoveSession(t *testing.T) {
	r := NewRegistry()
	first := connectedSession(t, "r1", "10.0.0.1")
	require.NoError(t, r.Register("r1", first))

	other := NewSession("r1", cisco("10.0.0.9"), &mockDriver{})
	assert.False(t, r.RemoveSession("r1", other))

	_, err := r.Lookup("r1")
	assert.NoError(t, err)

	assert.True(t, r.RemoveSession("r1", first))
	_, err = r.Lookup("r1")
	assert.Equal(t, core.KindUnknownDevice, core.KindOf(err))

	r.Remove("r1")
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"sw2", "r1", "fw1"} {
		require.NoError(t, r.Register(id, connectedSession(t, id, "10.0.0.1")))
	}

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "fw1", list[0].DeviceID)
	assert.Equal(t, "r1", list[1].DeviceID)
	assert.Equal(t, "sw2", list[2].DeviceID)
	for _, info := range list {
		assert.True(t, info.Connected)
		assert.Equal(t, 22, info.Port)
	}
}

func TestRegistry_Drain(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("r1", connectedSession(t, "r1", "10.0.0.1")))
	require.NoError(t, r.Register("r2", connectedSession(t, "r2", "10.0.0.2")))

	drained := r.Drain()
	assert.Len(t, drained, 2)
	assert.Empty(t, r.List())
}
