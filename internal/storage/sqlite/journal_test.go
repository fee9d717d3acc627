package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/tusknet/internal/core"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "nested", "tusknet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewJournal(db)
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	events := []core.SessionEvent{
		{DeviceID: "r1", Host: "10.0.0.1", DeviceType: "cisco_ios", State: core.StateConnected, CreatedAt: base},
		{DeviceID: "r2", Host: "10.0.0.2", DeviceType: "linux", State: core.StateFailed,
			ErrorKind: core.KindConnectFailure, Message: "ConnectFailure(authentication) r2", CreatedAt: base.Add(time.Second)},
		{DeviceID: "r1", Host: "10.0.0.1", DeviceType: "cisco_ios", State: core.StateDisconnected, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, ev := range events {
		require.NoError(t, j.Record(ctx, ev))
	}

	all, err := j.Recent(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, core.StateDisconnected, all[0].State)
	assert.Equal(t, core.KindConnectFailure, all[1].ErrorKind)
	assert.True(t, base.Equal(all[2].CreatedAt))

	r1, err := j.Recent(ctx, "r1", 10)
	require.NoError(t, err)
	require.Len(t, r1, 2)
	assert.Equal(t, core.StateDisconnected, r1[0].State)
	assert.Equal(t, core.StateConnected, r1[1].State)

	limited, err := j.Recent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestJournal_RecordDefaultsTimestamp(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, core.SessionEvent{DeviceID: "r1", State: core.StateConnected}))

	events, err := j.Recent(ctx, "r1", 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.WithinDuration(t, time.Now(), events[0].CreatedAt, time.Minute)
}

func TestNewDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tusknet.db")

	db, err := NewDB(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, NewJournal(db).Record(context.Background(), core.SessionEvent{DeviceID: "r1", State: core.StateConnected}))
	require.NoError(t, db.Close())

	db, err = NewDB(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	events, err := NewJournal(db).Recent(context.Background(), "r1", 5)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
