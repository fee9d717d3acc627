package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sandevgo/tusknet/internal/core"
)

const defaultRecentLimit = 50

var _ core.SessionJournal = (*Journal)(nil)

// Journal stores session lifecycle events. Command output is never written.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Record(ctx context.Context, ev core.SessionEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO session_events (device_id, host, device_type, state, error_kind, message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, query,
		ev.DeviceID, ev.Host, ev.DeviceType, string(ev.State), string(ev.ErrorKind), ev.Message, ev.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert session event: %w", err)
	}
	return nil
}

// Recent returns the newest events first. An empty deviceID matches every
// device.
func (j *Journal) Recent(ctx context.Context, deviceID string, limit int) ([]core.SessionEvent, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	query := `SELECT id, device_id, host, device_type, state, error_kind, message, created_at
		FROM session_events WHERE (? = '' OR device_id = ?) ORDER BY id DESC LIMIT ?`

	rows, err := j.db.QueryContext(ctx, query, deviceID, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	defer rows.Close()

	var events []core.SessionEvent
	for rows.Next() {
		var ev core.SessionEvent
		var state, kind string
		if err := rows.Scan(&ev.ID, &ev.DeviceID, &ev.Host, &ev.DeviceType, &state, &kind, &ev.Message, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}
		ev.State = core.State(state)
		ev.ErrorKind = core.ErrorKind(kind)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
