package capture

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Session is one probe connection as recorded in the capture database.
type Session struct {
	ID        string
	Target    string
	Transport string
	StartedAt time.Time
	EndedAt   time.Time
	Error     string
	Frames    int
}

// Frame is one message sent to or received from the probe.
type Frame struct {
	ID         int64
	SessionID  string
	Direction  string
	Payload    []byte
	RecordedAt time.Time
}

// Repo stores capture sessions and frames using SQLite.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) StartSession(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO capture_sessions(id, target, transport, started_at)
		VALUES(?, ?, ?, ?)
	`, s.ID, s.Target, s.Transport, toUnixMillis(s.StartedAt))
	if err != nil {
		return fmt.Errorf("insert capture session: %w", err)
	}

	return nil
}

func (r *Repo) EndSession(ctx context.Context, id string, endedAt time.Time, errText string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE capture_sessions
		SET ended_at = ?, error_text = ?
		WHERE id = ?
	`, toUnixMillis(endedAt), nullableString(errText), id)
	if err != nil {
		return fmt.Errorf("end capture session: %w", err)
	}

	return nil
}

func (r *Repo) AppendFrame(ctx context.Context, f Frame) error {
	payload := f.Payload
	if payload == nil {
		payload = []byte{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO frames(session_id, direction, payload, recorded_at)
		VALUES(?, ?, ?, ?)
	`, f.SessionID, f.Direction, payload, toUnixMillis(f.RecordedAt))
	if err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}

	return nil
}

// ListSessions returns sessions newest first.
func (r *Repo) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.target, s.transport, s.started_at, s.ended_at, COALESCE(s.error_text, ''), COUNT(f.id)
		FROM capture_sessions s
		LEFT JOIN frames f ON f.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query capture sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Session
	for rows.Next() {
		var (
			s         Session
			startedAt int64
			endedAt   int64
		)
		if err := rows.Scan(&s.ID, &s.Target, &s.Transport, &startedAt, &endedAt, &s.Error, &s.Frames); err != nil {
			return nil, fmt.Errorf("scan capture session: %w", err)
		}
		s.StartedAt = fromUnixMillis(startedAt)
		s.EndedAt = fromUnixMillis(endedAt)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate capture sessions: %w", err)
	}

	return out, nil
}

// Frames returns the frames of one session in recording order.
func (r *Repo) Frames(ctx context.Context, sessionID string) ([]Frame, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, direction, payload, recorded_at
		FROM frames
		WHERE session_id = ?
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Frame
	for rows.Next() {
		var (
			f          Frame
			recordedAt int64
		)
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Direction, &f.Payload, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.RecordedAt = fromUnixMillis(recordedAt)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}

	return out, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}

	return v
}
