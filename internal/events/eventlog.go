package events

import (
	"context"
	"database/sql"
	"time"
)

const (
	TypeSubmissionCreated = "SubmissionCreated"
	TypeReconcileReplayed = "ReconcileReplayed"
	TypeReconcileFailed   = "ReconcileFailed"
	TypeAnswersOrphaned   = "AnswersOrphaned"
)

type Event struct {
	Offset    int64
	Type      string
	Key       string // natural key: submission unique_id
	DataJSON  string
	CreatedAt int64
}

// Log appends domain events to the event_log table. Appends are
// best-effort operator breadcrumbs, not part of any transaction.
type Log struct{ db *sql.DB }

func NewLog(db *sql.DB) *Log { return &Log{db: db} }

func (l *Log) Append(ctx context.Context, e Event) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

func (l *Log) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT "offset", typ, key, data, created_at FROM event_log
		 ORDER BY "offset" DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
