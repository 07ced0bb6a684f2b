// Package audit keeps an append-only log of MCP tool invocations in SQLite.
// Entries arrive over the eventbus from the dispatch layer; the recorder
// goroutine is the only writer.
package audit

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/aviolabs/avstack/internal/infra/eventbus"
	"github.com/aviolabs/avstack/pkg/uuid"
)

// Service provides invocation-log persistence. All operations are
// append-only; no updates or deletes are supported.
type Service struct {
	db *sql.DB
}

// NewService creates an invocation-log service over an already-migrated DB.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record inserts a single invocation entry. ID and CreatedAt are filled in
// when unset.
func (s *Service) Record(ctx context.Context, inv Invocation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewV7().String()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocation_log (
			id, tool, resource, outcome, error_code, item_count, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inv.ID,
		inv.Tool,
		inv.Resource,
		string(inv.Outcome),
		inv.ErrorCode,
		inv.ItemCount,
		inv.DurationMS,
		inv.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// List returns the newest invocations first, plus the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Invocation, int, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tool, resource, outcome, error_code, item_count, duration_ms, created_at
		FROM invocation_log
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*Invocation, 0)
	for rows.Next() {
		inv, scanErr := scanInvocation(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM invocation_log")
	if err := row.Scan(&total); err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

// CountByOutcome returns the number of logged invocations with the given
// outcome.
func (s *Service) CountByOutcome(ctx context.Context, outcome Outcome) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM invocation_log WHERE outcome = ?", string(outcome))
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// StartRecorder subscribes to the invocation topic and persists events until
// ctx is cancelled. Malformed payloads and insert failures are logged and
// skipped; the log is best-effort bookkeeping and must never take the server
// down.
func StartRecorder(ctx context.Context, bus eventbus.EventBus, svc *Service, logger *log.Logger) {
	events := bus.Subscribe(TopicInvocation)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-events:
				inv, ok := evt.Payload.(Invocation)
				if !ok {
					logger.Printf("audit: dropping event with payload type %T", evt.Payload)
					continue
				}
				if err := svc.Record(ctx, inv); err != nil && ctx.Err() == nil {
					logger.Printf("audit: record invocation: %v", err)
				}
			}
		}
	}()
}

func scanInvocation(rows *sql.Rows) (*Invocation, error) {
	var (
		inv        Invocation
		errorCode  sql.NullString
		createdRaw string
	)

	if err := rows.Scan(
		&inv.ID,
		&inv.Tool,
		&inv.Resource,
		(*string)(&inv.Outcome),
		&errorCode,
		&inv.ItemCount,
		&inv.DurationMS,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	if errorCode.Valid {
		v := errorCode.String
		inv.ErrorCode = &v
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		inv.CreatedAt = ts
	}

	return &inv, nil
}
