package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Entry describes an action to record.
type Entry struct {
	ActorID      *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]any
	IP           string
	UserAgent    string
}

// execer is the slice of pgxpool.Pool the recorder needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Recorder writes audit records synchronously with the operation they
// accompany.
type Recorder struct {
	db     execer
	logger *slog.Logger
}

// NewRecorder returns a Recorder over the given pool.
func NewRecorder(db execer, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, logger: logger}
}

// Record persists the entry. Failures propagate so state-mutating service
// calls can surface them.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit: recorder not initialised")
	}
	if entry.Action == "" || entry.ResourceType == "" {
		return errors.New("audit: entry requires action and resource type")
	}

	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("audit: encode details: %w", err)
		}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_logs (id, actor_id, action, resource_type, resource_id, details, ip_address, user_agent, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(), entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID,
		details, nullable(entry.IP), nullable(entry.UserAgent), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

// RecordAuth persists a login/logout event. A failed audit write must not
// fail the authentication flow, so errors are logged and swallowed here.
func (r *Recorder) RecordAuth(ctx context.Context, entry Entry) {
	if err := r.Record(ctx, entry); err != nil {
		r.logger.Error("audit write failed for auth event",
			slog.String("action", entry.Action), slog.Any("error", err))
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
