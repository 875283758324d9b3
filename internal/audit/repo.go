package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Window returns a slice of the timeline, newest first.
func (r *PGRepository) Window(ctx context.Context, filters Filters, limit, offset int) ([]Record, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !filters.From.IsZero() {
		add("occurred_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at <= $%d", filters.To)
	}
	if filters.ActorID != "" {
		add("actor_id::text = $%d", filters.ActorID)
	}
	if filters.ResourceType != "" {
		add("resource_type = $%d", filters.ResourceType)
	}
	if filters.Action != "" {
		add("action = $%d", filters.Action)
	}

	query := `SELECT id, actor_id, action, resource_type, resource_id, details, ip_address, user_agent, occurred_at FROM audit_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline query: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			actorID    *uuid.UUID
			details    []byte
			ip, agent  *string
		)
		if err := rows.Scan(&rec.ID, &actorID, &rec.Action, &rec.ResourceType, &rec.ResourceID, &details, &ip, &agent, &rec.At); err != nil {
			return nil, fmt.Errorf("audit: scan record: %w", err)
		}
		rec.ActorID = actorID
		if len(details) > 0 {
			if err := json.Unmarshal(details, &rec.Details); err != nil {
				return nil, fmt.Errorf("audit: decode details: %w", err)
			}
		}
		if ip != nil {
			rec.IP = *ip
		}
		if agent != nil {
			rec.UserAgent = *agent
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Purge removes records older than the cutoff.
func (r *PGRepository) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("audit: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
