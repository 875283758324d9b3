package audit

import (
	"context"
	"fmt"
	"time"
)

// Filters narrows the audit timeline.
type Filters struct {
	From         time.Time
	To           time.Time
	ActorID      string
	ResourceType string
	Action       string
	Page         int
	PageSize     int
}

// PagingInfo describes the timeline page returned.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []Record
	Paging PagingInfo
}

// Repository provides read and purge access to persisted audit records.
type Repository interface {
	Window(ctx context.Context, filters Filters, limit, offset int) ([]Record, error)
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// Service coordinates audit timeline reads and retention purges.
type Service struct {
	repo Repository
}

// NewService builds an audit service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline fetches audit records with paging.
func (s *Service) Timeline(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.Window(ctx, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}

	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Purge deletes records older than the retention window and reports how many
// were removed. Reserved for holders of the audit management permission.
func (s *Service) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("audit: repository not configured")
	}
	if retention <= 0 {
		return 0, fmt.Errorf("audit: retention must be positive")
	}
	cutoff := time.Now().UTC().Add(-retention)
	return s.repo.Purge(ctx, cutoff)
}
