// Package audithttp exposes the audit timeline over HTTP.
package audithttp

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusledger/campusledger/internal/audit"
	"github.com/campusledger/campusledger/internal/platform/httpx"
	"github.com/campusledger/campusledger/internal/rbac"
)

// Handler serves audit timeline reads and the privileged purge operation.
type Handler struct {
	logger    *slog.Logger
	service   *audit.Service
	recorder  *audit.Recorder
	guards    rbac.Middleware
	cache     *rbac.PermissionCache
	retention time.Duration
}

// NewHandler builds the audit HTTP handler.
func NewHandler(logger *slog.Logger, service *audit.Service, recorder *audit.Recorder, guards rbac.Middleware, cache *rbac.PermissionCache, retention time.Duration) *Handler {
	return &Handler{logger: logger, service: service, recorder: recorder, guards: guards, cache: cache, retention: retention}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.PermReadAudit))
		r.Get("/", h.timeline)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequirePermission(rbac.PermManageAudit))
		r.Delete("/", h.purge)
	})
}

type recordView struct {
	ID           string         `json:"id"`
	ActorID      *string        `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	IP           string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	At           time.Time      `json:"occurred_at"`
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := audit.Filters{
		ActorID:      q.Get("actor_id"),
		ResourceType: q.Get("resource_type"),
		Action:       q.Get("action"),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.To = t
		}
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	rows := make([]recordView, 0, len(result.Rows))
	for _, rec := range result.Rows {
		view := recordView{
			ID:           rec.ID.String(),
			Action:       rec.Action,
			ResourceType: rec.ResourceType,
			ResourceID:   rec.ResourceID,
			Details:      rec.Details,
			IP:           rec.IP,
			UserAgent:    rec.UserAgent,
			At:           rec.At,
		}
		if rec.ActorID != nil {
			id := rec.ActorID.String()
			view.ActorID = &id
		}
		rows = append(rows, view)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"records": rows,
		"paging": map[string]any{
			"page":      result.Paging.Page,
			"page_size": result.Paging.PageSize,
			"has_next":  result.Paging.HasNext,
		},
	})
}

// purge is the explicit privileged deletion path; it is itself audited.
func (h *Handler) purge(w http.ResponseWriter, r *http.Request) {
	retention := h.retention
	if v := r.URL.Query().Get("retention_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "retention_days must be a positive integer")
			return
		}
		retention = time.Duration(days) * 24 * time.Hour
	}

	deleted, err := h.service.Purge(r.Context(), retention)
	if err != nil {
		h.logger.Error("audit purge", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	// Purge is the bulk maintenance path, so cached permission sets are
	// flushed wholesale rather than per actor.
	if err := h.cache.InvalidateAll(r.Context()); err != nil {
		h.logger.Error("flush permission cache after purge", slog.Any("error", err))
	}

	actor, _ := rbac.ActorFromContext(r.Context())
	if err := h.recorder.Record(r.Context(), audit.Entry{
		ActorID:      &actor.ID,
		Action:       audit.ActionPurge,
		ResourceType: "AUDIT",
		Details:      map[string]any{"deleted": deleted, "retention": retention.String()},
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	}); err != nil {
		h.logger.Error("audit purge record", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
