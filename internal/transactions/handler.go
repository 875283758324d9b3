package transactions

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/campusledger/campusledger/internal/platform/httpx"
	"github.com/campusledger/campusledger/internal/rbac"
)

// Handler serves the transactions REST endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guards   rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds the transactions handler.
func NewHandler(logger *slog.Logger, service *Service, guards rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guards: guards, validate: validator.New()}
}

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guards.RequirePermission(rbac.PermCreateTransaction)).Post("/", h.create)
	r.With(h.guards.RequirePermission(rbac.PermReadTransaction)).Get("/", h.list)
	r.With(h.guards.RequireResource(rbac.PermReadTransaction, rbac.ResourceTransaction, "transactionID")).Get("/{transactionID}", h.get)
	r.With(h.guards.RequireResource(rbac.PermUpdateTransaction, rbac.ResourceTransaction, "transactionID")).Put("/{transactionID}", h.update)
	r.With(h.guards.RequireResource(rbac.PermDeleteTransaction, rbac.ResourceTransaction, "transactionID")).Delete("/{transactionID}", h.remove)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	t, err := h.service.Create(r.Context(), actor, req, h.meta(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	budgetID, _ := uuid.Parse(r.URL.Query().Get("budget_id"))
	actor, _ := rbac.ActorFromContext(r.Context())
	list, err := h.service.List(r.Context(), actor, budgetID, limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]TransactionResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "transactionID"))
	t, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "transactionID"))
	var req UpdateTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t, err := h.service.Update(r.Context(), id, req, h.meta(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err := h.service.Delete(r.Context(), id, h.meta(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "transaction deleted"})
}

func (h *Handler) meta(r *http.Request) RequestMeta {
	meta := RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	if actor, ok := rbac.ActorFromContext(r.Context()); ok {
		meta.ActorID = actor.ID
	}
	return meta
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	h.logger.Error("transactions handler", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func toResponse(t *Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:              t.ID.String(),
		BudgetID:        t.BudgetID.String(),
		Type:            t.Type,
		Amount:          t.Amount,
		Description:     t.Description,
		ReferenceNumber: t.ReferenceNumber,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
	}
	if t.CreatedBy != nil {
		resp.CreatedBy = t.CreatedBy.String()
	}
	return resp
}
