package budgets

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/campusledger/campusledger/internal/platform/httpx"
	"github.com/campusledger/campusledger/internal/rbac"
)

// Handler serves the budgets REST endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guards   rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds the budgets handler.
func NewHandler(logger *slog.Logger, service *Service, guards rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guards: guards, validate: validator.New()}
}

// MountRoutes registers budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guards.RequirePermission(rbac.PermCreateBudget)).Post("/", h.create)
	r.With(h.guards.RequirePermission(rbac.PermReadBudget)).Get("/", h.list)
	r.With(h.guards.RequireResource(rbac.PermReadBudget, rbac.ResourceBudget, "budgetID")).Get("/{budgetID}", h.get)
	r.With(h.guards.RequireResource(rbac.PermUpdateBudget, rbac.ResourceBudget, "budgetID")).Put("/{budgetID}", h.update)
	r.With(h.guards.RequireResource(rbac.PermDeleteBudget, rbac.ResourceBudget, "budgetID")).Delete("/{budgetID}", h.remove)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateBudgetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor, _ := rbac.ActorFromContext(r.Context())
	b, err := h.service.Create(r.Context(), actor, req, h.meta(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(b))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	deptID, _ := uuid.Parse(r.URL.Query().Get("department_id"))
	actor, _ := rbac.ActorFromContext(r.Context())
	list, err := h.service.List(r.Context(), actor, deptID, limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]BudgetResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"budgets": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "budgetID"))
	b, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(b))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "budgetID"))
	var req UpdateBudgetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	b, err := h.service.Update(r.Context(), id, req, h.meta(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(b))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "budgetID"))
	if err := h.service.Delete(r.Context(), id, h.meta(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "budget deleted"})
}

func (h *Handler) meta(r *http.Request) RequestMeta {
	meta := RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	if actor, ok := rbac.ActorFromContext(r.Context()); ok {
		meta.ActorID = actor.ID
	}
	return meta
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	h.logger.Error("budgets handler", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func toResponse(b *Budget) BudgetResponse {
	return BudgetResponse{
		ID:           b.ID.String(),
		DepartmentID: b.DepartmentID.String(),
		FiscalYear:   b.FiscalYear,
		TotalAmount:  b.TotalAmount,
		SpentAmount:  b.SpentAmount,
	}
}
