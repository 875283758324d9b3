package departments

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

// Handler serves the departments REST endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guards   rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds the departments handler.
func NewHandler(logger *slog.Logger, service *Service, guards rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guards: guards, validate: validator.New()}
}

// MountRoutes registers department routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guards.RequirePermission(rbac.PermCreateDepartment)).Post("/", h.create)
	r.With(h.guards.RequirePermission(rbac.PermReadDepartment)).Get("/", h.list)
	r.With(h.guards.RequireResource(rbac.PermReadDepartment, rbac.ResourceDepartment, "departmentID")).Get("/{departmentID}", h.get)
	r.With(h.guards.RequireResource(rbac.PermUpdateDepartment, rbac.ResourceDepartment, "departmentID")).Put("/{departmentID}", h.update)
	r.With(h.guards.RequireResource(rbac.PermDeleteDepartment, rbac.ResourceDepartment, "departmentID")).Delete("/{departmentID}", h.remove)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateDepartmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	d, err := h.service.Create(r.Context(), req, h.meta(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(d))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	list, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]DepartmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"departments": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "departmentID"))
	d, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(d))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "departmentID"))
	var req UpdateDepartmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	d, err := h.service.Update(r.Context(), id, req, h.meta(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(d))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "departmentID"))
	if err := h.service.Delete(r.Context(), id, h.meta(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "department deleted"})
}

func (h *Handler) meta(r *http.Request) RequestMeta {
	meta := RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	if actor, ok := rbac.ActorFromContext(r.Context()); ok {
		meta.ActorID = actor.ID
	}
	return meta
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	h.logger.Error("departments handler", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func toResponse(d *Department) DepartmentResponse {
	return DepartmentResponse{ID: d.ID.String(), Name: d.Name, Code: d.Code, Description: d.Description}
}
