package users

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

// Handler serves the users REST endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guards   rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds the users handler.
func NewHandler(logger *slog.Logger, service *Service, guards rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guards: guards, validate: validator.New()}
}

// MountRoutes registers user routes. Mutating routes on a specific user skip
// the permission stage: the admin-or-self policy decides access, so every
// account can manage itself while only admins touch other accounts.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guards.RequirePermission(rbac.PermCreateUser)).Post("/", h.create)
	r.With(h.guards.RequirePermission(rbac.PermReadUser)).Get("/", h.list)
	r.With(h.guards.RequirePermission(rbac.PermReadUser)).Get("/{userID}", h.get)
	r.With(h.guards.RequireScope(rbac.ResourceUser, "userID")).Put("/{userID}", h.update)
	r.With(h.guards.RequireScope(rbac.ResourceUser, "userID")).Put("/{userID}/two-factor", h.twoFactor)
	r.With(h.guards.RequireScope(rbac.ResourceUser, "userID")).Delete("/{userID}", h.remove)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.Create(r.Context(), req, h.meta(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(user))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	list, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]UserResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "user not found")
		return
	}
	user, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "userID"))
	var req UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.Update(r.Context(), id, req, h.meta(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) twoFactor(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "userID"))
	var req TwoFactorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	user, err := h.service.SetTwoFactor(r.Context(), id, req.Enabled, h.meta(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "userID"))
	if err := h.service.Delete(r.Context(), id, h.meta(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "user deleted"})
}

func (h *Handler) meta(r *http.Request) RequestMeta {
	meta := RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	if actor, ok := rbac.ActorFromContext(r.Context()); ok {
		meta.ActorID = actor.ID
	}
	return meta
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	h.logger.Error("users handler", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func toResponse(u *User) UserResponse {
	resp := UserResponse{
		ID:               u.ID.String(),
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		IsActive:         u.IsActive,
		TwoFactorEnabled: u.TwoFactorEnabled,
	}
	if u.DepartmentID != uuid.Nil {
		dept := u.DepartmentID.String()
		resp.DepartmentID = &dept
	}
	return resp
}
