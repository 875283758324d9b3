package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/campusledger/campusledger/internal/platform/httpx"
	"github.com/campusledger/campusledger/internal/rbac"
)

// Handler serves the login and logout endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the auth HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountPublicRoutes registers the unauthenticated login endpoint.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/login", h.login)
}

// MountRoutes registers endpoints that require an authenticated actor.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	meta := RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	token, account, err := h.service.Login(r.Context(), req.Username, req.Password, meta)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", ErrInvalidCredentials.Error())
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        account.Role,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "could not validate credentials")
		return
	}
	h.service.Logout(r.Context(), actor.ID, actor.Username, RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()})
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "logged out"})
}
