package rbac

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/campusledger/campusledger/internal/platform/httpx"
)

// PermissionsHandler exposes the static permission catalog and the caller's
// effective permission set.
type PermissionsHandler struct {
	logger *slog.Logger
	cache  *PermissionCache
}

// NewPermissionsHandler builds a PermissionsHandler.
func NewPermissionsHandler(logger *slog.Logger, cache *PermissionCache) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, cache: cache}
}

// MountRoutes registers permission routes on an authenticated router group.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
	r.Get("/me", h.myPermissions)
}

type permissionView struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

var displayCaser = cases.Title(language.English)

func displayName(p Permission) string {
	return displayCaser.String(strings.ReplaceAll(string(p), "_", " "))
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms := AllPermissions()
	views := make([]permissionView, 0, len(perms))
	for _, p := range perms {
		views = append(views, permissionView{Name: string(p), DisplayName: displayName(p)})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": views})
}

func (h *PermissionsHandler) myPermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "could not validate credentials")
		return
	}
	effective := h.cache.EffectivePermissions(r.Context(), actor.ID, actor.Role)
	names := make([]string, 0, len(effective))
	for p := range effective {
		names = append(names, string(p))
	}
	sort.Strings(names)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        string(actor.Role),
		"permissions": names,
	})
}
