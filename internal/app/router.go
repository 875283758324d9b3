package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/campusledger/campusledger/internal/audit/http"
	"github.com/campusledger/campusledger/internal/auth"
	"github.com/campusledger/campusledger/internal/budgets"
	"github.com/campusledger/campusledger/internal/departments"
	"github.com/campusledger/campusledger/internal/observability"
	"github.com/campusledger/campusledger/internal/rbac"
	"github.com/campusledger/campusledger/internal/transactions"
	"github.com/campusledger/campusledger/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	Resolver            *auth.Resolver
	AuthHandler         *auth.Handler
	UsersHandler        *users.Handler
	DepartmentsHandler  *departments.Handler
	BudgetsHandler      *budgets.Handler
	TransactionsHandler *transactions.Handler
	AuditHandler        *audithttp.Handler
	PermissionsHandler  *rbac.PermissionsHandler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router serving the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountPublicRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(params.Resolver.Middleware)
				params.AuthHandler.MountRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(params.Resolver.Middleware)

			r.Route("/users", params.UsersHandler.MountRoutes)
			r.Route("/departments", params.DepartmentsHandler.MountRoutes)
			r.Route("/budgets", params.BudgetsHandler.MountRoutes)
			r.Route("/transactions", params.TransactionsHandler.MountRoutes)
			if params.AuditHandler != nil {
				r.Route("/audit-logs", params.AuditHandler.MountRoutes)
			}
			if params.PermissionsHandler != nil {
				r.Route("/permissions", params.PermissionsHandler.MountRoutes)
			}
		})
	})

	return r
}
