package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/campusledger/campusledger/internal/platform/httpx"
	"github.com/campusledger/campusledger/internal/rbac"
)

// Resolver turns a bearer token into an Actor and places it in the request
// context. It runs before every guard; any failure here yields 401 and the
// guard chain never executes.
type Resolver struct {
	verifier TokenVerifier
	repo     Repository
	logger   *slog.Logger
}

// NewResolver constructs the resolver middleware.
func NewResolver(verifier TokenVerifier, repo Repository, logger *slog.Logger) *Resolver {
	return &Resolver{verifier: verifier, repo: repo, logger: logger}
}

// Middleware resolves the actor or rejects the request as unauthenticated.
func (rv *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "could not validate credentials")
			return
		}

		subject, err := rv.verifier.Verify(token)
		if err != nil {
			rv.logger.Warn("token verification failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "could not validate credentials")
			return
		}

		account, err := rv.repo.FindByUsername(r.Context(), subject)
		if err != nil {
			rv.logger.Warn("token subject not found", slog.String("subject", subject))
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "could not validate credentials")
			return
		}
		if !account.IsActive {
			rv.logger.Warn("inactive account attempted access", slog.String("username", account.Username))
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "inactive user")
			return
		}

		role, err := rbac.ParseRole(account.Role)
		if err != nil {
			// A stored role outside the closed set is a configuration error.
			rv.logger.Error("account carries unknown role",
				slog.String("username", account.Username), slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}

		actor := rbac.Actor{
			ID:           account.ID,
			Username:     account.Username,
			Role:         role,
			DepartmentID: account.DepartmentID,
		}
		next.ServeHTTP(w, r.WithContext(rbac.ContextWithActor(r.Context(), actor)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}
