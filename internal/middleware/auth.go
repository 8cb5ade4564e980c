package middleware

import (
	"errors"
	"net/http"

	"github.com/liftlogapp/liftlog/internal/auth"
	"github.com/liftlogapp/liftlog/internal/telemetry/tracing"
	"github.com/liftlogapp/liftlog/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

type AuthMiddlewareHandler struct {
	loginChecker auth.Checker
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(loginChecker auth.Checker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		loginChecker: loginChecker,
		allowedPaths: map[string]bool{
			"/":        true,
			"/version": true,

			// login-register:
			"/api/users/register": true,
			"/api/users/login":    true,
		},
	}
}

// AuthCheck resolves the session token to a user and stores the user id in
// the request context. Requests without a valid session get a 401, except
// for the few public paths.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token := auth.TokenFromRequest(r)
			if token == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			userID, err := h.loginChecker.LoggedUserID(ctx, token)
			if err != nil {
				if errors.Is(err, auth.ErrNotLoggedIn) {
					log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
					pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
					span.SetStatus(codes.Error, "not-logged")
					return
				}
				log.Errorf("[failed login check] => %s: %s", r.URL.Path, err)
				pkg.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
				span.SetStatus(codes.Error, "check-logged-err")
				span.RecordError(err)
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.CtxWithUserID(ctx, userID)))
		})
	}
}
