package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/domain"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/redact"
	"github.com/phrazzld/taskd/internal/service/auth"
	"github.com/phrazzld/taskd/internal/store"
)

// UnauthenticatedMessage is the body of every authentication failure.
const UnauthenticatedMessage = "Please authenticate."

const bearerPrefix = "Bearer "

// RejectionRecorder counts rejected authentication attempts.
type RejectionRecorder interface {
	AuthRejected()
}

// AuthMiddleware authenticates requests by bearer token. A token is accepted
// only when its signature verifies and it is still on record for its user.
type AuthMiddleware struct {
	jwtService auth.JWTService
	users      store.UserStore
	recorder   RejectionRecorder
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
// recorder may be nil.
func NewAuthMiddleware(jwtService auth.JWTService, users store.UserStore, recorder RejectionRecorder) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		users:      users,
		recorder:   recorder,
	}
}

// Authenticate attaches the user and raw token to the request context, or
// answers 401 with the same body whatever the reason.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, token, err := m.resolve(r)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		ctx := shared.WithPrincipal(r.Context(), user, token)
		ctx = logger.WithLogger(ctx,
			logger.FromContext(ctx).With(slog.String("user_id", user.ID.String())))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) resolve(r *http.Request) (*domain.User, string, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, "", err
	}

	claims, err := m.jwtService.ValidateToken(r.Context(), token)
	if err != nil {
		return nil, "", err
	}

	user, err := m.users.GetByToken(r.Context(), claims.UserID, token)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, "", auth.ErrRevokedToken
		}
		return nil, "", err
	}

	return user, token, nil
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	if m.recorder != nil {
		m.recorder.AuthRejected()
	}

	log := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrRevokedToken):
		log.Debug("authentication rejected", "reason", err.Error())
	default:
		log.Error("authentication lookup failed", "error", redact.Error(err))
	}

	shared.RespondWithError(w, r, http.StatusUnauthorized, UnauthenticatedMessage)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Any other shape yields auth.ErrMissingToken.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", auth.ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", auth.ErrMissingToken
	}
	return token, nil
}
