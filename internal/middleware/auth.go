package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/AnshRaj112/newsdesk-backend/internal/models"
	"github.com/AnshRaj112/newsdesk-backend/internal/services"
	"go.uber.org/zap"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	sessionContextKey   contextKey = "session"
)

// SessionCookie carries the session id for browser clients.
const SessionCookie = "sid"

// WithPrincipal stores the authenticated user in ctx.
func WithPrincipal(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, principalContextKey, u)
}

// PrincipalFrom returns the authenticated user, or nil.
func PrincipalFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(principalContextKey).(*models.User)
	return u
}

// WithSession stores the id of the session that authenticated the request.
func WithSession(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionContextKey, sid)
}

// SessionFrom returns the authenticating session id, or "".
func SessionFrom(ctx context.Context) string {
	sid, _ := ctx.Value(sessionContextKey).(string)
	return sid
}

// SessionResolver loads the owner of a live session.
type SessionResolver interface {
	SessionUser(ctx context.Context, sid string) (*models.User, error)
}

// Authenticator checks email and password credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// OptionalAuth attaches the principal of a live session. The session comes
// from the jti of a valid bearer token, or else from the sid cookie. Tokens
// of ended sessions and unknown users leave the request anonymous.
func OptionalAuth(tokens services.TokenIssuer, sessions SessionResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid, subject string
			if raw := bearerToken(r); raw != "" {
				claims, err := tokens.Parse(raw)
				if err != nil {
					next.ServeHTTP(w, r)
					return
				}
				sid, subject = claims.SessionID, claims.UserID
			} else if c, err := r.Cookie(SessionCookie); err == nil {
				sid = c.Value
			}
			if sid == "" {
				next.ServeHTTP(w, r)
				return
			}

			// loaded fresh so revoked roles apply immediately
			u, err := sessions.SessionUser(r.Context(), sid)
			if err != nil {
				if !errors.Is(err, services.ErrSessionNotFound) && !errors.Is(err, services.ErrUserNotFound) {
					logger.Warn("failed to load session principal",
						zap.String("subject", subject),
						zap.String("kind", services.ErrorKind(err)),
						zap.Error(err),
					)
				}
				next.ServeHTTP(w, r)
				return
			}
			if subject != "" && u.ID.Hex() != subject {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithPrincipal(WithSession(r.Context(), sid), u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth answers 401 without a principal. It must run after
// OptionalAuth.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFrom(r.Context()) == nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 401 without a principal and 403 for non-admins. It
// must run after OptionalAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := PrincipalFrom(r.Context())
		switch {
		case u == nil:
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		case !u.IsAdmin():
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LocalCredentials authenticates the email and password of a JSON or form
// body and attaches the principal. Wrong credentials get 401.
func LocalCredentials(auth Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var c credentials
			if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
				if err := r.ParseForm(); err != nil {
					respondError(w, http.StatusBadRequest, "Invalid request body")
					return
				}
				c.Email, c.Password = r.PostForm.Get("email"), r.PostForm.Get("password")
			} else if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			u, err := auth.Authenticate(r.Context(), c.Email, c.Password)
			switch {
			case errors.Is(err, services.ErrInvalidCredentials):
				respondError(w, http.StatusUnauthorized, "Invalid email or password")
				return
			case err != nil:
				logger.Error("credential check failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("kind", services.ErrorKind(err)),
					zap.Error(err),
				)
				respondError(w, http.StatusInternalServerError, "Couldn't sign in at this time.")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), u)))
		})
	}
}
