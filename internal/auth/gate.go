package auth

import (
	"context"
	"errors"
	"net/http"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	"github.com/familyspend/ExpenseTracker/internal/log"
	"github.com/familyspend/ExpenseTracker/internal/response"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionResolver turns a raw token into a live session. It fails with
// ErrInvalidSession or ErrExpiredSession when the token must be discarded.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*Session, error)
}

// Gate resolves the caller's session in front of protected handlers.
type Gate struct {
	resolver SessionResolver
	cookies  CookieConfig
	logger   *log.Logger
}

func NewGate(resolver SessionResolver, cookies CookieConfig, logger *log.Logger) *Gate {
	return &Gate{
		resolver: resolver,
		cookies:  cookies,
		logger:   logger.WithComponent(log.ComponentAuth),
	}
}

// CurrentSession returns nil without an error when the request carries no
// usable session. A stale cookie is cleared on the way.
func (g *Gate) CurrentSession(w http.ResponseWriter, r *http.Request) (*Session, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, nil
	}

	session, err := g.resolver.ResolveSession(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrInvalidSession) || errors.Is(err, ErrExpiredSession) {
			g.logger.DebugContext(r.Context(), "discarding session cookie", log.FieldError, err)
			g.cookies.Clear(w)
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

func (g *Gate) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := g.CurrentSession(w, r)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		if session == nil {
			response.FromError(w, r, appErrors.ErrUnauthenticated)
			return
		}

		ctx := WithSession(r.Context(), session)
		ctx = context.WithValue(ctx, log.LoggerContextKey, log.FromContext(ctx).With(log.FieldUserID, session.UserID.String()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gate) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, _ := SessionFromContext(r.Context())
			if session.Role != role {
				response.FromError(w, r, appErrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*Session)
	return session, ok && session != nil
}
