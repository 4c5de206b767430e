package middleware

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/R3E-Network/model_layer/internal/auth/token"
	"github.com/R3E-Network/model_layer/internal/errors"
	"github.com/R3E-Network/model_layer/internal/identity"
	"github.com/R3E-Network/model_layer/internal/logging"
	"github.com/R3E-Network/model_layer/internal/model"
	"github.com/R3E-Network/model_layer/internal/session"
)

// AuthMiddleware resolves the caller from the auth-token cookie.
//
// Resolution never rejects a request. It records either a Ctx or the reason
// none could be built; RequireCtx decides what needs one.
type AuthMiddleware struct {
	issuer   *token.Issuer
	sessions session.Store
	mm       *model.Manager
	logger   *logging.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(issuer *token.Issuer, sessions session.Store, mm *model.Manager, logger *logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		issuer:   issuer,
		sessions: sessions,
		mm:       mm,
		logger:   logger,
	}
}

// Resolve returns the resolving middleware handler
func (m *AuthMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		c, err := m.resolve(ctx, w, r)
		if err != nil {
			// A cookie that no longer resolves is dropped so the client stops sending it.
			if !errors.IsKind(err, errors.KindAuthRequired) {
				token.RemoveCookie(w)
				m.logger.WithContext(ctx).WithError(err).Debug("Auth token rejected")
			}
		} else {
			ctx = logging.WithUserID(ctx, c.UserID())
		}

		next.ServeHTTP(w, r.WithContext(identity.WithResult(ctx, c, err)))
	})
}

func (m *AuthMiddleware) resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) (identity.Ctx, error) {
	raw := token.FromRequest(r)
	if raw == "" {
		return identity.Ctx{}, errors.AuthRequired("no auth token cookie")
	}

	claims, err := m.issuer.Parse(raw, func(userID int64) (uuid.UUID, error) {
		u, err := model.GetUserAs[model.UserForAuth](ctx, identity.Root(), m.mm, userID)
		if err != nil {
			return uuid.Nil, err
		}
		return u.TokenSalt, nil
	})
	if err != nil {
		if se := errors.GetServiceError(err); se != nil && se.Kind == errors.KindStoreFailure {
			return identity.Ctx{}, se
		}
		return identity.Ctx{}, errors.AuthFailed("invalid auth token", err)
	}

	sess, err := m.sessions.Get(ctx, claims.ID)
	if err != nil {
		if stderrors.Is(err, session.ErrNotFound) {
			return identity.Ctx{}, errors.AuthFailed("session not found", err)
		}
		return identity.Ctx{}, errors.StoreFailure(err)
	}
	if sess.UserID != claims.UserID {
		return identity.Ctx{}, errors.AuthFailed("session does not belong to token user", nil)
	}

	c, err := identity.New(claims.UserID)
	if err != nil {
		return identity.Ctx{}, errors.AuthFailed("invalid token user", err)
	}

	m.refresh(ctx, w, sess, claims)
	return c, nil
}

// refresh slides the session and cookie expiry forward. Failures only cost
// the caller an earlier logout.
func (m *AuthMiddleware) refresh(ctx context.Context, w http.ResponseWriter, sess session.Session, claims *token.Claims) {
	u, err := model.GetUserAs[model.UserForAuth](ctx, identity.Root(), m.mm, claims.UserID)
	if err != nil {
		return
	}
	raw, exp, err := m.issuer.Issue(u.ID, u.Username, sess.ID, u.TokenSalt)
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).Warn("Failed to refresh auth token")
		return
	}
	sess.ExpiresAt = exp.UTC()
	if err := m.sessions.Put(ctx, sess); err != nil {
		m.logger.WithContext(ctx).WithError(err).Warn("Failed to refresh session")
		return
	}
	token.SetCookie(w, raw, exp)
}

// RequireCtx rejects requests whose caller was not resolved.
func RequireCtx(respond ErrorResponder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err, ok := identity.FromContext(r.Context())
			if !ok {
				err = errors.AuthRequired("ctx not resolved")
			}
			if err != nil {
				respond(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

