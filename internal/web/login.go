package web

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/R3E-Network/model_layer/internal/auth/pwd"
	"github.com/R3E-Network/model_layer/internal/auth/token"
	"github.com/R3E-Network/model_layer/internal/errors"
	"github.com/R3E-Network/model_layer/internal/identity"
	"github.com/R3E-Network/model_layer/internal/model"
	"github.com/R3E-Network/model_layer/internal/session"
)

type loginPayload struct {
	Username string `json:"username"`
	Pwd      string `json:"pwd"`
}

type logoffPayload struct {
	Logoff bool `json:"logoff"`
}

func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, errors.ParamDecodeFailure("invalid login payload", err))
			return
		}

		if err := s.login(w, r, req); err != nil {
			s.metrics.RecordLogin("failure")
			WriteError(w, r, err)
			return
		}
		s.metrics.RecordLogin("success")
		writeJSON(w, http.StatusOK, resultBody{Result: map[string]bool{"success": true}})
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, req loginPayload) error {
	ctx := r.Context()
	root := identity.Root()

	user, err := model.FirstByUsername[model.UserForLogin](ctx, root, s.mm, req.Username)
	if err != nil {
		return err
	}
	if user == nil {
		s.logger.LogSecurityEvent(ctx, "login_failed", map[string]interface{}{"reason": "unknown username"})
		return errors.LoginFailed("unknown username")
	}
	if user.Pwd == nil {
		s.logger.LogSecurityEvent(ctx, "login_failed", map[string]interface{}{"reason": "no password", "login_user_id": user.ID})
		return errors.LoginFailed("user has no password")
	}

	status, err := s.hasher.Validate(pwd.ContentToHash{Content: req.Pwd, Salt: user.PwdSalt}, *user.Pwd)
	if err != nil {
		s.logger.LogSecurityEvent(ctx, "login_failed", map[string]interface{}{"reason": err.Error(), "login_user_id": user.ID})
		return errors.LoginFailed("password not matching")
	}
	if status == pwd.StatusOutdated {
		if err := model.UserBmc.UpdatePwd(ctx, root, s.mm, s.hasher, user.ID, req.Pwd); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("login_user_id", user.ID).Warn("Failed to upgrade password scheme")
		}
	}

	sess := session.New(user.ID, user.Username, s.issuer.Duration())
	raw, exp, err := s.issuer.Issue(user.ID, user.Username, sess.ID, user.TokenSalt)
	if err != nil {
		return err
	}
	sess.ExpiresAt = exp.UTC()
	if err := s.sessions.Put(ctx, sess); err != nil {
		return errors.StoreFailure(err)
	}

	token.SetCookie(w, raw, exp)
	return nil
}

func (s *Server) logoffHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logoffPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, errors.ParamDecodeFailure("invalid logoff payload", err))
			return
		}

		if req.Logoff {
			s.endSession(r)
			token.RemoveCookie(w)
		}
		writeJSON(w, http.StatusOK, resultBody{Result: map[string]bool{"logged_off": req.Logoff}})
	}
}

// endSession drops the session named by the request cookie, if it still
// parses.
func (s *Server) endSession(r *http.Request) {
	raw := token.FromRequest(r)
	if raw == "" {
		return
	}
	ctx := r.Context()
	claims, err := s.issuer.Parse(raw, func(userID int64) (uuid.UUID, error) {
		u, err := model.GetUserAs[model.UserForAuth](ctx, identity.Root(), s.mm, userID)
		if err != nil {
			return uuid.Nil, err
		}
		return u.TokenSalt, nil
	})
	if err != nil {
		return
	}
	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to delete session")
	}
}
