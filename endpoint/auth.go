package endpoint

import (
	"context"
	"net/http"

	"github.com/uno-framework/uno/security"
	"github.com/uno-framework/uno/vars"
)

// Account is what the credential backend hands the login flow.
type Account struct {
	ID           string
	PasswordHash string
	TotpSecret   string
	Claims       map[string]interface{}
}

// AccountSource resolves usernames to accounts. Applications plug in
// their user table here; ErrNotFound means unknown user.
type AccountSource interface {
	FindAccount(ctx context.Context, username string) (*Account, error)
}

func (s *Server) mountAuth() {
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	s.mux.HandleFunc("POST /auth/logout", s.requireAuth(s.handleLogout))
	s.mux.HandleFunc("POST /auth/totp/enroll", s.requireAuth(s.handleTotpEnroll))
	s.mux.HandleFunc("POST /auth/totp/verify", s.handleTotpVerify)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TotpCode string `json:"totp_code"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, vars.Wrap(vars.CodeEndpoint, "login", err))
		return
	}
	audit := func(outcome string) {
		s.Audit.Record(r.Context(), security.AuditEvent{
			Actor: req.Username, Action: "login", Outcome: outcome, IP: clientIP(r),
		})
	}
	if s.Accounts == nil {
		audit("unavailable")
		respondErr(w, r, vars.Wrap(vars.CodeEndpoint, "login", vars.ErrBadCredentials))
		return
	}
	account, err := s.Accounts.FindAccount(r.Context(), req.Username)
	if err != nil || security.VerifyPassword(req.Password, account.PasswordHash) != nil {
		audit("denied")
		respondErr(w, r, vars.Wrap(vars.CodeEndpoint, "login", vars.ErrBadCredentials))
		return
	}
	outcome := "ok"
	if account.TotpSecret != "" {
		if err = security.ValidateTotp(req.TotpCode, account.TotpSecret); err != nil {
			//a lost device falls back to a single-use recovery code
			if s.Recovery == nil || s.Recovery.Redeem(r.Context(), account.ID, req.TotpCode) != nil {
				audit("totp-denied")
				respondErr(w, r, err)
				return
			}
			outcome = "recovery-code"
		}
	}
	pair, err := s.Tokens.Issue(account.ID, account.Claims)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	audit(outcome)
	respond(w, r, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, vars.Wrap(vars.CodeEndpoint, "refresh", err))
		return
	}
	pair, err := s.Tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, pair)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := Claims(r)
	if err := s.Tokens.Revoke(r.Context(), claims); err != nil {
		respondErr(w, r, err)
		return
	}
	subject, _ := claims["sub"].(string)
	s.Audit.Record(r.Context(), security.AuditEvent{
		Actor: subject, Action: "logout", Outcome: "ok", IP: clientIP(r),
	})
	respond(w, r, http.StatusOK, map[string]bool{"revoked": true})
}

func (s *Server) handleTotpEnroll(w http.ResponseWriter, r *http.Request) {
	subject, _ := Claims(r)["sub"].(string)
	enrollment, err := security.EnrollTotp(subject)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if s.Recovery != nil {
		if err = s.Recovery.Store(r.Context(), subject, enrollment.RecoveryCodes); err != nil {
			respondErr(w, r, err)
			return
		}
	}
	s.Audit.Record(r.Context(), security.AuditEvent{
		Actor: subject, Action: "totp-enroll", Outcome: "ok", IP: clientIP(r),
	})
	respond(w, r, http.StatusOK, enrollment)
}

// handleTotpVerify checks a code against a secret, used by clients to
// confirm an enrollment before they store it.
func (s *Server) handleTotpVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code   string `json:"code"`
		Secret string `json:"secret"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, vars.Wrap(vars.CodeEndpoint, "totpVerify", err))
		return
	}
	if err := security.ValidateTotp(req.Code, req.Secret); err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]bool{"valid": true})
}
