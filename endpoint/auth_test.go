package endpoint

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uno-framework/uno/security"
)

type stubAccounts struct{ account *Account }

func (s stubAccounts) FindAccount(ctx context.Context, username string) (*Account, error) {
	return s.account, nil
}

func authServer(t *testing.T) *Server {
	t.Helper()
	hash, err := security.HashPassword("hunter2")
	require.NoError(t, err)
	s := &Server{
		Tokens:   &security.Tokens{Secret: "unit-test-secret", AccessTTL: time.Minute * 15, RefreshTTL: time.Hour * 24},
		Audit:    security.NewAudit(nil),
		Recovery: security.NewRecoveryCodes(nil),
		Accounts: stubAccounts{&Account{ID: "u1", PasswordHash: hash, TotpSecret: "JBSWY3DPEHPK3PXP"}},
	}
	require.NoError(t, s.Recovery.Store(context.Background(), "u1", []string{"rescue-1"}))
	return s
}

func doLogin(s *Server, totpCode string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"username":"alice","password":"hunter2","totp_code":%q}`, totpCode)
	r := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handleLogin(rec, r)
	return rec
}

func TestLoginRecoveryCodeFallback(t *testing.T) {
	s := authServer(t)
	require.Equal(t, http.StatusOK, doLogin(s, "rescue-1").Code)
	require.Equal(t, http.StatusUnauthorized, doLogin(s, "rescue-1").Code, "recovery codes are single use")
}

func TestLoginRejectsBadTotpCode(t *testing.T) {
	s := authServer(t)
	require.Equal(t, http.StatusUnauthorized, doLogin(s, "000000").Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := authServer(t)
	body := `{"username":"alice","password":"wrong","totp_code":"rescue-1"}`
	r := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handleLogin(rec, r)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
