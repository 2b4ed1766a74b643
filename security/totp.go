package security

import (
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/uno-framework/uno/config"
	"github.com/uno-framework/uno/vars"
)

// TotpEnrollment is what a client needs to finish MFA setup: the shared
// secret, the otpauth:// URL for QR rendering, and single-use recovery
// codes.
type TotpEnrollment struct {
	Secret        string   `json:"secret"`
	URL           string   `json:"url"`
	RecoveryCodes []string `json:"recovery_codes"`
}

func EnrollTotp(account string) (*TotpEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      config.Cfg.Security.TotpIssuer,
		AccountName: account,
	})
	if err != nil {
		return nil, vars.Wrap(vars.CodeSecurity, "enrollTotp", err)
	}
	codes := make([]string, 8)
	for i := range codes {
		codes[i] = uuid.NewString()
	}
	return &TotpEnrollment{Secret: key.Secret(), URL: key.URL(), RecoveryCodes: codes}, nil
}

// ValidateTotp accepts the current code and its immediate neighbors to
// absorb clock skew between client and server.
func ValidateTotp(code, secret string) error {
	ok, err := totp.ValidateCustom(code, secret, timeNow(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return vars.Wrap(vars.CodeSecurity, "validateTotp", err)
	}
	if !ok {
		return vars.Wrap(vars.CodeSecurity, "validateTotp", vars.ErrTotpCodeRejected)
	}
	return nil
}
