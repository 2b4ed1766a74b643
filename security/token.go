package security

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/redis/go-redis/v9"
	"github.com/uno-framework/uno/config"
	"github.com/uno-framework/uno/vars"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// TokenPair is what login and refresh hand back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Tokens issues and validates HS256 JWTs. Validated claims are cached per
// token string; revocation lives in redis keyed by jti so every node sees
// it.
type Tokens struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Rds        *redis.Client

	claimCache cmap.ConcurrentMap[string, jwt.MapClaims]
}

func NewTokens(rds *redis.Client) *Tokens {
	return &Tokens{
		Secret:     config.Cfg.Jwt.Secret,
		AccessTTL:  time.Duration(config.Cfg.Jwt.AccessTTL) * time.Second,
		RefreshTTL: time.Duration(config.Cfg.Jwt.RefreshTTL) * time.Second,
		Rds:        rds,
		claimCache: cmap.New[jwt.MapClaims](),
	}
}

func (t *Tokens) sign(claims jwt.MapClaims, ttl time.Duration, kind string) (string, error) {
	now := timeNow()
	claims["jti"] = uuid.NewString()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	claims["kind"] = kind
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(t.Secret))
	return signed, vars.Wrap(vars.CodeSecurity, "sign", err)
}

// Issue creates an access/refresh pair carrying the given subject claims.
func (t *Tokens) Issue(subject string, extra map[string]interface{}) (*TokenPair, error) {
	base := func() jwt.MapClaims {
		claims := jwt.MapClaims{"sub": subject}
		for k, v := range extra {
			claims[k] = v
		}
		return claims
	}
	access, err := t.sign(base(), t.AccessTTL, "access")
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(base(), t.RefreshTTL, "refresh")
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(t.AccessTTL.Seconds())}, nil
}

// Validate parses and verifies a token string, consulting the claim cache
// first and the revocation list last.
func (t *Tokens) Validate(ctx context.Context, tokenStr string) (claims jwt.MapClaims, err error) {
	var ok bool
	if claims, ok = t.claimCache.Get(tokenStr); !ok {
		keyFunc := func(token *jwt.Token) (interface{}, error) {
			return []byte(t.Secret), nil
		}
		var parsed *jwt.Token
		if parsed, err = jwt.ParseWithClaims(tokenStr, jwt.MapClaims{}, keyFunc); err != nil {
			return nil, vars.Wrap(vars.CodeSecurity, "validate", errors.Join(vars.ErrTokenInvalid, err))
		}
		if claims, ok = parsed.Claims.(jwt.MapClaims); !ok {
			return nil, vars.Wrap(vars.CodeSecurity, "validate", vars.ErrTokenInvalid)
		}
		t.claimCache.Set(tokenStr, claims)
	}
	if exp, e := claims.GetExpirationTime(); e != nil || exp == nil || exp.Before(timeNow()) {
		t.claimCache.Remove(tokenStr)
		return nil, vars.Wrap(vars.CodeSecurity, "validate", vars.ErrTokenInvalid)
	}
	if t.Rds != nil {
		jti, _ := claims["jti"].(string)
		if jti != "" {
			if n, _ := t.Rds.Exists(ctx, revokeKey(jti)).Result(); n > 0 {
				return nil, vars.Wrap(vars.CodeSecurity, "validate", vars.ErrTokenRevoked)
			}
		}
	}
	return claims, nil
}

// Refresh validates a refresh token, revokes it and issues a new pair
// (rotation).
func (t *Tokens) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := t.Validate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if kind, _ := claims["kind"].(string); kind != "refresh" {
		return nil, vars.Wrap(vars.CodeSecurity, "refresh", vars.ErrTokenInvalid)
	}
	if err = t.Revoke(ctx, claims); err != nil {
		return nil, err
	}
	subject, _ := claims["sub"].(string)
	extra := map[string]interface{}{}
	for k, v := range claims {
		switch k {
		case "sub", "jti", "iat", "exp", "kind":
		default:
			extra[k] = v
		}
	}
	return t.Issue(subject, extra)
}

// Revoke blacklists a token until its natural expiry.
func (t *Tokens) Revoke(ctx context.Context, claims jwt.MapClaims) error {
	if t.Rds == nil {
		return nil
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return vars.Wrap(vars.CodeSecurity, "revoke", vars.ErrTokenInvalid)
	}
	ttl := t.RefreshTTL
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		if until := time.Until(exp.Time); until > 0 {
			ttl = until
		}
	}
	return vars.Wrap(vars.CodeSecurity, "revoke", t.Rds.Set(ctx, revokeKey(jti), "1", ttl).Err())
}

func revokeKey(jti string) string { return "unorevoked:" + jti }

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	return strings.TrimPrefix(header, "Bearer ")
}
