package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/uno-framework/uno/config"
	"github.com/uno-framework/uno/vars"
	"golang.org/x/crypto/argon2"
)

const saltLen = 16
const hashLen = 32

// HashPassword produces the standard encoded argon2id form
// $argon2id$v=19$m=...,t=...,p=...$salt$hash with parameters from config,
// so parameters can be raised later without invalidating stored hashes.
func HashPassword(password string) (encoded string, err error) {
	salt := make([]byte, saltLen)
	if _, err = rand.Read(salt); err != nil {
		return "", vars.Wrap(vars.CodeSecurity, "hashPassword", err)
	}
	sec := config.Cfg.Security
	hash := argon2.IDKey([]byte(password), salt, sec.ArgonTime, sec.ArgonMemory, sec.ArgonLanes, hashLen)
	encoded = fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, sec.ArgonMemory, sec.ArgonTime, sec.ArgonLanes,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
	return encoded, nil
}

// VerifyPassword recomputes the hash with the parameters stored in the
// encoded form and compares in constant time.
func VerifyPassword(password, encoded string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return vars.Wrap(vars.CodeSecurity, "verifyPassword", vars.ErrBadCredentials)
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return vars.Wrap(vars.CodeSecurity, "verifyPassword", vars.ErrBadCredentials)
	}
	var memory uint32
	var timeCost uint32
	var lanes uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &lanes); err != nil {
		return vars.Wrap(vars.CodeSecurity, "verifyPassword", vars.ErrBadCredentials)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return vars.Wrap(vars.CodeSecurity, "verifyPassword", vars.ErrBadCredentials)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return vars.Wrap(vars.CodeSecurity, "verifyPassword", vars.ErrBadCredentials)
	}
	got := argon2.IDKey([]byte(password), salt, timeCost, memory, lanes, uint32(len(want)))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return vars.Wrap(vars.CodeSecurity, "verifyPassword", vars.ErrBadCredentials)
	}
	return nil
}
