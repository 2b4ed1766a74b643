package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_default", `{"Host":"cache.internal","Port":6380,"DB":2}`)
	t.Setenv("POSTGRES", `{"Host":"db.internal","Port":5433,"User":"uno","DBName":"uno"}`)
	t.Setenv("JWT", `{"Secret":"env-secret","AccessTTL":600}`)
	t.Setenv("LogLevel", "2")

	before := len(Cfg.Redis)
	require.NoError(t, LoadConfigFromEnv())

	require.Len(t, Cfg.Redis, before+1)
	added := Cfg.Redis[len(Cfg.Redis)-1]
	require.Equal(t, "default", added.Name)
	require.Equal(t, "cache.internal", added.Host)
	require.Equal(t, int64(6380), added.Port)

	require.Equal(t, "db.internal", Cfg.Postgres.Host)
	require.Equal(t, "env-secret", Cfg.Jwt.Secret)
	require.Equal(t, int64(600), Cfg.Jwt.AccessTTL)
	require.Equal(t, int8(2), Cfg.Settings.LogLevel)
}

func TestConfigStringMasksSecrets(t *testing.T) {
	c := Configuration{
		Jwt:      ConfigJwt{Secret: "super-secret-value"},
		Postgres: ConfigPostgres{Password: "dbpass123"},
	}
	s := c.String()
	require.NotContains(t, s, "super-secret-value")
	require.NotContains(t, s, "dbpass123")
	require.Contains(t, s, "alue", "last 4 chars stay visible for identification")
}

func TestPostgresDSN(t *testing.T) {
	p := ConfigPostgres{Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	require.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", p.DSN())
}
