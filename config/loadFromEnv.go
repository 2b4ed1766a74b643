package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/uno-framework/uno/ulog"
)

// LoadConfigFromEnv overlays the environment on top of whatever the toml
// file produced. Redis servers come in as REDIS_<name>={...json...}; the
// other sections as single json blobs.
func LoadConfigFromEnv() (err error) {
	var envMap = map[string]string{}
	for _, env := range os.Environ() {
		kvs := strings.SplitN(env, "=", 2)
		if len(kvs) == 2 && len(kvs[0]) > 0 && len(kvs[1]) > 0 {
			envMap[kvs[0]] = kvs[1]
		}
	}
	//load redis items
	for key, val := range envMap {
		var rdsCfg = ConfigRedis{}
		if !strings.HasPrefix(key, "REDIS_") || len(key) <= 6 {
			continue
		}
		if val = strings.TrimSpace(val); len(val) == 0 || val[0] != '{' || val[len(val)-1] != '}' {
			continue
		}
		if err := json.Unmarshal([]byte(val), &rdsCfg); err != nil {
			ulog.Fatal().Err(err).Str("redisEnv", val).Msg("load env REDIS_* failed, expected {Username,Password,Host,Port,DB}")
		}
		rdsCfg.Name = key[6:]
		Cfg.Redis = append(Cfg.Redis, rdsCfg)
	}

	if pgEnv, ok := envMap["POSTGRES"]; ok && pgEnv != "" {
		if err := json.Unmarshal([]byte(pgEnv), &Cfg.Postgres); err != nil {
			ulog.Fatal().Err(err).Str("pgEnv", pgEnv).Msg("load env POSTGRES failed")
		}
	}
	if jwtEnv, ok := envMap["JWT"]; ok && jwtEnv != "" {
		if err := json.Unmarshal([]byte(jwtEnv), &Cfg.Jwt); err != nil {
			ulog.Fatal().Err(err).Str("jwtEnv", jwtEnv).Msg("load env JWT failed")
		}
	}
	if httpEnv, ok := envMap["HTTP"]; ok && httpEnv != "" {
		if err := json.Unmarshal([]byte(httpEnv), &Cfg.Http); err != nil {
			ulog.Fatal().Err(err).Str("httpEnv", httpEnv).Msg("load env HTTP failed")
		}
	}
	if secEnv, ok := envMap["SECURITY"]; ok && secEnv != "" {
		if err := json.Unmarshal([]byte(secEnv), &Cfg.Security); err != nil {
			ulog.Fatal().Err(err).Str("securityEnv", secEnv).Msg("load env SECURITY failed")
		}
	}
	if logLevelEnv, ok := envMap["LogLevel"]; ok && len(logLevelEnv) > 0 {
		if logLevel, err := strconv.ParseInt(logLevelEnv, 10, 8); err == nil {
			Cfg.Settings.LogLevel = int8(logLevel)
		}
	}
	return nil
}
