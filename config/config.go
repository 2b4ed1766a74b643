package config

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/uno-framework/uno/ulog"
)

type ConfigHttp struct {
	CORES string
	Port  int64
	Path  string
	//MaxBodySize is the max size of a request body in bytes, default 10M
	MaxBodySize int64
	//RatePerSecond / RateBurst gate each client token bucket. 0 disables limiting.
	RatePerSecond float64
	RateBurst     int
}
type ConfigRedis struct {
	Name     string
	Username string
	Password string
	Host     string
	Port     int64
	DB       int64
}
type ConfigPostgres struct {
	Host     string
	Port     int64
	User     string
	Password string
	DBName   string
	SSLMode  string
}
type ConfigJwt struct {
	Secret     string
	AccessTTL  int64 // seconds
	RefreshTTL int64 // seconds
}
type ConfigSecurity struct {
	//AutoPermit should never be true in production
	AutoPermit  bool
	ArgonMemory uint32
	ArgonTime   uint32
	ArgonLanes  uint8
	TotpIssuer  string
}
type ConfigOffline struct {
	Dir       string
	BatchSize int
}
type ConfigPlugin struct {
	ManifestDir string
}
type ConfigSettings struct {
	//{"DebugLevel": 0,"InfoLevel": 1,"WarnLevel": 2,"ErrorLevel": 3,"FatalLevel": 4,"PanicLevel": 5,"NoLevel": 6,"Disabled": 7}
	LogLevel int8
}

type Configuration struct {
	Redis    []ConfigRedis
	Postgres ConfigPostgres
	Jwt      ConfigJwt
	Http     ConfigHttp
	Security ConfigSecurity
	Offline  ConfigOffline
	Plugin   ConfigPlugin
	Settings ConfigSettings
}

func (c Configuration) String() string {
	var (
		c1  Configuration
		buf bytes.Buffer
	)
	HideCharsButLast4 := func(s string) string {
		if len(s) <= 4 {
			return strings.Repeat("*", len(s))
		}
		return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
	}
	//use gob to deep copy, to prevent error modification of the original secret
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return "error: " + err.Error() + " when encoding config to gob string"
	}
	gob.NewDecoder(&buf).Decode(&c1)
	c1.Jwt.Secret = HideCharsButLast4(c1.Jwt.Secret)
	c1.Postgres.Password = HideCharsButLast4(c1.Postgres.Password)
	for i := range c1.Redis {
		c1.Redis[i].Password = HideCharsButLast4(c1.Redis[i].Password)
	}
	jsonstr, _ := json.Marshal(c1)
	return string(jsonstr)
}

// set default values
var Cfg Configuration = Configuration{
	Redis:    []ConfigRedis{},
	Postgres: ConfigPostgres{Host: "localhost", Port: 5432, SSLMode: "disable"},
	Jwt:      ConfigJwt{AccessTTL: 900, RefreshTTL: 86400 * 7},
	Http:     ConfigHttp{CORES: "*", Port: 80, Path: "/", MaxBodySize: 10485760},
	Security: ConfigSecurity{ArgonMemory: 64 * 1024, ArgonTime: 1, ArgonLanes: 4, TotpIssuer: "uno"},
	Offline:  ConfigOffline{Dir: "./uno-offline", BatchSize: 128},
	Plugin:   ConfigPlugin{ManifestDir: "./plugins"},
	Settings: ConfigSettings{LogLevel: 1},
}

// Rds holds the named redis clients built by Setup.
var Rds map[string]*redis.Client = map[string]*redis.Client{}

// DB is the shared postgres handle built by Setup. Nil until Setup succeeds.
var DB *sql.DB

func GetRdsClientByName(name string) (rc *redis.Client, err error) {
	var ok bool
	if rc, ok = Rds[name]; !ok {
		return nil, fmt.Errorf("redis client with name %s not defined in configuration", name)
	}
	return rc, nil
}

// Setup loads uno.toml then the environment, connects every configured
// backend and wires the log mirror. Call once at process start.
func Setup() error {
	ulog.Info().Msg("Step1.0: uno start, loading config")
	LoadConfigFromToml()
	LoadConfigFromEnv()
	ulog.Info().Str("Step1.1 effective config", Cfg.String()).Send()

	zerolog.SetGlobalLevel(zerolog.Level(Cfg.Settings.LogLevel))

	for _, rdsCfg := range Cfg.Redis {
		redisOption := &redis.Options{
			Addr:         rdsCfg.Host + ":" + strconv.Itoa(int(rdsCfg.Port)),
			Username:     rdsCfg.Username,
			Password:     rdsCfg.Password,
			DB:           int(rdsCfg.DB),
			PoolSize:     200,
			DialTimeout:  time.Second * 10,
			ReadTimeout:  -1,
			WriteTimeout: time.Second * 300,
		}
		rdsClient := redis.NewClient(redisOption)
		if _, err := rdsClient.Ping(context.Background()).Result(); err != nil {
			ulog.Error().Err(err).Str("Step1.2 redis ping failed", rdsCfg.Host).Send()
			return err
		}
		ulog.Info().Str("Step1.2 redis connected", rdsCfg.Name).Str("host", rdsCfg.Host).Send()
		Rds[rdsCfg.Name] = rdsClient
		pingServer(rdsCfg.Host)
	}
	if rds, ok := Rds["default"]; ok {
		ulog.RdsClientToLog = rds
	} else {
		ulog.Warn().Msg("Step1.2 \"default\" redis server missing; cache L2, event bus and audit sinks will be unavailable")
	}

	if Cfg.Postgres.DBName != "" {
		db, err := sql.Open("postgres", Cfg.Postgres.DSN())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = db.PingContext(ctx); err != nil {
			ulog.Error().Err(err).Str("Step1.3 postgres ping failed", Cfg.Postgres.Host).Send()
			return err
		}
		DB = db
		ulog.Info().Str("Step1.3 postgres connected", Cfg.Postgres.Host).Send()
		pingServer(Cfg.Postgres.Host)
	}
	ulog.Info().Msg("Step1.E: uno config loaded")
	return nil
}

func (p ConfigPostgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}
