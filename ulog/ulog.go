package ulog

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type uWriter struct {
}

// RdsClientToLog mirrors log entries to a redis sorted set when set, so a
// fleet of uno nodes can be tailed from one place.
var RdsClientToLog *redis.Client = nil

func (uw uWriter) WriteLevel(level zerolog.Level, p []byte) (n int, err error) {
	if RdsClientToLog != nil && level >= zerolog.WarnLevel {
		key := "unolog:" + getMachineName()
		RdsClientToLog.ZAdd(context.Background(), key, redis.Z{Score: float64(time.Now().UnixNano()), Member: string(p)})
	}
	return uw.Write(p)
}
func (uw uWriter) Write(p []byte) (n int, err error) {
	_, err = os.Stdout.Write(p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

var levelWriter uWriter = uWriter{}

var Logger = zerolog.New(levelWriter).With().Timestamp().Logger()

func Debug() *zerolog.Event {
	return Logger.Debug()
}
func Info() *zerolog.Event {
	return Logger.Info()
}
func Warn() *zerolog.Event {
	return Logger.Warn()
}
func Error() *zerolog.Event {
	return Logger.Error()
}
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}
func Panic() *zerolog.Event {
	return Logger.Panic()
}
func Log() *zerolog.Event {
	return Logger.Log()
}
