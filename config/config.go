package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds everything the server reads from its environment. The core
// never loads configuration itself; it is handed one of these.
type Config struct {
	TCPAddr string // framed-protocol listener
	WebAddr string // REST lobby + websocket listener

	PingInterval time.Duration // expected client heartbeat period
	TurnTimeout  time.Duration // think time before a turn is auto-passed
	GracePeriod  time.Duration // disconnect window before a seat turns idle

	ViolationLimit  int           // invalid requests tolerated per window
	ViolationWindow time.Duration
}

// Load reads .env if present, then the environment, falling back to
// defaults that suit local play.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Info().Err(err).Msg("not loading .env")
	}

	return Config{
		TCPAddr:         getEnv("LUDOIST_TCP_ADDR", "0.0.0.0:4590"),
		WebAddr:         getEnv("LUDOIST_WEB_ADDR", "0.0.0.0:4591"),
		PingInterval:    getEnvDuration("LUDOIST_PING_INTERVAL", 40*time.Second),
		TurnTimeout:     getEnvDuration("LUDOIST_TURN_TIMEOUT", 30*time.Second),
		GracePeriod:     getEnvDuration("LUDOIST_GRACE_PERIOD", 90*time.Second),
		ViolationLimit:  getEnvInt("LUDOIST_VIOLATION_LIMIT", 8),
		ViolationWindow: getEnvDuration("LUDOIST_VIOLATION_WINDOW", 5*time.Minute),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Msgf("%s must be an integer, using %d", key, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Msgf("%s must be a duration, using %v", key, def)
		return def
	}
	return d
}
