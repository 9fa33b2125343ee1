package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/opencampus/cms-api/internal/utils"
)

// Config holds all runtime configuration values.  A single Config is built
// at startup and passed into every component that needs it; nothing reads
// the environment after Load returns.
type Config struct {
	Env  string // application environment (dev/test/prod)
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnLifetime time.Duration

	SessionTTL    time.Duration // session lifetime, refreshed on /auth/refresh
	PurgeInterval time.Duration // how often the expired-session sweep runs

	Argon2 utils.Argon2Params // password hashing costs

	AdminEmail    string // bootstrap admin account, ensured at startup
	AdminPassword string
	AdminContact  string
}

// Load reads configuration from environment variables.  Required variables
// are enforced by must(); missing values abort startup with a fatal log.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		DBMaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 25),
		DBConnLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		SessionTTL:    time.Duration(envInt("SESSION_TTL_MIN", 15)) * time.Minute,
		PurgeInterval: envDur("SESSION_PURGE_INTERVAL", time.Hour),

		Argon2: argonParams(),

		AdminEmail:    envStr("ADMIN_EMAIL", "admin@cms.com"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminContact:  envStr("ADMIN_CONTACT_NO", "+91 98746 54321"),
	}
}

func argonParams() utils.Argon2Params {
	p := utils.DefaultArgon2Params()
	if v := envInt("ARGON_MEMORY_KIB", 0); v > 0 {
		p.Memory = uint32(v)
	}
	if v := envInt("ARGON_TIME_COST", 0); v > 0 {
		p.Iterations = uint32(v)
	}
	if v := envInt("ARGON_PARALLELISM", 0); v > 0 {
		p.Parallelism = uint8(v)
	}
	return p
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}
