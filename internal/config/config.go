package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/chronos.db"

	// Token signing
	TokenSecret     string // HMAC key, min 32 bytes; no default
	TokenTTLSeconds int    // default validity for issued tokens

	// Working-hours schedule ("HH:MM", 24h) and the IANA time zone it is
	// expressed in ("" = UTC)
	WorkStart  string
	WorkEnd    string
	LunchStart string
	LunchEnd   string
	Timezone   string

	// Rate limits (fixed window)
	ScanLimit      int // max scans per user per window
	ScanWindowSec  int
	IssueLimit     int // max token issues per machine per window
	IssueWindowSec int

	// Replay-nonce retention
	ReplayRetentionDays int // 0 = keep forever
	PruneIntervalHours  int // how often the pruner runs (default 6)
}

func FromEnv() Config {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	addr := getenvDefault("CHRONOS_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("CHRONOS_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("CHRONOS_DB_PATH", "./data/chronos.db")

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		TokenSecret:     os.Getenv("CHRONOS_TOKEN_SECRET"),
		TokenTTLSeconds: getenvInt("CHRONOS_TOKEN_TTL_SECONDS", 60),

		WorkStart:  getenvDefault("CHRONOS_WORK_START", "08:00"),
		WorkEnd:    getenvDefault("CHRONOS_WORK_END", "17:00"),
		LunchStart: getenvDefault("CHRONOS_LUNCH_START", "12:00"),
		LunchEnd:   getenvDefault("CHRONOS_LUNCH_END", "13:00"),
		Timezone:   os.Getenv("CHRONOS_TIMEZONE"),

		ScanLimit:      getenvInt("CHRONOS_SCAN_LIMIT", 20),
		ScanWindowSec:  getenvInt("CHRONOS_SCAN_WINDOW_SECONDS", 60),
		IssueLimit:     getenvInt("CHRONOS_ISSUE_LIMIT", 5),
		IssueWindowSec: getenvInt("CHRONOS_ISSUE_WINDOW_SECONDS", 60),

		ReplayRetentionDays: getenvInt("CHRONOS_REPLAY_RETENTION_DAYS", 30),
		PruneIntervalHours:  getenvInt("CHRONOS_PRUNE_INTERVAL_HOURS", 6),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
