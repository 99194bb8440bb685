package config

import (
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"CHRONOS_HTTP_ADDR", "CHRONOS_ENV", "CHRONOS_DB_PATH",
		"CHRONOS_TOKEN_SECRET", "CHRONOS_TOKEN_TTL_SECONDS",
		"CHRONOS_WORK_START", "CHRONOS_WORK_END",
		"CHRONOS_LUNCH_START", "CHRONOS_LUNCH_END", "CHRONOS_TIMEZONE",
		"CHRONOS_SCAN_LIMIT", "CHRONOS_SCAN_WINDOW_SECONDS",
		"CHRONOS_ISSUE_LIMIT", "CHRONOS_ISSUE_WINDOW_SECONDS",
		"CHRONOS_REPLAY_RETENTION_DAYS", "CHRONOS_PRUNE_INTERVAL_HOURS",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr: got %q", cfg.HTTPAddr)
	}
	if cfg.Env != "dev" {
		t.Errorf("Env: got %q", cfg.Env)
	}
	if cfg.TokenTTLSeconds != 60 {
		t.Errorf("TokenTTLSeconds: got %d", cfg.TokenTTLSeconds)
	}
	if cfg.WorkStart != "08:00" || cfg.WorkEnd != "17:00" {
		t.Errorf("work hours: got %s-%s", cfg.WorkStart, cfg.WorkEnd)
	}
	if cfg.LunchStart != "12:00" || cfg.LunchEnd != "13:00" {
		t.Errorf("lunch: got %s-%s", cfg.LunchStart, cfg.LunchEnd)
	}
	if cfg.Timezone != "" {
		t.Errorf("Timezone: got %q", cfg.Timezone)
	}

	if cfg.ScanLimit != 20 || cfg.ScanWindowSec != 60 {
		t.Errorf("scan policy: got %d/%ds", cfg.ScanLimit, cfg.ScanWindowSec)
	}
	if cfg.IssueLimit != 5 || cfg.IssueWindowSec != 60 {
		t.Errorf("issue policy: got %d/%ds", cfg.IssueLimit, cfg.IssueWindowSec)
	}

	if cfg.ReplayRetentionDays != 30 || cfg.PruneIntervalHours != 6 {
		t.Errorf("retention: got %dd/%dh", cfg.ReplayRetentionDays, cfg.PruneIntervalHours)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CHRONOS_ENV", "PROD")
	t.Setenv("CHRONOS_SCAN_LIMIT", "3")
	t.Setenv("CHRONOS_TIMEZONE", "America/Sao_Paulo")

	cfg := FromEnv()

	if cfg.Env != "prod" {
		t.Errorf("Env: got %q", cfg.Env)
	}
	if cfg.ScanLimit != 3 {
		t.Errorf("ScanLimit: got %d", cfg.ScanLimit)
	}
	if cfg.Timezone != "America/Sao_Paulo" {
		t.Errorf("Timezone: got %q", cfg.Timezone)
	}
}

func TestFromEnv_BadIntFallsBack(t *testing.T) {
	t.Setenv("CHRONOS_SCAN_LIMIT", "lots")
	t.Setenv("CHRONOS_ISSUE_LIMIT", "-4")

	cfg := FromEnv()

	if cfg.ScanLimit != 20 {
		t.Errorf("ScanLimit: got %d", cfg.ScanLimit)
	}
	if cfg.IssueLimit != 5 {
		t.Errorf("IssueLimit: got %d", cfg.IssueLimit)
	}
}
