package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/ratelimit"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/resolver"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/service"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store/sqlite"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/token"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/config"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/db"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/httpapi"
)

const (
	// addrBackstopFactor scales the per-user scan limit into the
	// per-address backstop.
	addrBackstopFactor = 10

	// sweepInterval is how often each limiter drops expired windows.
	sweepInterval = 5 * time.Minute
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "chronos-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Token codec. A missing or weak secret is fatal: the server never
	// falls back to accepting unsigned scans as trusted.
	codec, err := token.NewCodec(cfg.TokenSecret)
	if err != nil {
		logger.Fatalf("CHRONOS_TOKEN_SECRET: %v", err)
	}

	res, err := resolver.New(resolver.WorkingHours{
		Start:      cfg.WorkStart,
		End:        cfg.WorkEnd,
		LunchStart: cfg.LunchStart,
		LunchEnd:   cfg.LunchEnd,
		Location:   cfg.Timezone,
	})
	if err != nil {
		logger.Fatalf("working hours config: %v", err)
	}

	// DB
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn, db.SeedDevOptions{}); err != nil {
			logger.Fatalf("seed dev data: %v", err)
		}
		logger.Printf("dev seed applied (machine-1 ready)")
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	// Stores
	machineStore := sqlite.NewMachineStore(conn)
	attendanceStore := sqlite.NewAttendanceStore(conn, writer)
	replayStore := sqlite.NewReplayStore(conn, writer)

	// Services
	scanSvc := service.NewScanService(codec, res, machineStore, attendanceStore, replayStore, logger)
	tokenSvc := service.NewTokenService(codec, machineStore, replayStore)

	pruner := service.NewReplayPruner(replayStore, service.PrunerConfig{
		RetentionDays: cfg.ReplayRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	// Rate limiters. The address backstop is a multiple of the per-user
	// limit: it only bites when one client rotates user ids.
	scanLimiter := ratelimit.New(ratelimit.Policy{
		Window:      time.Duration(cfg.ScanWindowSec) * time.Second,
		MaxRequests: cfg.ScanLimit,
	})
	scanAddrLimiter := ratelimit.New(ratelimit.Policy{
		Window:      time.Duration(cfg.ScanWindowSec) * time.Second,
		MaxRequests: cfg.ScanLimit * addrBackstopFactor,
	})
	issueLimiter := ratelimit.New(ratelimit.Policy{
		Window:      time.Duration(cfg.IssueWindowSec) * time.Second,
		MaxRequests: cfg.IssueLimit,
	})
	for _, l := range []*ratelimit.Limiter{scanLimiter, scanAddrLimiter, issueLimiter} {
		l.StartSweeper(ctx, sweepInterval)
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:          logger,
		Addr:            cfg.HTTPAddr,
		ScanService:     scanSvc,
		TokenService:    tokenSvc,
		Attendance:      attendanceStore,
		DefaultTokenTTL: time.Duration(cfg.TokenTTLSeconds) * time.Second,
		ScanLimiter:     scanLimiter,
		IssueLimiter:    issueLimiter,
		ScanAddrLimiter: scanAddrLimiter,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
