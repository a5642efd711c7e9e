package main

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dcastellanos/ahorro-backend/internal/api"
	"github.com/dcastellanos/ahorro-backend/internal/api/handlers"
	"github.com/dcastellanos/ahorro-backend/internal/auth"
	"github.com/dcastellanos/ahorro-backend/internal/config"
	"github.com/dcastellanos/ahorro-backend/internal/db"
	"github.com/dcastellanos/ahorro-backend/internal/events"
	"github.com/dcastellanos/ahorro-backend/internal/ledger"
	"github.com/dcastellanos/ahorro-backend/internal/logger"
	"github.com/dcastellanos/ahorro-backend/internal/metrics"
	"github.com/dcastellanos/ahorro-backend/internal/repository/postgres"
	"github.com/dcastellanos/ahorro-backend/internal/scheduler"
	"github.com/dcastellanos/ahorro-backend/internal/services"
	"github.com/dcastellanos/ahorro-backend/internal/vault"
	"github.com/dcastellanos/ahorro-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	metrics.Init()

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(4)
	defer wp.Stop()

	// payment references live in memory unless a Redis backend is
	// configured; in-memory references vanish on restart
	var v vault.Vault = vault.NewMemory()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("redis connect", "err", err)
			os.Exit(1)
		}
		v = vault.NewRedis(rdb)
		log.Info("reference vault backed by redis", "addr", cfg.RedisAddr)
	}

	var pub events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQP(cfg.AMQPURL)
		if err != nil {
			log.Warn("amqp connect failed, events disabled", "err", err)
		} else {
			pub = amqpPub
			defer amqpPub.Close()
		}
	}

	bank := ledger.New(cfg.InitialBalance)
	metrics.BankBalance.Set(float64(cfg.InitialBalance))

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	settlementSvc := services.NewSettlementService(
		repos.Payments,
		repos.Goals,
		repos.AuditLogs,
		v,
		bank,
		services.BankDecision(rng),
		pub,
		wp,
	)
	goalSvc := services.NewGoalService(repos.Goals, repos.Deposits)

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, 15*time.Minute, 7*24*time.Hour)
	ph := handlers.NewPagosHandler(settlementSvc, v)
	mh := handlers.NewMetasHandler(goalSvc)
	r := api.NewRouter(cfg, tm, ph, mh)

	if cfg.AutoDepositSchedule != "" {
		sched := scheduler.New(settlementSvc, repos.Goals, log, cfg.AutoDepositSchedule)
		if err := sched.Start(); err != nil {
			log.Error("scheduler start", "err", err)
			os.Exit(1)
		}
		defer func() { <-sched.Stop().Done() }()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "saldo_inicial", cfg.InitialBalance)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
