// Package scheduler optionally drives the automatic-deposit batch on a
// cron schedule. The batch stays callable on demand over HTTP; the
// scheduler only runs when AUTO_DEPOSIT_SCHEDULE is configured.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	repo "github.com/dcastellanos/ahorro-backend/internal/repository"
	"github.com/dcastellanos/ahorro-backend/internal/services"
)

type Scheduler struct {
	cron   *cron.Cron
	svc    *services.SettlementService
	metas  repo.Goals
	logger *slog.Logger
	spec   string
}

func New(svc *services.SettlementService, metas repo.Goals, logger *slog.Logger, spec string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))
	return &Scheduler{cron: c, svc: svc, metas: metas, logger: logger, spec: spec}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return err
	}
	s.logger.Info("scheduled automatic deposit batch", "schedule", s.spec)
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	users, err := s.metas.ListAutomaticUsers(ctx)
	if err != nil {
		s.logger.Error("automatic batch: list users", "err", err)
		return
	}
	for _, uid := range users {
		res, err := s.svc.ProcessAutomatic(ctx, uid)
		if errors.Is(err, services.ErrNoPaymentMethod) {
			// eligible goals but nothing to charge against; skip
			s.logger.Warn("automatic batch: no payment method", "usuario_id", uid)
			continue
		}
		if err != nil {
			s.logger.Error("automatic batch failed", "usuario_id", uid, "err", err)
			continue
		}
		s.logger.Info("automatic batch processed",
			"usuario_id", uid, "procesados", res.Procesados, "saldo_actual", res.SaldoActual)
	}
}
