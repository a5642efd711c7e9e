package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/dcastellanos/ahorro-backend/internal/repository"
)

type Repositories struct {
	Payments  repo.Payments
	Goals     repo.Goals
	Deposits  repo.Deposits
	AuditLogs repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Payments:  &paymentsRepo{pool},
		Goals:     &goalsRepo{pool},
		Deposits:  &depositsRepo{pool},
		AuditLogs: &auditLogsRepo{pool},
	}
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
