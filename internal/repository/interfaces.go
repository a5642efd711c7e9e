package repository

import (
	"context"
	"errors"

	"github.com/dcastellanos/ahorro-backend/internal/models"
)

var ErrNotFound = errors.New("not found")

// Payments is the append-only settlement history. No update or delete:
// a record is immutable once written.
type Payments interface {
	Create(ctx context.Context, p models.Payment) (models.Payment, error)
	ListAll(ctx context.Context) ([]models.Payment, error)
}

type Goals interface {
	GetByID(ctx context.Context, id int64) (models.Goal, error)
	List(ctx context.Context) ([]models.Goal, error)
	Create(ctx context.Context, g models.Goal) (models.Goal, error)
	Update(ctx context.Context, g models.Goal) (models.Goal, error)
	// Delete removes the goal together with its deposit history.
	Delete(ctx context.Context, id int64) error

	// IncreaseCurrent adds amount to monto_actual atomically in SQL.
	IncreaseCurrent(ctx context.Context, id int64, amount int64) (models.Goal, error)
	// ListAutomaticEligible returns automatic goals with a positive
	// automatic amount that have not yet reached their target.
	ListAutomaticEligible(ctx context.Context, usuarioID int64) ([]models.Goal, error)
	// ListAutomaticUsers returns the distinct owners of eligible goals.
	ListAutomaticUsers(ctx context.Context) ([]int64, error)
}

type Deposits interface {
	ListByGoal(ctx context.Context, metaID int64) ([]models.Deposit, error)
	Create(ctx context.Context, d models.Deposit) (models.Deposit, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
