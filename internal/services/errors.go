package services

import (
	"errors"
	"fmt"

	"github.com/dcastellanos/ahorro-backend/internal/models"
)

var (
	ErrInvalidReference = errors.New("referencia de pago no válida")
	ErrNoPaymentMethod  = errors.New("no hay método de pago registrado")
	ErrGoalNotFound     = errors.New("meta no encontrada")
)

// InsufficientFundsError is returned before any record is written: the
// request is rejected against the current balance and nothing mutates.
type InsufficientFundsError struct {
	Disponible int64
	Solicitado int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("saldo insuficiente: disponible %d, solicitado %d", e.Disponible, e.Solicitado)
}

// DeclinedError carries the persisted rechazado record for the
// simulated bank decline. Distinct from InsufficientFundsError: a
// decline always leaves a ledger entry.
type DeclinedError struct {
	Pago models.Payment
}

func (e *DeclinedError) Error() string {
	return "pago rechazado por el banco"
}
