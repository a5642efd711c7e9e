// Package ledger holds the mock bank balance the settlement engine
// debits against.
package ledger

import (
	"errors"
	"sync"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger is the single mutable balance. TryDebit checks and subtracts
// inside one critical section so two concurrent settlements cannot both
// pass the sufficiency check against a stale balance.
type Ledger struct {
	mu      sync.Mutex
	balance int64
}

func New(initial int64) *Ledger {
	return &Ledger{balance: initial}
}

func (l *Ledger) Current() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// TryDebit subtracts amount if the balance covers it. On failure the
// balance is untouched; the returned value is the balance either way.
func (l *Ledger) TryDebit(amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > l.balance {
		return l.balance, ErrInsufficientFunds
	}
	l.balance -= amount
	return l.balance, nil
}

// Credit adds amount back. Reserved for refund/reversal paths.
func (l *Ledger) Credit(amount int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance += amount
	return l.balance
}
