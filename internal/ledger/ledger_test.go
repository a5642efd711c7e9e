package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryDebit(t *testing.T) {
	l := New(10000)
	require.Equal(t, int64(10000), l.Current())

	after, err := l.TryDebit(5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), after)

	after, err = l.TryDebit(6000)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(5000), after, "failed debit must not mutate")
	assert.Equal(t, int64(5000), l.Current())
}

func TestCredit(t *testing.T) {
	l := New(100)
	assert.Equal(t, int64(150), l.Credit(50))
	assert.Equal(t, int64(150), l.Current())
}

func TestTryDebitExactBalance(t *testing.T) {
	l := New(100)
	after, err := l.TryDebit(100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), after)
}

// Concurrent debits must never overdraw: with balance 50 and 100
// goroutines each debiting 1, exactly 50 succeed.
func TestTryDebitConcurrent(t *testing.T) {
	l := New(50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.TryDebit(1); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, ok)
	assert.Equal(t, int64(0), l.Current())
}
