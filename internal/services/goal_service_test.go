package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcastellanos/ahorro-backend/internal/api/validate"
	"github.com/dcastellanos/ahorro-backend/internal/models"
	repo "github.com/dcastellanos/ahorro-backend/internal/repository"
)

var _ repo.Deposits = (*mockDeposits)(nil)

type mockDeposits struct {
	mu   sync.Mutex
	rows []models.Deposit
}

func (m *mockDeposits) ListByGoal(_ context.Context, metaID int64) ([]models.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Deposit
	for _, d := range m.rows {
		if d.MetaID == metaID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDeposits) Create(_ context.Context, d models.Deposit) (models.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, d)
	return d, nil
}

func TestGoalCreateDefaultsUserAndMode(t *testing.T) {
	svc := NewGoalService(newMockGoals(), &mockDeposits{})

	g, err := svc.Create(context.Background(), models.Goal{Nombre: "Laptop", MontoObjetivo: 30000})
	require.NoError(t, err)

	assert.Equal(t, int64(1), g.UsuarioID)
	assert.Equal(t, models.DepositoManual, g.TipoDeposito)
	assert.NotZero(t, g.ID)
}

func TestGoalCreateValidation(t *testing.T) {
	svc := NewGoalService(newMockGoals(), &mockDeposits{})

	cases := []struct {
		name string
		goal models.Goal
	}{
		{"empty name", models.Goal{MontoObjetivo: 100}},
		{"zero target", models.Goal{Nombre: "x"}},
		{"negative current", models.Goal{Nombre: "x", MontoObjetivo: 100, MontoActual: -1}},
		{"automatic without amount", models.Goal{Nombre: "x", MontoObjetivo: 100, TipoDeposito: models.DepositoAutomatico}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.goal)
			var verrs validate.Errs
			require.ErrorAs(t, err, &verrs)
		})
	}
}

func TestGoalUpdateNotFound(t *testing.T) {
	svc := NewGoalService(newMockGoals(), &mockDeposits{})

	_, err := svc.Update(context.Background(), 77, models.Goal{UsuarioID: 1, Nombre: "x", MontoObjetivo: 100})
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestGoalDelete(t *testing.T) {
	metas := newMockGoals(models.Goal{ID: 5, UsuarioID: 1, Nombre: "Viaje", MontoObjetivo: 100})
	svc := NewGoalService(metas, &mockDeposits{})

	require.NoError(t, svc.Delete(context.Background(), 5))
	require.ErrorIs(t, svc.Delete(context.Background(), 5), repo.ErrNotFound)
}

func TestAddDepositBumpsGoal(t *testing.T) {
	metas := newMockGoals(models.Goal{ID: 2, UsuarioID: 1, Nombre: "Fondo", MontoObjetivo: 1000, MontoActual: 50})
	dep := &mockDeposits{}
	svc := NewGoalService(metas, dep)

	d, err := svc.AddDeposit(context.Background(), 2, models.Deposit{Monto: 200})
	require.NoError(t, err)

	assert.Equal(t, int64(2), d.MetaID)
	assert.Equal(t, string(models.DepositoManual), d.Tipo)

	g, _ := metas.GetByID(context.Background(), 2)
	assert.Equal(t, int64(250), g.MontoActual)

	list, err := svc.Deposits(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(200), list[0].Monto)
}

func TestAddDepositRejectsNonPositive(t *testing.T) {
	metas := newMockGoals(models.Goal{ID: 2, UsuarioID: 1, Nombre: "Fondo", MontoObjetivo: 1000})
	svc := NewGoalService(metas, &mockDeposits{})

	_, err := svc.AddDeposit(context.Background(), 2, models.Deposit{Monto: 0})
	var verrs validate.Errs
	require.ErrorAs(t, err, &verrs)

	g, _ := metas.GetByID(context.Background(), 2)
	assert.Equal(t, int64(0), g.MontoActual)
}

func TestAddDepositUnknownGoal(t *testing.T) {
	svc := NewGoalService(newMockGoals(), &mockDeposits{})

	_, err := svc.AddDeposit(context.Background(), 99, models.Deposit{Monto: 10})
	require.ErrorIs(t, err, repo.ErrNotFound)
}
