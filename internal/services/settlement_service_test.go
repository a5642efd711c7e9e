package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcastellanos/ahorro-backend/internal/events"
	"github.com/dcastellanos/ahorro-backend/internal/ledger"
	"github.com/dcastellanos/ahorro-backend/internal/models"
	repo "github.com/dcastellanos/ahorro-backend/internal/repository"
	"github.com/dcastellanos/ahorro-backend/internal/vault"
	"github.com/dcastellanos/ahorro-backend/internal/worker"
)

var _ repo.Payments = (*mockPayments)(nil)

type mockPayments struct {
	mu   sync.Mutex
	rows []models.Payment
}

func (m *mockPayments) Create(_ context.Context, p models.Payment) (models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.rows = append(m.rows, p)
	return p, nil
}

func (m *mockPayments) ListAll(_ context.Context) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Payment, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

var _ repo.Goals = (*mockGoals)(nil)

type mockGoals struct {
	mu    sync.Mutex
	goals map[int64]models.Goal
}

func newMockGoals(goals ...models.Goal) *mockGoals {
	m := &mockGoals{goals: make(map[int64]models.Goal)}
	for _, g := range goals {
		m.goals[g.ID] = g
	}
	return m
}

func (m *mockGoals) GetByID(_ context.Context, id int64) (models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok {
		return models.Goal{}, repo.ErrNotFound
	}
	return g, nil
}

func (m *mockGoals) List(ctx context.Context) ([]models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Goal, 0, len(m.goals))
	for _, g := range m.goals {
		out = append(out, g)
	}
	return out, nil
}

func (m *mockGoals) Create(_ context.Context, g models.Goal) (models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = int64(len(m.goals) + 1)
	m.goals[g.ID] = g
	return g, nil
}

func (m *mockGoals) Update(_ context.Context, g models.Goal) (models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[g.ID]; !ok {
		return models.Goal{}, repo.ErrNotFound
	}
	m.goals[g.ID] = g
	return g, nil
}

func (m *mockGoals) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.goals, id)
	return nil
}

func (m *mockGoals) IncreaseCurrent(_ context.Context, id int64, amount int64) (models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok {
		return models.Goal{}, repo.ErrNotFound
	}
	g.MontoActual += amount
	m.goals[id] = g
	return g, nil
}

func (m *mockGoals) ListAutomaticEligible(_ context.Context, usuarioID int64) ([]models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Goal
	for _, g := range m.goals {
		if g.UsuarioID == usuarioID && g.TipoDeposito == models.DepositoAutomatico &&
			g.MontoAutomatico > 0 && g.MontoActual < g.MontoObjetivo {
			out = append(out, g)
		}
	}
	// map iteration is random; order by id for reproducible batches
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ID < out[i].ID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *mockGoals) ListAutomaticUsers(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]bool{}
	var out []int64
	for _, g := range m.goals {
		if g.TipoDeposito == models.DepositoAutomatico && !seen[g.UsuarioID] {
			seen[g.UsuarioID] = true
			out = append(out, g.UsuarioID)
		}
	}
	return out, nil
}

var _ repo.AuditLogs = (*mockAuditLogs)(nil)

type mockAuditLogs struct {
	mu   sync.Mutex
	rows []models.AuditLog
}

func (m *mockAuditLogs) Create(_ context.Context, l models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, l)
	return nil
}

func acceptAll(DecisionContext) bool { return true }
func rejectAll(DecisionContext) bool { return false }

type fixture struct {
	svc   *SettlementService
	pagos *mockPayments
	metas *mockGoals
	vault *vault.Memory
	bank  *ledger.Ledger
	wp    *worker.Pool
}

func newFixture(t *testing.T, balance int64, decide DecisionFunc, goals ...models.Goal) *fixture {
	t.Helper()
	f := &fixture{
		pagos: &mockPayments{},
		metas: newMockGoals(goals...),
		vault: vault.NewMemory(),
		bank:  ledger.New(balance),
		wp:    worker.NewPool(1),
	}
	t.Cleanup(f.wp.Stop)
	f.svc = NewSettlementService(f.pagos, f.metas, &mockAuditLogs{}, f.vault, f.bank, decide, events.Nop{}, f.wp)
	return f
}

func registerCard(t *testing.T, v *vault.Memory, usuarioID int64) models.PaymentReference {
	t.Helper()
	ref, err := v.Register(context.Background(), vault.RegisterInput{
		UsuarioID:        usuarioID,
		TipoMetodo:       models.MetodoTarjeta,
		NumeroTarjeta:    "1234567890123456",
		FechaVencimiento: "12/27",
		CVV:              "123",
		NombreTitular:    "Ana Torres",
	})
	require.NoError(t, err)
	return ref
}

func TestSettleAccepted(t *testing.T) {
	goal := models.Goal{ID: 3, UsuarioID: 1, Nombre: "Vacaciones", MontoObjetivo: 20000, MontoActual: 1000}
	f := newFixture(t, 10000, acceptAll, goal)

	metaID := int64(3)
	res, err := f.svc.Settle(context.Background(), SettleRequest{
		UsuarioID:   1,
		MetaID:      &metaID,
		Monto:       5000,
		Descripcion: "abono",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5000), res.SaldoActual)
	assert.Equal(t, models.PagoCompletado, res.Pago.Estado)
	assert.Equal(t, int64(10000), res.Pago.SaldoAnterior)
	assert.Equal(t, int64(5000), res.Pago.SaldoPosterior)
	assert.Equal(t, res.Pago.SaldoAnterior-res.Pago.Monto, res.Pago.SaldoPosterior)
	assert.Equal(t, models.MetodoTransferencia, res.Pago.MetodoPago)

	g, err := f.metas.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), g.MontoActual, "goal grows by the settled amount")

	pagos, _ := f.pagos.ListAll(context.Background())
	require.Len(t, pagos, 1)
}

func TestSettleInsufficientFundsWritesNoRecord(t *testing.T) {
	f := newFixture(t, 10000, acceptAll)

	_, err := f.svc.Settle(context.Background(), SettleRequest{UsuarioID: 1, Monto: 5000})
	require.NoError(t, err)

	res, err := f.svc.Settle(context.Background(), SettleRequest{UsuarioID: 1, Monto: 6000})
	var insuf *InsufficientFundsError
	require.ErrorAs(t, err, &insuf)
	assert.Equal(t, int64(5000), insuf.Disponible)
	assert.Equal(t, int64(6000), insuf.Solicitado)
	assert.Equal(t, int64(5000), res.SaldoActual)
	assert.Equal(t, int64(5000), f.bank.Current(), "balance untouched")

	pagos, _ := f.pagos.ListAll(context.Background())
	assert.Len(t, pagos, 1, "only the first attempt is recorded")
}

func TestSettleDeclined(t *testing.T) {
	f := newFixture(t, 500, rejectAll)

	res, err := f.svc.Settle(context.Background(), SettleRequest{UsuarioID: 1, Monto: 100})
	var declined *DeclinedError
	require.ErrorAs(t, err, &declined)

	assert.Equal(t, models.PagoRechazado, declined.Pago.Estado)
	assert.Equal(t, int64(500), declined.Pago.SaldoAnterior)
	assert.Equal(t, int64(500), declined.Pago.SaldoPosterior)
	assert.Equal(t, int64(500), res.SaldoActual)
	assert.Equal(t, int64(500), f.bank.Current())

	pagos, _ := f.pagos.ListAll(context.Background())
	require.Len(t, pagos, 1, "declines are recorded")
	assert.Equal(t, models.PagoRechazado, pagos[0].Estado)
}

func TestSettleDeclinedDoesNotTouchGoal(t *testing.T) {
	goal := models.Goal{ID: 9, UsuarioID: 1, Nombre: "Auto", MontoObjetivo: 5000, MontoActual: 100}
	f := newFixture(t, 1000, rejectAll, goal)

	metaID := int64(9)
	_, err := f.svc.Settle(context.Background(), SettleRequest{UsuarioID: 1, MetaID: &metaID, Monto: 200})
	var declined *DeclinedError
	require.ErrorAs(t, err, &declined)

	g, _ := f.metas.GetByID(context.Background(), 9)
	assert.Equal(t, int64(100), g.MontoActual)
}

func TestSettleWithCardReference(t *testing.T) {
	f := newFixture(t, 1000, acceptAll)
	ref := registerCard(t, f.vault, 1)

	res, err := f.svc.Settle(context.Background(), SettleRequest{
		UsuarioID:      1,
		Monto:          100,
		ReferenciaPago: ref.Token,
	})
	require.NoError(t, err)

	assert.Equal(t, models.MetodoTarjeta, res.Pago.MetodoPago)
	require.NotNil(t, res.Pago.UltimosDigitos)
	assert.Equal(t, "3456", *res.Pago.UltimosDigitos)
	require.NotNil(t, res.Pago.ReferenciaPago)
	assert.Equal(t, ref.Token, *res.Pago.ReferenciaPago)
}

func TestSettleRejectsForeignReference(t *testing.T) {
	f := newFixture(t, 1000, acceptAll)
	ref := registerCard(t, f.vault, 1)

	_, err := f.svc.Settle(context.Background(), SettleRequest{
		UsuarioID:      2,
		Monto:          100,
		ReferenciaPago: ref.Token,
	})
	require.ErrorIs(t, err, ErrInvalidReference)

	pagos, _ := f.pagos.ListAll(context.Background())
	assert.Empty(t, pagos)
	assert.Equal(t, int64(1000), f.bank.Current())
}

func TestSettleRejectsUnknownReference(t *testing.T) {
	f := newFixture(t, 1000, acceptAll)

	_, err := f.svc.Settle(context.Background(), SettleRequest{
		UsuarioID:      1,
		Monto:          100,
		ReferenciaPago: "REF_desconocida",
	})
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestSettleGoalNotFound(t *testing.T) {
	f := newFixture(t, 1000, acceptAll)

	metaID := int64(42)
	_, err := f.svc.Settle(context.Background(), SettleRequest{UsuarioID: 1, MetaID: &metaID, Monto: 100})
	require.ErrorIs(t, err, ErrGoalNotFound)

	pagos, _ := f.pagos.ListAll(context.Background())
	assert.Empty(t, pagos)
}

func TestSettleRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t, 1000, acceptAll)

	_, err := f.svc.Settle(context.Background(), SettleRequest{UsuarioID: 1, Monto: 0})
	require.Error(t, err)
	_, err = f.svc.Settle(context.Background(), SettleRequest{UsuarioID: 1, Monto: -5})
	require.Error(t, err)
}

func TestProcessAutomaticSequentialBalance(t *testing.T) {
	g1 := models.Goal{ID: 1, UsuarioID: 1, Nombre: "Meta A", MontoObjetivo: 1000, TipoDeposito: models.DepositoAutomatico, MontoAutomatico: 60}
	g2 := models.Goal{ID: 2, UsuarioID: 1, Nombre: "Meta B", MontoObjetivo: 1000, TipoDeposito: models.DepositoAutomatico, MontoAutomatico: 60}
	f := newFixture(t, 100, acceptAll, g1, g2)
	registerCard(t, f.vault, 1)

	res, err := f.svc.ProcessAutomatic(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, res.Resultados, 2)
	assert.Equal(t, 2, res.Procesados)

	first, second := res.Resultados[0], res.Resultados[1]
	assert.Equal(t, models.PagoCompletado, first.Estado)
	require.NotNil(t, first.SaldoActual)
	assert.Equal(t, int64(40), *first.SaldoActual)

	assert.Equal(t, models.PagoRechazado, second.Estado)
	assert.Equal(t, "Saldo insuficiente", second.Error)
	require.NotNil(t, second.SaldoDisponible)
	assert.Equal(t, int64(40), *second.SaldoDisponible)
	assert.Empty(t, second.PagoID, "insufficient funds leaves no record")

	assert.Equal(t, int64(40), res.SaldoActual)
	assert.Equal(t, int64(40), f.bank.Current())

	pagos, _ := f.pagos.ListAll(context.Background())
	assert.Len(t, pagos, 1)
}

func TestProcessAutomaticNoPaymentMethod(t *testing.T) {
	g := models.Goal{ID: 1, UsuarioID: 1, Nombre: "Meta", MontoObjetivo: 1000, TipoDeposito: models.DepositoAutomatico, MontoAutomatico: 50}
	f := newFixture(t, 1000, acceptAll, g)

	_, err := f.svc.ProcessAutomatic(context.Background(), 1)
	require.ErrorIs(t, err, ErrNoPaymentMethod)
}

func TestProcessAutomaticDeclineRecorded(t *testing.T) {
	g := models.Goal{ID: 1, UsuarioID: 1, Nombre: "Meta", MontoObjetivo: 1000, TipoDeposito: models.DepositoAutomatico, MontoAutomatico: 50}
	f := newFixture(t, 1000, rejectAll, g)
	registerCard(t, f.vault, 1)

	res, err := f.svc.ProcessAutomatic(context.Background(), 1)
	require.NoError(t, err, "declines do not abort the batch")

	require.Len(t, res.Resultados, 1)
	entry := res.Resultados[0]
	assert.Equal(t, models.PagoRechazado, entry.Estado)
	assert.Equal(t, "Pago automático rechazado por el banco", entry.Error)
	assert.NotEmpty(t, entry.PagoID)

	assert.Equal(t, int64(1000), f.bank.Current())
	goal, _ := f.metas.GetByID(context.Background(), 1)
	assert.Equal(t, int64(0), goal.MontoActual)

	pagos, _ := f.pagos.ListAll(context.Background())
	require.Len(t, pagos, 1)
	assert.True(t, pagos[0].Automatico)
	assert.Equal(t, models.PagoRechazado, pagos[0].Estado)
}

func TestProcessAutomaticSkipsIneligibleGoals(t *testing.T) {
	done := models.Goal{ID: 1, UsuarioID: 1, Nombre: "Lista", MontoObjetivo: 100, MontoActual: 100, TipoDeposito: models.DepositoAutomatico, MontoAutomatico: 10}
	manual := models.Goal{ID: 2, UsuarioID: 1, Nombre: "Manual", MontoObjetivo: 100, TipoDeposito: models.DepositoManual}
	open := models.Goal{ID: 3, UsuarioID: 1, Nombre: "Abierta", MontoObjetivo: 100, TipoDeposito: models.DepositoAutomatico, MontoAutomatico: 10}
	f := newFixture(t, 1000, acceptAll, done, manual, open)
	registerCard(t, f.vault, 1)

	res, err := f.svc.ProcessAutomatic(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, res.Resultados, 1)
	assert.Equal(t, int64(3), res.Resultados[0].MetaID)
	assert.Equal(t, "Abierta", res.Resultados[0].MetaNombre)

	pagos, _ := f.pagos.ListAll(context.Background())
	require.Len(t, pagos, 1)
	assert.Equal(t, "Depósito automático - Abierta", pagos[0].Descripcion)
}

func TestProcessAutomaticUsesLatestReference(t *testing.T) {
	g := models.Goal{ID: 1, UsuarioID: 1, Nombre: "Meta", MontoObjetivo: 1000, TipoDeposito: models.DepositoAutomatico, MontoAutomatico: 50}
	f := newFixture(t, 1000, acceptAll, g)
	registerCard(t, f.vault, 1)
	time.Sleep(2 * time.Millisecond) // distinct registration timestamps
	latest, err := f.vault.Register(context.Background(), vault.RegisterInput{
		UsuarioID:     1,
		TipoMetodo:    models.MetodoCuentaBancaria,
		NumeroCuenta:  "000987654321",
		NombreTitular: "Ana Torres",
	})
	require.NoError(t, err)

	res, err := f.svc.ProcessAutomatic(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, res.Resultados, 1)

	pagos, _ := f.pagos.ListAll(context.Background())
	require.Len(t, pagos, 1)
	require.NotNil(t, pagos[0].ReferenciaPago)
	assert.Equal(t, latest.Token, *pagos[0].ReferenciaPago)
	assert.Equal(t, models.MetodoTransferencia, pagos[0].MetodoPago, "bank account settles as transfer")
	require.NotNil(t, pagos[0].UltimosDigitos)
	assert.Equal(t, "4321", *pagos[0].UltimosDigitos)
}
