package services

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"

	"github.com/dcastellanos/ahorro-backend/internal/api/validate"
	"github.com/dcastellanos/ahorro-backend/internal/events"
	"github.com/dcastellanos/ahorro-backend/internal/ledger"
	"github.com/dcastellanos/ahorro-backend/internal/metrics"
	"github.com/dcastellanos/ahorro-backend/internal/models"
	repo "github.com/dcastellanos/ahorro-backend/internal/repository"
	"github.com/dcastellanos/ahorro-backend/internal/vault"
	"github.com/dcastellanos/ahorro-backend/internal/worker"
)

// DecisionContext is what the (mock) bank sees when deciding an attempt.
type DecisionContext struct {
	UsuarioID  int64
	MetaID     *int64
	Monto      int64
	Automatico bool
}

// DecisionFunc decides accept/decline for one attempt. Injectable so
// tests can force outcomes instead of relying on probability.
type DecisionFunc func(DecisionContext) bool

// BankDecision simulates the bank: 95% acceptance for automatic
// deposits, 90% for manual payments.
func BankDecision(rng *rand.Rand) DecisionFunc {
	return func(dc DecisionContext) bool {
		p := 0.10
		if dc.Automatico {
			p = 0.05
		}
		return rng.Float64() > p
	}
}

// SettlementService evaluates payment attempts against the mock balance
// and reference validity, and applies ledger + goal + record mutations.
// Every state change runs under one mutex: attempts are strictly
// serialized, so a batch goal observes the debits of earlier goals.
type SettlementService struct {
	pagos  repo.Payments
	metas  repo.Goals
	audit  repo.AuditLogs
	vault  vault.Vault
	ledger *ledger.Ledger
	decide DecisionFunc
	events events.Publisher
	wp     *worker.Pool

	mu sync.Mutex
}

func NewSettlementService(
	pagos repo.Payments,
	metas repo.Goals,
	audit repo.AuditLogs,
	v vault.Vault,
	l *ledger.Ledger,
	decide DecisionFunc,
	pub events.Publisher,
	wp *worker.Pool,
) *SettlementService {
	return &SettlementService{
		pagos:  pagos,
		metas:  metas,
		audit:  audit,
		vault:  v,
		ledger: l,
		decide: decide,
		events: pub,
		wp:     wp,
	}
}

type SettleRequest struct {
	UsuarioID      int64
	MetaID         *int64
	Monto          int64
	Descripcion    string
	Tipo           string
	ReferenciaPago string
	Automatico     bool
}

type SettleResult struct {
	Pago        models.Payment
	SaldoActual int64
}

// Settle runs one payment attempt to a terminal state.
func (s *SettlementService) Settle(ctx context.Context, req SettleRequest) (SettleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settleLocked(ctx, req)
}

func (s *SettlementService) settleLocked(ctx context.Context, req SettleRequest) (SettleResult, error) {
	if req.Monto <= 0 {
		return SettleResult{}, validate.Errs{{Field: "monto", Msg: "must be > 0"}}
	}
	if req.Tipo == "" {
		req.Tipo = models.TipoMetaAhorro
	}

	// Insufficient funds rejects immediately; no ledger record is
	// written on this path.
	saldo := s.ledger.Current()
	if req.Monto > saldo {
		metrics.InsufficientFundsTotal.Inc()
		return SettleResult{SaldoActual: saldo}, &InsufficientFundsError{Disponible: saldo, Solicitado: req.Monto}
	}

	ref, err := s.resolveReference(ctx, req)
	if err != nil {
		return SettleResult{SaldoActual: saldo}, err
	}

	metodo := models.MetodoTransferencia
	var ultimos, titular *string
	if ref != nil {
		if ref.TipoMetodo == models.MetodoTarjeta {
			metodo = models.MetodoTarjeta
		}
		ultimos, titular = &ref.UltimosDigitos, &ref.NombreTitular
	}

	// Resolve the goal before deciding so a bad id never produces a record.
	var goal *models.Goal
	if req.MetaID != nil && req.Tipo == models.TipoMetaAhorro {
		g, err := s.metas.GetByID(ctx, *req.MetaID)
		if errors.Is(err, repo.ErrNotFound) {
			return SettleResult{SaldoActual: saldo}, ErrGoalNotFound
		}
		if err != nil {
			return SettleResult{SaldoActual: saldo}, err
		}
		goal = &g
	}

	p := models.Payment{
		UsuarioID:      req.UsuarioID,
		MetaID:         req.MetaID,
		Monto:          req.Monto,
		Descripcion:    req.Descripcion,
		Tipo:           req.Tipo,
		MetodoPago:     metodo,
		Automatico:     req.Automatico,
		UltimosDigitos: ultimos,
		NombreTitular:  titular,
	}
	if req.ReferenciaPago != "" {
		p.ReferenciaPago = &req.ReferenciaPago
	}

	accepted := s.decide(DecisionContext{
		UsuarioID:  req.UsuarioID,
		MetaID:     req.MetaID,
		Monto:      req.Monto,
		Automatico: req.Automatico,
	})

	if !accepted {
		p.Estado = models.PagoRechazado
		p.SaldoAnterior, p.SaldoPosterior = saldo, saldo
		created, err := s.pagos.Create(ctx, p)
		if err != nil {
			return SettleResult{SaldoActual: saldo}, err
		}
		s.afterSettle(created)
		return SettleResult{Pago: created, SaldoActual: saldo}, &DeclinedError{Pago: created}
	}

	if goal != nil {
		if _, err := s.metas.IncreaseCurrent(ctx, goal.ID, req.Monto); err != nil {
			return SettleResult{SaldoActual: saldo}, err
		}
	}
	after, err := s.ledger.TryDebit(req.Monto)
	if err != nil {
		// unreachable while the engine mutex is held: the sufficiency
		// check above ran against the same balance
		return SettleResult{SaldoActual: after}, &InsufficientFundsError{Disponible: after, Solicitado: req.Monto}
	}
	p.Estado = models.PagoCompletado
	p.SaldoAnterior, p.SaldoPosterior = saldo, after
	created, err := s.pagos.Create(ctx, p)
	if err != nil {
		return SettleResult{SaldoActual: after}, err
	}
	s.afterSettle(created)
	return SettleResult{Pago: created, SaldoActual: after}, nil
}

// resolveReference looks up the supplied token. Ownership is enforced
// for manual attempts; the automatic batch already resolved the token
// for its own user and only needs the masked data.
func (s *SettlementService) resolveReference(ctx context.Context, req SettleRequest) (*models.PaymentReference, error) {
	if req.ReferenciaPago == "" {
		return nil, nil
	}
	ref, err := s.vault.Lookup(ctx, req.ReferenciaPago)
	if errors.Is(err, vault.ErrNotFound) {
		if req.Automatico {
			return nil, nil
		}
		return nil, ErrInvalidReference
	}
	if err != nil {
		return nil, err
	}
	if !req.Automatico && ref.UsuarioID != req.UsuarioID {
		return nil, ErrInvalidReference
	}
	return &ref, nil
}

// afterSettle records metrics and hands audit/event writes to the
// worker pool so settlement latency is not coupled to them.
func (s *SettlementService) afterSettle(p models.Payment) {
	metrics.PaymentsTotal.WithLabelValues(string(p.Estado)).Inc()
	metrics.BankBalance.Set(float64(p.SaldoPosterior))

	ev := events.PaymentEvent{
		PagoID:     p.ID,
		UsuarioID:  p.UsuarioID,
		MetaID:     p.MetaID,
		Monto:      p.Monto,
		Estado:     string(p.Estado),
		Automatico: p.Automatico,
		Timestamp:  p.FechaCreacion,
	}
	id := p.ID
	estado := string(p.Estado)
	s.wp.Submit(func() {
		ctx := context.Background()
		_ = s.audit.Create(ctx, models.AuditLog{
			EntityType: "pago",
			EntityID:   &id,
			Action:     "settled",
			Details:    map[string]any{"estado": estado, "monto": p.Monto},
		})
		_ = s.events.PublishPayment(ctx, ev)
	})
}

// BatchOutcome is one goal's result inside an automatic batch.
type BatchOutcome struct {
	MetaID          int64               `json:"meta_id"`
	MetaNombre      string              `json:"meta_nombre"`
	Monto           int64               `json:"monto"`
	Estado          models.PaymentState `json:"estado"`
	Error           string              `json:"error,omitempty"`
	SaldoDisponible *int64              `json:"saldo_disponible,omitempty"`
	SaldoActual     *int64              `json:"saldo_actual,omitempty"`
	PagoID          string              `json:"pago_id,omitempty"`
}

type BatchResult struct {
	Procesados  int            `json:"procesados"`
	Resultados  []BatchOutcome `json:"resultados"`
	SaldoActual int64          `json:"saldo_actual"`
}

// ProcessAutomatic settles every eligible automatic goal for the user,
// sequentially against the shared balance. One goal failing for funds
// does not abort the rest.
func (s *SettlementService) ProcessAutomatic(ctx context.Context, usuarioID int64) (BatchResult, error) {
	ref, err := s.vault.LatestForUser(ctx, usuarioID)
	if errors.Is(err, vault.ErrNotFound) {
		return BatchResult{}, ErrNoPaymentMethod
	}
	if err != nil {
		return BatchResult{}, err
	}

	goals, err := s.metas.ListAutomaticEligible(ctx, usuarioID)
	if err != nil {
		return BatchResult{}, err
	}

	metrics.AutomaticBatchRuns.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := BatchResult{Resultados: make([]BatchOutcome, 0, len(goals))}
	for _, g := range goals {
		res, err := s.settleLocked(ctx, SettleRequest{
			UsuarioID:      usuarioID,
			MetaID:         &g.ID,
			Monto:          g.MontoAutomatico,
			Descripcion:    "Depósito automático - " + g.Nombre,
			Tipo:           models.TipoMetaAhorro,
			ReferenciaPago: ref.Token,
			Automatico:     true,
		})
		entry := BatchOutcome{MetaID: g.ID, MetaNombre: g.Nombre, Monto: g.MontoAutomatico}

		var insuf *InsufficientFundsError
		var declined *DeclinedError
		switch {
		case err == nil:
			entry.Estado = models.PagoCompletado
			entry.SaldoActual = &res.SaldoActual
			entry.PagoID = res.Pago.ID
		case errors.As(err, &insuf):
			entry.Estado = models.PagoRechazado
			entry.Error = "Saldo insuficiente"
			entry.SaldoDisponible = &insuf.Disponible
		case errors.As(err, &declined):
			entry.Estado = models.PagoRechazado
			entry.Error = "Pago automático rechazado por el banco"
			entry.PagoID = declined.Pago.ID
		default:
			return BatchResult{}, err
		}
		out.Resultados = append(out.Resultados, entry)
	}
	out.Procesados = len(out.Resultados)
	out.SaldoActual = s.ledger.Current()

	uid := strconv.FormatInt(usuarioID, 10)
	n := out.Procesados
	s.wp.Submit(func() {
		_ = s.audit.Create(context.Background(), models.AuditLog{
			EntityType: "batch_automatico",
			EntityID:   &uid,
			Action:     "processed",
			Details:    map[string]any{"procesados": n},
		})
	})
	return out, nil
}

// Saldo reports the current mock balance.
func (s *SettlementService) Saldo() int64 { return s.ledger.Current() }

// History returns the full payment ledger, newest first, joined with
// the goal name.
func (s *SettlementService) History(ctx context.Context) ([]models.Payment, error) {
	return s.pagos.ListAll(ctx)
}
