package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dcastellanos/ahorro-backend/internal/api/httpx"
	"github.com/dcastellanos/ahorro-backend/internal/api/validate"
	"github.com/dcastellanos/ahorro-backend/internal/models"
	"github.com/dcastellanos/ahorro-backend/internal/services"
	"github.com/dcastellanos/ahorro-backend/internal/vault"
)

type PagosHandler struct {
	Svc   *services.SettlementService
	Vault vault.Vault
}

func NewPagosHandler(svc *services.SettlementService, v vault.Vault) *PagosHandler {
	return &PagosHandler{Svc: svc, Vault: v}
}

type registrarMetodoReq struct {
	UsuarioID        int64  `json:"usuario_id"`
	TipoMetodo       string `json:"tipo_metodo"`
	NumeroTarjeta    string `json:"numero_tarjeta,omitempty"`
	FechaVencimiento string `json:"fecha_vencimiento,omitempty"`
	CVV              string `json:"cvv,omitempty"`
	NombreTitular    string `json:"nombre_titular"`
	NumeroCuenta     string `json:"numero_cuenta,omitempty"`
	Banco            string `json:"banco,omitempty"`
}

// RegisterMethod stores a payment method and returns only the opaque
// reference and masked digits. The raw numbers die with the request.
func (h *PagosHandler) RegisterMethod(w http.ResponseWriter, r *http.Request) {
	var req registrarMetodoReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "cuerpo inválido", nil)
		return
	}

	ref, err := h.Vault.Register(r.Context(), vault.RegisterInput{
		UsuarioID:        req.UsuarioID,
		TipoMetodo:       models.MethodKind(req.TipoMetodo),
		NumeroTarjeta:    req.NumeroTarjeta,
		FechaVencimiento: req.FechaVencimiento,
		CVV:              req.CVV,
		NombreTitular:    req.NombreTitular,
		NumeroCuenta:     req.NumeroCuenta,
		Banco:            req.Banco,
	})
	if err != nil {
		var verrs validate.Errs
		if errors.As(err, &verrs) {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "método de pago inválido", verrs)
			return
		}
		h.internalError(w, r, "register payment method", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"referencia_pago": ref.Token,
		"mensaje":         "Método de pago registrado exitosamente",
		"ultimos_digitos": ref.UltimosDigitos,
	})
}

type crearPagoReq struct {
	UsuarioID      int64  `json:"usuario_id"`
	MetaID         *int64 `json:"meta_id,omitempty"`
	Monto          int64  `json:"monto"`
	Descripcion    string `json:"descripcion"`
	Tipo           string `json:"tipo,omitempty"`
	ReferenciaPago string `json:"referencia_pago,omitempty"`
	EsAutomatico   bool   `json:"es_automatico,omitempty"`
}

// pagoResp flattens the payment record with the running balance, the
// shape the original API exposed.
type pagoResp struct {
	models.Payment
	SaldoActual int64  `json:"saldo_actual"`
	Mensaje     string `json:"mensaje,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Create settles one payment attempt.
func (h *PagosHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req crearPagoReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "cuerpo inválido", nil)
		return
	}

	res, err := h.Svc.Settle(r.Context(), services.SettleRequest{
		UsuarioID:      req.UsuarioID,
		MetaID:         req.MetaID,
		Monto:          req.Monto,
		Descripcion:    req.Descripcion,
		Tipo:           req.Tipo,
		ReferenciaPago: req.ReferenciaPago,
		Automatico:     req.EsAutomatico,
	})
	if err != nil {
		h.writeSettleError(w, r, res, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pagoResp{
		Payment:     res.Pago,
		SaldoActual: res.SaldoActual,
		Mensaje:     "Pago procesado exitosamente",
	})
}

func (h *PagosHandler) writeSettleError(w http.ResponseWriter, r *http.Request, res services.SettleResult, err error) {
	var verrs validate.Errs
	var insuf *services.InsufficientFundsError
	var declined *services.DeclinedError
	switch {
	case errors.As(err, &verrs):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "pago inválido", verrs)
	case errors.As(err, &insuf):
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":            "Saldo insuficiente",
			"saldo_disponible": insuf.Disponible,
			"monto_solicitado": insuf.Solicitado,
		})
	case errors.As(err, &declined):
		httpx.WriteJSON(w, http.StatusBadRequest, pagoResp{
			Payment:     declined.Pago,
			SaldoActual: res.SaldoActual,
			Error:       "Pago rechazado por el banco",
		})
	case errors.Is(err, services.ErrInvalidReference):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_reference", "Referencia de pago no válida", nil)
	case errors.Is(err, services.ErrGoalNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Meta no encontrada", nil)
	default:
		h.internalError(w, r, "settle payment", err)
	}
}

type procesarAutomaticosReq struct {
	UsuarioID int64 `json:"usuario_id"`
}

// ProcessAutomatic runs the automatic-deposit batch for one user.
func (h *PagosHandler) ProcessAutomatic(w http.ResponseWriter, r *http.Request) {
	var req procesarAutomaticosReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "cuerpo inválido", nil)
		return
	}

	res, err := h.Svc.ProcessAutomatic(r.Context(), req.UsuarioID)
	if err != nil {
		if errors.Is(err, services.ErrNoPaymentMethod) {
			httpx.WriteError(w, http.StatusBadRequest, "no_payment_method",
				"No hay método de pago registrado para pagos automáticos", nil)
			return
		}
		h.internalError(w, r, "process automatic payments", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// Methods lists the masked references registered for a user.
func (h *PagosHandler) Methods(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(chi.URLParam(r, "usuario_id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "usuario_id inválido", nil)
		return
	}
	refs, err := h.Vault.ListForUser(r.Context(), uid)
	if err != nil {
		h.internalError(w, r, "list payment methods", err)
		return
	}
	if refs == nil {
		refs = []models.PaymentReference{}
	}
	httpx.WriteJSON(w, http.StatusOK, refs)
}

func (h *PagosHandler) Saldo(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"saldo": h.Svc.Saldo()})
}

// List returns the full payment history, newest first.
func (h *PagosHandler) List(w http.ResponseWriter, r *http.Request) {
	pagos, err := h.Svc.History(r.Context())
	if err != nil {
		h.internalError(w, r, "list payments", err)
		return
	}
	if pagos == nil {
		pagos = []models.Payment{}
	}
	httpx.WriteJSON(w, http.StatusOK, pagos)
}

// internalError logs the detail server-side and returns a generic
// message; infrastructure errors are never leaked to clients.
func (h *PagosHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error(op, "err", err, "path", r.URL.Path)
	httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "error interno", nil)
}
