package models

import "time"

type PaymentState string

const (
	PagoCompletado PaymentState = "completado"
	PagoRechazado  PaymentState = "rechazado"
)

type MethodKind string

const (
	MetodoTarjeta        MethodKind = "tarjeta"
	MetodoCuentaBancaria MethodKind = "cuenta_bancaria"
	MetodoTransferencia  MethodKind = "transferencia"
)

// TipoMetaAhorro marks a payment as a deposit toward a savings goal.
const TipoMetaAhorro = "meta_ahorro"

// Payment is one settlement attempt, accepted or rejected. Rows are
// append-only; nothing updates or deletes them after creation.
// UltimosDigitos carries at most the last 4 digits of the instrument;
// full card/account numbers never reach this struct.
type Payment struct {
	ID             string       `json:"id"`
	UsuarioID      int64        `json:"usuario_id"`
	MetaID         *int64       `json:"meta_id,omitempty"`
	Monto          int64        `json:"monto"`
	Descripcion    string       `json:"descripcion"`
	Tipo           string       `json:"tipo"`
	MetodoPago     MethodKind   `json:"metodo_pago"`
	Estado         PaymentState `json:"estado"`
	SaldoAnterior  int64        `json:"saldo_anterior"`
	SaldoPosterior int64        `json:"saldo_posterior"`
	Automatico     bool         `json:"automatico"`
	ReferenciaPago *string      `json:"referencia_pago,omitempty"`
	UltimosDigitos *string      `json:"numero_tarjeta,omitempty"`
	NombreTitular  *string      `json:"nombre_titular,omitempty"`
	FechaCreacion  time.Time    `json:"fecha_creacion"`
	MetaNombre     *string      `json:"meta_nombre,omitempty"`
}
