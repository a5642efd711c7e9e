package models

import "time"

// PaymentReference is the opaque token handed out when a payment method
// is registered. Only the masked tail of the instrument is kept; the raw
// card/account number and CVV are discarded at registration time.
type PaymentReference struct {
	Token          string     `json:"referencia"`
	UsuarioID      int64      `json:"usuario_id"`
	TipoMetodo     MethodKind `json:"tipo_metodo"`
	UltimosDigitos string     `json:"ultimos_digitos"`
	NombreTitular  string     `json:"nombre_titular"`
	FechaRegistro  time.Time  `json:"fecha_registro"`
}
