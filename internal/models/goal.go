package models

import (
	"errors"
	"strings"
	"time"
)

type DepositMode string

const (
	DepositoManual     DepositMode = "manual"
	DepositoAutomatico DepositMode = "automatico"
)

// Goal is a savings target. MontoActual only grows through deposits and
// settled payments; it may exceed MontoObjetivo (no clamping).
type Goal struct {
	ID                   int64       `json:"id"`
	UsuarioID            int64       `json:"usuario_id"`
	Nombre               string      `json:"nombre"`
	MontoObjetivo        int64       `json:"monto_objetivo"`
	MontoActual          int64       `json:"monto_actual"`
	FechaObjetivo        *time.Time  `json:"fecha_objetivo,omitempty"`
	Categoria            *string     `json:"categoria,omitempty"`
	Descripcion          *string     `json:"descripcion,omitempty"`
	TipoDeposito         DepositMode `json:"tipo_deposito"`
	FrecuenciaAutomatica *string     `json:"frecuencia_automatica,omitempty"`
	MontoAutomatico      int64       `json:"monto_automatico"`
}

func (g *Goal) Validate() error {
	if strings.TrimSpace(g.Nombre) == "" {
		return errors.New("nombre required")
	}
	if g.MontoObjetivo <= 0 {
		return errors.New("monto_objetivo must be > 0")
	}
	if g.MontoActual < 0 {
		return errors.New("monto_actual must be >= 0")
	}
	if g.TipoDeposito == "" {
		g.TipoDeposito = DepositoManual
	}
	if g.TipoDeposito == DepositoAutomatico && g.MontoAutomatico <= 0 {
		return errors.New("monto_automatico must be > 0 for automatic goals")
	}
	return nil
}

// Deposit is one manual or automatic contribution recorded against a goal.
type Deposit struct {
	ID          int64     `json:"id"`
	MetaID      int64     `json:"meta_id"`
	Monto       int64     `json:"monto"`
	Fecha       time.Time `json:"fecha"`
	Descripcion *string   `json:"descripcion,omitempty"`
	Tipo        string    `json:"tipo"`
}
