// Package vault issues and stores opaque payment-method references.
// Raw card/account numbers and CVVs are validated here and then thrown
// away; only the masked tail and holder name survive.
package vault

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dcastellanos/ahorro-backend/internal/api/validate"
	"github.com/dcastellanos/ahorro-backend/internal/models"
)

var ErrNotFound = errors.New("payment reference not found")

// RegisterInput carries the raw registration request. It is never
// persisted or logged as a whole.
type RegisterInput struct {
	UsuarioID        int64
	TipoMetodo       models.MethodKind
	NumeroTarjeta    string
	FechaVencimiento string
	CVV              string
	NombreTitular    string
	NumeroCuenta     string
	Banco            string
}

type Vault interface {
	Register(ctx context.Context, in RegisterInput) (models.PaymentReference, error)
	Lookup(ctx context.Context, token string) (models.PaymentReference, error)
	ListForUser(ctx context.Context, usuarioID int64) ([]models.PaymentReference, error)
	// LatestForUser returns the most recently registered reference for
	// the user, ties broken by lexically greatest token. Deterministic so
	// the automatic batch always picks the same method.
	LatestForUser(ctx context.Context, usuarioID int64) (models.PaymentReference, error)
}

func newToken() string {
	return "REF_" + uuid.NewString()
}

func validateInput(in RegisterInput) error {
	var errs validate.Errs
	add := func(e *validate.ErrField) {
		if e != nil {
			errs = append(errs, *e)
		}
	}
	add(validate.OneOf("tipo_metodo", string(in.TipoMetodo),
		string(models.MetodoTarjeta), string(models.MetodoCuentaBancaria)))
	add(validate.Required("nombre_titular", in.NombreTitular))
	switch in.TipoMetodo {
	case models.MetodoTarjeta:
		add(validate.Digits("numero_tarjeta", in.NumeroTarjeta, 16))
		add(validate.Digits("cvv", in.CVV, 3))
		add(validate.Required("fecha_vencimiento", in.FechaVencimiento))
	case models.MetodoCuentaBancaria:
		add(validate.Required("numero_cuenta", in.NumeroCuenta))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// newReference validates the input and builds the masked reference.
// Shared by every backend so the masking invariant lives in one place.
func newReference(in RegisterInput) (models.PaymentReference, error) {
	if err := validateInput(in); err != nil {
		return models.PaymentReference{}, err
	}
	digits := in.NumeroTarjeta
	if in.TipoMetodo == models.MetodoCuentaBancaria {
		digits = in.NumeroCuenta
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return models.PaymentReference{
		Token:          newToken(),
		UsuarioID:      in.UsuarioID,
		TipoMetodo:     in.TipoMetodo,
		UltimosDigitos: digits,
		NombreTitular:  in.NombreTitular,
		FechaRegistro:  time.Now().UTC(),
	}, nil
}

func latest(refs []models.PaymentReference) (models.PaymentReference, error) {
	if len(refs) == 0 {
		return models.PaymentReference{}, ErrNotFound
	}
	best := refs[0]
	for _, r := range refs[1:] {
		if r.FechaRegistro.After(best.FechaRegistro) ||
			(r.FechaRegistro.Equal(best.FechaRegistro) && r.Token > best.Token) {
			best = r
		}
	}
	return best, nil
}
