package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dcastellanos/ahorro-backend/internal/models"
)

type paymentsRepo struct{ pool *pgxpool.Pool }

func (r *paymentsRepo) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	const q = `
INSERT INTO pagos (
  id, usuario_id, meta_id, monto, descripcion, tipo, metodo_pago,
  estado, saldo_anterior, saldo_posterior, automatico,
  referencia_pago, numero_tarjeta, nombre_titular
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id, fecha_creacion;
`
	err := r.pool.QueryRow(ctx, q,
		p.ID, p.UsuarioID, p.MetaID, p.Monto, p.Descripcion, p.Tipo, p.MetodoPago,
		p.Estado, p.SaldoAnterior, p.SaldoPosterior, p.Automatico,
		p.ReferenciaPago, p.UltimosDigitos, p.NombreTitular,
	).Scan(&p.ID, &p.FechaCreacion)
	return p, err
}

func (r *paymentsRepo) ListAll(ctx context.Context) ([]models.Payment, error) {
	rows, err := r.pool.Query(ctx, `
SELECT p.id, p.usuario_id, p.meta_id, p.monto, p.descripcion, p.tipo,
       p.metodo_pago, p.estado, p.saldo_anterior, p.saldo_posterior,
       p.automatico, p.referencia_pago, p.numero_tarjeta, p.nombre_titular,
       p.fecha_creacion, m.nombre AS meta_nombre
  FROM pagos p
  LEFT JOIN metas m ON p.meta_id = m.id
 ORDER BY p.fecha_creacion DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.UsuarioID, &p.MetaID, &p.Monto, &p.Descripcion, &p.Tipo,
			&p.MetodoPago, &p.Estado, &p.SaldoAnterior, &p.SaldoPosterior,
			&p.Automatico, &p.ReferenciaPago, &p.UltimosDigitos, &p.NombreTitular,
			&p.FechaCreacion, &p.MetaNombre); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
