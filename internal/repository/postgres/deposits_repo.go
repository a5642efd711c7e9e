package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dcastellanos/ahorro-backend/internal/models"
)

type depositsRepo struct{ pool *pgxpool.Pool }

func (r *depositsRepo) ListByGoal(ctx context.Context, metaID int64) ([]models.Deposit, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, meta_id, monto, fecha, descripcion, tipo
  FROM depositos_metas
 WHERE meta_id=$1
 ORDER BY fecha DESC`, metaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Deposit
	for rows.Next() {
		var d models.Deposit
		if err := rows.Scan(&d.ID, &d.MetaID, &d.Monto, &d.Fecha, &d.Descripcion, &d.Tipo); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *depositsRepo) Create(ctx context.Context, d models.Deposit) (models.Deposit, error) {
	err := r.pool.QueryRow(ctx, `
INSERT INTO depositos_metas (meta_id, monto, fecha, descripcion, tipo)
VALUES ($1,$2,COALESCE($3, now()),$4,$5)
RETURNING id, meta_id, monto, fecha, descripcion, tipo`,
		d.MetaID, d.Monto, nullableTime(d.Fecha), d.Descripcion, d.Tipo,
	).Scan(&d.ID, &d.MetaID, &d.Monto, &d.Fecha, &d.Descripcion, &d.Tipo)
	return d, err
}
