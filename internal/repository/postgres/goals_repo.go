package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dcastellanos/ahorro-backend/internal/models"
	"github.com/dcastellanos/ahorro-backend/internal/repository"
)

type goalsRepo struct{ pool *pgxpool.Pool }

const goalCols = `id, usuario_id, nombre, monto_objetivo, monto_actual,
fecha_objetivo, categoria, descripcion, tipo_deposito,
frecuencia_automatica, monto_automatico`

func scanGoal(row pgx.Row) (models.Goal, error) {
	var g models.Goal
	err := row.Scan(&g.ID, &g.UsuarioID, &g.Nombre, &g.MontoObjetivo, &g.MontoActual,
		&g.FechaObjetivo, &g.Categoria, &g.Descripcion, &g.TipoDeposito,
		&g.FrecuenciaAutomatica, &g.MontoAutomatico)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Goal{}, repository.ErrNotFound
	}
	return g, err
}

func (r *goalsRepo) GetByID(ctx context.Context, id int64) (models.Goal, error) {
	return scanGoal(r.pool.QueryRow(ctx,
		`SELECT `+goalCols+` FROM metas WHERE id=$1`, id))
}

func (r *goalsRepo) List(ctx context.Context) ([]models.Goal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+goalCols+` FROM metas ORDER BY fecha_objetivo DESC NULLS LAST, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGoals(rows)
}

func collectGoals(rows pgx.Rows) ([]models.Goal, error) {
	var out []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *goalsRepo) Create(ctx context.Context, g models.Goal) (models.Goal, error) {
	return scanGoal(r.pool.QueryRow(ctx, `
INSERT INTO metas (
  usuario_id, nombre, monto_objetivo, monto_actual, fecha_objetivo,
  categoria, descripcion, tipo_deposito, frecuencia_automatica, monto_automatico
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING `+goalCols,
		g.UsuarioID, g.Nombre, g.MontoObjetivo, g.MontoActual, g.FechaObjetivo,
		g.Categoria, g.Descripcion, g.TipoDeposito, g.FrecuenciaAutomatica, g.MontoAutomatico))
}

func (r *goalsRepo) Update(ctx context.Context, g models.Goal) (models.Goal, error) {
	return scanGoal(r.pool.QueryRow(ctx, `
UPDATE metas SET
  nombre=$2, monto_objetivo=$3, monto_actual=$4, fecha_objetivo=$5,
  categoria=$6, descripcion=$7, tipo_deposito=$8,
  frecuencia_automatica=$9, monto_automatico=$10
WHERE id=$1
RETURNING `+goalCols,
		g.ID, g.Nombre, g.MontoObjetivo, g.MontoActual, g.FechaObjetivo,
		g.Categoria, g.Descripcion, g.TipoDeposito, g.FrecuenciaAutomatica, g.MontoAutomatico))
}

// Delete removes the goal and its deposit history in one transaction.
func (r *goalsRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadWrite})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM depositos_metas WHERE meta_id=$1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM metas WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *goalsRepo) IncreaseCurrent(ctx context.Context, id int64, amount int64) (models.Goal, error) {
	return scanGoal(r.pool.QueryRow(ctx, `
UPDATE metas SET monto_actual = monto_actual + $2
WHERE id=$1
RETURNING `+goalCols, id, amount))
}

func (r *goalsRepo) ListAutomaticEligible(ctx context.Context, usuarioID int64) ([]models.Goal, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+goalCols+` FROM metas
 WHERE usuario_id = $1
   AND tipo_deposito = 'automatico'
   AND monto_automatico > 0
   AND monto_actual < monto_objetivo
 ORDER BY id`, usuarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGoals(rows)
}

func (r *goalsRepo) ListAutomaticUsers(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT DISTINCT usuario_id FROM metas
 WHERE tipo_deposito = 'automatico'
   AND monto_automatico > 0
   AND monto_actual < monto_objetivo
 ORDER BY usuario_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
