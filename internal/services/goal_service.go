package services

import (
	"context"

	"github.com/dcastellanos/ahorro-backend/internal/api/validate"
	"github.com/dcastellanos/ahorro-backend/internal/models"
	repo "github.com/dcastellanos/ahorro-backend/internal/repository"
)

// GoalService owns the savings-goal store and its deposit history. The
// settlement engine consumes the same Goals repository for progress
// updates; everything else goes through here.
type GoalService struct {
	metas repo.Goals
	dep   repo.Deposits
}

func NewGoalService(metas repo.Goals, dep repo.Deposits) *GoalService {
	return &GoalService{metas: metas, dep: dep}
}

func (s *GoalService) List(ctx context.Context) ([]models.Goal, error) {
	return s.metas.List(ctx)
}

func (s *GoalService) Get(ctx context.Context, id int64) (models.Goal, error) {
	return s.metas.GetByID(ctx, id)
}

func (s *GoalService) Create(ctx context.Context, g models.Goal) (models.Goal, error) {
	if g.UsuarioID == 0 {
		g.UsuarioID = 1 // legacy default until user management lands here
	}
	if err := g.Validate(); err != nil {
		return models.Goal{}, validate.Errs{{Field: "meta", Msg: err.Error()}}
	}
	return s.metas.Create(ctx, g)
}

func (s *GoalService) Update(ctx context.Context, id int64, g models.Goal) (models.Goal, error) {
	g.ID = id
	if err := g.Validate(); err != nil {
		return models.Goal{}, validate.Errs{{Field: "meta", Msg: err.Error()}}
	}
	return s.metas.Update(ctx, g)
}

func (s *GoalService) Delete(ctx context.Context, id int64) error {
	return s.metas.Delete(ctx, id)
}

func (s *GoalService) Deposits(ctx context.Context, metaID int64) ([]models.Deposit, error) {
	if _, err := s.metas.GetByID(ctx, metaID); err != nil {
		return nil, err
	}
	return s.dep.ListByGoal(ctx, metaID)
}

// AddDeposit records the deposit and bumps the goal's current amount.
func (s *GoalService) AddDeposit(ctx context.Context, metaID int64, d models.Deposit) (models.Deposit, error) {
	if d.Monto <= 0 {
		return models.Deposit{}, validate.Errs{{Field: "monto", Msg: "must be > 0"}}
	}
	if _, err := s.metas.GetByID(ctx, metaID); err != nil {
		return models.Deposit{}, err
	}
	if d.Tipo == "" {
		d.Tipo = string(models.DepositoManual)
	}
	d.MetaID = metaID
	created, err := s.dep.Create(ctx, d)
	if err != nil {
		return models.Deposit{}, err
	}
	if _, err := s.metas.IncreaseCurrent(ctx, metaID, d.Monto); err != nil {
		return models.Deposit{}, err
	}
	return created, nil
}
