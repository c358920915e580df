package batch

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	ErrNotFound   = errors.New("batch not found")
	ErrNameExists = errors.New("a batch with this name already exists")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name string, excluded ...Batch) error
		CreateBatch(ctx context.Context, b Batch) (Batch, error)
		GetBatchByID(ctx context.Context, id int) (Batch, error)
		// QueryBatches returns active batches only.
		QueryBatches(ctx context.Context, ordering []core.DBOrdering) ([]Batch, error)
		UpdateBatch(ctx context.Context, b Batch) (Batch, error)
		// DeleteBatchesByID cascades to the batch's schedules and files.
		DeleteBatchesByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, name string, excluded ...Batch) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, excluded...); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nb NewBatch) (Batch, error) {
	if err := svc.checkUniqueness(ctx, nb.Name); err != nil {
		return Batch{}, err
	}
	b := Batch{
		Name:      nb.Name,
		StartYear: nb.StartYear,
		EndYear:   nb.EndYear,
		IsActive:  true,
	}
	if nb.IsActive != nil {
		b.IsActive = *nb.IsActive
	}
	return svc.repo.CreateBatch(ctx, b)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Batch, error) {
	return svc.repo.GetBatchByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Batch, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.QueryBatches(ctx, ordering)
}

func (svc *Service) Update(ctx context.Context, id int, ub UpdateBatch) (Batch, error) {
	orig, err := svc.repo.GetBatchByID(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	if err := svc.checkUniqueness(ctx, ub.Name, orig); err != nil {
		return Batch{}, err
	}
	b := Batch{
		ID:        id,
		Name:      ub.Name,
		StartYear: ub.StartYear,
		EndYear:   ub.EndYear,
		IsActive:  orig.IsActive,
	}
	if ub.IsActive != nil {
		b.IsActive = *ub.IsActive
	}
	return svc.repo.UpdateBatch(ctx, b)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteBatchesByID(ctx, ids...)
}
