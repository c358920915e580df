package discussion

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	ErrNotFound   = errors.New("discussion type not found")
	ErrNameExists = errors.New("a discussion type with this name already exists")
	ErrSlugExists = errors.New("a discussion type with this slug already exists")

	// ErrProtected is returned when deleting a type still referenced by
	// schedules or files.
	ErrProtected = errors.New("discussion type is still referenced and cannot be deleted")
)

type (
	Repository interface {
		CheckUniqueness(ctx context.Context, name, slug string, excluded ...Type) error
		CreateType(ctx context.Context, dt Type) (Type, error)
		GetTypeByID(ctx context.Context, id int) (Type, error)
		QueryTypes(ctx context.Context, ordering []core.DBOrdering) ([]Type, error)
		UpdateType(ctx context.Context, dt Type) (Type, error)
		// DeleteTypesByID fails with ErrProtected while a type is referenced.
		DeleteTypesByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, name, slug string, excluded ...Type) error {
	if err := svc.repo.CheckUniqueness(ctx, name, slug, excluded...); err != nil {
		var field string
		switch err {
		case ErrNameExists:
			field = "name"
		case ErrSlugExists:
			field = "slug"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nt NewType) (Type, error) {
	if err := svc.checkUniqueness(ctx, nt.Name, nt.Slug); err != nil {
		return Type{}, err
	}
	return svc.repo.CreateType(ctx, Type{Name: nt.Name, Slug: nt.Slug})
}

func (svc *Service) GetByID(ctx context.Context, id int) (Type, error) {
	return svc.repo.GetTypeByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Type, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.QueryTypes(ctx, ordering)
}

func (svc *Service) Update(ctx context.Context, id int, ut UpdateType) (Type, error) {
	orig, err := svc.repo.GetTypeByID(ctx, id)
	if err != nil {
		return Type{}, err
	}
	if err := svc.checkUniqueness(ctx, ut.Name, ut.Slug, orig); err != nil {
		return Type{}, err
	}
	return svc.repo.UpdateType(ctx, Type{ID: id, Name: ut.Name, Slug: ut.Slug})
}

// Delete removes types; a type still referenced by schedules or files makes
// the whole operation fail with a ValidationError.
func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	if err := svc.repo.DeleteTypesByID(ctx, ids...); err != nil {
		if err == ErrProtected {
			return core.NewValidationError(err)
		}
		return err
	}
	return nil
}
