package batch

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Batch is a cohort of students sharing schedules and files.
type Batch struct {
	ID        int    `json:"id" db:"id"`
	Name      string `json:"name" db:"name"` // eg. "2024-2027 Batch"
	StartYear int    `json:"start_year" db:"start_year"`
	EndYear   int    `json:"end_year" db:"end_year"`
	IsActive  bool   `json:"is_active" db:"is_active"`
}

// NewBatch contains information needed to create a new Batch.
type NewBatch struct {
	Name      string `json:"name" validate:"required"`
	StartYear int    `json:"start_year" validate:"required,min=1"`
	EndYear   int    `json:"end_year" validate:"required,gtefield=StartYear"`
	IsActive  *bool  `json:"is_active"`
}

func (nb *NewBatch) Validate(validate *validator.Validate) error {
	nb.Name = core.CleanString(nb.Name)
	return validate.Struct(nb)
}

// UpdateBatch defines what information may be provided to modify an existing Batch.
type UpdateBatch struct {
	Name      string `json:"name"`
	StartYear int    `json:"start_year" validate:"omitempty,min=1"`
	EndYear   int    `json:"end_year" validate:"omitempty,gtefield=StartYear"`
	IsActive  *bool  `json:"is_active"`
}

func (ub *UpdateBatch) Validate(orig Batch, validate *validator.Validate) error {
	name := core.CleanString(ub.Name)
	if name != "" {
		ub.Name = name
	} else {
		ub.Name = orig.Name
	}
	if ub.StartYear == 0 {
		ub.StartYear = orig.StartYear
	}
	if ub.EndYear == 0 {
		ub.EndYear = orig.EndYear
	}
	return validate.Struct(ub)
}
