package discussion

import (
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"

	"github.com/trezcool/darasa/core"
)

// Type classifies schedules and uploaded files, eg. "Department Discussion",
// "Common Discussion", "Schedule Document". Its slug doubles as a folder name
// in the file store.
type Type struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// NewType contains information needed to create a new discussion Type.
// Slug is derived from Name when absent.
type NewType struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"omitempty,slug"`
}

func (nt *NewType) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Slug = core.CleanString(nt.Slug, true /* lower */)
	if nt.Slug == "" {
		nt.Slug = slug.Make(nt.Name)
	}
	return validate.Struct(nt)
}

// UpdateType defines what information may be provided to modify an existing Type.
type UpdateType struct {
	Name string `json:"name"`
	Slug string `json:"slug" validate:"omitempty,slug"`
}

func (ut *UpdateType) Validate(orig Type, validate *validator.Validate) error {
	name := core.CleanString(ut.Name)
	if name != "" {
		ut.Name = name
	} else {
		ut.Name = orig.Name
	}
	s := core.CleanString(ut.Slug, true /* lower */)
	if s != "" {
		ut.Slug = s
	} else {
		ut.Slug = orig.Slug
	}
	return validate.Struct(ut)
}
