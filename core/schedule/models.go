package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// Schedule is a planned discussion session for a batch, with an optional
// student presenter.
type Schedule struct {
	ID               int       `json:"id" db:"id"`
	BatchID          int       `json:"batch_id" db:"batch_id"`
	DiscussionTypeID int       `json:"discussion_type_id" db:"discussion_type_id"`
	Title            string    `json:"title" db:"title"`
	PresenterID      *int      `json:"presenter_id" db:"presenter_id"`
	ScheduledDate    time.Time `json:"scheduled_date" db:"scheduled_date"`
	CreatedByID      *int      `json:"created_by_id" db:"created_by_id"` // server-set, always a staff actor
	Description      string    `json:"description" db:"description"`

	// HasSubmission reports whether at least one file is linked.
	HasSubmission bool `json:"has_submission" db:"has_submission"`
}

// NewSchedule contains information needed to create a new Schedule.
// CreatedBy is never client-supplied; the service sets it to the acting actor.
type NewSchedule struct {
	BatchID          int       `json:"batch_id" validate:"required"`
	DiscussionTypeID int       `json:"discussion_type_id" validate:"required"`
	Title            string    `json:"title" validate:"required"`
	PresenterID      *int      `json:"presenter_id"`
	ScheduledDate    time.Time `json:"scheduled_date" validate:"required"`
	Description      string    `json:"description"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}

// UpdateSchedule defines what information may be provided to modify an
// existing Schedule.
type UpdateSchedule struct {
	BatchID          int       `json:"batch_id"`
	DiscussionTypeID int       `json:"discussion_type_id"`
	Title            string    `json:"title"`
	PresenterID      *int      `json:"presenter_id"`
	ScheduledDate    time.Time `json:"scheduled_date"`
	Description      *string   `json:"description"`
}

func (us *UpdateSchedule) Validate(orig Schedule, validate *validator.Validate) error {
	if us.BatchID == 0 {
		us.BatchID = orig.BatchID
	}
	if us.DiscussionTypeID == 0 {
		us.DiscussionTypeID = orig.DiscussionTypeID
	}
	title := core.CleanString(us.Title)
	if title != "" {
		us.Title = title
	} else {
		us.Title = orig.Title
	}
	if us.PresenterID == nil {
		us.PresenterID = orig.PresenterID
	}
	if us.ScheduledDate.IsZero() {
		us.ScheduledDate = orig.ScheduledDate
	}
	if us.Description == nil {
		us.Description = &orig.Description
	}
	return validate.Struct(us)
}

// Scope is the visibility restriction a list query must intersect with,
// derived from the acting actor's role.
type Scope struct {
	// Empty means the actor sees nothing; the query is not even run.
	Empty bool
	// BatchID, when set, restricts results to that batch.
	BatchID *int
	// SelfPresenterID, when set, widens the batch restriction to schedules
	// the actor presents (students see their own schedules from any batch).
	SelfPresenterID *int
}

// ScopeFor computes the schedule visibility scope of an actor:
// staff see everything, batch leaders only their batch (nothing without one),
// students the union of their batch and their own presentations.
func ScopeFor(actor user.User) Scope {
	if !actor.IsAuthenticated() {
		return Scope{Empty: true}
	}
	if actor.IsStaff || actor.IsSuperuser {
		if actor.IsBatchLeader() {
			if actor.BatchID == nil {
				return Scope{Empty: true}
			}
			return Scope{BatchID: actor.BatchID}
		}
		return Scope{}
	}
	if actor.IsStudent() {
		id := actor.ID
		return Scope{BatchID: actor.BatchID, SelfPresenterID: &id}
	}
	return Scope{Empty: true}
}

// QueryFilter carries raw schedule-list query params. Numeric values are kept
// raw: a malformed value empties the result set instead of erroring.
type QueryFilter struct {
	BatchID     string `query:"batch_id"`
	PresenterID string `query:"presenter_id"`
}

func (qf *QueryFilter) Clean() {
	qf.BatchID = core.CleanString(qf.BatchID)
	qf.PresenterID = core.CleanString(qf.PresenterID)
}

// Filter is the repository-level, parsed counterpart of QueryFilter,
// combined with the actor's visibility Scope.
type Filter struct {
	BatchID     *int
	PresenterID *int
	Scope       Scope
}
