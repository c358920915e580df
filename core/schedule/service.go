package schedule

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	ErrNotFound = errors.New("schedule not found")

	// creation rule violations; kept distinct so clients can tell
	// "no batch assigned" from "wrong batch".
	errLeaderNoBatch    = "batch leader is not assigned to a batch"
	errLeaderWrongBatch = "batch leaders can only create schedules for their own batch"
	errPresenterInvalid = "presenter must be an existing student"
)

type (
	Repository interface {
		CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
		GetScheduleByID(ctx context.Context, id int) (Schedule, error)
		// FilterSchedules intersects caller filters with the actor scope.
		FilterSchedules(ctx context.Context, filter Filter, ordering []core.DBOrdering) ([]Schedule, error)
		UpdateSchedule(ctx context.Context, s Schedule) (Schedule, error)
		// DeleteSchedulesByID unlinks the schedules' files (schedule_id set to null).
		DeleteSchedulesByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo   Repository
		usrSvc *user.Service
	}
)

func NewService(repo Repository, usrSvc *user.Service) *Service {
	return &Service{repo: repo, usrSvc: usrSvc}
}

// ValidateCreate enforces the write-side business rules for schedule creation:
// only staff may create; a batch leader must be assigned to a batch and may
// only create schedules for it. Pure over already-fetched state.
func ValidateCreate(actor user.User, batchID int) error {
	if !actor.IsAuthenticated() {
		return core.ErrAuthenticationRequired
	}
	if !actor.IsStaff {
		return core.ErrPermissionDenied
	}
	if actor.IsBatchLeader() {
		if actor.BatchID == nil {
			return core.NewValidationError(nil, core.FieldError{Field: "batch_id", Error: errLeaderNoBatch})
		}
		if !actor.InBatch(batchID) {
			return core.NewValidationError(nil, core.FieldError{Field: "batch_id", Error: errLeaderWrongBatch})
		}
	}
	return nil
}

func (svc *Service) checkPresenter(ctx context.Context, presenterID *int) error {
	if presenterID == nil {
		return nil
	}
	presenter, err := svc.usrSvc.GetByID(ctx, *presenterID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "presenter_id", Error: errPresenterInvalid})
		}
		return err
	}
	if !presenter.IsStudent() {
		return core.NewValidationError(nil, core.FieldError{Field: "presenter_id", Error: errPresenterInvalid})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, actor user.User, ns NewSchedule) (Schedule, error) {
	if err := ValidateCreate(actor, ns.BatchID); err != nil {
		return Schedule{}, err
	}
	if err := svc.checkPresenter(ctx, ns.PresenterID); err != nil {
		return Schedule{}, err
	}
	s := Schedule{
		BatchID:          ns.BatchID,
		DiscussionTypeID: ns.DiscussionTypeID,
		Title:            ns.Title,
		PresenterID:      ns.PresenterID,
		ScheduledDate:    ns.ScheduledDate,
		CreatedByID:      &actor.ID, // always the acting actor, never client-supplied
		Description:      ns.Description,
	}
	return svc.repo.CreateSchedule(ctx, s)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Schedule, error) {
	return svc.repo.GetScheduleByID(ctx, id)
}

// Query lists schedules visible to the actor, narrowed by the raw filter.
// Malformed numeric filter values yield an empty result set. Default
// ordering is most recent scheduled date first.
func (svc *Service) Query(ctx context.Context, actor user.User, qf QueryFilter, ordering []core.DBOrdering) ([]Schedule, error) {
	scope := ScopeFor(actor)
	if scope.Empty {
		return []Schedule{}, nil
	}

	filter := Filter{Scope: scope}
	if id, set, malformed := core.ParseIntFilter(qf.BatchID); set {
		if malformed {
			return []Schedule{}, nil
		}
		filter.BatchID = &id
	}
	if id, set, malformed := core.ParseIntFilter(qf.PresenterID); set {
		if malformed {
			return []Schedule{}, nil
		}
		filter.PresenterID = &id
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{
			{Field: "scheduled_date"},
			{Field: "title", Ascending: true},
		}
	}
	return svc.repo.FilterSchedules(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, actor user.User, id int, us UpdateSchedule) (Schedule, error) {
	orig, err := svc.repo.GetScheduleByID(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	// the leader batch rule also binds the batch an update moves a schedule to
	if err := ValidateCreate(actor, us.BatchID); err != nil {
		return Schedule{}, err
	}
	if err := svc.checkPresenter(ctx, us.PresenterID); err != nil {
		return Schedule{}, err
	}
	s := Schedule{
		ID:               id,
		BatchID:          us.BatchID,
		DiscussionTypeID: us.DiscussionTypeID,
		Title:            us.Title,
		PresenterID:      us.PresenterID,
		ScheduledDate:    us.ScheduledDate,
		CreatedByID:      orig.CreatedByID,
		Description:      *us.Description,
	}
	return svc.repo.UpdateSchedule(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteSchedulesByID(ctx, ids...)
}
