package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/schedule"
)

var scheduleColumns = []string{
	"s.id", "s.batch_id", "s.discussion_type_id", "s.title", "s.presenter_id",
	"s.scheduled_date", "s.created_by_id", "s.description",
	"EXISTS(SELECT 1 FROM file f WHERE f.schedule_id = s.id) AS has_submission",
}

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *sql.DB) *scheduleRepository {
	return &scheduleRepository{db: wrap(db)}
}

func (repo scheduleRepository) CreateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	query, args, err := psql.Insert("schedule").
		Columns("batch_id", "discussion_type_id", "title", "presenter_id", "scheduled_date", "created_by_id", "description").
		Values(s.BatchID, s.DiscussionTypeID, s.Title, s.PresenterID, s.ScheduledDate, s.CreatedByID, s.Description).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.GetContext(ctx, &s.ID, query, args...); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "creating schedule")
	}
	return s, nil
}

func (repo scheduleRepository) GetScheduleByID(ctx context.Context, id int) (schedule.Schedule, error) {
	query, args, err := psql.Select(scheduleColumns...).
		From("schedule s").
		Where(sq.Eq{"s.id": id}).
		ToSql()
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "building query")
	}
	var s schedule.Schedule
	if err := repo.db.GetContext(ctx, &s, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return schedule.Schedule{}, schedule.ErrNotFound
		}
		return schedule.Schedule{}, errors.Wrap(err, "getting schedule")
	}
	return s, nil
}

func (repo scheduleRepository) FilterSchedules(ctx context.Context, filter schedule.Filter, ordering []core.DBOrdering) ([]schedule.Schedule, error) {
	if filter.Scope.Empty {
		return []schedule.Schedule{}, nil
	}

	stmt := psql.Select(scheduleColumns...).From("schedule s")
	if cond := scopeCond(filter.Scope); cond != nil {
		stmt = stmt.Where(cond)
	}
	if filter.BatchID != nil {
		stmt = stmt.Where(sq.Eq{"s.batch_id": *filter.BatchID})
	}
	if filter.PresenterID != nil {
		stmt = stmt.Where(sq.Eq{"s.presenter_id": *filter.PresenterID})
	}
	if len(ordering) > 0 {
		stmt = stmt.OrderBy(orderBy(ordering))
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	schedules := []schedule.Schedule{}
	if err := repo.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering schedules")
	}
	return schedules, nil
}

func scopeCond(scope schedule.Scope) sq.Sqlizer {
	var or sq.Or
	if scope.BatchID != nil {
		or = append(or, sq.Eq{"s.batch_id": *scope.BatchID})
	}
	if scope.SelfPresenterID != nil {
		or = append(or, sq.Eq{"s.presenter_id": *scope.SelfPresenterID})
	}
	if len(or) == 0 {
		return nil
	}
	return or
}

func (repo scheduleRepository) UpdateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	query, args, err := psql.Update("schedule").
		Set("batch_id", s.BatchID).
		Set("discussion_type_id", s.DiscussionTypeID).
		Set("title", s.Title).
		Set("presenter_id", s.PresenterID).
		Set("scheduled_date", s.ScheduledDate).
		Set("description", s.Description).
		Where(sq.Eq{"id": s.ID}).
		ToSql()
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "updating schedule")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return s, nil
}

// DeleteSchedulesByID relies on the schema to null out file.schedule_id;
// the files themselves stay.
func (repo scheduleRepository) DeleteSchedulesByID(ctx context.Context, ids ...int) error {
	query, args, err := psql.Delete("schedule").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting schedules")
	}
	return nil
}
