package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/discussion"
)

var typeColumns = []string{"id", "name", "slug"}

type discussionTypeRepository struct {
	db *sqlx.DB
}

var _ discussion.Repository = (*discussionTypeRepository)(nil)

func NewDiscussionTypeRepository(db *sql.DB) *discussionTypeRepository {
	return &discussionTypeRepository{db: wrap(db)}
}

func (repo discussionTypeRepository) CheckUniqueness(ctx context.Context, name, slug string, excluded ...discussion.Type) error {
	stmt := psql.Select("name", "slug").
		From("discussion_type").
		Where(sq.Or{
			sq.Eq{"LOWER(name)": strings.ToLower(name)},
			sq.Eq{"slug": slug},
		})
	if len(excluded) > 0 {
		ids := make([]int, len(excluded))
		for i, dt := range excluded {
			ids[i] = dt.ID
		}
		stmt = stmt.Where(sq.NotEq{"id": ids})
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var rows []struct {
		Name string `db:"name"`
		Slug string `db:"slug"`
	}
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, row := range rows {
		if strings.EqualFold(row.Name, name) {
			return discussion.ErrNameExists
		}
		if row.Slug == slug {
			return discussion.ErrSlugExists
		}
	}
	return nil
}

func (repo discussionTypeRepository) CreateType(ctx context.Context, dt discussion.Type) (discussion.Type, error) {
	query, args, err := psql.Insert("discussion_type").
		Columns(typeColumns[1:]...).
		Values(dt.Name, dt.Slug).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return discussion.Type{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.GetContext(ctx, &dt.ID, query, args...); err != nil {
		return discussion.Type{}, errors.Wrap(err, "creating discussion type")
	}
	return dt, nil
}

func (repo discussionTypeRepository) GetTypeByID(ctx context.Context, id int) (discussion.Type, error) {
	query, args, err := psql.Select(typeColumns...).
		From("discussion_type").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return discussion.Type{}, errors.Wrap(err, "building query")
	}
	var dt discussion.Type
	if err := repo.db.GetContext(ctx, &dt, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return discussion.Type{}, discussion.ErrNotFound
		}
		return discussion.Type{}, errors.Wrap(err, "getting discussion type")
	}
	return dt, nil
}

func (repo discussionTypeRepository) QueryTypes(ctx context.Context, ordering []core.DBOrdering) ([]discussion.Type, error) {
	stmt := psql.Select(typeColumns...).From("discussion_type")
	if len(ordering) > 0 {
		stmt = stmt.OrderBy(orderBy(ordering))
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	types := []discussion.Type{}
	if err := repo.db.SelectContext(ctx, &types, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying discussion types")
	}
	return types, nil
}

func (repo discussionTypeRepository) UpdateType(ctx context.Context, dt discussion.Type) (discussion.Type, error) {
	query, args, err := psql.Update("discussion_type").
		Set("name", dt.Name).
		Set("slug", dt.Slug).
		Where(sq.Eq{"id": dt.ID}).
		ToSql()
	if err != nil {
		return discussion.Type{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return discussion.Type{}, errors.Wrap(err, "updating discussion type")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return discussion.Type{}, discussion.ErrNotFound
	}
	return dt, nil
}

func (repo discussionTypeRepository) DeleteTypesByID(ctx context.Context, ids ...int) error {
	query, args, err := psql.Delete("discussion_type").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		// the schema RESTRICTs deletion while schedules or files reference the type
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return discussion.ErrProtected
		}
		return errors.Wrap(err, "deleting discussion types")
	}
	return nil
}
