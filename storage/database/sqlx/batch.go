package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/batch"
)

var batchColumns = []string{"id", "name", "start_year", "end_year", "is_active"}

type batchRepository struct {
	db *sqlx.DB
}

var _ batch.Repository = (*batchRepository)(nil)

func NewBatchRepository(db *sql.DB) *batchRepository {
	return &batchRepository{db: wrap(db)}
}

func (repo batchRepository) CheckNameUniqueness(ctx context.Context, name string, excluded ...batch.Batch) error {
	stmt := psql.Select("COUNT(*)").
		From("batch").
		Where(sq.Eq{"LOWER(name)": strings.ToLower(name)})
	if len(excluded) > 0 {
		ids := make([]int, len(excluded))
		for i, b := range excluded {
			ids[i] = b.ID
		}
		stmt = stmt.Where(sq.NotEq{"id": ids})
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	if count > 0 {
		return batch.ErrNameExists
	}
	return nil
}

func (repo batchRepository) CreateBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	query, args, err := psql.Insert("batch").
		Columns(batchColumns[1:]...).
		Values(b.Name, b.StartYear, b.EndYear, b.IsActive).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return batch.Batch{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.GetContext(ctx, &b.ID, query, args...); err != nil {
		return batch.Batch{}, errors.Wrap(err, "creating batch")
	}
	return b, nil
}

func (repo batchRepository) GetBatchByID(ctx context.Context, id int) (batch.Batch, error) {
	query, args, err := psql.Select(batchColumns...).
		From("batch").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return batch.Batch{}, errors.Wrap(err, "building query")
	}
	var b batch.Batch
	if err := repo.db.GetContext(ctx, &b, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return batch.Batch{}, batch.ErrNotFound
		}
		return batch.Batch{}, errors.Wrap(err, "getting batch")
	}
	return b, nil
}

func (repo batchRepository) QueryBatches(ctx context.Context, ordering []core.DBOrdering) ([]batch.Batch, error) {
	stmt := psql.Select(batchColumns...).
		From("batch").
		Where(sq.Eq{"is_active": true})
	if len(ordering) > 0 {
		stmt = stmt.OrderBy(orderBy(ordering))
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	batches := []batch.Batch{}
	if err := repo.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying batches")
	}
	return batches, nil
}

func (repo batchRepository) UpdateBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	query, args, err := psql.Update("batch").
		Set("name", b.Name).
		Set("start_year", b.StartYear).
		Set("end_year", b.EndYear).
		Set("is_active", b.IsActive).
		Where(sq.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return batch.Batch{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return batch.Batch{}, errors.Wrap(err, "updating batch")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return batch.Batch{}, batch.ErrNotFound
	}
	return b, nil
}

// DeleteBatchesByID relies on the schema's cascades: schedules and files go
// with their batch, user.batch_id is nulled.
func (repo batchRepository) DeleteBatchesByID(ctx context.Context, ids ...int) error {
	query, args, err := psql.Delete("batch").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting batches")
	}
	return nil
}
