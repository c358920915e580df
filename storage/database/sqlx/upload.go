package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/upload"
)

var fileColumns = []string{
	"id", "uploader_id", "batch_id", "discussion_type_id", "schedule_id",
	"store_path", "original_filename", "upload_date", "description",
}

type fileRepository struct {
	db *sqlx.DB
}

var _ upload.Repository = (*fileRepository)(nil)

func NewFileRepository(db *sql.DB) *fileRepository {
	return &fileRepository{db: wrap(db)}
}

func (repo fileRepository) CreateFile(ctx context.Context, f upload.File) (upload.File, error) {
	query, args, err := psql.Insert("file").
		Columns(fileColumns[1:]...).
		Values(
			f.UploaderID, f.BatchID, f.DiscussionTypeID, f.ScheduleID,
			f.StorePath, f.OriginalFilename, f.UploadDate, f.Description,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return upload.File{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.GetContext(ctx, &f.ID, query, args...); err != nil {
		return upload.File{}, errors.Wrap(err, "creating file")
	}
	return f, nil
}

func (repo fileRepository) GetFileByID(ctx context.Context, id int) (upload.File, error) {
	query, args, err := psql.Select(fileColumns...).
		From("file").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return upload.File{}, errors.Wrap(err, "building query")
	}
	var f upload.File
	if err := repo.db.GetContext(ctx, &f, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return upload.File{}, upload.ErrNotFound
		}
		return upload.File{}, errors.Wrap(err, "getting file")
	}
	return f, nil
}

func (repo fileRepository) FilterFiles(ctx context.Context, filter upload.Filter, ordering []core.DBOrdering) ([]upload.File, error) {
	if filter.Scope.Empty {
		return []upload.File{}, nil
	}

	stmt := psql.Select(fileColumns...).From("file")
	if cond := fileScopeCond(filter.Scope); cond != nil {
		stmt = stmt.Where(cond)
	}
	if filter.BatchID != nil {
		stmt = stmt.Where(sq.Eq{"batch_id": *filter.BatchID})
	}
	if filter.DiscussionTypeID != nil {
		stmt = stmt.Where(sq.Eq{"discussion_type_id": *filter.DiscussionTypeID})
	}
	if filter.ScheduleID != nil {
		stmt = stmt.Where(sq.Eq{"schedule_id": *filter.ScheduleID})
	}
	if filter.UploaderID != nil {
		stmt = stmt.Where(sq.Eq{"uploader_id": *filter.UploaderID})
	}
	if len(ordering) > 0 {
		stmt = stmt.OrderBy(orderBy(ordering))
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	files := []upload.File{}
	if err := repo.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering files")
	}
	return files, nil
}

func fileScopeCond(scope upload.Scope) sq.Sqlizer {
	var or sq.Or
	if scope.BatchID != nil {
		or = append(or, sq.Eq{"batch_id": *scope.BatchID})
	}
	if scope.SelfUploaderID != nil {
		or = append(or, sq.Eq{"uploader_id": *scope.SelfUploaderID})
	}
	if len(or) == 0 {
		return nil
	}
	return or
}

func (repo fileRepository) UpdateFile(ctx context.Context, f upload.File) (upload.File, error) {
	query, args, err := psql.Update("file").
		Set("description", f.Description).
		Where(sq.Eq{"id": f.ID}).
		ToSql()
	if err != nil {
		return upload.File{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return upload.File{}, errors.Wrap(err, "updating file")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return upload.File{}, upload.ErrNotFound
	}
	return f, nil
}

func (repo fileRepository) DeleteFilesByID(ctx context.Context, ids ...int) error {
	query, args, err := psql.Delete("file").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting files")
	}
	return nil
}
