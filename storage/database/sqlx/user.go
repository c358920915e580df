package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var userColumns = []string{
	"id", "name", "username", "email", "role", "batch_id",
	"is_staff", "is_superuser", "is_active", "password_hash",
	"created_at", "updated_at", "last_login",
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: wrap(db)}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	stmt := psql.Select("username", "email").
		From(`"user"`).
		Where(sq.Or{
			sq.Eq{"LOWER(username)": strings.ToLower(username)},
			sq.Eq{"LOWER(email)": strings.ToLower(email)},
		})
	if len(excludedUsers) > 0 {
		ids := make([]int, len(excludedUsers))
		for i, usr := range excludedUsers {
			ids[i] = usr.ID
		}
		stmt = stmt.Where(sq.NotEq{"id": ids})
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, row := range rows {
		if strings.EqualFold(row.Username, username) {
			return user.ErrUsernameExists
		}
		if strings.EqualFold(row.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Insert(`"user"`).
		Columns(userColumns[1:]...).
		Values(
			usr.Name, usr.Username, usr.Email, usr.Role, usr.BatchID,
			usr.IsStaff, usr.IsSuperuser, usr.IsActive, usr.PasswordHash,
			usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	if err := repo.db.GetContext(ctx, &usr.ID, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	query, args, err := psql.Select(userColumns...).
		From(`"user"`).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	uname = strings.ToLower(uname)
	query, args, err := psql.Select(userColumns...).
		From(`"user"`).
		Where(sq.Or{
			sq.Eq{"LOWER(username)": uname},
			sq.Eq{"LOWER(email)": uname},
		}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.Filter, ordering []core.DBOrdering) ([]user.User, error) {
	stmt := psql.Select(userColumns...).From(`"user"`)
	if len(filter.Roles) > 0 {
		stmt = stmt.Where(sq.Eq{"role": filter.Roles})
	}
	if filter.BatchID != nil {
		stmt = stmt.Where(sq.Eq{"batch_id": *filter.BatchID})
	}
	if filter.IsActive != nil {
		stmt = stmt.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	if filter.IsSuperuser != nil {
		stmt = stmt.Where(sq.Eq{"is_superuser": *filter.IsSuperuser})
	}
	if len(ordering) > 0 {
		stmt = stmt.OrderBy(orderBy(ordering))
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	users := []user.User{}
	if err := repo.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Update(`"user"`).
		Set("name", usr.Name).
		Set("username", usr.Username).
		Set("email", usr.Email).
		Set("role", usr.Role).
		Set("batch_id", usr.BatchID).
		Set("is_staff", usr.IsStaff).
		Set("is_superuser", usr.IsSuperuser).
		Set("is_active", usr.IsActive).
		Set("password_hash", usr.PasswordHash).
		Set("updated_at", usr.UpdatedAt).
		Set("last_login", usr.LastLogin).
		Where(sq.Eq{"id": usr.ID}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...int) error {
	query, args, err := psql.Delete(`"user"`).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
