package user

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		// FilterUsers applies AND operation on available Filter fields.
		FilterUsers(ctx context.Context, filter Filter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		BatchID:   nu.BatchID,
		IsStaff:   DeriveStaffFlag("", nu.Role, false),
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

// CreateSuperuser creates, or promotes an existing account to, a superuser.
// Superusers are always staff, whatever their role.
func (svc *Service) CreateSuperuser(ctx context.Context, uname, email, pwd string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, err
		}
		now := time.Now().UTC()
		usr = User{
			Username:  uname,
			Email:     email,
			Role:      RoleProfessor,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	usr.IsSuperuser = true
	usr.IsStaff = true
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	if usr.ID == 0 {
		return svc.repo.CreateUser(ctx, usr)
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

// ResetPassword replaces the password of the account matching uname.
func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.update(ctx, usr)
}

// update persists usr, recomputing the staff flag against the stored role so
// the flag can never drift from the rule, whatever the caller set.
func (svc *Service) update(ctx context.Context, usr User) (User, error) {
	orig, err := svc.repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		return User{}, err
	}
	usr.IsSuperuser = orig.IsSuperuser
	usr.IsStaff = DeriveStaffFlag(orig.Role, usr.Role, orig.IsSuperuser)
	return svc.repo.UpdateUser(ctx, usr)
}

// Query lists active, non-superuser users matching the raw filter.
// A malformed numeric filter value yields an empty result set.
func (svc *Service) Query(ctx context.Context, qf QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	active, notSuper := true, false
	filter := Filter{IsActive: &active, IsSuperuser: &notSuper}

	if qf.Role != "" {
		filter.Roles = []string{qf.Role}
	}
	if qf.RolesIn != "" {
		filter.Roles = append(filter.Roles, strings.Split(qf.RolesIn, ",")...)
	}
	if id, set, malformed := core.ParseIntFilter(qf.BatchID); set {
		if malformed {
			return []User{}, nil
		}
		filter.BatchID = &id
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "username", Ascending: true}}
	}
	return svc.repo.FilterUsers(ctx, filter, ordering)
}

// PresenterCandidates lists the students a staff actor may pick as schedule
// presenters. Batch leaders are always narrowed to their own batch; a leader
// asking for a foreign batch gets an empty list, not an error.
func (svc *Service) PresenterCandidates(ctx context.Context, actor User, rawBatchID string) ([]User, error) {
	if !actor.IsAuthenticated() {
		return nil, core.ErrAuthenticationRequired
	}
	if !actor.IsStaff {
		return nil, core.ErrPermissionDenied
	}

	active, notSuper := true, false
	filter := Filter{
		Roles:       []string{RoleStudent},
		IsActive:    &active,
		IsSuperuser: &notSuper,
	}

	if id, set, malformed := core.ParseIntFilter(rawBatchID); set {
		if malformed {
			return []User{}, nil
		}
		if actor.IsBatchLeader() && !actor.InBatch(id) {
			return []User{}, nil
		}
		filter.BatchID = &id
	} else if actor.IsBatchLeader() {
		if actor.BatchID == nil {
			return []User{}, nil
		}
		filter.BatchID = actor.BatchID
	}

	ordering := []core.DBOrdering{{Field: "username", Ascending: true}}
	return svc.repo.FilterUsers(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	orig, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	usr := User{
		ID:        id,
		Name:      uu.Name,
		Username:  uu.Username,
		Email:     uu.Email,
		Role:      uu.Role,
		BatchID:   uu.BatchID,
		IsActive:  uu.IsActive,
		LastLogin: orig.LastLogin,
		UpdatedAt: time.Now().UTC(),
	}
	if usr.IsActive == nil {
		usr.IsActive = orig.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	} else {
		usr.PasswordHash = orig.PasswordHash
	}
	return svc.update(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}
