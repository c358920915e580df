package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

// Roles
const (
	RoleStudent     = "student"
	RoleBatchLeader = "batch_leader"
	RoleProfessor   = "professor"
)

var (
	AllRoles   = []string{RoleStudent, RoleBatchLeader, RoleProfessor}
	StaffRoles = []string{RoleBatchLeader, RoleProfessor}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Batch Leader", Value: RoleBatchLeader},
		{Name: "Professor", Value: RoleProfessor},
	}
)

func IsStaffRole(role string) bool {
	for _, r := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

// DeriveStaffFlag computes the stored staff flag from a role transition.
// It is applied by the service on every create/update, within the same
// repository write; a caller-supplied staff flag is never trusted.
//
//   - role in {batch_leader, professor} -> staff
//   - demotion from a staff role back to student -> not staff, unless superuser
//   - student (non-superuser) -> not staff
//   - superusers are never forced to non-staff
func DeriveStaffFlag(prevRole, newRole string, isSuperuser bool) bool {
	switch {
	case IsStaffRole(newRole):
		return true
	case IsStaffRole(prevRole) && newRole == RoleStudent && !isSuperuser:
		return false
	case newRole == RoleStudent && !isSuperuser:
		return false
	}
	return isSuperuser
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	Role         string    `json:"role" db:"role"`
	BatchID      *int      `json:"batch_id" db:"batch_id"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser" db:"is_superuser"`
	IsActive     *bool     `json:"is_active" db:"is_active"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login" db:"last_login"` // UTC
}

// IsAuthenticated reports whether u represents a persisted actor;
// the zero User stands for "unauthenticated".
func (u *User) IsAuthenticated() bool {
	return u.ID != 0
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

func (u *User) IsBatchLeader() bool {
	return u.Role == RoleBatchLeader
}

func (u *User) IsProfessor() bool {
	return u.Role == RoleProfessor
}

// InBatch reports whether u is a member of the batch with the given ID.
func (u *User) InBatch(batchID int) bool {
	return u.BatchID != nil && *u.BatchID == batchID
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"required,min=3,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            string `json:"role" validate:"omitempty,allroles"`
	BatchID         *int   `json:"batch_id"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleStudent
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// The staff flag is read-only: it is recomputed from the role on save.
type UpdateUser struct {
	Name            string `json:"name"`
	Username        string `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            string `json:"role" validate:"omitempty,allroles"`
	BatchID         *int   `json:"batch_id"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc *Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if uu.Role == "" {
		uu.Role = origUsr.Role
	}
	if uu.BatchID == nil {
		uu.BatchID = origUsr.BatchID
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

// QueryFilter carries raw user-list query params.
// Numeric values are kept raw: parsing them is part of the query semantics
// (a malformed value empties the result set instead of erroring).
type QueryFilter struct {
	Role    string `query:"role"`
	RolesIn string `query:"role__in"`
	BatchID string `query:"batch"`
}

func (qf *QueryFilter) Clean() {
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.RolesIn = core.CleanString(qf.RolesIn, true /* lower */)
	qf.BatchID = core.CleanString(qf.BatchID)
}

// Filter is the repository-level, parsed counterpart of QueryFilter.
type Filter struct {
	Roles       []string
	BatchID     *int
	IsActive    *bool
	IsSuperuser *bool
}
