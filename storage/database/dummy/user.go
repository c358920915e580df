package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.user.table))
	for _, u := range repo.db.user.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	excluded := make(map[int]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}

	for _, usr := range repo.query() {
		if excluded[usr.ID] {
			continue
		}
		if strings.EqualFold(usr.Username, username) {
			return user.ErrUsernameExists
		}
		if strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	repo.db.user.pkCount++
	usr.ID = repo.db.user.pkCount
	repo.db.user.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	if usr, ok := repo.db.user.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, uname string) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	for _, usr := range repo.query() {
		if strings.EqualFold(usr.Username, uname) || strings.EqualFold(usr.Email, uname) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(_ context.Context, filter user.Filter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	users := []user.User{}
	for _, usr := range repo.query() {
		if len(filter.Roles) > 0 && !containsStr(filter.Roles, usr.Role) {
			continue
		}
		if filter.BatchID != nil && (usr.BatchID == nil || *usr.BatchID != *filter.BatchID) {
			continue
		}
		if filter.IsActive != nil && (usr.IsActive == nil || *usr.IsActive != *filter.IsActive) {
			continue
		}
		if filter.IsSuperuser != nil && usr.IsSuperuser != *filter.IsSuperuser {
			continue
		}
		users = append(users, usr)
	}

	sort.SliceStable(users, sortWith(ordering, func(i, j int, field string) int {
		a, b := users[i], users[j]
		switch field {
		case "id":
			return cmpInt(a.ID, b.ID)
		case "name":
			return cmpStr(a.Name, b.Name)
		case "username":
			return cmpStr(a.Username, b.Username)
		case "email":
			return cmpStr(a.Email, b.Email)
		case "role":
			return cmpStr(a.Role, b.Role)
		case "created_at":
			return cmpTime(a.CreatedAt, b.CreatedAt)
		}
		return 0
	}))
	return users, nil
}

func containsStr(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	if _, ok := repo.db.user.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.user.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...int) error {
	repo.db.user.Lock()
	repo.db.schedule.Lock()
	repo.db.file.Lock()
	defer repo.db.user.Unlock()
	defer repo.db.schedule.Unlock()
	defer repo.db.file.Unlock()

	for _, id := range ids {
		delete(repo.db.user.table, id)
		// presenter and creator references are nulled, uploads go with the user
		for _, s := range repo.db.schedule.table {
			if s.PresenterID != nil && *s.PresenterID == id {
				s.PresenterID = nil
			}
			if s.CreatedByID != nil && *s.CreatedByID == id {
				s.CreatedByID = nil
			}
		}
		for fid, f := range repo.db.file.table {
			if f.UploaderID == id {
				delete(repo.db.file.table, fid)
			}
		}
	}
	return nil
}
