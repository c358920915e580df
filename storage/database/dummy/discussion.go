package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/discussion"
)

type discussionTypeRepository struct {
	db *DB
}

var _ discussion.Repository = (*discussionTypeRepository)(nil) // interface compliance check

func NewDiscussionTypeRepository(db *DB) *discussionTypeRepository {
	return &discussionTypeRepository{db: db}
}

func (repo *discussionTypeRepository) CheckUniqueness(_ context.Context, name, slug string, excluded ...discussion.Type) error {
	repo.db.discussion.RLock()
	defer repo.db.discussion.RUnlock()

	excludedIDs := make(map[int]bool, len(excluded))
	for _, dt := range excluded {
		excludedIDs[dt.ID] = true
	}
	for _, dt := range repo.db.discussion.table {
		if excludedIDs[dt.ID] {
			continue
		}
		if strings.EqualFold(dt.Name, name) {
			return discussion.ErrNameExists
		}
		if dt.Slug == slug {
			return discussion.ErrSlugExists
		}
	}
	return nil
}

func (repo *discussionTypeRepository) CreateType(_ context.Context, dt discussion.Type) (discussion.Type, error) {
	repo.db.discussion.Lock()
	defer repo.db.discussion.Unlock()

	repo.db.discussion.pkCount++
	dt.ID = repo.db.discussion.pkCount
	repo.db.discussion.table[dt.ID] = &dt
	return dt, nil
}

func (repo *discussionTypeRepository) GetTypeByID(_ context.Context, id int) (discussion.Type, error) {
	repo.db.discussion.RLock()
	defer repo.db.discussion.RUnlock()

	if dt, ok := repo.db.discussion.table[id]; ok {
		return *dt, nil
	}
	return discussion.Type{}, discussion.ErrNotFound
}

func (repo *discussionTypeRepository) QueryTypes(_ context.Context, ordering []core.DBOrdering) ([]discussion.Type, error) {
	repo.db.discussion.RLock()
	defer repo.db.discussion.RUnlock()

	types := []discussion.Type{}
	for _, dt := range repo.db.discussion.table {
		types = append(types, *dt)
	}

	sort.SliceStable(types, sortWith(ordering, func(i, j int, field string) int {
		a, b := types[i], types[j]
		switch field {
		case "id":
			return cmpInt(a.ID, b.ID)
		case "name":
			return cmpStr(a.Name, b.Name)
		case "slug":
			return cmpStr(a.Slug, b.Slug)
		}
		return 0
	}))
	return types, nil
}

func (repo *discussionTypeRepository) UpdateType(_ context.Context, dt discussion.Type) (discussion.Type, error) {
	repo.db.discussion.Lock()
	defer repo.db.discussion.Unlock()

	if _, ok := repo.db.discussion.table[dt.ID]; !ok {
		return discussion.Type{}, discussion.ErrNotFound
	}
	repo.db.discussion.table[dt.ID] = &dt
	return dt, nil
}

func (repo *discussionTypeRepository) DeleteTypesByID(_ context.Context, ids ...int) error {
	repo.db.discussion.Lock()
	repo.db.schedule.RLock()
	repo.db.file.RLock()
	defer repo.db.discussion.Unlock()
	defer repo.db.schedule.RUnlock()
	defer repo.db.file.RUnlock()

	for _, id := range ids {
		for _, s := range repo.db.schedule.table {
			if s.DiscussionTypeID == id {
				return discussion.ErrProtected
			}
		}
		for _, f := range repo.db.file.table {
			if f.DiscussionTypeID == id {
				return discussion.ErrProtected
			}
		}
		delete(repo.db.discussion.table, id)
	}
	return nil
}
