package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) *scheduleRepository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) hasSubmission(id int) bool {
	repo.db.file.RLock()
	defer repo.db.file.RUnlock()

	for _, f := range repo.db.file.table {
		if f.ScheduleID != nil && *f.ScheduleID == id {
			return true
		}
	}
	return false
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	repo.db.schedule.Lock()
	defer repo.db.schedule.Unlock()

	repo.db.schedule.pkCount++
	s.ID = repo.db.schedule.pkCount
	repo.db.schedule.table[s.ID] = &s
	return s, nil
}

func (repo *scheduleRepository) GetScheduleByID(_ context.Context, id int) (schedule.Schedule, error) {
	repo.db.schedule.RLock()
	defer repo.db.schedule.RUnlock()

	if s, ok := repo.db.schedule.table[id]; ok {
		res := *s
		res.HasSubmission = repo.hasSubmission(id)
		return res, nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) FilterSchedules(_ context.Context, filter schedule.Filter, ordering []core.DBOrdering) ([]schedule.Schedule, error) {
	repo.db.schedule.RLock()
	defer repo.db.schedule.RUnlock()

	if filter.Scope.Empty {
		return []schedule.Schedule{}, nil
	}

	schedules := []schedule.Schedule{}
	for _, s := range repo.db.schedule.table {
		if !scheduleInScope(*s, filter.Scope) {
			continue
		}
		if filter.BatchID != nil && s.BatchID != *filter.BatchID {
			continue
		}
		if filter.PresenterID != nil && (s.PresenterID == nil || *s.PresenterID != *filter.PresenterID) {
			continue
		}
		res := *s
		res.HasSubmission = repo.hasSubmission(s.ID)
		schedules = append(schedules, res)
	}

	sort.SliceStable(schedules, sortWith(ordering, func(i, j int, field string) int {
		a, b := schedules[i], schedules[j]
		switch field {
		case "id":
			return cmpInt(a.ID, b.ID)
		case "title":
			return cmpStr(a.Title, b.Title)
		case "scheduled_date":
			return cmpTime(a.ScheduledDate, b.ScheduledDate)
		case "batch_id":
			return cmpInt(a.BatchID, b.BatchID)
		}
		return 0
	}))
	return schedules, nil
}

// scheduleInScope widens scope terms with OR: a scope with no terms is
// unrestricted.
func scheduleInScope(s schedule.Schedule, scope schedule.Scope) bool {
	if scope.BatchID == nil && scope.SelfPresenterID == nil {
		return true
	}
	if scope.BatchID != nil && s.BatchID == *scope.BatchID {
		return true
	}
	if scope.SelfPresenterID != nil && s.PresenterID != nil && *s.PresenterID == *scope.SelfPresenterID {
		return true
	}
	return false
}

func (repo *scheduleRepository) UpdateSchedule(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	repo.db.schedule.Lock()
	defer repo.db.schedule.Unlock()

	if _, ok := repo.db.schedule.table[s.ID]; !ok {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	repo.db.schedule.table[s.ID] = &s
	return s, nil
}

func (repo *scheduleRepository) DeleteSchedulesByID(_ context.Context, ids ...int) error {
	repo.db.schedule.Lock()
	repo.db.file.Lock()
	defer repo.db.schedule.Unlock()
	defer repo.db.file.Unlock()

	for _, id := range ids {
		delete(repo.db.schedule.table, id)
		// files are kept, only unlinked
		for _, f := range repo.db.file.table {
			if f.ScheduleID != nil && *f.ScheduleID == id {
				f.ScheduleID = nil
			}
		}
	}
	return nil
}
