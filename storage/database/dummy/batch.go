package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/batch"
)

type batchRepository struct {
	db *DB
}

var _ batch.Repository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(db *DB) *batchRepository {
	return &batchRepository{db: db}
}

func (repo *batchRepository) CheckNameUniqueness(_ context.Context, name string, excluded ...batch.Batch) error {
	repo.db.batch.RLock()
	defer repo.db.batch.RUnlock()

	excludedIDs := make(map[int]bool, len(excluded))
	for _, b := range excluded {
		excludedIDs[b.ID] = true
	}
	for _, b := range repo.db.batch.table {
		if !excludedIDs[b.ID] && strings.EqualFold(b.Name, name) {
			return batch.ErrNameExists
		}
	}
	return nil
}

func (repo *batchRepository) CreateBatch(_ context.Context, b batch.Batch) (batch.Batch, error) {
	repo.db.batch.Lock()
	defer repo.db.batch.Unlock()

	repo.db.batch.pkCount++
	b.ID = repo.db.batch.pkCount
	repo.db.batch.table[b.ID] = &b
	return b, nil
}

func (repo *batchRepository) GetBatchByID(_ context.Context, id int) (batch.Batch, error) {
	repo.db.batch.RLock()
	defer repo.db.batch.RUnlock()

	if b, ok := repo.db.batch.table[id]; ok {
		return *b, nil
	}
	return batch.Batch{}, batch.ErrNotFound
}

func (repo *batchRepository) QueryBatches(_ context.Context, ordering []core.DBOrdering) ([]batch.Batch, error) {
	repo.db.batch.RLock()
	defer repo.db.batch.RUnlock()

	batches := []batch.Batch{}
	for _, b := range repo.db.batch.table {
		if b.IsActive {
			batches = append(batches, *b)
		}
	}

	sort.SliceStable(batches, sortWith(ordering, func(i, j int, field string) int {
		a, b := batches[i], batches[j]
		switch field {
		case "id":
			return cmpInt(a.ID, b.ID)
		case "name":
			return cmpStr(a.Name, b.Name)
		case "start_year":
			return cmpInt(a.StartYear, b.StartYear)
		case "end_year":
			return cmpInt(a.EndYear, b.EndYear)
		}
		return 0
	}))
	return batches, nil
}

func (repo *batchRepository) UpdateBatch(_ context.Context, b batch.Batch) (batch.Batch, error) {
	repo.db.batch.Lock()
	defer repo.db.batch.Unlock()

	if _, ok := repo.db.batch.table[b.ID]; !ok {
		return batch.Batch{}, batch.ErrNotFound
	}
	repo.db.batch.table[b.ID] = &b
	return b, nil
}

func (repo *batchRepository) DeleteBatchesByID(_ context.Context, ids ...int) error {
	repo.db.batch.Lock()
	repo.db.user.Lock()
	repo.db.schedule.Lock()
	repo.db.file.Lock()
	defer repo.db.batch.Unlock()
	defer repo.db.user.Unlock()
	defer repo.db.schedule.Unlock()
	defer repo.db.file.Unlock()

	for _, id := range ids {
		delete(repo.db.batch.table, id)
		// schedules and files go with the batch, user assignments are nulled
		for sid, s := range repo.db.schedule.table {
			if s.BatchID == id {
				delete(repo.db.schedule.table, sid)
			}
		}
		for fid, f := range repo.db.file.table {
			if f.BatchID == id {
				delete(repo.db.file.table, fid)
			}
		}
		for _, u := range repo.db.user.table {
			if u.BatchID != nil && *u.BatchID == id {
				u.BatchID = nil
			}
		}
	}
	return nil
}
