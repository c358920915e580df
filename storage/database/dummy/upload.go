package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/upload"
)

type fileRepository struct {
	db *DB
}

var _ upload.Repository = (*fileRepository)(nil) // interface compliance check

func NewFileRepository(db *DB) *fileRepository {
	return &fileRepository{db: db}
}

func (repo *fileRepository) CreateFile(_ context.Context, f upload.File) (upload.File, error) {
	repo.db.file.Lock()
	defer repo.db.file.Unlock()

	repo.db.file.pkCount++
	f.ID = repo.db.file.pkCount
	repo.db.file.table[f.ID] = &f
	return f, nil
}

func (repo *fileRepository) GetFileByID(_ context.Context, id int) (upload.File, error) {
	repo.db.file.RLock()
	defer repo.db.file.RUnlock()

	if f, ok := repo.db.file.table[id]; ok {
		return *f, nil
	}
	return upload.File{}, upload.ErrNotFound
}

func (repo *fileRepository) FilterFiles(_ context.Context, filter upload.Filter, ordering []core.DBOrdering) ([]upload.File, error) {
	repo.db.file.RLock()
	defer repo.db.file.RUnlock()

	if filter.Scope.Empty {
		return []upload.File{}, nil
	}

	files := []upload.File{}
	for _, f := range repo.db.file.table {
		if !fileInScope(*f, filter.Scope) {
			continue
		}
		if filter.BatchID != nil && f.BatchID != *filter.BatchID {
			continue
		}
		if filter.DiscussionTypeID != nil && f.DiscussionTypeID != *filter.DiscussionTypeID {
			continue
		}
		if filter.ScheduleID != nil && (f.ScheduleID == nil || *f.ScheduleID != *filter.ScheduleID) {
			continue
		}
		if filter.UploaderID != nil && f.UploaderID != *filter.UploaderID {
			continue
		}
		files = append(files, *f)
	}

	sort.SliceStable(files, sortWith(ordering, func(i, j int, field string) int {
		a, b := files[i], files[j]
		switch field {
		case "id":
			return cmpInt(a.ID, b.ID)
		case "original_filename":
			return cmpStr(a.OriginalFilename, b.OriginalFilename)
		case "upload_date":
			return cmpTime(a.UploadDate, b.UploadDate)
		case "batch_id":
			return cmpInt(a.BatchID, b.BatchID)
		}
		return 0
	}))
	return files, nil
}

// fileInScope widens scope terms with OR: a scope with no terms is
// unrestricted.
func fileInScope(f upload.File, scope upload.Scope) bool {
	if scope.BatchID == nil && scope.SelfUploaderID == nil {
		return true
	}
	if scope.BatchID != nil && f.BatchID == *scope.BatchID {
		return true
	}
	if scope.SelfUploaderID != nil && f.UploaderID == *scope.SelfUploaderID {
		return true
	}
	return false
}

func (repo *fileRepository) UpdateFile(_ context.Context, f upload.File) (upload.File, error) {
	repo.db.file.Lock()
	defer repo.db.file.Unlock()

	if _, ok := repo.db.file.table[f.ID]; !ok {
		return upload.File{}, upload.ErrNotFound
	}
	repo.db.file.table[f.ID] = &f
	return f, nil
}

func (repo *fileRepository) DeleteFilesByID(_ context.Context, ids ...int) error {
	repo.db.file.Lock()
	defer repo.db.file.Unlock()

	for _, id := range ids {
		delete(repo.db.file.table, id)
	}
	return nil
}
