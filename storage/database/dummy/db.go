// Package dummydb provides in-memory repositories for tests and local runs
// without a database server.
package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/batch"
	"github.com/trezcool/darasa/core/discussion"
	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/upload"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user       *userTable
		batch      *batchTable
		discussion *discussionTypeTable
		schedule   *scheduleTable
		file       *fileTable
	}

	userTable struct {
		sync.RWMutex
		table   map[int]*user.User
		pkCount int
	}

	batchTable struct {
		sync.RWMutex
		table   map[int]*batch.Batch
		pkCount int
	}

	discussionTypeTable struct {
		sync.RWMutex
		table   map[int]*discussion.Type
		pkCount int
	}

	scheduleTable struct {
		sync.RWMutex
		table   map[int]*schedule.Schedule
		pkCount int
	}

	fileTable struct {
		sync.RWMutex
		table   map[int]*upload.File
		pkCount int
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[int]*user.User)},
		batch:      &batchTable{table: make(map[int]*batch.Batch)},
		discussion: &discussionTypeTable{table: make(map[int]*discussion.Type)},
		schedule:   &scheduleTable{table: make(map[int]*schedule.Schedule)},
		file:       &fileTable{table: make(map[int]*upload.File)},
	}
	return db, nil
}
