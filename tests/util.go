package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gosimple/slug"

	"github.com/trezcool/darasa/core/batch"
	"github.com/trezcool/darasa/core/discussion"
	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/upload"
	"github.com/trezcool/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	batchID *int,
	isActive bool,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	active := isActive
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		BatchID:   batchID,
		IsStaff:   user.IsStaffRole(role),
		IsActive:  &active,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateSuperuser(t *testing.T, repo user.Repository, name, uname, email, pwd string) user.User {
	t.Helper()

	usr := CreateUser(t, repo, name, uname, email, pwd, user.RoleProfessor, nil, true)
	usr.IsSuperuser = true
	usr.IsStaff = true
	usr, err := repo.UpdateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateSuperuser(): %v", err)
	}
	return usr
}

func CreateBatch(t *testing.T, repo batch.Repository, name string, startYear, endYear int) batch.Batch {
	t.Helper()

	b, err := repo.CreateBatch(context.Background(), batch.Batch{
		Name:      name,
		StartYear: startYear,
		EndYear:   endYear,
		IsActive:  true,
	})
	if err != nil {
		t.Fatalf("CreateBatch(): %v", err)
	}
	return b
}

func CreateDiscussionType(t *testing.T, repo discussion.Repository, name string) discussion.Type {
	t.Helper()

	dt, err := repo.CreateType(context.Background(), discussion.Type{
		Name: name,
		Slug: slug.Make(name),
	})
	if err != nil {
		t.Fatalf("CreateDiscussionType(): %v", err)
	}
	return dt
}

func CreateSchedule(
	t *testing.T,
	repo schedule.Repository,
	batchID, typeID int,
	title string,
	presenterID *int,
	date time.Time,
) schedule.Schedule {
	t.Helper()

	s, err := repo.CreateSchedule(context.Background(), schedule.Schedule{
		BatchID:          batchID,
		DiscussionTypeID: typeID,
		Title:            title,
		PresenterID:      presenterID,
		ScheduledDate:    date,
	})
	if err != nil {
		t.Fatalf("CreateSchedule(): %v", err)
	}
	return s
}

func CreateFile(
	t *testing.T,
	repo upload.Repository,
	uploaderID, batchID, typeID int,
	scheduleID *int,
	filename, storePath string,
) upload.File {
	t.Helper()

	f, err := repo.CreateFile(context.Background(), upload.File{
		UploaderID:       uploaderID,
		BatchID:          batchID,
		DiscussionTypeID: typeID,
		ScheduleID:       scheduleID,
		StorePath:        storePath,
		OriginalFilename: filename,
		UploadDate:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateFile(): %v", err)
	}
	return f
}
