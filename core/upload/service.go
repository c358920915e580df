package upload

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/batch"
	"github.com/trezcool/darasa/core/discussion"
	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/user"
)

var (
	ErrNotFound = errors.New("file not found")

	// upload rule violations; wordings kept distinct so clients can tell
	// "no batch assigned" from "wrong batch" from schedule mismatches.
	errNoBatch            = "you are not assigned to a batch and cannot upload files"
	errLeaderWrongBatch   = "batch leaders can only upload files to their own batch"
	errStudentWrongBatch  = "students can only upload files to their own batch"
	errScheduleWrongBatch = "the selected schedule does not belong to your batch"
	errNotPresenter       = "you can only upload files for schedules you are presenting"
	errBatchMismatch      = "file's batch must match the schedule's batch"
	errTypeMismatch       = "file's discussion type must match the schedule's discussion type"

	errUnknownBatch    = "batch does not exist"
	errUnknownType     = "discussion type does not exist"
	errUnknownSchedule = "schedule does not exist"
)

type (
	Repository interface {
		CreateFile(ctx context.Context, f File) (File, error)
		GetFileByID(ctx context.Context, id int) (File, error)
		// FilterFiles intersects caller filters with the actor scope.
		FilterFiles(ctx context.Context, filter Filter, ordering []core.DBOrdering) ([]File, error)
		UpdateFile(ctx context.Context, f File) (File, error)
		DeleteFilesByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo     Repository
		fs       core.FileStorage
		batchSvc *batch.Service
		discSvc  *discussion.Service
		schedSvc *schedule.Service
		usrSvc   *user.Service
	}
)

func NewService(
	repo Repository,
	fs core.FileStorage,
	batchSvc *batch.Service,
	discSvc *discussion.Service,
	schedSvc *schedule.Service,
	usrSvc *user.Service,
) *Service {
	return &Service{
		repo:     repo,
		fs:       fs,
		batchSvc: batchSvc,
		discSvc:  discSvc,
		schedSvc: schedSvc,
		usrSvc:   usrSvc,
	}
}

// ValidateUpload enforces the three-tier upload rules, pure over
// already-fetched state:
//
//  1. a staff batch leader needs a batch and may only target it, including
//     through a linked schedule;
//  2. a student needs a batch, may only target it, and may only attach files
//     to a schedule they present or one with no presenter;
//  3. for every role, a linked schedule's batch and discussion type must
//     match the file's.
func ValidateUpload(actor user.User, nf NewFile, sched *schedule.Schedule) error {
	if !actor.IsAuthenticated() {
		return core.ErrAuthenticationRequired
	}

	if actor.IsStaff {
		if actor.IsBatchLeader() {
			if actor.BatchID == nil {
				return core.NewValidationError(nil, core.FieldError{Field: "batch_id", Error: errNoBatch})
			}
			if !actor.InBatch(nf.BatchID) {
				return core.NewValidationError(nil, core.FieldError{Field: "batch_id", Error: errLeaderWrongBatch})
			}
			if sched != nil && !actor.InBatch(sched.BatchID) {
				return core.NewValidationError(nil, core.FieldError{Field: "schedule_id", Error: errScheduleWrongBatch})
			}
		}
	} else if actor.IsStudent() {
		if actor.BatchID == nil {
			return core.NewValidationError(nil, core.FieldError{Field: "batch_id", Error: errNoBatch})
		}
		if !actor.InBatch(nf.BatchID) {
			return core.NewValidationError(nil, core.FieldError{Field: "batch_id", Error: errStudentWrongBatch})
		}
		if sched != nil {
			if !actor.InBatch(sched.BatchID) {
				return core.NewValidationError(nil, core.FieldError{Field: "schedule_id", Error: errScheduleWrongBatch})
			}
			if sched.PresenterID != nil && *sched.PresenterID != actor.ID {
				return core.NewValidationError(nil, core.FieldError{Field: "schedule_id", Error: errNotPresenter})
			}
		}
	}

	// consistency constraints, independent of role
	if sched != nil {
		if nf.BatchID != sched.BatchID {
			return core.NewValidationError(nil, core.FieldError{Field: "batch_id", Error: errBatchMismatch})
		}
		if nf.DiscussionTypeID != sched.DiscussionTypeID {
			return core.NewValidationError(nil, core.FieldError{Field: "discussion_type_id", Error: errTypeMismatch})
		}
	}
	return nil
}

// Create validates all upload rules, stores the blob and creates the record.
// Any rule violation aborts the whole operation before anything is written;
// a failed record write removes the stored blob again.
func (svc *Service) Create(ctx context.Context, actor user.User, nf NewFile, src io.Reader) (File, error) {
	if !actor.IsAuthenticated() {
		return File{}, core.ErrAuthenticationRequired
	}

	b, err := svc.batchSvc.GetByID(ctx, nf.BatchID)
	if err != nil {
		if errors.Cause(err) == batch.ErrNotFound {
			return File{}, core.NewValidationError(nil, core.FieldError{Field: "batch_id", Error: errUnknownBatch})
		}
		return File{}, errors.Wrap(err, "finding batch")
	}
	dt, err := svc.discSvc.GetByID(ctx, nf.DiscussionTypeID)
	if err != nil {
		if errors.Cause(err) == discussion.ErrNotFound {
			return File{}, core.NewValidationError(nil, core.FieldError{Field: "discussion_type_id", Error: errUnknownType})
		}
		return File{}, errors.Wrap(err, "finding discussion type")
	}
	var sched *schedule.Schedule
	if nf.ScheduleID != nil {
		s, err := svc.schedSvc.GetByID(ctx, *nf.ScheduleID)
		if err != nil {
			if errors.Cause(err) == schedule.ErrNotFound {
				return File{}, core.NewValidationError(nil, core.FieldError{Field: "schedule_id", Error: errUnknownSchedule})
			}
			return File{}, errors.Wrap(err, "finding schedule")
		}
		sched = &s
	}

	if err := ValidateUpload(actor, nf, sched); err != nil {
		return File{}, err
	}

	var presenterName string
	if sched != nil && sched.PresenterID != nil {
		presenter, err := svc.usrSvc.GetByID(ctx, *sched.PresenterID)
		if err == nil {
			presenterName = presenter.Name
			if presenterName == "" {
				presenterName = presenter.Username
			}
		} else if errors.Cause(err) != user.ErrNotFound {
			return File{}, errors.Wrap(err, "finding presenter")
		}
	}

	f := File{
		UploaderID:       actor.ID, // always the acting actor, never client-supplied
		BatchID:          nf.BatchID,
		DiscussionTypeID: nf.DiscussionTypeID,
		ScheduleID:       nf.ScheduleID,
		StorePath:        StorePath(b, dt, sched, presenterName, nf.Filename, nf.Description),
		OriginalFilename: nf.Filename,
		UploadDate:       time.Now().UTC(),
		Description:      nf.Description,
	}

	if err := svc.fs.Save(ctx, f.StorePath, src); err != nil {
		return File{}, errors.Wrap(err, "storing blob")
	}
	created, err := svc.repo.CreateFile(ctx, f)
	if err != nil {
		_ = svc.fs.Delete(ctx, f.StorePath) // no partial write
		return File{}, errors.Wrap(err, "creating file record")
	}
	return created, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (File, error) {
	return svc.repo.GetFileByID(ctx, id)
}

// Query lists files visible to the actor, narrowed by the raw filter.
// Malformed numeric filter values yield an empty result set. Default
// ordering is most recent upload first.
func (svc *Service) Query(ctx context.Context, actor user.User, qf QueryFilter, ordering []core.DBOrdering) ([]File, error) {
	scope := ScopeFor(actor)
	if scope.Empty {
		return []File{}, nil
	}

	filter := Filter{Scope: scope}
	rawFilters := []struct {
		raw  string
		dest **int
	}{
		{qf.BatchID, &filter.BatchID},
		{qf.DiscussionTypeID, &filter.DiscussionTypeID},
		{qf.ScheduleID, &filter.ScheduleID},
		{qf.UploaderID, &filter.UploaderID},
	}
	for _, rf := range rawFilters {
		id, set, malformed := core.ParseIntFilter(rf.raw)
		if malformed {
			return []File{}, nil
		}
		if set {
			v := id
			*rf.dest = &v
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{
			{Field: "upload_date"},
			{Field: "original_filename", Ascending: true},
		}
	}
	return svc.repo.FilterFiles(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id int, uf UpdateFile) (File, error) {
	orig, err := svc.repo.GetFileByID(ctx, id)
	if err != nil {
		return File{}, err
	}
	orig.Description = *uf.Description
	return svc.repo.UpdateFile(ctx, orig)
}

// Delete removes the records and their blobs; blob removal is best-effort.
func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	for _, id := range ids {
		f, err := svc.repo.GetFileByID(ctx, id)
		if err != nil {
			return err
		}
		if err := svc.repo.DeleteFilesByID(ctx, id); err != nil {
			return err
		}
		_ = svc.fs.Delete(ctx, f.StorePath)
	}
	return nil
}

// Download authorizes then opens the blob stream of a file. Denials are
// reported as core.ErrPermissionDenied without confirming existence;
// storage errors surface as ErrNotFound rather than raw failures.
func (svc *Service) Download(ctx context.Context, actor user.User, id int) (io.ReadCloser, string, error) {
	f, err := svc.repo.GetFileByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !CanDownload(actor, f) {
		return nil, "", core.ErrPermissionDenied
	}
	rc, err := svc.fs.Open(ctx, f.StorePath)
	if err != nil {
		return nil, "", ErrNotFound
	}
	return rc, f.OriginalFilename, nil
}
