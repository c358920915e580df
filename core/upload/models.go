package upload

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/batch"
	"github.com/trezcool/darasa/core/discussion"
	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/user"
)

// File is a stored file scoped by batch and discussion type, optionally
// linked to a schedule. OriginalFilename is captured once at creation and
// never recomputed.
type File struct {
	ID               int       `json:"id" db:"id"`
	UploaderID       int       `json:"uploader_id" db:"uploader_id"`
	BatchID          int       `json:"batch_id" db:"batch_id"`
	DiscussionTypeID int       `json:"discussion_type_id" db:"discussion_type_id"`
	ScheduleID       *int      `json:"schedule_id" db:"schedule_id"`
	StorePath        string    `json:"-" db:"store_path"`
	OriginalFilename string    `json:"original_filename" db:"original_filename"`
	UploadDate       time.Time `json:"upload_date" db:"upload_date"` // UTC
	Description      string    `json:"description" db:"description"`
}

// NewFile contains information needed to create a new File.
// Uploader is never client-supplied; the service sets it to the acting actor.
type NewFile struct {
	BatchID          int    `json:"batch_id" validate:"required"`
	DiscussionTypeID int    `json:"discussion_type_id" validate:"required"`
	ScheduleID       *int   `json:"schedule_id"`
	Filename         string `json:"-" validate:"required"`
	Description      string `json:"description"`
}

func (nf *NewFile) Validate(validate *validator.Validate) error {
	nf.Filename = path.Base(core.CleanString(nf.Filename))
	nf.Description = core.CleanString(nf.Description)
	return validate.Struct(nf)
}

// UpdateFile defines the metadata that may be modified on an existing File.
// The blob, its path and the original filename are immutable.
type UpdateFile struct {
	Description *string `json:"description"`
}

func (uf *UpdateFile) Validate(orig File, validate *validator.Validate) error {
	if uf.Description == nil {
		uf.Description = &orig.Description
	}
	return validate.Struct(uf)
}

// Scope is the visibility restriction a file list query must intersect with,
// derived from the acting actor's role.
type Scope struct {
	// Empty means the actor sees nothing; the query is not even run.
	Empty bool
	// BatchID, when set, restricts results to that batch.
	BatchID *int
	// SelfUploaderID, when set, widens the batch restriction to the actor's
	// own uploads (students always see what they uploaded).
	SelfUploaderID *int
}

// ScopeFor computes the file visibility scope of an actor: staff see
// everything, batch leaders only their batch (nothing without one), students
// the union of their batch and their own uploads.
func ScopeFor(actor user.User) Scope {
	if !actor.IsAuthenticated() {
		return Scope{Empty: true}
	}
	if actor.IsStaff || actor.IsSuperuser {
		if actor.IsBatchLeader() {
			if actor.BatchID == nil {
				return Scope{Empty: true}
			}
			return Scope{BatchID: actor.BatchID}
		}
		return Scope{}
	}
	if actor.IsStudent() {
		id := actor.ID
		return Scope{BatchID: actor.BatchID, SelfUploaderID: &id}
	}
	return Scope{Empty: true}
}

// CanDownload is the standalone download authorization check used by the raw
// streaming endpoint: staff non-leaders always, batch leaders within their
// batch, students within their batch or for their own uploads.
func CanDownload(actor user.User, f File) bool {
	if !actor.IsAuthenticated() {
		return false
	}
	if actor.IsStaff || actor.IsSuperuser {
		if actor.IsBatchLeader() {
			return actor.InBatch(f.BatchID)
		}
		return true
	}
	if actor.IsStudent() {
		return actor.InBatch(f.BatchID) || f.UploaderID == actor.ID
	}
	return false
}

// QueryFilter carries raw file-list query params. Numeric values are kept
// raw: a malformed value empties the result set instead of erroring.
type QueryFilter struct {
	BatchID          string `query:"batch_id"`
	DiscussionTypeID string `query:"discussion_type_id"`
	ScheduleID       string `query:"schedule_id"`
	UploaderID       string `query:"uploader_id"`
}

func (qf *QueryFilter) Clean() {
	qf.BatchID = core.CleanString(qf.BatchID)
	qf.DiscussionTypeID = core.CleanString(qf.DiscussionTypeID)
	qf.ScheduleID = core.CleanString(qf.ScheduleID)
	qf.UploaderID = core.CleanString(qf.UploaderID)
}

// Filter is the repository-level, parsed counterpart of QueryFilter,
// combined with the actor's visibility Scope.
type Filter struct {
	BatchID          *int
	DiscussionTypeID *int
	ScheduleID       *int
	UploaderID       *int
	Scope            Scope
}

// StorePath derives the stable blob key for a new file from its batch,
// discussion type and schedule-or-description-or-filename attributes.
func StorePath(b batch.Batch, dt discussion.Type, sched *schedule.Schedule, presenterName, filename, description string) string {
	ext := path.Ext(filename)

	var name string
	switch {
	case sched != nil:
		presenter := "general"
		if presenterName != "" {
			presenter = slug.Make(presenterName)
		}
		name = fmt.Sprintf("%s_%s_%s%s", sched.ScheduledDate.Format("2006-01-02"), slug.Make(sched.Title), presenter, ext)
	case description != "":
		name = slug.Make(description) + ext
	default:
		name = sanitizeFilename(filename)
		if name == "" {
			name = "uploaded_file" + ext
		}
	}
	return path.Join(slug.Make(b.Name), dt.Slug, name)
}

func sanitizeFilename(filename string) string {
	var sb strings.Builder
	for _, c := range filename {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			sb.WriteRune(c)
		}
	}
	return strings.Trim(sb.String(), ".")
}
