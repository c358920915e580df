package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/upload"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func fileURL(id int) string {
	return "/v1/files/" + strconv.Itoa(id)
}

// newUploadRequest builds a multipart request carrying a small in-memory
// blob plus the given form fields.
func newUploadRequest(t *testing.T, token, filename string, fields map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile(): %v", err)
		}
		if _, err = part.Write([]byte("dummy file content")); err != nil {
			t.Fatalf("part.Write(): %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(): %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart.Writer.Close(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/files", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func Test_fileApi_create(t *testing.T) {
	env := setup(t)

	b1 := testutil.CreateBatch(t, env.batchRepo, "2024-2027 Batch", 2024, 2027)
	b2 := testutil.CreateBatch(t, env.batchRepo, "2025-2028 Batch", 2025, 2028)
	dt := testutil.CreateDiscussionType(t, env.discRepo, "Journal Club")
	dt2 := testutil.CreateDiscussionType(t, env.discRepo, "Common Discussion")

	prof := testutil.CreateUser(t, env.usrRepo, "Prof", "prof", "prof@test.cd", "", user.RoleProfessor, nil, true)
	leader := testutil.CreateUser(t, env.usrRepo, "Lead", "lead", "lead@test.cd", "", user.RoleBatchLeader, &b1.ID, true)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice Doe", "alice", "alice@test.cd", "", user.RoleStudent, &b1.ID, true)
	bob := testutil.CreateUser(t, env.usrRepo, "Bob", "bob", "bob@test.cd", "", user.RoleStudent, &b1.ID, true)

	sched := testutil.CreateSchedule(
		t, env.schedRepo, b1.ID, dt.ID, "Gene Therapy", &alice.ID,
		time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
	)

	fields := func(batchID, typeID int, extra map[string]string) map[string]string {
		m := map[string]string{
			"batch_id":           strconv.Itoa(batchID),
			"discussion_type_id": strconv.Itoa(typeID),
		}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}
	schedField := map[string]string{"schedule_id": strconv.Itoa(sched.ID)}

	type wantFile struct{ storePath string }
	tests := []httpTest{
		{
			name: "file part required", token: getToken(t, env.conf, alice),
			extra:    fields(b1.ID, dt.ID, nil),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"file": "a file is required"}),
		},
		{
			name: "batch_id required", token: getToken(t, env.conf, alice),
			body: []byte("notes.pdf"), extra: map[string]string{"discussion_type_id": strconv.Itoa(dt.ID)},
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"batch_id": "a valid batch is required"}),
		},
		{
			name: "unknown batch", token: getToken(t, env.conf, alice),
			body: []byte("notes.pdf"), extra: fields(999, dt.ID, nil),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"batch_id": "batch does not exist"}),
		},
		{
			name: "unknown discussion type", token: getToken(t, env.conf, alice),
			body: []byte("notes.pdf"), extra: fields(b1.ID, 999, nil),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"discussion_type_id": "discussion type does not exist"}),
		},
		{
			name: "student foreign batch", token: getToken(t, env.conf, alice),
			body: []byte("notes.pdf"), extra: fields(b2.ID, dt.ID, nil),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"batch_id": "students can only upload files to their own batch"}),
		},
		{
			name: "leader foreign batch", token: getToken(t, env.conf, leader),
			body: []byte("notes.pdf"), extra: fields(b2.ID, dt.ID, nil),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"batch_id": "batch leaders can only upload files to their own batch"}),
		},
		{
			name: "student not the presenter", token: getToken(t, env.conf, bob),
			body: []byte("notes.pdf"), extra: fields(b1.ID, dt.ID, schedField),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"schedule_id": "you can only upload files for schedules you are presenting"}),
		},
		{
			name: "batch must match schedule", token: getToken(t, env.conf, prof),
			body: []byte("notes.pdf"), extra: fields(b2.ID, dt.ID, schedField),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"batch_id": "file's batch must match the schedule's batch"}),
		},
		{
			name: "type must match schedule", token: getToken(t, env.conf, prof),
			body: []byte("notes.pdf"), extra: fields(b1.ID, dt2.ID, schedField),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"discussion_type_id": "file's discussion type must match the schedule's discussion type"}),
		},
		{
			name: "presenter uploads submission", token: getToken(t, env.conf, alice),
			body: []byte("Gene Therapy Notes.pdf"), extra: fields(b1.ID, dt.ID, schedField),
			wantCode: http.StatusCreated,
		},
		{
			name: "schedule-free upload uses description", token: getToken(t, env.conf, prof),
			body:     []byte("extra.pdf"),
			extra:    fields(b1.ID, dt.ID, map[string]string{"description": "Extra Reading Material"}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formFields, _ := tt.extra.(map[string]string)
			req, rec := newUploadRequest(t, tt.token, string(tt.body), formFields)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var f upload.File
				if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if f.OriginalFilename != string(tt.body) {
					t.Errorf("failed! OriginalFilename = %q; want %q", f.OriginalFilename, string(tt.body))
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// the stored keys follow <batch>/<type-slug>/<descriptive name>
	t.Run("store path layout", func(t *testing.T) {
		got, err := env.fileRepo.FilterFiles(context.Background(), upload.Filter{}, nil)
		if err != nil {
			t.Fatalf("FilterFiles(): %v", err)
		}
		wantPaths := map[string]bool{
			"2024-2027-batch/journal-club/2026-03-15_gene-therapy_alice-doe.pdf": false,
			"2024-2027-batch/journal-club/extra-reading-material.pdf":            false,
		}
		for _, f := range got {
			if _, ok := wantPaths[f.StorePath]; ok {
				wantPaths[f.StorePath] = true
			}
		}
		for p, found := range wantPaths {
			if !found {
				t.Errorf("failed! no file stored at %q; got %v", p, storePaths(got))
			}
		}
	})
}

func storePaths(files []upload.File) []string {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.StorePath)
	}
	return paths
}

func Test_fileApi_query(t *testing.T) {
	env := setup(t)

	b1 := testutil.CreateBatch(t, env.batchRepo, "2024-2027 Batch", 2024, 2027)
	b2 := testutil.CreateBatch(t, env.batchRepo, "2025-2028 Batch", 2025, 2028)
	dt := testutil.CreateDiscussionType(t, env.discRepo, "Journal Club")

	prof := testutil.CreateUser(t, env.usrRepo, "Prof", "prof", "prof@test.cd", "", user.RoleProfessor, nil, true)
	leader := testutil.CreateUser(t, env.usrRepo, "Lead", "lead", "lead@test.cd", "", user.RoleBatchLeader, &b1.ID, true)
	strayLeader := testutil.CreateUser(t, env.usrRepo, "Stray", "stray", "stray@test.cd", "", user.RoleBatchLeader, nil, true)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@test.cd", "", user.RoleStudent, &b1.ID, true)
	zed := testutil.CreateUser(t, env.usrRepo, "Zed", "zed", "zed@test.cd", "", user.RoleStudent, &b2.ID, true)

	f1 := testutil.CreateFile(t, env.fileRepo, alice.ID, b1.ID, dt.ID, nil, "a.pdf", "b1/a.pdf")
	f2 := testutil.CreateFile(t, env.fileRepo, zed.ID, b2.ID, dt.ID, nil, "b.pdf", "b2/b.pdf")
	// alice's upload sitting in a foreign batch stays visible to her
	f3 := testutil.CreateFile(t, env.fileRepo, alice.ID, b2.ID, dt.ID, nil, "c.pdf", "b2/c.pdf")

	path := func(batchID, uploaderID string) string {
		v := make(url.Values)
		if batchID != "" {
			v.Add("batch_id", batchID)
		}
		if uploaderID != "" {
			v.Add("uploader_id", uploaderID)
		}
		return "/v1/files?" + v.Encode()
	}
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/files", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		// default ordering: most recent upload first
		{name: "Professor sees all", path: "/v1/files", token: getToken(t, env.conf, prof), wantData: marchallList(t, f3, f2, f1)},
		{name: "Leader sees own batch", path: "/v1/files", token: getToken(t, env.conf, leader), wantData: marchallList(t, f1)},
		{name: "Leader without batch sees nothing", path: "/v1/files", token: getToken(t, env.conf, strayLeader), wantData: empty},
		{name: "Student sees batch and own uploads", path: "/v1/files", token: getToken(t, env.conf, alice), wantData: marchallList(t, f3, f1)},
		{name: "Foreign uploads stay hidden", path: "/v1/files", token: getToken(t, env.conf, zed), wantData: marchallList(t, f3, f2)},
		// filtering
		{name: "batch_id", path: path("2", ""), token: getToken(t, env.conf, prof), wantData: marchallList(t, f3, f2)},
		{name: "uploader_id", path: path("", strconv.Itoa(alice.ID)), token: getToken(t, env.conf, prof), wantData: marchallList(t, f3, f1)},
		{name: "batch_id (malformed)", path: path("one", ""), token: getToken(t, env.conf, prof), wantData: empty},
		// a filter never widens the scope
		{name: "filter cannot escape scope", path: path("2", ""), token: getToken(t, env.conf, leader), wantData: empty},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_fileApi_download(t *testing.T) {
	env := setup(t)

	b1 := testutil.CreateBatch(t, env.batchRepo, "2024-2027 Batch", 2024, 2027)
	b2 := testutil.CreateBatch(t, env.batchRepo, "2025-2028 Batch", 2025, 2028)
	dt := testutil.CreateDiscussionType(t, env.discRepo, "Journal Club")

	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@test.cd", "", user.RoleStudent, &b1.ID, true)
	zed := testutil.CreateUser(t, env.usrRepo, "Zed", "zed", "zed@test.cd", "", user.RoleStudent, &b2.ID, true)
	leader := testutil.CreateUser(t, env.usrRepo, "Lead", "lead", "lead@test.cd", "", user.RoleBatchLeader, &b1.ID, true)

	// upload through the API so the blob actually lands in the store
	req, rec := newUploadRequest(t, getToken(t, env.conf, alice), "notes.pdf", map[string]string{
		"batch_id":           strconv.Itoa(b1.ID),
		"discussion_type_id": strconv.Itoa(dt.ID),
	})
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var f upload.File
	if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}

	// record without a blob behind it
	orphan := testutil.CreateFile(t, env.fileRepo, zed.ID, b2.ID, dt.ID, nil, "gone.pdf", "b2/gone.pdf")

	t.Run("uploader downloads", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fileURL(f.ID)+"/download", getToken(t, env.conf, alice))
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="notes.pdf"` {
			t.Errorf("failed! Content-Disposition = %q", got)
		}
		data, err := io.ReadAll(rec.Body)
		if err != nil {
			t.Fatalf("io.ReadAll(): %v", err)
		}
		if !strings.Contains(string(data), "dummy file content") {
			t.Errorf("failed! unexpected payload %q", string(data))
		}
	})

	t.Run("foreign student denied without leaking existence", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fileURL(f.ID)+"/download", getToken(t, env.conf, zed))
		env.app.ServeHTTP(rec, req)

		want := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, want, rec)
	})

	t.Run("batch-mate downloads", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fileURL(f.ID)+"/download", getToken(t, env.conf, leader))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("missing blob reads as not found", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fileURL(orphan.ID)+"/download", getToken(t, env.conf, zed))
		env.app.ServeHTTP(rec, req)

		want := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, want, rec)
	})
}

func Test_fileApi_detail(t *testing.T) {
	env := setup(t)

	b1 := testutil.CreateBatch(t, env.batchRepo, "2024-2027 Batch", 2024, 2027)
	b2 := testutil.CreateBatch(t, env.batchRepo, "2025-2028 Batch", 2025, 2028)
	dt := testutil.CreateDiscussionType(t, env.discRepo, "Journal Club")

	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@test.cd", "", user.RoleStudent, &b1.ID, true)
	bob := testutil.CreateUser(t, env.usrRepo, "Bob", "bob", "bob@test.cd", "", user.RoleStudent, &b1.ID, true)
	zed := testutil.CreateUser(t, env.usrRepo, "Zed", "zed", "zed@test.cd", "", user.RoleStudent, &b2.ID, true)

	f := testutil.CreateFile(t, env.fileRepo, alice.ID, b1.ID, dt.ID, nil, "notes.pdf", "b1/notes.pdf")

	t.Run("retrieve in batch", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fileURL(f.ID), getToken(t, env.conf, bob))
		env.app.ServeHTTP(rec, req)
		want := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, f)}
		checkCodeAndData(t, want, rec)
	})

	t.Run("batch-mates cannot edit", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"description": "Updated"})
		req, rec := newAuthRequest(http.MethodPut, fileURL(f.ID), getToken(t, env.conf, bob), body)
		env.app.ServeHTTP(rec, req)
		want := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, want, rec)
	})

	t.Run("owner edits description", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"description": "Week 3 notes"})
		req, rec := newAuthRequest(http.MethodPut, fileURL(f.ID), getToken(t, env.conf, alice), body)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got upload.File
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if got.Description != "Week 3 notes" {
			t.Errorf("failed! Description = %q", got.Description)
		}
		if got.OriginalFilename != f.OriginalFilename {
			t.Errorf("failed! OriginalFilename changed to %q", got.OriginalFilename)
		}
	})

	t.Run("foreign student cannot delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fileURL(f.ID), getToken(t, env.conf, zed))
		env.app.ServeHTTP(rec, req)
		want := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, want, rec)
	})

	t.Run("owner deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fileURL(f.ID), getToken(t, env.conf, alice))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, fileURL(f.ID), getToken(t, env.conf, alice))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})
}
