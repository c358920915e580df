package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func scheduleURL(id int) string {
	return "/v1/schedules/" + strconv.Itoa(id)
}

func Test_scheduleApi_query(t *testing.T) {
	env := setup(t)

	b1 := testutil.CreateBatch(t, env.batchRepo, "2024-2027 Batch", 2024, 2027)
	b2 := testutil.CreateBatch(t, env.batchRepo, "2025-2028 Batch", 2025, 2028)
	dt := testutil.CreateDiscussionType(t, env.discRepo, "Journal Club")

	prof := testutil.CreateUser(t, env.usrRepo, "Prof", "prof", "prof@test.cd", "", user.RoleProfessor, nil, true)
	leader := testutil.CreateUser(t, env.usrRepo, "Lead", "lead", "lead@test.cd", "", user.RoleBatchLeader, &b1.ID, true)
	strayLeader := testutil.CreateUser(t, env.usrRepo, "Stray", "stray", "stray@test.cd", "", user.RoleBatchLeader, nil, true)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@test.cd", "", user.RoleStudent, &b1.ID, true)
	zed := testutil.CreateUser(t, env.usrRepo, "Zed", "zed", "zed@test.cd", "", user.RoleStudent, &b2.ID, true)

	now := time.Now().UTC()
	s1 := testutil.CreateSchedule(t, env.schedRepo, b1.ID, dt.ID, "Gene Therapy", &alice.ID, now.AddDate(0, 0, 7))
	s2 := testutil.CreateSchedule(t, env.schedRepo, b1.ID, dt.ID, "Immunology", nil, now.AddDate(0, 0, 14))
	// alice presents in a foreign batch; visible to her through ownership
	s3 := testutil.CreateSchedule(t, env.schedRepo, b2.ID, dt.ID, "Oncology", &alice.ID, now.AddDate(0, 0, 21))

	path := func(batchID, presenterID, ordering string) string {
		v := make(url.Values)
		if batchID != "" {
			v.Add("batch_id", batchID)
		}
		if presenterID != "" {
			v.Add("presenter_id", presenterID)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		return "/v1/schedules?" + v.Encode()
	}
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/schedules", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		// default ordering: most recent scheduled date first
		{name: "Professor sees all", path: "/v1/schedules", token: getToken(t, env.conf, prof), wantData: marchallList(t, s3, s2, s1)},
		{name: "Leader sees own batch", path: "/v1/schedules", token: getToken(t, env.conf, leader), wantData: marchallList(t, s2, s1)},
		{name: "Leader without batch sees nothing", path: "/v1/schedules", token: getToken(t, env.conf, strayLeader), wantData: empty},
		{name: "Student sees batch and own presentations", path: "/v1/schedules", token: getToken(t, env.conf, alice), wantData: marchallList(t, s3, s2, s1)},
		{name: "Foreign student sees own batch only", path: "/v1/schedules", token: getToken(t, env.conf, zed), wantData: marchallList(t, s3)},
		// filtering
		{name: "batch_id", path: path("1", "", ""), token: getToken(t, env.conf, prof), wantData: marchallList(t, s2, s1)},
		{name: "batch_id (malformed)", path: path("one", "", ""), token: getToken(t, env.conf, prof), wantData: empty},
		{name: "presenter_id", path: path("", strconv.Itoa(alice.ID), ""), token: getToken(t, env.conf, prof), wantData: marchallList(t, s3, s1)},
		// a filter never widens the scope
		{name: "filter cannot escape scope", path: path("1", "", ""), token: getToken(t, env.conf, zed), wantData: empty},
		// ordering
		{name: "order by title", path: path("", "", "title"), token: getToken(t, env.conf, prof), wantData: marchallList(t, s1, s2, s3)},
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

func Test_scheduleApi_create(t *testing.T) {
	env := setup(t)

	b1 := testutil.CreateBatch(t, env.batchRepo, "2024-2027 Batch", 2024, 2027)
	b2 := testutil.CreateBatch(t, env.batchRepo, "2025-2028 Batch", 2025, 2028)
	dt := testutil.CreateDiscussionType(t, env.discRepo, "Journal Club")

	prof := testutil.CreateUser(t, env.usrRepo, "Prof", "prof", "prof@test.cd", "", user.RoleProfessor, nil, true)
	leader := testutil.CreateUser(t, env.usrRepo, "Lead", "lead", "lead@test.cd", "", user.RoleBatchLeader, &b1.ID, true)
	strayLeader := testutil.CreateUser(t, env.usrRepo, "Stray", "stray", "stray@test.cd", "", user.RoleBatchLeader, nil, true)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@test.cd", "", user.RoleStudent, &b1.ID, true)

	date := time.Now().UTC().AddDate(0, 0, 7).Truncate(time.Second)
	newSched := func(batchID int, presenterID *int) []byte {
		return marchallObj(t, schedule.NewSchedule{
			BatchID:          batchID,
			DiscussionTypeID: dt.ID,
			Title:            "Gene Therapy",
			PresenterID:      presenterID,
			ScheduledDate:    date,
		})
	}

	tests := []httpTest{
		{
			name: "Students cannot create", token: getToken(t, env.conf, alice), body: newSched(b1.ID, nil),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: getToken(t, env.conf, prof), wantCode: http.StatusBadRequest,
			body: marchallObj(t, map[string]string{}),
			wantData: marchallObj(t, map[string]string{
				"batch_id":           "this field is required",
				"discussion_type_id": "this field is required",
				"title":              "this field is required",
				"scheduled_date":     "this field is required",
			}),
		},
		{
			name: "Leader without batch", token: getToken(t, env.conf, strayLeader), body: newSched(b1.ID, nil),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"batch_id": "batch leader is not assigned to a batch"}),
		},
		{
			name: "Leader foreign batch", token: getToken(t, env.conf, leader), body: newSched(b2.ID, nil),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"batch_id": "batch leaders can only create schedules for their own batch"}),
		},
		{
			name: "Presenter must be a student", token: getToken(t, env.conf, prof), body: newSched(b1.ID, &prof.ID),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"presenter_id": "presenter must be an existing student"}),
		},
		{
			name: "Unknown presenter", token: getToken(t, env.conf, prof), body: newSched(b1.ID, intPtr(999)),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"presenter_id": "presenter must be an existing student"}),
		},
		{name: "Leader own batch", token: getToken(t, env.conf, leader), body: newSched(b1.ID, &alice.ID), wantCode: http.StatusCreated},
		{name: "Professor any batch", token: getToken(t, env.conf, prof), body: newSched(b2.ID, nil), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/schedules"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var s schedule.Schedule
				if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if s.CreatedByID == nil {
					t.Error("failed! CreatedByID not set")
				}
				if s.HasSubmission {
					t.Error("failed! fresh schedule has a submission")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_scheduleApi_detail(t *testing.T) {
	env := setup(t)

	b1 := testutil.CreateBatch(t, env.batchRepo, "2024-2027 Batch", 2024, 2027)
	b2 := testutil.CreateBatch(t, env.batchRepo, "2025-2028 Batch", 2025, 2028)
	dt := testutil.CreateDiscussionType(t, env.discRepo, "Journal Club")

	prof := testutil.CreateUser(t, env.usrRepo, "Prof", "prof", "prof@test.cd", "", user.RoleProfessor, nil, true)
	leader := testutil.CreateUser(t, env.usrRepo, "Lead", "lead", "lead@test.cd", "", user.RoleBatchLeader, &b1.ID, true)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@test.cd", "", user.RoleStudent, &b1.ID, true)
	zed := testutil.CreateUser(t, env.usrRepo, "Zed", "zed", "zed@test.cd", "", user.RoleStudent, &b2.ID, true)

	now := time.Now().UTC()
	s1 := testutil.CreateSchedule(t, env.schedRepo, b1.ID, dt.ID, "Gene Therapy", &alice.ID, now.AddDate(0, 0, 7))
	s2 := testutil.CreateSchedule(t, env.schedRepo, b2.ID, dt.ID, "Oncology", &alice.ID, now.AddDate(0, 0, 14))
	f := testutil.CreateFile(t, env.fileRepo, alice.ID, b1.ID, dt.ID, &s1.ID, "notes.pdf", "batch/notes.pdf")

	t.Run("retrieve", func(t *testing.T) {
		// the schedule gains has_submission via its linked file
		submitted := s1
		submitted.HasSubmission = true

		tests := []httpTest{
			{
				name: "Foreign student denied", path: scheduleURL(s1.ID), token: getToken(t, env.conf, zed),
				wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
			},
			{name: "Presenter reads foreign batch", path: scheduleURL(s2.ID), token: getToken(t, env.conf, alice), wantCode: http.StatusOK, wantData: marchallObj(t, s2)},
			{name: "Submission flag set", path: scheduleURL(s1.ID), token: getToken(t, env.conf, prof), wantCode: http.StatusOK, wantData: marchallObj(t, submitted)},
		}
		for _, tt := range tests {
			tt.method = http.MethodGet

			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
				env.app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("leader cannot move schedule out of batch", func(t *testing.T) {
		body := marchallObj(t, schedule.UpdateSchedule{BatchID: b2.ID})
		req, rec := newAuthRequest(http.MethodPut, scheduleURL(s1.ID), getToken(t, env.conf, leader), body)
		env.app.ServeHTTP(rec, req)

		want := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"batch_id": "batch leaders can only create schedules for their own batch"}),
		}
		checkCodeAndData(t, want, rec)
	})

	t.Run("update keeps unset fields", func(t *testing.T) {
		body := marchallObj(t, schedule.UpdateSchedule{Title: "Gene Therapy II"})
		req, rec := newAuthRequest(http.MethodPut, scheduleURL(s1.ID), getToken(t, env.conf, prof), body)
		env.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var s schedule.Schedule
		if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if s.Title != "Gene Therapy II" {
			t.Errorf("failed! Title = %q", s.Title)
		}
		if s.BatchID != b1.ID {
			t.Errorf("failed! BatchID = %v; want %v", s.BatchID, b1.ID)
		}
		if !intPtrEq(s.PresenterID, &alice.ID) {
			t.Errorf("failed! PresenterID = %v; want %v", s.PresenterID, alice.ID)
		}
	})

	t.Run("delete unlinks files", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, scheduleURL(s1.ID), getToken(t, env.conf, prof))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		got, err := env.fileRepo.GetFileByID(context.Background(), f.ID)
		if err != nil {
			t.Fatalf("GetFileByID(): %v", err)
		}
		if got.ScheduleID != nil {
			t.Errorf("failed! file still linked to deleted schedule; ScheduleID = %v", *got.ScheduleID)
		}
	})
}

func intPtr(v int) *int { return &v }
