package schedule

import (
	"context"
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

func intPtr(i int) *int { return &i }

func TestScopeFor(t *testing.T) {
	tests := []struct {
		name  string
		actor user.User
		want  Scope
	}{
		{name: "anonymous sees nothing", want: Scope{Empty: true}},
		{
			name:  "professor unrestricted",
			actor: user.User{ID: 1, Role: user.RoleProfessor, IsStaff: true},
		},
		{
			name:  "superuser unrestricted",
			actor: user.User{ID: 1, Role: user.RoleStudent, IsStaff: true, IsSuperuser: true},
		},
		{
			name:  "leader restricted to own batch",
			actor: user.User{ID: 2, Role: user.RoleBatchLeader, IsStaff: true, BatchID: intPtr(3)},
			want:  Scope{BatchID: intPtr(3)},
		},
		{
			name:  "leader without batch sees nothing",
			actor: user.User{ID: 2, Role: user.RoleBatchLeader, IsStaff: true},
			want:  Scope{Empty: true},
		},
		{
			name:  "student union of batch and own presentations",
			actor: user.User{ID: 4, Role: user.RoleStudent, BatchID: intPtr(3)},
			want:  Scope{BatchID: intPtr(3), SelfPresenterID: intPtr(4)},
		},
		{
			name:  "student without batch keeps own presentations",
			actor: user.User{ID: 4, Role: user.RoleStudent},
			want:  Scope{SelfPresenterID: intPtr(4)},
		},
		{
			name:  "unrecognized role sees nothing",
			actor: user.User{ID: 5, Role: "alumni"},
			want:  Scope{Empty: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScopeFor(tt.actor)
			if got.Empty != tt.want.Empty ||
				!intPtrEq(got.BatchID, tt.want.BatchID) ||
				!intPtrEq(got.SelfPresenterID, tt.want.SelfPresenterID) {
				t.Errorf("ScopeFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func intPtrEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name    string
		actor   user.User
		batchID int
		wantErr bool
		errIs   error
	}{
		{name: "anonymous", batchID: 1, wantErr: true, errIs: core.ErrAuthenticationRequired},
		{
			name:    "student denied",
			actor:   user.User{ID: 1, Role: user.RoleStudent, BatchID: intPtr(1)},
			batchID: 1, wantErr: true, errIs: core.ErrPermissionDenied,
		},
		{
			name:    "professor any batch",
			actor:   user.User{ID: 2, Role: user.RoleProfessor, IsStaff: true},
			batchID: 2,
		},
		{
			name:    "leader own batch",
			actor:   user.User{ID: 3, Role: user.RoleBatchLeader, IsStaff: true, BatchID: intPtr(1)},
			batchID: 1,
		},
		{
			name:    "leader without batch",
			actor:   user.User{ID: 3, Role: user.RoleBatchLeader, IsStaff: true},
			batchID: 1, wantErr: true,
		},
		{
			name:    "leader foreign batch",
			actor:   user.User{ID: 3, Role: user.RoleBatchLeader, IsStaff: true, BatchID: intPtr(1)},
			batchID: 2, wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreate(tt.actor, tt.batchID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCreate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.errIs != nil && err != tt.errIs {
				t.Errorf("ValidateCreate() error = %v, want %v", err, tt.errIs)
			}
		})
	}
}

// "no batch assigned" and "wrong batch" must stay distinguishable.
func TestValidateCreateDistinctErrors(t *testing.T) {
	noBatch := ValidateCreate(user.User{ID: 1, Role: user.RoleBatchLeader, IsStaff: true}, 1)
	wrongBatch := ValidateCreate(user.User{ID: 1, Role: user.RoleBatchLeader, IsStaff: true, BatchID: intPtr(2)}, 1)

	vErr1, ok1 := noBatch.(*core.ValidationError)
	vErr2, ok2 := wrongBatch.(*core.ValidationError)
	if !ok1 || !ok2 {
		t.Fatalf("expected ValidationErrors, got %T / %T", noBatch, wrongBatch)
	}
	if vErr1.Fields[0].Error == vErr2.Fields[0].Error {
		t.Errorf("expected distinct error reasons, both = %q", vErr1.Fields[0].Error)
	}
}

type spyRepo struct {
	Repository
	filtered bool
}

func (r *spyRepo) FilterSchedules(context.Context, Filter, []core.DBOrdering) ([]Schedule, error) {
	r.filtered = true
	return []Schedule{{ID: 1}}, nil
}

func TestQueryMalformedFilterYieldsEmpty(t *testing.T) {
	repo := &spyRepo{}
	svc := NewService(repo, nil)
	professor := user.User{ID: 1, Role: user.RoleProfessor, IsStaff: true}

	got, err := svc.Query(context.Background(), professor, QueryFilter{BatchID: "one"}, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Query() = %v, want empty", got)
	}
	if repo.filtered {
		t.Error("repository queried despite malformed filter")
	}
}
