package access

import (
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

func intPtr(i int) *int { return &i }

func TestCan(t *testing.T) {
	anonymous := user.User{}
	superuser := user.User{ID: 1, Role: user.RoleStudent, IsStaff: true, IsSuperuser: true}
	professor := user.User{ID: 2, Role: user.RoleProfessor, IsStaff: true}
	leader := user.User{ID: 3, Role: user.RoleBatchLeader, IsStaff: true, BatchID: intPtr(1)}
	strayLeader := user.User{ID: 4, Role: user.RoleBatchLeader, IsStaff: true}
	student := user.User{ID: 5, Role: user.RoleStudent, BatchID: intPtr(1)}
	foreignStudent := user.User{ID: 6, Role: user.RoleStudent, BatchID: intPtr(2)}

	fileB1 := Target{BatchID: intPtr(1), OwnerID: intPtr(5)} // uploaded by student
	fileB2 := Target{BatchID: intPtr(2), OwnerID: intPtr(6)}
	schedB1 := Target{BatchID: intPtr(1)}
	schedB2 := Target{BatchID: intPtr(2), OwnerID: intPtr(5)} // presented by student

	tests := []struct {
		name    string
		actor   user.User
		res     Resource
		act     Action
		tgt     Target
		wantErr error
	}{
		{name: "anonymous denied", actor: anonymous, res: File, act: ActionRead, tgt: fileB1, wantErr: core.ErrAuthenticationRequired},
		{name: "superuser all", actor: superuser, res: File, act: ActionDelete, tgt: fileB2},
		{name: "professor reads any file", actor: professor, res: File, act: ActionRead, tgt: fileB2},
		{name: "professor updates any file", actor: professor, res: File, act: ActionUpdate, tgt: fileB2},
		{name: "leader reads own batch file", actor: leader, res: File, act: ActionRead, tgt: fileB1},
		{name: "leader denied foreign batch file", actor: leader, res: File, act: ActionRead, tgt: fileB2, wantErr: core.ErrPermissionDenied},
		{name: "leader deletes own batch file", actor: leader, res: File, act: ActionDelete, tgt: fileB1},
		{name: "leader denied foreign batch delete", actor: leader, res: File, act: ActionDelete, tgt: fileB2, wantErr: core.ErrPermissionDenied},
		{name: "leader without batch denied", actor: strayLeader, res: File, act: ActionRead, tgt: fileB1, wantErr: core.ErrPermissionDenied},
		{name: "student reads batch file", actor: student, res: File, act: ActionRead, tgt: fileB1},
		{name: "student reads own upload in foreign batch", actor: foreignStudent, res: File, act: ActionRead, tgt: Target{BatchID: intPtr(1), OwnerID: intPtr(6)}},
		{name: "student denied foreign file", actor: student, res: File, act: ActionRead, tgt: fileB2, wantErr: core.ErrPermissionDenied},
		{name: "student updates own upload", actor: student, res: File, act: ActionUpdate, tgt: fileB1},
		{name: "student denied updating another's upload", actor: foreignStudent, res: File, act: ActionUpdate, tgt: fileB1, wantErr: core.ErrPermissionDenied},

		{name: "student denied schedule write", actor: student, res: Schedule, act: ActionUpdate, tgt: schedB1, wantErr: core.ErrPermissionDenied},
		{name: "student reads batch schedule", actor: student, res: Schedule, act: ActionRead, tgt: schedB1},
		{name: "student reads presented foreign schedule", actor: student, res: Schedule, act: ActionRead, tgt: schedB2},
		{name: "leader updates own batch schedule", actor: leader, res: Schedule, act: ActionUpdate, tgt: schedB1},
		{name: "leader denied foreign schedule update", actor: leader, res: Schedule, act: ActionUpdate, tgt: schedB2, wantErr: core.ErrPermissionDenied},
		{name: "professor updates any schedule", actor: professor, res: Schedule, act: ActionUpdate, tgt: schedB2},

		{name: "student reads batches", actor: student, res: Batch, act: ActionRead},
		{name: "student denied batch write", actor: student, res: Batch, act: ActionCreate, wantErr: core.ErrPermissionDenied},
		{name: "leader writes discussion types", actor: leader, res: DiscussionType, act: ActionCreate},
		{name: "unknown action denied", actor: professor, res: Batch, act: Action("purge"), wantErr: core.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Can(tt.actor, tt.res, tt.act, tt.tgt); err != tt.wantErr {
				t.Errorf("Can() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
