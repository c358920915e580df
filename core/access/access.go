// Package access holds the object-level authorization rules as an explicit
// policy table keyed by (resource, action). Handlers resolve the target object
// first, then consult the table; every decision is pure over fetched state.
package access

import (
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type Resource string

const (
	Batch          Resource = "batch"
	DiscussionType Resource = "discussion_type"
	Schedule       Resource = "schedule"
	File           Resource = "file"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Target carries the object attributes decisions depend on. OwnerID is the
// uploader for files and the presenter for schedules; it is nil for
// unowned resources.
type Target struct {
	BatchID *int
	OwnerID *int
}

// Decision is one policy entry's verdict function: nil means allow.
type Decision func(actor user.User, tgt Target) error

type policyKey struct {
	res Resource
	act Action
}

var policies = map[policyKey]Decision{
	{Batch, ActionRead}:   allowAuthenticated,
	{Batch, ActionCreate}: allowStaff,
	{Batch, ActionUpdate}: allowStaff,
	{Batch, ActionDelete}: allowStaff,

	{DiscussionType, ActionRead}:   allowAuthenticated,
	{DiscussionType, ActionCreate}: allowStaff,
	{DiscussionType, ActionUpdate}: allowStaff,
	{DiscussionType, ActionDelete}: allowStaff,

	{Schedule, ActionRead}:   allowScopedRead,
	{Schedule, ActionCreate}: allowStaffScoped,
	{Schedule, ActionUpdate}: allowStaffScoped,
	{Schedule, ActionDelete}: allowStaffScoped,

	{File, ActionRead}:   allowScopedRead,
	{File, ActionCreate}: allowAuthenticated, // tiered upload rules run in the service
	{File, ActionUpdate}: allowOwnerOrStaffScoped,
	{File, ActionDelete}: allowOwnerOrStaffScoped,
}

// Can evaluates the policy table for the given actor, resource, action and
// target. It returns nil on allow, core.ErrAuthenticationRequired when no
// actor context exists, and core.ErrPermissionDenied otherwise.
func Can(actor user.User, res Resource, act Action, tgt Target) error {
	if !actor.IsAuthenticated() {
		return core.ErrAuthenticationRequired
	}
	decision, ok := policies[policyKey{res, act}]
	if !ok {
		return core.ErrPermissionDenied
	}
	return decision(actor, tgt)
}

// Decisions

func allowAuthenticated(user.User, Target) error {
	return nil // Can already guarantees an authenticated actor
}

func allowStaff(actor user.User, _ Target) error {
	if actor.IsSuperuser || actor.IsStaff {
		return nil
	}
	return core.ErrPermissionDenied
}

// allowScopedRead mirrors list visibility on single objects: staff
// non-leaders see all, leaders their batch, students their batch or what
// they own (their uploads, the schedules they present).
func allowScopedRead(actor user.User, tgt Target) error {
	if actor.IsSuperuser {
		return nil
	}
	if actor.IsStaff {
		if actor.IsBatchLeader() {
			return sameBatch(actor, tgt)
		}
		return nil
	}
	if actor.IsStudent() {
		if tgt.BatchID != nil && actor.InBatch(*tgt.BatchID) {
			return nil
		}
		if tgt.OwnerID != nil && *tgt.OwnerID == actor.ID {
			return nil
		}
	}
	return core.ErrPermissionDenied
}

// allowStaffScoped: writes reserved for staff; batch leaders additionally
// only within their own batch.
func allowStaffScoped(actor user.User, tgt Target) error {
	if actor.IsSuperuser {
		return nil
	}
	if !actor.IsStaff {
		return core.ErrPermissionDenied
	}
	if actor.IsBatchLeader() {
		return sameBatch(actor, tgt)
	}
	return nil
}

// allowOwnerOrStaffScoped: superusers and professors anywhere, batch leaders
// within their batch, students only on objects they own; staff with any other
// role get no write access here (they stay read-only).
func allowOwnerOrStaffScoped(actor user.User, tgt Target) error {
	if actor.IsSuperuser {
		return nil
	}
	if actor.IsStaff {
		if actor.IsBatchLeader() {
			return sameBatch(actor, tgt)
		}
		if actor.IsProfessor() {
			return nil
		}
		return core.ErrPermissionDenied
	}
	if actor.IsStudent() && tgt.OwnerID != nil && *tgt.OwnerID == actor.ID {
		return nil
	}
	return core.ErrPermissionDenied
}

func sameBatch(actor user.User, tgt Target) error {
	if tgt.BatchID != nil && actor.InBatch(*tgt.BatchID) {
		return nil
	}
	return core.ErrPermissionDenied
}
