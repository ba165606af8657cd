package assignment

import (
	"context"

	domainassignment "github.com/alanyang/lead-router/internal/domain/assignment"
)

// Committer performs an assignment as one conditional write: bounded increment
// of the target agent's load, CAS on the lead's previous owner, decrement of
// that owner, lead fields and history event, all or nothing.
//
// Errors: lead.ErrNotFound, agent.ErrNotFound, assignment.ErrConflict, and a
// *assignment.CapacityExceededError when the target has no free slot.
type Committer interface {
	Commit(ctx context.Context, c domainassignment.Commit) (domainassignment.Receipt, error)
}
