package lead

import (
	"context"

	domainlead "github.com/alanyang/lead-router/internal/domain/lead"
)

// Repository is the lead store. Writes that change assigned_agent go through
// port/assignment.Committer so agent load counters stay consistent.
type Repository interface {
	// GetByID returns domainlead.ErrNotFound when the lead does not exist.
	GetByID(ctx context.Context, id string) (domainlead.Lead, error)
	List(ctx context.Context, filters domainlead.ListFilters) ([]domainlead.Lead, error)

	// ApplyPatch applies a generic field update and appends ev to update_history
	// in the same write.
	ApplyPatch(ctx context.Context, id string, patch domainlead.Patch, ev domainlead.Event) (domainlead.Lead, error)
}
