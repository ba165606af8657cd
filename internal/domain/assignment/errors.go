package assignment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alanyang/lead-router/internal/domain/agent"
	"github.com/alanyang/lead-router/internal/domain/lead"
)

var (
	ErrCapacityExceeded  = errors.New("agent capacity exceeded")
	ErrNoAgentsAvailable = errors.New("no agents available")
	// ErrConflict means the lead's owner changed between read and write, or a
	// request collided with an earlier one under the same idempotency key.
	ErrConflict = errors.New("lead was modified concurrently")
)

// CapacityExceededError carries the snapshot observed when the check failed.
type CapacityExceededError struct {
	AgentID  string
	Capacity agent.Capacity
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("agent %s capacity exceeded (%d/%d)", e.AgentID, e.Capacity.Current, e.Capacity.Max)
}

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned before any store access when input is malformed.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, i.Field+": "+i.Reason)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, reason string) {
	e.Issues = append(e.Issues, ValidationIssue{Field: field, Reason: reason})
}

// OrNil returns e when it has issues, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

// Code maps an error onto the stable code reported to clients and metrics.
func Code(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "OK"
	case errors.As(err, &verr):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrCapacityExceeded):
		return "CAPACITY_EXCEEDED"
	case errors.Is(err, ErrNoAgentsAvailable):
		return "NO_AGENTS_AVAILABLE"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, lead.ErrNotFound), errors.Is(err, agent.ErrNotFound):
		return "NOT_FOUND"
	}
	return "STORE_ERROR"
}
