package capacity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	"github.com/alanyang/lead-router/internal/metrics"
	portagent "github.com/alanyang/lead-router/internal/port/agent"
)

// Policy decides what a failed capacity read returns.
type Policy string

const (
	// PolicyLenient answers a failed read with the default snapshot.
	PolicyLenient Policy = "lenient"
	// PolicyStrict returns the read error to the caller.
	PolicyStrict Policy = "strict"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyLenient, PolicyStrict:
		return Policy(s), nil
	case "":
		return PolicyLenient, nil
	}
	return "", fmt.Errorf("unknown capacity read policy %q", s)
}

// Oracle answers "how loaded is this agent right now" from the materialized
// load counter. The commit path enforces the real ceiling regardless of what
// a lenient read returned.
type Oracle struct {
	loads   portagent.LoadReader
	policy  Policy
	metrics metrics.Recorder
}

func NewOracle(loads portagent.LoadReader, policy Policy, rec metrics.Recorder) *Oracle {
	if rec == nil {
		rec = metrics.NewNop()
	}
	return &Oracle{loads: loads, policy: policy, metrics: rec}
}

func (o *Oracle) Policy() Policy { return o.policy }

// Capacity returns the agent's snapshot. A missing agent is always an error.
func (o *Oracle) Capacity(ctx context.Context, agentID string) (domainagent.Capacity, error) {
	load, err := o.loads.GetLoad(ctx, agentID)
	if err == nil {
		return domainagent.NewCapacity(load), nil
	}
	if errors.Is(err, domainagent.ErrNotFound) {
		return domainagent.Capacity{}, err
	}
	if o.policy == PolicyStrict {
		return domainagent.Capacity{}, fmt.Errorf("read capacity for %s: %w", agentID, err)
	}

	o.metrics.RecordCapacityFailOpen()
	slog.WarnContext(ctx, "capacity read failed, using default snapshot", "agent_id", agentID, "error", err)
	return domainagent.DefaultCapacity(), nil
}

// Recount rebuilds the agent's counter from its assigned leads.
func (o *Oracle) Recount(ctx context.Context, agentID string) (domainagent.Capacity, error) {
	load, err := o.loads.Recount(ctx, agentID)
	if err != nil {
		return domainagent.Capacity{}, fmt.Errorf("recount load for %s: %w", agentID, err)
	}
	slog.InfoContext(ctx, "agent load recounted", "agent_id", agentID, "current", load.Current)
	return domainagent.NewCapacity(load), nil
}
