package distributor

import (
	"errors"
	"fmt"
	"sort"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	domainassignment "github.com/alanyang/lead-router/internal/domain/assignment"
)

var ErrPoolExhausted = errors.New("agent pool exhausted")

// Strategy picks the next agent from the remaining pool of one batch.
// Implementations keep their selection state for the lifetime of the value,
// so a fresh Strategy must be built per batch.
type Strategy interface {
	Select(pool []domainagent.WithCapacity) (domainagent.WithCapacity, error)
}

// New returns the selector for kind. Manual shares the cursor rule of round
// robin; what makes it manual is the pool it is given.
func New(kind domainassignment.Strategy) (Strategy, error) {
	switch kind {
	case domainassignment.StrategyRoundRobin, domainassignment.StrategyManual:
		return &RoundRobin{}, nil
	case domainassignment.StrategyCapacityBased:
		return CapacityBased{}, nil
	case domainassignment.StrategyFirstAvailable, "":
		return FirstAvailable{}, nil
	}
	return nil, fmt.Errorf("unknown assignment strategy %q", kind)
}

// RoundRobin cycles a cursor over the pool. The cursor advances on every call,
// including calls whose pick is later rejected by the store.
type RoundRobin struct {
	cursor int
}

func (rr *RoundRobin) Select(pool []domainagent.WithCapacity) (domainagent.WithCapacity, error) {
	if len(pool) == 0 {
		return domainagent.WithCapacity{}, ErrPoolExhausted
	}
	picked := pool[rr.cursor%len(pool)]
	rr.cursor++
	return picked, nil
}

// CapacityBased always picks the entry with the most free slots, ties kept in
// pool order.
type CapacityBased struct{}

func (CapacityBased) Select(pool []domainagent.WithCapacity) (domainagent.WithCapacity, error) {
	if len(pool) == 0 {
		return domainagent.WithCapacity{}, ErrPoolExhausted
	}
	sorted := make([]domainagent.WithCapacity, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Capacity.AvailableSlots > sorted[j].Capacity.AvailableSlots
	})
	return sorted[0], nil
}

type FirstAvailable struct{}

func (FirstAvailable) Select(pool []domainagent.WithCapacity) (domainagent.WithCapacity, error) {
	if len(pool) == 0 {
		return domainagent.WithCapacity{}, ErrPoolExhausted
	}
	return pool[0], nil
}
