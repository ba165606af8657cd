package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	domainassignment "github.com/alanyang/lead-router/internal/domain/assignment"
	domainlead "github.com/alanyang/lead-router/internal/domain/lead"
	portagent "github.com/alanyang/lead-router/internal/port/agent"
	portassignment "github.com/alanyang/lead-router/internal/port/assignment"
	portidempotency "github.com/alanyang/lead-router/internal/port/idempotency"
	portlead "github.com/alanyang/lead-router/internal/port/lead"
)

var (
	_ portlead.Repository      = (*Leads)(nil)
	_ portagent.Directory      = (*Agents)(nil)
	_ portagent.LoadReader     = (*Agents)(nil)
	_ portassignment.Committer = (*Store)(nil)
	_ portidempotency.Store    = (*Operations)(nil)
)

type operation struct {
	caller string
	opType string
	result []byte
}

// Store keeps leads and agents in process memory. One mutex guards both maps so
// a Commit is atomic with respect to every other call, the same guarantee the
// postgres transaction gives.
type Store struct {
	mu         sync.RWMutex
	defaultMax int
	leads      map[string]domainlead.Lead
	agents     map[string]domainagent.Agent
	ops        map[string]operation
}

func NewStore(defaultMax int) *Store {
	if defaultMax <= 0 {
		defaultMax = domainagent.DefaultMaxCapacity
	}
	return &Store{
		defaultMax: defaultMax,
		leads:      make(map[string]domainlead.Lead),
		agents:     make(map[string]domainagent.Agent),
		ops:        make(map[string]operation),
	}
}

// PutAgent inserts or replaces an agent record. CurrentLoad is recomputed from
// the stored leads so seeded data starts consistent.
func (s *Store) PutAgent(a domainagent.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.CurrentLoad = s.countLocked(a.ID)
	s.agents[a.ID] = a
}

// PutLead inserts or replaces a lead and adjusts the owning agents' counters.
func (s *Store) PutLead(l domainlead.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.leads[l.ID]; ok && old.AssignedAgent != nil {
		s.adjustLocked(*old.AssignedAgent, -1)
	}
	if l.AssignedAgent != nil {
		s.adjustLocked(*l.AssignedAgent, 1)
	}
	s.leads[l.ID] = cloneLead(l)
}

func (s *Store) Ping(context.Context) error { return nil }

// Leads is the lead repository view of a Store.
type Leads struct{ st *Store }

// Agents is the agent directory view of a Store.
type Agents struct{ st *Store }

// Operations is the idempotency view of a Store.
type Operations struct{ st *Store }

func (s *Store) Leads() *Leads           { return &Leads{s} }
func (s *Store) Agents() *Agents         { return &Agents{s} }
func (s *Store) Operations() *Operations { return &Operations{s} }

func (v *Leads) GetByID(_ context.Context, id string) (domainlead.Lead, error) {
	s := v.st
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[id]
	if !ok {
		return domainlead.Lead{}, domainlead.ErrNotFound
	}
	return cloneLead(l), nil
}

func (v *Leads) List(_ context.Context, f domainlead.ListFilters) ([]domainlead.Lead, error) {
	s := v.st
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainlead.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if f.AssignedTo != nil && !l.IsAssignedTo(*f.AssignedTo) {
			continue
		}
		if f.Unassigned && l.AssignedAgent != nil {
			continue
		}
		if f.Status != nil && l.Status != *f.Status {
			continue
		}
		if f.Priority != nil && l.Priority != *f.Priority {
			continue
		}
		out = append(out, cloneLead(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (v *Leads) ApplyPatch(_ context.Context, id string, p domainlead.Patch, ev domainlead.Event) (domainlead.Lead, error) {
	s := v.st
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return domainlead.Lead{}, domainlead.ErrNotFound
	}
	l = cloneLead(l)
	if err := p.Apply(&l); err != nil {
		return domainlead.Lead{}, err
	}
	l.UpdateHistory = append(l.UpdateHistory, ev)
	s.leads[id] = l
	return cloneLead(l), nil
}

func (v *Agents) GetByID(_ context.Context, id string) (domainagent.Agent, error) {
	s := v.st
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return domainagent.Agent{}, domainagent.ErrNotFound
	}
	return a, nil
}

func (v *Agents) List(_ context.Context, f domainagent.ListFilters) ([]domainagent.Agent, error) {
	s := v.st
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainagent.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		if f.Role != nil && a.Role != *f.Role {
			continue
		}
		if f.Availability != nil && a.Availability != *f.Availability {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *Agents) UpdateCapacity(_ context.Context, id string, upd domainagent.CapacityUpdate, lastSeen time.Time) (domainagent.Agent, error) {
	s := v.st
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return domainagent.Agent{}, domainagent.ErrNotFound
	}
	if upd.MaxCapacity != nil {
		v := *upd.MaxCapacity
		a.MaxCapacity = &v
	}
	if upd.Availability != nil {
		a.Availability = *upd.Availability
	}
	seen := lastSeen.UTC()
	a.LastSeen = &seen
	s.agents[id] = a
	return a, nil
}

func (v *Agents) GetLoad(_ context.Context, agentID string) (domainagent.Load, error) {
	s := v.st
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	if !ok {
		return domainagent.Load{}, domainagent.ErrNotFound
	}
	return domainagent.Load{Current: a.CurrentLoad, Max: a.CeilingOr(s.defaultMax)}, nil
}

func (v *Agents) Recount(_ context.Context, agentID string) (domainagent.Load, error) {
	s := v.st
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	if !ok {
		return domainagent.Load{}, domainagent.ErrNotFound
	}
	a.CurrentLoad = s.countLocked(agentID)
	s.agents[agentID] = a
	return domainagent.Load{Current: a.CurrentLoad, Max: a.CeilingOr(s.defaultMax)}, nil
}

// Commit applies c if the lead's owner still matches c.ExpectedAgent and the
// target has a free slot. Reassigning to the current owner leaves load alone.
func (s *Store) Commit(_ context.Context, c domainassignment.Commit) (domainassignment.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[c.LeadID]
	if !ok {
		return domainassignment.Receipt{}, domainlead.ErrNotFound
	}
	target, ok := s.agents[c.AgentID]
	if !ok {
		return domainassignment.Receipt{}, domainagent.ErrNotFound
	}
	if !c.Expects(l) {
		return domainassignment.Receipt{}, domainassignment.ErrConflict
	}

	ceiling := target.CeilingOr(s.defaultMax)
	if !l.IsAssignedTo(c.AgentID) {
		if target.CurrentLoad+1 > ceiling {
			return domainassignment.Receipt{}, &domainassignment.CapacityExceededError{
				AgentID:  c.AgentID,
				Capacity: domainagent.NewCapacity(domainagent.Load{Current: target.CurrentLoad, Max: ceiling}),
			}
		}
		if l.AssignedAgent != nil {
			s.adjustLocked(*l.AssignedAgent, -1)
		}
		target.CurrentLoad++
		s.agents[c.AgentID] = target
	}

	l = cloneLead(l)
	c.Apply(&l)
	s.leads[c.LeadID] = l

	return domainassignment.Receipt{
		Lead: cloneLead(l),
		Load: domainagent.Load{Current: target.CurrentLoad, Max: ceiling},
	}, nil
}

func (v *Operations) Check(_ context.Context, key string) (portidempotency.Record, bool, error) {
	s := v.st
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[key]
	if !ok {
		return portidempotency.Record{}, false, nil
	}
	return portidempotency.Record{Caller: op.caller, OpType: op.opType, Result: op.result}, true, nil
}

func (v *Operations) Store(_ context.Context, key, caller, opType string, result []byte) error {
	s := v.st
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[key]; ok {
		return nil
	}
	s.ops[key] = operation{caller: caller, opType: opType, result: append([]byte(nil), result...)}
	return nil
}

func (s *Store) countLocked(agentID string) int {
	n := 0
	for _, l := range s.leads {
		if l.IsAssignedTo(agentID) {
			n++
		}
	}
	return n
}

func (s *Store) adjustLocked(agentID string, delta int) {
	a, ok := s.agents[agentID]
	if !ok {
		return
	}
	a.CurrentLoad += delta
	if a.CurrentLoad < 0 {
		a.CurrentLoad = 0
	}
	s.agents[agentID] = a
}

func cloneLead(l domainlead.Lead) domainlead.Lead {
	if l.AssignedAgent != nil {
		v := *l.AssignedAgent
		l.AssignedAgent = &v
	}
	l.Tags = append([]string{}, l.Tags...)
	attrs := make(map[string]any, len(l.Attributes))
	for k, v := range l.Attributes {
		attrs[k] = v
	}
	l.Attributes = attrs
	l.UpdateHistory = append([]domainlead.Event{}, l.UpdateHistory...)
	return l
}
