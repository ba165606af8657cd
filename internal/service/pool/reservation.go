package pool

import (
	"errors"

	"github.com/google/uuid"

	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
)

var ErrReservationClosed = errors.New("reservation closed")

// Reservation is the remaining-slot ledger of one bulk call. It is created at
// the start of the batch, never shared between calls, and closed when the
// batch ends. It only steers selection; the conditional write in the store
// decides whether a slot is really taken.
type Reservation struct {
	ID      uuid.UUID
	entries []domainagent.WithCapacity
	used    map[string]bool
	closed  bool
}

func NewReservation(candidates []domainagent.WithCapacity) *Reservation {
	entries := make([]domainagent.WithCapacity, len(candidates))
	copy(entries, candidates)
	return &Reservation{
		ID:      uuid.New(),
		entries: entries,
		used:    make(map[string]bool),
	}
}

// Candidates is the current pool. The slice is owned by the reservation and
// must not be modified by the caller.
func (r *Reservation) Candidates() []domainagent.WithCapacity {
	if r.closed {
		return nil
	}
	return r.entries
}

func (r *Reservation) Remaining() int {
	if r.closed {
		return 0
	}
	return len(r.entries)
}

// Refresh replaces an entry's snapshot with a fresh read. An entry that no
// longer has room is dropped.
func (r *Reservation) Refresh(agentID string, c domainagent.Capacity) error {
	if r.closed {
		return ErrReservationClosed
	}
	i := r.index(agentID)
	if i < 0 {
		return nil
	}
	if !c.HasRoom() {
		r.remove(i)
		return nil
	}
	r.entries[i].Capacity = c
	return nil
}

// Reserve records that the agent received a lead and replaces its entry with
// the load the store reported after the commit. A commit that kept an existing
// owner claims no slot, so the store's load is used rather than the local
// counter. The entry is dropped once it has no room.
func (r *Reservation) Reserve(agentID string, after domainagent.Capacity) error {
	if r.closed {
		return ErrReservationClosed
	}
	r.used[agentID] = true
	return r.Refresh(agentID, after)
}

// Drop removes the agent from the pool for the rest of the batch.
func (r *Reservation) Drop(agentID string) {
	if i := r.index(agentID); i >= 0 {
		r.remove(i)
	}
}

// DistinctUsed is the number of agents that received at least one lead.
func (r *Reservation) DistinctUsed() int { return len(r.used) }

func (r *Reservation) Close() {
	r.closed = true
	r.entries = nil
}

func (r *Reservation) index(agentID string) int {
	for i := range r.entries {
		if r.entries[i].ID == agentID {
			return i
		}
	}
	return -1
}

func (r *Reservation) remove(i int) {
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
}
