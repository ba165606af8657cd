package lead_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/lead-router/internal/adapter/memory"
	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	domainassignment "github.com/alanyang/lead-router/internal/domain/assignment"
	domainlead "github.com/alanyang/lead-router/internal/domain/lead"
	"github.com/alanyang/lead-router/internal/mocks"
	"github.com/alanyang/lead-router/internal/service/capacity"
	leadsvc "github.com/alanyang/lead-router/internal/service/lead"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var now = time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)

func strPtr(s string) *string { return &s }

// newSvc seeds a@x (max 2) and b@x (max 5); owned maps lead id to owner.
func newSvc(t *testing.T, owned map[string]string, free ...string) (*leadsvc.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore(25)
	for id, ceiling := range map[string]int{"a@x": 2, "b@x": 5} {
		a := domainagent.New(id, id, "")
		c := ceiling
		a.MaxCapacity = &c
		store.PutAgent(a)
	}
	for id, owner := range owned {
		l := domainlead.New(id, id, id+"@mail", "web")
		l.AssignedAgent = strPtr(owner)
		store.PutLead(l)
	}
	for _, id := range free {
		store.PutLead(domainlead.New(id, id, id+"@mail", "web"))
	}
	oracle := capacity.NewOracle(store.Agents(), capacity.PolicyStrict, nil)
	return leadsvc.NewService(store.Leads(), store, oracle, fixedClock{now}, nil), store
}

func TestAssign_Success(t *testing.T) {
	svc, store := newSvc(t, nil, "L1", "L2")
	ctx := context.Background()

	res, err := svc.Assign(ctx, "u1", "L1", leadsvc.AssignInput{AgentID: "a@x", Priority: "high", Notes: strPtr("hot")})
	require.NoError(t, err)

	require.NotNil(t, res.Lead.AssignedAgent)
	assert.Equal(t, "a@x", *res.Lead.AssignedAgent)
	assert.Equal(t, now, *res.Lead.AssignedAt)
	assert.Equal(t, domainlead.PriorityHigh, res.Lead.Priority)
	assert.Equal(t, "hot", res.Lead.AssignmentNotes)
	assert.Equal(t, domainassignment.MethodDirect, res.Lead.AssignmentMethod)
	assert.Equal(t, "u1", res.AssignedBy)
	assert.Equal(t, domainagent.Capacity{Current: 1, Max: 2, Percentage: 50, AvailableSlots: 1}, res.AgentCapacity)

	require.Len(t, res.Lead.UpdateHistory, 1)
	ev := res.Lead.UpdateHistory[0]
	assert.Equal(t, domainlead.ActionAssigned, ev.Action)
	assert.Equal(t, "u1", ev.By)
	assert.Equal(t, "a@x", ev.Fields["agent"])

	other, err := store.Leads().GetByID(ctx, "L2")
	require.NoError(t, err)
	assert.Nil(t, other.AssignedAgent, "other leads untouched")
	assert.Empty(t, other.UpdateHistory)
}

func TestAssign_CapacityExceeded(t *testing.T) {
	svc, store := newSvc(t, map[string]string{"L1": "a@x", "L2": "a@x"}, "L3")
	ctx := context.Background()

	_, err := svc.Assign(ctx, "u1", "L3", leadsvc.AssignInput{AgentID: "a@x"})
	require.Error(t, err)

	var capErr *domainassignment.CapacityExceededError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 2, capErr.Capacity.Current)
	assert.Equal(t, 2, capErr.Capacity.Max)
	assert.Equal(t, 0, capErr.Capacity.AvailableSlots)

	l, err := store.Leads().GetByID(ctx, "L3")
	require.NoError(t, err)
	assert.Nil(t, l.AssignedAgent)
	assert.Empty(t, l.UpdateHistory)
}

func TestAssign_SameAgentNeedsNoSlot(t *testing.T) {
	svc, _ := newSvc(t, map[string]string{"L1": "a@x", "L2": "a@x"})

	res, err := svc.Assign(context.Background(), "u1", "L1", leadsvc.AssignInput{AgentID: "a@x", Priority: "urgent"})
	require.NoError(t, err)
	assert.Equal(t, domainlead.PriorityUrgent, res.Lead.Priority)
	assert.Equal(t, 2, res.AgentCapacity.Current)
}

func TestAssign_Errors(t *testing.T) {
	tests := []struct {
		name   string
		leadID string
		in     leadsvc.AssignInput
		want   error
	}{
		{name: "missing agent id", leadID: "L1", in: leadsvc.AssignInput{}, want: &domainassignment.ValidationError{}},
		{name: "bad priority", leadID: "L1", in: leadsvc.AssignInput{AgentID: "a@x", Priority: "asap"}, want: &domainassignment.ValidationError{}},
		{name: "unknown lead", leadID: "nope", in: leadsvc.AssignInput{AgentID: "a@x"}, want: domainlead.ErrNotFound},
		{name: "unknown agent", leadID: "L1", in: leadsvc.AssignInput{AgentID: "ghost@x"}, want: domainagent.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newSvc(t, nil, "L1")
			_, err := svc.Assign(context.Background(), "u1", tt.leadID, tt.in)
			require.Error(t, err)
			var verr *domainassignment.ValidationError
			if errors.As(tt.want, &verr) {
				assert.True(t, errors.As(err, &verr))
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAssign_ConcurrentCallersRespectCeiling(t *testing.T) {
	free := make([]string, 20)
	for i := range free {
		free[i] = fmt.Sprintf("L%02d", i)
	}
	svc, store := newSvc(t, nil, free...)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, len(free))
	for i, id := range free {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.Assign(ctx, "u1", id, leadsvc.AssignInput{AgentID: "a@x"})
		}(i, id)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domainassignment.ErrCapacityExceeded)
	}
	assert.Equal(t, 2, ok)

	load, err := store.Agents().GetLoad(ctx, "a@x")
	require.NoError(t, err)
	assert.Equal(t, 2, load.Current)
}

func TestAssign_ConflictSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	leads := mocks.NewMockLeadRepository(ctrl)
	commits := mocks.NewMockCommitter(ctrl)
	loads := mocks.NewMockLoadReader(ctrl)

	leads.EXPECT().GetByID(gomock.Any(), "L1").Return(domainlead.New("L1", "n", "e", "s"), nil)
	loads.EXPECT().GetLoad(gomock.Any(), "a@x").Return(domainagent.Load{Current: 0, Max: 3}, nil)
	commits.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(domainassignment.Receipt{}, domainassignment.ErrConflict)

	svc := leadsvc.NewService(leads, commits, capacity.NewOracle(loads, capacity.PolicyStrict, nil), fixedClock{now}, nil)
	_, err := svc.Assign(context.Background(), "u1", "L1", leadsvc.AssignInput{AgentID: "a@x"})
	assert.ErrorIs(t, err, domainassignment.ErrConflict)
}

func TestAssign_StrictReadFailureIsTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	leads := mocks.NewMockLeadRepository(ctrl)
	commits := mocks.NewMockCommitter(ctrl)
	loads := mocks.NewMockLoadReader(ctrl)

	leads.EXPECT().GetByID(gomock.Any(), "L1").Return(domainlead.New("L1", "n", "e", "s"), nil)
	loads.EXPECT().GetLoad(gomock.Any(), "a@x").Return(domainagent.Load{}, errors.New("read timeout"))

	svc := leadsvc.NewService(leads, commits, capacity.NewOracle(loads, capacity.PolicyStrict, nil), fixedClock{now}, nil)
	_, err := svc.Assign(context.Background(), "u1", "L1", leadsvc.AssignInput{AgentID: "a@x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacity check")
}

func TestAssign_LenientReadFailureStillCommits(t *testing.T) {
	ctrl := gomock.NewController(t)
	leads := mocks.NewMockLeadRepository(ctrl)
	commits := mocks.NewMockCommitter(ctrl)
	loads := mocks.NewMockLoadReader(ctrl)

	l := domainlead.New("L1", "n", "e", "s")
	leads.EXPECT().GetByID(gomock.Any(), "L1").Return(l, nil)
	loads.EXPECT().GetLoad(gomock.Any(), "a@x").Return(domainagent.Load{}, errors.New("read timeout"))
	commits.EXPECT().Commit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c domainassignment.Commit) (domainassignment.Receipt, error) {
			assert.Nil(t, c.ExpectedAgent)
			c.Apply(&l)
			return domainassignment.Receipt{Lead: l, Load: domainagent.Load{Current: 4, Max: 10}}, nil
		})

	svc := leadsvc.NewService(leads, commits, capacity.NewOracle(loads, capacity.PolicyLenient, nil), fixedClock{now}, nil)
	res, err := svc.Assign(context.Background(), "u1", "L1", leadsvc.AssignInput{AgentID: "a@x"})
	require.NoError(t, err)
	assert.Equal(t, 6, res.AgentCapacity.AvailableSlots, "snapshot comes from the commit, not the failed read")
}

func TestReassign(t *testing.T) {
	tests := []struct {
		name     string
		owned    map[string]string
		free     []string
		wantPrev string
	}{
		{name: "from unassigned", free: []string{"L1"}, wantPrev: domainlead.UnassignedSentinel},
		{name: "from another agent", owned: map[string]string{"L1": "a@x"}, wantPrev: "a@x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newSvc(t, tt.owned, tt.free...)
			ctx := context.Background()

			res, err := svc.Reassign(ctx, "mgr", "L1", leadsvc.ReassignInput{NewAgent: "b@x", Reason: strPtr("vacation"), Notes: strPtr("back monday")})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrev, res.PreviousAgent)
			assert.Equal(t, "b@x", res.NewAgent)
			assert.Equal(t, now, res.ReassignedAt)
			assert.Equal(t, tt.wantPrev, res.Lead.PreviousAgent)
			assert.Equal(t, "vacation", res.Lead.ReassignmentReason)
			assert.Equal(t, "back monday", res.Lead.ReassignmentNotes)

			require.Len(t, res.Lead.UpdateHistory, 1)
			assert.Equal(t, domainlead.ActionReassigned, res.Lead.UpdateHistory[0].Action)

			la, _ := store.Agents().GetLoad(ctx, "a@x")
			lb, _ := store.Agents().GetLoad(ctx, "b@x")
			assert.Equal(t, 0, la.Current)
			assert.Equal(t, 1, lb.Current)
		})
	}
}

func TestReassign_CapacityExceeded(t *testing.T) {
	svc, store := newSvc(t, map[string]string{"L1": "a@x", "L2": "a@x", "L3": "b@x"})
	ctx := context.Background()

	_, err := svc.Reassign(ctx, "mgr", "L3", leadsvc.ReassignInput{NewAgent: "a@x"})
	assert.ErrorIs(t, err, domainassignment.ErrCapacityExceeded)

	l, _ := store.Leads().GetByID(ctx, "L3")
	assert.Equal(t, "b@x", *l.AssignedAgent)
}

func TestReassign_ValidationBeforeStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := leadsvc.NewService(mocks.NewMockLeadRepository(ctrl), mocks.NewMockCommitter(ctrl), nil, fixedClock{now}, nil)

	_, err := svc.Reassign(context.Background(), "mgr", "L1", leadsvc.ReassignInput{})
	var verr *domainassignment.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "new_agent", verr.Issues[0].Field)
}

func TestGet(t *testing.T) {
	svc, _ := newSvc(t, nil, "L1")
	l, err := svc.Get(context.Background(), "L1")
	require.NoError(t, err)
	assert.Equal(t, "L1", l.ID)

	_, err = svc.Get(context.Background(), "L9")
	assert.ErrorIs(t, err, domainlead.ErrNotFound)
}
