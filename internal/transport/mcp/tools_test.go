package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/lead-router/internal/adapter/memory"
	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	domainassignment "github.com/alanyang/lead-router/internal/domain/assignment"
	"github.com/alanyang/lead-router/internal/domain/identity"
	domainlead "github.com/alanyang/lead-router/internal/domain/lead"
	agentsvc "github.com/alanyang/lead-router/internal/service/agent"
	bulksvc "github.com/alanyang/lead-router/internal/service/bulk"
	"github.com/alanyang/lead-router/internal/service/capacity"
	leadsvc "github.com/alanyang/lead-router/internal/service/lead"
	"github.com/alanyang/lead-router/internal/service/pool"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

type services struct {
	lead  *leadsvc.Service
	bulk  *bulksvc.Service
	agent *agentsvc.Service
	store *memory.Store
}

func newServices(t *testing.T) services {
	t.Helper()
	store := memory.NewStore(25)
	for id, ceiling := range map[string]int{"a@x": 1, "b@x": 3} {
		a := domainagent.New(id, id, "")
		c := ceiling
		a.MaxCapacity = &c
		store.PutAgent(a)
	}
	for _, id := range []string{"L1", "L2", "L3"} {
		store.PutLead(domainlead.New(id, id, id+"@mail", "web"))
	}
	oracle := capacity.NewOracle(store.Agents(), capacity.PolicyLenient, nil)
	return services{
		lead:  leadsvc.NewService(store.Leads(), store, oracle, fixedClock{}, nil),
		bulk:  bulksvc.NewService(store.Leads(), store, pool.NewBuilder(store.Agents(), oracle), oracle, fixedClock{}),
		agent: agentsvc.NewService(store.Agents(), oracle, fixedClock{}),
		store: store,
	}
}

func makeReq(args map[string]any) mcpmcp.CallToolRequest {
	var req mcpmcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// resultText extracts the text payload from a CallToolResult.
func resultText(t *testing.T, res *mcpmcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	b, err := json.Marshal(res.Content[0])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	text, _ := m["text"].(string)
	return text
}

// ── assign_lead ───────────────────────────────────────────────────────────────

func TestAssignLeadHandler(t *testing.T) {
	svcs := newServices(t)
	h := assignLeadHandler(svcs.lead)
	ctx := identity.WithIdentity(context.Background(), identity.Identity{ID: "mgr-1"})

	res, err := h(ctx, makeReq(map[string]any{"lead_id": "L1", "agent_id": "a@x", "priority": "high"}))
	require.NoError(t, err)

	var got leadsvc.AssignResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, "mgr-1", got.AssignedBy)
	assert.Equal(t, 0, got.AgentCapacity.AvailableSlots)

	res, err = h(ctx, makeReq(map[string]any{"lead_id": "L2", "agent_id": "a@x"}))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resultText(t, res), "error: CAPACITY_EXCEEDED"))
}

func TestAssignLeadHandler_MissingAgent(t *testing.T) {
	svcs := newServices(t)
	res, err := assignLeadHandler(svcs.lead)(context.Background(), makeReq(map[string]any{"lead_id": "L1"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "VALIDATION_ERROR")
}

// ── reassign_lead ─────────────────────────────────────────────────────────────

func TestReassignLeadHandler(t *testing.T) {
	svcs := newServices(t)
	res, err := reassignLeadHandler(svcs.lead)(context.Background(), makeReq(map[string]any{
		"lead_id": "L1", "new_agent": "b@x", "reason": "territory",
	}))
	require.NoError(t, err)

	var got leadsvc.ReassignResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, domainlead.UnassignedSentinel, got.PreviousAgent)
	assert.Equal(t, "territory", got.Lead.ReassignmentReason)
}

// ── get_agent_capacity / list_agents ──────────────────────────────────────────

func TestGetAgentCapacityHandler(t *testing.T) {
	svcs := newServices(t)
	h := getAgentCapacityHandler(svcs.agent)

	res, err := h(context.Background(), makeReq(map[string]any{"agent_id": "b@x"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"agent_id":"b@x","capacity":{"current":0,"max":3,"percentage":0,"available_slots":3}}`, resultText(t, res))

	res, err = h(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "error: agent_id required", resultText(t, res))

	res, err = h(context.Background(), makeReq(map[string]any{"agent_id": "ghost@x"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "NOT_FOUND")
}

func TestListAgentsHandler(t *testing.T) {
	svcs := newServices(t)
	res, err := listAgentsHandler(svcs.agent)(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)

	var got agentsvc.ListResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, 2, got.Summary.TotalAgents)
	assert.Equal(t, 4, got.Summary.TotalCapacity)
}

// ── bulk_assign ───────────────────────────────────────────────────────────────

func TestBulkAssignHandler(t *testing.T) {
	svcs := newServices(t)
	h := bulkAssignHandler(svcs.bulk)

	res, err := h(context.Background(), makeReq(map[string]any{
		"lead_ids":            []any{"L1", "L2", "L3"},
		"assignment_strategy": "manual",
		"agents":              []any{"b@x"},
	}))
	require.NoError(t, err)

	var got domainassignment.BulkAssignResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, 3, got.Summary.SuccessCount)
	assert.Equal(t, 1, got.Summary.DistinctAgentsUsed)
	for _, a := range got.Assignments {
		assert.Equal(t, "b@x", a.AgentID)
	}
}

func TestBulkAssignHandler_BadArguments(t *testing.T) {
	svcs := newServices(t)
	h := bulkAssignHandler(svcs.bulk)

	res, err := h(context.Background(), makeReq(map[string]any{"lead_ids": "L1"}))
	require.NoError(t, err)
	assert.Equal(t, "error: lead_ids must be an array", resultText(t, res))

	res, err = h(context.Background(), makeReq(map[string]any{"lead_ids": []any{1, 2}}))
	require.NoError(t, err)
	assert.Equal(t, "error: lead_ids must contain strings", resultText(t, res))

	res, err = h(context.Background(), makeReq(map[string]any{"lead_ids": []any{"L1"}, "assignment_strategy": "manual"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "NO_AGENTS_AVAILABLE")
}

func TestWithCaller_ReadsIdentityHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	r.Header.Set(identity.HeaderUserID, "mgr-9")

	ctx := withCaller(context.Background(), r)
	assert.Equal(t, "mgr-9", identity.FromContext(ctx).ID)
}
