package agent_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/lead-router/internal/adapter/memory"
	domainagent "github.com/alanyang/lead-router/internal/domain/agent"
	domainlead "github.com/alanyang/lead-router/internal/domain/lead"
	"github.com/alanyang/lead-router/internal/mocks"
	agentsvc "github.com/alanyang/lead-router/internal/service/agent"
	"github.com/alanyang/lead-router/internal/service/capacity"
	transportagent "github.com/alanyang/lead-router/internal/transport/agent"
)

func init() { gin.SetMode(gin.TestMode) }

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

func newRouter(svc *agentsvc.Service) *gin.Engine {
	r := gin.New()
	transportagent.Register(r.Group("/agents"), svc)
	return r
}

func memorySvc(t *testing.T) *agentsvc.Service {
	t.Helper()
	store := memory.NewStore(25)

	alice := domainagent.New("alice@x", "Alice", "Ng")
	ten := 10
	alice.MaxCapacity = &ten
	store.PutAgent(alice)

	bob := domainagent.New("bob@x", "Bob", "Li")
	bob.Availability = domainagent.AvailabilityInactive
	store.PutAgent(bob)

	mgr := domainagent.New("boss@x", "Boss", "")
	mgr.Role = domainagent.RoleManager
	store.PutAgent(mgr)

	for _, id := range []string{"L1", "L2"} {
		l := domainlead.New(id, id, "", "web")
		owner := "alice@x"
		l.AssignedAgent = &owner
		store.PutLead(l)
	}

	oracle := capacity.NewOracle(store.Agents(), capacity.PolicyLenient, nil)
	return agentsvc.NewService(store.Agents(), oracle, fixedClock{})
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── GET "" ────────────────────────────────────────────────────────────────────

func TestListAgents(t *testing.T) {
	r := newRouter(memorySvc(t))

	w := do(r, http.MethodGet, "/agents?include_capacity=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res agentsvc.ListResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Summary.TotalAgents, "managers are not listed")
	assert.Equal(t, 1, res.Summary.ActiveAgents)
	assert.Equal(t, 35, res.Summary.TotalCapacity)
	assert.Equal(t, 2, res.Summary.UsedCapacity)
	assert.Equal(t, 6, res.Summary.UtilizationPercentage)
	for _, a := range res.Agents {
		assert.NotNil(t, a.Capacity)
	}
}

func TestListAgents_StatusFilterWithoutCapacity(t *testing.T) {
	r := newRouter(memorySvc(t))

	w := do(r, http.MethodGet, "/agents?status=inactive", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res agentsvc.ListResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Agents, 1)
	assert.Equal(t, "bob@x", res.Agents[0].ID)
	assert.Nil(t, res.Agents[0].Capacity)
}

func TestListAgents_BadQuery(t *testing.T) {
	r := newRouter(memorySvc(t))

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/agents?include_capacity=maybe", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/agents?status=sleeping", nil).Code)
}

// ── GET /:id/capacity ─────────────────────────────────────────────────────────

func TestGetCapacity(t *testing.T) {
	r := newRouter(memorySvc(t))

	w := do(r, http.MethodGet, "/agents/alice@x/capacity", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"agent_id":"alice@x","capacity":{"current":2,"max":10,"percentage":20,"available_slots":8}}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/agents/ghost@x/capacity", nil).Code)
}

func TestGetCapacity_StrictStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockAgentDirectory(ctrl)
	loads := mocks.NewMockLoadReader(ctrl)

	dir.EXPECT().GetByID(gomock.Any(), "alice@x").Return(domainagent.New("alice@x", "Alice", ""), nil)
	loads.EXPECT().GetLoad(gomock.Any(), "alice@x").Return(domainagent.Load{}, errors.New("connection reset"))

	svc := agentsvc.NewService(dir, capacity.NewOracle(loads, capacity.PolicyStrict, nil), fixedClock{})
	w := do(newRouter(svc), http.MethodGet, "/agents/alice@x/capacity", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "STORE_ERROR")
}

// ── PATCH /:id/capacity ───────────────────────────────────────────────────────

func TestUpdateCapacity(t *testing.T) {
	r := newRouter(memorySvc(t))

	w := do(r, http.MethodPatch, "/agents/alice@x/capacity", map[string]any{"max_capacity": 4, "availability": "inactive"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Agent domainagent.WithCapacity `json:"agent"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, domainagent.AvailabilityInactive, res.Agent.Availability)
	assert.Equal(t, 4, res.Agent.Capacity.Max)
	assert.Equal(t, 2, res.Agent.Capacity.AvailableSlots)
	require.NotNil(t, res.Agent.LastSeen)
	assert.True(t, res.Agent.LastSeen.Equal(fixedClock{}.Now()))
}

func TestUpdateCapacity_Invalid(t *testing.T) {
	r := newRouter(memorySvc(t))

	tests := []struct {
		name string
		body any
	}{
		{"negative ceiling", map[string]any{"max_capacity": -1}},
		{"unknown availability", map[string]any{"availability": "away"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPatch, "/agents/alice@x/capacity", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

// ── POST /:id/recount ─────────────────────────────────────────────────────────

func TestRecount(t *testing.T) {
	r := newRouter(memorySvc(t))

	w := do(r, http.MethodPost, "/agents/alice@x/recount", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current_load":2`)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/agents/ghost@x/recount", nil).Code)
}
