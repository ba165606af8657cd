package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainassignment "github.com/alanyang/lead-router/internal/domain/assignment"
	"github.com/alanyang/lead-router/internal/domain/identity"
	agentsvc "github.com/alanyang/lead-router/internal/service/agent"
	bulksvc "github.com/alanyang/lead-router/internal/service/bulk"
	leadsvc "github.com/alanyang/lead-router/internal/service/lead"
)

// RegisterTools registers the lead routing tools on s.
func RegisterTools(s *mcpserver.MCPServer, leadSvc *leadsvc.Service, bulkSvc *bulksvc.Service, agentSvc *agentsvc.Service) {
	s.AddTool(mcpmcp.NewTool("assign_lead",
		mcpmcp.WithDescription("Assign a lead to an agent. Fails when the agent has no free capacity."),
		mcpmcp.WithString("lead_id", mcpmcp.Required(), mcpmcp.Description("Lead id")),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Agent id (email)")),
		mcpmcp.WithString("priority", mcpmcp.Description("low, normal, high or urgent")),
		mcpmcp.WithString("notes", mcpmcp.Description("Assignment notes")),
	), assignLeadHandler(leadSvc))

	s.AddTool(mcpmcp.NewTool("reassign_lead",
		mcpmcp.WithDescription("Move a lead to another agent and record the previous owner."),
		mcpmcp.WithString("lead_id", mcpmcp.Required(), mcpmcp.Description("Lead id")),
		mcpmcp.WithString("new_agent", mcpmcp.Required(), mcpmcp.Description("Agent id receiving the lead")),
		mcpmcp.WithString("reason", mcpmcp.Description("Why the lead moves")),
		mcpmcp.WithString("notes", mcpmcp.Description("Reassignment notes")),
	), reassignLeadHandler(leadSvc))

	s.AddTool(mcpmcp.NewTool("get_agent_capacity",
		mcpmcp.WithDescription("Current load, ceiling and free slots of one agent."),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Agent id (email)")),
	), getAgentCapacityHandler(agentSvc))

	s.AddTool(mcpmcp.NewTool("list_agents",
		mcpmcp.WithDescription("List agents with capacity and a utilization summary."),
		mcpmcp.WithString("status", mcpmcp.Description("Filter by availability: active or inactive")),
	), listAgentsHandler(agentSvc))

	s.AddTool(mcpmcp.NewTool("bulk_assign",
		mcpmcp.WithDescription("Distribute many leads over the available agents with a strategy: round_robin, capacity_based, manual or first_available."),
		mcpmcp.WithArray("lead_ids", mcpmcp.Required(), mcpmcp.Description("Lead ids in processing order"), mcpmcp.WithStringItems()),
		mcpmcp.WithString("assignment_strategy", mcpmcp.Description("Defaults to first_available")),
		mcpmcp.WithArray("agents", mcpmcp.Description("Candidate agent ids for the manual strategy"), mcpmcp.WithStringItems()),
		mcpmcp.WithString("priority", mcpmcp.Description("Priority stamped on every assigned lead")),
	), bulkAssignHandler(bulkSvc))
}

func assignLeadHandler(svc *leadsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		in := leadsvc.AssignInput{
			AgentID:  mcpmcp.ParseString(req, "agent_id", ""),
			Priority: mcpmcp.ParseString(req, "priority", ""),
			Notes:    optionalString(req, "notes"),
		}
		res, err := svc.Assign(ctx, identity.FromContext(ctx).ID, mcpmcp.ParseString(req, "lead_id", ""), in)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(res), nil
	}
}

func reassignLeadHandler(svc *leadsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		in := leadsvc.ReassignInput{
			NewAgent: mcpmcp.ParseString(req, "new_agent", ""),
			Reason:   optionalString(req, "reason"),
			Notes:    optionalString(req, "notes"),
		}
		res, err := svc.Reassign(ctx, identity.FromContext(ctx).ID, mcpmcp.ParseString(req, "lead_id", ""), in)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(res), nil
	}
}

func getAgentCapacityHandler(svc *agentsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id := mcpmcp.ParseString(req, "agent_id", "")
		if id == "" {
			return mcpmcp.NewToolResultText("error: agent_id required"), nil
		}
		a, err := svc.Get(ctx, id)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(map[string]any{"agent_id": a.ID, "capacity": a.Capacity}), nil
	}
}

func listAgentsHandler(svc *agentsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		res, err := svc.List(ctx, agentsvc.ListInput{
			IncludeCapacity: true,
			Status:          mcpmcp.ParseString(req, "status", ""),
		})
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(res), nil
	}
}

func bulkAssignHandler(svc *bulksvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		leadIDs, err := stringSlice(req, "lead_ids")
		if err != nil {
			return mcpmcp.NewToolResultText("error: " + err.Error()), nil
		}
		agents, err := stringSlice(req, "agents")
		if err != nil {
			return mcpmcp.NewToolResultText("error: " + err.Error()), nil
		}

		res, err := svc.Assign(ctx, identity.FromContext(ctx).ID, bulksvc.AssignInput{
			LeadIDs:  leadIDs,
			Strategy: mcpmcp.ParseString(req, "assignment_strategy", ""),
			Agents:   agents,
			Priority: mcpmcp.ParseString(req, "priority", ""),
		})
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(res), nil
	}
}

func optionalString(req mcpmcp.CallToolRequest, key string) *string {
	v := mcpmcp.ParseString(req, key, "")
	if v == "" {
		return nil
	}
	return &v
}

// stringSlice reads an array argument. Clients send JSON arrays, which decode
// as []any.
func stringSlice(req mcpmcp.CallToolRequest, key string) ([]string, error) {
	raw := mcpmcp.ParseArgument(req, key, nil)
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must contain strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s must be an array", key)
}

func jsonResult(v any) *mcpmcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err))
	}
	return mcpmcp.NewToolResultText(string(data))
}

func errorResult(err error) *mcpmcp.CallToolResult {
	return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s: %s", domainassignment.Code(err), err))
}
