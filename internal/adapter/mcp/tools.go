package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/forgeflow/forgeflow/internal/domain/artifact"
	"github.com/forgeflow/forgeflow/internal/domain/feature"
	"github.com/forgeflow/forgeflow/internal/domain/gate"
	"github.com/forgeflow/forgeflow/internal/domain/project"
)

// registerTools registers all workflow tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.createProjectTool(),
		s.getProjectStateTool(),
		s.listProjectsTool(),
		s.getProjectProgressTool(),
		s.canStartAgentTool(),
		s.markAgentCompleteTool(),
		s.markAgentFailedTool(),
		s.getNextAgentsTool(),
		s.addFeaturesTool(),
		s.getNextFeatureTool(),
		s.markFeatureCompleteTool(),
		s.recordFeatureRetryTool(),
		s.markFeatureSkippedTool(),
		s.requestApprovalTool(),
		s.recordApprovalTool(),
		s.saveArtifactTool(),
		s.getArtifactTool(),
		s.listArtifactsTool(),
	)
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

func (s *Server) createProjectTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("create_project",
		mcplib.WithDescription("Create a new project with its seven-phase plan, phase 0 already in progress"),
		mcplib.WithString("name",
			mcplib.Required(),
			mcplib.Description("Project name"),
		),
		mcplib.WithString("description",
			mcplib.Description("What the project delivers"),
		),
		mcplib.WithString("tech_stack",
			mcplib.Description("Technology stack label; defaults to 'default'"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleCreateProject}
}

func (s *Server) getProjectStateTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_project_state",
		mcplib.WithDescription("Get the full state snapshot of a project: phases, agent runs, pending approvals, backlog and recent activity"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetProjectState}
}

func (s *Server) listProjectsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_projects",
		mcplib.WithDescription("List all projects with feature completion counts"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListProjects}
}

func (s *Server) getProjectProgressTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_project_progress",
		mcplib.WithDescription("Get the weighted completion percentage of a project with its component breakdown"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetProjectProgress}
}

func (s *Server) handleCreateProject(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Projects == nil {
		return mcplib.NewToolResultError("project service not configured"), nil
	}
	args := req.GetArguments()
	name, _ := args["name"].(string)
	if name == "" {
		return mcplib.NewToolResultError("name is required"), nil
	}
	desc, _ := args["description"].(string)
	stack, _ := args["tech_stack"].(string)

	p, err := s.deps.Projects.Create(ctx, project.CreateRequest{
		Name:        name,
		Description: desc,
		TechStack:   stack,
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("create project", err), nil
	}
	return toolResultJSON(p), nil
}

func (s *Server) handleGetProjectState(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Projects == nil {
		return mcplib.NewToolResultError("project service not configured"), nil
	}
	projectID, ok := int64Arg(req.GetArguments(), "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	state, err := s.deps.Projects.State(ctx, projectID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("get state of project %d", projectID), err), nil
	}
	return toolResultJSON(state), nil
}

func (s *Server) handleListProjects(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Projects == nil {
		return mcplib.NewToolResultError("project service not configured"), nil
	}
	projects, err := s.deps.Projects.List(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("list projects", err), nil
	}
	return toolResultJSON(projects), nil
}

func (s *Server) handleGetProjectProgress(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Projects == nil {
		return mcplib.NewToolResultError("project service not configured"), nil
	}
	projectID, ok := int64Arg(req.GetArguments(), "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	rep, err := s.deps.Projects.Progress(ctx, projectID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("progress of project %d", projectID), err), nil
	}
	return toolResultJSON(rep), nil
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

func (s *Server) canStartAgentTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("can_start_agent",
		mcplib.WithDescription("Check whether an agent's prerequisites are complete and the project phase has reached the agent's phase"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithString("agent_name",
			mcplib.Required(),
			mcplib.Description("Agent name from the dependency graph"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleCanStartAgent}
}

func (s *Server) markAgentCompleteTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("mark_agent_complete",
		mcplib.WithDescription("Record an authoritative completion for an agent, optionally attaching output artifacts"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithString("agent_name",
			mcplib.Required(),
			mcplib.Description("Agent name from the dependency graph"),
		),
		mcplib.WithObject("artifacts",
			mcplib.Description("Opaque artifact map produced by the agent"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleMarkAgentComplete}
}

func (s *Server) markAgentFailedTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("mark_agent_failed",
		mcplib.WithDescription("Append a failure record for an agent; failures accumulate and never overwrite earlier runs"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithString("agent_name",
			mcplib.Required(),
			mcplib.Description("Agent name from the dependency graph"),
		),
		mcplib.WithString("error",
			mcplib.Description("Failure description"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleMarkAgentFailed}
}

func (s *Server) getNextAgentsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_next_agents",
		mcplib.WithDescription("List agents ready to start and a capped list of blocked agents with their missing prerequisites"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetNextAgents}
}

func (s *Server) handleCanStartAgent(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agent service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	agentName, _ := args["agent_name"].(string)
	if agentName == "" {
		return mcplib.NewToolResultError("agent_name is required"), nil
	}
	r, err := s.deps.Agents.CanStart(ctx, projectID, agentName)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("check agent %s", agentName), err), nil
	}
	return toolResultJSON(r), nil
}

func (s *Server) handleMarkAgentComplete(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agent service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	agentName, _ := args["agent_name"].(string)
	if agentName == "" {
		return mcplib.NewToolResultError("agent_name is required"), nil
	}

	var artifacts json.RawMessage
	if raw, present := args["artifacts"]; present && raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return mcplib.NewToolResultErrorFromErr("encode artifacts", err), nil
		}
		artifacts = data
	}

	run, err := s.deps.Agents.MarkComplete(ctx, projectID, agentName, artifacts)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("complete agent %s", agentName), err), nil
	}
	return toolResultJSON(run), nil
}

func (s *Server) handleMarkAgentFailed(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agent service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	agentName, _ := args["agent_name"].(string)
	if agentName == "" {
		return mcplib.NewToolResultError("agent_name is required"), nil
	}
	errMsg, _ := args["error"].(string)

	run, err := s.deps.Agents.MarkFailed(ctx, projectID, agentName, errMsg)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("fail agent %s", agentName), err), nil
	}
	return toolResultJSON(run), nil
}

func (s *Server) handleGetNextAgents(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agent service not configured"), nil
	}
	projectID, ok := int64Arg(req.GetArguments(), "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	ready, blocked, err := s.deps.Agents.NextAgents(ctx, projectID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("next agents of project %d", projectID), err), nil
	}
	return toolResultJSON(map[string]any{
		"ready":   ready,
		"blocked": blocked,
	}), nil
}

// ---------------------------------------------------------------------------
// Features
// ---------------------------------------------------------------------------

func (s *Server) addFeaturesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("add_features",
		mcplib.WithDescription("Add a batch of backlog features; the batch lands atomically"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithArray("features",
			mcplib.Required(),
			mcplib.Description("Features to add; each has name, optional description, priority (HIGH/MEDIUM/LOW) and max_retries"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleAddFeatures}
}

func (s *Server) getNextFeatureTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_next_feature",
		mcplib.WithDescription("Get the next pending feature in priority order, FIFO within a priority; null when the backlog is drained"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetNextFeature}
}

func (s *Server) markFeatureCompleteTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("mark_feature_complete",
		mcplib.WithDescription("Mark a backlog feature complete"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithNumber("feature_id",
			mcplib.Required(),
			mcplib.Description("Feature ID"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleMarkFeatureComplete}
}

func (s *Server) recordFeatureRetryTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("record_feature_retry",
		mcplib.WithDescription("Increment a feature's retry counter and report whether retries are exhausted; the caller decides what happens then"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithNumber("feature_id",
			mcplib.Required(),
			mcplib.Description("Feature ID"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleRecordFeatureRetry}
}

func (s *Server) markFeatureSkippedTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("mark_feature_skipped",
		mcplib.WithDescription("Resolve a feature as skipped, the usual exit after retries are exhausted"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithNumber("feature_id",
			mcplib.Required(),
			mcplib.Description("Feature ID"),
		),
		mcplib.WithString("reason",
			mcplib.Description("Why the feature is being skipped"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleMarkFeatureSkipped}
}

func (s *Server) handleAddFeatures(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Features == nil {
		return mcplib.NewToolResultError("feature service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	raw, present := args["features"]
	if !present {
		return mcplib.NewToolResultError("features is required"), nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("encode features", err), nil
	}
	var reqs []feature.AddRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return mcplib.NewToolResultErrorFromErr("decode features", err), nil
	}

	features, err := s.deps.Features.Add(ctx, projectID, reqs)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("add features", err), nil
	}
	return toolResultJSON(features), nil
}

func (s *Server) handleGetNextFeature(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Features == nil {
		return mcplib.NewToolResultError("feature service not configured"), nil
	}
	projectID, ok := int64Arg(req.GetArguments(), "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	f, err := s.deps.Features.Next(ctx, projectID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("next feature of project %d", projectID), err), nil
	}
	return toolResultJSON(f), nil
}

func (s *Server) handleMarkFeatureComplete(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Features == nil {
		return mcplib.NewToolResultError("feature service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	featureID, ok := int64Arg(args, "feature_id")
	if !ok {
		return mcplib.NewToolResultError("feature_id is required"), nil
	}
	f, err := s.deps.Features.Complete(ctx, projectID, featureID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("complete feature %d", featureID), err), nil
	}
	return toolResultJSON(f), nil
}

func (s *Server) handleRecordFeatureRetry(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Features == nil {
		return mcplib.NewToolResultError("feature service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	featureID, ok := int64Arg(args, "feature_id")
	if !ok {
		return mcplib.NewToolResultError("feature_id is required"), nil
	}
	state, err := s.deps.Features.Retry(ctx, projectID, featureID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("retry feature %d", featureID), err), nil
	}
	return toolResultJSON(state), nil
}

func (s *Server) handleMarkFeatureSkipped(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Features == nil {
		return mcplib.NewToolResultError("feature service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	featureID, ok := int64Arg(args, "feature_id")
	if !ok {
		return mcplib.NewToolResultError("feature_id is required"), nil
	}
	reason, _ := args["reason"].(string)

	f, err := s.deps.Features.Skip(ctx, projectID, featureID, reason)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("skip feature %d", featureID), err), nil
	}
	return toolResultJSON(f), nil
}

// ---------------------------------------------------------------------------
// Approvals
// ---------------------------------------------------------------------------

func (s *Server) requestApprovalTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("request_approval",
		mcplib.WithDescription("Open a pending approval gate for human review"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithString("gate_name",
			mcplib.Required(),
			mcplib.Description("Gate name; 'Gate N' names are phase gates"),
		),
		mcplib.WithString("gate_type",
			mcplib.Description("must_approve (default), optional_review or auto_proceed"),
		),
		mcplib.WithArray("artifacts",
			mcplib.Description("Artifact names attached for review"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleRequestApproval}
}

func (s *Server) recordApprovalTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("record_approval",
		mcplib.WithDescription("Record an approval decision; approving a 'Gate N' gate advances the project to phase N"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithString("gate_name",
			mcplib.Required(),
			mcplib.Description("Gate name the decision targets"),
		),
		mcplib.WithBoolean("approved",
			mcplib.Required(),
			mcplib.Description("true approves, false rejects"),
		),
		mcplib.WithString("feedback",
			mcplib.Description("Reviewer feedback"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleRecordApproval}
}

func (s *Server) handleRequestApproval(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Gates == nil {
		return mcplib.NewToolResultError("gate service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	gateName, _ := args["gate_name"].(string)
	if gateName == "" {
		return mcplib.NewToolResultError("gate_name is required"), nil
	}
	gateType, _ := args["gate_type"].(string)
	artifacts := stringSliceArg(args, "artifacts")

	g, err := s.deps.Gates.Request(ctx, projectID, gateName, gate.Type(gateType), artifacts)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("request gate %s", gateName), err), nil
	}
	return toolResultJSON(g), nil
}

func (s *Server) handleRecordApproval(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Gates == nil {
		return mcplib.NewToolResultError("gate service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	gateName, _ := args["gate_name"].(string)
	if gateName == "" {
		return mcplib.NewToolResultError("gate_name is required"), nil
	}
	approved, present := args["approved"].(bool)
	if !present {
		return mcplib.NewToolResultError("approved is required"), nil
	}
	feedback, _ := args["feedback"].(string)

	resolved, advancedTo, err := s.deps.Gates.Record(ctx, projectID, gateName, approved, feedback)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("record approval for gate %s", gateName), err), nil
	}
	return toolResultJSON(map[string]any{
		"gate":        resolved,
		"approved":    approved,
		"advanced_to": advancedTo,
	}), nil
}

// ---------------------------------------------------------------------------
// Artifacts
// ---------------------------------------------------------------------------

func (s *Server) saveArtifactTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("save_artifact",
		mcplib.WithDescription("Record an agent output artifact; saving an existing name appends a new version"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithString("agent_name",
			mcplib.Required(),
			mcplib.Description("Agent that produced the artifact"),
		),
		mcplib.WithString("artifact_type",
			mcplib.Required(),
			mcplib.Description("Artifact type label, e.g. spec, schema, report"),
		),
		mcplib.WithString("artifact_name",
			mcplib.Required(),
			mcplib.Description("Artifact name"),
		),
		mcplib.WithString("file_path",
			mcplib.Description("File reference"),
		),
		mcplib.WithString("content",
			mcplib.Description("Inline content"),
		),
		mcplib.WithObject("metadata",
			mcplib.Description("Opaque metadata map"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleSaveArtifact}
}

func (s *Server) getArtifactTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_artifact",
		mcplib.WithDescription("Get the most recent artifact with the given name"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithString("artifact_name",
			mcplib.Required(),
			mcplib.Description("Artifact name"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetArtifact}
}

func (s *Server) listArtifactsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_artifacts",
		mcplib.WithDescription("List a project's artifacts, optionally filtered by type"),
		mcplib.WithNumber("project_id",
			mcplib.Required(),
			mcplib.Description("Project ID"),
		),
		mcplib.WithString("artifact_type",
			mcplib.Description("Only artifacts of this type"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListArtifacts}
}

func (s *Server) handleSaveArtifact(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Artifacts == nil {
		return mcplib.NewToolResultError("artifact service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("encode artifact", err), nil
	}
	var saveReq artifact.SaveRequest
	if err := json.Unmarshal(data, &saveReq); err != nil {
		return mcplib.NewToolResultErrorFromErr("decode artifact", err), nil
	}
	saveReq.ProjectID = projectID
	// The tool parameter is "artifact_name"; the JSON field on SaveRequest
	// is "name". Keep accepting bare "name" from lenient clients.
	if n := artifactNameArg(args); n != "" {
		saveReq.Name = n
	}

	a, err := s.deps.Artifacts.Save(ctx, saveReq)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("save artifact %s", saveReq.Name), err), nil
	}
	return toolResultJSON(a), nil
}

func (s *Server) handleGetArtifact(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Artifacts == nil {
		return mcplib.NewToolResultError("artifact service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	name := artifactNameArg(args)
	if name == "" {
		return mcplib.NewToolResultError("artifact_name is required"), nil
	}
	a, err := s.deps.Artifacts.Get(ctx, projectID, name)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("get artifact %s", name), err), nil
	}
	return toolResultJSON(a), nil
}

func (s *Server) handleListArtifacts(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Artifacts == nil {
		return mcplib.NewToolResultError("artifact service not configured"), nil
	}
	args := req.GetArguments()
	projectID, ok := int64Arg(args, "project_id")
	if !ok {
		return mcplib.NewToolResultError("project_id is required"), nil
	}
	filterType, _ := args["artifact_type"].(string)

	artifacts, err := s.deps.Artifacts.List(ctx, projectID, filterType)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("list artifacts of project %d", projectID), err), nil
	}
	return toolResultJSON(artifacts), nil
}

// ---------------------------------------------------------------------------
// Argument helpers
// ---------------------------------------------------------------------------

// artifactNameArg reads the "artifact_name" parameter, falling back to a
// bare "name" for older clients.
func artifactNameArg(args map[string]any) string {
	if n, _ := args["artifact_name"].(string); n != "" {
		return n
	}
	n, _ := args["name"].(string)
	return n
}

// int64Arg extracts an integer argument. JSON numbers arrive as float64;
// string IDs from lenient clients are accepted too.
func int64Arg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// stringSliceArg extracts a []string argument, dropping non-string elements.
func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
