package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/forgeflow/forgeflow/internal/domain/agentrun"
	"github.com/forgeflow/forgeflow/internal/domain/artifact"
	"github.com/forgeflow/forgeflow/internal/domain/audit"
	"github.com/forgeflow/forgeflow/internal/domain/depgraph"
	"github.com/forgeflow/forgeflow/internal/domain/feature"
	"github.com/forgeflow/forgeflow/internal/domain/gate"
	"github.com/forgeflow/forgeflow/internal/domain/progress"
	"github.com/forgeflow/forgeflow/internal/domain/project"
)

// defaultBodyLimit caps request bodies accepted by the JSON decoder.
const defaultBodyLimit = 1 << 20 // 1 MB

// ProjectService is the project surface the REST API exposes.
type ProjectService interface {
	Create(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	Get(ctx context.Context, id int64) (*project.Project, error)
	List(ctx context.Context) ([]project.Summary, error)
	State(ctx context.Context, id int64) (*project.State, error)
	History(ctx context.Context, id int64, limit int) ([]audit.Entry, error)
	Progress(ctx context.Context, id int64) (*progress.Report, error)
	Delete(ctx context.Context, id int64) error
}

// AgentService is the agent readiness and run recording surface.
type AgentService interface {
	CanStart(ctx context.Context, projectID int64, agentName string) (*depgraph.Readiness, error)
	NextAgents(ctx context.Context, projectID int64) ([]depgraph.ReadyAgent, []depgraph.BlockedAgent, error)
	MarkComplete(ctx context.Context, projectID int64, agentName string, artifacts json.RawMessage) (*agentrun.Run, error)
	MarkFailed(ctx context.Context, projectID int64, agentName, errMsg string) (*agentrun.Run, error)
}

// FeatureService is the backlog surface.
type FeatureService interface {
	Add(ctx context.Context, projectID int64, reqs []feature.AddRequest) ([]feature.Feature, error)
	Next(ctx context.Context, projectID int64) (*feature.Feature, error)
	Complete(ctx context.Context, projectID, featureID int64) (*feature.Feature, error)
	Retry(ctx context.Context, projectID, featureID int64) (*feature.RetryState, error)
	Skip(ctx context.Context, projectID, featureID int64, reason string) (*feature.Feature, error)
}

// GateService is the approval gate surface.
type GateService interface {
	Request(ctx context.Context, projectID int64, name string, gateType gate.Type, artifacts []string) (*gate.Gate, error)
	Record(ctx context.Context, projectID int64, name string, approved bool, feedback string) (*gate.Gate, *int, error)
}

// ArtifactService is the artifact surface.
type ArtifactService interface {
	Save(ctx context.Context, req artifact.SaveRequest) (*artifact.Artifact, error)
	Get(ctx context.Context, projectID int64, name string) (*artifact.Artifact, error)
	List(ctx context.Context, projectID int64, filterType string) ([]artifact.Artifact, error)
}

// Handlers bundles the services behind the REST API.
type Handlers struct {
	Projects  ProjectService
	Agents    AgentService
	Features  FeatureService
	Gates     GateService
	Artifacts ArtifactService
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

func (h *Handlers) createProject(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[project.CreateRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	p, err := h.Projects.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Projects.List(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handlers) getProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	p, err := h.Projects.Get(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) deleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	if err := h.Projects.Delete(r.Context(), projectID); err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) getProjectState(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	state, err := h.Projects.State(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) getProjectProgress(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	rep, err := h.Projects.Progress(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handlers) getProjectHistory(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := h.Projects.History(r.Context(), projectID, limit)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

func (h *Handlers) canStartAgent(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	agentName := urlParam(r, "agentName")
	if !requireField(w, agentName, "agent name") {
		return
	}
	readiness, err := h.Agents.CanStart(r.Context(), projectID, agentName)
	if err != nil {
		writeDomainError(w, err, "agent or project not found")
		return
	}
	writeJSON(w, http.StatusOK, readiness)
}

func (h *Handlers) getNextAgents(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	ready, blocked, err := h.Agents.NextAgents(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ready":   ready,
		"blocked": blocked,
	})
}

func (h *Handlers) markAgentComplete(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	agentName := urlParam(r, "agentName")
	if !requireField(w, agentName, "agent name") {
		return
	}
	type completeRequest struct {
		Artifacts json.RawMessage `json:"artifacts,omitempty"`
	}
	req, ok := readJSONOptional[completeRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	run, err := h.Agents.MarkComplete(r.Context(), projectID, agentName, req.Artifacts)
	if err != nil {
		writeDomainError(w, err, "agent or project not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handlers) markAgentFailed(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	agentName := urlParam(r, "agentName")
	if !requireField(w, agentName, "agent name") {
		return
	}
	type failRequest struct {
		Error string `json:"error"`
	}
	req, ok := readJSONOptional[failRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	run, err := h.Agents.MarkFailed(r.Context(), projectID, agentName, req.Error)
	if err != nil {
		writeDomainError(w, err, "agent or project not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ---------------------------------------------------------------------------
// Features
// ---------------------------------------------------------------------------

func (h *Handlers) addFeatures(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	type addRequest struct {
		Features []feature.AddRequest `json:"features"`
	}
	req, ok := readJSON[addRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	features, err := h.Features.Add(r.Context(), projectID, req.Features)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, features)
}

func (h *Handlers) getNextFeature(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	f, err := h.Features.Next(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	// A drained backlog is a normal answer, not an error.
	writeJSON(w, http.StatusOK, f)
}

func (h *Handlers) markFeatureComplete(w http.ResponseWriter, r *http.Request) {
	projectID, featureID, ok := projectFeatureIDs(w, r)
	if !ok {
		return
	}
	f, err := h.Features.Complete(r.Context(), projectID, featureID)
	if err != nil {
		writeDomainError(w, err, "feature not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *Handlers) recordFeatureRetry(w http.ResponseWriter, r *http.Request) {
	projectID, featureID, ok := projectFeatureIDs(w, r)
	if !ok {
		return
	}
	state, err := h.Features.Retry(r.Context(), projectID, featureID)
	if err != nil {
		writeDomainError(w, err, "feature not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) markFeatureSkipped(w http.ResponseWriter, r *http.Request) {
	projectID, featureID, ok := projectFeatureIDs(w, r)
	if !ok {
		return
	}
	type skipRequest struct {
		Reason string `json:"reason,omitempty"`
	}
	req, ok := readJSONOptional[skipRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	f, err := h.Features.Skip(r.Context(), projectID, featureID, req.Reason)
	if err != nil {
		writeDomainError(w, err, "feature not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// ---------------------------------------------------------------------------
// Approvals
// ---------------------------------------------------------------------------

func (h *Handlers) requestApproval(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	type gateRequest struct {
		GateName  string   `json:"gate_name"`
		GateType  string   `json:"gate_type,omitempty"`
		Artifacts []string `json:"artifacts,omitempty"`
	}
	req, ok := readJSON[gateRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	g, err := h.Gates.Request(r.Context(), projectID, req.GateName, gate.Type(req.GateType), req.Artifacts)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *Handlers) recordApproval(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	type decisionRequest struct {
		GateName string `json:"gate_name"`
		Approved *bool  `json:"approved"`
		Feedback string `json:"feedback,omitempty"`
	}
	req, ok := readJSON[decisionRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	if req.Approved == nil {
		writeError(w, http.StatusBadRequest, "approved is required")
		return
	}
	resolved, advancedTo, err := h.Gates.Record(r.Context(), projectID, req.GateName, *req.Approved, req.Feedback)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gate":        resolved,
		"approved":    *req.Approved,
		"advanced_to": advancedTo,
	})
}

// ---------------------------------------------------------------------------
// Artifacts
// ---------------------------------------------------------------------------

func (h *Handlers) saveArtifact(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	req, ok := readJSON[artifact.SaveRequest](w, r, defaultBodyLimit)
	if !ok {
		return
	}
	req.ProjectID = projectID
	a, err := h.Artifacts.Save(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handlers) getArtifact(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	name := urlParam(r, "name")
	if err := sanitizeName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.Artifacts.Get(r.Context(), projectID, name)
	if err != nil {
		writeDomainError(w, err, "artifact not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) listArtifacts(w http.ResponseWriter, r *http.Request) {
	projectID, ok := idParam(w, r, "projectID")
	if !ok {
		return
	}
	artifacts, err := h.Artifacts.List(r.Context(), projectID, r.URL.Query().Get("type"))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

// ---------------------------------------------------------------------------
// Path parameter helpers
// ---------------------------------------------------------------------------

// idParam parses an int64 URL parameter, writing a 400 on failure.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := urlParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func projectFeatureIDs(w http.ResponseWriter, r *http.Request) (projectID, featureID int64, ok bool) {
	projectID, ok = idParam(w, r, "projectID")
	if !ok {
		return 0, 0, false
	}
	featureID, ok = idParam(w, r, "featureID")
	if !ok {
		return 0, 0, false
	}
	return projectID, featureID, true
}
