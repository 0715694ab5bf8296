//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(testServer.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func getJSON(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(testServer.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp
}

func createTestProject(t *testing.T, name string) int64 {
	t.Helper()
	resp, created := postJSON(t, "/api/v1/projects", map[string]any{
		"name":        name,
		"description": "integration test project",
		"tech_stack":  "go+postgres",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d", resp.StatusCode)
	}
	id, ok := created["id"].(float64)
	if !ok || id == 0 {
		t.Fatalf("expected numeric project id, got %v", created["id"])
	}
	return int64(id)
}

func TestProjectLifecycle(t *testing.T) {
	cleanDB(testPool)

	// Empty listing first.
	var projects []map[string]any
	resp := getJSON(t, "/api/v1/projects", &projects)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	if len(projects) != 0 {
		t.Fatalf("expected 0 projects, got %d", len(projects))
	}

	projectID := createTestProject(t, "lifecycle-project")
	base := fmt.Sprintf("/api/v1/projects/%d", projectID)

	// Get by id.
	var fetched map[string]any
	resp = getJSON(t, base, &fetched)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	if fetched["name"] != "lifecycle-project" {
		t.Fatalf("expected name 'lifecycle-project', got %v", fetched["name"])
	}
	if fetched["current_phase"].(float64) != 0 {
		t.Fatalf("new project should start in phase 0, got %v", fetched["current_phase"])
	}

	// State snapshot has all 7 phases.
	var state map[string]any
	resp = getJSON(t, base+"/state", &state)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state: expected 200, got %d", resp.StatusCode)
	}
	phases, _ := state["phases"].([]any)
	if len(phases) != 7 {
		t.Fatalf("expected 7 phases in state, got %d", len(phases))
	}

	// Delete and verify 404.
	req, _ := http.NewRequest(http.MethodDelete, testServer.URL+base, http.NoBody)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete project: %v", err)
	}
	_ = delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", delResp.StatusCode)
	}
	resp = getJSON(t, base, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	resp, _ := postJSON(t, "/api/v1/projects", map[string]any{"description": "no name"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDuplicateProjectNameConflicts(t *testing.T) {
	cleanDB(testPool)
	createTestProject(t, "dup-project")

	resp, _ := postJSON(t, "/api/v1/projects", map[string]any{"name": "dup-project"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

// TestAgentReadinessAndPhaseAdvance walks the front of the workflow: the
// phase-0 agent is ready immediately, a phase-1 agent is blocked until its
// dependency completes AND the gate approval moves the phase forward.
func TestAgentReadinessAndPhaseAdvance(t *testing.T) {
	cleanDB(testPool)
	projectID := createTestProject(t, "readiness-project")
	base := fmt.Sprintf("/api/v1/projects/%d", projectID)

	var readiness map[string]any
	resp := getJSON(t, base+"/agents/input-agent/readiness", &readiness)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readiness: expected 200, got %d", resp.StatusCode)
	}
	if readiness["can_start"] != true {
		t.Fatalf("input-agent should be ready at phase 0: %v", readiness)
	}

	resp = getJSON(t, base+"/agents/requirements-analyst/readiness", &readiness)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readiness: expected 200, got %d", resp.StatusCode)
	}
	if readiness["can_start"] != false {
		t.Fatal("requirements-analyst should be blocked at phase 0")
	}

	// Unknown agent is a client error.
	resp = getJSON(t, base+"/agents/unknown-agent/readiness", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown agent: expected 400, got %d", resp.StatusCode)
	}

	// Complete the phase-0 agent.
	cResp, _ := postJSON(t, base+"/agents/input-agent/complete", map[string]any{})
	if cResp.StatusCode != http.StatusOK {
		t.Fatalf("complete agent: expected 200, got %d", cResp.StatusCode)
	}

	// Still blocked: dependencies are met but the phase has not advanced.
	getJSON(t, base+"/agents/requirements-analyst/readiness", &readiness)
	if readiness["can_start"] != false {
		t.Fatal("requirements-analyst should stay blocked until the gate approves")
	}

	// Approval gate is the only way the phase moves.
	gResp, _ := postJSON(t, base+"/approvals", map[string]any{"gate_name": "Gate 1"})
	if gResp.StatusCode != http.StatusCreated {
		t.Fatalf("request approval: expected 201, got %d", gResp.StatusCode)
	}
	dResp, decision := postJSON(t, base+"/approvals/decision", map[string]any{
		"gate_name": "Gate 1",
		"approved":  true,
	})
	if dResp.StatusCode != http.StatusOK {
		t.Fatalf("record approval: expected 200, got %d", dResp.StatusCode)
	}
	if advancedTo, ok := decision["advanced_to"].(float64); !ok || advancedTo != 1 {
		t.Fatalf("expected advanced_to 1, got %v", decision["advanced_to"])
	}

	getJSON(t, base+"/agents/requirements-analyst/readiness", &readiness)
	if readiness["can_start"] != true {
		t.Fatalf("requirements-analyst should be ready after the gate: %v", readiness)
	}

	// The ready/blocked partition excludes the completed agent.
	var next map[string]any
	getJSON(t, base+"/agents/next", &next)
	ready, _ := next["ready"].([]any)
	for _, r := range ready {
		if r.(map[string]any)["name"] == "input-agent" {
			t.Fatal("completed agent must not reappear in the ready list")
		}
	}
}

func TestFeatureBacklogOrdering(t *testing.T) {
	cleanDB(testPool)
	projectID := createTestProject(t, "backlog-project")
	base := fmt.Sprintf("/api/v1/projects/%d", projectID)

	resp, _ := postJSON(t, base+"/features", map[string]any{
		"features": []map[string]any{
			{"name": "low-task", "priority": "LOW"},
			{"name": "high-task", "priority": "HIGH"},
			{"name": "medium-task"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add features: expected 201, got %d", resp.StatusCode)
	}

	var next map[string]any
	getJSON(t, base+"/features/next", &next)
	if next["name"] != "high-task" {
		t.Fatalf("expected high-task first, got %v", next["name"])
	}
	featureID := int64(next["id"].(float64))

	// Complete it; the backlog falls through to MEDIUM.
	cResp, _ := postJSON(t, fmt.Sprintf("%s/features/%d/complete", base, featureID), nil)
	if cResp.StatusCode != http.StatusOK {
		t.Fatalf("complete feature: expected 200, got %d", cResp.StatusCode)
	}

	getJSON(t, base+"/features/next", &next)
	if next["name"] != "medium-task" {
		t.Fatalf("expected medium-task next, got %v", next["name"])
	}
	mediumID := int64(next["id"].(float64))

	// Exhaust retries on the medium task, then skip it.
	for i := 0; i < 3; i++ {
		rResp, retry := postJSON(t, fmt.Sprintf("%s/features/%d/retry", base, mediumID), nil)
		if rResp.StatusCode != http.StatusOK {
			t.Fatalf("retry: expected 200, got %d", rResp.StatusCode)
		}
		if i == 2 && retry["max_retries_reached"] != true {
			t.Fatalf("expected max_retries_reached on attempt 3: %v", retry)
		}
	}
	sResp, _ := postJSON(t, fmt.Sprintf("%s/features/%d/skip", base, mediumID),
		map[string]any{"reason": "flaky dependency"})
	if sResp.StatusCode != http.StatusOK {
		t.Fatalf("skip: expected 200, got %d", sResp.StatusCode)
	}

	// Skipping again is an invalid state transition.
	sResp, _ = postJSON(t, fmt.Sprintf("%s/features/%d/skip", base, mediumID), nil)
	if sResp.StatusCode != http.StatusConflict {
		t.Fatalf("double skip: expected 409, got %d", sResp.StatusCode)
	}

	// low-task is the only one left.
	getJSON(t, base+"/features/next", &next)
	if next["name"] != "low-task" {
		t.Fatalf("expected low-task last, got %v", next["name"])
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	cleanDB(testPool)
	projectID := createTestProject(t, "artifact-project")
	base := fmt.Sprintf("/api/v1/projects/%d", projectID)

	resp, _ := postJSON(t, base+"/artifacts", map[string]any{
		"agent_name":    "api-designer",
		"artifact_type": "openapi",
		"name":          "api-spec",
		"content":       `{"openapi":"3.0"}`,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save artifact: expected 201, got %d", resp.StatusCode)
	}

	var got map[string]any
	gResp := getJSON(t, base+"/artifacts/api-spec", &got)
	if gResp.StatusCode != http.StatusOK {
		t.Fatalf("get artifact: expected 200, got %d", gResp.StatusCode)
	}
	if got["content"] != `{"openapi":"3.0"}` {
		t.Fatalf("artifact content mismatch: %v", got["content"])
	}

	var listed []map[string]any
	getJSON(t, base+"/artifacts?type=openapi", &listed)
	if len(listed) != 1 {
		t.Fatalf("expected 1 openapi artifact, got %d", len(listed))
	}
}

func TestAuditHistoryRecordsEvents(t *testing.T) {
	cleanDB(testPool)
	projectID := createTestProject(t, "audit-project")
	base := fmt.Sprintf("/api/v1/projects/%d", projectID)

	postJSON(t, base+"/agents/input-agent/complete", map[string]any{})

	var history []map[string]any
	resp := getJSON(t, base+"/history", &history)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", resp.StatusCode)
	}

	seen := map[string]bool{}
	for _, e := range history {
		if et, ok := e["event_type"].(string); ok {
			seen[et] = true
		}
	}
	if !seen["project_created"] || !seen["agent_complete"] {
		t.Fatalf("expected project_created and agent_complete in history, got %v", seen)
	}
}
