package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/forgeflow/forgeflow/internal/domain/phase"
)

// registerResources registers the static workflow reference data.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"forgeflow://agents/graph",
			"Agent Dependency Graph",
			mcplib.WithResourceDescription("Every agent with its home phase and prerequisite agents"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleGraphResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"forgeflow://phases",
			"Workflow Phases",
			mcplib.WithResourceDescription("The seven workflow phases in order"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handlePhasesResource,
	)
}

func (s *Server) handleGraphResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Graph == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"dependency graph not configured"}`,
			},
		}, nil
	}
	data, err := json.Marshal(s.deps.Graph.Agents())
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handlePhasesResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	type phaseInfo struct {
		Number int    `json:"number"`
		Name   string `json:"name"`
	}
	phases := make([]phaseInfo, phase.Count)
	for i := range phase.Count {
		phases[i] = phaseInfo{Number: i, Name: phase.Name(i)}
	}
	data, err := json.Marshal(phases)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
