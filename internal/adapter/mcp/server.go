// Package mcp exposes the workflow engine to AI agents over the Model
// Context Protocol. Every engine operation is registered as a tool; the
// dependency graph and phase table are published as resources.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/forgeflow/forgeflow/internal/domain/agentrun"
	"github.com/forgeflow/forgeflow/internal/domain/artifact"
	"github.com/forgeflow/forgeflow/internal/domain/depgraph"
	"github.com/forgeflow/forgeflow/internal/domain/feature"
	"github.com/forgeflow/forgeflow/internal/domain/gate"
	"github.com/forgeflow/forgeflow/internal/domain/progress"
	"github.com/forgeflow/forgeflow/internal/domain/project"
)

// ProjectService is the subset of project operations exposed over MCP.
type ProjectService interface {
	Create(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	List(ctx context.Context) ([]project.Summary, error)
	State(ctx context.Context, id int64) (*project.State, error)
	Progress(ctx context.Context, id int64) (*progress.Report, error)
}

// AgentService answers readiness questions and records run outcomes.
type AgentService interface {
	CanStart(ctx context.Context, projectID int64, agentName string) (*depgraph.Readiness, error)
	NextAgents(ctx context.Context, projectID int64) ([]depgraph.ReadyAgent, []depgraph.BlockedAgent, error)
	MarkComplete(ctx context.Context, projectID int64, agentName string, artifacts json.RawMessage) (*agentrun.Run, error)
	MarkFailed(ctx context.Context, projectID int64, agentName, errMsg string) (*agentrun.Run, error)
}

// FeatureService manages the backlog operations exposed over MCP.
type FeatureService interface {
	Add(ctx context.Context, projectID int64, reqs []feature.AddRequest) ([]feature.Feature, error)
	Next(ctx context.Context, projectID int64) (*feature.Feature, error)
	Complete(ctx context.Context, projectID, featureID int64) (*feature.Feature, error)
	Retry(ctx context.Context, projectID, featureID int64) (*feature.RetryState, error)
	Skip(ctx context.Context, projectID, featureID int64, reason string) (*feature.Feature, error)
}

// GateService requests and resolves approval gates.
type GateService interface {
	Request(ctx context.Context, projectID int64, name string, gateType gate.Type, artifacts []string) (*gate.Gate, error)
	Record(ctx context.Context, projectID int64, name string, approved bool, feedback string) (*gate.Gate, *int, error)
}

// ArtifactService records and serves agent outputs.
type ArtifactService interface {
	Save(ctx context.Context, req artifact.SaveRequest) (*artifact.Artifact, error)
	Get(ctx context.Context, projectID int64, name string) (*artifact.Artifact, error)
	List(ctx context.Context, projectID int64, filterType string) ([]artifact.Artifact, error)
}

const defaultReadHeaderTimeout = 10 * time.Second

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Addr    string // SSE listen address, e.g. ":3001"
	Name    string
	Version string
	APIKey  string // empty disables auth on the SSE transport
}

// ServerDeps holds the services the tools delegate to. Nil fields produce
// tool errors rather than panics, so a partially wired server stays usable.
type ServerDeps struct {
	Projects  ProjectService
	Agents    AgentService
	Features  FeatureService
	Gates     GateService
	Artifacts ArtifactService
	Graph     *depgraph.Graph
}

// Server wraps an mcp-go server with the workflow tool set.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	sse       *mcpserver.SSEServer
	httpSrv   *http.Server
}

// NewServer creates the MCP server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(true, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start begins serving the SSE transport on the configured address. The
// listener is bound synchronously so address errors surface here.
func (s *Server) Start() error {
	s.sse = mcpserver.NewSSEServer(s.mcpServer)

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	s.httpSrv = &http.Server{
		Handler:           AuthMiddleware(s.cfg.APIKey, s.sse),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	go func() {
		slog.Info("mcp server listening", "addr", ln.Addr().String())
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("mcp server failed", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the SSE transport.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// ServeStdio runs the server over stdin/stdout and blocks until EOF. Used by
// the mcp-stdio command for local agent integration.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcpServer)
}

// toolResultJSON marshals v and wraps it as a text tool result.
func toolResultJSON(v any) *mcplib.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("marshal result", err)
	}
	return mcplib.NewToolResultText(string(data))
}
