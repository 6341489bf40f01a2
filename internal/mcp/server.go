package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docqa/internal/docs"
	"github.com/Aman-CERP/docqa/internal/history"
	"github.com/Aman-CERP/docqa/internal/index"
	"github.com/Aman-CERP/docqa/internal/search"
	"github.com/Aman-CERP/docqa/internal/service"
	"github.com/Aman-CERP/docqa/pkg/version"
)

// recentBuilds is how many history entries index_status reports.
const recentBuilds = 5

// Backend is the part of the service the MCP tools need.
type Backend interface {
	Query(ctx context.Context, text string, opts search.Options) ([]search.Result, error)
	Reindex(ctx context.Context) (int, error)
	Current() *index.Index
	History(ctx context.Context, limit int) ([]history.Build, error)
}

// Server is the MCP server for docqa.
// It bridges AI clients with the hybrid query engine over stdio.
type Server struct {
	mcp     *mcp.Server
	backend Backend
	docs    *docs.Manager
	logger  *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "ask",
		Description: "Answer a question from the indexed PDF documents. Returns the most relevant passages with file name, title and page, ordered by semantic similarity.",
	},
	{
		Name:        "list_documents",
		Description: "List the PDF documents available for questions.",
	},
	{
		Name:        "reindex",
		Description: "Rebuild the index from the PDF documents on disk. Use after documents were added or removed outside this tool.",
	},
	{
		Name:        "index_status",
		Description: "Report the size of the current index, the embedding model and the most recent rebuilds.",
	},
}

// NewServer creates a new MCP server.
func NewServer(backend Backend, manager *docs.Manager, logger *slog.Logger) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if manager == nil {
		return nil, errors.New("docs manager is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		backend: backend,
		docs:    manager,
		logger:  logger,
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "docqa",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name. Arguments follow the tool's JSON input
// schema; numbers arrive as float64.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "ask":
		in := AskInput{}
		in.Question, _ = args["question"].(string)
		if v, ok := args["k_base"].(float64); ok {
			in.KBase = int(v)
		}
		if v, ok := args["k_final"].(float64); ok {
			in.KFinal = int(v)
		}
		if v, ok := args["alpha"].(float64); ok {
			in.Alpha = search.Float64(v)
		}
		results, err := s.ask(ctx, in)
		if err != nil {
			return nil, err
		}
		return AskOutput{Results: toPassages(results)}, nil
	case "list_documents":
		return s.listDocuments()
	case "reindex":
		return s.reindex(ctx)
	case "index_status":
		return s.indexStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) ask(ctx context.Context, in AskInput) ([]search.Result, error) {
	start := time.Now()
	requestID := uuid.NewString()[:8]

	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, NewInvalidParamsError("question is required and must not be blank")
	}
	if in.KBase < 0 || in.KFinal < 0 {
		return nil, NewInvalidParamsError("k_base and k_final must be positive")
	}

	results, err := s.backend.Query(ctx, question, search.Options{
		KBase:  in.KBase,
		KFinal: in.KFinal,
		Alpha:  in.Alpha,
	})
	if err != nil {
		s.logger.Error("mcp_ask_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("mcp_ask_complete",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(results)))
	return results, nil
}

func (s *Server) listDocuments() (ListDocumentsOutput, error) {
	list, err := s.docs.List()
	if err != nil {
		return ListDocumentsOutput{}, MapError(err)
	}
	return ListDocumentsOutput{Documents: toDocuments(list)}, nil
}

func (s *Server) reindex(ctx context.Context) (ReindexOutput, error) {
	n, err := s.backend.Reindex(service.WithTrigger(ctx, service.TriggerMCP))
	if err != nil {
		return ReindexOutput{}, MapError(err)
	}
	return ReindexOutput{ChunkCount: n}, nil
}

func (s *Server) indexStatus(ctx context.Context) (*IndexStatusOutput, error) {
	out := &IndexStatusOutput{}
	if idx := s.backend.Current(); idx != nil {
		stats := idx.Stats()
		out.Chunks = stats.Chunks
		out.Documents = stats.Documents
		out.Vocabulary = stats.Vocabulary
		out.EmbeddingModel = stats.EmbeddingModel
		out.Dimensions = stats.Dimensions
		out.BuiltAt = formatTime(stats.BuiltAt)
	}

	builds, err := s.backend.History(ctx, recentBuilds)
	if err != nil {
		// History is informational; report the index anyway.
		s.logger.Warn("mcp_history_unavailable", slog.String("error", err.Error()))
	}
	out.RecentBuilds = toBuilds(builds)
	return out, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpAskHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpListDocumentsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpReindexHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[3].Name, Description: tools[3].Description}, s.mcpIndexStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpAskHandler(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (
	*mcp.CallToolResult,
	AskOutput,
	error,
) {
	results, err := s.ask(ctx, input)
	if err != nil {
		return nil, AskOutput{}, err
	}
	out := AskOutput{Results: toPassages(results)}
	return textResult(FormatAnswer(strings.TrimSpace(input.Question), results)), out, nil
}

func (s *Server) mcpListDocumentsHandler(_ context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (
	*mcp.CallToolResult,
	ListDocumentsOutput,
	error,
) {
	list, err := s.docs.List()
	if err != nil {
		return nil, ListDocumentsOutput{}, MapError(err)
	}
	return textResult(FormatDocuments(list)), ListDocumentsOutput{Documents: toDocuments(list)}, nil
}

func (s *Server) mcpReindexHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ReindexInput) (
	*mcp.CallToolResult,
	ReindexOutput,
	error,
) {
	out, err := s.reindex(ctx)
	if err != nil {
		return nil, ReindexOutput{}, err
	}
	return textResult(fmt.Sprintf("Index rebuilt with %d passages.", out.ChunkCount)), out, nil
}

func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	out, err := s.indexStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// Serve runs the server over stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_started", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}
