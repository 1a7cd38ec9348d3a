// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/stageboard/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the board tools.
func NewHandler(cfg Config, board common.BoardAPI) (*Handler, error) {
	if board == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerReadTools(mcpSrv, board)
	registerWriteTools(mcpSrv, board)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "stageboard"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerReadTools registers `board.list_stages`, `board.list_tasks`, and `board.task_history`.
func registerReadTools(srv *mcpserver.MCPServer, board common.BoardReader) {
	srv.AddTool(
		mcp.NewTool(
			"board.list_stages",
			mcp.WithDescription("List the configured stages in board order with their status labels."),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result, err := mcp.NewToolResultJSON(map[string]any{
				"stages": board.ListStages(),
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_stages result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"board.list_tasks",
			mcp.WithDescription("List every task on one board in display order."),
			mcp.WithString("scope", mcp.Required(), mcp.Description("Board scope identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			scope, err := req.RequireString("scope")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			tasks, err := board.ListTasks(ctx, scope)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"scope": scope,
				"tasks": tasks,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"board.task_history",
			mcp.WithDescription("List status history for one task, newest first."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithNumber("limit", mcp.Description("Maximum rows to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			limit := req.GetInt("limit", 25)
			if limit < 0 {
				return toolResultFromError(fmt.Errorf("limit must be non-negative: %w", common.ErrInvalidRequest)), nil
			}
			events, err := board.ListStatusEvents(ctx, taskID, limit)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"events": events,
			})
			if err != nil {
				return nil, fmt.Errorf("encode task_history result: %w", err)
			}
			return result, nil
		},
	)
}

// registerWriteTools registers `board.create_task` and `board.update_status`.
func registerWriteTools(srv *mcpserver.MCPServer, board common.BoardWriter) {
	srv.AddTool(
		mcp.NewTool(
			"board.create_task",
			mcp.WithDescription("Create one task on a board. Status defaults to the first stage."),
			mcp.WithString("scope", mcp.Required(), mcp.Description("Board scope identifier")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Markdown description")),
			mcp.WithArray("tags", mcp.Description("Optional tags"), mcp.WithStringItems()),
			mcp.WithString("priority", mcp.Description("Priority"), mcp.Enum("low", "medium", "high")),
			mcp.WithString("target_date", mcp.Description("Target date as YYYY-MM-DD or RFC3339")),
			mcp.WithString("status", mcp.Description("Initial status label")),
			mcp.WithString("category", mcp.Description("Optional category")),
			mcp.WithString("area", mcp.Description("Optional area")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			scope, err := req.RequireString("scope")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := board.CreateTask(ctx, scope, common.CreateTaskRequest{
				Title:       title,
				Description: req.GetString("description", ""),
				Tags:        req.GetStringSlice("tags", nil),
				Priority:    req.GetString("priority", ""),
				TargetDate:  req.GetString("target_date", ""),
				Status:      req.GetString("status", ""),
				Category:    req.GetString("category", ""),
				Area:        req.GetString("area", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(task)
			if err != nil {
				return nil, fmt.Errorf("encode create_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"board.update_status",
			mcp.WithDescription("Move one task to the stage mapped from the given status label."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Destination status label")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := board.UpdateStatus(ctx, taskID, status); err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"task_id": taskID,
				"status":  status,
			})
			if err != nil {
				return nil, fmt.Errorf("encode update_status result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps board errors onto prefixed MCP tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrUnknownStatus):
		return mcp.NewToolResultError("unknown_status: " + err.Error())
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
