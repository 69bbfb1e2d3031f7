package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/ipredict/pkg/session"
)

// DefaultTimeout bounds how long a tool waits for the session to settle.
const DefaultTimeout = 30 * time.Second

// Registry holds all MCP tool registrations for one valuation session.
type Registry struct {
	logger  *slog.Logger
	session *session.Session
	timeout time.Duration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTimeout sets the per-call wait limit.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRegistry creates a new MCP tool registry backed by sess.
func NewRegistry(sess *session.Session, logger *slog.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:  logger,
		session: sess,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ToolDefinition represents a valuation MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// GetToolDefinitions returns all tool definitions.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		// Map Tools
		{
			Name:        "drop_pin",
			Description: "Drop the map pin at a location and list the nearest properties",
			Tool:        DropPinTool(),
			Handler:     r.HandleDropPin,
		},
		{
			Name:        "clear_pin",
			Description: "Remove the map pin",
			Tool:        ClearPinTool(),
			Handler:     r.HandleClearPin,
		},
		{
			Name:        "set_map_view",
			Description: "Change the map zoom and optionally its center",
			Tool:        SetMapViewTool(),
			Handler:     r.HandleSetMapView,
		},

		// Property Tools
		{
			Name:        "list_properties",
			Description: "List the properties found around the pin",
			Tool:        ListPropertiesTool(),
			Handler:     r.HandleListProperties,
		},
		{
			Name:        "select_property",
			Description: "Select a listed property and load its area statistics",
			Tool:        SelectPropertyTool(),
			Handler:     r.HandleSelectProperty,
		},
		{
			Name:        "set_property_detail",
			Description: "Enter one detail about the selected property",
			Tool:        SetPropertyDetailTool(),
			Handler:     r.HandleSetPropertyDetail,
		},

		// Prediction Tools
		{
			Name:        "request_prediction",
			Description: "Request a price prediction for the selected property",
			Tool:        RequestPredictionTool(),
			Handler:     r.HandleRequestPrediction,
		},

		// Session Tools
		{
			Name:        "get_session_state",
			Description: "Describe the current session",
			Tool:        GetSessionStateTool(),
			Handler:     r.HandleGetSessionState,
		},
		{
			Name:        "reset_session",
			Description: "Return the pin to its starting position and clear the selection",
			Tool:        ResetSessionTool(),
			Handler:     r.HandleResetSession,
		},
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, def.Handler)
	}
}

func (r *Registry) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// jsonResult encodes v as the text content of a successful result.
func (r *Registry) jsonResult(tool string, v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("failed to marshal result", "tool", tool, "error", err)
		return ErrorWithGuidance(DetailedError{Code: CodeInternal, Message: "failed to encode result"}), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// snapshotResult waits for pending work and returns the session view.
func (r *Registry) snapshotResult(ctx context.Context, tool string) (*mcp.CallToolResult, error) {
	if err := r.session.Settle(ctx); err != nil {
		return ErrorResult(err), nil
	}
	snap, err := r.session.Snapshot(ctx)
	if err != nil {
		return ErrorResult(err), nil
	}
	return r.jsonResult(tool, sessionOutput(snap))
}
