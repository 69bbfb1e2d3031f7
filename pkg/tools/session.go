package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// GetSessionStateTool returns a tool definition for describing the session
func GetSessionStateTool() mcp.Tool {
	return mcp.NewTool("get_session_state",
		mcp.WithDescription("Describe the pin, map view, selected property, entered details and prediction"),
	)
}

// HandleGetSessionState returns the session view.
func (r *Registry) HandleGetSessionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	snap, err := r.session.Snapshot(ctx)
	if err != nil {
		return ErrorResult(err), nil
	}
	return r.jsonResult("get_session_state", sessionOutput(snap))
}

// ResetSessionTool returns a tool definition for resetting the session
func ResetSessionTool() mcp.Tool {
	return mcp.NewTool("reset_session",
		mcp.WithDescription("Return the pin to its starting position and discard the selection, details and prediction"),
	)
}

// HandleResetSession resets the session.
func (r *Registry) HandleResetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.session.Reset(ctx); err != nil {
		return ErrorResult(err), nil
	}
	return r.snapshotResult(ctx, "reset_session")
}
