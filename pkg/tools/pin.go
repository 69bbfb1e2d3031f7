package tools

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ipredict/pkg/geo"
)

// DropPinTool returns a tool definition for placing the map pin
func DropPinTool() mcp.Tool {
	return mcp.NewTool("drop_pin",
		mcp.WithDescription("Drop the map pin at a location and list the nearest properties"),
		mcp.WithNumber("latitude",
			mcp.Required(),
			mcp.Description("Latitude of the pin"),
		),
		mcp.WithNumber("longitude",
			mcp.Required(),
			mcp.Description("Longitude of the pin"),
		),
	)
}

// HandleDropPin places the pin as a map click would and waits for the
// property list around it.
func (r *Registry) HandleDropPin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "drop_pin")

	lat, err := requiredFloat(req, "latitude")
	if err != nil {
		return ValidationError(err.Error()), nil
	}
	lng, err := requiredFloat(req, "longitude")
	if err != nil {
		return ValidationError(err.Error()), nil
	}
	loc := geo.Location{Lat: lat, Lng: lng}

	if err := r.session.Click(loc); err != nil {
		return ValidationError(err.Error()), nil
	}
	logger.Debug("pin dropped", "location", loc.String())

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.propertyList(ctx, logger)
}

// ClearPinTool returns a tool definition for removing the pin
func ClearPinTool() mcp.Tool {
	return mcp.NewTool("clear_pin",
		mcp.WithDescription("Remove the map pin and discard the property list"),
	)
}

// HandleClearPin removes the pin immediately.
func (r *Registry) HandleClearPin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r.session.ClearPin()

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.snapshotResult(ctx, "clear_pin")
}

// SetMapViewTool returns a tool definition for changing the map view
func SetMapViewTool() mcp.Tool {
	return mcp.NewTool("set_map_view",
		mcp.WithDescription("Change the map zoom and optionally move its center. The search area overlay follows the zoom."),
		mcp.WithNumber("zoom",
			mcp.Required(),
			mcp.Description("Zoom level between 10 and 19"),
		),
		mcp.WithNumber("latitude",
			mcp.Description("Latitude of the new map center"),
		),
		mcp.WithNumber("longitude",
			mcp.Description("Longitude of the new map center"),
		),
	)
}

// HandleSetMapView changes zoom and, when both coordinates are given, the
// map center.
func (r *Registry) HandleSetMapView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	zoom, err := requiredFloat(req, "zoom")
	if err != nil {
		return ValidationError(err.Error()), nil
	}
	if zoom < geo.MinZoom || zoom > geo.MaxZoom {
		return ValidationError("zoom must be between 10 and 19"), nil
	}

	_, hasLat := argument(req, "latitude")
	_, hasLng := argument(req, "longitude")
	switch {
	case hasLat && hasLng:
		lat, err := requiredFloat(req, "latitude")
		if err != nil {
			return ValidationError(err.Error()), nil
		}
		lng, err := requiredFloat(req, "longitude")
		if err != nil {
			return ValidationError(err.Error()), nil
		}
		if err := r.session.SetView(geo.Location{Lat: lat, Lng: lng}, zoom); err != nil {
			return ValidationError(err.Error()), nil
		}
	case hasLat || hasLng:
		return ValidationError("latitude and longitude must be given together"), nil
	default:
		r.session.SetZoom(zoom)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.snapshotResult(ctx, "set_map_view")
}

func (r *Registry) propertyList(ctx context.Context, logger *slog.Logger) (*mcp.CallToolResult, error) {
	if err := r.session.Settle(ctx); err != nil {
		return ErrorResult(err), nil
	}
	snap, err := r.session.Snapshot(ctx)
	if err != nil {
		return ErrorResult(err), nil
	}
	if snap.State.Location == nil {
		return ErrorWithGuidance(DetailedError{Code: CodeNoPin, Message: "no pin on the map", Guidance: GuidanceDropPin}), nil
	}
	if snap.Candidates.Err != nil {
		logger.Warn("property lookup failed", "error", snap.Candidates.Err)
		return ErrorResult(snap.Candidates.Err), nil
	}

	out := PropertyListOutput{
		Location:   snap.State.Location,
		Properties: make([]PropertySummary, 0, len(snap.Candidates.Data)),
	}
	for _, c := range snap.Candidates.Data {
		out.Properties = append(out.Properties, summarize(c, snap.State.Location))
	}
	return r.jsonResult("list_properties", out)
}
