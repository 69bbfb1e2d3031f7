package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"github.com/NERVsystems/ipredict/pkg/property"
)

// ListPropertiesTool returns a tool definition for listing nearby properties
func ListPropertiesTool() mcp.Tool {
	return mcp.NewTool("list_properties",
		mcp.WithDescription("List the properties found around the pin, nearest first"),
	)
}

// HandleListProperties returns the current candidate list.
func (r *Registry) HandleListProperties(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.propertyList(ctx, r.logger.With("tool", "list_properties"))
}

// SelectPropertyTool returns a tool definition for selecting a property
func SelectPropertyTool() mcp.Tool {
	return mcp.NewTool("select_property",
		mcp.WithDescription("Select one of the listed properties by UPRN and load its area statistics. Any details entered for a previous property are discarded."),
		mcp.WithNumber("uprn",
			mcp.Required(),
			mcp.Description("Unique Property Reference Number from list_properties"),
		),
	)
}

// HandleSelectProperty selects a candidate and waits for its attributes.
func (r *Registry) HandleSelectProperty(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "select_property")

	raw, ok := argument(req, "uprn")
	if !ok {
		return ValidationError("uprn is required"), nil
	}
	uprn, err := cast.ToInt64E(raw)
	if err != nil {
		return ValidationError(fmt.Sprintf("uprn must be a whole number: %v", err)), nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.session.SelectCandidate(ctx, uprn); err != nil {
		return ErrorResult(err), nil
	}
	if err := r.session.Settle(ctx); err != nil {
		return ErrorResult(err), nil
	}
	snap, err := r.session.Snapshot(ctx)
	if err != nil {
		return ErrorResult(err), nil
	}
	if snap.Attributes.Err != nil {
		logger.Warn("area lookup failed", "uprn", uprn, "error", snap.Attributes.Err)
		return ErrorResult(snap.Attributes.Err), nil
	}

	item := snap.State.SelectedItem
	if item == nil || item.UPRN != uprn {
		return ErrorWithGuidance(DetailedError{
			Code:     CodeSuperseded,
			Message:  "the selection changed before the property loaded",
			Guidance: GuidanceListProperties,
		}), nil
	}

	return r.jsonResult("select_property", SelectedOutput{
		Property: summarize(item.Candidate, snap.State.Location),
		Area:     summarizeArea(item.AreaAttributes),
		Missing:  toolFields(snap.Missing),
	})
}

// SetPropertyDetailTool returns a tool definition for entering a detail
func SetPropertyDetailTool() mcp.Tool {
	return mcp.NewTool("set_property_detail",
		mcp.WithDescription(`Enter one detail about the selected property.
property_type: `+describeOptions(property.PropertyTypes)+`
tenure: `+describeOptions(property.Tenures)+`
floor_level: `+describeOptions(property.FloorLevels)+`
building_age: years, 0 to 100 in steps of 10
bedrooms: 0 to 5, bathrooms: 0 to 5, receptions: 0 to 3
garage, auction, shared_ownership: true or false`),
		mcp.WithString("field",
			mcp.Required(),
			mcp.Description("Detail to set"),
			mcp.Enum(fieldNames()...),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("New value. Options may be given by value or label; numbers and booleans may be given as text."),
		),
	)
}

// HandleSetPropertyDetail validates and records one detail.
func (r *Registry) HandleSetPropertyDetail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(req, "field", "")
	field, ok := lookupField(name)
	if !ok {
		return ValidationError(fmt.Sprintf("unknown field %q", name)), nil
	}
	raw, ok := argument(req, "value")
	if !ok {
		return ValidationError("value is required"), nil
	}
	action, err := field.action(raw)
	if err != nil {
		return ValidationError(err.Error()), nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	snap, err := r.session.Snapshot(ctx)
	if err != nil {
		return ErrorResult(err), nil
	}
	if snap.State.SelectedItem == nil {
		return ErrorWithGuidance(DetailedError{
			Code:     CodeNoSelection,
			Message:  "no property selected",
			Guidance: GuidanceSelectProperty,
		}), nil
	}

	if err := r.session.Dispatch(ctx, action); err != nil {
		return ErrorResult(err), nil
	}
	r.logger.Debug("detail set", "tool", "set_property_detail", "action", action.Name())

	snap, err = r.session.Snapshot(ctx)
	if err != nil {
		return ErrorResult(err), nil
	}
	return r.jsonResult("set_property_detail", DetailOutput{
		Details:        snap.State.ProvidedAttributes,
		Missing:        toolFields(snap.Missing),
		PredictEnabled: snap.PredictEnabled,
	})
}
