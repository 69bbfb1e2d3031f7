// Package prompts provides prompt templates for use with the MCP server.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/ipredict/pkg/property"
)

// RegisterValuationPrompts registers the valuation workflow prompts with the MCP server
func RegisterValuationPrompts(s *server.MCPServer) {
	s.AddPrompt(mcp.NewPrompt("valuation",
		mcp.WithPromptDescription("Instructions for valuing a property with the map tools"),
	), ValuationPromptHandler)

	s.AddPrompt(mcp.NewPrompt("property_detail_options",
		mcp.WithPromptDescription("Accepted values for every property detail"),
	), DetailOptionsHandler)
}

// ValuationPromptHandler returns the main prompt for the valuation tools
func ValuationPromptHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	systemPrompt := `You have access to tools that value London residential property from a map.
Follow this order:

1. drop_pin with the decimal latitude and longitude of the area of interest
2. Pick the property the user means from the returned list and call select_property with its UPRN
3. Ask the user for any detail you do not know, then call set_property_detail once per detail
4. When missing_details is empty, call request_prediction

Required details: property_type, tenure, floor_level, bedrooms, bathrooms, receptions.
building_age, garage, auction and shared_ownership improve the estimate but are optional.

Selecting another property or moving the pin discards entered details and any prediction.

ERROR HANDLING GUIDELINES:
When a tool returns an error, read its code and guidance:
- NO_PIN: drop a pin first
- UNKNOWN_PROPERTY: list the properties again and use a listed UPRN
- INCOMPLETE_DETAILS: set each field named in missing_details
- BACKEND_ERROR: retry later if the guidance says so
- SUPERSEDED: the selection changed while waiting; repeat the request`

	return mcp.NewGetPromptResult(
		"Property Valuation Guidelines",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(systemPrompt),
			),
		},
	), nil
}

// DetailOptionsHandler lists the accepted values for each detail
func DetailOptionsHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return mcp.NewGetPromptResult(
		"Property Detail Options",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(DetailOptionsText()),
			),
		},
	), nil
}

// DetailOptionsText renders the option tables and numeric ranges.
func DetailOptionsText() string {
	var b strings.Builder
	b.WriteString("ACCEPTED PROPERTY DETAILS:\n")
	writeOptions(&b, "property_type", property.PropertyTypes)
	writeOptions(&b, "tenure", property.Tenures)
	writeOptions(&b, "floor_level", property.FloorLevels)
	fmt.Fprintf(&b, "\nbuilding_age: 0 to %d years, in steps of %d\n", property.MaxBuildingAge, property.BuildingAgeStep)
	fmt.Fprintf(&b, "bedrooms: 0 to %d\n", property.MaxBedrooms)
	fmt.Fprintf(&b, "bathrooms: 0 to %d\n", property.MaxBathrooms)
	fmt.Fprintf(&b, "receptions: 0 to %d\n", property.MaxReceptions)
	b.WriteString("garage, auction, shared_ownership: true or false\n")
	return b.String()
}

func writeOptions(b *strings.Builder, name string, opts []property.Option) {
	fmt.Fprintf(b, "\n%s:\n", name)
	for _, o := range opts {
		fmt.Fprintf(b, "  %s = %s\n", o.Value, o.Label)
	}
}
