package tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"
)

// argument returns the raw value of a tool argument.
func argument(req mcp.CallToolRequest, name string) (any, bool) {
	v, ok := req.Params.Arguments[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// requiredFloat reads a numeric argument, accepting numbers given as text.
func requiredFloat(req mcp.CallToolRequest, name string) (float64, error) {
	v, ok := argument(req, name)
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", name, err)
	}
	return f, nil
}
