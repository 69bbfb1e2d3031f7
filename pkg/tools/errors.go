package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ipredict/pkg/fetch"
	"github.com/NERVsystems/ipredict/pkg/predict"
	"github.com/NERVsystems/ipredict/pkg/session"
)

// Error codes reported to the client.
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeNoPin           = "NO_PIN"
	CodeNoCandidates    = "NO_CANDIDATES"
	CodeUnknownProperty = "UNKNOWN_PROPERTY"
	CodeNoSelection     = "NO_SELECTION"
	CodeIncomplete      = "INCOMPLETE_DETAILS"
	CodeBackend         = "BACKEND_ERROR"
	CodeMalformed       = "MALFORMED_RESPONSE"
	CodeSuperseded      = "SUPERSEDED"
	CodeTimeout         = "TIMEOUT"
	CodeInternal        = "INTERNAL_ERROR"
)

// Guidance texts
const (
	GuidanceDropPin        = "Drop a pin with drop_pin first, using decimal latitude and longitude."
	GuidanceListProperties = "Call list_properties and pick one of the listed UPRNs."
	GuidanceSelectProperty = "Select a property with select_property before entering details."
	GuidanceMissingDetails = "Set every missing detail with set_property_detail, then request the prediction again."
	GuidanceSuperseded     = "The selection changed while the prediction was running. Request it again."
)

// DetailedError is the JSON body of a tool error result.
type DetailedError struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Guidance string   `json:"guidance,omitempty"`
	Missing  []string `json:"missing_details,omitempty"`
}

// ErrorWithGuidance returns an error result carrying a code and guidance.
func ErrorWithGuidance(e DetailedError) *mcp.CallToolResult {
	data, err := json.Marshal(e)
	if err != nil {
		return mcp.NewToolResultError(e.Message)
	}
	return mcp.NewToolResultError(string(data))
}

// ValidationError reports a bad tool argument.
func ValidationError(message string) *mcp.CallToolResult {
	return ErrorWithGuidance(DetailedError{
		Code:     CodeInvalidInput,
		Message:  message,
		Guidance: "Please correct the parameters and try again.",
	})
}

// ErrorResult maps a session or fetch error onto a tool error result.
func ErrorResult(err error) *mcp.CallToolResult {
	var (
		httpErr   *fetch.HTTPError
		decodeErr *fetch.DecodeError
	)
	switch {
	case errors.Is(err, predict.ErrNoSelection):
		return ErrorWithGuidance(DetailedError{Code: CodeNoSelection, Message: err.Error(), Guidance: GuidanceSelectProperty})
	case errors.Is(err, predict.ErrIncompleteInputs):
		return ErrorWithGuidance(DetailedError{Code: CodeIncomplete, Message: err.Error(), Guidance: GuidanceMissingDetails})
	case errors.Is(err, session.ErrUnknownCandidate):
		return ErrorWithGuidance(DetailedError{Code: CodeUnknownProperty, Message: err.Error(), Guidance: GuidanceListProperties})
	case errors.As(err, &httpErr):
		return ErrorWithGuidance(DetailedError{Code: CodeBackend, Message: httpErr.Message, Guidance: httpErr.Guidance})
	case errors.As(err, &decodeErr):
		return ErrorWithGuidance(DetailedError{Code: CodeMalformed, Message: err.Error(), Guidance: fetch.Guidance(err)})
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorWithGuidance(DetailedError{Code: CodeTimeout, Message: err.Error(), Guidance: fetch.Guidance(err)})
	case errors.Is(err, context.Canceled):
		return ErrorWithGuidance(DetailedError{Code: CodeSuperseded, Message: err.Error(), Guidance: GuidanceSuperseded})
	default:
		return ErrorWithGuidance(DetailedError{Code: CodeBackend, Message: err.Error(), Guidance: fetch.Guidance(err)})
	}
}
