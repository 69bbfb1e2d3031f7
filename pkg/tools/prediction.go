package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ipredict/pkg/predict"
)

// RequestPredictionTool returns a tool definition for requesting a valuation
func RequestPredictionTool() mcp.Tool {
	return mcp.NewTool("request_prediction",
		mcp.WithDescription("Request a price prediction for the selected property. All of property_type, tenure, floor_level, bedrooms, bathrooms and receptions must be set first."),
	)
}

// HandleRequestPrediction submits the prediction and waits for the model.
func (r *Registry) HandleRequestPrediction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "request_prediction")

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	p, err := r.session.PredictAndWait(ctx)
	if errors.Is(err, predict.ErrIncompleteInputs) {
		snap, snapErr := r.session.Snapshot(ctx)
		if snapErr != nil {
			return ErrorResult(snapErr), nil
		}
		return ErrorWithGuidance(DetailedError{
			Code:     CodeIncomplete,
			Message:  err.Error(),
			Guidance: GuidanceMissingDetails,
			Missing:  toolFields(snap.Missing),
		}), nil
	}
	if err != nil {
		logger.Warn("prediction failed", "error", err)
		return ErrorResult(err), nil
	}

	logger.Info("prediction ready", "prediction", p.String())
	return r.jsonResult("request_prediction", PredictionOutput{Prediction: *p, Summary: p.String()})
}
