package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rohankatakam/repolens/internal/aggregator"
	apperrors "github.com/rohankatakam/repolens/internal/errors"
	"github.com/rohankatakam/repolens/internal/models"
)

// Analyzer is the part of the analysis service the tools call
type Analyzer interface {
	Analyze(ctx context.Context, credential, input string) (*models.AnalysisReport, aggregator.CacheStatus, error)
	CodeFrequency(ctx context.Context, credential, input string) (models.CodeFrequencyResult, aggregator.CacheStatus, error)
}

// jsonResult marshals v as indented JSON text content
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

// failure turns an analysis error into a tool result the model can read.
// Unclassified errors are returned as protocol errors.
func failure(err error) (*mcp.CallToolResult, error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Kind != apperrors.KindInternal {
		return mcp.NewToolResultError(appErr.Message), nil
	}
	return nil, err
}
