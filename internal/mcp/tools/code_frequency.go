package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rohankatakam/repolens/internal/models"
)

// CodeFrequencyName is the registered tool name
const CodeFrequencyName = "repolens.code_frequency"

// CodeFrequencyTool implements the repolens.code_frequency tool
type CodeFrequencyTool struct {
	analyzer   Analyzer
	credential string
}

// NewCodeFrequencyTool creates the tool
func NewCodeFrequencyTool(analyzer Analyzer, credential string) *CodeFrequencyTool {
	return &CodeFrequencyTool{analyzer: analyzer, credential: credential}
}

// Definition describes the tool and its arguments
func (t *CodeFrequencyTool) Definition() mcp.Tool {
	return mcp.NewTool(CodeFrequencyName,
		mcp.WithDescription("Weekly lines added and deleted for a GitHub repository."),
		mcp.WithString("repo", mcp.Description("Repository as owner/name or a github.com URL."), mcp.Required()),
		mcp.WithNumber("weeks", mcp.Description("Only return the most recent N weeks.")),
	)
}

// Handle returns the weekly series, or computing=true with no data while
// GitHub is still building the statistics
func (t *CodeFrequencyTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo := request.GetString("repo", "")
	if repo == "" {
		return mcp.NewToolResultError("repo is required"), nil
	}

	result, _, err := t.analyzer.CodeFrequency(ctx, t.credential, repo)
	if err != nil {
		return failure(err)
	}

	if result.Computing {
		return jsonResult(map[string]interface{}{
			"data":      []models.WeeklyBucket{},
			"computing": true,
			"message":   "GitHub is still computing statistics for this repository; try again shortly",
		})
	}

	if n := request.GetInt("weeks", 0); n > 0 && len(result.Data) > n {
		result.Data = result.Data[len(result.Data)-n:]
	}
	return jsonResult(result)
}
