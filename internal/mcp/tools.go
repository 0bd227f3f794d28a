package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"semdex/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeFolderNotFound = -32001 // Folder name is not registered
	ErrorCodeFolderExists   = -32002 // Folder name is already registered
	ErrorCodeEmptyQuery     = -32003 // Query parameter is empty
)

// handleRegisterFolder handles the register_folder tool invocation
func (s *Server) handleRegisterFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, missingParam("name")
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, missingParam("path")
	}

	folder, jobID, err := s.service.RegisterFolder(ctx, name, path)
	if err != nil {
		return nil, serviceError(err)
	}

	response := map[string]interface{}{
		"registered": true,
		"folder":     folder.Name,
		"path":       folder.Path,
		"job_id":     jobID,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleUnregisterFolder handles the unregister_folder tool invocation
func (s *Server) handleUnregisterFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, missingParam("name")
	}

	if err := s.service.UnregisterFolder(ctx, name); err != nil {
		return nil, serviceError(err)
	}

	response := map[string]interface{}{
		"unregistered": true,
		"folder":       name,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleScheduleIndexing handles the schedule_indexing tool invocation
func (s *Server) handleScheduleIndexing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, missingParam("name")
	}

	jobID, err := s.service.ScheduleIndexing(ctx, name)
	if err != nil {
		return nil, serviceError(err)
	}

	response := map[string]interface{}{
		"scheduled": true,
		"folder":    name,
		"job_id":    jobID,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCancelIndexing handles the cancel_indexing tool invocation
func (s *Server) handleCancelIndexing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, missingParam("name")
	}

	cancelled := s.service.CancelIndexing(name)
	response := map[string]interface{}{
		"cancelled": cancelled,
		"folder":    name,
	}
	if !cancelled {
		response["message"] = "no live indexing job for this folder"
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetProgress handles the get_progress tool invocation
func (s *Server) handleGetProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, missingParam("name")
	}

	state, found := s.service.GetProgress(name)
	if !found {
		response := map[string]interface{}{
			"found":   false,
			"folder":  name,
			"message": "no progress recorded for this folder",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	response := map[string]interface{}{
		"found":    true,
		"progress": state,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListFolders handles the list_folders tool invocation
func (s *Server) handleListFolders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statuses, err := s.service.ListFolders(ctx)
	if err != nil {
		return nil, serviceError(err)
	}

	folders := make([]map[string]interface{}, 0, len(statuses))
	for _, status := range statuses {
		entry := map[string]interface{}{
			"name":        status.Folder.Name,
			"path":        status.Folder.Path,
			"tree_files":  status.TreeFileCount,
			"ast_files":   status.AstFileCount,
			"ast_nodes":   status.AstNodeCount,
			"text_chunks": status.TextChunkCount,
			"embeddings":  status.EmbeddingCount,
		}
		if status.RootHash != "" {
			entry["root_hash"] = status.RootHash
			entry["checked_at"] = status.CheckedAt.Format(time.RFC3339)
		}
		folders = append(folders, entry)
	}

	response := map[string]interface{}{
		"count":   len(folders),
		"folders": folders,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchFolder handles the search_folder tool invocation
func (s *Server) handleSearchFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, missingParam("name")
	}
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resp, err := s.service.Search(ctx, name, query, limit)
	if err != nil {
		return nil, serviceError(err)
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		entry := map[string]interface{}{
			"kind":      string(r.Kind),
			"file_path": r.FilePath,
			"label":     r.Label,
			"score":     r.Score,
			"content":   r.Content,
		}
		switch r.Kind {
		case types.DocumentASTNode:
			entry["start_line"] = r.StartLine
			entry["end_line"] = r.EndLine
		case types.DocumentTextChunk:
			entry["chunk_index"] = r.ChunkIndex
		}
		results = append(results, entry)
	}

	response := map[string]interface{}{
		"results":     results,
		"total":       len(results),
		"scanned":     resp.Scanned,
		"provider":    resp.Provider,
		"model":       resp.Model,
		"duration_ms": resp.Duration.Milliseconds(),
		"cache_hit":   resp.CacheHit,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func missingParam(name string) error {
	return newMCPError(ErrorCodeInvalidParams, name+" parameter is required", map[string]interface{}{
		"param":  name,
		"reason": "missing or empty",
	})
}

// serviceError maps domain sentinels onto protocol error codes.
func serviceError(err error) error {
	switch {
	case errors.Is(err, types.ErrFolderNotFound):
		return newMCPError(ErrorCodeFolderNotFound, err.Error(), nil)
	case errors.Is(err, types.ErrFolderExists):
		return newMCPError(ErrorCodeFolderExists, err.Error(), nil)
	case errors.Is(err, types.ErrEmptyFolder), errors.Is(err, types.ErrInvalidPath):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	default:
		return newMCPError(ErrorCodeInternalError, err.Error(), nil)
	}
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
