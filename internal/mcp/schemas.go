package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerFolderTool returns the tool definition for register_folder
func registerFolderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "register_folder",
		Description: "Register a folder for indexing and watching. Schedules the initial indexing job.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Unique name for the folder",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the folder on disk",
				},
			},
			Required: []string{"name", "path"},
		},
	}
}

// unregisterFolderTool returns the tool definition for unregister_folder
func unregisterFolderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "unregister_folder",
		Description: "Unregister a folder: cancels any live indexing job and deletes its index data",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the registered folder",
				},
			},
			Required: []string{"name"},
		},
	}
}

// scheduleIndexingTool returns the tool definition for schedule_indexing
func scheduleIndexingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "schedule_indexing",
		Description: "Start an indexing job for a folder, superseding any job already running for it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the registered folder",
				},
			},
			Required: []string{"name"},
		},
	}
}

// cancelIndexingTool returns the tool definition for cancel_indexing
func cancelIndexingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cancel_indexing",
		Description: "Cancel the live indexing job for a folder, if one is running",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the registered folder",
				},
			},
			Required: []string{"name"},
		},
	}
}

// getProgressTool returns the tool definition for get_progress
func getProgressTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_progress",
		Description: "Get the current indexing progress for a folder",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the registered folder",
				},
			},
			Required: []string{"name"},
		},
	}
}

// listFoldersTool returns the tool definition for list_folders
func listFoldersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_folders",
		Description: "List registered folders with their index statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchFolderTool returns the tool definition for search_folder
func searchFolderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_folder",
		Description: "Semantic search over a folder's indexed documents using natural language",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the registered folder",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or code fragment)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"name", "query"},
		},
	}
}
