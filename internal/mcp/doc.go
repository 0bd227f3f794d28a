// Package mcp implements the Model Context Protocol (MCP) server for semdex.
//
// The server exposes seven tools to MCP clients (Claude Code, Codex CLI):
//   - register_folder: Register a folder and start indexing it
//   - unregister_folder: Remove a folder and all of its indexed data
//   - schedule_indexing: Queue a fresh indexing job for a folder
//   - cancel_indexing: Cancel the live indexing job, if any
//   - get_progress: Report the latest indexing progress snapshot
//   - list_folders: List registered folders with row counts
//   - search_folder: Semantic search over a folder's indexed documents
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries the protocol, so all logging goes to stderr or a file.
//
// # Tool: register_folder
//
// Register a directory under a short name and schedule its first
// indexing job:
//
//	Request:
//	{
//	  "name": "register_folder",
//	  "arguments": {
//	    "name": "myproject",
//	    "path": "/home/user/myproject"
//	  }
//	}
//
//	Response:
//	{
//	  "registered": true,
//	  "folder": "myproject",
//	  "path": "/home/user/myproject",
//	  "job_id": "a81bc81b-dead-4e5d-abff-90865d1e13b1"
//	}
//
// The path must be an absolute path to an existing directory. Once
// registered, the folder is polled for changes and re-checked on a
// fixed interval.
//
// # Tool: search_folder
//
// Search a folder's indexed documents with a natural language query:
//
//	Request:
//	{
//	  "name": "search_folder",
//	  "arguments": {
//	    "name": "myproject",
//	    "query": "where are HTTP retries handled",
//	    "limit": 10
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "kind": "ast-node",
//	      "file_path": "client/retry.py",
//	      "label": "send_with_retry",
//	      "score": 0.87,
//	      "content": "def send_with_retry(request): ...",
//	      "start_line": 14,
//	      "end_line": 42
//	    }
//	  ],
//	  "total": 1,
//	  "scanned": 512,
//	  "provider": "openai",
//	  "model": "text-embedding-3-small",
//	  "duration_ms": 12,
//	  "cache_hit": false
//	}
//
// Results of kind "ast-node" carry 1-based start_line/end_line; results
// of kind "text-chunk" carry chunk_index instead.
//
// # Tool: get_progress
//
// Fetch the latest progress snapshot for a folder's indexing job:
//
//	Request:
//	{
//	  "name": "get_progress",
//	  "arguments": {"name": "myproject"}
//	}
//
//	Response:
//	{
//	  "found": true,
//	  "progress": {
//	    "folder": "myproject",
//	    "job_id": "a81bc81b-dead-4e5d-abff-90865d1e13b1",
//	    "phase": "embedding",
//	    "total_files": 120,
//	    "total_documents": 840,
//	    "processed_documents": 512,
//	    "percent": 60,
//	    "started_at": "2025-11-02T10:30:00Z",
//	    "updated_at": "2025-11-02T10:30:42Z"
//	  }
//	}
//
// A folder with no recorded progress yields {"found": false}; that is a
// normal response, not an error.
//
// The remaining tools follow the same shape: unregister_folder,
// schedule_indexing, and cancel_indexing take {"name": "..."} and
// return a small confirmation object, and list_folders takes no
// arguments and returns per-folder row counts.
//
// # MCP Client Configuration
//
// Configure in Claude Code's MCP settings:
//
//	{
//	  "mcpServers": {
//	    "semdex": {
//	      "command": "/usr/local/bin/semdex",
//	      "env": {
//	        "SEMDEX_DB_PATH": "~/.semdex/semdex.db",
//	        "SEMDEX_EMBEDDING_PROVIDER": "local"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Failed tool calls return JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32001,
//	    "message": "folder not found: myproject"
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments, bad path)
//   - -32603: Internal error (database, filesystem, providers)
//   - -32001: Folder not found
//   - -32002: Folder already registered
//   - -32003: Empty search query
//
// Conditions that are expected outcomes rather than failures, such as
// cancelling when no job is live, come back as successful responses
// with an explanatory message field.
package mcp
