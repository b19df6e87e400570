// Package mcp provides an MCP (Model Context Protocol) server exposing the
// memory service as tools for coding agents.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/raggadon/pkg/service"
	"github.com/papercomputeco/raggadon/pkg/utils"
)

// MemoryService is the subset of the memory service the tools call.
type MemoryService interface {
	Save(ctx context.Context, req service.SaveRequest) (*service.SaveResult, error)
	Search(ctx context.Context, req service.SearchRequest) (*service.SearchResult, error)
	Stats(ctx context.Context, project string) (*service.StatsResult, error)
}

type Config struct {
	// Service runs the memory operations behind each tool.
	Service MemoryService

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "raggadon",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Service == nil {
			return nil, errors.New("memory service is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        saveToolName,
			Description: saveDescription,
		}, s.handleSave)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        statsToolName,
			Description: statsDescription,
		}, s.handleStats)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// jsonResult renders output as the tool's text content.
func jsonResult(output any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError("Failed to serialize results: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}
}
