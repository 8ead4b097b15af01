// Package mcp exposes changelog generation over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/chlog/application/service"
	"github.com/helixml/chlog/domain/changelog"
)

// ChangelogGenerator turns a repository ref range into a changelog.
type ChangelogGenerator interface {
	Generate(ctx context.Context, req service.GenerateRequest) (changelog.Changelog, error)
}

// Server wraps the MCP server with the changelog tool.
type Server struct {
	mcpServer *server.MCPServer
	generator ChangelogGenerator
	logger    *slog.Logger
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(generator ChangelogGenerator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		generator: generator,
		logger:    logger,
	}

	mcpServer := server.NewMCPServer(
		"chlog",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	generateTool := mcp.NewTool("generate_changelog",
		mcp.WithDescription("Generate a changelog for a range of git commits using AI analysis"),
		mcp.WithString("repo_path",
			mcp.Required(),
			mcp.Description("Filesystem path of the git repository"),
		),
		mcp.WithString("from",
			mcp.Description("Exclusive lower bound of the range (tag, branch or commit hash); empty means the whole history"),
		),
		mcp.WithString("to",
			mcp.Description("Inclusive upper bound of the range (default: HEAD)"),
		),
		mcp.WithString("template",
			mcp.Description("Optional markdown template guiding the changelog layout"),
		),
	)

	mcpServer.AddTool(generateTool, s.handleGenerate)
}

// handleGenerate handles the generate_changelog tool invocation.
func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath, err := request.RequireString("repo_path")
	if err != nil {
		return mcp.NewToolResultError("repo_path is required"), nil
	}

	req := service.GenerateRequest{
		RepoPath: repoPath,
		FromRef:  request.GetString("from", ""),
		ToRef:    request.GetString("to", ""),
		Template: request.GetString("template", ""),
	}

	cl, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.logger.Error("changelog generation failed",
			slog.String("repo", repoPath),
			slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("generate changelog: %v", err)), nil
	}

	type changelogResult struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Summary     string `json:"summary"`
		Markdown    string `json:"markdown"`
	}

	result := changelogResult{
		Title:       cl.Title(),
		Description: cl.Description(),
		Summary:     cl.Summary(),
		Markdown:    cl.Markdown(),
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
