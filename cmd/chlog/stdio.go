package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/helixml/chlog/internal/log"
	"github.com/helixml/chlog/internal/mcp"
)

func stdioCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This lets AI assistants generate changelogs for local repositories.
Configuration is loaded from environment variables and an optional .env file.
Logs go to stderr; stdout carries the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func runStdio(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	logger := log.NewLogger(cfg).Slog()
	logger.Info("starting MCP server", slog.String("version", version))

	generator, err := buildGenerator(cfg, logger)
	if err != nil {
		return err
	}

	return mcp.NewServer(generator, logger).ServeStdio()
}
