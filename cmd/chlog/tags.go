package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixml/chlog/infrastructure/git"
	"github.com/helixml/chlog/internal/log"
)

func tagsCmd() *cobra.Command {
	var (
		envFile  string
		repoPath string
	)

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List the repository's semantic version tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			logger := log.Configure(cfg).Slog()

			source, err := git.Open(repoPath, logger)
			if err != nil {
				return err
			}

			tags, err := source.VersionTags()
			if err != nil {
				return err
			}

			for _, t := range tags {
				fmt.Printf("%-20s %s\n", t.Name, shortSHA(t.SHA))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVarP(&repoPath, "repo", "r", ".", "Path of the git repository")

	return cmd
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
