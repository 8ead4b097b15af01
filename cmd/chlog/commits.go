package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixml/chlog/infrastructure/git"
	"github.com/helixml/chlog/internal/log"
)

func commitsCmd() *cobra.Command {
	var (
		envFile  string
		repoPath string
		fromRef  string
		toRef    string
	)

	cmd := &cobra.Command{
		Use:   "commits",
		Short: "List the commits a changelog would cover",
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

			commits, err := source.CommitsBetween(cmd.Context(), fromRef, toRef)
			if err != nil {
				return err
			}

			for _, c := range commits {
				fmt.Printf("%s %s\n", c.ShortHash(), firstLine(c.Message()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVarP(&repoPath, "repo", "r", ".", "Path of the git repository")
	cmd.Flags().StringVarP(&fromRef, "from", "f", "", "Exclusive lower bound of the range")
	cmd.Flags().StringVarP(&toRef, "to", "t", "", "Inclusive upper bound of the range (default: HEAD)")

	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
