package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podarchive/internal/config"
	"podarchive/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runLog string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the most recent run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := resolveRunLog(cfg, runLog)
			if err != nil {
				return err
			}

			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 0, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as the run appends them")
	cmd.Flags().StringVar(&runLog, "file", "", "Show this run log instead of the newest one")
	return cmd
}

func resolveRunLog(cfg *config.Config, explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return config.ExpandPath(explicit)
	}
	if strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return "", errors.New("paths.log_dir is not set; runs only log to stderr")
	}
	path, err := logs.Latest(cfg.Paths.LogDir)
	if errors.Is(err, logs.ErrNoRunLogs) {
		return "", fmt.Errorf("no run logs in %s yet", cfg.Paths.LogDir)
	}
	return path, err
}
