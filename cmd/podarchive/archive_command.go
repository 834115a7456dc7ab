package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"podarchive/internal/config"
	"podarchive/internal/failure"
	"podarchive/internal/ledger"
	"podarchive/internal/opml"
	"podarchive/internal/pipeline"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var downloadDir string
	var noSnapshots bool

	cmd := &cobra.Command{
		Use:   "archive OPML_PATH",
		Short: "Download every played episode listed in an Overcast OPML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configWithDownloadDir(downloadDir)
			if err != nil {
				return err
			}
			opmlPath, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve export path: %w", err)
			}
			episodes, err := opml.ParseFile(opmlPath)
			if err != nil {
				return err
			}

			session, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer session.Close()

			store := ledger.New(cfg.LedgerPath(), session.logger)
			defer store.Close()

			runner := pipeline.New(pipeline.Options{
				DownloadDir: cfg.Paths.DownloadDir,
				Snapshots:   cfg.Feeds.Snapshots && !noSnapshots,
			}, session.fetcher, store, session.logger)

			summary, runErr := runner.Run(cmd.Context(), episodes)
			out := cmd.OutOrStdout()
			printArchiveSummary(out, summary)
			if session.logPath != "" {
				fmt.Fprintf(out, "Run log: %s\n", session.logPath)
			}
			if runErr != nil {
				return runErr
			}
			if failed := summary.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d episodes failed", failed, len(summary.Results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&downloadDir, "download-dir", "d", "", "Archive root (overrides paths.download_dir)")
	cmd.Flags().BoolVar(&noSnapshots, "no-snapshots", false, "Skip feed snapshots for this run")
	return cmd
}

func printArchiveSummary(out io.Writer, summary pipeline.Summary) {
	rows := make([][]string, 0, len(pipeline.Outcomes))
	for _, outcome := range pipeline.Outcomes {
		rows = append(rows, []string{string(outcome), strconv.Itoa(summary.Count(outcome))})
	}
	fmt.Fprintln(out, tableSpec{
		Headers: []string{"Outcome", "Episodes"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignLeft, alignRight},
		Footer:  []string{"total", strconv.Itoa(len(summary.Results))},
	}.render())

	fmt.Fprintf(out, "Feeds attempted: %d", summary.FeedsAttempted)
	if n := summary.SnapshotFailures(); n > 0 {
		fmt.Fprintf(out, " (%d snapshot failures)", n)
	}
	fmt.Fprintln(out)

	failures := summary.Failures()
	if len(failures) == 0 {
		return
	}
	failRows := make([][]string, 0, len(failures))
	for _, r := range failures {
		failRows = append(failRows, []string{
			r.Episode.OvercastID,
			r.Episode.Podcast.Title,
			r.Episode.Title,
			failure.Kind(r.Err),
			truncate(errorText(r.Err), 80),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Overcast ID", "Podcast", "Episode", "Kind", "Error"},
		failRows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 3 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
