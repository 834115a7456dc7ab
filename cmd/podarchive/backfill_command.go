package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"podarchive/internal/feeds"
)

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	var downloadDir string
	var podcast string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Download every enclosure listed in archived feed snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configWithDownloadDir(downloadDir)
			if err != nil {
				return err
			}
			session, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer session.Close()

			result, err := feeds.Backfill(cmd.Context(), session.fetcher, cfg.Paths.DownloadDir, feeds.BackfillOptions{
				Podcast: podcast,
				DryRun:  dryRun,
			}, session.logger)
			out := cmd.OutOrStdout()
			printBackfillSummary(out, result, dryRun)
			if err != nil {
				return err
			}
			if n := len(result.Failures); n > 0 {
				return fmt.Errorf("%d enclosures failed to download", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&downloadDir, "download-dir", "d", "", "Archive root (overrides paths.download_dir)")
	cmd.Flags().StringVar(&podcast, "podcast", "", "Only backfill the podcast directory with this name")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report missing enclosures without downloading")
	return cmd
}

func printBackfillSummary(out io.Writer, result feeds.BackfillResult, dryRun bool) {
	missingLabel := "missing"
	if dryRun {
		missingLabel = "missing (dry run)"
	}
	rows := [][]string{
		{"podcasts", strconv.Itoa(result.Podcasts)},
		{"snapshots", strconv.Itoa(result.Snapshots)},
		{"downloaded", strconv.Itoa(result.Downloaded)},
		{"existing", strconv.Itoa(result.Existing)},
		{missingLabel, strconv.Itoa(result.Missing)},
		{"no enclosure", strconv.Itoa(result.Skipped)},
		{"failed", strconv.Itoa(len(result.Failures))},
	}
	fmt.Fprintln(out, renderTable([]string{"Backfill", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(result.Failures) == 0 {
		return
	}
	failRows := make([][]string, 0, len(result.Failures))
	for _, f := range result.Failures {
		failRows = append(failRows, []string{f.Path, truncate(f.URL, 60), truncate(errorText(f.Err), 60)})
	}
	fmt.Fprintln(out, renderTable([]string{"Path", "URL", "Error"}, failRows, nil))
}
