package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbelgin/ngm-binder/cmd/ngm-binder/ui"
	"github.com/mbelgin/ngm-binder/internal/config"
	"github.com/mbelgin/ngm-binder/internal/history"
)

var (
	historyLimit int
	historyRunID string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past conversion runs from the local ledger",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of recent runs to show")
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "show per-issue outcomes for one run ID")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ui.InitUI(noColor, verbose)

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("failed to open history ledger at %s: %w", cfg.History.Path, err)
	}
	defer store.Close()

	ctx := context.Background()
	if historyRunID != "" {
		return showRun(ctx, store, historyRunID)
	}
	return showRecent(ctx, store, historyLimit)
}

func showRecent(ctx context.Context, store *history.Store, limit int) error {
	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		ui.Info("No recorded runs yet")
		return nil
	}

	ui.Section("Recent Runs")
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Mode,
			r.Root,
			fmt.Sprintf("%d", r.Issues),
			fmt.Sprintf("%d", r.Succeeded),
			fmt.Sprintf("%d", r.Failed),
			ui.FormatDuration(r.FinishedAt.Sub(r.StartedAt)),
		})
	}
	ui.Table([]string{"Run", "Started", "Mode", "Root", "Issues", "OK", "Failed", "Duration"}, rows)
	ui.Newline()
	ui.Info("Use --run <id> for per-issue outcomes")
	return nil
}

func showRun(ctx context.Context, store *history.Store, id string) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", id, err)
	}
	outcomes, err := store.RunOutcomes(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load outcomes for run %s: %w", id, err)
	}

	ui.Section("Run " + shortID(run.ID))
	ui.KeyValue("Started", run.StartedAt.Local().Format(time.RFC1123))
	ui.KeyValue("Mode", run.Mode)
	ui.KeyValue("Root", run.Root)
	ui.KeyValue("Workers", fmt.Sprintf("%d", run.Workers))
	ui.KeyValue("OCR", fmt.Sprintf("%t", run.OCR))
	ui.KeyValue("Issues", fmt.Sprintf("%d succeeded, %d failed of %d", run.Succeeded, run.Failed, run.Issues))
	ui.Newline()

	if len(outcomes) == 0 {
		ui.Info("No per-issue outcomes recorded")
		return nil
	}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		detail := o.OutputPath
		if o.ErrorDetail != "" {
			detail = o.ErrorDetail
		}
		rows = append(rows, []string{
			o.Status.Symbol(),
			filepath.Base(o.IssuePath),
			fmt.Sprintf("%d", o.Pages),
			fmt.Sprintf("%d", o.OCRPages),
			ui.FormatDuration(o.Duration),
			detail,
		})
	}
	ui.Table([]string{"", "Issue", "Pages", "OCR", "Time", "Output / Error"}, rows)
	return nil
}

// shortID trims UUIDs down to their first block for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
