package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbelgin/ngm-binder/cmd/ngm-binder/ui"
	"github.com/mbelgin/ngm-binder/internal/bind"
	"github.com/mbelgin/ngm-binder/internal/config"
	"github.com/mbelgin/ngm-binder/internal/domain"
	"github.com/mbelgin/ngm-binder/internal/history"
	"github.com/mbelgin/ngm-binder/internal/observability"
	"github.com/mbelgin/ngm-binder/internal/ocr"
	"github.com/mbelgin/ngm-binder/internal/pdfout"
	"github.com/mbelgin/ngm-binder/internal/scan"
)

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ui.InitUI(noColor, verbose)

	logger, logPath := buildLogger(cfg)

	mode, root, keys, err := resolveMode(args)
	if err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	scanner := scan.NewScanner(scan.FolderPolicy(cfg.Scan.FolderPolicy), logger)

	scanStart := time.Now()
	folders, err := resolveFolders(scanner, mode, root, keys)
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		return fmt.Errorf("no matching issue folders under %s", root)
	}
	ui.Info("Found %d issue folder(s) in %s", len(folders), ui.FormatDuration(time.Since(scanStart)))
	ui.Newline()

	var engine ocr.Engine
	if cfg.OCR.Enabled {
		tess := ocr.NewTesseract(cfg.OCR.TesseractPath, cfg.OCR.Language, cfg.OCR.ExtraArgs, cfg.OCR.Timeout, logger)
		if err := tess.Available(); err != nil {
			ui.Warning("OCR engine unavailable, conversions that need it will fail: %v", err)
		}
		engine = tess
	}

	var verifier domain.Verifier
	if cfg.Output.Verify {
		verifier = pdfout.NewFitzVerifier()
	}

	binder := bind.NewBinder(
		pdfout.NewAssembler(logger),
		verifier,
		engine,
		bind.BinderConfig{
			OutputDir:        cfg.Output.Dir,
			FilePrefix:       cfg.Output.FilePrefix,
			CheckpointSuffix: cfg.Output.CheckpointSuffix,
			IssuePrefix:      cfg.Scan.IssuePrefix,
			RemoveSources:    removeSrc,
		},
		logger,
	)

	scheduler := bind.NewScheduler(binder, cfg.Jobs.Workers, logger)

	var bar *ui.ProgressBar
	if ui.IsTerminal() && !verbose {
		bar = ui.NewProgressBar(int64(len(folders)), "Converting issues")
	}
	scheduler.OnOutcome = func(completed, total int, o domain.ConversionOutcome) {
		if bar != nil {
			bar.Set(int64(completed))
		}
		ui.StatusLine(completed, total, filepath.Base(o.IssuePath), o.Status.Symbol())
	}

	runStart := time.Now()
	outcomes := scheduler.Run(ctx, folders)
	if bar != nil {
		bar.Finish()
	}

	printSummary(outcomes, time.Since(runStart), logPath)

	recordHistory(cfg, logger, history.Run{
		StartedAt:  runStart,
		FinishedAt: time.Now(),
		Root:       root,
		Mode:       mode,
		Workers:    cfg.Jobs.Workers,
		OCR:        cfg.OCR.Enabled,
	}, outcomes)

	return nil
}

// applyFlagOverrides lets command line flags win over file and env settings.
func applyFlagOverrides(cfg *config.Config) {
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if jobs > 0 {
		cfg.Jobs.Workers = jobs
	}
	if withOCR {
		cfg.OCR.Enabled = true
	}
}

// buildLogger routes structured logs to the failure log file. The console only
// sees them under --verbose; otherwise it stays reserved for progress output.
func buildLogger(cfg *config.Config) (*observability.Logger, string) {
	logPath := cfg.Observability.LogFile
	if logPath != "" && !filepath.IsAbs(logPath) {
		logPath = filepath.Join(cfg.Output.Dir, logPath)
	}

	var logFile io.Writer
	if logPath != "" {
		f, err := observability.OpenLogFile(logPath)
		if err != nil {
			ui.Warning("Cannot open log file %s: %v", logPath, err)
			logPath = ""
		} else {
			logFile = f
		}
	}

	if verbose {
		return observability.NewLogger(observability.LogConfig{
			Level:       "debug",
			Format:      cfg.Observability.LogFormat,
			Output:      os.Stderr,
			FileOutput:  logFile,
			ServiceName: "ngm-binder",
		}), logPath
	}

	if logFile != nil {
		return observability.NewLogger(observability.LogConfig{
			Level:       cfg.Observability.LogLevel,
			Format:      "json",
			Output:      logFile,
			ServiceName: "ngm-binder",
		}), logPath
	}

	return observability.NewLogger(observability.LogConfig{
		Level:       "error",
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: "ngm-binder",
	}), ""
}

// resolveMode decides between date key, exact directory, and full tree modes.
func resolveMode(args []string) (mode, root string, keys []string, err error) {
	switch {
	case dirPath != "":
		if allRoot != "" || len(args) > 0 {
			return "", "", nil, fmt.Errorf("--dir cannot be combined with --all or positional arguments")
		}
		return "dir", dirPath, nil, nil
	case allRoot != "":
		if len(args) > 0 {
			return "", "", nil, fmt.Errorf("--all cannot be combined with positional arguments")
		}
		return "all", allRoot, nil, nil
	default:
		if len(args) < 2 {
			return "", "", nil, fmt.Errorf("expected a root directory and at least one date key (or use --dir / --all)")
		}
		return "date", args[0], args[1:], nil
	}
}

func resolveFolders(scanner *scan.Scanner, mode, root string, keys []string) ([]domain.IssueFolder, error) {
	sp := ui.NewSpinner("Scanning for issue folders...")
	sp.Start()

	switch mode {
	case "dir":
		folder, err := scanner.ScanDir(root)
		sp.Stop()
		if err != nil {
			return nil, err
		}
		return []domain.IssueFolder{folder}, nil

	case "all":
		folders, err := scanner.Discover(root)
		sp.Stop()
		return folders, err

	default:
		// Collect every key's candidates first so prompting never races
		// the spinner.
		type keyMatches struct {
			key     string
			folders []domain.IssueFolder
		}
		matches := make([]keyMatches, 0, len(keys))
		for _, key := range keys {
			found, err := scanner.FindByDate(root, key)
			if err != nil {
				sp.Stop()
				return nil, err
			}
			matches = append(matches, keyMatches{key: key, folders: found})
		}
		sp.Stop()

		var selected []domain.IssueFolder
		for _, m := range matches {
			if len(m.folders) == 0 {
				ui.Warning("No issue folder matches %s under %s", m.key, root)
				continue
			}
			selected = append(selected, chooseCandidate(m.key, m.folders))
		}
		return selected, nil
	}
}

// chooseCandidate picks one folder when a date key matches several. It prompts
// on a terminal and falls back to the first candidate otherwise, since each
// key maps to a single output document.
func chooseCandidate(key string, matches []domain.IssueFolder) domain.IssueFolder {
	if len(matches) == 1 {
		return matches[0]
	}
	if ui.IsInteractive() {
		choices := make([]string, len(matches))
		for i, m := range matches {
			choices[i] = m.Path
		}
		idx, err := ui.PromptChoice(fmt.Sprintf("Multiple folders match %s:", key), choices)
		if err == nil {
			return matches[idx]
		}
		ui.Warning("Invalid selection: %v", err)
	}
	ui.Warning("Multiple folders match %s, using %s", key, matches[0].Path)
	return matches[0]
}

func printSummary(outcomes []domain.ConversionOutcome, elapsed time.Duration, logPath string) {
	counts := bind.Summarize(outcomes)

	statusOrder := []domain.Status{
		domain.StatusConverted,
		domain.StatusConvertedWithOCR,
		domain.StatusAlreadyExists,
		domain.StatusSkipped,
		domain.StatusFailed,
	}
	statusLabels := map[domain.Status]string{
		domain.StatusConverted:        "Converted",
		domain.StatusConvertedWithOCR: "Converted with OCR",
		domain.StatusAlreadyExists:    "Already exists",
		domain.StatusSkipped:          "Skipped",
		domain.StatusFailed:           "Failed",
	}

	ui.Section("Conversion Summary")
	var rows [][]string
	for _, st := range statusOrder {
		if counts[st] == 0 {
			continue
		}
		rows = append(rows, []string{st.Symbol() + " " + statusLabels[st], fmt.Sprintf("%d", counts[st])})
	}
	rows = append(rows, []string{"Total", fmt.Sprintf("%d", len(outcomes))})
	ui.Table([]string{"Status", "Count"}, rows)
	ui.Newline()
	ui.Info("Total time: %s", ui.FormatDuration(elapsed))

	failed := counts[domain.StatusFailed]
	if failed == 0 {
		return
	}
	if verbose {
		ui.Newline()
		for _, o := range outcomes {
			if o.Status == domain.StatusFailed {
				ui.Error("%s: %s", o.IssuePath, o.ErrorDetail)
			}
		}
		return
	}
	if logPath != "" {
		ui.Warning("%d conversion(s) failed - details in %s", failed, logPath)
		return
	}
	ui.Warning("%d conversion(s) failed - rerun with --verbose for details", failed)
}

// recordHistory persists the run in the ledger. Ledger trouble never fails a
// conversion run, it only logs a warning.
func recordHistory(cfg *config.Config, logger *observability.Logger, run history.Run, outcomes []domain.ConversionOutcome) {
	if !cfg.History.Enabled {
		return
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.History.Path).Msg("history ledger unavailable")
		return
	}
	defer store.Close()

	run = history.SummarizeRun(run, outcomes)
	if err := store.RecordRun(context.Background(), run, outcomes); err != nil {
		logger.Warn().Err(err).Msg("failed to record run in history ledger")
	}
}
