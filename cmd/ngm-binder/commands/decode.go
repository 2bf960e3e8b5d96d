package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/mbelgin/ngm-binder/cmd/ngm-binder/ui"
	"github.com/mbelgin/ngm-binder/internal/cng"
	"github.com/mbelgin/ngm-binder/internal/domain"
)

var decodeRemove bool

var decodeCmd = &cobra.Command{
	Use:   "decode <folder>",
	Short: "Decode CNG files in a folder back to plain images",
	Long: `decode rewrites every CNG file directly inside the given folder as its
plain JPEG or PNG sibling. Other files are left untouched and subfolders are
not entered.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().BoolVarP(&decodeRemove, "remove", "r", false, "delete each CNG file after writing its sibling")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	ui.InitUI(noColor, verbose)

	folder := args[0]
	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", folder, err)
	}

	var targets []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if kind, ok := cng.Classify(e.Name()); ok && kind == domain.KindProprietaryEncoded {
			targets = append(targets, filepath.Join(folder, e.Name()))
		}
	}
	sort.Strings(targets)

	if len(targets) == 0 {
		ui.Info("No CNG files in %s", folder)
		return nil
	}

	var progress *mpb.Progress
	var bar *mpb.Bar
	if ui.IsTerminal() && !verbose {
		progress = mpb.New(mpb.WithWidth(64))
		bar = progress.AddBar(int64(len(targets)),
			mpb.PrependDecorators(
				decor.Name("Decoding", decor.WC{W: len("Decoding") + 1, C: decor.DSyncSpaceR}),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Percentage(decor.WC{W: 5}),
				decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 12}),
			),
		)
	}

	decoded, failed := 0, 0
	for _, path := range targets {
		sibling, err := cng.DecodeToSibling(path)
		switch {
		case err != nil:
			failed++
			ui.Warning("%s: %v", filepath.Base(path), err)
		default:
			decoded++
			if verbose {
				ui.Message("%s -> %s", filepath.Base(path), filepath.Base(sibling))
			}
			if decodeRemove {
				if err := os.Remove(path); err != nil {
					ui.Warning("Could not remove %s: %v", filepath.Base(path), err)
				}
			}
		}
		if bar != nil {
			bar.Increment()
		}
	}
	if progress != nil {
		progress.Wait()
	}

	ui.Newline()
	ui.Success("Decoded %d of %d file(s)", decoded, len(targets))
	if failed > 0 {
		ui.Warning("%d file(s) could not be decoded", failed)
	}
	return nil
}
