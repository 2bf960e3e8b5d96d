package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfgFile string
	verbose bool
	noColor bool

	dirPath   string
	allRoot   string
	outputDir string
	jobs      int
	withOCR   bool
	removeSrc bool
)

var rootCmd = &cobra.Command{
	Use:   "ngm-binder ROOT YYYYMM [YYYYMM...]",
	Short: "Bind scanned magazine issue folders into page-ordered PDFs",
	Long: `ngm-binder converts directory trees of scanned magazine pages into one
page-ordered PDF per issue. It handles plain JPEG/PNG scans as well as the
XOR-obfuscated CNG disc format, can attach a searchable OCR text layer, and
writes each document through a checkpoint so the final path never holds a
partial file.

Issues are selected by date key (ngm-binder /discs 199412 199501), by exact
folder (--dir), or by scanning a whole tree (--all).`,
	Args: cobra.ArbitraryArgs,
	RunE: runConvert,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.Flags().StringVar(&dirPath, "dir", "", "convert exactly this issue folder")
	rootCmd.Flags().StringVar(&allRoot, "all", "", "convert every issue folder found under this root")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for produced PDFs (default current directory)")
	rootCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "number of issues converted in parallel (default 4)")
	rootCmd.Flags().BoolVar(&withOCR, "ocr", false, "add a searchable text layer via tesseract")
	rootCmd.Flags().BoolVarP(&removeSrc, "remove", "r", false, "delete CNG sources after successful conversion")

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagAliases)
}

// normalizeFlagAliases keeps --delete working as an alias for --remove.
func normalizeFlagAliases(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "delete" {
		name = "remove"
	}
	return pflag.NormalizedName(name)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
