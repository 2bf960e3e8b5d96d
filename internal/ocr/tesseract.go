package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mbelgin/ngm-binder/internal/domain"
	"github.com/mbelgin/ngm-binder/internal/observability"
)

// Tesseract runs the system tesseract binary to produce searchable pages.
type Tesseract struct {
	binary    string
	language  string
	extraArgs []string
	timeout   time.Duration
	logger    *observability.Logger
}

// NewTesseract builds an engine around the tesseract binary. An empty binary
// falls back to $PATH lookup, an empty language to eng. extraArgs are passed
// through to every invocation, for --psm and --dpi style tuning.
func NewTesseract(binary, language string, extraArgs []string, timeout time.Duration, logger *observability.Logger) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Tesseract{
		binary:    binary,
		language:  language,
		extraArgs: extraArgs,
		timeout:   timeout,
		logger:    logger,
	}
}

// Available checks that the binary resolves and runs.
func (t *Tesseract) Available() error {
	path, err := exec.LookPath(t.binary)
	if err != nil {
		return domain.OCRError(fmt.Sprintf("tesseract binary %q not found", t.binary), err)
	}

	out, err := exec.Command(path, "--version").CombinedOutput()
	if err != nil {
		return domain.OCRError(fmt.Sprintf("tesseract not runnable: %s", firstLine(out)), err)
	}
	return nil
}

// RecognizePDF invokes tesseract's pdf renderer on one page image. The
// produced PDF embeds the page image together with its hidden text layer.
func (t *Tesseract) RecognizePDF(ctx context.Context, imagePath, outDir string) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	base := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	outBase := filepath.Join(outDir, base+".ocr")

	args := []string{imagePath, outBase, "-l", t.language}
	args = append(args, t.extraArgs...)
	args = append(args, "pdf")
	cmd := exec.CommandContext(ctx, t.binary, args...)

	t.logger.Debug().
		Str("image", imagePath).
		Str("out_base", outBase).
		Msg("Running tesseract")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", domain.OCRError(fmt.Sprintf("tesseract failed on %s: %s", filepath.Base(imagePath), firstLine(output)), err)
	}

	pdfPath := outBase + ".pdf"
	if _, err := os.Stat(pdfPath); err != nil {
		return "", domain.OCRError(fmt.Sprintf("tesseract produced no output for %s", filepath.Base(imagePath)), err)
	}
	return pdfPath, nil
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
