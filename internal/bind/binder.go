// Package bind converts discovered issue folders into final PDF documents
// and schedules the conversions across workers.
package bind

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"

	"github.com/mbelgin/ngm-binder/internal/cng"
	"github.com/mbelgin/ngm-binder/internal/domain"
	"github.com/mbelgin/ngm-binder/internal/observability"
	"github.com/mbelgin/ngm-binder/internal/ocr"
	"github.com/mbelgin/ngm-binder/internal/pdfout"
	"github.com/mbelgin/ngm-binder/internal/scan"
)

// IssueBinder converts one issue folder into its final document.
type IssueBinder interface {
	Bind(ctx context.Context, folder domain.IssueFolder) domain.ConversionOutcome
}

// BinderConfig carries the output and processing knobs for a Binder.
type BinderConfig struct {
	OutputDir        string
	FilePrefix       string // final name is FilePrefix + key + ".pdf"
	CheckpointSuffix string
	IssuePrefix      string // canonical page names start with IssuePrefix + date key
	RemoveSources    bool   // delete encoded source files after a successful conversion
}

// Binder runs the full conversion of one issue folder: collect and order
// pages, decode proprietary ones, optionally OCR, assemble, verify, and
// promote the checkpoint. Every failure is contained in the returned
// outcome; Bind never lets one issue take down the run.
type Binder struct {
	assembler domain.Assembler
	verifier  domain.Verifier // nil skips pre-promotion verification
	engine    ocr.Engine      // nil disables OCR
	cfg       BinderConfig
	logger    *observability.Logger
}

// NewBinder creates a Binder. A nil engine disables OCR, a nil verifier
// skips the page-count check before promotion.
func NewBinder(assembler domain.Assembler, verifier domain.Verifier, engine ocr.Engine, cfg BinderConfig, logger *observability.Logger) *Binder {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.FilePrefix == "" {
		cfg.FilePrefix = "NGM_"
	}
	if cfg.CheckpointSuffix == "" {
		cfg.CheckpointSuffix = pdfout.DefaultCheckpointSuffix
	}
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Binder{
		assembler: assembler,
		verifier:  verifier,
		engine:    engine,
		cfg:       cfg,
		logger:    logger,
	}
}

// pageImage pairs a collected entry with its decoded raster bytes.
type pageImage struct {
	entry domain.ImageEntry
	data  []byte
}

// Bind implements IssueBinder.
func (b *Binder) Bind(ctx context.Context, folder domain.IssueFolder) (outcome domain.ConversionOutcome) {
	start := time.Now()
	outcome = domain.ConversionOutcome{
		JobID:     uuid.New().String(),
		IssuePath: folder.Path,
	}
	defer func() {
		if r := recover(); r != nil {
			outcome.Status = domain.StatusFailed
			outcome.ErrorDetail = fmt.Sprintf("panic: %v", r)
			b.logger.Error().
				Str("issue", folder.Path).
				Str("job_id", outcome.JobID).
				Msgf("recovered from panic: %v", r)
		}
		outcome.Duration = time.Since(start)
	}()

	log := b.logger.With().
		Str("issue", folder.Path).
		Str("job_id", outcome.JobID).
		Logger()

	entries, err := scan.CollectEntries(folder.Path, b.canonicalPrefix(folder))
	if err != nil {
		return b.fail(outcome, err)
	}
	if len(entries) == 0 {
		log.Info().Msg("no eligible page images, skipping")
		outcome.Status = domain.StatusSkipped
		return outcome
	}

	finalPath := b.OutputPath(folder)
	outcome.OutputPath = finalPath
	if _, err := os.Stat(finalPath); err == nil {
		log.Info().Str("output", finalPath).Msg("output already present")
		outcome.Status = domain.StatusAlreadyExists
		return outcome
	}

	ordered := scan.Order(entries)
	loaded, err := b.loadPages(ctx, log, ordered)
	if err != nil {
		return b.fail(outcome, err)
	}
	if len(loaded) == 0 {
		return b.fail(outcome, domain.DecodeError(
			fmt.Sprintf("all %d pages failed to decode", len(ordered)), nil))
	}

	pages := make([]domain.Page, len(loaded))
	for i, pi := range loaded {
		pages[i] = domain.Page{Data: pi.data}
	}

	if b.engine != nil {
		if err := b.engine.Available(); err != nil {
			return b.fail(outcome, err)
		}
		cleanup, err := b.attachOCR(ctx, log, loaded, pages)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			return b.fail(outcome, err)
		}
	}

	cp, err := pdfout.Begin(finalPath, b.cfg.CheckpointSuffix)
	if err != nil {
		return b.fail(outcome, err)
	}
	defer cp.Abort()

	stats, err := b.assembler.Assemble(ctx, pages, cp.File())
	if err != nil {
		return b.fail(outcome, err)
	}
	if b.verifier != nil {
		if err := b.verifier.Verify(cp.Path(), stats.Pages); err != nil {
			return b.fail(outcome, err)
		}
	}
	if err := cp.Commit(); err != nil {
		return b.fail(outcome, err)
	}

	if b.cfg.RemoveSources {
		b.removeEncodedSources(log, ordered)
	}

	outcome.Pages = stats.Pages
	outcome.OCRPages = stats.OCRPages
	outcome.Status = domain.StatusConverted
	if stats.OCRPages > 0 {
		outcome.Status = domain.StatusConvertedWithOCR
	}
	log.Info().
		Str("output", finalPath).
		Int("pages", stats.Pages).
		Int("ocr_pages", stats.OCRPages).
		Dur("elapsed", time.Since(start)).
		Msg("issue converted")
	return outcome
}

// OutputPath returns the final document path for a folder. Folders without
// a derivable date key fall back to their sanitized base name.
func (b *Binder) OutputPath(folder domain.IssueFolder) string {
	key := folder.DateKey
	if key == "" {
		key = sanitizeName(filepath.Base(folder.Path))
	}
	return filepath.Join(b.cfg.OutputDir, b.cfg.FilePrefix+key+".pdf")
}

// canonicalPrefix is the filename prefix that marks ordinary pages. Folders
// without a date key get an empty prefix, which makes every page canonical.
func (b *Binder) canonicalPrefix(folder domain.IssueFolder) string {
	if folder.DateKey == "" {
		return ""
	}
	return b.cfg.IssuePrefix + folder.DateKey
}

// loadPages reads and decodes every ordered entry. Pages that fail to
// decode are dropped with a warning; only context cancellation aborts the
// pass entirely.
func (b *Binder) loadPages(ctx context.Context, log *observability.Logger, ordered []domain.ImageEntry) ([]pageImage, error) {
	loaded := make([]pageImage, 0, len(ordered))
	for _, entry := range ordered {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var data []byte
		var err error
		switch entry.Kind {
		case domain.KindProprietaryEncoded:
			data, err = cng.DecodeFile(entry.Path)
		default:
			data, err = readRaster(entry.Path)
		}
		if err != nil {
			log.Warn().Str("page", entry.Path).Err(err).Msg("page dropped, decode failed")
			continue
		}
		loaded = append(loaded, pageImage{entry: entry, data: data})
	}
	return loaded, nil
}

// attachOCR runs the OCR engine over every loaded page and records the
// produced single-page PDFs on pages. Recognition failures degrade the
// affected page to non-searchable. The returned cleanup removes the
// working directory holding the OCR artifacts and must run only after
// assembly has consumed them.
func (b *Binder) attachOCR(ctx context.Context, log *observability.Logger, loaded []pageImage, pages []domain.Page) (func(), error) {
	workDir, err := os.MkdirTemp("", "ngm-ocr-")
	if err != nil {
		return nil, domain.IOError("create OCR working directory", err)
	}
	cleanup := func() { os.RemoveAll(workDir) }

	for i := range loaded {
		select {
		case <-ctx.Done():
			return cleanup, ctx.Err()
		default:
		}

		imgPath, err := b.materialize(loaded[i], workDir, i)
		if err != nil {
			log.Warn().Str("page", loaded[i].entry.Path).Err(err).Msg("page stays non-searchable, staging failed")
			continue
		}
		ocrPath, err := b.engine.RecognizePDF(ctx, imgPath, workDir)
		if err != nil {
			log.Warn().Str("page", loaded[i].entry.Path).Err(err).Msg("page stays non-searchable, recognition failed")
			continue
		}
		pages[i].OCRPDF = ocrPath
	}
	return cleanup, nil
}

// materialize writes one page image into the OCR working directory under a
// collision-free name and returns its path.
func (b *Binder) materialize(pi pageImage, workDir string, idx int) (string, error) {
	ext := cng.SniffExt(pi.data)
	if ext == "" {
		return "", domain.DecodeError(fmt.Sprintf("%s has no recognizable raster signature", filepath.Base(pi.entry.Path)), nil)
	}
	path := filepath.Join(workDir, fmt.Sprintf("page_%04d%s", idx+1, ext))
	if err := os.WriteFile(path, pi.data, 0o644); err != nil {
		return "", domain.IOError("stage page for OCR", err)
	}
	return path, nil
}

// removeEncodedSources deletes the proprietary source files of a committed
// issue. Removal failures only warn, the output is already in place.
func (b *Binder) removeEncodedSources(log *observability.Logger, entries []domain.ImageEntry) {
	for _, entry := range entries {
		if entry.Kind != domain.KindProprietaryEncoded {
			continue
		}
		if err := os.Remove(entry.Path); err != nil {
			log.Warn().Str("page", entry.Path).Err(err).Msg("could not remove encoded source")
			continue
		}
		log.Debug().Str("page", entry.Path).Msg("removed encoded source")
	}
}

func (b *Binder) fail(outcome domain.ConversionOutcome, err error) domain.ConversionOutcome {
	outcome.Status = domain.StatusFailed
	outcome.ErrorDetail = err.Error()
	b.logger.Error().
		Str("issue", outcome.IssuePath).
		Str("job_id", outcome.JobID).
		Err(err).
		Msg("issue conversion failed")
	return outcome
}

// readRaster reads a standard raster file and checks that it actually
// carries a decodable image header.
func readRaster(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("read %s", filepath.Base(path)), err)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, domain.DecodeError(fmt.Sprintf("%s does not decode to a raster image", filepath.Base(path)), err)
	}
	return data, nil
}

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// sanitizeName reduces a folder base name to characters safe in an output
// filename.
func sanitizeName(name string) string {
	return unsafeNameRe.ReplaceAllString(name, "_")
}
