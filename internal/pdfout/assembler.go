package pdfout

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	_ "image/jpeg"
	_ "image/png"

	"github.com/signintech/gopdf"

	"github.com/mbelgin/ngm-binder/internal/domain"
	"github.com/mbelgin/ngm-binder/internal/observability"
)

// Assembler composes ordered raster pages into a single PDF. Each document
// page takes the pixel dimensions of its source image at one point per
// pixel, so scans keep their native aspect ratio and resolution.
type Assembler struct {
	logger *observability.Logger
}

// NewAssembler creates a PDF assembler.
func NewAssembler(logger *observability.Logger) *Assembler {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Assembler{logger: logger}
}

// Assemble implements domain.Assembler. Pages carrying an OCR'd single-page
// PDF are imported from it so the hidden text layer survives; a page whose
// OCR artifact cannot be imported falls back to its raster bytes instead of
// failing the document.
func (a *Assembler) Assemble(ctx context.Context, pages []domain.Page, w io.Writer) (domain.AssemblyStats, error) {
	var stats domain.AssemblyStats
	if len(pages) == 0 {
		return stats, domain.AssemblyError("no pages to assemble", nil)
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{Unit: gopdf.UnitPT, PageSize: *gopdf.PageSizeA4})

	for i, page := range pages {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		cfg, _, err := image.DecodeConfig(bytes.NewReader(page.Data))
		if err != nil {
			return stats, domain.AssemblyError(fmt.Sprintf("page %d is not a decodable raster", i+1), err)
		}
		rect := gopdf.Rect{W: float64(cfg.Width), H: float64(cfg.Height)}
		pdf.AddPageWithOption(gopdf.PageOption{PageSize: &rect})

		if page.OCRPDF != "" {
			err := importOCRPage(pdf, page.OCRPDF, rect)
			if err == nil {
				stats.Pages++
				stats.OCRPages++
				continue
			}
			a.logger.Warn().
				Str("ocr_pdf", page.OCRPDF).
				Int("page", i+1).
				Err(err).
				Msg("OCR page import failed, embedding raster without text layer")
		}

		holder, err := gopdf.ImageHolderByBytes(page.Data)
		if err != nil {
			return stats, domain.AssemblyError(fmt.Sprintf("stage page %d image", i+1), err)
		}
		if err := pdf.ImageByHolder(holder, 0, 0, &rect); err != nil {
			return stats, domain.AssemblyError(fmt.Sprintf("place page %d image", i+1), err)
		}
		stats.Pages++
	}

	if err := pdf.Write(w); err != nil {
		return stats, domain.AssemblyError("write PDF stream", err)
	}
	return stats, nil
}

// importOCRPage lays the first page of an OCR'd PDF onto the current page.
// The underlying importer panics on malformed sources, so recover converts
// that into an ordinary error.
func importOCRPage(pdf *gopdf.GoPdf, src string, rect gopdf.Rect) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.AssemblyError(fmt.Sprintf("import %s: %v", src, r), nil)
		}
	}()
	tpl := pdf.ImportPage(src, 1, "/MediaBox")
	pdf.UseImportedTemplate(tpl, 0, 0, rect.W, rect.H)
	return nil
}
