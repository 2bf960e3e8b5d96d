// Package ocr abstracts the optical character recognition capability used to
// produce searchable pages.
package ocr

import "context"

// Engine produces an OCR'd, searchable single-page PDF from a raster page.
type Engine interface {
	// Available probes whether the engine can run at all. A non-nil error
	// marks the whole OCR capability unusable for the run.
	Available() error

	// RecognizePDF runs OCR over the image at imagePath and writes a
	// single-page searchable PDF under outDir, returning its path.
	RecognizePDF(ctx context.Context, imagePath, outDir string) (string, error)
}
