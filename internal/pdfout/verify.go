package pdfout

import (
	"fmt"

	"github.com/gen2brain/go-fitz"

	"github.com/mbelgin/ngm-binder/internal/domain"
)

// FitzVerifier re-opens an assembled document with MuPDF and confirms it
// parses with the expected page count before the checkpoint promotes it.
type FitzVerifier struct{}

// NewFitzVerifier creates a MuPDF-backed verifier.
func NewFitzVerifier() *FitzVerifier {
	return &FitzVerifier{}
}

// Verify implements domain.Verifier.
func (v *FitzVerifier) Verify(path string, wantPages int) error {
	doc, err := fitz.New(path)
	if err != nil {
		return domain.AssemblyError(fmt.Sprintf("verify %s: document does not parse", path), err)
	}
	defer doc.Close()

	if got := doc.NumPage(); got != wantPages {
		return domain.AssemblyError(fmt.Sprintf("verify %s: %d pages in document, expected %d", path, got, wantPages), nil)
	}
	return nil
}
