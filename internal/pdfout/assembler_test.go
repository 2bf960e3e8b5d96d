package pdfout

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbelgin/ngm-binder/internal/domain"
)

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestAssembler_Assemble_ProducesOnePagePerImage(t *testing.T) {
	pages := []domain.Page{
		{Data: makeJPEG(t, 40, 60)},
		{Data: makeJPEG(t, 32, 32)},
		{Data: makeJPEG(t, 60, 40)},
	}

	var out bytes.Buffer
	stats, err := NewAssembler(nil).Assemble(context.Background(), pages, &out)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Pages)
	assert.Zero(t, stats.OCRPages)
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF-")))
	assert.Contains(t, out.String(), "/Count 3")
}

func TestAssembler_Assemble_EmptyPagesFails(t *testing.T) {
	var out bytes.Buffer
	_, err := NewAssembler(nil).Assemble(context.Background(), nil, &out)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorTypeAssembly, de.Type)
}

func TestAssembler_Assemble_UndecodablePageFails(t *testing.T) {
	pages := []domain.Page{
		{Data: makeJPEG(t, 20, 20)},
		{Data: []byte("not an image at all")},
	}

	var out bytes.Buffer
	_, err := NewAssembler(nil).Assemble(context.Background(), pages, &out)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorTypeAssembly, de.Type)
}

func TestAssembler_Assemble_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := []domain.Page{{Data: makeJPEG(t, 20, 20)}}
	var out bytes.Buffer
	_, err := NewAssembler(nil).Assemble(ctx, pages, &out)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssembler_Assemble_BrokenOCRArtifactFallsBackToRaster(t *testing.T) {
	pages := []domain.Page{
		{
			Data:   makeJPEG(t, 40, 60),
			OCRPDF: filepath.Join(t.TempDir(), "missing.ocr.pdf"),
		},
	}

	var out bytes.Buffer
	stats, err := NewAssembler(nil).Assemble(context.Background(), pages, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Pages)
	assert.Zero(t, stats.OCRPages)
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF-")))
}
