package cng

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbelgin/ngm-binder/internal/domain"
)

func TestTransform_SelfInverse(t *testing.T) {
	// Every byte value must round-trip through a double transform
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	once := Transform(data)
	twice := Transform(once)

	assert.Equal(t, data, twice)
	assert.NotEqual(t, data, once)
}

func TestTransform_KnownMask(t *testing.T) {
	out := Transform([]byte{0x00, 0xEF, 0xFF})

	assert.Equal(t, []byte{0xEF, 0x00, 0x10}, out)
}

func TestTransform_DoesNotMutateInput(t *testing.T) {
	data := []byte{1, 2, 3}
	_ = Transform(data)

	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		wantKind domain.PageKind
		wantOK   bool
	}{
		{"NGM_199412_001.jpg", domain.KindStandardRaster, true},
		{"NGM_199412_001.JPG", domain.KindStandardRaster, true},
		{"page.jpeg", domain.KindStandardRaster, true},
		{"map_overlay.png", domain.KindStandardRaster, true},
		{"NGM_199412_002.cng", domain.KindProprietaryEncoded, true},
		{"NGM_199412_002.CNG", domain.KindProprietaryEncoded, true},
		{"notes.txt", "", false},
		{"thumbs.db", "", false},
		{"noextension", "", false},
	}

	for _, tc := range tests {
		kind, ok := Classify(tc.name)
		assert.Equal(t, tc.wantOK, ok, tc.name)
		assert.Equal(t, tc.wantKind, kind, tc.name)
	}
}

func TestDecodeFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	raster := encodeTestJPEG(t)

	cngPath := filepath.Join(dir, "NGM_199412_001.cng")
	require.NoError(t, os.WriteFile(cngPath, Encode(raster), 0o644))

	decoded, err := DecodeFile(cngPath)
	require.NoError(t, err)
	assert.Equal(t, raster, decoded)
}

func TestDecodeFile_CorruptPayload(t *testing.T) {
	dir := t.TempDir()
	cngPath := filepath.Join(dir, "broken.cng")
	require.NoError(t, os.WriteFile(cngPath, []byte("not an image at all"), 0o644))

	_, err := DecodeFile(cngPath)
	require.Error(t, err)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorTypeDecode, de.Type)
}

func TestDecodeFile_MissingFile(t *testing.T) {
	_, err := DecodeFile(filepath.Join(t.TempDir(), "absent.cng"))
	require.Error(t, err)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorTypeIO, de.Type)
}

func TestDecodeToSibling_JPEG(t *testing.T) {
	dir := t.TempDir()
	raster := encodeTestJPEG(t)

	cngPath := filepath.Join(dir, "NGM_199412_003.cng")
	require.NoError(t, os.WriteFile(cngPath, Encode(raster), 0o644))

	sibling, err := DecodeToSibling(cngPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "NGM_199412_003.jpg"), sibling)

	written, err := os.ReadFile(sibling)
	require.NoError(t, err)
	assert.Equal(t, raster, written)

	// No temp artifacts may remain next to the sibling
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDecodeToSibling_PNGSignature(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	require.NoError(t, png.Encode(&buf, img))

	cngPath := filepath.Join(dir, "chart.cng")
	require.NoError(t, os.WriteFile(cngPath, Encode(buf.Bytes()), 0o644))

	sibling, err := DecodeToSibling(cngPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chart.png"), sibling)
}

func TestDecodeToSibling_CorruptSourceLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	cngPath := filepath.Join(dir, "bad.cng")
	require.NoError(t, os.WriteFile(cngPath, []byte("garbage"), 0o644))

	_, err := DecodeToSibling(cngPath)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1) // only the source
}

// encodeTestJPEG renders a small solid JPEG for fixtures.
func encodeTestJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 180, B: 40, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}
