// Package cng implements the XOR-obfuscated CNG page format used by the
// magazine archive discs, and the classification of page source files.
package cng

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/mbelgin/ngm-binder/internal/domain"
)

// Mask is the single-byte XOR mask applied to every byte of a CNG file.
const Mask byte = 239

// Ext is the proprietary file extension.
const Ext = ".cng"

// rasterExts are the standard raster extensions accepted as page sources.
var rasterExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Transform XORs every byte with the CNG mask. The transform is its own
// inverse: applying it twice returns the original bytes.
func Transform(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ Mask
	}
	return out
}

// Decode recovers standard raster bytes from CNG bytes.
func Decode(data []byte) []byte {
	return Transform(data)
}

// Encode obfuscates raster bytes back into CNG form.
func Encode(data []byte) []byte {
	return Transform(data)
}

// Classify maps a filename to its page source kind. The second result is
// false for files that are not page sources at all. Classification is by
// extension only, never by content.
func Classify(name string) (domain.PageKind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == Ext:
		return domain.KindProprietaryEncoded, true
	case rasterExts[ext]:
		return domain.KindStandardRaster, true
	default:
		return "", false
	}
}

// DecodeFile reads a CNG file and returns the decoded raster bytes. The
// decoded bytes must parse as a raster image header or the file is rejected
// as a per-file decode failure.
func DecodeFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("read %s", filepath.Base(path)), err)
	}
	decoded := Transform(data)
	if _, _, err := image.DecodeConfig(bytes.NewReader(decoded)); err != nil {
		return nil, domain.DecodeError(fmt.Sprintf("%s does not decode to a raster image", filepath.Base(path)), err)
	}
	return decoded, nil
}

// SniffExt returns the raster extension implied by the image signature in
// data, or an empty string when data carries no recognizable signature.
func SniffExt(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	if format == "png" {
		return ".png"
	}
	return ".jpg"
}

// DecodeToSibling decodes a CNG file and writes the raster next to it, using
// the extension implied by the decoded image signature. The write goes
// through a temp file in the same directory and is renamed into place only
// on success, so a partial sibling is never observable.
func DecodeToSibling(path string) (string, error) {
	decoded, err := DecodeFile(path)
	if err != nil {
		return "", err
	}

	ext := SniffExt(decoded)
	if ext == "" {
		return "", domain.DecodeError(fmt.Sprintf("%s does not decode to a raster image", filepath.Base(path)), nil)
	}

	target := strings.TrimSuffix(path, filepath.Ext(path)) + ext
	dir := filepath.Dir(target)

	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".tmp.*")
	if err != nil {
		return "", domain.IOError("create temp sibling", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(decoded); err != nil {
		return "", domain.IOError("write decoded sibling", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", domain.IOError("sync decoded sibling", err)
	}
	if err := tmp.Close(); err != nil {
		return "", domain.IOError("close decoded sibling", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", domain.IOError("chmod decoded sibling", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", domain.IOError("promote decoded sibling", err)
	}
	committed = true

	return target, nil
}
