package pdfout

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbelgin/ngm-binder/internal/domain"
)

func assembleToFile(t *testing.T, pageCount int) string {
	t.Helper()
	pages := make([]domain.Page, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		pages = append(pages, domain.Page{Data: makeJPEG(t, 30, 40)})
	}

	path := filepath.Join(t.TempDir(), "out.pdf")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = NewAssembler(nil).Assemble(context.Background(), pages, f)
	require.NoError(t, err)
	return path
}

func TestFitzVerifier_AcceptsMatchingPageCount(t *testing.T) {
	path := assembleToFile(t, 2)
	assert.NoError(t, NewFitzVerifier().Verify(path, 2))
}

func TestFitzVerifier_RejectsWrongPageCount(t *testing.T) {
	path := assembleToFile(t, 2)

	err := NewFitzVerifier().Verify(path, 3)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorTypeAssembly, de.Type)
}

func TestFitzVerifier_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a document"), 0o644))

	assert.Error(t, NewFitzVerifier().Verify(path, 1))
}
