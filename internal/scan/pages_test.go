package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbelgin/ngm-binder/internal/domain"
)

func TestCollectEntries_ClassifiesAndFlagsExtras(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "NGM_199412_001.jpg")
	touch(t, dir, "NGM_199412_002.cng")
	touch(t, dir, "cover_note.jpg")
	touch(t, dir, "checksums.txt")

	entries, err := CollectEntries(dir, "NGM_199412")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byName := map[string]domain.ImageEntry{}
	for _, e := range entries {
		byName[e.SortKey] = e
	}

	assert.Equal(t, domain.KindStandardRaster, byName["NGM_199412_001.jpg"].Kind)
	assert.False(t, byName["NGM_199412_001.jpg"].Extra)

	assert.Equal(t, domain.KindProprietaryEncoded, byName["NGM_199412_002.cng"].Kind)
	assert.False(t, byName["NGM_199412_002.cng"].Extra)

	assert.True(t, byName["cover_note.jpg"].Extra)
}

func TestCollectEntries_PrefixMatchIsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "ngm_199412_001.JPG")

	entries, err := CollectEntries(dir, "NGM_199412")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Extra)
}

func TestCollectEntries_EmptyPrefixTreatsAllAsCanonical(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "zz_last.jpg")
	touch(t, dir, "aa_first.jpg")

	entries, err := CollectEntries(dir, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.False(t, e.Extra)
	}
}

func TestCollectEntries_DepthOneFallback(t *testing.T) {
	dir := t.TempDir()
	disc := filepath.Join(dir, "disc1")
	deeper := filepath.Join(disc, "deeper")
	require.NoError(t, os.MkdirAll(deeper, 0o755))

	touch(t, disc, "NGM_199412_001.jpg")
	touch(t, disc, "NGM_199412_002.jpg")
	touch(t, deeper, "NGM_199412_900.jpg") // below the fallback depth, ignored

	entries, err := CollectEntries(dir, "NGM_199412")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, disc, filepath.Dir(e.Path))
	}
}

func TestCollectEntries_NoFallbackWhenTopLevelHasImages(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "bonus")
	require.NoError(t, os.Mkdir(sub, 0o755))

	touch(t, dir, "NGM_199412_001.jpg")
	touch(t, sub, "NGM_199412_500.jpg")

	entries, err := CollectEntries(dir, "NGM_199412")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "NGM_199412_001.jpg", entries[0].SortKey)
}

func TestCollectEntries_EmptyFolder(t *testing.T) {
	entries, err := CollectEntries(t.TempDir(), "NGM_199412")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCollectEntries_MissingFolder(t *testing.T) {
	_, err := CollectEntries(filepath.Join(t.TempDir(), "absent"), "")
	require.Error(t, err)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorTypeIO, de.Type)
}

func TestOrder_CanonicalBeforeExtras(t *testing.T) {
	entries := []domain.ImageEntry{
		{SortKey: "NGM_199412_001.jpg"},
		{SortKey: "NGM_199412_010.jpg"},
		{SortKey: "NGM_199412_002.jpg"},
		{SortKey: "cover_note.jpg", Extra: true},
	}

	ordered := Order(entries)

	got := make([]string, len(ordered))
	for i, e := range ordered {
		got[i] = e.SortKey
	}
	assert.Equal(t, []string{
		"NGM_199412_001.jpg",
		"NGM_199412_002.jpg",
		"NGM_199412_010.jpg",
		"cover_note.jpg",
	}, got)
}

func TestOrder_ExtrasSortAmongThemselves(t *testing.T) {
	entries := []domain.ImageEntry{
		{SortKey: "z_appendix.jpg", Extra: true},
		{SortKey: "NGM_199412_001.jpg"},
		{SortKey: "a_insert.jpg", Extra: true},
	}

	ordered := Order(entries)

	require.Len(t, ordered, 3)
	assert.Equal(t, "NGM_199412_001.jpg", ordered[0].SortKey)
	assert.Equal(t, "a_insert.jpg", ordered[1].SortKey)
	assert.Equal(t, "z_appendix.jpg", ordered[2].SortKey)
}

func TestOrder_ExtrasOnlySequenceIsValid(t *testing.T) {
	entries := []domain.ImageEntry{
		{SortKey: "b.jpg", Extra: true},
		{SortKey: "a.jpg", Extra: true},
	}

	ordered := Order(entries)

	require.Len(t, ordered, 2)
	assert.Equal(t, "a.jpg", ordered[0].SortKey)
	assert.Equal(t, "b.jpg", ordered[1].SortKey)
}

func TestOrder_Empty(t *testing.T) {
	assert.Empty(t, Order(nil))
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{0xFF}, 0o644))
}
