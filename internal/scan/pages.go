package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mbelgin/ngm-binder/internal/cng"
	"github.com/mbelgin/ngm-binder/internal/domain"
)

// CollectEntries lists the eligible page files of an issue folder. Only
// direct children count; when the folder itself holds none, immediate
// subfolders are inspected one level deep as a fallback. Deeper nesting is
// never searched.
//
// canonicalPrefix marks entries as canonical or extra. An empty prefix
// treats every entry as canonical.
func CollectEntries(folderPath, canonicalPrefix string) ([]domain.ImageEntry, error) {
	entries, err := collectAt(folderPath, canonicalPrefix)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return entries, nil
	}

	children, err := os.ReadDir(folderPath)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("read folder %s", folderPath), err)
	}
	for _, child := range children {
		if !child.IsDir() {
			continue
		}
		sub, err := collectAt(filepath.Join(folderPath, child.Name()), canonicalPrefix)
		if err != nil {
			continue
		}
		entries = append(entries, sub...)
	}
	return entries, nil
}

func collectAt(dir, canonicalPrefix string) ([]domain.ImageEntry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("read folder %s", dir), err)
	}

	var out []domain.ImageEntry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		kind, ok := cng.Classify(f.Name())
		if !ok {
			continue
		}
		out = append(out, domain.ImageEntry{
			Path:    filepath.Join(dir, f.Name()),
			Kind:    kind,
			SortKey: f.Name(),
			Extra:   canonicalPrefix != "" && !hasPrefixFold(f.Name(), canonicalPrefix),
		})
	}
	return out, nil
}

// hasPrefixFold is a case-insensitive strings.HasPrefix. The archive mixes
// upper and lower case filenames across discs.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Order produces the final page sequence: canonical entries first, extras
// after, each partition sorted lexicographically by filename. Zero-padded
// numeric names therefore land in numeric order.
func Order(entries []domain.ImageEntry) []domain.ImageEntry {
	canonical := make([]domain.ImageEntry, 0, len(entries))
	extras := make([]domain.ImageEntry, 0)
	for _, e := range entries {
		if e.Extra {
			extras = append(extras, e)
		} else {
			canonical = append(canonical, e)
		}
	}

	sort.Slice(canonical, func(i, j int) bool { return canonical[i].SortKey < canonical[j].SortKey })
	sort.Slice(extras, func(i, j int) bool { return extras[i].SortKey < extras[j].SortKey })

	return append(canonical, extras...)
}
