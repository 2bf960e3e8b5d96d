// Package scan discovers issue folders under archive roots and collects
// their page entries for binding.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mbelgin/ngm-binder/internal/domain"
	"github.com/mbelgin/ngm-binder/internal/observability"
)

// FolderPolicy selects how issue-folder names are recognized in full scans.
type FolderPolicy string

const (
	// PolicyPrefix accepts folders whose base name starts with six digits.
	PolicyPrefix FolderPolicy = "prefix"
	// PolicyContains accepts six consecutive digits anywhere in the base
	// name, the looser convention of the older archive discs.
	PolicyContains FolderPolicy = "contains"
)

var (
	dateKeyRe      = regexp.MustCompile(`\d{6}`)
	exactDateKeyRe = regexp.MustCompile(`^\d{6}$`)
	digitPrefixRe  = regexp.MustCompile(`^\d{6}`)
)

// ValidDateKey reports whether s is a six-digit YYYYMM key.
func ValidDateKey(s string) bool {
	return exactDateKeyRe.MatchString(s)
}

// DeriveDateKey extracts the first six-digit run from a folder name.
// Returns "" when the name carries no date key.
func DeriveDateKey(name string) string {
	return dateKeyRe.FindString(name)
}

// Scanner walks archive roots for issue folders. Discovery never rejects a
// folder for lacking images; that validity check belongs to the binder.
type Scanner struct {
	policy FolderPolicy
	logger *observability.Logger
}

// NewScanner creates a scanner with the given folder-naming policy.
func NewScanner(policy FolderPolicy, logger *observability.Logger) *Scanner {
	if policy == "" {
		policy = PolicyPrefix
	}
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Scanner{policy: policy, logger: logger}
}

// ScanDir accepts one exact folder with no name matching applied. The date
// key, when derivable from the folder name, is used for output naming.
func (s *Scanner) ScanDir(path string) (domain.IssueFolder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil {
		return domain.IssueFolder{}, domain.DiscoveryError(fmt.Sprintf("folder %s is not accessible", path), err)
	}
	if !info.IsDir() {
		return domain.IssueFolder{}, domain.DiscoveryError(fmt.Sprintf("%s is not a directory", path), nil)
	}
	return domain.IssueFolder{Path: abs, DateKey: DeriveDateKey(filepath.Base(abs))}, nil
}

// FindByDate returns every directory under root whose base name starts with
// the six-digit date key. A folder named 199412_extra matches key 199412.
func (s *Scanner) FindByDate(root, dateKey string) ([]domain.IssueFolder, error) {
	if !ValidDateKey(dateKey) {
		return nil, domain.ConfigError(fmt.Sprintf("date key %q is not a six-digit YYYYMM value", dateKey), nil)
	}

	folders, err := s.walk(root, func(base string) bool {
		return strings.HasPrefix(base, dateKey)
	})
	if err != nil {
		return nil, err
	}
	for i := range folders {
		folders[i].DateKey = dateKey
	}
	return folders, nil
}

// Discover returns every directory under root matching the folder-naming
// policy. Folders that derive a date key already claimed by an earlier
// (lexicographically first) folder are dropped with a warning so that no
// two results ever contend for the same output path.
func (s *Scanner) Discover(root string) ([]domain.IssueFolder, error) {
	accept := func(base string) bool {
		switch s.policy {
		case PolicyContains:
			return dateKeyRe.MatchString(base)
		default:
			return digitPrefixRe.MatchString(base)
		}
	}

	folders, err := s.walk(root, accept)
	if err != nil {
		return nil, err
	}

	claimed := make(map[string]string, len(folders))
	out := folders[:0]
	for _, f := range folders {
		if prev, ok := claimed[f.DateKey]; ok {
			s.logger.Warn().
				Str("folder", f.Path).
				Str("date_key", f.DateKey).
				Str("bound_by", prev).
				Msg("Duplicate date key, folder dropped from scan")
			continue
		}
		claimed[f.DateKey] = f.Path
		out = append(out, f)
	}
	return out, nil
}

// walk visits every directory under root and keeps those whose base name the
// accept function approves. Unreadable entries are skipped, not fatal; an
// unreadable root is a discovery error.
func (s *Scanner) walk(root string, accept func(base string) bool) ([]domain.IssueFolder, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, domain.DiscoveryError(fmt.Sprintf("root %s is not accessible", root), err)
	}
	if !info.IsDir() {
		return nil, domain.DiscoveryError(fmt.Sprintf("root %s is not a directory", root), nil)
	}

	var found []domain.IssueFolder
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn().Str("path", path).Err(err).Msg("Skipping unreadable entry")
			return nil
		}
		if !d.IsDir() || path == absRoot {
			return nil
		}
		base := filepath.Base(path)
		if accept(base) {
			found = append(found, domain.IssueFolder{Path: path, DateKey: DeriveDateKey(base)})
		}
		return nil
	})
	if walkErr != nil {
		return nil, domain.DiscoveryError(fmt.Sprintf("walk %s", root), walkErr)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}
