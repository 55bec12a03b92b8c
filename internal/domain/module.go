// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"path"
	"strings"
)

// OtherModule is the sentinel label used when no module can be derived
// from a file path.
const OtherModule = "Other"

// ExamplesModule is the label applied to every file under the
// documentation-examples prefix, regardless of nesting depth.
const ExamplesModule = "examples"

// ModuleRules derives a coarse module label from a repository-relative
// file path. The zero value is not useful; use DefaultModuleRules.
type ModuleRules struct {
	// TestsSegment is a directory name that is stripped so that test
	// files are attributed to their owning module.
	TestsSegment string
	// ExamplesPrefix marks the documentation-examples subtree.
	ExamplesPrefix string
	// MarkerFile is a package-marker file name excluded from file-level
	// views because it inflates module counts without semantic content.
	MarkerFile string
}

// DefaultModuleRules returns the rules used by the CLI commands.
func DefaultModuleRules() ModuleRules {
	return ModuleRules{
		TestsSegment:   "tests",
		ExamplesPrefix: "doc/",
		MarkerFile:     "__init__.py",
	}
}

// Resolve maps a file path to its module label. The second return value
// is false when the file lives at the repository root and no label can
// be derived; callers normalize that case to OtherModule.
func (r ModuleRules) Resolve(p string) (string, bool) {
	if strings.HasPrefix(p, r.ExamplesPrefix) {
		return ExamplesModule, true
	}
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return "", false
	}
	if path.Base(dir) == r.TestsSegment {
		dir = path.Dir(dir)
		if dir == "." || dir == "/" {
			return "", false
		}
	}
	return dir, true
}

// IsMarker reports whether p is a package-marker file.
func (r ModuleRules) IsMarker(p string) bool {
	return path.Base(p) == r.MarkerFile
}

// MajorityModule computes one representative module for a pull request
// from its full, unfiltered file list: each path is resolved and the most
// frequent label wins. Ties break in favor of the first-seen label so the
// result is stable across runs. An empty list resolves to OtherModule.
func (r ModuleRules) MajorityModule(paths []string) string {
	counts := make(map[string]int, len(paths))
	var order []string
	for _, p := range paths {
		m, ok := r.Resolve(p)
		if !ok {
			m = OtherModule
		}
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}
	best, bestCount := OtherModule, 0
	for _, m := range order {
		if counts[m] > bestCount {
			best, bestCount = m, counts[m]
		}
	}
	return best
}
