// Package rootlicense implements the upward directory walk that attributes
// license/notice/patent files to the directories beneath them.
package rootlicense

import (
	"path"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher classifies file paths against three independent sets of filename
// patterns (licence names, fallback licence names, patent names) and, for
// a query directory, walks upward to find the nearest directory whose
// files match.
type Matcher struct {
	licenceGlobs         []glob.Glob
	fallbackLicenceGlobs []glob.Glob
	patentGlobs          []glob.Glob
}

// NewMatcher compiles the three pattern sets. Patterns match a bare
// filename (no directory component) case-insensitively; '*' matches within
// the name, '**' behaves the same as '*' at this level since names carry
// no path separators.
func NewMatcher(licenceNames, fallbackLicenceNames, patentNames []string) (*Matcher, error) {
	compile := func(patterns []string) ([]glob.Glob, error) {
		out := make([]glob.Glob, 0, len(patterns))
		for _, p := range patterns {
			g, err := glob.Compile(strings.ToLower(p))
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	}

	licGlobs, err := compile(licenceNames)
	if err != nil {
		return nil, err
	}
	fallbackGlobs, err := compile(fallbackLicenceNames)
	if err != nil {
		return nil, err
	}
	patentGlobs, err := compile(patentNames)
	if err != nil {
		return nil, err
	}
	return &Matcher{licenceGlobs: licGlobs, fallbackLicenceGlobs: fallbackGlobs, patentGlobs: patentGlobs}, nil
}

func matchAny(globs []glob.Glob, name string) bool {
	lower := strings.ToLower(name)
	for _, g := range globs {
		if g.Match(lower) {
			return true
		}
	}
	return false
}

// filesByDir buckets relative file paths by their containing directory
// (using "." for files at the tree root).
func filesByDir(paths []string) map[string][]string {
	m := make(map[string][]string)
	for _, p := range paths {
		dir := path.Dir(p)
		m[dir] = append(m[dir], p)
	}
	return m
}

func parentOf(dir string) (string, bool) {
	if dir == "." || dir == "/" || dir == "" {
		return "", false
	}
	parent := path.Dir(dir)
	if parent == dir {
		return "", false
	}
	return parent, true
}

// filesMatchingInDir returns, in sorted order, the base filenames in dir
// (as listed in byDir) that match any of globs.
func filesMatchingInDir(byDir map[string][]string, dir string, globs []glob.Glob) []string {
	var out []string
	for _, p := range byDir[dir] {
		if matchAny(globs, path.Base(p)) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// walkUp finds the nearest directory at or above start whose files (as
// indexed in byDir) match globs, returning those matches. Returns nil if
// none is found all the way to the root.
func walkUp(byDir map[string][]string, start string, globs []glob.Glob) []string {
	dir := start
	for {
		if matches := filesMatchingInDir(byDir, dir, globs); len(matches) > 0 {
			return matches
		}
		parent, ok := parentOf(dir)
		if !ok {
			return nil
		}
		dir = parent
	}
}

// Result is the set of files attributed to one query directory, split into
// licence files (from the licence-name or fallback-name walk) and patent
// files (from the patent-name walk).
type Result struct {
	LicenceFiles []string
	PatentFiles  []string
}

// Files returns a deterministically ordered union of LicenceFiles and
// PatentFiles.
func (r Result) Files() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range append(append([]string{}, r.LicenceFiles...), r.PatentFiles...) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve runs the three independent upward walks for one query directory
// over the given relative file paths.
func (m *Matcher) Resolve(paths []string, queryDir string) Result {
	byDir := filesByDir(paths)

	licence := walkUp(byDir, queryDir, m.licenceGlobs)
	if licence == nil {
		licence = walkUp(byDir, queryDir, m.fallbackLicenceGlobs)
	}
	patent := walkUp(byDir, queryDir, m.patentGlobs)

	return Result{LicenceFiles: licence, PatentFiles: patent}
}

// ResolveAll runs Resolve for every query directory, returning a map keyed
// by query directory.
func (m *Matcher) ResolveAll(paths []string, queryDirs []string) map[string]Result {
	out := make(map[string]Result, len(queryDirs))
	for _, d := range queryDirs {
		out[d] = m.Resolve(paths, d)
	}
	return out
}
