// Package pathmatch implements the POSIX-style glob matching shared by path
// excludes, license finding curations, and the root-license heuristic. Paths
// are always forward-slash separated regardless of host OS, and "**"
// matches across path segment boundaries (unlike a single "*").
package pathmatch

import (
	"strings"

	"github.com/gobwas/glob"
)

// Matcher compiles a glob pattern once so it can be matched against many
// paths cheaply.
type Matcher struct {
	pattern string
	g       glob.Glob
}

// Compile builds a Matcher from a glob pattern. The pattern and every path
// passed to Match are interpreted with '/' as path separator and '**' able
// to cross separators; a single '*' does not cross a '/'.
func Compile(pattern string) (*Matcher, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}
	return &Matcher{pattern: pattern, g: g}, nil
}

// MustCompile is like Compile but panics on error. Intended for patterns
// that are known-good at init time (eg literal constants), not user input.
func MustCompile(pattern string) *Matcher {
	m, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether path matches the compiled pattern. path is
// normalized to use forward slashes and has any leading "./" stripped
// before matching.
func (m *Matcher) Match(path string) bool {
	return m.g.Match(normalize(path))
}

// String returns the original pattern string.
func (m *Matcher) String() string {
	return m.pattern
}

// Match is a convenience one-shot form of Compile+Match for callers that
// don't need to match many paths against the same pattern.
func Match(pattern, path string) (bool, error) {
	m, err := Compile(pattern)
	if err != nil {
		return false, err
	}
	return m.Match(path), nil
}

func normalize(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	path = strings.TrimPrefix(path, "./")
	return strings.TrimPrefix(path, "/")
}
