// Package findingsmatch implements the nearest-neighbour association of
// copyright findings with license findings within a file, plus the
// cross-file root-license attribution of leftover copyrights.
package findingsmatch

import (
	"sort"
	"strings"

	"github.com/oss-review-toolkit/ort-sub000/licenseinfo"
	"github.com/oss-review-toolkit/ort-sub000/pathmatch"
)

// DefaultToleranceLines is the default search radius (in lines) around a
// license finding within which a copyright is considered nearby.
const DefaultToleranceLines = 5

// DefaultExpandToleranceLines is the default additional gap (in lines)
// allowed when walking further copyright lines upward from the nearest one
// already inside the base range.
const DefaultExpandToleranceLines = 2

// Matcher matches license and copyright findings within a single package's
// findings, given a classifier for "this path is a root license file".
type Matcher struct {
	ToleranceLines       int
	ExpandToleranceLines int

	// IsLicenseFile reports whether path should be treated as a root
	// license file for cross-file orphan-copyright attribution.
	IsLicenseFile func(path string) bool
}

// NewMatcher builds a Matcher with the default tolerances and a
// license-file classifier built from glob patterns (case-insensitive).
func NewMatcher(licenseFilePatterns []string) (*Matcher, error) {
	matchers := make([]*pathmatch.Matcher, 0, len(licenseFilePatterns))
	for _, p := range licenseFilePatterns {
		m, err := pathmatch.Compile(strings.ToLower(p))
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	return &Matcher{
		ToleranceLines:       DefaultToleranceLines,
		ExpandToleranceLines: DefaultExpandToleranceLines,
		IsLicenseFile: func(path string) bool {
			for _, m := range matchers {
				if m.Match(strings.ToLower(path)) {
					return true
				}
			}
			return false
		},
	}, nil
}

// Result is the outcome of matching a package's findings: which copyrights
// go with which license finding, and which copyrights matched nothing.
type Result struct {
	Matched             map[*licenseinfo.LicenseFinding][]licenseinfo.CopyrightFinding
	UnmatchedCopyrights []licenseinfo.CopyrightFinding
}

type lineRange struct {
	lo, hi int
}

func (r lineRange) contains(line int) bool {
	return r.lo <= line && line <= r.hi
}

// Match runs the per-file nearest-neighbour match followed by cross-file
// root-license attribution, over every license/copyright finding supplied.
func (m *Matcher) Match(findings licenseinfo.Findings) *Result {
	byFileLicenses := make(map[string][]*licenseinfo.LicenseFinding)
	byFileCopyrights := make(map[string][]licenseinfo.CopyrightFinding)

	for i := range findings.LicenseFindings {
		lf := &findings.LicenseFindings[i]
		byFileLicenses[lf.Location.Path] = append(byFileLicenses[lf.Location.Path], lf)
	}
	for _, cf := range findings.CopyrightFindings {
		byFileCopyrights[cf.Location.Path] = append(byFileCopyrights[cf.Location.Path], cf)
	}

	result := &Result{Matched: make(map[*licenseinfo.LicenseFinding][]licenseinfo.CopyrightFinding)}

	// Every license finding gets an entry, even one with zero nearby
	// copyrights: a license finding's existence doesn't depend on there
	// being a copyright statement anywhere near it.
	for i := range findings.LicenseFindings {
		result.Matched[&findings.LicenseFindings[i]] = nil
	}

	var unmatched []licenseinfo.CopyrightFinding

	for path, copyrights := range byFileCopyrights {
		licFindings := byFileLicenses[path]
		switch len(licFindings) {
		case 0:
			unmatched = append(unmatched, copyrights...)
		case 1:
			result.Matched[licFindings[0]] = append(result.Matched[licFindings[0]], copyrights...)
		default:
			ranges := make(map[*licenseinfo.LicenseFinding]lineRange, len(licFindings))
			for _, lf := range licFindings {
				ranges[lf] = matchingRange(lf, copyrights, m.ToleranceLines, m.ExpandToleranceLines)
			}
			for _, cf := range copyrights {
				matchedAny := false
				for _, lf := range licFindings {
					if ranges[lf].contains(cf.Location.StartLine) {
						result.Matched[lf] = append(result.Matched[lf], cf)
						matchedAny = true
					}
				}
				if !matchedAny {
					unmatched = append(unmatched, cf)
				}
			}
		}
	}

	// Cross-file root-license attribution: every unmatched copyright
	// across the whole package attaches to every license finding whose
	// file matches the license-file classifier.
	var rootLicenses []*licenseinfo.LicenseFinding
	for i := range findings.LicenseFindings {
		lf := &findings.LicenseFindings[i]
		if m.IsLicenseFile != nil && m.IsLicenseFile(lf.Location.Path) {
			rootLicenses = append(rootLicenses, lf)
		}
	}

	if len(rootLicenses) == 0 {
		result.UnmatchedCopyrights = sortCopyrights(unmatched)
		return result
	}

	for _, cf := range unmatched {
		for _, lf := range rootLicenses {
			result.Matched[lf] = append(result.Matched[lf], cf)
		}
	}
	result.UnmatchedCopyrights = nil
	return result
}

// matchingRange computes the matching line range for one license finding
// per the base-range/expand-tolerance algorithm.
func matchingRange(lf *licenseinfo.LicenseFinding, copyrights []licenseinfo.CopyrightFinding, tolerance, expandTolerance int) lineRange {
	ls, le := lf.Location.StartLine, lf.Location.EndLine

	baseLo := ls - tolerance
	if baseLo < 0 {
		baseLo = 0
	}
	baseHi := ls + tolerance
	if le > baseHi {
		baseHi = le
	}
	base := lineRange{lo: baseLo, hi: baseHi}

	var linesInBase []int
	for _, cf := range copyrights {
		if base.contains(cf.Location.StartLine) {
			linesInBase = append(linesInBase, cf.Location.StartLine)
		}
	}
	if len(linesInBase) == 0 {
		return base
	}

	expandedStart := minInt(linesInBase)

	// Walk copyright lines strictly below expandedStart, in descending
	// order, expanding while each successive gap stays within tolerance.
	var below []int
	for _, cf := range copyrights {
		if cf.Location.StartLine < expandedStart {
			below = append(below, cf.Location.StartLine)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(below)))
	for _, line := range below {
		if expandedStart-line <= expandTolerance {
			expandedStart = line
		} else {
			break
		}
	}

	lo := base.lo
	if expandedStart < lo {
		lo = expandedStart
	}
	return lineRange{lo: lo, hi: base.hi}
}

func minInt(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func sortCopyrights(cfs []licenseinfo.CopyrightFinding) []licenseinfo.CopyrightFinding {
	out := make([]licenseinfo.CopyrightFinding, len(cfs))
	copy(out, cfs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location.Path != out[j].Location.Path {
			return out[i].Location.Path < out[j].Location.Path
		}
		return out[i].Location.StartLine < out[j].Location.StartLine
	})
	return out
}
