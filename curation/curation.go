// Package curation implements matching and application of
// LicenseFindingCuration rules against detected license findings.
package curation

import (
	"fmt"
	"strings"

	"github.com/oss-review-toolkit/ort-sub000/licenseinfo"
	"github.com/oss-review-toolkit/ort-sub000/pathmatch"
	"github.com/oss-review-toolkit/ort-sub000/spdxexpr"
)

// None is the sentinel concluded-license expression meaning "suppress this
// finding". IsNone recognises it by shape and license string, not by
// identity, so any bare leaf with license "NONE" (eg: spdxexpr.Leaf("NONE"))
// requests suppression just the same.
var None = &spdxexpr.Expression{Op: spdxexpr.OpNone, License: "NONE"}

// IsNone reports whether expr is the suppression sentinel.
func IsNone(expr *spdxexpr.Expression) bool {
	return expr != nil && expr.Op == spdxexpr.OpNone && expr.License == "NONE"
}

// Matches reports whether curation applies to finding, given the package's
// relative findings path (prepended to the finding's location path before
// glob matching, per the spec's curation glob semantics).
func Matches(finding licenseinfo.LicenseFinding, cur licenseinfo.LicenseFindingCuration, relativePath string) (bool, error) {
	full := joinPath(relativePath, finding.Location.Path)
	ok, err := pathmatch.Match(cur.Path, full)
	if err != nil {
		return false, fmt.Errorf("invalid curation glob %q: %w", cur.Path, err)
	}
	if !ok {
		return false, nil
	}

	if len(cur.StartLines) > 0 {
		found := false
		for _, sl := range cur.StartLines {
			if sl == finding.Location.StartLine {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	if cur.LineCount != 0 {
		actual := finding.Location.EndLine - finding.Location.StartLine + 1
		if actual != cur.LineCount {
			return false, nil
		}
	}

	if cur.DetectedLicense != nil {
		if finding.License == nil || finding.License.String() != cur.DetectedLicense.String() {
			return false, nil
		}
	}

	return true, nil
}

func joinPath(relativePath, path string) string {
	if relativePath == "" {
		return path
	}
	return strings.TrimSuffix(relativePath, "/") + "/" + path
}

// Apply applies curation to finding. A nil *licenseinfo.LicenseFinding
// return means the finding was suppressed.
func Apply(finding licenseinfo.LicenseFinding, cur licenseinfo.LicenseFindingCuration) *licenseinfo.LicenseFinding {
	if IsNone(cur.ConcludedLicense) {
		return nil
	}
	out := finding
	out.License = cur.ConcludedLicense
	return &out
}

// Result is one outcome group produced by ApplyAll: either a (possibly
// curated) finding, or a suppression (CuratedFinding == nil), together with
// every (original finding, curation) pair that produced this exact outcome.
type Result struct {
	CuratedFinding *licenseinfo.LicenseFinding

	Pairs []Pair
}

// Pair names one original finding and the curation that transformed it.
// Curation is nil when no curation matched the finding at all (the
// "pass-through" outcome).
type Pair struct {
	Original licenseinfo.LicenseFinding
	Curation *licenseinfo.LicenseFindingCuration
}

// ApplyAll matches every curation against every finding and groups the
// results by curated outcome, per the spec's apply_all semantics. Every
// original finding appears in at least one Result.
func ApplyAll(findings []licenseinfo.LicenseFinding, curations []licenseinfo.LicenseFindingCuration, relativePath string) ([]Result, error) {
	type key struct {
		suppressed bool
		license    string
		path       string
		start      int
		end        int
	}
	order := make([]key, 0)
	groups := make(map[key]*Result)

	addResult := func(curated *licenseinfo.LicenseFinding, original licenseinfo.LicenseFinding, cur *licenseinfo.LicenseFindingCuration) {
		var k key
		if curated == nil {
			k = key{suppressed: true, path: original.Location.Path, start: original.Location.StartLine, end: original.Location.EndLine}
		} else {
			k = key{license: curated.License.String(), path: curated.Location.Path, start: curated.Location.StartLine, end: curated.Location.EndLine}
		}
		r, ok := groups[k]
		if !ok {
			r = &Result{CuratedFinding: curated}
			groups[k] = r
			order = append(order, k)
		}
		r.Pairs = append(r.Pairs, Pair{Original: original, Curation: cur})
	}

	for _, f := range findings {
		matchedAny := false
		for i := range curations {
			cur := curations[i]
			ok, err := Matches(f, cur, relativePath)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			matchedAny = true
			curated := Apply(f, cur)
			addResult(curated, f, &curations[i])
		}
		if !matchedAny {
			// f is a range-loop variable reused every iteration; take a
			// fresh copy before handing its address to addResult; the
			// same trap applies to Apply's match-all-curations loop,
			// but that one always runs on &curations[i] from the slice.
			passthrough := f
			addResult(&passthrough, f, nil)
		}
	}

	out := make([]Result, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	return out, nil
}
