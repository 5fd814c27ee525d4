// Package licenseview implements source-priority license views and the
// effective-license/apply-choices computation built on top of them. It
// depends on package resolver for ResolvedLicenseInfo/ResolvedLicense, so it
// sits above resolver in the dependency graph.
package licenseview

import (
	"github.com/oss-review-toolkit/ort-sub000/resolver"
	"github.com/oss-review-toolkit/ort-sub000/spdxexpr"
)

// Source identifies which of declared/detected/concluded license info a
// ResolvedOriginalExpression came from.
type Source = resolver.Source

// Tier is a set of sources; a View is walked tier by tier.
type Tier map[Source]bool

func tier(sources ...Source) Tier {
	t := make(Tier, len(sources))
	for _, s := range sources {
		t[s] = true
	}
	return t
}

func (t Tier) intersects(sources map[Source]bool) bool {
	for s := range sources {
		if t[s] {
			return true
		}
	}
	return false
}

// View is an ordered list of tiers, walked in order by Filter.
type View struct {
	Name  string
	Tiers []Tier
}

// Predefined views, matching the spec's exact set.
var (
	ALL = View{Name: "ALL", Tiers: []Tier{
		tier(resolver.SourceConcluded, resolver.SourceDeclared, resolver.SourceDetected),
	}}

	CONCLUDED_OR_REST = View{Name: "CONCLUDED_OR_REST", Tiers: []Tier{
		tier(resolver.SourceConcluded),
		tier(resolver.SourceDeclared, resolver.SourceDetected),
	}}

	CONCLUDED_OR_DECLARED_OR_DETECTED = View{Name: "CONCLUDED_OR_DECLARED_OR_DETECTED", Tiers: []Tier{
		tier(resolver.SourceConcluded),
		tier(resolver.SourceDeclared),
		tier(resolver.SourceDetected),
	}}

	CONCLUDED_OR_DETECTED = View{Name: "CONCLUDED_OR_DETECTED", Tiers: []Tier{
		tier(resolver.SourceConcluded),
		tier(resolver.SourceDetected),
	}}

	ONLY_CONCLUDED = View{Name: "ONLY_CONCLUDED", Tiers: []Tier{
		tier(resolver.SourceConcluded),
	}}

	ONLY_DECLARED = View{Name: "ONLY_DECLARED", Tiers: []Tier{
		tier(resolver.SourceDeclared),
	}}

	ONLY_DETECTED = View{Name: "ONLY_DETECTED", Tiers: []Tier{
		tier(resolver.SourceDetected),
	}}
)

// Filter walks v's tiers in order; for the first tier whose intersecting
// licenses are non-empty, returns all resolved licenses whose source set
// intersects that tier. Returns an empty slice if no tier yields anything.
// It never mutates the retained licenses' locations/copyrights/sources.
func (v View) Filter(info *resolver.ResolvedLicenseInfo) []*resolver.ResolvedLicense {
	for _, t := range v.Tiers {
		var matched []*resolver.ResolvedLicense
		for _, lic := range info.Licenses {
			if t.intersects(lic.Sources()) {
				matched = append(matched, lic)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}
	return nil
}

// EffectiveLicense computes the filtered, choice-applied, OR-folded
// effective license for info under view, applying choiceLists in order.
func EffectiveLicense(info *resolver.ResolvedLicenseInfo, view View, choiceLists ...[]spdxexpr.Choice) (*spdxexpr.Expression, error) {
	filtered := view.Filter(info)

	// Licenses that share a single declared/concluded OR-expression (eg
	// two leaves both decomposed from "MIT OR Apache-2.0") each carry a
	// copy of that same source expression; AND-folding every copy in
	// would needlessly duplicate the same OR subtree in the result, and
	// a choice only rewrites its first occurrence. Fold each distinct
	// source expression in once.
	seen := make(map[string]bool)
	var exprs []*spdxexpr.Expression
	for _, lic := range filtered {
		for _, oe := range lic.OriginalExpressions {
			k := oe.Expression.String()
			if seen[k] {
				continue
			}
			seen[k] = true
			exprs = append(exprs, oe.Expression)
		}
	}

	anded := spdxexpr.ToExpression(exprs, spdxexpr.OpAnd)
	if anded == nil {
		return nil, nil
	}

	var allChoices []spdxexpr.Choice
	for _, cl := range choiceLists {
		allChoices = append(allChoices, cl...)
	}

	applied, err := spdxexpr.ApplyChoices(anded, allChoices)
	if err != nil {
		return nil, err
	}

	valid := spdxexpr.ValidChoices(applied)
	return spdxexpr.ToExpression(valid, spdxexpr.OpOr), nil
}

// ApplyChoices returns a new ResolvedLicenseInfo whose Licenses are
// filtered to the single-license leaves present in the effective license
// for info computed under view with choices applied.
func ApplyChoices(info *resolver.ResolvedLicenseInfo, choices []spdxexpr.Choice, view View) (*resolver.ResolvedLicenseInfo, error) {
	effective, err := EffectiveLicense(info, view, choices)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool)
	if effective != nil {
		for _, leaf := range spdxexpr.Decompose(effective) {
			keep[leaf.String()] = true
		}
	}

	var licenses []*resolver.ResolvedLicense
	for _, lic := range info.Licenses {
		if keep[lic.License.String()] {
			licenses = append(licenses, lic)
		}
	}

	out := *info
	out.Licenses = licenses
	return &out, nil
}
