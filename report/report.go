// Package report renders a resolved license info as human-readable text,
// generalized from the donor's SimpleProfiles table/summary renderer: same
// colourized per-license lines (here: name, sources and location count, with
// no confidence figure), same sorted summary block,
// aimed at ResolvedLicenseInfo instead of a raw backend ResultSet.
package report

import (
	"fmt"
	"sort"
	"strings"

	colour "github.com/fatih/color"
	"golang.org/x/term"

	"github.com/oss-review-toolkit/ort-sub000/resolver"
)

// Style selects how a report is rendered.
type Style int

const (
	// StyleANSI renders with terminal colour escapes when the output
	// stream is a terminal.
	StyleANSI Style = iota
	// StylePlain renders without any colour escapes, for non-terminal
	// output (redirection, CI logs).
	StylePlain
)

// DetectStyle returns StyleANSI if fd looks like a terminal, else
// StylePlain. fd is typically os.Stdout.Fd().
func DetectStyle(fd uintptr) Style {
	if term.IsTerminal(int(fd)) {
		return StyleANSI
	}
	return StylePlain
}

// Render writes a summary of info to a string: one line per resolved
// license naming its sources and location count, followed by a sorted
// license-name summary, matching the donor's "per entry, then summary"
// layout.
func Render(info *resolver.ResolvedLicenseInfo, style Style) string {
	if len(info.Licenses) == 0 {
		return "<no results>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", info.ID)

	bold := colour.New(colour.Bold).SprintFunc()
	if style == StylePlain {
		bold = func(a ...interface{}) string { return fmt.Sprint(a...) }
	}

	counts := make(map[string]int)
	for _, lic := range info.Licenses {
		name := lic.License.String()
		counts[name]++

		sources := sourceNames(lic)
		fmt.Fprintf(&b, "  %s  [%s]  locations=%d\n", bold(name), strings.Join(sources, ","), len(lic.Locations))
	}

	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Fprintf(&b, "summary:\n")
	for _, n := range names {
		fmt.Fprintf(&b, "  %s: %d\n", n, counts[n])
	}

	return b.String()
}

func sourceNames(lic *resolver.ResolvedLicense) []string {
	seen := lic.Sources()
	var out []string
	if seen[resolver.SourceConcluded] {
		out = append(out, "concluded")
	}
	if seen[resolver.SourceDeclared] {
		out = append(out, "declared")
	}
	if seen[resolver.SourceDetected] {
		out = append(out, "detected")
	}
	return out
}
