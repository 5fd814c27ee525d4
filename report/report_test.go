package report

import (
	"strings"
	"testing"

	"github.com/oss-review-toolkit/ort-sub000/licenseinfo"
	"github.com/oss-review-toolkit/ort-sub000/resolver"
	"github.com/oss-review-toolkit/ort-sub000/spdxexpr"
)

func TestRenderNoResults(t *testing.T) {
	info := &resolver.ResolvedLicenseInfo{}
	if got := Render(info, StylePlain); got != "<no results>" {
		t.Errorf("Render() = %q, want %q", got, "<no results>")
	}
}

func TestRenderListsSourcesAndSummary(t *testing.T) {
	info := &resolver.ResolvedLicenseInfo{
		ID: licenseinfo.Identifier{Type: "npm", Name: "example", Version: "1.0.0"},
		Licenses: []*resolver.ResolvedLicense{
			{
				License: spdxexpr.Leaf("MIT"),
				OriginalExpressions: []resolver.ResolvedOriginalExpression{
					{Expression: spdxexpr.Leaf("MIT"), Source: resolver.SourceDeclared},
				},
				Locations: []resolver.ResolvedLicenseLocation{{}, {}},
			},
		},
	}

	out := Render(info, StylePlain)
	if !strings.Contains(out, "MIT") {
		t.Errorf("expected report to mention MIT, got %q", out)
	}
	if !strings.Contains(out, "[declared]") {
		t.Errorf("expected report to list the declared source, got %q", out)
	}
	if !strings.Contains(out, "locations=2") {
		t.Errorf("expected report to count 2 locations, got %q", out)
	}
	if !strings.Contains(out, "summary:") || !strings.Contains(out, "MIT: 1") {
		t.Errorf("expected a summary block counting MIT once, got %q", out)
	}
}

func TestRenderPlainStyleHasNoAnsiEscapes(t *testing.T) {
	info := &resolver.ResolvedLicenseInfo{
		Licenses: []*resolver.ResolvedLicense{
			{License: spdxexpr.Leaf("Apache-2.0")},
		},
	}
	out := Render(info, StylePlain)
	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected plain style to contain no ANSI escapes, got %q", out)
	}
}
