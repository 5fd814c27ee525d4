package licenseinfo

import (
	"testing"

	"github.com/oss-review-toolkit/ort-sub000/backend"
	"github.com/oss-review-toolkit/ort-sub000/interfaces"
	"github.com/oss-review-toolkit/ort-sub000/provenance"
	"github.com/oss-review-toolkit/ort-sub000/util/licenses"
)

func TestIdentifierString(t *testing.T) {
	id := Identifier{Type: "npm", Namespace: "", Name: "example", Version: "1.0.0"}
	want := "npm::example:1.0.0"
	if got := id.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTextLocationContains(t *testing.T) {
	outer := TextLocation{Path: "a.go", StartLine: 1, EndLine: 10}
	inner := TextLocation{Path: "a.go", StartLine: 2, EndLine: 5}
	if !outer.Contains(inner) {
		t.Error("expected outer range to contain inner range")
	}
	if outer.Contains(TextLocation{Path: "b.go", StartLine: 2, EndLine: 5}) {
		t.Error("expected Contains to require matching paths")
	}
	if outer.Contains(TextLocation{Path: "a.go", StartLine: 0, EndLine: 5}) {
		t.Error("expected Contains to reject a range extending before the outer start")
	}
}

func TestStaticConfigurationProviderFallsBackToZeroValue(t *testing.T) {
	p, err := NewStaticConfigurationProvider(nil, nil)
	if err != nil {
		t.Fatalf("NewStaticConfigurationProvider: %v", err)
	}
	id := Identifier{Type: "npm", Name: "example"}
	cfg, err := p.Get(id, provenance.Unknown())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.ID != id || len(cfg.PathExcludes) != 0 || len(cfg.LicenseFindingCurations) != 0 {
		t.Errorf("expected a zero-value configuration for an unconfigured package, got %+v", cfg)
	}
}

func TestStaticConfigurationProviderLooksUpByIDAndProvenance(t *testing.T) {
	id := Identifier{Type: "npm", Name: "example"}
	prov := provenance.FromArtifact(provenance.ArtifactProvenance{URL: "u", Hash: "h"})
	cfg := &PackageConfiguration{ID: id, PathExcludes: []PathExclude{{Pattern: "vendor/**"}}}

	p, err := NewStaticConfigurationProvider([]*PackageConfiguration{cfg}, []provenance.Provenance{prov})
	if err != nil {
		t.Fatalf("NewStaticConfigurationProvider: %v", err)
	}

	got, err := p.Get(id, prov)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.PathExcludes) != 1 || got.PathExcludes[0].Pattern != "vendor/**" {
		t.Errorf("expected the configured overlay back, got %+v", got)
	}

	// A different provenance for the same id must not match the overlay.
	other, err := p.Get(id, provenance.Unknown())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(other.PathExcludes) != 0 {
		t.Errorf("expected no overlay for a different provenance, got %+v", other)
	}
}

func TestScanResultProviderSynthesisesSingleLineLocation(t *testing.T) {
	id := Identifier{Type: "generic", Name: "example"}
	entry := &ScanResultEntry{
		ID:         id,
		Provenance: provenance.Unknown(),
		ResultSet: interfaces.ResultSet{
			"LICENSE": {
				&backend.Spdx{}: &interfaces.Result{
					Licenses:   []*licenses.License{{SPDX: "MIT"}},
					Confidence: 1.0,
				},
			},
		},
	}
	p := NewScanResultProvider([]*ScanResultEntry{entry})

	info, err := p.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(info.Detected.Findings.LicenseFindings) != 1 {
		t.Fatalf("expected 1 license finding, got %d", len(info.Detected.Findings.LicenseFindings))
	}
	lf := info.Detected.Findings.LicenseFindings[0]
	if lf.License.String() != "MIT" {
		t.Errorf("expected MIT, got %q", lf.License.String())
	}
	if lf.Location != (TextLocation{Path: "LICENSE", StartLine: 1, EndLine: 1}) {
		t.Errorf("expected a synthetic single-line location, got %+v", lf.Location)
	}
}

func TestScanResultProviderSkipsErroredResults(t *testing.T) {
	id := Identifier{Type: "generic", Name: "example"}
	entry := &ScanResultEntry{
		ID:         id,
		Provenance: provenance.Unknown(),
		ResultSet: interfaces.ResultSet{
			"a.go": {
				&backend.Spdx{}: &interfaces.Result{Skip: errSkipped{}},
			},
		},
	}
	p := NewScanResultProvider([]*ScanResultEntry{entry})

	info, err := p.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(info.Detected.Findings.LicenseFindings) != 0 {
		t.Errorf("expected skipped results to contribute no findings, got %v", info.Detected.Findings.LicenseFindings)
	}
}

func TestScanResultProviderUnknownPackage(t *testing.T) {
	p := NewScanResultProvider(nil)
	_, err := p.Get(Identifier{Type: "generic", Name: "missing"})
	if _, ok := err.(*ErrUnknownPackage); !ok {
		t.Errorf("expected *ErrUnknownPackage, got %T (%v)", err, err)
	}
}

type errSkipped struct{}

func (errSkipped) Error() string { return "skipped" }
