package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oss-review-toolkit/ort-sub000/licenseinfo"
)

const sampleFixture = `{
  "packages": [
    {
      "type": "npm",
      "name": "example",
      "version": "1.0.0",
      "provenance": {"kind": "artifact", "artifact_url": "https://example.com/example-1.0.0.tgz", "artifact_hash": "abc"},
      "concluded_license": "MIT",
      "declared_licenses": ["MIT OR Apache-2.0"],
      "authors": ["Jane Doe"],
      "path_excludes": [{"pattern": "vendor/**", "reason": "vendored code"}],
      "license_finding_curations": [
        {"path": "vendor/x.c", "detected_license": "GPL-2.0", "concluded_license": "NONE", "reason": "vendored"}
      ],
      "license_findings": [
        {"license": "MIT", "path": "LICENSE", "start_line": 1, "end_line": 5, "score": 0.95}
      ],
      "copyright_findings": [
        {"statement": "Copyright Jane Doe", "path": "LICENSE", "start_line": 2, "end_line": 2}
      ]
    }
  ]
}`

func TestLoadFixtureParsesPackages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.json")
	if err := os.WriteFile(path, []byte(sampleFixture), 0660); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := loadFixture(path)
	if err != nil {
		t.Fatalf("loadFixture: %v", err)
	}
	if len(f.Packages) != 1 {
		t.Fatalf("expected 1 package, got %d", len(f.Packages))
	}
	ids := f.ids()
	want := licenseinfo.Identifier{Type: "npm", Name: "example", Version: "1.0.0"}
	if len(ids) != 1 || ids[0] != want {
		t.Errorf("ids() = %v, want [%v]", ids, want)
	}
}

func TestBuildProvidersConvertsFixturePackage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.json")
	if err := os.WriteFile(path, []byte(sampleFixture), 0660); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := loadFixture(path)
	if err != nil {
		t.Fatalf("loadFixture: %v", err)
	}

	infoProvider, configProvider, err := buildProviders(f)
	if err != nil {
		t.Fatalf("buildProviders: %v", err)
	}

	id := licenseinfo.Identifier{Type: "npm", Name: "example", Version: "1.0.0"}
	info, err := infoProvider.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if info.Concluded.Expression == nil || info.Concluded.Expression.String() != "MIT" {
		t.Errorf("expected concluded license MIT, got %v", info.Concluded.Expression)
	}
	if info.Declared.Processed == nil || info.Declared.Processed.String() != "MIT OR Apache-2.0" {
		t.Errorf("expected declared license MIT OR Apache-2.0, got %v", info.Declared.Processed)
	}
	if len(info.Detected.Findings.LicenseFindings) != 1 || len(info.Detected.Findings.CopyrightFindings) != 1 {
		t.Errorf("expected 1 license finding and 1 copyright finding, got %+v", info.Detected.Findings)
	}

	cfg, err := configProvider.Get(id, info.Provenance)
	if err != nil {
		t.Fatalf("configProvider.Get: %v", err)
	}
	if len(cfg.PathExcludes) != 1 || cfg.PathExcludes[0].Pattern != "vendor/**" {
		t.Errorf("expected 1 path exclude for vendor/**, got %v", cfg.PathExcludes)
	}
	if len(cfg.LicenseFindingCurations) != 1 {
		t.Fatalf("expected 1 curation, got %d", len(cfg.LicenseFindingCurations))
	}
	cur := cfg.LicenseFindingCurations[0]
	if cur.ConcludedLicense == nil || cur.ConcludedLicense.String() != "NONE" {
		t.Errorf("expected the suppression sentinel NONE, got %v", cur.ConcludedLicense)
	}
}

func TestBuildProvidersRejectsInvalidLicenseExpression(t *testing.T) {
	f := &fixtureFile{Packages: []fixturePackage{
		{Type: "npm", Name: "bad", ConcludedLicense: "("},
	}}
	if _, _, err := buildProviders(f); err == nil {
		t.Error("expected an error for an unparsable concluded license expression")
	}
}

func TestFixtureInfoProviderUnknownID(t *testing.T) {
	p := &fixtureInfoProvider{byID: map[string]*licenseinfo.LicenseInfo{}}
	_, err := p.Get(licenseinfo.Identifier{Type: "npm", Name: "missing"})
	if _, ok := err.(*licenseinfo.ErrUnknownPackage); !ok {
		t.Errorf("expected *licenseinfo.ErrUnknownPackage, got %T", err)
	}
}
