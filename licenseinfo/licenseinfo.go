// Package licenseinfo holds the data model for a single package's raw
// license information: its identifier, the three independent sources of
// license knowledge (concluded, declared, detected), and the text/copyright
// findings backing the detected source. It also defines the two external
// collaborator interfaces the resolver depends on (LicenseInfoProvider,
// PackageConfigurationProvider) and a concrete adapter over this
// repository's own scanner result shape (interfaces.ResultSet).
package licenseinfo

import (
	"fmt"

	"github.com/oss-review-toolkit/ort-sub000/interfaces"
	"github.com/oss-review-toolkit/ort-sub000/provenance"
	"github.com/oss-review-toolkit/ort-sub000/spdxexpr"
)

// Identifier names a single package, in the conventional
// type:namespace:name:version form used throughout the resolver.
type Identifier struct {
	Type      string
	Namespace string
	Name      string
	Version   string
}

// String renders the identifier in its canonical colon-joined form.
func (id Identifier) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", id.Type, id.Namespace, id.Name, id.Version)
}

// TextLocation is a path plus an inclusive 1-based line range within that
// path's contents, where a finding was made.
type TextLocation struct {
	Path      string
	StartLine int
	EndLine   int
}

// Contains reports whether other's line range sits fully inside this
// location's range, for the same path.
func (t TextLocation) Contains(other TextLocation) bool {
	return t.Path == other.Path && t.StartLine <= other.StartLine && other.EndLine <= t.EndLine
}

// LicenseFinding is a single detected license expression at a specific text
// location, with the scanner's confidence in that determination.
type LicenseFinding struct {
	License    *spdxexpr.Expression
	Location   TextLocation
	Score      float64
}

// CopyrightFinding is a single detected copyright statement at a specific
// text location.
type CopyrightFinding struct {
	Statement string
	Location  TextLocation
}

// ConcludedLicenseInfo is the license expression a human has concluded
// applies to the whole package, overriding detected/declared information.
// A nil Expression means no conclusion was recorded.
type ConcludedLicenseInfo struct {
	Expression *spdxexpr.Expression
}

// DeclaredLicenseInfo is the license(s) the package's own metadata (eg a
// package manifest) declares.
type DeclaredLicenseInfo struct {
	// Licenses are the raw per-declaration SPDX expressions, kept
	// separate because some callers want the untouched originals.
	Licenses []*spdxexpr.Expression

	// OriginalStrings holds, for each entry in Licenses, the original
	// free-text string it was mapped from (before SPDX normalization).
	// Parallel to Licenses; may be shorter if some entries were already
	// valid SPDX and have no distinct original form.
	OriginalStrings []string

	// Processed is the single expression obtained by ANDing every
	// declared license together, after mapping any free-text license
	// names to SPDX identifiers. Nil if Licenses is empty.
	Processed *spdxexpr.Expression

	// Authors lists the package's declared authors, used to synthesise
	// copyright findings when a resolver is configured to do so.
	Authors []string
}

// DetectedLicenseInfo is everything a file-content scan found: its license
// and copyright findings. It carries no path excludes; those come from the
// package configuration.
type DetectedLicenseInfo struct {
	Findings        Findings
	ConfigRevisions  []string
}

// Findings bundles the two independent result streams a content scan
// produces over a package's file tree.
type Findings struct {
	LicenseFindings   []LicenseFinding
	CopyrightFindings []CopyrightFinding
}

// LicenseInfo is everything known about a single package's licensing: its
// identity, its provenance, and the three independent sources of license
// knowledge.
type LicenseInfo struct {
	ID         Identifier
	Provenance provenance.Provenance

	Concluded ConcludedLicenseInfo
	Declared  DeclaredLicenseInfo
	Detected  DetectedLicenseInfo
}

// ErrUnknownPackage is returned by a LicenseInfoProvider when asked about an
// identifier it has no information for.
type ErrUnknownPackage struct {
	ID Identifier
}

func (e *ErrUnknownPackage) Error() string {
	return fmt.Sprintf("unknown package: %s", e.ID)
}

// LicenseInfoProvider supplies the raw, unresolved license information for
// a single package. Implementations may fetch this from a scan-result
// store, a database, or (as ScanResultProvider below) in-memory scanner
// output.
type LicenseInfoProvider interface {
	Get(id Identifier) (*LicenseInfo, error)
}

// PathExclude names a glob pattern excluding a subset of a package's file
// tree from license/copyright consideration, together with why.
type PathExclude struct {
	Pattern string
	Reason  string
	Comment string
}

// LicenseFindingCuration overrides or suppresses a single detected license
// finding. See package curation for matching/application semantics.
type LicenseFindingCuration struct {
	Path            string
	StartLines      []int
	LineCount       int
	DetectedLicense *spdxexpr.Expression
	ConcludedLicense *spdxexpr.Expression
	Reason          string
	Comment         string
}

// PackageConfiguration is the per-package overlay of path excludes and
// license finding curations that a PackageConfigurationProvider supplies.
type PackageConfiguration struct {
	ID                      Identifier
	PathExcludes            []PathExclude
	LicenseFindingCurations []LicenseFindingCuration

	// RelativeFindingsPath is prepended to every finding location's path
	// before curation/exclude glob matching and before it is recorded on
	// a resolved location, so a package whose scan root differs from its
	// VCS root still produces paths relative to the VCS root.
	RelativeFindingsPath string
}

// PackageConfigurationProvider supplies the curation/exclude overlay for a
// single package, identified by id and the exact provenance the
// configuration was authored against. Implementations should return a
// zero-value PackageConfiguration, not an error, when no configuration
// exists for the pair: an absent configuration is a normal, common case.
type PackageConfigurationProvider interface {
	Get(id Identifier, prov provenance.Provenance) (*PackageConfiguration, error)
}

// StaticConfigurationProvider is a PackageConfigurationProvider backed by an
// in-memory map, for tests, fixtures, and small deployments that load their
// whole curation/exclude overlay from a single config file at startup.
type StaticConfigurationProvider struct {
	configs map[string]*PackageConfiguration
}

// NewStaticConfigurationProvider builds a StaticConfigurationProvider from a
// flat list of configurations, keyed by identifier string plus provenance
// storage key so the same package can carry different overlays per source.
func NewStaticConfigurationProvider(configs []*PackageConfiguration, provs []provenance.Provenance) (*StaticConfigurationProvider, error) {
	if len(configs) != len(provs) {
		return nil, fmt.Errorf("configs and provenances must be the same length")
	}
	m := make(map[string]*PackageConfiguration, len(configs))
	for i, c := range configs {
		m[staticConfigKey(c.ID, provs[i])] = c
	}
	return &StaticConfigurationProvider{configs: m}, nil
}

func staticConfigKey(id Identifier, prov provenance.Provenance) string {
	return id.String() + "::" + prov.StorageKey()
}

// Get implements PackageConfigurationProvider.
func (p *StaticConfigurationProvider) Get(id Identifier, prov provenance.Provenance) (*PackageConfiguration, error) {
	if cfg, ok := p.configs[staticConfigKey(id, prov)]; ok {
		return cfg, nil
	}
	return &PackageConfiguration{ID: id}, nil
}

// ScanResultProvider adapts this repository's own scanner output
// (interfaces.ResultSet, as produced by the backend/* packages) into the
// LicenseInfoProvider boundary, so the resolver can run directly against a
// freshly completed scan without a separate storage round-trip.
type ScanResultProvider struct {
	// Results is keyed by package identifier string (Identifier.String()).
	Results map[string]*ScanResultEntry
}

// ScanResultEntry is one package's raw scan output plus whatever concluded
// and declared license info accompanies it (typically from package
// metadata parsed alongside the scan).
type ScanResultEntry struct {
	ID         Identifier
	Provenance provenance.Provenance
	Concluded  ConcludedLicenseInfo
	Declared   DeclaredLicenseInfo
	ResultSet  interfaces.ResultSet
}

// NewScanResultProvider builds a ScanResultProvider from a list of entries.
func NewScanResultProvider(entries []*ScanResultEntry) *ScanResultProvider {
	m := make(map[string]*ScanResultEntry, len(entries))
	for _, e := range entries {
		m[e.ID.String()] = e
	}
	return &ScanResultProvider{Results: m}
}

// Get implements LicenseInfoProvider, converting the backend ResultSet's
// licenses.License values into LicenseFindings with a synthetic single-line
// TextLocation, since the scanner result model this repository carries
// forward doesn't track per-match line ranges (see backend.RegexpCore and
// backend.Spdx, which scan whole files and have no finer location to give).
func (p *ScanResultProvider) Get(id Identifier) (*LicenseInfo, error) {
	entry, ok := p.Results[id.String()]
	if !ok {
		return nil, &ErrUnknownPackage{ID: id}
	}

	var findings []LicenseFinding
	for path, byBackend := range entry.ResultSet {
		for _, result := range byBackend {
			if result == nil || result.Skip != nil {
				continue
			}
			for _, lic := range result.Licenses {
				findings = append(findings, LicenseFinding{
					License:  spdxexpr.Leaf(lic.String()),
					Location: TextLocation{Path: path, StartLine: 1, EndLine: 1},
					Score:    result.Confidence,
				})
			}
		}
	}

	return &LicenseInfo{
		ID:         entry.ID,
		Provenance: entry.Provenance,
		Concluded:  entry.Concluded,
		Declared:   entry.Declared,
		Detected: DetectedLicenseInfo{
			Findings: Findings{LicenseFindings: findings},
		},
	}, nil
}
