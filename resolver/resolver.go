// Package resolver is the orchestrator: it turns a package's raw
// LicenseInfo into a fully resolved ResolvedLicenseInfo by applying
// curations, matching copyrights to licenses, evaluating path excludes, and
// folding everything into a deterministic, memoised result.
package resolver

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/oss-review-toolkit/ort-sub000/curation"
	"github.com/oss-review-toolkit/ort-sub000/findingsmatch"
	"github.com/oss-review-toolkit/ort-sub000/licenseinfo"
	"github.com/oss-review-toolkit/ort-sub000/pathmatch"
	"github.com/oss-review-toolkit/ort-sub000/provenance"
	"github.com/oss-review-toolkit/ort-sub000/rootlicense"
	"github.com/oss-review-toolkit/ort-sub000/spdxexpr"
)

// Source identifies which of declared/detected/concluded license info a
// ResolvedOriginalExpression came from.
type Source int

const (
	SourceDeclared Source = iota
	SourceDetected
	SourceConcluded
)

func (s Source) String() string {
	switch s {
	case SourceDeclared:
		return "DECLARED"
	case SourceDetected:
		return "DETECTED"
	case SourceConcluded:
		return "CONCLUDED"
	default:
		return "UNKNOWN"
	}
}

// ResolvedOriginalExpression records one contributing source expression for
// a resolved single license.
type ResolvedOriginalExpression struct {
	Expression         *spdxexpr.Expression
	Source             Source
	IsDetectedExcluded bool
}

// ResolvedCopyrightFinding is a copyright finding attached to a resolved
// license location, with its own path-exclude evaluation.
type ResolvedCopyrightFinding struct {
	Statement            string
	Location              licenseinfo.TextLocation
	MatchingPathExcludes  []licenseinfo.PathExclude
}

// ResolvedLicenseLocation is one place in the source tree that license was
// found, together with whatever curation produced it and whichever
// copyrights matched.
type ResolvedLicenseLocation struct {
	Provenance           provenance.Provenance
	Location             licenseinfo.TextLocation
	AppliedCuration      *licenseinfo.LicenseFindingCuration
	MatchingPathExcludes []licenseinfo.PathExclude
	Copyrights           []ResolvedCopyrightFinding
}

// ResolvedCopyright is a canonical copyright statement plus every raw
// finding that was normalized to it.
type ResolvedCopyright struct {
	Statement string
	Findings  []ResolvedCopyrightFinding
}

// ResolvedLicense is everything resolved for one single-license expression.
type ResolvedLicense struct {
	License                 *spdxexpr.Expression
	OriginalDeclaredStrings []string
	OriginalExpressions     []ResolvedOriginalExpression
	Locations               []ResolvedLicenseLocation
}

// Sources returns the set of sources this license was derived from.
func (r *ResolvedLicense) Sources() map[Source]bool {
	out := make(map[Source]bool, len(r.OriginalExpressions))
	for _, oe := range r.OriginalExpressions {
		out[oe.Source] = true
	}
	return out
}

// IsExcluded reports whether this license's only source is DETECTED and
// every one of its locations carries a non-empty matching-excludes list.
func (r *ResolvedLicense) IsExcluded() bool {
	sources := r.Sources()
	if len(sources) != 1 || !sources[SourceDetected] {
		return false
	}
	if len(r.Locations) == 0 {
		return false
	}
	for _, loc := range r.Locations {
		if len(loc.MatchingPathExcludes) == 0 {
			return false
		}
	}
	return true
}

// GetCopyrights post-processes this license's copyright findings: it first
// drops excluded findings (non-empty matching path excludes) when
// omitExcluded is set, then runs the remaining raw statements through
// process (if non-nil) to canonicalise them, grouping the result back by
// canonical statement.
func (r *ResolvedLicense) GetCopyrights(process CopyrightStatementsProcessor, omitExcluded bool) []ResolvedCopyright {
	var findings []ResolvedCopyrightFinding
	for _, loc := range r.Locations {
		for _, cf := range loc.Copyrights {
			if omitExcluded && len(cf.MatchingPathExcludes) > 0 {
				continue
			}
			findings = append(findings, cf)
		}
	}

	if len(findings) == 0 {
		return nil
	}

	statements := make([]string, len(findings))
	for i, f := range findings {
		statements[i] = f.Statement
	}

	canonicalOf := func(s string) string { return s }
	if process != nil {
		processed, _, err := process.Process(statements)
		if err == nil && processed != nil {
			canonicalOf = func(s string) string {
				for canon, originals := range processed {
					for _, o := range originals {
						if o == s {
							return canon
						}
					}
				}
				return s
			}
		}
	}

	byCanonical := make(map[string][]ResolvedCopyrightFinding)
	var order []string
	for _, f := range findings {
		c := canonicalOf(f.Statement)
		if _, ok := byCanonical[c]; !ok {
			order = append(order, c)
		}
		byCanonical[c] = append(byCanonical[c], f)
	}
	sort.Strings(order)

	out := make([]ResolvedCopyright, 0, len(order))
	for _, c := range order {
		out = append(out, ResolvedCopyright{Statement: c, Findings: byCanonical[c]})
	}
	return out
}

// ResolvedLicenseInfo is the fully resolved license picture for one
// package.
type ResolvedLicenseInfo struct {
	ID       licenseinfo.Identifier
	Raw      licenseinfo.LicenseInfo
	Licenses []*ResolvedLicense

	// CopyrightGarbage and UnmatchedCopyrights are keyed by provenance
	// storage key.
	CopyrightGarbage    map[string][]licenseinfo.CopyrightFinding
	UnmatchedCopyrights map[string][]licenseinfo.CopyrightFinding
}

// ResolvedLicenseFile is one on-disk file recognised as a package's license
// file, together with the resolved licenses it documents.
type ResolvedLicenseFile struct {
	Provenance   provenance.Provenance
	Licenses     []*ResolvedLicense
	RelativePath string
	AbsolutePath string
}

// ResolvedLicenseFileInfo is every ResolvedLicenseFile for one package.
type ResolvedLicenseFileInfo struct {
	ID    licenseinfo.Identifier
	Files []*ResolvedLicenseFile
}

// FileArchiver is the external collaborator that can materialize a
// package's source archive on local disk, keyed by provenance.
type FileArchiver interface {
	HasArchive(prov provenance.Provenance) bool
	Archive(rootDir string, prov provenance.Provenance) error
	Unarchive(dir string, prov provenance.Provenance) (bool, error)
}

// CopyrightStatementsProcessor canonicalises a batch of raw copyright
// statements. Implementations are assumed pure: same input, same output.
type CopyrightStatementsProcessor interface {
	Process(statements []string) (processed map[string][]string, unprocessed []string, err error)
}

// DefaultCopyrightProcessor is a trivial CopyrightStatementsProcessor that
// treats every statement as its own canonical form after trimming
// surrounding whitespace. It exists so a resolver can be constructed
// without a real copyright-normalization backend.
type DefaultCopyrightProcessor struct{}

// Process implements CopyrightStatementsProcessor.
func (DefaultCopyrightProcessor) Process(statements []string) (map[string][]string, []string, error) {
	processed := make(map[string][]string)
	for _, s := range statements {
		canon := strings.TrimSpace(s)
		processed[canon] = append(processed[canon], s)
	}
	return processed, nil, nil
}

// ErrUnknownPackage is surfaced verbatim from the underlying provider; kept
// as an alias here so callers need not import licenseinfo just to type-check
// resolver errors.
type ErrUnknownPackage = licenseinfo.ErrUnknownPackage

// Config holds every immutable option the resolver is configured with. See
// spec §6's configuration options table.
type Config struct {
	// CopyrightGarbage is a set of exact copyright statement strings to
	// drop from resolution, recorded separately for audit.
	CopyrightGarbage map[string]bool

	// AddAuthorsToCopyrights synthesises copyright findings from
	// declared-license authors when true.
	AddAuthorsToCopyrights bool

	// Archiver enables resolve_license_files when non-nil.
	Archiver FileArchiver

	// CopyrightProcessor canonicalises copyright statements. Defaults to
	// DefaultCopyrightProcessor when nil.
	CopyrightProcessor CopyrightStatementsProcessor

	// LicenceFilenamePatterns, FallbackLicenceFilenamePatterns and
	// PatentFilenamePatterns parameterise the root-license matcher used
	// by resolve_license_files.
	LicenceFilenamePatterns         []string
	FallbackLicenceFilenamePatterns []string
	PatentFilenamePatterns          []string

	// ToleranceLines and ExpandToleranceLines parameterise the findings
	// matcher. Zero means use findingsmatch's defaults.
	ToleranceLines       int
	ExpandToleranceLines int

	Logf func(format string, v ...interface{})
}

// Resolver is the orchestrator described in spec §4.7. It is safe for
// concurrent use: resolve_license_info and resolve_license_files are each
// memoised behind a sync.Map with get-or-compute semantics.
type Resolver struct {
	provider       licenseinfo.LicenseInfoProvider
	configProvider licenseinfo.PackageConfigurationProvider
	config         Config
	matcher        *findingsmatch.Matcher
	rootMatcher    *rootlicense.Matcher

	infoCache  sync.Map // string(id) -> *infoCacheEntry
	filesCache sync.Map // string(id) -> *filesCacheEntry
}

type infoCacheEntry struct {
	once   sync.Once
	result *ResolvedLicenseInfo
	err    error
}

type filesCacheEntry struct {
	once   sync.Once
	result *ResolvedLicenseFileInfo
	err    error
}

// New builds a Resolver. provider and configProvider must be non-nil;
// configProvider may be licenseinfo.NewStaticConfigurationProvider(nil, nil)
// equivalent if no per-package overlay is needed.
func New(provider licenseinfo.LicenseInfoProvider, configProvider licenseinfo.PackageConfigurationProvider, cfg Config) (*Resolver, error) {
	if provider == nil {
		return nil, fmt.Errorf("resolver: provider must not be nil")
	}
	if configProvider == nil {
		return nil, fmt.Errorf("resolver: configProvider must not be nil")
	}
	if cfg.CopyrightProcessor == nil {
		cfg.CopyrightProcessor = DefaultCopyrightProcessor{}
	}
	if cfg.Logf == nil {
		cfg.Logf = func(string, ...interface{}) {}
	}

	allLicenceNames := append(append([]string{}, cfg.LicenceFilenamePatterns...), cfg.FallbackLicenceFilenamePatterns...)
	matcher, err := findingsmatch.NewMatcher(allLicenceNames)
	if err != nil {
		return nil, fmt.Errorf("resolver: building findings matcher: %w", err)
	}
	if cfg.ToleranceLines != 0 {
		matcher.ToleranceLines = cfg.ToleranceLines
	}
	if cfg.ExpandToleranceLines != 0 {
		matcher.ExpandToleranceLines = cfg.ExpandToleranceLines
	}

	rootMatcher, err := rootlicense.NewMatcher(cfg.LicenceFilenamePatterns, cfg.FallbackLicenceFilenamePatterns, cfg.PatentFilenamePatterns)
	if err != nil {
		return nil, fmt.Errorf("resolver: building root-license matcher: %w", err)
	}

	return &Resolver{
		provider:       provider,
		configProvider: configProvider,
		config:         cfg,
		matcher:        matcher,
		rootMatcher:    rootMatcher,
	}, nil
}

// ResolveLicenseInfo resolves id, memoising the result so that repeated
// calls with the same id return the same value without recomputation.
func (r *Resolver) ResolveLicenseInfo(id licenseinfo.Identifier) (*ResolvedLicenseInfo, error) {
	key := id.String()
	entryIface, _ := r.infoCache.LoadOrStore(key, &infoCacheEntry{})
	entry := entryIface.(*infoCacheEntry)
	entry.once.Do(func() {
		entry.result, entry.err = r.resolveLicenseInfo(id)
	})
	return entry.result, entry.err
}

func (r *Resolver) resolveLicenseInfo(id licenseinfo.Identifier) (*ResolvedLicenseInfo, error) {
	raw, err := r.provider.Get(id)
	if err != nil {
		return nil, err
	}

	cfg, err := r.configProvider.Get(id, raw.Provenance)
	if err != nil {
		return nil, err
	}

	builders := make(map[string]*licenseBuilder)
	var order []string
	getBuilder := func(leaf *spdxexpr.Expression) *licenseBuilder {
		k := leaf.String()
		b, ok := builders[k]
		if !ok {
			b = &licenseBuilder{license: leaf, detectedOriginals: make(map[string]*spdxexpr.Expression)}
			builders[k] = b
			order = append(order, k)
		}
		return b
	}

	// Step 2+3: concluded and declared leaves.
	if raw.Concluded.Expression != nil {
		for _, leaf := range spdxexpr.Decompose(raw.Concluded.Expression) {
			b := getBuilder(leaf)
			b.originalExpressions = append(b.originalExpressions, ResolvedOriginalExpression{
				Expression: raw.Concluded.Expression,
				Source:     SourceConcluded,
			})
		}
	}
	if raw.Declared.Processed != nil {
		for _, leaf := range spdxexpr.Decompose(raw.Declared.Processed) {
			b := getBuilder(leaf)
			b.originalExpressions = append(b.originalExpressions, ResolvedOriginalExpression{
				Expression: raw.Declared.Processed,
				Source:     SourceDeclared,
			})
			for i, declExpr := range raw.Declared.Licenses {
				for _, declLeaf := range spdxexpr.Decompose(declExpr) {
					if declLeaf.String() == leaf.String() {
						if i < len(raw.Declared.OriginalStrings) {
							b.originalDeclaredStrings = append(b.originalDeclaredStrings, raw.Declared.OriginalStrings[i])
						} else {
							b.originalDeclaredStrings = append(b.originalDeclaredStrings, declExpr.String())
						}
					}
				}
			}
		}
	}

	// Step 4: synthesise author copyrights on declared leaves.
	if r.config.AddAuthorsToCopyrights && len(raw.Declared.Authors) > 0 && raw.Declared.Processed != nil {
		for _, leaf := range spdxexpr.Decompose(raw.Declared.Processed) {
			b := getBuilder(leaf)
			var copyrights []ResolvedCopyrightFinding
			for _, author := range raw.Declared.Authors {
				stmt := author
				if !strings.Contains(strings.ToLower(author), "copyright") {
					stmt = "Copyright (C) " + author
				}
				copyrights = append(copyrights, ResolvedCopyrightFinding{Statement: stmt})
			}
			b.locations = append(b.locations, ResolvedLicenseLocation{
				Provenance: provenance.Unknown(),
				Copyrights: copyrights,
			})
		}
	}

	// Step 5: partition detected findings by copyright garbage.
	copyrightGarbage := make(map[string][]licenseinfo.CopyrightFinding)
	unmatchedCopyrights := make(map[string][]licenseinfo.CopyrightFinding)

	relPath := cfg.RelativeFindingsPath
	provKey := raw.Provenance.StorageKey()

	findings := raw.Detected.Findings
	var surviving []licenseinfo.CopyrightFinding
	for _, cf := range findings.CopyrightFindings {
		if r.config.CopyrightGarbage[cf.Statement] {
			copyrightGarbage[provKey] = append(copyrightGarbage[provKey], cf)
			continue
		}
		surviving = append(surviving, cf)
	}

	// Step 6: apply curations, match against surviving copyrights.
	curationResults, err := curation.ApplyAll(findings.LicenseFindings, cfg.LicenseFindingCurations, relPath)
	if err != nil {
		return nil, err
	}

	// Collect curated findings and their applied curations into parallel
	// slices first, so that the pointers computed below into
	// curatedFindings (taken only once its backing array is final) are
	// the same pointers findingsmatch.Match will compute internally.
	var curatedFindings []licenseinfo.LicenseFinding
	var curatedFindingCurations []*licenseinfo.LicenseFindingCuration
	for i := range curationResults {
		cr := curationResults[i]
		if cr.CuratedFinding == nil {
			continue
		}
		curatedFindings = append(curatedFindings, *cr.CuratedFinding)
		var appliedCur *licenseinfo.LicenseFindingCuration
		if len(cr.Pairs) > 0 && cr.Pairs[0].Curation != nil {
			appliedCur = cr.Pairs[0].Curation
		}
		curatedFindingCurations = append(curatedFindingCurations, appliedCur)
	}

	appliedCurationOf := make(map[*licenseinfo.LicenseFinding]*licenseinfo.LicenseFindingCuration, len(curatedFindings))
	for i := range curatedFindings {
		if curatedFindingCurations[i] != nil {
			appliedCurationOf[&curatedFindings[i]] = curatedFindingCurations[i]
		}
	}

	excludedFlagByOriginal := make(map[string]bool)

	matchResult := r.matcher.Match(licenseinfo.Findings{
		LicenseFindings:   curatedFindings,
		CopyrightFindings: surviving,
	})

	for lf, copyrights := range matchResult.Matched {
		full := joinRelPath(relPath, lf.Location.Path)
		pathExcludes := matchingPathExcludes(cfg.PathExcludes, full)

		var resolvedCopyrights []ResolvedCopyrightFinding
		for _, cf := range copyrights {
			cfFull := joinRelPath(relPath, cf.Location.Path)
			resolvedCopyrights = append(resolvedCopyrights, ResolvedCopyrightFinding{
				Statement:            cf.Statement,
				Location:             withPrependedPath(cf.Location, relPath),
				MatchingPathExcludes: matchingPathExcludes(cfg.PathExcludes, cfFull),
			})
		}

		excluded := len(pathExcludes) > 0
		originalKey := lf.License.String()
		if existing, ok := excludedFlagByOriginal[originalKey]; !ok || existing {
			// is_detected_excluded is an AND-fold across every location
			// sharing this original expression: it stays true only as
			// long as every location seen so far was excluded.
			excludedFlagByOriginal[originalKey] = excluded
		}

		for _, leaf := range spdxexpr.Decompose(lf.License) {
			b := getBuilder(leaf)
			loc := ResolvedLicenseLocation{
				Provenance:           raw.Provenance,
				Location:             withPrependedPath(lf.Location, relPath),
				AppliedCuration:      appliedCurationOf[lf],
				MatchingPathExcludes: pathExcludes,
				Copyrights:           resolvedCopyrights,
			}
			b.locations = append(b.locations, loc)

			b.detectedOriginals[originalKey] = lf.License
		}
	}

	for _, cf := range matchResult.UnmatchedCopyrights {
		unmatchedCopyrights[provKey] = append(unmatchedCopyrights[provKey], cf)
	}

	// Step 7: record DETECTED ResolvedOriginalExpression per leaf.
	for key, expr := range collectDetectedOriginals(builders) {
		excluded := excludedFlagByOriginal[key]
		for _, leaf := range spdxexpr.Decompose(expr) {
			b := getBuilder(leaf)
			b.originalExpressions = append(b.originalExpressions, ResolvedOriginalExpression{
				Expression:         expr,
				Source:             SourceDetected,
				IsDetectedExcluded: excluded,
			})
		}
	}

	// Step 9: build final deterministic list.
	sort.Strings(order)
	licenses := make([]*ResolvedLicense, 0, len(order))
	for _, k := range order {
		b := builders[k]
		sort.Slice(b.locations, func(i, j int) bool {
			return locationLess(b.locations[i], b.locations[j])
		})
		licenses = append(licenses, &ResolvedLicense{
			License:                 b.license,
			OriginalDeclaredStrings: b.originalDeclaredStrings,
			OriginalExpressions:     b.originalExpressions,
			Locations:               b.locations,
		})
	}

	return &ResolvedLicenseInfo{
		ID:                  id,
		Raw:                 *raw,
		Licenses:            licenses,
		CopyrightGarbage:    copyrightGarbage,
		UnmatchedCopyrights: unmatchedCopyrights,
	}, nil
}

// licenseBuilder accumulates the pieces of one ResolvedLicense while
// walking the raw license info.
type licenseBuilder struct {
	license                 *spdxexpr.Expression
	originalDeclaredStrings []string
	originalExpressions     []ResolvedOriginalExpression
	locations               []ResolvedLicenseLocation
	detectedOriginals       map[string]*spdxexpr.Expression
}

func collectDetectedOriginals(builders map[string]*licenseBuilder) map[string]*spdxexpr.Expression {
	out := make(map[string]*spdxexpr.Expression)
	for _, b := range builders {
		if b.detectedOriginals == nil {
			continue
		}
		for k, v := range b.detectedOriginals {
			out[k] = v
		}
	}
	return out
}

func joinRelPath(relativePath, path string) string {
	if relativePath == "" {
		return path
	}
	return strings.TrimSuffix(relativePath, "/") + "/" + path
}

func withPrependedPath(loc licenseinfo.TextLocation, relativePath string) licenseinfo.TextLocation {
	out := loc
	out.Path = joinRelPath(relativePath, loc.Path)
	return out
}

func matchingPathExcludes(excludes []licenseinfo.PathExclude, fullPath string) []licenseinfo.PathExclude {
	var out []licenseinfo.PathExclude
	for _, ex := range excludes {
		ok, err := pathmatch.Match(ex.Pattern, fullPath)
		if err == nil && ok {
			out = append(out, ex)
		}
	}
	return out
}

func locationLess(a, b ResolvedLicenseLocation) bool {
	ka, kb := a.Provenance.StorageKey(), b.Provenance.StorageKey()
	if ka != kb {
		return ka < kb
	}
	if a.Location.Path != b.Location.Path {
		return a.Location.Path < b.Location.Path
	}
	if a.Location.StartLine != b.Location.StartLine {
		return a.Location.StartLine < b.Location.StartLine
	}
	return a.Location.EndLine < b.Location.EndLine
}

// ResolveLicenseFiles resolves id's license files, memoised. It returns an
// empty ResolvedLicenseFileInfo when no archiver is configured.
func (r *Resolver) ResolveLicenseFiles(id licenseinfo.Identifier) (*ResolvedLicenseFileInfo, error) {
	if r.config.Archiver == nil {
		return &ResolvedLicenseFileInfo{ID: id}, nil
	}

	key := id.String()
	entryIface, _ := r.filesCache.LoadOrStore(key, &filesCacheEntry{})
	entry := entryIface.(*filesCacheEntry)
	entry.once.Do(func() {
		entry.result, entry.err = r.resolveLicenseFiles(id)
	})
	return entry.result, entry.err
}

func (r *Resolver) resolveLicenseFiles(id licenseinfo.Identifier) (*ResolvedLicenseFileInfo, error) {
	info, err := r.ResolveLicenseInfo(id)
	if err != nil {
		return nil, err
	}

	seenProv := make(map[string]provenance.Provenance)
	for _, lic := range info.Licenses {
		for _, loc := range lic.Locations {
			if loc.Provenance.Kind == provenance.KindUnknown {
				continue
			}
			seenProv[loc.Provenance.StorageKey()] = loc.Provenance
		}
	}

	var files []*ResolvedLicenseFile
	for _, prov := range seenProv {
		dir, err := os.MkdirTemp("", "licenseresolve-files-")
		if err != nil {
			r.config.Logf("resolve_license_files: could not create temp dir for %s: %v", prov, err)
			continue
		}

		ok, err := r.config.Archiver.Unarchive(dir, prov)
		if err != nil || !ok {
			r.config.Logf("resolve_license_files: archive miss for %s, skipping", prov)
			continue
		}

		var allPaths []string
		for _, lic := range info.Licenses {
			for _, loc := range lic.Locations {
				if loc.Provenance.StorageKey() == prov.StorageKey() {
					allPaths = append(allPaths, loc.Location.Path)
				}
			}
		}

		result := r.rootMatcher.Resolve(allPaths, ".")
		for _, relPath := range result.Files() {
			var matching []*ResolvedLicense
			for _, lic := range info.Licenses {
				for _, loc := range lic.Locations {
					if loc.Provenance.StorageKey() == prov.StorageKey() && loc.Location.Path == relPath {
						matching = append(matching, lic)
						break
					}
				}
			}
			files = append(files, &ResolvedLicenseFile{
				Provenance:   prov,
				Licenses:     matching,
				RelativePath: relPath,
				AbsolutePath: dir + "/" + relPath,
			})
		}
	}

	return &ResolvedLicenseFileInfo{ID: id, Files: files}, nil
}
