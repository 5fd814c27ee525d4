// Copyright Amazon.com Inc or its affiliates and the project contributors
// Written by James Shubin <purple@amazon.com> and the project contributors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.
//
// We will never require a CLA to submit a patch. All contributions follow the
// `inbound == outbound` rule.
//
// This is not an official Amazon product. Amazon does not offer support for
// this project.

// Command licenseresolve loads a scan-result fixture and resolves the
// license info for one or more packages, either printing a report to the
// console or serving the resolver over HTTP.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v2"

	"github.com/oss-review-toolkit/ort-sub000/archivestore"
	"github.com/oss-review-toolkit/ort-sub000/licenseinfo"
	"github.com/oss-review-toolkit/ort-sub000/licenseview"
	"github.com/oss-review-toolkit/ort-sub000/httpapi"
	"github.com/oss-review-toolkit/ort-sub000/provenance"
	"github.com/oss-review-toolkit/ort-sub000/report"
	"github.com/oss-review-toolkit/ort-sub000/resolver"
	"github.com/oss-review-toolkit/ort-sub000/spdxexpr"
	"github.com/oss-review-toolkit/ort-sub000/util/ansi"
	"github.com/oss-review-toolkit/ort-sub000/util/errutil"
)

//go:generate bash -c "basename $(pwd) | tr -d '\n' > .program"
//go:generate bash -c "git describe --match '[0-9]*.[0-9]*.[0-9]*' --tags --dirty --always > .version"

//go:embed .program
var program string

//go:embed .version
var version string

// CLI is the entry point for the CLI frontend.
func CLI(program, version string, debug bool, logf func(format string, v ...interface{})) error {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "config-path"},
		&cli.StringFlag{Name: "scan-result-path"},
		&cli.StringFlag{Name: "scan-dir"},
		&cli.BoolFlag{Name: "classify-content"},
		&cli.StringFlag{Name: "package-type"},
		&cli.StringFlag{Name: "package-name"},
		&cli.StringFlag{Name: "package-version"},
		&cli.StringFlag{Name: "view"},
		&cli.StringFlag{Name: "http-addr"},
		&cli.BoolFlag{Name: "add-authors-to-copyrights"},
	}

	app := &cli.App{
		Name:  program,
		Usage: "resolve effective license and copyright info from a scan result",
		Action: func(c *cli.Context) error {
			logf("starting %s, version: %s", program, version)
			defer logf("done")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			cfg, err := GetConfig(program, c.String("config-path"))
			if err != nil {
				return err
			}
			if cfg == nil {
				cfg = &Config{}
			}

			if c.IsSet("scan-result-path") {
				cfg.ScanResultPath = c.String("scan-result-path")
			}
			if c.IsSet("scan-dir") {
				cfg.ScanDir = c.String("scan-dir")
			}
			if c.IsSet("classify-content") {
				cfg.ClassifyContent = c.Bool("classify-content")
			}
			if c.IsSet("package-type") {
				cfg.PackageType = c.String("package-type")
			}
			if c.IsSet("package-name") {
				cfg.PackageName = c.String("package-name")
			}
			if c.IsSet("package-version") {
				cfg.PackageVersion = c.String("package-version")
			}
			if c.IsSet("view") {
				cfg.View = c.String("view")
			}
			if c.IsSet("http-addr") {
				cfg.HTTPAddr = c.String("http-addr")
			}
			if c.IsSet("add-authors-to-copyrights") {
				cfg.AddAuthorsToCopyrights = c.Bool("add-authors-to-copyrights")
			}

			if cfg.ScanResultPath == "" && cfg.ScanDir == "" {
				return fmt.Errorf("one of scan-result-path or scan-dir is required")
			}

			var ids []licenseinfo.Identifier
			var infoProvider licenseinfo.LicenseInfoProvider
			var configProvider licenseinfo.PackageConfigurationProvider

			if cfg.ScanDir != "" {
				id := licenseinfo.Identifier{Type: cfg.PackageType, Name: cfg.PackageName, Version: cfg.PackageVersion}
				if id.Name == "" {
					id.Name = filepath.Base(cfg.ScanDir)
				}
				if id.Type == "" {
					id.Type = "generic"
				}

				p, err := scanDirectory(ctx, cfg.ScanDir, id, cfg.ClassifyContent, debug, logf)
				if err != nil {
					return errutil.Wrapf(err, "error scanning %s", cfg.ScanDir)
				}
				infoProvider = p
				configProvider, err = licenseinfo.NewStaticConfigurationProvider(nil, nil)
				if err != nil {
					return errutil.Wrapf(err, "error building config provider")
				}
				ids = []licenseinfo.Identifier{id}
			} else {
				fixtures, err := loadFixture(cfg.ScanResultPath)
				if err != nil {
					return errutil.Wrapf(err, "error loading scan result")
				}

				infoProvider, configProvider, err = buildProviders(fixtures)
				if err != nil {
					return errutil.Wrapf(err, "error building providers")
				}
				ids = fixtures.ids()
			}

			var archiver resolver.FileArchiver
			if cfg.ArchiveDir != "" {
				store, err := archivestore.NewLocalStore(cfg.ArchiveDir)
				if err != nil {
					return errutil.Wrapf(err, "error opening archive dir")
				}
				archiver = archivestore.NewStore(store, debug, logf)
			}

			res, err := resolver.New(infoProvider, configProvider, resolver.Config{
				AddAuthorsToCopyrights: cfg.AddAuthorsToCopyrights,
				Archiver:               archiver,
				LicenceFilenamePatterns: []string{
					"license*", "licence*", "copying*",
				},
				FallbackLicenceFilenamePatterns: []string{
					"readme*", "notice*",
				},
				PatentFilenamePatterns: []string{"patents*"},
				Logf:                   logf,
			})
			if err != nil {
				return errutil.Wrapf(err, "error building resolver")
			}

			if cfg.HTTPAddr != "" {
				server := &httpapi.Server{
					Program:  program,
					Debug:    debug,
					Logf:     logf,
					Resolver: res,
					Addr:     cfg.HTTPAddr,
				}
				return server.Run()
			}

			view := viewFromName(cfg.View)
			style := report.DetectStyle(os.Stdout.Fd())

			for _, id := range ids {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				info, err := res.ResolveLicenseInfo(id)
				if err != nil {
					logf("resolve failed for %s: %v", id, err)
					continue
				}

				effective, err := licenseview.EffectiveLicense(info, view)
				if err != nil {
					logf("effective license failed for %s: %v", id, err)
				} else if effective != nil {
					fmt.Printf("%s: effective license: %s\n", id, effective.String())
				}

				fmt.Print(report.Render(info, style))
			}

			return nil
		},
		Flags: flags,
	}

	return app.Run(os.Args)
}

func viewFromName(name string) licenseview.View {
	switch name {
	case "CONCLUDED_OR_REST":
		return licenseview.CONCLUDED_OR_REST
	case "CONCLUDED_OR_DECLARED_OR_DETECTED":
		return licenseview.CONCLUDED_OR_DECLARED_OR_DETECTED
	case "CONCLUDED_OR_DETECTED":
		return licenseview.CONCLUDED_OR_DETECTED
	case "ONLY_CONCLUDED":
		return licenseview.ONLY_CONCLUDED
	case "ONLY_DECLARED":
		return licenseview.ONLY_DECLARED
	case "ONLY_DETECTED":
		return licenseview.ONLY_DETECTED
	default:
		return licenseview.ALL
	}
}

// fixtureFile is the on-disk JSON shape for a scan-result fixture: a flat
// list of packages, each carrying its own provenance, concluded/declared
// license info, and detected findings. It exists because this repository's
// internal licenseinfo.LicenseInfo carries spdxexpr.Expression trees and
// provenance.Provenance variants that don't have a natural JSON encoding of
// their own.
type fixtureFile struct {
	Packages []fixturePackage `json:"packages"`
}

func (f *fixtureFile) ids() []licenseinfo.Identifier {
	out := make([]licenseinfo.Identifier, 0, len(f.Packages))
	for _, p := range f.Packages {
		out = append(out, p.identifier())
	}
	return out
}

type fixturePackage struct {
	Type      string `json:"type"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Version   string `json:"version"`

	Provenance fixtureProvenance `json:"provenance"`

	ConcludedLicense string   `json:"concluded_license"`
	DeclaredLicenses []string `json:"declared_licenses"`
	Authors          []string `json:"authors"`

	PathExcludes []licenseinfo.PathExclude `json:"path_excludes"`
	Curations    []fixtureCuration         `json:"license_finding_curations"`

	LicenseFindings   []fixtureLicenseFinding   `json:"license_findings"`
	CopyrightFindings []fixtureCopyrightFinding `json:"copyright_findings"`
}

func (p *fixturePackage) identifier() licenseinfo.Identifier {
	return licenseinfo.Identifier{Type: p.Type, Namespace: p.Namespace, Name: p.Name, Version: p.Version}
}

type fixtureProvenance struct {
	Kind string `json:"kind"` // "artifact", "repository" or "" (unknown)

	ArtifactURL          string `json:"artifact_url"`
	ArtifactHashAlgorithm string `json:"artifact_hash_algorithm"`
	ArtifactHash         string `json:"artifact_hash"`

	RepositoryType     string `json:"repository_type"`
	RepositoryURL      string `json:"repository_url"`
	ResolvedRevision   string `json:"resolved_revision"`
	RepositoryPath     string `json:"repository_path"`
}

func (p fixtureProvenance) toProvenance() provenance.Provenance {
	switch strings.ToLower(p.Kind) {
	case "artifact":
		return provenance.FromArtifact(provenance.ArtifactProvenance{
			URL:           p.ArtifactURL,
			HashAlgorithm: p.ArtifactHashAlgorithm,
			Hash:          p.ArtifactHash,
		})
	case "repository":
		return provenance.FromRepository(provenance.RepositoryProvenance{
			Type:             p.RepositoryType,
			URL:              p.RepositoryURL,
			ResolvedRevision: p.ResolvedRevision,
			Path:             p.RepositoryPath,
		})
	default:
		return provenance.Unknown()
	}
}

type fixtureCuration struct {
	Path             string `json:"path"`
	StartLines       []int  `json:"start_lines"`
	LineCount        int    `json:"line_count"`
	DetectedLicense  string `json:"detected_license"`
	ConcludedLicense string `json:"concluded_license"`
	Reason           string `json:"reason"`
	Comment          string `json:"comment"`
}

type fixtureLicenseFinding struct {
	License   string  `json:"license"`
	Path      string  `json:"path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Score     float64 `json:"score"`
}

type fixtureCopyrightFinding struct {
	Statement string `json:"statement"`
	Path      string `json:"path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
}

func loadFixture(path string) (*fixtureFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fixtureFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// buildProviders turns the loaded fixture into the two collaborators the
// resolver depends on: one LicenseInfoProvider backed by a flat in-memory
// map, and a StaticConfigurationProvider built from each package's
// path-excludes and curations.
func buildProviders(f *fixtureFile) (licenseinfo.LicenseInfoProvider, licenseinfo.PackageConfigurationProvider, error) {
	infoByID := make(map[string]*licenseinfo.LicenseInfo, len(f.Packages))

	var configs []*licenseinfo.PackageConfiguration
	var provs []provenance.Provenance

	for _, p := range f.Packages {
		id := p.identifier()
		prov := p.Provenance.toProvenance()

		var concluded *spdxexpr.Expression
		if p.ConcludedLicense != "" {
			e, err := parseExpr(p.ConcludedLicense)
			if err != nil {
				return nil, nil, errutil.Wrapf(err, "package %s: invalid concluded license", id)
			}
			concluded = e
		}

		var declared []*spdxexpr.Expression
		for _, s := range p.DeclaredLicenses {
			e, err := parseExpr(s)
			if err != nil {
				return nil, nil, errutil.Wrapf(err, "package %s: invalid declared license %q", id, s)
			}
			declared = append(declared, e)
		}
		var processed *spdxexpr.Expression
		if len(declared) > 0 {
			processed = spdxexpr.ToExpression(declared, spdxexpr.OpAnd)
		}

		var licenseFindings []licenseinfo.LicenseFinding
		for _, lf := range p.LicenseFindings {
			e, err := parseExpr(lf.License)
			if err != nil {
				return nil, nil, errutil.Wrapf(err, "package %s: invalid license finding %q", id, lf.License)
			}
			licenseFindings = append(licenseFindings, licenseinfo.LicenseFinding{
				License:  e,
				Location: licenseinfo.TextLocation{Path: lf.Path, StartLine: lf.StartLine, EndLine: lf.EndLine},
				Score:    lf.Score,
			})
		}

		var copyrightFindings []licenseinfo.CopyrightFinding
		for _, cf := range p.CopyrightFindings {
			copyrightFindings = append(copyrightFindings, licenseinfo.CopyrightFinding{
				Statement: cf.Statement,
				Location:  licenseinfo.TextLocation{Path: cf.Path, StartLine: cf.StartLine, EndLine: cf.EndLine},
			})
		}

		infoByID[id.String()] = &licenseinfo.LicenseInfo{
			ID:         id,
			Provenance: prov,
			Concluded:  licenseinfo.ConcludedLicenseInfo{Expression: concluded},
			Declared: licenseinfo.DeclaredLicenseInfo{
				Licenses:        declared,
				OriginalStrings: p.DeclaredLicenses,
				Processed:       processed,
				Authors:         p.Authors,
			},
			Detected: licenseinfo.DetectedLicenseInfo{
				Findings: licenseinfo.Findings{
					LicenseFindings:   licenseFindings,
					CopyrightFindings: copyrightFindings,
				},
			},
		}

		var curations []licenseinfo.LicenseFindingCuration
		for _, c := range p.Curations {
			detected, err := optionalExpr(c.DetectedLicense)
			if err != nil {
				return nil, nil, errutil.Wrapf(err, "package %s: invalid curation detected license", id)
			}
			var concludedCur *spdxexpr.Expression
			if strings.EqualFold(c.ConcludedLicense, "NONE") {
				concludedCur = spdxexpr.Leaf("NONE")
			} else {
				concludedCur, err = optionalExpr(c.ConcludedLicense)
				if err != nil {
					return nil, nil, errutil.Wrapf(err, "package %s: invalid curation concluded license", id)
				}
			}
			curations = append(curations, licenseinfo.LicenseFindingCuration{
				Path:             c.Path,
				StartLines:       c.StartLines,
				LineCount:        c.LineCount,
				DetectedLicense:  detected,
				ConcludedLicense: concludedCur,
				Reason:           c.Reason,
				Comment:          c.Comment,
			})
		}

		configs = append(configs, &licenseinfo.PackageConfiguration{
			ID:                      id,
			PathExcludes:            p.PathExcludes,
			LicenseFindingCurations: curations,
		})
		provs = append(provs, prov)
	}

	infoProvider := &fixtureInfoProvider{byID: infoByID}

	configProvider, err := licenseinfo.NewStaticConfigurationProvider(configs, provs)
	if err != nil {
		return nil, nil, err
	}

	return infoProvider, configProvider, nil
}

func optionalExpr(s string) (*spdxexpr.Expression, error) {
	if s == "" {
		return nil, nil
	}
	return parseExpr(s)
}

// fixtureInfoProvider is a LicenseInfoProvider backed by the flat map built
// from a loaded fixture file.
type fixtureInfoProvider struct {
	byID map[string]*licenseinfo.LicenseInfo
}

func (p *fixtureInfoProvider) Get(id licenseinfo.Identifier) (*licenseinfo.LicenseInfo, error) {
	info, ok := p.byID[id.String()]
	if !ok {
		return nil, &licenseinfo.ErrUnknownPackage{ID: id}
	}
	return info, nil
}

func main() {
	debug := os.Getenv("LICENSERESOLVE_DEBUG") != ""

	logger := &ansi.Logf{Prefix: "licenseresolve: ", Ellipsis: "..."}
	logf := logger.Init()

	program = strings.TrimSpace(program)
	version = strings.TrimSpace(version)
	if program == "" {
		program = "licenseresolve"
	}
	if version == "" {
		version = "dev"
	}

	log.SetOutput(io.Discard)

	if err := CLI(program, version, debug, logf); err != nil {
		if debug {
			logf("failed: %+v", err)
		} else {
			logf("failed: %v", errutil.Cause(err))
		}
		os.Exit(1)
		return
	}
	os.Exit(0)
}
