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

package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/oss-review-toolkit/ort-sub000/backend"
	"github.com/oss-review-toolkit/ort-sub000/interfaces"
	"github.com/oss-review-toolkit/ort-sub000/licenseclassify"
	"github.com/oss-review-toolkit/ort-sub000/licenseinfo"
	"github.com/oss-review-toolkit/ort-sub000/provenance"
	"github.com/oss-review-toolkit/ort-sub000/spdxexpr"
	"github.com/oss-review-toolkit/ort-sub000/util/errutil"
)

// manifestScanners lists the declared-license backends that need no
// external rule file to run, so scanDirectory can drive them directly over
// a checkout without asking the caller for extra configuration. backend.Regexp
// is left out here: it only scans once Setup has read an external JSON rules
// file, which scan-dir has no place for.
func manifestScanners(debug bool, logf func(string, ...interface{})) []interfaces.DataBackend {
	return []interfaces.DataBackend{
		&backend.Spdx{Debug: debug, Logf: logf},
		&backend.Bitbake{Debug: debug, Logf: logf},
		&backend.Pom{Debug: debug, Logf: logf},
	}
}

// scanDirectory walks root and builds a LicenseInfoProvider for id directly
// from the checkout, as an alternative to --scan-result-path for callers who
// have a directory on disk rather than a pre-serialized scan-result fixture.
// It runs the self-contained manifest scanners (backend.Spdx, backend.Bitbake,
// backend.Pom) over every file's bytes through the same interfaces.ResultSet
// shape licenseinfo.ScanResultProvider already knows how to consume, and,
// when classify is true, also runs licenseclassify.Classifier's full-text
// match over every file and folds its matches in as additional detected
// license findings.
func scanDirectory(ctx context.Context, root string, id licenseinfo.Identifier, classify bool, debug bool, logf func(string, ...interface{})) (licenseinfo.LicenseInfoProvider, error) {
	scanners := manifestScanners(debug, logf)
	classifier := &licenseclassify.Classifier{Debug: debug, Logf: logf}

	resultSet := make(interfaces.ResultSet)
	var detected []licenseinfo.LicenseFinding

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			return nil
		}
		info := &interfaces.Info{Name: d.Name(), UID: rel}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		byBackend := make(map[interfaces.Backend]*interfaces.Result)
		for _, s := range scanners {
			res, scanErr := s.ScanData(ctx, data, info)
			if scanErr != nil {
				if debug {
					logf("scandir: %s failed on %s: %v", s, rel, scanErr)
				}
				continue
			}
			if res != nil {
				byBackend[s] = res
			}
		}
		if len(byBackend) > 0 {
			resultSet[rel] = byBackend
		}

		if classify {
			matches, classifyErr := classifier.ClassifyFile(ctx, path)
			if classifyErr != nil {
				if debug && classifyErr != licenseclassify.ErrNoMatch {
					logf("scandir: classify failed on %s: %v", rel, classifyErr)
				}
				return nil
			}
			for _, m := range matches {
				detected = append(detected, licenseinfo.LicenseFinding{
					License:  spdxexpr.Leaf(m.String()),
					Location: licenseinfo.TextLocation{Path: rel, StartLine: 1, EndLine: 1},
					Score:    1.0,
				})
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, errutil.Wrapf(walkErr, "error walking %s", root)
	}

	entry := &licenseinfo.ScanResultEntry{
		ID:         id,
		Provenance: provenance.Unknown(),
		ResultSet:  resultSet,
	}
	scanProvider := licenseinfo.NewScanResultProvider([]*licenseinfo.ScanResultEntry{entry})

	info, err := scanProvider.Get(id)
	if err != nil {
		return nil, err
	}
	info.Detected.Findings.LicenseFindings = append(info.Detected.Findings.LicenseFindings, detected...)

	return &fixtureInfoProvider{byID: map[string]*licenseinfo.LicenseInfo{id.String(): info}}, nil
}
