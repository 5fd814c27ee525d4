// Package licenseclassify wraps google/licenseclassifier's
// identify_license backend behind a plain file-path API, replacing the
// donor's safepath.Path-typed ScanPath with a string path: the caller
// (cmd/licenseresolve's scanDirectory) walks the tree itself, so there is
// nothing left for safepath to coordinate with.
package licenseclassify

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/licenseclassifier"
	"github.com/google/licenseclassifier/tools/identify_license/backend"
	"github.com/google/licenseclassifier/tools/identify_license/results"

	"github.com/oss-review-toolkit/ort-sub000/util/errutil"
	"github.com/oss-review-toolkit/ort-sub000/util/licenses"
)

// Classifier identifies which known license(s) a file's text most closely
// matches.
type Classifier struct {
	Debug bool
	Logf  func(format string, v ...interface{})

	// IncludeHeaders also attempts to match short license header
	// comments, not just full license texts.
	IncludeHeaders bool

	// UseDefaultConfidence applies licenseclassifier.DefaultConfidenceThreshold
	// instead of accepting every match and leaving the accept/reject
	// decision to the caller.
	UseDefaultConfidence bool
}

// ErrNoMatch is returned when the classifier produced zero candidate
// matches for the given file.
var ErrNoMatch = fmt.Errorf("licenseclassify: no license match found")

// ClassifyFile identifies the license(s) most likely present in the file at
// path, most confident match first.
func (c *Classifier) ClassifyFile(ctx context.Context, path string) ([]*licenses.License, error) {
	threshold := 0.0
	if c.UseDefaultConfidence {
		threshold = licenseclassifier.DefaultConfidenceThreshold
	}
	forbiddenOnly := true

	be, err := backend.New(threshold, forbiddenOnly)
	if err != nil {
		return nil, errutil.Wrapf(err, "cannot create license classifier backend")
	}
	defer be.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if errs := be.ClassifyLicensesWithContext(ctx, []string{path}, c.IncludeHeaders); len(errs) > 0 {
		for _, e := range errs {
			if c.Debug && c.Logf != nil {
				c.Logf("licenseclassify: classify failed for %s: %v", path, e)
			}
		}
		return nil, fmt.Errorf("licenseclassify: cannot classify %s", path)
	}

	matches := be.GetResults()
	if len(matches) == 0 {
		return nil, ErrNoMatch
	}
	sort.Sort(matches)

	out := make([]*licenses.License, 0, len(matches))
	for _, m := range matches {
		out = append(out, licenseFromResult(m))
	}
	return out, nil
}

func licenseFromResult(r *results.LicenseType) *licenses.License {
	lic := &licenses.License{SPDX: r.Name}
	if err := lic.Validate(); err != nil {
		lic = &licenses.License{
			Origin: "licenseclassifier.google.github.com",
			Custom: r.Name,
		}
	}
	return lic
}
