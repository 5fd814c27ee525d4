package findingsmatch

import (
	"testing"

	"github.com/oss-review-toolkit/ort-sub000/licenseinfo"
)

func lf(path string, start, end int) licenseinfo.LicenseFinding {
	return licenseinfo.LicenseFinding{Location: licenseinfo.TextLocation{Path: path, StartLine: start, EndLine: end}}
}

func cf(path string, line int) licenseinfo.CopyrightFinding {
	return licenseinfo.CopyrightFinding{Statement: "Copyright (C) Example", Location: licenseinfo.TextLocation{Path: path, StartLine: line, EndLine: line}}
}

func TestMatchNearestNeighbour(t *testing.T) {
	m := &Matcher{ToleranceLines: DefaultToleranceLines, ExpandToleranceLines: DefaultExpandToleranceLines}

	findings := licenseinfo.Findings{
		LicenseFindings: []licenseinfo.LicenseFinding{
			lf("main.go", 10, 10),
			lf("main.go", 100, 100),
		},
		CopyrightFindings: []licenseinfo.CopyrightFinding{
			cf("main.go", 8),
			cf("main.go", 12),
			cf("main.go", 98),
			cf("main.go", 200),
		},
	}

	result := m.Match(findings)

	if len(result.Matched[&findings.LicenseFindings[0]]) != 2 {
		t.Errorf("expected 2 copyrights matched to line-10 finding, got %d", len(result.Matched[&findings.LicenseFindings[0]]))
	}
	if len(result.Matched[&findings.LicenseFindings[1]]) != 1 {
		t.Errorf("expected 1 copyright matched to line-100 finding, got %d", len(result.Matched[&findings.LicenseFindings[1]]))
	}
	if len(result.UnmatchedCopyrights) != 1 || result.UnmatchedCopyrights[0].Location.StartLine != 200 {
		t.Errorf("expected line-200 copyright to stay unmatched, got %v", result.UnmatchedCopyrights)
	}
}

func TestMatchRootLicenseFallback(t *testing.T) {
	m := &Matcher{
		ToleranceLines:       DefaultToleranceLines,
		ExpandToleranceLines: DefaultExpandToleranceLines,
		IsLicenseFile:        func(path string) bool { return path == "LICENSE" },
	}

	findings := licenseinfo.Findings{
		LicenseFindings: []licenseinfo.LicenseFinding{
			lf("LICENSE", 1, 20),
		},
		CopyrightFindings: []licenseinfo.CopyrightFinding{
			cf("src/orphan.go", 5),
		},
	}

	result := m.Match(findings)
	if len(result.UnmatchedCopyrights) != 0 {
		t.Errorf("expected orphan copyright to attach to root license, got unmatched: %v", result.UnmatchedCopyrights)
	}
	if len(result.Matched[&findings.LicenseFindings[0]]) != 1 {
		t.Errorf("expected orphan copyright attached to LICENSE finding")
	}
}

func TestMatchExpandTolerance(t *testing.T) {
	m := &Matcher{ToleranceLines: 5, ExpandToleranceLines: 2}

	findings := licenseinfo.Findings{
		// Two license findings in the same file force the nearest-neighbour
		// range computation; a single finding would short-circuit to
		// "every copyright in the file belongs to it".
		LicenseFindings: []licenseinfo.LicenseFinding{lf("f.go", 20, 20), lf("f.go", 200, 200)},
		CopyrightFindings: []licenseinfo.CopyrightFinding{
			cf("f.go", 16), // within base [15,25]
			cf("f.go", 14), // gap 2 from 16, within expand tolerance
			cf("f.go", 11), // gap 3 from 14, exceeds tolerance, should stop expansion
		},
	}

	result := m.Match(findings)
	matched := result.Matched[&findings.LicenseFindings[0]]
	if len(matched) != 2 {
		t.Fatalf("expected 2 copyrights matched after expansion, got %d: %v", len(matched), matched)
	}
	if len(result.UnmatchedCopyrights) != 1 || result.UnmatchedCopyrights[0].Location.StartLine != 11 {
		t.Errorf("expected line-11 copyright to remain unmatched, got %v", result.UnmatchedCopyrights)
	}
}
