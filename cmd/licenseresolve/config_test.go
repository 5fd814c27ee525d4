package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oss-review-toolkit/ort-sub000/licenseview"
)

func TestViewFromName(t *testing.T) {
	if got := viewFromName("ONLY_DETECTED"); got.Name != licenseview.ONLY_DETECTED.Name {
		t.Errorf("viewFromName(ONLY_DETECTED) = %q", got.Name)
	}
	if got := viewFromName("bogus"); got.Name != licenseview.ALL.Name {
		t.Errorf("viewFromName(bogus) = %q, want ALL", got.Name)
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0660); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestGetConfigMissingFileIsNotAnError(t *testing.T) {
	cfg, err := GetConfig("licenseresolve", filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("expected a missing config file to be reported as no config, no error, got %v", err)
	}
	if cfg != nil {
		t.Errorf("expected a nil config for a missing file, got %+v", cfg)
	}
}

func TestGetConfigEmptyFileIsAnError(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "")
	if _, err := GetConfig("licenseresolve", path); err == nil {
		t.Error("expected an error for an empty config file")
	}
}

func TestGetConfigValidatesRequiredField(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{"view":"ALL"}`)
	if _, err := GetConfig("licenseresolve", path); err == nil {
		t.Error("expected an error when scan-result-path is missing")
	}
}

func TestGetConfigValidatesViewEnum(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{"scan-result-path":"scan.json","view":"NOT_A_VIEW"}`)
	if _, err := GetConfig("licenseresolve", path); err == nil {
		t.Error("expected an error for an unrecognised view name")
	}
}

func TestGetConfigLoadsValidFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{"scan-result-path":"scan.json","view":"ONLY_DECLARED","add-authors-to-copyrights":true}`)
	cfg, err := GetConfig("licenseresolve", path)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.ScanResultPath != "scan.json" || cfg.View != "ONLY_DECLARED" || !cfg.AddAuthorsToCopyrights {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
