package archivestore

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/oss-review-toolkit/ort-sub000/provenance"
)

func TestStorageKeyDeterministic(t *testing.T) {
	a := provenance.FromArtifact(provenance.ArtifactProvenance{URL: "https://example.com/a.tar.gz", Hash: "abc"})
	b := provenance.FromArtifact(provenance.ArtifactProvenance{URL: "https://example.com/b.tar.gz", Hash: "def"})

	if StorageKey(a) != StorageKey(a) {
		t.Error("expected StorageKey to be deterministic for the same provenance")
	}
	if StorageKey(a) == StorageKey(b) {
		t.Error("expected distinct provenances to hash to distinct keys")
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	if ok, err := store.Has(ctx, "k"); err != nil || ok {
		t.Fatalf("expected Has to report missing before Put, got ok=%v err=%v", ok, err)
	}

	if err := store.Put(ctx, "k", []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, err := store.Has(ctx, "k"); err != nil || !ok {
		t.Fatalf("expected Has to report present after Put, got ok=%v err=%v", ok, err)
	}
	data, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Get = %q, want %q", data, "hello")
	}
}

func TestStoreArchiveUnarchiveRoundTrip(t *testing.T) {
	backend, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	store := NewStore(backend, false, nil)
	prov := provenance.FromArtifact(provenance.ArtifactProvenance{URL: "https://example.com/pkg.tar.gz", Hash: "xyz"})

	if store.HasArchive(prov) {
		t.Fatal("expected no archive before Archive is called")
	}

	srcDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(srcDir, "sub"), 0770); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "sub", "file.txt"), []byte("content"), 0660); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := store.Archive(srcDir, prov); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if !store.HasArchive(prov) {
		t.Error("expected HasArchive to report true after Archive")
	}

	dstDir := t.TempDir()
	ok, err := store.Unarchive(dstDir, prov)
	if err != nil {
		t.Fatalf("Unarchive: %v", err)
	}
	if !ok {
		t.Fatal("expected Unarchive to report a hit")
	}

	data, err := os.ReadFile(filepath.Join(dstDir, "sub", "file.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("extracted content = %q, want %q", data, "content")
	}
}

func TestStoreUnarchiveMissReturnsFalseNil(t *testing.T) {
	backend, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	store := NewStore(backend, false, nil)
	prov := provenance.FromArtifact(provenance.ArtifactProvenance{URL: "https://example.com/missing.tar.gz", Hash: "none"})

	ok, err := store.Unarchive(t.TempDir(), prov)
	if err != nil {
		t.Fatalf("expected a miss to be non-fatal, got error: %v", err)
	}
	if ok {
		t.Error("expected Unarchive to report no hit for an unstored provenance")
	}
}

func TestExtractZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("nested/file.txt")
	if err != nil {
		t.Fatalf("zip Create: %v", err)
	}
	if _, err := fw.Write([]byte("zipped")); err != nil {
		t.Fatalf("zip Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}

	dir := t.TempDir()
	if err := extract(dir, "https://example.com/archive.zip", buf.Bytes()); err != nil {
		t.Fatalf("extract: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "nested", "file.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "zipped" {
		t.Errorf("extracted content = %q, want %q", data, "zipped")
	}
}

func TestExtractTarGz(t *testing.T) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	content := []byte("tarred")
	if err := tw.WriteHeader(&tar.Header{Name: "a.txt", Mode: 0640, Size: int64(len(content))}); err != nil {
		t.Fatalf("tar WriteHeader: %v", err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatalf("tar Write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	if _, err := gw.Write(tarBuf.Bytes()); err != nil {
		t.Fatalf("gzip Write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip Close: %v", err)
	}

	dir := t.TempDir()
	if err := extract(dir, "https://example.com/archive.tar.gz", gzBuf.Bytes()); err != nil {
		t.Fatalf("extract: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "tarred" {
		t.Errorf("extracted content = %q, want %q", data, "tarred")
	}
}

func TestExtractZipRejectsPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("../../etc/cron.d/evil")
	if err != nil {
		t.Fatalf("zip Create: %v", err)
	}
	if _, err := fw.Write([]byte("payload")); err != nil {
		t.Fatalf("zip Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}

	dir := t.TempDir()
	if err := extract(dir, "https://example.com/archive.zip", buf.Bytes()); err == nil {
		t.Fatal("expected extract to reject an entry name escaping the target directory")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected nothing written under the target directory, found %v", entries)
	}
}

func TestExtractTarRejectsPathTraversal(t *testing.T) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	content := []byte("payload")
	if err := tw.WriteHeader(&tar.Header{Name: "../../etc/cron.d/evil", Mode: 0640, Size: int64(len(content))}); err != nil {
		t.Fatalf("tar WriteHeader: %v", err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatalf("tar Write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}

	dir := t.TempDir()
	if err := extract(dir, "https://example.com/archive.tar", tarBuf.Bytes()); err == nil {
		t.Fatal("expected extract to reject an entry name escaping the target directory")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected nothing written under the target directory, found %v", entries)
	}
}

func TestExtractDefaultWritesRawFile(t *testing.T) {
	dir := t.TempDir()
	// extract lowercases the URL path before deriving the target filename,
	// so "LICENSE" is written out as "license".
	if err := extract(dir, "https://example.com/LICENSE", []byte("MIT")); err != nil {
		t.Fatalf("extract: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "license"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "MIT" {
		t.Errorf("extracted content = %q, want %q", data, "MIT")
	}
}
