// Package archivestore provides the concrete FileArchiver/ProvenanceFileStorage
// adapters the resolver needs for resolve_license_files: a content-addressed
// local-disk store, an S3-backed store for shared deployments, and the
// fetch/unpack logic that turns a provenance into files on disk in the
// first place.
package archivestore

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/ssgelm/cookiejarparser"

	"github.com/oss-review-toolkit/ort-sub000/provenance"
	"github.com/oss-review-toolkit/ort-sub000/util/errutil"
)

// ProvenanceFileStorage is the minimal storage contract FileArchiver
// implementations are built on: retrieve or persist raw archive bytes under
// a content-addressed key.
type ProvenanceFileStorage interface {
	Has(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// StorageKey returns the SHA-1 hex digest of prov's storage key, the key
// every ProvenanceFileStorage implementation indexes archives under. The
// trailing pipe already present in prov.StorageKey() for repository
// provenances is hashed as-is, preserved for compatibility with archives
// written under the donor schema.
func StorageKey(prov provenance.Provenance) string {
	sum := sha1.Sum([]byte(prov.StorageKey()))
	return hex.EncodeToString(sum[:])
}

// LocalStore is a ProvenanceFileStorage backed by a plain directory on
// local disk, one file per key.
type LocalStore struct {
	Dir string
}

// NewLocalStore builds a LocalStore rooted at dir, creating it if absent.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0770); err != nil {
		return nil, errutil.Wrapf(err, "could not create local archive store at %s", dir)
	}
	return &LocalStore{Dir: dir}, nil
}

func (l *LocalStore) path(key string) string {
	return filepath.Join(l.Dir, key)
}

// Has implements ProvenanceFileStorage.
func (l *LocalStore) Has(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(l.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Put implements ProvenanceFileStorage.
func (l *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	return os.WriteFile(l.path(key), data, 0660)
}

// Get implements ProvenanceFileStorage.
func (l *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	return os.ReadFile(l.path(key))
}

// S3Store is a ProvenanceFileStorage backed by an S3 bucket, generalized
// from the donor's write-only S3 publisher into a full get/put store.
type S3Store struct {
	Region   string
	Bucket   string
	Debug    bool
	Logf     func(format string, v ...interface{})

	client *s3.Client
}

// NewS3Store loads the default AWS config (environment, shared config
// files, instance role) and builds an S3Store against bucket in region.
func NewS3Store(ctx context.Context, region, bucket string, debug bool, logf func(string, ...interface{})) (*S3Store, error) {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errutil.Wrapf(err, "could not load aws config")
	}
	return &S3Store{
		Region: region,
		Bucket: bucket,
		Debug:  debug,
		Logf:   logf,
		client: s3.NewFromConfig(cfg),
	}, nil
}

// Has implements ProvenanceFileStorage.
func (st *S3Store) Has(ctx context.Context, key string) (bool, error) {
	_, err := st.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &st.Bucket,
		Key:    &key,
	})
	if err != nil {
		// The aws sdk doesn't give a clean typed not-found error across
		// every backend; treat any HeadObject failure as "missing" since
		// Unarchive already treats a miss as non-fatal.
		return false, nil
	}
	return true, nil
}

// Put implements ProvenanceFileStorage.
func (st *S3Store) Put(ctx context.Context, key string, data []byte) error {
	if st.Debug {
		st.Logf("archivestore: uploading %s/%s (%d bytes)", st.Bucket, key, len(data))
	}
	_, err := st.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &st.Bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	return errutil.Wrapf(err, "could not upload %s to s3", key)
}

// Get implements ProvenanceFileStorage.
func (st *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := st.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &st.Bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, errutil.Wrapf(err, "could not download %s from s3", key)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Store is the resolver.FileArchiver implementation built on top of a
// ProvenanceFileStorage: it archives a directory tree into a single tar
// stream keyed by provenance, and unpacks it back out on demand.
type Store struct {
	Backend ProvenanceFileStorage
	Debug   bool
	Logf    func(format string, v ...interface{})
}

// NewStore builds a Store over backend.
func NewStore(backend ProvenanceFileStorage, debug bool, logf func(string, ...interface{})) *Store {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Store{Backend: backend, Debug: debug, Logf: logf}
}

// HasArchive implements resolver.FileArchiver.
func (s *Store) HasArchive(prov provenance.Provenance) bool {
	ok, err := s.Backend.Has(context.Background(), StorageKey(prov))
	return err == nil && ok
}

// Archive implements resolver.FileArchiver: it tars up rootDir and stores
// it under prov's storage key.
func (s *Store) Archive(rootDir string, prov provenance.Provenance) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return errutil.Wrapf(err, "could not tar %s", rootDir)
	}
	if err := tw.Close(); err != nil {
		return err
	}

	return s.Backend.Put(context.Background(), StorageKey(prov), buf.Bytes())
}

// safeJoin resolves name against dir and rejects any entry whose cleaned
// target escapes dir, defeating zip-slip/tar-slip archive entries like
// "../../etc/cron.d/x" or an absolute path.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(dir)+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry escapes extraction directory: %s", name)
	}
	return target, nil
}

// Unarchive implements resolver.FileArchiver: it fetches the tar stored for
// prov and extracts it into dir. It returns (false, nil) on an archive
// miss, matching the resolver's ArchiveMiss-is-not-fatal contract.
func (s *Store) Unarchive(dir string, prov provenance.Provenance) (bool, error) {
	data, err := s.Backend.Get(context.Background(), StorageKey(prov))
	if err != nil {
		if s.Debug {
			s.Logf("archivestore: archive miss for %s: %v", prov, err)
		}
		return false, nil
	}

	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, errutil.Wrapf(err, "could not read tar for %s", prov)
		}
		target, err := safeJoin(dir, hdr.Name)
		if err != nil {
			return false, errutil.Wrapf(err, "could not extract tar for %s", prov)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0770); err != nil {
				return false, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0770); err != nil {
				return false, err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0660)
			if err != nil {
				return false, err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return false, err
			}
			f.Close()
		}
	}
	return true, nil
}

// Unpack fetches the source named by prov and extracts it into dir: a git
// clone for repository provenance, or an HTTP download plus
// tar/gzip/zip/bzip2 decompression for artifact provenance, generalized
// from the donor's URI-scheme dispatch and its bzip2/gzip/tar/zip iterators.
func Unpack(ctx context.Context, dir string, prov provenance.Provenance) error {
	switch prov.Kind {
	case provenance.KindRepository:
		return unpackRepository(ctx, dir, prov.Repository)
	case provenance.KindArtifact:
		return unpackArtifact(ctx, dir, prov.Artifact)
	default:
		return fmt.Errorf("archivestore: cannot unpack unknown provenance")
	}
}

func unpackRepository(ctx context.Context, dir string, r provenance.RepositoryProvenance) error {
	opts := &gogit.CloneOptions{URL: r.URL}
	repo, err := gogit.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return errutil.Wrapf(err, "could not clone %s", r.URL)
	}

	if r.ResolvedRevision == "" {
		return nil
	}
	wt, err := repo.Worktree()
	if err != nil {
		return errutil.Wrapf(err, "could not open worktree for %s", r.URL)
	}
	hash := plumbing.NewHash(r.ResolvedRevision)
	if err := wt.Checkout(&gogit.CheckoutOptions{Hash: hash}); err != nil {
		return errutil.Wrapf(err, "could not checkout %s at %s", r.URL, r.ResolvedRevision)
	}
	return nil
}

func unpackArtifact(ctx context.Context, dir string, a provenance.ArtifactProvenance) error {
	client := &http.Client{}
	if jar, err := cookiejarparser.LoadCookieJarFile(""); err == nil {
		client.Jar = jar
	} // else: no cookie file configured; proceed without one

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return errutil.Wrapf(err, "could not build request for %s", a.URL)
	}
	resp, err := client.Do(req)
	if err != nil {
		return errutil.Wrapf(err, "could not fetch %s", a.URL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errutil.Wrapf(err, "could not read body of %s", a.URL)
	}

	return extract(dir, a.URL, data)
}

// extract dispatches on sourceURL's file extension the same way the donor's
// TrivialURIParser did, picking the right decompressor/unarchiver.
func extract(dir, sourceURL string, data []byte) error {
	u, err := url.Parse(sourceURL)
	lower := strings.ToLower(sourceURL)
	if err == nil {
		lower = strings.ToLower(u.Path)
	}

	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(dir, data)
	case strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return errutil.Wrapf(err, "not a valid gzip stream")
		}
		defer gz.Close()
		return extractTar(dir, gz)
	case strings.HasSuffix(lower, ".gz"):
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return errutil.Wrapf(err, "not a valid gzip stream")
		}
		defer gz.Close()
		out, err := io.ReadAll(gz)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, strings.TrimSuffix(filepath.Base(lower), ".gz")), out, 0660)
	case strings.HasSuffix(lower, ".tar.bz2") || strings.HasSuffix(lower, ".tbz2"):
		return extractTar(dir, bzip2.NewReader(bytes.NewReader(data)))
	case strings.HasSuffix(lower, ".tar"):
		return extractTar(dir, bytes.NewReader(data))
	default:
		return os.WriteFile(filepath.Join(dir, filepath.Base(lower)), data, 0660)
	}
}

func extractTar(dir string, r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		target, err := safeJoin(dir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0770); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0770); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0660)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}
	return nil
}

func extractZip(dir string, data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errutil.Wrapf(err, "not a valid zip stream")
	}
	for _, f := range zr.File {
		target, err := safeJoin(dir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0770); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0770); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0660)
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
