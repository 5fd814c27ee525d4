// Package provenance describes where a scanned package's source code came
// from: either an unresolved/unknown location, a plain downloadable
// artifact, or a version-controlled repository checked out at a specific
// revision. It is its own package (rather than living inside licenseinfo)
// because the archive store and the resolver's storage keys both need it without needing the rest of licenseinfo's types.
package provenance

import "fmt"

// Kind identifies which concrete shape a Provenance has.
type Kind int

const (
	// KindUnknown means the source code location is not known. A result
	// computed against this provenance must be treated conservatively:
	// it cannot be compared for equality with anything else.
	KindUnknown Kind = iota
	// KindArtifact means the source was downloaded from a single
	// artifact URL (a tarball, zip, etc) with a content hash.
	KindArtifact
	// KindRepository means the source was checked out from a VCS
	// repository at a specific resolved revision.
	KindRepository
)

// Provenance records where a package's source code came from. Exactly one of
// the Artifact or Repository fields is meaningful, selected by Kind.
type Provenance struct {
	Kind Kind

	Artifact   ArtifactProvenance
	Repository RepositoryProvenance
}

// ArtifactProvenance describes a downloadable source artifact.
type ArtifactProvenance struct {
	// URL is where the artifact was downloaded from.
	URL string
	// HashAlgorithm names the hash algorithm used for Hash, eg "sha256".
	HashAlgorithm string
	// Hash is the hex-encoded content hash of the artifact.
	Hash string
}

// RepositoryProvenance describes a VCS checkout.
type RepositoryProvenance struct {
	// Type is the VCS type, eg "Git", "Git-Repo", "Mercurial", "Subversion".
	Type string
	// URL is the clone/checkout URL of the repository.
	URL string
	// ResolvedRevision is the concrete revision (commit hash, etc) that
	// was actually checked out, as opposed to a branch or tag name.
	ResolvedRevision string
	// Path is a sub-path within the repository, for monorepo-style VCS
	// layouts where a package lives in a subdirectory. Empty means the
	// repository root.
	Path string
}

// Unknown builds a KindUnknown Provenance.
func Unknown() Provenance {
	return Provenance{Kind: KindUnknown}
}

// FromArtifact builds a KindArtifact Provenance.
func FromArtifact(a ArtifactProvenance) Provenance {
	return Provenance{Kind: KindArtifact, Artifact: a}
}

// FromRepository builds a KindRepository Provenance.
func FromRepository(r RepositoryProvenance) Provenance {
	return Provenance{Kind: KindRepository, Repository: r}
}

// StorageKey returns a stable string suitable for use as a map or cache key,
// uniquely identifying this provenance for storage/lookup purposes. Two
// equal provenances always produce the same key; an Unknown provenance has
// no stable identity and always returns an empty string, since it cannot
// safely be memoized or deduplicated against anything else.
func (p Provenance) StorageKey() string {
	switch p.Kind {
	case KindArtifact:
		return fmt.Sprintf("source-artifact|%s|%s", p.Artifact.URL, p.Artifact.Hash)
	case KindRepository:
		// The trailing pipe is kept even though there's no fifth field:
		// it matches the key shape carried over from the schema this
		// was ported from, and changing it would be a storage-format
		// break. Path is deliberately not part of the key: two
		// checkouts of the same revision with different sub-paths
		// share one repository fetch.
		return fmt.Sprintf("vcs|%s|%s|%s|", p.Repository.Type, p.Repository.URL, p.Repository.ResolvedRevision)
	default:
		return ""
	}
}

// Equal compares two provenances for identity. An Unknown provenance is
// never equal to anything, including another Unknown provenance, since it
// doesn't carry enough information to assert sameness.
func (p Provenance) Equal(other Provenance) bool {
	if p.Kind == KindUnknown || other.Kind == KindUnknown {
		return false
	}
	if p.Kind != other.Kind {
		return false
	}
	return p.StorageKey() == other.StorageKey()
}

// String returns a human-readable description of the provenance.
func (p Provenance) String() string {
	switch p.Kind {
	case KindArtifact:
		return fmt.Sprintf("artifact(%s)", p.Artifact.URL)
	case KindRepository:
		path := p.Repository.Path
		if path == "" {
			path = "."
		}
		return fmt.Sprintf("repository(%s@%s:%s)", p.Repository.URL, p.Repository.ResolvedRevision, path)
	default:
		return "unknown"
	}
}
