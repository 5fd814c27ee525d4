package rootlicense

import (
	"reflect"
	"testing"
)

func TestResolveWalksUpToRoot(t *testing.T) {
	m, err := NewMatcher([]string{"license*", "licence*"}, []string{"readme*"}, []string{"patents*"})
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	paths := []string{"LICENSE", "src/a.c", "vendor/b.c"}

	for _, dir := range []string{"src", "vendor", "."} {
		result := m.Resolve(paths, dir)
		if !reflect.DeepEqual(result.LicenceFiles, []string{"LICENSE"}) {
			t.Errorf("dir %q: expected LICENSE attributed from the tree root, got %v", dir, result.LicenceFiles)
		}
		if len(result.PatentFiles) != 0 {
			t.Errorf("dir %q: expected no patent files, got %v", dir, result.PatentFiles)
		}
	}
}

func TestResolveFallsBackToFallbackNames(t *testing.T) {
	m, err := NewMatcher([]string{"license*"}, []string{"readme*"}, nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	paths := []string{"README.md", "src/a.c"}
	result := m.Resolve(paths, "src")
	if !reflect.DeepEqual(result.LicenceFiles, []string{"README.md"}) {
		t.Errorf("expected fallback to README.md, got %v", result.LicenceFiles)
	}
}

func TestResolveStopsAtNearestDirectory(t *testing.T) {
	m, err := NewMatcher([]string{"license*"}, nil, nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	paths := []string{"LICENSE", "sub/LICENSE", "sub/deep/a.c"}
	result := m.Resolve(paths, "sub/deep")
	if !reflect.DeepEqual(result.LicenceFiles, []string{"sub/LICENSE"}) {
		t.Errorf("expected nearest LICENSE (sub/LICENSE) to win over the root one, got %v", result.LicenceFiles)
	}
}

func TestFilesDedupesAndSorts(t *testing.T) {
	r := Result{LicenceFiles: []string{"b", "a"}, PatentFiles: []string{"a", "c"}}
	got := r.Files()
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Files() = %v, want %v", got, want)
	}
}
