package hashcache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// countingDigester counts how many times real hashing happens.
type countingDigester struct {
	calls int
	fail  bool
}

func (d *countingDigester) Digest(path string) (string, error) {
	d.calls++
	if d.fail {
		return "", errors.New("boom")
	}
	return "sum-" + filepath.Base(path), nil
}

func TestCacheAvoidsRehashing(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "book.pdf")
	if err := os.WriteFile(file, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	inner := &countingDigester{}
	cache, err := Open(filepath.Join(dir, "cache.db"), inner)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	first, err := cache.Digest(file)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.Digest(file)
	if err != nil {
		t.Fatal(err)
	}

	if first != second || first != "sum-book.pdf" {
		t.Errorf("digests = %q, %q", first, second)
	}
	if inner.calls != 1 {
		t.Errorf("inner digester called %d times, want 1", inner.calls)
	}
}

func TestCacheInvalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "book.pdf")
	if err := os.WriteFile(file, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	inner := &countingDigester{}
	cache, err := Open(filepath.Join(dir, "cache.db"), inner)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	if _, err := cache.Digest(file); err != nil {
		t.Fatal(err)
	}

	// Grow the file and push its mtime forward; either alone invalidates.
	if err := os.WriteFile(file, []byte("version two"), 0644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(file, later, later); err != nil {
		t.Fatal(err)
	}

	if _, err := cache.Digest(file); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("inner digester called %d times, want 2 after file change", inner.calls)
	}
}

func TestCachePropagatesErrors(t *testing.T) {
	dir := t.TempDir()
	cache, err := Open(filepath.Join(dir, "cache.db"), &countingDigester{fail: true})
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	if _, err := cache.Digest(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("Digest of missing file returned nil error")
	}

	file := filepath.Join(dir, "book.pdf")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Digest(file); err == nil {
		t.Error("inner digest failure not propagated")
	}
}
