package fileutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSameContents(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	c := filepath.Join(dir, "c.bin")
	d := filepath.Join(dir, "d.bin")

	large := bytes.Repeat([]byte("0123456789abcdef"), compareChunkSize/8)
	changed := append([]byte{}, large...)
	changed[len(changed)-1] = 'X'

	for path, data := range map[string][]byte{a: large, b: large, c: changed, d: large[:len(large)-1]} {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		name string
		x, y string
		want bool
	}{
		{"identical", a, b, true},
		{"last byte differs", a, c, false},
		{"size differs", a, d, false},
		{"self", a, a, true},
	}
	for _, tc := range cases {
		got, err := SameContents(tc.x, tc.y)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: SameContents = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSameContents_MissingFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	if err := os.WriteFile(a, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := SameContents(a, filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "meta.json")

	if err := WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("content mismatch: got %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the final file, got %d entries", len(entries))
	}
}

func TestRemoveStaleTemps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Episode [1].mp3")
	stale := []string{TempPath(path), TempPath(path)}
	keep := []string{path, filepath.Join(dir, "other.mp3.abc.tmp")}
	for _, p := range append(stale, keep...) {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := RemoveStaleTemps(path)
	if err != nil {
		t.Fatal(err)
	}
	if removed != len(stale) {
		t.Fatalf("expected %d removed, got %d", len(stale), removed)
	}
	for _, p := range keep {
		if ok, _ := Exists(p); !ok {
			t.Fatalf("expected %s to be kept", p)
		}
	}
}

func TestTempPathIsUniqueSibling(t *testing.T) {
	path := filepath.Join("dir", "file.mp3")
	a, b := TempPath(path), TempPath(path)
	if a == b {
		t.Fatal("expected unique temp paths")
	}
	if filepath.Dir(a) != "dir" || !strings.HasSuffix(a, ".tmp") || !strings.HasPrefix(a, path+".") {
		t.Fatalf("unexpected temp path %q", a)
	}
}
