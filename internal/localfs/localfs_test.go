package localfs

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{".gitignore", true},
		{"visible.txt", false},
		{"/path/to/.hidden", true},
		{"/path/to/visible.txt", false},
		{"../.hidden", true},
		{"..", false}, // Special case: parent dir reference
		{".", false},  // Special case: current dir reference
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if result := IsHidden(tt.path); result != tt.expected {
				t.Errorf("IsHidden(%q) = %v, want %v", tt.path, result, tt.expected)
			}
		})
	}
}

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, rel := range []string{
		"b.txt",
		"a.txt",
		".secret",
		"sub/c.txt",
		"sub/deeper/d.txt",
		".cache/e.txt",
	} {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(rel), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestListFilesFlat(t *testing.T) {
	root := makeTree(t)

	files, err := ListFiles(root, false)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}

	want := []string{filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt")}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("ListFiles() = %v, want %v", files, want)
	}
}

func TestListFilesRecursive(t *testing.T) {
	root := makeTree(t)

	files, err := ListFiles(root, true)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}

	want := []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.txt"),
		filepath.Join(root, "sub", "c.txt"),
		filepath.Join(root, "sub", "deeper", "d.txt"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("ListFiles() = %v, want %v", files, want)
	}
}

func TestListFilesMissingDir(t *testing.T) {
	for _, recursive := range []bool{false, true} {
		if _, err := ListFiles(filepath.Join(t.TempDir(), "missing"), recursive); err == nil {
			t.Errorf("recursive=%v: expected error for missing directory", recursive)
		}
	}
}
