package discovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLog(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(`{"type":"user"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	old := writeLog(t, filepath.Join(root, "-home-u-alpha"), "s1.jsonl", base)
	agent := writeLog(t, filepath.Join(root, "-home-u-alpha"), "agent-x.jsonl", base.Add(time.Hour))
	newest := writeLog(t, filepath.Join(root, "-home-u-beta"), "s2.jsonl", base.Add(2*time.Hour))

	// Non-log files are ignored.
	if err := os.WriteFile(filepath.Join(root, "-home-u-alpha", "notes.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	files, err := Find(root)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("Find() returned %d files, want 3", len(files))
	}

	t.Run("newest first", func(t *testing.T) {
		want := []string{newest, agent, old}
		for i, f := range files {
			if f.Path != want[i] {
				t.Errorf("files[%d].Path = %q, want %q", i, f.Path, want[i])
			}
		}
	})

	t.Run("project decoded from directory name", func(t *testing.T) {
		if files[0].Project != "/home/u/beta" {
			t.Errorf("Project = %q, want %q", files[0].Project, "/home/u/beta")
		}
		if files[1].Project != "/home/u/alpha" {
			t.Errorf("Project = %q, want %q", files[1].Project, "/home/u/alpha")
		}
	})

	t.Run("metadata populated", func(t *testing.T) {
		for _, f := range files {
			if f.Size == 0 {
				t.Errorf("file %s has zero size", f.Path)
			}
			if f.Mtime == 0 {
				t.Errorf("file %s has zero mtime", f.Path)
			}
		}
	})
}

func TestFindMissingRoot(t *testing.T) {
	if _, err := Find(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Find() on a missing root should error")
	}
}

func TestFindEmptyRoot(t *testing.T) {
	files, err := Find(t.TempDir())
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Find() returned %d files, want 0", len(files))
	}
}

func TestDecodeProjectDir(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "dash encoded",
			path: "/root/.claude/projects/-Users-neil-xuku-invoice/session.jsonl",
			want: "/Users/neil/xuku/invoice",
		},
		{
			name: "plain directory passes through",
			path: "/var/logs/session.jsonl",
			want: "/var/logs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeProjectDir(tt.path); got != tt.want {
				t.Errorf("decodeProjectDir(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
