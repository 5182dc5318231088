package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathsDeriveFromDataDir(t *testing.T) {
	dir := "/tmp/vx"
	if got := ConfigPath(dir); got != filepath.Join(dir, "config.toml") {
		t.Errorf("ConfigPath = %q", got)
	}
	if got := DBPath(dir); got != filepath.Join(dir, "voxprep.db") {
		t.Errorf("DBPath = %q", got)
	}
	if got := LogPath(dir); got != filepath.Join(dir, "logs", "voxprepd.log") {
		t.Errorf("LogPath = %q", got)
	}
}

func TestEnsureDirCreatesTree(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	if err := EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{dir, filepath.Join(dir, "logs")} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", p)
		}
	}
	// Idempotent.
	if err := EnsureDir(dir); err != nil {
		t.Errorf("second EnsureDir: %v", err)
	}
}
