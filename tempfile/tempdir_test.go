package tempfile

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
)

func TestGetTempDirWithPreferences(t *testing.T) {
	disk := GetTempDir("", true)
	if disk == "" {
		t.Error("Expected non-empty directory with preferDiskBacked=true")
	}

	shared := GetTempDir("", false)
	if shared == "" {
		t.Error("Expected non-empty directory with preferDiskBacked=false")
	}

	t.Logf("preferDiskBacked=true: %s", disk)
	t.Logf("preferDiskBacked=false: %s", shared)
}

func TestGetTempDirWithSpecificDir(t *testing.T) {
	testDir := t.TempDir()

	if result := GetTempDir(testDir, true); result != testDir {
		t.Errorf("Expected GetTempDir to return %s, got %s", testDir, result)
	}

	// a directory that does not exist yet may still be created later
	missing := filepath.Join(testDir, "not", "yet")
	if result := GetTempDir(missing, false); result != missing {
		t.Errorf("Expected GetTempDir to return %s, got %s", missing, result)
	}
}

func TestGetTempDirWithFileFallsBack(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(testFile, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := GetTempDir(testFile, true)
	if result == testFile {
		t.Fatalf("Expected a file to be rejected as temp root")
	}
	if !filepath.IsAbs(result) {
		t.Errorf("Expected absolute path, got %s", result)
	}
}

func TestGetTempDirConsistency(t *testing.T) {
	result1 := GetTempDir("", true)
	result2 := GetTempDir("", true)

	if result1 != result2 {
		t.Errorf("Expected consistent results, got %s and %s", result1, result2)
	}
}

func TestIsDirectoryUsable(t *testing.T) {
	testDir := t.TempDir()

	if !isDirectoryUsable(testDir) {
		t.Errorf("Expected existing directory %s to be usable", testDir)
	}

	nonExistentDir := filepath.Join(testDir, "subdir")
	if !isDirectoryUsable(nonExistentDir) {
		t.Errorf("Expected creatable directory %s to be usable", nonExistentDir)
	}

	testFile := filepath.Join(testDir, "testfile")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if isDirectoryUsable(testFile) {
		t.Errorf("Expected file %s to not be usable as directory", testFile)
	}
}

func TestDiskBackedCandidates(t *testing.T) {
	candidates := diskBackedCandidates()

	switch runtime.GOOS {
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris":
		if !slices.Contains(candidates, "/var/tmp") {
			t.Errorf("Expected /var/tmp in disk backed candidates, got %v", candidates)
		}
	default:
		t.Logf("%s disk backed candidates: %v", runtime.GOOS, candidates)
	}

	if got := candidateRoots(true); len(got) == 0 || got[len(got)-1] == "" {
		t.Errorf("unexpected candidate roots %v", got)
	}
}

func TestFallbackCandidates(t *testing.T) {
	for _, fallback := range fallbackCandidates() {
		if !filepath.IsAbs(fallback) {
			t.Errorf("Expected fallback %s to be absolute path", fallback)
		}
		if filepath.Base(fallback) != workDirName {
			t.Errorf("Expected fallback %s to end in %s", fallback, workDirName)
		}
	}
}
