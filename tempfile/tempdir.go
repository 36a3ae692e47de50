// Package tempfile manages the scoped working directory of a sort and the
// segment files inside it. Segments are written once, published atomically by
// rename, read back sequentially and deleted as soon as they are consumed.
// A disk backend and an in-memory mock share the Dir interface.
package tempfile

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// workDirName is used for fallback roots below the home or working directory
const workDirName = ".linesort-tmp"

var (
	// roots discovered once per process, one per preference
	diskBackedRoot string
	anyRoot        string
	discoverOnce   sync.Once
)

// GetTempDir returns the root under which working directories are created.
// A usable dir is returned as is. Otherwise a discovered root is returned;
// with preferDiskBacked, locations that are usually not tmpfs (like /var/tmp)
// are tried first since segments can be much larger than memory.
func GetTempDir(dir string, preferDiskBacked bool) string {
	if dir != "" && isDirectoryUsable(dir) {
		return dir
	}

	discoverOnce.Do(func() {
		diskBackedRoot = firstUsable(candidateRoots(true))
		anyRoot = firstUsable(candidateRoots(false))
	})

	if preferDiskBacked {
		return diskBackedRoot
	}
	return anyRoot
}

// firstUsable returns the first usable candidate or the OS temp dir.
func firstUsable(candidates []string) string {
	for _, c := range candidates {
		if isDirectoryUsable(c) {
			return c
		}
	}
	return os.TempDir()
}

// candidateRoots lists roots in priority order.
func candidateRoots(preferDiskBacked bool) []string {
	var candidates []string
	if preferDiskBacked {
		candidates = append(candidates, diskBackedCandidates()...)
	}
	candidates = append(candidates, os.TempDir())
	return append(candidates, fallbackCandidates()...)
}

// diskBackedCandidates returns directories that are traditionally on disk
// rather than in memory on this platform.
func diskBackedCandidates() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/var/tmp", "/private/var/tmp"}
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris":
		return []string{"/var/tmp"}
	}
	return nil
}

// fallbackCandidates returns private subdirectories of the home and current
// working directories, used when no system temp location is usable.
func fallbackCandidates() []string {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		candidates = append(candidates, filepath.Join(home, workDirName))
	}
	if wd, err := os.Getwd(); err == nil && wd != "" {
		candidates = append(candidates, filepath.Join(wd, workDirName))
	}
	return candidates
}

// isDirectoryUsable reports whether dir is an existing directory or does not
// exist yet and may be created. Writability is only known once we write.
func isDirectoryUsable(dir string) bool {
	stat, err := os.Stat(dir)
	if err != nil {
		return os.IsNotExist(err)
	}
	return stat.IsDir()
}
