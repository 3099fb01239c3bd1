package gateway

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Lookup hooks, replaced in tests.
var (
	lookPath   = exec.LookPath
	executable = os.Executable
)

// FindBinary resolves the gogchat executable. An explicit path is used as
// is; a bare name is searched on $PATH and then next to (and one level
// above) the running executable, which covers running from a source
// checkout where both binaries are built side by side.
func FindBinary(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "gogchat"
	}

	if strings.ContainsRune(name, os.PathSeparator) {
		if isExecutableFile(name) {
			return filepath.Abs(name)
		}
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
	}

	if path, err := lookPath(name); err == nil {
		return path, nil
	}

	var tried []string
	if self, err := executable(); err == nil {
		dir := filepath.Dir(self)
		for _, candidate := range []string{
			filepath.Join(dir, name),
			filepath.Join(dir, "..", name),
		} {
			candidate = filepath.Clean(candidate)
			tried = append(tried, candidate)
			if candidate != filepath.Clean(self) && isExecutableFile(candidate) {
				return candidate, nil
			}
		}
	}

	if len(tried) > 0 {
		return "", fmt.Errorf("%w: not in PATH or at %s", ErrBinaryNotFound, strings.Join(tried, ", "))
	}
	return "", fmt.Errorf("%w: not in PATH", ErrBinaryNotFound)
}

// CheckBinary reports whether gogchat can be located.
func CheckBinary(name string) error {
	_, err := FindBinary(name)
	return err
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
