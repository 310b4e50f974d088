// Package security validates the paths that reports and processed files
// are written to.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidOutputName is returned for output names that are not a single
// plain file name.
var ErrInvalidOutputName = errors.New("invalid output file name")

// ValidateOutputName checks that name is a bare file name that stays in
// whatever directory it is joined to. It does not touch the filesystem.
func ValidateOutputName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidOutputName, name)
	case strings.ContainsAny(name, `/\`), filepath.IsAbs(name):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidOutputName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidOutputName, name)
	}
	return nil
}

// ValidatePathWithinDirectory checks that filePath resolves inside safeDir,
// following symlinks on both sides. safeDir must exist; filePath need not.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	relPath, err := filepath.Rel(canonicalSafeDir, canonicalize(absPath))
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// canonicalize resolves symlinks in absPath. For a path that does not
// exist yet, the nearest existing ancestor is resolved instead, so a
// symlinked parent directory cannot smuggle a new file out. A dangling
// symlink resolves to its target.
func canonicalize(absPath string) string {
	return canonicalizeLinks(absPath, 0)
}

// maxLinkHops bounds dangling-link chains, which may loop.
const maxLinkHops = 40

func canonicalizeLinks(absPath string, hops int) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	if info, err := os.Lstat(absPath); err == nil && info.Mode()&os.ModeSymlink != 0 && hops < maxLinkHops {
		if target, err := os.Readlink(absPath); err == nil {
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(absPath), target)
			}
			return canonicalizeLinks(filepath.Clean(target), hops+1)
		}
	}
	for dir := filepath.Dir(absPath); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, _ := filepath.Rel(dir, absPath)
			return filepath.Join(resolved, rel)
		}
		if parent := filepath.Dir(dir); parent == dir {
			return absPath
		}
	}
}

// SanitizeFilename turns an arbitrary string into a file name stem. Runs
// of characters other than ASCII letters, digits, '.', '_' and '-' become
// one underscore; the result is at most 128 bytes and never empty.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
