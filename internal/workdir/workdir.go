// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package workdir confines all path resolution to a single working
// directory. Every path an operation touches must resolve, after
// normalization and symlink expansion, to the root or one of its
// descendants.
package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxPathLength bounds raw path input before resolution.
const MaxPathLength = 4096

// ErrEscapesRoot indicates a candidate path resolves outside the root.
var ErrEscapesRoot = errors.New("path escapes working directory")

// Root is an absolute, symlink-resolved working directory. Immutable
// for the lifetime of a session.
type Root struct {
	path string
}

// Open resolves dir to its canonical absolute form and returns a Root.
// The directory must exist.
func Open(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid base directory: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %v", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %v", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path %q is not a directory", dir)
	}
	return &Root{path: resolved}, nil
}

// Path returns the canonical root directory.
func (r *Root) Path() string {
	return r.path
}

// Resolve normalizes candidate against the root and rejects anything
// that escapes it. Relative candidates are joined to the root; absolute
// candidates are accepted only when they already point inside it.
// Symlinks are expanded before the containment check. The candidate
// itself need not exist, but its parent directory must.
func (r *Root) Resolve(candidate string) (string, error) {
	if err := ValidatePath(candidate); err != nil {
		return "", err
	}

	var abs string
	if filepath.IsAbs(candidate) {
		abs = filepath.Clean(candidate)
	} else {
		abs = filepath.Clean(filepath.Join(r.path, candidate))
	}
	if !HasPathPrefix(abs, r.path) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, candidate)
	}

	resolved, err := resolveSymlinked(abs, r.path)
	if err != nil {
		return "", err
	}
	if !HasPathPrefix(resolved, r.path) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, candidate)
	}
	return resolved, nil
}

// resolveSymlinked expands symlinks in path. When the leaf does not
// exist yet, the parent is expanded instead and must stay inside base.
func resolveSymlinked(path, base string) (string, error) {
	if _, err := os.Lstat(path); err == nil {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path: %v", err)
		}
		return resolved, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat path: %v", err)
	}

	parent := filepath.Dir(path)
	parentResolved, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return "", fmt.Errorf("failed to resolve parent path: %v", err)
	}
	if !HasPathPrefix(parentResolved, base) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, path)
	}
	return filepath.Join(parentResolved, filepath.Base(path)), nil
}

// HasPathPrefix returns true when path is base or a descendant of base.
func HasPathPrefix(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && rel != "..")
}

// ValidatePath validates raw path input before resolution.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.IndexByte(path, 0) != -1 {
		return fmt.Errorf("path contains null byte")
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("path is not valid UTF-8")
	}
	for _, r := range path {
		if unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) || unicode.Is(unicode.Me, r) {
			return fmt.Errorf("path contains unsupported unicode combining mark")
		}
	}
	if len(path) > MaxPathLength {
		return fmt.Errorf("path exceeds maximum length of %d characters", MaxPathLength)
	}
	if len(filepath.Clean(path)) > MaxPathLength {
		return fmt.Errorf("path exceeds maximum length of %d characters", MaxPathLength)
	}
	return nil
}
