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

package workdir

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustOpen(t *testing.T, dir string) *Root {
	t.Helper()
	root, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open root %s: %v", dir, err)
	}
	return root
}

func TestOpenRejectsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := Open(file); err == nil {
		t.Fatal("expected error opening a regular file as root")
	}
}

func TestOpenRejectsMissingDirectory(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error opening missing directory")
	}
}

func TestResolveRelativeInsideRoot(t *testing.T) {
	root := mustOpen(t, t.TempDir())

	resolved, err := root.Resolve("notes.txt")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != filepath.Join(root.Path(), "notes.txt") {
		t.Errorf("unexpected resolved path: %s", resolved)
	}
}

func TestResolveNestedMissingLeaf(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}
	root := mustOpen(t, dir)

	resolved, err := root.Resolve("sub/new.txt")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !HasPathPrefix(resolved, root.Path()) {
		t.Errorf("resolved path %s outside root %s", resolved, root.Path())
	}
}

func TestResolveRejectsParentEscape(t *testing.T) {
	root := mustOpen(t, t.TempDir())

	escapes := []string{
		"../outside.txt",
		"../../etc/passwd",
		"sub/../../outside.txt",
		"..",
	}
	for _, candidate := range escapes {
		if _, err := root.Resolve(candidate); !errors.Is(err, ErrEscapesRoot) {
			t.Errorf("expected ErrEscapesRoot for %q, got %v", candidate, err)
		}
	}
}

func TestResolveAbsoluteOutsideRoot(t *testing.T) {
	root := mustOpen(t, t.TempDir())

	if _, err := root.Resolve("/etc/passwd"); !errors.Is(err, ErrEscapesRoot) {
		t.Errorf("expected ErrEscapesRoot for absolute path, got %v", err)
	}
}

func TestResolveAbsoluteInsideRoot(t *testing.T) {
	root := mustOpen(t, t.TempDir())

	inside := filepath.Join(root.Path(), "data.txt")
	resolved, err := root.Resolve(inside)
	if err != nil {
		t.Fatalf("resolve failed for in-root absolute path: %v", err)
	}
	if resolved != inside {
		t.Errorf("expected %s, got %s", inside, resolved)
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	base := t.TempDir()
	inside := filepath.Join(base, "inside")
	outside := filepath.Join(base, "outside")
	for _, dir := range []string{inside, outside} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0644); err != nil {
		t.Fatalf("failed to write secret: %v", err)
	}
	link := filepath.Join(inside, "sneaky")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	root := mustOpen(t, inside)
	if _, err := root.Resolve("sneaky/secret.txt"); !errors.Is(err, ErrEscapesRoot) {
		t.Errorf("expected ErrEscapesRoot through symlink, got %v", err)
	}
	if _, err := root.Resolve("sneaky/brand-new.txt"); !errors.Is(err, ErrEscapesRoot) {
		t.Errorf("expected ErrEscapesRoot for missing leaf behind symlink, got %v", err)
	}
}

func TestResolveSymlinkInsideRootAllowed(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatalf("failed to create target: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(dir, "alias")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	root := mustOpen(t, dir)
	resolved, err := root.Resolve("alias")
	if err != nil {
		t.Fatalf("resolve failed for in-root symlink: %v", err)
	}
	if !HasPathPrefix(resolved, root.Path()) {
		t.Errorf("resolved symlink %s left root", resolved)
	}
}

func TestValidatePath(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"null byte", "a\x00b", true},
		{"invalid utf8", string([]byte{0xff, 0xfe}), true},
		{"combining mark", "filé.txt", true},
		{"too long", strings.Repeat("a", MaxPathLength+1), true},
		{"plain", "notes.txt", false},
		{"nested", "a/b/c.txt", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path)
			if tc.wantErr && err == nil {
				t.Errorf("expected error for %q", tc.path)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error for %q: %v", tc.path, err)
			}
		})
	}
}

func TestHasPathPrefix(t *testing.T) {
	if !HasPathPrefix("/work/a/b", "/work") {
		t.Error("expected /work/a/b within /work")
	}
	if !HasPathPrefix("/work", "/work") {
		t.Error("expected /work within itself")
	}
	if HasPathPrefix("/workother", "/work") {
		t.Error("sibling with shared string prefix must not match")
	}
	if HasPathPrefix("/", "/work") {
		t.Error("parent must not match")
	}
}
