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

package ops

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"opsline/internal/workdir"
)

const treeIndent = "    "

// buildTree renders the directory tree below base, one entry per line,
// indented four spaces per depth, directories suffixed with '/'. base
// must already be canonical. Symlinked directories are followed only
// when their target stays inside the root; a target repeated on the
// current descent path is a cycle and aborts the walk.
func (s *Server) buildTree(ctx context.Context, base string) (string, *Error) {
	var out strings.Builder
	entryCount := 0
	visited := map[string]bool{base: true}
	if opErr := s.walkTree(ctx, base, 0, visited, &entryCount, &out); opErr != nil {
		return "", opErr
	}
	return strings.TrimRight(out.String(), "\n"), nil
}

func (s *Server) walkTree(ctx context.Context, dir string, depth int, visited map[string]bool, count *int, out *strings.Builder) *Error {
	if err := ensureContext(ctx); err != nil {
		return Classify(err)
	}
	if depth > s.limits.MaxDirectoryDepth {
		return NewError(KindUnknown, fmt.Sprintf("directory tree exceeds maximum depth of %d", s.limits.MaxDirectoryDepth))
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Classify(err)
	}
	indent := strings.Repeat(treeIndent, depth)
	for _, entry := range entries {
		*count++
		if *count > s.limits.MaxDirectoryEntries {
			return NewError(KindUnknown, fmt.Sprintf("directory tree exceeds maximum of %d entries", s.limits.MaxDirectoryEntries))
		}

		name := entry.Name()
		full := filepath.Join(dir, name)

		if entry.Type()&fs.ModeSymlink != 0 {
			if opErr := s.walkSymlinkEntry(ctx, full, name, indent, depth, visited, count, out); opErr != nil {
				return opErr
			}
			continue
		}

		if !entry.IsDir() {
			fmt.Fprintf(out, "%s%s\n", indent, name)
			continue
		}

		fmt.Fprintf(out, "%s%s/\n", indent, name)
		visited[full] = true
		opErr := s.walkTree(ctx, full, depth+1, visited, count, out)
		delete(visited, full)
		if opErr != nil {
			return opErr
		}
	}
	return nil
}

// walkSymlinkEntry prints a symlinked entry and descends into its target
// when the target is a directory inside the root.
func (s *Server) walkSymlinkEntry(ctx context.Context, full, name, indent string, depth int, visited map[string]bool, count *int, out *strings.Builder) *Error {
	target, err := filepath.EvalSymlinks(full)
	if err != nil {
		// Dangling symlinks are listed but not followed.
		fmt.Fprintf(out, "%s%s\n", indent, name)
		return nil
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(out, "%s%s\n", indent, name)
		return nil
	}

	fmt.Fprintf(out, "%s%s/\n", indent, name)
	if !workdir.HasPathPrefix(target, s.root.Path()) {
		return nil
	}
	if visited[target] {
		return NewError(KindUnknown, fmt.Sprintf("symlink cycle detected at '%s'", name))
	}
	visited[target] = true
	opErr := s.walkTree(ctx, target, depth+1, visited, count, out)
	delete(visited, target)
	return opErr
}
