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
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/u-root/u-root/pkg/core"
	coremkdir "github.com/u-root/u-root/pkg/core/mkdir"
	coremv "github.com/u-root/u-root/pkg/core/mv"
	corerm "github.com/u-root/u-root/pkg/core/rm"
)

// runCoreCommand executes a u-root core command with stdio captured and
// the working directory pinned to the guarded root.
func (s *Server) runCoreCommand(ctx context.Context, cmd core.Command, args []string) (string, error) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.SetIO(strings.NewReader(""), &stdout, &stderr)
	cmd.SetWorkingDir(s.root.Path())

	if err := cmd.RunContext(ctx, args...); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg != "" {
			return "", fmt.Errorf("%v: %s", err, errMsg)
		}
		return "", err
	}

	return stdout.String(), nil
}

func (s *Server) moveFile(ctx context.Context, args map[string]interface{}) *Result {
	if err := ensureContext(ctx); err != nil {
		return ErrorResult(Classify(err))
	}
	source, err := extractStringArg(args, "source")
	if err != nil {
		return ErrorResult(NewError(KindInvalidRequest, err.Error()))
	}
	destination, err := extractStringArg(args, "destination")
	if err != nil {
		return ErrorResult(NewError(KindInvalidRequest, err.Error()))
	}

	resolvedSource, opErr := s.resolvePath(source)
	if opErr != nil {
		return ErrorResult(opErr)
	}
	info, statErr := os.Stat(resolvedSource)
	if statErr != nil {
		return ErrorResult(Classify(statErr))
	}
	if info.IsDir() {
		return ErrorResult(NewError(KindNotAFile, fmt.Sprintf("path '%s' is a directory", source)))
	}

	// The destination leaf may not exist yet; the guard resolves its
	// parent so the move cannot land outside the root.
	resolvedDest, opErr := s.resolvePath(destination)
	if opErr != nil {
		return ErrorResult(opErr)
	}
	if destInfo, err := os.Stat(resolvedDest); err == nil && !destInfo.IsDir() {
		return ErrorResult(NewError(KindAlreadyExists, fmt.Sprintf("destination '%s' already exists", destination)))
	}

	if _, err := s.runCoreCommand(ctx, coremv.New(), []string{resolvedSource, resolvedDest}); err != nil {
		return ErrorResult(Classify(err))
	}
	return TextResult(fmt.Sprintf("Moved '%s' to '%s'.", source, destination))
}

func (s *Server) deleteFile(ctx context.Context, args map[string]interface{}) *Result {
	if err := ensureContext(ctx); err != nil {
		return ErrorResult(Classify(err))
	}
	path, err := extractPathArg(args)
	if err != nil {
		return ErrorResult(NewError(KindInvalidRequest, err.Error()))
	}
	resolved, opErr := s.resolvePath(path)
	if opErr != nil {
		return ErrorResult(opErr)
	}
	info, statErr := os.Stat(resolved)
	if statErr != nil {
		return ErrorResult(Classify(statErr))
	}
	if info.IsDir() {
		return ErrorResult(NewError(KindNotAFile, fmt.Sprintf("path '%s' is a directory; use delete_directory", path)))
	}
	if _, err := s.runCoreCommand(ctx, corerm.New(), []string{resolved}); err != nil {
		return ErrorResult(Classify(err))
	}
	return TextResult(fmt.Sprintf("Deleted '%s'.", path))
}

func (s *Server) createDirectory(ctx context.Context, args map[string]interface{}) *Result {
	if err := ensureContext(ctx); err != nil {
		return ErrorResult(Classify(err))
	}
	path, err := extractPathArg(args)
	if err != nil {
		return ErrorResult(NewError(KindInvalidRequest, err.Error()))
	}
	resolved, opErr := s.resolvePath(path)
	if opErr != nil {
		return ErrorResult(opErr)
	}
	if info, err := os.Stat(resolved); err == nil {
		if !info.IsDir() {
			return ErrorResult(NewError(KindNotADirectory, fmt.Sprintf("path '%s' exists and is not a directory", path)))
		}
		// Creating an existing directory is not an error.
		return TextResult(fmt.Sprintf("Created directory '%s'.", path))
	}
	if _, err := s.runCoreCommand(ctx, coremkdir.New(), []string{"-p", resolved}); err != nil {
		return ErrorResult(Classify(err))
	}
	return TextResult(fmt.Sprintf("Created directory '%s'.", path))
}

func (s *Server) deleteDirectory(ctx context.Context, args map[string]interface{}) *Result {
	if err := ensureContext(ctx); err != nil {
		return ErrorResult(Classify(err))
	}
	path, err := extractPathArg(args)
	if err != nil {
		return ErrorResult(NewError(KindInvalidRequest, err.Error()))
	}
	resolved, opErr := s.resolvePath(path)
	if opErr != nil {
		return ErrorResult(opErr)
	}
	if resolved == s.root.Path() {
		return ErrorResult(NewError(KindAccessDenied, "cannot delete the working directory itself"))
	}
	info, statErr := os.Stat(resolved)
	if statErr != nil {
		return ErrorResult(Classify(statErr))
	}
	if !info.IsDir() {
		return ErrorResult(NewError(KindNotADirectory, fmt.Sprintf("path '%s' is not a directory; use delete_file", path)))
	}
	if _, err := s.runCoreCommand(ctx, corerm.New(), []string{"-r", resolved}); err != nil {
		return ErrorResult(Classify(err))
	}
	return TextResult(fmt.Sprintf("Deleted directory '%s'.", path))
}
