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

// Package ops executes the operation catalogue inside a guarded working
// directory. A Server owns one immutable root; every path argument is
// resolved through it before anything touches the filesystem. Failures
// never cross the Dispatch boundary as Go errors: they come back as
// ErrorKind-tagged results the dispatch loop can feed to the model.
package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"opsline/internal/workdir"
)

// DefaultVCSTool is the version-control executable used when none is
// configured.
const DefaultVCSTool = "git"

// Server executes catalogue operations against one working directory.
// It holds no mutable state, so a single instance may serve concurrent
// callers as long as each session sequences its own calls.
type Server struct {
	root     *workdir.Root
	vcsTool  string
	limits   Limits
	timeouts TimeoutConfig
	logger   zerolog.Logger
}

// ServerOptions configures optional Server collaborators.
type ServerOptions struct {
	VCSTool  string
	Limits   *Limits
	Timeouts *TimeoutConfig
	Logger   *zerolog.Logger
}

// NewServer creates a Server rooted at the given working directory.
func NewServer(root *workdir.Root, opts ServerOptions) *Server {
	limits := DefaultLimits()
	if opts.Limits != nil {
		limits = normalizeLimits(*opts.Limits)
	}
	timeouts := DefaultTimeoutConfig()
	if opts.Timeouts != nil {
		timeouts = *opts.Timeouts
		if timeouts.Default <= 0 {
			timeouts.Default = DefaultOperationTimeout
		}
	}
	vcsTool := strings.TrimSpace(opts.VCSTool)
	if vcsTool == "" {
		vcsTool = DefaultVCSTool
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Server{
		root:     root,
		vcsTool:  vcsTool,
		limits:   limits,
		timeouts: timeouts,
		logger:   logger,
	}
}

// Root returns the absolute path of the working directory.
func (s *Server) Root() string {
	return s.root.Path()
}

// Dispatch validates and executes one operation request. The call is
// bounded by the operation's timeout; a handler that outlives it is
// abandoned and the caller gets a timeout-tagged result instead.
func (s *Server) Dispatch(ctx context.Context, req Request) *Result {
	if opErr := ValidateRequest(req); opErr != nil {
		return ErrorResult(opErr)
	}
	handler := s.handlerFor(OperationKind(req.Name))
	if handler == nil {
		return ErrorResult(NewError(KindInvalidRequest, fmt.Sprintf("unknown operation %q", req.Name)))
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeouts.TimeoutFor(req.Name))
	defer cancel()

	s.logger.Debug().Str("op", req.Name).Msg("dispatching operation")
	start := time.Now()

	// Buffered so an abandoned handler can still deliver and exit.
	done := make(chan *Result, 1)
	go func() {
		done <- handler(opCtx, req.Arguments)
	}()

	var result *Result
	select {
	case result = <-done:
	case <-opCtx.Done():
		result = ErrorResult(Classify(opCtx.Err()))
	}

	if result.Failed() {
		s.logger.Warn().
			Str("op", req.Name).
			Str("kind", string(result.Err.Kind)).
			Dur("elapsed", time.Since(start)).
			Msg("operation failed")
	} else {
		s.logger.Debug().
			Str("op", req.Name).
			Dur("elapsed", time.Since(start)).
			Msg("operation done")
	}
	return result
}

type handlerFunc func(ctx context.Context, args map[string]interface{}) *Result

func (s *Server) handlerFor(kind OperationKind) handlerFunc {
	switch kind {
	case OpListFiles:
		return s.listFiles
	case OpReadFile:
		return s.readFile
	case OpWriteFile:
		return s.writeFile
	case OpAppendFile:
		return s.appendFile
	case OpMoveFile:
		return s.moveFile
	case OpDeleteFile:
		return s.deleteFile
	case OpCreateDirectory:
		return s.createDirectory
	case OpDeleteDirectory:
		return s.deleteDirectory
	case OpListDirectoryTree:
		return s.listDirectoryTree
	case OpReadDirectoryFiles:
		return s.readDirectoryFiles
	case OpRunVCSCommand:
		return s.runVCSCommand
	case OpGetWorkingDirectory:
		return s.getWorkingDirectory
	}
	return nil
}

// resolvePath guards one path argument against the working directory.
func (s *Server) resolvePath(path string) (string, *Error) {
	resolved, err := s.root.Resolve(path)
	if err != nil {
		return "", Classify(err)
	}
	return resolved, nil
}

// resolveDirArg resolves an optional directory argument and checks that
// it names an existing directory.
func (s *Server) resolveDirArg(args map[string]interface{}) (string, *Error) {
	path := optionalPathArg(args)
	resolved, opErr := s.resolvePath(path)
	if opErr != nil {
		return "", opErr
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", Classify(err)
	}
	if !info.IsDir() {
		return "", NewError(KindNotADirectory, fmt.Sprintf("path '%s' is not a directory", path))
	}
	return resolved, nil
}

func (s *Server) listFiles(ctx context.Context, args map[string]interface{}) *Result {
	if err := ensureContext(ctx); err != nil {
		return ErrorResult(Classify(err))
	}
	resolved, opErr := s.resolveDirArg(args)
	if opErr != nil {
		return ErrorResult(opErr)
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return ErrorResult(Classify(err))
	}
	if len(entries) == 0 {
		return TextResult("Directory is empty")
	}
	// ReadDir returns entries sorted by name.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return TextResult(strings.Join(names, "\n"))
}

func (s *Server) readFile(ctx context.Context, args map[string]interface{}) *Result {
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
	info, err := os.Stat(resolved)
	if err != nil {
		return ErrorResult(Classify(err))
	}
	if info.IsDir() {
		return ErrorResult(NewError(KindNotAFile, fmt.Sprintf("path '%s' is a directory", path)))
	}
	if info.Size() > s.limits.MaxFileSizeBytes {
		return ErrorResult(NewError(KindUnknown, fmt.Sprintf("file exceeds maximum size of %d bytes", s.limits.MaxFileSizeBytes)))
	}
	content, err := os.ReadFile(resolved)
	if err != nil {
		return ErrorResult(Classify(err))
	}
	if !isTextContent(content) {
		return ErrorResult(NewError(KindUnknown, "file appears to be binary; read_file supports text only"))
	}
	return TextResult(string(content))
}

func (s *Server) writeFile(ctx context.Context, args map[string]interface{}) *Result {
	if err := ensureContext(ctx); err != nil {
		return ErrorResult(Classify(err))
	}
	path, err := extractPathArg(args)
	if err != nil {
		return ErrorResult(NewError(KindInvalidRequest, err.Error()))
	}
	content, err := contentArg(args)
	if err != nil {
		return ErrorResult(NewError(KindInvalidRequest, err.Error()))
	}
	if int64(len(content)) > s.limits.MaxFileSizeBytes {
		return ErrorResult(NewError(KindInvalidRequest, fmt.Sprintf("content exceeds maximum size of %d bytes", s.limits.MaxFileSizeBytes)))
	}
	resolved, opErr := s.resolvePath(path)
	if opErr != nil {
		return ErrorResult(opErr)
	}
	if info, err := os.Stat(resolved); err == nil && info.IsDir() {
		return ErrorResult(NewError(KindNotAFile, fmt.Sprintf("path '%s' is a directory", path)))
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return ErrorResult(Classify(err))
	}
	return TextResult(fmt.Sprintf("Successfully wrote to '%s'.", path))
}

func (s *Server) appendFile(ctx context.Context, args map[string]interface{}) *Result {
	if err := ensureContext(ctx); err != nil {
		return ErrorResult(Classify(err))
	}
	path, err := extractPathArg(args)
	if err != nil {
		return ErrorResult(NewError(KindInvalidRequest, err.Error()))
	}
	content, err := contentArg(args)
	if err != nil {
		return ErrorResult(NewError(KindInvalidRequest, err.Error()))
	}
	if int64(len(content)) > s.limits.MaxFileSizeBytes {
		return ErrorResult(NewError(KindInvalidRequest, fmt.Sprintf("content exceeds maximum size of %d bytes", s.limits.MaxFileSizeBytes)))
	}
	resolved, opErr := s.resolvePath(path)
	if opErr != nil {
		return ErrorResult(opErr)
	}
	if info, err := os.Stat(resolved); err == nil && info.IsDir() {
		return ErrorResult(NewError(KindNotAFile, fmt.Sprintf("path '%s' is a directory", path)))
	}
	handle, err := os.OpenFile(resolved, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return ErrorResult(Classify(err))
	}
	_, writeErr := handle.WriteString(content)
	closeErr := handle.Close()
	if writeErr != nil {
		return ErrorResult(Classify(writeErr))
	}
	if closeErr != nil {
		return ErrorResult(Classify(closeErr))
	}
	return TextResult(fmt.Sprintf("Successfully appended to '%s'.", path))
}

func (s *Server) getWorkingDirectory(ctx context.Context, args map[string]interface{}) *Result {
	if err := ensureContext(ctx); err != nil {
		return ErrorResult(Classify(err))
	}
	return TextResult(s.root.Path())
}

func (s *Server) listDirectoryTree(ctx context.Context, args map[string]interface{}) *Result {
	if err := ensureContext(ctx); err != nil {
		return ErrorResult(Classify(err))
	}
	resolved, opErr := s.resolveDirArg(args)
	if opErr != nil {
		return ErrorResult(opErr)
	}
	tree, opErr := s.buildTree(ctx, resolved)
	if opErr != nil {
		return ErrorResult(opErr)
	}
	if tree == "" {
		return TextResult("Directory is empty")
	}
	return TextResult(tree)
}

func (s *Server) readDirectoryFiles(ctx context.Context, args map[string]interface{}) *Result {
	if err := ensureContext(ctx); err != nil {
		return ErrorResult(Classify(err))
	}
	dirPath := optionalPathArg(args)
	resolved, opErr := s.resolveDirArg(args)
	if opErr != nil {
		return ErrorResult(opErr)
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return ErrorResult(Classify(err))
	}
	files := make(map[string]string)
	for _, entry := range entries {
		if err := ensureContext(ctx); err != nil {
			return ErrorResult(Classify(err))
		}
		if entry.IsDir() {
			continue
		}
		// Entry symlinks resolve through the guard; escapes are skipped.
		entryPath, opErr := s.resolvePath(filepath.Join(dirPath, entry.Name()))
		if opErr != nil {
			continue
		}
		info, err := os.Stat(entryPath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.Size() > s.limits.MaxFileSizeBytes {
			continue
		}
		content, err := os.ReadFile(entryPath)
		if err != nil || !isTextContent(content) {
			continue
		}
		files[entry.Name()] = string(content)
	}
	if len(files) == 0 {
		return TextResult("No files found in this directory.")
	}
	return FilesResult(files)
}
