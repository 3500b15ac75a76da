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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"opsline/internal/workdir"
)

// ErrorKind classifies an operation failure for programmatic handling.
type ErrorKind string

const (
	KindAccessDenied    ErrorKind = "access_denied"
	KindNotFound        ErrorKind = "not_found"
	KindAlreadyExists   ErrorKind = "already_exists"
	KindNotADirectory   ErrorKind = "not_a_directory"
	KindNotAFile        ErrorKind = "not_a_file"
	KindTimeout         ErrorKind = "timeout"
	KindInvalidRequest  ErrorKind = "invalid_request"
	KindUpstreamFailure ErrorKind = "upstream_failure"
	KindUnknown         ErrorKind = "unknown"
)

// Fatal reports whether a kind ends the session instead of being fed
// back to the model as a recoverable turn result.
func (k ErrorKind) Fatal() bool {
	return k == KindInvalidRequest || k == KindUpstreamFailure
}

// ParseErrorKind maps a wire string onto the taxonomy; anything
// unrecognized collapses to KindUnknown.
func ParseErrorKind(s string) ErrorKind {
	switch kind := ErrorKind(s); kind {
	case KindAccessDenied, KindNotFound, KindAlreadyExists,
		KindNotADirectory, KindNotAFile, KindTimeout,
		KindInvalidRequest, KindUpstreamFailure, KindUnknown:
		return kind
	}
	return KindUnknown
}

// Error wraps an underlying failure with a kind and message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		if e.Err != nil {
			return e.Err.Error()
		}
		return string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError creates a new kinded error with a message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a new kinded error that wraps an underlying error.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Classify converts an arbitrary failure into a kinded error. Already
// kinded errors pass through unchanged; filesystem and context errors
// map onto the taxonomy; everything else becomes KindUnknown with the
// original message preserved.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded
	}
	switch {
	case errors.Is(err, workdir.ErrEscapesRoot):
		return WrapError(KindAccessDenied, "path escapes working directory", err)
	case errors.Is(err, fs.ErrPermission):
		return WrapError(KindAccessDenied, "permission denied", err)
	case errors.Is(err, fs.ErrNotExist):
		return WrapError(KindNotFound, "path does not exist", err)
	case errors.Is(err, fs.ErrExist):
		return WrapError(KindAlreadyExists, "path already exists", err)
	case isNotDirErr(err):
		return WrapError(KindNotADirectory, "path is not a directory", err)
	case errors.Is(err, context.DeadlineExceeded):
		return WrapError(KindTimeout, "operation timed out", err)
	case errors.Is(err, context.Canceled):
		return WrapError(KindUnknown, "operation canceled", err)
	default:
		return &Error{Kind: KindUnknown, Err: err}
	}
}

func isNotDirErr(err error) bool {
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		return false
	}
	return errors.Is(pathErr.Err, syscall.ENOTDIR)
}
