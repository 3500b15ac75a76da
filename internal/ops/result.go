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
	"fmt"
	"sort"
	"strings"
)

// Request is a single operation invocation as produced by the model:
// an operation name plus a free-form argument mapping. Consumed once,
// never persisted.
type Request struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// CommandResult carries the outcome of a subprocess run. A non-zero
// exit is data, not an error, so the model can see why a command
// failed and retry with corrected arguments.
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Result is the outcome of one operation: a success payload (text, a
// file mapping, or a command result) or a kinded error, never both.
type Result struct {
	Text    string            `json:"text,omitempty"`
	Files   map[string]string `json:"files,omitempty"`
	Command *CommandResult    `json:"command,omitempty"`
	Err     *Error            `json:"-"`
}

// TextResult wraps a plain text payload.
func TextResult(text string) *Result {
	return &Result{Text: text}
}

// FilesResult wraps a file-name to content mapping.
func FilesResult(files map[string]string) *Result {
	return &Result{Files: files}
}

// CommandOutput wraps a subprocess outcome.
func CommandOutput(stdout, stderr string, exitCode int) *Result {
	return &Result{Command: &CommandResult{Stdout: stdout, Stderr: stderr, ExitCode: exitCode}}
}

// ErrorResult wraps a kinded error.
func ErrorResult(err *Error) *Result {
	return &Result{Err: err}
}

// Failed reports whether the result carries an error.
func (r *Result) Failed() bool {
	return r != nil && r.Err != nil
}

// Render serializes the result into the text fed back to the model.
// This is the only channel through which the model learns an outcome.
func (r *Result) Render() string {
	if r == nil {
		return ""
	}
	if r.Err != nil {
		return fmt.Sprintf("Error (%s): %s", r.Err.Kind, r.Err.Error())
	}
	if r.Command != nil {
		var b strings.Builder
		fmt.Fprintf(&b, "exit code: %d\n", r.Command.ExitCode)
		b.WriteString("stdout:\n")
		b.WriteString(r.Command.Stdout)
		if !strings.HasSuffix(r.Command.Stdout, "\n") && r.Command.Stdout != "" {
			b.WriteString("\n")
		}
		b.WriteString("stderr:\n")
		b.WriteString(r.Command.Stderr)
		return strings.TrimRight(b.String(), "\n")
	}
	if r.Files != nil {
		names := make([]string, 0, len(r.Files))
		for name := range r.Files {
			names = append(names, name)
		}
		sort.Strings(names)
		var b strings.Builder
		for i, name := range names {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "=== %s ===\n", name)
			b.WriteString(r.Files[name])
			if !strings.HasSuffix(r.Files[name], "\n") {
				b.WriteString("\n")
			}
		}
		return strings.TrimRight(b.String(), "\n")
	}
	return r.Text
}
