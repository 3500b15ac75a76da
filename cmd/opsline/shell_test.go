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

package main

import (
	"errors"
	"io"
	"testing"

	"github.com/chzyer/readline"

	"opsline/internal/session"
)

func TestClassifyReadlineError(t *testing.T) {
	cases := []struct {
		name     string
		line     string
		err      error
		expected readlineAction
	}{
		{"interrupt", "", readline.ErrInterrupt, readlineContinue},
		{"eof-empty", "", io.EOF, readlineExit},
		{"eof-whitespace", "   ", io.EOF, readlineExit},
		{"eof-line", "hello", io.EOF, readlineContinue},
		{"no-error", "hello", nil, readlineUnhandled},
		{"other", "", errors.New("boom"), readlineUnhandled},
	}

	for _, tc := range cases {
		if got := classifyReadlineError(tc.line, tc.err); got != tc.expected {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestHandleSlashCommandQuit(t *testing.T) {
	loop := &session.Loop{}
	if !handleSlashCommand("/quit", loop) {
		t.Fatal("expected /quit to end the shell")
	}
	if !handleSlashCommand("/exit", loop) {
		t.Fatal("expected /exit to end the shell")
	}
	if !handleSlashCommand("/QUIT", loop) {
		t.Fatal("expected command names to be case-insensitive")
	}
}

func TestHandleSlashCommandUnknown(t *testing.T) {
	loop := &session.Loop{}
	if handleSlashCommand("/frobnicate", loop) {
		t.Fatal("unknown command should not end the shell")
	}
}

func TestHandleSlashCommandDryToggle(t *testing.T) {
	loop := &session.Loop{}
	if handleSlashCommand("/dry", loop) {
		t.Fatal("/dry should not end the shell")
	}
	if !loop.DryRun {
		t.Fatal("expected dry-run mode to be enabled")
	}
	handleSlashCommand("/dry", loop)
	if loop.DryRun {
		t.Fatal("expected dry-run mode to be disabled again")
	}
}

func TestShellCommandsHaveDescriptions(t *testing.T) {
	for _, cmd := range shellCommands() {
		if cmd.Name == "" {
			t.Fatal("shell command with empty name")
		}
		if cmd.Description == "" {
			t.Fatalf("shell command %q has no description", cmd.Name)
		}
	}
}

func TestShellCompleterCoversCommands(t *testing.T) {
	completer := shellCompleter()
	if completer == nil {
		t.Fatal("expected a completer")
	}
	if len(completer.GetChildren()) != len(shellCommands()) {
		t.Fatalf("expected %d completion items, got %d",
			len(shellCommands()), len(completer.GetChildren()))
	}
}
