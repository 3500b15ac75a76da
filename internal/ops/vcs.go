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
	"errors"
	"fmt"
	"os/exec"
	"time"

	shellwords "github.com/mattn/go-shellwords"
)

// vcsKillDelay bounds how long Wait lingers after cancellation before
// the child is forcibly reaped.
const vcsKillDelay = 3 * time.Second

func (s *Server) runVCSCommand(ctx context.Context, args map[string]interface{}) *Result {
	if err := ensureContext(ctx); err != nil {
		return ErrorResult(Classify(err))
	}
	command, err := extractStringArg(args, "command")
	if err != nil {
		return ErrorResult(NewError(KindInvalidRequest, err.Error()))
	}
	tokens, err := shellwords.Parse(command)
	if err != nil {
		return ErrorResult(NewError(KindInvalidRequest, fmt.Sprintf("cannot parse command: %v", err)))
	}
	// The catalogue asks for the bare subcommand; tolerate a leading
	// tool name anyway.
	if len(tokens) > 0 && tokens[0] == s.vcsTool {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return ErrorResult(NewError(KindInvalidRequest, "empty command"))
	}

	cmd := exec.CommandContext(ctx, s.vcsTool, tokens...)
	cmd.Dir = s.root.Path()
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = vcsKillDelay
	configureProcessGroup(cmd)

	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return ErrorResult(NewError(KindTimeout, fmt.Sprintf("%s command timed out", s.vcsTool)))
	}
	if ctx.Err() == context.Canceled {
		return ErrorResult(NewError(KindUnknown, fmt.Sprintf("%s command canceled", s.vcsTool)))
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return ErrorResult(NewError(KindUnknown, fmt.Sprintf("failed to run %s: %v", s.vcsTool, runErr)))
		}
		// A non-zero exit is data for the model, not a failure.
		exitCode = exitErr.ExitCode()
	}
	return CommandOutput(stdout.String(), stderr.String(), exitCode)
}
