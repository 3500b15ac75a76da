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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"opsline/internal/ops"
	"opsline/internal/session"
)

type approvalDecision int

const (
	approvalUnknown approvalDecision = iota
	approvalYes
	approvalNo
	approvalAlways
)

type operationPromptFunc func(req ops.Request) (approvalDecision, error)

func newOperationApprover() session.ConfirmFunc {
	return newOperationApproverWithPrompt(promptOperationApproval)
}

// newOperationApproverWithPrompt confirms mutating operations interactively.
// An "always" answer is remembered per operation name for the process
// lifetime. Prompt failures deny the operation; the session then reports the
// decline to the model and continues.
func newOperationApproverWithPrompt(prompt operationPromptFunc) session.ConfirmFunc {
	alwaysAllowed := make(map[string]bool)
	var mu sync.RWMutex
	return func(req ops.Request) bool {
		mu.RLock()
		allowed := alwaysAllowed[req.Name]
		mu.RUnlock()
		if allowed {
			return true
		}

		decision, err := prompt(req)
		if err != nil {
			return false
		}
		if decision == approvalAlways {
			mu.Lock()
			alwaysAllowed[req.Name] = true
			mu.Unlock()
			return true
		}
		return decision == approvalYes
	}
}

func promptOperationApproval(req ops.Request) (approvalDecision, error) {
	input := os.Stdin
	output := io.Writer(os.Stdout)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
			input = tty
			output = tty
			defer tty.Close()
		} else {
			return approvalNo, fmt.Errorf("no TTY available for operation approval")
		}
	}
	reader := bufio.NewReader(input)

	for {
		fmt.Fprintf(output, "Allow operation %s%s? (Yes/no/always): ", req.Name, approvalArgsDisplay(req.Arguments))
		line, err := reader.ReadString('\n')
		if err != nil {
			return approvalNo, err
		}
		decision := parseApprovalInput(line)
		switch decision {
		case approvalYes, approvalNo, approvalAlways:
			return decision, nil
		default:
			fmt.Fprintln(output, "Please enter yes, no, or always.")
		}
	}
}

// approvalArgsDisplay renders the operation arguments for the prompt. File
// contents and the injected working directory are elided so the prompt stays
// one line.
func approvalArgsDisplay(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	redacted := make(map[string]interface{}, len(args))
	for key, val := range args {
		if key == "content" || key == "working_directory" {
			continue
		}
		redacted[key] = val
	}
	if len(redacted) == 0 {
		return ""
	}
	encoded, err := json.Marshal(redacted)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" with args %s", string(encoded))
}

func parseApprovalInput(input string) approvalDecision {
	normalized := strings.TrimSpace(strings.ToLower(input))
	if normalized == "" {
		return approvalYes
	}
	switch {
	case isPrefixToken(normalized, "yes"):
		return approvalYes
	case isPrefixToken(normalized, "no"):
		return approvalNo
	case isPrefixToken(normalized, "always"):
		return approvalAlways
	default:
		return approvalUnknown
	}
}

func isPrefixToken(input, target string) bool {
	if input == "" || len(input) > len(target) {
		return false
	}
	return strings.HasPrefix(target, input)
}
