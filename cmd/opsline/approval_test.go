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
	"strings"
	"testing"

	"opsline/internal/ops"
)

func TestParseApprovalInput(t *testing.T) {
	cases := []struct {
		input    string
		expected approvalDecision
	}{
		{"", approvalYes},
		{" ", approvalYes},
		{"Y", approvalYes},
		{"ye", approvalYes},
		{"yes", approvalYes},
		{"n", approvalNo},
		{"no", approvalNo},
		{"a", approvalAlways},
		{"al", approvalAlways},
		{"always", approvalAlways},
		{"maybe", approvalUnknown},
		{"yess", approvalUnknown},
		{"nope", approvalUnknown},
		{"alwayz", approvalUnknown},
	}

	for _, tc := range cases {
		decision := parseApprovalInput(tc.input)
		if decision != tc.expected {
			t.Fatalf("input %q expected %v, got %v", tc.input, tc.expected, decision)
		}
	}
}

func TestOperationApproverAlwaysPersists(t *testing.T) {
	prompts := 0
	approver := newOperationApproverWithPrompt(func(req ops.Request) (approvalDecision, error) {
		prompts++
		if req.Name == "write_file" {
			return approvalAlways, nil
		}
		return approvalNo, nil
	})

	writeReq := ops.Request{Name: "write_file"}
	if !approver(writeReq) {
		t.Fatal("expected first write_file approval")
	}
	if !approver(writeReq) {
		t.Fatal("expected write_file to be auto-approved")
	}
	if prompts != 1 {
		t.Fatalf("expected prompt once, got %d", prompts)
	}

	deleteReq := ops.Request{Name: "delete_file"}
	if approver(deleteReq) {
		t.Fatal("expected delete_file to remain denied")
	}
	if prompts != 2 {
		t.Fatalf("expected prompt count 2, got %d", prompts)
	}
}

func TestOperationApproverDeniesOnPromptError(t *testing.T) {
	approver := newOperationApproverWithPrompt(func(req ops.Request) (approvalDecision, error) {
		return approvalUnknown, errors.New("no tty")
	})

	if approver(ops.Request{Name: "delete_directory"}) {
		t.Fatal("expected denial when the prompt cannot be shown")
	}
}

func TestApprovalArgsDisplayRedaction(t *testing.T) {
	display := approvalArgsDisplay(map[string]interface{}{
		"path":              "notes.txt",
		"content":           "secret draft",
		"working_directory": "/work/root",
	})
	if !strings.Contains(display, "notes.txt") {
		t.Fatalf("expected path in display, got %q", display)
	}
	if strings.Contains(display, "secret draft") {
		t.Fatalf("expected content to be elided, got %q", display)
	}
	if strings.Contains(display, "/work/root") {
		t.Fatalf("expected working directory to be elided, got %q", display)
	}
}

func TestApprovalArgsDisplayEmpty(t *testing.T) {
	if display := approvalArgsDisplay(nil); display != "" {
		t.Fatalf("expected empty display for no args, got %q", display)
	}
	onlyInjected := map[string]interface{}{"working_directory": "/work/root"}
	if display := approvalArgsDisplay(onlyInjected); display != "" {
		t.Fatalf("expected empty display when only injected args remain, got %q", display)
	}
}
