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
	"testing"
)

var allOperations = []OperationKind{
	OpListFiles, OpReadFile, OpWriteFile, OpAppendFile,
	OpMoveFile, OpDeleteFile, OpCreateDirectory, OpDeleteDirectory,
	OpListDirectoryTree, OpReadDirectoryFiles, OpRunVCSCommand,
	OpGetWorkingDirectory,
}

func TestCatalogueCoversAllOperations(t *testing.T) {
	defs := Definitions()
	if len(defs) != len(allOperations) {
		t.Fatalf("expected %d definitions, got %d", len(allOperations), len(defs))
	}
	for _, kind := range allOperations {
		def, ok := Lookup(string(kind))
		if !ok {
			t.Errorf("missing definition for %s", kind)
			continue
		}
		if def.Description == "" {
			t.Errorf("empty description for %s", kind)
		}
		if len(def.Parameters) == 0 {
			t.Errorf("empty parameters for %s", kind)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup("copy_file"); ok {
		t.Fatal("copy_file must not be in the catalogue")
	}
	if _, ok := Lookup(""); ok {
		t.Fatal("empty name must not resolve")
	}
}

func TestIsMutating(t *testing.T) {
	mutating := []OperationKind{
		OpWriteFile, OpAppendFile, OpMoveFile, OpDeleteFile,
		OpCreateDirectory, OpDeleteDirectory, OpRunVCSCommand,
	}
	for _, kind := range mutating {
		if !IsMutating(string(kind)) {
			t.Errorf("expected %s to be mutating", kind)
		}
	}
	readOnly := []OperationKind{
		OpListFiles, OpReadFile, OpListDirectoryTree,
		OpReadDirectoryFiles, OpGetWorkingDirectory,
	}
	for _, kind := range readOnly {
		if IsMutating(string(kind)) {
			t.Errorf("expected %s to be read-only", kind)
		}
	}
}

func TestValidateRequestUnknownOperation(t *testing.T) {
	opErr := ValidateRequest(Request{Name: "copy_directory"})
	if opErr == nil {
		t.Fatal("expected an error")
	}
	if opErr.Kind != KindInvalidRequest {
		t.Fatalf("expected invalid_request, got %s", opErr.Kind)
	}
}

func TestValidateRequestArguments(t *testing.T) {
	cases := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{
			name: "read_file ok",
			req:  Request{Name: "read_file", Arguments: map[string]interface{}{"path": "a.txt"}},
		},
		{
			name: "read_file alternate key",
			req:  Request{Name: "read_file", Arguments: map[string]interface{}{"file": "a.txt"}},
		},
		{
			name:    "read_file missing path",
			req:     Request{Name: "read_file", Arguments: map[string]interface{}{}},
			wantErr: true,
		},
		{
			name: "write_file empty content ok",
			req: Request{Name: "write_file", Arguments: map[string]interface{}{
				"path": "a.txt", "content": "",
			}},
		},
		{
			name: "write_file missing content",
			req: Request{Name: "write_file", Arguments: map[string]interface{}{
				"path": "a.txt",
			}},
			wantErr: true,
		},
		{
			name: "move_file ok",
			req: Request{Name: "move_file", Arguments: map[string]interface{}{
				"source": "a.txt", "destination": "b.txt",
			}},
		},
		{
			name: "move_file missing destination",
			req: Request{Name: "move_file", Arguments: map[string]interface{}{
				"source": "a.txt",
			}},
			wantErr: true,
		},
		{
			name: "run_vcs_command blank",
			req: Request{Name: "run_vcs_command", Arguments: map[string]interface{}{
				"command": "   ",
			}},
			wantErr: true,
		},
		{
			name: "run_vcs_command ok",
			req: Request{Name: "run_vcs_command", Arguments: map[string]interface{}{
				"command": "status --short",
			}},
		},
		{
			name: "list_files no args",
			req:  Request{Name: "list_files"},
		},
		{
			name: "get_working_directory no args",
			req:  Request{Name: "get_working_directory"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opErr := ValidateRequest(tc.req)
			if tc.wantErr {
				if opErr == nil {
					t.Fatal("expected an error")
				}
				if opErr.Kind != KindInvalidRequest {
					t.Fatalf("expected invalid_request, got %s", opErr.Kind)
				}
				return
			}
			if opErr != nil {
				t.Fatalf("unexpected error: %v", opErr)
			}
		})
	}
}

func TestOpenAITools(t *testing.T) {
	tools := OpenAITools()
	if len(tools) != len(allOperations) {
		t.Fatalf("expected %d tools, got %d", len(allOperations), len(tools))
	}
	for _, tool := range tools {
		if tool.Function == nil {
			t.Fatal("tool without function definition")
		}
		if _, ok := Lookup(tool.Function.Name); !ok {
			t.Errorf("tool %q not in catalogue", tool.Function.Name)
		}
	}
}
