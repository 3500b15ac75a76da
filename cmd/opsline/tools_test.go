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
	"bytes"
	"strings"
	"testing"

	"opsline/internal/ops"
)

func TestPrintCatalogueListsAllOperations(t *testing.T) {
	var buf bytes.Buffer
	printCatalogue(&buf)

	output := buf.String()
	if !strings.Contains(output, "Operation") {
		t.Fatal("expected table header")
	}
	for _, def := range ops.Definitions() {
		if !strings.Contains(output, def.Name()) {
			t.Fatalf("expected operation %q in listing", def.Name())
		}
	}
	if !strings.Contains(output, "read-write") {
		t.Fatal("expected mutating operations to be marked read-write")
	}
}

func TestParameterNames(t *testing.T) {
	def, ok := ops.Lookup("write_file")
	if !ok {
		t.Fatal("write_file missing from catalogue")
	}
	names := parameterNames(def)
	for _, expected := range []string{"path", "content", "working_directory"} {
		if !strings.Contains(names, expected) {
			t.Fatalf("expected parameter %q in %q", expected, names)
		}
	}
}
