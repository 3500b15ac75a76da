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
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"opsline/internal/ops"
)

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the operation catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			printCatalogue(os.Stdout)
			return nil
		},
	}
}

func printCatalogue(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 8, 2, '\t', 0)
	fmt.Fprintln(w, "Operation\tAccess\tParameters\tDescription")
	fmt.Fprintln(w, "─────────\t──────\t──────────\t───────────")
	for _, def := range ops.Definitions() {
		access := "read-only"
		if def.Mutating {
			access = "read-write"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", def.Name(), access, parameterNames(def), def.Description)
	}
	w.Flush()
}

// parameterNames lists the schema property names of one operation.
func parameterNames(def ops.Definition) string {
	properties, ok := def.Parameters["properties"].(map[string]interface{})
	if !ok || len(properties) == 0 {
		return "-"
	}
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
