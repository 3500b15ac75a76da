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
	openai "github.com/sashabaranov/go-openai"
)

// OperationKind names one operation in the closed catalogue.
type OperationKind string

const (
	OpListFiles           OperationKind = "list_files"
	OpReadFile            OperationKind = "read_file"
	OpWriteFile           OperationKind = "write_file"
	OpAppendFile          OperationKind = "append_file"
	OpMoveFile            OperationKind = "move_file"
	OpDeleteFile          OperationKind = "delete_file"
	OpCreateDirectory     OperationKind = "create_directory"
	OpDeleteDirectory     OperationKind = "delete_directory"
	OpListDirectoryTree   OperationKind = "list_directory_tree"
	OpReadDirectoryFiles  OperationKind = "read_directory_files"
	OpRunVCSCommand       OperationKind = "run_vcs_command"
	OpGetWorkingDirectory OperationKind = "get_working_directory"
)

// Definition is the static description of one operation: name, model-facing
// description, parameter schema and the argument check applied before
// dispatch. Handlers live on Server.
type Definition struct {
	Kind        OperationKind
	Description string
	Parameters  map[string]interface{}
	Mutating    bool
	validate    ValidationRule
}

func (d Definition) Name() string {
	return string(d.Kind)
}

func (d Definition) ValidateArgs(args map[string]interface{}) error {
	if d.validate == nil {
		return nil
	}
	return d.validate(args)
}

var catalogue = buildCatalogue()

func buildCatalogue() []Definition {
	return []Definition{
		{
			Kind:        OpListFiles,
			Description: "List the entries of a directory inside the working directory. Directory names are suffixed with '/'.",
			Parameters:  mustSchemaParametersFor[listFilesArgs](),
		},
		{
			Kind:        OpReadFile,
			Description: "Read the contents of a text file inside the working directory",
			Parameters:  mustSchemaParametersFor[readFileArgs](),
			validate:    requirePathArg,
		},
		{
			Kind:        OpWriteFile,
			Description: "Create or overwrite a text file inside the working directory",
			Parameters:  mustSchemaParametersFor[writeFileArgs](),
			Mutating:    true,
			validate:    ChainValidation(requirePathArg, requireContentArg),
		},
		{
			Kind:        OpAppendFile,
			Description: "Append text to the end of a file inside the working directory, creating it if missing",
			Parameters:  mustSchemaParametersFor[appendFileArgs](),
			Mutating:    true,
			validate:    ChainValidation(requirePathArg, requireContentArg),
		},
		{
			Kind:        OpMoveFile,
			Description: "Move or rename a file inside the working directory",
			Parameters:  mustSchemaParametersFor[moveFileArgs](),
			Mutating:    true,
			validate:    schemaValidator[moveFileArgs](),
		},
		{
			Kind:        OpDeleteFile,
			Description: "Delete a single file inside the working directory",
			Parameters:  mustSchemaParametersFor[deleteFileArgs](),
			Mutating:    true,
			validate:    requirePathArg,
		},
		{
			Kind:        OpCreateDirectory,
			Description: "Create a directory inside the working directory; succeeds if it already exists",
			Parameters:  mustSchemaParametersFor[createDirectoryArgs](),
			Mutating:    true,
			validate:    requirePathArg,
		},
		{
			Kind:        OpDeleteDirectory,
			Description: "Delete a directory and everything below it inside the working directory",
			Parameters:  mustSchemaParametersFor[deleteDirectoryArgs](),
			Mutating:    true,
			validate:    requirePathArg,
		},
		{
			Kind:        OpListDirectoryTree,
			Description: "Show the directory tree below a path, one entry per line indented by depth",
			Parameters:  mustSchemaParametersFor[listDirectoryTreeArgs](),
		},
		{
			Kind:        OpReadDirectoryFiles,
			Description: "Read every regular file directly inside a directory and return name plus contents",
			Parameters:  mustSchemaParametersFor[readDirectoryFilesArgs](),
		},
		{
			Kind:        OpRunVCSCommand,
			Description: "Run a version-control subcommand in the working directory. Pass only the subcommand and its arguments, not the tool name. Non-zero exits are reported with their output.",
			Parameters:  mustSchemaParametersFor[runVCSCommandArgs](),
			Mutating:    true,
			validate: ChainValidation(
				schemaValidator[runVCSCommandArgs](),
				RequireStringArg("command", "missing or invalid 'command' parameter"),
			),
		},
		{
			Kind:        OpGetWorkingDirectory,
			Description: "Return the absolute path of the working directory",
			Parameters:  mustSchemaParametersFor[getWorkingDirectoryArgs](),
		},
	}
}

// Definitions returns the catalogue in stable order.
func Definitions() []Definition {
	out := make([]Definition, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup finds an operation definition by name.
func Lookup(name string) (Definition, bool) {
	for _, def := range catalogue {
		if string(def.Kind) == name {
			return def, true
		}
	}
	return Definition{}, false
}

// IsMutating reports whether the named operation changes the working
// directory or runs a subprocess.
func IsMutating(name string) bool {
	def, ok := Lookup(name)
	return ok && def.Mutating
}

// OpenAITools renders the catalogue as OpenAI tool definitions.
func OpenAITools() []openai.Tool {
	defs := make([]openai.Tool, 0, len(catalogue))
	for _, def := range catalogue {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name(),
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return defs
}
