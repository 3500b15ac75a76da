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

// Typed argument structs behind the catalogue schemas. Every operation
// carries working_directory; the dispatch loop overwrites it on each call
// and the server resolves against its own root regardless of the value.

type listFilesArgs struct {
	Path             string `json:"path,omitempty" jsonschema:"description=Directory to list; defaults to the working directory root"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}

type readFileArgs struct {
	Path             string `json:"path" jsonschema:"description=Path to the file to read,minLength=1"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}

type writeFileArgs struct {
	Path             string `json:"path" jsonschema:"description=Path to the file to write,minLength=1"`
	Content          string `json:"content" jsonschema:"description=Text content to write; an empty string creates an empty file"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}

type appendFileArgs struct {
	Path             string `json:"path" jsonschema:"description=Path to the file to append to,minLength=1"`
	Content          string `json:"content" jsonschema:"description=Text content to append at the end of the file"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}

type moveFileArgs struct {
	Source           string `json:"source" validate:"required" jsonschema:"description=Path of the file to move,minLength=1"`
	Destination      string `json:"destination" validate:"required" jsonschema:"description=New path for the file,minLength=1"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}

type deleteFileArgs struct {
	Path             string `json:"path" jsonschema:"description=Path to the file to delete,minLength=1"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}

type createDirectoryArgs struct {
	Path             string `json:"path" jsonschema:"description=Path of the directory to create; missing parents are created as well,minLength=1"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}

type deleteDirectoryArgs struct {
	Path             string `json:"path" jsonschema:"description=Path of the directory to delete together with its contents,minLength=1"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}

type listDirectoryTreeArgs struct {
	Path             string `json:"path,omitempty" jsonschema:"description=Directory to walk; defaults to the working directory root"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}

type readDirectoryFilesArgs struct {
	Path             string `json:"path,omitempty" jsonschema:"description=Directory whose regular files are read; defaults to the working directory root"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}

type runVCSCommandArgs struct {
	Command          string `json:"command" validate:"required" jsonschema:"description=Version-control subcommand and arguments without the leading tool name; for example 'status --short'"`
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}

type getWorkingDirectoryArgs struct {
	WorkingDirectory string `json:"working_directory,omitempty" jsonschema:"description=Sandbox working directory; set by the session on every call"`
}
