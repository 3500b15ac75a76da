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

package session

import (
	"fmt"

	"opsline/internal/ops"
)

// APIError represents a failure talking to the completion service.
// Always fatal: without the model there is no session to continue.
type APIError struct {
	Operation string
	Err       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error during %s: %v", e.Operation, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// OperationError is a fatal operation failure that ended the session.
// Recoverable operation errors never surface here; they are folded back
// into the transcript instead.
type OperationError struct {
	Name string
	Err  *ops.Error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.Name, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// TurnLimitError reports that the session hit its operation cap without
// the model producing a final answer.
type TurnLimitError struct {
	Limit int
}

func (e *TurnLimitError) Error() string {
	return fmt.Sprintf("session exceeded %d operations without a final answer", e.Limit)
}
