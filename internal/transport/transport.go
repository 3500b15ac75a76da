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

// Package transport carries operation requests to a server, either
// in-process or over a WebSocket connection. Transport failures are
// folded into error-kinded results; Call never returns a Go error, so
// the dispatch loop handles a broken connection the same way it
// handles a failed operation.
package transport

import (
	"context"

	"opsline/internal/ops"
)

// Transport delivers one operation request and returns its result.
type Transport interface {
	Call(ctx context.Context, req ops.Request) *ops.Result
	Close() error
}

// Local dispatches directly to an in-process operation server.
type Local struct {
	server *ops.Server
}

// NewLocal wraps an operation server as a Transport.
func NewLocal(server *ops.Server) *Local {
	return &Local{server: server}
}

func (l *Local) Call(ctx context.Context, req ops.Request) *ops.Result {
	return l.server.Dispatch(ctx, req)
}

func (l *Local) Close() error {
	return nil
}
