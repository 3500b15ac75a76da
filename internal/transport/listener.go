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

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"opsline/internal/ops"
)

// Listener exposes an operation server over WebSocket. Each connection
// is served by its own goroutine running a sequential request loop:
// one frame in, one dispatch, one frame out.
type Listener struct {
	server   *ops.Server
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	ctx context.Context
}

// NewListener wraps an operation server for remote callers.
func NewListener(server *ops.Server, logger zerolog.Logger) *Listener {
	return &Listener{
		server: server,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The listener binds to loopback by default; remote use is
			// an explicit operator choice.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve accepts connections on addr until ctx is canceled.
func (l *Listener) Serve(ctx context.Context, addr string) error {
	l.ctx = ctx
	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleUpgrade)

	httpServer := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	l.logger.Info().Str("addr", addr).Str("root", l.server.Root()).Msg("operation server listening")
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler returns the upgrade handler for callers that bring their own
// HTTP server.
func (l *Listener) Handler() http.Handler {
	return http.HandlerFunc(l.handleUpgrade)
}

func (l *Listener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	go l.serveConn(ctx, conn)
}

func (l *Listener) serveConn(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)
	remote := conn.RemoteAddr().String()
	l.logger.Info().Str("remote", remote).Msg("client connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.logger.Warn().Err(err).Str("remote", remote).Msg("websocket read error")
			} else {
				l.logger.Info().Str("remote", remote).Msg("client disconnected")
			}
			return
		}
		if !l.handleFrame(ctx, conn, data) {
			return
		}
	}
}

// handleFrame processes one frame; false means the connection is dead.
func (l *Listener) handleFrame(ctx context.Context, conn *websocket.Conn, data []byte) bool {
	frameType, err := ParseFrameType(data)
	if err != nil {
		return l.respond(conn, NewErrorResponse("", string(ops.KindInvalidRequest), "invalid frame: "+err.Error()))
	}
	if frameType != FrameTypeRequest {
		return l.respond(conn, NewErrorResponse("", string(ops.KindInvalidRequest), "unexpected frame type "+frameType))
	}

	var req RequestFrame
	if err := json.Unmarshal(data, &req); err != nil {
		return l.respond(conn, NewErrorResponse("", string(ops.KindInvalidRequest), "malformed request: "+err.Error()))
	}

	var args map[string]interface{}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &args); err != nil {
			return l.respond(conn, NewErrorResponse(req.ID, string(ops.KindInvalidRequest), "malformed params: "+err.Error()))
		}
	}

	result := l.server.Dispatch(ctx, ops.Request{Name: req.Method, Arguments: args})
	return l.respond(conn, encodeResult(req.ID, result))
}

func (l *Listener) respond(conn *websocket.Conn, frame *ResponseFrame) bool {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return false
	}
	if err := conn.WriteJSON(frame); err != nil {
		l.logger.Warn().Err(err).Msg("websocket write failed")
		return false
	}
	return true
}
