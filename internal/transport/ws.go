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
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"opsline/internal/ops"
)

const (
	// maxFrameSize leaves room for a full-size file payload plus JSON
	// framing overhead.
	maxFrameSize = 16 * 1024 * 1024

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second

	// defaultCallTimeout outlives the server-side operation timeout so
	// the server, not the transport, decides when an operation is late.
	defaultCallTimeout = ops.DefaultOperationTimeout + 30*time.Second
)

// Remote calls an operation server over one WebSocket connection. A
// session is strictly sequential, so a single in-flight request is
// enforced with a lock held across write and read.
type Remote struct {
	url    string
	conn   *websocket.Conn
	logger zerolog.Logger
	mu     sync.Mutex
}

// Dial connects to a remote operation server.
func Dial(ctx context.Context, url string, logger zerolog.Logger) (*Remote, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", url, err)
	}
	conn.SetReadLimit(maxFrameSize)
	logger.Debug().Str("url", url).Msg("transport connected")
	return &Remote{url: url, conn: conn, logger: logger}, nil
}

func (r *Remote) Call(ctx context.Context, req ops.Request) *ops.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	var params json.RawMessage
	if req.Arguments != nil {
		encoded, err := json.Marshal(req.Arguments)
		if err != nil {
			return ops.ErrorResult(ops.WrapError(ops.KindUnknown, "encoding arguments", err))
		}
		params = encoded
	}
	frame := RequestFrame{
		Type:   FrameTypeRequest,
		ID:     uuid.NewString()[:8],
		Method: req.Name,
		Params: params,
	}

	if err := r.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return r.transportFailure(ctx, err)
	}
	if err := r.conn.WriteJSON(frame); err != nil {
		return r.transportFailure(ctx, err)
	}

	readDeadline := time.Now().Add(defaultCallTimeout)
	if deadline, ok := ctx.Deadline(); ok {
		readDeadline = deadline
	}
	if err := r.conn.SetReadDeadline(readDeadline); err != nil {
		return r.transportFailure(ctx, err)
	}

	// Read until the matching response; stray frames are dropped since
	// only one request is ever outstanding.
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			return r.transportFailure(ctx, err)
		}
		var resp ResponseFrame
		if err := json.Unmarshal(data, &resp); err != nil {
			return ops.ErrorResult(ops.WrapError(ops.KindUnknown, "malformed response frame", err))
		}
		if resp.Type != FrameTypeResponse || resp.ID != frame.ID {
			r.logger.Debug().Str("id", resp.ID).Msg("dropping stray frame")
			continue
		}
		return decodeResponse(&resp)
	}
}

// transportFailure folds a connection error into a result. A deadline
// blown alongside the context maps to timeout, everything else to
// unknown, so the loop treats a dead transport like a failed operation.
func (r *Remote) transportFailure(ctx context.Context, err error) *ops.Result {
	if ctx.Err() == context.DeadlineExceeded {
		return ops.ErrorResult(ops.WrapError(ops.KindTimeout, "remote operation timed out", err))
	}
	r.logger.Warn().Err(err).Str("url", r.url).Msg("transport failure")
	return ops.ErrorResult(ops.WrapError(ops.KindUnknown, "transport failure", err))
}

func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	deadline := time.Now().Add(writeTimeout)
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	// Best effort close handshake before tearing the conn down.
	_ = r.conn.WriteControl(websocket.CloseMessage, message, deadline)
	return r.conn.Close()
}
