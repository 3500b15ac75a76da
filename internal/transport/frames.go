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
	"encoding/json"

	"opsline/internal/ops"
)

// Frame types
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
)

// RequestFrame is sent by the client to invoke one operation.
type RequestFrame struct {
	Type   string          `json:"type"`   // always "req"
	ID     string          `json:"id"`     // unique request ID (client-generated)
	Method string          `json:"method"` // operation name
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseFrame is sent by the server in response to a request.
type ResponseFrame struct {
	Type    string         `json:"type"` // always "res"
	ID      string         `json:"id"`   // matches request ID
	OK      bool           `json:"ok"`
	Payload *ResultPayload `json:"payload,omitempty"` // set when ok
	Error   *ErrorShape    `json:"error,omitempty"`   // set when not ok
}

// ResultPayload mirrors the success fields of an operation result.
type ResultPayload struct {
	Text    string             `json:"text,omitempty"`
	Files   map[string]string  `json:"files,omitempty"`
	Command *ops.CommandResult `json:"command,omitempty"`
}

// ErrorShape describes an operation failure on the wire.
type ErrorShape struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewOKResponse creates a success response frame.
func NewOKResponse(id string, payload *ResultPayload) *ResponseFrame {
	return &ResponseFrame{
		Type:    FrameTypeResponse,
		ID:      id,
		OK:      true,
		Payload: payload,
	}
}

// NewErrorResponse creates an error response frame.
func NewErrorResponse(id, kind, message string) *ResponseFrame {
	return &ResponseFrame{
		Type: FrameTypeResponse,
		ID:   id,
		OK:   false,
		Error: &ErrorShape{
			Kind:    kind,
			Message: message,
		},
	}
}

// ParseFrameType extracts the frame type from raw JSON bytes.
func ParseFrameType(data []byte) (string, error) {
	var raw struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", err
	}
	return raw.Type, nil
}

// encodeResult folds an operation result into a response frame.
func encodeResult(id string, result *ops.Result) *ResponseFrame {
	if result == nil {
		return NewErrorResponse(id, string(ops.KindUnknown), "no result")
	}
	if result.Failed() {
		return NewErrorResponse(id, string(result.Err.Kind), result.Err.Error())
	}
	return NewOKResponse(id, &ResultPayload{
		Text:    result.Text,
		Files:   result.Files,
		Command: result.Command,
	})
}

// decodeResponse folds a response frame back into an operation result.
func decodeResponse(frame *ResponseFrame) *ops.Result {
	if !frame.OK {
		kind := ops.KindUnknown
		message := "remote operation failed"
		if frame.Error != nil {
			kind = ops.ParseErrorKind(frame.Error.Kind)
			if frame.Error.Message != "" {
				message = frame.Error.Message
			}
		}
		return ops.ErrorResult(ops.NewError(kind, message))
	}
	result := &ops.Result{}
	if frame.Payload != nil {
		result.Text = frame.Payload.Text
		result.Files = frame.Payload.Files
		result.Command = frame.Payload.Command
	}
	return result
}
