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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"opsline/internal/ops"
)

// dialTestRemote serves an ops server over a throwaway HTTP listener and
// connects a Remote to it.
func dialTestRemote(t *testing.T) *Remote {
	t.Helper()
	listener := NewListener(newTestOpsServer(t), zerolog.Nop())
	srv := httptest.NewServer(listener.Handler())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	remote, err := Dial(context.Background(), wsURL, zerolog.Nop())
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { remote.Close() })
	return remote
}

func TestRemoteRoundtrip(t *testing.T) {
	remote := dialTestRemote(t)

	result := remote.Call(context.Background(), ops.Request{
		Name:      "write_file",
		Arguments: map[string]interface{}{"path": "notes.txt", "content": "over the wire"},
	})
	if result.Failed() {
		t.Fatalf("write failed: %v", result.Err)
	}
	if result.Text != "Successfully wrote to 'notes.txt'." {
		t.Fatalf("unexpected message %q", result.Text)
	}

	result = remote.Call(context.Background(), ops.Request{
		Name:      "read_file",
		Arguments: map[string]interface{}{"path": "notes.txt"},
	})
	if result.Text != "over the wire" {
		t.Fatalf("unexpected content %q", result.Text)
	}
}

func TestRemoteSequentialCalls(t *testing.T) {
	remote := dialTestRemote(t)

	// One connection serves many requests in order.
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		result := remote.Call(context.Background(), ops.Request{
			Name:      "write_file",
			Arguments: map[string]interface{}{"path": name, "content": name},
		})
		if result.Failed() {
			t.Fatalf("write %s failed: %v", name, result.Err)
		}
	}

	result := remote.Call(context.Background(), ops.Request{Name: "list_files"})
	if result.Text != "a.txt\nb.txt\nc.txt" {
		t.Fatalf("unexpected listing %q", result.Text)
	}
}

func TestRemoteErrorKindSurvivesWire(t *testing.T) {
	remote := dialTestRemote(t)

	result := remote.Call(context.Background(), ops.Request{
		Name:      "read_file",
		Arguments: map[string]interface{}{"path": "missing.txt"},
	})
	if !result.Failed() {
		t.Fatal("expected failure")
	}
	if result.Err.Kind != ops.KindNotFound {
		t.Fatalf("expected not_found, got %s", result.Err.Kind)
	}
}

func TestRemoteRejectsUnknownOperation(t *testing.T) {
	remote := dialTestRemote(t)

	result := remote.Call(context.Background(), ops.Request{Name: "copy_file"})
	if !result.Failed() || result.Err.Kind != ops.KindInvalidRequest {
		t.Fatalf("expected invalid_request, got %+v", result)
	}
}

func TestRemoteFilesPayload(t *testing.T) {
	remote := dialTestRemote(t)

	for name, content := range map[string]string{"x.txt": "alpha", "y.txt": "beta"} {
		result := remote.Call(context.Background(), ops.Request{
			Name:      "write_file",
			Arguments: map[string]interface{}{"path": name, "content": content},
		})
		if result.Failed() {
			t.Fatalf("write %s failed: %v", name, result.Err)
		}
	}

	result := remote.Call(context.Background(), ops.Request{Name: "read_directory_files"})
	if result.Failed() {
		t.Fatalf("read_directory_files failed: %v", result.Err)
	}
	if len(result.Files) != 2 || result.Files["x.txt"] != "alpha" || result.Files["y.txt"] != "beta" {
		t.Fatalf("files payload lost: %+v", result.Files)
	}
}

func TestRemoteDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Dial(ctx, "ws://127.0.0.1:1/", zerolog.Nop()); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestRemoteCloseThenCall(t *testing.T) {
	remote := dialTestRemote(t)
	if err := remote.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	result := remote.Call(context.Background(), ops.Request{Name: "list_files"})
	if !result.Failed() {
		t.Fatal("expected failure on closed connection")
	}
	if result.Err.Kind != ops.KindUnknown && result.Err.Kind != ops.KindTimeout {
		t.Fatalf("unexpected kind %s", result.Err.Kind)
	}
}
