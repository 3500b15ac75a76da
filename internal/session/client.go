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
	"context"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"opsline/internal/config"
)

// CompletionClient abstracts the completion service for testing.
// This enables dependency injection for unit tests without making real API calls.
//
// Usage:
//   - Production: use NewLoop() which creates a real openai.Client
//   - Testing: use NewLoopWithClient() with a mock implementation
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewCompletionClient builds an OpenAI-compatible client from the config.
func NewCompletionClient(cfg *config.Config) CompletionClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIURL != "" {
		clientConfig.BaseURL = cfg.APIURL
		clientConfig.HTTPClient = &http.Client{}
	}
	return openai.NewClientWithConfig(clientConfig)
}

// Verify that openai.Client implements CompletionClient at compile time.
var _ CompletionClient = (*openai.Client)(nil)
