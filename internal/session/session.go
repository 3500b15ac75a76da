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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"opsline/internal/config"
	"opsline/internal/ops"
	"opsline/internal/transport"
	systemprompt "opsline/system_prompt"
)

// State names the phase of a dispatch session.
type State int

const (
	StateAwaitingModel State = iota
	StateExecutingOperation
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingOperation:
		return "executing_operation"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// dryRunResultText replaces a real result when dry-run mode skips
// execution. It must read like a trivial success so the model's
// subsequent reasoning is unaffected by execution status.
const dryRunResultText = "Done."

// ConfirmFunc decides whether a mutating operation may run. Returning
// false declines it; the model is told and the session continues.
type ConfirmFunc func(req ops.Request) bool

// TraceFunc receives one display line per session event. Nil disables tracing.
type TraceFunc func(line string)

// TranscriptEntry pairs one executed request with its outcome.
type TranscriptEntry struct {
	Request ops.Request
	Result  *ops.Result
}

// Loop drives one dispatch session: it sends the goal and the running
// transcript to the completion service, executes the operation the
// model requests through the Transport, folds the result back into the
// transcript, and repeats until the model answers with plain text.
// The transcript is the only channel through which the model learns
// the outcome of an action; it never touches the filesystem directly.
//
// Thread-safety: accessors (State, Turns, Transcript, MessagesSnapshot,
// WorkingDirectory) may be called concurrently with Run; internal
// mutation is protected by a mutex. Run itself is strictly sequential
// and must not be invoked concurrently on the same Loop.
type Loop struct {
	Client    CompletionClient
	Transport transport.Transport
	Config    *config.Config
	Logger    zerolog.Logger
	DryRun    bool
	Confirm   ConfirmFunc
	Trace     TraceFunc

	mu         sync.Mutex
	state      State
	messages   []openai.ChatCompletionMessage
	transcript []TranscriptEntry
	turns      int
	root       string
}

var defaultSystemPrompt = mustLoadSystemPrompt()

func mustLoadSystemPrompt() string {
	prompt, err := systemprompt.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load system prompt: %v", err))
	}
	return prompt
}

// NewLoop creates a dispatch loop with a default OpenAI client.
func NewLoop(cfg *config.Config, tr transport.Transport) *Loop {
	return NewLoopWithClient(cfg, NewCompletionClient(cfg), tr)
}

// NewLoopWithClient creates a dispatch loop with a provided client (for testing).
func NewLoopWithClient(cfg *config.Config, client CompletionClient, tr transport.Transport) *Loop {
	return &Loop{
		Client:    client,
		Transport: tr,
		Config:    cfg,
		Logger:    zerolog.Nop(),
	}
}

// Run drives the session to completion and returns the model's final
// answer. Recoverable operation failures are folded into the transcript
// and the loop continues; a completion-service failure, a schema-invalid
// request or the turn cap ends the session with an error.
func (l *Loop) Run(ctx context.Context, goal string) (string, error) {
	if strings.TrimSpace(goal) == "" {
		return "", errors.New("empty goal")
	}

	root, err := l.discoverRoot(ctx)
	if err != nil {
		return "", err
	}
	l.reset(root, goal)

	l.Logger.Info().
		Str("goal", goal).
		Str("working_directory", root).
		Bool("dry_run", l.DryRun).
		Msg("session started")

	for {
		response, err := l.completeTurn(ctx)
		if err != nil {
			l.setState(StateDone)
			return "", err
		}

		l.appendAssistant(response.Content, response.ToolCalls)

		if len(response.ToolCalls) == 0 {
			l.setState(StateDone)
			l.Logger.Info().Int("operations", l.Turns()).Msg("session finished")
			return response.Content, nil
		}

		for _, call := range response.ToolCalls {
			l.setState(StateExecutingOperation)
			if l.Turns() >= l.maxTurns() {
				l.setState(StateDone)
				return "", &TurnLimitError{Limit: l.maxTurns()}
			}

			req, result := l.executeCall(ctx, call)
			l.recordTurn(req, result)

			if result.Failed() && result.Err.Kind.Fatal() {
				l.setState(StateDone)
				return "", &OperationError{Name: req.Name, Err: result.Err}
			}
			l.appendOperationResult(call, result)
		}
		l.setState(StateAwaitingModel)
	}
}

// discoverRoot asks the operation server for its working directory so
// the loop can inject it on every call. A remote server resolves
// against its own root, so the value cannot come from local config.
func (l *Loop) discoverRoot(ctx context.Context) (string, error) {
	name := string(ops.OpGetWorkingDirectory)
	result := l.Transport.Call(ctx, ops.Request{Name: name})
	if result.Failed() {
		return "", &OperationError{Name: name, Err: result.Err}
	}
	return result.Text, nil
}

func (l *Loop) reset(root, goal string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.root = root
	l.state = StateAwaitingModel
	l.messages = []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: defaultSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("%s\n\nWorking directory: %s", goal, root)},
	}
	l.transcript = nil
	l.turns = 0
}

func (l *Loop) completeTurn(ctx context.Context) (openai.ChatCompletionMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:    l.Config.Model,
		Messages: l.MessagesSnapshot(),
		Tools:    ops.OpenAITools(),
	}

	if l.Config.Temperature != nil {
		req.Temperature = *l.Config.Temperature
	}

	if l.Config.MaxTokens != nil {
		req.MaxTokens = *l.Config.MaxTokens
	}

	resp, err := l.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, &APIError{Operation: "create_completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, &APIError{Operation: "create_completion", Err: errors.New("response contains no choices")}
	}
	return resp.Choices[0].Message, nil
}

// executeCall turns one tool call into one operation result. Every
// failure mode is folded into the result; nothing is thrown past here.
func (l *Loop) executeCall(ctx context.Context, call openai.ToolCall) (ops.Request, *ops.Result) {
	req, opErr := l.buildRequest(call)
	if opErr != nil {
		l.trace(fmt.Sprintf("[%s] %v", call.Function.Name, opErr))
		return req, ops.ErrorResult(opErr)
	}

	l.trace(formatRequest(req))
	l.Logger.Debug().
		Str("operation", req.Name).
		Str("arguments", call.Function.Arguments).
		Msg("executing operation")

	if l.DryRun {
		l.trace(fmt.Sprintf("[%s] skipped (dry run)", req.Name))
		return req, ops.TextResult(dryRunResultText)
	}

	if l.Confirm != nil && ops.IsMutating(req.Name) && !l.Confirm(req) {
		l.trace(fmt.Sprintf("[%s] declined by user", req.Name))
		return req, ops.ErrorResult(ops.NewError(ops.KindUnknown, "operation declined by user"))
	}

	result := l.Transport.Call(ctx, req)
	l.trace(formatResult(req.Name, result))
	if result.Failed() {
		l.Logger.Warn().
			Str("operation", req.Name).
			Str("kind", string(result.Err.Kind)).
			Msg("operation failed")
	}
	return req, result
}

// buildRequest decodes the model's arguments, forces the session root
// into them and validates against the catalogue. The model cannot widen
// its own sandbox by supplying a different working directory.
func (l *Loop) buildRequest(call openai.ToolCall) (ops.Request, *ops.Error) {
	name := call.Function.Name
	args := make(map[string]interface{})
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return ops.Request{Name: name}, ops.NewError(ops.KindInvalidRequest,
				fmt.Sprintf("malformed arguments for %s: %v", name, err))
		}
	}
	if args == nil {
		args = make(map[string]interface{})
	}
	args["working_directory"] = l.WorkingDirectory()

	req := ops.Request{Name: name, Arguments: args}
	if err := ops.ValidateRequest(req); err != nil {
		return req, err
	}
	return req, nil
}

// appendOperationResult feeds a rendered, sanitized result back to the
// model as a tool message.
func (l *Loop) appendOperationResult(call openai.ToolCall, result *ops.Result) {
	content, truncated := ops.SanitizeOutput(result.Render(), l.Config.OutputFiltersConfig())
	if truncated {
		l.Logger.Debug().Str("operation", call.Function.Name).Msg("result truncated")
	}

	name := call.Function.Name
	if name == "" {
		name = "unknown_operation"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    content,
		Name:       name,
		ToolCallID: call.ID,
	})
}

func (l *Loop) appendAssistant(content string, toolCalls []openai.ToolCall) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, openai.ChatCompletionMessage{
		Role:      openai.ChatMessageRoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	})
}

// recordTurn appends to the transcript and advances the turn count.
// The transcript only ever grows; past entries are never rewritten.
func (l *Loop) recordTurn(req ops.Request, result *ops.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transcript = append(l.transcript, TranscriptEntry{Request: req, Result: result})
	l.turns++
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = s
}

// State returns the current phase of the session.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Turns returns how many operations have been executed so far.
func (l *Loop) Turns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.turns
}

// WorkingDirectory returns the sandbox root discovered at session start.
func (l *Loop) WorkingDirectory() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.root
}

// Transcript returns a copy of the executed (request, result) pairs.
func (l *Loop) Transcript() []TranscriptEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]TranscriptEntry, len(l.transcript))
	copy(entries, l.transcript)
	return entries
}

// MessagesSnapshot returns a copy of the conversation so far.
func (l *Loop) MessagesSnapshot() []openai.ChatCompletionMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := make([]openai.ChatCompletionMessage, len(l.messages))
	copy(msgs, l.messages)
	return msgs
}

func (l *Loop) maxTurns() int {
	if l.Config.MaxTurns > 0 {
		return l.Config.MaxTurns
	}
	return config.DefaultMaxTurns
}

func (l *Loop) trace(line string) {
	if l.Trace != nil {
		l.Trace(line)
	}
}

// formatRequest renders one trace line for an operation request. The
// injected working_directory is constant per session and elided.
func formatRequest(req ops.Request) string {
	keys := make([]string, 0, len(req.Arguments))
	for key := range req.Arguments {
		if key == "working_directory" {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return fmt.Sprintf("[%s]", req.Name)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value := fmt.Sprintf("%v", req.Arguments[key])
		if runes := []rune(value); len(runes) > 60 {
			value = string(runes[:57]) + "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%q", key, value))
	}
	return fmt.Sprintf("[%s] %s", req.Name, strings.Join(parts, " "))
}

func formatResult(name string, result *ops.Result) string {
	rendered := result.Render()
	if idx := strings.IndexByte(rendered, '\n'); idx >= 0 {
		rendered = rendered[:idx]
	}
	return fmt.Sprintf("[%s] %s", name, rendered)
}
