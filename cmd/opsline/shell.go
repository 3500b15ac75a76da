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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"opsline/internal/session"
)

func newShellCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Run goals interactively, one session per line",
		Long:  "Open an interactive prompt. Every line is handed to the model as a fresh goal; slash commands control the shell itself. Ctrl+C interrupts a running session without leaving the shell.",
		RunE:  shellAction,
	}
	cmd.Flags().String("dir", ".", "working directory the operations are confined to")
	cmd.Flags().String("remote", "", "dispatch operations to a remote server (ws:// URL) instead of the local directory")
	cmd.Flags().Bool("dry-run", false, "describe operations without executing them")
	cmd.Flags().Bool("confirm", false, "ask before executing operations that modify the working directory")
	return cmd
}

func shellAction(cmd *cobra.Command, args []string) error {
	logger, closer, err := loggerFromFlags(cmd)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	cfg, err := loadConfigFromFlags(cmd, logger)
	if err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	ctx := context.Background()
	tr, err := buildTransport(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer tr.Close()

	loop := session.NewLoop(cfg, tr)
	loop.Logger = logger
	loop.DryRun, _ = cmd.Flags().GetBool("dry-run")
	if confirm, _ := cmd.Flags().GetBool("confirm"); confirm {
		loop.Confirm = newOperationApprover()
	}
	loop.Trace = func(line string) {
		fmt.Println(line)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:              "❯ ",
		HistoryFile:         cfg.CommandHistoryFile,
		AutoComplete:        shellCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		FuncFilterInputRune: filterInputRune,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Opsline interactive shell")
	fmt.Printf("Connected to: %s\n", cfg.APIURL)
	fmt.Printf("Model in use: %s\n", cfg.Model)
	fmt.Printf("Operating on: %s\n", shellTarget(cmd))
	fmt.Println("Type /help for commands, Ctrl+C or /quit to exit")
	fmt.Println()

	// Ctrl+C during a session cancels that session only. At the prompt
	// readline intercepts the keypress itself, so no signal arrives there.
	canceler := &sessionCanceler{}
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		for range interrupts {
			canceler.Cancel()
		}
	}()

	for {
		line, err := rl.Readline()
		switch classifyReadlineError(line, err) {
		case readlineExit:
			logger.Info().Msg("shell ended")
			return nil
		case readlineContinue:
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		logger.Info().Str("user_input", line).Msg("shell input received")

		if strings.HasPrefix(line, "/") {
			if handleSlashCommand(line, loop) {
				logger.Info().Msg("shell ended")
				return nil
			}
			continue
		}

		runShellGoal(ctx, loop, canceler, line, logger)
	}
}

// runShellGoal executes one goal as its own session. Errors end the session
// but never the shell.
func runShellGoal(ctx context.Context, loop *session.Loop, canceler *sessionCanceler, goal string, logger zerolog.Logger) {
	runCtx, cancel := context.WithCancel(ctx)
	canceler.Set(cancel)
	defer canceler.Clear()
	defer cancel()

	answer, err := loop.Run(runCtx, goal)
	if err != nil {
		logger.Error().Err(err).Msg("session failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Println(answer)
}

func shellTarget(cmd *cobra.Command) string {
	if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
		return remote
	}
	dir, _ := cmd.Flags().GetString("dir")
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

type readlineAction int

const (
	readlineContinue readlineAction = iota
	readlineExit
	readlineUnhandled
)

func classifyReadlineError(line string, err error) readlineAction {
	switch {
	case err == nil:
		return readlineUnhandled
	case err == readline.ErrInterrupt:
		return readlineContinue
	case err == io.EOF:
		if strings.TrimSpace(line) == "" {
			return readlineExit
		}
		return readlineContinue
	default:
		return readlineUnhandled
	}
}

type shellCommand struct {
	Name        string
	Description string
}

func shellCommands() []shellCommand {
	return []shellCommand{
		{Name: "help", Description: "Show available commands"},
		{Name: "tools", Description: "List the operation catalogue"},
		{Name: "dry", Description: "Toggle dry-run mode"},
		{Name: "quit", Description: "Exit the shell"},
		{Name: "exit", Description: "Exit the shell"},
	}
}

// handleSlashCommand processes slash commands, returns true if should quit.
func handleSlashCommand(input string, loop *session.Loop) bool {
	name := strings.TrimPrefix(input, "/")
	name = strings.ToLower(strings.TrimSpace(name))

	switch name {
	case "help":
		printShellHelp()
		return false

	case "tools":
		printCatalogue(os.Stdout)
		return false

	case "dry":
		loop.DryRun = !loop.DryRun
		if loop.DryRun {
			fmt.Println("✓ Dry-run mode enabled")
		} else {
			fmt.Println("✓ Dry-run mode disabled")
		}
		return false

	case "quit", "exit":
		return true

	default:
		fmt.Printf("✗ Unknown command: /%s (type /help for available commands)\n", name)
		return false
	}
}

func printShellHelp() {
	fmt.Println("\nAvailable Commands:")
	seen := make(map[string]bool)
	for _, cmd := range shellCommands() {
		if seen[cmd.Name] {
			continue
		}
		seen[cmd.Name] = true
		fmt.Printf("  /%-12s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println()
}

// shellCompleter builds a readline completer from the slash commands.
func shellCompleter() *readline.PrefixCompleter {
	commands := shellCommands()
	items := make([]readline.PrefixCompleterInterface, len(commands))
	for i, cmd := range commands {
		items[i] = readline.PcItem("/" + cmd.Name)
	}
	return readline.NewPrefixCompleter(items...)
}
