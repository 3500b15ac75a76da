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
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"opsline/internal/config"
	"opsline/internal/ops"
	"opsline/internal/session"
	"opsline/internal/transport"
	"opsline/internal/workdir"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [goal...]",
		Short: "Execute one goal against the working directory",
		Long:  "Hand a goal to the model and execute the operations it requests until it produces a final answer. The goal is taken from the arguments, or from stdin when none are given.",
		RunE:  runAction,
	}
	cmd.Flags().String("dir", ".", "working directory the operations are confined to")
	cmd.Flags().String("remote", "", "dispatch operations to a remote server (ws:// URL) instead of the local directory")
	cmd.Flags().String("model", "", "override the configured model")
	cmd.Flags().Int("max-turns", 0, "override the configured operation cap per session")
	cmd.Flags().Int("timeout", 0, "override the configured per-operation timeout in seconds")
	cmd.Flags().Bool("dry-run", false, "describe operations without executing them")
	cmd.Flags().Bool("confirm", false, "ask before executing operations that modify the working directory")
	cmd.Flags().BoolP("quiet", "q", false, "print only the final answer")
	return cmd
}

func runAction(cmd *cobra.Command, args []string) error {
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
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Model = model
	}
	if maxTurns, _ := cmd.Flags().GetInt("max-turns"); maxTurns > 0 {
		cfg.MaxTurns = maxTurns
	}
	if timeout, _ := cmd.Flags().GetInt("timeout"); timeout > 0 {
		cfg.OperationTimeouts.DefaultSeconds = timeout
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	goal, err := goalFromArgs(args, os.Stdin)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		loop.Trace = func(line string) {
			fmt.Println(line)
		}
	}

	start := time.Now()
	answer, err := loop.Run(ctx, goal)
	duration := time.Since(start)
	if err != nil {
		logger.Error().Err(err).Dur("duration_ms", duration).Msg("session failed")
		return err
	}

	logger.Info().
		Int("operations", loop.Turns()).
		Dur("duration_ms", duration).
		Msg("session complete")
	fmt.Println(answer)
	return nil
}

// goalFromArgs assembles the goal from command arguments, falling back to
// stdin when none are given or when the single argument is "-".
func goalFromArgs(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("error reading goal from stdin: %w", err)
	}
	goal := strings.TrimSpace(string(data))
	if goal == "" {
		return "", errors.New("no goal given: pass it as arguments or on stdin")
	}
	return goal, nil
}

// buildTransport connects to a remote operation server when --remote is set,
// and otherwise serves the local working directory in-process.
func buildTransport(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger zerolog.Logger) (transport.Transport, error) {
	remote, err := cmd.Flags().GetString("remote")
	if err != nil {
		return nil, err
	}
	if remote != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		conn, err := transport.Dial(dialCtx, remote, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to reach operation server at %s: %w", remote, err)
		}
		return conn, nil
	}

	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return nil, err
	}
	server, err := buildServer(dir, cfg, logger)
	if err != nil {
		return nil, err
	}
	return transport.NewLocal(server), nil
}

func buildServer(dir string, cfg *config.Config, logger zerolog.Logger) (*ops.Server, error) {
	root, err := workdir.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot use %s as working directory: %w", dir, err)
	}
	limits := cfg.OperationLimitsConfig()
	timeouts := cfg.OperationTimeoutsConfig()
	return ops.NewServer(root, ops.ServerOptions{
		VCSTool:  cfg.VCSTool,
		Limits:   &limits,
		Timeouts: &timeouts,
		Logger:   &logger,
	}), nil
}
