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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"opsline/internal/transport"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose a working directory to remote opsline sessions",
		Long:  "Serve the operation catalogue over websocket so that opsline run --remote can dispatch operations into this directory from another machine. No API key is needed on this side.",
		RunE:  serveAction,
	}
	cmd.Flags().String("dir", ".", "working directory the operations are confined to")
	cmd.Flags().String("listen", "127.0.0.1:7433", "address to listen on")
	cmd.Flags().Int("timeout", 0, "override the configured per-operation timeout in seconds")
	return cmd
}

func serveAction(cmd *cobra.Command, args []string) error {
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
	if timeout, _ := cmd.Flags().GetInt("timeout"); timeout > 0 {
		cfg.OperationTimeouts.DefaultSeconds = timeout
	}

	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}
	server, err := buildServer(dir, cfg, logger)
	if err != nil {
		return err
	}

	listen, err := cmd.Flags().GetString("listen")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving operations for %s on ws://%s\n", server.Root(), listen)
	fmt.Println("Press Ctrl+C to stop")
	return transport.NewListener(server, logger).Serve(ctx, listen)
}
