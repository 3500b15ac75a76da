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
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"opsline/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	if err := newApp().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cobra.Command {
	root := &cobra.Command{
		Use:           "opsline",
		Short:         "opsline operates on a working directory through a language model",
		Long:          "opsline hands a goal to a language model and executes the filesystem and version control operations it requests, confined to one working directory.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "config.json", "path to the configuration file")
	root.PersistentFlags().String("log-file", "", "log file path (logs disabled by default)")
	root.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")
	root.AddCommand(
		newRunCommand(),
		newShellCommand(),
		newServeCommand(),
		newToolsCommand(),
	)
	return root
}

// initLogger builds the zerolog logger shared by all subcommands. Without a
// log file the output goes to io.Discard so session transcripts stay clean.
func initLogger(debug bool, logFilePath string) (zerolog.Logger, io.Closer, error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var output io.Writer = io.Discard
	var closer io.Closer
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		closer = file
	}

	return zerolog.New(output).With().Timestamp().Logger(), closer, nil
}

// loggerFromFlags reads the persistent logging flags and builds the logger.
// The returned closer is nil when no log file is in use.
func loggerFromFlags(cmd *cobra.Command) (zerolog.Logger, io.Closer, error) {
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	logFilePath, err := cmd.Flags().GetString("log-file")
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return initLogger(debug, logFilePath)
}

func loadConfigFromFlags(cmd *cobra.Command, logger zerolog.Logger) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for _, warning := range cfg.Validate() {
		logger.Warn().Str("field", warning.Field).Msg(warning.Message)
		fmt.Fprintf(os.Stderr, "Warning: %s: %s\n", warning.Field, warning.Message)
	}
	return cfg, nil
}
