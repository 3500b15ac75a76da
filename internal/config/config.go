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

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"opsline/internal/ops"
)

// DefaultMaxTurns caps how many operations one session may execute
// before it is forcibly ended.
const DefaultMaxTurns = 40

// Config represents the application configuration
type Config struct {
	APIKey             string            `json:"api_key"`
	APIURL             string            `json:"api_url,omitempty"`
	Model              string            `json:"model"`
	Temperature        *float32          `json:"temperature,omitempty"`
	MaxTokens          *int              `json:"max_tokens,omitempty"`
	MaxTurns           int               `json:"max_turns,omitempty"`
	VCSTool            string            `json:"vcs_tool,omitempty"`
	OperationLimits    OperationLimits   `json:"operation_limits,omitempty"`
	OperationTimeouts  OperationTimeouts `json:"operation_timeouts,omitempty"`
	OutputFilters      OutputFilters     `json:"output_filters,omitempty"`
	CommandHistoryFile string            `json:"command_history_file,omitempty"`
}

// OperationLimits configures size and traversal bounds for operations.
type OperationLimits struct {
	MaxFileSizeBytes    int64 `json:"max_file_size_bytes,omitempty"`
	MaxDirectoryDepth   int   `json:"max_directory_depth,omitempty"`
	MaxDirectoryEntries int   `json:"max_directory_entries,omitempty"`
}

// OperationTimeouts configures operation execution timeouts.
type OperationTimeouts struct {
	DefaultSeconds      int            `json:"default_seconds,omitempty"`
	PerOperationSeconds map[string]int `json:"per_operation_seconds,omitempty"`
}

// OutputFilters configures sanitization of operation results before
// they are fed back to the model.
type OutputFilters struct {
	MaxChars     int  `json:"max_chars,omitempty"`
	StripANSI    bool `json:"strip_ansi,omitempty"`
	StripControl bool `json:"strip_control,omitempty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	defaultModel := "gpt-4o-mini"
	defaultAPIURL := "https://api.openai.com/v1"
	defaultCommandHistoryFile := ".opsline_history"
	defaultLimits := OperationLimits{
		MaxFileSizeBytes:    ops.DefaultLimits().MaxFileSizeBytes,
		MaxDirectoryDepth:   ops.DefaultLimits().MaxDirectoryDepth,
		MaxDirectoryEntries: ops.DefaultLimits().MaxDirectoryEntries,
	}
	defaultTimeouts := OperationTimeouts{
		DefaultSeconds: int(ops.DefaultOperationTimeout.Seconds()),
	}
	defaultFilters := OutputFilters{
		MaxChars:     ops.DefaultOutputFilterConfig().MaxChars,
		StripANSI:    ops.DefaultOutputFilterConfig().StripANSI,
		StripControl: ops.DefaultOutputFilterConfig().StripControl,
	}
	return &Config{
		Model:              defaultModel,
		APIURL:             defaultAPIURL,
		MaxTurns:           DefaultMaxTurns,
		VCSTool:            ops.DefaultVCSTool,
		OperationLimits:    defaultLimits,
		OperationTimeouts:  defaultTimeouts,
		OutputFilters:      defaultFilters,
		CommandHistoryFile: defaultCommandHistoryFile,
	}
}

// LoadConfig loads configuration from a JSON file and applies env overrides.
// A missing file is not an error; defaults apply. The API key is not
// required here because serving operations and listing the catalogue work
// without one — callers that talk to the completion service use RequireAPIKey.
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	// If config file exists, load it
	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, err
		}
		normalized, err := normalizeConfigJSON(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(normalized, config); err != nil {
			return nil, err
		}
	}

	// Env overrides (apply regardless of whether config file exists)
	// Check OPENAI_API_KEY first, then DASHSCOPE_API_KEY
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		config.APIKey = val
	} else if val := os.Getenv("DASHSCOPE_API_KEY"); val != "" {
		config.APIKey = val
		// For DashScope, set provider-specific defaults if not already set
		if config.APIURL == "https://api.openai.com/v1" {
			config.APIURL = "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"
		}
	}

	if val := os.Getenv("OPENAI_API_URL"); val != "" {
		config.APIURL = val
	}

	if val := os.Getenv("OPSLINE_MODEL"); val != "" {
		config.Model = val
	}

	// Set defaults for any missing values
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	if config.APIURL == "" {
		config.APIURL = "https://api.openai.com/v1"
	}

	if config.MaxTurns <= 0 {
		config.MaxTurns = DefaultMaxTurns
	}

	if config.VCSTool == "" {
		config.VCSTool = ops.DefaultVCSTool
	}

	return config, nil
}

// RequireAPIKey checks that a completion-service credential is present.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required (set api_key in config.json or OPENAI_API_KEY/DASHSCOPE_API_KEY)")
	}
	return nil
}

// OperationLimitsConfig returns operation limits for runtime enforcement.
func (c *Config) OperationLimitsConfig() ops.Limits {
	return ops.Limits{
		MaxFileSizeBytes:    c.OperationLimits.MaxFileSizeBytes,
		MaxDirectoryDepth:   c.OperationLimits.MaxDirectoryDepth,
		MaxDirectoryEntries: c.OperationLimits.MaxDirectoryEntries,
	}
}

// OperationTimeoutsConfig returns timeout configuration for operations.
func (c *Config) OperationTimeoutsConfig() ops.TimeoutConfig {
	perOperation := make(map[string]time.Duration, len(c.OperationTimeouts.PerOperationSeconds))
	for name, seconds := range c.OperationTimeouts.PerOperationSeconds {
		if seconds <= 0 {
			continue
		}
		perOperation[name] = time.Duration(seconds) * time.Second
	}

	var defaultTimeout time.Duration
	if c.OperationTimeouts.DefaultSeconds > 0 {
		defaultTimeout = time.Duration(c.OperationTimeouts.DefaultSeconds) * time.Second
	}

	return ops.TimeoutConfig{
		Default:      defaultTimeout,
		PerOperation: perOperation,
	}
}

// OutputFiltersConfig returns output filter configuration for operation results.
func (c *Config) OutputFiltersConfig() ops.OutputFilterConfig {
	return ops.OutputFilterConfig{
		MaxChars:     c.OutputFilters.MaxChars,
		StripANSI:    c.OutputFilters.StripANSI,
		StripControl: c.OutputFilters.StripControl,
	}
}

// ValidationWarning represents a non-fatal configuration issue
type ValidationWarning struct {
	Field   string
	Message string
}

// Validate checks the configuration for common issues and returns warnings
func (c *Config) Validate() []ValidationWarning {
	var warnings []ValidationWarning

	// Validate temperature range (OpenAI expects 0-2)
	if c.Temperature != nil {
		temp := *c.Temperature
		if temp < 0 || temp > 2 {
			warnings = append(warnings, ValidationWarning{
				Field:   "temperature",
				Message: fmt.Sprintf("temperature %.2f is outside recommended range [0, 2]", temp),
			})
		}
	}

	// Validate max_tokens (OpenAI models have different limits)
	if c.MaxTokens != nil {
		tokens := *c.MaxTokens
		if tokens <= 0 {
			warnings = append(warnings, ValidationWarning{
				Field:   "max_tokens",
				Message: fmt.Sprintf("max_tokens %d must be positive", tokens),
			})
		}
		if tokens > 128000 {
			warnings = append(warnings, ValidationWarning{
				Field:   "max_tokens",
				Message: fmt.Sprintf("max_tokens %d exceeds typical model limits", tokens),
			})
		}
	}

	if c.MaxTurns > 1000 {
		warnings = append(warnings, ValidationWarning{
			Field:   "max_turns",
			Message: fmt.Sprintf("max_turns %d is unusually high; a runaway session will be expensive", c.MaxTurns),
		})
	}

	// Per-operation timeout keys must name catalogue operations.
	for name := range c.OperationTimeouts.PerOperationSeconds {
		if _, ok := ops.Lookup(name); !ok {
			warnings = append(warnings, ValidationWarning{
				Field:   "operation_timeouts.per_operation_seconds",
				Message: fmt.Sprintf("operation %q is not in the catalogue", name),
			})
		}
	}

	return warnings
}
