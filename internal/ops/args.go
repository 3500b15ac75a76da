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

package ops

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// extractPathArg accepts a variety of shapes for the path argument and
// normalizes to string.
func extractPathArg(args map[string]interface{}) (string, error) {
	if args == nil {
		return "", fmt.Errorf("missing or invalid 'path' parameter")
	}

	if path, ok := getStringLike(args["path"]); ok {
		return path, nil
	}

	// Common alternate keys the model sometimes emits.
	if path, ok := getStringLike(args["file"]); ok {
		return path, nil
	}
	if path, ok := getStringLike(args["filepath"]); ok {
		return path, nil
	}

	return "", fmt.Errorf("missing or invalid 'path' parameter")
}

// optionalPathArg returns the path argument or "." when absent.
func optionalPathArg(args map[string]interface{}) string {
	path, err := extractPathArg(args)
	if err != nil {
		return "."
	}
	return path
}

func extractStringArg(args map[string]interface{}, key string) (string, error) {
	if args != nil {
		if value, ok := getStringLike(args[key]); ok {
			return value, nil
		}
	}
	return "", fmt.Errorf("missing or invalid '%s' parameter", key)
}

func getStringLike(val interface{}) (string, bool) {
	switch v := val.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	case []byte:
		if len(v) == 0 {
			return "", false
		}
		return string(v), true
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return s, true
			}
		}
	case map[string]interface{}:
		if nested, ok := getStringLike(v["path"]); ok {
			return nested, true
		}
	}
	return "", false
}

// contentArg is strict: the content of a write may legitimately be
// empty, so only a missing or non-string value is rejected.
func contentArg(args map[string]interface{}) (string, error) {
	if args == nil {
		return "", fmt.Errorf("missing or invalid 'content' parameter")
	}
	value, ok := args["content"]
	if !ok {
		return "", fmt.Errorf("missing or invalid 'content' parameter")
	}
	content, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("missing or invalid 'content' parameter")
	}
	return content, nil
}

func ensureContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func isTextContent(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if !utf8.Valid(data) {
		return false
	}

	const sampleSize = 8192
	limit := len(data)
	if limit > sampleSize {
		limit = sampleSize
	}

	var nonPrintable int
	for _, b := range data[:limit] {
		switch b {
		case '\n', '\r', '\t':
			continue
		}
		if b == 0 {
			return false
		}
		if b < 0x20 || b == 0x7f {
			nonPrintable++
		}
	}

	return nonPrintable*20 < limit
}
