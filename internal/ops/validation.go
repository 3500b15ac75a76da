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
	"fmt"
	"strings"
)

// ValidationRule checks operation arguments and returns an error if invalid.
type ValidationRule func(args map[string]interface{}) error

// ValidateRequest checks a request against the catalogue before dispatch.
// Unknown names and schema-violating arguments fail fast as invalid_request.
func ValidateRequest(req Request) *Error {
	def, ok := Lookup(req.Name)
	if !ok {
		return NewError(KindInvalidRequest, fmt.Sprintf("unknown operation %q", req.Name))
	}
	if err := def.ValidateArgs(req.Arguments); err != nil {
		return NewError(KindInvalidRequest, fmt.Sprintf("invalid arguments for %s: %v", req.Name, err))
	}
	return nil
}

// ChainValidation runs rules in order until the first error.
func ChainValidation(rules ...ValidationRule) ValidationRule {
	return func(args map[string]interface{}) error {
		for _, rule := range rules {
			if rule == nil {
				continue
			}
			if err := rule(args); err != nil {
				return err
			}
		}
		return nil
	}
}

// RequireStringArg ensures a string argument is present and non-blank.
func RequireStringArg(key, message string) ValidationRule {
	return func(args map[string]interface{}) error {
		value, ok := args[key]
		if !ok || value == nil {
			return fmt.Errorf("%s", message)
		}
		str, ok := value.(string)
		if !ok || strings.TrimSpace(str) == "" {
			return fmt.Errorf("%s", message)
		}
		return nil
	}
}

// requirePathArg accepts the same alternate keys the server accepts.
func requirePathArg(args map[string]interface{}) error {
	_, err := extractPathArg(args)
	return err
}

func requireContentArg(args map[string]interface{}) error {
	_, err := contentArg(args)
	return err
}

// schemaValidator validates arguments against T's validate tags.
func schemaValidator[T any]() ValidationRule {
	return func(args map[string]interface{}) error {
		_, err := unmarshalAndValidate[T](args)
		return err
	}
}
