// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

// Package clierr provides error classification and user-friendly error
// formatting for the CLI. It helps distinguish between different error
// types and provides actionable hints.
package clierr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cisops/cisplan-scout/pkg/cisplan"
)

// Common error types for CLI output.
const (
	TypeNotFound   = "not_found"  // Entity or endpoint not found
	TypeForbidden  = "forbidden"  // Authentication or access denied
	TypeNetwork    = "network"    // Connection/network errors
	TypeShape      = "shape"      // Response did not match the documented schema
	TypeInternal   = "internal"   // Internal/unexpected errors
	TypeValidation = "validation" // Input validation errors
)

// IsForbidden checks if the error is an access denied error.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "unauthorized")
}

// IsNotFound checks if the error indicates a missing entity or endpoint.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "no entity with guid") ||
		strings.Contains(msg, "status 404")
}

// IsNetworkError checks if the error is a connection/network error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "context deadline exceeded")
}

// IsShapeError checks if the error came from the strict response parser.
func IsShapeError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unexpected response shape") ||
		strings.Contains(msg, "is not a json object") ||
		strings.Contains(msg, "expected a scalar value")
}

// ClassifyError determines the type of error for appropriate handling.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if IsForbidden(err) {
		return TypeForbidden
	}
	if IsNotFound(err) {
		return TypeNotFound
	}
	if IsNetworkError(err) {
		return TypeNetwork
	}
	if IsShapeError(err) {
		return TypeShape
	}
	return TypeInternal
}

// Pretty formats an error with a user-friendly message and actionable hints.
func Pretty(err error) string {
	if err == nil {
		return ""
	}

	baseMsg := err.Error()
	switch ClassifyError(err) {
	case TypeForbidden:
		return fmt.Sprintf("Access denied: %s\n\nHint: Check your API credentials and server URL.", baseMsg)

	case TypeNotFound:
		return fmt.Sprintf("Not found: %s", baseMsg)

	case TypeNetwork:
		return fmt.Sprintf("Connection error: %s\n\nHint: Check that the CIS Plan API is reachable:\n"+
			"  - Verify the baseURL in ~/.cisplan-scout/config.yaml\n"+
			"  - Or set CISPLAN_API_URL to the correct endpoint", baseMsg)

	case TypeShape:
		return fmt.Sprintf("Unexpected server response: %s\n\nHint: The server and client may disagree on the API version.", baseMsg)

	default:
		return fmt.Sprintf("Error: %s", baseMsg)
	}
}

// WrapWithHint wraps an error with an additional hint message.
func WrapWithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w\n\nHint: %s", err, hint)
}

// invalidRelationship is the server's phrasing for an illegal relocation.
const invalidRelationship = "Invalid parent-child relationship"

// validParentMarker precedes the required parent type in the server message.
const validParentMarker = "Valid parent type is:"

// MoveHint rewrites a relocation failure into a user-facing hint. Known
// "invalid relationship" phrasing becomes a sentence naming the required
// parent type; anything else passes through untouched.
func MoveHint(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if !strings.Contains(msg, invalidRelationship) {
		return msg
	}

	hint := "Move not allowed: the chosen destination cannot hold this entity."
	idx := strings.Index(msg, validParentMarker)
	if idx < 0 {
		return hint
	}
	rest := strings.TrimSpace(msg[idx+len(validParentMarker):])
	if cut := strings.IndexAny(rest, " .,;\n"); cut > 0 {
		rest = rest[:cut]
	}
	if rest == "" {
		return hint
	}
	label := rest
	if t := cisplan.EntityType(rest); t.Valid() {
		label = t.Label()
	}
	return fmt.Sprintf("%s Pick a %s as the destination.", hint, label)
}

// NothingFound returns a user-friendly message when a lookup returns no
// results. This is different from an error - it's a valid "empty" result.
func NothingFound(what string) string {
	return fmt.Sprintf("No %s found.\n\nThis might mean:\n"+
		"  - The plan has no entities of this type yet\n"+
		"  - Your search term is too restrictive", what)
}

// Unwrap returns the underlying error, stripping any wrapper.
func Unwrap(err error) error {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}
