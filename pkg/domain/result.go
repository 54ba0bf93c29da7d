package domain

import "fmt"

// ReasonPermissionDenied is the uniform reason every command returns when the
// capability check fails.
const ReasonPermissionDenied = "permission denied"

// CommandResult is the uniform outcome of every action-layer command.
// Domain failures (validation, permission, state) are values, never panics:
// a failed command reports Success=false with a human-readable reason and
// guarantees the store was not mutated.
type CommandResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// OK returns a successful command result.
func OK() CommandResult {
	return CommandResult{Success: true}
}

// Fail returns a failed command result with the given reason.
func Fail(reason string) CommandResult {
	return CommandResult{Success: false, Reason: reason}
}

// Failf returns a failed command result with a formatted reason.
func Failf(format string, args ...any) CommandResult {
	return CommandResult{Success: false, Reason: fmt.Sprintf(format, args...)}
}

// PermissionDenied returns the uniform permission failure result.
func PermissionDenied() CommandResult {
	return Fail(ReasonPermissionDenied)
}
