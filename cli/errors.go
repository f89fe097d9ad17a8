package cli

import "fmt"

// ConfigError reports spec.md §7 kind 1: a dirty working tree, a missing
// hook directory, or a broken get-change-id, discovered while deriving
// Configuration, in which case no state has been mutated. The session
// controller also returns it for session-store and head-restoration
// failures, which can occur after the session directory has been written.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// WalkError reports spec.md §7 kind 2: a hook failure, a set-change-id
// failure, or a checkout failure during the walk. The failing revision has
// already been restored to the head of its queue by the time this is
// returned, unless restoring it failed, which the printed message then
// reports.
type WalkError struct {
	Message string
}

func (e *WalkError) Error() string { return e.Message }

// UsageError reports spec.md §7 kind 3: conflicting flags, or a command
// that requires (or forbids) an in-progress session when the opposite is
// true. FlagError distinguishes the two: per spec.md §7, flag-parsing usage
// errors exit 2, while the session-state ones exit 1.
type UsageError struct {
	Message   string
	FlagError bool
}

func (e *UsageError) Error() string { return e.Message }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

func flagUsageErrorf(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...), FlagError: true}
}

// SilentError wraps an error that has already been printed to the user via
// the git-sync-world: ERROR - convention, so main must not print it again.
type SilentError struct {
	Err error
}

func NewSilentError(err error) *SilentError {
	return &SilentError{Err: err}
}

func (e *SilentError) Error() string { return e.Err.Error() }

func (e *SilentError) Unwrap() error { return e.Err }
