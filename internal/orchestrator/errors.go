package orchestrator

import "fmt"

// SpawnError indicates the transcoder failed to launch. No partial output
// exists yet, so no cleanup is needed beyond reporting.
type SpawnError struct {
	DownloadID string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("transcoder spawn failed for %s: %v", e.DownloadID, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// CommandError indicates an invalid start/cancel request: missing required
// fields or malformed values. It is returned to the caller; the host keeps
// running.
type CommandError struct {
	Field string
	Err   error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("invalid request field %q: %v", e.Field, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
