// Package pipeline contains the error taxonomy and outcome types shared by
// every stage of the acquisition pipeline.
package pipeline

import (
	"fmt"
	"strings"
)

type (
	// InvalidRequestError is returned when a request fails validation. It is
	// always returned before any external process is launched.
	InvalidRequestError struct {
		Field  string
		Reason string
	}

	// LaunchError indicates the external binary could not be started at all.
	LaunchError struct {
		Command string
		Err     error
	}

	// ProcessExitError indicates the external process ran but exited with a non-zero
	// code. Tail holds the last lines of output the process produced.
	ProcessExitError struct {
		Command string
		Code    int
		Tail    []string
	}

	// ProbeError is returned when the duration of a media file could not be determined.
	ProbeError struct {
		Path   string
		Output string
		Err    error
	}

	// PersistenceError wraps a failed write or read against the knowledge store.
	PersistenceError struct {
		Op     string
		ItemID string
		Err    error
	}

	// ArtifactNotFoundError indicates an expected output file of a download
	// could not be located. It is never fatal.
	ArtifactNotFoundError struct {
		Kind  string
		Title string
		Dir   string

		// Closest is the name of the most similar file of the right kind, if any.
		// It is never used in place of the artifact.
		Closest string
	}

	// FrameError is returned when frame extraction stopped part way through. Count
	// is the number of samples persisted before the failure.
	FrameError struct {
		Timestamp float64
		Count     int
		Err       error
	}
)

func (e *InvalidRequestError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid request: %s", e.Reason)
	}

	return fmt.Sprintf("invalid request: field '%s' %s", e.Field, e.Reason)
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch '%s': %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

func (e *ProcessExitError) Error() string {
	if len(e.Tail) == 0 {
		return fmt.Sprintf("'%s' exited with code %d", e.Command, e.Code)
	}

	return fmt.Sprintf("'%s' exited with code %d: %s", e.Command, e.Code, strings.Join(e.Tail, " | "))
}

func (e *ProbeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to probe duration of '%s': unexpected output %q", e.Path, e.Output)
	}

	return fmt.Sprintf("failed to probe duration of '%s': %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

func (e *PersistenceError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("failed to %s for item %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *ArtifactNotFoundError) Error() string {
	if e.Closest == "" {
		return fmt.Sprintf("no %s artifact found for '%s' in %s", e.Kind, e.Title, e.Dir)
	}

	return fmt.Sprintf("no %s artifact found for '%s' in %s (closest file was '%s')", e.Kind, e.Title, e.Dir, e.Closest)
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame extraction stopped at %.2fs after %d samples: %v", e.Timestamp, e.Count, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }
