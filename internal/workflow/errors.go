package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrAlreadyRunning is returned when Run is called while another
	// invocation is still active. Runs never queue.
	ErrAlreadyRunning = errors.New("a run is already in progress")

	// ErrCancelled is returned when a run is aborted at a unit boundary.
	// Partial results are discarded.
	ErrCancelled = errors.New("run cancelled")
)

// ValidationError rejects a configuration before any engine call is made.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("invalid configuration: %s", e.Issues[0])
	}
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	return fmt.Sprintf("invalid configuration (%d issues): %s", len(e.Issues), strings.Join(msgs, "; "))
}

// ExternalModelError wraps a failure raised by the modeling engine, with
// enough context to reproduce the offending call: the unit (grid cell or
// tile) index and the parameter values in effect.
type ExternalModelError struct {
	Unit   int
	Params map[string]float64
	Err    error
}

func (e *ExternalModelError) Error() string {
	if len(e.Params) == 0 {
		return fmt.Sprintf("modeling engine failed at unit %d: %v", e.Unit, e.Err)
	}
	names := make([]string, 0, len(e.Params))
	for name := range e.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = fmt.Sprintf("%s=%g", name, e.Params[name])
	}
	return fmt.Sprintf("modeling engine failed at unit %d (%s): %v", e.Unit, strings.Join(pairs, " "), e.Err)
}

func (e *ExternalModelError) Unwrap() error {
	return e.Err
}
