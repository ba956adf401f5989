package subproc

import (
	"errors"
	"fmt"
)

// Err matches every error produced by this package. It is never
// returned directly; use it with errors.Is to detect subprocess
// failures of any kind:
//
//	if errors.Is(err, subproc.Err) { ... }
var Err = errors.New("subprocess error")

// OSError reports a failed operating system call: fork/spawn, pipe
// creation, file open, or a short read/write. It is never retried;
// every OS failure surfaces to the caller.
type OSError struct {
	// Op is the operation that failed e.g. "open" or "pipe".
	Op string
	// Err is the underlying error from the OS, if any.
	Err error
}

func (e *OSError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("subproc: %s failed", e.Op)
	}
	return fmt.Sprintf("subproc: %s failed: %v", e.Op, e.Err)
}

func (e *OSError) Unwrap() error { return e.Err }

func (e *OSError) Is(target error) bool { return target == Err }

// UsageError reports a violated precondition of the API itself,
// such as waiting on a process before executing it or linking a
// descriptor that is already linked. It indicates a bug in the
// calling code rather than an environmental failure.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return "subproc: " + e.Msg }

func (e *UsageError) Is(target error) bool { return target == Err }

// CommandError reports that the final stage of a pipeline exited
// with a non-zero status. Only Run returns it; RunStatus reports
// the status as a value instead.
type CommandError struct {
	// Status is the exit status of the pipeline's final stage.
	Status int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("subproc: command exited with status %d", e.Status)
}

func (e *CommandError) Is(target error) bool { return target == Err }
