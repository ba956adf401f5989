package subproc

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Expander turns a command string into an argument vector, applying
// shell-like word splitting, quoting and glob rules. It is consulted
// once per Process at spawn time. The zero implementation used by New
// lives in core/shellex.
type Expander interface {
	Expand(command string) ([]string, error)
}

// Process is one external program about to run. It owns exactly the
// three standard-stream Descriptors it will hand to the OS and knows
// how to spawn and reap itself.
//
// Processes are created by Command; redirection happens by the
// Command reassigning the three descriptors before Execute.
type Process struct {
	cmdline  string
	args     []string // pre-tokenized; bypasses the expander when set
	expander Expander

	stdin  *Descriptor
	stdout *Descriptor
	stderr *Descriptor

	pid     int
	started bool
}

func newProcess(cmdline string, expander Expander) *Process {
	return &Process{
		cmdline:  cmdline,
		expander: expander,
		stdin:    Stdin(),
		stdout:   Stdout(),
		stderr:   Stderr(),
	}
}

func newProcessArgs(args []string) *Process {
	return &Process{
		args:   args,
		stdin:  Stdin(),
		stdout: Stdout(),
		stderr: Stderr(),
	}
}

// argv resolves the argument vector for the spawn, consulting the
// expander unless the process was built from pre-tokenized arguments.
func (p *Process) argv() ([]string, error) {
	if p.args != nil {
		return p.args, nil
	}
	args, err := p.expander.Expand(p.cmdline)
	if err != nil {
		return nil, err
	}
	return args, nil
}

// Execute spawns the process with its three descriptors as the
// child's standard streams. After the child exists, the parent's
// copies of the descriptors are released so pipe EOF propagates to
// downstream readers.
//
// Each Process spawns exactly once; a second Execute is a UsageError.
func (p *Process) Execute() error {
	if p.started {
		return &UsageError{Msg: "execute() called twice on the same process"}
	}

	args, err := p.argv()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return &UsageError{Msg: "command expanded to an empty argument vector"}
	}

	path, err := exec.LookPath(args[0])
	if err != nil {
		return &OSError{Op: "exec " + args[0], Err: err}
	}

	pid, err := syscall.ForkExec(path, args, &syscall.ProcAttr{
		Env: os.Environ(),
		Files: []uintptr{
			uintptr(p.stdin.Fd()),
			uintptr(p.stdout.Fd()),
			uintptr(p.stderr.Fd()),
		},
	})
	if err != nil {
		return &OSError{Op: "spawn " + path, Err: err}
	}
	p.pid = pid
	p.started = true

	// The child holds its own duplicates now. Close the parent's
	// copies: a forgotten open write end anywhere would hang every
	// reader of that pipe. Close is a no-op for standard streams
	// and for descriptors shared between two slots (e.g. 2>&1).
	p.stdin.Close()
	p.stdout.Close()
	p.stderr.Close()

	return nil
}

// Wait blocks until the child terminates and returns its exit
// status. Calling Wait before Execute is a UsageError.
func (p *Process) Wait() (int, error) {
	if !p.started {
		return 0, &UsageError{Msg: "wait() called before execute()"}
	}
	var status unix.WaitStatus
	if _, err := unix.Wait4(p.pid, &status, 0, nil); err != nil {
		return 0, &OSError{Op: "wait", Err: err}
	}
	return status.ExitStatus(), nil
}
