package subproc

import (
	"bytes"

	"golang.org/x/sys/unix"

	"github.com/josephlewis42/subproc/core/shellex"
)

type commandState int

const (
	stateBuilding commandState = iota
	stateRunning
	stateFinished
	stateConsumed // appended into another Command by Chain
)

// capture is a pending binding between the read end of a capture
// pipe and the caller's buffer, drained during Run.
type capture struct {
	rd  *Descriptor
	buf *bytes.Buffer
}

// Command is an ordered pipeline of Processes plus the wiring that
// connects them, mirroring a shell pipeline like `cmd1 | cmd2 > file`.
//
// A Command is built fluently: redirection and Chain calls mutate it
// and return it, recording the first setup error for Run to surface.
// Input redirection applies to the first stage, output and error
// redirection to the last, matching shell semantics where only the
// pipeline's outer ends are redirectable.
//
// A Command is single-use: once Run or RunStatus has been called it
// can neither be mutated nor run again.
type Command struct {
	procs       []*Process
	capturedOut *capture
	capturedErr *capture
	state       commandState
	err         error // first builder error, surfaced by Run
}

// New builds a single-stage Command from a command line. The line is
// word-split, env-expanded and glob-expanded by the default shellex
// expander when the stage spawns.
func New(cmdline string) *Command {
	return NewWithExpander(cmdline, shellex.New())
}

// NewWithExpander is New with a caller-supplied argument expander.
func NewWithExpander(cmdline string, expander Expander) *Command {
	return &Command{procs: []*Process{newProcess(cmdline, expander)}}
}

// NewArgs builds a single-stage Command from a pre-tokenized argument
// vector. No expansion of any kind is applied at spawn time.
func NewArgs(args ...string) *Command {
	return &Command{procs: []*Process{newProcessArgs(args)}}
}

// Err returns the first error recorded while building the Command,
// if any. Run surfaces the same error.
func (c *Command) Err() error { return c.err }

func (c *Command) setErr(err error) {
	if c.err == nil {
		c.err = err
	}
}

// mutable gates every builder method on the Building state.
func (c *Command) mutable() bool {
	if c.err != nil {
		return false
	}
	if c.state != stateBuilding {
		c.setErr(&UsageError{Msg: "command cannot be modified after it has run"})
		return false
	}
	return true
}

// setStdin points the first stage's stdin at d, releasing whatever
// descriptor held the slot before.
func (c *Command) setStdin(d *Descriptor) {
	first := c.procs[0]
	old := first.stdin
	if old != d && old != first.stdout && old != first.stderr {
		old.Close()
		old.CloseLinked()
	}
	first.stdin = d
}

// setStdout points the last stage's stdout at d. Any pending stdout
// capture binding is cleared first: the latest redirection wins.
func (c *Command) setStdout(d *Descriptor) {
	last := c.procs[len(c.procs)-1]
	if c.capturedOut != nil {
		c.capturedOut.rd.Close()
		c.capturedOut = nil
	}
	old := last.stdout
	if old != d && old != last.stderr && old != last.stdin {
		old.Close()
		old.CloseLinked()
	}
	last.stdout = d
}

// setStderr is setStdout for the error stream.
func (c *Command) setStderr(d *Descriptor) {
	last := c.procs[len(c.procs)-1]
	if c.capturedErr != nil {
		c.capturedErr.rd.Close()
		c.capturedErr = nil
	}
	old := last.stderr
	if old != d && old != last.stdout && old != last.stdin {
		old.Close()
		old.CloseLinked()
	}
	last.stderr = d
}

// Chain appends other's stages to c, connecting c's last stage to
// other's first stage with a fresh OS pipe: `c | other`. Capture
// bindings pending on other move to the combined Command; other is
// consumed and must not be used again.
func (c *Command) Chain(other *Command) *Command {
	if !c.mutable() {
		return c
	}
	if other == nil || other == c || other.state != stateBuilding {
		c.setErr(&UsageError{Msg: "chain requires a distinct, unused command"})
		return c
	}
	if other.err != nil {
		c.setErr(other.err)
		return c
	}

	r, w, err := Pipe()
	if err != nil {
		c.setErr(err)
		return c
	}
	other.setStdin(r)
	c.setStdout(w)
	c.procs = append(c.procs, other.procs...)

	// `a | (b > var)` captures b's stdout, not a's. A stderr capture
	// pending on the left half survives unless the right half brings
	// its own.
	c.capturedOut = other.capturedOut
	if other.capturedErr != nil {
		c.capturedErr = other.capturedErr
	}

	other.procs = nil
	other.capturedOut = nil
	other.capturedErr = nil
	other.state = stateConsumed
	return c
}

// InputFile redirects the first stage's stdin from a file: `cmd < path`.
func (c *Command) InputFile(path string) *Command {
	if !c.mutable() {
		return c
	}
	d, err := Open(path, unix.O_RDONLY)
	if err != nil {
		c.setErr(err)
		return c
	}
	c.setStdin(d)
	return c
}

// InputDescriptor redirects the first stage's stdin from d. The
// Command takes ownership of the descriptor.
func (c *Command) InputDescriptor(d *Descriptor) *Command {
	if !c.mutable() {
		return c
	}
	c.setStdin(d)
	return c
}

// Input feeds the given bytes to the first stage's stdin through a
// pipe. The whole input is written into the pipe here, before any
// stage spawns, so inputs larger than the kernel's pipe buffer will
// block until drained; combined with a large captured output this
// can deadlock. Inputs are expected to be modest in size.
func (c *Command) Input(input []byte) *Command {
	if !c.mutable() {
		return c
	}
	r, w, err := Pipe()
	if err != nil {
		c.setErr(err)
		return c
	}
	if err := w.Write(input); err != nil {
		w.Close()
		r.Close()
		c.setErr(err)
		return c
	}
	// EOF for the reader once the pipe drains.
	w.Close()
	c.setStdin(r)
	return c
}

// OutputFile redirects the last stage's stdout to a file, truncating
// it: `cmd > path`.
func (c *Command) OutputFile(path string) *Command {
	return c.outputFile(path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, c.setStdout)
}

// AppendOutputFile redirects the last stage's stdout to a file,
// appending: `cmd >> path`.
func (c *Command) AppendOutputFile(path string) *Command {
	return c.outputFile(path, unix.O_WRONLY|unix.O_CREAT|unix.O_APPEND, c.setStdout)
}

// ErrorFile redirects the last stage's stderr to a file, truncating
// it: `cmd 2> path`.
func (c *Command) ErrorFile(path string) *Command {
	return c.outputFile(path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, c.setStderr)
}

// AppendErrorFile redirects the last stage's stderr to a file,
// appending: `cmd 2>> path`.
func (c *Command) AppendErrorFile(path string) *Command {
	return c.outputFile(path, unix.O_WRONLY|unix.O_CREAT|unix.O_APPEND, c.setStderr)
}

func (c *Command) outputFile(path string, flags int, set func(*Descriptor)) *Command {
	if !c.mutable() {
		return c
	}
	d, err := Open(path, flags)
	if err != nil {
		c.setErr(err)
		return c
	}
	set(d)
	return c
}

// OutputDescriptor redirects the last stage's stdout to d. The
// Command takes ownership of the descriptor.
func (c *Command) OutputDescriptor(d *Descriptor) *Command {
	if !c.mutable() {
		return c
	}
	c.setStdout(d)
	return c
}

// ErrorDescriptor redirects the last stage's stderr to d. The
// Command takes ownership of the descriptor.
func (c *Command) ErrorDescriptor(d *Descriptor) *Command {
	if !c.mutable() {
		return c
	}
	c.setStderr(d)
	return c
}

// CaptureOutput arranges for the last stage's stdout to be collected
// into buf during Run. The buffer is reset before it is filled.
func (c *Command) CaptureOutput(buf *bytes.Buffer) *Command {
	if !c.mutable() {
		return c
	}
	r, w, err := Pipe()
	if err != nil {
		c.setErr(err)
		return c
	}
	c.setStdout(w)
	c.capturedOut = &capture{rd: r, buf: buf}
	return c
}

// CaptureError is CaptureOutput for the error stream.
func (c *Command) CaptureError(buf *bytes.Buffer) *Command {
	if !c.mutable() {
		return c
	}
	r, w, err := Pipe()
	if err != nil {
		c.setErr(err)
		return c
	}
	c.setStderr(w)
	c.capturedErr = &capture{rd: r, buf: buf}
	return c
}

// OutputToStderr aliases the last stage's stdout to whatever its
// stderr currently is: `cmd 1>&2`.
func (c *Command) OutputToStderr() *Command {
	if !c.mutable() {
		return c
	}
	c.setStdout(c.procs[len(c.procs)-1].stderr)
	return c
}

// ErrorToStdout aliases the last stage's stderr to whatever its
// stdout currently is: `cmd 2>&1`.
func (c *Command) ErrorToStdout() *Command {
	if !c.mutable() {
		return c
	}
	c.setStderr(c.procs[len(c.procs)-1].stdout)
	return c
}

// RunStatus spawns every stage in order, drains any capture buffers,
// reaps every stage in order and returns the exit status of the last
// stage, matching shell semantics. A non-zero status is not an error
// here; OS and usage failures still are.
//
// A failure partway through surfaces immediately: stages spawned
// before it are not reaped and remain children of the host until it
// exits.
func (c *Command) RunStatus() (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.state != stateBuilding {
		return 0, &UsageError{Msg: "command has already run"}
	}
	c.state = stateRunning
	defer func() { c.state = stateFinished }()

	// Spawn everything before reading anything: all stages run
	// concurrently, so a stage writing a large output and a stage
	// downstream of it can both make progress.
	for _, p := range c.procs {
		if err := p.Execute(); err != nil {
			return 0, err
		}
	}

	for _, binding := range []*capture{c.capturedOut, c.capturedErr} {
		if binding == nil {
			continue
		}
		data, err := binding.rd.Read()
		binding.rd.Close()
		if err != nil {
			return 0, err
		}
		binding.buf.Reset()
		binding.buf.Write(data)
	}

	var status int
	for _, p := range c.procs {
		s, err := p.Wait()
		if err != nil {
			return 0, err
		}
		status = s
	}
	return status, nil
}

// Run is RunStatus that additionally treats a non-zero final exit
// status as a CommandError carrying that status.
func (c *Command) Run() (int, error) {
	status, err := c.RunStatus()
	if err != nil {
		return status, err
	}
	if status != 0 {
		return status, &CommandError{Status: status}
	}
	return status, nil
}
