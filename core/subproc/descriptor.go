package subproc

import (
	"golang.org/x/sys/unix"
)

// descriptorKind selects the behavior of a Descriptor. The set is
// closed: a descriptor wraps one of the three standard streams, an
// opened file, or one end of an OS pipe.
type descriptorKind int

const (
	kindStdio descriptorKind = iota
	kindFile
	kindPipe
)

// readChunk is the unit Read drains a pipe in.
const readChunk = 2048

// Descriptor is an owned or borrowed handle to an OS I/O endpoint.
//
// A file-backed Descriptor owns its fd and closes it exactly once.
// A pipe-end Descriptor may be linked to the opposite end of the
// same pipe. Standard-stream Descriptors are borrowed from the
// process and are never closed by this package.
type Descriptor struct {
	fd     int
	kind   descriptorKind
	path   string
	linked *Descriptor
	closed bool
}

// Stdin returns a borrowed Descriptor for the process's standard input.
func Stdin() *Descriptor { return &Descriptor{fd: 0, kind: kindStdio} }

// Stdout returns a borrowed Descriptor for the process's standard output.
func Stdout() *Descriptor { return &Descriptor{fd: 1, kind: kindStdio} }

// Stderr returns a borrowed Descriptor for the process's standard error.
func Stderr() *Descriptor { return &Descriptor{fd: 2, kind: kindStdio} }

// Open opens path with the given flags and returns an owning
// Descriptor for it. The fd is close-on-exec: a spawn duplicates
// the descriptors it was handed onto the child's standard streams,
// and no child may inherit any other.
func Open(path string, flags int) (*Descriptor, error) {
	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, 0666)
	if err != nil {
		return nil, &OSError{Op: "open " + path, Err: err}
	}
	return &Descriptor{fd: fd, kind: kindFile, path: path}, nil
}

// Pipe creates an OS pipe and returns its read and write ends,
// already linked to each other. Both ends are close-on-exec: a
// stray copy of a write end in an unrelated child would hold the
// pipe open and hang its reader forever, and would keep a
// downstream stage's early exit from ever being seen upstream.
func Pipe() (r, w *Descriptor, err error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return nil, nil, &OSError{Op: "pipe", Err: err}
	}
	r = &Descriptor{fd: p[0], kind: kindPipe}
	w = &Descriptor{fd: p[1], kind: kindPipe}
	r.linked = w
	w.linked = r
	return r, w, nil
}

// Link marks a and b as the matched ends of one pipe. A descriptor
// belongs to at most one pipe connection; linking either side twice
// is a UsageError and mutates neither side.
func Link(a, b *Descriptor) error {
	if a.linked != nil || b.linked != nil {
		return &UsageError{Msg: "descriptor is already linked to another descriptor"}
	}
	a.linked = b
	b.linked = a
	return nil
}

// Fd returns the OS-level file descriptor number.
func (d *Descriptor) Fd() int { return d.fd }

// Linked reports whether d is one end of a pipe whose other end is
// still tracked.
func (d *Descriptor) Linked() bool { return d.linked != nil }

// Write writes all of p to the descriptor. A short write is an
// OSError, not retried: partial writes to a pipe or file here
// indicate an exceptional condition the caller must see.
func (d *Descriptor) Write(p []byte) error {
	n, err := unix.Write(d.fd, p)
	if err != nil {
		return &OSError{Op: "write", Err: err}
	}
	if n < len(p) {
		return &OSError{Op: "write: short write"}
	}
	return nil
}

// Read drains the descriptor until EOF and returns everything read.
// For a pipe end this blocks until every holder of the write end has
// closed it.
func (d *Descriptor) Read() ([]byte, error) {
	var out []byte
	buf := make([]byte, readChunk)
	for {
		n, err := unix.Read(d.fd, buf)
		if err != nil {
			return out, &OSError{Op: "read", Err: err}
		}
		if n == 0 {
			return out, nil
		}
		out = append(out, buf[:n]...)
	}
}

// Close closes the descriptor. Closing twice is a no-op, and the
// three standard streams are never closed.
func (d *Descriptor) Close() error {
	if d.kind == kindStdio || d.closed {
		return nil
	}
	d.closed = true
	if err := unix.Close(d.fd); err != nil {
		return &OSError{Op: "close", Err: err}
	}
	return nil
}

// CloseLinked closes the other end of d's pipe, if any. Releasing
// the counterpart promptly is what lets EOF reach the pipe's reader.
func (d *Descriptor) CloseLinked() error {
	if d.linked == nil {
		return nil
	}
	return d.linked.Close()
}
