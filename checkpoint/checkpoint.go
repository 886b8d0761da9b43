// Package checkpoint decorates errors with the source location they passed
// through, which results in something similar to a stack trace built only
// from the places that actually handled the error. Sentinel errors attached
// to a checkpoint stay visible to errors.Is and errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path"
	"runtime"
	"strings"
)

// From creates a new checkpoint for the given error, recording the file and
// line of the caller. It returns nil if err is nil.
//
// io.EOF and io.ErrUnexpectedEOF are returned unchanged as readers compare
// them by identity.
func From(err error) error {
	if err == nil || passthrough(err) {
		return err
	}
	return newCheckpoint(err, nil)
}

// Wrap adds a checkpoint on top of prev and attaches err as a marker which
// describes the checkpoint. The marker is usually a package level sentinel
// and may itself wrap one using fmt.Errorf to add context. It returns nil if
// prev is nil.
//
// io.EOF and io.ErrUnexpectedEOF are returned unchanged as readers compare
// them by identity.
func Wrap(prev error, err error) error {
	if prev == nil || passthrough(prev) {
		return prev
	}
	return newCheckpoint(err, prev)
}

func passthrough(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

func newCheckpoint(err error, prev error) error {
	// Caller 2 is the code which called From or Wrap.
	_, file, line, ok := runtime.Caller(2)
	return &checkpoint{
		err:      err,
		prev:     prev,
		callerOk: ok,
		file:     path.Base(file),
		line:     line,
	}
}

type checkpoint struct {
	err      error
	prev     error
	callerOk bool
	file     string
	line     int
}

func (c *checkpoint) Error() string {
	var b strings.Builder
	if c.callerOk {
		fmt.Fprintf(&b, "at %s:%d", c.file, c.line)
	} else {
		b.WriteString("at unknown location")
	}
	if c.err != nil {
		fmt.Fprintf(&b, ": %v", c.err)
	}
	if c.prev != nil {
		b.WriteString("\n")
		b.WriteString(c.prev.Error())
	}
	return b.String()
}

// Unwrap returns the previous error so that errors.Is and errors.As can walk
// the whole chain down to the root cause.
func (c *checkpoint) Unwrap() error {
	return c.prev
}

// Is reports whether the marker of this checkpoint matches target. The
// previous errors are matched by errors.Is itself through Unwrap.
func (c *checkpoint) Is(target error) bool {
	return errors.Is(c.err, target)
}

// As works like Is but for errors.As.
func (c *checkpoint) As(target interface{}) bool {
	return errors.As(c.err, target)
}
