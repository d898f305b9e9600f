package fsbridge

import (
	"context"
	"fmt"
	"io"
	"io/fs"

	"github.com/google/uuid"

	"github.com/walkerlab/fsbridge/internal/util"
)

// Default temp-file naming for atomic writes. The temp object lives in the
// same directory as the target so the final rename stays backend-local.
const (
	DefaultTempPrefix = "."
	DefaultTempSuffix = ".tmp"
)

// AtomicOptions configures an atomic write session.
type AtomicOptions struct {
	TempPrefix string // prepended to the base name (default ".")
	TempSuffix string // appended to the base name (default ".tmp")
	Append     bool   // open the temp object in append mode
}

// TempPath derives the temp object path for an atomic write to target:
// same directory, base name wrapped in prefix and suffix. The wrapping
// guarantees the temp name never collides with the target itself.
func TempPath(target, prefix, suffix string) string {
	dir, base := splitBase(target)
	return joinSlash(dir, prefix+base+suffix)
}

// AtomicFile is a write session with temp-then-commit semantics: all writes
// go to a co-located temp object, and the target only ever observes the
// fully written content (on Close) or nothing (on Discard). It implements
// [WriteSession].
//
// AtomicFile adds no locking: two sessions opened concurrently for the same
// target race on the final rename and the last rename wins. Serialization,
// if needed, is the caller's responsibility.
type AtomicFile struct {
	backend  Backend
	target   string
	tempPath string
	w        io.WriteCloser
	done     bool
	id       string // session id for log correlation
}

// NewAtomicFile opens an atomic write session for target on backend.
// Zero-valued prefix/suffix options fall back to the defaults.
func NewAtomicFile(ctx context.Context, backend Backend, target string, opts AtomicOptions) (*AtomicFile, error) {
	if target == "" {
		return nil, fmt.Errorf("atomic write: empty target path")
	}
	if opts.TempPrefix == "" {
		opts.TempPrefix = DefaultTempPrefix
	}
	if opts.TempSuffix == "" {
		opts.TempSuffix = DefaultTempSuffix
	}
	tempPath := TempPath(target, opts.TempPrefix, opts.TempSuffix)
	w, err := backend.OpenWrite(ctx, tempPath, opts.Append)
	if err != nil {
		return nil, err
	}
	a := &AtomicFile{
		backend:  backend,
		target:   target,
		tempPath: tempPath,
		w:        w,
		id:       uuid.NewString(),
	}
	logger := util.GetLogger("AtomicFile")
	logger.Trace().Str("session", a.id).Str("target", target).Str("temp", tempPath).Msg("Atomic write session opened")
	return a, nil
}

// Target returns the path the session commits to.
func (a *AtomicFile) Target() string { return a.target }

// Write appends to the temp object.
func (a *AtomicFile) Write(p []byte) (int, error) {
	if a.done {
		return 0, fs.ErrClosed
	}
	return a.w.Write(p)
}

// Close commits the session: the temp stream is closed, a pre-existing
// target is removed, and the temp object is renamed into place. If any
// commit step fails the temp object is removed on a best-effort basis and a
// *CommitError is returned; a target removed before a failed rename is not
// restored. Close after Close or Discard is a no-op.
func (a *AtomicFile) Close(ctx context.Context) error {
	if a.done {
		return nil
	}
	a.done = true
	logger := util.GetLogger("AtomicFile")
	if err := a.w.Close(); err != nil {
		a.cleanupTemp(ctx)
		return err
	}
	exists, err := a.backend.Exists(ctx, a.target)
	if err == nil && exists {
		err = a.backend.Remove(ctx, a.target)
	}
	if err == nil {
		err = a.backend.Rename(ctx, a.tempPath, a.target)
	}
	if err != nil {
		a.cleanupTemp(ctx)
		return &CommitError{Target: a.target, Temp: a.tempPath, Err: err}
	}
	logger.Debug().Str("session", a.id).Str("target", a.target).Msg("Atomic write committed")
	return nil
}

// Discard abandons the session: the temp stream is closed and the temp
// object removed on a best-effort basis, leaving the target exactly as it
// was. Discard after Close or Discard is a no-op.
func (a *AtomicFile) Discard(ctx context.Context) error {
	if a.done {
		return nil
	}
	a.done = true
	// Stream close and temp removal failures are swallowed here: nothing
	// was going to become visible at the target either way.
	_ = a.w.Close()
	a.cleanupTemp(ctx)
	logger := util.GetLogger("AtomicFile")
	logger.Debug().Str("session", a.id).Str("target", a.target).Msg("Atomic write discarded")
	return nil
}

func (a *AtomicFile) cleanupTemp(ctx context.Context) {
	if err := a.backend.Remove(ctx, a.tempPath); err != nil {
		logger := util.GetLogger("AtomicFile")
		logger.Debug().Err(err).Str("session", a.id).Str("temp", a.tempPath).Msg("Failed to remove temp object")
	}
}
