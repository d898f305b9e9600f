package fsbridge

import (
	"context"
	"io"
	"time"
)

// Info holds backend metadata for a single entry. Size is always populated
// for files. ModTime and CreateTime are best-effort: backends that do not
// track them return the zero time rather than an error.
type Info struct {
	Size       int64
	ModTime    time.Time
	CreateTime time.Time
}

// Backend is the capability contract a storage provider must implement to be
// usable behind a [Router]. Paths are slash-separated and live entirely in
// the backend's namespace; the router never passes an unrouted path to a
// backend.
//
// Implementations must be safe for concurrent use if the owning router is
// invoked concurrently. Failures are reported as errors (conventionally
// *fs.PathError with a translated cause) and are propagated verbatim by the
// router. Capabilities a provider cannot offer return [ErrUnsupported].
type Backend interface {
	// Exists reports whether path refers to any entry.
	Exists(ctx context.Context, path string) (bool, error)

	// IsDir reports whether path refers to a directory.
	IsDir(ctx context.Context, path string) (bool, error)

	// IsFile reports whether path refers to a regular file.
	IsFile(ctx context.Context, path string) (bool, error)

	// Stat returns metadata for path. Size must be accurate for files;
	// ModTime and CreateTime are best-effort.
	Stat(ctx context.Context, path string) (Info, error)

	// Mkdir creates a single directory. It fails if the parent is missing
	// or the path already exists.
	Mkdir(ctx context.Context, path string) error

	// MkdirAll creates a directory and any missing parents. With existOk
	// it is idempotent; without, an existing path is an error.
	MkdirAll(ctx context.Context, path string, existOk bool) error

	// List returns the names (not full paths) of the immediate children
	// of dir.
	List(ctx context.Context, dir string) ([]string, error)

	// Remove removes a single file.
	Remove(ctx context.Context, path string) error

	// Rmdir removes an empty directory.
	Rmdir(ctx context.Context, path string) error

	// RemoveAll removes path and everything under it.
	RemoveAll(ctx context.Context, path string) error

	// Rename moves a single entry. Rename is atomic within the backend;
	// cross-backend renames are not part of this contract.
	Rename(ctx context.Context, src, dst string) error

	// OpenRead opens path for reading.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWrite opens path for writing, truncating unless appendTo is set.
	OpenWrite(ctx context.Context, path string, appendTo bool) (io.WriteCloser, error)

	// Copy duplicates a single file within the backend without requiring
	// the caller to stream it through.
	Copy(ctx context.Context, src, dst string) error

	// Find returns the full paths of every regular file under root,
	// recursively.
	Find(ctx context.Context, root string) ([]string, error)
}

// WriteSession is a writable handle whose outcome is decided at close time.
// Exactly one of Close or Discard should be called; both are no-ops after
// the first terminal call.
type WriteSession interface {
	io.Writer

	// Close finishes the session normally, making the written content
	// visible at its target.
	Close(ctx context.Context) error

	// Discard abandons the session, leaving the target untouched.
	Discard(ctx context.Context) error
}
