package fsbridge

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/walkerlab/fsbridge/internal/util"
)

// Operation tags. Tags are opaque strings; dual-path operations append a
// ".src" or ".dst" role so the mapper can route each side independently.
const (
	OpOpen     = "open"
	OpExists   = "exists"
	OpIsDir    = "isdir"
	OpIsFile   = "isfile"
	OpStat     = "stat"
	OpGetSize  = "getsize"
	OpGetMtime = "getmtime"
	OpGetCtime = "getctime"
	OpMkdir    = "mkdir"
	OpMakeDirs = "makedirs"
	OpListDir  = "listdir"
	OpRemove   = "remove"
	OpRmdir    = "rmdir"
	OpRmTree   = "rmtree"
	OpRename   = "rename"
	OpCopy     = "copy"
	OpCopyTree = "copytree"
	OpMove     = "move"
)

// DefaultChunkSize bounds memory during streamed transfers between the
// backend and the local environment.
const DefaultChunkSize = 1 << 20

// RouterOptions configures a Router. Start from DefaultRouterOptions and
// adjust fields as needed.
type RouterOptions struct {
	AtomicWrites bool   // route Create through an atomic write session
	TempPrefix   string // temp naming for atomic writes
	TempSuffix   string
	ChunkSize    int // streamed transfer chunk size in bytes
}

// DefaultRouterOptions returns the options a nil-options router runs with:
// atomic writes on, "." / ".tmp" temp naming, 1 MiB transfer chunks.
func DefaultRouterOptions() *RouterOptions {
	return &RouterOptions{
		AtomicWrites: true,
		TempPrefix:   DefaultTempPrefix,
		TempSuffix:   DefaultTempSuffix,
		ChunkSize:    DefaultChunkSize,
	}
}

// Router dispatches file operations to a Backend according to a Mapper's
// per-path, per-operation routing decisions. Single-path operations on
// unrouted paths fail with ErrNotRoutable; dual-path operations apply the
// policy matrix documented on each method, with the unrouted side served by
// the local OS environment.
//
// The router holds no locks and is safe for concurrent use as long as its
// Backend and Mapper are.
type Router struct {
	backend Backend
	mapper  Mapper
	opts    RouterOptions
	ext     *extensionRegistry
}

// NewRouter creates a router over backend. A nil mapper routes every
// non-empty path unchanged; nil opts means DefaultRouterOptions.
func NewRouter(backend Backend, mapper Mapper, opts *RouterOptions) *Router {
	if mapper == nil {
		mapper = Identity()
	}
	if opts == nil {
		opts = DefaultRouterOptions()
	}
	o := *opts
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	return &Router{
		backend: backend,
		mapper:  mapper,
		opts:    o,
		ext:     newExtensionRegistry(),
	}
}

// Backend returns the backend this router dispatches to.
func (r *Router) Backend() Backend { return r.backend }

// Decide exposes the mapper's routing decision for a (path, operation)
// pair. Callers use this to choose between the router and their default
// implementation before invoking anything.
func (r *Router) Decide(path, op string) RouteDecision {
	return r.mapper.Decide(path, op)
}

// RegisterExtension installs a handler that fully replaces the built-in
// dispatch for the named operation on Invoke1/Invoke2, including for paths
// the mapper would decline. Re-registering a name replaces the previous
// handler.
func (r *Router) RegisterExtension(name string, h Handler) {
	r.ext.register(name, h)
}

func (r *Router) route(op, path string) (string, error) {
	d := r.mapper.Decide(path, op)
	if !d.Routed {
		return "", notRoutable(op, path)
	}
	return d.Path, nil
}

// Exists reports whether the routed path exists on the backend.
func (r *Router) Exists(ctx context.Context, path string) (bool, error) {
	mapped, err := r.route(OpExists, path)
	if err != nil {
		return false, err
	}
	return r.backend.Exists(ctx, mapped)
}

// IsDir reports whether the routed path is a directory.
func (r *Router) IsDir(ctx context.Context, path string) (bool, error) {
	mapped, err := r.route(OpIsDir, path)
	if err != nil {
		return false, err
	}
	return r.backend.IsDir(ctx, mapped)
}

// IsFile reports whether the routed path is a regular file.
func (r *Router) IsFile(ctx context.Context, path string) (bool, error) {
	mapped, err := r.route(OpIsFile, path)
	if err != nil {
		return false, err
	}
	return r.backend.IsFile(ctx, mapped)
}

// Stat returns backend metadata for the routed path.
func (r *Router) Stat(ctx context.Context, path string) (Info, error) {
	mapped, err := r.route(OpStat, path)
	if err != nil {
		return Info{}, err
	}
	return r.backend.Stat(ctx, mapped)
}

// GetSize returns the size of the routed path.
func (r *Router) GetSize(ctx context.Context, path string) (int64, error) {
	mapped, err := r.route(OpGetSize, path)
	if err != nil {
		return 0, err
	}
	info, err := r.backend.Stat(ctx, mapped)
	return info.Size, err
}

// GetMtime returns the modification time of the routed path, or the zero
// time when the backend does not track it.
func (r *Router) GetMtime(ctx context.Context, path string) (time.Time, error) {
	mapped, err := r.route(OpGetMtime, path)
	if err != nil {
		return time.Time{}, err
	}
	info, err := r.backend.Stat(ctx, mapped)
	return info.ModTime, err
}

// GetCtime returns the creation time of the routed path, or the zero time
// when the backend does not track it.
func (r *Router) GetCtime(ctx context.Context, path string) (time.Time, error) {
	mapped, err := r.route(OpGetCtime, path)
	if err != nil {
		return time.Time{}, err
	}
	info, err := r.backend.Stat(ctx, mapped)
	return info.CreateTime, err
}

// Mkdir creates a single directory at the routed path.
func (r *Router) Mkdir(ctx context.Context, path string) error {
	mapped, err := r.route(OpMkdir, path)
	if err != nil {
		return err
	}
	return r.backend.Mkdir(ctx, mapped)
}

// MkdirAll creates the routed directory and any missing parents.
func (r *Router) MkdirAll(ctx context.Context, path string, existOk bool) error {
	mapped, err := r.route(OpMakeDirs, path)
	if err != nil {
		return err
	}
	return r.backend.MkdirAll(ctx, mapped, existOk)
}

// List returns the child names of the routed directory.
func (r *Router) List(ctx context.Context, path string) ([]string, error) {
	mapped, err := r.route(OpListDir, path)
	if err != nil {
		return nil, err
	}
	return r.backend.List(ctx, mapped)
}

// Remove removes the routed file.
func (r *Router) Remove(ctx context.Context, path string) error {
	mapped, err := r.route(OpRemove, path)
	if err != nil {
		return err
	}
	return r.backend.Remove(ctx, mapped)
}

// Rmdir removes the routed empty directory.
func (r *Router) Rmdir(ctx context.Context, path string) error {
	mapped, err := r.route(OpRmdir, path)
	if err != nil {
		return err
	}
	return r.backend.Rmdir(ctx, mapped)
}

// RemoveAll removes the tree at path: on the backend when routed, in the
// local environment otherwise.
func (r *Router) RemoveAll(ctx context.Context, path string) error {
	d := r.mapper.Decide(path, OpRmTree)
	if d.Routed {
		return r.backend.RemoveAll(ctx, d.Path)
	}
	return os.RemoveAll(path)
}

// Open opens the routed path for reading.
func (r *Router) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	mapped, err := r.route(OpOpen, path)
	if err != nil {
		return nil, err
	}
	return r.backend.OpenRead(ctx, mapped)
}

// Create opens a write session for the routed path: an atomic
// temp-then-rename session when atomic writes are enabled, otherwise a plain
// truncating stream.
func (r *Router) Create(ctx context.Context, path string) (WriteSession, error) {
	mapped, err := r.route(OpOpen, path)
	if err != nil {
		return nil, err
	}
	if r.opts.AtomicWrites {
		return NewAtomicFile(ctx, r.backend, mapped, AtomicOptions{
			TempPrefix: r.opts.TempPrefix,
			TempSuffix: r.opts.TempSuffix,
		})
	}
	w, err := r.backend.OpenWrite(ctx, mapped, false)
	if err != nil {
		return nil, err
	}
	return &plainSession{w: w}, nil
}

// CreateText opens a write session like Create with a text encoding and
// newline translation layer on top.
func (r *Router) CreateText(ctx context.Context, path string, topts TextOptions) (*TextFile, error) {
	session, err := r.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	t, err := NewTextFile(session, topts)
	if err != nil {
		_ = session.Discard(ctx)
		return nil, err
	}
	return t, nil
}

// OpenAtomic opens an atomic write session for the routed path with
// explicit per-call options instead of the router's configured ones. A
// non-nil topts layers text encoding and newline translation on top.
func (r *Router) OpenAtomic(ctx context.Context, path string, aopts AtomicOptions, topts *TextOptions) (WriteSession, error) {
	mapped, err := r.route(OpOpen, path)
	if err != nil {
		return nil, err
	}
	if topts != nil {
		return NewAtomicTextFile(ctx, r.backend, mapped, aopts, *topts)
	}
	return NewAtomicFile(ctx, r.backend, mapped, aopts)
}

// Append opens the routed path for appending. Appends bypass the atomic
// coordinator: there is no whole-file content to stage.
func (r *Router) Append(ctx context.Context, path string) (WriteSession, error) {
	mapped, err := r.route(OpOpen, path)
	if err != nil {
		return nil, err
	}
	w, err := r.backend.OpenWrite(ctx, mapped, true)
	if err != nil {
		return nil, err
	}
	return &plainSession{w: w}, nil
}

// Rename moves src to dst on the backend. Both sides must route; a
// cross-environment rename is not supported and fails with ErrNotRoutable.
func (r *Router) Rename(ctx context.Context, src, dst string) error {
	sd := r.mapper.Decide(src, OpRename+".src")
	dd := r.mapper.Decide(dst, OpRename+".dst")
	if !sd.Routed {
		return notRoutable(OpRename, src)
	}
	if !dd.Routed {
		return notRoutable(OpRename, dst)
	}
	return r.backend.Rename(ctx, sd.Path, dd.Path)
}

// Copy copies a single file. With both sides routed it uses the backend's
// native copy; with one side routed it streams between the backend and the
// local environment in fixed-size chunks. Metadata beyond content is
// preserved on a best-effort basis only. Neither side routed fails with
// ErrNotRoutable.
func (r *Router) Copy(ctx context.Context, src, dst string) error {
	sd := r.mapper.Decide(src, OpCopy+".src")
	dd := r.mapper.Decide(dst, OpCopy+".dst")
	return r.transfer(ctx, resolveEndpoint(sd, src), resolveEndpoint(dd, dst))
}

// Move moves src to dst. With both sides routed it is a backend rename.
// In the mixed case it copies then removes the source, recursively when the
// source is a directory. Neither side routed fails with ErrNotRoutable.
func (r *Router) Move(ctx context.Context, src, dst string) error {
	sd := r.mapper.Decide(src, OpMove+".src")
	dd := r.mapper.Decide(dst, OpMove+".dst")
	if sd.Routed && dd.Routed {
		return r.backend.Rename(ctx, sd.Path, dd.Path)
	}
	if !sd.Routed && !dd.Routed {
		return notRoutable(OpMove, src)
	}
	if err := r.transfer(ctx, resolveEndpoint(sd, src), resolveEndpoint(dd, dst)); err != nil {
		return err
	}
	logger := util.GetLogger("Router.Move")
	logger.Debug().Str("src", src).Str("dst", dst).Msg("Cross-environment move: copied, removing source")
	if sd.Routed {
		isDir, err := r.backend.IsDir(ctx, sd.Path)
		if err != nil {
			return err
		}
		if isDir {
			return r.backend.RemoveAll(ctx, sd.Path)
		}
		return r.backend.Remove(ctx, sd.Path)
	}
	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return os.RemoveAll(src)
	}
	return os.Remove(src)
}

// plainSession adapts a raw backend write stream to WriteSession for
// routers with atomic writes disabled. Discard only closes the stream;
// partially written content may already be visible at the target.
type plainSession struct {
	w    io.WriteCloser
	done bool
}

func (s *plainSession) Write(p []byte) (int, error) {
	if s.done {
		return 0, fs.ErrClosed
	}
	return s.w.Write(p)
}

func (s *plainSession) Close(context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	return s.w.Close()
}

func (s *plainSession) Discard(context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	return s.w.Close()
}

// Invoke1 dispatches a single-path operation by tag. A registered extension
// handler for op takes over the entire call; otherwise the tag selects the
// corresponding typed method. For "open", an optional mode argument of
// "r", "w", or "a" (default "r") selects read, atomic write, or append.
func (r *Router) Invoke1(ctx context.Context, op, path string, args ...any) (any, error) {
	if h, ok := r.ext.lookup(op); ok {
		return h(ctx, []string{path}, args...)
	}
	switch op {
	case OpExists:
		return r.Exists(ctx, path)
	case OpIsDir:
		return r.IsDir(ctx, path)
	case OpIsFile:
		return r.IsFile(ctx, path)
	case OpStat:
		return r.Stat(ctx, path)
	case OpGetSize:
		return r.GetSize(ctx, path)
	case OpGetMtime:
		return r.GetMtime(ctx, path)
	case OpGetCtime:
		return r.GetCtime(ctx, path)
	case OpMkdir:
		return nil, r.Mkdir(ctx, path)
	case OpMakeDirs:
		return nil, r.MkdirAll(ctx, path, boolArg(args, 0))
	case OpListDir:
		return r.List(ctx, path)
	case OpRemove:
		return nil, r.Remove(ctx, path)
	case OpRmdir:
		return nil, r.Rmdir(ctx, path)
	case OpRmTree:
		return nil, r.RemoveAll(ctx, path)
	case OpOpen:
		mode := stringArg(args, 0, "r")
		switch {
		case strings.Contains(mode, "w"):
			return r.Create(ctx, path)
		case strings.Contains(mode, "a"):
			return r.Append(ctx, path)
		default:
			return r.Open(ctx, path)
		}
	default:
		return nil, fmt.Errorf("invoke1 %q: unknown operation", op)
	}
}

// Invoke2 dispatches a dual-path operation by tag, with the same extension
// override semantics as Invoke1. For "copytree", an optional bool argument
// allows overwriting an existing destination tree.
func (r *Router) Invoke2(ctx context.Context, op, src, dst string, args ...any) (any, error) {
	if h, ok := r.ext.lookup(op); ok {
		return h(ctx, []string{src, dst}, args...)
	}
	switch op {
	case OpRename:
		return nil, r.Rename(ctx, src, dst)
	case OpCopy:
		return nil, r.Copy(ctx, src, dst)
	case OpCopyTree:
		return nil, r.CopyTree(ctx, src, dst, boolArg(args, 0))
	case OpMove:
		return nil, r.Move(ctx, src, dst)
	default:
		return nil, fmt.Errorf("invoke2 %q: unknown operation", op)
	}
}

func boolArg(args []any, i int) bool {
	if i < len(args) {
		if b, ok := args[i].(bool); ok {
			return b
		}
	}
	return false
}

func stringArg(args []any, i int, def string) string {
	if i < len(args) {
		if s, ok := args[i].(string); ok {
			return s
		}
	}
	return def
}
