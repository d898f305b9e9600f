package fsbridge

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/walkerlab/fsbridge/internal/util"
)

// endpoint is one side of a dual-path operation: the backend-resolved path
// when routed, the original local path otherwise.
type endpoint struct {
	routed bool
	path   string
}

func resolveEndpoint(d RouteDecision, orig string) endpoint {
	if d.Routed {
		return endpoint{routed: true, path: d.Path}
	}
	return endpoint{path: orig}
}

// transfer copies one file between endpoints per the dual-path policy:
// backend-native copy when both sides are routed, chunked streaming when
// only one is, ErrNotRoutable when neither is. Streams are released on
// every exit path before transfer returns.
func (r *Router) transfer(ctx context.Context, src, dst endpoint) error {
	switch {
	case src.routed && dst.routed:
		return r.backend.Copy(ctx, src.path, dst.path)
	case src.routed:
		rc, err := r.backend.OpenRead(ctx, src.path)
		if err != nil {
			return err
		}
		defer rc.Close()
		f, err := os.Create(dst.path)
		if err != nil {
			return err
		}
		if _, err := r.copyChunks(f, rc); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case dst.routed:
		f, err := os.Open(src.path)
		if err != nil {
			return err
		}
		defer f.Close()
		w, err := r.backend.OpenWrite(ctx, dst.path, false)
		if err != nil {
			return err
		}
		if _, err := r.copyChunks(w, f); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	default:
		return notRoutable(OpCopy, src.path)
	}
}

// copyChunks streams src to dst through a fixed-size buffer so large
// transfers never hold more than one chunk in memory.
func (r *Router) copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, r.opts.ChunkSize)
	// The bare interface wrappers block the ReadFrom/WriteTo fast paths
	// that would otherwise bypass the bounded buffer.
	return io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, buf)
}

// CopyTree recursively copies every regular file under src to dst,
// preserving relative paths and creating destination parents as needed.
// At least one side must route. An existing destination root is rejected
// unless overwrite is set.
func (r *Router) CopyTree(ctx context.Context, src, dst string, overwrite bool) error {
	sd := r.mapper.Decide(src, OpCopyTree+".src")
	dd := r.mapper.Decide(dst, OpCopyTree+".dst")
	if !sd.Routed && !dd.Routed {
		return notRoutable(OpCopyTree, src)
	}

	if err := r.prepareTreeRoot(ctx, dd, dst, overwrite); err != nil {
		return err
	}

	rels, err := r.enumerateTree(ctx, sd, src)
	if err != nil {
		return err
	}
	logger := util.GetLogger("Router.CopyTree")
	logger.Debug().Str("src", src).Str("dst", dst).Int("files", len(rels)).Msg("Copying tree")

	for _, rel := range rels {
		var srcEp, dstEp endpoint
		if sd.Routed {
			srcEp = endpoint{routed: true, path: joinSlash(sd.Path, rel)}
		} else {
			srcEp = endpoint{path: filepath.Join(src, filepath.FromSlash(rel))}
		}
		if dd.Routed {
			dstEp = endpoint{routed: true, path: joinSlash(dd.Path, rel)}
			if dir, _ := splitBase(dstEp.path); dir != "" {
				if err := r.backend.MkdirAll(ctx, dir, true); err != nil {
					return err
				}
			}
		} else {
			dp := filepath.Join(dst, filepath.FromSlash(rel))
			dstEp = endpoint{path: dp}
			if err := os.MkdirAll(filepath.Dir(dp), 0o777); err != nil {
				return err
			}
		}
		if err := r.transfer(ctx, srcEp, dstEp); err != nil {
			return err
		}
	}
	return nil
}

// prepareTreeRoot creates the destination root of a tree copy, enforcing
// the overwrite policy.
func (r *Router) prepareTreeRoot(ctx context.Context, dd RouteDecision, dst string, overwrite bool) error {
	if dd.Routed {
		if !overwrite {
			exists, err := r.backend.Exists(ctx, dd.Path)
			if err != nil {
				return err
			}
			if exists {
				return &fs.PathError{Op: "copytree", Path: dst, Err: fs.ErrExist}
			}
		}
		return r.backend.MkdirAll(ctx, dd.Path, true)
	}
	if !overwrite {
		if _, err := os.Stat(dst); err == nil {
			return &fs.PathError{Op: "copytree", Path: dst, Err: fs.ErrExist}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return os.MkdirAll(dst, 0o777)
}

// enumerateTree lists every regular file under the source root as
// slash-separated relative paths: via the backend's recursive listing when
// routed, via a local walk otherwise.
func (r *Router) enumerateTree(ctx context.Context, sd RouteDecision, src string) ([]string, error) {
	if sd.Routed {
		files, err := r.backend.Find(ctx, sd.Path)
		if err != nil {
			return nil, err
		}
		rels := make([]string, 0, len(files))
		for _, f := range files {
			rels = append(rels, relSlash(sd.Path, f))
		}
		return rels, nil
	}
	var rels []string
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	return rels, err
}
