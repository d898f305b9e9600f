package backends

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"

	"github.com/walkerlab/fsbridge"
)

func RegisterMem() {
	Register(MemBackendType, func([]byte) (fsbridge.Backend, error) {
		return NewBilly(memfs.New()), nil
	})
}

// Billy adapts any billy.Filesystem to the fsbridge.Backend contract. The
// in-memory variant (memfs) backs the "mem" registry type and most router
// tests; the same adapter works for any other billy implementation.
type Billy struct {
	bfs billy.Filesystem
}

func NewBilly(bfs billy.Filesystem) *Billy {
	return &Billy{bfs: bfs}
}

// Unwrap returns the underlying billy.Filesystem.
func (b *Billy) Unwrap() billy.Filesystem { return b.bfs }

func (b *Billy) Exists(_ context.Context, path string) (bool, error) {
	_, err := b.bfs.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (b *Billy) IsDir(_ context.Context, path string) (bool, error) {
	fi, err := b.bfs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return fi.IsDir(), nil
}

func (b *Billy) IsFile(_ context.Context, path string) (bool, error) {
	fi, err := b.bfs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return fi.Mode().IsRegular(), nil
}

func (b *Billy) Stat(_ context.Context, path string) (fsbridge.Info, error) {
	fi, err := b.bfs.Stat(path)
	if err != nil {
		return fsbridge.Info{}, err
	}
	return fsbridge.Info{Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

func (b *Billy) Mkdir(_ context.Context, path string) error {
	if dir, _ := splitBase(path); dir != "" {
		fi, err := b.bfs.Stat(dir)
		if err != nil || !fi.IsDir() {
			return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrNotExist}
		}
	}
	if _, err := b.bfs.Stat(path); err == nil {
		return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	return b.bfs.MkdirAll(path, 0o777)
}

func (b *Billy) MkdirAll(_ context.Context, path string, existOk bool) error {
	if !existOk {
		if _, err := b.bfs.Stat(path); err == nil {
			return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
		}
	}
	return b.bfs.MkdirAll(path, 0o777)
}

func (b *Billy) List(_ context.Context, dir string) ([]string, error) {
	infos, err := b.bfs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, fi := range infos {
		names[i] = fi.Name()
	}
	return names, nil
}

func (b *Billy) Remove(_ context.Context, path string) error {
	return b.bfs.Remove(path)
}

func (b *Billy) Rmdir(_ context.Context, path string) error {
	fi, err := b.bfs.Stat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &fs.PathError{Op: "rmdir", Path: path, Err: errors.New("not a directory")}
	}
	infos, err := b.bfs.ReadDir(path)
	if err != nil {
		return err
	}
	if len(infos) > 0 {
		return &fs.PathError{Op: "rmdir", Path: path, Err: errors.New("directory not empty")}
	}
	return b.bfs.Remove(path)
}

// RemoveAll removes path and its children. Billy has no recursive removal,
// so this recurses manually and returns nil for a missing path.
func (b *Billy) RemoveAll(ctx context.Context, path string) error {
	fi, err := b.bfs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if !fi.IsDir() {
		return b.bfs.Remove(path)
	}
	infos, err := b.bfs.ReadDir(path)
	if err != nil {
		return err
	}
	for _, child := range infos {
		if err := b.RemoveAll(ctx, joinSlash(path, child.Name())); err != nil {
			return err
		}
	}
	return b.bfs.Remove(path)
}

func (b *Billy) Rename(_ context.Context, src, dst string) error {
	return b.bfs.Rename(src, dst)
}

func (b *Billy) OpenRead(_ context.Context, path string) (io.ReadCloser, error) {
	return b.bfs.Open(path)
}

func (b *Billy) OpenWrite(_ context.Context, path string, appendTo bool) (io.WriteCloser, error) {
	if appendTo {
		return b.bfs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o666)
	}
	return b.bfs.Create(path)
}

func (b *Billy) Copy(_ context.Context, src, dst string) error {
	in, err := b.bfs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := b.bfs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (b *Billy) Find(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := b.findFiles(ctx, root, &files)
	return files, err
}

func (b *Billy) findFiles(ctx context.Context, dir string, files *[]string) error {
	infos, err := b.bfs.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, fi := range infos {
		child := joinSlash(dir, fi.Name())
		if fi.IsDir() {
			if err := b.findFiles(ctx, child, files); err != nil {
				return err
			}
			continue
		}
		if fi.Mode().IsRegular() {
			*files = append(*files, child)
		}
	}
	return nil
}
