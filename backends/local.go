package backends

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/walkerlab/fsbridge"
)

// LocalConfig holds local backend configuration for the factory registry.
type LocalConfig struct {
	// Root, when set, prefixes every backend path. Empty operates on
	// paths as given.
	Root string `json:"root,omitempty"`
}

func RegisterLocal() {
	Register(LocalBackendType, func(raw []byte) (fsbridge.Backend, error) {
		var config LocalConfig
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, err
		}
		return NewLocal(config.Root), nil
	})
}

// Local implements fsbridge.Backend on the host filesystem. It is the
// reference implementation of the capability contract.
type Local struct {
	root string
}

func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (l *Local) resolve(p string) string {
	p = filepath.FromSlash(p)
	if l.root == "" {
		return p
	}
	return filepath.Join(l.root, p)
}

func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(l.resolve(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (l *Local) IsDir(_ context.Context, path string) (bool, error) {
	fi, err := os.Stat(l.resolve(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return fi.IsDir(), nil
}

func (l *Local) IsFile(_ context.Context, path string) (bool, error) {
	fi, err := os.Stat(l.resolve(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return fi.Mode().IsRegular(), nil
}

func (l *Local) Stat(_ context.Context, path string) (fsbridge.Info, error) {
	fi, err := os.Stat(l.resolve(path))
	if err != nil {
		return fsbridge.Info{}, err
	}
	// Creation time is not portably available; it stays zero.
	return fsbridge.Info{Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

func (l *Local) Mkdir(_ context.Context, path string) error {
	return os.Mkdir(l.resolve(path), 0o777)
}

func (l *Local) MkdirAll(_ context.Context, path string, existOk bool) error {
	resolved := l.resolve(path)
	if !existOk {
		if _, err := os.Stat(resolved); err == nil {
			return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
		}
	}
	return os.MkdirAll(resolved, 0o777)
}

func (l *Local) List(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(l.resolve(dir))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (l *Local) Remove(_ context.Context, path string) error {
	return os.Remove(l.resolve(path))
}

func (l *Local) Rmdir(_ context.Context, path string) error {
	resolved := l.resolve(path)
	fi, err := os.Stat(resolved)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &fs.PathError{Op: "rmdir", Path: path, Err: errors.New("not a directory")}
	}
	return os.Remove(resolved)
}

func (l *Local) RemoveAll(_ context.Context, path string) error {
	return os.RemoveAll(l.resolve(path))
}

func (l *Local) Rename(_ context.Context, src, dst string) error {
	return os.Rename(l.resolve(src), l.resolve(dst))
}

func (l *Local) OpenRead(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(l.resolve(path))
}

func (l *Local) OpenWrite(_ context.Context, path string, appendTo bool) (io.WriteCloser, error) {
	flag := os.O_WRONLY | os.O_CREATE
	if appendTo {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}
	return os.OpenFile(l.resolve(path), flag, 0o666)
}

func (l *Local) Copy(_ context.Context, src, dst string) error {
	in, err := os.Open(l.resolve(src))
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(l.resolve(dst))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// Permission propagation is best-effort.
	if fi, err := in.Stat(); err == nil {
		_ = os.Chmod(l.resolve(dst), fi.Mode().Perm())
	}
	return nil
}

func (l *Local) Find(_ context.Context, root string) ([]string, error) {
	resolved := l.resolve(root)
	var files []string
	err := filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(resolved, p)
		if err != nil {
			return err
		}
		files = append(files, joinSlash(root, filepath.ToSlash(rel)))
		return nil
	})
	return files, err
}
