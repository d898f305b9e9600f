package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/walkerlab/fsbridge"
)

// MinioConfig holds object-store backend configuration.
type MinioConfig struct {
	// Endpoint is the server address (e.g. "localhost:9000")
	Endpoint string `json:"endpoint"`

	// Bucket is the bucket backing the namespace
	Bucket string `json:"bucket"`

	// AccessKey and SecretKey authenticate when Client is not provided
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`

	// UseSSL enables HTTPS connections
	UseSSL bool `json:"use_ssl"`

	// Prefix namespaces all object keys under the bucket
	Prefix string `json:"prefix,omitempty"`

	// Client is an optional pre-configured client; when set,
	// Endpoint/AccessKey/SecretKey are ignored
	Client *minio.Client `json:"-"`

	// MaxRenameConcurrency bounds concurrent copies during directory
	// rename (default 10)
	MaxRenameConcurrency int `json:"max_rename_concurrency,omitempty"`
}

func (c *MinioConfig) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.Client != nil {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when client is not provided")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("access key is required when client is not provided")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required when client is not provided")
	}
	return nil
}

func RegisterMinio() {
	Register(MinioBackendType, func(raw []byte) (fsbridge.Backend, error) {
		var config MinioConfig
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, err
		}
		return NewMinio(config)
	})
}

// Minio implements fsbridge.Backend on any S3-compatible object store.
// Directories are emulated: a path is a directory when objects exist under
// its key prefix or when an explicit zero-byte "key/" marker was created by
// Mkdir. Append writes are not supported.
type Minio struct {
	client            *minio.Client
	bucket            string
	prefix            string
	renameConcurrency int
}

// NewMinio creates an object-store backend from config.
func NewMinio(cfg MinioConfig) (*Minio, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
	}
	renameConcurrency := cfg.MaxRenameConcurrency
	if renameConcurrency == 0 {
		renameConcurrency = 10
	}
	return &Minio{
		client:            client,
		bucket:            cfg.Bucket,
		prefix:            strings.Trim(cfg.Prefix, "/"),
		renameConcurrency: renameConcurrency,
	}, nil
}

// key maps a backend path onto an object key under the configured prefix.
func (m *Minio) key(p string) string {
	p = strings.Trim(p, "/")
	if m.prefix == "" {
		return p
	}
	if p == "" {
		return m.prefix
	}
	return m.prefix + "/" + p
}

// unkey maps an object key back to a backend path.
func (m *Minio) unkey(key string) string {
	if m.prefix != "" {
		key = strings.TrimPrefix(key, m.prefix)
	}
	return strings.Trim(key, "/")
}

// translateErr converts object-store error codes to stdlib fs errors.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fs.ErrNotExist
	case "AccessDenied":
		return fs.ErrPermission
	}
	return err
}

func isNotExist(err error) bool {
	return errors.Is(translateErr(err), fs.ErrNotExist)
}

func pathError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &fs.PathError{Op: op, Path: path, Err: translateErr(err)}
}

// hasChildren reports whether any object lives under the key prefix.
func (m *Minio) hasChildren(ctx context.Context, path string) (bool, error) {
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	prefix := m.key(path)
	if prefix != "" {
		prefix += "/"
	}
	for object := range m.client.ListObjects(listCtx, m.bucket, minio.ListObjectsOptions{
		Prefix:  prefix,
		MaxKeys: 1,
	}) {
		if object.Err != nil {
			return false, pathError("list", path, object.Err)
		}
		return true, nil
	}
	return false, nil
}

func (m *Minio) Exists(ctx context.Context, path string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, m.key(path), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if !isNotExist(err) {
		return false, pathError("stat", path, err)
	}
	return m.hasChildren(ctx, path)
}

func (m *Minio) IsDir(ctx context.Context, path string) (bool, error) {
	if strings.Trim(path, "/") == "" {
		return true, nil
	}
	return m.hasChildren(ctx, path)
}

func (m *Minio) IsFile(ctx context.Context, path string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, m.key(path), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	return false, pathError("stat", path, err)
}

func (m *Minio) Stat(ctx context.Context, path string) (fsbridge.Info, error) {
	info, err := m.client.StatObject(ctx, m.bucket, m.key(path), minio.StatObjectOptions{})
	if err == nil {
		// Object stores track a single timestamp; creation time stays
		// zero.
		return fsbridge.Info{Size: info.Size, ModTime: info.LastModified}, nil
	}
	if isNotExist(err) {
		isDir, derr := m.IsDir(ctx, path)
		if derr == nil && isDir {
			return fsbridge.Info{}, nil
		}
	}
	return fsbridge.Info{}, pathError("stat", path, err)
}

// Mkdir creates a zero-byte directory marker. Object stores have no real
// directories, so parent existence is not enforced.
func (m *Minio) Mkdir(ctx context.Context, path string) error {
	exists, err := m.Exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	return m.putMarker(ctx, path)
}

func (m *Minio) MkdirAll(ctx context.Context, path string, existOk bool) error {
	exists, err := m.Exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		if existOk {
			return nil
		}
		return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	return m.putMarker(ctx, path)
}

func (m *Minio) putMarker(ctx context.Context, path string) error {
	_, err := m.client.PutObject(ctx, m.bucket, m.key(path)+"/", bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	return pathError("mkdir", path, err)
}

func (m *Minio) List(ctx context.Context, dir string) ([]string, error) {
	prefix := m.key(dir)
	if prefix != "" {
		prefix += "/"
	}
	var names []string
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix: prefix,
	}) {
		if object.Err != nil {
			return nil, pathError("list", dir, object.Err)
		}
		name := strings.Trim(strings.TrimPrefix(object.Key, prefix), "/")
		if name == "" {
			continue // the directory marker itself
		}
		names = append(names, name)
	}
	return names, nil
}

func (m *Minio) Remove(ctx context.Context, path string) error {
	isFile, err := m.IsFile(ctx, path)
	if err != nil {
		return err
	}
	if !isFile {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	return pathError("remove", path, m.client.RemoveObject(ctx, m.bucket, m.key(path), minio.RemoveObjectOptions{}))
}

func (m *Minio) Rmdir(ctx context.Context, path string) error {
	names, err := m.List(ctx, path)
	if err != nil {
		return err
	}
	if len(names) > 0 {
		return &fs.PathError{Op: "rmdir", Path: path, Err: errors.New("directory not empty")}
	}
	return pathError("rmdir", path, m.client.RemoveObject(ctx, m.bucket, m.key(path)+"/", minio.RemoveObjectOptions{}))
}

func (m *Minio) RemoveAll(ctx context.Context, path string) error {
	prefix := m.key(path)
	if prefix != "" {
		prefix += "/"
	}
	objectsCh := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	go func() {
		defer close(objectsCh)
		for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if object.Err != nil {
				listErr <- object.Err
				return
			}
			objectsCh <- object
		}
		listErr <- nil
	}()
	// Drain the error channel to completion so the lister goroutine and
	// minio-go's sender are never left blocked; report the first failure
	// after everything has shut down.
	var rmFailed error
	for rmErr := range m.client.RemoveObjects(ctx, m.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rmErr.Err != nil && rmFailed == nil {
			rmFailed = rmErr.Err
		}
	}
	if rmFailed != nil {
		return pathError("rmtree", path, rmFailed)
	}
	if err := <-listErr; err != nil {
		return pathError("rmtree", path, err)
	}
	// A bare object at the path itself (file, not tree) is removed too.
	err := m.client.RemoveObject(ctx, m.bucket, m.key(path), minio.RemoveObjectOptions{})
	if err != nil && !isNotExist(err) {
		return pathError("rmtree", path, err)
	}
	return nil
}

// Rename moves a file via server-side copy + delete, or a directory by
// copying every object under the prefix with bounded concurrency. Object
// stores have no native rename.
func (m *Minio) Rename(ctx context.Context, src, dst string) error {
	isFile, err := m.IsFile(ctx, src)
	if err != nil {
		return err
	}
	if isFile {
		if err := m.Copy(ctx, src, dst); err != nil {
			return err
		}
		return pathError("rename", src, m.client.RemoveObject(ctx, m.bucket, m.key(src), minio.RemoveObjectOptions{}))
	}
	isDir, err := m.IsDir(ctx, src)
	if err != nil {
		return err
	}
	if !isDir {
		return &fs.PathError{Op: "rename", Path: src, Err: fs.ErrNotExist}
	}

	srcPrefix := m.key(src) + "/"
	dstPrefix := m.key(dst) + "/"
	var keys []string
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    srcPrefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return pathError("rename", src, object.Err)
		}
		keys = append(keys, object.Key)
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(m.renameConcurrency)
	for _, key := range keys {
		eg.Go(func() error {
			_, err := m.client.CopyObject(egCtx,
				minio.CopyDestOptions{Bucket: m.bucket, Object: dstPrefix + strings.TrimPrefix(key, srcPrefix)},
				minio.CopySrcOptions{Bucket: m.bucket, Object: key},
			)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return pathError("rename", src, err)
	}
	return m.RemoveAll(ctx, src)
}

func (m *Minio) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	// Missing keys surface on first Read otherwise; fail fast here.
	if _, err := m.client.StatObject(ctx, m.bucket, m.key(path), minio.StatObjectOptions{}); err != nil {
		return nil, pathError("open", path, err)
	}
	obj, err := m.client.GetObject(ctx, m.bucket, m.key(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, pathError("open", path, err)
	}
	return obj, nil
}

// OpenWrite streams the written bytes into a PutObject upload through a
// pipe; the upload result is observed on Close. Append is not supported by
// object stores.
func (m *Minio) OpenWrite(ctx context.Context, path string, appendTo bool) (io.WriteCloser, error) {
	if appendTo {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fsbridge.ErrUnsupported}
	}
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := m.client.PutObject(ctx, m.bucket, m.key(path), pr, -1, minio.PutObjectOptions{})
		pr.CloseWithError(err)
		done <- pathError("write", path, err)
	}()
	return &objectWriter{pw: pw, done: done}, nil
}

type objectWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *objectWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *objectWriter) Close() error {
	w.pw.Close()
	return <-w.done
}

func (m *Minio) Copy(ctx context.Context, src, dst string) error {
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.bucket, Object: m.key(dst)},
		minio.CopySrcOptions{Bucket: m.bucket, Object: m.key(src)},
	)
	return pathError("copy", src, err)
}

func (m *Minio) Find(ctx context.Context, root string) ([]string, error) {
	prefix := m.key(root)
	if prefix != "" {
		prefix += "/"
	}
	var files []string
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, pathError("find", root, object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue // directory markers
		}
		files = append(files, joinSlash(root, strings.TrimPrefix(object.Key, prefix)))
	}
	return files, nil
}
