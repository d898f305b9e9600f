package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/walkerlab/fsbridge"
)

// MockBackend implements fsbridge.Backend for testing across packages
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Exists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) IsDir(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) IsFile(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) Stat(ctx context.Context, path string) (fsbridge.Info, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(fsbridge.Info), args.Error(1)
}

func (m *MockBackend) Mkdir(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockBackend) MkdirAll(ctx context.Context, path string, existOk bool) error {
	return m.Called(ctx, path, existOk).Error(0)
}

func (m *MockBackend) List(ctx context.Context, dir string) ([]string, error) {
	args := m.Called(ctx, dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBackend) Remove(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockBackend) Rmdir(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockBackend) RemoveAll(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockBackend) Rename(ctx context.Context, src, dst string) error {
	return m.Called(ctx, src, dst).Error(0)
}

func (m *MockBackend) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockBackend) OpenWrite(ctx context.Context, path string, appendTo bool) (io.WriteCloser, error) {
	args := m.Called(ctx, path, appendTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockBackend) Copy(ctx context.Context, src, dst string) error {
	return m.Called(ctx, src, dst).Error(0)
}

func (m *MockBackend) Find(ctx context.Context, root string) ([]string, error) {
	args := m.Called(ctx, root)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
