package backends

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinioConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     MinioConfig
		wantErr string
	}{
		{
			name:    "missing_bucket",
			cfg:     MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"},
			wantErr: "bucket",
		},
		{
			name:    "missing_endpoint",
			cfg:     MinioConfig{Bucket: "b", AccessKey: "a", SecretKey: "s"},
			wantErr: "endpoint",
		},
		{
			name:    "missing_access_key",
			cfg:     MinioConfig{Endpoint: "localhost:9000", Bucket: "b", SecretKey: "s"},
			wantErr: "access key",
		},
		{
			name:    "missing_secret_key",
			cfg:     MinioConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a"},
			wantErr: "secret key",
		},
		{
			name: "complete",
			cfg:  MinioConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s"},
		},
		{
			name: "client_overrides_credentials",
			cfg:  MinioConfig{Bucket: "b", Client: &minio.Client{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMinio_KeyMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		path   string
		key    string
	}{
		{"no_prefix", "", "a/b.txt", "a/b.txt"},
		{"no_prefix_leading_slash_trimmed", "", "/a/b.txt", "a/b.txt"},
		{"with_prefix", "data", "a/b.txt", "data/a/b.txt"},
		{"with_prefix_empty_path", "data", "", "data"},
		{"prefix_slashes_normalized", "data", "/a/", "data/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &Minio{prefix: tt.prefix}
			key := m.key(tt.path)
			assert.Equal(t, tt.key, key)

			// unkey inverts key up to separator normalization
			if tt.path != "" {
				assert.Equal(t, m.unkey(key), m.unkey(m.key(m.unkey(key))))
			}
		})
	}
}

func TestMinio_Unkey(t *testing.T) {
	t.Parallel()

	m := &Minio{prefix: "data"}
	assert.Equal(t, "a/b.txt", m.unkey("data/a/b.txt"))
	assert.Equal(t, "a", m.unkey("data/a/"))

	bare := &Minio{}
	assert.Equal(t, "a/b.txt", bare.unkey("a/b.txt"))
}

func TestTranslateErr(t *testing.T) {
	t.Parallel()

	assert.NoError(t, translateErr(nil))

	other := errors.New("plain failure")
	assert.Equal(t, other, translateErr(other), "non-store errors pass through")

	notFound := minio.ErrorResponse{Code: "NoSuchKey"}
	assert.ErrorIs(t, translateErr(notFound), fs.ErrNotExist)
	assert.True(t, isNotExist(notFound))

	denied := minio.ErrorResponse{Code: "AccessDenied"}
	assert.ErrorIs(t, translateErr(denied), fs.ErrPermission)
}

func TestNewMinio_Defaults(t *testing.T) {
	t.Parallel()

	m, err := NewMinio(MinioConfig{
		Endpoint:  "localhost:9000",
		Bucket:    "test",
		AccessKey: "a",
		SecretKey: "s",
		Prefix:    "/ns/",
	})
	require.NoError(t, err)
	assert.Equal(t, "ns", m.prefix, "prefix separators are normalized")
	assert.Equal(t, 10, m.renameConcurrency)

	m, err = NewMinio(MinioConfig{
		Endpoint:             "localhost:9000",
		Bucket:               "test",
		AccessKey:            "a",
		SecretKey:            "s",
		MaxRenameConcurrency: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, m.renameConcurrency)
}
