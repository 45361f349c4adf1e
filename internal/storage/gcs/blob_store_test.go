package gcs

import (
	"context"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "reports"})
	require.ErrorContains(t, err, "client is required")

	_, err = New(&storage.Client{}, Config{})
	require.ErrorContains(t, err, "bucket name is required")
}

func TestObjectNamePrefix(t *testing.T) {
	t.Parallel()

	store, err := New(&storage.Client{}, Config{Bucket: "b", Prefix: "/reports/"})
	require.NoError(t, err)
	require.Equal(t, "reports/u1/a1.pdf", store.ObjectName("/u1/a1.pdf"))

	bare, err := New(&storage.Client{}, Config{Bucket: "b"})
	require.NoError(t, err)
	require.Equal(t, "u1/a1.pdf", bare.ObjectName("u1/a1.pdf"))
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	store, err := New(&storage.Client{}, Config{Bucket: "b"})
	require.NoError(t, err)
	_, err = store.PutObject(context.Background(), " ", "application/pdf", strings.NewReader("x"))
	require.ErrorContains(t, err, "path is required")
}
