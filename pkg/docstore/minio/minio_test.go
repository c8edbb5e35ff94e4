package minio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/wordstree/pkg/docstore"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(fmt.Errorf("dial tcp: refused")))
}

func TestMapErr(t *testing.T) {
	s := NewStore(nil, "trees", "")
	err := s.mapErr("oak.json", minio.ErrorResponse{Code: "NoSuchKey"})
	assert.True(t, errors.Is(err, docstore.ErrNotFound))
}

func TestStoreIntegration(t *testing.T) {
	endpoint := os.Getenv("WORDSTREE_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("WORDSTREE_MINIO_ENDPOINT not set")
	}
	ctx := context.Background()

	s, err := Dial(ctx, endpoint,
		os.Getenv("WORDSTREE_MINIO_ACCESS_KEY"), os.Getenv("WORDSTREE_MINIO_SECRET_KEY"),
		false, "wordstree-test", "docs")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(ctx, "oak.json", []byte(`{"name":"oak"}`)))
	data, err := s.Get(ctx, "oak.json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"oak"}`, string(data))

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, keys, "oak.json")

	require.NoError(t, s.Delete(ctx, "oak.json"))
	_, err = s.Get(ctx, "oak.json")
	assert.True(t, errors.Is(err, docstore.ErrNotFound))
}
