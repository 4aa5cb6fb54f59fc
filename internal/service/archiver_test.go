package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MechDevelopment/mrbeam-backend/internal/domain"
)

func TestArchiver_WritesOnceForSameKey(t *testing.T) {
	store := newFakeStore()
	archiver := NewArchiver(store, zap.NewNop())
	ctx := context.Background()
	data := []byte("image-bytes")

	first, err := archiver.Archive(ctx, data, "hash.jpg", "image/jpeg")
	require.NoError(t, err)
	require.True(t, first.Written)

	second, err := archiver.Archive(ctx, data, "hash.jpg", "image/jpeg")
	require.NoError(t, err)
	require.False(t, second.Written)

	require.Equal(t, 1, store.Puts())
	stored, ok := store.Object("hash.jpg")
	require.True(t, ok)
	require.Equal(t, data, stored)
}

func TestArchiver_HeadFailureIsHard(t *testing.T) {
	store := newFakeStore()
	store.headErr = errBoom
	archiver := NewArchiver(store, zap.NewNop())

	_, err := archiver.Archive(context.Background(), []byte("x"), "k.png", "image/png")

	var archiveErr *domain.ArchiveError
	require.ErrorAs(t, err, &archiveErr)
	require.Equal(t, "head", archiveErr.Op)
	require.ErrorIs(t, err, errBoom)
	require.Zero(t, store.Puts())
}

func TestArchiver_PutFailure(t *testing.T) {
	store := newFakeStore()
	store.putErr = errBoom
	archiver := NewArchiver(store, zap.NewNop())

	stored, err := archiver.Archive(context.Background(), []byte("x"), "k.png", "image/png")

	var archiveErr *domain.ArchiveError
	require.ErrorAs(t, err, &archiveErr)
	require.Equal(t, "put", archiveErr.Op)
	require.Equal(t, "k.png", archiveErr.Key)
	require.False(t, stored.Written)
}
