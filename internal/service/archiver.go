package service

import (
	"bytes"
	"context"

	"go.uber.org/zap"

	"github.com/MechDevelopment/mrbeam-backend/internal/domain"
	"github.com/MechDevelopment/mrbeam-backend/internal/repository"
)

// Stored describes the outcome of an archive call.
type Stored struct {
	Key string
	// Written is false when the key already existed and nothing was uploaded.
	Written bool
}

// Archiver uploads images under content-addressed keys. Because the key is
// derived from the content, an existing key means the image is already stored.
type Archiver struct {
	store repository.S3Repository
	log   *zap.Logger
}

func NewArchiver(store repository.S3Repository, log *zap.Logger) *Archiver {
	return &Archiver{
		store: store,
		log:   log.Named("archiver"),
	}
}

func (a *Archiver) Archive(ctx context.Context, data []byte, key, contentType string) (Stored, error) {
	exists, err := a.store.ObjectExists(ctx, key)
	if err != nil {
		return Stored{Key: key}, &domain.ArchiveError{Op: "head", Key: key, Err: err}
	}
	if exists {
		return Stored{Key: key}, nil
	}

	if err := a.store.UploadFile(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return Stored{Key: key}, &domain.ArchiveError{Op: "put", Key: key, Err: err}
	}

	return Stored{Key: key, Written: true}, nil
}
