package internal

import (
	"bitwise74/audio-api/internal/model"
	"context"
	"io"
	"time"
)

// SoundStore is the metadata gateway. Implemented by store.SoundStore,
// faked in handler tests.
type SoundStore interface {
	Create(ctx context.Context, sound *model.Sound) error
	Get(ctx context.Context, ownerID, id string) (*model.Sound, error)
	Replace(ctx context.Context, sound *model.Sound) error
	Delete(ctx context.Context, ownerID, id string) error
	ListByOwner(ctx context.Context, ownerID string, exclude []model.SoundStatus) ([]model.Sound, error)
	ListStalePending(ctx context.Context, olderThan time.Time) ([]model.Sound, error)
}

// ObjectStore is the blob gateway. Implemented by aws.S3Client.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	DeleteObjectIfExists(ctx context.Context, key string) error
	HeadObject(ctx context.Context, key string) (int64, error)
}

type Deps struct {
	Sounds  SoundStore
	Objects ObjectStore
}
