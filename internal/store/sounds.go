// Package store implements the metadata gateway on top of gorm. Every
// operation is scoped by the owner id, which is the only access control
// boundary the system has.
package store

import (
	"bitwise74/audio-api/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means no record exists under (id, ownerID)
	ErrNotFound = errors.New("sound not found")
	// ErrConflict means a record already exists under (id, ownerID)
	ErrConflict = errors.New("sound already exists")
)

type SoundStore struct {
	db *gorm.DB
}

func NewSoundStore(db *gorm.DB) *SoundStore {
	return &SoundStore{db: db}
}

// Create inserts a new record and fails with ErrConflict if the
// composite key is already taken.
func (s *SoundStore) Create(ctx context.Context, sound *model.Sound) error {
	var count int64

	err := s.db.WithContext(ctx).
		Model(model.Sound{}).
		Where("id = ? AND owner_id = ?", sound.ID, sound.OwnerID).
		Count(&count).
		Error
	if err != nil {
		return fmt.Errorf("failed to check for existing sound, %w", err)
	}

	if count > 0 {
		return ErrConflict
	}

	err = s.db.WithContext(ctx).Create(sound).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create sound record, %w", err)
	}

	return nil
}

func (s *SoundStore) Get(ctx context.Context, ownerID, id string) (*model.Sound, error) {
	var sound model.Sound

	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&sound).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read sound record, %w", err)
	}

	return &sound, nil
}

// Replace overwrites the whole record keyed by (id, ownerID). The caller
// always supplies the complete desired record, there are no partial
// patches. UpdatedAt is refreshed here.
func (s *SoundStore) Replace(ctx context.Context, sound *model.Sound) error {
	sound.UpdatedAt = time.Now().UTC()

	res := s.db.WithContext(ctx).
		Model(model.Sound{}).
		Where("id = ? AND owner_id = ?", sound.ID, sound.OwnerID).
		Select("*").
		Omit("id", "owner_id", "created_at").
		Updates(sound)
	if res.Error != nil {
		return fmt.Errorf("failed to replace sound record, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the record. Deleting an absent record succeeds, which
// makes concurrent double-deletes a no-op.
func (s *SoundStore) Delete(ctx context.Context, ownerID, id string) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(model.Sound{}).
		Error
	if err != nil {
		return fmt.Errorf("failed to delete sound record, %w", err)
	}

	return nil
}

// ListByOwner returns the owner's records whose status is not in the
// exclusion set, most recently touched first.
func (s *SoundStore) ListByOwner(ctx context.Context, ownerID string, exclude []model.SoundStatus) ([]model.Sound, error) {
	q := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at desc")

	if len(exclude) > 0 {
		q = q.Where("status NOT IN ?", exclude)
	}

	var sounds []model.Sound

	err := q.Find(&sounds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sound records, %w", err)
	}

	return sounds, nil
}

// ListStalePending returns pending records across all owners that were
// last touched before the cutoff. Used by the sweeper to reclaim
// abandoned delegated uploads.
func (s *SoundStore) ListStalePending(ctx context.Context, olderThan time.Time) ([]model.Sound, error) {
	var sounds []model.Sound

	err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.StatusPending, olderThan).
		Find(&sounds).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending records, %w", err)
	}

	return sounds, nil
}
