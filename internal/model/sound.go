// Package model defines database models
package model

import "time"

type SoundStatus string

const (
	// StatusPending means the record exists but the bytes may not be
	// in object storage yet
	StatusPending SoundStatus = "pending"
	// StatusReady guarantees an object exists at ObjectKey with a
	// length matching Size
	StatusReady SoundStatus = "ready"
	// StatusArchived items stay listed but are flagged by clients
	StatusArchived SoundStatus = "archived"
	// StatusDeleted is transient: records are hard-deleted right after
	// their backing object
	StatusDeleted SoundStatus = "deleted"
)

// Sound is one stored clip. ID and OwnerID form the composite key and
// OwnerID doubles as the partition boundary: no query crosses it.
type Sound struct {
	ID      string `gorm:"primaryKey" json:"id"`
	OwnerID string `gorm:"primaryKey;index" json:"ownerId"`

	DisplayName string `json:"displayName"`

	// Offsets in seconds into the original capture
	ClipStart float64 `json:"clipStart"`
	ClipEnd   float64 `json:"clipEnd"`

	// Length of the original, untrimmed capture
	Duration float64 `json:"duration"`

	ContentType string `json:"contentType"`

	// Derived from OwnerID, ID and a slug of the name, so the storage
	// location is reconstructible from the record alone
	ObjectKey string `json:"objectKey"`

	Status SoundStatus `json:"status"`

	// Byte length of the stored object, set once known
	Size int64 `json:"size"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updatedAt"`
}
