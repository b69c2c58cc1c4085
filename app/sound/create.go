// Package sound contains the handlers for the clip upload, listing and
// delete flows
package sound

import (
	"bitwise74/audio-api/audio"
	"bitwise74/audio-api/internal"
	"bitwise74/audio-api/internal/model"
	"bitwise74/audio-api/internal/store"
	"bitwise74/audio-api/pkg/util"
	"bitwise74/audio-api/pkg/validators"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// How often the final ready transition is retried before giving up and
// leaving a dangling object for the client to retry against
const readyReplaceRetries = 3

// Create handles POST /api/sounds. In delegated mode it creates a
// pending record and hands the client a write capability URL; in
// relayed mode it takes the bytes inline, stores them itself and
// responds with the record already marked ready.
func Create(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var req validators.CreateSoundRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Request body is required",
			"requestID": requestID,
		})
		return
	}

	if code, err := validators.CreateSoundValidator(&req); err != nil {
		c.JSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	relayed := viper.GetString("upload.mode") == "relayed"

	// Everything that can be rejected must be rejected before the
	// first durable write, so the payload is decoded up front.
	var data []byte

	if relayed {
		if req.Data == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Clip data is required",
				"requestID": requestID,
			})
			return
		}

		var err error

		data, err = base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Clip data is not valid base64",
				"requestID": requestID,
			})
			return
		}

		// WAV payloads are trimmed server-side so the stored object
		// only ever contains the selected range
		if validators.SafeExt(req.ContentType) == "wav" {
			data, err = audio.TrimWAV(data, req.ClipStart, req.ClipEnd)
			if err != nil {
				if errors.Is(err, audio.ErrDecode) {
					c.JSON(http.StatusBadRequest, gin.H{
						"error":     "Clip data could not be decoded as audio",
						"requestID": requestID,
					})
					return
				}

				c.JSON(http.StatusInternalServerError, gin.H{
					"error":     "Internal server error",
					"requestID": requestID,
				})

				zap.L().Error("Failed to trim clip", zap.Error(err))
				return
			}
		}
	}

	now := time.Now().UTC()
	sound := &model.Sound{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		DisplayName: req.Name,
		ClipStart:   req.ClipStart,
		ClipEnd:     req.ClipEnd,
		Duration:    req.Duration,
		ContentType: req.ContentType,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	sound.ObjectKey = objectKey(userID, sound.ID, req.Name, req.ContentType)

	ctx := c.Request.Context()

	if err := d.Sounds.Create(ctx, sound); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{
				"error":     "A sound with this id already exists",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create sound record", zap.Error(err))
		return
	}

	if !relayed {
		uploadURL, err := d.Objects.PresignPut(ctx, sound.ObjectKey, sound.ContentType, viper.GetDuration("capability.write_ttl"))
		if err != nil {
			// Nothing is in object storage yet, so rolling back is
			// just deleting the record
			if derr := d.Sounds.Delete(ctx, userID, sound.ID); derr != nil {
				zap.L().Error("Failed to roll back record after presign failure", zap.Error(derr))
			}

			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to presign upload URL", zap.Error(err))
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":   "Sound metadata created. Upload using the provided URL before it expires",
			"sound":     sound,
			"uploadUrl": uploadURL,
		})
		return
	}

	size := int64(len(data))

	if err := d.Objects.PutObject(ctx, sound.ObjectKey, bytes.NewReader(data), size, sound.ContentType); err != nil {
		// Compensate: a pending record with no prospect of bytes ever
		// arriving is worse than no record
		if derr := d.Sounds.Delete(ctx, userID, sound.ID); derr != nil {
			zap.L().Error("Failed to compensate after upload failure", zap.Error(derr), zap.String("id", sound.ID))
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to upload clip to S3", zap.Error(err))
		return
	}

	sound.Status = model.StatusReady
	sound.Size = size

	if err := replaceWithRetry(ctx, d, sound); err != nil {
		// The object exists but the record never became ready. The
		// object is left in place because deleting it could race with
		// a client retry.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to mark sound as ready", zap.Error(err), zap.String("id", sound.ID))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Sound stored.",
		"sound":   sound,
	})
}

func replaceWithRetry(ctx context.Context, d *internal.Deps, sound *model.Sound) error {
	var err error

	for i := range readyReplaceRetries {
		err = d.Sounds.Replace(ctx, sound)
		if err == nil || errors.Is(err, store.ErrNotFound) {
			return err
		}

		zap.L().Warn("Replace failed, retrying", zap.Error(err), zap.Int("attempt", i+1))
	}

	return err
}

// objectKey derives the storage location from the record fields alone:
// <owner>/<slug>-<id>.<ext>, falling back to the bare id when the name
// has no usable characters.
func objectKey(ownerID, id, name, contentType string) string {
	base := id
	if slug := util.Slugify(name); slug != "" {
		base = slug + "-" + id
	}

	return fmt.Sprintf("%s/%s.%s", ownerID, base, validators.SafeExt(contentType))
}
