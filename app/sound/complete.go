package sound

import (
	"bitwise74/audio-api/internal"
	"bitwise74/audio-api/internal/model"
	"bitwise74/audio-api/internal/store"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type completeRequest struct {
	Status string `json:"status,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

// Complete handles POST /api/sounds/:id/complete, the confirmation call
// of the delegated flow. The record moves to ready (or archived when
// asked) and the size is taken from the request or, failing that, from
// the stored object itself.
func Complete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	soundID := c.Param("id")
	if soundID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "ID is missing",
			"requestID": requestID,
		})
		return
	}

	var req completeRequest

	// The body is optional, an empty one means "mark ready"
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid request body",
				"requestID": requestID,
			})
			return
		}
	}

	ctx := c.Request.Context()

	sound, err := d.Sounds.Get(ctx, userID, soundID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "Sound not found. It either doesn't exist or you don't own it",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to read sound record", zap.Error(err))
		return
	}

	if req.Status == string(model.StatusArchived) {
		sound.Status = model.StatusArchived
	} else {
		sound.Status = model.StatusReady
	}

	// Prefer the authoritative byte count from storage over anything
	// the client declares
	switch {
	case req.Size > 0:
		sound.Size = req.Size
	case sound.Size == 0 && sound.ObjectKey != "":
		size, err := d.Objects.HeadObject(ctx, sound.ObjectKey)
		if err != nil {
			zap.L().Warn("Failed to stat uploaded object, size stays unset", zap.Error(err), zap.String("id", sound.ID))
		} else {
			sound.Size = size
		}
	}

	if err := replaceWithRetry(ctx, d, sound); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted between read and replace. Delete won the race,
			// report what the caller would see on a re-read.
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "Sound not found. It either doesn't exist or you don't own it",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to mark sound as ready", zap.Error(err), zap.String("id", sound.ID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sound marked as " + string(sound.Status) + ".",
		"sound":   sound,
	})
}
