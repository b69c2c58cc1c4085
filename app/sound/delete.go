package sound

import (
	"bitwise74/audio-api/internal"
	"bitwise74/audio-api/internal/store"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Delete handles DELETE /api/sounds/:id. The object goes first, then
// the record: a crash in between leaves a record pointing at nothing,
// which is detectable, instead of an unreferenced object nobody can
// find again. Concurrent deletes race on the initial read and the loser
// simply sees a 404.
func Delete(c *gin.Context, d *internal.Deps) {
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

	if sound.ObjectKey != "" {
		if err := d.Objects.DeleteObjectIfExists(ctx, sound.ObjectKey); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to delete object from S3", zap.Error(err), zap.String("objectKey", sound.ObjectKey))
			return
		}
	}

	if err := d.Sounds.Delete(ctx, userID, soundID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete sound record", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sound deleted.",
	})
}
