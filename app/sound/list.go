package sound

import (
	"bitwise74/audio-api/internal"
	"bitwise74/audio-api/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type listItem struct {
	model.Sound

	// Time-boxed read capability, null when the record has no object
	// key to point at
	DownloadURL *string `json:"downloadUrl"`
}

// List handles GET /api/sounds. Only deleted records are excluded;
// archived ones stay visible and are recognizable by their status.
// Every item carries a fresh presigned download URL.
func List(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	ctx := c.Request.Context()

	sounds, err := d.Sounds.ListByOwner(ctx, userID, []model.SoundStatus{model.StatusDeleted})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list sounds", zap.Error(err))
		return
	}

	readTTL := viper.GetDuration("capability.read_ttl")
	items := make([]listItem, 0, len(sounds))

	for _, s := range sounds {
		item := listItem{Sound: s}

		// Records without an object key can't be played, the client
		// renders a placeholder for them instead of failing the list
		if s.ObjectKey != "" {
			url, err := d.Objects.PresignGet(ctx, s.ObjectKey, readTTL)
			if err != nil {
				zap.L().Warn("Failed to presign download URL", zap.Error(err), zap.String("id", s.ID))
			} else {
				item.DownloadURL = &url
			}
		}

		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
	})
}
