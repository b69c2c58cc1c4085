// Package service holds background jobs that run next to the HTTP
// handlers
package service

import (
	"bitwise74/audio-api/internal"
	"context"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Sweeper reclaims pending records left behind by delegated uploads
// that never called complete. A record is fair game once it is older
// than the write capability TTL, because the upload URL the client got
// can no longer be used after that.
type Sweeper struct {
	deps *internal.Deps
}

func NewSweeper(d *internal.Deps) *Sweeper {
	return &Sweeper{deps: d}
}

// Sweep deletes stale pending records, backing object first so a crash
// mid-sweep leaves a detectable record rather than an orphaned object.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-viper.GetDuration("capability.write_ttl"))

	stale, err := s.deps.Sounds.ListStalePending(ctx, cutoff)
	if err != nil {
		zap.L().Error("Failed to list stale pending records", zap.Error(err))
		return
	}

	if len(stale) == 0 {
		return
	}

	swept := 0

	for _, sound := range stale {
		if sound.ObjectKey != "" {
			if err := s.deps.Objects.DeleteObjectIfExists(ctx, sound.ObjectKey); err != nil {
				zap.L().Error("Failed to delete object of stale record",
					zap.Error(err),
					zap.String("id", sound.ID),
					zap.String("objectKey", sound.ObjectKey),
				)
				continue
			}
		}

		if err := s.deps.Sounds.Delete(ctx, sound.OwnerID, sound.ID); err != nil {
			zap.L().Error("Failed to delete stale record", zap.Error(err), zap.String("id", sound.ID))
			continue
		}

		swept++
	}

	zap.L().Info("Swept stale pending records", zap.Int("count", swept), zap.Int("candidates", len(stale)))
}
