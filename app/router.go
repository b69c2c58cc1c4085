// Package app wires the HTTP surface together
package app

import (
	"bitwise74/audio-api/app/root"
	"bitwise74/audio-api/app/sound"
	"bitwise74/audio-api/aws"
	"bitwise74/audio-api/db"
	"bitwise74/audio-api/internal"
	"bitwise74/audio-api/internal/service"
	"bitwise74/audio-api/internal/store"
	"bitwise74/audio-api/pkg/middleware"
	"context"
	"fmt"
	"strings"
	"time"

	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

func NewRouter() (*gin.Engine, error) {
	makeLogger()

	d := &internal.Deps{}

	gormDB, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite database, %w", err)
	}
	d.Sounds = store.NewSoundStore(gormDB)

	s3, err := aws.NewS3(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
	}
	d.Objects = s3

	router := gin.New()

	origins := strings.Split(viper.GetString("host.cors"), ",")
	rateLimit := viper.GetInt("security.rate_limit")

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-Id", "X-Client-Principal"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("requestID", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	identity := middleware.NewIdentityMiddleware()
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
		CleanupInterval:   time.Second,
	})
	maxUploadSize := viper.GetInt64("upload.max_size")

	m := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 			-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)
	}

	s := m.Group("/sounds", identity)
	{
		// POST /api/sounds			-> Creates a sound record. Delegated mode also
		// returns a time-boxed upload URL, relayed mode takes the bytes inline
		s.POST("", middleware.BodySizeLimiter(maxUploadSize), func(c *gin.Context) { sound.Create(c, d) })

		// POST /api/sounds/:id/complete	-> Marks a delegated upload as done
		s.POST("/:id/complete", middleware.BodySizeLimiter(1<<20), func(c *gin.Context) { sound.Complete(c, d) })

		// GET /api/sounds			-> Lists the caller's sounds with download URLs
		s.GET("", func(c *gin.Context) { sound.List(c, d) })

		// GET /api/sounds/:id			-> Returns a single sound record
		s.GET("/:id", func(c *gin.Context) { sound.Fetch(c, d) })

		// DELETE /api/sounds/:id		-> Deletes a sound and its stored object
		s.DELETE("/:id", func(c *gin.Context) { sound.Delete(c, d) })
	}

	if viper.GetBool("sweep.enabled") {
		sweeper := service.NewSweeper(d)

		cr := cron.New()
		_, err := cr.AddFunc(viper.GetString("sweep.schedule"), func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			sweeper.Sweep(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule pending sweep, %w", err)
		}

		cr.Start()
	}

	return router, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
