// Package validators contains request validation helpers shared by the
// handlers
package validators

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// CreateSoundRequest is the body of POST /api/sounds. Data carries the
// base64 clip bytes and is only honored in relayed mode.
type CreateSoundRequest struct {
	Name        string  `json:"name"`
	ClipStart   float64 `json:"clipStart"`
	ClipEnd     float64 `json:"clipEnd"`
	Duration    float64 `json:"duration"`
	ContentType string  `json:"contentType"`
	Data        string  `json:"data,omitempty"`
}

// CreateSoundValidator checks the request before anything durable is
// written. It also normalizes the name and content type in place.
func CreateSoundValidator(r *CreateSoundRequest) (code int, err error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return http.StatusBadRequest, errors.New("a name is required to store the clip")
	}

	if r.ClipEnd <= r.ClipStart {
		return http.StatusBadRequest, errors.New("clipEnd must be greater than clipStart")
	}

	if r.ClipStart < 0 {
		return http.StatusBadRequest, errors.New("clipStart can't be negative")
	}

	if r.ContentType == "" {
		r.ContentType = "audio/webm"
	}
	r.ContentType = strings.ToLower(strings.TrimSpace(r.ContentType))

	allowed := viper.GetStringSlice("upload.allowed_types")
	if len(allowed) > 0 && !slices.Contains(allowed, r.ContentType) {
		return http.StatusBadRequest, errors.New("unsupported content type")
	}

	return 0, nil
}

// SafeExt maps a normalized audio content type onto the file extension
// used in object keys.
func SafeExt(contentType string) string {
	switch {
	case strings.Contains(contentType, "mp3"), strings.Contains(contentType, "mpeg"):
		return "mp3"
	case strings.Contains(contentType, "wav"):
		return "wav"
	case strings.Contains(contentType, "ogg"):
		return "ogg"
	default:
		return "webm"
	}
}
