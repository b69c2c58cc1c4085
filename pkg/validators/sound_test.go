package validators

import (
	"net/http"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSoundValidator(t *testing.T) {
	viper.Set("upload.allowed_types", []string{"audio/webm", "audio/wav", "audio/mpeg"})
	t.Cleanup(func() { viper.Reset() })

	t.Run("valid request", func(t *testing.T) {
		r := &CreateSoundRequest{Name: "Test", ClipStart: 0, ClipEnd: 5, Duration: 5, ContentType: "audio/webm"}
		code, err := CreateSoundValidator(r)
		require.NoError(t, err)
		assert.Zero(t, code)
	})

	t.Run("name trimmed", func(t *testing.T) {
		r := &CreateSoundRequest{Name: "  My Clip  ", ClipEnd: 1, ContentType: "audio/wav"}
		_, err := CreateSoundValidator(r)
		require.NoError(t, err)
		assert.Equal(t, "My Clip", r.Name)
	})

	t.Run("whitespace-only name rejected", func(t *testing.T) {
		r := &CreateSoundRequest{Name: "   ", ClipEnd: 1, ContentType: "audio/wav"}
		code, err := CreateSoundValidator(r)
		assert.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("clipEnd before clipStart rejected", func(t *testing.T) {
		r := &CreateSoundRequest{Name: "Test", ClipStart: 5, ClipEnd: 2, ContentType: "audio/wav"}
		code, err := CreateSoundValidator(r)
		assert.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("content type normalized to lowercase", func(t *testing.T) {
		r := &CreateSoundRequest{Name: "Test", ClipEnd: 1, ContentType: "Audio/WAV"}
		_, err := CreateSoundValidator(r)
		require.NoError(t, err)
		assert.Equal(t, "audio/wav", r.ContentType)
	})

	t.Run("missing content type defaults to webm", func(t *testing.T) {
		r := &CreateSoundRequest{Name: "Test", ClipEnd: 1}
		_, err := CreateSoundValidator(r)
		require.NoError(t, err)
		assert.Equal(t, "audio/webm", r.ContentType)
	})

	t.Run("disallowed content type rejected", func(t *testing.T) {
		r := &CreateSoundRequest{Name: "Test", ClipEnd: 1, ContentType: "video/mp4"}
		code, err := CreateSoundValidator(r)
		assert.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestSafeExt(t *testing.T) {
	assert.Equal(t, "mp3", SafeExt("audio/mpeg"))
	assert.Equal(t, "mp3", SafeExt("audio/mp3"))
	assert.Equal(t, "wav", SafeExt("audio/x-wav"))
	assert.Equal(t, "ogg", SafeExt("audio/ogg"))
	assert.Equal(t, "webm", SafeExt("audio/webm"))
	assert.Equal(t, "webm", SafeExt("application/octet-stream"))
}
