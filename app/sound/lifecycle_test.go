package sound

import (
	"bitwise74/audio-api/internal/model"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSound(t *testing.T, s *fakeStore, owner, id string, status model.SoundStatus, objectKey string) {
	t.Helper()

	now := time.Now().UTC()
	err := s.Create(t.Context(), &model.Sound{
		ID:          id,
		OwnerID:     owner,
		DisplayName: "Seeded " + id,
		ClipStart:   0,
		ClipEnd:     5,
		Duration:    5,
		ContentType: "audio/wav",
		ObjectKey:   objectKey,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
}

func TestCompleteMarksReady(t *testing.T) {
	sounds, objects, d := setupCreate(t, "delegated")
	r := newTestRouter(d)

	seedSound(t, sounds, "alice", "s1", model.StatusPending, "alice/s1.wav")
	objects.objects["alice/s1.wav"] = make([]byte, 1234)

	w := doJSON(r, http.MethodPost, "/api/sounds/s1/complete", "alice", map[string]any{"size": 1234})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp soundResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusReady, resp.Sound.Status)
	assert.Equal(t, int64(1234), resp.Sound.Size)

	rec, err := sounds.Get(t.Context(), "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, rec.Status)
}

func TestCompleteFallsBackToStoredObjectSize(t *testing.T) {
	sounds, objects, d := setupCreate(t, "delegated")
	r := newTestRouter(d)

	seedSound(t, sounds, "alice", "s1", model.StatusPending, "alice/s1.wav")
	objects.objects["alice/s1.wav"] = make([]byte, 4096)

	// No size in the body, the object itself is authoritative
	w := doJSON(r, http.MethodPost, "/api/sounds/s1/complete", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	rec, err := sounds.Get(t.Context(), "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(4096), rec.Size)
}

func TestCompleteArchives(t *testing.T) {
	sounds, _, d := setupCreate(t, "delegated")
	r := newTestRouter(d)

	seedSound(t, sounds, "alice", "s1", model.StatusReady, "alice/s1.wav")

	w := doJSON(r, http.MethodPost, "/api/sounds/s1/complete", "alice", map[string]any{"status": "archived"})
	require.Equal(t, http.StatusOK, w.Code)

	rec, err := sounds.Get(t.Context(), "alice", "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusArchived, rec.Status)
}

func TestCompleteUnknownID(t *testing.T) {
	sounds, _, d := setupCreate(t, "delegated")
	r := newTestRouter(d)

	w := doJSON(r, http.MethodPost, "/api/sounds/nope/complete", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Another owner's record must look exactly like a missing one
	seedSound(t, sounds, "bob", "s1", model.StatusPending, "bob/s1.wav")
	w = doJSON(r, http.MethodPost, "/api/sounds/s1/complete", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAttachesDownloadURLs(t *testing.T) {
	sounds, _, d := setupCreate(t, "delegated")
	r := newTestRouter(d)

	seedSound(t, sounds, "alice", "ready1", model.StatusReady, "alice/ready1.wav")
	seedSound(t, sounds, "alice", "broken", model.StatusReady, "")
	seedSound(t, sounds, "alice", "archived1", model.StatusArchived, "alice/archived1.wav")

	w := doJSON(r, http.MethodGet, "/api/sounds", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []struct {
			model.Sound
			DownloadURL *string `json:"downloadUrl"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 3, "archived records stay listed")

	for _, item := range resp.Items {
		switch item.ID {
		case "ready1", "archived1":
			require.NotNil(t, item.DownloadURL, "id %s", item.ID)
			assert.Contains(t, *item.DownloadURL, "sig=get")
		case "broken":
			assert.Nil(t, item.DownloadURL, "records without an object key get a null URL")
		}
	}
}

func TestListIsolatedPerOwner(t *testing.T) {
	sounds, _, d := setupCreate(t, "delegated")
	r := newTestRouter(d)

	seedSound(t, sounds, "alice", "a1", model.StatusReady, "alice/a1.wav")
	seedSound(t, sounds, "bob", "b1", model.StatusReady, "bob/b1.wav")

	w := doJSON(r, http.MethodGet, "/api/sounds", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []model.Sound `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "a1", resp.Items[0].ID)
}

func TestListAnonymousFallback(t *testing.T) {
	sounds, _, d := setupCreate(t, "delegated")
	r := newTestRouter(d)

	seedSound(t, sounds, "anonymous", "anon1", model.StatusReady, "anonymous/anon1.wav")

	// No identity headers at all
	w := doJSON(r, http.MethodGet, "/api/sounds", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []model.Sound `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "anon1", resp.Items[0].ID)
}

func TestFetchUnknownID(t *testing.T) {
	_, _, d := setupCreate(t, "delegated")
	r := newTestRouter(d)

	w := doJSON(r, http.MethodGet, "/api/sounds/ghost", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteRemovesObjectThenRecord(t *testing.T) {
	sounds, objects, d := setupCreate(t, "delegated")
	r := newTestRouter(d)

	seedSound(t, sounds, "alice", "s1", model.StatusReady, "alice/s1.wav")
	objects.objects["alice/s1.wav"] = []byte("clip bytes")

	w := doJSON(r, http.MethodDelete, "/api/sounds/s1", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.NotContains(t, objects.objects, "alice/s1.wav")
	assert.Equal(t, []string{"alice/s1.wav"}, objects.deletes)

	w = doJSON(r, http.MethodGet, "/api/sounds/s1", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteIsIdempotent(t *testing.T) {
	sounds, objects, d := setupCreate(t, "delegated")
	r := newTestRouter(d)

	seedSound(t, sounds, "alice", "s1", model.StatusReady, "alice/s1.wav")
	objects.objects["alice/s1.wav"] = []byte("clip bytes")

	w := doJSON(r, http.MethodDelete, "/api/sounds/s1", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The second delete sees a missing record, never an error
	w = doJSON(r, http.MethodDelete, "/api/sounds/s1", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCrossOwnerLooksMissing(t *testing.T) {
	sounds, objects, d := setupCreate(t, "delegated")
	r := newTestRouter(d)

	seedSound(t, sounds, "bob", "s1", model.StatusReady, "bob/s1.wav")
	objects.objects["bob/s1.wav"] = []byte("bob's clip")

	w := doJSON(r, http.MethodDelete, "/api/sounds/s1", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, objects.objects, "bob/s1.wav", "another owner's object must survive")
}
