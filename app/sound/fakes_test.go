package sound

import (
	"bitwise74/audio-api/internal"
	"bitwise74/audio-api/internal/model"
	"bitwise74/audio-api/internal/store"
	"bitwise74/audio-api/pkg/middleware"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// fakeStore is an in-memory SoundStore keyed by (ownerID, id).
type fakeStore struct {
	mu      sync.Mutex
	records map[[2]string]model.Sound

	createErr error
	// Fails this many Replace calls before succeeding
	replaceFailures int
	replaceCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[[2]string]model.Sound)}
}

func (f *fakeStore) key(ownerID, id string) [2]string {
	return [2]string{ownerID, id}
}

func (f *fakeStore) Create(_ context.Context, s *model.Sound) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}

	k := f.key(s.OwnerID, s.ID)
	if _, ok := f.records[k]; ok {
		return store.ErrConflict
	}

	f.records[k] = *s
	return nil
}

func (f *fakeStore) Get(_ context.Context, ownerID, id string) (*model.Sound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.records[f.key(ownerID, id)]
	if !ok {
		return nil, store.ErrNotFound
	}

	out := s
	return &out, nil
}

func (f *fakeStore) Replace(_ context.Context, s *model.Sound) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.replaceCalls++
	if f.replaceFailures > 0 {
		f.replaceFailures--
		return io.ErrUnexpectedEOF
	}

	k := f.key(s.OwnerID, s.ID)
	if _, ok := f.records[k]; !ok {
		return store.ErrNotFound
	}

	s.UpdatedAt = time.Now().UTC()
	f.records[k] = *s
	return nil
}

func (f *fakeStore) Delete(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.records, f.key(ownerID, id))
	return nil
}

func (f *fakeStore) ListByOwner(_ context.Context, ownerID string, exclude []model.SoundStatus) ([]model.Sound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Sound

	for k, s := range f.records {
		if k[0] != ownerID {
			continue
		}

		excluded := false
		for _, st := range exclude {
			if s.Status == st {
				excluded = true
				break
			}
		}

		if !excluded {
			out = append(out, s)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (f *fakeStore) ListStalePending(_ context.Context, olderThan time.Time) ([]model.Sound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Sound

	for _, s := range f.records {
		if s.Status == model.StatusPending && s.UpdatedAt.Before(olderThan) {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeObjects is an in-memory ObjectStore recording every call.
type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte

	putErr        error
	presignPutErr error
	deletes       []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) EnsureBucket(context.Context) error { return nil }

func (f *fakeObjects) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if f.presignPutErr != nil {
		return "", f.presignPutErr
	}
	return "https://storage.test/" + key + "?sig=put", nil
}

func (f *fakeObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + key + "?sig=get", nil
}

func (f *fakeObjects) PutObject(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) DeleteObjectIfExists(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, key)
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeObjects) HeadObject(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[key]
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	return int64(len(data)), nil
}

// newTestRouter registers the sound routes with the real identity
// middleware so tests can pick a caller via the X-User-Id header.
func newTestRouter(d *internal.Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("requestID", "test") })
	r.Use(middleware.NewIdentityMiddleware())

	r.POST("/api/sounds", func(c *gin.Context) { Create(c, d) })
	r.POST("/api/sounds/:id/complete", func(c *gin.Context) { Complete(c, d) })
	r.GET("/api/sounds", func(c *gin.Context) { List(c, d) })
	r.GET("/api/sounds/:id", func(c *gin.Context) { Fetch(c, d) })
	r.DELETE("/api/sounds/:id", func(c *gin.Context) { Delete(c, d) })

	return r
}
