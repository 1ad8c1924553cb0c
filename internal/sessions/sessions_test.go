package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/imagegallery/internal/models"
	"github.com/lehigh-university-libraries/imagegallery/internal/notice"
	"github.com/lehigh-university-libraries/imagegallery/internal/validation"
)

type fakeAPI struct {
	mu      sync.Mutex
	lists   []string
	created []models.ImageInput
}

func (f *fakeAPI) ListImages(ctx context.Context, after string) (*models.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, after)
	return &models.Page{Data: []models.ImageRecord{{ID: "1"}}}, nil
}

func (f *fakeAPI) CreateImage(ctx context.Context, input models.ImageInput) (*models.ImageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, input)
	return &models.ImageRecord{ID: "2", URL: input.URL}, nil
}

type fakeStorage struct{}

func (fakeStorage) Upload(ctx context.Context, file models.FileUpload) (string, error) {
	return "http://cdn/" + file.Name, nil
}

func newStore(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	store := New(ctx, &fakeAPI{}, fakeStorage{})
	t.Cleanup(func() {
		store.Close()
		cancel()
	})
	return store
}

func TestStore_GetOrCreate(t *testing.T) {
	store := newStore(t)

	first, created := store.GetOrCreate("")
	if !created {
		t.Fatal("expected a new session for an empty id")
	}
	if first.ID == "" || first.Gallery == nil || first.Flow == nil {
		t.Fatalf("incomplete session: %+v", first)
	}

	again, created := store.GetOrCreate(first.ID)
	if created || again != first {
		t.Error("known id should return the same session")
	}

	unknown, created := store.GetOrCreate("forged")
	if !created || unknown.ID == "forged" {
		t.Error("unknown ids must not be adopted")
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestSession_SubmitInvalidatesItsOwnGallery(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	a := store.Create()
	b := store.Create()

	for _, s := range []*Session{a, b} {
		if err := s.Gallery.FetchNext(ctx); err != nil {
			t.Fatalf("FetchNext() error = %v", err)
		}
	}

	a.Flow.SelectFile(ctx, models.FileUpload{Name: "x.png", Size: 10, ContentType: "image/png"})
	out := a.Flow.Submit(ctx, "ab", "ok")
	if out.Notice == nil || out.Notice.Kind != notice.SubmitSucceeded {
		t.Fatalf("Notice = %+v", out.Notice)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !a.Gallery.Loaded() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !a.Gallery.Loaded() {
		t.Error("session gallery was not refetched")
	}
	if len(b.Gallery.Records()) != 1 {
		t.Error("other sessions must keep their pages")
	}
}

func TestSession_Flash(t *testing.T) {
	store := newStore(t)
	s := store.Create()

	s.Flash(nil)
	s.Flash(&notice.Notice{Kind: notice.SubmitSucceeded})
	s.SetViolations(validation.Result{validation.FieldTitle: {Field: validation.FieldTitle}})

	if got := s.TakeNotices(); len(got) != 1 {
		t.Errorf("TakeNotices() = %d notices, want 1", len(got))
	}
	if got := s.TakeNotices(); len(got) != 0 {
		t.Error("notices should be shown once")
	}
	if got := s.TakeViolations(); len(got) != 1 {
		t.Errorf("TakeViolations() = %v", got)
	}
	if got := s.TakeViolations(); got != nil {
		t.Error("violations should be shown once")
	}
}

func TestStore_Sweep(t *testing.T) {
	store := newStore(t)
	idle := store.Create()
	active := store.Create()

	idle.mu.Lock()
	idle.lastSeen = time.Now().Add(-2 * time.Hour)
	idle.mu.Unlock()

	if n := store.Sweep(time.Hour); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := store.Get(idle.ID); ok {
		t.Error("idle session should be removed")
	}
	if _, ok := store.Get(active.ID); !ok {
		t.Error("active session should be kept")
	}
}

func TestStore_Delete(t *testing.T) {
	store := newStore(t)
	s := store.Create()
	store.Delete(s.ID)
	store.Delete(s.ID)
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}
