package pagination

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/imagegallery/internal/models"
	"golang.org/x/sync/singleflight"
)

// Lister fetches one page of images at a cursor
type Lister interface {
	ListImages(ctx context.Context, after string) (*models.Page, error)
}

// Store accumulates pages of image records in cursor order.
//
// GalleryState (the records) and the cursor are only mutated through
// FetchNext and Invalidate. A fetch that resolves after an invalidation
// belongs to an older generation and is dropped.
type Store struct {
	lister Lister
	group  singleflight.Group

	mu      sync.Mutex
	records []models.ImageRecord
	cursor  string
	loaded  bool
	gen     uint64
	err     error

	// OnPage is called after a page has been appended, outside the lock
	OnPage func(count int)

	refetch chan struct{}
}

// NewStore creates an empty store; nothing is fetched until FetchNext
func NewStore(lister Lister) *Store {
	return &Store{
		lister:  lister,
		refetch: make(chan struct{}, 1),
	}
}

// HasMore reports whether another page may exist. It is true before the
// first page has arrived.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.loaded || s.cursor != ""
}

// Loaded reports whether at least one page arrived since the last reset
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Records returns a copy of the accumulated records
func (s *Store) Records() []models.ImageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ImageRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Err returns the error of the last failed fetch, cleared by the next success
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// FetchNext requests the page at the current cursor and appends it.
// Concurrent callers for the same cursor share one request.
func (s *Store) FetchNext(ctx context.Context) error {
	return s.fetchNext(ctx, false)
}

// refetchFirst fetches the first page unless it already arrived, so a refetch
// signal never advances past the first page
func (s *Store) refetchFirst(ctx context.Context) error {
	return s.fetchNext(ctx, true)
}

func (s *Store) fetchNext(ctx context.Context, firstOnly bool) error {
	s.mu.Lock()
	if s.loaded && (firstOnly || s.cursor == "") {
		s.mu.Unlock()
		return nil
	}
	gen, cursor, loaded := s.gen, s.cursor, s.loaded
	s.mu.Unlock()

	// the shared request serves every waiter, so one caller leaving must
	// not cancel it for the others
	key := fmt.Sprintf("%d/%s", gen, cursor)
	_, err, _ := s.group.Do(key, func() (any, error) {
		return nil, s.fetch(context.WithoutCancel(ctx), gen, cursor, loaded)
	})
	return err
}

// walkNext fetches the page at the cursor on the caller's own context, so
// cancelling ctx aborts the request in flight
func (s *Store) walkNext(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded && s.cursor == "" {
		s.mu.Unlock()
		return nil
	}
	gen, cursor, loaded := s.gen, s.cursor, s.loaded
	s.mu.Unlock()

	return s.fetch(ctx, gen, cursor, loaded)
}

func (s *Store) fetch(ctx context.Context, gen uint64, cursor string, loaded bool) error {
	if !s.current(gen, cursor, loaded) {
		// someone already consumed this cursor
		return nil
	}

	page, err := s.lister.ListImages(ctx, cursor)

	s.mu.Lock()
	if s.gen != gen || s.cursor != cursor || s.loaded != loaded {
		s.mu.Unlock()
		slog.Debug("Discarding superseded page", "cursor", cursor, "generation", gen)
		return nil
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		return fmt.Errorf("failed to fetch page: %w", err)
	}
	s.records = append(s.records, page.Data...)
	s.cursor = page.NextCursor()
	s.loaded = true
	s.err = nil
	onPage := s.OnPage
	s.mu.Unlock()

	slog.Debug("Page appended", "cursor", cursor, "count", len(page.Data), "next", page.NextCursor())
	if onPage != nil {
		onPage(len(page.Data))
	}
	return nil
}

func (s *Store) current(gen uint64, cursor string, loaded bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && s.cursor == cursor && s.loaded == loaded
}

// Invalidate discards the accumulated records and cursor, then signals a
// fresh fetch from the first page. Repeated calls before the signal is
// consumed collapse into one pending refetch.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.records = nil
	s.cursor = ""
	s.loaded = false
	s.err = nil
	s.gen++
	s.mu.Unlock()

	select {
	case s.refetch <- struct{}{}:
	default:
	}
}

// Pending reports whether a refetch signal is waiting to be consumed
func (s *Store) Pending() bool {
	return len(s.refetch) > 0
}

// Run consumes refetch signals until ctx is done
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.refetch:
			if err := s.refetchFirst(ctx); err != nil {
				slog.Error("Refetch after invalidation failed", "err", err)
			}
		}
	}
}

// Drain consumes a pending refetch signal synchronously, if there is one.
// It is for callers that have no Run loop, such as the CLI.
func (s *Store) Drain(ctx context.Context) error {
	select {
	case <-s.refetch:
		return s.refetchFirst(ctx)
	default:
		return nil
	}
}

// Walk fetches pages until the collection is exhausted, calling fn with
// each newly appended slice of records
func (s *Store) Walk(ctx context.Context, fn func(records []models.ImageRecord) error) error {
	for s.HasMore() {
		if err := ctx.Err(); err != nil {
			return err
		}
		before := len(s.Records())
		if err := s.walkNext(ctx); err != nil {
			return err
		}
		records := s.Records()
		if len(records) < before {
			return fmt.Errorf("gallery was invalidated during walk")
		}
		if fn != nil {
			if err := fn(records[before:]); err != nil {
				return err
			}
		}
	}
	return nil
}
