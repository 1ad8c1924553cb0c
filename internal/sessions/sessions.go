package sessions

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/imagegallery/internal/metrics"
	"github.com/lehigh-university-libraries/imagegallery/internal/notice"
	"github.com/lehigh-university-libraries/imagegallery/internal/pagination"
	"github.com/lehigh-university-libraries/imagegallery/internal/upload"
	"github.com/lehigh-university-libraries/imagegallery/internal/validation"
)

// API is the part of the images API a session needs
type API interface {
	pagination.Lister
	upload.Creator
}

// Session is one browser's gallery: its pages, its add-image form and the
// flash messages waiting to be shown
type Session struct {
	ID      string
	Gallery *pagination.Store
	Flow    *upload.Flow

	cancel context.CancelFunc

	mu         sync.Mutex
	notices    []*notice.Notice
	violations validation.Result
	lastSeen   time.Time
}

// Touch marks the session as used now
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Flash queues a notice for the next page render
func (s *Session) Flash(n *notice.Notice) {
	if n == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
}

// TakeNotices returns the queued notices and clears them
func (s *Session) TakeNotices() []*notice.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

// SetViolations remembers the violations of the last submission
func (s *Session) SetViolations(r validation.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations = r
}

// TakeViolations returns the remembered violations and clears them
func (s *Session) TakeViolations() validation.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.violations
	s.violations = nil
	return out
}

// Store holds the sessions in memory
type Store struct {
	ctx     context.Context
	api     API
	storage upload.Storage

	sessions map[string]*Session
	mu       sync.RWMutex
}

// New creates a store. Each session's refetch loop runs until ctx is done
// or the session is removed.
func New(ctx context.Context, api API, storage upload.Storage) *Store {
	return &Store{
		ctx:      ctx,
		api:      api,
		storage:  storage,
		sessions: make(map[string]*Session),
	}
}

func (s *Store) Get(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// GetOrCreate returns the session for sessionID, creating a fresh one with a
// new id when it is unknown
func (s *Store) GetOrCreate(sessionID string) (*Session, bool) {
	if session, ok := s.Get(sessionID); ok {
		session.Touch()
		return session, false
	}
	return s.Create(), true
}

// Create starts a new session with its own gallery and upload flow
func (s *Store) Create() *Session {
	gallery := pagination.NewStore(s.api)
	gallery.OnPage = metrics.RecordPage

	runCtx, cancel := context.WithCancel(s.ctx)
	session := &Session{
		ID:       uuid.New().String(),
		Gallery:  gallery,
		Flow:     upload.NewFlow(s.storage, s.api, gallery),
		cancel:   cancel,
		lastSeen: time.Now(),
	}
	go gallery.Run(runCtx)

	s.mu.Lock()
	s.sessions[session.ID] = session
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetActiveSessions(n)
	slog.Debug("Session created", "session_id", session.ID)
	return session
}

func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	session, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	n := len(s.sessions)
	s.mu.Unlock()

	if exists {
		session.cancel()
		metrics.SetActiveSessions(n)
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than maxIdle and returns how many
// were removed
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	var expired []*Session
	for id, session := range s.sessions {
		if session.LastSeen().Before(cutoff) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, session := range expired {
		session.cancel()
	}
	if len(expired) > 0 {
		metrics.SetActiveSessions(n)
		slog.Info("Expired idle sessions", "count", len(expired), "remaining", n)
	}
	return len(expired)
}

// Janitor sweeps every interval until ctx is done
func (s *Store) Janitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(maxIdle)
		}
	}
}

// Close stops every session's refetch loop
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		session.cancel()
		delete(s.sessions, id)
	}
	metrics.SetActiveSessions(0)
}
