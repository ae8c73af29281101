// Package artifacts keeps generated reports in memory for deferred download
package artifacts

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown or expired artifacts
var ErrNotFound = errors.New("artifact not found")

// Artifact is a generated report awaiting download
type Artifact struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	Owner       string    `json:"owner,omitempty"` // subject that generated it; empty when auth is off
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Data        []byte    `json:"-"`
}

// Stats summarises store contents
type Stats struct {
	Artifacts int   `json:"artifacts"`
	Bytes     int64 `json:"bytes"`
	Expired   int64 `json:"expired"` // total removed by the sweeper
}

// Store manages artifact lifecycle. Expired artifacts are removed by a
// background sweep; call Stop to end it.
type Store struct {
	artifacts map[string]*Artifact
	byOwner   map[string][]string
	retention time.Duration
	maxBytes  int64
	bytes     int64
	expired   int64
	mu        sync.RWMutex
	logger    *zap.Logger
	now       func() time.Time

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
	done          chan struct{}
}

// Options configures a Store
type Options struct {
	Retention     time.Duration // how long an artifact stays downloadable
	SweepInterval time.Duration
	MaxBytes      int64 // total size cap; 0 means unlimited
	Logger        *zap.Logger
}

// ErrStoreFull is returned when adding an artifact would exceed MaxBytes
var ErrStoreFull = errors.New("artifact store is full")

// NewStore creates a store and starts its sweeper
func NewStore(opts Options) *Store {
	if opts.Retention <= 0 {
		opts.Retention = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Store{
		artifacts:     make(map[string]*Artifact),
		byOwner:       make(map[string][]string),
		retention:     opts.Retention,
		maxBytes:      opts.MaxBytes,
		logger:        opts.Logger,
		now:           time.Now,
		cleanupTicker: time.NewTicker(opts.SweepInterval),
		stopCleanup:   make(chan struct{}),
		done:          make(chan struct{}),
	}
	go s.cleanupRoutine()
	return s
}

// Put stores data and returns the new artifact's metadata
func (s *Store) Put(name, contentType, owner string, data []byte) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 && s.bytes+int64(len(data)) > s.maxBytes {
		return nil, ErrStoreFull
	}

	now := s.now().UTC()
	a := &Artifact{
		ID:          uuid.New().String(),
		Name:        name,
		ContentType: contentType,
		Size:        len(data),
		Owner:       owner,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.retention),
		Data:        data,
	}
	s.artifacts[a.ID] = a
	s.byOwner[owner] = append(s.byOwner[owner], a.ID)
	s.bytes += int64(len(data))

	meta := *a
	meta.Data = nil
	return &meta, nil
}

// Get returns an artifact. Artifacts owned by someone else are reported
// as not found.
func (s *Store) Get(id, owner string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.artifacts[id]
	if !ok || a.Owner != owner || !s.now().Before(a.ExpiresAt) {
		return nil, ErrNotFound
	}
	artifact := *a
	return &artifact, nil
}

// List returns metadata for the owner's unexpired artifacts, oldest first
func (s *Store) List(owner string) []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	ids := s.byOwner[owner]
	out := make([]Artifact, 0, len(ids))
	for _, id := range ids {
		a := *s.artifacts[id]
		if !now.Before(a.ExpiresAt) {
			continue
		}
		a.Data = nil
		out = append(out, a)
	}
	return out
}

// Delete removes an artifact
func (s *Store) Delete(id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[id]
	if !ok || a.Owner != owner {
		return ErrNotFound
	}
	s.removeInternal(a)
	return nil
}

// Stats returns current totals
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Artifacts: len(s.artifacts), Bytes: s.bytes, Expired: s.expired}
}

// Stop ends the sweeper and waits for it to exit
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		s.cleanupTicker.Stop()
		close(s.stopCleanup)
	})
	<-s.done
}

func (s *Store) cleanupRoutine() {
	defer close(s.done)
	for {
		select {
		case <-s.cleanupTicker.C:
			s.sweep()
		case <-s.stopCleanup:
			return
		}
	}
}

// sweep removes expired artifacts and returns how many were removed
func (s *Store) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for _, a := range s.artifacts {
		if now.Before(a.ExpiresAt) {
			continue
		}
		s.removeInternal(a)
		removed++
	}
	s.expired += int64(removed)
	if removed > 0 {
		s.logger.Debug("removed expired artifacts", zap.Int("count", removed))
	}
	return removed
}

// removeInternal removes an artifact without acquiring locks
func (s *Store) removeInternal(a *Artifact) {
	delete(s.artifacts, a.ID)
	s.bytes -= int64(a.Size)

	ids := s.byOwner[a.Owner]
	for i, id := range ids {
		if id == a.ID {
			s.byOwner[a.Owner] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byOwner[a.Owner]) == 0 {
		delete(s.byOwner, a.Owner)
	}
}
