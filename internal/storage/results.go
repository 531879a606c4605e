package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xaenox/gamer-card/internal/metrics"
	"github.com/xaenox/gamer-card/internal/models"
)

var ErrResultNotFound = errors.New("analysis not found")

// Record tracks one analysis from submission to completion
type Record struct {
	ID        uuid.UUID
	Profile   string
	Status    models.Status
	Progress  models.Progress
	Analysis  *models.Analysis
	Error     string
	Guidance  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResultStore keeps analyses in memory for a bounded time. Nothing survives a
// restart.
type ResultStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
	ttl     time.Duration
	now     func() time.Time
}

func NewResultStore(ttl time.Duration) *ResultStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultStore{
		records: make(map[uuid.UUID]*Record),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create registers a new running analysis and returns its id
func (s *ResultStore) Create(profile string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := uuid.New()
	s.records[id] = &Record{
		ID:        id,
		Profile:   profile,
		Status:    models.StatusRunning,
		Progress:  models.Progress{Stage: models.StageResolve},
		CreatedAt: now,
		UpdatedAt: now,
	}
	metrics.StoredAnalyses.Set(float64(len(s.records)))
	return id
}

// Get returns a copy of the record
func (s *ResultStore) Get(id uuid.UUID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[id]
	if !exists || s.expired(rec) {
		return Record{}, ErrResultNotFound
	}
	return *rec, nil
}

func (s *ResultStore) SetProgress(id uuid.UUID, p models.Progress) {
	s.update(id, func(r *Record) {
		r.Progress = p
	})
}

func (s *ResultStore) Complete(id uuid.UUID, analysis *models.Analysis) {
	s.update(id, func(r *Record) {
		r.Status = models.StatusDone
		r.Progress = models.Progress{Stage: models.StageDone}
		r.Analysis = analysis
	})
}

func (s *ResultStore) Fail(id uuid.UUID, message, guidance string) {
	s.update(id, func(r *Record) {
		r.Status = models.StatusFailed
		r.Error = message
		r.Guidance = guidance
	})
}

func (s *ResultStore) update(id uuid.UUID, fn func(*Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, exists := s.records[id]; exists {
		fn(rec)
		rec.UpdatedAt = s.now()
	}
}

// Prune drops finished records older than the TTL. Running records are kept.
func (s *ResultStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if s.expired(rec) {
			delete(s.records, id)
			removed++
		}
	}
	metrics.StoredAnalyses.Set(float64(len(s.records)))
	return removed
}

func (s *ResultStore) expired(r *Record) bool {
	return r.Status != models.StatusRunning && s.now().Sub(r.UpdatedAt) > s.ttl
}
