// Package job tracks asynchronous API work such as backtests and sweeps.
package job

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/sextant/internal/core"
)

// Status represents job status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Terminal reports whether no further status changes will happen.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Job represents an async job.
type Job struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Status    Status      `json:"status"`
	Progress  int         `json:"progress"`
	Result    any         `json:"result,omitempty"`
	Error     *core.Error `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type entry struct {
	job  Job
	subs map[int]chan Job
}

// Store manages async jobs. Finished jobs expire after the TTL; when the
// store is full the oldest finished job is evicted, and creation fails if
// every job is still active.
type Store struct {
	mu      sync.Mutex
	jobs    map[string]*entry
	order   []string // insertion order
	maxSize int
	ttl     time.Duration
	nextSub int
	now     func() time.Time
}

// NewStore creates a new job store.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Store{
		jobs:    make(map[string]*entry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create registers a pending job and returns a snapshot of it.
func (s *Store) Create(jobType string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	if len(s.jobs) >= s.maxSize && !s.evictLocked() {
		return Job{}, core.WrapError(core.ErrJobLimit, fmt.Errorf("%d jobs still running", len(s.jobs)))
	}

	j := Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[j.ID] = &entry{job: j}
	s.order = append(s.order, j.ID)
	return j, nil
}

// Get retrieves a job by ID.
func (s *Store) Get(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return Job{}, notFound(id)
	}
	return e.job, nil
}

// Update modifies a job and notifies its subscribers. Subscriptions are
// closed once the job reaches a terminal status. Updating a finished job is
// an error.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return notFound(id)
	}
	if e.job.Status.Terminal() {
		return fmt.Errorf("job %s already %s", id, e.job.Status)
	}

	fn(&e.job)
	e.job.UpdatedAt = s.now()

	for _, ch := range e.subs {
		publish(ch, e.job)
	}
	if e.job.Status.Terminal() {
		for key, ch := range e.subs {
			close(ch)
			delete(e.subs, key)
		}
	}
	return nil
}

// Subscribe returns a channel that always holds the latest snapshot of the
// job, starting with its current state. The channel is closed when the job
// finishes; cancel releases it early.
func (s *Store) Subscribe(id string) (<-chan Job, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return nil, nil, notFound(id)
	}

	ch := make(chan Job, 1)
	ch <- e.job
	if e.job.Status.Terminal() {
		close(ch)
		return ch, func() {}, nil
	}

	if e.subs == nil {
		e.subs = make(map[int]chan Job)
	}
	key := s.nextSub
	s.nextSub++
	e.subs[key] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := e.subs[key]; ok {
			close(c)
			delete(e.subs, key)
		}
	}
	return ch, cancel, nil
}

// List returns all jobs, oldest first.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		result = append(result, e.job)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Active counts unfinished jobs of the given type.
func (s *Store) Active(jobType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.jobs {
		if e.job.Type == jobType && !e.job.Status.Terminal() {
			n++
		}
	}
	return n
}

// publish replaces whatever snapshot is buffered with j. Callers hold the
// store lock, so the send never blocks.
func publish(ch chan Job, j Job) {
	select {
	case <-ch:
	default:
	}
	ch <- j
}

func (s *Store) pruneLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		e := s.jobs[id]
		if e.job.Status.Terminal() && now.Sub(e.job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

func (s *Store) evictLocked() bool {
	for i, id := range s.order {
		if s.jobs[id].job.Status.Terminal() {
			delete(s.jobs, id)
			s.order = append(s.order[:i], s.order[i+1:]...)
			return true
		}
	}
	return false
}

func notFound(id string) error {
	return core.WrapError(core.ErrJobNotFound, fmt.Errorf("job %s", id))
}
