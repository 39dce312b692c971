package llmcall

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the in-memory call history.
const DefaultCapacity = 1000

// QueryFilter specifies filters for listing LLM calls.
type QueryFilter struct {
	UserID    string
	JobID     string
	PartID    string
	PromptKey string
	Provider  string
	Model     string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

// Store keeps the most recent calls in memory. It is also a Recorder.
type Store struct {
	mu       sync.RWMutex
	calls    []Call
	capacity int
}

// NewStore creates a store holding at most capacity calls (DefaultCapacity if <= 0).
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

// Record appends the call, evicting the oldest when full.
func (s *Store) Record(call *Call) {
	if call == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) >= s.capacity {
		copy(s.calls, s.calls[1:])
		s.calls = s.calls[:len(s.calls)-1]
	}
	s.calls = append(s.calls, *call)
}

// Get retrieves a single LLM call by ID.
func (s *Store) Get(id string) (*Call, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.calls {
		if s.calls[i].ID == id {
			c := s.calls[i]
			return &c, true
		}
	}
	return nil, false
}

// List retrieves LLM calls matching the filter, newest first.
func (s *Store) List(filter QueryFilter) []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Call
	skipped := 0
	for i := len(s.calls) - 1; i >= 0; i-- {
		c := s.calls[i]
		if !filter.matches(c) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, c)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

func (f QueryFilter) matches(c Call) bool {
	switch {
	case f.UserID != "" && c.UserID != f.UserID:
		return false
	case f.JobID != "" && c.JobID != f.JobID:
		return false
	case f.PartID != "" && c.PartID != f.PartID:
		return false
	case f.PromptKey != "" && c.PromptKey != f.PromptKey:
		return false
	case f.Provider != "" && c.Provider != f.Provider:
		return false
	case f.Model != "" && c.Model != f.Model:
		return false
	case f.Success != nil && c.Success != *f.Success:
		return false
	case f.After != nil && !c.Timestamp.After(*f.After):
		return false
	case f.Before != nil && !c.Timestamp.Before(*f.Before):
		return false
	}
	return true
}
