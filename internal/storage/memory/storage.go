package memorystorage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moklem/tv-herren-bereich/internal/storage"
)

type Storage struct {
	mu   sync.RWMutex
	data map[string]storage.Event
	now  func() time.Time
}

func New() *Storage {
	return &Storage{data: make(map[string]storage.Event), now: time.Now}
}

func (s *Storage) Connect(_ context.Context) error {
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	return nil
}

func (s *Storage) AddEvent(_ context.Context, e *storage.Event) error {
	if err := storage.ValidateTimes(e); err != nil {
		return fmt.Errorf("event end time should be after of start time: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[e.ID]; ok {
		return fmt.Errorf("duplicate ID %q: %w", e.ID, storage.ErrDuplicateEventID)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	storage.PrepareNew(e, s.now())
	s.data[e.ID] = e.Clone()
	return nil
}

func (s *Storage) GetEvent(_ context.Context, id string) (storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	if !ok {
		return storage.Event{}, fmt.Errorf("event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	return e.Clone(), nil
}

func (s *Storage) ListEvents(_ context.Context, from time.Time, to time.Time) ([]storage.Event, error) {
	return s.selectBy(func(e storage.Event) bool {
		return !e.StartTime.Before(from) && e.StartTime.Before(to)
	}), nil
}

func (s *Storage) ListAll(_ context.Context) ([]storage.Event, error) {
	return s.selectBy(func(storage.Event) bool { return true }), nil
}

func (s *Storage) ListPendingAutoDecline(_ context.Context, now time.Time) ([]storage.Event, error) {
	return s.selectBy(func(e storage.Event) bool {
		return !e.AutoDeclineProcessed && e.VotingDeadline != nil && !e.VotingDeadline.After(now)
	}), nil
}

// UpdateEvent holds the write lock for the whole read-modify-write, so
// ErrConflict never happens here.
func (s *Storage) UpdateEvent(_ context.Context, id string, m storage.Mutator) (storage.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.data[id]
	if !ok {
		return storage.Event{}, fmt.Errorf("failed to update event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	next, err := storage.Apply(current, m, s.now())
	if err != nil {
		return current.Clone(), err
	}
	s.data[id] = next.Clone()
	return next, nil
}

func (s *Storage) selectBy(match func(storage.Event) bool) []storage.Event {
	events := make([]storage.Event, 0)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, event := range s.data {
		if match(event) {
			events = append(events, event.Clone())
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events
}
