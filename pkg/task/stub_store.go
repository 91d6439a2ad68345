package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// StubStore is an in-memory EventStore for tests. Errors can be injected per
// operation to exercise the optimistic-rollback paths.
type StubStore struct {
	mu    sync.Mutex
	order []string
	data  map[string]Task

	ListErr         error
	InsertErr       error
	UpdateErr       error
	SetCompletedErr error
	DeleteErr       error
}

func NewStubStore() *StubStore {
	return &StubStore{data: map[string]Task{}}
}

func (s *StubStore) List(_ context.Context) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	tasks := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		tasks = append(tasks, s.data[id])
	}
	return tasks, nil
}

func (s *StubStore) Insert(_ context.Context, t Task) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return Task{}, s.InsertErr
	}
	t.ID = uuid.NewString()
	s.data[t.ID] = t
	s.order = append(s.order, t.ID)
	return t, nil
}

func (s *StubStore) Update(_ context.Context, t Task) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateErr != nil {
		return Task{}, s.UpdateErr
	}
	stored, ok := s.data[t.ID]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	stored.Title = t.Title
	stored.Description = t.Description
	stored.StartTime = t.StartTime
	stored.EndTime = t.EndTime
	stored.AllDay = t.AllDay
	s.data[t.ID] = stored
	return stored, nil
}

func (s *StubStore) SetCompleted(_ context.Context, id string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetCompletedErr != nil {
		return s.SetCompletedErr
	}
	stored, ok := s.data[id]
	if !ok {
		return ErrTaskNotFound
	}
	stored.Completed = completed
	s.data[id] = stored
	return nil
}

func (s *StubStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	if _, ok := s.data[id]; !ok {
		return ErrTaskNotFound
	}
	delete(s.data, id)
	for i, storedId := range s.order {
		if storedId == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *StubStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string]Task{}
	s.order = nil
	s.ListErr, s.InsertErr, s.UpdateErr, s.SetCompletedErr, s.DeleteErr = nil, nil, nil, nil, nil
}
