package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/doneboard/doneboard/internal/utils"
	"github.com/doneboard/doneboard/pkg/user"
	log "github.com/sirupsen/logrus"
)

// StoreProvider resolves the remote store for the current user. Resolution
// happens before every remote call, which is also where the identity
// collaborator gets a chance to refresh the credential.
type StoreProvider func(ctx context.Context) (EventStore, error)

// Service coordinates reads and mutations against the remote store. Mutations
// are optimistic: the local view changes immediately and is rolled back in
// full when the remote call fails.
type Service interface {
	// Refresh fetches the remote truth and returns the recomputed snapshot.
	Refresh(ctx context.Context) (Snapshot, error)
	// Snapshot projects the current local view without a remote call.
	Snapshot(ctx context.Context) Snapshot
	CreateTask(ctx context.Context, t Task) (Task, error)
	UpdateTask(ctx context.Context, t Task) (Task, error)
	SetCompleted(ctx context.Context, id string, completed bool) (Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type ServiceImpl struct {
	stores StoreProvider
	clock  utils.Clock

	mu     sync.Mutex
	states map[int]*userTasks
}

// userTasks is one user's local view of the remote store: the last
// authoritative list plus the optimistic overlays of in-flight mutations.
type userTasks struct {
	mu      sync.Mutex
	locks   keyedMutex
	tasks   []Task              // last fetched remote list, remote order
	pending map[string]Task     // optimistic values for in-flight mutations
	deleted map[string]struct{} // optimistic deletes in flight
}

func NewService(stores StoreProvider) *ServiceImpl {
	return &ServiceImpl{
		stores: stores,
		clock:  &utils.SystemClock{},
		states: map[int]*userTasks{},
	}
}

func (s *ServiceImpl) Refresh(ctx context.Context) (Snapshot, error) {
	store, err := s.stores(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	tasks, err := store.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	state := s.state(ctx)
	state.mu.Lock()
	// The fetched list is authoritative; pending optimistic overlays are
	// reapplied on top of it in view.
	state.tasks = tasks
	view := state.view()
	state.mu.Unlock()

	return Project(view, s.today(ctx)), nil
}

func (s *ServiceImpl) Snapshot(ctx context.Context) Snapshot {
	state := s.state(ctx)
	state.mu.Lock()
	view := state.view()
	state.mu.Unlock()
	return Project(view, s.today(ctx))
}

func (s *ServiceImpl) CreateTask(ctx context.Context, t Task) (Task, error) {
	if t.ID != "" {
		return Task{}, fmt.Errorf("a new task must not carry an id")
	}
	if !t.HasEnd() {
		return Task{}, ErrMissingEnd
	}
	store, err := s.stores(ctx)
	if err != nil {
		return Task{}, err
	}

	created, err := store.Insert(ctx, t)
	if err != nil {
		// The tentative task never entered the local view; discarding it
		// is the whole rollback.
		return Task{}, fmt.Errorf("failed to create task: %w", err)
	}

	state := s.state(ctx)
	state.mu.Lock()
	state.tasks = append(state.tasks, created)
	state.mu.Unlock()

	log.Debugf("created task %s (%q)", created.ID, created.Title)
	return created, nil
}

func (s *ServiceImpl) UpdateTask(ctx context.Context, t Task) (Task, error) {
	if t.ID == "" {
		return Task{}, ErrTaskNotFound
	}
	// An update without an end would make the task uncategorizable.
	if !t.HasEnd() {
		return Task{}, ErrMissingEnd
	}
	store, err := s.stores(ctx)
	if err != nil {
		return Task{}, err
	}
	state := s.state(ctx)
	unlock := state.locks.lock(t.ID)
	defer unlock()

	state.mu.Lock()
	prior, ok := state.find(t.ID)
	if !ok {
		state.mu.Unlock()
		return Task{}, ErrTaskNotFound
	}
	// Optimistic replace of the editable fields; completion is owned by
	// SetCompleted and stays as it was.
	updated := prior
	updated.Title = t.Title
	updated.Description = t.Description
	updated.StartTime = t.StartTime
	updated.EndTime = t.EndTime
	updated.AllDay = t.AllDay
	state.pending[t.ID] = updated
	state.mu.Unlock()

	stored, err := store.Update(ctx, updated)
	state.mu.Lock()
	delete(state.pending, t.ID)
	if err == nil {
		state.replace(stored)
	}
	state.mu.Unlock()
	if err != nil {
		// Dropping the overlay restores the prior field values verbatim.
		return Task{}, fmt.Errorf("failed to update task %s: %w", t.ID, err)
	}
	return stored, nil
}

func (s *ServiceImpl) SetCompleted(ctx context.Context, id string, completed bool) (Task, error) {
	store, err := s.stores(ctx)
	if err != nil {
		return Task{}, err
	}
	state := s.state(ctx)
	unlock := state.locks.lock(id)
	defer unlock()

	state.mu.Lock()
	prior, ok := state.find(id)
	if !ok {
		state.mu.Unlock()
		return Task{}, ErrTaskNotFound
	}
	flipped := prior
	flipped.Completed = completed
	state.pending[id] = flipped
	state.mu.Unlock()

	// Only the completion flag goes over the wire; unrelated fields must
	// not be overwritten.
	err = store.SetCompleted(ctx, id, completed)
	state.mu.Lock()
	delete(state.pending, id)
	if err == nil {
		state.replace(flipped)
	}
	state.mu.Unlock()
	if err != nil {
		return Task{}, fmt.Errorf("failed to set completion of task %s: %w", id, err)
	}
	return flipped, nil
}

func (s *ServiceImpl) DeleteTask(ctx context.Context, id string) error {
	store, err := s.stores(ctx)
	if err != nil {
		return err
	}
	state := s.state(ctx)
	unlock := state.locks.lock(id)
	defer unlock()

	state.mu.Lock()
	if _, ok := state.find(id); !ok {
		state.mu.Unlock()
		return ErrTaskNotFound
	}
	state.deleted[id] = struct{}{}
	state.mu.Unlock()

	err = store.Delete(ctx, id)
	state.mu.Lock()
	delete(state.deleted, id)
	if err == nil {
		state.remove(id)
	}
	state.mu.Unlock()
	if err != nil {
		// The task reappears in the view; its category is recomputed at
		// projection time, so a date boundary crossed while the request
		// was in flight is reflected.
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

// state returns the per-user local view, creating it on first use. Requests
// without a user in context (tests, single-user setups) share one state.
func (s *ServiceImpl) state(ctx context.Context) *userTasks {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		userId = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userId]
	if !ok {
		state = &userTasks{
			pending: map[string]Task{},
			deleted: map[string]struct{}{},
		}
		s.states[userId] = state
	}
	return state
}

// view applies the pending optimistic overlays to the authoritative list.
// Callers must hold u.mu.
func (u *userTasks) view() []Task {
	view := make([]Task, 0, len(u.tasks))
	for _, t := range u.tasks {
		if _, ok := u.deleted[t.ID]; ok {
			continue
		}
		if p, ok := u.pending[t.ID]; ok {
			view = append(view, p)
			continue
		}
		view = append(view, t)
	}
	return view
}

func (u *userTasks) find(id string) (Task, bool) {
	if p, ok := u.pending[id]; ok {
		return p, true
	}
	for _, t := range u.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

func (u *userTasks) replace(t Task) {
	for i := range u.tasks {
		if u.tasks[i].ID == t.ID {
			u.tasks[i] = t
			return
		}
	}
	// A concurrent refresh may have dropped the task (deleted remotely);
	// committing then re-adds nothing.
}

func (u *userTasks) remove(id string) {
	for i := range u.tasks {
		if u.tasks[i].ID == id {
			u.tasks = append(u.tasks[:i], u.tasks[i+1:]...)
			return
		}
	}
}

// today returns the current instant in the current user's configured
// timezone, falling back to UTC. The timezone choice is the caller's policy;
// the engine never assumes UTC equals local time.
func (s *ServiceImpl) today(ctx context.Context) time.Time {
	now := s.clock.Now()
	u, err := user.CurrentUser(ctx)
	if err != nil || u.Settings.Timezone == "" {
		return now.UTC()
	}
	loc, err := time.LoadLocation(u.Settings.Timezone)
	if err != nil {
		log.Warnf("invalid timezone %q, falling back to UTC", u.Settings.Timezone)
		return now.UTC()
	}
	return now.In(loc)
}

// keyedMutex serializes mutations per task id. The remote store has no
// optimistic-concurrency token, so a second mutation on the same task waits
// for the in-flight one instead of racing it. Entries are dropped once the
// last holder releases, so the map does not grow with task id churn.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu      sync.Mutex
	holders int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*keyedLock{}
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.holders++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.holders--
		if l.holders == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
