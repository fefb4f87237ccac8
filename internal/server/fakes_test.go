package server

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tasklist/apiserver/internal/store"
	"github.com/tasklist/apiserver/types"
)

type memoryUsers struct {
	mu     sync.Mutex
	nextID int
	users  map[string]types.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]types.User)}
}

// unstorable mirrors Postgres refusing NUL bytes in text columns.
func unstorable(values ...string) bool {
	for _, v := range values {
		if strings.ContainsRune(v, 0) {
			return true
		}
	}
	return false
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	if unstorable(email) {
		return types.User{}, store.ErrInvalidValue
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memoryUsers) Create(_ context.Context, user types.User) (types.User, error) {
	if unstorable(user.Email, user.FirstName, user.LastName) {
		return types.User{}, store.ErrInvalidValue
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return types.User{}, store.ErrConflict
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now().UTC()
	m.users[user.Email] = user
	return user, nil
}

type memoryTasks struct {
	mu     sync.Mutex
	nextID int
	tasks  map[int]types.Task
}

func newMemoryTasks() *memoryTasks {
	return &memoryTasks{tasks: make(map[int]types.Task)}
}

func (m *memoryTasks) ListByOwner(_ context.Context, ownerID int) ([]types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := []types.Task{}
	for _, task := range m.tasks {
		if task.OwnerID == ownerID {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (m *memoryTasks) Get(_ context.Context, ownerID, id int) (types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return types.Task{}, store.ErrNotFound
	}
	return task, nil
}

func (m *memoryTasks) Create(_ context.Context, task types.Task) (types.Task, error) {
	if unstorable(task.Content) {
		return types.Task{}, store.ErrInvalidValue
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	task.ID = m.nextID
	task.CreatedAt = time.Now().UTC()
	m.tasks[task.ID] = task
	return task, nil
}

func (m *memoryTasks) Update(_ context.Context, ownerID, id int, patch types.TaskPatch) (types.Task, error) {
	if patch.Content != nil && unstorable(*patch.Content) {
		return types.Task{}, store.ErrInvalidValue
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return types.Task{}, store.ErrNotFound
	}
	if patch.Content != nil {
		task.Content = *patch.Content
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	m.tasks[id] = task
	return task, nil
}

func (m *memoryTasks) Delete(_ context.Context, ownerID, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.TaskEvent
}

func (p *recordingPublisher) PublishTaskEvent(_ context.Context, event types.TaskEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []types.TaskEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.TaskEvent(nil), p.events...)
}
