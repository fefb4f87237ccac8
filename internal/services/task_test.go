package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklist/apiserver/internal/store"
	"github.com/tasklist/apiserver/types"
)

type fakeTaskRepo struct {
	tasks map[int]types.Task
	next  int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[int]types.Task)}
}

func (f *fakeTaskRepo) ListByOwner(_ context.Context, ownerID int) ([]types.Task, error) {
	out := []types.Task{}
	for id := 1; id <= f.next; id++ {
		if task, ok := f.tasks[id]; ok && task.OwnerID == ownerID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) Get(_ context.Context, ownerID, id int) (types.Task, error) {
	task, ok := f.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return types.Task{}, store.ErrNotFound
	}
	return task, nil
}

func (f *fakeTaskRepo) Create(_ context.Context, task types.Task) (types.Task, error) {
	f.next++
	task.ID = f.next
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeTaskRepo) Update(_ context.Context, ownerID, id int, patch types.TaskPatch) (types.Task, error) {
	task, ok := f.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return types.Task{}, store.ErrNotFound
	}
	if patch.Content != nil {
		task.Content = *patch.Content
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	f.tasks[id] = task
	return task, nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, ownerID, id int) error {
	task, ok := f.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

type fakePublisher struct {
	events []types.TaskEvent
	err    error
}

func (f *fakePublisher) PublishTaskEvent(_ context.Context, event types.TaskEvent) error {
	f.events = append(f.events, event)
	return f.err
}

func TestTaskServiceScopesByOwner(t *testing.T) {
	svc := NewTaskService(newFakeTaskRepo())
	ctx := context.Background()
	alice := types.User{ID: 1}
	bob := types.User{ID: 2}

	task, err := svc.Create(ctx, alice, "water plants")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, task.OwnerID)

	tasks, err := svc.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	done := true
	_, err = svc.Update(ctx, bob, task.ID, types.TaskPatch{Completed: &done})
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = svc.Delete(ctx, bob, task.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	tasks, err = svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.False(t, tasks[0].Completed)
}

func TestTaskServiceRejectsEmptyContent(t *testing.T) {
	svc := NewTaskService(newFakeTaskRepo())
	_, err := svc.Create(context.Background(), types.User{ID: 1}, "")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestTaskServicePublishesAfterCommit(t *testing.T) {
	publisher := &fakePublisher{}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	svc := NewTaskService(newFakeTaskRepo(), WithEventPublisher(publisher))
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()
	owner := types.User{ID: 7}

	task, err := svc.Create(ctx, owner, "file taxes")
	require.NoError(t, err)

	content := "file taxes early"
	_, err = svc.Update(ctx, owner, task.ID, types.TaskPatch{Content: &content})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, task.ID))

	// failed mutations publish nothing
	assert.Error(t, svc.Delete(ctx, owner, task.ID))

	require.Len(t, publisher.events, 3)
	assert.Equal(t, types.TaskCreated, publisher.events[0].Type)
	assert.Equal(t, types.TaskUpdated, publisher.events[1].Type)
	assert.Equal(t, content, publisher.events[1].Task.Content)
	assert.Equal(t, types.TaskDeleted, publisher.events[2].Type)
	for _, event := range publisher.events {
		assert.Equal(t, owner.ID, event.OwnerID)
		assert.Equal(t, task.ID, event.TaskID)
		assert.Equal(t, fixed.UTC(), event.OccurredAt)
	}
}

func TestTaskServiceIgnoresPublishFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc := NewTaskService(newFakeTaskRepo(), WithEventPublisher(publisher))

	task, err := svc.Create(context.Background(), types.User{ID: 1}, "still saved")
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
	assert.Len(t, publisher.events, 1)
}

func TestTaskServiceEmptyPatchReadsTask(t *testing.T) {
	publisher := &fakePublisher{}
	svc := NewTaskService(newFakeTaskRepo(), WithEventPublisher(publisher))
	ctx := context.Background()
	owner := types.User{ID: 4}

	task, err := svc.Create(ctx, owner, "unchanged")
	require.NoError(t, err)

	got, err := svc.Update(ctx, owner, task.ID, types.TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, task, got)
	assert.Len(t, publisher.events, 1, "only the create is published")

	_, err = svc.Update(ctx, types.User{ID: 5}, task.ID, types.TaskPatch{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
