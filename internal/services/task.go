package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tasklist/apiserver/types"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrEmptyContent is returned when creating a task without content.
var ErrEmptyContent = errors.New("content is required")

// TaskRepository defines persistence operations for tasks. Every method is
// scoped to an owner.
type TaskRepository interface {
	ListByOwner(ctx context.Context, ownerID int) ([]types.Task, error)
	Get(ctx context.Context, ownerID, id int) (types.Task, error)
	Create(ctx context.Context, task types.Task) (types.Task, error)
	Update(ctx context.Context, ownerID, id int, patch types.TaskPatch) (types.Task, error)
	Delete(ctx context.Context, ownerID, id int) error
}

// TaskService encapsulates task use-cases for an authenticated owner.
type TaskService struct {
	repo   TaskRepository
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// TaskServiceOption configures optional TaskService collaborators.
type TaskServiceOption func(*TaskService)

// WithEventPublisher publishes an event after every committed mutation.
func WithEventPublisher(events EventPublisher) TaskServiceOption {
	return func(s *TaskService) {
		s.events = events
	}
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(logger *zap.Logger) TaskServiceOption {
	return func(s *TaskService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewTaskService(repo TaskRepository, opts ...TaskServiceOption) *TaskService {
	s := &TaskService{
		repo:   repo,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) List(ctx context.Context, owner types.User) ([]types.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.List")
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", owner.ID))

	tasks, err := s.repo.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, owner types.User, content string) (types.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Create")
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", owner.ID))

	if content == "" {
		return types.Task{}, ErrEmptyContent
	}

	task, err := s.repo.Create(ctx, types.Task{
		Content: content,
		OwnerID: owner.ID,
	})
	if err != nil {
		return types.Task{}, fmt.Errorf("create task: %w", err)
	}

	s.publish(ctx, types.TaskCreated, task.ID, owner.ID, &task)
	return task, nil
}

// Update applies patch to the caller's task. Missing or foreign tasks yield
// store.ErrNotFound. An empty patch returns the task as stored and publishes
// nothing.
func (s *TaskService) Update(ctx context.Context, owner types.User, id int, patch types.TaskPatch) (types.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Update")
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", owner.ID), attribute.Int("task.id", id))

	if patch.Empty() {
		task, err := s.repo.Get(ctx, owner.ID, id)
		if err != nil {
			return types.Task{}, fmt.Errorf("get task %d: %w", id, err)
		}
		return task, nil
	}

	task, err := s.repo.Update(ctx, owner.ID, id, patch)
	if err != nil {
		return types.Task{}, fmt.Errorf("update task %d: %w", id, err)
	}

	s.publish(ctx, types.TaskUpdated, task.ID, owner.ID, &task)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, owner types.User, id int) error {
	ctx, span := tracer.Start(ctx, "TaskService.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", owner.ID), attribute.Int("task.id", id))

	if err := s.repo.Delete(ctx, owner.ID, id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}

	s.publish(ctx, types.TaskDeleted, id, owner.ID, nil)
	return nil
}

// publish never fails the caller: the mutation is already committed.
func (s *TaskService) publish(ctx context.Context, eventType types.TaskEventType, taskID, ownerID int, task *types.Task) {
	if s.events == nil {
		return
	}

	event := types.TaskEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		TaskID:     taskID,
		OwnerID:    ownerID,
		Task:       task,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.PublishTaskEvent(ctx, event); err != nil {
		s.logger.Warn("task event not published",
			zap.String("event_type", string(eventType)),
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
	}
}
