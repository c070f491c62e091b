package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	rep "taskManager/internal/repository"

	"go.uber.org/zap"
)

const resourceTask = "task"

type TaskService struct {
	repo TaskRepository
	now  func() time.Time
}

func NewTaskService(repo TaskRepository) *TaskService {
	return &TaskService{
		repo: repo,
		now:  time.Now,
	}
}

// timestamp is truncated to microseconds, the finest precision every store keeps.
func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("service health check: %w", err)
	}
	return nil
}

func (s *TaskService) ListTasks(ctx context.Context, filter task.ListFilter) ([]*task.Task, error) {
	if filter.Skip < 0 {
		return nil, NewValidationError("skip", "must be greater than or equal to 0")
	}
	if filter.Limit <= 0 {
		filter.Limit = task.DefaultLimit
	}

	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, id)
	}
	return found, nil
}

// CreateTask builds a task from the title and options, applies the defaults
// (not completed, priority 0) and stores it.
func (s *TaskService) CreateTask(ctx context.Context, title string, options ...task.TaskOption) (*task.Task, error) {
	newTask := &task.Task{
		Title:     title,
		Completed: false,
		Priority:  0,
	}
	newTask.Apply(options...)

	if err := validate(newTask); err != nil {
		return nil, err
	}

	newTask.CreatedAt = s.timestamp()
	newTask.UpdatedAt = nil

	if err := s.repo.Create(ctx, newTask); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	logger.Info("Service: task created", zap.Int64("task_id", newTask.ID))
	return newTask, nil
}

// UpdateTask merges the options into a copy of the stored task and always
// refreshes updated_at, even when no option is given.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, options ...task.TaskOption) (*task.Task, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, id)
	}

	updated := existing.Clone()
	updated.Apply(options...)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := validate(updated); err != nil {
		return nil, err
	}

	now := s.timestamp()
	if existing.UpdatedAt != nil && !now.After(*existing.UpdatedAt) {
		now = existing.UpdatedAt.Add(time.Microsecond)
	}
	updated.UpdatedAt = &now

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, s.lookupError(err, id)
	}

	logger.Info("Service: task updated", zap.Int64("task_id", id))
	return updated, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError(err, id)
	}

	logger.Info("Service: task deleted", zap.Int64("task_id", id))
	return nil
}

func (s *TaskService) lookupError(err error, id int64) error {
	if errors.Is(err, rep.ErrNotFound) {
		logger.Info("Service: task not found", zap.Int64("target_id", id))
		return NewNotFound(resourceTask, id)
	}
	return fmt.Errorf("task %d: %w", id, err)
}

func validate(t *task.Task) error {
	problems := t.Validate()
	if len(problems) == 0 {
		return nil
	}

	violations := make([]FieldViolation, 0, len(problems))
	for _, p := range problems {
		violations = append(violations, FieldViolation{Field: p.Field, Reason: p.Err.Error()})
	}
	return NewValidationErrors(violations)
}
