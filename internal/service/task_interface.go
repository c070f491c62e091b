package service

import (
	"context"

	"taskManager/internal/models/task"
)

// TaskRepository is implemented by every task store. Create assigns the id;
// Update and Delete report repository.ErrNotFound when the row is gone.
type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) error
	GetByID(context.Context, int64) (*task.Task, error)
	List(context.Context, task.ListFilter) ([]*task.Task, error)
	Update(context.Context, *task.Task) error
	Delete(context.Context, int64) error
}
