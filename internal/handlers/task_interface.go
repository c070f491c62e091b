package handlers

import (
	"context"

	"taskManager/internal/models/task"
)

type Service interface {
	HealthCheck(context.Context) error
	ListTasks(context.Context, task.ListFilter) ([]*task.Task, error)
	GetTask(context.Context, int64) (*task.Task, error)
	CreateTask(context.Context, string, ...task.TaskOption) (*task.Task, error)
	UpdateTask(context.Context, int64, ...task.TaskOption) (*task.Task, error)
	DeleteTask(context.Context, int64) error
}
