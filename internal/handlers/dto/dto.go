package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"taskManager/internal/models/task"
)

type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	Priority    int     `json:"priority" validate:"gte=0,lte=5"`
}

func (c CreateTaskRequest) Options() []task.TaskOption {
	options := []task.TaskOption{
		task.WithCompleted(c.Completed),
		task.WithPriority(c.Priority),
	}
	if c.Description != nil {
		options = append(options, task.WithDescription(*c.Description))
	}
	return options
}

// UpdateTaskRequest keeps track of which keys were present in the body.
// A nil pointer means the key was absent; ClearDescription marks an explicit
// "description": null.
type UpdateTaskRequest struct {
	Title            *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description      *string `json:"description"`
	Completed        *bool   `json:"completed"`
	Priority         *int    `json:"priority" validate:"omitempty,gte=0,lte=5"`
	ClearDescription bool    `json:"-"`
}

// NullFieldError is returned when a non-nullable field is sent as null.
type NullFieldError struct {
	Field string
}

func (e *NullFieldError) Error() string {
	return "field " + e.Field + " may not be null"
}

var jsonNull = []byte("null")

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), jsonNull)
}

// UnmarshalJSON rejects null for every field except description, which
// stays nil.
func (c *CreateTaskRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = CreateTaskRequest{}
	for key, value := range raw {
		switch key {
		case "title":
			if err := decodeRequired(key, value, &c.Title); err != nil {
				return err
			}
		case "description":
			if isNull(value) {
				continue
			}
			c.Description = new(string)
			if err := decodeField(key, value, c.Description); err != nil {
				return err
			}
		case "completed":
			if err := decodeRequired(key, value, &c.Completed); err != nil {
				return err
			}
		case "priority":
			if err := decodeRequired(key, value, &c.Priority); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *UpdateTaskRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*u = UpdateTaskRequest{}
	for key, value := range raw {
		switch key {
		case "title":
			u.Title = new(string)
			if err := decodeRequired(key, value, u.Title); err != nil {
				return err
			}
		case "description":
			if isNull(value) {
				u.ClearDescription = true
				continue
			}
			u.Description = new(string)
			if err := decodeField(key, value, u.Description); err != nil {
				return err
			}
		case "completed":
			u.Completed = new(bool)
			if err := decodeRequired(key, value, u.Completed); err != nil {
				return err
			}
		case "priority":
			u.Priority = new(int)
			if err := decodeRequired(key, value, u.Priority); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeRequired(field string, value json.RawMessage, target any) error {
	if isNull(value) {
		return &NullFieldError{Field: field}
	}
	return decodeField(field, value, target)
}

// decodeField names the field in type errors, which json.Unmarshal cannot do
// for a bare value.
func decodeField(field string, value json.RawMessage, target any) error {
	err := json.Unmarshal(value, target)

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &json.UnmarshalTypeError{
			Value:  typeErr.Value,
			Type:   typeErr.Type,
			Offset: typeErr.Offset,
			Field:  field,
		}
	}
	return err
}

// Options lists one option per present field, in a fixed order.
func (u UpdateTaskRequest) Options() []task.TaskOption {
	var options []task.TaskOption
	if u.Title != nil {
		options = append(options, task.WithTitle(*u.Title))
	}
	switch {
	case u.ClearDescription:
		options = append(options, task.WithoutDescription())
	case u.Description != nil:
		options = append(options, task.WithDescription(*u.Description))
	}
	if u.Completed != nil {
		options = append(options, task.WithCompleted(*u.Completed))
	}
	if u.Priority != nil {
		options = append(options, task.WithPriority(*u.Priority))
	}
	return options
}

type TaskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    int        `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

// ListTasksQuery holds the parsed query string of GET /tasks.
type ListTasksQuery struct {
	Skip      int   `json:"skip" validate:"gte=0"`
	Limit     int   `json:"limit" validate:"gte=1"`
	Completed *bool `json:"completed"`
}

func (q ListTasksQuery) Filter() task.ListFilter {
	return task.ListFilter{
		Completed: q.Completed,
		Skip:      q.Skip,
		Limit:     q.Limit,
	}
}
