package task

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	TitleMaxLength = 200
	PriorityMin    = 0
	PriorityMax    = 5

	DefaultLimit = 100
)

type Task struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description" db:"description"`
	Completed   bool       `json:"completed" db:"completed"`
	Priority    int        `json:"priority" db:"priority"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at" db:"updated_at"`
}

// ListFilter describes a page of tasks. A nil Completed matches every task.
type ListFilter struct {
	Completed *bool
	Skip      int
	Limit     int
}

var (
	ErrEmptyTitle       = errors.New("title must not be empty")
	ErrTitleTooLong     = fmt.Errorf("title must be at most %d characters", TitleMaxLength)
	ErrPriorityOutRange = fmt.Errorf("priority must be between %d and %d", PriorityMin, PriorityMax)
)

// FieldError ties a violated invariant to the JSON field that holds it.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// Validate checks the record invariants and returns every violation found.
func (t *Task) Validate() []FieldError {
	var problems []FieldError

	switch n := utf8.RuneCountInString(t.Title); {
	case n == 0:
		problems = append(problems, FieldError{Field: "title", Err: ErrEmptyTitle})
	case n > TitleMaxLength:
		problems = append(problems, FieldError{Field: "title", Err: ErrTitleTooLong})
	}

	if t.Priority < PriorityMin || t.Priority > PriorityMax {
		problems = append(problems, FieldError{Field: "priority", Err: ErrPriorityOutRange})
	}

	return problems
}

// Clone returns a deep copy so callers can merge changes without touching stored state.
func (t *Task) Clone() *Task {
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		c.UpdatedAt = &u
	}
	return &c
}
