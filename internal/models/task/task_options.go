package task

// TaskOption sets one field of a task. Partial updates are a list of options,
// one per field present in the request.
type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = &description
	}
}

// WithoutDescription clears the description (an explicit JSON null).
func WithoutDescription() TaskOption {
	return func(task *Task) {
		task.Description = nil
	}
}

func WithCompleted(completed bool) TaskOption {
	return func(task *Task) {
		task.Completed = completed
	}
}

func WithPriority(priority int) TaskOption {
	return func(task *Task) {
		task.Priority = priority
	}
}

// Apply runs the options in order, skipping nil ones.
func (t *Task) Apply(options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}
