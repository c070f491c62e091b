package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"taskManager/internal/handlers"
	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskService) ListTasks(ctx context.Context, filter task.ListFilter) ([]*task.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskService) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) CreateTask(ctx context.Context, title string, options ...task.TaskOption) (*task.Task, error) {
	args := m.Called(ctx, title, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, id int64, options ...task.TaskOption) (*task.Task, error) {
	args := m.Called(ctx, id, options)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ handlers.Service = (*MockTaskService)(nil)

func newTestRouter(svc handlers.Service) http.Handler {
	return handlers.NewRouter(handlers.NewTaskHandler(svc), handlers.RouterOptions{})
}

func doRequest(router http.Handler, method, path, body, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

// applyOptions shows what the handler asked the service to change.
func applyOptions(base task.Task, options []task.TaskOption) task.Task {
	base.Apply(options...)
	return base
}

func sampleTask(id int64) *task.Task {
	description := "Finish the API implementation"
	return &task.Task{
		ID:          id,
		Title:       "Complete project",
		Description: &description,
		Priority:    1,
		CreatedAt:   time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
}

func TestTaskHandler_Root(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	previous := logger.Logger
	logger.Logger = zap.New(core)
	t.Cleanup(func() { logger.Logger = previous })

	w := doRequest(newTestRouter(new(MockTaskService)), http.MethodGet, "/?lang=en", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Welcome to Task Management API"}`, w.Body.String())

	entries := logs.FilterMessage("HTTP: root").AllUntimed()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/", fields["path"])
	assert.Equal(t, "lang=en", fields["query"])
}

func TestTaskHandler_HealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success - healthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"healthy"}`,
		},
		{
			name: "error - unhealthy",
			setupMock: func(m *MockTaskService) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("service unavailable"))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"unhealthy"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := doRequest(newTestRouter(mockService), http.MethodGet, "/health", "", "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_PostTask(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    string
		contentType    string
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedField  string
	}{
		{
			name:        "success - create task",
			requestBody: `{"title":"Complete project","description":"Finish the API implementation","completed":false,"priority":1}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, "Complete project", mock.MatchedBy(func(options []task.TaskOption) bool {
					got := applyOptions(task.Task{}, options)
					return got.Priority == 1 && !got.Completed &&
						got.Description != nil && *got.Description == "Finish the API implementation"
				})).Return(sampleTask(1), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "success - charset in content type",
			requestBody: `{"title":"Complete project"}`,
			contentType: "application/json; charset=utf-8",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, "Complete project", mock.Anything).Return(sampleTask(1), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "error - invalid content type",
			requestBody:    `{"title":"x"}`,
			contentType:    "text/plain",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "body",
		},
		{
			name:           "error - invalid JSON",
			requestBody:    `{invalid json}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "body",
		},
		{
			name:           "error - empty body",
			requestBody:    "",
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "body",
		},
		{
			name:           "error - missing title",
			requestBody:    `{"description":"no title"}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "title",
		},
		{
			name:           "error - title too long",
			requestBody:    `{"title":"` + strings.Repeat("a", 201) + `"}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "title",
		},
		{
			name:           "error - priority out of range",
			requestBody:    `{"title":"Test","priority":10}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "priority",
		},
		{
			name:           "error - null completed",
			requestBody:    `{"title":"Test","completed":null}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "completed",
		},
		{
			name:           "error - null priority",
			requestBody:    `{"title":"Test","priority":null}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "priority",
		},
		{
			name:           "error - trailing data after object",
			requestBody:    `{"title":"Test"} garbage`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "body",
		},
		{
			name:           "error - second JSON value",
			requestBody:    `{"title":"Test"}{"title":"Again"}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "body",
		},
		{
			name:        "success - null description",
			requestBody: `{"title":"Test","description":null}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, "Test", mock.MatchedBy(func(options []task.TaskOption) bool {
					return applyOptions(task.Task{}, options).Description == nil
				})).Return(sampleTask(1), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "error - wrong field type",
			requestBody:    `{"title":"Test","completed":"maybe"}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "completed",
		},
		{
			name:        "error - service error",
			requestBody: `{"title":"Test"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, "Test", mock.Anything).Return(nil, errors.New("service error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := doRequest(newTestRouter(mockService), http.MethodPost, "/tasks", tt.requestBody, tt.contentType)

			assert.Equal(t, tt.expectedStatus, w.Code)

			switch {
			case tt.expectedStatus == http.StatusCreated:
				var response dto.TaskResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, int64(1), response.ID)
				assert.Equal(t, "Complete project", response.Title)
			case tt.expectedField != "":
				body := decodeError(t, w)
				assert.Equal(t, service.CodeValidation, body.Error)
				fields := body.Details["fields"].([]any)
				require.NotEmpty(t, fields)
				assert.Equal(t, tt.expectedField, fields[0].(map[string]any)["field"])
				mockService.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything, mock.Anything)
			case tt.expectedStatus == http.StatusInternalServerError:
				body := decodeError(t, w)
				assert.Equal(t, "INTERNAL_ERROR", body.Error)
				assert.NotContains(t, body.Message, "service error")
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_PostTask_BodyTooLarge(t *testing.T) {
	mockService := new(MockTaskService)
	body := `{"title":"Test","description":"` + strings.Repeat("x", 2<<20) + `"}`

	w := doRequest(newTestRouter(mockService), http.MethodPost, "/tasks", body, "application/json")

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	mockService.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskHandler_GetTaskByID(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "success - get task",
			path: "/tasks/1",
			setupMock: func(m *MockTaskService) {
				m.On("GetTask", mock.Anything, int64(1)).Return(sampleTask(1), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "error - non-integer id",
			path:           "/tasks/abc",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "error - task not found",
			path: "/tasks/99999",
			setupMock: func(m *MockTaskService) {
				m.On("GetTask", mock.Anything, int64(99999)).Return(nil, service.NewNotFound("task", 99999))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "error - service error",
			path: "/tasks/1",
			setupMock: func(m *MockTaskService) {
				m.On("GetTask", mock.Anything, int64(1)).Return(nil, errors.New("internal error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := doRequest(newTestRouter(mockService), http.MethodGet, tt.path, "", "")

			assert.Equal(t, tt.expectedStatus, w.Code)

			switch tt.expectedStatus {
			case http.StatusOK:
				var response map[string]any
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, float64(1), response["id"])
				assert.Equal(t, "Complete project", response["title"])
				assert.Contains(t, response, "updated_at")
				assert.Nil(t, response["updated_at"])
			case http.StatusNotFound:
				body := decodeError(t, w)
				assert.Equal(t, service.CodeNotFound, body.Error)
				assert.Equal(t, "Task not found", body.Message)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_UpdateTaskByID(t *testing.T) {
	stored := *sampleTask(1)

	tests := []struct {
		name           string
		path           string
		requestBody    string
		contentType    string
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedField  string
	}{
		{
			name:        "success - partial update",
			path:        "/tasks/1",
			requestBody: `{"title":"Updated Title","completed":true}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, int64(1), mock.MatchedBy(func(options []task.TaskOption) bool {
					got := applyOptions(*stored.Clone(), options)
					return len(options) == 2 && got.Title == "Updated Title" && got.Completed &&
						got.Priority == 1 && got.Description != nil
				})).Return(sampleTask(1), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:        "success - null description clears it",
			path:        "/tasks/1",
			requestBody: `{"description":null}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, int64(1), mock.MatchedBy(func(options []task.TaskOption) bool {
					got := applyOptions(*stored.Clone(), options)
					return len(options) == 1 && got.Description == nil
				})).Return(sampleTask(1), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:        "success - empty body object",
			path:        "/tasks/1",
			requestBody: `{}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, int64(1), mock.MatchedBy(func(options []task.TaskOption) bool {
					return len(options) == 0
				})).Return(sampleTask(1), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "error - invalid content type",
			path:           "/tasks/1",
			requestBody:    `{}`,
			contentType:    "text/plain",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "body",
		},
		{
			name:           "error - null title",
			path:           "/tasks/1",
			requestBody:    `{"title":null}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "title",
		},
		{
			name:           "error - empty title",
			path:           "/tasks/1",
			requestBody:    `{"title":""}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "title",
		},
		{
			name:           "error - priority wrong type",
			path:           "/tasks/1",
			requestBody:    `{"priority":"high"}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "priority",
		},
		{
			name:           "error - priority out of range",
			path:           "/tasks/1",
			requestBody:    `{"priority":6}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "priority",
		},
		{
			name:           "error - non-integer id",
			path:           "/tasks/one",
			requestBody:    `{}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "id",
		},
		{
			name:        "error - not found",
			path:        "/tasks/99999",
			requestBody: `{"title":"x"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("UpdateTask", mock.Anything, int64(99999), mock.Anything).
					Return(nil, service.NewNotFound("task", 99999))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := doRequest(newTestRouter(mockService), http.MethodPut, tt.path, tt.requestBody, tt.contentType)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedField != "" {
				body := decodeError(t, w)
				fields := body.Details["fields"].([]any)
				require.NotEmpty(t, fields)
				assert.Equal(t, tt.expectedField, fields[0].(map[string]any)["field"])
				mockService.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything, mock.Anything)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_DeleteTaskByID(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockTaskService)
		expectedStatus int
	}{
		{
			name: "success - delete task",
			path: "/tasks/1",
			setupMock: func(m *MockTaskService) {
				m.On("DeleteTask", mock.Anything, int64(1)).Return(nil)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "error - non-integer id",
			path:           "/tasks/1.5",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "error - not found",
			path: "/tasks/99999",
			setupMock: func(m *MockTaskService) {
				m.On("DeleteTask", mock.Anything, int64(99999)).Return(service.NewNotFound("task", 99999))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := doRequest(newTestRouter(mockService), http.MethodDelete, tt.path, "", "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusNoContent {
				assert.Empty(t, w.Body.String())
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_ListTasks(t *testing.T) {
	completed := true
	notCompleted := false

	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedField  string
	}{
		{
			name: "success - defaults",
			path: "/tasks",
			setupMock: func(m *MockTaskService) {
				m.On("ListTasks", mock.Anything, task.ListFilter{Limit: task.DefaultLimit}).
					Return([]*task.Task{sampleTask(1)}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "success - trailing slash",
			path: "/tasks/",
			setupMock: func(m *MockTaskService) {
				m.On("ListTasks", mock.Anything, task.ListFilter{Limit: task.DefaultLimit}).
					Return([]*task.Task{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "success - paging and filter",
			path: "/tasks?skip=2&limit=5&completed=true",
			setupMock: func(m *MockTaskService) {
				m.On("ListTasks", mock.Anything, task.ListFilter{Completed: &completed, Skip: 2, Limit: 5}).
					Return([]*task.Task{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "success - filter spelled as no",
			path: "/tasks?completed=No",
			setupMock: func(m *MockTaskService) {
				m.On("ListTasks", mock.Anything, task.ListFilter{Completed: &notCompleted, Limit: task.DefaultLimit}).
					Return([]*task.Task{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "error - skip not an integer",
			path:           "/tasks?skip=abc",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "skip",
		},
		{
			name:           "error - negative skip",
			path:           "/tasks?skip=-1",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "skip",
		},
		{
			name:           "error - zero limit",
			path:           "/tasks?limit=0",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "limit",
		},
		{
			name:           "error - bad completed",
			path:           "/tasks?completed=perhaps",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "completed",
		},
		{
			name: "error - service error",
			path: "/tasks",
			setupMock: func(m *MockTaskService) {
				m.On("ListTasks", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w := doRequest(newTestRouter(mockService), http.MethodGet, tt.path, "", "")

			assert.Equal(t, tt.expectedStatus, w.Code)

			switch {
			case tt.expectedStatus == http.StatusOK:
				var response []dto.TaskResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.NotNil(t, response)
			case tt.expectedField != "":
				body := decodeError(t, w)
				assert.Equal(t, service.CodeValidation, body.Error)
				fields := body.Details["fields"].([]any)
				require.NotEmpty(t, fields)
				assert.Equal(t, tt.expectedField, fields[0].(map[string]any)["field"])
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_UnknownRoute(t *testing.T) {
	w := doRequest(newTestRouter(new(MockTaskService)), http.MethodGet, "/projects", "", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestTaskHandler_ConcurrentRequests(t *testing.T) {
	mockService := new(MockTaskService)
	mockService.On("GetTask", mock.Anything, int64(1)).Return(sampleTask(1), nil)
	router := newTestRouter(mockService)

	var wg sync.WaitGroup
	codes := make([]int, 20)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = doRequest(router, http.MethodGet, "/tasks/1", "", "").Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
}
