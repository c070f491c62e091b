package inmemory

import (
	"context"
	"sort"
	"sync"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"
)

// TaskStorage keeps tasks in a map keyed by id. Stored tasks are never handed
// out directly; reads and writes go through copies.
type TaskStorage struct {
	storage map[int64]*task.Task
	mtx     *sync.RWMutex
	ids     []int64
	lastID  int64
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[int64]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []int64{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: in-memory storage is always available")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.lastID++
	taskToCreate.ID = s.lastID

	s.storage[taskToCreate.ID] = taskToCreate.Clone()
	s.ids = append(s.ids, taskToCreate.ID)
	return nil
}

func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[taskToUpdate.ID]; !ok {
		return repo.ErrNotFound
	}

	s.storage[taskToUpdate.ID] = taskToUpdate.Clone()
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

func (s *TaskStorage) Delete(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}

	delete(s.storage, id)
	ind := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= id })
	if ind < len(s.ids) && s.ids[ind] == id {
		s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
	}
	return nil
}

// List walks ids in ascending order, which is also insertion order.
func (s *TaskStorage) List(ctx context.Context, filter task.ListFilter) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	if filter.Limit <= 0 {
		return res, nil
	}

	skipped := 0
	for _, id := range s.ids {
		if len(res) >= filter.Limit {
			break
		}

		taskToGet := s.storage[id]
		if filter.Completed != nil && taskToGet.Completed != *filter.Completed {
			continue
		}

		if skipped < filter.Skip {
			skipped++
			continue
		}

		res = append(res, taskToGet.Clone())
	}

	return res, nil
}
