package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQuery = 50 * time.Millisecond

// taskRecord is the gorm mapping of the tasks table.
type taskRecord struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	Title       string     `gorm:"size:200;not null;check:chk_tasks_title,length(title) >= 1"`
	Description *string    `gorm:"type:text"`
	Completed   bool       `gorm:"not null;index"`
	Priority    int        `gorm:"not null;check:chk_tasks_priority,priority >= 0 AND priority <= 5"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false"`
}

func (taskRecord) TableName() string {
	return "tasks"
}

func toRecord(t *task.Task) *taskRecord {
	return &taskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (r *taskRecord) toTask() *task.Task {
	return &task.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		Priority:    r.Priority,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type Storage struct {
	db *gorm.DB
}

// New opens the database file at path (":memory:" for a private in-memory
// database). SQLite allows a single writer, so the pool holds one connection.
func New(path string, debug bool) (*Storage, error) {
	logLevel := gormlogger.Silent
	if debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		logger.Error("Repository: failed to open sqlite database", err, zap.String("path", path))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	logger.Info("Repository: opened SQLite database", zap.String("path", path))
	return &Storage{db: db}, nil
}

func (s *Storage) Close() {
	if s.db == nil {
		return
	}
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Repository: SQLite database closed")
}

// CreateSchema creates the tasks table when it is absent. Existing tables are left untouched.
func (s *Storage) CreateSchema(ctx context.Context) error {
	migrator := s.db.WithContext(ctx).Migrator()
	if migrator.HasTable(&taskRecord{}) {
		return nil
	}
	if err := migrator.CreateTable(&taskRecord{}); err != nil {
		logger.Error("Repository: failed to create schema", err)
		return fmt.Errorf("create schema: %w", err)
	}
	logger.Info("Repository: schema is ready")
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sqlite handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	record := toRecord(taskToCreate)
	record.ID = 0
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("insert task: %w", err)
	}
	taskToCreate.ID = record.ID

	warnIfSlow(start)
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	start := time.Now()

	var record taskRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get task", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("get task: %w", err)
	}

	warnIfSlow(start)
	return record.toTask(), nil
}

// List orders by id so pages stay stable for a given data set.
func (s *Storage) List(ctx context.Context, filter task.ListFilter) ([]*task.Task, error) {
	start := time.Now()

	tasks := []*task.Task{}
	if filter.Limit <= 0 {
		return tasks, nil
	}

	query := s.db.WithContext(ctx).Model(&taskRecord{})
	if filter.Completed != nil {
		query = query.Where("completed = ?", *filter.Completed)
	}

	var records []taskRecord
	err := query.Order("id").Offset(filter.Skip).Limit(filter.Limit).Find(&records).Error
	if err != nil {
		logger.Error("Repository: failed to list tasks", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	for i := range records {
		tasks = append(tasks, records[i].toTask())
	}

	warnIfSlow(start)
	return tasks, nil
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()

	result := s.db.WithContext(ctx).
		Model(&taskRecord{}).
		Where("id = ?", taskToUpdate.ID).
		Updates(map[string]any{
			"title":       taskToUpdate.Title,
			"description": taskToUpdate.Description,
			"completed":   taskToUpdate.Completed,
			"priority":    taskToUpdate.Priority,
			"updated_at":  taskToUpdate.UpdatedAt,
		})
	if err := result.Error; err != nil {
		logger.Error("Repository: failed to update task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("update task: %w", err)
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}

	warnIfSlow(start)
	return nil
}

func (s *Storage) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	result := s.db.WithContext(ctx).Delete(&taskRecord{}, "id = ?", id)
	if err := result.Error; err != nil {
		logger.Error("Repository: failed to delete task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}

	warnIfSlow(start)
	return nil
}

func warnIfSlow(start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: slow query", zap.Duration("ms", elapsed))
	}
}
