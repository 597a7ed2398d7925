// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// taskStatusJSON serializes a TaskStatus into a JSON database column.
type taskStatusJSON struct {
	a2a.TaskStatus
}

// Value implements the driver.Valuer interface for database storage.
func (ts taskStatusJSON) Value() (driver.Value, error) {
	return json.Marshal(ts.TaskStatus)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (ts *taskStatusJSON) Scan(value any) error {
	if value == nil {
		*ts = taskStatusJSON{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into taskStatusJSON", value)
	}

	var status a2a.TaskStatus
	if err := json.Unmarshal(bytes, &status); err != nil {
		return fmt.Errorf("cannot unmarshal task status: %w", err)
	}

	ts.TaskStatus = status
	return nil
}

// rawJSON serializes an arbitrary value into a JSON database column.
type rawJSON []byte

// Value implements the driver.Valuer interface for database storage.
func (r rawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return []byte(r), nil
}

// Scan implements the sql.Scanner interface for database retrieval.
func (r *rawJSON) Scan(value any) error {
	if value == nil {
		*r = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*r = append((*r)[:0], v...)
	case string:
		*r = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into rawJSON", value)
	}
	return nil
}

// TaskModel is the GORM persistence model for a task record.
type TaskModel struct {
	ID        string         `gorm:"primaryKey;size:64"`
	ContextID string         `gorm:"index;size:64;column:context_id"`
	Kind      string         `gorm:"size:16"`
	Status    taskStatusJSON `gorm:"type:json"`
	Artifacts rawJSON        `gorm:"type:json"`
	History   rawJSON        `gorm:"type:json"`
	Metadata  rawJSON        `gorm:"type:json"`
}

// TableName returns the database table name.
func (TaskModel) TableName() string { return "tasks" }

func newTaskModel(task *a2a.Task) (*TaskModel, error) {
	model := &TaskModel{
		ID:        task.ID,
		ContextID: task.ContextID,
		Kind:      task.Kind,
	}
	if task.Status != nil {
		model.Status = taskStatusJSON{TaskStatus: *task.Status}
	}

	var err error
	if task.Artifacts != nil {
		if model.Artifacts, err = json.Marshal(task.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to encode artifacts: %w", err)
		}
	}
	if task.History != nil {
		if model.History, err = json.Marshal(task.History); err != nil {
			return nil, fmt.Errorf("failed to encode history: %w", err)
		}
	}
	if task.Metadata != nil {
		if model.Metadata, err = json.Marshal(task.Metadata); err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
	}

	return model, nil
}

func (m *TaskModel) toTask() (*a2a.Task, error) {
	status := m.Status.TaskStatus
	task := &a2a.Task{
		ID:        m.ID,
		ContextID: m.ContextID,
		Kind:      m.Kind,
		Status:    &status,
	}

	if len(m.Artifacts) > 0 {
		if err := json.Unmarshal(m.Artifacts, &task.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to decode artifacts: %w", err)
		}
	}
	if len(m.History) > 0 {
		if err := json.Unmarshal(m.History, &task.History); err != nil {
			return nil, fmt.Errorf("failed to decode history: %w", err)
		}
	}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &task.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}

	return task, nil
}

// DatabaseTaskStore is a database implementation of TaskStore using GORM.
type DatabaseTaskStore struct {
	db          *gorm.DB
	createTable bool
}

var _ TaskStore = (*DatabaseTaskStore)(nil)

// DatabaseTaskStoreConfig holds configuration for DatabaseTaskStore.
type DatabaseTaskStoreConfig struct {
	DB          *gorm.DB
	CreateTable bool // Whether to create the table if it doesn't exist
}

// NewDatabaseTaskStore creates a new DatabaseTaskStore.
func NewDatabaseTaskStore(config DatabaseTaskStoreConfig) (*DatabaseTaskStore, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	return &DatabaseTaskStore{
		db:          config.DB,
		createTable: config.CreateTable,
	}, nil
}

// Save persists a task to the database.
func (s *DatabaseTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	if err := task.Validate(); err != nil {
		return NewTaskValidationError(task.ID, err)
	}

	model, err := newTaskModel(task)
	if err != nil {
		return NewTaskStoreError("save", task.ID, err)
	}

	if err := s.db.WithContext(ctx).Save(model).Error; err != nil {
		return NewTaskStoreError("save", task.ID, err)
	}

	return nil
}

// Get retrieves a task by its ID from the database.
func (s *DatabaseTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	var model TaskModel
	if err := s.db.WithContext(ctx).Where("id = ?", taskID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, a2a.TaskNotFoundError{TaskID: taskID}
		}
		return nil, NewTaskStoreError("get", taskID, err)
	}

	task, err := model.toTask()
	if err != nil {
		return nil, NewTaskStoreError("get", taskID, err)
	}

	return task, nil
}

// Delete removes a task from the database.
func (s *DatabaseTaskStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	result := s.db.WithContext(ctx).Where("id = ?", taskID).Delete(&TaskModel{})
	if result.Error != nil {
		return NewTaskStoreError("delete", taskID, result.Error)
	}
	if result.RowsAffected == 0 {
		return a2a.TaskNotFoundError{TaskID: taskID}
	}

	return nil
}

// List retrieves tasks with optional filtering.
func (s *DatabaseTaskStore) List(ctx context.Context, contextID string, limit, offset int) ([]*a2a.Task, error) {
	db := s.db.WithContext(ctx)
	if contextID != "" {
		db = db.Where("context_id = ?", contextID)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}

	var models []TaskModel
	if err := db.Order("id").Find(&models).Error; err != nil {
		return nil, NewTaskStoreError("list", "", err)
	}

	tasks := make([]*a2a.Task, len(models))
	for i := range models {
		task, err := models[i].toTask()
		if err != nil {
			return nil, NewTaskStoreError("list", models[i].ID, err)
		}
		tasks[i] = task
	}

	return tasks, nil
}

// Count returns the total number of tasks in the database.
func (s *DatabaseTaskStore) Count(ctx context.Context, contextID string) (int64, error) {
	query := s.db.WithContext(ctx).Model(&TaskModel{})
	if contextID != "" {
		query = query.Where("context_id = ?", contextID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, NewTaskStoreError("count", "", err)
	}

	return count, nil
}

// Initialize prepares the database for use.
func (s *DatabaseTaskStore) Initialize(ctx context.Context) error {
	if !s.createTable {
		return nil
	}

	if err := s.db.WithContext(ctx).AutoMigrate(&TaskModel{}); err != nil {
		return NewTaskStoreError("initialize", "", err)
	}

	return nil
}

// Close cleanly shuts down the database store. The underlying connection
// is owned by the caller and left open.
func (s *DatabaseTaskStore) Close(ctx context.Context) error {
	return nil
}

// Transaction executes a function within a database transaction.
func (s *DatabaseTaskStore) Transaction(ctx context.Context, fn func(TaskStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DatabaseTaskStore{db: tx, createTable: s.createTable})
	})
}
