// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"maps"
	"sync"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// InMemoryTaskStore is an in-memory implementation of TaskStore.
// Task data is lost when the server process stops.
// All operations are thread-safe using sync.RWMutex.
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*a2a.Task
}

var _ TaskStore = (*InMemoryTaskStore)(nil)

// NewInMemoryTaskStore creates a new InMemoryTaskStore.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*a2a.Task),
	}
}

// Save persists a task to the in-memory storage.
func (s *InMemoryTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	if err := task.Validate(); err != nil {
		return NewTaskValidationError(task.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a deep copy so later caller mutations don't leak in
	s.tasks[task.ID] = copyTask(task)

	return nil
}

// Get retrieves a task by its ID from the in-memory storage.
func (s *InMemoryTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return nil, a2a.TaskNotFoundError{TaskID: taskID}
	}

	return copyTask(task), nil
}

// Delete removes a task from the in-memory storage.
func (s *InMemoryTaskStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[taskID]; !exists {
		return a2a.TaskNotFoundError{TaskID: taskID}
	}

	delete(s.tasks, taskID)
	return nil
}

// List retrieves tasks with optional filtering.
func (s *InMemoryTaskStore) List(ctx context.Context, contextID string, limit, offset int) ([]*a2a.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*a2a.Task
	skipped := 0

	for _, task := range s.tasks {
		if contextID != "" && task.ContextID != contextID {
			continue
		}

		if skipped < offset {
			skipped++
			continue
		}

		if limit > 0 && len(tasks) >= limit {
			break
		}

		tasks = append(tasks, copyTask(task))
	}

	return tasks, nil
}

// Count returns the total number of tasks in the in-memory storage.
func (s *InMemoryTaskStore) Count(ctx context.Context, contextID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if contextID == "" {
		return int64(len(s.tasks)), nil
	}

	count := int64(0)
	for _, task := range s.tasks {
		if task.ContextID == contextID {
			count++
		}
	}

	return count, nil
}

// Initialize prepares the in-memory storage for use.
func (s *InMemoryTaskStore) Initialize(ctx context.Context) error {
	return nil
}

// Close cleanly shuts down the in-memory storage.
func (s *InMemoryTaskStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*a2a.Task)
	return nil
}

// Clear removes all tasks from the in-memory storage.
// This is useful for testing purposes.
func (s *InMemoryTaskStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*a2a.Task)
}

// Size returns the current number of tasks in the in-memory storage.
// This is useful for testing and monitoring purposes.
func (s *InMemoryTaskStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tasks)
}

// copyTask creates a deep copy of a task to avoid race conditions between
// the store and its callers.
func copyTask(task *a2a.Task) *a2a.Task {
	if task == nil {
		return nil
	}

	taskCopy := &a2a.Task{
		ID:        task.ID,
		ContextID: task.ContextID,
		Kind:      task.Kind,
		Metadata:  copyMetadata(task.Metadata),
	}

	if task.Status != nil {
		status := *task.Status
		if status.Message != nil {
			status.Message = copyMessage(status.Message)
		}
		taskCopy.Status = &status
	}

	if task.History != nil {
		taskCopy.History = make([]a2a.Message, len(task.History))
		for i := range task.History {
			taskCopy.History[i] = *copyMessage(&task.History[i])
		}
	}

	if task.Artifacts != nil {
		taskCopy.Artifacts = make([]a2a.Artifact, len(task.Artifacts))
		for i, artifact := range task.Artifacts {
			taskCopy.Artifacts[i] = a2a.Artifact{
				ArtifactID:  artifact.ArtifactID,
				Name:        artifact.Name,
				Description: artifact.Description,
				Parts:       copyParts(artifact.Parts),
				Metadata:    copyMetadata(artifact.Metadata),
			}
		}
	}

	return taskCopy
}

func copyMessage(message *a2a.Message) *a2a.Message {
	if message == nil {
		return nil
	}

	messageCopy := *message
	messageCopy.Parts = copyParts(message.Parts)
	messageCopy.Metadata = copyMetadata(message.Metadata)
	if message.ReferenceTaskIDs != nil {
		messageCopy.ReferenceTaskIDs = append([]string(nil), message.ReferenceTaskIDs...)
	}
	return &messageCopy
}

func copyParts(parts []a2a.Part) []a2a.Part {
	if parts == nil {
		return nil
	}

	partsCopy := make([]a2a.Part, len(parts))
	for i, part := range parts {
		switch p := part.(type) {
		case *a2a.TextPart:
			pc := *p
			pc.Metadata = copyMetadata(p.Metadata)
			partsCopy[i] = &pc
		case *a2a.DataPart:
			pc := *p
			pc.Data = copyMetadata(p.Data)
			pc.Metadata = copyMetadata(p.Metadata)
			partsCopy[i] = &pc
		case *a2a.FilePart:
			pc := *p
			pc.File = copyMetadata(p.File)
			pc.Metadata = copyMetadata(p.Metadata)
			partsCopy[i] = &pc
		default:
			partsCopy[i] = part
		}
	}
	return partsCopy
}

func copyMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	return maps.Clone(metadata)
}
