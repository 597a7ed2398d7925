// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// PushNotificationConfigStore defines the interface for persisting push
// notification configurations per task. A task may carry multiple configs,
// distinguished by server-generated config IDs.
type PushNotificationConfigStore interface {
	// Set stores a push notification config for a task. A config ID is
	// generated when the config carries none. Returns the stored config.
	Set(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) (*a2a.PushNotificationConfig, error)

	// Get retrieves a push notification config for a task. An empty
	// configID returns the first stored config.
	Get(ctx context.Context, taskID, configID string) (*a2a.PushNotificationConfig, error)

	// List retrieves all push notification configs for a task.
	List(ctx context.Context, taskID string) ([]*a2a.PushNotificationConfig, error)

	// Delete removes a push notification config for a task. An empty
	// configID removes all configs for the task.
	Delete(ctx context.Context, taskID, configID string) error
}

// InMemoryPushNotificationConfigStore is an in-memory implementation of
// PushNotificationConfigStore. All operations are thread-safe using
// sync.RWMutex.
type InMemoryPushNotificationConfigStore struct {
	mu      sync.RWMutex
	configs map[string][]*a2a.PushNotificationConfig
}

var _ PushNotificationConfigStore = (*InMemoryPushNotificationConfigStore)(nil)

// NewInMemoryPushNotificationConfigStore creates a new
// InMemoryPushNotificationConfigStore.
func NewInMemoryPushNotificationConfigStore() *InMemoryPushNotificationConfigStore {
	return &InMemoryPushNotificationConfigStore{
		configs: make(map[string][]*a2a.PushNotificationConfig),
	}
}

// Set stores a push notification config for a task.
func (s *InMemoryPushNotificationConfigStore) Set(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) (*a2a.PushNotificationConfig, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}
	if config == nil || config.URL == "" {
		return nil, fmt.Errorf("push notification config requires a URL")
	}

	stored := *config
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.configs[taskID] {
		if existing.ID == stored.ID {
			s.configs[taskID][i] = &stored
			return &stored, nil
		}
	}
	s.configs[taskID] = append(s.configs[taskID], &stored)

	return &stored, nil
}

// Get retrieves a push notification config for a task.
func (s *InMemoryPushNotificationConfigStore) Get(ctx context.Context, taskID, configID string) (*a2a.PushNotificationConfig, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := s.configs[taskID]
	if len(configs) == 0 {
		return nil, a2a.TaskNotFoundError{TaskID: taskID}
	}

	if configID == "" {
		config := *configs[0]
		return &config, nil
	}
	for _, config := range configs {
		if config.ID == configID {
			configCopy := *config
			return &configCopy, nil
		}
	}

	return nil, fmt.Errorf("push notification config %s not found for task %s", configID, taskID)
}

// List retrieves all push notification configs for a task.
func (s *InMemoryPushNotificationConfigStore) List(ctx context.Context, taskID string) ([]*a2a.PushNotificationConfig, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := make([]*a2a.PushNotificationConfig, 0, len(s.configs[taskID]))
	for _, config := range s.configs[taskID] {
		configCopy := *config
		configs = append(configs, &configCopy)
	}
	return configs, nil
}

// Delete removes a push notification config for a task.
func (s *InMemoryPushNotificationConfigStore) Delete(ctx context.Context, taskID, configID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if configID == "" {
		delete(s.configs, taskID)
		return nil
	}

	configs := s.configs[taskID]
	for i, config := range configs {
		if config.ID == configID {
			s.configs[taskID] = append(configs[:i], configs[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("push notification config %s not found for task %s", configID, taskID)
}
