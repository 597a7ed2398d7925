// Copyright 2025 The Go A2A Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewTask creates a new local task in the submitted state.
//
// Args:
//   - contextID: the context to attach the task to. A new one is generated
//     when empty.
//
// Returns the created task.
func NewTask(contextID string) *Task {
	if contextID == "" {
		contextID = uuid.NewString()
	}
	return &Task{
		ID:        uuid.NewString(),
		ContextID: contextID,
		Kind:      TaskEventKind,
		Status: &TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// NewExternalTask creates a local record for a task that executes on a
// remote agent. The record's ID, context ID and external task ID are all
// the remote task's ID, so that status queries against either identifier
// resolve to the same record.
//
// Args:
//   - externalTaskID: the task ID assigned by the remote agent.
//   - agentURL: the remote agent's base URL.
//   - agentID: the remote agent's registry identifier.
//
// Returns the created task or an error if externalTaskID is empty.
func NewExternalTask(externalTaskID, agentURL, agentID string) (*Task, error) {
	if externalTaskID == "" {
		return nil, fmt.Errorf("external task ID cannot be empty")
	}
	return &Task{
		ID:        externalTaskID,
		ContextID: externalTaskID,
		Kind:      TaskEventKind,
		Status: &TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Metadata: map[string]any{
			MetadataIsExternalTask:   true,
			MetadataExternalAgentURL: agentURL,
			MetadataExternalAgentID:  agentID,
			MetadataExternalTaskID:   externalTaskID,
		},
	}, nil
}

// CompletedTask creates a task already in the completed state carrying the
// given artifacts.
//
// Args:
//   - taskID: the task ID. Generated when empty.
//   - contextID: the context ID. Generated when empty.
//   - artifacts: artifacts produced for the task.
//   - history: message history to attach.
//
// Returns the created task.
func CompletedTask(taskID, contextID string, artifacts []Artifact, history []Message) *Task {
	if taskID == "" {
		taskID = uuid.NewString()
	}
	if contextID == "" {
		contextID = uuid.NewString()
	}
	return &Task{
		ID:        taskID,
		ContextID: contextID,
		Kind:      TaskEventKind,
		Status: &TaskStatus{
			State:     TaskStateCompleted,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Artifacts: artifacts,
		History:   history,
	}
}

// IsExternal reports whether the task record mirrors work executing on a
// remote agent.
func (t *Task) IsExternal() bool {
	if t == nil || t.Metadata == nil {
		return false
	}
	v, ok := t.Metadata[MetadataIsExternalTask].(bool)
	return ok && v
}

// ExternalAgentURL returns the remote agent base URL recorded on an
// external task, or the empty string for local tasks.
func (t *Task) ExternalAgentURL() string {
	if t == nil || t.Metadata == nil {
		return ""
	}
	v, _ := t.Metadata[MetadataExternalAgentURL].(string)
	return v
}

// ExternalTaskID returns the remote task ID recorded on an external task.
// It falls back to the local ID, which is the same value by construction.
func (t *Task) ExternalTaskID() string {
	if t == nil {
		return ""
	}
	if t.Metadata != nil {
		if v, ok := t.Metadata[MetadataExternalTaskID].(string); ok && v != "" {
			return v
		}
	}
	return t.ID
}

// Validate checks the task's structural invariants.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if t.ContextID == "" {
		return fmt.Errorf("task context ID cannot be empty")
	}
	if t.Status == nil {
		return fmt.Errorf("task status cannot be nil")
	}
	if t.IsExternal() && (t.ID != t.ContextID || t.ID != t.ExternalTaskID()) {
		return fmt.Errorf("external task %s has mismatched identifiers", t.ID)
	}
	return nil
}
