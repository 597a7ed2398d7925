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

// Package a2a provides the core types of the Agent-to-Agent (A2A) protocol
// used by the end-device agent gateway: tasks, messages, agent cards and
// push notification configuration, together with helpers for constructing
// and inspecting them.
package a2a

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// TaskState represents the lifecycle state of a task.
type TaskState string

// Task states defined by the A2A protocol.
const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateAuthRequired  TaskState = "auth-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateRejected      TaskState = "rejected"
	TaskStateUnknown       TaskState = "unknown"
)

// IsTerminal reports whether the state is terminal. A task in a terminal
// state never transitions again; updates against it are no-ops.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	default:
		return false
	}
}

// TaskStatus holds the current state of a task together with an optional
// status message and the server-side timestamp of the last transition.
type TaskStatus struct {
	// State corresponds to the task lifecycle state.
	State TaskState `json:"state"`

	// Message is an optional human-readable status update.
	Message *Message `json:"message,omitzero"`

	// Timestamp is an ISO 8601 timestamp of the status change.
	Timestamp string `json:"timestamp,omitzero"`
}

// Task represents a single unit of work tracked by an A2A agent.
type Task struct {
	// ID is the unique identifier for the task.
	ID string `json:"id"`

	// ContextID is the server-generated id for contextual alignment
	// across interactions.
	ContextID string `json:"contextId"`

	// Kind is the event type discriminator, always "task".
	Kind string `json:"kind"`

	// Status is the current status of the task.
	Status *TaskStatus `json:"status"`

	// Artifacts is the collection of artifacts created by the agent.
	Artifacts []Artifact `json:"artifacts,omitzero"`

	// History holds recent messages exchanged on the task.
	History []Message `json:"history,omitzero"`

	// Metadata carries extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// MessageRole identifies the sender of a message.
type MessageRole string

// Message roles.
const (
	MessageRoleAgent MessageRole = "agent"
	MessageRoleUser  MessageRole = "user"
)

// Message represents a single message exchanged between user and agent.
type Message struct {
	// MessageID is an identifier created by the message creator.
	MessageID string `json:"messageId"`

	// Kind is the event type discriminator, always "message".
	Kind string `json:"kind"`

	// Role is the message sender's role.
	Role MessageRole `json:"role"`

	// Parts is the message content.
	Parts []Part `json:"parts"`

	// ContextID is the context the message is associated with.
	ContextID string `json:"contextId,omitzero"`

	// TaskID is the identifier of the task the message relates to.
	TaskID string `json:"taskId,omitzero"`

	// ReferenceTaskIDs lists tasks referenced as context by this message.
	ReferenceTaskIDs []string `json:"referenceTaskIds,omitzero"`

	// Metadata carries extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// UnmarshalJSON decodes a message, dispatching each part to its concrete
// type based on the "kind" discriminator.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		*alias
		Parts []jsontext.Value `json:"parts"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.Parts = make([]Part, 0, len(aux.Parts))
	for _, raw := range aux.Parts {
		part, err := unmarshalPart(raw)
		if err != nil {
			return err
		}
		m.Parts = append(m.Parts, part)
	}

	return nil
}

// Part kinds.
const (
	TextPartKind = "text"
	DataPartKind = "data"
	FilePartKind = "file"
)

// Part is the interface implemented by all message content parts.
type Part interface {
	// PartKind returns the part's kind discriminator.
	PartKind() string
}

// TextPart carries plain text content.
type TextPart struct {
	// Kind is the part type discriminator, always "text".
	Kind string `json:"kind"`

	// Text is the text content.
	Text string `json:"text"`

	// Metadata carries optional metadata associated with the part.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// PartKind implements Part.
func (p *TextPart) PartKind() string { return TextPartKind }

// DataPart carries structured JSON content.
type DataPart struct {
	// Kind is the part type discriminator, always "data".
	Kind string `json:"kind"`

	// Data is the structured content.
	Data map[string]any `json:"data"`

	// Metadata carries optional metadata associated with the part.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// PartKind implements Part.
func (p *DataPart) PartKind() string { return DataPartKind }

// FilePart references file content by URI or inline bytes.
type FilePart struct {
	// Kind is the part type discriminator, always "file".
	Kind string `json:"kind"`

	// File describes the file content.
	File map[string]any `json:"file"`

	// Metadata carries optional metadata associated with the part.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// PartKind implements Part.
func (p *FilePart) PartKind() string { return FilePartKind }

func unmarshalPart(data []byte) (Part, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode part kind: %w", err)
	}

	switch head.Kind {
	case TextPartKind:
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case DataPartKind:
		var p DataPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case FilePartKind:
		var p FilePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown part kind: %q", head.Kind)
	}
}

// Artifact represents an output produced by an agent for a task.
type Artifact struct {
	// ArtifactID is the unique identifier for the artifact.
	ArtifactID string `json:"artifactId"`

	// Name is an optional human-readable name.
	Name string `json:"name,omitzero"`

	// Description is an optional description of the artifact.
	Description string `json:"description,omitzero"`

	// Parts is the artifact content.
	Parts []Part `json:"parts"`

	// Metadata carries extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// UnmarshalJSON decodes an artifact, dispatching each part to its concrete
// type based on the "kind" discriminator.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	type alias Artifact
	aux := struct {
		*alias
		Parts []jsontext.Value `json:"parts"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	a.Parts = make([]Part, 0, len(aux.Parts))
	for _, raw := range aux.Parts {
		part, err := unmarshalPart(raw)
		if err != nil {
			return err
		}
		a.Parts = append(a.Parts, part)
	}

	return nil
}

// AgentCapabilities advertises optional protocol features of an agent.
type AgentCapabilities struct {
	// PushNotifications is true if the agent can notify updates to a
	// client-provided webhook.
	PushNotifications bool `json:"pushNotifications,omitzero"`

	// Streaming is true if the agent supports SSE streaming.
	Streaming bool `json:"streaming,omitzero"`

	// StateTransitionHistory is true if the agent exposes task state
	// change history.
	StateTransitionHistory bool `json:"stateTransitionHistory,omitzero"`
}

// AgentSkill describes a capability unit an agent can perform.
type AgentSkill struct {
	// ID is the unique identifier of the skill.
	ID string `json:"id"`

	// Name is the human-readable name of the skill.
	Name string `json:"name"`

	// Description of the skill.
	Description string `json:"description,omitzero"`

	// Tags for matching the skill against requests.
	Tags []string `json:"tags,omitzero"`

	// Examples of requests the skill handles.
	Examples []string `json:"examples,omitzero"`
}

// AgentCard is the self-description an agent publishes at its well-known URL.
type AgentCard struct {
	// Name is the human-readable name of the agent.
	Name string `json:"name"`

	// Description of the agent.
	Description string `json:"description,omitzero"`

	// URL is the endpoint where the agent serves A2A requests.
	URL string `json:"url"`

	// Version of the agent.
	Version string `json:"version"`

	// Capabilities advertised by the agent.
	Capabilities *AgentCapabilities `json:"capabilities,omitzero"`

	// DefaultInputModes lists supported input content types.
	DefaultInputModes []string `json:"defaultInputModes,omitzero"`

	// DefaultOutputModes lists supported output content types.
	DefaultOutputModes []string `json:"defaultOutputModes,omitzero"`

	// Skills the agent exposes.
	Skills []AgentSkill `json:"skills,omitzero"`
}

// SupportsPushNotifications reports whether the card advertises push
// notification support.
func (c *AgentCard) SupportsPushNotifications() bool {
	return c != nil && c.Capabilities != nil && c.Capabilities.PushNotifications
}

// PushNotificationAuthenticationInfo defines authentication details for
// push notifications.
type PushNotificationAuthenticationInfo struct {
	// Schemes lists supported authentication schemes, e.g. Basic, Bearer.
	Schemes []string `json:"schemes"`

	// Credentials are optional credentials.
	Credentials string `json:"credentials,omitzero"`
}

// PushNotificationConfig configures where and how an agent should deliver
// push notifications for task updates.
type PushNotificationConfig struct {
	// ID is created by the server to support multiple callbacks.
	ID string `json:"id,omitzero"`

	// URL for sending the push notifications.
	URL string `json:"url"`

	// Token unique to this task or session.
	Token string `json:"token,omitzero"`

	// Authentication details for the webhook endpoint.
	Authentication *PushNotificationAuthenticationInfo `json:"authentication,omitzero"`
}

// TaskPushNotificationConfig binds a push notification config to a task,
// as carried by the tasks/pushNotificationConfig/set method.
type TaskPushNotificationConfig struct {
	// TaskID is the task the config applies to. The wire field is "id"
	// per the A2A specification.
	TaskID string `json:"id"`

	// PushNotificationConfig is the callback configuration.
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig"`
}

// MessageSendConfiguration carries optional configuration for message/send.
type MessageSendConfiguration struct {
	// AcceptedOutputModes lists output modalities accepted by the client.
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitzero"`

	// Blocking requests synchronous handling from the server.
	Blocking bool `json:"blocking,omitzero"`

	// HistoryLength is the number of recent messages to retrieve.
	HistoryLength int64 `json:"historyLength,omitzero"`

	// PushNotificationConfig tells the server where to send notifications
	// when disconnected.
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig,omitzero"`
}

// MessageSendParams is the params object of the message/send method.
type MessageSendParams struct {
	// Message being sent to the server.
	Message *Message `json:"message"`

	// Configuration for the send request.
	Configuration *MessageSendConfiguration `json:"configuration,omitzero"`

	// Metadata carries extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// TaskQueryParams is the params object of the tasks/get method.
type TaskQueryParams struct {
	// ID of the task to query.
	ID string `json:"id"`

	// HistoryLength limits the number of history messages returned.
	HistoryLength int64 `json:"historyLength,omitzero"`

	// Metadata carries extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// TaskIDParams is the params object for simple task operations such as
// tasks/cancel.
type TaskIDParams struct {
	// ID of the task.
	ID string `json:"id"`

	// Metadata carries extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}
