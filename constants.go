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

// Event kind discriminators.
const (
	TaskEventKind    = "task"
	MessageEventKind = "message"

	// TaskPushNotificationConfigKind is the kind reported in
	// tasks/pushNotificationConfig responses.
	TaskPushNotificationConfigKind = "taskPushNotificationConfig"
)

// JSON-RPC method names defined by the A2A protocol.
const (
	MethodMessageSend                       = "message/send"
	MethodTasksGet                          = "tasks/get"
	MethodTasksCancel                       = "tasks/cancel"
	MethodTasksPushNotificationConfigSet    = "tasks/pushNotificationConfig/set"
	MethodTasksPushNotificationConfigGet    = "tasks/pushNotificationConfig/get"
	MethodTasksPushNotificationConfigList   = "tasks/pushNotificationConfig/list"
	MethodTasksPushNotificationConfigDelete = "tasks/pushNotificationConfig/delete"
)

// Well-known paths for agent card discovery. AgentCardLegacyPath is the
// pre-0.3.0 location still served by older agents.
const (
	AgentCardWellKnownPath = "/.well-known/agent-card.json"
	AgentCardLegacyPath    = "/.well-known/agent.json"
)

// Metadata keys used to mark task records that mirror work executing on a
// remote agent.
const (
	MetadataIsExternalTask   = "is_external_task"
	MetadataExternalAgentURL = "external_agent_url"
	MetadataExternalAgentID  = "external_agent_id"
	MetadataExternalTaskID   = "external_task_id"
)

// JSONRPCVersion is the only supported JSON-RPC protocol version.
const JSONRPCVersion = "2.0"
