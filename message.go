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
	"strings"

	"github.com/google/uuid"
)

// NewAgentTextMessage creates a new agent message containing a single
// TextPart.
//
// Args:
//   - text: the message content.
//   - contextID: the context the message belongs to, may be empty.
//   - taskID: the task the message relates to, may be empty.
//
// Returns the created message.
func NewAgentTextMessage(text, contextID, taskID string) *Message {
	return &Message{
		MessageID: uuid.NewString(),
		Kind:      MessageEventKind,
		Role:      MessageRoleAgent,
		ContextID: contextID,
		TaskID:    taskID,
		Parts: []Part{
			&TextPart{Kind: TextPartKind, Text: text},
		},
	}
}

// NewUserTextMessage creates a new user message containing a single
// TextPart.
//
// Args:
//   - text: the message content.
//   - contextID: the context the message belongs to, may be empty.
//
// Returns the created message.
func NewUserTextMessage(text, contextID string) *Message {
	return &Message{
		MessageID: uuid.NewString(),
		Kind:      MessageEventKind,
		Role:      MessageRoleUser,
		ContextID: contextID,
		Parts: []Part{
			&TextPart{Kind: TextPartKind, Text: text},
		},
	}
}

// GetTextParts extracts the text content from all TextParts of a message
// in order.
func GetTextParts(parts []Part) []string {
	var texts []string
	for _, part := range parts {
		if tp, ok := part.(*TextPart); ok {
			texts = append(texts, tp.Text)
		}
	}
	return texts
}

// GetMessageText returns the text content of a message, joining multiple
// TextParts with the given delimiter. An empty delimiter joins with "\n".
func GetMessageText(message *Message, delimiter string) string {
	if message == nil {
		return ""
	}
	if delimiter == "" {
		delimiter = "\n"
	}
	return strings.Join(GetTextParts(message.Parts), delimiter)
}
