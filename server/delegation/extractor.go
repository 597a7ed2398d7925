// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package delegation implements delegation of user requests to remote A2A
// agents and monitoring of the resulting external tasks: sending the
// request, extracting the remote task handle, probing push capability,
// and reconciling remote status updates into local task records.
package delegation

import (
	"fmt"
	"regexp"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// Remote replies are sometimes stringified SDK objects rather than clean
// JSON. The UUIDs embedded as context_id='...' or id='...' are the
// recoverable handles in that case; a bare UUID anywhere in the text is the
// last resort.
var (
	contextIDPattern = regexp.MustCompile(`context_id='([a-f0-9-]{36})'`)
	taskIDPattern    = regexp.MustCompile(`id='([a-f0-9-]{36})'`)
	bareUUIDPattern  = regexp.MustCompile(`[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`)
)

// ExtractTaskID extracts the remote task ID from a message/send reply
// payload.
//
// Structured payloads resolve in precedence order contextId > id > taskId.
// A payload with kind "message" is a synchronous final reply and yields
// ErrNoTaskHandle. Unstructured payloads fall back to scanning the
// stringified form for embedded identifiers.
//
// Args:
//   - payload: the decoded reply, usually a map, or any value whose
//     stringified form may embed a task ID.
//
// Returns the extracted task ID, ErrNoTaskHandle for plain message
// replies, or *ExtractionFailure when a task-shaped reply has no usable
// ID.
func ExtractTaskID(payload any) (string, error) {
	if m, ok := payload.(map[string]any); ok {
		return extractFromMap(m)
	}
	return extractFromString(fmt.Sprintf("%v", payload))
}

func extractFromMap(m map[string]any) (string, error) {
	if kind, _ := m["kind"].(string); kind == a2a.MessageEventKind {
		return "", ErrNoTaskHandle
	}

	for _, key := range []string{"contextId", "context_id", "id", "taskId"} {
		if v, ok := m[key].(string); ok && v != "" {
			return v, nil
		}
	}

	// A nested status object marks the payload as task-shaped even
	// without a kind discriminator.
	if _, hasStatus := m["status"]; hasStatus || m["kind"] == a2a.TaskEventKind {
		return "", &ExtractionFailure{Detail: "task-shaped reply has no contextId, id or taskId"}
	}

	return "", ErrNoTaskHandle
}

func extractFromString(s string) (string, error) {
	if match := contextIDPattern.FindStringSubmatch(s); match != nil {
		return match[1], nil
	}
	if match := taskIDPattern.FindStringSubmatch(s); match != nil {
		return match[1], nil
	}
	if match := bareUUIDPattern.FindString(s); match != "" {
		return match, nil
	}
	return "", &ExtractionFailure{Detail: "no identifier found in stringified reply"}
}
