// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"errors"
	"testing"
)

func TestExtractTaskID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		payload           any
		want              string
		wantNoHandle      bool
		wantExtractionErr bool
	}{
		"contextId takes precedence": {
			payload: map[string]any{
				"contextId": "ctx-uuid",
				"id":        "id-uuid",
				"taskId":    "task-uuid",
			},
			want: "ctx-uuid",
		},
		"snake case context_id": {
			payload: map[string]any{
				"context_id": "ctx-uuid",
				"id":         "id-uuid",
			},
			want: "ctx-uuid",
		},
		"id when no context": {
			payload: map[string]any{
				"id":     "id-uuid",
				"taskId": "task-uuid",
			},
			want: "id-uuid",
		},
		"taskId as last resort": {
			payload: map[string]any{
				"taskId": "task-uuid",
			},
			want: "task-uuid",
		},
		"message kind carries no handle": {
			payload: map[string]any{
				"kind":      "message",
				"contextId": "ctx-uuid",
			},
			wantNoHandle: true,
		},
		"task kind without any ID": {
			payload: map[string]any{
				"kind": "task",
			},
			wantExtractionErr: true,
		},
		"status object without any ID": {
			payload: map[string]any{
				"status": map[string]any{"state": "working"},
			},
			wantExtractionErr: true,
		},
		"empty map carries no handle": {
			payload:      map[string]any{},
			wantNoHandle: true,
		},
		"empty string values are skipped": {
			payload: map[string]any{
				"contextId": "",
				"id":        "id-uuid",
			},
			want: "id-uuid",
		},
		"stringified reply with context_id": {
			payload: "Task(context_id='0a1b2c3d-0000-1111-2222-333344445555', status=working)",
			want:    "0a1b2c3d-0000-1111-2222-333344445555",
		},
		"stringified reply with id only": {
			payload: "Task(id='0a1b2c3d-0000-1111-2222-333344445555')",
			want:    "0a1b2c3d-0000-1111-2222-333344445555",
		},
		"stringified reply prefers context_id over id": {
			payload: "Task(id='99999999-9999-9999-9999-999999999999', context_id='0a1b2c3d-0000-1111-2222-333344445555')",
			want:    "0a1b2c3d-0000-1111-2222-333344445555",
		},
		"stringified reply with bare UUID": {
			payload: "remote accepted task 0a1b2c3d-0000-1111-2222-333344445555 for processing",
			want:    "0a1b2c3d-0000-1111-2222-333344445555",
		},
		"stringified reply with no identifier": {
			payload:           "no identifiers here",
			wantExtractionErr: true,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := ExtractTaskID(tt.payload)

			if tt.wantNoHandle {
				if !errors.Is(err, ErrNoTaskHandle) {
					t.Errorf("ExtractTaskID() error = %v, want ErrNoTaskHandle", err)
				}
				return
			}
			if tt.wantExtractionErr {
				var extractionErr *ExtractionFailure
				if !errors.As(err, &extractionErr) {
					t.Errorf("ExtractTaskID() error = %v, want *ExtractionFailure", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractTaskID() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractTaskID() = %q, want %q", got, tt.want)
			}
		})
	}
}
