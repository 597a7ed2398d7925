// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"context"
	"sync"
	"testing"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/task"
)

// recordingNotifier records the states it was notified with.
type recordingNotifier struct {
	mu     sync.Mutex
	states []a2a.TaskState
}

func (n *recordingNotifier) NotifyStatus(ctx context.Context, record *a2a.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, record.Status.State)
}

func (n *recordingNotifier) recorded() []a2a.TaskState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]a2a.TaskState(nil), n.states...)
}

func TestMapState(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		remote string
		want   a2a.TaskState
	}{
		"submitted":          {"submitted", a2a.TaskStateSubmitted},
		"pending":            {"pending", a2a.TaskStateSubmitted},
		"working":            {"working", a2a.TaskStateWorking},
		"processing":         {"processing", a2a.TaskStateWorking},
		"input-required":     {"input-required", a2a.TaskStateInputRequired},
		"auth-required":      {"auth-required", a2a.TaskStateInputRequired},
		"completed":          {"completed", a2a.TaskStateCompleted},
		"failed":             {"failed", a2a.TaskStateFailed},
		"canceled":           {"canceled", a2a.TaskStateCanceled},
		"cancelled":          {"cancelled", a2a.TaskStateCanceled},
		"rejected":           {"rejected", a2a.TaskStateCanceled},
		"unrecognized state": {"daydreaming", a2a.TaskStateWorking},
		"empty state":        {"", a2a.TaskStateWorking},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := MapState(tt.remote); got != tt.want {
				t.Errorf("MapState(%q) = %q, want %q", tt.remote, got, tt.want)
			}
		})
	}
}

func newExternalRecord(t *testing.T, store task.TaskStore) *a2a.Task {
	t.Helper()

	record, err := a2a.NewExternalTask("remote-1", "http://agent.example.com", "weather")
	if err != nil {
		t.Fatalf("NewExternalTask() unexpected error: %v", err)
	}
	if err := store.Save(context.Background(), record); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	return record
}

func TestReconcilerApply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := task.NewInMemoryTaskStore()
	record := newExternalRecord(t, store)
	r := NewReconciler(store, nil, nil)

	remote := &a2a.Task{
		ID:     record.ID,
		Status: &a2a.TaskStatus{State: a2a.TaskStateWorking},
	}

	changed, err := r.Apply(ctx, record.ID, remote)
	if err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	if !changed {
		t.Error("Apply() = false, want true for state transition")
	}

	got, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.Status.State != a2a.TaskStateWorking {
		t.Errorf("state = %q, want %q", got.Status.State, a2a.TaskStateWorking)
	}
}

func TestReconcilerApplyTerminalIsImmutable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := task.NewInMemoryTaskStore()
	record := newExternalRecord(t, store)
	r := NewReconciler(store, nil, nil)

	completed := &a2a.Task{
		ID:     record.ID,
		Status: &a2a.TaskStatus{State: a2a.TaskStateCompleted},
	}
	if _, err := r.Apply(ctx, record.ID, completed); err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}

	// Re-applying the same terminal result is a no-op.
	changed, err := r.Apply(ctx, record.ID, completed)
	if err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	if changed {
		t.Error("Apply() = true, want no-op for already terminal record")
	}

	// A conflicting update after the terminal state is ignored too.
	working := &a2a.Task{
		ID:     record.ID,
		Status: &a2a.TaskStatus{State: a2a.TaskStateWorking},
	}
	changed, err = r.Apply(ctx, record.ID, working)
	if err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	if changed {
		t.Error("Apply() = true, want terminal record left unchanged")
	}

	got, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %q, want %q", got.Status.State, a2a.TaskStateCompleted)
	}
}

func TestReconcilerApplyConcurrentTerminalWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := task.NewInMemoryTaskStore()
	record := newExternalRecord(t, store)
	r := NewReconciler(store, nil, nil)

	working := &a2a.Task{
		ID:     record.ID,
		Status: &a2a.TaskStatus{State: a2a.TaskStateWorking},
	}
	completed := &a2a.Task{
		ID:     record.ID,
		Status: &a2a.TaskStatus{State: a2a.TaskStateCompleted},
	}

	// Push and poll reconciliations race for the same record. Whatever the
	// interleaving, an in-flight update must never overwrite a terminal one.
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := r.Apply(ctx, record.ID, working); err != nil {
				t.Errorf("Apply(working) unexpected error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := r.Apply(ctx, record.ID, completed); err != nil {
				t.Errorf("Apply(completed) unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %q, want %q", got.Status.State, a2a.TaskStateCompleted)
	}
}

func TestReconcilerApplySameStateNoChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := task.NewInMemoryTaskStore()
	record := newExternalRecord(t, store)
	r := NewReconciler(store, nil, nil)

	remote := &a2a.Task{
		ID:     record.ID,
		Status: &a2a.TaskStatus{State: a2a.TaskStateSubmitted},
	}

	changed, err := r.Apply(ctx, record.ID, remote)
	if err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	if changed {
		t.Error("Apply() = true, want false when nothing changed")
	}
}

func TestReconcilerApplyMergesArtifacts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := task.NewInMemoryTaskStore()
	record := newExternalRecord(t, store)
	r := NewReconciler(store, nil, nil)

	first := &a2a.Task{
		ID:     record.ID,
		Status: &a2a.TaskStatus{State: a2a.TaskStateWorking},
		Artifacts: []a2a.Artifact{
			{ArtifactID: "art-1", Parts: []a2a.Part{&a2a.TextPart{Kind: a2a.TextPartKind, Text: "partial"}}},
		},
	}
	if _, err := r.Apply(ctx, record.ID, first); err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}

	second := &a2a.Task{
		ID:     record.ID,
		Status: &a2a.TaskStatus{State: a2a.TaskStateCompleted},
		Artifacts: []a2a.Artifact{
			{ArtifactID: "art-1", Parts: []a2a.Part{&a2a.TextPart{Kind: a2a.TextPartKind, Text: "partial"}}},
			{ArtifactID: "art-2", Parts: []a2a.Part{&a2a.TextPart{Kind: a2a.TextPartKind, Text: "final"}}},
		},
	}
	if _, err := r.Apply(ctx, record.ID, second); err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}

	got, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if len(got.Artifacts) != 2 {
		t.Errorf("artifacts length = %d, want 2 (deduplicated by ID)", len(got.Artifacts))
	}
}

func TestReconcilerNotifiesOnChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := task.NewInMemoryTaskStore()
	record := newExternalRecord(t, store)
	notifier := &recordingNotifier{}
	r := NewReconciler(store, notifier, nil)

	working := &a2a.Task{
		ID:     record.ID,
		Status: &a2a.TaskStatus{State: a2a.TaskStateWorking},
	}
	if _, err := r.Apply(ctx, record.ID, working); err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}

	// An update that changes nothing stays silent.
	if _, err := r.Apply(ctx, record.ID, working); err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}

	completed := &a2a.Task{
		ID:     record.ID,
		Status: &a2a.TaskStatus{State: a2a.TaskStateCompleted},
	}
	if _, err := r.Apply(ctx, record.ID, completed); err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}

	// A stale update against the terminal record stays silent too.
	if _, err := r.Apply(ctx, record.ID, working); err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}

	want := []a2a.TaskState{a2a.TaskStateWorking, a2a.TaskStateCompleted}
	got := notifier.recorded()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("notified states = %v, want %v", got, want)
	}
}

func TestReconcilerMarkFailedNotifies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := task.NewInMemoryTaskStore()
	record := newExternalRecord(t, store)
	notifier := &recordingNotifier{}
	r := NewReconciler(store, notifier, nil)

	if err := r.MarkFailed(ctx, record.ID, "remote agent unreachable"); err != nil {
		t.Fatalf("MarkFailed() unexpected error: %v", err)
	}

	// Failing an already terminal record stays silent.
	if err := r.MarkFailed(ctx, record.ID, "again"); err != nil {
		t.Fatalf("MarkFailed() unexpected error: %v", err)
	}

	got := notifier.recorded()
	if len(got) != 1 || got[0] != a2a.TaskStateFailed {
		t.Errorf("notified states = %v, want [failed]", got)
	}
}

func TestReconcilerMarkFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := task.NewInMemoryTaskStore()
	record := newExternalRecord(t, store)
	r := NewReconciler(store, nil, nil)

	if err := r.MarkFailed(ctx, record.ID, "monitoring exhausted"); err != nil {
		t.Fatalf("MarkFailed() unexpected error: %v", err)
	}

	got, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.Status.State != a2a.TaskStateFailed {
		t.Errorf("state = %q, want %q", got.Status.State, a2a.TaskStateFailed)
	}
	if text := a2a.GetMessageText(got.Status.Message, ""); text != "monitoring exhausted" {
		t.Errorf("failure message = %q, want %q", text, "monitoring exhausted")
	}

	// MarkFailed never overwrites a terminal record.
	if err := r.MarkFailed(ctx, record.ID, "again"); err != nil {
		t.Fatalf("MarkFailed() unexpected error: %v", err)
	}
	got, _ = store.Get(ctx, record.ID)
	if text := a2a.GetMessageText(got.Status.Message, ""); text != "monitoring exhausted" {
		t.Errorf("failure message overwritten on terminal record: %q", text)
	}
}
