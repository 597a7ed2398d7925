// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
	"github.com/ZPlayground/zhipu-end-device-agent-service/server/task"
)

// StatusNotifier is told about task records whose stored state changed, so
// registered push callbacks can be informed. Calls must not block
// reconciliation; delivery is best effort.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, t *a2a.Task)
}

// MapState maps a remote agent's task state onto the local state model.
// Remote agents report a wider vocabulary than the local store tracks;
// unrecognized states map to working so an in-flight task is never
// finalized on bad data.
func MapState(remote string) a2a.TaskState {
	switch a2a.TaskState(remote) {
	case a2a.TaskStateSubmitted, "pending":
		return a2a.TaskStateSubmitted
	case a2a.TaskStateWorking, "processing":
		return a2a.TaskStateWorking
	case a2a.TaskStateInputRequired, a2a.TaskStateAuthRequired:
		return a2a.TaskStateInputRequired
	case a2a.TaskStateCompleted:
		return a2a.TaskStateCompleted
	case a2a.TaskStateFailed:
		return a2a.TaskStateFailed
	case a2a.TaskStateCanceled, "cancelled", a2a.TaskStateRejected:
		return a2a.TaskStateCanceled
	default:
		return a2a.TaskStateWorking
	}
}

// Reconciler applies remote task results to local task records, enforcing
// terminal-state immutability.
type Reconciler struct {
	store    task.TaskStore
	notifier StatusNotifier
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewReconciler creates a new Reconciler over the given store. A nil
// notifier disables status change notifications.
func NewReconciler(store task.TaskStore, notifier StatusNotifier, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:    store,
		notifier: notifier,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockTask returns the mutex serializing updates to the given task. Push and
// poll reconciliations can race for the same record; holding a per-task lock
// across the read-modify-write keeps a terminal result from being overwritten
// by a stale in-flight one. Lock entries live as long as the Reconciler.
func (r *Reconciler) lockTask(taskID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[taskID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[taskID] = l
	}
	return l
}

func (r *Reconciler) notify(ctx context.Context, t *a2a.Task) {
	if r.notifier != nil {
		r.notifier.NotifyStatus(ctx, t)
	}
}

// Apply merges a remote task result into the local record identified by
// taskID.
//
// A local record in a terminal state is never modified; re-applying the
// same terminal result is an idempotent no-op. Otherwise the remote state
// is mapped onto the local model and the status message and any new
// artifacts are merged in.
//
// Returns true when the local record changed.
func (r *Reconciler) Apply(ctx context.Context, taskID string, remote *a2a.Task) (bool, error) {
	if remote == nil || remote.Status == nil {
		return false, nil
	}

	l := r.lockTask(taskID)
	l.Lock()
	defer l.Unlock()

	local, err := r.store.Get(ctx, taskID)
	if err != nil {
		return false, err
	}

	if local.Status != nil && local.Status.State.IsTerminal() {
		r.logger.DebugContext(ctx, "ignoring update for terminal task",
			slog.String("task_id", taskID),
			slog.String("state", string(local.Status.State)))
		return false, nil
	}

	mapped := MapState(string(remote.Status.State))
	changed := local.Status == nil || local.Status.State != mapped

	if !changed && remote.Status.Message == nil && len(remote.Artifacts) == 0 {
		return false, nil
	}

	local.Status = &a2a.TaskStatus{
		State:     mapped,
		Message:   remote.Status.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	local.Artifacts = mergeArtifacts(local.Artifacts, remote.Artifacts)

	if err := r.store.Save(ctx, local); err != nil {
		return false, err
	}

	r.logger.InfoContext(ctx, "reconciled remote task state",
		slog.String("task_id", taskID),
		slog.String("remote_state", string(remote.Status.State)),
		slog.String("local_state", string(mapped)))
	r.notify(ctx, local)
	return true, nil
}

// MarkFailed transitions the local record into the failed state with the
// given reason, unless the record is already terminal.
func (r *Reconciler) MarkFailed(ctx context.Context, taskID, reason string) error {
	l := r.lockTask(taskID)
	l.Lock()
	defer l.Unlock()

	local, err := r.store.Get(ctx, taskID)
	if err != nil {
		return err
	}

	if local.Status != nil && local.Status.State.IsTerminal() {
		return nil
	}

	local.Status = &a2a.TaskStatus{
		State:     a2a.TaskStateFailed,
		Message:   a2a.NewAgentTextMessage(reason, local.ContextID, local.ID),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.store.Save(ctx, local); err != nil {
		return err
	}

	r.logger.WarnContext(ctx, "marked task failed",
		slog.String("task_id", taskID),
		slog.String("reason", reason))
	r.notify(ctx, local)
	return nil
}

// mergeArtifacts appends remote artifacts not already present locally,
// matching by artifact ID.
func mergeArtifacts(local, remote []a2a.Artifact) []a2a.Artifact {
	if len(remote) == 0 {
		return local
	}

	seen := make(map[string]struct{}, len(local))
	for _, artifact := range local {
		seen[artifact.ArtifactID] = struct{}{}
	}
	for _, artifact := range remote {
		if _, ok := seen[artifact.ArtifactID]; ok {
			continue
		}
		local = append(local, artifact)
	}
	return local
}
