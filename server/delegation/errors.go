// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoTaskHandle indicates a remote reply was a plain message carrying no
// task handle. The delegation completed synchronously and there is nothing
// to monitor.
var ErrNoTaskHandle = errors.New("remote reply carries no task handle")

// ExtractionFailure indicates a task-shaped remote reply carried no usable
// task ID. The delegation degrades to a completed, non-monitorable record.
type ExtractionFailure struct {
	// AgentURL is the remote agent the reply came from.
	AgentURL string

	// Detail describes what was missing.
	Detail string
}

// Error returns the error message.
func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("failed to extract task ID from %s reply: %s", e.AgentURL, e.Detail)
}

// StalenessWarning indicates a remote status timestamp predates the start
// of the monitoring query by more than the configured threshold. It is
// logged and never fails the poll.
type StalenessWarning struct {
	TaskID    string
	Timestamp time.Time
	Age       time.Duration
}

// Error returns the warning message.
func (e *StalenessWarning) Error() string {
	return fmt.Sprintf("task %s status timestamp is stale by %s", e.TaskID, e.Age)
}
