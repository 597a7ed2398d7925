// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// RPCError represents a JSON-RPC 2.0 error object returned by a remote
// agent.
type RPCError struct {
	// Code is the error code.
	Code int `json:"code"`

	// Message is the error message.
	Message string `json:"message"`

	// Data is optional additional information about the error.
	Data any `json:"data,omitzero"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error: code = %d, message = %s, data = %v", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error: code = %d, message = %s", e.Code, e.Message)
}

// TransportError represents an HTTP or connection level failure before a
// JSON-RPC response could be obtained.
type TransportError struct {
	// Operation is the A2A method or action being performed.
	Operation string

	// URL is the endpoint the request was sent to.
	URL string

	// StatusCode is the HTTP status code, 0 when no response was received.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error: %s %s returned status %d", e.Operation, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("transport error: %s %s: %v", e.Operation, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// IsTaskNotFound reports whether err is a remote TaskNotFound error
// (-32001). Pollers use this to stop querying tasks the remote agent has
// forgotten.
func IsTaskNotFound(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == a2a.CodeTaskNotFound
}

// Recommended client actions for A2A error codes.
const (
	ActionStopPollingTaskDoesNotExist = "stop_polling_task_does_not_exist"
	ActionDoNotRetryCancel            = "do_not_retry_cancel"
	ActionFallBackToPolling           = "fall_back_to_polling"
	ActionUseDifferentOperation       = "use_different_operation"
	ActionAdjustContentType           = "adjust_content_type"
	ActionReportRemoteAgentBug        = "report_remote_agent_bug"
	ActionSkipExtendedCard            = "skip_extended_card"
	ActionFixRequest                  = "fix_request"
	ActionRetryWithBackoff            = "retry_with_backoff"
)

// RecommendedAction maps an A2A error to the action a caller should take.
// Transport errors recommend a retry with backoff; protocol errors map by
// code.
func RecommendedAction(err error) string {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return ActionRetryWithBackoff
	}

	switch rpcErr.Code {
	case a2a.CodeTaskNotFound:
		return ActionStopPollingTaskDoesNotExist
	case a2a.CodeTaskNotCancelable:
		return ActionDoNotRetryCancel
	case a2a.CodePushNotificationNotSupported:
		return ActionFallBackToPolling
	case a2a.CodeUnsupportedOperation:
		return ActionUseDifferentOperation
	case a2a.CodeContentTypeNotSupported:
		return ActionAdjustContentType
	case a2a.CodeInvalidAgentResponse:
		return ActionReportRemoteAgentBug
	case a2a.CodeAuthenticatedCardNotConfigured:
		return ActionSkipExtendedCard
	default:
		return ActionFixRequest
	}
}
