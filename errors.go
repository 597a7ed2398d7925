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

import "fmt"

// JSON-RPC error codes defined by the A2A protocol.
const (
	CodeParseError                     = -32700
	CodeInvalidRequest                 = -32600
	CodeMethodNotFound                 = -32601
	CodeInvalidParams                  = -32602
	CodeInternalError                  = -32603
	CodeTaskNotFound                   = -32001
	CodeTaskNotCancelable              = -32002
	CodePushNotificationNotSupported   = -32003
	CodeUnsupportedOperation           = -32004
	CodeContentTypeNotSupported        = -32005
	CodeInvalidAgentResponse           = -32006
	CodeAuthenticatedCardNotConfigured = -32007
)

// A2AError is the interface implemented by all protocol-level errors.
type A2AError interface {
	error

	// Code returns the JSON-RPC error code.
	Code() int
}

// TaskNotFoundError indicates the requested task ID was not found.
type TaskNotFoundError struct {
	TaskID string
}

// Error returns the error message.
func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// Code returns the JSON-RPC error code.
func (e TaskNotFoundError) Code() int { return CodeTaskNotFound }

// TaskNotCancelableError indicates the task is in a state where it cannot
// be canceled.
type TaskNotCancelableError struct {
	TaskID string
	State  TaskState
}

// Error returns the error message.
func (e TaskNotCancelableError) Error() string {
	return fmt.Sprintf("task %s in state %s cannot be canceled", e.TaskID, e.State)
}

// Code returns the JSON-RPC error code.
func (e TaskNotCancelableError) Code() int { return CodeTaskNotCancelable }

// PushNotificationNotSupportedError indicates the agent does not support
// push notifications.
type PushNotificationNotSupportedError struct{}

// Error returns the error message.
func (e PushNotificationNotSupportedError) Error() string {
	return "push notifications are not supported"
}

// Code returns the JSON-RPC error code.
func (e PushNotificationNotSupportedError) Code() int { return CodePushNotificationNotSupported }

// MethodNotFoundError indicates the requested JSON-RPC method does not exist.
type MethodNotFoundError struct {
	Method string
}

// Error returns the error message.
func (e MethodNotFoundError) Error() string {
	return fmt.Sprintf("method not found: %s", e.Method)
}

// Code returns the JSON-RPC error code.
func (e MethodNotFoundError) Code() int { return CodeMethodNotFound }

// InvalidParamsError indicates the request params were malformed or missing
// required fields.
type InvalidParamsError struct {
	Detail string
}

// Error returns the error message.
func (e InvalidParamsError) Error() string {
	if e.Detail == "" {
		return "invalid params"
	}
	return fmt.Sprintf("invalid params: %s", e.Detail)
}

// Code returns the JSON-RPC error code.
func (e InvalidParamsError) Code() int { return CodeInvalidParams }

// InternalError indicates a server-side failure while handling a request.
type InternalError struct {
	Detail string
}

// Error returns the error message.
func (e InternalError) Error() string {
	if e.Detail == "" {
		return "internal error"
	}
	return fmt.Sprintf("internal error: %s", e.Detail)
}

// Code returns the JSON-RPC error code.
func (e InternalError) Code() int { return CodeInternalError }
