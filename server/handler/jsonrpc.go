// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"

	a2a "github.com/ZPlayground/zhipu-end-device-agent-service"
)

// JSONRPCHandler serves the A2A JSON-RPC methods over HTTP POST.
type JSONRPCHandler struct {
	handler RequestHandler
	logger  *slog.Logger
}

var _ http.Handler = (*JSONRPCHandler)(nil)

// NewJSONRPCHandler creates a new JSONRPCHandler dispatching into the
// given request handler.
func NewJSONRPCHandler(handler RequestHandler, logger *slog.Logger) *JSONRPCHandler {
	if handler == nil {
		panic("request handler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONRPCHandler{handler: handler, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *JSONRPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeResponse(w, errorResponse(nil, a2a.CodeParseError, "failed to read request body"))
		return
	}

	var request JSONRPCRequest
	if err := sonic.ConfigDefault.Unmarshal(body, &request); err != nil {
		h.writeResponse(w, errorResponse(nil, a2a.CodeParseError, "failed to parse JSON-RPC request"))
		return
	}
	if request.JSONRPC != a2a.JSONRPCVersion || request.Method == "" {
		h.writeResponse(w, errorResponse(request.ID, a2a.CodeInvalidRequest, "invalid JSON-RPC request"))
		return
	}

	h.writeResponse(w, h.dispatch(&request, r))
}

func (h *JSONRPCHandler) dispatch(request *JSONRPCRequest, r *http.Request) *JSONRPCResponse {
	ctx := r.Context()

	switch request.Method {
	case a2a.MethodMessageSend:
		var params a2a.MessageSendParams
		if err := sonic.ConfigDefault.Unmarshal(request.Params, &params); err != nil || params.Message == nil {
			return errorResponse(request.ID, a2a.CodeInvalidParams, "message/send requires a message")
		}
		result, err := h.handler.OnMessageSend(ctx, &params)
		if err != nil {
			return h.errorFrom(ctx, request.ID, err)
		}
		return successResponse(request.ID, result)

	case a2a.MethodTasksGet:
		var params TaskQuery
		if err := sonic.ConfigDefault.Unmarshal(request.Params, &params); err != nil {
			return errorResponse(request.ID, a2a.CodeInvalidParams, "malformed tasks/get params")
		}
		taskID := params.ResolveID()
		if taskID == "" {
			return errorResponse(request.ID, a2a.CodeInvalidParams, "tasks/get requires a task ID")
		}
		result, err := h.handler.OnTasksGet(ctx, taskID, params.HistoryLength)
		if err != nil {
			return h.errorFrom(ctx, request.ID, err)
		}
		return successResponse(request.ID, result)

	case a2a.MethodTasksCancel:
		var params TaskQuery
		if err := sonic.ConfigDefault.Unmarshal(request.Params, &params); err != nil {
			return errorResponse(request.ID, a2a.CodeInvalidParams, "malformed tasks/cancel params")
		}
		taskID := params.ResolveID()
		if taskID == "" {
			return errorResponse(request.ID, a2a.CodeInvalidParams, "tasks/cancel requires a task ID")
		}
		result, err := h.handler.OnTasksCancel(ctx, taskID)
		if err != nil {
			return h.errorFrom(ctx, request.ID, err)
		}
		return successResponse(request.ID, result)

	case a2a.MethodTasksPushNotificationConfigSet:
		var params a2a.TaskPushNotificationConfig
		if err := sonic.ConfigDefault.Unmarshal(request.Params, &params); err != nil || params.TaskID == "" || params.PushNotificationConfig == nil {
			return errorResponse(request.ID, a2a.CodeInvalidParams, "pushNotificationConfig/set requires a task ID and config")
		}
		result, err := h.handler.OnPushNotificationConfigSet(ctx, &params)
		if err != nil {
			return h.errorFrom(ctx, request.ID, err)
		}
		return successResponse(request.ID, result)

	case a2a.MethodTasksPushNotificationConfigGet:
		var params PushNotificationConfigParams
		if err := sonic.ConfigDefault.Unmarshal(request.Params, &params); err != nil || params.ID == "" {
			return errorResponse(request.ID, a2a.CodeInvalidParams, "pushNotificationConfig/get requires a task ID")
		}
		result, err := h.handler.OnPushNotificationConfigGet(ctx, params.ID, params.PushNotificationConfigID)
		if err != nil {
			return h.errorFrom(ctx, request.ID, err)
		}
		return successResponse(request.ID, result)

	case a2a.MethodTasksPushNotificationConfigList:
		var params PushNotificationConfigParams
		if err := sonic.ConfigDefault.Unmarshal(request.Params, &params); err != nil || params.ID == "" {
			return errorResponse(request.ID, a2a.CodeInvalidParams, "pushNotificationConfig/list requires a task ID")
		}
		result, err := h.handler.OnPushNotificationConfigList(ctx, params.ID)
		if err != nil {
			return h.errorFrom(ctx, request.ID, err)
		}
		return successResponse(request.ID, result)

	case a2a.MethodTasksPushNotificationConfigDelete:
		var params PushNotificationConfigParams
		if err := sonic.ConfigDefault.Unmarshal(request.Params, &params); err != nil || params.ID == "" {
			return errorResponse(request.ID, a2a.CodeInvalidParams, "pushNotificationConfig/delete requires a task ID")
		}
		if err := h.handler.OnPushNotificationConfigDelete(ctx, params.ID, params.PushNotificationConfigID); err != nil {
			return h.errorFrom(ctx, request.ID, err)
		}
		return successResponse(request.ID, map[string]any{"deleted": true})

	default:
		return errorResponse(request.ID, a2a.CodeMethodNotFound, "method not found: "+request.Method)
	}
}

// errorFrom maps application errors onto JSON-RPC error objects. Protocol
// errors keep their code; everything else becomes an internal error.
func (h *JSONRPCHandler) errorFrom(ctx context.Context, id any, err error) *JSONRPCResponse {
	var protoErr a2a.A2AError
	if errors.As(err, &protoErr) {
		return errorResponse(id, protoErr.Code(), protoErr.Error())
	}

	h.logger.ErrorContext(ctx, "request handler failed", slog.Any("error", err))
	return errorResponse(id, a2a.CodeInternalError, err.Error())
}

func successResponse(id, result any) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: id, Result: result}
}

func errorResponse(id any, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: a2a.JSONRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}

func (h *JSONRPCHandler) writeResponse(w http.ResponseWriter, response *JSONRPCResponse) {
	data, err := sonic.ConfigDefault.Marshal(response)
	if err != nil {
		h.logger.Error("failed to encode JSON-RPC response", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
