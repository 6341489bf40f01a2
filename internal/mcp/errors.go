// Package mcp exposes docqa as a Model Context Protocol server.
package mcp

import (
	"context"
	"errors"
	"fmt"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

// Custom MCP error codes for docqa.
const (
	// ErrCodeIndexNotFound indicates the index is missing or unreadable.
	ErrCodeIndexNotFound = -32001

	// ErrCodeEmbeddingFailed indicates the embedder could not serve the request.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeFileNotFound indicates a document does not exist.
	ErrCodeFileNotFound = -32004

	// ErrCodeReindexBusy indicates another process holds the index lock.
	ErrCodeReindexBusy = -32005

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}
	if de, ok := docqaerrors.As(err); ok {
		return mapDocqaError(de)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapDocqaError(de *docqaerrors.DocqaError) *MCPError {
	message := de.Message
	if de.Suggestion != "" {
		message = fmt.Sprintf("%s %s", de.Message, de.Suggestion)
	}

	switch de.Code {
	case docqaerrors.ErrCodeFileNotFound:
		return &MCPError{Code: ErrCodeFileNotFound, Message: message}
	case docqaerrors.ErrCodeIndexNotFound, docqaerrors.ErrCodeIndexCorrupt, docqaerrors.ErrCodeIndexInconsistent:
		return &MCPError{Code: ErrCodeIndexNotFound, Message: message}
	case docqaerrors.ErrCodeReindexLocked:
		return &MCPError{Code: ErrCodeReindexBusy, Message: message}
	}

	switch de.Category {
	case docqaerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case docqaerrors.CategoryEmbedding:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
