package weaviate

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type OperationErrorCode string

const (
	OperationErrorValidation      OperationErrorCode = "validation_failed"
	OperationErrorTransportFailed OperationErrorCode = "transport_failed"
	OperationErrorTimeout         OperationErrorCode = "timeout"
	OperationErrorQueryFailed     OperationErrorCode = "query_failed"
)

type OperationError struct {
	Code      OperationErrorCode
	Operation string
	Message   string
	Cause     error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "weaviate operation failed"
	}
	if e.Message != "" {
		return fmt.Sprintf("weaviate operation failed (op=%s code=%s): %s", e.Operation, e.Code, e.Message)
	}
	return fmt.Sprintf("weaviate operation failed (op=%s code=%s): %v", e.Operation, e.Code, e.Cause)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *OperationError) ErrorCode() string {
	if e == nil {
		return ""
	}
	return string(e.Code)
}

func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &OperationError{Code: OperationErrorTimeout, Operation: op, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &OperationError{Code: OperationErrorTimeout, Operation: op, Cause: err}
		}
		return &OperationError{Code: OperationErrorTransportFailed, Operation: op, Cause: err}
	}
	return &OperationError{Code: OperationErrorQueryFailed, Operation: op, Cause: err}
}
