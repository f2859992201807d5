package qdrant

import (
	"fmt"
	"strings"
)

type OperationErrorCode string

const (
	OperationErrorValidation      OperationErrorCode = "validation_failed"
	OperationErrorEncodeFailed    OperationErrorCode = "encode_failed"
	OperationErrorDecodeFailed    OperationErrorCode = "decode_failed"
	OperationErrorTransportFailed OperationErrorCode = "transport_failed"
	OperationErrorTimeout         OperationErrorCode = "timeout"
	OperationErrorQueryFailed     OperationErrorCode = "query_failed"
)

// OperationError describes a failed call against a knowledge-base collection.
// Its code doubles as the retrieval failure kind reported in metrics.
type OperationError struct {
	Code       OperationErrorCode
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "qdrant operation failed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "qdrant %s failed (code=%s", e.Operation, e.Code)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status=%d", e.StatusCode)
	}
	b.WriteString(")")
	switch {
	case e.Message != "" && e.Cause != nil:
		fmt.Fprintf(&b, ": %s: %v", e.Message, e.Cause)
	case e.Message != "":
		b.WriteString(": " + e.Message)
	case e.Cause != nil:
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
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

func opErr(op string, code OperationErrorCode, msg string, cause error) error {
	return &OperationError{Code: code, Operation: op, Message: msg, Cause: cause}
}
