// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Query validation
const (
	ErrCodeEmptyQuery   ErrorCode = "EMPTY_QUERY"
	ErrCodeInvalidQuery ErrorCode = "INVALID_QUERY"
)

// Pipeline outcomes. NO_DATA_FOUND and INSUFFICIENT_HISTORY are recovered
// inside the pipeline; they exist as codes so that reasoning notes and
// metrics can name them.
const (
	ErrCodeNoDataFound         ErrorCode = "NO_DATA_FOUND"
	ErrCodeInsufficientHistory ErrorCode = "INSUFFICIENT_HISTORY"
)

// Retrieval and storage
const (
	ErrCodeRetrieverUnavailable     ErrorCode = "RETRIEVER_UNAVAILABLE"
	ErrCodeRetrieverTimeout         ErrorCode = "RETRIEVER_TIMEOUT"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeCacheUnavailable         ErrorCode = "CACHE_UNAVAILABLE"
)

// Templates and rendering
const (
	ErrCodeTemplateNotFound         ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateValidationFailed ErrorCode = "TEMPLATE_VALIDATION_FAILED"
	ErrCodeRenderDispatchFailed     ErrorCode = "RENDER_DISPATCH_FAILED"
)

// Collaborators
const (
	ErrCodeDomainClassificationFailed ErrorCode = "DOMAIN_CLASSIFICATION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewEmptyQueryError is returned when the query text is blank.
func NewEmptyQueryError() *StandardError {
	return newError(ErrCodeEmptyQuery, "Query text is required", "query is empty or whitespace", false)
}

func NewInvalidQueryError(details string) *StandardError {
	return newError(ErrCodeInvalidQuery, "Query input is invalid", details, false)
}

func NewNoDataFoundError(details string) *StandardError {
	return newError(ErrCodeNoDataFound, "No matching data found", details, false)
}

func NewInsufficientHistoryError(metric string, points int) *StandardError {
	return newError(ErrCodeInsufficientHistory, "Not enough history to build a story",
		fmt.Sprintf("metric: %s, points: %d", metric, points), false)
}

// NewRetrieverUnavailableError is the single user visible infrastructure
// failure of the pipeline.
func NewRetrieverUnavailableError(err error) *StandardError {
	return newError(ErrCodeRetrieverUnavailable, "Data service temporarily unavailable", detailsOf(err), true)
}

func NewRetrieverTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeRetrieverTimeout, "Data retrieval timed out",
		fmt.Sprintf("timeout: %s", timeout), true)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, detailsOf(err)), true)
}

func NewQueryExecutionFailedError(table string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("table: %s, error: %s", table, detailsOf(err)), true)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", detailsOf(err), true)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Record cache unavailable", detailsOf(err), true)
}

func NewTemplateNotFoundError(templateID string) *StandardError {
	return newError(ErrCodeTemplateNotFound, "Template not found in registry",
		fmt.Sprintf("templateId: %s", templateID), false)
}

func NewTemplateValidationFailedError(details string) *StandardError {
	return newError(ErrCodeTemplateValidationFailed, "Payload validation failed for template", details, false)
}

func NewRenderDispatchFailedError(templateID string, err error) *StandardError {
	return newError(ErrCodeRenderDispatchFailed, "Render request could not be dispatched",
		fmt.Sprintf("templateId: %s, error: %s", templateID, detailsOf(err)), true)
}

func NewDomainClassificationFailedError(err error) *StandardError {
	return newError(ErrCodeDomainClassificationFailed, "Domain classification failed", detailsOf(err), true)
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), detailsOf(err), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), detailsOf(err), true)
}

func NewInternalError(err error) *StandardError {
	return newError("INTERNAL_ERROR", "Unexpected error", detailsOf(err), false)
}

// AsStandardError unwraps err looking for a StandardError.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. They are
// identical except for the storage failures, which the process models
// collectively as DATA_SOURCE_FAILED.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeEmptyQuery:                 "EMPTY_QUERY",
	ErrCodeInvalidQuery:               "INVALID_QUERY",
	ErrCodeNoDataFound:                "NO_DATA_FOUND",
	ErrCodeInsufficientHistory:        "INSUFFICIENT_HISTORY",
	ErrCodeRetrieverUnavailable:       "RETRIEVER_UNAVAILABLE",
	ErrCodeRetrieverTimeout:           "RETRIEVER_TIMEOUT",
	ErrCodeSearchQueryFailed:          "DATA_SOURCE_FAILED",
	ErrCodeQueryExecutionFailed:       "DATA_SOURCE_FAILED",
	ErrCodeDatabaseConnectionFailed:   "DATA_SOURCE_FAILED",
	ErrCodeCacheUnavailable:           "CACHE_UNAVAILABLE",
	ErrCodeTemplateNotFound:           "TEMPLATE_NOT_FOUND",
	ErrCodeTemplateValidationFailed:   "TEMPLATE_VALIDATION_FAILED",
	ErrCodeRenderDispatchFailed:       "RENDER_DISPATCH_FAILED",
	ErrCodeDomainClassificationFailed: "DOMAIN_CLASSIFICATION_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRetrieverUnavailable,
		ErrCodeSearchQueryFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeRenderDispatchFailed:
		return 3
	case ErrCodeRetrieverTimeout,
		ErrCodeCacheUnavailable,
		ErrCodeDomainClassificationFailed:
		return 2
	case "EXTERNAL_SERVICE_ERROR", "TIMEOUT_ERROR":
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "QUERY") && !strings.Contains(codeStr, "EXECUTION") && !strings.Contains(codeStr, "SEARCH"):
		return "VALIDATION"
	case strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "RENDER"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "RETRIEVER") || strings.Contains(codeStr, "DATABASE") ||
		strings.Contains(codeStr, "EXECUTION") || strings.Contains(codeStr, "CACHE"):
		return "DATA"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NO_DATA") || strings.Contains(codeStr, "HISTORY"):
		return "PIPELINE"
	case strings.Contains(codeStr, "CLASSIFICATION"):
		return "AI"
	default:
		return "OTHER"
	}
}
