package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

/**
 * Error types for the electoral roll worker
 *
 * Field misses and coercion failures never surface here; they stay inside
 * the extracted records. Only page- or job-level failures are ProcessingErrors.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Page-level errors
	ErrorStructural   ErrorCode = "STRUCTURAL_FAILURE"
	ErrorOCRFailed    ErrorCode = "OCR_FAILED"
	ErrorRenderFailed ErrorCode = "RENDER_FAILED"

	// Job-level errors
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
	ErrorStorageFailed     ErrorCode = "STORAGE_FAILED"
)

// ProcessingError represents a structured processing error
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// WithJob sets the job ID and returns e
func (e *ProcessingError) WithJob(jobID string) *ProcessingError {
	e.JobID = jobID
	return e
}

// Factory functions for common errors

// NewStructuralError reports input that is missing or unusable for a page.
func NewStructuralError(fileName string, page int, reason string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStructural,
		Message:   reason,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"file_name": fileName,
			"page":      page,
		},
		Cause: cause,
	}
}

func NewOCRFailedError(fileName string, page int, pass string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("OCR failed for pass: %s", pass),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"file_name": fileName,
			"page":      page,
			"ocr_pass":  pass,
		},
		Cause: cause,
	}
}

func NewRenderFailedError(fileName string, page int, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorRenderFailed,
		Message:   fmt.Sprintf("Failed to render page %d", page),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"file_name": fileName,
			"page":      page,
		},
		Cause: cause,
	}
}

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewStorageFailedError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStorageFailed,
		Message:   "Failed to store processing results",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// CodeOf returns the code of the first ProcessingError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

// IsStructural reports whether retrying err cannot help.
func IsStructural(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrorStructural
}

// ToMap converts error to map for database storage
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.JobID != "" {
		result["job_id"] = e.JobID
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
