// Package errors provides structured error handling for assessor operations.
// It defines error codes for every stage of an assessment run and typed errors
// that carry the stage, the remote resource involved and the underlying cause.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeCanceled      ErrorCode = "CANCELED"
	CodeRunInProgress ErrorCode = "RUN_IN_PROGRESS"

	// Remote scan-management errors.
	CodeConnectionFailure     ErrorCode = "CONNECTION_FAILURE"
	CodeAuthenticationFailure ErrorCode = "AUTHENTICATION_FAILURE"
	CodeResourceNotFound      ErrorCode = "RESOURCE_NOT_FOUND"
	CodeRemoteRejection       ErrorCode = "REMOTE_REJECTION"
	CodeProtocol              ErrorCode = "PROTOCOL"

	// Task lifecycle errors.
	CodePollingCommunication ErrorCode = "POLLING_COMMUNICATION"
	CodePollingTimeout       ErrorCode = "POLLING_TIMEOUT"
	CodeTaskStopped          ErrorCode = "TASK_STOPPED"

	// Target and result errors.
	CodeNoValidHosts       ErrorCode = "NO_VALID_HOSTS"
	CodePartialFindingData ErrorCode = "PARTIAL_FINDING_DATA"

	// Discovery errors.
	CodeDiscoveryFailed ErrorCode = "DISCOVERY_FAILED"
	CodeResolveFailed   ErrorCode = "RESOLVE_FAILED"

	// Storage errors.
	CodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	CodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	CodeFileWrite          ErrorCode = "FILE_WRITE"
	CodeDirectoryCreate    ErrorCode = "DIRECTORY_CREATE"
)

// Resource names used with CodeResourceNotFound.
const (
	ResourcePortList   = "port_list"
	ResourceScanConfig = "scan_config"
	ResourceScanner    = "scanner"
	ResourceTarget     = "target"
	ResourceReport     = "report"
)

// AssessmentError is returned by every stage of the assessment pipeline.
type AssessmentError struct {
	Code     ErrorCode
	Message  string
	Stage    string
	Resource string
	Cause    error
	Context  map[string]interface{}
}

// Error implements the error interface.
func (e *AssessmentError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Stage != "" {
		msg += fmt.Sprintf(" (stage: %s)", e.Stage)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *AssessmentError) Unwrap() error {
	return e.Cause
}

// WithStage records the pipeline stage that produced the error.
func (e *AssessmentError) WithStage(stage string) *AssessmentError {
	e.Stage = stage
	return e
}

// WithContext adds context information to the error.
func (e *AssessmentError) WithContext(key string, value interface{}) *AssessmentError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAssessmentError creates a new assessment error with the specified code and message.
func NewAssessmentError(code ErrorCode, message string) *AssessmentError {
	return &AssessmentError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WrapAssessmentError wraps an existing error as an assessment error.
func WrapAssessmentError(code ErrorCode, message string, err error) *AssessmentError {
	return &AssessmentError{
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// DatabaseError represents database-related errors.
type DatabaseError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// WrapDatabaseError wraps an existing error as a database error.
func WrapDatabaseError(code ErrorCode, message, operation string, err error) *DatabaseError {
	return &DatabaseError{
		Code:      code,
		Message:   message,
		Operation: operation,
		Cause:     err,
	}
}

// DiscoveryError represents discovery scan errors.
type DiscoveryError struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Target != "" {
		msg += fmt.Sprintf(" (target: %s)", e.Target)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}

// WrapDiscoveryError wraps an existing error as a discovery error for a target.
func WrapDiscoveryError(code ErrorCode, message, target string, err error) *DiscoveryError {
	return &DiscoveryError{
		Code:    code,
		Message: message,
		Target:  target,
		Cause:   err,
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// IsCode checks if an error, or any error it wraps, has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from the first coded error in the chain.
func GetCode(err error) ErrorCode {
	var ae *AssessmentError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	var de *DatabaseError
	if stderrors.As(err, &de) {
		return de.Code
	}
	var ce *ConfigError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	var dis *DiscoveryError
	if stderrors.As(err, &dis) {
		return dis.Code
	}
	return CodeUnknown
}

// MissingResource returns the resource name of a RESOURCE_NOT_FOUND error, if any.
func MissingResource(err error) (string, bool) {
	var ae *AssessmentError
	if stderrors.As(err, &ae) && ae.Code == CodeResourceNotFound {
		return ae.Resource, true
	}
	return "", false
}

// StageOf returns the pipeline stage recorded on err, if any.
func StageOf(err error) string {
	var ae *AssessmentError
	if stderrors.As(err, &ae) {
		return ae.Stage
	}
	return ""
}

// IsFatal reports whether an error must fail the process rather than a single
// run. Only an unusable configuration qualifies.
func IsFatal(err error) bool {
	return GetCode(err) == CodeConfiguration
}

// Common error creation functions

// ErrNoValidHosts is returned when no host in a set is a usable address.
func ErrNoValidHosts(count int) *AssessmentError {
	return NewAssessmentError(CodeNoValidHosts, "no valid hosts to scan").
		WithContext("hosts", count)
}

func errResourceMissing(resource, message string) *AssessmentError {
	err := NewAssessmentError(CodeResourceNotFound, message)
	err.Resource = resource
	return err
}

// ErrNoPortListAvailable is returned when the service has no port lists.
func ErrNoPortListAvailable() *AssessmentError {
	return errResourceMissing(ResourcePortList, "no port list available")
}

// ErrNoConfigsAvailable is returned when the service has no scan configurations.
func ErrNoConfigsAvailable() *AssessmentError {
	return errResourceMissing(ResourceScanConfig, "no scan configurations available")
}

// ErrNoScannersAvailable is returned when the service has no scanners.
func ErrNoScannersAvailable() *AssessmentError {
	return errResourceMissing(ResourceScanner, "no scanners available")
}

// ErrRemoteRejection creates an error for a non-success status from the remote service.
func ErrRemoteRejection(operation, status, statusText string) *AssessmentError {
	return NewAssessmentError(CodeRemoteRejection, fmt.Sprintf("%s rejected: %s", operation, statusText)).
		WithContext("status", status)
}

// ErrConnection creates an error for a failed connection to the remote service.
func ErrConnection(address string, err error) *AssessmentError {
	return WrapAssessmentError(CodeConnectionFailure, "failed to connect to "+address, err)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}
