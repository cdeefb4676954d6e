package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors (timeouts, non-2xx)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors (no matching selector)
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting by the target site
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeValidation represents malformed user input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypePersistence represents store read/write errors
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeNotification represents message delivery errors
	ErrorTypeNotification ErrorType = "notification"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// MonitorError represents a typed error raised by one of the components
type MonitorError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *MonitorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *MonitorError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if a later attempt may succeed without intervention
func (e *MonitorError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeRateLimit:
		return false
	case ErrorTypeParsing:
		return false
	default:
		return false
	}
}

// New creates a new MonitorError
func New(errType ErrorType, component, message string, err error) *MonitorError {
	return &MonitorError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(component, message string, err error) *MonitorError {
	return New(ErrorTypeNetwork, component, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(component, message string, err error) *MonitorError {
	return New(ErrorTypeParsing, component, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(component string, duration time.Duration) *MonitorError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, component, message, nil)
}

// NewValidation creates a new validation error
func NewValidation(component, message string) *MonitorError {
	return New(ErrorTypeValidation, component, message, nil)
}

// NewPersistence creates a new persistence error
func NewPersistence(component, message string, err error) *MonitorError {
	return New(ErrorTypePersistence, component, message, err)
}

// NewNotification creates a new notification error
func NewNotification(component, message string, err error) *MonitorError {
	return New(ErrorTypeNotification, component, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *MonitorError {
	return New(ErrorTypeConfiguration, "", message, err)
}
