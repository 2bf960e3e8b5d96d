package domain

import "fmt"

// Error types for pipeline-specific errors
type ErrorType string

const (
	ErrorTypeDiscovery ErrorType = "discovery"
	ErrorTypeValidity  ErrorType = "validity"
	ErrorTypeDecode    ErrorType = "decode"
	ErrorTypeOCR       ErrorType = "ocr"
	ErrorTypeAssembly  ErrorType = "assembly"
	ErrorTypeConfig    ErrorType = "config"
	ErrorTypeIO        ErrorType = "io"
)

// DomainError represents a pipeline error with its taxonomy type
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func DiscoveryError(message string, err error) *DomainError {
	return NewError(ErrorTypeDiscovery, message, err)
}

func ValidityError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidity, message, err)
}

func DecodeError(message string, err error) *DomainError {
	return NewError(ErrorTypeDecode, message, err)
}

func OCRError(message string, err error) *DomainError {
	return NewError(ErrorTypeOCR, message, err)
}

func AssemblyError(message string, err error) *DomainError {
	return NewError(ErrorTypeAssembly, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}
