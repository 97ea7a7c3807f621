package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Registry errors
	ErrDuplicateCapability = errors.New("capability already registered")
	ErrDuplicateNode       = errors.New("node already registered")
	ErrUnknownNode         = errors.New("node not registered")
	ErrNilNode             = errors.New("nil node")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// Mirror/connection errors
	ErrMirrorUnavailable = errors.New("mirror unavailable")
	ErrConnectionFailed  = errors.New("connection failed")
	ErrCircuitOpen       = errors.New("circuit breaker is open")
	ErrTimeout           = errors.New("operation timeout")
)

// Error kinds carried by MeshError.Kind
const (
	KindNode       = "node"
	KindCapability = "capability"
	KindRoute      = "route"
	KindConfig     = "config"
	KindMirror     = "mirror"
)

// MeshError provides structured error information with context
// It implements the error interface and supports error wrapping
type MeshError struct {
	Op      string // Operation that failed (e.g., "Network.Connect")
	Kind    string // Error kind (e.g., "node", "capability", "config")
	ID      string // Optional ID of the entity involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *MeshError) Error() string {
	if e.Op != "" && e.Err != nil {
		op := e.Op
		if e.ID != "" {
			op = fmt.Sprintf("%s [%s]", e.Op, e.ID)
		}
		if e.Message != "" {
			return fmt.Sprintf("%s: %s: %v", op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *MeshError) Unwrap() error {
	return e.Err
}

// NewMeshError creates a new MeshError
func NewMeshError(op, kind string, err error) *MeshError {
	return &MeshError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// NewEntityError creates a MeshError bound to the ID of the entity involved
func NewEntityError(op, kind, id string, err error) *MeshError {
	return &MeshError{
		Op:   op,
		Kind: kind,
		ID:   id,
		Err:  err,
	}
}

// IsNotFound checks if an error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownNode)
}

// IsConflict checks if an error is caused by registering something twice
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateNode) ||
		errors.Is(err, ErrDuplicateCapability)
}

// IsRetryable checks if an error is retryable
// Retryable errors are typically transient network or availability issues
func IsRetryable(err error) bool {
	return errors.Is(err, ErrMirrorUnavailable) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrCircuitOpen)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}
