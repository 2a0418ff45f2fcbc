// Package util provides addressing, naming, logging and the common error
// types shared by the conexus packages.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidCIDR       = errors.New("invalid CIDR")
	ErrSubnetTooSmall    = fmt.Errorf("%w: subnet too small", ErrInvalidCIDR)
	ErrValidationFailed  = errors.New("validation failed")
	ErrDependencyMissing = errors.New("required dependency missing")
	ErrMissingCredential = errors.New("missing credential")
)

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// StepError reports which provisioning step of a topology build failed.
type StepError struct {
	Step     int
	Name     string
	Resource string
	Err      error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("step %d (%s)", e.Step, e.Name)
	if e.Resource != "" {
		msg += " on " + e.Resource
	}
	return msg + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// NewStepError creates a step error
func NewStepError(step int, name, resource string, err error) *StepError {
	return &StepError{
		Step:     step,
		Name:     name,
		Resource: resource,
		Err:      err,
	}
}

// DependencyError represents a missing dependency
type DependencyError struct {
	Resource      string
	DependsOn     string
	DependsOnType string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s requires %s '%s' to exist", e.Resource, e.DependsOnType, e.DependsOn)
}

func (e *DependencyError) Unwrap() error {
	return ErrDependencyMissing
}

// NewDependencyError creates a dependency error
func NewDependencyError(resource, dependsOnType, dependsOn string) *DependencyError {
	return &DependencyError{
		Resource:      resource,
		DependsOn:     dependsOn,
		DependsOnType: dependsOnType,
	}
}

// MissingCredentialError names the flag and environment variable that were
// both empty.
type MissingCredentialError struct {
	Flag   string
	EnvVar string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("you need to supply the --%s argument or define the %s environment variable", e.Flag, e.EnvVar)
}

func (e *MissingCredentialError) Unwrap() error {
	return ErrMissingCredential
}
