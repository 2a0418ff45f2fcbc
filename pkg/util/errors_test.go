package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("invalid vlan")
		msg := err.Error()
		if !strings.Contains(msg, "invalid vlan") {
			t.Errorf("Error message should contain the error: %s", msg)
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("tenant not found", "invalid vlan", "invalid dmz subnet")
		msg := err.Error()
		for _, want := range []string{"tenant not found", "invalid vlan", "invalid dmz subnet"} {
			if !strings.Contains(msg, want) {
				t.Errorf("Error message should contain %q: %s", want, msg)
			}
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "this should not appear")

		if v.HasErrors() {
			t.Error("Should not have errors when all conditions are true")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() should return nil when no errors: %v", err)
		}
	})

	t.Run("with errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(false, "first error")
		v.Add(true, "this passes")
		v.AddError("unconditional error")
		v.AddErrorf("formatted error: %d", 42)

		err := v.Build()
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("Expected *ValidationError, got %T", err)
		}
		if len(validationErr.Errors) != 3 {
			t.Errorf("Expected 3 errors, got %d", len(validationErr.Errors))
		}
	})
}

func TestStepError(t *testing.T) {
	cause := errors.New("503 service unavailable")
	err := NewStepError(3, "dmz subnet", "DMZ_SUBNET_100", cause)

	msg := err.Error()
	for _, want := range []string{"step 3", "dmz subnet", "DMZ_SUBNET_100", "503"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error message should contain %q: %s", want, msg)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("StepError should unwrap to its cause")
	}

	wrapped := fmt.Errorf("line 4: %w", err)
	var stepErr *StepError
	if !errors.As(wrapped, &stepErr) || stepErr.Step != 3 {
		t.Errorf("errors.As through wrapping failed: %v", wrapped)
	}
}

func TestDependencyError(t *testing.T) {
	err := NewDependencyError("gateway of DMZ_ROUTER_5", "network", "DMZ_NETWORK_5")
	if !errors.Is(err, ErrDependencyMissing) {
		t.Error("DependencyError should unwrap to ErrDependencyMissing")
	}
	if !strings.Contains(err.Error(), "DMZ_NETWORK_5") {
		t.Errorf("Error message should name the dependency: %s", err)
	}
}

func TestMissingCredentialError(t *testing.T) {
	err := &MissingCredentialError{Flag: "os-password", EnvVar: "OS_PASSWORD"}
	if !errors.Is(err, ErrMissingCredential) {
		t.Error("MissingCredentialError should unwrap to ErrMissingCredential")
	}
	if !strings.Contains(err.Error(), "--os-password") || !strings.Contains(err.Error(), "OS_PASSWORD") {
		t.Errorf("Error message should name flag and env var: %s", err)
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidConfig,
		ErrInvalidCIDR,
		ErrValidationFailed,
		ErrDependencyMissing,
		ErrMissingCredential,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v == %v", err1, err2)
			}
		}
	}

	if !errors.Is(ErrSubnetTooSmall, ErrInvalidCIDR) {
		t.Error("ErrSubnetTooSmall should wrap ErrInvalidCIDR")
	}
}
