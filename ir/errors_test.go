// errors_test.go - Tests fuer die typisierte Fehlerhierarchie
package ir

import (
	"errors"
	"testing"
)

func TestErrorsAsMatchesConcreteTypes(t *testing.T) {
	var err error = &InvalidTransformError{Op: "Split", Reason: "factor must be positive"}

	var invalidTransform *InvalidTransformError
	if !errors.As(err, &invalidTransform) {
		t.Fatal("errors.As konnte InvalidTransformError nicht extrahieren")
	}
	if invalidTransform.Op != "Split" {
		t.Errorf("Op = %q, erwartet %q", invalidTransform.Op, "Split")
	}

	var computeAt *InvalidComputeAtError
	if errors.As(err, &computeAt) {
		t.Error("errors.As hat faelschlich InvalidComputeAtError aus einem InvalidTransformError extrahiert")
	}
}

func TestCompileErrorUnwrap(t *testing.T) {
	inner := errors.New("nvrtc compile failed")
	ce := &CompileError{Err: inner, Log: "error: identifier \"x\" undefined"}

	if !errors.Is(ce, inner) {
		t.Error("errors.Is(ce, inner) = false, erwartet true (Unwrap muss inner zurueckgeben)")
	}
	if got := ce.Error(); got == "" {
		t.Error("CompileError.Error() ist leer")
	}
}

func TestIncompatibleLaunchConfigErrorMessage(t *testing.T) {
	err := &IncompatibleLaunchConfigError{Reason: "rank mismatch: expected 2, got 3"}
	if err.Error() == "" {
		t.Error("IncompatibleLaunchConfigError.Error() ist leer")
	}
}
