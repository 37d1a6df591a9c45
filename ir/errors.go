// errors.go - the failure taxonomy shared by every compiler stage
//
// Dieses Modul definiert die in spec.md §7 aufgefuehrten Fehlerarten als
// typisierte error-Werte, damit Aufrufer per errors.As auf die konkrete Art
// prüfen koennen, statt auf Textvergleich oder Panics angewiesen zu sein.
package ir

import "fmt"

// InvalidTransformError is returned by Split/Merge/Reorder/rFactor when the
// requested transformation cannot be applied (bad axis index, non-positive
// factor, mismatched axis kinds, rank overflow, rFactor on a non-reduction
// axis). The domain is left unchanged.
type InvalidTransformError struct {
	Op     string
	Reason string
}

func (e *InvalidTransformError) Error() string {
	return fmt.Sprintf("invalid transform %s: %s", e.Op, e.Reason)
}

// InvalidComputeAtError is returned when producer.ComputeAt(consumer, pos)
// cannot find a root-domain-map replay of producer onto consumer's first
// pos axes.
type InvalidComputeAtError struct {
	Pos    int
	Reason string
}

func (e *InvalidComputeAtError) Error() string {
	return fmt.Sprintf("invalid computeAt at position %d: %s", e.Pos, e.Reason)
}

// MissingIndexError is an assertion-class error: the backward indexing walk
// reached an axis with no recorded index, indicating the producer's replay
// did not match the consumer (spec.md §4.6 "Failure").
type MissingIndexError struct {
	AxisName string
}

func (e *MissingIndexError) Error() string {
	return fmt.Sprintf("missing index for axis %s", e.AxisName)
}

// UnmappableReductionError is returned by the root-domain-map when a
// reduction output would have to be mapped to an unrelated consumer axis,
// which would require recomputing the reduction (spec.md §4.3).
type UnmappableReductionError struct {
	Reason string
}

func (e *UnmappableReductionError) Error() string {
	return fmt.Sprintf("unmappable reduction: %s", e.Reason)
}

// IncompatibleLaunchConfigError is returned when a cached kernel's argument
// validation (rank/dtype/device) fails against the arguments supplied at
// run time. The cache entry is not evicted for this error class.
type IncompatibleLaunchConfigError struct {
	Reason string
}

func (e *IncompatibleLaunchConfigError) Error() string {
	return fmt.Sprintf("incompatible launch configuration: %s", e.Reason)
}

// CompileError wraps a nonzero status from the external kernel-source
// compiler collaborator, carrying its accumulated diagnostic log
// (spec.md §7 "Codegen errors"). The cache entry that produced it is
// evicted.
type CompileError struct {
	Log string
	Err error
}

func (e *CompileError) Error() string {
	if e.Log != "" {
		return fmt.Sprintf("kernel compile error: %v\n%s", e.Err, e.Log)
	}
	return fmt.Sprintf("kernel compile error: %v", e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }
