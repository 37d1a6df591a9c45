// collaborator.go - registry for the external kernel-source compiler
//
// Dieses Modul entspricht original_source's kernel.cpp (NVRTC-Kompilierung
// und -Start als Host-seitige Gegenstelle zum generierten Kernel-Text), aber
// in der Registrierungsform von ml/backend.go uebernommen: eine Package-
// weite Factory-Map statt eines festen NVRTC-Imports, damit ein Test ein
// simuliertes Collaborator stellen kann, ohne einen echten Treiber zu
// benoetigen.
package runtime

import (
	"context"
	"fmt"
)

// CompileOptions carries the flags an external compiler collaborator needs
// beyond the source text itself (spec.md §4.10 step 4, §6 "compiler
// collaborator").
type CompileOptions struct {
	Namespace      string
	EntryPoint     string // defaults to "kernel"
	ComputeVersion string // target device compute capability, e.g. "sm_80"
}

// CompiledModule is the handle a successful compile returns: a loaded
// device module plus the ability to launch its single entry function.
// Cache entries own a CompiledModule and never let it move once inserted
// (spec.md §5 "stable pointers").
type CompiledModule interface {
	// Launch starts the entry function with the given grid/block shape,
	// dynamic shared memory size, and marshalled argument list (spec.md
	// §4.10 "On hit"). It is asynchronous on the device stream, matching
	// spec.md §5's kernel scheduling model.
	Launch(ctx context.Context, grid, block [3]int, sharedBytes int, args []any) error

	// Close releases the device module. Called when a cache entry is
	// evicted.
	Close() error
}

// CompilerCollaborator turns kernel source text into a loaded
// CompiledModule. It is the "external compiler collaborator" spec.md §4.10
// and §7 ("Codegen errors") refer to; this project never implements a
// concrete NVRTC binding, only the seam a caller plugs one into.
type CompilerCollaborator interface {
	Compile(ctx context.Context, source string, opts CompileOptions) (CompiledModule, error)
}

var collaborators = make(map[string]func() (CompilerCollaborator, error))

// RegisterCollaborator registers a named compiler-collaborator factory.
// Mirrors ml.RegisterBackend's panic-on-duplicate discipline: a second
// registration under the same name is a programming error, not a runtime
// condition to recover from.
func RegisterCollaborator(name string, f func() (CompilerCollaborator, error)) {
	if _, ok := collaborators[name]; ok {
		panic("runtime: compiler collaborator already registered: " + name)
	}
	collaborators[name] = f
}

// NewCollaborator instantiates the named compiler collaborator.
func NewCollaborator(name string) (CompilerCollaborator, error) {
	f, ok := collaborators[name]
	if !ok {
		return nil, fmt.Errorf("runtime: unknown compiler collaborator %q", name)
	}
	return f()
}
