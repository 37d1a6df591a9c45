// cache.go - the two-level execution cache
//
// Dieses Modul implementiert spec.md §4.10: eine Graph-Shape-Cache-Ebene
// (Schluessel = kanonischer Graphtext, Wert = eine geparste Fusion plus
// ihre eigene Kernel-Shape-Cache-Ebene) und darunter eine Kernel-Shape-
// Cache-Ebene (Schluessel = InputsRequirement, Wert = ein kompiliertes
// Modul plus Startparameter). Gegruendet auf kvcache's zustandsbehafteter
// Zwei-Ebenen-Indizierung (map[int]... pro Sequenz, hier map[string]... pro
// Graph- bzw. Kernel-Form) und auf ml/backend.go's Registrierungsstil fuer
// den Compiler-Collaborator (Paket collaborator.go). spec.md §5 verlangt
// eine einzige Sperre, die ueber register-or-get und run gehalten wird und
// keine Unterbrechungspunkte enthaelt; beides bildet dieses Modul als
// `sync.Mutex`-geschuetzte Methoden ohne Channel-Operationen im kritischen
// Abschnitt ab.
package runtime

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/csarofeen/fuser/ir"
)

// ErrFallbackRequested is returned by a caller's own wrapper around
// RegisterOrGet/CompileOrGet/Launch when FUSER_DISABLE_FUSION_CACHE is set
// (spec.md §7's "optional fallback hook": "the core itself does not
// implement this fallback but exposes the hook"). Package runtime never
// reads envconfig itself — the façade checks the flag and returns this
// sentinel before touching the Cache at all, keeping this package free of
// a dependency on configuration.
var ErrFallbackRequested = errors.New("runtime: fusion cache disabled, caller must run the original graph")

// KernelEntry is one compiled kernel: the module a compiler collaborator
// returned, the launch shape the scheduler computed for it, and the
// InputsRequirement it was compiled against. Cache entries never move
// after insertion (spec.md §5 "stable pointers"); callers keep *KernelEntry
// handles across calls.
type KernelEntry struct {
	Req      InputsRequirement
	Module   CompiledModule
	Launch   LaunchParams
	Source   string
	Scratch  *GridReductionScratch
	NeedsRNG bool
}

// GraphEntry is one graph-shape cache hit: the parsed Fusion plus its own
// kernel-shape cache. ID is a fresh identifier assigned on first miss
// (spec.md §4.10 "assign a new cache id").
type GraphEntry struct {
	ID     string
	Fusion *ir.Fusion

	kernels map[string]*KernelEntry
}

// Cache is the top-level two-level execution cache. All of its methods
// hold the single mu for their whole body, matching spec.md §5's "single
// lock held across register-or-get and run operations. No suspension
// points exist inside the lock" — none of BuildFusion/CompileKernel/Launch
// below are themselves allowed to block on anything but the compiler
// collaborator and the device, both synchronous from the caller's view.
type Cache struct {
	mu           sync.Mutex
	collaborator CompilerCollaborator
	graphs       map[string]*GraphEntry
}

// NewCache returns an empty Cache that compiles kernels via collaborator.
func NewCache(collaborator CompilerCollaborator) *Cache {
	return &Cache{
		collaborator: collaborator,
		graphs:       make(map[string]*GraphEntry),
	}
}

// BuildFusion is the signature a caller supplies to RegisterOrGet: parse
// the incoming graph into a fresh Fusion on a graph-shape cache miss.
type BuildFusion func() (*ir.Fusion, error)

// RegisterOrGet returns the GraphEntry for key, building one via build only
// on a graph-shape cache miss (spec.md §4.10 "Miss -> assign a new cache
// id, parse into a Fusion, and create a per-id kernel-shape cache").
func (c *Cache) RegisterOrGet(key string, build BuildFusion) (*GraphEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ge, ok := c.graphs[key]; ok {
		return ge, nil
	}
	f, err := build()
	if err != nil {
		return nil, err
	}
	ge := &GraphEntry{
		ID:      uuid.NewString(),
		Fusion:  f,
		kernels: make(map[string]*KernelEntry),
	}
	c.graphs[key] = ge
	return ge, nil
}

// CompileKernel is the signature a caller supplies to CompileOrGet:
// schedule and lower ge's Fusion for req, returning emitted source plus its
// launch shape and scratch/RNG requirements (spec.md §4.10 miss steps 1-3).
type CompileKernel func(ge *GraphEntry, req InputsRequirement) (source string, lp LaunchParams, scratch *GridReductionScratch, needsRNG bool, err error)

// CompileOrGet returns the KernelEntry for req under ge, compiling via
// compile and the Cache's collaborator only on a kernel-shape cache miss
// (spec.md §4.10 miss step 4). A compile-collaborator failure is wrapped
// in ir.CompileError and nothing is inserted into the cache — there is
// nothing yet to evict, matching spec.md §7 "the cache entry that produced
// it is evicted" for the degenerate case where the entry never existed.
func (c *Cache) CompileOrGet(ge *GraphEntry, req InputsRequirement, compile CompileKernel) (*KernelEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := req.Key()
	if ke, ok := ge.kernels[key]; ok {
		return ke, nil
	}

	source, lp, scratch, needsRNG, err := compile(ge, req)
	if err != nil {
		return nil, err
	}

	module, err := c.collaborator.Compile(context.Background(), source, CompileOptions{})
	if err != nil {
		return nil, &ir.CompileError{Err: err}
	}

	ke := &KernelEntry{
		Req:      req,
		Module:   module,
		Launch:   lp,
		Source:   source,
		Scratch:  scratch,
		NeedsRNG: needsRNG,
	}
	ge.kernels[key] = ke
	return ke, nil
}

// Evict removes a kernel entry from ge's kernel-shape cache and closes its
// compiled module, for use when a later recompile must replace a
// previously-cached entry (spec.md §7's eviction is otherwise a no-op,
// since CompileOrGet never inserts a failed compile in the first place).
func (c *Cache) Evict(ge *GraphEntry, req InputsRequirement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := req.Key()
	if ke, ok := ge.kernels[key]; ok {
		ke.Module.Close()
		delete(ge.kernels, key)
	}
}

// Launch validates args against ke's recorded requirement and, if they
// comply, marshals and launches the kernel (spec.md §4.10 "On hit",
// §7 "Runtime errors"). override supplies the launch dimensions the
// recorded LaunchParams' -1 fields defer to; launchConfig already reflects
// any Fusion-level LaunchConfigOverride the caller applied upstream.
func (c *Cache) Launch(ctx context.Context, ke *KernelEntry, args Args, actual []TensorArg, override LaunchParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := validateArgs(ke.Req, actual); err != nil {
		return err
	}

	lp := EvaluateLaunchConfig(ke.Launch, override)
	marshalled := Marshal(args, ke.Scratch)
	return ke.Module.Launch(ctx, lp.grid(), lp.block(), lp.SharedBytes, marshalled)
}

// validateArgs compares actual's rank, element type, and device against
// ke's recorded requirement per tensor position (spec.md §7: "each
// argument's rank, element type, and device" — mismatch raises
// IncompatibleLaunchConfig and must not corrupt the cache; this function
// never mutates the cache, so that half of the contract is automatic).
func validateArgs(req InputsRequirement, actual []TensorArg) error {
	if len(actual) != len(req.Tensors) {
		return &ir.IncompatibleLaunchConfigError{Reason: "tensor argument count does not match cached kernel"}
	}
	for i, t := range actual {
		want := req.Tensors[i]
		if t.Device != want.Device {
			return &ir.IncompatibleLaunchConfigError{Reason: "tensor argument device does not match cached kernel"}
		}
		if t.DType != want.DType {
			return &ir.IncompatibleLaunchConfigError{Reason: "tensor argument element type does not match cached kernel"}
		}
		if t.rank() != want.Rank {
			return &ir.IncompatibleLaunchConfigError{Reason: "tensor argument rank does not match cached kernel"}
		}
		for a, size := range t.Sizes {
			if (size == 1) != want.Axes[a].IsSize1 {
				return &ir.IncompatibleLaunchConfigError{Reason: "tensor argument broadcast shape does not match cached kernel"}
			}
		}
	}
	return nil
}
