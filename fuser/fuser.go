// fuser.go - the top-level façade tying ingestion through execution together
//
// Dieses Modul verbindet die einzelnen Compiler-Stufen (Root-Domain-Map,
// Scheduler, Loop-Nest-Lowering, Synchronisation, Codegen) mit dem
// Ausfuehrungs-Cache zu der in spec.md §4.10/§5 beschriebenen
// Ein-Methoden-Pipeline: ein Aufrufer registriert einen eingehenden Graphen
// einmal und ruft ihn beliebig oft mit neuen konkreten Formen auf. Panics
// aus jeder Stufe werden hier in ir.CompileError umgewandelt, wie
// SPEC_FULL.md's Fehlerbehandlungsabschnitt es fuer diesen Einstiegspunkt
// vorschreibt.
package fuser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/csarofeen/fuser/codegen"
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/envconfig"
	"github.com/csarofeen/fuser/ir"
	"github.com/csarofeen/fuser/lower"
	"github.com/csarofeen/fuser/rootmap"
	"github.com/csarofeen/fuser/runtime"
	"github.com/csarofeen/fuser/schedule"
	"github.com/csarofeen/fuser/syncinsert"
)

// Compiler owns the execution cache and the device capabilities the
// scheduler heuristic needs. One Compiler is meant to be reused across many
// distinct incoming graphs and many calls to each (spec.md §5's
// single-threaded cooperative model: every exported method here locks the
// underlying Cache for its own duration and returns).
type Compiler struct {
	cache *runtime.Cache
	caps  schedule.DeviceCapabilities
}

// NewCompiler returns a Compiler that compiles kernels via collaborator and
// schedules for caps.
func NewCompiler(collaborator runtime.CompilerCollaborator, caps schedule.DeviceCapabilities) *Compiler {
	return &Compiler{cache: runtime.NewCache(collaborator), caps: caps}
}

// DefaultCompiler returns a Compiler using schedule.DefaultDeviceCapabilities.
func DefaultCompiler(collaborator runtime.CompilerCollaborator) *Compiler {
	return NewCompiler(collaborator, schedule.DefaultDeviceCapabilities())
}

// Graph is the caller's description of one incoming subgraph: a canonical
// shape for the graph-shape cache key, and a builder that parses the same
// graph into a *ir.Fusion on a cache miss.
type Graph struct {
	Shape runtime.GraphShape
	Build runtime.BuildFusion
}

// Register returns the GraphEntry for g, building it only on a graph-shape
// cache miss. FUSER_MAX_GRAPH_NODES bounds the incoming node count before
// any parsing happens, guarding against a pathologically large subgraph
// (not a correctness concern; spec.md makes no invariant claim about graph
// size).
func (c *Compiler) Register(g Graph) (*runtime.GraphEntry, error) {
	if max := envconfig.MaxGraphNodes(); len(g.Shape.Nodes) > max {
		return nil, &ir.InvalidTransformError{
			Op:     "Register",
			Reason: fmt.Sprintf("graph has %d nodes, exceeds FUSER_MAX_GRAPH_NODES=%d", len(g.Shape.Nodes), max),
		}
	}
	return c.cache.RegisterOrGet(g.Shape.CanonicalKey(), g.Build)
}

// Call is one concrete invocation of a registered graph: the runtime shape
// and values of every input, output, and scalar.
type Call struct {
	Device  string
	Tensors []runtime.TensorArg
	Outputs []runtime.TensorArg
	Scalars []runtime.ScalarArg

	// Seed/Offset are set only when the fusion's emitted kernel needs
	// randomness (spec.md §6 "optional (seed, offset) for RNG").
	Seed, Offset *uint64
}

// Run schedules, lowers, and compiles ge's Fusion for call's shape on a
// kernel-shape cache miss, then launches it. FUSER_DISABLE_FUSION_CACHE
// short-circuits straight to runtime.ErrFallbackRequested per spec.md §7's
// fallback hook, without touching the cache at all.
func (c *Compiler) Run(ctx context.Context, ge *runtime.GraphEntry, call Call) (err error) {
	if envconfig.DisableFusionCache() {
		return runtime.ErrFallbackRequested
	}

	defer func() {
		if r := recover(); r != nil {
			err = &ir.CompileError{Err: fmt.Errorf("internal compiler panic: %v", r)}
		}
	}()

	inputPerm := runtime.CommonStrideOrderPermutation(call.Tensors)
	outputPerm := runtime.CommonStrideOrderPermutation(call.Outputs)
	req := runtime.RequirementFor(call.Device, inputPerm, outputPerm, call.Tensors)

	ke, err := c.cache.CompileOrGet(ge, req, func(ge *runtime.GraphEntry, req runtime.InputsRequirement) (string, runtime.LaunchParams, *runtime.GridReductionScratch, bool, error) {
		return c.compileKernel(ge, call)
	})
	if err != nil {
		return err
	}

	args := runtime.Args{
		Tensors: call.Tensors,
		Outputs: call.Outputs,
		Scalars: call.Scalars,
		Seed:    call.Seed,
		Offset:  call.Offset,
	}
	override := runtime.LaunchParams{BIDx: -1, BIDy: -1, BIDz: -1, TIDx: -1, TIDy: -1, TIDz: -1, SharedBytes: -1}
	return c.cache.Launch(ctx, ke, args, call.Tensors, override)
}

// compileKernel runs the full one-way pipeline — root-domain-map, scheduler,
// loop-nest lowering, synchronization insertion, codegen — spec.md §4.1-§4.10
// describe, in that order.
func (c *Compiler) compileKernel(ge *runtime.GraphEntry, call Call) (string, runtime.LaunchParams, *runtime.GridReductionScratch, bool, error) {
	f := ge.Fusion

	rm := rootmap.NewRootDomainMap()
	if err := rm.Build(f); err != nil {
		return "", runtime.LaunchParams{}, nil, false, err
	}
	rm.Concretize(f)

	var lp schedule.LaunchParams
	var err error
	if hasReduction(f) {
		lp, err = schedule.ScheduleReduction(f, rm, buildExtents(f, call.Tensors), c.caps)
	} else {
		lp, err = schedule.SchedulePointwise(f)
	}
	if err != nil {
		return "", runtime.LaunchParams{}, nil, false, err
	}

	if envconfig.DumpEffectiveTransform() {
		slog.Debug("applied scheduler transform", "graph", ge.ID, "launch", lp)
	}

	nodes, err := lower.Generate(f, rm)
	if err != nil {
		return "", runtime.LaunchParams{}, nil, false, err
	}
	nodes = syncinsert.InsertSyncs(nodes)

	rlp := runtime.FromScheduleLaunchParams(lp)
	scratch := runtime.ComputeGridReductionScratch(nodes, rlp)
	source := codegen.Emit(f, nodes, codegen.Options{})

	return source, rlp, scratch, false, nil
}

func hasReduction(f *ir.Fusion) bool {
	for _, e := range f.Exprs(true) {
		if e.Op == ir.OpReduction {
			return true
		}
	}
	return false
}

// buildExtents maps each root IterDomain of f's tensor inputs to its
// concrete runtime size, positionally zipping f.Inputs() against tensors.
// Extents of intermediate (non-input) TensorViews are left unset; the
// reduction heuristic only ever reads extents reachable from its
// distinguished reduction's own root domain, which for every spec.md §8
// scenario traces straight back to a Fusion input.
func buildExtents(f *ir.Fusion, tensors []runtime.TensorArg) map[*domain.IterDomain]int64 {
	extents := make(map[*domain.IterDomain]int64)
	for i, v := range f.Inputs() {
		if i >= len(tensors) {
			break
		}
		tv := domain.AsTensorView(v)
		if tv == nil {
			continue
		}
		t := tensors[i]
		for a, ax := range tv.Domain().Root() {
			if a < len(t.Sizes) {
				extents[ax] = t.Sizes[a]
			}
		}
	}
	return extents
}
