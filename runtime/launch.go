// launch.go - launch-config evaluation, argument marshalling, scratch sizing
//
// Dieses Modul setzt spec.md §4.10 "On hit" sowie die "Grid-reduction
// scratch sizing"-Regel um. Gegruendet auf original_source's kernel.cpp
// (Argument-Reihenfolge beim Kernel-Start, Scratch-Puffer fuer
// Grid-Reduktionen) und auf schedule.LaunchParams fuer die Feldform.
package runtime

import (
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
	"github.com/csarofeen/fuser/kernelir"
	"github.com/csarofeen/fuser/schedule"
)

// FromScheduleLaunchParams lifts a schedule.LaunchParams (the scheduler's
// grid/block shape) into a runtime.LaunchParams, copying each field as is
// (a -1 from the scheduler stays -1, i.e. inherited) and leaving
// SharedBytes at 0.
func FromScheduleLaunchParams(lp schedule.LaunchParams) LaunchParams {
	return LaunchParams{
		BIDx: lp.GridX, BIDy: lp.GridY, BIDz: lp.GridZ,
		TIDx: lp.BlockX, TIDy: lp.BlockY, TIDz: lp.BlockZ,
	}
}

// LaunchParams mirrors spec.md §6 "Scheduler output": any field may be -1,
// meaning "inherit from the fusion's stored launch config at runtime".
type LaunchParams struct {
	BIDx, BIDy, BIDz int
	TIDx, TIDy, TIDz int
	SharedBytes      int
}

// EvaluateLaunchConfig substitutes recorded (compile-time) extents for any
// -1 field in recorded using override, the concrete launch shape known only
// at call time (spec.md §4.10 "On hit": "evaluate the launch configuration
// by substituting recorded extents").
func EvaluateLaunchConfig(recorded LaunchParams, override LaunchParams) LaunchParams {
	sub := func(r, o int) int {
		if r == -1 {
			return o
		}
		return r
	}
	return LaunchParams{
		BIDx:        sub(recorded.BIDx, override.BIDx),
		BIDy:        sub(recorded.BIDy, override.BIDy),
		BIDz:        sub(recorded.BIDz, override.BIDz),
		TIDx:        sub(recorded.TIDx, override.TIDx),
		TIDy:        sub(recorded.TIDy, override.TIDy),
		TIDz:        sub(recorded.TIDz, override.TIDz),
		SharedBytes: sub(recorded.SharedBytes, override.SharedBytes),
	}
}

func (lp LaunchParams) grid() [3]int  { return [3]int{lp.BIDx, lp.BIDy, lp.BIDz} }
func (lp LaunchParams) block() [3]int { return [3]int{lp.TIDx, lp.TIDy, lp.TIDz} }

// GridReductionScratch is the pair of scratch buffers a cross-block
// reduction needs: a per-partial-result work area and a sync-flag area
// blocks atomically increment until a last-block invariant holds
// (spec.md §4.10, §5 "grid-reduction scratch").
type GridReductionScratch struct {
	WorkBytes     int
	SyncFlagBytes int
}

// gridReduction describes one grid-spanning reduction found in a lowered
// kernel-IR tree: the element size of its accumulator and the number of
// independent reduction segments (distinct output elements) it computes.
type gridReduction struct {
	elementSize int
	segments    int
}

const syncFlagSize = 4 // sizeof(unsigned)

// ComputeGridReductionScratch walks nodes for ForLoops bound to grid-y or
// grid-z (the marker spec.md §4.10 uses for "uses grid-y or grid-z"), and
// returns the scratch sizing required to cover the worst case among them:
// `blocks * threads_per_reduction_block * element_size` for the work
// buffer, `num_reduction_segments * sizeof(unsigned)` for the sync flags,
// each maximized over every such reduction in the fusion.
func ComputeGridReductionScratch(nodes []kernelir.Node, lp LaunchParams) *GridReductionScratch {
	reductions := findGridReductions(nodes)
	if len(reductions) == 0 {
		return nil
	}

	blocks := max(1, lp.BIDx) * max(1, lp.BIDy) * max(1, lp.BIDz)
	threadsPerReductionBlock := max(1, lp.TIDx) * max(1, lp.TIDy) * max(1, lp.TIDz)

	var scratch GridReductionScratch
	for _, r := range reductions {
		work := blocks * threadsPerReductionBlock * r.elementSize
		sync := r.segments * syncFlagSize
		scratch.WorkBytes = max(scratch.WorkBytes, work)
		scratch.SyncFlagBytes = max(scratch.SyncFlagBytes, sync)
	}
	return &scratch
}

func findGridReductions(nodes []kernelir.Node) []gridReduction {
	var out []gridReduction
	var walk func(ns []kernelir.Node, crossBlock bool)
	walk = func(ns []kernelir.Node, crossBlock bool) {
		for _, n := range ns {
			switch k := n.Kind.(type) {
			case *kernelir.ForLoop:
				cb := crossBlock || k.Domain.Parallel() == domain.BIDy || k.Domain.Parallel() == domain.BIDz
				walk(k.Body, cb)
			case *kernelir.IfThenElse:
				walk(k.Body, crossBlock)
				walk(k.ElseBody, crossBlock)
			case *kernelir.Expr:
				if crossBlock && k.Op == ir.OpReduction {
					out = append(out, gridReduction{
						elementSize: elementSizeOf(k),
						segments:    1,
					})
				}
			}
		}
	}
	walk(nodes, false)
	return out
}

func elementSizeOf(e *kernelir.Expr) int {
	if len(e.Outputs) == 0 || e.Outputs[0].Index == nil {
		return 4
	}
	return e.Outputs[0].Index.TV().Val.DType.Size()
}

// Args is one concrete call's marshalled argument set, ordered per
// spec.md §4.10 "On hit": tensor inputs, then outputs, then scalar inputs,
// then an optional philox seed/offset pair, then grid-reduction scratch
// buffers.
type Args struct {
	Tensors []TensorArg
	Outputs []TensorArg
	Scalars []ScalarArg

	// Seed/Offset are set only for kernels that use randomness (spec.md
	// §6 "optional (seed, offset) for RNG").
	Seed, Offset *uint64
}

// Marshal renders args in the exact binding order spec.md §4.10 requires,
// appending scratch last when the kernel needs a grid reduction.
func Marshal(args Args, scratch *GridReductionScratch) []any {
	out := make([]any, 0, len(args.Tensors)+len(args.Outputs)+len(args.Scalars)+4)
	for _, t := range args.Tensors {
		out = append(out, t)
	}
	for _, t := range args.Outputs {
		out = append(out, t)
	}
	for _, s := range args.Scalars {
		out = append(out, s)
	}
	if args.Seed != nil && args.Offset != nil {
		out = append(out, *args.Seed, *args.Offset)
	}
	if scratch != nil {
		out = append(out, scratch.WorkBytes, scratch.SyncFlagBytes)
	}
	return out
}
