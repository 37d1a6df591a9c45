// schedule.go - apply the reduction heuristic's parameters to a Fusion
//
// Dieses Modul entspricht original_source's scheduleReduction: es findet
// die eine ausgezeichnete Reduction-TensorView, buendelt alle Iterations-
// bzw. Reduction-Achsen (wie scheduler.cpp's coalescReduction), wendet dann
// Split/rFactor/ComputeAt gemaess spec.md §4.9 Schritt 5 an und bindet die
// resultierenden Achsen an Grid-/Block-Dimensionen.
package schedule

import (
	"github.com/csarofeen/fuser/computeat"
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
	"github.com/csarofeen/fuser/rootmap"
)

// LaunchParams is the scheduler's other output besides the transformed
// Fusion: the grid/block shape a kernel launch must use.
type LaunchParams struct {
	GridX, GridY, GridZ    int
	BlockX, BlockY, BlockZ int
}

// ScheduleReduction finds f's single distinguished reduction, applies the
// spec.md §4.9 heuristic to it, and returns the chosen launch shape. extents
// supplies the concrete (runtime-bound) size of every root IterDomain
// reachable from the reduction's inputs; it is how the scheduler learns O
// and R for a specific call's input shapes.
func ScheduleReduction(f *ir.Fusion, rm *rootmap.RootDomainMap, extents map[*domain.IterDomain]int64, caps DeviceCapabilities) (LaunchParams, error) {
	redTV, err := findReductionOutput(f)
	if err != nil {
		return LaunchParams{}, err
	}

	td := redTV.Domain()
	axes := td.Current()
	if len(axes) == 0 {
		return LaunchParams{}, &ir.InvalidTransformError{Op: "Schedule", Reason: "reduction output has no axes"}
	}
	fastestDim := axes[len(axes)-1].IsReduction()

	outputCount, reductionCount := 1, 1
	for _, ax := range axes {
		size := int(extents[ax])
		if size <= 0 {
			for k, v := range extents {
				if rm.CanMapAxes(k, ax) {
					size = max(size, int(v))
				}
			}
		}
		if size <= 0 {
			size = 1
		}
		if ax.IsReduction() {
			reductionCount *= size
		} else {
			outputCount *= size
		}
	}

	rp := reductionHeuristic(outputCount, reductionCount, fastestDim, caps)

	if err := coalesceReduction(f, td); err != nil {
		return LaunchParams{}, err
	}
	if td.NDims() != 2 {
		return LaunchParams{}, &ir.InvalidTransformError{Op: "Schedule", Reason: "reduction requires exactly one output axis and one reduction axis after coalescing"}
	}

	if fastestDim {
		if err := scheduleFastestDim(f, rm, redTV, rp); err != nil {
			return LaunchParams{}, err
		}
	} else {
		if err := scheduleOuterDim(f, rm, redTV, rp); err != nil {
			return LaunchParams{}, err
		}
	}

	lp := LaunchParams{
		GridX: rp.GridDimX, GridY: rp.GridDimY, GridZ: 1,
		BlockX: rp.BlockDimX, BlockY: rp.BlockDimY, BlockZ: 1,
	}
	f.SetLaunchConfigOverride(ir.LaunchConfigOverride{
		BIDx: lp.GridX, BIDy: lp.GridY, BIDz: lp.GridZ,
		TIDx: lp.BlockX, TIDy: lp.BlockY, TIDz: lp.BlockZ,
	})
	return lp, nil
}

func findReductionOutput(f *ir.Fusion) (*domain.TensorView, error) {
	var red *domain.TensorView
	for _, e := range f.Exprs(true) {
		if e.Op != ir.OpReduction {
			continue
		}
		if tv := domain.AsTensorView(e.Outputs[0]); tv != nil {
			red = tv
		}
	}
	if red == nil {
		return nil, &ir.InvalidTransformError{Op: "Schedule", Reason: "fusion has no reduction to schedule"}
	}
	return red, nil
}

// coalesceReduction reorders td so every reduction axis is adjacent on the
// right and every iteration axis is adjacent on the left, then merges each
// group down to a single axis, leaving a 2-axis (iteration, reduction)
// domain whenever td started with at least one axis of each kind.
func coalesceReduction(f *ir.Fusion, td *domain.TensorDomain) error {
	axes := td.Current()
	var iterPos, redPos []int
	for i, ax := range axes {
		if ax.IsReduction() {
			redPos = append(redPos, i)
		} else {
			iterPos = append(iterPos, i)
		}
	}
	numIter := len(iterPos)
	newToOld := append(append([]int(nil), iterPos...), redPos...)
	if err := domain.Reorder(td, newToOld); err != nil {
		return err
	}

	for td.NDims()-numIter > 1 {
		if _, err := domain.Merge(f, td, numIter); err != nil {
			return err
		}
	}
	for numIter > 1 {
		if _, err := domain.Merge(f, td, 0); err != nil {
			return err
		}
		numIter--
	}
	return nil
}

// scheduleFastestDim implements spec.md §4.9 step 5's fastest_dim branch:
// split the reduction axis by block_x, then either factor a cross-warp
// reduction axis by block_y, or split the output axis by block_y to pack
// multiple independent reductions into one block.
func scheduleFastestDim(f *ir.Fusion, rm *rootmap.RootDomainMap, redTV *domain.TensorView, rp ReductionParams) error {
	td := redTV.Domain()
	blockX := f.NewConstScalar(td.Current()[1].Extent().DType, float64(rp.BlockDimX))

	outerRed, innerRed, err := domain.Split(f, td, 1, blockX)
	if err != nil {
		return err
	}
	innerRed.SetParallel(domain.TIDx)

	if rp.MulRedsPerBlk {
		blockY := f.NewConstScalar(td.Current()[0].Extent().DType, float64(rp.BlockDimY))
		_, innerOut, err := domain.Split(f, td, 0, blockY)
		if err != nil {
			return err
		}
		innerOut.SetParallel(domain.TIDy)

		redPos := td.AxisPos(outerRed)
		producer, err := domain.RFactor(f, redTV, []int{redPos})
		if err != nil {
			return err
		}
		if err := computeat.At(f, rm, producer, redTV, 2); err != nil {
			return err
		}

		td.Current()[0].SetParallel(domain.BIDx)
		return nil
	}

	// Cross-warp: block_y threads cooperate on one output's reduction.
	blockY := f.NewConstScalar(outerRed.Extent().DType, float64(rp.BlockDimY))
	redPos := td.AxisPos(outerRed)
	outerRed2, innerRed2, err := domain.Split(f, td, redPos, blockY)
	if err != nil {
		return err
	}
	innerRed2.SetParallel(domain.TIDy)

	factorPos := td.AxisPos(outerRed2)
	producer, err := domain.RFactor(f, redTV, []int{factorPos})
	if err != nil {
		return err
	}
	if err := computeat.At(f, rm, producer, redTV, 1); err != nil {
		return err
	}

	td.Current()[0].SetParallel(domain.BIDx)
	return nil
}

// scheduleOuterDim implements spec.md §4.9 step 5's non-fastest-dim branch:
// split the output axis by block_x (parallel threads walk distinct
// outputs), split the reduction axis by block_y, and rFactor the outer
// reduction piece.
func scheduleOuterDim(f *ir.Fusion, rm *rootmap.RootDomainMap, redTV *domain.TensorView, rp ReductionParams) error {
	td := redTV.Domain()
	blockX := f.NewConstScalar(td.Current()[0].Extent().DType, float64(rp.BlockDimX))
	_, innerOut, err := domain.Split(f, td, 0, blockX)
	if err != nil {
		return err
	}
	innerOut.SetParallel(domain.TIDx)

	redAxisPos := td.AxisPos(findReductionAxis(td))
	blockY := f.NewConstScalar(td.Current()[redAxisPos].Extent().DType, float64(rp.BlockDimY))
	outerRed, innerRed, err := domain.Split(f, td, redAxisPos, blockY)
	if err != nil {
		return err
	}
	innerRed.SetParallel(domain.TIDy)

	factorPos := td.AxisPos(outerRed)
	producer, err := domain.RFactor(f, redTV, []int{factorPos})
	if err != nil {
		return err
	}
	if err := computeat.At(f, rm, producer, redTV, 2); err != nil {
		return err
	}

	td.Current()[0].SetParallel(domain.BIDx)
	return nil
}

func findReductionAxis(td *domain.TensorDomain) *domain.IterDomain {
	for _, ax := range td.Current() {
		if ax.IsReduction() {
			return ax
		}
	}
	return nil
}
