// pointwise.go - schedule a fusion with no reductions
//
// Dieses Modul ergaenzt ScheduleReduction um den in spec.md §4.10 Schritt 3
// erwaehnten, aber in §4.9 nicht ausformulierten "pointwise"-Zweig: die
// einzige konkrete Beschreibung eines solchen Schedules steht in spec.md §8
// Szenario 1 ("After merging, splitting by 128 then by 4 and parallelizing
// (BIDx, Unroll, TIDx)"), die dieses Modul direkt umsetzt.
package schedule

import (
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
)

const (
	pointwiseBlockSize  = 128
	pointwiseUnrollSize = 4
)

// SchedulePointwise merges every output TensorView's axes down to one,
// splits it by the block size then by the unroll factor, and parallelizes
// the resulting three axes as (BIDx, Unroll, TIDx). All of f's outputs
// share the same iteration space (pointwise fusions have no reduction to
// realign around), so the same transformation sequence is replayed on each
// one independently.
func SchedulePointwise(f *ir.Fusion) (LaunchParams, error) {
	var lp LaunchParams
	for _, v := range f.Outputs() {
		tv := domain.AsTensorView(v)
		if tv == nil {
			continue
		}
		td := tv.Domain()
		for td.NDims() > 1 {
			if _, err := domain.Merge(f, td, 0); err != nil {
				return LaunchParams{}, err
			}
		}

		block := f.NewConstScalar(td.Current()[0].Extent().DType, float64(pointwiseBlockSize))
		outer, threadAxis, err := domain.Split(f, td, 0, block)
		if err != nil {
			return LaunchParams{}, err
		}
		unrollFactor := f.NewConstScalar(outer.Extent().DType, float64(pointwiseUnrollSize))
		blockAxis, unrollAxis, err := domain.Split(f, td, td.AxisPos(outer), unrollFactor)
		if err != nil {
			return LaunchParams{}, err
		}

		blockAxis.SetParallel(domain.BIDx)
		unrollAxis.SetParallel(domain.Unroll)
		threadAxis.SetParallel(domain.TIDx)

		lp = LaunchParams{GridX: -1, GridY: 1, GridZ: 1, BlockX: pointwiseBlockSize, BlockY: 1, BlockZ: 1}
	}

	f.SetLaunchConfigOverride(ir.LaunchConfigOverride{
		BIDx: lp.GridX, BIDy: lp.GridY, BIDz: lp.GridZ,
		TIDx: lp.BlockX, TIDy: lp.BlockY, TIDz: lp.BlockZ,
	})
	return lp, nil
}
