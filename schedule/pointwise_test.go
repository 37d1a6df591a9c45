// pointwise_test.go - Tests fuer den Nicht-Reduction-Scheduling-Zweig
package schedule

import (
	"testing"

	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/dtype"
	"github.com/csarofeen/fuser/ir"
)

func newPointwiseFusion(f *ir.Fusion, ndims int) *domain.TensorView {
	axes := make([]*domain.IterDomain, ndims)
	contig := make([]bool, ndims)
	for i := range axes {
		extent := f.NewScalar(dtype.Index)
		axes[i] = domain.NewIterDomain(f, f.NewConstScalar(dtype.Index, 0), extent)
		contig[i] = true
	}
	tv := domain.NewTensorView(f, dtype.Float32, axes, contig)
	f.AddInput(tv.Val)
	out := domain.Unary(f, ir.UnaryRelu, tv)
	f.AddOutput(out.Val)
	return out
}

func TestSchedulePointwiseCollapsesToThreeAxes(t *testing.T) {
	f := ir.NewFusion()
	out := newPointwiseFusion(f, 3)

	lp, err := SchedulePointwise(f)
	if err != nil {
		t.Fatalf("SchedulePointwise() error = %v", err)
	}

	td := out.Domain()
	if td.NDims() != 3 {
		t.Fatalf("NDims() nach SchedulePointwise = %d, erwartet 3 (BIDx, Unroll, TIDx)", td.NDims())
	}

	axes := td.Current()
	wantParallel := []domain.ParallelType{domain.BIDx, domain.TIDx, domain.Unroll}
	for _, want := range wantParallel {
		found := false
		for _, ax := range axes {
			if ax.Parallel() == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("keine Achse mit Parallel-Tag %v gefunden", want)
		}
	}

	if lp.BlockX != pointwiseBlockSize {
		t.Errorf("LaunchParams.BlockX = %d, erwartet %d", lp.BlockX, pointwiseBlockSize)
	}
	if lp.GridX != -1 {
		t.Errorf("LaunchParams.GridX = %d, erwartet -1 (zur Laufzeit geerbt)", lp.GridX)
	}

	override, ok := f.LaunchConfigOverride()
	if !ok {
		t.Fatal("LaunchConfigOverride() wurde nicht gesetzt")
	}
	if override.TIDx != pointwiseBlockSize {
		t.Errorf("LaunchConfigOverride.TIDx = %d, erwartet %d", override.TIDx, pointwiseBlockSize)
	}
}

func TestSchedulePointwiseSingleAxis(t *testing.T) {
	f := ir.NewFusion()
	out := newPointwiseFusion(f, 1)

	if _, err := SchedulePointwise(f); err != nil {
		t.Fatalf("SchedulePointwise() error = %v", err)
	}
	if out.Domain().NDims() != 3 {
		t.Fatalf("NDims() = %d, erwartet 3 auch bei bereits eindimensionalem Output", out.Domain().NDims())
	}
}
