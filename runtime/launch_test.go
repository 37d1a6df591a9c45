// launch_test.go - Tests fuer Launch-Config-Auswertung und Scratch-Sizing
package runtime

import (
	"testing"

	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/dtype"
	"github.com/csarofeen/fuser/index"
	"github.com/csarofeen/fuser/ir"
	"github.com/csarofeen/fuser/kernelir"
)

func TestEvaluateLaunchConfigSubstitutesInherited(t *testing.T) {
	recorded := LaunchParams{BIDx: -1, BIDy: 1, BIDz: 1, TIDx: 128, TIDy: -1, TIDz: 1, SharedBytes: -1}
	override := LaunchParams{BIDx: 42, BIDy: 99, BIDz: 7, TIDx: 256, TIDy: 2, TIDz: 3, SharedBytes: 16}

	got := EvaluateLaunchConfig(recorded, override)
	want := LaunchParams{BIDx: 42, BIDy: 1, BIDz: 1, TIDx: 128, TIDy: 2, TIDz: 1, SharedBytes: 16}
	if got != want {
		t.Errorf("EvaluateLaunchConfig() = %+v, erwartet %+v", got, want)
	}
}

func TestMarshalArgOrder(t *testing.T) {
	seed, offset := uint64(1), uint64(2)
	args := Args{
		Tensors: []TensorArg{{Device: "cuda:0"}},
		Outputs: []TensorArg{{Device: "cuda:0"}},
		Scalars: []ScalarArg{{Value: 3.14}},
		Seed:    &seed,
		Offset:  &offset,
	}
	scratch := &GridReductionScratch{WorkBytes: 64, SyncFlagBytes: 8}

	got := Marshal(args, scratch)
	// tensor, output, scalar, seed, offset, work bytes, sync-flag bytes.
	if len(got) != 7 {
		t.Fatalf("Marshal() Laenge = %d, erwartet 7", len(got))
	}
	if _, ok := got[0].(TensorArg); !ok {
		t.Errorf("Marshal()[0] = %T, erwartet TensorArg (Tensor-Eingabe zuerst)", got[0])
	}
	if got[3] != seed || got[4] != offset {
		t.Errorf("Marshal()[3:5] = %v, erwartet [%d %d] (Seed/Offset)", got[3:5], seed, offset)
	}
	if got[5] != scratch.WorkBytes || got[6] != scratch.SyncFlagBytes {
		t.Errorf("Marshal()[5:7] = %v, erwartet Scratch-Groessen zuletzt", got[5:7])
	}
}

func TestMarshalWithoutRNGOrScratch(t *testing.T) {
	args := Args{Tensors: []TensorArg{{Device: "cuda:0"}}}
	got := Marshal(args, nil)
	if len(got) != 1 {
		t.Fatalf("Marshal() Laenge = %d, erwartet 1", len(got))
	}
	if _, ok := got[0].(TensorArg); !ok {
		t.Errorf("Marshal()[0] = %T, erwartet TensorArg", got[0])
	}
}

func buildSingleExprKernelIR(f *ir.Fusion, blockDim domain.ParallelType) []kernelir.Node {
	axis := domain.NewIterDomain(f, f.NewConstScalar(dtype.Index, 0), f.NewScalar(dtype.Index))
	contig := []bool{true}
	tv := domain.NewTensorView(f, dtype.Float32, []*domain.IterDomain{axis}, contig)
	ti := index.NewTensorIndex(f, tv, []*ir.Val{f.NewScalar(dtype.Index)})

	reductionExpr := kernelir.Node{Kind: &kernelir.Expr{
		Op:      ir.OpReduction,
		Outputs: []kernelir.Operand{{Index: ti}},
	}}

	inner := kernelir.ForLoop{Domain: axis, Body: []kernelir.Node{reductionExpr}}
	inner.Domain.SetParallel(blockDim)
	return []kernelir.Node{{Kind: &inner}}
}

func TestComputeGridReductionScratchDetectsCrossBlockReduction(t *testing.T) {
	f := ir.NewFusion()
	nodes := buildSingleExprKernelIR(f, domain.BIDy)

	scratch := ComputeGridReductionScratch(nodes, LaunchParams{BIDx: 4, BIDy: 8, BIDz: 1, TIDx: 32, TIDy: 1, TIDz: 1})
	if scratch == nil {
		t.Fatal("ComputeGridReductionScratch() = nil, erwartet eine grid-uebergreifende Reduktion")
	}
	if scratch.WorkBytes <= 0 || scratch.SyncFlagBytes <= 0 {
		t.Errorf("scratch = %+v, erwartet positive Groessen", scratch)
	}
}

func TestComputeGridReductionScratchNoneWithoutCrossBlockLoop(t *testing.T) {
	f := ir.NewFusion()
	nodes := buildSingleExprKernelIR(f, domain.TIDx)

	scratch := ComputeGridReductionScratch(nodes, LaunchParams{BIDx: 1, BIDy: 1, BIDz: 1, TIDx: 32, TIDy: 1, TIDz: 1})
	if scratch != nil {
		t.Errorf("ComputeGridReductionScratch() = %+v, erwartet nil ohne grid-y/grid-z-Schleife", scratch)
	}
}
