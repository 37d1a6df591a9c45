// transform_test.go - Tests fuer Split/Merge auf IterDomain-Ebene
package domain

import (
	"errors"
	"testing"

	"github.com/csarofeen/fuser/dtype"
	"github.com/csarofeen/fuser/ir"
)

func newTestTensorDomain(f *ir.Fusion, ndims int) *TensorDomain {
	axes := make([]*IterDomain, ndims)
	contig := make([]bool, ndims)
	for i := range axes {
		extent := f.NewScalar(dtype.Index)
		axes[i] = NewIterDomain(f, f.NewConstScalar(dtype.Index, 0), extent)
		contig[i] = true
	}
	return NewTensorDomain(f, axes, contig)
}

func TestSplitThenMergeRoundTrip(t *testing.T) {
	f := ir.NewFusion()
	td := newTestTensorDomain(f, 1)

	factor := f.NewConstScalar(dtype.Index, 4)
	outer, inner, err := Split(f, td, 0, factor)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if td.NDims() != 2 {
		t.Fatalf("NDims() nach Split = %d, erwartet 2", td.NDims())
	}
	if td.Current()[0] != outer || td.Current()[1] != inner {
		t.Error("Split() hat td.Current() nicht korrekt ersetzt")
	}

	merged, err := Merge(f, td, 0)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if td.NDims() != 1 {
		t.Fatalf("NDims() nach Merge = %d, erwartet 1", td.NDims())
	}
	if td.Current()[0] != merged {
		t.Error("Merge() hat td.Current() nicht korrekt ersetzt")
	}
}

func TestSplitRejectsNonPositiveConstantFactor(t *testing.T) {
	f := ir.NewFusion()
	td := newTestTensorDomain(f, 1)

	factor := f.NewConstScalar(dtype.Index, 0)
	_, _, err := Split(f, td, 0, factor)
	if err == nil {
		t.Fatal("Split() mit Faktor 0 haette fehlschlagen sollen")
	}
	var invalid *ir.InvalidTransformError
	if !errors.As(err, &invalid) {
		t.Errorf("Split() error = %v, erwartet *ir.InvalidTransformError", err)
	}
}

func TestSplitRejectsOutOfRangeAxis(t *testing.T) {
	f := ir.NewFusion()
	td := newTestTensorDomain(f, 1)
	factor := f.NewConstScalar(dtype.Index, 4)

	if _, _, err := Split(f, td, 5, factor); err == nil {
		t.Fatal("Split() mit Achse ausserhalb des gueltigen Bereichs haette fehlschlagen sollen")
	}
}

func TestMergeRejectsReductionNonReductionMix(t *testing.T) {
	f := ir.NewFusion()
	extentA := f.NewScalar(dtype.Index)
	extentB := f.NewScalar(dtype.Index)
	a := NewIterDomain(f, f.NewConstScalar(dtype.Index, 0), extentA)
	b := NewIterDomain(f, f.NewConstScalar(dtype.Index, 0), extentB, Reduction())
	td := NewTensorDomain(f, []*IterDomain{a, b}, []bool{true, true})

	if _, err := Merge(f, td, 0); err == nil {
		t.Fatal("Merge() von Reduction- und Nicht-Reduction-Achse haette fehlschlagen sollen")
	}
}
