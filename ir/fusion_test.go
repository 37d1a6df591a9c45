// fusion_test.go - Tests fuer die Fusion-Arena und Expr-Reihenfolge
package ir

import (
	"testing"

	"github.com/csarofeen/fuser/dtype"
)

func TestFusionAddInputOutput(t *testing.T) {
	f := NewFusion()
	a := f.NewScalar(dtype.Float32)
	f.AddInput(a)
	b := f.NewUnary(UnaryNeg, a)
	f.AddOutput(b)

	if got := f.Inputs(); len(got) != 1 || got[0] != a {
		t.Errorf("Inputs() = %v, erwartet [%v]", got, a)
	}
	if got := f.Outputs(); len(got) != 1 || got[0] != b {
		t.Errorf("Outputs() = %v, erwartet [%v]", got, b)
	}

	f.RemoveOutput(b)
	if got := f.Outputs(); len(got) != 0 {
		t.Errorf("Outputs() nach RemoveOutput = %v, erwartet leer", got)
	}
}

func TestFusionExprsTopologicalOrder(t *testing.T) {
	f := NewFusion()
	a := f.NewScalar(dtype.Float32)
	b := f.NewScalar(dtype.Float32)
	f.AddInput(a)
	f.AddInput(b)

	sum := f.NewBinary(BinaryAdd, a, b)
	result := f.NewUnary(UnaryRelu, sum)
	f.AddOutput(result)

	order := f.Exprs(true)
	if len(order) != 2 {
		t.Fatalf("Exprs(true) hat %d Eintraege, erwartet 2", len(order))
	}
	if order[0].Op != OpBinary || order[1].Op != OpUnary {
		t.Errorf("Exprs(true) Reihenfolge = [%v, %v], erwartet [BinaryOp, UnaryOp]", order[0].Op, order[1].Op)
	}
}

func TestFusionClear(t *testing.T) {
	f := NewFusion()
	a := f.NewScalar(dtype.Float32)
	f.AddInput(a)
	f.NewUnary(UnaryNeg, a)
	f.SetLaunchConfigOverride(LaunchConfigOverride{BIDx: 4})

	f.Clear()

	if len(f.AllVals()) != 0 || len(f.Inputs()) != 0 || len(f.Exprs(false)) != 0 {
		t.Error("Clear() hat nicht alle Felder geleert")
	}
	if _, ok := f.LaunchConfigOverride(); ok {
		t.Error("Clear() hat launchConfigOverride nicht zurueckgesetzt")
	}
}

func TestFusionMonotonicNames(t *testing.T) {
	f := NewFusion()
	a := f.NewScalar(dtype.Float32)
	b := f.NewScalar(dtype.Float32)
	if b.Name() <= a.Name() {
		t.Errorf("Val-Namen sind nicht monoton: a=%d, b=%d", a.Name(), b.Name())
	}
	sum := f.NewBinary(BinaryAdd, a, b)
	if sum.Def() == nil {
		t.Error("sum.Def() ist nil, erwartet die erzeugende Expr")
	}
	if sum.Name() <= b.Name() {
		t.Errorf("Expr-Namensraum ueberschneidet sich nicht monoton mit Val-Namen: sum=%d, b=%d", sum.Name(), b.Name())
	}
}

func TestNewBinaryTypePromotion(t *testing.T) {
	f := NewFusion()
	a := f.NewScalar(dtype.Int32)
	b := f.NewScalar(dtype.Float32)
	out := f.NewBinary(BinaryAdd, a, b)
	if out.DType != dtype.Float32 {
		t.Errorf("NewBinary DType = %v, erwartet Float32 (Promotion)", out.DType)
	}
}
