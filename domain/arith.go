// arith.go - TensorView-level operation builders
//
// Dieses Modul hebt die Val-Ebene-Konstruktoren aus Paket ir (NewUnary,
// NewBinary, NewTernary, NewCast) auf die TensorView-Ebene: statt eines
// Skalar-Outputs entsteht ein neuer TensorView mit einer aus den
// Eingabe-Domains abgeleiteten TensorDomain. Elementweise Operationen
// verlangen, dass alle Operanden denselben Rang tragen — Rang-Angleichung
// geschieht vorher explizit ueber Broadcast (broadcast.go), genau wie in
// ml/context.go's Tensor-Interface Shape-Angleichung vor Aufruf des
// eigentlichen Op-Konstruktors erwartet wird.
package domain

import (
	"fmt"

	"github.com/csarofeen/fuser/dtype"
	"github.com/csarofeen/fuser/ir"
)

func mirrorAxes(f *ir.Fusion, axes []*IterDomain) []*IterDomain {
	out := make([]*IterDomain, len(axes))
	for i, ax := range axes {
		out[i] = mirrorAxis(f, ax)
	}
	return out
}

func elementwiseDomain(f *ir.Fusion, dt dtype.DType, like *TensorView) *TensorView {
	axes := mirrorAxes(f, like.Domain().Current())
	return NewTensorView(f, dt, axes, make([]bool, len(axes)))
}

func requireSameRank(a, b *TensorView) error {
	if a.NDims() != b.NDims() {
		return &ir.InvalidTransformError{Op: "Binary", Reason: fmt.Sprintf("rank mismatch: %d vs %d", a.NDims(), b.NDims())}
	}
	return nil
}

// Unary builds op(in) as a fresh TensorView sharing in's iteration shape.
func Unary(f *ir.Fusion, op ir.UnaryOpType, in *TensorView) *TensorView {
	out := elementwiseDomain(f, in.Val.DType, in)
	f.RegisterExpr(&ir.Expr{Op: ir.OpUnary, Inputs: []*ir.Val{in.Val}, Outputs: []*ir.Val{out.Val}, Attrs: op})
	return out
}

// Binary builds lhs op rhs. lhs and rhs must already share rank (see
// Broadcast); the output DType is the usual arithmetic promotion of both
// operand DTypes.
func Binary(f *ir.Fusion, op ir.BinaryOpType, lhs, rhs *TensorView) (*TensorView, error) {
	if err := requireSameRank(lhs, rhs); err != nil {
		return nil, err
	}
	dt := dtype.PromoteTypes(lhs.Val.DType, rhs.Val.DType)
	out := elementwiseDomain(f, dt, lhs)
	f.RegisterExpr(&ir.Expr{Op: ir.OpBinary, Inputs: []*ir.Val{lhs.Val, rhs.Val}, Outputs: []*ir.Val{out.Val}, Attrs: op})
	return out, nil
}

// Ternary builds op(a, b, c) (e.g. select(cond, a, b) for TernaryWhere).
// The output shape/DType follow b, matching nvFuser's where() convention of
// taking the "true" branch's type as the result type.
func Ternary(f *ir.Fusion, op ir.TernaryOpType, a, b, c *TensorView) (*TensorView, error) {
	if err := requireSameRank(a, b); err != nil {
		return nil, err
	}
	if err := requireSameRank(b, c); err != nil {
		return nil, err
	}
	out := elementwiseDomain(f, b.Val.DType, b)
	f.RegisterExpr(&ir.Expr{Op: ir.OpTernary, Inputs: []*ir.Val{a.Val, b.Val, c.Val}, Outputs: []*ir.Val{out.Val}, Attrs: op})
	return out, nil
}

// Cast builds a DType conversion of in, preserving its iteration shape.
func Cast(f *ir.Fusion, dt dtype.DType, in *TensorView) *TensorView {
	out := elementwiseDomain(f, dt, in)
	f.RegisterExpr(&ir.Expr{Op: ir.OpCast, Inputs: []*ir.Val{in.Val}, Outputs: []*ir.Val{out.Val}})
	return out
}

// Sum reduces in over the axes at the given current-domain positions, using
// op as the accumulation operator. The output TensorView keeps in's rank:
// reduced positions are marked IsReduction on the output's axes rather than
// removed, matching spec.md §4.2's "reduction axes survive as marked,
// non-iterated axes downstream of the reduce".
func Sum(f *ir.Fusion, in *TensorView, axes []int, op ir.ReductionOpType) (*TensorView, error) {
	inAxes := in.Domain().Current()
	reduced := make(map[int]bool, len(axes))
	for _, a := range axes {
		if a < 0 || a >= len(inAxes) {
			return nil, &ir.InvalidTransformError{Op: "Sum", Reason: "reduction axis out of range"}
		}
		if inAxes[a].IsReduction() {
			return nil, &ir.InvalidTransformError{Op: "Sum", Reason: "axis is already a reduction axis"}
		}
		reduced[a] = true
	}

	outAxes := make([]*IterDomain, len(inAxes))
	for i, ax := range inAxes {
		if reduced[i] {
			outAxes[i] = NewIterDomain(f, ax.Start(), ax.Extent(), Reduction())
		} else {
			outAxes[i] = mirrorAxis(f, ax)
		}
	}

	out := NewTensorView(f, in.Val.DType, outAxes, make([]bool, len(outAxes)))
	f.RegisterExpr(&ir.Expr{
		Op:      ir.OpReduction,
		Inputs:  []*ir.Val{in.Val},
		Outputs: []*ir.Val{out.Val},
		Attrs:   &ir.ReductionAttrs{Op: op, Axes: append([]int(nil), axes...)},
	})
	return out, nil
}

// Full materializes a constant-filled TensorView of the given shape — the
// root of an Arange/Zeros/FullLike style op (OpFull carries no producer
// TensorView input).
func Full(f *ir.Fusion, dt dtype.DType, axes []*IterDomain, fillValue float64) *TensorView {
	fill := f.NewConstScalar(dt, fillValue)
	out := NewTensorView(f, dt, mirrorAxes(f, axes), make([]bool, len(axes)))
	f.RegisterExpr(&ir.Expr{Op: ir.OpFull, Inputs: []*ir.Val{fill}, Outputs: []*ir.Val{out.Val}})
	return out
}
