// split.go - Split(in, factor) -> (outer, inner)
//
// Dieses Modul implementiert die Split-Transformation aus spec.md §4.2:
// inner erhaelt die Extent `factor`, outer erhaelt ceilDiv(in.extent,
// factor). Reduction-/Broadcast-Flags werden auf beide Outputs propagiert,
// der Parallel-Tag nicht. Die Transformation wird als gewoehnliche Expr im
// Fusion-DAG festgehalten, damit Backward-Indexing (Paket index) die
// Herkunft nachvollziehen kann.
package domain

import "github.com/csarofeen/fuser/ir"

// SplitAttrs is the Attrs payload of an OpSplit Expr.
type SplitAttrs struct {
	Factor     *ir.Val
	InnerSplit bool // true: inner gets `factor`; matches nvFuser's default split direction
	OuterSplit bool // reserved for the rare outer-split variant; unused by the scheduler today
}

func (a *SplitAttrs) SameAs(other any) bool {
	o, ok := other.(*SplitAttrs)
	return ok && o != nil && a.InnerSplit == o.InnerSplit && a.OuterSplit == o.OuterSplit
}

// CeilDiv returns a Val computing ceil(a/b) via (a + b - 1) / b, recorded
// as ordinary binary Exprs so the expression can be emitted verbatim into
// kernel source by codegen.
func CeilDiv(f *ir.Fusion, a, b *ir.Val) *ir.Val {
	one := f.NewConstScalar(a.DType, 1)
	bMinus1 := f.NewBinary(ir.BinarySub, b, one)
	sum := f.NewBinary(ir.BinaryAdd, a, bMinus1)
	return f.NewBinary(ir.BinaryDiv, sum, b)
}

// Split divides axis `in` of td into (outer, inner) where inner has extent
// factor, replacing `in` in-place within td's current tuple. factor must
// be a positive constant scalar or a symbolic extent Val; non-positive
// constant factors are rejected.
func Split(f *ir.Fusion, td *TensorDomain, axisPos int, factor *ir.Val) (outer, inner *IterDomain, err error) {
	if axisPos < 0 || axisPos >= td.NDims() {
		return nil, nil, &ir.InvalidTransformError{Op: "Split", Reason: "axis index out of range"}
	}
	if factor.IsConst && factor.ConstValue <= 0 {
		return nil, nil, &ir.InvalidTransformError{Op: "Split", Reason: "factor must be positive"}
	}

	in := td.data.Current[axisPos]

	outerExtent := CeilDiv(f, in.Extent(), factor)
	outer = NewIterDomain(f, f.NewConstScalar(in.Extent().DType, 0), outerExtent, propagateFlags(in)...)
	inner = NewIterDomain(f, f.NewConstScalar(in.Extent().DType, 0), factor, propagateFlags(in)...)

	f.RegisterExpr(&ir.Expr{
		Op:      ir.OpSplit,
		Inputs:  []*ir.Val{in.Val},
		Outputs: []*ir.Val{outer.Val, inner.Val},
		Attrs:   &SplitAttrs{Factor: factor, InnerSplit: true},
	})

	newCurrent := make([]*IterDomain, 0, td.NDims()+1)
	newCurrent = append(newCurrent, td.data.Current[:axisPos]...)
	newCurrent = append(newCurrent, outer, inner)
	newCurrent = append(newCurrent, td.data.Current[axisPos+1:]...)
	td.setCurrent(newCurrent)

	return outer, inner, nil
}

func propagateFlags(in *IterDomain) []IterDomainOption {
	var opts []IterDomainOption
	if in.IsReduction() {
		opts = append(opts, Reduction())
	}
	if in.IsBroadcast() {
		if in.BroadcastHasStride() {
			opts = append(opts, BroadcastWithStride())
		} else {
			opts = append(opts, Broadcast())
		}
	}
	return opts
}
