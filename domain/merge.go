// merge.go - Merge(outer, inner) -> out
//
// Dieses Modul implementiert die Merge-Transformation aus spec.md §4.2:
// out.extent = outer.extent * inner.extent, iteriert in row-major
// (outer, inner)-Reihenfolge. Legal nur wenn beide Achsen denselben
// Reduction-Status teilen und keine neu eingefuehrte, unkonkretisierte
// Broadcast-Achse beteiligt ist.
package domain

import "github.com/csarofeen/fuser/ir"

// MergeAttrs is the Attrs payload of an OpMerge Expr.
type MergeAttrs struct{}

func (a *MergeAttrs) SameAs(other any) bool {
	_, ok := other.(*MergeAttrs)
	return ok
}

// Merge combines the two adjacent current axes at positions outerPos and
// outerPos+1 into a single axis. Both axes must agree on reduction status
// (spec.md §4.2); a new (unconcretized) broadcast axis may not be merged.
func Merge(f *ir.Fusion, td *TensorDomain, outerPos int) (out *IterDomain, err error) {
	if outerPos < 0 || outerPos+1 >= td.NDims() {
		return nil, &ir.InvalidTransformError{Op: "Merge", Reason: "axes not adjacent or out of range"}
	}

	outer := td.data.Current[outerPos]
	inner := td.data.Current[outerPos+1]

	if !outer.SameKind(inner) {
		return nil, &ir.InvalidTransformError{Op: "Merge", Reason: "cannot merge reduction with non-reduction axis"}
	}
	if (outer.IsBroadcast() && outer.ConcreteSize() == nil && !outer.BroadcastHasStride()) ||
		(inner.IsBroadcast() && inner.ConcreteSize() == nil && !inner.BroadcastHasStride()) {
		return nil, &ir.InvalidTransformError{Op: "Merge", Reason: "cannot merge an unconcretized broadcast axis"}
	}

	extent := f.NewBinary(ir.BinaryMul, outer.Extent(), inner.Extent())
	opts := propagateFlags(outer)
	out = NewIterDomain(f, f.NewConstScalar(extent.DType, 0), extent, opts...)

	f.RegisterExpr(&ir.Expr{
		Op:      ir.OpMerge,
		Inputs:  []*ir.Val{outer.Val, inner.Val},
		Outputs: []*ir.Val{out.Val},
		Attrs:   &MergeAttrs{},
	})

	newCurrent := make([]*IterDomain, 0, td.NDims()-1)
	newCurrent = append(newCurrent, td.data.Current[:outerPos]...)
	newCurrent = append(newCurrent, out)
	newCurrent = append(newCurrent, td.data.Current[outerPos+2:]...)
	td.setCurrent(newCurrent)

	return out, nil
}
