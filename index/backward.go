// backward.go - recover a root-axis index from the loop indices of its descendants
//
// Dieses Modul portiert den Kern von original_source's index_compute.cpp:
// fuer jede Root-Achse wird, ausgehend von den tatsaechlich als Schleife
// geoeffneten (Blatt-)Achsen, der Index rueckwaerts durch die
// Split/Merge-Historie propagiert. Split kehrt sich zu `outer*innerExtent +
// inner` um, Merge kehrt sich zu `(outIdx / innerExtent, outIdx %
// innerExtent)` um. Reorder erzeugt keine Expr und muss daher hier nicht
// behandelt werden (domain/reorder.go).
package index

import (
	"fmt"

	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
)

// BuildIterDomainUses maps each IterDomain Val that is consumed as a
// Split/Merge input to the Expr that consumes it. An IterDomain has at most
// one such use since Split/Merge take full ownership of the axis they
// transform (domain.TensorDomain.setCurrent splices transformed axes in, it
// never reuses an axis in two live positions at once).
func BuildIterDomainUses(f *ir.Fusion) map[*ir.Val]*ir.Expr {
	uses := make(map[*ir.Val]*ir.Expr)
	for _, e := range f.Exprs(false) {
		if e.Op != ir.OpSplit && e.Op != ir.OpMerge {
			continue
		}
		for _, in := range e.Inputs {
			uses[in] = e
		}
	}
	return uses
}

// RootIndex computes the index expression for ax, given loopIndex (the
// index Val bound to every axis that is an actually-open loop) and uses
// (from BuildIterDomainUses). Returns *ir.MissingIndexError if ax is
// neither an open loop nor reachable through a recorded transform.
func RootIndex(f *ir.Fusion, ax *domain.IterDomain, loopIndex map[*domain.IterDomain]*ir.Val, uses map[*ir.Val]*ir.Expr) (*ir.Val, error) {
	if v, ok := loopIndex[ax]; ok {
		return v, nil
	}
	use, ok := uses[ax.Val]
	if !ok {
		return nil, &ir.MissingIndexError{AxisName: fmt.Sprintf("%%%d", ax.Val.Name())}
	}

	switch use.Op {
	case ir.OpSplit:
		outer := domain.AsIterDomain(use.Outputs[0])
		inner := domain.AsIterDomain(use.Outputs[1])
		outerIdx, err := RootIndex(f, outer, loopIndex, uses)
		if err != nil {
			return nil, err
		}
		innerIdx, err := RootIndex(f, inner, loopIndex, uses)
		if err != nil {
			return nil, err
		}
		scaled := f.NewBinary(ir.BinaryMul, outerIdx, inner.Extent())
		return f.NewBinary(ir.BinaryAdd, scaled, innerIdx), nil

	case ir.OpMerge:
		out := domain.AsIterDomain(use.Outputs[0])
		outIdx, err := RootIndex(f, out, loopIndex, uses)
		if err != nil {
			return nil, err
		}
		outerAx := domain.AsIterDomain(use.Inputs[0])
		innerAx := domain.AsIterDomain(use.Inputs[1])
		if ax.Val == outerAx.Val {
			return f.NewBinary(ir.BinaryDiv, outIdx, innerAx.Extent()), nil
		}
		return f.NewBinary(ir.BinaryMod, outIdx, innerAx.Extent()), nil

	default:
		return nil, &ir.MissingIndexError{AxisName: fmt.Sprintf("%%%d", ax.Val.Name())}
	}
}
