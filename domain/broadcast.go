// broadcast.go - BroadcastOp: introduce new singleton axes
//
// Dieses Modul implementiert die Broadcast-Transformation: aus einem
// TensorView mit Rang N entsteht ein TensorView mit Rang N+K, wobei K neue
// Broadcast-Achsen an den durch isBroadcastDim markierten Positionen
// eingefuegt werden. Die Root-Domain-Map (Paket rootmap) liest
// BroadcastAttrs.IsBroadcastDim, um Produzenten-Achsen mit den
// nicht-neuen Konsumenten-Achsen auszurichten (spec.md §4.3).
package domain

import "github.com/csarofeen/fuser/ir"

// Broadcast returns a new TensorView whose rank is len(isBroadcastDim); at
// each true position a fresh broadcast IterDomain of extent 1 is
// introduced, and at each false position the next axis of in (in order) is
// carried over unchanged.
func Broadcast(f *ir.Fusion, in *TensorView, isBroadcastDim []bool) (*TensorView, error) {
	inAxes := in.Domain().Current()
	numNew := 0
	for _, b := range isBroadcastDim {
		if b {
			numNew++
		}
	}
	if len(isBroadcastDim)-numNew != len(inAxes) {
		return nil, &ir.InvalidTransformError{Op: "Broadcast", Reason: "isBroadcastDim must carry exactly len(in) false entries"}
	}

	outAxes := make([]*IterDomain, len(isBroadcastDim))
	contiguity := make([]bool, len(isBroadcastDim))
	srcIdx := 0
	for i, isNew := range isBroadcastDim {
		if isNew {
			one := f.NewConstScalar(inAxes[0].Extent().DType, 1)
			outAxes[i] = NewIterDomain(f, f.NewConstScalar(one.DType, 0), one, Broadcast())
		} else {
			outAxes[i] = mirrorAxis(f, inAxes[srcIdx])
			contiguity[i] = in.Domain().Contiguity()[srcIdx]
			srcIdx++
		}
	}

	out := NewTensorView(f, in.Val.DType, outAxes, contiguity)
	f.RegisterExpr(&ir.Expr{
		Op:      ir.OpBroadcast,
		Inputs:  []*ir.Val{in.Val},
		Outputs: []*ir.Val{out.Val},
		Attrs:   &ir.BroadcastAttrs{IsBroadcastDim: append([]bool(nil), isBroadcastDim...)},
	})
	return out, nil
}

// mirrorAxis creates a fresh root IterDomain with the same extent/flags as
// src, for use as a carried-over (non-new) axis of a BroadcastOp's output
// root domain — every TensorDomain's root axes must be private to that
// domain (no two TensorDomains may share an IterDomain Val), so a plain
// alias would violate that.
func mirrorAxis(f *ir.Fusion, src *IterDomain) *IterDomain {
	opts := propagateFlags(src)
	return NewIterDomain(f, src.Start(), src.Extent(), opts...)
}
