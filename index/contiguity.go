// contiguity.go - coalesce per-root-axis indices into a flat strided address
//
// Dieses Modul bildet spec.md §4.6's zwei getrennte Adressierungspfade ab,
// portiert aus index_compute.cpp's getProducerIndex_/getConsumerIndex_: fuer
// MemoryShared/MemoryLocal-TensorViews (FlattenIndex) werden angrenzende
// Root-Achsen, die laut TensorDomain.Contiguity() kontiguierlich sind, zu
// einer einzigen Stride-Multiplikation aus den umschliessenden Extents
// zusammengefasst; eine nicht-kontiguierliche Grenze erzeugt stattdessen ein
// frisches Laufzeit-Stride-Symbol. Fuer MemoryGlobal-TensorViews
// (GlobalFlattenIndex) gilt ein anderes Verfahren: jede Achse adressiert
// ueber ein vom Aufrufer (Framework) bereitgestelltes T<name>.stride[k], statt
// die Schrittweite aus Extents herzuleiten.
package index

import (
	"fmt"

	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/dtype"
	"github.com/csarofeen/fuser/ir"
)

// FlattenIndex combines per-root-axis index expressions into a single flat
// address, assuming row-major layout (root axis 0 slowest-varying). This is
// the addressing rule for shared/local memory TensorViews, whose storage
// the lowering pass itself allocates. Across a contiguous inner axis the
// stride is the product of the enclosing extents; where the inner axis is
// not contiguous the stride is a named "stride_<i>" scalar instead.
func FlattenIndex(f *ir.Fusion, td *domain.TensorDomain, rootIndices []*ir.Val) *ir.Val {
	root := td.Root()
	contig := td.Contiguity()
	n := len(root)
	if n == 0 {
		return f.NewConstScalar(root[0].Extent().DType, 0)
	}

	strides := make([]*ir.Val, n)
	strides[n-1] = f.NewConstScalar(root[n-1].Extent().DType, 1)
	for i := n - 2; i >= 0; i-- {
		if contig[i+1] {
			strides[i] = f.NewBinary(ir.BinaryMul, strides[i+1], root[i+1].Extent())
		} else {
			strides[i] = f.NewNamedScalar(fmt.Sprintf("stride_%d", i), root[i].Extent().DType)
		}
	}

	var addr *ir.Val
	for i := 0; i < n; i++ {
		term := f.NewBinary(ir.BinaryMul, rootIndices[i], strides[i])
		if addr == nil {
			addr = term
		} else {
			addr = f.NewBinary(ir.BinaryAdd, addr, term)
		}
	}
	return addr
}

// GlobalFlattenIndex is the addressing rule for MemoryGlobal TensorViews:
// each root axis addresses through a runtime-provided T<name>.stride[k]
// rather than a stride derived from extents, because a global tensor's
// physical layout is supplied by the caller (aten strides), not allocated
// by the lowering pass. Reduction axes and stride-less broadcast axes are
// skipped entirely — they never occupy a physical stride slot. A
// stride-carrying broadcast axis (spec.md's "expanded" axis) still consumes
// a stride slot, since the physical buffer reserves space for it, but never
// contributes a term: its logical extent is always 1.
func GlobalFlattenIndex(f *ir.Fusion, tv *domain.TensorView, root []*domain.IterDomain, rootIndices []*ir.Val) *ir.Val {
	strideIdx := 0
	var addr *ir.Val
	for i, ax := range root {
		if ax.IsReduction() || (ax.IsBroadcast() && !ax.BroadcastHasStride()) {
			continue
		}
		if ax.IsBroadcast() && ax.BroadcastHasStride() {
			strideIdx++
			continue
		}
		stride := f.NewNamedScalar(fmt.Sprintf("T%d.stride[%d]", tv.Val.Name(), strideIdx), ax.Extent().DType)
		strideIdx++
		term := f.NewBinary(ir.BinaryMul, rootIndices[i], stride)
		if addr == nil {
			addr = term
		} else {
			addr = f.NewBinary(ir.BinaryAdd, addr, term)
		}
	}
	if addr == nil {
		addr = f.NewConstScalar(dtype.Index, 0)
	}
	return addr
}
