// tensorindex.go - a lowered address for a tensor slot
//
// Dieses Modul definiert TensorIndex (Val-Kind KindTensorIndex): die
// TensorView, fuer die indiziert wird, und die geordnete Liste skalarer
// Vals, die den Strided-Index bilden (spec.md §3, TensorIndex-Zeile).
package index

import (
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
)

// TensorIndexData is the payload of a KindTensorIndex Val.
type TensorIndexData struct {
	TV      *domain.TensorView
	Indices []*ir.Val
}

// TensorIndex is a handle to a KindTensorIndex Val plus accessors.
type TensorIndex struct {
	Val  *ir.Val
	data *TensorIndexData
}

// NewTensorIndex registers a fresh TensorIndex over tv with the given
// per-axis index expressions (already coalesced per contiguity.go).
func NewTensorIndex(f *ir.Fusion, tv *domain.TensorView, indices []*ir.Val) *TensorIndex {
	data := &TensorIndexData{TV: tv, Indices: indices}
	v := f.NewVal(ir.KindTensorIndex, tv.Val.DType)
	v.Data = data
	return &TensorIndex{Val: v, data: data}
}

func AsTensorIndex(v *ir.Val) *TensorIndex {
	if v == nil || v.Kind != ir.KindTensorIndex {
		return nil
	}
	return &TensorIndex{Val: v, data: v.Data.(*TensorIndexData)}
}

func (ti *TensorIndex) TV() *domain.TensorView { return ti.data.TV }
func (ti *TensorIndex) Indices() []*ir.Val     { return ti.data.Indices }
