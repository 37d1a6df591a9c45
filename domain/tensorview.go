// tensorview.go - a tensor surface backed by a TensorDomain
//
// Dieses Modul definiert TensorView (Val-Kind KindTensorView): die
// TensorDomain, der Skalar-Elementtyp, die Speicherklasse und optionale
// ComputeAt-Ziele. TensorViews in derselben Fusion bilden ueber ComputeAt
// gerichtete Kanten (Paket computeat).
package domain

import (
	"github.com/csarofeen/fuser/dtype"
	"github.com/csarofeen/fuser/ir"
)

// MemoryClass tags where a TensorView's storage lives.
type MemoryClass int

const (
	MemoryGlobal MemoryClass = iota
	MemoryShared
	MemoryLocal
)

func (m MemoryClass) String() string {
	switch m {
	case MemoryGlobal:
		return "global"
	case MemoryShared:
		return "shared"
	case MemoryLocal:
		return "local"
	default:
		return "<invalid memory class>"
	}
}

// TensorViewData is the payload of a KindTensorView Val.
type TensorViewData struct {
	val *ir.Val

	Domain *TensorDomain
	Memory MemoryClass

	// ComputeAtTarget/ComputeAtPos record the directional computeAt link
	// from this producer onto a consumer (package computeat owns writing
	// these; this package only stores them).
	ComputeAtTarget *TensorView
	ComputeAtPos    int

	// producedAt is the deepest loop prefix this tensor's computation has
	// been bound into some consumer's loop nest (may exceed ComputeAtPos
	// when multiple consumers pull this producer to different depths;
	// see TensorView.ProducedAt and computeat.At).
	producedAt int
}

// TensorView is a handle to a KindTensorView Val plus accessors.
type TensorView struct {
	Val  *ir.Val
	data *TensorViewData
}

// NewTensorView registers a fresh TensorView over axes with the given
// element type, defaulting to global memory (the memory class of a Fusion
// input/output or an intermediate before scheduling assigns scratch
// storage).
func NewTensorView(f *ir.Fusion, dt dtype.DType, axes []*IterDomain, contiguity []bool) *TensorView {
	td := NewTensorDomain(f, axes, contiguity)
	data := &TensorViewData{Domain: td, Memory: MemoryGlobal}
	v := f.NewVal(ir.KindTensorView, dt)
	data.val = v
	v.Data = data
	return &TensorView{Val: v, data: data}
}

func AsTensorView(v *ir.Val) *TensorView {
	if v == nil || v.Kind != ir.KindTensorView {
		return nil
	}
	return &TensorView{Val: v, data: v.Data.(*TensorViewData)}
}

func (tv *TensorView) Domain() *TensorDomain   { return tv.data.Domain }
func (tv *TensorView) Memory() MemoryClass     { return tv.data.Memory }
func (tv *TensorView) SetMemory(m MemoryClass) { tv.data.Memory = m }
func (tv *TensorView) NDims() int              { return tv.data.Domain.NDims() }
func (tv *TensorView) ComputeAtTarget() (*TensorView, int) {
	return tv.data.ComputeAtTarget, tv.data.ComputeAtPos
}
func (tv *TensorView) ProducedAt() int { return tv.data.producedAt }

// setComputeAt and setProducedAt are called only from package computeat,
// which is the sole owner of this relation's invariants (monotonicity,
// legality); exported via the Internal accessor below so computeat doesn't
// need an import cycle-breaking back door.
func (tv *TensorView) setComputeAt(target *TensorView, pos int) {
	tv.data.ComputeAtTarget = target
	tv.data.ComputeAtPos = pos
}

func (tv *TensorView) setProducedAt(pos int) {
	if pos > tv.data.producedAt {
		tv.data.producedAt = pos
	}
}

// Internal exposes the mutators package computeat needs. Kept on a
// separate accessor type (rather than exporting setComputeAt directly) so
// arithmetic/codegen callers can't casually rewrite the relation.
type Internal struct{ tv *TensorView }

func (tv *TensorView) Internal() Internal { return Internal{tv} }

func (a Internal) SetComputeAt(target *TensorView, pos int) { a.tv.setComputeAt(target, pos) }
func (a Internal) SetProducedAt(pos int)                    { a.tv.setProducedAt(pos) }
