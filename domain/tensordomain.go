// tensordomain.go - an ordered tuple of IterDomains with a remembered root
//
// Dieses Modul definiert TensorDomain: die aktuelle Achsenreihenfolge, die
// unveraenderliche Root-Domain (invariant 2) und die optionale
// rFactor-Domain, zusammen mit den Kontiguitaets-Flags der Root-Achsen
// (invariant 7). Mutationen laufen ausschliesslich ueber Split/Merge/
// Reorder/rFactor in diesem Paket (Design-Note: TensorDomainBuilder-Fassade).
package domain

import "github.com/csarofeen/fuser/ir"

// TensorDomainData is the payload of a KindTensorDomain Val.
type TensorDomainData struct {
	val *ir.Val

	Root    []*IterDomain
	Current []*IterDomain
	RFactor []*IterDomain // nil unless this domain follows an rFactor split

	// Contiguity holds one flag per Root axis (invariant 7).
	Contiguity []bool
}

// TensorDomain is a handle to a KindTensorDomain Val plus accessors.
type TensorDomain struct {
	Val  *ir.Val
	data *TensorDomainData
}

// NewTensorDomain registers a fresh TensorDomain whose root and current
// tuples both equal axes (a freshly constructed tensor, not yet
// transformed). contiguity must have one entry per axis, or be nil (all
// axes treated as non-contiguous).
func NewTensorDomain(f *ir.Fusion, axes []*IterDomain, contiguity []bool) *TensorDomain {
	root := append([]*IterDomain(nil), axes...)
	current := append([]*IterDomain(nil), axes...)
	if contiguity == nil {
		contiguity = make([]bool, len(axes))
	}
	data := &TensorDomainData{Root: root, Current: current, Contiguity: contiguity}
	v := f.NewVal(ir.KindTensorDomain, axes[0].Val.DType)
	data.val = v
	v.Data = data
	td := &TensorDomain{Val: v, data: data}
	for _, ax := range axes {
		ax.SetOwner(td)
	}
	return td
}

func AsTensorDomain(v *ir.Val) *TensorDomain {
	if v == nil || v.Kind != ir.KindTensorDomain {
		return nil
	}
	return &TensorDomain{Val: v, data: v.Data.(*TensorDomainData)}
}

func (td *TensorDomain) Root() []*IterDomain    { return td.data.Root }
func (td *TensorDomain) Current() []*IterDomain { return td.data.Current }
func (td *TensorDomain) RFactor() []*IterDomain { return td.data.RFactor }
func (td *TensorDomain) Contiguity() []bool     { return td.data.Contiguity }
func (td *TensorDomain) NDims() int             { return len(td.data.Current) }

// MaybeRFactorDomain returns the rFactor domain if present, else the root
// domain — the domain a downstream consumer's root-domain-map should align
// against (spec.md §4.3, `original_source` PairwiseRootDomainMap uses
// "maybe rfactor domain" for the producer side).
func (td *TensorDomain) MaybeRFactorDomain() []*IterDomain {
	if td.data.RFactor != nil {
		return td.data.RFactor
	}
	return td.data.Root
}

// HasReduction reports whether any current axis is a reduction axis.
func (td *TensorDomain) HasReduction() bool {
	for _, ax := range td.data.Current {
		if ax.IsReduction() {
			return true
		}
	}
	return false
}

// AxisPos returns the position of ax within Current, or -1.
func (td *TensorDomain) AxisPos(ax *IterDomain) int {
	for i, a := range td.data.Current {
		if a == ax {
			return i
		}
	}
	return -1
}

// setCurrent replaces the current tuple in place; only this package's
// transformation functions (Split/Merge/Reorder/rFactor) call this, so the
// root-preserved / rfactor-monotonic invariants are enforced at those
// method boundaries rather than by convention (design note:
// TensorDomainBuilder facade).
func (td *TensorDomain) setCurrent(axes []*IterDomain) {
	td.data.Current = axes
	for _, ax := range axes {
		ax.SetOwner(td)
	}
}
