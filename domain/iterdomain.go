// iterdomain.go - a half-open iteration range
//
// Dieses Modul definiert IterDomain: Start/Extent, Parallel-Tag und die
// Flags reduction/broadcast/rfactor/broadcast-with-stride aus spec.md §3.
package domain

import "github.com/csarofeen/fuser/ir"

// IterDomainData is the payload stored in a KindIterDomain Val's Data
// field. Exported so the ir package's Copy can round-trip it through
// dataCloner without domain needing to reach back into ir's internals.
type IterDomainData struct {
	val *ir.Val

	Start  *ir.Val
	Extent *ir.Val

	Parallel ParallelType

	IsReduction        bool
	IsBroadcast        bool
	BroadcastHasStride bool // "broadcast with stride": concretized, still carries a real stride
	IsRFactorProduct   bool

	// concreteSize, if set, is the IterDomain this broadcast axis has been
	// concretized against (rootmap fills this in once known).
	concreteSize *IterDomain

	// owner is the TensorDomain this axis currently belongs to (its root,
	// current, or rfactor tuple). Set by TensorDomain construction/splice;
	// lets callers outside this package (rootmap, lower) recover the
	// (TensorDomain, IterDomain) pair a bare *IterDomain came from.
	owner *TensorDomain
}

// IterDomain is a handle to a KindIterDomain Val plus convenience
// accessors over its payload.
type IterDomain struct {
	Val  *ir.Val
	data *IterDomainData
}

// NewIterDomain registers a fresh IterDomain [start, start+extent) in f.
func NewIterDomain(f *ir.Fusion, start, extent *ir.Val, opts ...IterDomainOption) *IterDomain {
	data := &IterDomainData{Start: start, Extent: extent}
	for _, o := range opts {
		o(data)
	}
	v := f.NewVal(ir.KindIterDomain, extent.DType)
	data.val = v
	v.Data = data
	return &IterDomain{Val: v, data: data}
}

// IterDomainOption configures a new IterDomain at construction time.
type IterDomainOption func(*IterDomainData)

func Reduction() IterDomainOption {
	return func(d *IterDomainData) { d.IsReduction = true }
}

func Broadcast() IterDomainOption {
	return func(d *IterDomainData) { d.IsBroadcast = true }
}

func BroadcastWithStride() IterDomainOption {
	return func(d *IterDomainData) { d.IsBroadcast, d.BroadcastHasStride = true, true }
}

// AsIterDomain recovers the IterDomain wrapper for a Val previously
// returned by NewIterDomain (or produced by Split/Merge/rFactor).
func AsIterDomain(v *ir.Val) *IterDomain {
	if v == nil || v.Kind != ir.KindIterDomain {
		return nil
	}
	return &IterDomain{Val: v, data: v.Data.(*IterDomainData)}
}

func (id *IterDomain) Start() *ir.Val            { return id.data.Start }
func (id *IterDomain) Extent() *ir.Val           { return id.data.Extent }
func (id *IterDomain) Parallel() ParallelType    { return id.data.Parallel }
func (id *IterDomain) IsReduction() bool         { return id.data.IsReduction }
func (id *IterDomain) IsBroadcast() bool         { return id.data.IsBroadcast }
func (id *IterDomain) BroadcastHasStride() bool  { return id.data.BroadcastHasStride }
func (id *IterDomain) IsRFactorProduct() bool    { return id.data.IsRFactorProduct }
func (id *IterDomain) ConcreteSize() *IterDomain { return id.data.concreteSize }

// Owner returns the TensorDomain this axis currently belongs to, or nil if
// it has not been placed into one yet (e.g. a bare axis freshly built by
// NewIterDomain before being passed to NewTensorDomain).
func (id *IterDomain) Owner() *TensorDomain { return id.data.owner }

// SetOwner records which TensorDomain currently holds this axis; called by
// TensorDomain construction and by Split/Merge/Reorder/rFactor/Broadcast
// whenever they place an axis into a root/current/rfactor tuple.
func (id *IterDomain) SetOwner(td *TensorDomain) { id.data.owner = td }

// SetParallel mutates the parallel-mapping tag in place (used by the
// reduction scheduler once it decides a tiling, and by Reorder-adjacent
// parallelize calls).
func (id *IterDomain) SetParallel(p ParallelType) { id.data.Parallel = p }

// SetConcreteSize records the concrete IterDomain this broadcast axis
// concretizes against (rootmap invariant 4).
func (id *IterDomain) SetConcreteSize(concrete *IterDomain) { id.data.concreteSize = concrete }

// SameKind reports whether id and other can legally participate in the
// same Merge/Split (spec.md §4.2: "Legal only when both are non-reduction
// or both reduction").
func (id *IterDomain) SameKind(other *IterDomain) bool {
	return id.IsReduction() == other.IsReduction()
}
