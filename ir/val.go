// val.go - typed handles owned by a Fusion
//
// Dieses Modul definiert Val, den gemeinsamen Knotentyp fuer Skalare,
// Tensor-Handles, Iterationsdomaenen und verwandte Werte. Jeder Val traegt
// einen Kind-Tag (Tagged-Variant statt Klassenhierarchie, siehe DESIGN.md)
// und optional ein kind-spezifisches Payload, das von den Paketen domain,
// kernelir usw. befuellt wird.
package ir

import "github.com/csarofeen/fuser/dtype"

// ValKind discriminates the kinds of Val a Fusion can own. Dispatch over
// Vals is by this tag rather than by dynamic type assertion chains.
type ValKind int

const (
	KindScalar ValKind = iota
	KindNamedScalar
	KindIterDomain
	KindTensorDomain
	KindTensorView
	KindTensorIndex
)

func (k ValKind) String() string {
	switch k {
	case KindScalar:
		return "Scalar"
	case KindNamedScalar:
		return "NamedScalar"
	case KindIterDomain:
		return "IterDomain"
	case KindTensorDomain:
		return "TensorDomain"
	case KindTensorView:
		return "TensorView"
	case KindTensorIndex:
		return "TensorIndex"
	default:
		return "<invalid kind>"
	}
}

// Val is a typed handle owned by exactly one Fusion. Identity is the
// pointer itself; Vals are never copied by value once registered.
type Val struct {
	fusion *Fusion
	id     int
	name   int
	def    *Expr

	Kind  ValKind
	DType dtype.DType

	// IsConst and ConstValue hold the scalar constant this Val represents,
	// if any (a KindScalar Val with no defining Expr can still be a
	// compile-time constant, e.g. a literal 2 in "tv + 2").
	IsConst    bool
	ConstValue float64

	// NamedScalarName holds the identifier text for a KindNamedScalar Val
	// (e.g. "threadIdx.x", "blockDim.y").
	NamedScalarName string

	// Data holds the kind-specific payload: *domain.IterDomainData,
	// *domain.TensorDomainData, *domain.TensorViewData, or
	// *index.TensorIndexData. Packages that own a ValKind are the only
	// ones that type-assert this field.
	Data any
}

func (v *Val) Fusion() *Fusion { return v.fusion }
func (v *Val) ID() int         { return v.id }
func (v *Val) Name() int       { return v.name }
func (v *Val) Def() *Expr      { return v.def }

// NewScalar registers a new scalar Val of the given type.
func (f *Fusion) NewScalar(dt dtype.DType) *Val {
	return f.registerVal(&Val{Kind: KindScalar, DType: dt})
}

// NewConstScalar registers a new compile-time-constant scalar Val.
func (f *Fusion) NewConstScalar(dt dtype.DType, value float64) *Val {
	return f.registerVal(&Val{Kind: KindScalar, DType: dt, IsConst: true, ConstValue: value})
}

// NewNamedScalar registers a new named scalar Val (a kernel-level symbol
// such as a thread/block index, not a Fusion input).
func (f *Fusion) NewNamedScalar(name string, dt dtype.DType) *Val {
	return f.registerVal(&Val{Kind: KindNamedScalar, DType: dt, NamedScalarName: name})
}

// NewVal registers a new Val of an arbitrary kind with no payload set yet;
// callers in other packages (domain, index) fill in v.Data immediately
// after this returns and before the Val is used by anyone else.
func (f *Fusion) NewVal(kind ValKind, dt dtype.DType) *Val {
	return f.registerVal(&Val{Kind: kind, DType: dt})
}
