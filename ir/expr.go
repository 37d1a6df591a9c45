// expr.go - operation nodes owned by a Fusion
//
// Dieses Modul definiert Expr, den gemeinsamen Operationsknoten fuer
// arithmetische Operationen, Reduktionen, Broadcasts, Typkonvertierungen und
// die Transformationsoperationen Split/Merge. Jede Expr
// traegt geordnete Eingabe-/Ausgabe-Val-Handles und einen Op-Kind-Tag.
package ir

import "github.com/csarofeen/fuser/dtype"

// OpKind discriminates the operation an Expr performs.
type OpKind int

const (
	OpUnary OpKind = iota
	OpBinary
	OpTernary
	OpReduction
	OpBroadcast
	OpCast
	OpFull // materializes a constant-filled tensor (e.g. Arange/Zeros root)

	// Iteration-domain transformations (spec.md §4.2). Split and Merge are
	// registered as ordinary Exprs so their provenance is visible to
	// dependency queries and to backward indexing (spec.md §4.6). Package
	// domain registers no OpReorder or OpRFactor Expr: Reorder records no
	// Expr, and rFactor records its two stages as OpReduction Exprs.
	OpSplit
	OpMerge
	OpReorder
	OpRFactor
)

func (k OpKind) String() string {
	switch k {
	case OpUnary:
		return "UnaryOp"
	case OpBinary:
		return "BinaryOp"
	case OpTernary:
		return "TernaryOp"
	case OpReduction:
		return "ReductionOp"
	case OpBroadcast:
		return "BroadcastOp"
	case OpCast:
		return "CastOp"
	case OpFull:
		return "FullOp"
	case OpSplit:
		return "Split"
	case OpMerge:
		return "Merge"
	case OpReorder:
		return "Reorder"
	case OpRFactor:
		return "rFactor"
	default:
		return "<invalid op>"
	}
}

// UnaryOpType / BinaryOpType / TernaryOpType name the specific operator
// carried by an OpUnary/OpBinary/OpTernary Expr's Attrs.
type UnaryOpType int

const (
	UnaryNeg UnaryOpType = iota
	UnaryExp
	UnarySin
	UnaryCos
	UnaryTanh
	UnarySqrt
	UnaryAbs
	UnaryRelu
	UnarySigmoid
	UnarySet // identity / copy
)

func (u UnaryOpType) String() string {
	return [...]string{"neg", "exp", "sin", "cos", "tanh", "sqrt", "abs", "relu", "sigmoid", "set"}[u]
}

type BinaryOpType int

const (
	BinaryAdd BinaryOpType = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMod
	BinaryMax
	BinaryMin
	BinaryLT
	BinaryGT
	BinaryEQ
)

func (b BinaryOpType) String() string {
	return [...]string{"add", "sub", "mul", "div", "mod", "max", "min", "lt", "gt", "eq"}[b]
}

type TernaryOpType int

const (
	TernaryWhere TernaryOpType = iota // select(cond, a, b)
	TernaryClamp
)

func (t TernaryOpType) String() string {
	return [...]string{"where", "clamp"}[t]
}

// ReductionOpType names the binary accumulation operator of a ReductionOp.
type ReductionOpType int

const (
	ReductionSum ReductionOpType = iota
	ReductionMax
	ReductionMin
	ReductionProd
)

func (r ReductionOpType) String() string {
	return [...]string{"sum", "max", "min", "prod"}[r]
}

// Expr is an operation owned by exactly one Fusion.
type Expr struct {
	fusion *Fusion
	id     int
	name   int

	Op      OpKind
	Inputs  []*Val
	Outputs []*Val

	// Attrs carries op-specific parameters:
	//   OpUnary:     UnaryOpType
	//   OpBinary:    BinaryOpType
	//   OpTernary:   TernaryOpType
	//   OpReduction: *ReductionAttrs
	//   OpBroadcast: *BroadcastAttrs
	//   OpSplit/OpMerge: package domain's own attr types
	Attrs any
}

func (e *Expr) Fusion() *Fusion { return e.fusion }
func (e *Expr) ID() int         { return e.id }
func (e *Expr) Name() int       { return e.name }

// ReductionAttrs is the Attrs payload of an OpReduction Expr.
type ReductionAttrs struct {
	Op ReductionOpType
	// Axes holds the positions, in the input TensorView's current domain,
	// that are being reduced. Recorded for diagnostics; the authoritative
	// reduction axes are the IterDomain.IsReduction flags on the output
	// TensorDomain.
	Axes []int
}

// BroadcastAttrs is the Attrs payload of an OpBroadcast Expr.
type BroadcastAttrs struct {
	// IsBroadcastDim marks, per output axis, whether that axis is a newly
	// introduced broadcast dimension (true) or an aligned input dimension
	// (false). Same role as nvFuser's BroadcastOp broadcast-dim-flags mask
	// (spec.md §4.3 "Broadcast pair").
	IsBroadcastDim []bool
}

// SameAs implements AttrsComparer for ReductionAttrs.
func (r *ReductionAttrs) SameAs(other any) bool {
	o, ok := other.(*ReductionAttrs)
	if !ok || o == nil {
		return false
	}
	if r.Op != o.Op || len(r.Axes) != len(o.Axes) {
		return false
	}
	for i := range r.Axes {
		if r.Axes[i] != o.Axes[i] {
			return false
		}
	}
	return true
}

// SameAs implements AttrsComparer for BroadcastAttrs.
func (b *BroadcastAttrs) SameAs(other any) bool {
	o, ok := other.(*BroadcastAttrs)
	if !ok || o == nil || len(b.IsBroadcastDim) != len(o.IsBroadcastDim) {
		return false
	}
	for i := range b.IsBroadcastDim {
		if b.IsBroadcastDim[i] != o.IsBroadcastDim[i] {
			return false
		}
	}
	return true
}

// NewUnary registers a new OpUnary Expr computing op(in) into a fresh Val
// of the same DType as in.
func (f *Fusion) NewUnary(op UnaryOpType, in *Val) *Val {
	out := f.NewScalar(in.DType)
	f.RegisterExpr(&Expr{Op: OpUnary, Inputs: []*Val{in}, Outputs: []*Val{out}, Attrs: op})
	return out
}

// NewBinary registers a new OpBinary Expr computing lhs op rhs into a fresh
// Val of the promoted DType.
func (f *Fusion) NewBinary(op BinaryOpType, lhs, rhs *Val) *Val {
	dt := lhs.DType
	if rhs != nil {
		dt = dtype.PromoteTypes(lhs.DType, rhs.DType)
	}
	out := f.NewScalar(dt)
	f.RegisterExpr(&Expr{Op: OpBinary, Inputs: []*Val{lhs, rhs}, Outputs: []*Val{out}, Attrs: op})
	return out
}

// NewTernary registers a new OpTernary Expr.
func (f *Fusion) NewTernary(op TernaryOpType, a, b, c *Val) *Val {
	out := f.NewScalar(b.DType)
	f.RegisterExpr(&Expr{Op: OpTernary, Inputs: []*Val{a, b, c}, Outputs: []*Val{out}, Attrs: op})
	return out
}

// NewCast registers a new OpCast Expr converting in to dt.
func (f *Fusion) NewCast(dt dtype.DType, in *Val) *Val {
	out := f.NewScalar(dt)
	f.RegisterExpr(&Expr{Op: OpCast, Inputs: []*Val{in}, Outputs: []*Val{out}})
	return out
}
