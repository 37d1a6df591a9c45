// kernelir.go - the lowered, loop-scoped kernel intermediate representation
//
// Dieses Modul definiert die zweite IR-Ebene aus spec.md §3: waehrend
// Paket ir einen DAG symbolischer Mathematik haelt, ist kernelir eine
// verschachtelte Baumstruktur aus Schleifen- und Verzweigungsscopes, wie
// sie original_source's kernel_ir.h (ForLoop/IfThenElse/Allocate/Expr)
// beschreibt. Gleiches Tagged-Variant-Prinzip wie in Paket ir: ein
// Kind-Tag plus ein kind-spezifisches Feld statt einer Typhierarchie.
package kernelir

import (
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/index"
	"github.com/csarofeen/fuser/ir"
)

// NodeKind discriminates the kinds of node a kernel-IR scope can hold.
type NodeKind int

const (
	NodeForLoop NodeKind = iota
	NodeIfThenElse
	NodeAllocate
	NodeExpr
	NodeSync
)

func (k NodeKind) String() string {
	switch k {
	case NodeForLoop:
		return "ForLoop"
	case NodeIfThenElse:
		return "IfThenElse"
	case NodeAllocate:
		return "Allocate"
	case NodeExpr:
		return "Expr"
	case NodeSync:
		return "Sync"
	default:
		return "<invalid node>"
	}
}

// Node is one statement in a kernel-IR scope body.
type Node struct {
	Kind Kind
}

// Kind is implemented by each concrete node payload; NodeKind() lets a
// visitor dispatch without a type switch over every payload type.
type Kind interface {
	NodeKind() NodeKind
}

// ForLoop binds a loop index variable over one IterDomain's extent and owns
// an ordered body of nested nodes.
type ForLoop struct {
	Index  *ir.Val
	Domain *domain.IterDomain
	Body   []Node
}

func (*ForLoop) NodeKind() NodeKind { return NodeForLoop }

// IfThenElse guards a body (and optional else-body) behind a scalar
// condition — used by the synchronization/bounds-checking passes.
type IfThenElse struct {
	Cond     *ir.Val
	Body     []Node
	ElseBody []Node
}

func (*IfThenElse) NodeKind() NodeKind { return NodeIfThenElse }

// Allocate reserves storage for a TensorView at the scope it appears in.
// Size is the element count; global-memory tensors are not emitted as
// Allocate nodes (their storage comes from the caller).
type Allocate struct {
	TV     *domain.TensorView
	Memory domain.MemoryClass
	Size   *ir.Val
}

func (*Allocate) NodeKind() NodeKind { return NodeAllocate }

// Expr is one lowered math-IR Expr with its operands/results already
// resolved to TensorIndex or scalar Vals.
type Expr struct {
	Op      ir.OpKind
	Attrs   any
	Inputs  []Operand
	Outputs []Operand
}

func (*Expr) NodeKind() NodeKind { return NodeExpr }

// Operand is either a resolved tensor address or a bare scalar Val.
type Operand struct {
	Index  *index.TensorIndex
	Scalar *ir.Val
}

// Sync marks a required barrier before the next statement in this scope
// (populated by package syncinsert).
type Sync struct {
	WAR bool // true: write-after-read hazard; false: read-after-write
}

func (*Sync) NodeKind() NodeKind { return NodeSync }
