// visitor.go - default read-only traversal and structural equality
//
// Dieses Modul stellt einen Visitor fuer Vals/Exprs bereit, der per Kind-Tag
// dispatcht (kein Double-Dispatch ueber Interfaces), sowie eine
// Default-Implementierung fuer strukturelle Gleichheit ("same as modulo
// names"). Der Graph-Shape-Cache-Schluessel (runtime.GraphShape) wird
// unabhaengig davon berechnet.
package ir

// Visitor receives one callback per Val/Expr kind while walking a Fusion.
// Embedding DefaultVisitor and overriding only the methods of interest
// gives every caller "recurse into inputs by default" behavior for free.
type Visitor interface {
	VisitVal(v *Val)
	VisitExpr(e *Expr)
}

// DefaultVisitor implements Visitor by doing nothing; embed it and override
// selectively.
type DefaultVisitor struct{}

func (DefaultVisitor) VisitVal(v *Val)   {}
func (DefaultVisitor) VisitExpr(e *Expr) {}

// Walk visits every Expr reachable from roots (in dependency order) and,
// for each, every input/output Val, calling into visitor.
func Walk(roots []*Val, visitor Visitor) {
	visited := make(map[*Val]bool)
	visitedExpr := make(map[*Expr]bool)
	var visit func(v *Val)
	visit = func(v *Val) {
		if v == nil || visited[v] {
			return
		}
		visited[v] = true
		visitor.VisitVal(v)
		if v.def == nil || visitedExpr[v.def] {
			return
		}
		visitedExpr[v.def] = true
		for _, in := range v.def.Inputs {
			visit(in)
		}
		visitor.VisitExpr(v.def)
	}
	for _, r := range roots {
		visit(r)
	}
}

// SameAs reports whether a and b are structurally equivalent: same kind,
// same dtype, same constant-ness/value, and (if both have a defining Expr)
// recursively same-as defining Exprs with same Op/Attrs. Names are ignored,
// matching "structural equality modulo names" from spec.md §4.1.
func SameAs(a, b *Val) bool {
	return sameAsVisited(a, b, make(map[[2]*Val]bool))
}

func sameAsVisited(a, b *Val, seen map[[2]*Val]bool) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	key := [2]*Val{a, b}
	if seen[key] {
		return true
	}
	seen[key] = true

	if a.Kind != b.Kind || a.DType != b.DType {
		return false
	}
	if a.IsConst != b.IsConst {
		return false
	}
	if a.IsConst && a.ConstValue != b.ConstValue {
		return false
	}
	if a.Kind == KindNamedScalar && a.NamedScalarName != b.NamedScalarName {
		return false
	}

	if (a.def == nil) != (b.def == nil) {
		return false
	}
	if a.def == nil {
		return true
	}
	return exprSameAs(a.def, b.def, seen)
}

func exprSameAs(a, b *Expr, seen map[[2]*Val]bool) bool {
	if a.Op != b.Op {
		return false
	}
	if len(a.Inputs) != len(b.Inputs) || len(a.Outputs) != len(b.Outputs) {
		return false
	}
	for i := range a.Inputs {
		if !sameAsVisited(a.Inputs[i], b.Inputs[i], seen) {
			return false
		}
	}
	return attrsSameAs(a.Attrs, b.Attrs)
}

// attrsSameAs compares comparable Attrs payloads (the enum-typed ones) by
// value; pointer-typed Attrs (ReductionAttrs, BroadcastAttrs, and package
// domain's transform attrs) are compared through their AttrsComparer
// implementation, or by identity when they have none. Two nil Attrs are
// equal; two differently-typed non-nil Attrs are never equal.
func attrsSameAs(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch av := a.(type) {
	case UnaryOpType:
		bv, ok := b.(UnaryOpType)
		return ok && av == bv
	case BinaryOpType:
		bv, ok := b.(BinaryOpType)
		return ok && av == bv
	case TernaryOpType:
		bv, ok := b.(TernaryOpType)
		return ok && av == bv
	default:
		// Pointer-typed Attrs: defer to AttrsComparer if the concrete type
		// implements it (domain's SplitAttrs/MergeAttrs and
		// ReductionAttrs/BroadcastAttrs do), else require identity.
		if ac, ok := a.(AttrsComparer); ok {
			return ac.SameAs(b)
		}
		return a == b
	}
}

// AttrsComparer lets an Expr's Attrs payload define its own structural
// equality, used by attrsSameAs for kinds this package doesn't know about.
type AttrsComparer interface {
	SameAs(other any) bool
}
