// concretize.go - resolve broadcast axes against the real size they stand in for
//
// Dieses Modul fuehrt die Broadcast-Konkretisierung durch (spec.md §4.3,
// Invariante 4): trifft eine Broadcast-Achse in einer elementweisen
// Operation auf eine nicht-Broadcast-Achse derselben Position, wird sie
// gegen diese konkretisiert (IterDomain.SetConcreteSize) und beide Achsen
// werden in derselben Aequivalenzklasse vereinigt, damit spaetere
// canMap-Abfragen sie als dieselbe iterierte Groesse behandeln.
package rootmap

import (
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
)

// Concretize scans every elementwise (Binary/Ternary) Expr over TensorView
// operands and concretizes any operand axis that is a plain (non-strided)
// broadcast against a co-positioned non-broadcast axis of a sibling
// operand. Call after Build so concretized pairs also land in the same
// equivalence class.
func (m *RootDomainMap) Concretize(f *ir.Fusion) {
	for _, e := range f.Exprs(true) {
		if e.Op != ir.OpBinary && e.Op != ir.OpTernary {
			continue
		}
		operands := make([]*domain.TensorView, 0, len(e.Inputs))
		for _, in := range e.Inputs {
			if tv := domain.AsTensorView(in); tv != nil {
				operands = append(operands, tv)
			}
		}
		if len(operands) < 2 {
			continue
		}
		m.concretizePositional(operands)
	}
}

func (m *RootDomainMap) concretizePositional(operands []*domain.TensorView) {
	n := operands[0].NDims()
	for _, tv := range operands[1:] {
		if tv.NDims() != n {
			return
		}
	}
	for pos := 0; pos < n; pos++ {
		var concrete *domain.IterDomain
		var concreteTD *domain.TensorDomain
		for _, tv := range operands {
			ax := tv.Domain().Current()[pos]
			if !ax.IsBroadcast() {
				concrete = ax
				concreteTD = tv.Domain()
				break
			}
		}
		if concrete == nil {
			continue
		}
		for _, tv := range operands {
			ax := tv.Domain().Current()[pos]
			if ax.IsBroadcast() && !ax.BroadcastHasStride() && ax.ConcreteSize() == nil {
				ax.SetConcreteSize(concrete)
				m.union(NewDomainKey(tv.Domain(), ax), NewDomainKey(concreteTD, concrete))
			}
		}
	}
}
