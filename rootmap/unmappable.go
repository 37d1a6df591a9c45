// unmappable.go - flag reduction axes that leak into an incompatible consumer
//
// Dieses Modul portiert UnmappableReductionDomains aus
// original_source/.../root_domain_map.cpp: fuer jede ReductionOp wird die
// Menge aller Root-Achsen gesammelt, die von ihrem Output aus erreichbar
// sind; erscheint eine reduzierte Achse dort erneut als nicht-reduzierte
// Konsumenten-Achse (z.B. weil ein spaeterer Broadcast sie wieder
// "auffuellt"), ist eine gemeinsame ComputeAt-Schleife ueber beide
// Tensoren nicht konstruierbar.
package rootmap

import (
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
)

// UnmappableReductionDomains records, for each reduction axis in a Fusion,
// the set of downstream root axes it must never be mapped against.
type UnmappableReductionDomains struct {
	incompatible map[DomainKey][]DomainKey
}

// BuildUnmappableReductionDomains walks f's TensorView-producing Exprs and
// collects, for every ReductionOp, the root axes of every TensorView
// downstream of its output (the output's own axes are not included).
func BuildUnmappableReductionDomains(f *ir.Fusion) *UnmappableReductionDomains {
	u := &UnmappableReductionDomains{incompatible: make(map[DomainKey][]DomainKey)}

	uses := make(map[*ir.Val][]*ir.Expr)
	for _, e := range f.Exprs(true) {
		for _, in := range e.Inputs {
			uses[in] = append(uses[in], e)
		}
	}

	for _, e := range f.Exprs(true) {
		if e.Op != ir.OpReduction {
			continue
		}
		out := domain.AsTensorView(e.Outputs[0])
		if out == nil {
			continue
		}
		var reductionKeys []DomainKey
		for _, ax := range out.Domain().MaybeRFactorDomain() {
			if ax.IsReduction() {
				reductionKeys = append(reductionKeys, NewDomainKey(out.Domain(), ax))
			}
		}
		if len(reductionKeys) == 0 {
			continue
		}

		var consumerKeys []DomainKey
		visited := make(map[*ir.Val]bool)
		var walk func(v *ir.Val)
		walk = func(v *ir.Val) {
			if visited[v] {
				return
			}
			visited[v] = true
			if tv := domain.AsTensorView(v); tv != nil {
				for _, ax := range tv.Domain().Root() {
					consumerKeys = append(consumerKeys, NewDomainKey(tv.Domain(), ax))
				}
			}
			for _, use := range uses[v] {
				for _, o := range use.Outputs {
					walk(o)
				}
			}
		}
		visited[e.Outputs[0]] = true
		for _, use := range uses[e.Outputs[0]] {
			for _, o := range use.Outputs {
				walk(o)
			}
		}

		for _, rk := range reductionKeys {
			u.incompatible[rk] = append(u.incompatible[rk], consumerKeys...)
		}
	}
	return u
}

// wouldMapReduction reports whether merging membersA and membersB into one
// class would place a reduction output axis in the same class as a
// consumer axis it is marked incompatible with. Unlike
// IsReductionOutputMapped (which consults the already-committed
// equivalence classes through m), this checks the proposed union itself,
// before it is committed.
func (u *UnmappableReductionDomains) wouldMapReduction(membersA, membersB []DomainKey) bool {
	combined := make([]DomainKey, 0, len(membersA)+len(membersB))
	combined = append(combined, membersA...)
	combined = append(combined, membersB...)

	for reductionKey, incompatible := range u.incompatible {
		mapsReduction := false
		for _, k := range combined {
			if k.Equal(reductionKey) {
				mapsReduction = true
				break
			}
		}
		if !mapsReduction {
			continue
		}
		for _, k := range combined {
			for _, bad := range incompatible {
				if k.Equal(bad) {
					return true
				}
			}
		}
	}
	return false
}

// IsReductionOutputMapped reports whether any key in consumerDomains matches
// (via m's equivalence classes) a root axis known to be downstream of an
// incompatible reduction.
func (u *UnmappableReductionDomains) IsReductionOutputMapped(consumerDomains []DomainKey, m *RootDomainMap) bool {
	for reductionKey, incompatible := range u.incompatible {
		found := false
		for _, cd := range consumerDomains {
			if m.CanMap(cd.TD, cd.ID, reductionKey.TD, reductionKey.ID) {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		for _, cd := range consumerDomains {
			for _, bad := range incompatible {
				if m.CanMap(cd.TD, cd.ID, bad.TD, bad.ID) {
					return true
				}
			}
		}
	}
	return false
}
