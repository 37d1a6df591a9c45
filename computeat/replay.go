// replay.go - trace a current-domain axis back to the root axes it derives from
//
// Dieses Modul ersetzt original_source's vollen TransformReplay-Mechanismus
// (replay.cpp) durch eine schlankere, fuer die ComputeAt-Legalitaetspruefung
// hinreichende Variante: statt die Transformationshistorie des Konsumenten
// tatsaechlich auf den Produzenten anzuwenden, werden beide Achsen bis zu
// ihren Root-Achsen zurueckverfolgt und diese Mengen ueber die Root-Domain-
// Map verglichen (spec.md §4.4 Schritt 2).
package computeat

import "github.com/csarofeen/fuser/domain"

// RootsOf walks ax backward through its defining Split/Merge expression (if
// any) and returns the root IterDomains it was derived from, in the order a
// depth-first left-to-right walk encounters them. An axis with no defining
// expression is its own root.
func RootsOf(ax *domain.IterDomain) []*domain.IterDomain {
	def := ax.Val.Def()
	if def == nil {
		return []*domain.IterDomain{ax}
	}
	var roots []*domain.IterDomain
	for _, in := range def.Inputs {
		parent := domain.AsIterDomain(in)
		if parent == nil {
			continue
		}
		roots = append(roots, RootsOf(parent)...)
	}
	if roots == nil {
		return []*domain.IterDomain{ax}
	}
	return roots
}
