// reorder.go - Reorder(map) permutes the current domain
//
// Dieses Modul implementiert Reorder aus spec.md §4.2: die Root-Domain
// bleibt unberuehrt, nur die aktuelle Achsenreihenfolge wird permutiert.
// Anders als Split/Merge erzeugt Reorder keine neuen IterDomains, daher
// wird keine Expr im Fusion-DAG registriert — das Backward-Indexing liest
// die aktuelle Permutation direkt aus der TensorDomain.
package domain

import "github.com/csarofeen/fuser/ir"

// Reorder permutes td's current tuple according to newToOldPos, where
// newToOldPos[i] is the current-domain position that should end up at
// position i. It is an error if newToOldPos is not a permutation of
// [0, NDims).
func Reorder(td *TensorDomain, newToOldPos []int) error {
	n := td.NDims()
	if len(newToOldPos) != n {
		return &ir.InvalidTransformError{Op: "Reorder", Reason: "permutation length mismatch"}
	}
	seen := make([]bool, n)
	for _, p := range newToOldPos {
		if p < 0 || p >= n || seen[p] {
			return &ir.InvalidTransformError{Op: "Reorder", Reason: "not a valid permutation"}
		}
		seen[p] = true
	}

	reordered := make([]*IterDomain, n)
	for i, old := range newToOldPos {
		reordered[i] = td.data.Current[old]
	}
	td.setCurrent(reordered)
	return nil
}
