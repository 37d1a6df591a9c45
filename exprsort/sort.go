// sort.go - Sort: agglomerative grouping into a loop-nest-compatible order
//
// Dieses Modul implementiert spec.md §4.5: Ausdruecke starten als
// Einzelgruppen, deren Loop-Stack ihr ComputeAt-Praefix ist; benachbarte
// Gruppen mit gleichem innersten Loop werden verschmolzen, sofern dies den
// Gruppen-Graphen azyklisch haelt, bis keine Verschmelzung mehr moeglich
// ist. Bleibt danach eine Gruppe stecken, deren innerster Loop von keinem
// Nachbarn geteilt wird, wird dieser Loop fallengelassen und erneut
// verschmolzen (original_source's zweite mergeDown/mergeUp-Phase ueber
// vermindeter Tiefe). Der finale Durchlauf gibt die Exprs in
// Producer-vor-Consumer-Reihenfolge zurueck
// (original_source's ExprSegmentationSorter::sort).
package exprsort

import (
	"github.com/csarofeen/fuser/computeat"
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
	"github.com/csarofeen/fuser/rootmap"
)

// Sort returns f's Exprs regrouped so that a single linear walk can emit a
// correctly nested loop structure: every Expr still appears exactly once,
// in producer-before-consumer order, but consecutive runs now correspond to
// maximal same-loop-nest groups.
func Sort(f *ir.Fusion, rm *rootmap.RootDomainMap) []*ir.Expr {
	exprs := f.Exprs(true)

	unclassed := map[*domain.IterDomain]int{}
	nextUnclassed := -1
	classIDOf := func(td *domain.TensorDomain, ax *domain.IterDomain) int {
		root := computeat.RootsOf(ax)[0]
		if id, ok := rm.ClassID(td, root); ok {
			return id
		}
		if id, ok := unclassed[root]; ok {
			return id
		}
		id := nextUnclassed
		nextUnclassed--
		unclassed[root] = id
		return id
	}

	loopStackOf := func(e *ir.Expr) []int {
		var out *domain.TensorView
		for _, o := range e.Outputs {
			if tv := domain.AsTensorView(o); tv != nil {
				out = tv
				break
			}
		}
		if out == nil {
			return nil
		}
		prefix := out.ProducedAt()
		axes := out.Domain().Current()
		if prefix > len(axes) {
			prefix = len(axes)
		}
		stack := make([]int, prefix)
		for i := 0; i < prefix; i++ {
			stack[i] = classIDOf(out.Domain(), axes[i])
		}
		return stack
	}

	exprOrder := make(map[*ir.Expr]int, len(exprs))
	groups := make([]*group, len(exprs))
	exprToGroup := make(map[*ir.Expr]*group, len(exprs))
	producerOf := make(map[*ir.Val]*group)
	for i, e := range exprs {
		exprOrder[e] = i
		g := newGroup(e, loopStackOf(e))
		groups[i] = g
		exprToGroup[e] = g
		for _, out := range e.Outputs {
			producerOf[out] = g
		}
	}
	for _, e := range exprs {
		g := exprToGroup[e]
		for _, in := range e.Inputs {
			if pg, ok := producerOf[in]; ok && pg != g {
				pg.succs[g] = true
				g.preds[pg] = true
			}
		}
	}

	for {
		changed := true
		for changed {
			changed = false
			for _, g := range groups {
				if g == nil {
					continue
				}
				// Output-declaration order tie-break (original_source picks
				// based on this when more than one merge direction is legal):
				// try the producer-edge (earlier-declared) direction first.
				if mg, other := tryMerge(g, orderedPreds(g, exprOrder)); mg != nil {
					replace(groups, g, other, mg)
					changed = true
					break
				}
				if mg, other := tryMerge(g, orderedSuccs(g, exprOrder)); mg != nil {
					replace(groups, g, other, mg)
					changed = true
					break
				}
			}
		}

		// Step 4: a pass without merges doesn't mean we're done. A group
		// whose deepest loop no neighbor shares can never merge at that
		// depth; shed it and retry, since a shallower loop may be shared.
		shed := false
		for _, g := range groups {
			if g == nil {
				continue
			}
			if gi, ok := g.innermost(); ok && !sharesInnermost(g, gi) {
				if g.popInnermost() {
					shed = true
				}
			}
		}
		if !shed {
			break
		}
	}

	var result []*ir.Expr
	seen := map[*group]bool{}
	var emit func(g *group)
	emit = func(g *group) {
		if g == nil || seen[g] {
			return
		}
		seen[g] = true
		for _, p := range orderedPreds(g, exprOrder) {
			emit(p)
		}
		result = append(result, g.exprs...)
	}
	for _, g := range groups {
		emit(g)
	}
	return result
}

// sharesInnermost reports whether any of g's neighbors (predecessor or
// successor groups) has loop id as its own innermost loop.
func sharesInnermost(g *group, id int) bool {
	for n := range g.preds {
		if ni, ok := n.innermost(); ok && ni == id {
			return true
		}
	}
	for n := range g.succs {
		if ni, ok := n.innermost(); ok && ni == id {
			return true
		}
	}
	return false
}

func orderedPreds(g *group, order map[*ir.Expr]int) []*group {
	return sortedByDeclOrder(g.preds, order)
}

func orderedSuccs(g *group, order map[*ir.Expr]int) []*group {
	return sortedByDeclOrder(g.succs, order)
}

func sortedByDeclOrder(set map[*group]bool, order map[*ir.Expr]int) []*group {
	out := make([]*group, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	keyOf := func(g *group) int {
		best := len(order)
		for _, e := range g.exprs {
			if o := order[e]; o < best {
				best = o
			}
		}
		return best
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && keyOf(out[j-1]) > keyOf(out[j]); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// tryMerge attempts to merge g with the first candidate in neighbors that is
// mergeable and keeps the group graph acyclic, returning the merged group
// and the neighbor it absorbed, or (nil, nil) if none qualifies.
func tryMerge(g *group, neighbors []*group) (*group, *group) {
	for _, n := range neighbors {
		if !g.mergeableWith(n) {
			continue
		}
		otherIsConsumer := g.succs[n]
		// If merging would otherwise leave a cycle (a path from the
		// consumer side back to the producer side not going through this
		// direct edge), skip it.
		if otherIsConsumer && hasIndirectPath(g, n) {
			continue
		}
		if !otherIsConsumer && hasIndirectPath(n, g) {
			continue
		}
		return merge(g, n, otherIsConsumer), n
	}
	return nil, nil
}

// hasIndirectPath reports whether to is reachable from from by some route
// other than the direct edge between them.
func hasIndirectPath(from, to *group) bool {
	for s := range from.succs {
		if s == to {
			continue
		}
		if s.reaches(to, nil) {
			return true
		}
	}
	return false
}

// replace swaps the two merged groups' slots in groups for the single
// merged replacement, leaving one slot nil so flatten doesn't double-emit.
func replace(groups []*group, a, b, with *group) {
	placed := false
	for i, g := range groups {
		if g == a || g == b {
			if !placed {
				groups[i] = with
				placed = true
			} else {
				groups[i] = nil
			}
		}
	}
}
