// group.go - ExprGroup: a cluster of expressions sharing a loop-nest prefix
//
// Dieses Modul entspricht original_source's ExprGroup/ExprGrouper aus
// lower_expr_sort.cpp: Ausdruecke werden zu Gruppen zusammengefasst, wenn
// sie denselben innersten ComputeAt-Loop teilen, unter Erhaltung der
// DAG-Eigenschaft des Gruppen-Graphen (Theorem 4.2 der dort zitierten
// Multilevel-DAG-Partitionierungsarbeit). Kanten werden, wie im Original,
// explizit als Producer/Consumer-Mengen gefuehrt statt am Fusion-Graphen
// selbst neu berechnet zu werden.
package exprsort

import "github.com/csarofeen/fuser/ir"

// group is one cluster of Exprs considered for emission as a single,
// uninterrupted run inside whatever loop nest its loopStack describes.
type group struct {
	exprs     []*ir.Expr
	loopStack []int // innermost loop's root equivalence-class ids, outer to inner

	preds map[*group]bool
	succs map[*group]bool
}

func newGroup(e *ir.Expr, loopStack []int) *group {
	return &group{exprs: []*ir.Expr{e}, loopStack: loopStack, preds: map[*group]bool{}, succs: map[*group]bool{}}
}

// innermost returns the group's innermost loop id and whether it has one at
// all (a group with an empty stack, e.g. pure index arithmetic with no
// bound TensorView output, has none).
func (g *group) innermost() (int, bool) {
	if len(g.loopStack) == 0 {
		return 0, false
	}
	return g.loopStack[len(g.loopStack)-1], true
}

// mergeableWith reports whether g and other agree on their innermost loop,
// the sole structural condition spec.md §4.5 step 2 names.
func (g *group) mergeableWith(other *group) bool {
	gi, gok := g.innermost()
	oi, ook := other.innermost()
	if gok != ook {
		return false
	}
	if !gok {
		return true
	}
	return gi == oi
}

// popInnermost drops g's deepest loop, for step 4 of the sort: a group
// stuck at its current depth because no neighbor shares its innermost loop
// can shed that loop to become mergeable at the next shallower depth. It is
// a no-op (returns false) on a group with no loop stack left to shed.
func (g *group) popInnermost() bool {
	if len(g.loopStack) == 0 {
		return false
	}
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
	return true
}

// reaches reports whether to is reachable from g by following succs,
// without crossing through the `skip` node (used to probe whether merging g
// and skip along their direct edge would otherwise have created a cycle).
func (g *group) reaches(to, skip *group) bool {
	visited := map[*group]bool{g: true}
	queue := []*group{g}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			return true
		}
		for s := range cur.succs {
			if s == skip || visited[s] {
				continue
			}
			visited[s] = true
			queue = append(queue, s)
		}
	}
	return false
}

// merge folds other into g: exprs concatenate in dependency order (g's
// exprs first if g produces into other, else other's first), edges to
// outside neighbors are re-pointed at g, and the direct g<->other edge is
// dropped.
func merge(g, other *group, otherIsConsumer bool) *group {
	var exprs []*ir.Expr
	if otherIsConsumer {
		exprs = append(append([]*ir.Expr(nil), g.exprs...), other.exprs...)
	} else {
		exprs = append(append([]*ir.Expr(nil), other.exprs...), g.exprs...)
	}

	merged := &group{exprs: exprs, loopStack: g.loopStack, preds: map[*group]bool{}, succs: map[*group]bool{}}

	for p := range g.preds {
		if p != other {
			merged.preds[p] = true
		}
	}
	for p := range other.preds {
		if p != g {
			merged.preds[p] = true
		}
	}
	for s := range g.succs {
		if s != other {
			merged.succs[s] = true
		}
	}
	for s := range other.succs {
		if s != g {
			merged.succs[s] = true
		}
	}

	for p := range merged.preds {
		delete(p.succs, g)
		delete(p.succs, other)
		p.succs[merged] = true
	}
	for s := range merged.succs {
		delete(s.preds, g)
		delete(s.preds, other)
		s.preds[merged] = true
	}
	return merged
}
