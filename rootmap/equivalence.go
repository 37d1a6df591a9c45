// equivalence.go - transitive root-axis equivalence classes over a Fusion
//
// Dieses Modul entspricht original_source's ComputeAtRootDomainMap: statt
// nur direkte Produzent/Konsument-Paare (pairwise.go) zu betrachten, werden
// alle PairwiseMap-Kanten im Fusion-Graph zu einem Union-Find verschmolzen,
// sodass canMap auch ueber mehrere Zwischen-Tensoren hinweg transitive
// Aequivalenz erkennt (z.B. eine Broadcast-Achse, die durch zwei
// nacheinander angewendete Operationen bis zu einer Reduktion durchgereicht
// wird). Klassenmitgliedschaft wird mit gods/v2's linkedhashmap/
// linkedhashset gehalten, damit Iteration ueber eine Klasse deterministisch
// in Einfuegereihenfolge erfolgt statt in Go-Map-Zufallsreihenfolge.
package rootmap

import (
	"fmt"

	"github.com/emirpasic/gods/v2/maps/linkedhashmap"
	"github.com/emirpasic/gods/v2/sets/linkedhashset"

	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
)

// RootDomainMap holds the transitive equivalence classes of root/rfactor
// IterDomains across an entire Fusion.
type RootDomainMap struct {
	classOf   *linkedhashmap.Map[DomainKey, int]
	classes   *linkedhashmap.Map[int, *linkedhashset.Set[DomainKey]]
	nextClass int

	// unmappable records which reduction axes must never join a class with
	// a downstream non-reduction consumer axis (root_domain_map.cpp's
	// UnmappableReductionDomains). Build populates it before committing any
	// unions so safeToMap has it available from the first pair onward.
	unmappable *UnmappableReductionDomains

	// aliases lets a caller register that two TensorDomains' root axes,
	// though built from distinct IterDomain Vals, should be treated as
	// positionally equivalent (spec.md §4.3's "set up an alias when a
	// transformation rebuilds a domain instead of reusing its axes").
	aliases map[*domain.TensorDomain]*domain.TensorDomain
}

// NewRootDomainMap returns an empty equivalence map.
func NewRootDomainMap() *RootDomainMap {
	return &RootDomainMap{
		classOf: linkedhashmap.New[DomainKey, int](),
		classes: linkedhashmap.New[int, *linkedhashset.Set[DomainKey]](),
		aliases: make(map[*domain.TensorDomain]*domain.TensorDomain),
	}
}

// Build walks every TensorView-producing Expr in f and unions the
// producer/consumer root axis pairs PairwiseMap reports. Call this once
// after a Fusion's math and transformations are fully recorded but before
// scheduling needs canMap answers.
//
// Before each union is committed, safeToMap (root_domain_map.cpp's
// safeToMap) rejects it: (a) if it would collide two distinct axes of the
// same TensorDomain into one class, or (b) if it would map a reduction
// output axis to an unrelated consumer axis, which would make the
// reduction unrecoverable from a shared loop nest. Either violation is
// reported as *ir.UnmappableReductionError.
func (m *RootDomainMap) Build(f *ir.Fusion) error {
	m.unmappable = BuildUnmappableReductionDomains(f)
	for _, e := range f.Exprs(true) {
		for _, outVal := range e.Outputs {
			consumer := domain.AsTensorView(outVal)
			if consumer == nil {
				continue
			}
			for _, inVal := range e.Inputs {
				producer := domain.AsTensorView(inVal)
				if producer == nil {
					continue
				}
				pairs, err := PairwiseMap(producer, consumer)
				if err != nil {
					continue
				}
				for pid, cid := range pairs {
					if err := m.union(NewDomainKey(producer.Domain(), pid), NewDomainKey(consumer.Domain(), cid)); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (m *RootDomainMap) ensureClass(k DomainKey) int {
	if c, ok := m.classOf.Get(k); ok {
		return c
	}
	c := m.nextClass
	m.nextClass++
	m.classOf.Put(k, c)
	members := linkedhashset.New[DomainKey]()
	members.Add(k)
	m.classes.Put(c, members)
	return c
}

// union commits a and b to the same equivalence class, first checking
// safeToMap so a reduction axis can never end up in the same class as an
// axis it must not be mapped against.
func (m *RootDomainMap) union(a, b DomainKey) error {
	if err := m.safeToMap(a, b); err != nil {
		return err
	}
	ca := m.ensureClass(a)
	cb := m.ensureClass(b)
	if ca == cb {
		return nil
	}
	membersB, _ := m.classes.Get(cb)
	membersA, _ := m.classes.Get(ca)
	for _, k := range membersB.Values() {
		membersA.Add(k)
		m.classOf.Put(k, ca)
	}
	m.classes.Remove(cb)
	return nil
}

// membersOf returns every key already committed to a's class, plus a
// itself if a has not been assigned a class yet.
func (m *RootDomainMap) membersOf(k DomainKey) []DomainKey {
	if c, ok := m.classOf.Get(k); ok {
		members, _ := m.classes.Get(c)
		return members.Values()
	}
	return []DomainKey{k}
}

// hasMatchingDomains reports whether merging membersA and membersB would
// collide two distinct IterDomains owned by the same TensorDomain into one
// class (root_domain_map.cpp's hasMatchingDomains guards against exactly
// this: a class may contain at most one axis per tensor).
func hasMatchingDomains(membersA, membersB []DomainKey) bool {
	for _, ka := range membersA {
		for _, kb := range membersB {
			if ka.TD == kb.TD && ka.ID != kb.ID {
				return true
			}
		}
	}
	return false
}

// safeToMap is root_domain_map.cpp's safeToMap: it rejects a union that
// would either collide two axes of the same tensor into one class, or pull
// a reduction output axis into the same class as a consumer axis it is
// marked incompatible with.
func (m *RootDomainMap) safeToMap(a, b DomainKey) error {
	membersA := m.membersOf(a)
	membersB := m.membersOf(b)
	if hasMatchingDomains(membersA, membersB) {
		return &ir.UnmappableReductionError{
			Reason: fmt.Sprintf("mapping %v to %v would collide two distinct axes of the same tensor into one equivalence class", a, b),
		}
	}
	if m.unmappable != nil && m.unmappable.wouldMapReduction(membersA, membersB) {
		return &ir.UnmappableReductionError{
			Reason: fmt.Sprintf("mapping %v to %v would map a reduction output axis to an unrelated consumer axis", a, b),
		}
	}
	return nil
}

// SetAlias records that consulting td's root axes should also consult
// alias's root axes at the same position, for cases where a transformation
// rebuilt a TensorDomain from fresh IterDomain Vals instead of reusing the
// originals.
func (m *RootDomainMap) SetAlias(td, alias *domain.TensorDomain) error {
	m.aliases[td] = alias
	n := len(td.Root())
	if len(alias.Root()) < n {
		n = len(alias.Root())
	}
	for i := 0; i < n; i++ {
		if err := m.union(NewDomainKey(td, td.Root()[i]), NewDomainKey(alias, alias.Root()[i])); err != nil {
			return err
		}
	}
	return nil
}

// ClassID returns the equivalence class id assigned to (td, id), if any has
// been assigned yet by Build/union. Exposed so callers that need a
// comparable loop identity (exprsort's loop stacks) don't have to repeat
// pairwise CanMap calls.
func (m *RootDomainMap) ClassID(td *domain.TensorDomain, id *domain.IterDomain) (int, bool) {
	return m.classOf.Get(NewDomainKey(td, id))
}

// CanMap reports whether id1 (owned by td1) and id2 (owned by td2) are in
// the same transitive equivalence class.
func (m *RootDomainMap) CanMap(td1 *domain.TensorDomain, id1 *domain.IterDomain, td2 *domain.TensorDomain, id2 *domain.IterDomain) bool {
	k1, k2 := NewDomainKey(td1, id1), NewDomainKey(td2, id2)
	c1, ok1 := m.classOf.Get(k1)
	c2, ok2 := m.classOf.Get(k2)
	return ok1 && ok2 && c1 == c2
}

// CanMapAxes is CanMap using each axis's own recorded owner TensorDomain,
// for callers that only hold bare *domain.IterDomain handles.
func (m *RootDomainMap) CanMapAxes(a, b *domain.IterDomain) bool {
	if a.Val == b.Val {
		return true
	}
	return m.CanMap(a.Owner(), a, b.Owner(), b)
}

// MapProducerToConsumer is the direct pairwise correspondence between
// producer and consumer's root axes (see pairwise.go); it does not consult
// the transitive equivalence classes built by Build.
func (m *RootDomainMap) MapProducerToConsumer(producer, consumer *domain.TensorView) (map[*domain.IterDomain]*domain.IterDomain, error) {
	return PairwiseMap(producer, consumer)
}

// MapConsumerToProducer is MapProducerToConsumer with the result reversed.
func (m *RootDomainMap) MapConsumerToProducer(consumer, producer *domain.TensorView) (map[*domain.IterDomain]*domain.IterDomain, error) {
	fwd, err := PairwiseMap(producer, consumer)
	if err != nil {
		return nil, err
	}
	rev := make(map[*domain.IterDomain]*domain.IterDomain, len(fwd))
	for p, c := range fwd {
		rev[c] = p
	}
	return rev, nil
}
