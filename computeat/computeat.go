// computeat.go - bind a producer's outer loops to a consumer's
//
// Dieses Modul implementiert ComputeAt aus spec.md §4.4: producer.pos
// aeusserste Achsen werden mit den ersten pos Achsen von consumer als
// gemeinsame Schleifen markiert. Gegruendet auf original_source's
// TensorView::computeAt (ir_interface_nodes.h) und dessen Aufruf von
// ComputeAt::runAt; die Legalitaetspruefung hier ersetzt den vollen
// TransformReplay durch replay.go's einfachere Root-Achsen-Rueckverfolgung.
package computeat

import (
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
	"github.com/csarofeen/fuser/rootmap"
)

// At records producer.computeAt(consumer, pos): producer's first pos
// current axes become shared loop scopes with consumer's first pos axes.
// Any tensor lying on a dataflow path between producer and consumer is
// pulled to the same depth (spec.md §4.4 step 3).
func At(f *ir.Fusion, rm *rootmap.RootDomainMap, producer, consumer *domain.TensorView, pos int) error {
	if pos < 0 || pos > consumer.NDims() {
		return &ir.InvalidComputeAtError{Pos: pos, Reason: "position out of range of consumer's rank"}
	}
	if pos > producer.NDims() {
		return &ir.InvalidComputeAtError{Pos: pos, Reason: "position exceeds producer's rank"}
	}
	if !legal(rm, producer, consumer, pos) {
		return &ir.InvalidComputeAtError{Pos: pos, Reason: "producer/consumer axes do not root-map up to pos, or cross a reduction"}
	}

	producer.Internal().SetComputeAt(consumer, pos)
	producer.Internal().SetProducedAt(pos)

	for _, tv := range intermediateTensorViews(f, producer.Val, consumer.Val) {
		tv.Internal().SetProducedAt(pos)
	}
	return nil
}

// legal reports whether producer's and consumer's first pos current axes
// trace back to root axes that canMap pairwise, with no reduction root
// among them (a reduction root would force recomputation of an already
// eliminated value, which spec.md §4.4 step 4 forbids).
func legal(rm *rootmap.RootDomainMap, producer, consumer *domain.TensorView, pos int) bool {
	pAxes := producer.Domain().Current()
	cAxes := consumer.Domain().Current()
	for i := 0; i < pos; i++ {
		pRoots := RootsOf(pAxes[i])
		cRoots := RootsOf(cAxes[i])
		if len(pRoots) != len(cRoots) {
			return false
		}
		for j := range pRoots {
			if pRoots[j].IsReduction() || cRoots[j].IsReduction() {
				return false
			}
			if !rm.CanMap(producer.Domain(), pRoots[j], consumer.Domain(), cRoots[j]) {
				return false
			}
		}
	}
	return true
}

// intermediateTensorViews returns every TensorView on some dataflow path
// strictly between from and to (exclusive of both endpoints).
func intermediateTensorViews(f *ir.Fusion, from, to *ir.Val) []*domain.TensorView {
	uses := make(map[*ir.Val][]*ir.Expr)
	for _, e := range f.Exprs(true) {
		for _, in := range e.Inputs {
			uses[in] = append(uses[in], e)
		}
	}

	descendants := make(map[*ir.Val]bool)
	var forward func(v *ir.Val)
	forward = func(v *ir.Val) {
		for _, use := range uses[v] {
			for _, out := range use.Outputs {
				if !descendants[out] {
					descendants[out] = true
					forward(out)
				}
			}
		}
	}
	forward(from)

	ancestors := make(map[*ir.Val]bool)
	var backward func(v *ir.Val)
	backward = func(v *ir.Val) {
		def := v.Def()
		if def == nil {
			return
		}
		for _, in := range def.Inputs {
			if !ancestors[in] {
				ancestors[in] = true
				backward(in)
			}
		}
	}
	backward(to)

	var result []*domain.TensorView
	for v := range descendants {
		if v == to || !ancestors[v] {
			continue
		}
		if tv := domain.AsTensorView(v); tv != nil {
			result = append(result, tv)
		}
	}
	return result
}
