// rfactor.go - rFactor: split one ReductionOp into a two-stage reduction
//
// Dieses Modul implementiert rFactor aus spec.md §4.2: aus einem
// TensorView, das das Ergebnis einer ReductionOp ist, wird ein
// Zwischen-TensorView ("Producer") erzeugt, der nur die ausgewaehlte
// Teilmenge der Reduktionsachsen reduziert; der urspruengliche TensorView
// wird so umgeschrieben, dass er die verbleibenden Reduktionsachsen ueber
// dem Producer reduziert. Gegruendet auf original_source's
// TensorView::rFactor (ir_interface_nodes.h) und dessen Markierung der
// faktorisierten Achsen als "maybe rfactor domain" fuer die Root-Domain-Map.
package domain

import "github.com/csarofeen/fuser/ir"

// RFactor splits tv's defining ReductionOp, which must reduce over at least
// the axes named in factorPositions (current-domain positions on tv),
// producing a new intermediate TensorView that performs just that subset of
// the reduction. tv is rewritten in place to consume the intermediate and
// reduce over whatever reduction axes remain.
func RFactor(f *ir.Fusion, tv *TensorView, factorPositions []int) (producer *TensorView, err error) {
	def := tv.Val.Def()
	if def == nil || def.Op != ir.OpReduction {
		return nil, &ir.InvalidTransformError{Op: "rFactor", Reason: "target is not the output of a ReductionOp"}
	}
	attrs, ok := def.Attrs.(*ir.ReductionAttrs)
	if !ok {
		return nil, &ir.InvalidTransformError{Op: "rFactor", Reason: "missing reduction attrs"}
	}
	curAxes := tv.Domain().Current()
	reductionAxisSet := make(map[int]bool, len(curAxes))
	for i, ax := range curAxes {
		if ax.IsReduction() {
			reductionAxisSet[i] = true
		}
	}
	factorSet := make(map[int]bool, len(factorPositions))
	for _, p := range factorPositions {
		if !reductionAxisSet[p] {
			return nil, &ir.InvalidTransformError{Op: "rFactor", Reason: "factored axis is not a reduction axis of this op"}
		}
		factorSet[p] = true
	}
	if len(factorSet) == len(reductionAxisSet) {
		return nil, &ir.InvalidTransformError{Op: "rFactor", Reason: "cannot factor every reduction axis — nothing left for the consumer to reduce"}
	}

	producerAxes := make([]*IterDomain, len(curAxes))
	for i, ax := range curAxes {
		switch {
		case factorSet[i]:
			producerAxes[i] = NewIterDomain(f, ax.Start(), ax.Extent(), Reduction())
			producerAxes[i].data.IsRFactorProduct = true
		case reductionAxisSet[i]:
			// Part of the original reduction but deferred to the second
			// stage: present in the intermediate as a plain iteration axis.
			producerAxes[i] = mirrorAxis(f, ax)
		default:
			producerAxes[i] = mirrorAxis(f, ax)
		}
	}

	producerInput := def.Inputs[0]
	producer = NewTensorView(f, tv.Val.DType, producerAxes, make([]bool, len(producerAxes)))
	producer.Domain().data.RFactor = append([]*IterDomain(nil), producerAxes...)

	producerReducedPositions := make([]int, 0, len(factorSet))
	for i := range producerAxes {
		if factorSet[i] {
			producerReducedPositions = append(producerReducedPositions, i)
		}
	}
	f.RegisterExpr(&ir.Expr{
		Op:      ir.OpReduction,
		Inputs:  []*ir.Val{producerInput},
		Outputs: []*ir.Val{producer.Val},
		Attrs:   &ir.ReductionAttrs{Op: attrs.Op, Axes: producerReducedPositions},
	})

	// Rebuild tv over the remaining (non-factored) axes only: the factored
	// axes were fully consumed by the producer's stage-one reduction and no
	// longer appear in tv's own iteration space.
	remainingAxes := make([]*IterDomain, 0, len(curAxes)-len(factorSet))
	remainingReducedPositions := make([]int, 0, len(reductionAxisSet)-len(factorSet))
	for i, ax := range curAxes {
		if factorSet[i] {
			continue
		}
		if reductionAxisSet[i] {
			remainingReducedPositions = append(remainingReducedPositions, len(remainingAxes))
			remainingAxes = append(remainingAxes, NewIterDomain(f, ax.Start(), ax.Extent(), Reduction()))
		} else {
			remainingAxes = append(remainingAxes, mirrorAxis(f, ax))
		}
	}

	tv.data.Domain = NewTensorDomain(f, remainingAxes, make([]bool, len(remainingAxes)))
	f.RegisterExpr(&ir.Expr{
		Op:      ir.OpReduction,
		Inputs:  []*ir.Val{producer.Val},
		Outputs: []*ir.Val{tv.Val},
		Attrs:   &ir.ReductionAttrs{Op: attrs.Op, Axes: remainingReducedPositions},
	})

	return producer, nil
}
