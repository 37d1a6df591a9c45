// pairwise.go - direct producer/consumer root axis alignment
//
// Dieses Modul portiert PairwiseRootDomainMap::map aus
// original_source/.../root_domain_map.cpp: Produzenten- und
// Konsumenten-Root-Domain werden parallel durchlaufen, Reduktionsachsen des
// Produzenten werden uebersprungen, neu eingefuehrte Broadcast-Achsen des
// Konsumenten werden uebersprungen, alle uebrigen Achsen werden 1:1
// ausgerichtet. Der Produzent wird ueber MaybeRFactorDomain gelesen, damit
// ein rFactor-Zwischenergebnis korrekt als Produzent fungiert.
package rootmap

import (
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
)

// PairwiseMap aligns producer's maybe-rfactor domain against consumer's root
// domain and returns the axis correspondence, producer IterDomain to
// consumer IterDomain. consumer must be defined by an Expr that takes
// producer as one of its inputs.
func PairwiseMap(producer, consumer *domain.TensorView) (map[*domain.IterDomain]*domain.IterDomain, error) {
	def := consumer.Val.Def()
	if def == nil {
		return nil, &ir.InvalidTransformError{Op: "PairwiseMap", Reason: "consumer has no defining expr"}
	}
	isProducer := false
	for _, in := range def.Inputs {
		if in == producer.Val {
			isProducer = true
			break
		}
	}
	if !isProducer {
		return nil, &ir.InvalidTransformError{Op: "PairwiseMap", Reason: "not a producer/consumer pair"}
	}

	consumerRoot := consumer.Domain().Root()
	broadcastFlags := make([]bool, len(consumerRoot))
	if def.Op == ir.OpBroadcast {
		attrs := def.Attrs.(*ir.BroadcastAttrs)
		copy(broadcastFlags, attrs.IsBroadcastDim)
	}

	producerRoot := producer.Domain().MaybeRFactorDomain()
	result := make(map[*domain.IterDomain]*domain.IterDomain)

	itp, itc := 0, 0
	for itp < len(producerRoot) && itc < len(consumerRoot) {
		pid := producerRoot[itp]
		cid := consumerRoot[itc]

		if pid.IsReduction() {
			itp++
			continue
		}
		if broadcastFlags[itc] {
			itc++
			continue
		}

		result[pid] = cid
		itp++
		itc++
	}
	return result, nil
}
