// compute.go - entry points for producer-side and consumer-side indexing
//
// Dieses Modul stellt die beiden in spec.md §4.6 genannten getrennten Pfade
// bereit: GetConsumerIndex indiziert mit den Schleifenindizes, die der
// Konsument selbst oeffnet; GetProducerIndex indiziert einen Produzenten,
// der ueber ComputeAt in denselben Loop-Nest eingebunden ist, also mit den
// Schleifenindizes des Konsumenten fuer das gemeinsame Praefix und eigenen
// Indizes jenseits davon. Beide teilen sich RootIndex und verzweigen beim
// Zusammenfassen der Root-Indizes auf tv.Memory(): global adressiert ueber
// GlobalFlattenIndex (Laufzeit-Stride-Lookups), shared/local ueber
// FlattenIndex (Produkt der umschliessenden Extents).
package index

import (
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/ir"
)

func index(f *ir.Fusion, tv *domain.TensorView, loopIndex map[*domain.IterDomain]*ir.Val, uses map[*ir.Val]*ir.Expr) (*TensorIndex, error) {
	root := tv.Domain().Root()
	rootIndices := make([]*ir.Val, len(root))
	for i, ax := range root {
		idx, err := RootIndex(f, ax, loopIndex, uses)
		if err != nil {
			return nil, err
		}
		rootIndices[i] = idx
	}

	var addr *ir.Val
	if tv.Memory() == domain.MemoryGlobal {
		addr = GlobalFlattenIndex(f, tv, root, rootIndices)
	} else {
		addr = FlattenIndex(f, tv.Domain(), rootIndices)
	}
	return NewTensorIndex(f, tv, []*ir.Val{addr}), nil
}

// GetConsumerIndex indexes consumer using the loop indices of its own open
// loop nest (one entry per axis the lowering pass has bound so far).
func GetConsumerIndex(f *ir.Fusion, consumer *domain.TensorView, loopIndex map[*domain.IterDomain]*ir.Val, uses map[*ir.Val]*ir.Expr) (*TensorIndex, error) {
	return index(f, consumer, loopIndex, uses)
}

// GetProducerIndex indexes producer, which is bound into some consumer's
// loop nest via ComputeAt. Callers pass loopIndex keyed by producer's own
// axes; for the shared prefix (producer.ProducedAt()) these are expected to
// already be the consumer's loop index Vals, reused rather than
// independently allocated (spec.md §4.4's "shared loop scopes").
func GetProducerIndex(f *ir.Fusion, producer *domain.TensorView, loopIndex map[*domain.IterDomain]*ir.Val, uses map[*ir.Val]*ir.Expr) (*TensorIndex, error) {
	return index(f, producer, loopIndex, uses)
}
