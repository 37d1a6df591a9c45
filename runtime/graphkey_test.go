// graphkey_test.go - Tests fuer den kanonischen Graph-Shape-Schluessel
package runtime

import (
	"testing"

	"github.com/csarofeen/fuser/dtype"
)

func sampleShape(rank int) GraphShape {
	return GraphShape{
		Values: []GraphValue{
			{IsTensor: true, Rank: rank, Device: "cuda:0", DType: dtype.Float32},
			{IsTensor: true, Rank: rank, Device: "cuda:0", DType: dtype.Float32},
		},
		Nodes: []GraphNode{
			{OpSchema: "aten::add.Tensor", Inputs: []int{0, 1}, Outputs: []int{2}},
		},
	}
}

func TestCanonicalKeyDeterministic(t *testing.T) {
	a := sampleShape(2).CanonicalKey()
	b := sampleShape(2).CanonicalKey()
	if a != b {
		t.Errorf("CanonicalKey() nicht deterministisch: %q != %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("CanonicalKey() Laenge = %d, erwartet 64 (SHA-256 Hex)", len(a))
	}
}

func TestCanonicalKeyDiffersOnRankAndOpSchema(t *testing.T) {
	rank2 := sampleShape(2).CanonicalKey()
	rank3 := sampleShape(3).CanonicalKey()
	if rank2 == rank3 {
		t.Error("CanonicalKey() sollte sich bei unterschiedlichem Rang unterscheiden")
	}

	other := sampleShape(2)
	other.Nodes[0].OpSchema = "aten::mul.Tensor"
	if sampleShape(2).CanonicalKey() == other.CanonicalKey() {
		t.Error("CanonicalKey() sollte sich bei unterschiedlichem OpSchema unterscheiden")
	}
}

func TestCanonicalKeyConstValueAffectsKey(t *testing.T) {
	a := GraphShape{Values: []GraphValue{{IsConst: true, ConstValue: 1.0, DType: dtype.Float32}}}
	b := GraphShape{Values: []GraphValue{{IsConst: true, ConstValue: 2.0, DType: dtype.Float32}}}
	if a.CanonicalKey() == b.CanonicalKey() {
		t.Error("CanonicalKey() sollte sich bei unterschiedlichem ConstValue unterscheiden")
	}
}
