// graphkey.go - canonical graph-shape cache key
//
// Dieses Modul baut den in spec.md §4.10/§6 "Cache keys" beschriebenen
// kanonischen Textschluessel: Operator-Schemata und Wert-Indizes, Tensor-Typ
// Annotationen (Rang, Geraet) ohne konkrete Groessen, Skalar-Literale
// inline. Statt Text direkt zu konkatenieren (kollisionsanfaellig, da
// Feldgrenzen verschwimmen koennten) wird jedes Feld ueber
// google.golang.org/protobuf/encoding/protowire laengen-praefixiert
// kodiert: dieselbe deterministische Wire-Form, die generierter
// Protobuf-Code verwendet, nur von Hand ohne .proto/Codegen-Schritt
// aufgerufen, da dieses Projekt keine .proto-Quelle besitzt.
package runtime

import (
	"crypto/sha256"
	"encoding/hex"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/csarofeen/fuser/dtype"
)

// GraphValue describes one incoming-graph value's shape-relevant type
// (spec.md §6 "Incoming graph shape"): element type, tensor rank and
// device if it is a tensor, or an inlined literal if it is a compile-time
// scalar constant. Concrete sizes are deliberately not part of this type.
type GraphValue struct {
	IsTensor   bool
	Rank       int
	Device     string
	DType      dtype.DType
	IsConst    bool
	ConstValue float64
}

// GraphNode describes one incoming-graph op: its schema symbol and the
// value indices it reads and writes.
type GraphNode struct {
	OpSchema string
	Inputs   []int
	Outputs  []int
}

// GraphShape is the canonicalizable shape of one incoming subgraph: the
// unit the graph-shape cache keys on.
type GraphShape struct {
	Values []GraphValue
	Nodes  []GraphNode
}

// CanonicalKey renders g deterministically and returns a hex digest
// suitable as a map key. Two GraphShapes that differ only in exact tensor
// sizes (never encoded here) produce the same key, matching spec.md
// §4.10's "without exact sizes" graph-shape cache semantics.
func (g GraphShape) CanonicalKey() string {
	var buf []byte
	for i, v := range g.Values {
		vb := encodeGraphValue(i, v)
		buf = protowire.AppendTag(buf, 1, protowire.BytesType)
		buf = protowire.AppendBytes(buf, vb)
	}
	for _, n := range g.Nodes {
		nb := encodeGraphNode(n)
		buf = protowire.AppendTag(buf, 2, protowire.BytesType)
		buf = protowire.AppendBytes(buf, nb)
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

func encodeGraphValue(index int, v GraphValue) []byte {
	var b []byte
	b = protowire.AppendVarint(b, uint64(index))
	b = protowire.AppendVarint(b, boolToVarint(v.IsTensor))
	b = protowire.AppendVarint(b, uint64(v.Rank))
	b = protowire.AppendString(b, v.Device)
	b = protowire.AppendVarint(b, uint64(v.DType))
	b = protowire.AppendVarint(b, boolToVarint(v.IsConst))
	if v.IsConst {
		b = protowire.AppendFixed64(b, math.Float64bits(v.ConstValue))
	}
	return b
}

func encodeGraphNode(n GraphNode) []byte {
	var b []byte
	b = protowire.AppendString(b, n.OpSchema)
	var ib []byte
	for _, in := range n.Inputs {
		ib = protowire.AppendVarint(ib, uint64(in))
	}
	b = protowire.AppendBytes(b, ib)
	var ob []byte
	for _, out := range n.Outputs {
		ob = protowire.AppendVarint(ob, uint64(out))
	}
	b = protowire.AppendBytes(b, ob)
	return b
}

func boolToVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
