// syncinsert.go - insert shared-memory RAW/WAR barriers into kernel IR
//
// Dieses Modul implementiert spec.md §4.8 als zwei in einem einzigen
// rekursiven Durchlauf verschraenkte Passes: RAW fuegt eine Barriere ein,
// bevor ein Shared-Memory-Read auf einen zuvor in derselben Scope
// geschriebenen Wert trifft; WAR fuegt am Ende eines Schleifenkoerpers eine
// Barriere ein, wenn dieser denselben Shared-Memory-Tensor sowohl schreibt
// als auch liest, gleich in welcher Reihenfolge. Gegruendet auf original_source's
// lower_insert_syncs.cpp (konservative Mengenverfolgung pro Scope,
// Vererbung an die umschliessende Scope beim Verlassen einer Schleife).
package syncinsert

import (
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/kernelir"
)

// InsertSyncs returns nodes with kernelir.Sync statements inserted wherever
// a shared-memory RAW or WAR hazard is detected.
func InsertSyncs(nodes []kernelir.Node) []kernelir.Node {
	out, _, _ := processScope(nodes)
	return out
}

func processScope(nodes []kernelir.Node) (result []kernelir.Node, written, read map[*domain.TensorView]bool) {
	written = map[*domain.TensorView]bool{}
	read = map[*domain.TensorView]bool{}
	pendingWrite := map[*domain.TensorView]bool{}

	for _, n := range nodes {
		switch k := n.Kind.(type) {
		case *kernelir.ForLoop:
			body, bodyWritten, bodyRead := processScope(k.Body)
			if warHazard(body, bodyWritten, bodyRead) {
				body = append(body, kernelir.Node{Kind: &kernelir.Sync{WAR: true}})
			}
			k.Body = body
			for tv := range bodyWritten {
				written[tv] = true
				pendingWrite[tv] = true
			}
			for tv := range bodyRead {
				read[tv] = true
			}
			result = append(result, n)

		case *kernelir.IfThenElse:
			k.Body, _, _ = processScope(k.Body)
			if k.ElseBody != nil {
				k.ElseBody, _, _ = processScope(k.ElseBody)
			}
			result = append(result, n)

		case *kernelir.Expr:
			exprRead, exprWrite := operandTensors(k)
			for tv := range exprRead {
				if pendingWrite[tv] {
					result = append(result, kernelir.Node{Kind: &kernelir.Sync{WAR: false}})
					delete(pendingWrite, tv)
				}
				read[tv] = true
			}
			result = append(result, n)
			for tv := range exprWrite {
				written[tv] = true
				pendingWrite[tv] = true
			}

		default:
			result = append(result, n)
		}
	}
	return result, written, read
}

// warHazard reports whether body, taken as a whole, both writes and reads
// (in any order) some shared tensor, with no barrier already closing it out.
func warHazard(body []kernelir.Node, written, read map[*domain.TensorView]bool) bool {
	if len(body) == 0 {
		return false
	}
	if _, isSync := body[len(body)-1].Kind.(*kernelir.Sync); isSync {
		return false
	}
	for tv := range written {
		if read[tv] {
			return true
		}
	}
	return false
}

func operandTensors(e *kernelir.Expr) (read, write map[*domain.TensorView]bool) {
	read = map[*domain.TensorView]bool{}
	write = map[*domain.TensorView]bool{}
	for _, op := range e.Inputs {
		if op.Index != nil && op.Index.TV().Memory() == domain.MemoryShared {
			read[op.Index.TV()] = true
		}
	}
	for _, op := range e.Outputs {
		if op.Index != nil && op.Index.TV().Memory() == domain.MemoryShared {
			write[op.Index.TV()] = true
		}
	}
	return read, write
}
