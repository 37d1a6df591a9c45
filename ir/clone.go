// clone.go - deep copy and move semantics for Fusion
//
// Dieses Modul implementiert Fusion.Copy (zwei Durchlaeufe: erst alle Knoten
// parallel anlegen und in einer alt->neu-Map vermerken, dann Ein-/Ausgaben
// anhand dieser Map verdrahten) und Fusion.Move (Quelle in leeren,
// gueltigen Zustand versetzen).
package ir

// Copy produces a structurally identical but independently-named Fusion
// (invariant 8). Vals and Exprs receive fresh names via the new Fusion's
// own counter; DataCloner, if non-nil, is invoked to deep-copy each Val's
// kind-specific Data payload (owned by packages domain/index) using the
// old->new Val map so internal references within the payload (e.g. a
// TensorDomain's root axis list) are rewritten consistently.
func (f *Fusion) Copy(dataCloner func(oldToNew map[*Val]*Val, kind ValKind, data any) any) *Fusion {
	clone := NewFusion()
	oldToNew := make(map[*Val]*Val, len(f.vals))

	// Pass 1: allocate a parallel Val for every source Val, no payload yet.
	for _, v := range f.vals {
		nv := clone.registerVal(&Val{
			Kind:            v.Kind,
			DType:           v.DType,
			IsConst:         v.IsConst,
			ConstValue:      v.ConstValue,
			NamedScalarName: v.NamedScalarName,
		})
		oldToNew[v] = nv
	}

	// Pass 2: fill in Data payloads now that every Val has a counterpart.
	if dataCloner != nil {
		for _, v := range f.vals {
			if v.Data != nil {
				oldToNew[v].Data = dataCloner(oldToNew, v.Kind, v.Data)
			}
		}
	}

	// Pass 3: rewire Exprs using the map.
	for _, e := range f.exprs {
		ne := &Expr{Op: e.Op, Attrs: e.Attrs}
		for _, in := range e.Inputs {
			ne.Inputs = append(ne.Inputs, oldToNew[in])
		}
		for _, out := range e.Outputs {
			ne.Outputs = append(ne.Outputs, oldToNew[out])
		}
		clone.RegisterExpr(ne)
	}

	for _, in := range f.inputs {
		clone.AddInput(oldToNew[in])
	}
	for _, out := range f.outputs {
		clone.AddOutput(oldToNew[out])
	}
	clone.launchConfigOverride = f.launchConfigOverride

	return clone
}

// Move transfers f's arena contents into a new Fusion and resets f to the
// same empty state NewFusion would produce; handles obtained before Move
// remain valid pointers into the returned Fusion's arena (the *Val/*Expr
// values themselves are unchanged, only f's bookkeeping is cleared).
func (f *Fusion) Move() *Fusion {
	moved := &Fusion{
		vals:                 f.vals,
		exprs:                f.exprs,
		inputs:               f.inputs,
		outputs:              f.outputs,
		launchConfigOverride: f.launchConfigOverride,
		nextName:             f.nextName,
	}
	for _, v := range moved.vals {
		v.fusion = moved
	}
	for _, e := range moved.exprs {
		e.fusion = moved
	}
	f.Clear()
	return moved
}
