// fusion.go - the owning arena for one subgraph under transformation
//
// Dieses Modul definiert Fusion, den Single-Owner-Container fuer alle Vals
// und Exprs eines Teilgraphen. Fusion vergibt monotone Namen, haelt die
// Ein-/Ausgabelisten und stellt Iteration in Abhaengigkeitsreihenfolge bereit.
package ir

// Fusion owns every Val and Expr created for one subgraph under
// transformation. Handles into a Fusion (*Val, *Expr) remain valid for the
// lifetime of the Fusion; nothing is reference counted (design note: graph
// ownership with back-references is modeled as an arena, not as shared
// pointers).
type Fusion struct {
	vals  []*Val
	exprs []*Expr

	inputs  []*Val
	outputs []*Val

	// launchConfigOverride, when non-nil, is the launch configuration
	// stored on the Fusion; the schedulers write their chosen shape here
	// (spec.md §3, Fusion attributes).
	launchConfigOverride *LaunchConfigOverride

	nextName int
}

// LaunchConfigOverride is the launch configuration stored on a Fusion.
// schedule.SchedulePointwise and schedule.ScheduleReduction overwrite it with
// their chosen shape; a value set before scheduling is not read by them. -1
// in a field means the value is inherited at launch time.
type LaunchConfigOverride struct {
	BIDx, BIDy, BIDz int
	TIDx, TIDy, TIDz int
}

// NewFusion returns an empty Fusion.
func NewFusion() *Fusion {
	return &Fusion{}
}

func (f *Fusion) nextValName() int {
	n := f.nextName
	f.nextName++
	return n
}

func (f *Fusion) nextExprName() int {
	n := f.nextName
	f.nextName++
	return n
}

// registerVal assigns v a fresh name, an arena-relative id, and appends it
// to the Fusion's owned val list. Callers (NewScalar, domain.NewIterDomain,
// ...) always go through this so invariant 8 (monotonic per-Fusion name
// counters) holds regardless of which package constructs the Val.
func (f *Fusion) registerVal(v *Val) *Val {
	v.fusion = f
	v.id = len(f.vals)
	v.name = f.nextValName()
	f.vals = append(f.vals, v)
	return v
}

// RegisterExpr adopts e into the Fusion: assigns it a name and id, wires
// each input/output Val's Def pointer (invariant 1: at most one defining
// Expr per Val), and appends e to the expr list.
func (f *Fusion) RegisterExpr(e *Expr) *Expr {
	e.fusion = f
	e.id = len(f.exprs)
	e.name = f.nextExprName()
	f.exprs = append(f.exprs, e)
	for _, out := range e.Outputs {
		out.def = e
	}
	return e
}

// AddInput marks v as a Fusion input. Inputs must not already carry a
// defining Expr.
func (f *Fusion) AddInput(v *Val) {
	f.inputs = append(f.inputs, v)
}

// AddOutput marks v as a Fusion output.
func (f *Fusion) AddOutput(v *Val) {
	f.outputs = append(f.outputs, v)
}

// RemoveOutput drops v from the output list, if present.
func (f *Fusion) RemoveOutput(v *Val) {
	for i, o := range f.outputs {
		if o == v {
			f.outputs = append(f.outputs[:i], f.outputs[i+1:]...)
			return
		}
	}
}

func (f *Fusion) Inputs() []*Val  { return append([]*Val(nil), f.inputs...) }
func (f *Fusion) Outputs() []*Val { return append([]*Val(nil), f.outputs...) }

// AllVals returns every Val ever registered, in registration order. This is
// not dependency order; use Vals() for that.
func (f *Fusion) AllVals() []*Val { return append([]*Val(nil), f.vals...) }

// SetLaunchConfigOverride stores o as the Fusion's launch configuration.
func (f *Fusion) SetLaunchConfigOverride(o LaunchConfigOverride) {
	f.launchConfigOverride = &o
}

// LaunchConfigOverride returns the stored launch configuration, if any.
func (f *Fusion) LaunchConfigOverride() (LaunchConfigOverride, bool) {
	if f.launchConfigOverride == nil {
		return LaunchConfigOverride{}, false
	}
	return *f.launchConfigOverride, true
}

// Clear empties the Fusion, leaving it in the same state as NewFusion.
func (f *Fusion) Clear() {
	f.vals = nil
	f.exprs = nil
	f.inputs = nil
	f.outputs = nil
	f.launchConfigOverride = nil
	f.nextName = 0
}

// Exprs returns Exprs of the Fusion ordered so each Expr's inputs appear
// before it (spec.md §4.1's "topologically sorted ordering from inputs to
// outputs"). fromOutputsOnly, when true, restricts the set to Exprs that
// transitively produce a current output; when false, the defining Expr of
// every registered Val is included, whether or not it leads to an output.
func (f *Fusion) Exprs(fromOutputsOnly bool) []*Expr {
	var roots []*Val
	if fromOutputsOnly {
		roots = f.outputs
	} else {
		roots = f.vals
	}

	visitedExpr := make(map[*Expr]bool, len(f.exprs))
	visitedVal := make(map[*Val]bool, len(f.vals))
	var order []*Expr

	var visit func(v *Val)
	visit = func(v *Val) {
		if v == nil || visitedVal[v] {
			return
		}
		visitedVal[v] = true
		if v.def == nil {
			return
		}
		if visitedExpr[v.def] {
			return
		}
		for _, in := range v.def.Inputs {
			visit(in)
		}
		if !visitedExpr[v.def] {
			visitedExpr[v.def] = true
			order = append(order, v.def)
		}
	}

	for _, r := range roots {
		visit(r)
	}
	return order
}

// Vals returns every Val reachable from the Fusion's inputs and outputs, in
// the order they are first produced by Exprs(false), plus unproduced inputs
// first.
func (f *Fusion) Vals() []*Val {
	seen := make(map[*Val]bool)
	var order []*Val
	for _, in := range f.inputs {
		if !seen[in] {
			seen[in] = true
			order = append(order, in)
		}
	}
	for _, e := range f.Exprs(false) {
		for _, in := range e.Inputs {
			if !seen[in] {
				seen[in] = true
				order = append(order, in)
			}
		}
		for _, out := range e.Outputs {
			if !seen[out] {
				seen[out] = true
				order = append(order, out)
			}
		}
	}
	return order
}
