// lower.go - generate a kernel-IR loop nest from a sorted expression sequence
//
// Dieses Modul implementiert spec.md §4.7: ein Stack offener ForLoops wird
// anhand des ComputeAt-Praefixes jedes Ausdrucks auf- und abgebaut, jede
// TensorView-Operation wird ueber Paket index in TensorIndex-Operanden
// aufgeloest, und nicht-globale Tensoren erhalten eine Allocate-Anweisung
// an der tiefsten noch ausserhalb ihres ProducedAt-Praefixes liegenden
// Schleife. Gegruendet auf original_source's lower_loops.cpp
// (LoopNestGenerator::generate's open/close-loop Schleife).
package lower

import (
	"fmt"

	"github.com/csarofeen/fuser/computeat"
	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/dtype"
	"github.com/csarofeen/fuser/exprsort"
	"github.com/csarofeen/fuser/index"
	"github.com/csarofeen/fuser/ir"
	"github.com/csarofeen/fuser/kernelir"
	"github.com/csarofeen/fuser/rootmap"
)

// generator holds the mutable state threaded through Generate's single pass
// over the sorted expression sequence.
type generator struct {
	f         *ir.Fusion
	rm        *rootmap.RootDomainMap
	uses      map[*ir.Val]*ir.Expr
	loopIndex map[*domain.IterDomain]*ir.Val

	stack     []*kernelir.ForLoop
	stackAxes []*domain.IterDomain
	root      []kernelir.Node
	freshID   int
}

// Generate lowers f's math-level Exprs (after expression sorting) into a
// flat list of top-level kernel-IR nodes, which in turn nest ForLoops per
// the computeAt schedule already recorded on every TensorView.
func Generate(f *ir.Fusion, rm *rootmap.RootDomainMap) ([]kernelir.Node, error) {
	g := &generator{
		f:         f,
		rm:        rm,
		uses:      index.BuildIterDomainUses(f),
		loopIndex: make(map[*domain.IterDomain]*ir.Val),
	}
	for _, e := range exprsort.Sort(f, rm) {
		if err := g.emit(e); err != nil {
			return nil, err
		}
	}
	return g.root, nil
}

func (g *generator) emit(e *ir.Expr) error {
	var out *domain.TensorView
	for _, o := range e.Outputs {
		if tv := domain.AsTensorView(o); tv != nil {
			out = tv
			break
		}
	}

	var target []*domain.IterDomain
	if out != nil {
		axes := out.Domain().Current()
		prefix := out.ProducedAt()
		if prefix > len(axes) {
			prefix = len(axes)
		}
		target = axes[:prefix]
	}

	g.adjustLoopNest(target)

	if out != nil && out.Memory() != domain.MemoryGlobal {
		g.emitAllocate(out)
	}

	return g.emitExpr(e)
}

// adjustLoopNest pops loops until the open stack is a prefix of target,
// then opens whatever additional loops target demands.
func (g *generator) adjustLoopNest(target []*domain.IterDomain) {
	common := 0
	for common < len(g.stackAxes) && common < len(target) && g.sameLoop(g.stackAxes[common], target[common]) {
		common++
	}
	g.stack = g.stack[:common]
	g.stackAxes = g.stackAxes[:common]

	for i := common; i < len(target); i++ {
		ax := target[i]
		idx := g.bindLoopIndex(ax)
		loop := &kernelir.ForLoop{Index: idx, Domain: ax}
		g.appendNode(kernelir.Node{Kind: loop})
		g.stack = append(g.stack, loop)
		g.stackAxes = append(g.stackAxes, ax)
	}
}

// sameLoop reports whether a and b correspond to the same logical loop:
// either literally the same axis, or axes whose root derivations root-map
// to each other position-wise (spec.md §4.7 step 2's "loop equivalence
// map").
func (g *generator) sameLoop(a, b *domain.IterDomain) bool {
	if a.Val == b.Val {
		return true
	}
	ra := computeat.RootsOf(a)
	rb := computeat.RootsOf(b)
	if len(ra) != len(rb) {
		return false
	}
	for i := range ra {
		if !g.rm.CanMapAxes(ra[i], rb[i]) {
			return false
		}
	}
	return true
}

func (g *generator) bindLoopIndex(ax *domain.IterDomain) *ir.Val {
	if v, ok := g.loopIndex[ax]; ok {
		return v
	}
	var v *ir.Val
	if ax.Parallel() != domain.Serial {
		v = g.f.NewNamedScalar(ax.Parallel().String(), dtype.Index)
	} else {
		v = g.f.NewNamedScalar(fmt.Sprintf("i%d", g.freshID), dtype.Index)
		g.freshID++
	}
	g.loopIndex[ax] = v
	return v
}

func (g *generator) emitAllocate(tv *domain.TensorView) {
	axes := tv.Domain().Current()
	prefix := tv.ProducedAt()
	if prefix > len(axes) {
		prefix = len(axes)
	}
	var size *ir.Val
	for _, ax := range axes[prefix:] {
		if size == nil {
			size = ax.Extent()
		} else {
			size = g.f.NewBinary(ir.BinaryMul, size, ax.Extent())
		}
	}
	if size == nil {
		size = g.f.NewConstScalar(dtype.Index, 1)
	}
	g.appendNode(kernelir.Node{Kind: &kernelir.Allocate{TV: tv, Memory: tv.Memory(), Size: size}})
}

func (g *generator) emitExpr(e *ir.Expr) error {
	inputs, err := g.resolveOperands(e.Inputs, true)
	if err != nil {
		return err
	}
	outputs, err := g.resolveOperands(e.Outputs, false)
	if err != nil {
		return err
	}
	g.appendNode(kernelir.Node{Kind: &kernelir.Expr{Op: e.Op, Attrs: e.Attrs, Inputs: inputs, Outputs: outputs}})
	return nil
}

func (g *generator) resolveOperands(vals []*ir.Val, asProducer bool) ([]kernelir.Operand, error) {
	out := make([]kernelir.Operand, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		tv := domain.AsTensorView(v)
		if tv == nil {
			out[i] = kernelir.Operand{Scalar: v}
			continue
		}
		var ti *index.TensorIndex
		var err error
		if asProducer {
			ti, err = index.GetProducerIndex(g.f, tv, g.loopIndex, g.uses)
		} else {
			ti, err = index.GetConsumerIndex(g.f, tv, g.loopIndex, g.uses)
		}
		if err != nil {
			return nil, err
		}
		out[i] = kernelir.Operand{Index: ti}
	}
	return out, nil
}

func (g *generator) appendNode(n kernelir.Node) {
	if len(g.stack) == 0 {
		g.root = append(g.root, n)
		return
	}
	top := g.stack[len(g.stack)-1]
	top.Body = append(top.Body, n)
}
