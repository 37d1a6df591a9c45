// expr.go - statement- and expression-level text emission
//
// Dieses Modul laeuft den von Paket lower erzeugten kernelir-Baum ab und
// druckt jeden Knoten als CUDA-aehnlichen Text. Skalarausdruecke (Indizes,
// Stride-Symbole, Schleifengrenzen) werden rekursiv aus ihrer Definitions-
// Expr aufgebaut, da FlattenIndex/CeilDiv (Paket index/domain) echte
// Val-Unterbaeume statt einzelner Symbole erzeugen.
package codegen

import (
	"fmt"
	"strings"

	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/dtype"
	"github.com/csarofeen/fuser/index"
	"github.com/csarofeen/fuser/ir"
	"github.com/csarofeen/fuser/kernelir"
)

type generator struct {
	sb *strings.Builder
}

func indent(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
}

func (g *generator) emitBlock(nodes []kernelir.Node, depth int) {
	for _, n := range nodes {
		g.emitNode(n, depth)
	}
}

func (g *generator) emitNode(n kernelir.Node, depth int) {
	switch k := n.Kind.(type) {
	case *kernelir.ForLoop:
		g.emitForLoop(k, depth)
	case *kernelir.IfThenElse:
		g.emitIfThenElse(k, depth)
	case *kernelir.Allocate:
		g.emitAllocate(k, depth)
	case *kernelir.Expr:
		g.emitExpr(k, depth)
	case *kernelir.Sync:
		indent(g.sb, depth)
		if k.WAR {
			g.sb.WriteString("__syncthreads(); // war\n")
		} else {
			g.sb.WriteString("__syncthreads(); // raw\n")
		}
	}
}

func (g *generator) emitForLoop(l *kernelir.ForLoop, depth int) {
	if l.Domain.Parallel() != domain.Serial {
		indent(g.sb, depth)
		fmt.Fprintf(g.sb, "{ // %s bound to %s\n", l.Index.NamedScalarName, l.Domain.Parallel().String())
		g.emitBlock(l.Body, depth+1)
		indent(g.sb, depth)
		g.sb.WriteString("}\n")
		return
	}

	indent(g.sb, depth)
	name := l.Index.NamedScalarName
	fmt.Fprintf(g.sb, "for (nvfuser_index_t %s = 0; %s < %s; ++%s) {\n", name, name, valText(l.Domain.Extent()), name)
	g.emitBlock(l.Body, depth+1)
	indent(g.sb, depth)
	g.sb.WriteString("}\n")
}

func (g *generator) emitIfThenElse(s *kernelir.IfThenElse, depth int) {
	indent(g.sb, depth)
	fmt.Fprintf(g.sb, "if (%s) {\n", valText(s.Cond))
	g.emitBlock(s.Body, depth+1)
	indent(g.sb, depth)
	g.sb.WriteString("}")
	if len(s.ElseBody) > 0 {
		g.sb.WriteString(" else {\n")
		g.emitBlock(s.ElseBody, depth+1)
		indent(g.sb, depth)
		g.sb.WriteString("}\n")
	} else {
		g.sb.WriteString("\n")
	}
}

func (g *generator) emitAllocate(a *kernelir.Allocate, depth int) {
	indent(g.sb, depth)
	ctype := a.TV.Val.DType.String()
	name := tensorSymbol(a.TV)
	switch a.Memory {
	case domain.MemoryShared:
		fmt.Fprintf(g.sb, "__shared__ %s %s[%s];\n", ctype, name, valText(a.Size))
	default:
		fmt.Fprintf(g.sb, "%s %s[%s];\n", ctype, name, valText(a.Size))
	}
}

func (g *generator) emitExpr(e *kernelir.Expr, depth int) {
	indent(g.sb, depth)
	out := operandText(e.Outputs[0])
	switch e.Op {
	case ir.OpUnary:
		op := e.Attrs.(ir.UnaryOpType)
		fmt.Fprintf(g.sb, "%s = %s;\n", out, unaryCall(op, operandText(e.Inputs[0])))
	case ir.OpBinary:
		op := e.Attrs.(ir.BinaryOpType)
		fmt.Fprintf(g.sb, "%s = %s;\n", out, binaryExpr(op, operandText(e.Inputs[0]), operandText(e.Inputs[1])))
	case ir.OpTernary:
		op := e.Attrs.(ir.TernaryOpType)
		fmt.Fprintf(g.sb, "%s = %s(%s, %s, %s);\n", out, op.String(), operandText(e.Inputs[0]), operandText(e.Inputs[1]), operandText(e.Inputs[2]))
	case ir.OpReduction:
		attrs, _ := e.Attrs.(*ir.ReductionAttrs)
		op := ir.ReductionSum
		if attrs != nil {
			op = attrs.Op
		}
		x, y, z := reduceParticipants(e.Outputs[0])
		fmt.Fprintf(g.sb, "%s = blockReduce%s<%s, %v, %v, %v>(%s);\n", out, capitalize(op.String()), e.Outputs[0].Index.TV().Val.DType.String(), x, y, z, operandText(e.Inputs[0]))
	case ir.OpBroadcast:
		x, y, z := reduceParticipants(e.Outputs[0])
		fmt.Fprintf(g.sb, "%s = broadcast<%s, %v, %v, %v>(%s);\n", out, e.Outputs[0].Index.TV().Val.DType.String(), x, y, z, operandText(e.Inputs[0]))
	case ir.OpCast:
		fmt.Fprintf(g.sb, "%s = (%s)%s;\n", out, e.Outputs[0].Index.TV().Val.DType.String(), operandText(e.Inputs[0]))
	case ir.OpFull:
		fmt.Fprintf(g.sb, "%s = %s;\n", out, operandText(e.Inputs[0]))
	default:
		fmt.Fprintf(g.sb, "// unsupported op %s\n", e.Op.String())
	}
}

func unaryCall(op ir.UnaryOpType, in string) string {
	switch op {
	case ir.UnaryNeg:
		return fmt.Sprintf("-%s", in)
	case ir.UnarySet:
		return in
	default:
		return fmt.Sprintf("%s(%s)", op.String(), in)
	}
}

func binaryExpr(op ir.BinaryOpType, lhs, rhs string) string {
	switch op {
	case ir.BinaryAdd:
		return fmt.Sprintf("(%s + %s)", lhs, rhs)
	case ir.BinarySub:
		return fmt.Sprintf("(%s - %s)", lhs, rhs)
	case ir.BinaryMul:
		return fmt.Sprintf("(%s * %s)", lhs, rhs)
	case ir.BinaryDiv:
		return fmt.Sprintf("(%s / %s)", lhs, rhs)
	case ir.BinaryMod:
		return fmt.Sprintf("(%s %% %s)", lhs, rhs)
	case ir.BinaryMax:
		return fmt.Sprintf("max(%s, %s)", lhs, rhs)
	case ir.BinaryMin:
		return fmt.Sprintf("min(%s, %s)", lhs, rhs)
	case ir.BinaryLT:
		return fmt.Sprintf("(%s < %s)", lhs, rhs)
	case ir.BinaryGT:
		return fmt.Sprintf("(%s > %s)", lhs, rhs)
	case ir.BinaryEQ:
		return fmt.Sprintf("(%s == %s)", lhs, rhs)
	default:
		return fmt.Sprintf("%s(%s, %s)", op.String(), lhs, rhs)
	}
}

// reduceParticipants reports which block dimensions the participating
// reduction/broadcast axes of operand's TensorView are parallelized over.
func reduceParticipants(op kernelir.Operand) (x, y, z bool) {
	if op.Index == nil {
		return false, false, false
	}
	for _, ax := range op.Index.TV().Domain().Current() {
		if !ax.IsReduction() && !ax.IsBroadcast() {
			continue
		}
		switch ax.Parallel() {
		case domain.TIDx:
			x = true
		case domain.TIDy:
			y = true
		case domain.TIDz:
			z = true
		}
	}
	return x, y, z
}

func operandText(op kernelir.Operand) string {
	if op.Index != nil {
		return fmt.Sprintf("%s.data[%s]", tensorSymbol(op.Index.TV()), valText(op.Index.Indices()[0]))
	}
	return valText(op.Scalar)
}

func tensorSymbol(tv *domain.TensorView) string { return tensorSymbolByName(tv.Val.Name()) }
func scalarSymbol(v *ir.Val) string             { return scalarSymbolByName(v.Name()) }

// valText recursively renders a scalar Val's defining expression, so
// compound index/stride arithmetic built by package index/domain (rather
// than a single named symbol) prints inline.
func valText(v *ir.Val) string {
	if v == nil {
		return "0"
	}
	if v.Kind == ir.KindNamedScalar {
		return v.NamedScalarName
	}
	if v.IsConst {
		return dtype.Literal(v.DType, v.ConstValue)
	}
	if def := v.Def(); def != nil {
		switch def.Op {
		case ir.OpUnary:
			return unaryCall(def.Attrs.(ir.UnaryOpType), valText(def.Inputs[0]))
		case ir.OpBinary:
			return binaryExpr(def.Attrs.(ir.BinaryOpType), valText(def.Inputs[0]), valText(def.Inputs[1]))
		}
	}
	if tv := domain.AsTensorView(v); tv != nil {
		return tensorSymbol(tv)
	}
	if ti := index.AsTensorIndex(v); ti != nil {
		return valText(ti.Indices()[0])
	}
	return scalarSymbol(v)
}
