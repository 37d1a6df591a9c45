// fuser_test.go - end-to-end tests for the register/run façade
package fuser

import (
	"context"
	"errors"
	"testing"

	"github.com/csarofeen/fuser/domain"
	"github.com/csarofeen/fuser/dtype"
	"github.com/csarofeen/fuser/ir"
	"github.com/csarofeen/fuser/runtime"
)

type fakeModule struct{ launches int }

func (m *fakeModule) Launch(ctx context.Context, grid, block [3]int, sharedBytes int, args []any) error {
	m.launches++
	return nil
}
func (m *fakeModule) Close() error { return nil }

type fakeCollaborator struct {
	module       *fakeModule
	lastSource   string
	compileCalls int
	failCompile  bool
}

func (c *fakeCollaborator) Compile(ctx context.Context, source string, opts runtime.CompileOptions) (runtime.CompiledModule, error) {
	c.compileCalls++
	c.lastSource = source
	if c.failCompile {
		return nil, errors.New("external compile failed")
	}
	if c.module == nil {
		c.module = &fakeModule{}
	}
	return c.module, nil
}

// buildPointwiseGraph returns a one-input, one-output relu fusion: out = relu(in).
func buildPointwiseGraph() (*ir.Fusion, error) {
	f := ir.NewFusion()
	axis := domain.NewIterDomain(f, f.NewConstScalar(dtype.Index, 0), f.NewScalar(dtype.Index))
	tv := domain.NewTensorView(f, dtype.Float32, []*domain.IterDomain{axis}, []bool{true})
	f.AddInput(tv.Val)
	out := domain.Unary(f, ir.UnaryRelu, tv)
	f.AddOutput(out.Val)
	return f, nil
}

func pointwiseGraph() Graph {
	return Graph{
		Shape: runtime.GraphShape{
			Values: []runtime.GraphValue{
				{IsTensor: true, Rank: 1, Device: "cuda:0", DType: dtype.Float32},
				{IsTensor: true, Rank: 1, Device: "cuda:0", DType: dtype.Float32},
			},
			Nodes: []runtime.GraphNode{{OpSchema: "aten::relu", Inputs: []int{0}, Outputs: []int{1}}},
		},
		Build: buildPointwiseGraph,
	}
}

func callFor(n int64) Call {
	tensor := runtime.TensorArg{Device: "cuda:0", Sizes: []int64{n}, Strides: []int64{1}, Contiguous: []bool{true}}
	return Call{
		Device:  "cuda:0",
		Tensors: []runtime.TensorArg{tensor},
		Outputs: []runtime.TensorArg{tensor},
	}
}

func TestRunCompilesAndLaunches(t *testing.T) {
	collab := &fakeCollaborator{}
	c := DefaultCompiler(collab)

	ge, err := c.Register(pointwiseGraph())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := c.Run(context.Background(), ge, callFor(1024)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if collab.compileCalls != 1 {
		t.Errorf("compileCalls = %d, erwartet 1", collab.compileCalls)
	}
	if collab.module.launches != 1 {
		t.Errorf("module.launches = %d, erwartet 1", collab.module.launches)
	}
	if collab.lastSource == "" {
		t.Error("kein Kernel-Quelltext wurde emittiert")
	}
}

func TestRunReusesCompiledKernelAcrossSizes(t *testing.T) {
	collab := &fakeCollaborator{}
	c := DefaultCompiler(collab)
	ge, err := c.Register(pointwiseGraph())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := c.Run(context.Background(), ge, callFor(1024)); err != nil {
		t.Fatalf("erster Run() error = %v", err)
	}
	if err := c.Run(context.Background(), ge, callFor(4096)); err != nil {
		t.Fatalf("zweiter Run() (andere Groesse) error = %v", err)
	}

	if collab.compileCalls != 1 {
		t.Errorf("compileCalls = %d, erwartet 1 (gleiche Shape, andere Groesse)", collab.compileCalls)
	}
	if collab.module.launches != 2 {
		t.Errorf("module.launches = %d, erwartet 2", collab.module.launches)
	}
}

func TestRegisterReusesGraphEntryForSameShape(t *testing.T) {
	collab := &fakeCollaborator{}
	c := DefaultCompiler(collab)

	ge1, err := c.Register(pointwiseGraph())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	ge2, err := c.Register(pointwiseGraph())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if ge1 != ge2 {
		t.Error("Register() sollte fuer dieselbe Graph-Shape denselben *GraphEntry zurueckgeben")
	}
}

func TestRunWrapsCollaboratorFailureAsCompileError(t *testing.T) {
	collab := &fakeCollaborator{failCompile: true}
	c := DefaultCompiler(collab)
	ge, err := c.Register(pointwiseGraph())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err = c.Run(context.Background(), ge, callFor(1024))
	var compileErr *ir.CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("Run() error = %v, erwartet *ir.CompileError", err)
	}
}

func TestRegisterRejectsOversizedGraph(t *testing.T) {
	collab := &fakeCollaborator{}
	c := DefaultCompiler(collab)

	g := pointwiseGraph()
	for i := 0; i < 5000; i++ {
		g.Shape.Nodes = append(g.Shape.Nodes, runtime.GraphNode{OpSchema: "aten::relu"})
	}

	_, err := c.Register(g)
	var invalid *ir.InvalidTransformError
	if !errors.As(err, &invalid) {
		t.Fatalf("Register() error = %v, erwartet *ir.InvalidTransformError fuer zu grossen Graphen", err)
	}
}
