// cache_test.go - Tests fuer den zweistufigen Ausfuehrungs-Cache
package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/csarofeen/fuser/ir"
)

type fakeModule struct {
	launches int
	closed   bool
	failNext bool
}

func (m *fakeModule) Launch(ctx context.Context, grid, block [3]int, sharedBytes int, args []any) error {
	if m.failNext {
		return errors.New("launch failed")
	}
	m.launches++
	return nil
}

func (m *fakeModule) Close() error {
	m.closed = true
	return nil
}

type fakeCollaborator struct {
	compiles int
	failNext bool
	module   *fakeModule
}

func (c *fakeCollaborator) Compile(ctx context.Context, source string, opts CompileOptions) (CompiledModule, error) {
	c.compiles++
	if c.failNext {
		return nil, errors.New("compile failed")
	}
	if c.module == nil {
		c.module = &fakeModule{}
	}
	return c.module, nil
}

func singleTensorReq() InputsRequirement {
	tensors := []TensorArg{{Sizes: []int64{4}, Strides: []int64{1}, Contiguous: []bool{true}}}
	return RequirementFor("cuda:0", []int{0}, []int{0}, tensors)
}

func TestRegisterOrGetBuildsOnceOnKey(t *testing.T) {
	cache := NewCache(&fakeCollaborator{})
	builds := 0
	build := func() (*ir.Fusion, error) { builds++; return ir.NewFusion(), nil }

	ge1, err := cache.RegisterOrGet("key-a", build)
	if err != nil {
		t.Fatalf("RegisterOrGet() error = %v", err)
	}
	ge2, err := cache.RegisterOrGet("key-a", build)
	if err != nil {
		t.Fatalf("RegisterOrGet() error = %v", err)
	}
	if ge1 != ge2 {
		t.Error("RegisterOrGet() sollte denselben *GraphEntry fuer denselben Schluessel zurueckgeben")
	}
	if builds != 1 {
		t.Errorf("build wurde %d mal aufgerufen, erwartet 1", builds)
	}
	if ge1.ID == "" {
		t.Error("GraphEntry.ID ist leer")
	}
}

func TestRegisterOrGetPropagatesBuildError(t *testing.T) {
	cache := NewCache(&fakeCollaborator{})
	wantErr := errors.New("parse failed")
	_, err := cache.RegisterOrGet("key-b", func() (*ir.Fusion, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("RegisterOrGet() error = %v, erwartet %v", err, wantErr)
	}
}

func TestCompileOrGetCachesByRequirement(t *testing.T) {
	collab := &fakeCollaborator{}
	cache := NewCache(collab)
	ge, _ := cache.RegisterOrGet("key-c", func() (*ir.Fusion, error) { return ir.NewFusion(), nil })

	req := singleTensorReq()
	compiles := 0
	compile := func(ge *GraphEntry, req InputsRequirement) (string, LaunchParams, *GridReductionScratch, bool, error) {
		compiles++
		return "kernel source", LaunchParams{TIDx: 128}, nil, false, nil
	}

	ke1, err := cache.CompileOrGet(ge, req, compile)
	if err != nil {
		t.Fatalf("CompileOrGet() error = %v", err)
	}
	ke2, err := cache.CompileOrGet(ge, req, compile)
	if err != nil {
		t.Fatalf("CompileOrGet() error = %v", err)
	}
	if ke1 != ke2 {
		t.Error("CompileOrGet() sollte denselben *KernelEntry fuer dieselbe Requirement zurueckgeben")
	}
	if compiles != 1 {
		t.Errorf("compile wurde %d mal aufgerufen, erwartet 1", compiles)
	}
	if collab.compiles != 1 {
		t.Errorf("collaborator.Compile wurde %d mal aufgerufen, erwartet 1", collab.compiles)
	}
}

func TestCompileOrGetWrapsCollaboratorFailureAsCompileError(t *testing.T) {
	collab := &fakeCollaborator{failNext: true}
	cache := NewCache(collab)
	ge, _ := cache.RegisterOrGet("key-d", func() (*ir.Fusion, error) { return ir.NewFusion(), nil })

	compile := func(ge *GraphEntry, req InputsRequirement) (string, LaunchParams, *GridReductionScratch, bool, error) {
		return "source", LaunchParams{}, nil, false, nil
	}

	_, err := cache.CompileOrGet(ge, singleTensorReq(), compile)
	var compileErr *ir.CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("CompileOrGet() error = %v, erwartet *ir.CompileError", err)
	}
}

func TestLaunchRejectsRankMismatchWithoutCorruptingCache(t *testing.T) {
	collab := &fakeCollaborator{}
	cache := NewCache(collab)
	ge, _ := cache.RegisterOrGet("key-e", func() (*ir.Fusion, error) { return ir.NewFusion(), nil })
	req := singleTensorReq()
	ke, err := cache.CompileOrGet(ge, req, func(ge *GraphEntry, req InputsRequirement) (string, LaunchParams, *GridReductionScratch, bool, error) {
		return "source", LaunchParams{TIDx: 32}, nil, false, nil
	})
	if err != nil {
		t.Fatalf("CompileOrGet() error = %v", err)
	}

	wrongRank := []TensorArg{{Sizes: []int64{4, 4}, Strides: []int64{4, 1}, Contiguous: []bool{true, true}}}
	err = cache.Launch(context.Background(), ke, Args{Tensors: wrongRank}, wrongRank, LaunchParams{BIDx: -1, BIDy: -1, BIDz: -1, TIDx: -1, TIDy: -1, TIDz: -1, SharedBytes: -1})
	var launchErr *ir.IncompatibleLaunchConfigError
	if !errors.As(err, &launchErr) {
		t.Fatalf("Launch() error = %v, erwartet *ir.IncompatibleLaunchConfigError", err)
	}

	if got, ok := ge.kernels[req.Key()]; !ok || got != ke {
		t.Error("fehlgeschlagener Launch hat den Kernel-Cache-Eintrag veraendert oder entfernt")
	}
}

func TestLaunchCallsModuleWithEvaluatedConfig(t *testing.T) {
	module := &fakeModule{}
	collab := &fakeCollaborator{module: module}
	cache := NewCache(collab)
	ge, _ := cache.RegisterOrGet("key-f", func() (*ir.Fusion, error) { return ir.NewFusion(), nil })
	req := singleTensorReq()
	ke, _ := cache.CompileOrGet(ge, req, func(ge *GraphEntry, req InputsRequirement) (string, LaunchParams, *GridReductionScratch, bool, error) {
		return "source", LaunchParams{BIDx: -1, BIDy: 1, BIDz: 1, TIDx: 32, TIDy: 1, TIDz: 1}, nil, false, nil
	})

	actual := []TensorArg{{Sizes: []int64{4}, Strides: []int64{1}, Contiguous: []bool{true}}}
	override := LaunchParams{BIDx: 8, BIDy: -1, BIDz: -1, TIDx: -1, TIDy: -1, TIDz: -1, SharedBytes: -1}
	if err := cache.Launch(context.Background(), ke, Args{Tensors: actual}, actual, override); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if module.launches != 1 {
		t.Errorf("module.launches = %d, erwartet 1", module.launches)
	}
}

func TestEvictClosesModuleAndRemovesEntry(t *testing.T) {
	module := &fakeModule{}
	collab := &fakeCollaborator{module: module}
	cache := NewCache(collab)
	ge, _ := cache.RegisterOrGet("key-g", func() (*ir.Fusion, error) { return ir.NewFusion(), nil })
	req := singleTensorReq()
	cache.CompileOrGet(ge, req, func(ge *GraphEntry, req InputsRequirement) (string, LaunchParams, *GridReductionScratch, bool, error) {
		return "source", LaunchParams{}, nil, false, nil
	})

	cache.Evict(ge, req)

	if !module.closed {
		t.Error("Evict() hat das Modul nicht geschlossen")
	}
	if _, ok := ge.kernels[req.Key()]; ok {
		t.Error("Evict() hat den Kernel-Cache-Eintrag nicht entfernt")
	}
}
