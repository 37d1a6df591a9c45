// inputs_test.go - Tests fuer InputsRequirement und die Stride-Permutation
package runtime

import "testing"

func TestCommonStrideOrderPermutationRowMajor(t *testing.T) {
	// Contiguous row-major [2,3,4]: strides [12,4,1], already slowest-to-fastest.
	tensors := []TensorArg{
		{Sizes: []int64{2, 3, 4}, Strides: []int64{12, 4, 1}, Contiguous: []bool{true, true, true}},
	}
	perm := CommonStrideOrderPermutation(tensors)
	if !intsEqual(perm, []int{0, 1, 2}) {
		t.Errorf("CommonStrideOrderPermutation() = %v, erwartet [0 1 2]", perm)
	}
}

func TestCommonStrideOrderPermutationDegenerateAxisSortsLast(t *testing.T) {
	// NHWC layout of a logical [N,C,H,W] tensor with a size-1 batch axis:
	// physical stride order is H,W,C,N, but N's stride carries no
	// information since it's degenerate, so it sorts last regardless of
	// its numeric stride value.
	tensors := []TensorArg{
		{Sizes: []int64{1, 3, 4, 4}, Strides: []int64{48, 1, 12, 3}, Contiguous: []bool{true, false, true, true}},
	}
	perm := CommonStrideOrderPermutation(tensors)
	if !intsEqual(perm, []int{2, 3, 1, 0}) {
		t.Errorf("CommonStrideOrderPermutation() = %v, erwartet [2 3 1 0]", perm)
	}
}

func TestRequirementForMarksSize1AxesWithoutStrideIndex(t *testing.T) {
	tensors := []TensorArg{
		{Sizes: []int64{1, 4}, Strides: []int64{0, 1}, Contiguous: []bool{true, true}},
	}
	req := RequirementFor("cuda:0", []int{0, 1}, []int{0}, tensors)
	if len(req.Tensors) != 1 || len(req.Tensors[0].Axes) != 2 {
		t.Fatalf("RequirementFor() Tensors = %+v", req.Tensors)
	}
	ax0 := req.Tensors[0].Axes[0]
	if !ax0.IsSize1 || ax0.HasStrideIdx || ax0.StrideIndex != -1 {
		t.Errorf("size-1 axis = %+v, erwartet IsSize1=true HasStrideIdx=false StrideIndex=-1", ax0)
	}
	ax1 := req.Tensors[0].Axes[1]
	if ax1.IsSize1 || !ax1.HasStrideIdx {
		t.Errorf("size-4 axis = %+v, erwartet IsSize1=false HasStrideIdx=true", ax1)
	}
}

func TestComplyIgnoresConcreteSizes(t *testing.T) {
	small := []TensorArg{{Sizes: []int64{2, 3}, Strides: []int64{3, 1}, Contiguous: []bool{true, true}}}
	big := []TensorArg{{Sizes: []int64{200, 300}, Strides: []int64{300, 1}, Contiguous: []bool{true, true}}}

	a := RequirementFor("cuda:0", []int{0, 1}, []int{0}, small)
	b := RequirementFor("cuda:0", []int{0, 1}, []int{0}, big)

	if !a.Comply(b) {
		t.Error("Comply() = false, erwartet true: nur konkrete Groessen unterscheiden sich")
	}
}

func TestComplyRejectsRankMismatch(t *testing.T) {
	a := RequirementFor("cuda:0", []int{0}, []int{0}, []TensorArg{
		{Sizes: []int64{4}, Strides: []int64{1}, Contiguous: []bool{true}},
	})
	b := RequirementFor("cuda:0", []int{0, 1}, []int{0}, []TensorArg{
		{Sizes: []int64{4, 4}, Strides: []int64{4, 1}, Contiguous: []bool{true, true}},
	})
	if a.Comply(b) {
		t.Error("Comply() = true, erwartet false: unterschiedlicher Rang")
	}
}

func TestRequirementKeyStable(t *testing.T) {
	tensors := []TensorArg{{Sizes: []int64{2, 3}, Strides: []int64{3, 1}, Contiguous: []bool{true, true}}}
	a := RequirementFor("cuda:0", []int{0, 1}, []int{0}, tensors)
	b := RequirementFor("cuda:0", []int{0, 1}, []int{0}, tensors)
	if a.Key() != b.Key() {
		t.Errorf("Key() nicht stabil: %q != %q", a.Key(), b.Key())
	}
}
