// inputs.go - kernel-shape cache key and the stride-order permutation
//
// Dieses Modul implementiert spec.md §4.10's InputsRequirement-Tupel und den
// ersten Miss-Schritt: die gemeinsame Stride-Ordnungs-Permutation ueber alle
// Tensor-Eingaben (langsamster bis schnellster beobachteter Stride-Index).
package runtime

import (
	"fmt"
	"sort"
	"strings"

	"github.com/csarofeen/fuser/dtype"
)

// TensorArg is one concrete tensor argument's runtime shape, as observed at
// a call site (spec.md §6 "Incoming graph shape" per-axis stride-property
// triple, now with concrete values).
type TensorArg struct {
	Device     string
	DType      dtype.DType
	Sizes      []int64
	Strides    []int64
	Contiguous []bool
}

func (t TensorArg) rank() int { return len(t.Sizes) }

// ScalarArg is one concrete scalar argument.
type ScalarArg struct {
	Value float64
}

// AxisRequirement is one axis's shape-relevant (not size-relevant)
// property triple, per spec.md §6 "Cache keys": whether the axis is
// degenerate (size 1, so its stride is immaterial), its position in the
// common stride order, and whether it is contiguous.
type AxisRequirement struct {
	IsSize1      bool
	StrideIndex  int // -1 when IsSize1
	Contiguous   bool
	HasStrideIdx bool // false when IsSize1 (no stride_index_or_none)
}

// TensorRequirement is one tensor input's compliance-relevant shape.
type TensorRequirement struct {
	Device string
	DType  dtype.DType
	Rank   int
	Axes   []AxisRequirement
}

// InputsRequirement is the kernel-shape cache key (spec.md §4.10): device,
// the input and output permutations chosen on the first miss for this
// shape, and each tensor input's rank/broadcast-mask/stride-order/
// contiguity profile. Two requirements comply (hit the same kernel) iff
// all of these agree; concrete sizes may differ.
type InputsRequirement struct {
	Device            string
	InputPermutation  []int
	OutputPermutation []int
	Tensors           []TensorRequirement
}

// Comply reports whether a and b would reuse the same compiled kernel
// (spec.md §4.10 "Compliance check").
func (a InputsRequirement) Comply(b InputsRequirement) bool {
	if a.Device != b.Device {
		return false
	}
	if !intsEqual(a.InputPermutation, b.InputPermutation) {
		return false
	}
	if !intsEqual(a.OutputPermutation, b.OutputPermutation) {
		return false
	}
	if len(a.Tensors) != len(b.Tensors) {
		return false
	}
	for i := range a.Tensors {
		if !a.Tensors[i].equal(b.Tensors[i]) {
			return false
		}
	}
	return true
}

func (t TensorRequirement) equal(o TensorRequirement) bool {
	if t.Device != o.Device || t.DType != o.DType || t.Rank != o.Rank || len(t.Axes) != len(o.Axes) {
		return false
	}
	for i := range t.Axes {
		if t.Axes[i] != o.Axes[i] {
			return false
		}
	}
	return true
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Key renders r deterministically for use as a map key.
func (r InputsRequirement) Key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "dev=%s in=%v out=%v", r.Device, r.InputPermutation, r.OutputPermutation)
	for _, t := range r.Tensors {
		fmt.Fprintf(&sb, "|dev=%s,dtype=%s,rank=%d", t.Device, t.DType, t.Rank)
		for _, ax := range t.Axes {
			fmt.Fprintf(&sb, ",(%v,%d,%v,%v)", ax.IsSize1, ax.StrideIndex, ax.Contiguous, ax.HasStrideIdx)
		}
	}
	return sb.String()
}

// CommonStrideOrderPermutation computes the slowest-to-fastest axis order
// shared across every tensor input, from each tensor's observed strides
// (spec.md §4.10 miss step 1). Ties (equal strides, e.g. broadcast axes)
// keep their original relative order.
func CommonStrideOrderPermutation(tensors []TensorArg) []int {
	if len(tensors) == 0 {
		return nil
	}
	rank := tensors[0].rank()

	// Average rank-position of each axis in every tensor's stride order
	// (a size-1 axis takes one of the last positions of its tensor's
	// order), used to break ties when no single tensor's stride order is
	// authoritative.
	type axisScore struct {
		axis  int
		score float64
		n     int
	}
	scores := make([]axisScore, rank)
	for i := range scores {
		scores[i] = axisScore{axis: i}
	}

	for _, t := range tensors {
		order := strideOrder(t)
		for rankPos, axis := range order {
			if axis < 0 || axis >= rank {
				continue
			}
			scores[axis].score += float64(rankPos)
			scores[axis].n++
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		si, sj := scores[i], scores[j]
		avgI, avgJ := avg(si), avg(sj)
		return avgI < avgJ
	})

	perm := make([]int, rank)
	for i, s := range scores {
		perm[i] = s.axis
	}
	return perm
}

func avg(s struct {
	axis  int
	score float64
	n     int
}) float64 {
	if s.n == 0 {
		return float64(s.axis)
	}
	return s.score / float64(s.n)
}

// strideOrder returns t's axes ordered from slowest (largest stride) to
// fastest (smallest stride); degenerate size-1 axes sort last since their
// stride carries no information.
func strideOrder(t TensorArg) []int {
	idx := make([]int, t.rank())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		ai, aj := idx[i], idx[j]
		size1i := t.Sizes[ai] == 1
		size1j := t.Sizes[aj] == 1
		if size1i != size1j {
			return !size1i // nondegenerate axes sort before size-1 axes
		}
		return t.Strides[ai] > t.Strides[aj]
	})
	return idx
}

// RequirementFor builds the InputsRequirement for one concrete call,
// given the permutations chosen on the shape's first miss.
func RequirementFor(device string, inputPerm, outputPerm []int, tensors []TensorArg) InputsRequirement {
	reqs := make([]TensorRequirement, len(tensors))
	for i, t := range tensors {
		order := strideOrder(t)
		rankPos := make([]int, len(order))
		for pos, axis := range order {
			rankPos[axis] = pos
		}
		axes := make([]AxisRequirement, t.rank())
		for a := range axes {
			size1 := t.Sizes[a] == 1
			axes[a] = AxisRequirement{
				IsSize1:      size1,
				StrideIndex:  rankPos[a],
				Contiguous:   a < len(t.Contiguous) && t.Contiguous[a],
				HasStrideIdx: !size1,
			}
			if size1 {
				axes[a].StrideIndex = -1
			}
		}
		reqs[i] = TensorRequirement{Device: t.Device, DType: t.DType, Rank: t.rank(), Axes: axes}
	}
	return InputsRequirement{
		Device:            device,
		InputPermutation:  inputPerm,
		OutputPermutation: outputPerm,
		Tensors:           reqs,
	}
}
