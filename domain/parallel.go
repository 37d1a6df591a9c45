// parallel.go - parallel-mapping tags for IterDomain
//
// Dieses Modul definiert ParallelType, den Tag, der beschreibt, auf welche
// Grid-/Block-/Warp-Dimension eine IterDomain beim Lowering abgebildet wird.
package domain

// ParallelType tags an IterDomain with the loop-parallelization strategy it
// will use once lowered: left serial, mapped to a grid dimension, mapped to
// a block (thread) dimension, or unrolled.
type ParallelType int

const (
	Serial ParallelType = iota
	BIDx
	BIDy
	BIDz
	TIDx
	TIDy
	TIDz
	Unroll
	Vectorize
)

func (p ParallelType) String() string {
	switch p {
	case Serial:
		return "serial"
	case BIDx:
		return "blockIdx.x"
	case BIDy:
		return "blockIdx.y"
	case BIDz:
		return "blockIdx.z"
	case TIDx:
		return "threadIdx.x"
	case TIDy:
		return "threadIdx.y"
	case TIDz:
		return "threadIdx.z"
	case Unroll:
		return "unroll"
	case Vectorize:
		return "vectorize"
	default:
		return "<invalid parallel type>"
	}
}

// IsBlockDim reports whether p maps to a grid (block-index) dimension.
func (p ParallelType) IsBlockDim() bool {
	return p == BIDx || p == BIDy || p == BIDz
}

// IsThreadDim reports whether p maps to an intra-block (thread-index)
// dimension.
func (p ParallelType) IsThreadDim() bool {
	return p == TIDx || p == TIDy || p == TIDz
}
