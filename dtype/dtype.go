// dtype.go - scalar and tensor element type tags
//
// Dieses Modul definiert die DType-Aufzaehlung, die sowohl fuer skalare als
// auch fuer Tensor-Werte im Fusion-IR verwendet wird, sowie Hilfsfunktionen
// fuer Groessenberechnung und Literal-Formatierung im erzeugten Kernel-Quelltext.
package dtype

import (
	"fmt"
	"strconv"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// DType identifies the element type of a scalar or tensor Val.
type DType int

const (
	Invalid DType = iota
	Bool
	Int32
	Int64
	Float32
	Float16
	BFloat16
	Double
	ComplexFloat
	ComplexDouble
	Index // symbolic index / extent type used for IterDomain extents
)

func (d DType) String() string {
	switch d {
	case Bool:
		return "bool"
	case Int32:
		return "int32_t"
	case Int64:
		return "int64_t"
	case Float32:
		return "float"
	case Float16:
		return "__half"
	case BFloat16:
		return "__bfloat"
	case Double:
		return "double"
	case ComplexFloat:
		return "complex<float>"
	case ComplexDouble:
		return "complex<double>"
	case Index:
		return "nvfuser_index_t"
	default:
		return "<invalid dtype>"
	}
}

// IsFloatingPoint reports whether d is a floating-point element type.
func (d DType) IsFloatingPoint() bool {
	switch d {
	case Float32, Float16, BFloat16, Double:
		return true
	default:
		return false
	}
}

// IsComplex reports whether d is a complex element type.
func (d DType) IsComplex() bool {
	return d == ComplexFloat || d == ComplexDouble
}

// Size returns the in-memory byte size of a single element of d.
//
// Modeled after fs/ggml's per-kind TypeSize switch: every element type is
// dense (no block quantization in this IR, unlike ggml's K-quant types), so
// this is a flat table rather than a block-size/type-size pair.
func (d DType) Size() int {
	switch d {
	case Bool:
		return 1
	case Int32, Float32:
		return 4
	case Int64, Double, ComplexFloat:
		return 8
	case Float16, BFloat16:
		return 2
	case ComplexDouble:
		return 16
	case Index:
		return 8
	default:
		return 0
	}
}

// PromoteTypes implements the type-promotion rule used when two Vals of
// possibly-different DTypes feed a single binary Expr: widen to the larger
// of the two, with floating point always dominating integral types.
func PromoteTypes(a, b DType) DType {
	if a == b {
		return a
	}
	if a.IsFloatingPoint() != b.IsFloatingPoint() {
		if a.IsFloatingPoint() {
			return a
		}
		return b
	}
	if a.Size() >= b.Size() {
		return a
	}
	return b
}

// Literal formats a constant-folded float64 value as a kernel-source literal
// in the narrowest representation that matches d, using float16/bfloat16
// round-tripping so the emitted constant carries exactly the precision the
// device kernel would see at runtime.
func Literal(d DType, v float64) string {
	switch d {
	case Float16:
		h := float16.Fromfloat32(float32(v))
		return fmt.Sprintf("__float2half(%sf)", strconv.FormatFloat(float64(h.Float32()), 'g', -1, 32))
	case BFloat16:
		encoded := bfloat16.Encode([]float32{float32(v)})
		decoded := bfloat16.Decode(encoded)
		return fmt.Sprintf("__float2bfloat(%sf)", strconv.FormatFloat(float64(decoded[0]), 'g', -1, 32))
	case Float32:
		return strconv.FormatFloat(v, 'g', -1, 32) + "f"
	case Double:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case Int32:
		return strconv.FormatInt(int64(v), 10)
	case Int64:
		return strconv.FormatInt(int64(v), 10) + "LL"
	case Bool:
		if v != 0 {
			return "true"
		}
		return "false"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}
