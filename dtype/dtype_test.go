// dtype_test.go - Tests fuer Typ-Tabellen und Literal-Formatierung
package dtype

import "testing"

func TestDTypeSize(t *testing.T) {
	tests := []struct {
		d    DType
		want int
	}{
		{Bool, 1},
		{Int32, 4},
		{Float32, 4},
		{Int64, 8},
		{Double, 8},
		{Float16, 2},
		{BFloat16, 2},
		{ComplexDouble, 16},
		{Index, 8},
		{Invalid, 0},
	}
	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			if got := tt.d.Size(); got != tt.want {
				t.Errorf("Size() = %d, erwartet %d", got, tt.want)
			}
		})
	}
}

func TestIsFloatingPoint(t *testing.T) {
	for _, d := range []DType{Float32, Float16, BFloat16, Double} {
		if !d.IsFloatingPoint() {
			t.Errorf("%v.IsFloatingPoint() = false, erwartet true", d)
		}
	}
	for _, d := range []DType{Int32, Int64, Bool, ComplexFloat} {
		if d.IsFloatingPoint() {
			t.Errorf("%v.IsFloatingPoint() = true, erwartet false", d)
		}
	}
}

func TestPromoteTypes(t *testing.T) {
	tests := []struct {
		a, b DType
		want DType
	}{
		{Int32, Int32, Int32},
		{Int32, Float32, Float32},
		{Float32, Int64, Float32},
		{Int32, Int64, Int64},
		{Float32, Double, Double},
	}
	for _, tt := range tests {
		if got := PromoteTypes(tt.a, tt.b); got != tt.want {
			t.Errorf("PromoteTypes(%v, %v) = %v, erwartet %v", tt.a, tt.b, got, tt.want)
		}
		if got := PromoteTypes(tt.b, tt.a); got != tt.want {
			t.Errorf("PromoteTypes(%v, %v) = %v, erwartet %v (symmetrisch)", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		d    DType
		v    float64
		want string
	}{
		{Int32, 3, "3"},
		{Int64, 3, "3LL"},
		{Bool, 1, "true"},
		{Bool, 0, "false"},
		{Float32, 1.5, "1.5f"},
		{Double, 2.5, "2.5"},
	}
	for _, tt := range tests {
		if got := Literal(tt.d, tt.v); got != tt.want {
			t.Errorf("Literal(%v, %v) = %q, erwartet %q", tt.d, tt.v, got, tt.want)
		}
	}
}
