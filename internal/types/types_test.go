package types

import (
	"strings"
	"sync"
	"testing"

	"github.com/lhaig/blockc/internal/diagnostic"
)

func TestPrimitiveCompile(t *testing.T) {
	tests := []struct {
		typ      *DataType
		code     string
		requires string
	}{
		{String, "std::string", "string"},
		{Bool, "bool", ""},
		{Byte, "char", ""},
		{Int, "int", ""},
		{Long, "long", ""},
		{Float, "float", ""},
		{Double, "double", ""},
	}
	for _, tt := range tests {
		code, req := tt.typ.Compile()
		if code != tt.code {
			t.Errorf("%s compiles to %q, want %q", tt.typ, code, tt.code)
		}
		if got := strings.Join(req, ","); got != tt.requires {
			t.Errorf("%s requires %q, want %q", tt.typ, got, tt.requires)
		}
	}
}

func TestPrimitiveFlags(t *testing.T) {
	if !Int.Integral() || !Int.Numeric() {
		t.Error("int must be numeric and integral")
	}
	if Double.Integral() || !Double.Numeric() {
		t.Error("double must be numeric and not integral")
	}
	if String.Numeric() || Bool.Numeric() {
		t.Error("string and bool are not numeric")
	}
	lo, hi, ok := Byte.Bounds()
	if !ok || lo != -128 || hi != 127 {
		t.Errorf("byte bounds = %v..%v (%v)", lo, hi, ok)
	}
	if _, _, ok := Bool.Bounds(); ok {
		t.Error("bool has no numeric bounds")
	}
}

func TestArrayInterning(t *testing.T) {
	in := NewInterner()
	a := in.Array(Int, 2)
	b := in.Array(Int, 2)
	if a != b {
		t.Fatal("Array(Int, 2) must return the identical instance")
	}
	if in.Array(Int, 1) == a {
		t.Error("different dimensionality must not alias")
	}
	if a.Scalar() != in.Array(Int, 1) {
		t.Error("scalar of a 2-d array must be the interned 1-d array")
	}
	if a.Dimensions() != 2 || a.RootScalar() != Int {
		t.Errorf("dims=%d root=%v", a.Dimensions(), a.RootScalar())
	}

	other := NewInterner()
	if other.Array(Int, 2) == a {
		t.Error("sessions must not share interned instances")
	}
}

func TestArrayInterningConcurrent(t *testing.T) {
	in := NewInterner()
	results := make([]*ArrayType, 16)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = in.Array(Long, 3)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		if r != results[0] {
			t.Fatal("concurrent requests returned different instances")
		}
	}
}

func TestDimensions(t *testing.T) {
	in := NewInterner()
	arr := in.Sized(Int, 3, 4)

	if n, err := arr.GetDimension(1); err != nil || n != 3 {
		t.Errorf("dimension 1 = %d, %v", n, err)
	}
	if n, err := arr.GetDimension(2); err != nil || n != 4 {
		t.Errorf("dimension 2 = %d, %v", n, err)
	}
	if _, err := arr.GetDimension(3); diagnostic.KindOf(err) != diagnostic.DimensionOutOfRange {
		t.Errorf("expected DimensionOutOfRange, got %v", err)
	}
	if err := arr.SetDimension(3, 1); diagnostic.KindOf(err) != diagnostic.DimensionOutOfRange {
		t.Errorf("expected DimensionOutOfRange, got %v", err)
	}

	if err := arr.SetDimension(2, 8); err != nil {
		t.Fatalf("SetDimension: %v", err)
	}
	if n, _ := arr.GetDimension(2); n != 8 {
		t.Errorf("dimension 2 after set = %d", n)
	}
}

func TestSetDimensionRekeysSizedShapes(t *testing.T) {
	in := NewInterner()
	flat := in.Sized(Int, 4)
	if err := flat.SetDimension(1, 7); err != nil {
		t.Fatal(err)
	}
	if again := in.Sized(Int, 4); again == flat {
		t.Error("int[4] must not return the array resized to 7")
	} else if n, _ := again.GetDimension(1); n != 4 {
		t.Errorf("fresh int[4] has %d elements", n)
	}
	if in.Sized(Int, 7) != flat {
		t.Error("resized array must intern under its new shape")
	}

	outer := in.Sized(Int, 3, 5)
	if err := outer.SetDimension(2, 9); err != nil {
		t.Fatal(err)
	}
	if in.Sized(Int, 3, 9) != outer {
		t.Error("outer array must move with its resized inner dimension")
	}
	if fresh := in.Sized(Int, 3, 5); fresh == outer || fresh.String() != "int[3][5]" {
		t.Errorf("int[3][5] should be rebuilt, got %s", fresh)
	}
}

func TestSizedShapesDoNotAlias(t *testing.T) {
	in := NewInterner()
	if in.Sized(Int, 3) == in.Sized(Int, 5) {
		t.Error("int[3] and int[5] must be distinct")
	}
	if in.Sized(Int, 3, 4) != in.Sized(Int, 3, 4) {
		t.Error("equal shapes must intern to one instance")
	}
}

func TestArrayCompile(t *testing.T) {
	in := NewInterner()
	code, req := in.Sized(String, 2, 5).Compile()
	if code != "std::array<std::array<std::string, 5>, 2>" {
		t.Errorf("unexpected code %q", code)
	}
	joined := strings.Join(req, ",")
	if !strings.Contains(joined, "array") || !strings.Contains(joined, "string") {
		t.Errorf("unexpected requires %q", joined)
	}
}

func TestParse(t *testing.T) {
	in := NewInterner()
	tests := []struct {
		spec    string
		want    string
		wantErr bool
	}{
		{"int", "int", false},
		{"double[3][4]", "double[3][4]", false},
		{"byte[2]", "byte[2]", false},
		{"short", "", true},
		{"int[x]", "", true},
		{"int[0]", "", true},
		{"int[3", "", true},
	}
	for _, tt := range tests {
		got, err := in.Parse(tt.spec)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			continue
		}
		if err == nil && got.String() != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.spec, got, tt.want)
		}
	}
}

func TestPromote(t *testing.T) {
	tests := []struct {
		a, b Type
		want Type
	}{
		{Int, Int, Int},
		{Int, Long, Long},
		{Double, Byte, Double},
		{Float, Long, Float},
		{String, String, String},
		{String, Int, nil},
		{Bool, Int, nil},
	}
	for _, tt := range tests {
		if got := Promote(tt.a, tt.b); got != tt.want {
			t.Errorf("Promote(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
