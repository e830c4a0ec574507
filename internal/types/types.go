package types

import "math"

// Type is either a primitive *DataType or an interned *ArrayType.
// Types compare by identity.
type Type interface {
	Name() string
	Numeric() bool
	Integral() bool
	// Compile returns the C++ spelling of the type and the headers it needs
	Compile() (code string, requires []string)
	String() string
}

// DataType is a primitive type singleton
type DataType struct {
	name     string
	numeric  bool
	integral bool
	code     string
	requires []string
	rank     int // numeric promotion order, 0 for non-numeric types
	min, max float64
}

// Builtin types
var (
	String = &DataType{name: "string", code: "std::string", requires: []string{"string"}}
	Bool   = &DataType{name: "bool", code: "bool"}
	Byte   = &DataType{name: "byte", code: "char", numeric: true, integral: true, rank: 1, min: math.MinInt8, max: math.MaxInt8}
	Int    = &DataType{name: "int", code: "int", numeric: true, integral: true, rank: 2, min: math.MinInt32, max: math.MaxInt32}
	Long   = &DataType{name: "long", code: "long", numeric: true, integral: true, rank: 3, min: math.MinInt64, max: math.MaxInt64}
	Float  = &DataType{name: "float", code: "float", numeric: true, rank: 4, min: -math.MaxFloat32, max: math.MaxFloat32}
	Double = &DataType{name: "double", code: "double", numeric: true, rank: 5, min: -math.MaxFloat64, max: math.MaxFloat64}
)

// Primitives lists the builtin types in declaration order
var Primitives = []*DataType{String, Bool, Byte, Int, Long, Float, Double}

func (t *DataType) Name() string   { return t.name }
func (t *DataType) Numeric() bool  { return t.numeric }
func (t *DataType) Integral() bool { return t.integral }
func (t *DataType) String() string { return t.name }

func (t *DataType) Compile() (string, []string) {
	return t.code, append([]string(nil), t.requires...)
}

// Bounds returns the smallest and largest representable values of a
// numeric type. long bounds are the nearest float64 values.
func (t *DataType) Bounds() (lo, hi float64, ok bool) {
	if !t.numeric {
		return 0, 0, false
	}
	return t.min, t.max, true
}

// Lookup returns the primitive with the given name, or nil
func Lookup(name string) *DataType {
	for _, p := range Primitives {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Promote returns the type of a binary arithmetic result: the wider of two
// numeric primitives, or a when both operands have the same type.
// It returns nil when no common type exists.
func Promote(a, b Type) Type {
	if a == b {
		return a
	}
	pa, okA := a.(*DataType)
	pb, okB := b.(*DataType)
	if !okA || !okB || !pa.numeric || !pb.numeric {
		return nil
	}
	if pa.rank >= pb.rank {
		return pa
	}
	return pb
}

// Root returns the scalar at the bottom of an array chain, or t itself
func Root(t Type) Type {
	if arr, ok := t.(*ArrayType); ok {
		return arr.RootScalar()
	}
	return t
}
