package types

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lhaig/blockc/internal/diagnostic"
)

// ArrayType is a fixed-size array of Scalar. Multi-dimensional arrays nest:
// int[3][4] is an array of 3 elements whose scalar is an array of 4 ints.
type ArrayType struct {
	scalar Type
	elems  int
	owner  *Interner
}

func (a *ArrayType) Name() string   { return "array" }
func (a *ArrayType) Numeric() bool  { return false }
func (a *ArrayType) Integral() bool { return false }

// Scalar returns the element type, itself an *ArrayType for nested arrays
func (a *ArrayType) Scalar() Type { return a.scalar }

func (a *ArrayType) String() string {
	var sb strings.Builder
	sb.WriteString(a.RootScalar().String())
	for t := Type(a); ; {
		arr, ok := t.(*ArrayType)
		if !ok {
			break
		}
		fmt.Fprintf(&sb, "[%d]", arr.size())
		t = arr.scalar
	}
	return sb.String()
}

func (a *ArrayType) Compile() (string, []string) {
	code, requires := a.scalar.Compile()
	requires = append(requires, "array")
	return fmt.Sprintf("std::array<%s, %d>", code, a.size()), requires
}

// RootScalar returns the innermost non-array element type
func (a *ArrayType) RootScalar() Type {
	if inner, ok := a.scalar.(*ArrayType); ok {
		return inner.RootScalar()
	}
	return a.scalar
}

// Dimensions returns the nesting depth of the array chain
func (a *ArrayType) Dimensions() int {
	if inner, ok := a.scalar.(*ArrayType); ok {
		return inner.Dimensions() + 1
	}
	return 1
}

// GetDimension returns the size of dimension dim, counted from 1 at the
// outermost array.
func (a *ArrayType) GetDimension(dim int) (int, error) {
	target, err := a.dimension(dim)
	if err != nil {
		return 0, err
	}
	return target.size(), nil
}

// SetDimension resizes dimension dim. Interned instances are shared within
// a session, so every holder of this type observes the change. Sized shapes
// that contain the resized array move to the key of their new shape, and a
// later request for the old shape gets a fresh instance.
func (a *ArrayType) SetDimension(dim, size int) error {
	target, err := a.dimension(dim)
	if err != nil {
		return err
	}
	in := target.owner
	in.mu.Lock()
	defer in.mu.Unlock()
	target.elems = size
	in.rekey(target)
	return nil
}

// rekey re-interns every sized entry whose chain includes changed. When the
// new shape is already taken the existing instance keeps the key. The
// caller holds mu.
func (in *Interner) rekey(changed *ArrayType) {
	for key, arr := range in.arrays {
		if key.shape == "" || !arr.includes(changed) {
			continue
		}
		shape := shapeKey(arr.sizes())
		if shape == key.shape {
			continue
		}
		delete(in.arrays, key)
		key.shape = shape
		if _, taken := in.arrays[key]; !taken {
			in.arrays[key] = arr
		}
	}
}

// includes reports whether t is a or one of its nested arrays
func (a *ArrayType) includes(t *ArrayType) bool {
	for cur := a; cur != nil; {
		if cur == t {
			return true
		}
		cur, _ = cur.scalar.(*ArrayType)
	}
	return false
}

// sizes lists the dimension sizes, outermost first, without locking
func (a *ArrayType) sizes() []int {
	var out []int
	for cur := a; cur != nil; {
		out = append(out, cur.elems)
		cur, _ = cur.scalar.(*ArrayType)
	}
	return out
}

func (a *ArrayType) dimension(dim int) (*ArrayType, error) {
	if dim < 1 {
		return nil, diagnostic.Errorf(diagnostic.DimensionOutOfRange, "Requested dimension %d is not positive", dim)
	}
	if dim == 1 {
		return a, nil
	}
	inner, ok := a.scalar.(*ArrayType)
	if !ok {
		return nil, diagnostic.Errorf(diagnostic.DimensionOutOfRange, "Requested dimension more than dimensionality of array")
	}
	return inner.dimension(dim - 1)
}

func (a *ArrayType) size() int {
	a.owner.mu.Lock()
	defer a.owner.mu.Unlock()
	return a.elems
}

type arrayKey struct {
	scalar Type
	dims   int
	shape  string // empty for unsized requests
}

// Interner owns the array types of one compilation session
type Interner struct {
	mu     sync.Mutex
	arrays map[arrayKey]*ArrayType
}

// NewInterner creates an empty interning table
func NewInterner() *Interner {
	return &Interner{arrays: make(map[arrayKey]*ArrayType)}
}

// Array returns the interned array type of scalar with the given
// dimensionality, creating it on first request. Each dimension starts with
// one element. dims must be positive.
func (in *Interner) Array(scalar Type, dims int) *ArrayType {
	if dims < 1 {
		panic(fmt.Sprintf("types: array dimensionality %d is not positive", dims))
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.array(scalar, dims)
}

func (in *Interner) array(scalar Type, dims int) *ArrayType {
	key := arrayKey{scalar: scalar, dims: dims}
	if t, ok := in.arrays[key]; ok {
		return t
	}
	elem := scalar
	if dims > 1 {
		elem = in.array(scalar, dims-1)
	}
	t := &ArrayType{scalar: elem, elems: 1, owner: in}
	in.arrays[key] = t
	return t
}

// Sized returns the interned array type with the given sizes, outermost
// first. Distinct shapes intern separately, so int[3] and int[5] never alias.
func (in *Interner) Sized(scalar Type, sizes ...int) *ArrayType {
	if len(sizes) == 0 {
		panic("types: sized array needs at least one dimension")
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	var t Type = scalar
	for i := len(sizes) - 1; i >= 0; i-- {
		key := arrayKey{scalar: scalar, dims: len(sizes) - i, shape: shapeKey(sizes[i:])}
		arr, ok := in.arrays[key]
		if !ok {
			arr = &ArrayType{scalar: t, elems: sizes[i], owner: in}
			in.arrays[key] = arr
		}
		t = arr
	}
	return t.(*ArrayType)
}

// Parse resolves a type name such as "int" or "double[3][4]"
func (in *Interner) Parse(spec string) (Type, error) {
	spec = strings.TrimSpace(spec)
	base := spec
	rest := ""
	if i := strings.IndexByte(spec, '['); i >= 0 {
		base, rest = spec[:i], spec[i:]
	}

	scalar := Lookup(base)
	if scalar == nil {
		return nil, diagnostic.Errorf(diagnostic.InvalidDocument, "unknown type %q", spec)
	}
	if rest == "" {
		return scalar, nil
	}

	var sizes []int
	for rest != "" {
		end := strings.IndexByte(rest, ']')
		if rest[0] != '[' || end < 0 {
			return nil, diagnostic.Errorf(diagnostic.InvalidDocument, "malformed array type %q", spec)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil || n < 1 {
			return nil, diagnostic.Errorf(diagnostic.InvalidDocument, "array dimension in %q must be a positive integer", spec)
		}
		sizes = append(sizes, n)
		rest = rest[end+1:]
	}
	return in.Sized(scalar, sizes...), nil
}

func shapeKey(sizes []int) string {
	parts := make([]string, len(sizes))
	for i, n := range sizes {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "x")
}
