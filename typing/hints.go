package typing

import (
	"math"
	"strconv"
	"strings"
)

// ConstKind identifies the literal held by a Constant hint.
type ConstKind int

// Enumeration of the constant kinds.  ConstNone is the zero value so that an
// empty Hints carries no constant.
const (
	ConstNone ConstKind = iota
	ConstInt
	ConstDec
)

// Constant is a known literal value.
type Constant struct {
	Kind ConstKind
	Int  int64
	Dec  float64
}

// IntConst returns an integer constant.
func IntConst(v int64) Constant {
	return Constant{Kind: ConstInt, Int: v}
}

// DecConst returns a decimal constant.
func DecConst(v float64) Constant {
	return Constant{Kind: ConstDec, Dec: v}
}

// Valid returns whether the constant holds a value.
func (c Constant) Valid() bool {
	return c.Kind != ConstNone
}

// Key returns a string uniquely identifying the constant's literal.
func (c Constant) Key() string {
	switch c.Kind {
	case ConstInt:
		return "int." + strconv.FormatInt(c.Int, 10)
	case ConstDec:
		return "dec." + strconv.FormatUint(math.Float64bits(c.Dec), 16)
	default:
		return ""
	}
}

// Hints is the closed set of facts attachable to a type value.
type Hints struct {
	// Const is the known literal value of the typed value, if any.
	Const Constant

	// OwnsRef marks that the runtime value behind this type holds a reference
	// the current code path is responsible for releasing.
	OwnsRef bool
}

func (h Hints) String() string {
	var parts []string
	if h.Const.Valid() {
		parts = append(parts, "const "+h.Const.Key())
	}

	if h.OwnsRef {
		parts = append(parts, "owned")
	}

	return strings.Join(parts, ", ")
}

// -----------------------------------------------------------------------------

// Owned returns a copy of the type carrying the OwnedReference hint.
func (lt LangType) Owned() LangType {
	lt.Hints.OwnsRef = true
	return lt
}

// Borrowed returns a copy of the type without the OwnedReference hint.
func (lt LangType) Borrowed() LangType {
	lt.Hints.OwnsRef = false
	return lt
}

// IsOwned returns whether the type carries the OwnedReference hint.
func (lt LangType) IsOwned() bool {
	return lt.Hints.OwnsRef
}

// WithoutConst returns a copy of the type without a constant hint.
func (lt LangType) WithoutConst() LangType {
	lt.Hints.Const = Constant{}
	return lt
}

// Const returns the constant hint of the type.
func (lt LangType) Const() (Constant, bool) {
	return lt.Hints.Const, lt.Hints.Const.Valid()
}

// Bare returns a copy of the type with every hint removed.
func (lt LangType) Bare() LangType {
	lt.Hints = Hints{}
	return lt
}
