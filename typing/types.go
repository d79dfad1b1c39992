package typing

import (
	"fmt"
	"strings"
)

// Kind is the tag of a LangType.  It must be one of the enumerated kinds below:
// the set is closed and every switch over it is expected to be exhaustive.
type Kind int

// Enumeration of the different semantic type kinds.
const (
	KindUnknown Kind = iota
	KindInt
	KindDec
	KindBool
	KindNone
	KindObject
	KindCollection
	KindForeign
)

// CollectionKind identifies the container carried by a collection type.
type CollectionKind int

// Enumeration of the supported collections.
const (
	CollList CollectionKind = iota
	CollSet
)

// NoClass is the class id of every type that is not a user object.
const NoClass = -1

// LangType is a semantic value type.  LangType is a value: copying it copies
// its hints, and two copies never alias each other.
type LangType struct {
	// Kind is the tag of the type.
	Kind Kind

	// ClassID is the id of the user class for KindObject types and NoClass
	// otherwise.
	ClassID int

	// Coll is the collection kind for KindCollection types.
	Coll CollectionKind

	// Hints are the facts attached to this type value.  They never take part
	// in type identity.
	Hints Hints
}

// UnknownType returns the fully dynamic type used by validation-only
// implementations.
func UnknownType() LangType {
	return LangType{Kind: KindUnknown, ClassID: NoClass}
}

// IntType returns the native integer type.
func IntType() LangType {
	return LangType{Kind: KindInt, ClassID: NoClass}
}

// DecType returns the native decimal (double precision) type.
func DecType() LangType {
	return LangType{Kind: KindDec, ClassID: NoClass}
}

// BoolType returns the native boolean type.
func BoolType() LangType {
	return LangType{Kind: KindBool, ClassID: NoClass}
}

// NoneType returns the type of the None singleton.
func NoneType() LangType {
	return LangType{Kind: KindNone, ClassID: NoClass}
}

// ObjType returns the type of instances of the user class with the given id.
func ObjType(classID int) LangType {
	return LangType{Kind: KindObject, ClassID: classID}
}

// ListType returns the type of a foreign list of foreign objects.
func ListType() LangType {
	return LangType{Kind: KindCollection, ClassID: NoClass, Coll: CollList}
}

// SetType returns the type of a foreign set of foreign objects.
func SetType() LangType {
	return LangType{Kind: KindCollection, ClassID: NoClass, Coll: CollSet}
}

// ForeignType returns the opaque foreign object type.
func ForeignType() LangType {
	return LangType{Kind: KindForeign, ClassID: NoClass}
}

// ConstIntType returns an integer type carrying a known constant value.
func ConstIntType(v int64) LangType {
	t := IntType()
	t.Hints.Const = IntConst(v)
	return t
}

// ConstDecType returns a decimal type carrying a known constant value.
func ConstDecType(v float64) LangType {
	t := DecType()
	t.Hints.Const = DecConst(v)
	return t
}

// -----------------------------------------------------------------------------

// Equals tests structural identity: same tag, same class id for objects, and
// same collection kind for collections.  Hints are ignored.
func (lt LangType) Equals(other LangType) bool {
	if lt.Kind != other.Kind {
		return false
	}

	switch lt.Kind {
	case KindObject:
		return lt.ClassID == other.ClassID
	case KindCollection:
		return lt.Coll == other.Coll
	default:
		return true
	}
}

// IsNative returns whether values of this type are held in native registers
// rather than as foreign object handles.
func (lt LangType) IsNative() bool {
	switch lt.Kind {
	case KindInt, KindDec, KindBool:
		return true
	default:
		return false
	}
}

// IsRefCounted returns whether values of this type are reference counted
// handles.  None values are handles too, but they always refer to the
// singleton.
func (lt LangType) IsRefCounted() bool {
	switch lt.Kind {
	case KindNone, KindObject, KindCollection, KindForeign, KindUnknown:
		return true
	default:
		return false
	}
}

// IsList returns whether this type is a foreign list.
func (lt LangType) IsList() bool {
	return lt.Kind == KindCollection && lt.Coll == CollList
}

// IsSet returns whether this type is a foreign set.
func (lt LangType) IsSet() bool {
	return lt.Kind == KindCollection && lt.Coll == CollSet
}

// IsNumeric returns whether this type is a native number (bool included).
func (lt LangType) IsNumeric() bool {
	return lt.Kind == KindInt || lt.Kind == KindDec || lt.Kind == KindBool
}

// Repr returns a representative string of the type for diagnostics and for
// native symbol names.
func (lt LangType) Repr() string {
	switch lt.Kind {
	case KindUnknown:
		return "unknown"
	case KindInt:
		return "int"
	case KindDec:
		return "dec"
	case KindBool:
		return "bool"
	case KindNone:
		return "none"
	case KindObject:
		return fmt.Sprintf("obj%d", lt.ClassID)
	case KindCollection:
		if lt.Coll == CollSet {
			return "set"
		}

		return "list"
	case KindForeign:
		return "pyobj"
	}

	panic(fmt.Sprintf("unhandled type kind %d", lt.Kind))
}

// String includes the hints, unlike Repr.
func (lt LangType) String() string {
	if h := lt.Hints.String(); h != "" {
		return lt.Repr() + "[" + h + "]"
	}

	return lt.Repr()
}

// -----------------------------------------------------------------------------

// SignatureEquals tests whether two argument type lists are structurally
// identical element by element.
func SignatureEquals(a, b []LangType) bool {
	if len(a) != len(b) {
		return false
	}

	for i, t := range a {
		if !t.Equals(b[i]) {
			return false
		}
	}

	return true
}

// SignatureRepr returns the representative string of an argument list.
func SignatureRepr(args []LangType) string {
	reprs := make([]string, len(args))
	for i, t := range args {
		reprs[i] = t.Repr()
	}

	return strings.Join(reprs, ", ")
}

// Merge returns the type a variable must have to hold values of both a and b.
// Structurally equal types merge to themselves without hints; any other pair
// widens to the foreign object type.
func Merge(a, b LangType) LangType {
	if a.Equals(b) {
		return a.Bare()
	}

	return ForeignType()
}
