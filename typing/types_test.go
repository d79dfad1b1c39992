package typing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqualsIgnoresHints(t *testing.T) {
	a := ConstIntType(5).Owned()
	b := IntType()

	assert.True(t, a.Equals(b))
	assert.True(t, b.Equals(a))
	assert.False(t, IntType().Equals(DecType()))
	assert.False(t, ObjType(1).Equals(ObjType(2)))
	assert.True(t, ObjType(3).Equals(ObjType(3).Owned()))
	assert.False(t, ListType().Equals(SetType()))
}

func TestHintsAreCopied(t *testing.T) {
	a := IntType()
	b := a.Owned()

	assert.False(t, a.IsOwned())
	assert.True(t, b.IsOwned())
	assert.False(t, b.Borrowed().IsOwned())
}

func TestConstHint(t *testing.T) {
	c, ok := ConstIntType(42).Const()
	assert.True(t, ok)
	assert.Equal(t, int64(42), c.Int)

	_, ok = ConstIntType(42).WithoutConst().Const()
	assert.False(t, ok)

	_, ok = IntType().Const()
	assert.False(t, ok)

	assert.NotEqual(t, DecConst(1.5).Key(), DecConst(2.5).Key())
	assert.NotEqual(t, IntConst(1).Key(), DecConst(1).Key())
}

func TestRepr(t *testing.T) {
	assert.Equal(t, "int", ConstIntType(1).Repr())
	assert.Equal(t, "obj4", ObjType(4).Repr())
	assert.Equal(t, "set", SetType().Repr())
	assert.Equal(t, "pyobj", ForeignType().Repr())
	assert.Equal(t, "list[owned]", ListType().Owned().String())
	assert.Equal(t, "int, dec", SignatureRepr([]LangType{IntType(), DecType()}))
}

func TestSignatureEquals(t *testing.T) {
	assert.True(t, SignatureEquals(
		[]LangType{ConstIntType(1), ObjType(0).Owned()},
		[]LangType{IntType(), ObjType(0)},
	))
	assert.False(t, SignatureEquals([]LangType{IntType()}, []LangType{IntType(), IntType()}))
	assert.False(t, SignatureEquals([]LangType{IntType()}, []LangType{BoolType()}))
}

func TestMerge(t *testing.T) {
	m := Merge(ConstIntType(1).Owned(), IntType())
	assert.Equal(t, IntType(), m)
	assert.Equal(t, ForeignType(), Merge(IntType(), DecType()))
}

func TestNativeClassification(t *testing.T) {
	assert.True(t, IntType().IsNative())
	assert.True(t, BoolType().IsNative())
	assert.False(t, NoneType().IsNative())
	assert.True(t, NoneType().IsRefCounted())
	assert.False(t, DecType().IsRefCounted())
	assert.True(t, ListType().IsList())
	assert.True(t, SetType().IsSet())
}
