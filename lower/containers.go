package lower

import (
	"flyable/report"
	"flyable/typing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Item is a value along with its type.  Container and call primitives never
// consume items: the caller still releases the owned ones afterwards.
type Item struct {
	Value value.Value
	Type  typing.LangType
}

// NewList creates a new empty list.  The list is owned.
func NewList(ctx Context) (typing.LangType, value.Value) {
	list := CheckException(ctx, Call(ctx, "PyList_New", constant.NewInt(types.I64, 0)))
	return typing.ListType().Owned(), list
}

// ListAppend appends an item to a list.  The list takes its own reference.
func ListAppend(ctx Context, list value.Value, item Item) {
	it, obj := ValueToForeignObject(ctx, item.Value, item.Type.Borrowed())
	CheckErrorCode(ctx, Call(ctx, "PyList_Append", list, obj))
	Release(ctx, obj, it)
}

// BuildList creates a list holding items.
func BuildList(ctx Context, items []Item) (typing.LangType, value.Value) {
	lt, list := NewList(ctx)
	for _, item := range items {
		ListAppend(ctx, list, item)
	}

	return lt, list
}

// ListGetItem returns the item of a list at a native index.  Negative indices
// count from the end and out of range indices raise IndexError.  The item is
// owned.
func ListGetItem(ctx Context, list, index value.Value) (typing.LangType, value.Value) {
	b := ctx.Builder()
	zero := constant.NewInt(types.I64, 0)

	n := CallSafe(ctx, "PyList_Size", list)
	isNeg := b.Block.NewICmp(enum.IPredSLT, index, zero)
	norm := b.Block.NewSelect(isNeg, b.Block.NewAdd(index, n), index)

	// The unsigned comparison also rejects indices still negative.
	inRange := b.Block.NewICmp(enum.IPredULT, norm, n)
	outOfRange := b.NewBlock("index.error")
	ok := b.NewBlock("index.ok")
	b.Block.NewCondBr(inRange, ok, outOfRange)

	b.SetBlock(outOfRange)
	RaiseIndexError(ctx, "list index out of range")
	HandleRaisedException(ctx)

	b.SetBlock(ok)
	item := CheckException(ctx, Call(ctx, "PyList_GetItem", list, norm))
	CallSafe(ctx, "Py_IncRef", item)
	return typing.ForeignType().Owned(), item
}

// NewSet creates a new empty set.  The set is owned.
func NewSet(ctx Context) (typing.LangType, value.Value) {
	set := CheckException(ctx, Call(ctx, "PySet_New", ctx.CodeGen().NullObj()))
	return typing.SetType().Owned(), set
}

// SetAdd adds an item to a set.
func SetAdd(ctx Context, set value.Value, item Item) {
	it, obj := ValueToForeignObject(ctx, item.Value, item.Type.Borrowed())
	CheckErrorCode(ctx, Call(ctx, "PySet_Add", set, obj))
	Release(ctx, obj, it)
}

// BuildSet creates a set holding items.
func BuildSet(ctx Context, items []Item) (typing.LangType, value.Value) {
	st, set := NewSet(ctx)
	for _, item := range items {
		SetAdd(ctx, set, item)
	}

	return st, set
}

// Len returns the native length of a collection.
func Len(ctx Context, coll value.Value, t typing.LangType) value.Value {
	switch {
	case t.IsList():
		return CallSafe(ctx, "PyList_Size", coll)
	case t.IsSet():
		return CallSafe(ctx, "PySet_Size", coll)
	}

	report.ICE("no native length for %s", t)
	return nil
}

// BuildTuple creates a tuple holding items.  The tuple is owned.
func BuildTuple(ctx Context, items []Item) value.Value {
	tuple := CheckException(ctx, Call(ctx, "PyTuple_New", constant.NewInt(types.I64, int64(len(items)))))

	for i, item := range items {
		it, obj := ValueToForeignObject(ctx, item.Value, item.Type.Borrowed())
		Own(ctx, obj, it)

		// The tuple steals the reference even when setting the item fails.
		CheckErrorCode(ctx, Call(ctx, "PyTuple_SetItem", tuple, constant.NewInt(types.I64, int64(i)), obj))
	}

	return tuple
}

// BuildDict creates a dict from pairs of keys and values.  The dict is owned.
func BuildDict(ctx Context, keys, values []Item) value.Value {
	dict := CheckException(ctx, Call(ctx, "PyDict_New"))

	for i := range keys {
		kt, key := ValueToForeignObject(ctx, keys[i].Value, keys[i].Type.Borrowed())
		vt, val := ValueToForeignObject(ctx, values[i].Value, values[i].Type.Borrowed())
		CheckErrorCode(ctx, Call(ctx, "PyDict_SetItem", dict, key, val))
		Release(ctx, key, kt)
		Release(ctx, val, vt)
	}

	return dict
}

// GetItem emits the generic subscript protocol.  The item is owned.
func GetItem(ctx Context, obj, key value.Value) value.Value {
	return CheckException(ctx, Call(ctx, "PyObject_GetItem", obj, key))
}

// SetItem emits the generic subscript assignment protocol.
func SetItem(ctx Context, obj, key, item value.Value) {
	CheckErrorCode(ctx, Call(ctx, "PyObject_SetItem", obj, key, item))
}

// Contains tests membership of item in a container with the sequence
// protocol.
func Contains(ctx Context, container, item value.Value) value.Value {
	res := CheckErrorCode(ctx, Call(ctx, "PySequence_Contains", container, item))
	return ctx.Builder().Block.NewICmp(enum.IPredNE, res, constant.NewInt(types.I32, 0))
}
