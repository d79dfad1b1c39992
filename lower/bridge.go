package lower

import (
	"flyable/report"
	"flyable/typing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// ValueToForeignObject converts a value into a foreign object pointer.  The
// returned type describes the object and whether the caller owns it.
//
// Native numbers are boxed into new objects unless they are known constants,
// in which case the interned pool object is borrowed.  Booleans and None are
// singletons and are always returned owned.  Objects and collections are
// already foreign objects: they keep their ownership.
func ValueToForeignObject(ctx Context, v value.Value, t typing.LangType) (typing.LangType, value.Value) {
	b := ctx.Builder()
	cg := ctx.CodeGen()

	switch t.Kind {
	case typing.KindInt, typing.KindDec:
		if c, ok := t.Const(); ok {
			g := cg.GetOrInsertConst(c)
			return typing.ForeignType(), b.Block.NewLoad(g.ContentType, g)
		}

		name := "PyLong_FromLongLong"
		if t.Kind == typing.KindDec {
			name = "PyFloat_FromDouble"
		}

		obj := CheckException(ctx, Call(ctx, name, v))
		return typing.ForeignType().Owned(), obj
	case typing.KindBool:
		slot := b.Alloca(cg.PyObjPtr, nil)

		onTrue := b.NewBlock("box.true")
		onFalse := b.NewBlock("box.false")
		done := b.NewBlock("box.done")
		b.Block.NewCondBr(v, onTrue, onFalse)

		b.SetBlock(onTrue)
		b.Block.NewStore(singleton(ctx, "_Py_TrueStruct"), slot)
		b.Block.NewBr(done)

		b.SetBlock(onFalse)
		b.Block.NewStore(singleton(ctx, "_Py_FalseStruct"), slot)
		b.Block.NewBr(done)

		b.SetBlock(done)
		obj := b.Block.NewLoad(cg.PyObjPtr, slot)
		CallSafe(ctx, "Py_IncRef", obj)
		return typing.ForeignType().Owned(), obj
	case typing.KindNone:
		obj := NoneObj(ctx)
		CallSafe(ctx, "Py_IncRef", obj)
		return typing.NoneType().Owned(), obj
	case typing.KindObject, typing.KindCollection, typing.KindForeign:
		return t, AsObj(ctx, v)
	}

	report.ICE("cannot convert a value of type %s to a foreign object", t)
	return typing.LangType{}, nil
}

// ForeignObjectToValue converts an owned foreign object into a value of the
// target type and releases the object.  Objects and collections keep the
// reference instead.
func ForeignObjectToValue(ctx Context, obj value.Value, target typing.LangType) value.Value {
	b := ctx.Builder()

	var v value.Value
	switch target.Kind {
	case typing.KindInt:
		v = CheckOccurred(ctx, Call(ctx, "PyLong_AsLongLong", obj))
	case typing.KindDec:
		v = CheckOccurred(ctx, Call(ctx, "PyFloat_AsDouble", obj))
	case typing.KindBool:
		res := CheckErrorCode(ctx, Call(ctx, "PyObject_IsTrue", obj))
		v = b.Block.NewICmp(enum.IPredNE, res, constant.NewInt(types.I32, 0))
	case typing.KindObject:
		return castPtr(b.Block, obj, ctx.CodeGen().ConvType(target))
	case typing.KindNone, typing.KindCollection, typing.KindForeign:
		return obj
	default:
		report.ICE("cannot convert a foreign object to %s", target)
	}

	CallSafe(ctx, "Py_DecRef", obj)
	return v
}

// Truthy returns the native truth value of v.
func Truthy(ctx Context, v value.Value, t typing.LangType) value.Value {
	b := ctx.Builder()

	switch t.Kind {
	case typing.KindInt:
		return b.Block.NewICmp(enum.IPredNE, v, constant.NewInt(types.I64, 0))
	case typing.KindDec:
		return b.Block.NewFCmp(enum.FPredUNE, v, constant.NewFloat(types.Double, 0))
	case typing.KindBool:
		return v
	case typing.KindNone:
		return constant.False
	case typing.KindObject:
		return constant.True
	case typing.KindCollection:
		n := Len(ctx, v, t)
		return b.Block.NewICmp(enum.IPredNE, n, constant.NewInt(types.I64, 0))
	case typing.KindForeign:
		res := CheckErrorCode(ctx, Call(ctx, "PyObject_IsTrue", v))
		return b.Block.NewICmp(enum.IPredNE, res, constant.NewInt(types.I32, 0))
	}

	report.ICE("no truth value for %s", t)
	return nil
}

// NoneObj returns a borrowed reference to the None singleton.
func NoneObj(ctx Context) value.Value {
	return singleton(ctx, "_Py_NoneStruct")
}

// NewNone returns an owned reference to the None singleton.
func NewNone(ctx Context) value.Value {
	obj := NoneObj(ctx)
	CallSafe(ctx, "Py_IncRef", obj)
	return obj
}

// StrLiteral returns a borrowed reference to the interned object of a str or
// bytes literal.
func StrLiteral(ctx Context, s string, isBytes bool) (typing.LangType, value.Value) {
	g := ctx.CodeGen().GetOrInsertStr(s, isBytes)
	return typing.ForeignType(), ctx.Builder().Block.NewLoad(g.ContentType, g)
}

// singleton returns the address of a singleton object of the runtime.
func singleton(ctx Context, name string) value.Value {
	return ctx.CodeGen().GetOrCreateGlobalVar(name)
}
