package lower

import (
	"fmt"

	"flyable/codegen"
	"flyable/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Incref acquires a new reference to v.  Values of native types are ignored.
func Incref(ctx Context, v value.Value, t typing.LangType) {
	switch t.Kind {
	case typing.KindObject:
		b := ctx.Builder()
		rc := refcntPtr(ctx, v, t)
		cnt := b.Block.NewLoad(types.I64, rc)
		b.Block.NewStore(b.Block.NewAdd(cnt, constant.NewInt(types.I64, 1)), rc)
	case typing.KindNone, typing.KindCollection, typing.KindForeign:
		CallSafe(ctx, "Py_IncRef", v)
	}
}

// Decref drops a reference to v.  Null values are allowed.  User objects are
// deallocated by their generated deallocator when their count reaches zero.
func Decref(ctx Context, v value.Value, t typing.LangType) {
	switch t.Kind {
	case typing.KindObject:
		b := ctx.Builder()
		obj := castPtr(b.Block, v, types.NewPointer(ctx.CodeGen().ClassStruct(t.ClassID)))

		live := b.NewBlock("decref")
		dealloc := b.NewBlock("dealloc")
		done := b.NewBlock("decref.done")

		isNull := b.Block.NewICmp(enum.IPredEQ, obj, constant.NewNull(obj.Type().(*types.PointerType)))
		b.Block.NewCondBr(isNull, done, live)

		b.SetBlock(live)
		rc := refcntPtr(ctx, obj, t)
		cnt := b.Block.NewSub(b.Block.NewLoad(types.I64, rc), constant.NewInt(types.I64, 1))
		b.Block.NewStore(cnt, rc)
		isZero := b.Block.NewICmp(enum.IPredEQ, cnt, constant.NewInt(types.I64, 0))
		b.Block.NewCondBr(isZero, dealloc, done)

		b.SetBlock(dealloc)
		b.Block.NewCall(ObjectDealloc(ctx.CodeGen(), t.ClassID), obj)
		b.Block.NewBr(done)

		b.SetBlock(done)
	case typing.KindNone, typing.KindCollection, typing.KindForeign:
		CallSafe(ctx, "Py_DecRef", v)
	}
}

// Release drops the reference held by v if its type says it is owned.
func Release(ctx Context, v value.Value, t typing.LangType) {
	if t.IsOwned() {
		Decref(ctx, v, t)
	}
}

// Own returns an owned reference to v: borrowed references are incremented.
func Own(ctx Context, v value.Value, t typing.LangType) typing.LangType {
	if !t.IsOwned() && t.IsRefCounted() {
		Incref(ctx, v, t)
	}

	return t.Owned()
}

// refcntPtr returns a pointer to the reference count in the header of a user
// object.
func refcntPtr(ctx Context, v value.Value, t typing.LangType) value.Value {
	b := ctx.Builder()
	st := ctx.CodeGen().ClassStruct(t.ClassID)
	obj := castPtr(b.Block, v, types.NewPointer(st))

	zero := constant.NewInt(types.I32, 0)
	return b.Block.NewGetElementPtr(st, obj, zero, zero)
}

// -----------------------------------------------------------------------------

// ObjectDealloc returns the deallocator of instances of a user class: it
// releases every attribute and frees the object through the runtime
// allocator.
func ObjectDealloc(cg *codegen.CodeGen, classID int) *ir.Func {
	if f, ok := cg.Dealloc[classID]; ok {
		return f
	}

	st := cg.ClassStruct(classID)
	class := cg.Prog.Class(classID)

	self := ir.NewParam("self", types.NewPointer(st))
	f := cg.Mod.NewFunc(fmt.Sprintf("dealloc.%s.%d", class.Name, class.ID), types.Void, self)
	f.Linkage = enum.LinkageInternal
	cg.Dealloc[classID] = f

	b := codegen.NewBuilder(f)
	zero := constant.NewInt(types.I32, 0)
	for i := range class.Attrs {
		field := b.Block.NewGetElementPtr(st, self, zero, constant.NewInt(types.I32, int64(i+2)))
		attr := b.Block.NewLoad(cg.PyObjPtr, field)
		b.Block.NewCall(cg.GetOrCreateFunc("Py_DecRef"), attr)
	}

	mem := b.Block.NewBitCast(self, types.I8Ptr)
	b.Block.NewCall(cg.GetOrCreateFunc("PyObject_Free"), mem)
	b.Block.NewRet(nil)

	return f
}
