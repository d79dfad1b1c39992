package lower

import (
	"fmt"

	"flyable/typing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// NewObject allocates an instance of a user class through the runtime
// allocator.  The header holds one reference and every attribute is unset.
// The object is owned.
func NewObject(ctx Context, classID int) (typing.LangType, value.Value) {
	cg := ctx.CodeGen()
	b := ctx.Builder()

	st := cg.ClassStruct(classID)
	ptrType := types.NewPointer(st)

	// sizeof(st) as `getelementptr (st, st* null, i64 1)`.
	size := constant.NewPtrToInt(
		constant.NewGetElementPtr(st, constant.NewNull(ptrType), constant.NewInt(types.I64, 1)),
		types.I64,
	)

	p := Call(ctx, "PyObject_Malloc", size)
	p.Resolve()

	noMem := b.NewBlock("nomem")
	ok := b.NewBlock("alloc.ok")
	isNull := b.Block.NewICmp(enum.IPredEQ, p.Value, constant.NewNull(types.I8Ptr))
	b.Block.NewCondBr(isNull, noMem, ok)

	// The allocator does not set the error indicator itself.
	b.SetBlock(noMem)
	CallSafe(ctx, "PyErr_NoMemory")
	HandleRaisedException(ctx)

	b.SetBlock(ok)
	obj := b.Block.NewBitCast(p.Value, ptrType)

	zero := constant.NewInt(types.I32, 0)
	field := func(i int) value.Value {
		return b.Block.NewGetElementPtr(st, obj, zero, constant.NewInt(types.I32, int64(i)))
	}

	b.Block.NewStore(constant.NewInt(types.I64, 1), field(0))

	baseType := cg.GetOrCreateGlobalVar("PyBaseObject_Type")
	b.Block.NewStore(constant.NewBitCast(baseType, types.I8Ptr), field(1))

	for i := range cg.Prog.Class(classID).Attrs {
		b.Block.NewStore(cg.NullObj(), field(i+2))
	}

	return cg.Prog.Class(classID).ObjType().Owned(), obj
}

// attrPtr returns a pointer to the slot of an attribute of a user object.
func attrPtr(ctx Context, obj value.Value, classID, index int) value.Value {
	b := ctx.Builder()
	st := ctx.CodeGen().ClassStruct(classID)

	zero := constant.NewInt(types.I32, 0)
	return b.Block.NewGetElementPtr(st, castPtr(b.Block, obj, types.NewPointer(st)), zero, constant.NewInt(types.I32, int64(index+2)))
}

// GetObjAttr reads an attribute of a user object.  AttributeError is raised
// if the attribute was never set.  The result is owned.
func GetObjAttr(ctx Context, obj value.Value, classID int, name string) (typing.LangType, value.Value) {
	cg := ctx.CodeGen()
	b := ctx.Builder()
	class := cg.Prog.Class(classID)

	index, _ := class.AttrIndex(name)
	attr := b.Block.NewLoad(cg.PyObjPtr, attrPtr(ctx, obj, classID, index))

	unset := b.NewBlock("attr.error")
	ok := b.NewBlock("attr.ok")
	isNull := b.Block.NewICmp(enum.IPredEQ, attr, cg.NullObj())
	b.Block.NewCondBr(isNull, unset, ok)

	b.SetBlock(unset)
	RaiseMessage(ctx, "AttributeError", fmt.Sprintf("'%s' object has no attribute '%s'", class.Name, name))
	HandleRaisedException(ctx)

	b.SetBlock(ok)
	CallSafe(ctx, "Py_IncRef", attr)
	return typing.ForeignType().Owned(), attr
}

// SetObjAttr stores a value into an attribute of a user object.  The object
// takes its own reference and the previous value is released.
func SetObjAttr(ctx Context, obj value.Value, classID int, name string, v value.Value, t typing.LangType) {
	cg := ctx.CodeGen()
	b := ctx.Builder()

	index, _ := cg.Prog.Class(classID).AttrIndex(name)
	slot := attrPtr(ctx, obj, classID, index)

	vt, fobj := ValueToForeignObject(ctx, v, t.Borrowed())
	Own(ctx, fobj, vt)

	old := b.Block.NewLoad(cg.PyObjPtr, slot)
	b.Block.NewStore(AsObj(ctx, fobj), slot)
	CallSafe(ctx, "Py_DecRef", old)
}
