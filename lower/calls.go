package lower

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
)

// GetAttr fetches an attribute of a foreign object by name.  The result is
// owned.
func GetAttr(ctx Context, obj value.Value, name string) value.Value {
	return CheckException(ctx, Call(ctx, "PyObject_GetAttrString", obj, ctx.CodeGen().CString(name)))
}

// SetAttr sets an attribute of a foreign object by name.
func SetAttr(ctx Context, obj value.Value, name string, v value.Value) {
	CheckErrorCode(ctx, Call(ctx, "PyObject_SetAttrString", obj, ctx.CodeGen().CString(name), v))
}

// CallObject calls a foreign callable with the generic call protocol.  Keyword
// arguments are passed as a dict when kwNames is not empty.  The result is
// owned.
func CallObject(ctx Context, callable value.Value, args []Item, kwNames []string, kwValues []Item) value.Value {
	cg := ctx.CodeGen()

	argTuple := BuildTuple(ctx, args)

	var kwDict value.Value = cg.NullObj()
	if len(kwNames) > 0 {
		keys := make([]Item, len(kwNames))
		for i, name := range kwNames {
			kt, key := StrLiteral(ctx, name, false)
			keys[i] = Item{Value: key, Type: kt}
		}

		kwDict = BuildDict(ctx, keys, kwValues)
	}

	p := Call(ctx, "PyObject_Call", callable, argTuple, kwDict)

	// Releasing the arguments does not touch the error indicator.
	CallSafe(ctx, "Py_DecRef", argTuple)
	if len(kwNames) > 0 {
		CallSafe(ctx, "Py_DecRef", kwDict)
	}

	return CheckException(ctx, p)
}

// LookupBuiltin looks up a name in the builtins namespace.  NameError is raised
// if it does not exist.  The result is borrowed.
func LookupBuiltin(ctx Context, name string) value.Value {
	cg := ctx.CodeGen()
	b := ctx.Builder()

	g := cg.BuiltinsGlobal()
	dict := b.Block.NewLoad(g.ContentType, g)
	obj := CallSafe(ctx, "PyDict_GetItemString", dict, cg.CString(name))

	missing := b.NewBlock("name.error")
	found := b.NewBlock("name.ok")
	isNull := b.Block.NewICmp(enum.IPredEQ, obj, constant.NewNull(cg.PyObjPtr))
	b.Block.NewCondBr(isNull, missing, found)

	b.SetBlock(missing)
	RaiseMessage(ctx, "NameError", fmt.Sprintf("name '%s' is not defined", name))
	HandleRaisedException(ctx)

	b.SetBlock(found)
	return obj
}

// ImportModule imports a module by its dotted name.  The module is owned.
func ImportModule(ctx Context, name string) value.Value {
	return CheckException(ctx, Call(ctx, "PyImport_ImportModule", ctx.CodeGen().CString(name)))
}
