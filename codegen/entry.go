package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// GenerateEntry builds the native `main` function of the program.  It starts
// the foreign runtime, loads the builtins namespace, materializes the constant
// pool and runs the entry file's module-level implementation.  A null result
// prints the pending exception and exits with status 1.  It must be called
// after every implementation has been generated so the pool is complete.
func (cg *CodeGen) GenerateEntry(entry *ir.Func) *ir.Func {
	mainFunc := cg.Mod.NewFunc("main", types.I32)

	b := NewBuilder(mainFunc)
	fail := b.NewBlock("fail")
	fail.NewCall(cg.GetOrCreateFunc("PyErr_Print"))
	fail.NewRet(constant.NewInt(types.I32, 1))

	// checked continues in a new block if v is not null.
	checked := func(v value.Value) {
		ok := b.NewBlock("ok")
		isNull := b.Block.NewICmp(enum.IPredEQ, v, constant.NewNull(v.Type().(*types.PointerType)))
		b.Block.NewCondBr(isNull, fail, ok)
		b.SetBlock(ok)
	}

	b.Block.NewCall(cg.GetOrCreateFunc("Py_Initialize"))

	builtinsMod := b.Block.NewCall(cg.GetOrCreateFunc("PyImport_ImportModule"), cg.CString("builtins"))
	checked(builtinsMod)

	builtinsDict := b.Block.NewCall(cg.GetOrCreateFunc("PyModule_GetDict"), builtinsMod)
	b.Block.NewStore(builtinsDict, cg.BuiltinsGlobal())

	for _, ci := range cg.constInits {
		var obj *ir.InstCall
		switch ci.kind {
		case constInt:
			obj = b.Block.NewCall(cg.GetOrCreateFunc("PyLong_FromLongLong"), constant.NewInt(types.I64, ci.i))
		case constDec:
			obj = b.Block.NewCall(cg.GetOrCreateFunc("PyFloat_FromDouble"), constant.NewFloat(types.Double, ci.f))
		case constStr:
			obj = b.Block.NewCall(cg.GetOrCreateFunc("PyUnicode_FromStringAndSize"), cg.CString(ci.s), constant.NewInt(types.I64, int64(len(ci.s))))
		case constBytes:
			obj = b.Block.NewCall(cg.GetOrCreateFunc("PyBytes_FromStringAndSize"), cg.CString(ci.s), constant.NewInt(types.I64, int64(len(ci.s))))
		}

		checked(obj)
		b.Block.NewStore(obj, ci.global)
	}

	result := b.Block.NewCall(entry)
	checked(result)

	b.Block.NewCall(cg.GetOrCreateFunc("Py_DecRef"), result)
	b.Block.NewCall(cg.GetOrCreateFunc("Py_FinalizeEx"))
	b.Block.NewRet(constant.NewInt(types.I32, 0))

	return mainFunc
}
