package codegen

import (
	"flyable/report"
	"flyable/typing"

	"github.com/llir/llvm/ir/types"
)

// ConvType converts a semantic type into the native type of its values.
// Native numbers are held in registers; every other type is a pointer to a
// foreign object, and user objects point to their class struct.
func (cg *CodeGen) ConvType(t typing.LangType) types.Type {
	switch t.Kind {
	case typing.KindInt:
		return types.I64
	case typing.KindDec:
		return types.Double
	case typing.KindBool:
		return types.I1
	case typing.KindObject:
		return types.NewPointer(cg.ClassStruct(t.ClassID))
	case typing.KindNone, typing.KindCollection, typing.KindForeign:
		return cg.PyObjPtr
	case typing.KindUnknown:
		report.ICE("unknown type reached code generation")
	}

	report.ICE("unhandled type kind %d", t.Kind)
	return nil
}
