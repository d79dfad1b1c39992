// Package builtin resolves calls to the builtin functions of the runtime.  A
// small table of builtins have native routines for statically known argument
// types; everything else is called dynamically through the builtins namespace.
package builtin

import (
	"flyable/lower"
	"flyable/typing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// routine is the native implementation of a builtin.  It returns false if it
// declines to handle the argument types in which case the generic call is
// emitted instead.  A routine must not emit any instruction before accepting.
type routine func(ctx lower.Context, args []lower.Item) (typing.LangType, value.Value, bool)

var routines = map[string]routine{
	"list":  genList,
	"set":   genSet,
	"len":   genLen,
	"int":   genInt,
	"float": genFloat,
	"bool":  genBool,
	"abs":   genAbs,
}

// IsOptimized returns whether a call to the builtin name with the given
// argument types would be handled natively.
func IsOptimized(name string, args []typing.LangType) bool {
	switch name {
	case "list", "set":
		return len(args) == 0
	case "len":
		return len(args) == 1 && args[0].Kind == typing.KindCollection
	case "int", "float", "abs":
		return len(args) == 1 && args[0].IsNumeric()
	case "bool":
		return len(args) == 1 && args[0].Kind != typing.KindForeign
	}

	return false
}

// Call emits a call to the builtin name.  The result is owned when it is a
// foreign object.
func Call(ctx lower.Context, name string, args []lower.Item, kwNames []string, kwValues []lower.Item) (typing.LangType, value.Value) {
	if len(kwNames) == 0 {
		argTypes := make([]typing.LangType, len(args))
		for i, arg := range args {
			argTypes[i] = arg.Type
		}

		if IsOptimized(name, argTypes) {
			if rt, v, ok := routines[name](ctx, args); ok {
				return rt, v
			}
		}
	}

	return CallGeneric(ctx, name, args, kwNames, kwValues)
}

// CallGeneric calls the builtin name through the builtins namespace using the
// generic call protocol.
func CallGeneric(ctx lower.Context, name string, args []lower.Item, kwNames []string, kwValues []lower.Item) (typing.LangType, value.Value) {
	callable := lower.LookupBuiltin(ctx, name)
	return typing.ForeignType().Owned(), lower.CallObject(ctx, callable, args, kwNames, kwValues)
}

// -----------------------------------------------------------------------------

func genList(ctx lower.Context, args []lower.Item) (typing.LangType, value.Value, bool) {
	lt, list := lower.NewList(ctx)
	return lt, list, true
}

func genSet(ctx lower.Context, args []lower.Item) (typing.LangType, value.Value, bool) {
	st, set := lower.NewSet(ctx)
	return st, set, true
}

func genLen(ctx lower.Context, args []lower.Item) (typing.LangType, value.Value, bool) {
	coll := args[0]
	if !coll.Type.IsList() && !coll.Type.IsSet() {
		return typing.LangType{}, nil, false
	}

	return typing.IntType(), lower.Len(ctx, coll.Value, coll.Type), true
}

func genInt(ctx lower.Context, args []lower.Item) (typing.LangType, value.Value, bool) {
	arg := args[0]
	if arg.Type.Kind == typing.KindInt {
		return arg.Type, arg.Value, true
	}

	// Truncation toward zero like int() on floats.  Non finite values are
	// left to the generic call.
	if c, ok := arg.Type.Const(); ok && c.Kind == typing.ConstDec {
		return typing.ConstIntType(int64(c.Dec)), constant.NewInt(types.I64, int64(c.Dec)), true
	}

	return typing.LangType{}, nil, false
}

func genFloat(ctx lower.Context, args []lower.Item) (typing.LangType, value.Value, bool) {
	arg := args[0]
	if arg.Type.Kind == typing.KindDec {
		return arg.Type, arg.Value, true
	}

	return typing.DecType(), ctx.Builder().Block.NewSIToFP(arg.Value, types.Double), true
}

func genBool(ctx lower.Context, args []lower.Item) (typing.LangType, value.Value, bool) {
	return typing.BoolType(), lower.Truthy(ctx, args[0].Value, args[0].Type), true
}

func genAbs(ctx lower.Context, args []lower.Item) (typing.LangType, value.Value, bool) {
	arg := args[0]
	block := ctx.Builder().Block

	if arg.Type.Kind == typing.KindInt {
		isNeg := block.NewICmp(enum.IPredSLT, arg.Value, constant.NewInt(types.I64, 0))
		neg := block.NewSub(constant.NewInt(types.I64, 0), arg.Value)
		return typing.IntType(), block.NewSelect(isNeg, neg, arg.Value), true
	}

	isNeg := block.NewFCmp(enum.FPredOLT, arg.Value, constant.NewFloat(types.Double, 0))
	return typing.DecType(), block.NewSelect(isNeg, block.NewFNeg(arg.Value), arg.Value), true
}
