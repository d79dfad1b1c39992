package lower

import (
	"flyable/codegen"
	"flyable/report"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Raise sets the foreign error indicator to the exception type and value.  A
// nil value raises with an empty string.  Raise does not alter control flow:
// the caller must follow it with HandleRaisedException.
func Raise(ctx Context, typeObj, valueObj value.Value) {
	if valueObj == nil {
		str := ctx.CodeGen().GetOrInsertStr("", false)
		valueObj = ctx.Builder().Block.NewLoad(str.ContentType, str)
	}

	CallSafe(ctx, "PyErr_SetObject", AsObj(ctx, typeObj), AsObj(ctx, valueObj))
}

// ExcType loads a well-known exception type object of the runtime by name (eg.
// `IndexError`).
func ExcType(ctx Context, name string) value.Value {
	g := ctx.CodeGen().GetOrCreateGlobalVar("PyExc_" + name)
	return ctx.Builder().Block.NewLoad(g.ContentType, g)
}

// RaiseNamed raises a well-known exception type with an empty message.
func RaiseNamed(ctx Context, name string) {
	Raise(ctx, ExcType(ctx, name), nil)
}

// RaiseMessage raises a well-known exception type with a message.
func RaiseMessage(ctx Context, name, msg string) {
	CallSafe(ctx, "PyErr_SetString", ExcType(ctx, name), ctx.CodeGen().CString(msg))
}

// RaiseIndexError raises IndexError with msg as its value, or with the empty
// string when msg is empty.
func RaiseIndexError(ctx Context, msg string) {
	if msg == "" {
		RaiseNamed(ctx, "IndexError")
	} else {
		RaiseMessage(ctx, "IndexError", msg)
	}
}

// RaiseAssertionError raises a bare AssertionError for a failed `assert`.
func RaiseAssertionError(ctx Context) {
	RaiseNamed(ctx, "AssertionError")
}

// HandleRaisedException transfers control after an exception has been
// detected: to the active handler target if there is one and otherwise out of
// the function with a null result.  The current block is terminated.
func HandleRaisedException(ctx Context) {
	if target := ctx.HandlerTarget(); target != nil {
		ctx.Builder().Block.NewBr(target)
	} else {
		ctx.ReturnNull()
	}
}

// -----------------------------------------------------------------------------

// CheckNull emits the universal failure check: if v is null, control goes to
// the exception path, otherwise it continues in a new block with v.
func CheckNull(ctx Context, v value.Value) value.Value {
	ptrType, ok := v.Type().(*types.PointerType)
	if !ok {
		report.ICE("null check on non-pointer value of type %s", v.Type())
	}

	isNull := ctx.Builder().Block.NewICmp(enum.IPredEQ, v, constant.NewNull(ptrType))
	branchOnFailure(ctx, isNull)
	return v
}

// CheckException checks the result of a call returning null on failure.
func CheckException(ctx Context, p *Pending) value.Value {
	if p.Mode != codegen.FailNull {
		report.ICE("%s does not return null on failure", p)
	}

	p.resolved = true
	return CheckNull(ctx, p.Value)
}

// CheckErrorCode checks the result of a call returning a negative integer on
// failure.
func CheckErrorCode(ctx Context, p *Pending) value.Value {
	if p.Mode != codegen.FailNegative {
		report.ICE("%s does not return an error code", p)
	}

	p.resolved = true
	isNeg := ctx.Builder().Block.NewICmp(enum.IPredSLT, p.Value, constant.NewInt(p.Value.Type().(*types.IntType), 0))
	branchOnFailure(ctx, isNeg)
	return p.Value
}

// CheckOccurred checks a call whose failure can only be told apart from a
// regular result by querying the error indicator.
func CheckOccurred(ctx Context, p *Pending) value.Value {
	if p.Mode != codegen.FailOccurred {
		report.ICE("%s does not report failure through the error indicator", p)
	}

	p.resolved = true
	checkIndicator(ctx)
	return p.Value
}

// Check discharges p according to its fail mode.
func Check(ctx Context, p *Pending) value.Value {
	switch p.Mode {
	case codegen.FailNull:
		return CheckException(ctx, p)
	case codegen.FailNegative:
		return CheckErrorCode(ctx, p)
	case codegen.FailOccurred:
		return CheckOccurred(ctx, p)
	}

	report.ICE("%s cannot fail", p)
	return nil
}

// checkIndicator branches to the exception path if the error indicator is
// set.
func checkIndicator(ctx Context) {
	occurred := CallSafe(ctx, "PyErr_Occurred")
	isSet := ctx.Builder().Block.NewICmp(enum.IPredNE, occurred, ctx.CodeGen().NullObj())
	branchOnFailure(ctx, isSet)
}

// branchOnFailure emits the conditional branch to a new exception block and
// positions the builder at the continuation.
func branchOnFailure(ctx Context, failed value.Value) {
	b := ctx.Builder()

	excBlock := b.NewBlock("exc")
	contBlock := b.NewBlock("cont")
	b.Block.NewCondBr(failed, excBlock, contBlock)

	b.SetBlock(excBlock)
	HandleRaisedException(ctx)

	b.SetBlock(contBlock)
}
