package lower

import (
	"fmt"

	"flyable/codegen"
	"flyable/report"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Context is the state of the function being generated that lowering
// primitives need.  It is implemented by the visitor.
type Context interface {
	// CodeGen returns the module-level code generation context.
	CodeGen() *codegen.CodeGen

	// Builder returns the instruction builder of the current function.
	Builder() *codegen.Builder

	// HandlerTarget returns the block receiving control when an exception is
	// detected or nil if no handler is active.
	HandlerTarget() *ir.Block

	// ReturnNull terminates the current block by returning null from the
	// current function through its normal exit path.
	ReturnNull()

	// Track registers the check obligation of a fallible foreign call.
	Track(p *Pending)
}

// Pending is the obligation to check the foreign error indicator after a
// fallible foreign call.  Every Pending must be resolved by one of the check
// primitives before the statement that created it is finished.
type Pending struct {
	// Value is the result of the call.
	Value value.Value

	// Func is the name of the called entry point.
	Func string

	// Mode is how the entry point reports failure.
	Mode codegen.FailMode

	resolved bool
}

// Resolved returns whether the obligation has been discharged.
func (p *Pending) Resolved() bool {
	return p.resolved
}

// Resolve marks the obligation as discharged by code that inspects the result
// itself (eg. the iteration protocol).
func (p *Pending) Resolve() {
	p.resolved = true
}

func (p *Pending) String() string {
	return fmt.Sprintf("call to %s", p.Func)
}

// -----------------------------------------------------------------------------

// Call emits a call to a fallible foreign entry point.  The returned
// obligation is tracked by ctx and must be checked.
func Call(ctx Context, name string, args ...value.Value) *Pending {
	cg := ctx.CodeGen()
	sig, ok := cg.Foreign(name)
	if !ok {
		report.ICE("`%s` is not part of the foreign ABI", name)
	} else if sig.Fail == codegen.FailNever {
		report.ICE("`%s` cannot fail and must be called with CallSafe", name)
	}

	p := &Pending{
		Value: emitCall(ctx, name, sig, args),
		Func:  name,
		Mode:  sig.Fail,
	}
	ctx.Track(p)
	return p
}

// CallSafe emits a call to a foreign entry point that cannot fail.
func CallSafe(ctx Context, name string, args ...value.Value) value.Value {
	sig, ok := ctx.CodeGen().Foreign(name)
	if !ok {
		report.ICE("`%s` is not part of the foreign ABI", name)
	} else if sig.Fail != codegen.FailNever {
		report.ICE("`%s` can fail and must be called with Call", name)
	}

	return emitCall(ctx, name, sig, args)
}

// emitCall emits the call itself, reinterpreting pointer arguments as the
// parameter types of the entry point.
func emitCall(ctx Context, name string, sig codegen.ForeignSig, args []value.Value) value.Value {
	if len(args) != len(sig.Params) {
		report.ICE("`%s` takes %d arguments but got %d", name, len(sig.Params), len(args))
	}

	block := ctx.Builder().Block
	cast := make([]value.Value, len(args))
	for i, arg := range args {
		cast[i] = castPtr(block, arg, sig.Params[i])
	}

	return block.NewCall(ctx.CodeGen().GetOrCreateFunc(name), cast...)
}

// castPtr reinterprets a pointer as another pointer type when they differ.
func castPtr(block *ir.Block, v value.Value, to types.Type) value.Value {
	if v.Type().Equal(to) {
		return v
	}

	if _, ok := v.Type().(*types.PointerType); ok {
		if _, ok := to.(*types.PointerType); ok {
			return block.NewBitCast(v, to)
		}
	}

	report.ICE("cannot pass a value of type %s as %s", v.Type(), to)
	return nil
}

// AsObj reinterprets a pointer value as the generic foreign object pointer.
func AsObj(ctx Context, v value.Value) value.Value {
	return castPtr(ctx.Builder().Block, v, ctx.CodeGen().PyObjPtr)
}
