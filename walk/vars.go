package walk

import (
	"flyable/depm"
	"flyable/lower"
	"flyable/report"
	"flyable/typing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// lookupVar looks up a variable visible by name: a local of the current
// implementation or a variable of the module.
func (p *Parser) lookupVar(name string) (*depm.Variable, bool) {
	if v, ok := p.fs.impl.Context.Lookup(name); ok {
		return v, true
	}

	if !p.fs.fn.IsGlobal {
		if mi, ok := p.moduleImpl(p.fs.file); ok {
			return mi.Context.Lookup(name)
		}
	}

	return nil, false
}

// moduleImpl returns the module-level implementation of file in the current
// pass if it has been created.
func (p *Parser) moduleImpl(file *depm.LangFile) (*depm.FuncImpl, bool) {
	return p.prog.Func(file.Global).FindImpl(p.prog, nil)
}

// declareVar declares a variable of the current function.  Variables marked
// dynamic by a previous pass are always foreign objects.  Module-level
// variables are stored in globals and other variables in stack slots.
func (p *Parser) declareVar(name string, t typing.LangType) *depm.Variable {
	fs := p.fs

	t = t.Bare()
	if fs.fn.DynamicVars[name] {
		t = typing.ForeignType()
	}

	v := &depm.Variable{Name: name, Type: t}
	if fs.fn.IsGlobal {
		v.Storage = p.cg.ModuleVar(fs.file, name, t)
		v.IsGlobal = true
	} else {
		slot := fs.b.Alloca(p.cg.ConvType(t), p.zeroValue(t))
		v.Storage = slot

		if t.IsRefCounted() {
			fs.slots = append(fs.slots, ownedSlot{slot: slot, typ: t})
		}
	}

	if !fs.impl.Context.Declare(v) {
		report.ICE("variable `%s` declared twice", name)
	}

	return v
}

// assignName assigns an item to the variable name, declaring it on first
// assignment.
func (p *Parser) assignName(name string, item lower.Item, span *report.TextSpan) {
	v, ok := p.fs.impl.Context.Lookup(name)
	if !ok {
		if _, isContent := p.fs.file.FindContentByName(p.prog, name); isContent && p.fs.fn.IsGlobal {
			p.raise(span, "cannot assign to `%s`: it names a class or function", name)
		}

		v = p.declareVar(name, item.Type)
	}

	p.storeVar(v, item, name)
}

// storeVar stores an item into a variable.  The item is not consumed: the
// variable acquires its own reference and releases its previous value.  An
// item of another type is boxed into a dynamic variable; any other type
// mismatch restarts the pass with the variable marked dynamic.
func (p *Parser) storeVar(v *depm.Variable, item lower.Item, name string) {
	b := p.fs.b

	val, t := item.Value, item.Type.Borrowed()
	if !t.Equals(v.Type) {
		if v.Type.Kind != typing.KindForeign {
			p.restart(name)
		}

		t, val = lower.ValueToForeignObject(p, val, t)
	}

	llType := p.cg.ConvType(v.Type)
	if !v.Type.IsRefCounted() {
		b.Block.NewStore(val, v.Storage)
		return
	}

	lower.Own(p, val, t)

	old := b.Block.NewLoad(llType, v.Storage)
	b.Block.NewStore(p.castTo(val, llType), v.Storage)
	lower.Decref(p, old, v.Type)
}

// loadVar loads the value of a variable.  The result is borrowed.
func (p *Parser) loadVar(v *depm.Variable) lower.Item {
	val := p.fs.b.Block.NewLoad(p.cg.ConvType(v.Type), v.Storage)
	return lower.Item{Value: val, Type: v.Type.Borrowed()}
}

// restart marks a variable of the current function dynamic and aborts the
// pass.
func (p *Parser) restart(name string) {
	fn := p.fs.fn
	fn.MarkDynamic(name)

	qualName := fn.QualName(p.prog)
	report.ReportTrace("variable `%s` of `%s` is dynamic", name, qualName)
	panic(&Restart{Func: qualName, Var: name})
}

// -----------------------------------------------------------------------------

// zeroValue returns the initial value of a slot of type t.
func (p *Parser) zeroValue(t typing.LangType) value.Value {
	switch t.Kind {
	case typing.KindInt:
		return constant.NewInt(types.I64, 0)
	case typing.KindDec:
		return constant.NewFloat(types.Double, 0)
	case typing.KindBool:
		return constant.False
	}

	return constant.NewNull(p.cg.ConvType(t).(*types.PointerType))
}

// castTo reinterprets a pointer as another pointer type if they differ.
func (p *Parser) castTo(v value.Value, t types.Type) value.Value {
	if v.Type().Equal(t) {
		return v
	}

	return p.fs.b.Block.NewBitCast(v, t)
}
