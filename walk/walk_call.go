package walk

import (
	"flyable/builtin"
	"flyable/depm"
	"flyable/lower"
	"flyable/report"
	"flyable/syntax"
	"flyable/typing"

	"github.com/llir/llvm/ir/value"
)

// genCall generates a call.  Calls to classes, functions and methods of the
// program are specialized for their argument types.  Calls to builtins use
// native routines when possible and every other callable is called through
// the generic call protocol.
func (p *Parser) genCall(call *syntax.Call) lower.Item {
	switch fn := call.Func.(type) {
	case *syntax.Name:
		if _, ok := p.lookupVar(fn.Ident); ok {
			break
		}

		if content, ok := p.fs.file.FindContentByName(p.prog, fn.Ident); ok {
			if content.Kind == depm.ContentClass {
				return p.genConstructor(call, p.prog.Class(content.ID))
			}

			return p.genFuncCall(call, p.prog.Func(content.ID))
		}

		args, kwNames, kwValues := p.genArgs(call)
		t, v := builtin.Call(p, fn.Ident, args, kwNames, kwValues)
		p.releaseAll(kwValues)
		p.releaseAll(args)
		return lower.Item{Value: v, Type: t}
	case *syntax.Attribute:
		return p.genMethodCall(call, fn)
	}

	callee := p.genExpr(call.Func)
	result := p.callDynamic(call, callee)
	p.release(callee)
	return result
}

// callDynamic calls a foreign callable with the generic call protocol.
func (p *Parser) callDynamic(call *syntax.Call, callee lower.Item) lower.Item {
	obj := p.box(callee)
	args, kwNames, kwValues := p.genArgs(call)

	v := lower.CallObject(p, obj.Value, args, kwNames, kwValues)

	p.releaseAll(kwValues)
	p.releaseAll(args)
	p.release(obj)
	return lower.Item{Value: v, Type: typing.ForeignType().Owned()}
}

// genArgs evaluates the positional and keyword arguments of a call in source
// order.
func (p *Parser) genArgs(call *syntax.Call) ([]lower.Item, []string, []lower.Item) {
	args := p.genExprs(call.Args)

	var kwNames []string
	var kwValues []lower.Item
	for _, kw := range call.Keywords {
		kwNames = append(kwNames, kw.Name)
		kwValues = append(kwValues, p.genExpr(kw.Value))
	}

	return args, kwNames, kwValues
}

// -----------------------------------------------------------------------------

// genFuncCall calls a function of the program.
func (p *Parser) genFuncCall(call *syntax.Call, f *depm.LangFunc) lower.Item {
	args := p.bindCallArgs(call, f, nil)

	impl, err := p.adapter.AdaptFunc(f, itemTypes(args))
	p.checkAdapt(call, err)

	result := p.callImpl(impl, args)
	p.releaseAll(args)
	return result
}

// genConstructor creates an instance of a user class and runs its
// initializer.
func (p *Parser) genConstructor(call *syntax.Call, class *depm.LangClass) lower.Item {
	init, hasInit := class.FuncByName(p.prog, "__init__")
	if !hasInit && (len(call.Args) > 0 || len(call.Keywords) > 0) {
		p.raise(call.Span(), "`%s` takes no arguments", class.Name)
	}

	class.Instantiated = true
	t, obj := lower.NewObject(p, class.ID)
	self := lower.Item{Value: obj, Type: t}

	if hasInit {
		args := p.bindCallArgs(call, init, []lower.Item{{Value: obj, Type: t.Borrowed()}})

		impl, err := p.adapter.AdaptFunc(init, itemTypes(args))
		p.checkAdapt(call, err)

		p.release(p.callImpl(impl, args))
		p.releaseAll(args[1:])
	}

	return self
}

// genMethodCall calls a method.  Methods of user objects are specialized;
// `append` on lists and `add` on sets are native.  Any other method is looked
// up at runtime.
func (p *Parser) genMethodCall(call *syntax.Call, attr *syntax.Attribute) lower.Item {
	if name, ok := attr.Value.(*syntax.Name); ok && !p.isVarName(name.Ident) {
		if content, ok := p.fs.file.FindContentByName(p.prog, name.Ident); ok && content.Kind == depm.ContentClass {
			p.raise(attr.Span(), "methods of `%s` must be called on an instance", name.Ident)
		}
	}

	recv := p.genExpr(attr.Value)
	result := p.callOn(call, attr, recv)
	p.release(recv)
	return result
}

func (p *Parser) callOn(call *syntax.Call, attr *syntax.Attribute, recv lower.Item) lower.Item {
	switch {
	case recv.Type.Kind == typing.KindObject:
		class := p.prog.Class(recv.Type.ClassID)
		if _, ok := class.FuncByName(p.prog, attr.Attr); ok {
			return p.callMethod(call, attr, recv)
		}
	case recv.Type.IsList() && attr.Attr == "append" && p.isSingleArg(call):
		arg := p.genExpr(call.Args[0])
		lower.ListAppend(p, recv.Value, arg)
		p.release(arg)
		return lower.Item{Value: lower.NoneObj(p), Type: typing.NoneType()}
	case recv.Type.IsSet() && attr.Attr == "add" && p.isSingleArg(call):
		arg := p.genExpr(call.Args[0])
		lower.SetAdd(p, recv.Value, arg)
		p.release(arg)
		return lower.Item{Value: lower.NoneObj(p), Type: typing.NoneType()}
	}

	callee := p.loadAttr(recv, attr)
	result := p.callDynamic(call, callee)
	p.release(callee)
	return result
}

// callMethod calls a method of a user object.  The receiver is passed as the
// first argument.
func (p *Parser) callMethod(call *syntax.Call, attr *syntax.Attribute, recv lower.Item) lower.Item {
	f, _ := p.prog.Class(recv.Type.ClassID).FuncByName(p.prog, attr.Attr)
	args := p.bindCallArgs(call, f, []lower.Item{{Value: recv.Value, Type: recv.Type.Borrowed()}})

	target, err := p.adapter.AdaptCall(attr.Attr, recv.Type, itemTypes(args[1:]))
	p.checkAdapt(call, err)
	if target.Impl == nil {
		report.ICE("method `%s` found but not adapted", attr.Attr)
	}

	result := p.callImpl(target.Impl, args)
	p.releaseAll(args[1:])
	return result
}

func (p *Parser) isSingleArg(call *syntax.Call) bool {
	return len(call.Args) == 1 && len(call.Keywords) == 0
}

func (p *Parser) isVarName(name string) bool {
	_, ok := p.lookupVar(name)
	return ok
}

// bindCallArgs evaluates the arguments of a call to f and places keyword
// arguments at the position of the parameter they name.  The prefix items are
// passed first and are not evaluated.
func (p *Parser) bindCallArgs(call *syntax.Call, f *depm.LangFunc, prefix []lower.Item) []lower.Item {
	args := append([]lower.Item(nil), prefix...)
	args = append(args, p.genExprs(call.Args)...)

	if len(call.Keywords) == 0 {
		return args
	}

	var fixed []*syntax.Param
	for _, param := range f.Params {
		if !param.Variadic {
			fixed = append(fixed, param)
		}
	}

	qualName := f.QualName(p.prog)
	byIndex := make(map[int]lower.Item)
	last := -1
	for _, kw := range call.Keywords {
		index := -1
		for i, param := range fixed {
			if param.Name == kw.Name {
				index = i
				break
			}
		}

		if index == -1 {
			p.raise(kw.Span(), "`%s` got an unexpected keyword argument `%s`", qualName, kw.Name)
		}

		if _, dup := byIndex[index]; dup || index < len(args) {
			p.raise(kw.Span(), "`%s` got multiple values for argument `%s`", qualName, kw.Name)
		}

		byIndex[index] = p.genExpr(kw.Value)
		last = max(last, index)
	}

	for i := len(args); i <= last; i++ {
		item, ok := byIndex[i]
		if !ok {
			p.raise(call.Span(), "`%s` is missing argument `%s` before its keyword arguments", qualName, fixed[i].Name)
		}

		args = append(args, item)
	}

	return args
}

// checkAdapt reports a failed adaptation as an error of the call.
func (p *Parser) checkAdapt(call *syntax.Call, err error) {
	if err != nil {
		p.raise(call.Span(), "%s", err)
	}
}

func itemTypes(items []lower.Item) []typing.LangType {
	ts := make([]typing.LangType, len(items))
	for i, item := range items {
		ts[i] = item.Type
	}

	return ts
}

// -----------------------------------------------------------------------------

// callImpl calls the native function of an implementation.  Arguments are
// borrowed by the callee.  The result of an implementation whose body has been
// fully generated is converted to its return type; the result of one still
// being generated, a recursive call, stays a foreign object.
func (p *Parser) callImpl(impl *depm.FuncImpl, args []lower.Item) lower.Item {
	llFunc, ok := p.cg.ImplFunc(impl)
	if !ok {
		report.ICE("call to undeclared implementation %d", impl.ID)
	}

	vals := make([]value.Value, len(args))
	for i, arg := range args {
		vals[i] = arg.Value
		if !impl.Args[i].IsNative() {
			vals[i] = p.castTo(arg.Value, llFunc.Params[i].Typ)
		}
	}

	res := lower.CheckNull(p, p.fs.b.Block.NewCall(llFunc, vals...))

	if impl.Status != depm.Ended || !impl.HasRet {
		return lower.Item{Value: res, Type: typing.ForeignType().Owned()}
	}

	rt := impl.RetType.Bare()
	v := lower.ForeignObjectToValue(p, res, rt)
	if rt.IsRefCounted() {
		rt = rt.Owned()
	}

	return lower.Item{Value: v, Type: rt}
}
