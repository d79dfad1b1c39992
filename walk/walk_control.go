package walk

import (
	"flyable/builtin"
	"flyable/lower"
	"flyable/syntax"
	"flyable/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// genCond generates a condition and returns its native truth value.
func (p *Parser) genCond(expr syntax.ASTExpr) value.Value {
	item := p.genExpr(expr)
	cond := lower.Truthy(p, item.Value, item.Type)
	p.release(item)
	return cond
}

// genIf generates an if statement.  `elif` is a nested if in the else block.
func (p *Parser) genIf(ifStmt *syntax.If) {
	b := p.fs.b

	cond := p.genCond(ifStmt.Cond)
	thenBlock := b.NewBlock("if.then")
	endBlock := b.NewBlock("if.end")

	elseBlock := endBlock
	if len(ifStmt.Else) > 0 {
		elseBlock = b.NewBlock("if.else")
	}

	b.Block.NewCondBr(cond, thenBlock, elseBlock)

	b.SetBlock(thenBlock)
	p.genBlock(ifStmt.Body)
	b.Br(endBlock)

	if len(ifStmt.Else) > 0 {
		b.SetBlock(elseBlock)
		p.genBlock(ifStmt.Else)
		b.Br(endBlock)
	}

	b.SetBlock(endBlock)
}

// genWhile generates a while loop.  The else block runs when the condition
// becomes false but not on `break`.
func (p *Parser) genWhile(while *syntax.While) {
	b := p.fs.b

	header := b.NewBlock("while.cond")
	body := b.NewBlock("while.body")
	end := b.NewBlock("while.end")

	exitBlock := end
	if len(while.Else) > 0 {
		exitBlock = b.NewBlock("while.else")
	}

	b.Br(header)
	b.SetBlock(header)
	b.Block.NewCondBr(p.genCond(while.Cond), body, exitBlock)

	b.SetBlock(body)
	p.genLoopBody(while.Body, header, end)
	b.Br(header)

	p.genLoopElse(while.Else, exitBlock, end)
}

// genLoopBody generates the body of a loop with its continue and break
// targets.
func (p *Parser) genLoopBody(body []syntax.ASTStmt, cont, brk *ir.Block) {
	p.fs.loops = append(p.fs.loops, loopTargets{cont: cont, brk: brk})
	p.genBlock(body)
	p.fs.loops = p.fs.loops[:len(p.fs.loops)-1]
}

// genLoopElse generates the else block of a loop if it has one and positions
// the builder at the end of the loop.
func (p *Parser) genLoopElse(elseBody []syntax.ASTStmt, elseBlock, end *ir.Block) {
	b := p.fs.b

	if elseBlock != end {
		b.SetBlock(elseBlock)
		p.genBlock(elseBody)
		b.Br(end)
	}

	b.SetBlock(end)
}

// -----------------------------------------------------------------------------

// genFor generates a for loop.  Loops over `range` with native integer bounds
// are native counting loops; every other loop uses the iteration protocol.
func (p *Parser) genFor(f *syntax.For) {
	target, ok := f.Target.(*syntax.Name)
	if !ok {
		p.raise(f.Target.Span(), "loop targets must be names")
	}

	call, ok := p.rangeCall(f.Iter)
	if !ok {
		iterable := p.genExpr(f.Iter)
		p.genIterLoop(f, target, iterable)
		p.release(iterable)
		return
	}

	args := make([]lower.Item, len(call.Args))
	for i, arg := range call.Args {
		args[i] = p.genExpr(arg)
	}

	if p.genRangeLoop(f, target, args) {
		return
	}

	rt, rv := builtin.CallGeneric(p, "range", args, nil, nil)
	for _, arg := range args {
		p.release(arg)
	}

	iterable := lower.Item{Value: rv, Type: rt}
	p.genIterLoop(f, target, iterable)
	p.release(iterable)
}

// rangeCall returns the call if expr calls the builtin range with positional
// arguments only.
func (p *Parser) rangeCall(expr syntax.ASTExpr) (*syntax.Call, bool) {
	call, ok := expr.(*syntax.Call)
	if !ok || len(call.Keywords) > 0 || len(call.Args) < 1 || len(call.Args) > 3 {
		return nil, false
	}

	name, ok := call.Func.(*syntax.Name)
	if !ok || name.Ident != "range" || p.isProgramName("range") {
		return nil, false
	}

	return call, true
}

// genRangeLoop generates a native counting loop.  It declines, without
// generating anything, unless every bound is a native integer and the step is
// a nonzero constant.
func (p *Parser) genRangeLoop(f *syntax.For, target *syntax.Name, args []lower.Item) bool {
	for _, arg := range args {
		if arg.Type.Kind != typing.KindInt {
			return false
		}
	}

	var step int64 = 1
	if len(args) == 3 {
		c, ok := args[2].Type.Const()
		if !ok || c.Int == 0 {
			return false
		}

		step = c.Int
	}

	var start, stop value.Value = constant.NewInt(types.I64, 0), args[0].Value
	if len(args) > 1 {
		start, stop = args[0].Value, args[1].Value
	}

	b := p.fs.b
	counter := b.Alloca(types.I64, nil)
	b.Block.NewStore(start, counter)

	header := b.NewBlock("for.cond")
	body := b.NewBlock("for.body")
	latch := b.NewBlock("for.next")
	end := b.NewBlock("for.end")

	exitBlock := end
	if len(f.Else) > 0 {
		exitBlock = b.NewBlock("for.else")
	}

	b.Block.NewBr(header)
	b.SetBlock(header)

	pred := enum.IPredSLT
	if step < 0 {
		pred = enum.IPredSGT
	}

	i := b.Block.NewLoad(types.I64, counter)
	b.Block.NewCondBr(b.Block.NewICmp(pred, i, stop), body, exitBlock)

	b.SetBlock(body)
	p.assignName(target.Ident, lower.Item{Value: i, Type: typing.IntType()}, target.Span())
	p.genLoopBody(f.Body, latch, end)
	b.Br(latch)

	b.SetBlock(latch)
	next := b.Block.NewAdd(b.Block.NewLoad(types.I64, counter), constant.NewInt(types.I64, step))
	b.Block.NewStore(next, counter)
	b.Block.NewBr(header)

	p.genLoopElse(f.Else, exitBlock, end)
	return true
}

// genIterLoop generates a loop with the iteration protocol.  The iterator is
// held by a slot of the function and released when the loop ends.
func (p *Parser) genIterLoop(f *syntax.For, target *syntax.Name, iterable lower.Item) {
	b := p.fs.b

	obj := p.box(iterable)
	iter := lower.CheckException(p, lower.Call(p, "PyObject_GetIter", obj.Value))
	p.release(obj)

	iterSlot := p.hiddenSlot()
	lower.CallSafe(p, "Py_DecRef", b.Block.NewLoad(p.cg.PyObjPtr, iterSlot))
	b.Block.NewStore(iter, iterSlot)

	header := b.NewBlock("for.next")
	body := b.NewBlock("for.body")
	exhausted := b.NewBlock("for.exhausted")
	failed := b.NewBlock("for.error")
	end := b.NewBlock("for.end")

	exitBlock := end
	if len(f.Else) > 0 {
		exitBlock = b.NewBlock("for.else")
	}

	b.Block.NewBr(header)
	b.SetBlock(header)

	// A null item either ends the loop or reports an error.
	next := lower.Call(p, "PyIter_Next", b.Block.NewLoad(p.cg.PyObjPtr, iterSlot))
	next.Resolve()
	isNull := b.Block.NewICmp(enum.IPredEQ, next.Value, p.cg.NullObj())
	b.Block.NewCondBr(isNull, exhausted, body)

	b.SetBlock(exhausted)
	occurred := lower.CallSafe(p, "PyErr_Occurred")
	b.Block.NewCondBr(b.Block.NewICmp(enum.IPredNE, occurred, p.cg.NullObj()), failed, exitBlock)

	b.SetBlock(failed)
	lower.HandleRaisedException(p)

	b.SetBlock(body)
	item := lower.Item{Value: next.Value, Type: typing.ForeignType().Owned()}
	p.assignName(target.Ident, item, target.Span())
	p.release(item)
	p.genLoopBody(f.Body, header, end)
	b.Br(header)

	p.genLoopElse(f.Else, exitBlock, end)

	lower.CallSafe(p, "Py_DecRef", b.Block.NewLoad(p.cg.PyObjPtr, iterSlot))
	b.Block.NewStore(p.cg.NullObj(), iterSlot)
}

// hiddenSlot reserves a foreign object slot owned by the function.  It is
// released on exit.
func (p *Parser) hiddenSlot() *ir.InstAlloca {
	slot := p.fs.b.Alloca(p.cg.PyObjPtr, p.cg.NullObj())
	p.fs.slots = append(p.fs.slots, ownedSlot{slot: slot, typ: typing.ForeignType()})
	return slot
}

// -----------------------------------------------------------------------------

// excState holds an exception fetched from the error indicator while it is
// being handled.
type excState struct {
	typ, val, tb *ir.InstAlloca
}

// fetch moves the pending exception into the slots and normalizes it.
func (es *excState) fetch(p *Parser) {
	for _, slot := range es.slots() {
		lower.CallSafe(p, "Py_DecRef", p.fs.b.Block.NewLoad(p.cg.PyObjPtr, slot))
	}

	lower.CallSafe(p, "PyErr_Fetch", es.typ, es.val, es.tb)
	lower.CallSafe(p, "PyErr_NormalizeException", es.typ, es.val, es.tb)
}

// restore moves the exception back into the error indicator.
func (es *excState) restore(p *Parser) {
	b := p.fs.b

	var objs []value.Value
	for _, slot := range es.slots() {
		objs = append(objs, b.Block.NewLoad(p.cg.PyObjPtr, slot))
		b.Block.NewStore(p.cg.NullObj(), slot)
	}

	lower.CallSafe(p, "PyErr_Restore", objs...)
}

// clear releases the exception once it has been handled.
func (es *excState) clear(p *Parser) {
	b := p.fs.b

	for _, slot := range es.slots() {
		lower.CallSafe(p, "Py_DecRef", b.Block.NewLoad(p.cg.PyObjPtr, slot))
		b.Block.NewStore(p.cg.NullObj(), slot)
	}
}

func (es *excState) slots() []*ir.InstAlloca {
	return []*ir.InstAlloca{es.typ, es.val, es.tb}
}

// genTry generates a try statement.  Exceptions raised by the body branch to
// a dispatch block which fetches the exception and tests each handler in
// order.  An exception no handler matches is restored and propagated.
func (p *Parser) genTry(try *syntax.Try) {
	if len(try.Finally) > 0 {
		p.raise(try.Span(), "finally clauses are not supported")
	}

	b := p.fs.b
	dispatch := b.NewBlock("try.except")
	end := b.NewBlock("try.end")

	p.fs.handlers = append(p.fs.handlers, dispatch)
	p.genBlock(try.Body)
	p.fs.handlers = p.fs.handlers[:len(p.fs.handlers)-1]

	if len(try.Else) > 0 && !b.Terminated() {
		p.genBlock(try.Else)
	}

	b.Br(end)

	b.SetBlock(dispatch)
	exc := &excState{typ: p.hiddenSlot(), val: p.hiddenSlot(), tb: p.hiddenSlot()}
	exc.fetch(p)

	for _, handler := range try.Handlers {
		if b.Terminated() {
			// Handlers after a bare `except` are never reached.
			b.SetBlock(b.NewBlock("dead"))
		}

		body := b.NewBlock("except.body")
		if handler.Type == nil {
			b.Block.NewBr(body)
			b.SetBlock(body)
			p.genHandler(handler, exc, end)
			continue
		}

		typ := p.genExpr(handler.Type)
		typObj := p.box(typ)
		matches := lower.CallSafe(p, "PyErr_GivenExceptionMatches", b.Block.NewLoad(p.cg.PyObjPtr, exc.typ), typObj.Value)
		p.release(typObj)
		p.release(typ)

		next := b.NewBlock("except.next")
		b.Block.NewCondBr(b.Block.NewICmp(enum.IPredNE, matches, constant.NewInt(types.I32, 0)), body, next)

		b.SetBlock(body)
		p.genHandler(handler, exc, end)
		b.SetBlock(next)
	}

	if !b.Terminated() {
		exc.restore(p)
		lower.HandleRaisedException(p)
	}

	b.SetBlock(end)
}

// genHandler generates the body of an exception handler.
func (p *Parser) genHandler(handler *syntax.ExceptHandler, exc *excState, end *ir.Block) {
	b := p.fs.b

	p.fs.excs = append(p.fs.excs, exc)
	if handler.Name != "" {
		val := b.Block.NewLoad(p.cg.PyObjPtr, exc.val)
		p.assignName(handler.Name, lower.Item{Value: val, Type: typing.ForeignType()}, handler.Span())
	}

	p.genBlock(handler.Body)
	p.fs.excs = p.fs.excs[:len(p.fs.excs)-1]

	if !b.Terminated() {
		exc.clear(p)
		b.Block.NewBr(end)
	}
}

// genRaise generates a raise statement.  Raising a class raises a new
// instance of it and raising an instance raises it with its type.
func (p *Parser) genRaise(r *syntax.Raise) {
	b := p.fs.b

	if r.Exc == nil {
		if len(p.fs.excs) == 0 {
			p.raise(r.Span(), "bare raise outside of an exception handler")
		}

		p.fs.excs[len(p.fs.excs)-1].restore(p)
		lower.HandleRaisedException(p)
		return
	}

	item := p.genExpr(r.Exc)
	obj := p.box(item)

	cls := lower.CheckException(p, lower.Call(p, "PyObject_Type", obj.Value))
	isClass := lower.CheckErrorCode(p, lower.Call(p, "PyObject_IsInstance", obj.Value, p.cg.GetOrCreateGlobalVar("PyType_Type")))
	cond := b.Block.NewICmp(enum.IPredNE, isClass, constant.NewInt(types.I32, 0))

	excType := b.Block.NewSelect(cond, obj.Value, cls)
	excValue := b.Block.NewSelect(cond, p.cg.NullObj(), obj.Value)
	lower.CallSafe(p, "PyErr_SetObject", excType, excValue)

	lower.CallSafe(p, "Py_DecRef", cls)
	p.release(obj)
	p.release(item)

	lower.HandleRaisedException(p)
}

// genAssert generates an assert statement.
func (p *Parser) genAssert(a *syntax.Assert) {
	b := p.fs.b

	cond := p.genCond(a.Test)
	fail := b.NewBlock("assert.fail")
	ok := b.NewBlock("assert.ok")
	b.Block.NewCondBr(cond, ok, fail)

	b.SetBlock(fail)
	if a.Msg != nil {
		msg := p.genExpr(a.Msg)
		msgObj := p.box(msg)
		lower.Raise(p, lower.ExcType(p, "AssertionError"), msgObj.Value)
		p.release(msgObj)
		p.release(msg)
	} else {
		lower.RaiseAssertionError(p)
	}

	lower.HandleRaisedException(p)
	b.SetBlock(ok)
}

// genKeywordStmt generates `pass`, `break` and `continue`.
func (p *Parser) genKeywordStmt(kw *syntax.KeywordStmt) {
	if kw.Keyword == "pass" {
		return
	}

	if len(p.fs.loops) == 0 {
		p.raise(kw.Span(), "`%s` outside of a loop", kw.Keyword)
	}

	loop := p.fs.loops[len(p.fs.loops)-1]
	if kw.Keyword == "break" {
		p.fs.b.Block.NewBr(loop.brk)
	} else {
		p.fs.b.Block.NewBr(loop.cont)
	}
}
