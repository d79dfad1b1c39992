// Package walk generates the native functions of implementations by walking
// the syntax of their bodies.
package walk

import (
	"fmt"

	"flyable/adapt"
	"flyable/codegen"
	"flyable/depm"
	"flyable/lower"
	"flyable/report"
	"flyable/syntax"
	"flyable/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Restart aborts a specialization pass.  A variable of Func was found holding
// values of several types: it has been marked dynamic and the pass must be
// run again from scratch.
type Restart struct {
	Func string
	Var  string
}

func (r *Restart) Error() string {
	return fmt.Sprintf("variable `%s` of `%s` holds values of several types", r.Var, r.Func)
}

// FileError is a compile error along with the file it occurred in.  Bodies
// of several files are walked on the same call stack.
type FileError struct {
	File *depm.LangFile
	Err  *report.LocalCompileError
}

func (fe *FileError) Error() string {
	return fe.Err.Error()
}

// Parser is the visitor generating implementations.  It implements the
// lowering context for the function currently being generated.
type Parser struct {
	prog    *depm.Program
	cg      *codegen.CodeGen
	adapter *adapt.Adapter

	// fs is the state of the function being generated.  It is saved and
	// restored around the nested generation of callees.
	fs *funcState
}

// funcState is the state of a single native function under generation.
type funcState struct {
	impl *depm.FuncImpl
	fn   *depm.LangFunc
	file *depm.LangFile

	b *codegen.Builder

	// retSlot holds the result returned by the exit block.
	retSlot *ir.InstAlloca

	// exit is the single exit block: it releases the slots of every object
	// variable and returns.
	exit *ir.Block

	// slots are the stack slots owning references, released on exit.
	slots []ownedSlot

	// handlers is the stack of active exception handler targets.
	handlers []*ir.Block

	// loops is the stack of enclosing loops.
	loops []loopTargets

	// excs is the stack of exceptions being handled for bare `raise`.
	excs []*excState

	// pending are the fallible calls of the current statement.
	pending []*lower.Pending
}

type ownedSlot struct {
	slot value.Value
	typ  typing.LangType
}

type loopTargets struct {
	cont, brk *ir.Block
}

// NewParser creates a parser generating into cg.
func NewParser(prog *depm.Program, cg *codegen.CodeGen) *Parser {
	p := &Parser{prog: prog, cg: cg}
	p.adapter = adapt.NewAdapter(prog, p, cg)
	return p
}

// Adapter returns the adapter specializing calls for the parser.
func (p *Parser) Adapter() *adapt.Adapter {
	return p.adapter
}

// ParseModule generates the module-level implementation of file and returns
// its native function.
func (p *Parser) ParseModule(file *depm.LangFile) *ir.Func {
	impl, err := p.adapter.AdaptFunc(p.prog.Func(file.Global), nil)
	if err != nil {
		report.ICE("module function of %s: %s", file.ReprPath, err)
	}

	f, _ := p.cg.ImplFunc(impl)
	return f
}

// ParseFunc runs the validation-only path of f.  The validation-only
// implementation is never generated.
func (p *Parser) ParseFunc(f *depm.LangFunc) {
	p.ParseImpl(f.UnknownImpl(p.prog))
}

// ParseImpl generates the body of an implementation into its declared native
// function.  Implementations that are validation-only or already started are
// left untouched.
func (p *Parser) ParseImpl(impl *depm.FuncImpl) {
	if impl.IsUnknown || impl.Status != depm.NotStarted {
		return
	}

	fn := p.prog.Func(impl.Func)
	file := p.prog.File(fn.File)
	llFunc := p.cg.DeclareImpl(impl)

	saved := p.fs
	defer func() {
		p.fs = saved
	}()

	defer func() {
		if x := recover(); x != nil {
			if lce, ok := x.(*report.LocalCompileError); ok {
				panic(&FileError{File: file, Err: lce})
			}

			panic(x)
		}
	}()

	b := codegen.NewBuilder(llFunc)
	p.fs = &funcState{
		impl:    impl,
		fn:      fn,
		file:    file,
		b:       b,
		retSlot: b.Alloca(p.cg.PyObjPtr, p.cg.NullObj()),
		exit:    b.NewBlock("exit"),
	}

	p.bindArgs(llFunc)
	if !impl.SetStatus(depm.Started) {
		report.ICE("implementation %d restarted", impl.ID)
	}

	p.genPrologue()
	p.checkPending()

	p.genBlock(fn.Body)

	if !b.Terminated() {
		impl.AddReturnType(typing.NoneType())
		p.storeReturn(lower.NewNone(p))
		b.Block.NewBr(p.fs.exit)
	}

	p.genExit()

	impl.SetStatus(depm.Ended)
}

// bindArgs declares a variable for every argument passed to the
// implementation.  The variables own a reference to their argument.
func (p *Parser) bindArgs(llFunc *ir.Func) {
	fixed := p.fixedParams()

	for i, arg := range p.fs.impl.Args {
		if i >= len(fixed) {
			break
		}

		v := p.declareVar(fixed[i].Name, arg)
		v.IsArg = true
		p.storeVar(v, lower.Item{Value: llFunc.Params[i], Type: arg.Borrowed()}, fixed[i].Name)
	}
}

// genPrologue evaluates the defaults of parameters that were not passed and
// packs extra arguments for `*args`.  Module functions run their body only
// once.
func (p *Parser) genPrologue() {
	fs := p.fs
	if fs.fn.IsGlobal {
		p.genInitGuard()
		return
	}

	fixed := p.fixedParams()
	for _, param := range fixed[min(len(fs.impl.Args), len(fixed)):] {
		item := p.genExpr(param.Default)
		p.assignName(param.Name, item, param.Span())
		p.release(item)
	}

	if variadic := p.variadicParam(); variadic != nil {
		var extra []lower.Item
		for i := len(fixed); i < len(fs.impl.Args); i++ {
			extra = append(extra, lower.Item{Value: fs.b.Func.Params[i], Type: fs.impl.Args[i].Borrowed()})
		}

		tuple := lower.Item{Value: lower.BuildTuple(p, extra), Type: typing.ForeignType().Owned()}
		p.assignName(variadic.Name, tuple, variadic.Span())
		p.release(tuple)
	}
}

// genInitGuard returns None right away if the module has already run.
func (p *Parser) genInitGuard() {
	b := p.fs.b
	flag := p.cg.InitFlag(p.fs.file)

	done := b.NewBlock("init.done")
	run := b.NewBlock("init.run")
	b.Block.NewCondBr(b.Block.NewLoad(types.I1, flag), done, run)

	b.SetBlock(done)
	p.storeReturn(lower.NewNone(p))
	b.Block.NewBr(p.fs.exit)

	b.SetBlock(run)
	b.Block.NewStore(constant.True, flag)
}

// genExit fills the exit block: every owned slot is released and the result
// slot returned.
func (p *Parser) genExit() {
	b := p.fs.b
	b.SetBlock(p.fs.exit)

	for _, os := range p.fs.slots {
		v := b.Block.NewLoad(p.cg.ConvType(os.typ), os.slot)
		lower.Decref(p, v, os.typ)
	}

	b.Block.NewRet(b.Block.NewLoad(p.cg.PyObjPtr, p.fs.retSlot))
}

// storeReturn stores an owned foreign object as the function's result.
func (p *Parser) storeReturn(obj value.Value) {
	p.fs.b.Block.NewStore(lower.AsObj(p, obj), p.fs.retSlot)
}

func (p *Parser) fixedParams() []*syntax.Param {
	var fixed []*syntax.Param
	for _, param := range p.fs.fn.Params {
		if !param.Variadic {
			fixed = append(fixed, param)
		}
	}

	return fixed
}

func (p *Parser) variadicParam() *syntax.Param {
	params := p.fs.fn.Params
	if len(params) > 0 && params[len(params)-1].Variadic {
		return params[len(params)-1]
	}

	return nil
}

// checkPending reports fallible calls of the current statement whose result
// was never checked.
func (p *Parser) checkPending() {
	for _, pending := range p.fs.pending {
		if !pending.Resolved() {
			report.ICE("unchecked %s in %s", pending, p.fs.fn.QualName(p.prog))
		}
	}

	p.fs.pending = nil
}

// -----------------------------------------------------------------------------

func (p *Parser) CodeGen() *codegen.CodeGen {
	return p.cg
}

func (p *Parser) Builder() *codegen.Builder {
	return p.fs.b
}

func (p *Parser) HandlerTarget() *ir.Block {
	if n := len(p.fs.handlers); n > 0 {
		return p.fs.handlers[n-1]
	}

	return nil
}

func (p *Parser) ReturnNull() {
	p.fs.b.Block.NewStore(p.cg.NullObj(), p.fs.retSlot)
	p.fs.b.Block.NewBr(p.fs.exit)
}

func (p *Parser) Track(pending *lower.Pending) {
	p.fs.pending = append(p.fs.pending, pending)
}

// -----------------------------------------------------------------------------

// raise aborts the current compilation unit with an error on span.
func (p *Parser) raise(span *report.TextSpan, msg string, args ...interface{}) {
	panic(report.Raise(span, msg, args...))
}

// release drops the reference held by an owned temporary.
func (p *Parser) release(item lower.Item) {
	lower.Release(p, item.Value, item.Type)
}
