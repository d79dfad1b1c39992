// Package adapt specializes calls: it resolves a call to the implementation
// of a function for the call's argument types, creating and parsing it on
// demand.
package adapt

import (
	"fmt"

	"flyable/depm"
	"flyable/report"
	"flyable/typing"

	"github.com/llir/llvm/ir"
)

// Parser parses the body of an implementation.  Parsing the validation-only
// implementation of a function must be a no-op.
type Parser interface {
	ParseImpl(impl *depm.FuncImpl)
}

// Declarer forward declares the native signature of an implementation.
type Declarer interface {
	DeclareImpl(impl *depm.FuncImpl) *ir.Func
}

// ArityError is returned when a call's argument count is outside the bounds of
// the called function.  No implementation is produced.
type ArityError struct {
	Func     string
	Got      int
	Min, Max int
}

func (ae *ArityError) Error() string {
	switch {
	case ae.Max == -1:
		return fmt.Sprintf("`%s` takes at least %d arguments but got %d", ae.Func, ae.Min, ae.Got)
	case ae.Min == ae.Max:
		return fmt.Sprintf("`%s` takes %d arguments but got %d", ae.Func, ae.Min, ae.Got)
	}

	return fmt.Sprintf("`%s` takes between %d and %d arguments but got %d", ae.Func, ae.Min, ae.Max, ae.Got)
}

// Target is the result of adapting a call.  A nil Impl means the call cannot
// be specialized and must be dispatched dynamically on Type.
type Target struct {
	Impl *depm.FuncImpl
	Type typing.LangType
}

// Adapter specializes calls against the program.
type Adapter struct {
	prog   *depm.Program
	parser Parser
	decl   Declarer
}

// NewAdapter creates an adapter.  Implementations it creates are declared by
// decl and then parsed by parser.
func NewAdapter(prog *depm.Program, parser Parser, decl Declarer) *Adapter {
	return &Adapter{prog: prog, parser: parser, decl: decl}
}

// AdaptCall resolves a method call on a receiver.  For user objects, the
// method is looked up on the receiver's class and its bases and the receiver
// is passed as the first argument.  Any other receiver, or a method that does
// not exist, yields a dynamic target holding the receiver type unchanged.
func (a *Adapter) AdaptCall(name string, receiver typing.LangType, args []typing.LangType) (Target, error) {
	if receiver.Kind != typing.KindObject {
		return Target{Type: receiver}, nil
	}

	method, ok := a.prog.Class(receiver.ClassID).FuncByName(a.prog, name)
	if !ok {
		return Target{Type: receiver}, nil
	}

	impl, err := a.AdaptFunc(method, append([]typing.LangType{receiver}, args...))
	if err != nil {
		return Target{}, err
	}

	return Target{Impl: impl, Type: receiver}, nil
}

// AdaptFunc returns the implementation of f for the argument types args.
// Implementations are shared by every call whose argument types structurally
// match: hints are ignored.  A new implementation is forward declared before
// its body is parsed so that recursive calls resolve to its declaration.
func (a *Adapter) AdaptFunc(f *depm.LangFunc, args []typing.LangType) (*depm.FuncImpl, error) {
	if !f.AcceptsArgCount(len(args)) {
		return nil, &ArityError{Func: f.QualName(a.prog), Got: len(args), Min: f.MinArgs, Max: f.MaxArgs}
	}

	if impl, ok := f.FindImpl(a.prog, args); ok {
		if impl.Status != depm.Ended {
			// The implementation is being parsed further up the stack: only
			// its forward declaration can be used here.
			a.parser.ParseImpl(f.UnknownImpl(a.prog))
		}

		return impl, nil
	}

	bare := make([]typing.LangType, len(args))
	for i, arg := range args {
		bare[i] = arg.Bare()
	}

	impl := a.prog.NewImpl(f, bare)
	report.ReportTrace("specializing %s(%s)", f.QualName(a.prog), typing.SignatureRepr(bare))

	a.decl.DeclareImpl(impl)
	a.parser.ParseImpl(impl)
	return impl, nil
}
