package depm

import (
	"flyable/typing"

	"github.com/llir/llvm/ir/value"
)

// Variable is a named variable of an implementation.
type Variable struct {
	Name string

	// Type is the declared type of the variable.  It carries no hints: the
	// variable's slot always owns its reference.
	Type typing.LangType

	// Storage is the pointer to the variable's slot.
	Storage value.Value

	// IsArg indicates that the variable is bound to an argument.
	IsArg bool

	// IsGlobal indicates a module-level variable stored in a global.
	IsGlobal bool
}

// VarContext is the lexical variable context of an implementation.  Python
// functions have a single scope so the context is flat.
type VarContext struct {
	vars map[string]*Variable

	// order lists the variables in declaration order.
	order []*Variable
}

// NewVarContext creates a new empty variable context.
func NewVarContext() *VarContext {
	return &VarContext{vars: make(map[string]*Variable)}
}

// Lookup finds a variable by name.
func (vc *VarContext) Lookup(name string) (*Variable, bool) {
	v, ok := vc.vars[name]
	return v, ok
}

// Declare adds a new variable to the context.  It returns false if a variable
// of that name already exists.
func (vc *VarContext) Declare(v *Variable) bool {
	if _, ok := vc.vars[v.Name]; ok {
		return false
	}

	vc.vars[v.Name] = v
	vc.order = append(vc.order, v)
	return true
}

// Vars returns the variables in declaration order.
func (vc *VarContext) Vars() []*Variable {
	return vc.order
}

// Args returns the argument bindings in declaration order.
func (vc *VarContext) Args() []*Variable {
	var args []*Variable
	for _, v := range vc.order {
		if v.IsArg {
			args = append(args, v)
		}
	}

	return args
}
