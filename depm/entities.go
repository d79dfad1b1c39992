package depm

import (
	"flyable/syntax"
	"flyable/typing"
)

// LangFile represents a Python source file of the program.
type LangFile struct {
	// ID is the index of the file in the program arena.
	ID int

	// AbsPath is the absolute path to the file.  It is the file's identity.
	AbsPath string

	// ReprPath is the path displayed to the user.
	ReprPath string

	// Module is the dotted module name of the file.
	Module string

	// Text is the source text of the file.
	Text []byte

	// AST is the parsed syntax tree of the file.
	AST *syntax.Module

	// Classes and Funcs are the top-level classes and functions in
	// definition order.
	Classes []int
	Funcs   []int

	// Global is the implicit function holding the module-level statements.
	Global int

	// Imports maps names bound by module-level static imports onto the
	// content they refer to in other program files.
	Imports map[string]Content
}

// Enumeration of content kinds.
const (
	ContentClass = iota
	ContentFunc
)

// Content is a class or function found by name in a file.
type Content struct {
	// Kind must be one of the enumerated content kinds.
	Kind int

	ID int
}

// FindContentByName looks up a top-level class or function visible in the
// file by name.  Definitions in the file shadow static imports.
func (lf *LangFile) FindContentByName(p *Program, name string) (Content, bool) {
	for _, id := range lf.Classes {
		if p.Classes[id].Name == name {
			return Content{Kind: ContentClass, ID: id}, true
		}
	}

	for _, id := range lf.Funcs {
		if p.Funcs[id].Name == name {
			return Content{Kind: ContentFunc, ID: id}, true
		}
	}

	c, ok := lf.Imports[name]
	return c, ok
}

// FindContentByID returns whether the file owns the class or function with
// the given id.
func (lf *LangFile) FindContentByID(kind, id int) (Content, bool) {
	var ids []int
	if kind == ContentClass {
		ids = lf.Classes
	} else {
		ids = lf.Funcs
	}

	for _, cid := range ids {
		if cid == id {
			return Content{Kind: kind, ID: id}, true
		}
	}

	return Content{}, false
}

// ClearInfo resets the derived state of every entity owned by the file.
func (lf *LangFile) ClearInfo(p *Program) {
	for _, id := range lf.Classes {
		p.Classes[id].ClearInfo(p)
	}

	for _, id := range lf.Funcs {
		p.Funcs[id].ClearInfo(p)
	}

	p.Funcs[lf.Global].ClearInfo(p)
}

// -----------------------------------------------------------------------------

// LangClass represents a user class.
type LangClass struct {
	// ID is the numeric id of the class assigned at registration.  It is the
	// class id of the class's object type.
	ID int

	Name string

	// File is the id of the owning file.
	File int

	// Def is the class definition.
	Def *syntax.ClassDef

	// Funcs are the methods of the class in definition order.
	Funcs []int

	// OwnAttrs are the attributes assigned through `self` in the class's own
	// methods.
	OwnAttrs []string

	// Attrs is the complete attribute layout: inherited attributes first,
	// then the class's own attributes not already inherited.
	Attrs []string

	// Bases are the direct base classes.
	Bases []int

	// Instantiated indicates that the class has been constructed somewhere
	// in the current pass.
	Instantiated bool
}

// ObjType returns the object type of instances of the class.
func (lc *LangClass) ObjType() typing.LangType {
	return typing.ObjType(lc.ID)
}

// FuncByName looks up a method on the class and then on its bases in
// depth-first declaration order.
func (lc *LangClass) FuncByName(p *Program, name string) (*LangFunc, bool) {
	return lc.funcByName(p, name, make(map[int]bool))
}

func (lc *LangClass) funcByName(p *Program, name string, visited map[int]bool) (*LangFunc, bool) {
	if visited[lc.ID] {
		return nil, false
	}
	visited[lc.ID] = true

	for _, id := range lc.Funcs {
		if p.Funcs[id].Name == name {
			return p.Funcs[id], true
		}
	}

	for _, base := range lc.Bases {
		if f, ok := p.Classes[base].funcByName(p, name, visited); ok {
			return f, true
		}
	}

	return nil, false
}

// AttrIndex returns the position of an attribute in the class's layout.
func (lc *LangClass) AttrIndex(name string) (int, bool) {
	for i, attr := range lc.Attrs {
		if attr == name {
			return i, true
		}
	}

	return -1, false
}

// ClearInfo resets the derived state of the class and its methods.  The name,
// attributes and inheritance are untouched.
func (lc *LangClass) ClearInfo(p *Program) {
	lc.Instantiated = false

	for _, id := range lc.Funcs {
		p.Funcs[id].ClearInfo(p)
	}
}

// -----------------------------------------------------------------------------

// LangFunc represents a declared function, method or the module-level code of
// a file.
type LangFunc struct {
	// ID is the index of the function in the program arena.
	ID int

	// LocalID is the id of the function within its owning class or file.
	LocalID int

	Name string

	// Params are the declared parameters.  Body is the function's body.
	Params []*syntax.Param
	Body   []syntax.ASTStmt

	// Def is the definition node.  It is the module for the global function.
	Def syntax.ASTNode

	// MinArgs and MaxArgs are the accepted argument count bounds.  MaxArgs
	// is -1 for variadic functions.
	MinArgs, MaxArgs int

	// Class is the id of the owning class or NoClass.
	Class int

	// File is the id of the owning file.
	File int

	// IsGlobal indicates the implicit module-level function.
	IsGlobal bool

	// Impls are the implementations specialized in the current pass.
	Impls []int

	// Unknown is the validation-only implementation of the function.
	Unknown int

	// DynamicVars are the variables found to hold values of several types.
	// They are stored as foreign objects.  This set survives ClearInfo since
	// it is the input of the next specialization pass.
	DynamicVars map[string]bool
}

// IsMethod returns whether the function is a class method.
func (lf *LangFunc) IsMethod() bool {
	return lf.Class != NoClass
}

// AcceptsArgCount returns whether n arguments are within the function's
// bounds.
func (lf *LangFunc) AcceptsArgCount(n int) bool {
	return lf.MinArgs <= n && (lf.MaxArgs == -1 || n <= lf.MaxArgs)
}

// QualName returns the name of the function qualified by its class.
func (lf *LangFunc) QualName(p *Program) string {
	if lf.IsMethod() {
		return p.Classes[lf.Class].Name + "." + lf.Name
	}

	return lf.Name
}

// FindImpl returns the implementation whose argument types structurally match
// args.  Hints are ignored.
func (lf *LangFunc) FindImpl(p *Program, args []typing.LangType) (*FuncImpl, bool) {
	for _, id := range lf.Impls {
		if impl := p.Impls[id]; typing.SignatureEquals(impl.Args, args) {
			return impl, true
		}
	}

	return nil, false
}

// UnknownImpl returns the validation-only implementation.
func (lf *LangFunc) UnknownImpl(p *Program) *FuncImpl {
	return p.Impls[lf.Unknown]
}

// ClearInfo drops every implementation of the function and replaces its
// validation-only implementation with a fresh one.
func (lf *LangFunc) ClearInfo(p *Program) {
	lf.Impls = nil
	lf.Unknown = p.newImpl(lf, nil, true).ID
}

// MarkDynamic records that the variable named name must be a foreign object.
func (lf *LangFunc) MarkDynamic(name string) {
	if lf.DynamicVars == nil {
		lf.DynamicVars = make(map[string]bool)
	}

	lf.DynamicVars[name] = true
}

// -----------------------------------------------------------------------------

// Enumeration of parse statuses.
const (
	NotStarted = iota
	Started
	Ended
)

// FuncImpl is one specialization of a function for an argument signature.
type FuncImpl struct {
	// ID is the index of the implementation in the program arena.
	ID int

	// Func is the id of the owning function.
	Func int

	// LocalID is the position of the implementation in its function's list.
	LocalID int

	// Args are the argument types.  They never carry hints.
	Args []typing.LangType

	// Status must be one of the enumerated parse statuses.  It only moves
	// forward.
	Status int

	// IsUnknown marks the validation-only implementation.
	IsUnknown bool

	// Context holds the variables of the implementation.
	Context *VarContext

	// RetType is the merge of the types of every returned value.  It is only
	// meaningful once the implementation has Ended.
	RetType typing.LangType

	// HasRet indicates that at least one return type was merged in.
	HasRet bool
}

// SetStatus advances the parse status.  Moving backwards is an internal error
// and reported as such by the caller.
func (fi *FuncImpl) SetStatus(status int) bool {
	if status < fi.Status {
		return false
	}

	fi.Status = status
	return true
}

// AddReturnType merges a returned type into the implementation's return type.
func (fi *FuncImpl) AddReturnType(t typing.LangType) {
	if fi.HasRet {
		fi.RetType = typing.Merge(fi.RetType, t)
	} else {
		fi.RetType = t.Bare()
		fi.HasRet = true
	}
}
