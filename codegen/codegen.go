package codegen

import (
	"fmt"
	"strings"

	"flyable/depm"
	"flyable/report"
	"flyable/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

// CodeGen is the module-level code generation context.  It owns the LLVM
// module handed to the backend and every module-level symbol: foreign
// declarations, interned constants, class layouts and the native functions of
// implementations.  It is recreated for each specialization pass.
type CodeGen struct {
	// Mod is the LLVM module being generated.
	Mod *ir.Module

	// Prog is the program being compiled.
	Prog *depm.Program

	// PyObject is the named struct type of foreign objects: {refcnt, type}.
	PyObject types.Type

	// PyObjPtr is the generic foreign object pointer type.
	PyObjPtr *types.PointerType

	// Dealloc holds the generated deallocation functions of user classes.
	Dealloc map[int]*ir.Func

	// funcs are the declared foreign functions by name.
	funcs map[string]*ir.Func

	// globals are the declared foreign and internal globals by name.
	globals map[string]*ir.Global

	// consts is the interned constant pool by constant key.
	consts map[string]*ir.Global

	// constInits lists the constants in creation order so that the entry
	// function can materialize them.
	constInits []constInit

	// cstrings are the interned C string globals by contents.
	cstrings map[string]*ir.Global

	// classes are the named struct types of user classes.
	classes map[int]types.Type

	// impls are the native functions of implementations by impl id.
	impls map[int]*ir.Func

	// initFlags are the "module initialized" flags of files by file id.
	initFlags map[int]*ir.Global
}

// Enumeration of constant kinds in the pool.
const (
	constInt = iota
	constDec
	constStr
	constBytes
)

// constInit is a pooled constant waiting to be materialized.
type constInit struct {
	global *ir.Global
	kind   int
	i      int64
	f      float64
	s      string
}

// NewCodeGen creates a fresh code generation context for the program.
func NewCodeGen(prog *depm.Program) *CodeGen {
	cg := &CodeGen{
		Mod:       ir.NewModule(),
		Prog:      prog,
		Dealloc:   make(map[int]*ir.Func),
		funcs:     make(map[string]*ir.Func),
		globals:   make(map[string]*ir.Global),
		consts:    make(map[string]*ir.Global),
		cstrings:  make(map[string]*ir.Global),
		classes:   make(map[int]types.Type),
		impls:     make(map[int]*ir.Func),
		initFlags: make(map[int]*ir.Global),
	}

	cg.PyObject = cg.Mod.NewTypeDef("PyObject", types.NewStruct(types.I64, types.I8Ptr))
	cg.PyObjPtr = types.NewPointer(cg.PyObject)

	return cg
}

// NullObj returns the null foreign object pointer.
func (cg *CodeGen) NullObj() constant.Constant {
	return constant.NewNull(cg.PyObjPtr)
}

// -----------------------------------------------------------------------------

// GetOrCreateFunc returns the declaration of a function of the foreign ABI.
func (cg *CodeGen) GetOrCreateFunc(name string) *ir.Func {
	if f, ok := cg.funcs[name]; ok {
		return f
	}

	sig, ok := cg.Foreign(name)
	if !ok {
		report.ICE("`%s` is not part of the foreign ABI", name)
	}

	var params []*ir.Param
	for _, pt := range sig.Params {
		params = append(params, ir.NewParam("", pt))
	}

	f := cg.Mod.NewFunc(name, sig.Ret, params...)
	f.Linkage = enum.LinkageExternal
	cg.funcs[name] = f
	return f
}

// GetOrCreateGlobalVar returns the declaration of an external global of the
// foreign ABI.  Singletons (`_Py_NoneStruct`) are objects themselves while
// exception types (`PyExc_IndexError`) are pointers to objects.
func (cg *CodeGen) GetOrCreateGlobalVar(name string) *ir.Global {
	if g, ok := cg.globals[name]; ok {
		return g
	}

	// Type objects are much larger than the object header but only their
	// address is ever used.
	var content types.Type = cg.PyObject
	if strings.HasPrefix(name, "PyExc_") {
		content = cg.PyObjPtr
	}

	g := cg.Mod.NewGlobal(name, content)
	g.Linkage = enum.LinkageExternal
	cg.globals[name] = g
	return g
}

// InternalGlobal returns an internal global of the given type initialized to
// its zero value.
func (cg *CodeGen) InternalGlobal(name string, t types.Type) *ir.Global {
	if g, ok := cg.globals[name]; ok {
		return g
	}

	g := cg.Mod.NewGlobalDef(name, constant.NewZeroInitializer(t))
	g.Linkage = enum.LinkageInternal
	cg.globals[name] = g
	return g
}

// BuiltinsGlobal returns the global holding the dictionary of the builtins
// module.  The dictionary is borrowed from the module which is never released.
func (cg *CodeGen) BuiltinsGlobal() *ir.Global {
	return cg.InternalGlobal("flyable.builtins", cg.PyObjPtr)
}

// CString returns a pointer to a null terminated, interned string constant.
func (cg *CodeGen) CString(s string) constant.Constant {
	g, ok := cg.cstrings[s]
	if !ok {
		arr := constant.NewCharArrayFromString(s + "\x00")
		g = cg.Mod.NewGlobalDef(fmt.Sprintf("str.%d", len(cg.cstrings)), arr)
		g.Linkage = enum.LinkagePrivate
		g.Immutable = true
		cg.cstrings[s] = g
	}

	zero := constant.NewInt(types.I64, 0)
	return constant.NewGetElementPtr(g.ContentType, g, zero, zero)
}

// -----------------------------------------------------------------------------

// GetOrInsertConst returns the pool global holding the interned foreign
// object of a literal.  The pool owns one reference to each object: loads of
// a pool global are borrowed.
func (cg *CodeGen) GetOrInsertConst(c typing.Constant) *ir.Global {
	switch c.Kind {
	case typing.ConstInt:
		return cg.insertConst(c.Key(), constInit{kind: constInt, i: c.Int})
	case typing.ConstDec:
		return cg.insertConst(c.Key(), constInit{kind: constDec, f: c.Dec})
	}

	report.ICE("invalid constant kind %d", c.Kind)
	return nil
}

// GetOrInsertStr returns the pool global of a str or bytes literal.
func (cg *CodeGen) GetOrInsertStr(s string, isBytes bool) *ir.Global {
	if isBytes {
		return cg.insertConst("bytes."+s, constInit{kind: constBytes, s: s})
	}

	return cg.insertConst("str."+s, constInit{kind: constStr, s: s})
}

func (cg *CodeGen) insertConst(key string, ci constInit) *ir.Global {
	if g, ok := cg.consts[key]; ok {
		return g
	}

	ci.global = cg.Mod.NewGlobalDef(fmt.Sprintf("const.%d", len(cg.constInits)), cg.NullObj())
	ci.global.Linkage = enum.LinkageInternal

	cg.consts[key] = ci.global
	cg.constInits = append(cg.constInits, ci)
	return ci.global
}

// -----------------------------------------------------------------------------

// ClassStruct returns the native struct type of instances of a user class:
// the object header followed by one foreign object slot per attribute.
func (cg *CodeGen) ClassStruct(classID int) types.Type {
	if t, ok := cg.classes[classID]; ok {
		return t
	}

	class := cg.Prog.Class(classID)
	fields := []types.Type{types.I64, types.I8Ptr}
	for range class.Attrs {
		fields = append(fields, cg.PyObjPtr)
	}

	t := cg.Mod.NewTypeDef(fmt.Sprintf("class.%s.%d", class.Name, class.ID), types.NewStruct(fields...))
	cg.classes[classID] = t
	return t
}

// InitFlag returns the global flag recording whether a file's module-level
// code has already run.
func (cg *CodeGen) InitFlag(file *depm.LangFile) *ir.Global {
	if g, ok := cg.initFlags[file.ID]; ok {
		return g
	}

	g := cg.InternalGlobal(fmt.Sprintf("init.%s", file.Module), types.I1)
	cg.initFlags[file.ID] = g
	return g
}

// ModuleVar returns the global storing a module-level variable.
func (cg *CodeGen) ModuleVar(file *depm.LangFile, name string, t typing.LangType) *ir.Global {
	return cg.InternalGlobal(fmt.Sprintf("var.%s.%s", file.Module, name), cg.ConvType(t))
}

// -----------------------------------------------------------------------------

// DeclareImpl declares the native function of an implementation before its
// body is generated.  Calls to a declared implementation are well-formed even
// while its body is still being walked.  Declaring twice returns the first
// declaration.
func (cg *CodeGen) DeclareImpl(impl *depm.FuncImpl) *ir.Func {
	if f, ok := cg.impls[impl.ID]; ok {
		return f
	}

	if impl.IsUnknown {
		report.ICE("validation-only implementation declared for code generation")
	}

	fn := cg.Prog.Func(impl.Func)
	file := cg.Prog.File(fn.File)

	var params []*ir.Param
	for i, arg := range impl.Args {
		params = append(params, ir.NewParam(fmt.Sprintf("a%d", i), cg.ConvType(arg)))
	}

	name := fmt.Sprintf("%s.%s.%d", file.Module, fn.QualName(cg.Prog), impl.LocalID)
	if fn.IsGlobal {
		name = fmt.Sprintf("%s.__module__", file.Module)
	}

	f := cg.Mod.NewFunc(name, cg.PyObjPtr, params...)
	f.Linkage = enum.LinkageInternal
	cg.impls[impl.ID] = f
	return f
}

// ImplFunc returns the native function of a declared implementation.
func (cg *CodeGen) ImplFunc(impl *depm.FuncImpl) (*ir.Func, bool) {
	f, ok := cg.impls[impl.ID]
	return f, ok
}
