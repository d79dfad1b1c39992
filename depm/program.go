package depm

import (
	"path/filepath"
	"strings"

	"flyable/typing"
)

// Enumeration of sentinel ids.
const (
	NoClass = typing.NoClass
	NoFunc  = -1
	NoImpl  = -1
)

// Program is the arena owning every entity of a compilation unit.  Entities
// refer to each other by their integer ids, which are indices into the
// arena's slices.  Nothing is ever removed from the arena: clearing derived
// state only stops referencing implementations.
type Program struct {
	// RootPath is the absolute path of the project root.
	RootPath string

	Files   []*LangFile
	Classes []*LangClass
	Funcs   []*LangFunc
	Impls   []*FuncImpl

	// filesByModule maps dotted module names onto file ids.
	filesByModule map[string]int
}

// NewProgram creates a new empty program rooted at rootPath.
func NewProgram(rootPath string) *Program {
	return &Program{
		RootPath:      rootPath,
		filesByModule: make(map[string]int),
	}
}

// File returns the file with the given id.
func (p *Program) File(id int) *LangFile {
	return p.Files[id]
}

// Class returns the class with the given id.
func (p *Program) Class(id int) *LangClass {
	return p.Classes[id]
}

// Func returns the function with the given id.
func (p *Program) Func(id int) *LangFunc {
	return p.Funcs[id]
}

// Impl returns the implementation with the given id.
func (p *Program) Impl(id int) *FuncImpl {
	return p.Impls[id]
}

// FileByModule returns the file imported by the given dotted module name.
func (p *Program) FileByModule(name string) (*LangFile, bool) {
	if id, ok := p.filesByModule[name]; ok {
		return p.Files[id], true
	}

	return nil, false
}

// ModuleName returns the dotted module name of a file path relative to the
// project root: `pkg/util.py` is `pkg.util` and `pkg/__init__.py` is `pkg`.
func ModuleName(reprPath string) string {
	name := strings.TrimSuffix(filepath.ToSlash(reprPath), filepath.Ext(reprPath))
	name = strings.TrimSuffix(name, "/__init__")
	return strings.ReplaceAll(name, "/", ".")
}

// -----------------------------------------------------------------------------

// newImpl adds a new implementation of f to the arena.  The implementation is
// not registered on f.
func (p *Program) newImpl(f *LangFunc, args []typing.LangType, unknown bool) *FuncImpl {
	impl := &FuncImpl{
		ID:        len(p.Impls),
		Func:      f.ID,
		Args:      args,
		IsUnknown: unknown,
		Context:   NewVarContext(),
	}

	p.Impls = append(p.Impls, impl)
	return impl
}

// NewImpl creates and registers a new implementation of f for the given
// argument types.  Its local id is its position in f's implementation list.
func (p *Program) NewImpl(f *LangFunc, args []typing.LangType) *FuncImpl {
	impl := p.newImpl(f, args, false)
	impl.LocalID = len(f.Impls)
	f.Impls = append(f.Impls, impl.ID)
	return impl
}

// ClearInfo resets all derived specialization state of the program.
func (p *Program) ClearInfo() {
	for _, file := range p.Files {
		file.ClearInfo(p)
	}
}

// AllImpls returns every implementation currently registered on a function.
// Implementations dropped by ClearInfo are not included.
func (p *Program) AllImpls() []*FuncImpl {
	var impls []*FuncImpl
	for _, f := range p.Funcs {
		for _, id := range f.Impls {
			impls = append(impls, p.Impls[id])
		}
	}

	return impls
}
