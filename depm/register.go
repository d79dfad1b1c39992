package depm

import (
	"flyable/report"
	"flyable/syntax"
	"flyable/typing"
)

// Register adds a parsed source file to the program along with all of its
// classes and functions.  Unsupported definitions are thrown as local compile
// errors.  Base classes and static imports are resolved later by the Link
// methods once every file is registered.
func (p *Program) Register(absPath, reprPath string, text []byte, mod *syntax.Module) *LangFile {
	file := &LangFile{
		ID:       len(p.Files),
		AbsPath:  absPath,
		ReprPath: reprPath,
		Module:   ModuleName(reprPath),
		Text:     text,
		AST:      mod,
		Imports:  make(map[string]Content),
	}
	p.Files = append(p.Files, file)
	p.filesByModule[file.Module] = file.ID

	var globalBody []syntax.ASTStmt
	for _, stmt := range mod.Body {
		switch v := stmt.(type) {
		case *syntax.FuncDef:
			f := p.newFunc(v.Name, v.Params, v.Body, v, NoClass, file.ID, len(file.Funcs))
			file.Funcs = append(file.Funcs, f.ID)
		case *syntax.ClassDef:
			file.Classes = append(file.Classes, p.registerClass(file, v).ID)
		default:
			globalBody = append(globalBody, stmt)
		}
	}

	global := p.newFunc("<module>", nil, globalBody, mod, NoClass, file.ID, len(file.Funcs))
	global.IsGlobal = true
	file.Global = global.ID

	return file
}

func (p *Program) registerClass(file *LangFile, def *syntax.ClassDef) *LangClass {
	class := &LangClass{
		ID:   len(p.Classes),
		Name: def.Name,
		File: file.ID,
		Def:  def,
	}
	p.Classes = append(p.Classes, class)

	seen := make(map[string]bool)
	for _, stmt := range def.Body {
		switch v := stmt.(type) {
		case *syntax.FuncDef:
			f := p.newFunc(v.Name, v.Params, v.Body, v, class.ID, file.ID, len(class.Funcs))
			class.Funcs = append(class.Funcs, f.ID)

			if len(v.Params) > 0 && !v.Params[0].Variadic {
				for _, attr := range selfAttrs(v.Params[0].Name, v.Body) {
					if !seen[attr] {
						seen[attr] = true
						class.OwnAttrs = append(class.OwnAttrs, attr)
					}
				}
			}
		case *syntax.KeywordStmt:
			if v.Keyword != "pass" {
				panic(report.Raise(v.Span(), "`%s` outside of a loop", v.Keyword))
			}
		case *syntax.ExprStmt:
			if _, ok := v.Value.(*syntax.StrLit); !ok {
				panic(report.Raise(v.Span(), "class bodies may only contain methods"))
			}
		default:
			panic(report.Raise(stmt.Span(), "class bodies may only contain methods"))
		}
	}

	return class
}

// newFunc adds a new function to the arena and computes its arity.
func (p *Program) newFunc(name string, params []*syntax.Param, body []syntax.ASTStmt, def syntax.ASTNode, class, file, localID int) *LangFunc {
	f := &LangFunc{
		ID:      len(p.Funcs),
		LocalID: localID,
		Name:    name,
		Params:  params,
		Body:    body,
		Def:     def,
		Class:   class,
		File:    file,
	}
	p.Funcs = append(p.Funcs, f)

	seenDefault := false
	for i, param := range params {
		switch {
		case param.Variadic:
			if i != len(params)-1 {
				panic(report.Raise(params[i+1].Span(), "keyword-only parameters are not supported"))
			}

			f.MaxArgs = -1
		case param.Default != nil:
			seenDefault = true
			f.MaxArgs++
		default:
			if seenDefault {
				panic(report.Raise(param.Span(), "non-default parameter `%s` follows default parameter", param.Name))
			}

			f.MinArgs++
			f.MaxArgs++
		}
	}

	checkNoNestedDefs(body)

	f.ClearInfo(p)
	return f
}

// -----------------------------------------------------------------------------

// walkStmts calls fn on every statement of body including those nested in
// compound statements.
func walkStmts(body []syntax.ASTStmt, fn func(syntax.ASTStmt)) {
	for _, stmt := range body {
		fn(stmt)

		switch v := stmt.(type) {
		case *syntax.If:
			walkStmts(v.Body, fn)
			walkStmts(v.Else, fn)
		case *syntax.While:
			walkStmts(v.Body, fn)
			walkStmts(v.Else, fn)
		case *syntax.For:
			walkStmts(v.Body, fn)
			walkStmts(v.Else, fn)
		case *syntax.Try:
			walkStmts(v.Body, fn)
			for _, h := range v.Handlers {
				walkStmts(h.Body, fn)
			}
			walkStmts(v.Else, fn)
			walkStmts(v.Finally, fn)
		}
	}
}

func checkNoNestedDefs(body []syntax.ASTStmt) {
	walkStmts(body, func(stmt syntax.ASTStmt) {
		switch stmt.(type) {
		case *syntax.FuncDef:
			panic(report.Raise(stmt.Span(), "nested functions are not supported"))
		case *syntax.ClassDef:
			panic(report.Raise(stmt.Span(), "nested classes are not supported"))
		}
	})
}

// selfAttrs collects the names of every attribute assigned through the
// receiver parameter.
func selfAttrs(self string, body []syntax.ASTStmt) []string {
	var attrs []string
	collect := func(target syntax.ASTExpr) {
		if attr, ok := target.(*syntax.Attribute); ok {
			if name, ok := attr.Value.(*syntax.Name); ok && name.Ident == self {
				attrs = append(attrs, attr.Attr)
			}
		}
	}

	walkStmts(body, func(stmt syntax.ASTStmt) {
		switch v := stmt.(type) {
		case *syntax.Assign:
			for _, target := range v.Targets {
				collect(target)
			}
		case *syntax.AugAssign:
			collect(v.Target)
		case *syntax.For:
			collect(v.Target)
		}
	})

	return attrs
}

// -----------------------------------------------------------------------------

// LinkImports binds the names of the file's module-level static imports: `from
// m import a` where m is another file of the program.
func (p *Program) LinkImports(file *LangFile) {
	for _, stmt := range p.Funcs[file.Global].Body {
		imp, ok := stmt.(*syntax.ImportFrom)
		if !ok {
			continue
		}

		target, ok := p.FileByModule(imp.Module)
		if !ok {
			continue
		}

		for i, name := range imp.Names {
			content, ok := target.ownContent(p, name)
			if !ok {
				panic(report.Raise(imp.Span(), "cannot import `%s` from `%s`: only functions and classes can be imported statically", name, imp.Module))
			}

			bound := name
			if imp.Aliases[i] != "" {
				bound = imp.Aliases[i]
			}

			file.Imports[bound] = content
		}
	}
}

// ownContent finds a class or function defined in the file itself.
func (lf *LangFile) ownContent(p *Program, name string) (Content, bool) {
	imports := lf.Imports
	lf.Imports = nil
	defer func() { lf.Imports = imports }()

	return lf.FindContentByName(p, name)
}

// LinkClasses resolves the base classes of the file's classes.  LinkImports
// must have been called on every file first.
func (p *Program) LinkClasses(file *LangFile) {
	for _, id := range file.Classes {
		class := p.Classes[id]
		class.Bases = nil

		for _, base := range class.Def.Bases {
			if base.Ident == "object" {
				continue
			}

			content, ok := file.FindContentByName(p, base.Ident)
			if !ok || content.Kind != ContentClass {
				panic(report.Raise(base.Span(), "base class `%s` is not a class of the program", base.Ident))
			}

			class.Bases = append(class.Bases, content.ID)
		}
	}
}

// LayoutClass computes the attribute layout of a class.  The bases of every
// class must have been resolved first.
func (p *Program) LayoutClass(class *LangClass) {
	p.layoutAttrs(class, make(map[int]bool))
}

// layoutAttrs computes the attribute layout of class from its bases.
func (p *Program) layoutAttrs(class *LangClass, visiting map[int]bool) []string {
	if class.Attrs != nil {
		return class.Attrs
	}

	if visiting[class.ID] {
		panic(report.Raise(class.Def.Span(), "class `%s` inherits from itself", class.Name))
	}
	visiting[class.ID] = true

	attrs := []string{}
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			attrs = append(attrs, name)
		}
	}

	for _, base := range class.Bases {
		for _, attr := range p.layoutAttrs(p.Classes[base], visiting) {
			add(attr)
		}
	}

	for _, attr := range class.OwnAttrs {
		add(attr)
	}

	class.Attrs = attrs
	return attrs
}

// GlobalImpl returns the implementation of the file's module-level code,
// creating it on first use.  The module-level function takes no arguments.
func (p *Program) GlobalImpl(file *LangFile) *FuncImpl {
	global := p.Funcs[file.Global]
	if impl, ok := global.FindImpl(p, []typing.LangType{}); ok {
		return impl
	}

	return p.NewImpl(global, []typing.LangType{})
}
