package walk

import (
	"strings"

	"flyable/depm"
	"flyable/lower"
	"flyable/syntax"
	"flyable/typing"
)

// genBlock generates a sequence of statements.  Statements following a
// terminator are generated into an unreachable block.
func (p *Parser) genBlock(stmts []syntax.ASTStmt) {
	for _, stmt := range stmts {
		if p.fs.b.Terminated() {
			p.fs.b.SetBlock(p.fs.b.NewBlock("dead"))
		}

		p.genStmt(stmt)
		p.checkPending()
	}
}

// genStmt generates a single statement.
func (p *Parser) genStmt(stmt syntax.ASTStmt) {
	switch v := stmt.(type) {
	case *syntax.Assign:
		p.genAssign(v)
	case *syntax.AugAssign:
		p.genAugAssign(v)
	case *syntax.ExprStmt:
		p.release(p.genExpr(v.Value))
	case *syntax.Return:
		p.genReturn(v)
	case *syntax.If:
		p.genIf(v)
	case *syntax.While:
		p.genWhile(v)
	case *syntax.For:
		p.genFor(v)
	case *syntax.Try:
		p.genTry(v)
	case *syntax.Raise:
		p.genRaise(v)
	case *syntax.Assert:
		p.genAssert(v)
	case *syntax.KeywordStmt:
		p.genKeywordStmt(v)
	case *syntax.Import:
		p.genImport(v)
	case *syntax.ImportFrom:
		p.genImportFrom(v)
	case *syntax.FuncDef, *syntax.ClassDef:
		// Registered as program entities.
	default:
		p.raise(stmt.Span(), "unsupported statement")
	}
}

// genAssign generates an assignment.  The value is evaluated once and stored
// into every target from left to right.
func (p *Parser) genAssign(as *syntax.Assign) {
	item := p.genExpr(as.Value)

	for _, target := range as.Targets {
		p.genStore(target, item)
	}

	p.release(item)
}

// genStore stores an item into an assignment target.  The item is not
// consumed.
func (p *Parser) genStore(target syntax.ASTExpr, item lower.Item) {
	switch v := target.(type) {
	case *syntax.Name:
		p.assignName(v.Ident, item, v.Span())
	case *syntax.Attribute:
		recv := p.genExpr(v.Value)
		p.storeAttr(recv, v, item)
		p.release(recv)
	case *syntax.Subscript:
		recv := p.genExpr(v.Value)
		index := p.genExpr(v.Index)
		p.storeItem(recv, index, item)
		p.release(index)
		p.release(recv)
	default:
		p.raise(target.Span(), "cannot assign to this expression")
	}
}

// storeAttr stores an item into an attribute of recv.
func (p *Parser) storeAttr(recv lower.Item, attr *syntax.Attribute, item lower.Item) {
	if recv.Type.Kind == typing.KindObject {
		class := p.prog.Class(recv.Type.ClassID)
		if _, ok := class.AttrIndex(attr.Attr); !ok {
			p.raise(attr.Span(), "`%s` has no attribute `%s`", class.Name, attr.Attr)
		}

		lower.SetObjAttr(p, recv.Value, class.ID, attr.Attr, item.Value, item.Type)
		return
	}

	obj := p.box(recv)
	val := p.box(item)
	lower.SetAttr(p, obj.Value, attr.Attr, val.Value)
	p.release(val)
	p.release(obj)
}

// storeItem stores an item at an index of recv with the generic subscript
// protocol.
func (p *Parser) storeItem(recv, index, item lower.Item) {
	obj := p.box(recv)
	key := p.box(index)
	val := p.box(item)
	lower.SetItem(p, obj.Value, key.Value, val.Value)
	p.release(val)
	p.release(key)
	p.release(obj)
}

// genAugAssign generates an augmented assignment.  The receiver of an
// attribute or subscript target is evaluated once.
func (p *Parser) genAugAssign(aug *syntax.AugAssign) {
	switch v := aug.Target.(type) {
	case *syntax.Name:
		lhs := p.genName(v)
		rhs := p.genExpr(aug.Value)
		result := p.genBinaryOp(aug.Op, lhs, rhs, aug.Span())
		p.release(rhs)
		p.release(lhs)

		p.assignName(v.Ident, result, v.Span())
		p.release(result)
	case *syntax.Attribute:
		recv := p.genExpr(v.Value)
		lhs := p.loadAttr(recv, v)
		rhs := p.genExpr(aug.Value)
		result := p.genBinaryOp(aug.Op, lhs, rhs, aug.Span())
		p.release(rhs)
		p.release(lhs)

		p.storeAttr(recv, v, result)
		p.release(result)
		p.release(recv)
	case *syntax.Subscript:
		recv := p.genExpr(v.Value)
		index := p.genExpr(v.Index)
		lhs := p.loadItem(recv, index)
		rhs := p.genExpr(aug.Value)
		result := p.genBinaryOp(aug.Op, lhs, rhs, aug.Span())
		p.release(rhs)
		p.release(lhs)

		p.storeItem(recv, index, result)
		p.release(result)
		p.release(index)
		p.release(recv)
	default:
		p.raise(aug.Target.Span(), "cannot assign to this expression")
	}
}

// genReturn stores the boxed result and leaves through the exit block.
func (p *Parser) genReturn(ret *syntax.Return) {
	if ret.Value == nil {
		p.fs.impl.AddReturnType(typing.NoneType())
		p.storeReturn(lower.NewNone(p))
	} else {
		item := p.genExpr(ret.Value)
		p.fs.impl.AddReturnType(item.Type)

		obj := p.box(item)
		lower.Own(p, obj.Value, obj.Type)
		p.storeReturn(obj.Value)
		p.release(item)
	}

	p.fs.b.Block.NewBr(p.fs.exit)
}

// -----------------------------------------------------------------------------

// genImport generates a dynamic import.  `import a.b` binds `a` while `import
// a.b as c` binds the submodule itself.
func (p *Parser) genImport(imp *syntax.Import) {
	if imp.Alias != "" {
		mod := lower.Item{Value: lower.ImportModule(p, imp.Module), Type: typing.ForeignType().Owned()}
		p.assignName(imp.Alias, mod, imp.Span())
		p.release(mod)
		return
	}

	top, _, dotted := strings.Cut(imp.Module, ".")
	if dotted {
		p.release(lower.Item{Value: lower.ImportModule(p, imp.Module), Type: typing.ForeignType().Owned()})
	}

	mod := lower.Item{Value: lower.ImportModule(p, top), Type: typing.ForeignType().Owned()}
	p.assignName(top, mod, imp.Span())
	p.release(mod)
}

// genImportFrom generates a `from ... import ...`.  Imports of program files
// run the imported module once.  Any other module is imported dynamically.
func (p *Parser) genImportFrom(imp *syntax.ImportFrom) {
	if file, ok := p.prog.FileByModule(imp.Module); ok {
		if !p.fs.fn.IsGlobal {
			p.raise(imp.Span(), "imports of program modules must be at module level")
		}

		p.genStaticImport(file, imp)
		return
	}

	mod := lower.Item{Value: lower.ImportModule(p, imp.Module), Type: typing.ForeignType().Owned()}
	for i, name := range imp.Names {
		attr := lower.Item{Value: lower.GetAttr(p, mod.Value, name), Type: typing.ForeignType().Owned()}
		p.assignName(bindingName(imp, i), attr, imp.Span())
		p.release(attr)
	}

	p.release(mod)
}

// genStaticImport runs the module-level code of a program file.  The imported
// names were bound statically when the program was linked.
func (p *Parser) genStaticImport(file *depm.LangFile, imp *syntax.ImportFrom) {
	impl, err := p.adapter.AdaptFunc(p.prog.Func(file.Global), nil)
	if err != nil {
		p.raise(imp.Span(), "%s", err)
	}

	p.release(p.callImpl(impl, nil))
}

// bindingName returns the name the i'th imported name is bound to.
func bindingName(imp *syntax.ImportFrom, i int) string {
	if imp.Aliases[i] != "" {
		return imp.Aliases[i]
	}

	return imp.Names[i]
}
