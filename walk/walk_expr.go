package walk

import (
	"flyable/lower"
	"flyable/syntax"
	"flyable/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// genExpr generates an expression.  The caller releases the result.
func (p *Parser) genExpr(expr syntax.ASTExpr) lower.Item {
	switch v := expr.(type) {
	case *syntax.Name:
		return p.genName(v)
	case *syntax.IntLit:
		return lower.Item{Value: constant.NewInt(types.I64, v.Value), Type: typing.ConstIntType(v.Value)}
	case *syntax.FloatLit:
		return lower.Item{Value: constant.NewFloat(types.Double, v.Value), Type: typing.ConstDecType(v.Value)}
	case *syntax.BoolLit:
		return lower.Item{Value: constant.NewBool(v.Value), Type: typing.BoolType()}
	case *syntax.NoneLit:
		return lower.Item{Value: lower.NoneObj(p), Type: typing.NoneType()}
	case *syntax.StrLit:
		t, obj := lower.StrLiteral(p, v.Value, v.Bytes)
		return lower.Item{Value: obj, Type: t}
	case *syntax.BinaryOp:
		lhs := p.genExpr(v.Lhs)
		rhs := p.genExpr(v.Rhs)
		result := p.genBinaryOp(v.Op, lhs, rhs, v.Span())
		p.release(rhs)
		p.release(lhs)
		return result
	case *syntax.UnaryOp:
		return p.genUnaryOp(v)
	case *syntax.BoolOp:
		return p.genBoolOp(v)
	case *syntax.Compare:
		return p.genCompare(v)
	case *syntax.Call:
		return p.genCall(v)
	case *syntax.Attribute:
		recv := p.genExpr(v.Value)
		result := p.loadAttr(recv, v)
		p.release(recv)
		return result
	case *syntax.Subscript:
		recv := p.genExpr(v.Value)
		index := p.genExpr(v.Index)
		result := p.loadItem(recv, index)
		p.release(index)
		p.release(recv)
		return result
	case *syntax.ListLit:
		elems := p.genExprs(v.Elems)
		t, list := lower.BuildList(p, elems)
		p.releaseAll(elems)
		return lower.Item{Value: list, Type: t}
	case *syntax.SetLit:
		elems := p.genExprs(v.Elems)
		t, set := lower.BuildSet(p, elems)
		p.releaseAll(elems)
		return lower.Item{Value: set, Type: t}
	case *syntax.TupleLit:
		elems := p.genExprs(v.Elems)
		tuple := lower.BuildTuple(p, elems)
		p.releaseAll(elems)
		return lower.Item{Value: tuple, Type: typing.ForeignType().Owned()}
	case *syntax.DictLit:
		keys := p.genExprs(v.Keys)
		values := p.genExprs(v.Values)
		dict := lower.BuildDict(p, keys, values)
		p.releaseAll(values)
		p.releaseAll(keys)
		return lower.Item{Value: dict, Type: typing.ForeignType().Owned()}
	case *syntax.IfExpr:
		return p.genIfExpr(v)
	}

	p.raise(expr.Span(), "unsupported expression")
	return lower.Item{}
}

func (p *Parser) genExprs(exprs []syntax.ASTExpr) []lower.Item {
	items := make([]lower.Item, len(exprs))
	for i, expr := range exprs {
		items[i] = p.genExpr(expr)
	}

	return items
}

func (p *Parser) releaseAll(items []lower.Item) {
	for i := len(items) - 1; i >= 0; i-- {
		p.release(items[i])
	}
}

// genName loads the value of a name: a variable, or else a builtin looked up
// at runtime.  Classes and functions are not values.
func (p *Parser) genName(name *syntax.Name) lower.Item {
	if v, ok := p.lookupVar(name.Ident); ok {
		return p.loadVar(v)
	}

	if _, ok := p.fs.file.FindContentByName(p.prog, name.Ident); ok {
		p.raise(name.Span(), "`%s` is a class or function and can only be called", name.Ident)
	}

	return lower.Item{Value: lower.LookupBuiltin(p, name.Ident), Type: typing.ForeignType()}
}

// isProgramName returns whether name refers to a variable, class or function
// of the program rather than to a builtin.
func (p *Parser) isProgramName(name string) bool {
	if _, ok := p.lookupVar(name); ok {
		return true
	}

	_, ok := p.fs.file.FindContentByName(p.prog, name)
	return ok
}

// loadAttr loads an attribute of recv.  Attributes of user objects are read
// from their slot.
func (p *Parser) loadAttr(recv lower.Item, attr *syntax.Attribute) lower.Item {
	if recv.Type.Kind == typing.KindObject {
		class := p.prog.Class(recv.Type.ClassID)
		if _, ok := class.AttrIndex(attr.Attr); !ok {
			if _, isMethod := class.FuncByName(p.prog, attr.Attr); isMethod {
				p.raise(attr.Span(), "method `%s.%s` can only be called", class.Name, attr.Attr)
			}

			p.raise(attr.Span(), "`%s` has no attribute `%s`", class.Name, attr.Attr)
		}

		t, v := lower.GetObjAttr(p, recv.Value, class.ID, attr.Attr)
		return lower.Item{Value: v, Type: t}
	}

	obj := p.box(recv)
	v := lower.GetAttr(p, obj.Value, attr.Attr)
	p.release(obj)
	return lower.Item{Value: v, Type: typing.ForeignType().Owned()}
}

// loadItem loads the item of recv at index.  Lists indexed by native integers
// are read directly.
func (p *Parser) loadItem(recv, index lower.Item) lower.Item {
	if recv.Type.IsList() && index.Type.Kind == typing.KindInt {
		t, v := lower.ListGetItem(p, recv.Value, index.Value)
		return lower.Item{Value: v, Type: t}
	}

	obj := p.box(recv)
	key := p.box(index)
	v := lower.GetItem(p, obj.Value, key.Value)
	p.release(key)
	p.release(obj)
	return lower.Item{Value: v, Type: typing.ForeignType().Owned()}
}

// box returns an item as a foreign object.  The item is not consumed: the
// result is owned only when a new object had to be created.
func (p *Parser) box(item lower.Item) lower.Item {
	t, v := lower.ValueToForeignObject(p, item.Value, item.Type.Borrowed())
	return lower.Item{Value: v, Type: t}
}

// -----------------------------------------------------------------------------

// genIfExpr generates a conditional expression.
func (p *Parser) genIfExpr(ifExpr *syntax.IfExpr) lower.Item {
	b := p.fs.b

	cond := p.genCond(ifExpr.Cond)
	thenBlock := b.NewBlock("ifexpr.then")
	elseBlock := b.NewBlock("ifexpr.else")
	merge := b.NewBlock("ifexpr.done")
	b.Block.NewCondBr(cond, thenBlock, elseBlock)

	b.SetBlock(thenBlock)
	x := p.genExpr(ifExpr.Then)
	xEnd := b.Block

	b.SetBlock(elseBlock)
	y := p.genExpr(ifExpr.Else)
	yEnd := b.Block

	return p.mergeItems(x, xEnd, y, yEnd, merge)
}

// genBoolOp generates `and` and `or`.  The result is the last operand
// evaluated, as a foreign object if the operands have different types.
func (p *Parser) genBoolOp(op *syntax.BoolOp) lower.Item {
	b := p.fs.b

	lhs := p.genExpr(op.Lhs)
	truth := lower.Truthy(p, lhs.Value, lhs.Type)

	short := b.NewBlock("bool.short")
	rhsBlock := b.NewBlock("bool.rhs")
	merge := b.NewBlock("bool.done")
	if op.Op == "and" {
		b.Block.NewCondBr(truth, rhsBlock, short)
	} else {
		b.Block.NewCondBr(truth, short, rhsBlock)
	}

	b.SetBlock(rhsBlock)
	p.release(lhs)
	rhs := p.genExpr(op.Rhs)
	rhsEnd := b.Block

	return p.mergeItems(lhs, short, rhs, rhsEnd, merge)
}

// mergeItems joins the items computed by two open branches in merge.  Items
// of the same type are joined as is and any other pair is boxed.  Both
// branches acquire a reference to refcounted results: the merged item is
// owned.
func (p *Parser) mergeItems(x lower.Item, xEnd *ir.Block, y lower.Item, yEnd *ir.Block, merge *ir.Block) lower.Item {
	b := p.fs.b

	t := x.Type.Bare()
	same := t.Equals(y.Type)
	if !same {
		t = typing.ForeignType()
	}

	incoming := func(item lower.Item, end *ir.Block) *ir.Incoming {
		b.SetBlock(end)

		v := item.Value
		switch {
		case !same:
			bt, obj := lower.ValueToForeignObject(p, item.Value, item.Type.Borrowed())
			if bt.IsOwned() {
				p.release(item)
			} else if !item.Type.IsOwned() {
				lower.Own(p, obj, bt)
			}

			v = lower.AsObj(p, obj)
		case t.IsRefCounted():
			lower.Own(p, v, item.Type)
			v = p.castTo(v, p.cg.ConvType(t))
		}

		inc := ir.NewIncoming(v, b.Block)
		b.Block.NewBr(merge)
		return inc
	}

	xInc := incoming(x, xEnd)
	yInc := incoming(y, yEnd)

	b.SetBlock(merge)
	phi := b.Block.NewPhi(xInc, yInc)

	if t.IsRefCounted() {
		t = t.Owned()
	}

	return lower.Item{Value: phi, Type: t}
}
