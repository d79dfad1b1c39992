package walk

import (
	"math"

	"flyable/lower"
	"flyable/report"
	"flyable/syntax"
	"flyable/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// numberProtocol maps binary operators onto their generic entry points.
var numberProtocol = map[string]string{
	"+":  "PyNumber_Add",
	"-":  "PyNumber_Subtract",
	"*":  "PyNumber_Multiply",
	"/":  "PyNumber_TrueDivide",
	"//": "PyNumber_FloorDivide",
	"%":  "PyNumber_Remainder",
	"**": "PyNumber_Power",
	"<<": "PyNumber_Lshift",
	">>": "PyNumber_Rshift",
	"&":  "PyNumber_And",
	"|":  "PyNumber_Or",
	"^":  "PyNumber_Xor",
	"@":  "PyNumber_MatrixMultiply",
}

// richCompareOps are the operator ids of the rich comparison protocol.
var richCompareOps = map[string]int64{
	"<":  0,
	"<=": 1,
	"==": 2,
	"!=": 3,
	">":  4,
	">=": 5,
}

// genBinaryOp generates a binary operator.  Operators on native numbers are
// native, folded when both operands are known constants.  Every other
// operator uses the number protocol.  The operands are not consumed.
func (p *Parser) genBinaryOp(op string, lhs, rhs lower.Item, span *report.TextSpan) lower.Item {
	if _, ok := numberProtocol[op]; !ok {
		report.ICE("unknown binary operator `%s`", op)
	}

	if lhs.Type.IsNumeric() && rhs.Type.IsNumeric() {
		if result, ok := p.genNativeBinaryOp(op, lhs, rhs); ok {
			return result
		}
	}

	return p.genGenericBinaryOp(op, lhs, rhs)
}

func (p *Parser) genGenericBinaryOp(op string, lhs, rhs lower.Item) lower.Item {
	l := p.box(lhs)
	r := p.box(rhs)

	args := []value.Value{l.Value, r.Value}
	if op == "**" {
		args = append(args, lower.NoneObj(p))
	}

	v := lower.CheckException(p, lower.Call(p, numberProtocol[op], args...))
	p.release(r)
	p.release(l)
	return lower.Item{Value: v, Type: typing.ForeignType().Owned()}
}

// genNativeBinaryOp returns false if op has no native form for the operand
// types.  Nothing is generated in that case.
func (p *Parser) genNativeBinaryOp(op string, lhs, rhs lower.Item) (lower.Item, bool) {
	block := p.fs.b.Block
	lk, rk := lhs.Type.Kind, rhs.Type.Kind

	if lk == typing.KindBool && rk == typing.KindBool {
		switch op {
		case "&":
			return lower.Item{Value: block.NewAnd(lhs.Value, rhs.Value), Type: typing.BoolType()}, true
		case "|":
			return lower.Item{Value: block.NewOr(lhs.Value, rhs.Value), Type: typing.BoolType()}, true
		case "^":
			return lower.Item{Value: block.NewXor(lhs.Value, rhs.Value), Type: typing.BoolType()}, true
		}
	}

	if lk == typing.KindDec || rk == typing.KindDec || op == "/" {
		return p.genDecBinaryOp(op, lhs, rhs)
	}

	return p.genIntBinaryOp(op, lhs, rhs)
}

func (p *Parser) genIntBinaryOp(op string, lhs, rhs lower.Item) (lower.Item, bool) {
	lc, lconst := lhs.Type.Const()
	rc, rconst := rhs.Type.Const()

	if lconst && rconst && lc.Kind == typing.ConstInt && rc.Kind == typing.ConstInt {
		if v, ok := foldInt(op, lc.Int, rc.Int); ok {
			return lower.Item{Value: constant.NewInt(types.I64, v), Type: typing.ConstIntType(v)}, true
		}
	}

	switch op {
	case "+", "-", "*", "&", "|", "^", "//", "%":
	default:
		return lower.Item{}, false
	}

	l, r := p.toInt(lhs), p.toInt(rhs)
	block := p.fs.b.Block

	var v value.Value
	switch op {
	case "+":
		v = block.NewAdd(l, r)
	case "-":
		v = block.NewSub(l, r)
	case "*":
		v = block.NewMul(l, r)
	case "&":
		v = block.NewAnd(l, r)
	case "|":
		v = block.NewOr(l, r)
	case "^":
		v = block.NewXor(l, r)
	case "//", "%":
		if !rconst || rc.Int == 0 {
			p.checkIntDivisor(r)
		}

		v = p.genFloorDivMod(op, l, r)
	}

	return lower.Item{Value: v, Type: typing.IntType()}, true
}

// checkIntDivisor raises ZeroDivisionError if r is zero.
func (p *Parser) checkIntDivisor(r value.Value) {
	b := p.fs.b

	isZero := b.Block.NewICmp(enum.IPredEQ, r, constant.NewInt(types.I64, 0))
	fail := b.NewBlock("div.zero")
	ok := b.NewBlock("div.ok")
	b.Block.NewCondBr(isZero, fail, ok)

	b.SetBlock(fail)
	lower.RaiseMessage(p, "ZeroDivisionError", "integer division or modulo by zero")
	lower.HandleRaisedException(p)

	b.SetBlock(ok)
}

// genFloorDivMod generates floor division and modulo: the quotient rounds
// toward negative infinity and the remainder takes the sign of the divisor.
func (p *Parser) genFloorDivMod(op string, l, r value.Value) value.Value {
	block := p.fs.b.Block
	zero := constant.NewInt(types.I64, 0)

	rem := block.NewSRem(l, r)
	nonZero := block.NewICmp(enum.IPredNE, rem, zero)
	signsDiffer := block.NewICmp(enum.IPredSLT, block.NewXor(rem, r), zero)
	adjust := block.NewAnd(nonZero, signsDiffer)

	if op == "%" {
		return block.NewSelect(adjust, block.NewAdd(rem, r), rem)
	}

	quo := block.NewSDiv(l, r)
	return block.NewSelect(adjust, block.NewSub(quo, constant.NewInt(types.I64, 1)), quo)
}

// foldInt evaluates an integer operator on constants.
func foldInt(op string, l, r int64) (int64, bool) {
	switch op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "&":
		return l & r, true
	case "|":
		return l | r, true
	case "^":
		return l ^ r, true
	case "//", "%":
		if r == 0 {
			return 0, false
		}

		q, m := l/r, l%r
		if m != 0 && (m^r) < 0 {
			q--
			m += r
		}

		if op == "%" {
			return m, true
		}

		return q, true
	}

	return 0, false
}

func (p *Parser) genDecBinaryOp(op string, lhs, rhs lower.Item) (lower.Item, bool) {
	switch op {
	case "+", "-", "*", "/":
	default:
		return lower.Item{}, false
	}

	if v, ok := foldDec(op, lhs.Type, rhs.Type); ok {
		return lower.Item{Value: constant.NewFloat(types.Double, v), Type: typing.ConstDecType(v)}, true
	}

	l, r := p.toDouble(lhs), p.toDouble(rhs)
	block := p.fs.b.Block

	var v value.Value
	switch op {
	case "+":
		v = block.NewFAdd(l, r)
	case "-":
		v = block.NewFSub(l, r)
	case "*":
		v = block.NewFMul(l, r)
	case "/":
		b := p.fs.b
		isZero := b.Block.NewFCmp(enum.FPredOEQ, r, constant.NewFloat(types.Double, 0))
		fail := b.NewBlock("div.zero")
		ok := b.NewBlock("div.ok")
		b.Block.NewCondBr(isZero, fail, ok)

		b.SetBlock(fail)
		lower.RaiseMessage(p, "ZeroDivisionError", "division by zero")
		lower.HandleRaisedException(p)

		b.SetBlock(ok)
		v = b.Block.NewFDiv(l, r)
	}

	return lower.Item{Value: v, Type: typing.DecType()}, true
}

// foldDec evaluates a decimal operator on constants.  Division is never
// folded.
func foldDec(op string, lt, rt typing.LangType) (float64, bool) {
	lc, lok := lt.Const()
	rc, rok := rt.Const()
	if !lok || !rok || op == "/" {
		return 0, false
	}

	l, r := constFloat(lc), constFloat(rc)

	var v float64
	switch op {
	case "+":
		v = l + r
	case "-":
		v = l - r
	case "*":
		v = l * r
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}

func constFloat(c typing.Constant) float64 {
	if c.Kind == typing.ConstInt {
		return float64(c.Int)
	}

	return c.Dec
}

// toInt widens a native integer or boolean to a 64-bit integer.
func (p *Parser) toInt(item lower.Item) value.Value {
	if item.Type.Kind == typing.KindBool {
		return p.fs.b.Block.NewZExt(item.Value, types.I64)
	}

	return item.Value
}

// toDouble converts a native number to a double.
func (p *Parser) toDouble(item lower.Item) value.Value {
	switch item.Type.Kind {
	case typing.KindInt:
		return p.fs.b.Block.NewSIToFP(item.Value, types.Double)
	case typing.KindBool:
		return p.fs.b.Block.NewUIToFP(item.Value, types.Double)
	}

	return item.Value
}

// -----------------------------------------------------------------------------

// genUnaryOp generates a unary operator.
func (p *Parser) genUnaryOp(op *syntax.UnaryOp) lower.Item {
	operand := p.genExpr(op.Operand)
	block := p.fs.b.Block

	if op.Op == "not" {
		truth := lower.Truthy(p, operand.Value, operand.Type)
		p.release(operand)
		return lower.Item{Value: p.fs.b.Block.NewXor(truth, constant.True), Type: typing.BoolType()}
	}

	if c, ok := operand.Type.Const(); ok && op.Op == "-" {
		if c.Kind == typing.ConstInt {
			return lower.Item{Value: constant.NewInt(types.I64, -c.Int), Type: typing.ConstIntType(-c.Int)}
		}

		return lower.Item{Value: constant.NewFloat(types.Double, -c.Dec), Type: typing.ConstDecType(-c.Dec)}
	}

	switch operand.Type.Kind {
	case typing.KindInt, typing.KindBool:
		v := p.toInt(operand)
		switch op.Op {
		case "-":
			return lower.Item{Value: block.NewSub(constant.NewInt(types.I64, 0), v), Type: typing.IntType()}
		case "+":
			return lower.Item{Value: v, Type: typing.IntType()}
		case "~":
			return lower.Item{Value: block.NewXor(v, constant.NewInt(types.I64, -1)), Type: typing.IntType()}
		}
	case typing.KindDec:
		switch op.Op {
		case "-":
			return lower.Item{Value: block.NewFNeg(operand.Value), Type: typing.DecType()}
		case "+":
			return operand
		}
	}

	name := map[string]string{"-": "PyNumber_Negative", "+": "PyNumber_Positive", "~": "PyNumber_Invert"}[op.Op]
	if name == "" {
		report.ICE("unknown unary operator `%s`", op.Op)
	}

	obj := p.box(operand)
	v := lower.CheckException(p, lower.Call(p, name, obj.Value))
	p.release(obj)
	p.release(operand)
	return lower.Item{Value: v, Type: typing.ForeignType().Owned()}
}

// -----------------------------------------------------------------------------

// genCompare generates a comparison chain.  Each operand is evaluated at most
// once and the chain stops at the first false comparison.
func (p *Parser) genCompare(cmp *syntax.Compare) lower.Item {
	b := p.fs.b

	left := p.genExpr(cmp.Operands[0])
	if len(cmp.Ops) == 1 {
		right := p.genExpr(cmp.Operands[1])
		result := p.compareOp(cmp.Ops[0], left, right)
		p.release(right)
		p.release(left)
		return lower.Item{Value: result, Type: typing.BoolType()}
	}

	done := b.NewBlock("cmp.done")

	var incs []*ir.Incoming
	for i, op := range cmp.Ops {
		right := p.genExpr(cmp.Operands[i+1])
		result := p.compareOp(op, left, right)
		p.release(left)

		if i == len(cmp.Ops)-1 {
			p.release(right)
			incs = append(incs, ir.NewIncoming(result, b.Block))
			b.Block.NewBr(done)
			break
		}

		next := b.NewBlock("cmp.next")
		fail := b.NewBlock("cmp.fail")
		b.Block.NewCondBr(result, next, fail)

		b.SetBlock(fail)
		p.release(right)
		incs = append(incs, ir.NewIncoming(constant.False, b.Block))
		b.Block.NewBr(done)

		b.SetBlock(next)
		left = right
	}

	b.SetBlock(done)
	return lower.Item{Value: b.Block.NewPhi(incs...), Type: typing.BoolType()}
}

// compareOp generates a single comparison and returns its native truth value.
// The operands are not consumed.
func (p *Parser) compareOp(op string, lhs, rhs lower.Item) value.Value {
	b := p.fs.b

	switch op {
	case "is", "is not":
		l, r := p.box(lhs), p.box(rhs)
		pred := enum.IPredEQ
		if op == "is not" {
			pred = enum.IPredNE
		}

		v := b.Block.NewICmp(pred, lower.AsObj(p, l.Value), lower.AsObj(p, r.Value))
		p.release(r)
		p.release(l)
		return v
	case "in", "not in":
		item, container := p.box(lhs), p.box(rhs)
		v := lower.Contains(p, container.Value, item.Value)
		p.release(container)
		p.release(item)

		if op == "not in" {
			return b.Block.NewXor(v, constant.True)
		}

		return v
	}

	opID, ok := richCompareOps[op]
	if !ok {
		report.ICE("unknown comparison operator `%s`", op)
	}

	if lhs.Type.IsNumeric() && rhs.Type.IsNumeric() {
		return p.compareNative(opID, lhs, rhs)
	}

	l, r := p.box(lhs), p.box(rhs)
	res := lower.CheckException(p, lower.Call(p, "PyObject_RichCompare", l.Value, r.Value, constant.NewInt(types.I32, opID)))
	p.release(r)
	p.release(l)

	resItem := lower.Item{Value: res, Type: typing.ForeignType().Owned()}
	truth := lower.Truthy(p, res, resItem.Type)
	p.release(resItem)
	return truth
}

var (
	intPreds = []enum.IPred{enum.IPredSLT, enum.IPredSLE, enum.IPredEQ, enum.IPredNE, enum.IPredSGT, enum.IPredSGE}
	decPreds = []enum.FPred{enum.FPredOLT, enum.FPredOLE, enum.FPredOEQ, enum.FPredUNE, enum.FPredOGT, enum.FPredOGE}
)

// compareNative compares native numbers, promoting to double if either is a
// decimal.
func (p *Parser) compareNative(opID int64, lhs, rhs lower.Item) value.Value {
	block := p.fs.b.Block

	if lhs.Type.Kind == typing.KindDec || rhs.Type.Kind == typing.KindDec {
		return block.NewFCmp(decPreds[opID], p.toDouble(lhs), p.toDouble(rhs))
	}

	return block.NewICmp(intPreds[opID], p.toInt(lhs), p.toInt(rhs))
}
