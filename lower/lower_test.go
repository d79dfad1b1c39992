package lower

import (
	"strings"
	"testing"

	"flyable/codegen"
	"flyable/depm"
	"flyable/syntax"
	"flyable/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCtx struct {
	cg      *codegen.CodeGen
	b       *codegen.Builder
	target  *ir.Block
	pending []*Pending
}

func (tc *testCtx) CodeGen() *codegen.CodeGen { return tc.cg }
func (tc *testCtx) Builder() *codegen.Builder { return tc.b }
func (tc *testCtx) HandlerTarget() *ir.Block { return tc.target }
func (tc *testCtx) Track(p *Pending) { tc.pending = append(tc.pending, p) }
func (tc *testCtx) ReturnNull() { tc.b.Block.NewRet(tc.cg.NullObj()) }

const pointSrc = `
class Point:
    def __init__(self, x):
        self.x = x
`

func newTestCtx(t *testing.T) *testCtx {
	t.Helper()

	p := depm.NewProgram("/proj")
	p.Register("/proj/point.py", "point.py", []byte(pointSrc), syntax.Parse([]byte(pointSrc)))
	for _, c := range p.Classes {
		p.LayoutClass(c)
	}

	cg := codegen.NewCodeGen(p)
	f := cg.Mod.NewFunc("test", cg.PyObjPtr)
	return &testCtx{cg: cg, b: codegen.NewBuilder(f)}
}

// moduleText terminates the block being built and prints the module.
func moduleText(tc *testCtx) string {
	if !tc.b.Terminated() {
		tc.ReturnNull()
	}

	return tc.cg.Mod.String()
}

func TestCheckExceptionReturnsNullWithoutHandler(t *testing.T) {
	tc := newTestCtx(t)
	start := tc.b.Block

	p := Call(tc, "PyLong_FromLongLong", constant.NewInt(types.I64, 5))
	require.Len(t, tc.pending, 1)
	assert.False(t, p.Resolved())

	v := CheckException(tc, p)
	assert.True(t, p.Resolved())
	assert.Equal(t, p.Value, v)

	br, ok := start.Term.(*ir.TermCondBr)
	require.True(t, ok)
	excBlock, ok := br.TargetTrue.(*ir.Block)
	require.True(t, ok)
	assert.Equal(t, "exc", excBlock.Name())
	assert.Equal(t, tc.b.Block, br.TargetFalse)

	ret, ok := excBlock.Term.(*ir.TermRet)
	require.True(t, ok)
	assert.IsType(t, &constant.Null{}, ret.X)
	assert.Nil(t, tc.b.Block.Term)
}

func TestCheckExceptionBranchesToHandler(t *testing.T) {
	tc := newTestCtx(t)
	tc.target = tc.b.NewBlock("handler")
	start := tc.b.Block

	CheckException(tc, Call(tc, "PyList_New", constant.NewInt(types.I64, 0)))

	excBlock := start.Term.(*ir.TermCondBr).TargetTrue.(*ir.Block)
	br, ok := excBlock.Term.(*ir.TermBr)
	require.True(t, ok)
	assert.Equal(t, tc.target, br.Target)
}

func TestCheckModesMustMatch(t *testing.T) {
	tc := newTestCtx(t)

	assert.Panics(t, func() {
		CallSafe(tc, "PyList_New", constant.NewInt(types.I64, 0))
	})
	assert.Panics(t, func() {
		Call(tc, "Py_IncRef", tc.cg.NullObj())
	})
	assert.Panics(t, func() {
		CheckErrorCode(tc, Call(tc, "PyDict_New"))
	})
}

func TestRaiseDefaultsToEmptyString(t *testing.T) {
	tc := newTestCtx(t)

	RaiseIndexError(tc, "")
	HandleRaisedException(tc)

	out := moduleText(tc)
	assert.Contains(t, out, "@PyExc_IndexError = external global %PyObject*")
	assert.Contains(t, out, "call void @PyErr_SetObject")
	assert.IsType(t, &ir.TermRet{}, tc.b.Block.Term)
}

func TestValueToForeignObjectOwnership(t *testing.T) {
	tc := newTestCtx(t)

	rt, _ := ValueToForeignObject(tc, constant.True, typing.BoolType())
	assert.True(t, rt.IsOwned())

	rt, _ = ValueToForeignObject(tc, tc.cg.NullObj(), typing.NoneType())
	assert.True(t, rt.IsOwned())

	rt, _ = ValueToForeignObject(tc, tc.cg.NullObj(), typing.ListType())
	assert.False(t, rt.IsOwned())

	rt, _ = ValueToForeignObject(tc, tc.cg.NullObj(), typing.SetType().Owned())
	assert.True(t, rt.IsOwned())

	objPtr := constant.NewNull(types.NewPointer(tc.cg.ClassStruct(0)))
	rt, v := ValueToForeignObject(tc, objPtr, typing.ObjType(0))
	assert.False(t, rt.IsOwned())
	assert.True(t, v.Type().Equal(tc.cg.PyObjPtr))

	rt, _ = ValueToForeignObject(tc, constant.NewInt(types.I64, 3), typing.ConstIntType(3))
	assert.False(t, rt.IsOwned())

	rt, _ = ValueToForeignObject(tc, constant.NewInt(types.I64, 3), typing.IntType())
	assert.True(t, rt.IsOwned())

	for _, p := range tc.pending {
		assert.True(t, p.Resolved(), p.String())
	}

	out := moduleText(tc)
	assert.Contains(t, out, "@_Py_TrueStruct")
	assert.Contains(t, out, "@_Py_FalseStruct")
	assert.Contains(t, out, "@const.0 = internal global %PyObject* null")
}

func TestListGetItemBoundsCheck(t *testing.T) {
	tc := newTestCtx(t)

	_, list := NewList(tc)
	it, _ := ListGetItem(tc, list, constant.NewInt(types.I64, -1))
	assert.True(t, it.IsOwned())

	out := moduleText(tc)
	assert.Contains(t, out, "@PyExc_IndexError")
	assert.Contains(t, out, "list index out of range")
	assert.Contains(t, out, "call void @PyErr_SetString")
	assert.NotContains(t, out, "@PyErr_SetObject")
	assert.Contains(t, out, "icmp ult i64")
}

func TestNewObjectLayout(t *testing.T) {
	tc := newTestCtx(t)

	ot, _ := NewObject(tc, 0)
	assert.True(t, ot.IsOwned())
	assert.Equal(t, typing.KindObject, ot.Kind)

	out := moduleText(tc)
	assert.Contains(t, out, "%class.Point.0 = type { i64, i8*, %PyObject* }")
	assert.Contains(t, out, "@PyObject_Malloc")
	assert.Contains(t, out, "@PyErr_NoMemory")
	assert.Contains(t, out, "@PyBaseObject_Type")
}

func TestDecrefUserObjectUsesDealloc(t *testing.T) {
	tc := newTestCtx(t)

	_, obj := NewObject(tc, 0)
	Decref(tc, obj, typing.ObjType(0))

	f, ok := tc.cg.Dealloc[0]
	require.True(t, ok)
	assert.Equal(t, "dealloc.Point.0", f.Name())

	out := moduleText(tc)
	assert.True(t, strings.Contains(out, "call void @dealloc.Point.0(%class.Point.0*"))
	assert.Contains(t, out, "call void @PyObject_Free")
}

func TestCallObjectReleasesArguments(t *testing.T) {
	tc := newTestCtx(t)

	callable := LookupBuiltin(tc, "print")
	CallObject(tc, callable, []Item{{Value: constant.NewInt(types.I64, 1), Type: typing.IntType()}}, []string{"sep"}, []Item{{Value: constant.True, Type: typing.BoolType()}})

	for _, p := range tc.pending {
		assert.True(t, p.Resolved(), p.String())
	}

	out := moduleText(tc)
	assert.Contains(t, out, "@PyDict_GetItemString")
	assert.Contains(t, out, "name 'print' is not defined")
	assert.Contains(t, out, "@PyObject_Call")
	assert.Contains(t, out, "@PyTuple_SetItem")
}
