package builtin

import (
	"testing"

	"flyable/codegen"
	"flyable/depm"
	"flyable/lower"
	"flyable/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
)

type testCtx struct {
	cg *codegen.CodeGen
	b  *codegen.Builder
}

func (tc *testCtx) CodeGen() *codegen.CodeGen { return tc.cg }
func (tc *testCtx) Builder() *codegen.Builder { return tc.b }
func (tc *testCtx) HandlerTarget() *ir.Block { return nil }
func (tc *testCtx) Track(p *lower.Pending) {}
func (tc *testCtx) ReturnNull() { tc.b.Block.NewRet(tc.cg.NullObj()) }

func newTestCtx() *testCtx {
	cg := codegen.NewCodeGen(depm.NewProgram("/proj"))
	return &testCtx{cg: cg, b: codegen.NewBuilder(cg.Mod.NewFunc("test", cg.PyObjPtr))}
}

func (tc *testCtx) text() string {
	if !tc.b.Terminated() {
		tc.ReturnNull()
	}

	return tc.cg.Mod.String()
}

func TestLenOnListIsNative(t *testing.T) {
	tc := newTestCtx()

	lt, list := lower.NewList(tc)
	rt, n := Call(tc, "len", []lower.Item{{Value: list, Type: lt}}, nil, nil)
	assert.Equal(t, typing.KindInt, rt.Kind)
	assert.True(t, n.Type().Equal(types.I64))

	out := tc.text()
	assert.Contains(t, out, "call i64 @PyList_Size")
	assert.NotContains(t, out, "@PyObject_Call")
	assert.NotContains(t, out, "@PyDict_GetItemString")
}

func TestLenOnForeignIsGeneric(t *testing.T) {
	tc := newTestCtx()

	rt, _ := Call(tc, "len", []lower.Item{{Value: tc.cg.NullObj(), Type: typing.ForeignType()}}, nil, nil)
	assert.Equal(t, typing.KindForeign, rt.Kind)
	assert.True(t, rt.IsOwned())

	out := tc.text()
	assert.Contains(t, out, "@PyDict_GetItemString")
	assert.Contains(t, out, `c"len\00"`)
	assert.Contains(t, out, "@PyObject_Call")
	assert.NotContains(t, out, "@PyList_Size")
}

func TestEmptyConstructors(t *testing.T) {
	tc := newTestCtx()

	rt, _ := Call(tc, "list", nil, nil, nil)
	assert.True(t, rt.IsList())
	assert.True(t, rt.IsOwned())

	rt, _ = Call(tc, "set", nil, nil, nil)
	assert.True(t, rt.IsSet())

	out := tc.text()
	assert.Contains(t, out, "@PyList_New(i64 0)")
	assert.Contains(t, out, "@PySet_New(%PyObject* null)")
}

func TestKeywordsUseGenericCall(t *testing.T) {
	tc := newTestCtx()

	arg := lower.Item{Value: constant.NewInt(types.I64, 1), Type: typing.IntType()}
	rt, _ := Call(tc, "int", []lower.Item{arg}, []string{"base"}, []lower.Item{arg})
	assert.Equal(t, typing.KindForeign, rt.Kind)
	assert.Contains(t, tc.text(), "@PyObject_Call")
}

func TestIsOptimized(t *testing.T) {
	assert.True(t, IsOptimized("list", nil))
	assert.False(t, IsOptimized("list", []typing.LangType{typing.ForeignType()}))
	assert.True(t, IsOptimized("len", []typing.LangType{typing.SetType()}))
	assert.False(t, IsOptimized("len", []typing.LangType{typing.ForeignType()}))
	assert.True(t, IsOptimized("abs", []typing.LangType{typing.DecType()}))
	assert.False(t, IsOptimized("print", []typing.LangType{typing.IntType()}))
}

func TestNumericConversions(t *testing.T) {
	tc := newTestCtx()

	rt, v := Call(tc, "float", []lower.Item{{Value: constant.NewInt(types.I64, 2), Type: typing.IntType()}}, nil, nil)
	assert.Equal(t, typing.KindDec, rt.Kind)
	assert.True(t, v.Type().Equal(types.Double))

	rt, v = Call(tc, "int", []lower.Item{{Value: constant.NewFloat(types.Double, 2.7), Type: typing.ConstDecType(2.7)}}, nil, nil)
	c, ok := rt.Const()
	assert.True(t, ok)
	assert.Equal(t, int64(2), c.Int)
	assert.True(t, v.Type().Equal(types.I64))
}
