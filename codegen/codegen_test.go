package codegen

import (
	"testing"

	"flyable/depm"
	"flyable/syntax"
	"flyable/typing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geometry = `
class Vec:
    def __init__(self, x, y):
        self.x = x
        self.y = y

    def norm(self):
        return self.x

def scale(v, k):
    return v
`

func newTestProgram(t *testing.T) *depm.Program {
	t.Helper()

	p := depm.NewProgram("/proj")
	p.Register("/proj/geometry.py", "geometry.py", []byte(geometry), syntax.Parse([]byte(geometry)))
	for _, f := range p.Files {
		p.LinkClasses(f)
	}

	for _, c := range p.Classes {
		p.LayoutClass(c)
	}

	return p
}

func TestDeclareImplIsIdempotent(t *testing.T) {
	p := newTestProgram(t)
	cg := NewCodeGen(p)

	scale, ok := p.Files[0].FindContentByName(p, "scale")
	require.True(t, ok)

	impl := p.NewImpl(p.Func(scale.ID), []typing.LangType{typing.ObjType(0), typing.IntType()})
	f := cg.DeclareImpl(impl)
	assert.Equal(t, "geometry.scale.0", f.Name())
	assert.Same(t, f, cg.DeclareImpl(impl))

	require.Len(t, f.Params, 2)
	assert.Equal(t, "%class.Vec.0*", f.Params[0].Type().String())
	assert.Equal(t, "i64", f.Params[1].Type().String())
	assert.True(t, f.Sig.RetType.Equal(cg.PyObjPtr))

	got, ok := cg.ImplFunc(impl)
	assert.True(t, ok)
	assert.Same(t, f, got)

	assert.Panics(t, func() {
		cg.DeclareImpl(p.Func(scale.ID).UnknownImpl(p))
	})
}

func TestGlobalImplName(t *testing.T) {
	p := newTestProgram(t)
	cg := NewCodeGen(p)

	f := cg.DeclareImpl(p.GlobalImpl(p.Files[0]))
	assert.Equal(t, "geometry.__module__", f.Name())
}

func TestMethodImplName(t *testing.T) {
	p := newTestProgram(t)
	cg := NewCodeGen(p)

	norm, ok := p.Class(0).FuncByName(p, "norm")
	require.True(t, ok)

	f := cg.DeclareImpl(p.NewImpl(norm, []typing.LangType{typing.ObjType(0)}))
	assert.Equal(t, "geometry.Vec.norm.0", f.Name())
}

func TestConstPoolDedup(t *testing.T) {
	cg := NewCodeGen(newTestProgram(t))

	a := cg.GetOrInsertConst(typing.IntConst(7))
	b := cg.GetOrInsertConst(typing.IntConst(7))
	c := cg.GetOrInsertConst(typing.DecConst(7))
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)

	s := cg.GetOrInsertStr("7", false)
	bs := cg.GetOrInsertStr("7", true)
	assert.NotSame(t, s, bs)
	assert.Same(t, s, cg.GetOrInsertStr("7", false))

	assert.Len(t, cg.constInits, 4)
	assert.Panics(t, func() { cg.GetOrInsertConst(typing.Constant{}) })
}

func TestClassStructLayout(t *testing.T) {
	cg := NewCodeGen(newTestProgram(t))

	st := cg.ClassStruct(0)
	assert.Same(t, st, cg.ClassStruct(0))
	assert.Contains(t, cg.Mod.String(), "%class.Vec.0 = type { i64, i8*, %PyObject*, %PyObject* }")
}

func TestForeignDeclarations(t *testing.T) {
	cg := NewCodeGen(newTestProgram(t))

	f := cg.GetOrCreateFunc("PyNumber_Power")
	assert.Len(t, f.Params, 3)
	assert.Same(t, f, cg.GetOrCreateFunc("PyNumber_Power"))
	assert.Panics(t, func() { cg.GetOrCreateFunc("PyNotAThing") })

	none := cg.GetOrCreateGlobalVar("_Py_NoneStruct")
	assert.True(t, none.ContentType.Equal(cg.PyObject))

	exc := cg.GetOrCreateGlobalVar("PyExc_ValueError")
	assert.True(t, exc.ContentType.Equal(cg.PyObjPtr))

	sig, ok := cg.Foreign("PyIter_Next")
	require.True(t, ok)
	assert.Equal(t, FailOccurred, sig.Fail)
}

func TestBuilderBlockNames(t *testing.T) {
	cg := NewCodeGen(newTestProgram(t))
	b := NewBuilder(cg.Mod.NewFunc("f", cg.PyObjPtr))

	assert.Equal(t, "body", b.Block.Name())
	assert.Equal(t, "loop", b.NewBlock("loop").Name())
	assert.Equal(t, "loop.1", b.NewBlock("loop").Name())

	target := b.NewBlock("exit")
	b.Br(target)
	assert.True(t, b.Terminated())

	// A terminated block is never branched twice.
	b.Br(b.NewBlock("other"))
	assert.Equal(t, target.Name(), b.Block.Term.Succs()[0].Name())
}

func TestGenerateEntry(t *testing.T) {
	p := newTestProgram(t)
	cg := NewCodeGen(p)

	entry := cg.DeclareImpl(p.GlobalImpl(p.Files[0]))
	eb := NewBuilder(entry)
	eb.Block.NewRet(cg.NullObj())

	cg.GetOrInsertConst(typing.IntConst(42))
	cg.GetOrInsertStr("hi", false)

	main := cg.GenerateEntry(entry)
	assert.Equal(t, "main", main.Name())

	out := cg.Mod.String()
	assert.Contains(t, out, "define i32 @main()")
	assert.NotContains(t, out, "define external")
	assert.Contains(t, out, "call void @Py_Initialize()")
	assert.Contains(t, out, "@PyLong_FromLongLong(i64 42)")
	assert.Contains(t, out, "@PyUnicode_FromStringAndSize")
	assert.Contains(t, out, "call void @PyErr_Print()")
	assert.Contains(t, out, "call %PyObject* @geometry.__module__()")
}
