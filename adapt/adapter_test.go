package adapt

import (
	"errors"
	"testing"

	"flyable/depm"
	"flyable/syntax"
	"flyable/typing"

	"github.com/llir/llvm/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeParser ends every implementation it parses unless it is told to leave
// them started.
type fakeParser struct {
	parsed     []*depm.FuncImpl
	leaveStart bool
}

func (fp *fakeParser) ParseImpl(impl *depm.FuncImpl) {
	fp.parsed = append(fp.parsed, impl)
	if impl.IsUnknown {
		return
	}

	impl.SetStatus(depm.Started)
	if !fp.leaveStart {
		impl.SetStatus(depm.Ended)
	}
}

type fakeDeclarer struct {
	declared []*depm.FuncImpl
}

func (fd *fakeDeclarer) DeclareImpl(impl *depm.FuncImpl) *ir.Func {
	fd.declared = append(fd.declared, impl)
	return nil
}

const counter = `
class Counter:
    def __init__(self, start):
        self.value = start

    def bump(self, by=1):
        self.value = self.value + by

class Named(Counter):
    def name(self):
        return "named"

def add(a, b, *rest):
    return a + b
`

func setup(t *testing.T) (*depm.Program, *Adapter, *fakeParser, *fakeDeclarer) {
	t.Helper()

	p := depm.NewProgram("/proj")
	p.Register("/proj/counter.py", "counter.py", []byte(counter), syntax.Parse([]byte(counter)))
	for _, f := range p.Files {
		p.LinkClasses(f)
	}

	for _, c := range p.Classes {
		p.LayoutClass(c)
	}

	fp, fd := &fakeParser{}, &fakeDeclarer{}
	return p, NewAdapter(p, fp, fd), fp, fd
}

func lookupFunc(t *testing.T, p *depm.Program, name string) *depm.LangFunc {
	t.Helper()

	c, ok := p.Files[0].FindContentByName(p, name)
	require.True(t, ok)
	require.Equal(t, depm.ContentFunc, c.Kind)
	return p.Func(c.ID)
}

func TestSameSignatureSharesImpl(t *testing.T) {
	p, a, fp, fd := setup(t)
	add := lookupFunc(t, p, "add")

	first, err := a.AdaptFunc(add, []typing.LangType{typing.ConstIntType(1), typing.ConstIntType(2)})
	require.NoError(t, err)

	second, err := a.AdaptFunc(add, []typing.LangType{typing.ConstIntType(3), typing.IntType().Owned()})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, fp.parsed, 1)
	assert.Len(t, fd.declared, 1)

	other, err := a.AdaptFunc(add, []typing.LangType{typing.DecType(), typing.IntType()})
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestNewImplStripsHints(t *testing.T) {
	p, a, _, _ := setup(t)
	add := lookupFunc(t, p, "add")

	impl, err := a.AdaptFunc(add, []typing.LangType{typing.ListType().Owned(), typing.ConstIntType(4)})
	require.NoError(t, err)

	for _, arg := range impl.Args {
		assert.False(t, arg.IsOwned())
		_, isConst := arg.Const()
		assert.False(t, isConst)
	}
}

func TestDeclaredBeforeParsed(t *testing.T) {
	p, a, fp, fd := setup(t)

	var declaredFirst bool
	fp2 := &orderParser{fd: fd, ok: &declaredFirst}
	a = NewAdapter(p, fp2, fd)

	_, err := a.AdaptFunc(lookupFunc(t, p, "add"), []typing.LangType{typing.IntType(), typing.IntType()})
	require.NoError(t, err)
	assert.True(t, declaredFirst)
	assert.Empty(t, fp.parsed)
}

type orderParser struct {
	fd *fakeDeclarer
	ok *bool
}

func (op *orderParser) ParseImpl(impl *depm.FuncImpl) {
	*op.ok = len(op.fd.declared) == 1 && op.fd.declared[0] == impl
	impl.SetStatus(depm.Ended)
}

func TestArityBounds(t *testing.T) {
	p, a, _, _ := setup(t)
	add := lookupFunc(t, p, "add")

	for n := 2; n < 6; n++ {
		args := make([]typing.LangType, n)
		for i := range args {
			args[i] = typing.IntType()
		}

		impl, err := a.AdaptFunc(add, args)
		assert.NoError(t, err)
		assert.NotNil(t, impl)
	}

	impl, err := a.AdaptFunc(add, []typing.LangType{typing.IntType()})
	assert.Nil(t, impl)

	var ae *ArityError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 1, ae.Got)
	assert.Equal(t, 2, ae.Min)
	assert.Equal(t, -1, ae.Max)
	assert.Equal(t, "`add` takes at least 2 arguments but got 1", ae.Error())

	bump, ok := p.Class(0).FuncByName(p, "bump")
	require.True(t, ok)
	_, err = a.AdaptFunc(bump, []typing.LangType{typing.ObjType(0), typing.IntType(), typing.IntType()})
	assert.EqualError(t, err, "`Counter.bump` takes between 1 and 2 arguments but got 3")
}

func TestAdaptCallOnClass(t *testing.T) {
	p, a, _, _ := setup(t)

	target, err := a.AdaptCall("bump", typing.ObjType(1), []typing.LangType{typing.IntType()})
	require.NoError(t, err)
	require.NotNil(t, target.Impl)
	assert.Equal(t, "bump", p.Func(target.Impl.Func).Name)
	assert.True(t, target.Impl.Args[0].Equals(typing.ObjType(1)))
	assert.True(t, target.Type.Equals(typing.ObjType(1)))
}

func TestAdaptCallFallsBack(t *testing.T) {
	_, a, fp, _ := setup(t)

	target, err := a.AdaptCall("missing", typing.ObjType(0).Owned(), nil)
	require.NoError(t, err)
	assert.Nil(t, target.Impl)
	assert.True(t, target.Type.Equals(typing.ObjType(0)))
	assert.True(t, target.Type.IsOwned())

	target, err = a.AdaptCall("append", typing.ForeignType(), []typing.LangType{typing.IntType()})
	require.NoError(t, err)
	assert.Nil(t, target.Impl)
	assert.Equal(t, typing.KindForeign, target.Type.Kind)

	assert.Empty(t, fp.parsed)
}

func TestInProgressImplUsesForwardDeclaration(t *testing.T) {
	p, a, fp, _ := setup(t)
	fp.leaveStart = true
	add := lookupFunc(t, p, "add")

	args := []typing.LangType{typing.IntType(), typing.IntType()}
	first, err := a.AdaptFunc(add, args)
	require.NoError(t, err)
	assert.Equal(t, depm.Started, first.Status)

	again, err := a.AdaptFunc(add, args)
	require.NoError(t, err)
	assert.Same(t, first, again)

	require.Len(t, fp.parsed, 2)
	assert.True(t, fp.parsed[1].IsUnknown)
}

func TestClearInfoForcesNewImpl(t *testing.T) {
	p, a, _, _ := setup(t)

	bump, _ := p.Class(0).FuncByName(p, "bump")
	args := []typing.LangType{typing.ObjType(0)}

	before, err := a.AdaptFunc(bump, args)
	require.NoError(t, err)

	p.Class(0).ClearInfo(p)

	after, err := a.AdaptFunc(bump, args)
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, depm.Ended, after.Status)
}
