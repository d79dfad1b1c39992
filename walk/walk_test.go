package walk

import (
	"strings"
	"testing"

	"flyable/codegen"
	"flyable/depm"
	"flyable/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type compiled struct {
	prog *depm.Program
	cg   *codegen.CodeGen
	file *depm.LangFile
	text string
}

func newProgram(t *testing.T, files map[string]string) *depm.Program {
	t.Helper()

	prog := depm.NewProgram("/proj")
	for _, name := range []string{"util.py", "main.py"} {
		if src, ok := files[name]; ok {
			prog.Register("/proj/"+name, name, []byte(src), syntax.Parse([]byte(src)))
		}
	}

	for _, f := range prog.Files {
		prog.LinkImports(f)
	}

	for _, f := range prog.Files {
		prog.LinkClasses(f)
	}

	for _, c := range prog.Classes {
		prog.LayoutClass(c)
	}

	return prog
}

func compileFiles(t *testing.T, files map[string]string) *compiled {
	t.Helper()

	prog := newProgram(t, files)
	file, ok := prog.FileByModule("main")
	require.True(t, ok)

	cg := codegen.NewCodeGen(prog)
	p := NewParser(prog, cg)
	entry := p.ParseModule(file)
	require.NotNil(t, entry)

	cg.GenerateEntry(entry)
	return &compiled{prog: prog, cg: cg, file: file, text: cg.Mod.String()}
}

func compile(t *testing.T, src string) *compiled {
	t.Helper()
	return compileFiles(t, map[string]string{"main.py": src})
}

// compileError compiles src expecting a compile error.
func compileError(t *testing.T, src string) *FileError {
	t.Helper()

	prog := newProgram(t, map[string]string{"main.py": src})
	file, _ := prog.FileByModule("main")

	var fe *FileError
	func() {
		defer func() {
			x := recover()
			require.NotNil(t, x, "expected a compile error")

			var ok bool
			fe, ok = x.(*FileError)
			require.True(t, ok, "unexpected panic: %v", x)
		}()

		NewParser(prog, codegen.NewCodeGen(prog)).ParseModule(file)
	}()

	assert.Same(t, file, fe.File)
	return fe
}

func (c *compiled) funcByName(t *testing.T, name string) *depm.LangFunc {
	t.Helper()

	content, ok := c.file.FindContentByName(c.prog, name)
	require.True(t, ok)
	require.Equal(t, depm.ContentFunc, content.Kind)
	return c.prog.Func(content.ID)
}

// -----------------------------------------------------------------------------

func TestModuleVariablesAreGlobals(t *testing.T) {
	c := compile(t, `
x = 2 * 3
y = x + 1
`)

	assert.Contains(t, c.text, "@init.main = internal global i1 zeroinitializer")
	assert.Contains(t, c.text, "@var.main.x = internal global i64 zeroinitializer")
	assert.Contains(t, c.text, "store i64 6, i64* @var.main.x")
	assert.Contains(t, c.text, "define internal %PyObject* @main.__module__()")
	assert.Contains(t, c.text, "i32 @main()")
}

func TestEveryImplementationEnds(t *testing.T) {
	c := compile(t, `
def fib(n):
    if n < 2:
        return n
    return fib(n - 1) + fib(n - 2)

print(fib(10))
`)

	for _, impl := range c.prog.AllImpls() {
		if !impl.IsUnknown {
			assert.Equal(t, depm.Ended, impl.Status)
		}
	}

	fib := c.funcByName(t, "fib")
	require.Len(t, fib.Impls, 1)
	assert.Contains(t, c.text, "@main.fib.0(i64 %a0)")

	// The recursive calls return foreign objects: the sum is generic.
	assert.Contains(t, c.text, "@PyNumber_Add")
}

func TestSpecializationByArgumentTypes(t *testing.T) {
	c := compile(t, `
def twice(v):
    return v + v

a = twice(1)
b = twice(2)
c = twice(1.5)
`)

	twice := c.funcByName(t, "twice")
	require.Len(t, twice.Impls, 2)

	assert.Contains(t, c.text, "@main.twice.0(i64 %a0)")
	assert.Contains(t, c.text, "@main.twice.1(double %a0)")

	// Native results are unboxed at the call site.
	assert.Contains(t, c.text, "@var.main.a = internal global i64 zeroinitializer")
	assert.Contains(t, c.text, "@var.main.c = internal global double zeroinitializer")
	assert.Contains(t, c.text, "call i64 @PyLong_AsLongLong")
}

func TestRestartOnTypeConflict(t *testing.T) {
	prog := newProgram(t, map[string]string{"main.py": `
def f():
    x = 1
    x = "one"
    return x

f()
`})
	file, _ := prog.FileByModule("main")

	var restart *Restart
	func() {
		defer func() {
			restart, _ = recover().(*Restart)
		}()

		NewParser(prog, codegen.NewCodeGen(prog)).ParseModule(file)
	}()

	require.NotNil(t, restart)
	assert.Equal(t, "f", restart.Func)
	assert.Equal(t, "x", restart.Var)

	content, _ := file.FindContentByName(prog, "f")
	assert.True(t, prog.Func(content.ID).DynamicVars["x"])

	// The next pass stores the variable as a foreign object.
	prog.ClearInfo()
	text := func() string {
		cg := codegen.NewCodeGen(prog)
		NewParser(prog, cg).ParseModule(file)
		return cg.Mod.String()
	}()

	assert.Contains(t, text, "load %PyObject*, %PyObject** @const.0")
}

func TestCompileErrorsCarryTheirFile(t *testing.T) {
	fe := compileError(t, "break\n")
	assert.Contains(t, fe.Err.Message, "outside of a loop")

	fe = compileError(t, "try:\n    pass\nfinally:\n    pass\n")
	assert.Contains(t, fe.Err.Message, "finally")

	fe = compileError(t, "raise\n")
	assert.Contains(t, fe.Err.Message, "bare raise")

	fe = compileError(t, "def f(a):\n    return a\n\nf(1, 2)\n")
	assert.Contains(t, fe.Err.Message, "`f` takes 1 arguments but got 2")
}

func TestKeywordArguments(t *testing.T) {
	c := compile(t, `
def area(width, height=2):
    return width * height

a = area(height=3, width=4)
b = area(5)
`)

	area := c.funcByName(t, "area")
	assert.Len(t, area.Impls, 2)

	fe := compileError(t, "def f(a):\n    return a\n\nf(1, a=2)\n")
	assert.Contains(t, fe.Err.Message, "multiple values for argument `a`")

	fe = compileError(t, "def f(a):\n    return a\n\nf(b=2)\n")
	assert.Contains(t, fe.Err.Message, "unexpected keyword argument `b`")

	fe = compileError(t, "def f(a, b=1, c=2):\n    return a\n\nf(1, c=2)\n")
	assert.Contains(t, fe.Err.Message, "missing argument `b`")
}

func TestClassesAndMethods(t *testing.T) {
	c := compile(t, `
class Counter:
    def __init__(self, start):
        self.count = start

    def bump(self, by=1):
        self.count = self.count + by
        return self.count

c = Counter(0)
c.bump()
`)

	counter := c.prog.Classes[0]
	assert.True(t, counter.Instantiated)

	assert.Contains(t, c.text, "%class.Counter.0 = type { i64, i8*, %PyObject* }")
	assert.Contains(t, c.text, "@main.Counter.__init__.0(%class.Counter.0* %a0, i64 %a1)")
	assert.Contains(t, c.text, "@main.Counter.bump.0(%class.Counter.0* %a0)")
	assert.Contains(t, c.text, "@PyObject_Malloc")
	assert.Contains(t, c.text, "dealloc.Counter.0")

	fe := compileError(t, "class A:\n    pass\n\nA(1)\n")
	assert.Contains(t, fe.Err.Message, "`A` takes no arguments")

	fe = compileError(t, "class A:\n    def __init__(self):\n        self.x = 1\n\na = A()\na.y = 2\n")
	assert.Contains(t, fe.Err.Message, "`A` has no attribute `y`")
}

func TestRangeLoops(t *testing.T) {
	c := compile(t, `
total = 0
for i in range(10):
    total += i
`)

	assert.Contains(t, c.text, "for.cond:")
	assert.Contains(t, c.text, "icmp slt i64")
	assert.NotContains(t, c.text, `c"range\00"`)
	assert.NotContains(t, c.text, "@PyIter_Next")

	c = compile(t, `
def count(step):
    n = 0
    for i in range(0, 10, step):
        n += 1
    return n

count(2)
`)

	assert.Contains(t, c.text, `c"range\00"`)
	assert.Contains(t, c.text, "@PyIter_Next")
}

func TestIteratorLoops(t *testing.T) {
	c := compile(t, `
items = [1, 2, 3]
for item in items:
    if item == 2:
        break
else:
    print("done")
`)

	assert.Contains(t, c.text, "@PyObject_GetIter")
	assert.Contains(t, c.text, "for.else:")
	assert.Contains(t, c.text, "for.exhausted:")
	assert.Contains(t, c.text, "@PyErr_Occurred")
}

func TestTryExcept(t *testing.T) {
	c := compile(t, `
try:
    x = int("a")
except ValueError as e:
    print(e)
except:
    raise
`)

	assert.Contains(t, c.text, "try.except:")
	assert.Contains(t, c.text, "@PyErr_Fetch")
	assert.Contains(t, c.text, "@PyErr_NormalizeException")
	assert.Contains(t, c.text, "@PyErr_GivenExceptionMatches")
	assert.Contains(t, c.text, "@PyErr_Restore")
}

func TestRaiseAndAssert(t *testing.T) {
	c := compile(t, `
def check(v):
    assert v > 0, "must be positive"
    if v > 10:
        raise ValueError("too big")
    return v

check(1)
`)

	assert.Contains(t, c.text, "assert.fail:")
	assert.Contains(t, c.text, "@PyExc_AssertionError")
	assert.Contains(t, c.text, "@PyObject_IsInstance")
	assert.Contains(t, c.text, "@PyType_Type")
}

func TestIntegerDivision(t *testing.T) {
	c := compile(t, `
def div(a, b):
    q = a // b
    r = a % b
    return q + r + a / b

div(7, 2)
`)

	assert.Contains(t, c.text, "div.zero:")
	assert.Contains(t, c.text, "srem i64")
	assert.Contains(t, c.text, "sdiv i64")
	assert.Contains(t, c.text, "fdiv double")
	assert.Contains(t, c.text, "ZeroDivisionError")
}

func TestFoldInt(t *testing.T) {
	cases := []struct {
		op   string
		l, r int64
		want int64
	}{
		{"+", 2, 3, 5},
		{"*", -4, 3, -12},
		{"//", 7, 2, 3},
		{"//", -7, 2, -4},
		{"%", -7, 2, 1},
		{"%", 7, -2, -1},
		{"^", 6, 3, 5},
	}

	for _, tc := range cases {
		got, ok := foldInt(tc.op, tc.l, tc.r)
		require.True(t, ok, tc.op)
		assert.Equal(t, tc.want, got, "%d %s %d", tc.l, tc.op, tc.r)
	}

	_, ok := foldInt("//", 1, 0)
	assert.False(t, ok)
}

func TestStaticImports(t *testing.T) {
	c := compileFiles(t, map[string]string{
		"util.py": `
def double(v):
    return v * 2
`,
		"main.py": `
from util import double

x = double(21)
`,
	})

	assert.Contains(t, c.text, "@util.__module__()")
	assert.Contains(t, c.text, "@util.double.0(i64 %a0)")
	assert.Contains(t, c.text, "@init.util")
	assert.Equal(t, 1, strings.Count(c.text, "define internal %PyObject* @util.__module__()"))
}

func TestDynamicImportsAndCalls(t *testing.T) {
	c := compile(t, `
import os.path as p
from math import sqrt

r = sqrt(p.getsize("f"))
`)

	assert.Contains(t, c.text, "@PyImport_ImportModule")
	assert.Contains(t, c.text, `c"os.path\00"`)
	assert.Contains(t, c.text, `c"getsize\00"`)
	assert.Contains(t, c.text, "@PyObject_Call")
}

func TestBoolOpsKeepOperandValues(t *testing.T) {
	c := compile(t, `
a = 0 or 5
b = 1 and "x"
`)

	assert.Contains(t, c.text, "bool.short:")
	assert.Contains(t, c.text, "phi i64")
	assert.Contains(t, c.text, "phi %PyObject*")
	assert.Contains(t, c.text, "@var.main.a = internal global i64 zeroinitializer")
}

func TestCompareChains(t *testing.T) {
	c := compile(t, `
def between(x):
    return 0 < x <= 10

between(3)
`)

	assert.Contains(t, c.text, "cmp.fail:")
	assert.Contains(t, c.text, "icmp sle i64")
	assert.Contains(t, c.text, "phi i1")
}
