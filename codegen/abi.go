package codegen

import (
	"github.com/llir/llvm/ir/types"
)

// FailMode describes how a foreign entry point reports failure.
type FailMode int

// Enumeration of fail modes.
const (
	// FailNever marks entry points that cannot fail.
	FailNever FailMode = iota

	// FailNull marks entry points returning a null object on failure.
	FailNull

	// FailNegative marks entry points returning a negative integer on
	// failure.
	FailNegative

	// FailOccurred marks entry points whose failure value is ambiguous: the
	// error indicator must be queried to tell failure from a regular result.
	FailOccurred
)

// ForeignSig is the native signature of a foreign entry point.
type ForeignSig struct {
	Ret    types.Type
	Params []types.Type
	Fail   FailMode
}

// Foreign returns the signature of a foreign entry point by name.
func (cg *CodeGen) Foreign(name string) (ForeignSig, bool) {
	obj := cg.PyObjPtr
	objPtr := types.NewPointer(obj)
	cstr := types.I8Ptr
	i64, i32, f64 := types.I64, types.I32, types.Double

	sig := func(fail FailMode, ret types.Type, params ...types.Type) ForeignSig {
		return ForeignSig{Ret: ret, Params: params, Fail: fail}
	}

	switch name {
	// Runtime lifetime.
	case "Py_Initialize":
		return sig(FailNever, types.Void), true
	case "Py_FinalizeEx":
		return sig(FailNever, i32), true
	case "PyImport_ImportModule":
		return sig(FailNull, obj, cstr), true
	case "PyModule_GetDict":
		return sig(FailNever, obj, obj), true

	// Reference counting and memory.
	case "Py_IncRef", "Py_DecRef":
		return sig(FailNever, types.Void, obj), true
	case "PyObject_Malloc":
		return sig(FailNull, types.I8Ptr, i64), true
	case "PyObject_Free":
		return sig(FailNever, types.Void, types.I8Ptr), true

	// Error indicator.
	case "PyErr_SetObject":
		return sig(FailNever, types.Void, obj, obj), true
	case "PyErr_SetString":
		return sig(FailNever, types.Void, obj, cstr), true
	case "PyErr_Clear", "PyErr_Print":
		return sig(FailNever, types.Void), true
	case "PyErr_Occurred", "PyErr_NoMemory":
		return sig(FailNever, obj), true
	case "PyErr_Fetch", "PyErr_NormalizeException":
		return sig(FailNever, types.Void, objPtr, objPtr, objPtr), true
	case "PyErr_Restore":
		return sig(FailNever, types.Void, obj, obj, obj), true
	case "PyErr_GivenExceptionMatches":
		return sig(FailNever, i32, obj, obj), true

	// Numbers.
	case "PyLong_FromLongLong":
		return sig(FailNull, obj, i64), true
	case "PyLong_AsLongLong":
		return sig(FailOccurred, i64, obj), true
	case "PyFloat_FromDouble":
		return sig(FailNull, obj, f64), true
	case "PyFloat_AsDouble":
		return sig(FailOccurred, f64, obj), true
	case "PyNumber_Add", "PyNumber_Subtract", "PyNumber_Multiply", "PyNumber_TrueDivide",
		"PyNumber_FloorDivide", "PyNumber_Remainder", "PyNumber_Lshift", "PyNumber_Rshift",
		"PyNumber_And", "PyNumber_Or", "PyNumber_Xor", "PyNumber_MatrixMultiply":
		return sig(FailNull, obj, obj, obj), true
	case "PyNumber_Power":
		return sig(FailNull, obj, obj, obj, obj), true
	case "PyNumber_Negative", "PyNumber_Positive", "PyNumber_Invert":
		return sig(FailNull, obj, obj), true

	// Strings.
	case "PyUnicode_FromStringAndSize", "PyBytes_FromStringAndSize":
		return sig(FailNull, obj, cstr, i64), true

	// Containers.
	case "PyList_New", "PyTuple_New":
		return sig(FailNull, obj, i64), true
	case "PyList_Size", "PySet_Size":
		return sig(FailNever, i64, obj), true
	case "PyList_GetItem":
		return sig(FailNull, obj, obj, i64), true
	case "PyList_SetItem", "PyTuple_SetItem":
		return sig(FailNegative, i32, obj, i64, obj), true
	case "PyList_Append", "PySet_Add":
		return sig(FailNegative, i32, obj, obj), true
	case "PySet_New":
		return sig(FailNull, obj, obj), true
	case "PyDict_New":
		return sig(FailNull, obj), true
	case "PyDict_SetItem":
		return sig(FailNegative, i32, obj, obj, obj), true
	case "PyDict_GetItem":
		// Borrowed and null when missing without setting an error.
		return sig(FailNever, obj, obj, obj), true
	case "PyDict_GetItemString":
		return sig(FailNever, obj, obj, cstr), true

	// Generic object protocol.
	case "PyObject_GetAttrString":
		return sig(FailNull, obj, obj, cstr), true
	case "PyObject_SetAttrString":
		return sig(FailNegative, i32, obj, cstr, obj), true
	case "PyObject_GetItem":
		return sig(FailNull, obj, obj, obj), true
	case "PyObject_SetItem":
		return sig(FailNegative, i32, obj, obj, obj), true
	case "PyObject_Call":
		return sig(FailNull, obj, obj, obj, obj), true
	case "PyObject_RichCompare":
		return sig(FailNull, obj, obj, obj, i32), true
	case "PyObject_IsTrue", "PyObject_Not":
		return sig(FailNegative, i32, obj), true
	case "PyObject_Type", "PyObject_GetIter":
		return sig(FailNull, obj, obj), true
	case "PyObject_IsInstance":
		return sig(FailNegative, i32, obj, obj), true
	case "PyIter_Next":
		// Null either when exhausted or on failure.
		return sig(FailOccurred, obj, obj), true
	case "PySequence_Contains":
		return sig(FailNegative, i32, obj, obj), true
	}

	return ForeignSig{}, false
}
