package syntax

// Name is a reference to a variable, function, class or builtin.
type Name struct {
	ASTBase

	Ident string
}

// IntLit is an integer literal.
type IntLit struct {
	ASTBase

	Value int64
}

// FloatLit is a floating point literal.
type FloatLit struct {
	ASTBase

	Value float64
}

// StrLit is a string or bytes literal with its escapes already decoded.
type StrLit struct {
	ASTBase

	Value string
	Bytes bool
}

// BoolLit is `True` or `False`.
type BoolLit struct {
	ASTBase

	Value bool
}

// NoneLit is `None`.
type NoneLit struct {
	ASTBase
}

// -----------------------------------------------------------------------------

// BinaryOp is a binary arithmetic or bitwise operator application.
type BinaryOp struct {
	ASTBase

	Op       string
	Lhs, Rhs ASTExpr
}

// UnaryOp is a unary operator application: `-`, `+`, `~` or `not`.
type UnaryOp struct {
	ASTBase

	Op      string
	Operand ASTExpr
}

// BoolOp is a short circuiting `and` / `or`.
type BoolOp struct {
	ASTBase

	Op       string
	Lhs, Rhs ASTExpr
}

// Compare is a comparison chain such as `a < b <= c`.  len(Ops) is always
// len(Operands) - 1.
type Compare struct {
	ASTBase

	Operands []ASTExpr
	Ops      []string
}

// Keyword is a keyword argument of a call.
type Keyword struct {
	ASTBase

	Name  string
	Value ASTExpr
}

// Call is a call expression.
type Call struct {
	ASTBase

	Func     ASTExpr
	Args     []ASTExpr
	Keywords []*Keyword
}

// Attribute is an attribute access `x.name`.
type Attribute struct {
	ASTBase

	Value ASTExpr
	Attr  string
}

// Subscript is an indexing operation `x[i]`.
type Subscript struct {
	ASTBase

	Value ASTExpr
	Index ASTExpr
}

// ListLit is a list display.
type ListLit struct {
	ASTBase

	Elems []ASTExpr
}

// SetLit is a set display.
type SetLit struct {
	ASTBase

	Elems []ASTExpr
}

// TupleLit is a tuple display.
type TupleLit struct {
	ASTBase

	Elems []ASTExpr
}

// DictLit is a dictionary display.
type DictLit struct {
	ASTBase

	Keys, Values []ASTExpr
}

// IfExpr is a conditional expression `a if c else b`.
type IfExpr struct {
	ASTBase

	Cond, Then, Else ASTExpr
}

func (*Name) expr()      {}
func (*IntLit) expr()    {}
func (*FloatLit) expr()  {}
func (*StrLit) expr()    {}
func (*BoolLit) expr()   {}
func (*NoneLit) expr()   {}
func (*BinaryOp) expr()  {}
func (*UnaryOp) expr()   {}
func (*BoolOp) expr()    {}
func (*Compare) expr()   {}
func (*Call) expr()      {}
func (*Attribute) expr() {}
func (*Subscript) expr() {}
func (*ListLit) expr()   {}
func (*SetLit) expr()    {}
func (*TupleLit) expr()  {}
func (*DictLit) expr()   {}
func (*IfExpr) expr()    {}
