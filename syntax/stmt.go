package syntax

// Assign is an assignment statement.  Chained assignments (`a = b = x`) list
// every target from left to right.
type Assign struct {
	ASTBase

	Targets []ASTExpr
	Value   ASTExpr
}

// AugAssign is an augmented assignment such as `x += 1`.  Op is the binary
// operator without the trailing `=`.
type AugAssign struct {
	ASTBase

	Target ASTExpr
	Op     string
	Value  ASTExpr
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	ASTBase

	Value ASTExpr
}

// Return is a return statement.  Value is nil for a bare `return`.
type Return struct {
	ASTBase

	Value ASTExpr
}

// If is an if statement.  `elif` clauses are desugared into a nested If as
// the only statement of Else.
type If struct {
	ASTBase

	Cond ASTExpr
	Body []ASTStmt
	Else []ASTStmt
}

// While is a while loop.
type While struct {
	ASTBase

	Cond ASTExpr
	Body []ASTStmt
	Else []ASTStmt
}

// For is a for loop over an iterable.
type For struct {
	ASTBase

	Target ASTExpr
	Iter   ASTExpr
	Body   []ASTStmt
	Else   []ASTStmt
}

// ExceptHandler is a single `except` clause.  Type is nil for a bare `except`
// and Name is empty when the exception is not bound.
type ExceptHandler struct {
	ASTBase

	Type ASTExpr
	Name string
	Body []ASTStmt
}

// Try is a try statement.
type Try struct {
	ASTBase

	Body     []ASTStmt
	Handlers []*ExceptHandler
	Else     []ASTStmt
	Finally  []ASTStmt
}

// Raise is a raise statement.  Exc is nil for a bare `raise`.
type Raise struct {
	ASTBase

	Exc ASTExpr
}

// Assert is an assert statement.
type Assert struct {
	ASTBase

	Test ASTExpr
	Msg  ASTExpr
}

// KeywordStmt is a single keyword statement: `pass`, `break` or `continue`.
type KeywordStmt struct {
	ASTBase

	Keyword string
}

// Import is an `import a.b as c` statement.
type Import struct {
	ASTBase

	Module string
	Alias  string
}

// ImportFrom is a `from m import a as b, c` statement.
type ImportFrom struct {
	ASTBase

	Module  string
	Names   []string
	Aliases []string
}

func (*Assign) stmt()      {}
func (*AugAssign) stmt()   {}
func (*ExprStmt) stmt()    {}
func (*Return) stmt()      {}
func (*If) stmt()          {}
func (*While) stmt()       {}
func (*For) stmt()         {}
func (*Try) stmt()         {}
func (*Raise) stmt()       {}
func (*Assert) stmt()      {}
func (*KeywordStmt) stmt() {}
func (*Import) stmt()      {}
func (*ImportFrom) stmt()  {}
