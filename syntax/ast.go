package syntax

import "flyable/report"

// ASTNode is any node of the syntax tree.  Every node knows the source text it
// was parsed from.
type ASTNode interface {
	Span() *report.TextSpan
}

// ASTBase is embedded by every node to implement ASTNode.
type ASTBase struct {
	span *report.TextSpan
}

func NewASTBaseOn(span *report.TextSpan) ASTBase {
	return ASTBase{span: span}
}

// NewASTBaseOver returns a base spanning from start to end.
func NewASTBaseOver(start, end *report.TextSpan) ASTBase {
	return ASTBase{span: report.NewSpanOver(start, end)}
}

func (ab ASTBase) Span() *report.TextSpan {
	return ab.span
}

// ASTStmt is a statement node.
type ASTStmt interface {
	ASTNode

	stmt()
}

// ASTExpr is an expression node.
type ASTExpr interface {
	ASTNode

	expr()
}

// -----------------------------------------------------------------------------

// Module is a whole parsed source file.
type Module struct {
	ASTBase

	Body []ASTStmt
}

// Param is a function parameter.
type Param struct {
	ASTBase

	Name string

	// Default is the default value expression or nil.
	Default ASTExpr

	// Variadic indicates a `*args` parameter.
	Variadic bool
}

// FuncDef is a function or method definition.
type FuncDef struct {
	ASTBase

	Name   string
	Params []*Param
	Body   []ASTStmt
}

// ClassDef is a class definition.
type ClassDef struct {
	ASTBase

	Name  string
	Bases []*Name
	Body  []ASTStmt
}

func (*FuncDef) stmt()  {}
func (*ClassDef) stmt() {}
