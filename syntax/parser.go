package syntax

import (
	"math"
	"strconv"
	"strings"

	"flyable/report"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// pythonLang is the shared tree-sitter grammar.  Languages are immutable and
// can be shared between parsers.
var pythonLang = sitter.NewLanguage(tree_sitter_python.Language())

// Parse parses a Python source file into a Module.  Syntax errors and
// constructs the compiler does not support are thrown as local compile errors
// and must be caught by report.CatchErrors.
func Parse(src []byte) *Module {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(pythonLang); err != nil {
		report.ICE("failed to load the Python grammar: %s", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		panic(report.Raise(nil, "failed to parse source file"))
	}
	defer tree.Close()

	c := &converter{src: src}
	root := tree.RootNode()
	if root.HasError() {
		bad := findError(root)
		panic(report.Raise(c.span(bad), "invalid syntax near `%s`", c.excerpt(bad)))
	}

	return &Module{ASTBase: NewASTBaseOn(c.span(root)), Body: c.stmtList(root)}
}

// findError returns the first error or missing node below n.
func findError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}

		if bad := findError(child); bad != nil {
			return bad
		}
	}

	return n
}

// converter turns tree-sitter nodes into AST nodes.
type converter struct {
	src []byte
}

func (c *converter) text(n *sitter.Node) string {
	return n.Utf8Text(c.src)
}

func (c *converter) excerpt(n *sitter.Node) string {
	text := c.text(n)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}

	if len(text) > 40 {
		text = text[:40] + "..."
	}

	return text
}

func (c *converter) span(n *sitter.Node) *report.TextSpan {
	start, end := n.StartPosition(), n.EndPosition()
	return &report.TextSpan{
		StartLine: int(start.Row),
		StartCol:  int(start.Column),
		EndLine:   int(end.Row),
		EndCol:    int(end.Column),
	}
}

func (c *converter) base(n *sitter.Node) ASTBase {
	return NewASTBaseOn(c.span(n))
}

func (c *converter) unsupported(n *sitter.Node, what string) {
	panic(report.Raise(c.span(n), "%s is not supported", what))
}

// named returns the named children of n without comments.
func named(n *sitter.Node) []*sitter.Node {
	var children []*sitter.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child != nil && child.Kind() != "comment" {
			children = append(children, child)
		}
	}

	return children
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// -----------------------------------------------------------------------------

// stmtList converts a module or block node.
func (c *converter) stmtList(n *sitter.Node) []ASTStmt {
	if n == nil {
		return nil
	}

	var stmts []ASTStmt
	for _, child := range named(n) {
		stmts = c.stmt(stmts, child)
	}

	return stmts
}

func (c *converter) field(n *sitter.Node, name string) *sitter.Node {
	child := n.ChildByFieldName(name)
	if child == nil {
		panic(report.Raise(c.span(n), "malformed `%s`: missing %s", c.excerpt(n), name))
	}

	return child
}

// stmt converts the statement n and appends it to stmts.  Some statements
// (eg. `import a, b`) expand to several nodes.
func (c *converter) stmt(stmts []ASTStmt, n *sitter.Node) []ASTStmt {
	switch n.Kind() {
	case "expression_statement":
		children := named(n)
		if len(children) == 1 {
			switch children[0].Kind() {
			case "assignment":
				return append(stmts, c.assignment(children[0]))
			case "augmented_assignment":
				return append(stmts, c.augAssignment(children[0]))
			}

			return append(stmts, &ExprStmt{ASTBase: c.base(n), Value: c.expr(children[0])})
		}

		return append(stmts, &ExprStmt{ASTBase: c.base(n), Value: &TupleLit{ASTBase: c.base(n), Elems: c.exprs(children)}})
	case "function_definition":
		return append(stmts, c.funcDef(n))
	case "class_definition":
		return append(stmts, c.classDef(n))
	case "decorated_definition":
		c.unsupported(n, "decorators")
	case "return_statement":
		ret := &Return{ASTBase: c.base(n)}
		if children := named(n); len(children) > 0 {
			ret.Value = c.expr(children[0])
		}

		return append(stmts, ret)
	case "if_statement":
		return append(stmts, c.ifStmt(n))
	case "while_statement":
		return append(stmts, &While{
			ASTBase: c.base(n),
			Cond:    c.expr(c.field(n, "condition")),
			Body:    c.stmtList(c.field(n, "body")),
			Else:    c.elseBody(n.ChildByFieldName("alternative")),
		})
	case "for_statement":
		if first := n.Child(0); first != nil && first.Kind() == "async" {
			c.unsupported(n, "`async for`")
		}

		return append(stmts, &For{
			ASTBase: c.base(n),
			Target:  c.expr(c.field(n, "left")),
			Iter:    c.expr(c.field(n, "right")),
			Body:    c.stmtList(c.field(n, "body")),
			Else:    c.elseBody(n.ChildByFieldName("alternative")),
		})
	case "try_statement":
		return append(stmts, c.tryStmt(n))
	case "raise_statement":
		r := &Raise{ASTBase: c.base(n)}
		children := named(n)
		if len(children) > 1 {
			c.unsupported(n, "exception chaining")
		} else if len(children) == 1 {
			r.Exc = c.expr(children[0])
		}

		return append(stmts, r)
	case "assert_statement":
		children := named(n)
		a := &Assert{ASTBase: c.base(n), Test: c.expr(children[0])}
		if len(children) > 1 {
			a.Msg = c.expr(children[1])
		}

		return append(stmts, a)
	case "pass_statement", "break_statement", "continue_statement":
		return append(stmts, &KeywordStmt{ASTBase: c.base(n), Keyword: strings.TrimSuffix(n.Kind(), "_statement")})
	case "import_statement":
		for _, child := range named(n) {
			imp := &Import{ASTBase: c.base(child)}
			switch child.Kind() {
			case "dotted_name":
				imp.Module = c.text(child)
			case "aliased_import":
				imp.Module = c.text(c.field(child, "name"))
				imp.Alias = c.text(c.field(child, "alias"))
			default:
				c.unsupported(child, "this import form")
			}

			stmts = append(stmts, imp)
		}

		return stmts
	case "import_from_statement":
		return append(stmts, c.importFrom(n))
	default:
		c.unsupported(n, "`"+strings.ReplaceAll(n.Kind(), "_", " ")+"`")
	}

	return stmts
}

func (c *converter) assignment(n *sitter.Node) ASTStmt {
	right := n.ChildByFieldName("right")
	if right == nil {
		c.unsupported(n, "an annotation without a value")
	}

	a := &Assign{ASTBase: c.base(n), Targets: []ASTExpr{c.expr(c.field(n, "left"))}}
	for right.Kind() == "assignment" {
		a.Targets = append(a.Targets, c.expr(c.field(right, "left")))

		next := right.ChildByFieldName("right")
		if next == nil {
			c.unsupported(right, "an annotation without a value")
		}
		right = next
	}

	a.Value = c.expr(right)
	return a
}

func (c *converter) augAssignment(n *sitter.Node) ASTStmt {
	return &AugAssign{
		ASTBase: c.base(n),
		Target:  c.expr(c.field(n, "left")),
		Op:      strings.TrimSuffix(c.text(c.field(n, "operator")), "="),
		Value:   c.expr(c.field(n, "right")),
	}
}

func (c *converter) funcDef(n *sitter.Node) ASTStmt {
	if first := n.Child(0); first != nil && first.Kind() == "async" {
		c.unsupported(n, "`async def`")
	}

	fd := &FuncDef{
		ASTBase: c.base(n),
		Name:    c.text(c.field(n, "name")),
		Body:    c.stmtList(c.field(n, "body")),
	}

	for _, p := range named(c.field(n, "parameters")) {
		param := &Param{ASTBase: c.base(p)}

		switch p.Kind() {
		case "identifier":
			param.Name = c.text(p)
		case "default_parameter", "typed_default_parameter":
			param.Name = c.text(c.field(p, "name"))
			param.Default = c.expr(c.field(p, "value"))
		case "typed_parameter":
			inner := named(p)[0]
			if inner.Kind() == "list_splat_pattern" {
				param.Name = c.text(named(inner)[0])
				param.Variadic = true
			} else if inner.Kind() == "identifier" {
				param.Name = c.text(inner)
			} else {
				c.unsupported(p, "this parameter form")
			}
		case "list_splat_pattern":
			param.Name = c.text(named(p)[0])
			param.Variadic = true
		case "dictionary_splat_pattern":
			c.unsupported(p, "keyword variadic parameters")
		case "positional_separator":
			continue
		case "keyword_separator":
			c.unsupported(p, "keyword-only parameters")
		default:
			c.unsupported(p, "this parameter form")
		}

		fd.Params = append(fd.Params, param)
	}

	return fd
}

func (c *converter) classDef(n *sitter.Node) ASTStmt {
	cd := &ClassDef{
		ASTBase: c.base(n),
		Name:    c.text(c.field(n, "name")),
		Body:    c.stmtList(c.field(n, "body")),
	}

	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, s := range named(supers) {
			if s.Kind() != "identifier" {
				c.unsupported(s, "this base class expression")
			}

			cd.Bases = append(cd.Bases, &Name{ASTBase: c.base(s), Ident: c.text(s)})
		}
	}

	return cd
}

func (c *converter) ifStmt(n *sitter.Node) ASTStmt {
	root := &If{
		ASTBase: c.base(n),
		Cond:    c.expr(c.field(n, "condition")),
		Body:    c.stmtList(c.field(n, "consequence")),
	}

	cur := root
	for _, child := range named(n) {
		switch child.Kind() {
		case "elif_clause":
			elif := &If{
				ASTBase: c.base(child),
				Cond:    c.expr(c.field(child, "condition")),
				Body:    c.stmtList(c.field(child, "consequence")),
			}

			cur.Else = []ASTStmt{elif}
			cur = elif
		case "else_clause":
			cur.Else = c.elseBody(child)
		}
	}

	return root
}

func (c *converter) elseBody(n *sitter.Node) []ASTStmt {
	if n == nil {
		return nil
	}

	return c.stmtList(c.field(n, "body"))
}

func blockOf(n *sitter.Node) *sitter.Node {
	for _, child := range named(n) {
		if child.Kind() == "block" {
			return child
		}
	}

	return nil
}

func (c *converter) tryStmt(n *sitter.Node) ASTStmt {
	t := &Try{ASTBase: c.base(n), Body: c.stmtList(c.field(n, "body"))}

	for _, child := range named(n) {
		switch child.Kind() {
		case "except_clause":
			t.Handlers = append(t.Handlers, c.exceptClause(child))
		case "except_group_clause":
			c.unsupported(child, "`except*`")
		case "else_clause":
			t.Else = c.elseBody(child)
		case "finally_clause":
			t.Finally = c.stmtList(blockOf(child))
		}
	}

	return t
}

func (c *converter) exceptClause(n *sitter.Node) *ExceptHandler {
	h := &ExceptHandler{ASTBase: c.base(n)}

	var parts []*sitter.Node
	for _, child := range named(n) {
		if child.Kind() == "block" {
			h.Body = c.stmtList(child)
		} else {
			parts = append(parts, child)
		}
	}

	if len(parts) == 0 {
		return h
	}

	if parts[0].Kind() == "as_pattern" {
		inner := named(parts[0])
		h.Type = c.expr(inner[0])
		if alias := parts[0].ChildByFieldName("alias"); alias != nil {
			h.Name = c.text(alias)
		} else if len(inner) > 1 {
			h.Name = c.text(inner[len(inner)-1])
		}
	} else {
		h.Type = c.expr(parts[0])
		if len(parts) > 1 {
			h.Name = c.text(parts[1])
		}
	}

	return h
}

func (c *converter) importFrom(n *sitter.Node) ASTStmt {
	modNode := c.field(n, "module_name")
	if modNode.Kind() == "relative_import" {
		c.unsupported(modNode, "relative imports")
	}

	imp := &ImportFrom{ASTBase: c.base(n), Module: c.text(modNode)}
	for _, child := range named(n) {
		if sameNode(child, modNode) {
			continue
		}

		switch child.Kind() {
		case "dotted_name":
			imp.Names = append(imp.Names, c.text(child))
			imp.Aliases = append(imp.Aliases, "")
		case "aliased_import":
			imp.Names = append(imp.Names, c.text(c.field(child, "name")))
			imp.Aliases = append(imp.Aliases, c.text(c.field(child, "alias")))
		case "wildcard_import":
			c.unsupported(child, "wildcard imports")
		}
	}

	return imp
}

// -----------------------------------------------------------------------------

func (c *converter) exprs(nodes []*sitter.Node) []ASTExpr {
	exprs := make([]ASTExpr, len(nodes))
	for i, n := range nodes {
		exprs[i] = c.expr(n)
	}

	return exprs
}

func (c *converter) expr(n *sitter.Node) ASTExpr {
	switch n.Kind() {
	case "identifier":
		return &Name{ASTBase: c.base(n), Ident: c.text(n)}
	case "integer":
		return c.intLit(n)
	case "float":
		text := strings.ReplaceAll(c.text(n), "_", "")
		if strings.HasSuffix(text, "j") || strings.HasSuffix(text, "J") {
			c.unsupported(n, "complex literals")
		}

		v, err := strconv.ParseFloat(text, 64)
		if err != nil && !math.IsInf(v, 0) {
			panic(report.Raise(c.span(n), "invalid float literal `%s`", c.text(n)))
		}

		return &FloatLit{ASTBase: c.base(n), Value: v}
	case "string":
		return c.strLit(n)
	case "concatenated_string":
		lit := &StrLit{ASTBase: c.base(n)}
		var sb strings.Builder
		for i, part := range named(n) {
			s := c.strLit(part)
			if i == 0 {
				lit.Bytes = s.Bytes
			} else if s.Bytes != lit.Bytes {
				panic(report.Raise(c.span(n), "cannot mix bytes and nonbytes literals"))
			}

			sb.WriteString(s.Value)
		}

		lit.Value = sb.String()
		return lit
	case "true", "false":
		return &BoolLit{ASTBase: c.base(n), Value: n.Kind() == "true"}
	case "none":
		return &NoneLit{ASTBase: c.base(n)}
	case "binary_operator":
		return &BinaryOp{
			ASTBase: c.base(n),
			Op:      c.text(c.field(n, "operator")),
			Lhs:     c.expr(c.field(n, "left")),
			Rhs:     c.expr(c.field(n, "right")),
		}
	case "unary_operator":
		return &UnaryOp{
			ASTBase: c.base(n),
			Op:      c.text(c.field(n, "operator")),
			Operand: c.expr(c.field(n, "argument")),
		}
	case "not_operator":
		return &UnaryOp{
			ASTBase: c.base(n),
			Op:      "not",
			Operand: c.expr(c.field(n, "argument")),
		}
	case "boolean_operator":
		return &BoolOp{
			ASTBase: c.base(n),
			Op:      c.text(c.field(n, "operator")),
			Lhs:     c.expr(c.field(n, "left")),
			Rhs:     c.expr(c.field(n, "right")),
		}
	case "comparison_operator":
		cmp := &Compare{ASTBase: c.base(n)}
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child == nil || child.Kind() == "comment" {
				continue
			}

			if child.IsNamed() {
				cmp.Operands = append(cmp.Operands, c.expr(child))
			} else {
				cmp.Ops = append(cmp.Ops, strings.Join(strings.Fields(c.text(child)), " "))
			}
		}

		return cmp
	case "call":
		return c.call(n)
	case "attribute":
		return &Attribute{
			ASTBase: c.base(n),
			Value:   c.expr(c.field(n, "object")),
			Attr:    c.text(c.field(n, "attribute")),
		}
	case "subscript":
		index := c.field(n, "subscript")
		if index.Kind() == "slice" {
			c.unsupported(index, "slicing")
		}

		return &Subscript{
			ASTBase: c.base(n),
			Value:   c.expr(c.field(n, "value")),
			Index:   c.expr(index),
		}
	case "list", "list_pattern":
		return &ListLit{ASTBase: c.base(n), Elems: c.elems(n)}
	case "set":
		return &SetLit{ASTBase: c.base(n), Elems: c.elems(n)}
	case "tuple", "tuple_pattern", "expression_list", "pattern_list":
		return &TupleLit{ASTBase: c.base(n), Elems: c.elems(n)}
	case "dictionary":
		d := &DictLit{ASTBase: c.base(n)}
		for _, pair := range named(n) {
			if pair.Kind() != "pair" {
				c.unsupported(pair, "dictionary unpacking")
			}

			d.Keys = append(d.Keys, c.expr(c.field(pair, "key")))
			d.Values = append(d.Values, c.expr(c.field(pair, "value")))
		}

		return d
	case "parenthesized_expression":
		return c.expr(named(n)[0])
	case "conditional_expression":
		parts := named(n)
		return &IfExpr{
			ASTBase: c.base(n),
			Then:    c.expr(parts[0]),
			Cond:    c.expr(parts[1]),
			Else:    c.expr(parts[2]),
		}
	case "lambda":
		c.unsupported(n, "lambdas")
	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		c.unsupported(n, "comprehensions")
	default:
		c.unsupported(n, "`"+strings.ReplaceAll(n.Kind(), "_", " ")+"`")
	}

	return nil
}

func (c *converter) elems(n *sitter.Node) []ASTExpr {
	children := named(n)
	for _, child := range children {
		if child.Kind() == "list_splat" || child.Kind() == "list_splat_pattern" {
			c.unsupported(child, "unpacking")
		}
	}

	return c.exprs(children)
}

func (c *converter) call(n *sitter.Node) ASTExpr {
	call := &Call{ASTBase: c.base(n), Func: c.expr(c.field(n, "function"))}

	args := c.field(n, "arguments")
	if args.Kind() != "argument_list" {
		c.unsupported(args, "generator arguments")
	}

	for _, arg := range named(args) {
		switch arg.Kind() {
		case "keyword_argument":
			call.Keywords = append(call.Keywords, &Keyword{
				ASTBase: c.base(arg),
				Name:    c.text(c.field(arg, "name")),
				Value:   c.expr(c.field(arg, "value")),
			})
		case "list_splat", "dictionary_splat":
			c.unsupported(arg, "argument unpacking")
		default:
			call.Args = append(call.Args, c.expr(arg))
		}
	}

	return call
}

func (c *converter) intLit(n *sitter.Node) ASTExpr {
	text := c.text(n)
	if strings.HasSuffix(text, "j") || strings.HasSuffix(text, "J") {
		c.unsupported(n, "complex literals")
	}

	text = strings.TrimRight(text, "lL")
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			panic(report.Raise(c.span(n), "integer literal `%s` does not fit in 64 bits", text))
		}

		panic(report.Raise(c.span(n), "invalid integer literal `%s`", text))
	}

	return &IntLit{ASTBase: c.base(n), Value: v}
}

func (c *converter) strLit(n *sitter.Node) *StrLit {
	for _, child := range named(n) {
		if child.Kind() == "interpolation" {
			c.unsupported(child, "f-string interpolation")
		}
	}

	text := c.text(n)
	prefixLen := strings.IndexAny(text, `'"`)
	if prefixLen < 0 {
		report.ICE("string node without quotes: %s", text)
	}

	prefix := strings.ToLower(text[:prefixLen])
	body := text[prefixLen:]

	quoteLen := 1
	if strings.HasPrefix(body, `"""`) || strings.HasPrefix(body, `'''`) {
		quoteLen = 3
	}

	if len(body) < 2*quoteLen {
		panic(report.Raise(c.span(n), "unterminated string literal"))
	}
	body = body[quoteLen : len(body)-quoteLen]

	lit := &StrLit{ASTBase: c.base(n), Bytes: strings.Contains(prefix, "b")}
	if strings.Contains(prefix, "r") {
		lit.Value = body
	} else {
		lit.Value = decodeEscapes(body, lit.Bytes)
	}

	return lit
}

// decodeEscapes decodes the backslash escapes of a non raw string literal.
// Unknown escapes are kept verbatim.
func decodeEscapes(s string, bytes bool) string {
	var sb strings.Builder
	for len(s) > 0 {
		if s[0] != '\\' || len(s) == 1 {
			sb.WriteByte(s[0])
			s = s[1:]
			continue
		}

		switch s[1] {
		case '\n':
			s = s[2:]
			continue
		case '\'', '"':
			sb.WriteByte(s[1])
			s = s[2:]
			continue
		}

		value, _, tail, err := strconv.UnquoteChar(s, 0)
		if err != nil {
			sb.WriteByte('\\')
			s = s[1:]
			continue
		}

		if bytes && value < 256 {
			sb.WriteByte(byte(value))
		} else {
			sb.WriteRune(value)
		}

		s = tail
	}

	return sb.String()
}

