// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     ast
// Description: Node definitions for parsed DAL programs
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

// Package ast defines the syntax tree produced by the DAL parser and
// consumed by the attribute validator and the execution engine.
package ast

// Node represents the base interface for all AST nodes
type Node interface {
	// Position returns the source position of the node
	Position() Position
	// String returns a source-like rendering of the node
	String() string
}

// Statement is a node that can appear in a statement list
type Statement interface {
	Node
	statementNode()
}

// Expression is a node that produces a value
type Expression interface {
	Node
	expressionNode()
}

// Position represents a position in the source code
type Position struct {
	Line   int // Line number (1-based)
	Column int // Column number (1-based)
}

// Program is the root node: an ordered sequence of statements
type Program struct {
	File       string
	Statements []Statement
}

// Position returns the position of the first statement
func (p *Program) Position() Position {
	if len(p.Statements) == 0 {
		return Position{Line: 1, Column: 1}
	}
	return p.Statements[0].Position()
}

// Attribute is an @name(args...) annotation. Name is stored without '@'.
type Attribute struct {
	Name string
	Args []Expression
	Pos  Position
}

// Attributes is an ordered attribute list
type Attributes []*Attribute

// Get returns the first attribute with the given name
func (as Attributes) Get(name string) *Attribute {
	for _, a := range as {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Has reports whether an attribute with the given name is present
func (as Attributes) Has(name string) bool {
	return as.Get(name) != nil
}

// Param is a function parameter with an optional type annotation
type Param struct {
	Name string
	Type string
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// FunctionStatement declares a function or service method
type FunctionStatement struct {
	Name       string
	Params     []Param
	ReturnType string
	Attributes Attributes
	IsAsync    bool
	Exported   bool
	Body       *BlockStatement
	Pos        Position
}

// FieldDecl declares a service field
type FieldDecl struct {
	Name       string
	Type       string
	Visibility string // public, private, internal or empty
	Value      Expression
	Pos        Position
}

// EventDecl declares a service event signature
type EventDecl struct {
	Name   string
	Params []Param
	Pos    Position
}

// ServiceStatement declares a service type
type ServiceStatement struct {
	Name       string
	Attributes Attributes
	Fields     []*FieldDecl
	Methods    []*FunctionStatement
	Events     []*EventDecl
	Exported   bool
	Pos        Position
}

// Method returns the method with the given name, or nil
func (s *ServiceStatement) Method(name string) *FunctionStatement {
	for _, m := range s.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// AgentStatement declares a reusable agent type
type AgentStatement struct {
	Name         string
	AgentType    string
	Config       *ObjectLiteral
	Capabilities []string
	Body         *BlockStatement
	Pos          Position
}

// SpawnStatement spawns an inline agent
type SpawnStatement struct {
	Name      string
	AgentType string
	Config    *ObjectLiteral
	Body      *BlockStatement
	Pos       Position
}

// MsgStatement sends a message to an agent
type MsgStatement struct {
	Recipient string
	Data      *ObjectLiteral
	Pos       Position
}

// EventStatement emits an event
type EventStatement struct {
	Name string
	Data *ObjectLiteral
	Pos  Position
}

// ImportStatement imports a module path
type ImportStatement struct {
	Path  string
	Alias string
	Pos   Position
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// LetStatement binds a new variable in the current scope
type LetStatement struct {
	Name    string
	Mutable bool
	Type    string
	Value   Expression
	Pos     Position
}

// ExpressionStatement evaluates an expression. Terminated is false for a
// trailing expression without ';', whose value becomes the block value.
type ExpressionStatement struct {
	Expr       Expression
	Terminated bool
	Pos        Position
}

// BlockStatement is a braced statement list with its own scope
type BlockStatement struct {
	Statements []Statement
	Pos        Position
}

// ReturnStatement returns from the enclosing function
type ReturnStatement struct {
	Value Expression
	Pos   Position
}

// BreakStatement leaves the innermost loop
type BreakStatement struct {
	Value Expression
	Pos   Position
}

// ContinueStatement skips to the next loop iteration
type ContinueStatement struct {
	Pos Position
}

// IfStatement is a conditional. Else is nil, *IfStatement or *BlockStatement.
type IfStatement struct {
	Condition Expression
	Then      *BlockStatement
	Else      Statement
	Pos       Position
}

// WhileStatement loops while the condition holds
type WhileStatement struct {
	Condition Expression
	Body      *BlockStatement
	Pos       Position
}

// ForInStatement iterates over a vector, map, string or range
type ForInStatement struct {
	Variable string
	Iterable Expression
	Body     *BlockStatement
	Pos      Position
}

// LoopStatement loops until break, bounded by the engine limits
type LoopStatement struct {
	Body *BlockStatement
	Pos  Position
}

// CatchClause is one catch arm of a try statement
type CatchClause struct {
	Type     string // empty catches everything
	Variable string
	Body     *BlockStatement
	Pos      Position
}

// TryStatement is try/catch/finally
type TryStatement struct {
	Body    *BlockStatement
	Catches []*CatchClause
	Finally *BlockStatement
	Pos     Position
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Identifier references a variable, function or type name
type Identifier struct {
	Name string
	Pos  Position
}

// IntegerLiteral is an int64 constant
type IntegerLiteral struct {
	Value int64
	Pos   Position
}

// FloatLiteral is a float64 constant
type FloatLiteral struct {
	Value float64
	Pos   Position
}

// StringLiteral is a string constant
type StringLiteral struct {
	Value string
	Pos   Position
}

// BoolLiteral is true or false
type BoolLiteral struct {
	Value bool
	Pos   Position
}

// NullLiteral is null
type NullLiteral struct {
	Pos Position
}

// VectorLiteral is [a, b] or vec!(a, b)
type VectorLiteral struct {
	Elements []Expression
	Pos      Position
}

// ObjectEntry is one key/value pair of an object literal. KeyExpr is set
// only for map!(k, v) entries whose key is computed.
type ObjectEntry struct {
	Key     string
	KeyExpr Expression
	Value   Expression
}

// ObjectLiteral is { k: v, ... } or map!(k, v, ...)
type ObjectLiteral struct {
	Entries []ObjectEntry
	Pos     Position
}

// Get returns the value expression for a static key
func (o *ObjectLiteral) Get(key string) Expression {
	if o == nil {
		return nil
	}
	for _, e := range o.Entries {
		if e.KeyExpr == nil && e.Key == key {
			return e.Value
		}
	}
	return nil
}

// UnaryExpression is -x or !x
type UnaryExpression struct {
	Operator string
	Operand  Expression
	Pos      Position
}

// BinaryExpression is an infix operation
type BinaryExpression struct {
	Left     Expression
	Operator string
	Right    Expression
	Pos      Position
}

// RangeExpression is start..end (end exclusive)
type RangeExpression struct {
	Start Expression
	End   Expression
	Pos   Position
}

// AssignExpression assigns to an identifier or a field
type AssignExpression struct {
	Target Expression // *Identifier or *FieldExpression
	Value  Expression
	Pos    Position
}

// IndexAssignExpression is object[index] = value
type IndexAssignExpression struct {
	Object Expression
	Index  Expression
	Value  Expression
	Pos    Position
}

// CallExpression calls a function value or a named function
type CallExpression struct {
	Callee Expression
	Args   []Expression
	Pos    Position
}

// NamespaceCallExpression is ns::fn(args), also used for Type::new()
type NamespaceCallExpression struct {
	Namespace string
	Function  string
	Args      []Expression
	Pos       Position
}

// Qualified returns "ns::fn"
func (n *NamespaceCallExpression) Qualified() string {
	return n.Namespace + "::" + n.Function
}

// MethodCallExpression is object.method(args)
type MethodCallExpression struct {
	Object Expression
	Method string
	Args   []Expression
	Pos    Position
}

// FieldExpression is object.field
type FieldExpression struct {
	Object Expression
	Field  string
	Pos    Position
}

// IndexExpression is object[index]
type IndexExpression struct {
	Object Expression
	Index  Expression
	Pos    Position
}

// ClosureExpression is a single-parameter block closure p => { ... }
type ClosureExpression struct {
	Param string
	Body  *BlockStatement
	Pos   Position
}

// SpawnExpression is the prefix form spawn expr
type SpawnExpression struct {
	Operand Expression
	Pos     Position
}

// AwaitExpression is await expr
type AwaitExpression struct {
	Operand Expression
	Pos     Position
}

// ThrowExpression is throw expr
type ThrowExpression struct {
	Value Expression
	Pos   Position
}

// MatchArm is one arm of a match expression
type MatchArm struct {
	Pattern Pattern
	Body    *BlockStatement
	Pos     Position
}

// MatchExpression selects the first arm whose pattern matches
type MatchExpression struct {
	Subject Expression
	Arms    []*MatchArm
	Pos     Position
}

// Pattern is a match pattern
type Pattern interface {
	Node
	patternNode()
}

// WildcardPattern is _ or default
type WildcardPattern struct {
	Default bool
	Pos     Position
}

// LiteralPattern matches an equal constant
type LiteralPattern struct {
	Value Expression
	Pos   Position
}

// RangePattern matches start <= v < end
type RangePattern struct {
	Start Expression
	End   Expression
	Pos   Position
}

// BindingPattern matches anything and binds it to Name
type BindingPattern struct {
	Name string
	Pos  Position
}

// ---------------------------------------------------------------------------
// Node plumbing
// ---------------------------------------------------------------------------

func (*FunctionStatement) statementNode()   {}
func (*ServiceStatement) statementNode()    {}
func (*AgentStatement) statementNode()      {}
func (*SpawnStatement) statementNode()      {}
func (*MsgStatement) statementNode()        {}
func (*EventStatement) statementNode()      {}
func (*ImportStatement) statementNode()     {}
func (*LetStatement) statementNode()        {}
func (*ExpressionStatement) statementNode() {}
func (*BlockStatement) statementNode()      {}
func (*ReturnStatement) statementNode()     {}
func (*BreakStatement) statementNode()      {}
func (*ContinueStatement) statementNode()   {}
func (*IfStatement) statementNode()         {}
func (*WhileStatement) statementNode()      {}
func (*ForInStatement) statementNode()      {}
func (*LoopStatement) statementNode()       {}
func (*TryStatement) statementNode()        {}

func (*Identifier) expressionNode()              {}
func (*IntegerLiteral) expressionNode()          {}
func (*FloatLiteral) expressionNode()            {}
func (*StringLiteral) expressionNode()           {}
func (*BoolLiteral) expressionNode()             {}
func (*NullLiteral) expressionNode()             {}
func (*VectorLiteral) expressionNode()           {}
func (*ObjectLiteral) expressionNode()           {}
func (*UnaryExpression) expressionNode()         {}
func (*BinaryExpression) expressionNode()        {}
func (*RangeExpression) expressionNode()         {}
func (*AssignExpression) expressionNode()        {}
func (*IndexAssignExpression) expressionNode()   {}
func (*CallExpression) expressionNode()          {}
func (*NamespaceCallExpression) expressionNode() {}
func (*MethodCallExpression) expressionNode()    {}
func (*FieldExpression) expressionNode()         {}
func (*IndexExpression) expressionNode()         {}
func (*ClosureExpression) expressionNode()       {}
func (*SpawnExpression) expressionNode()         {}
func (*AwaitExpression) expressionNode()         {}
func (*ThrowExpression) expressionNode()         {}
func (*MatchExpression) expressionNode()         {}

func (*WildcardPattern) patternNode() {}
func (*LiteralPattern) patternNode()  {}
func (*RangePattern) patternNode()    {}
func (*BindingPattern) patternNode()  {}

func (n *FunctionStatement) Position() Position       { return n.Pos }
func (n *ServiceStatement) Position() Position        { return n.Pos }
func (n *AgentStatement) Position() Position          { return n.Pos }
func (n *SpawnStatement) Position() Position          { return n.Pos }
func (n *MsgStatement) Position() Position            { return n.Pos }
func (n *EventStatement) Position() Position          { return n.Pos }
func (n *ImportStatement) Position() Position         { return n.Pos }
func (n *LetStatement) Position() Position            { return n.Pos }
func (n *ExpressionStatement) Position() Position     { return n.Pos }
func (n *BlockStatement) Position() Position          { return n.Pos }
func (n *ReturnStatement) Position() Position         { return n.Pos }
func (n *BreakStatement) Position() Position          { return n.Pos }
func (n *ContinueStatement) Position() Position       { return n.Pos }
func (n *IfStatement) Position() Position             { return n.Pos }
func (n *WhileStatement) Position() Position          { return n.Pos }
func (n *ForInStatement) Position() Position          { return n.Pos }
func (n *LoopStatement) Position() Position           { return n.Pos }
func (n *TryStatement) Position() Position            { return n.Pos }
func (n *Identifier) Position() Position              { return n.Pos }
func (n *IntegerLiteral) Position() Position          { return n.Pos }
func (n *FloatLiteral) Position() Position            { return n.Pos }
func (n *StringLiteral) Position() Position           { return n.Pos }
func (n *BoolLiteral) Position() Position             { return n.Pos }
func (n *NullLiteral) Position() Position             { return n.Pos }
func (n *VectorLiteral) Position() Position           { return n.Pos }
func (n *ObjectLiteral) Position() Position           { return n.Pos }
func (n *UnaryExpression) Position() Position         { return n.Pos }
func (n *BinaryExpression) Position() Position        { return n.Pos }
func (n *RangeExpression) Position() Position         { return n.Pos }
func (n *AssignExpression) Position() Position        { return n.Pos }
func (n *IndexAssignExpression) Position() Position   { return n.Pos }
func (n *CallExpression) Position() Position          { return n.Pos }
func (n *NamespaceCallExpression) Position() Position { return n.Pos }
func (n *MethodCallExpression) Position() Position    { return n.Pos }
func (n *FieldExpression) Position() Position         { return n.Pos }
func (n *IndexExpression) Position() Position         { return n.Pos }
func (n *ClosureExpression) Position() Position       { return n.Pos }
func (n *SpawnExpression) Position() Position         { return n.Pos }
func (n *AwaitExpression) Position() Position         { return n.Pos }
func (n *ThrowExpression) Position() Position         { return n.Pos }
func (n *MatchExpression) Position() Position         { return n.Pos }
func (n *WildcardPattern) Position() Position         { return n.Pos }
func (n *LiteralPattern) Position() Position          { return n.Pos }
func (n *RangePattern) Position() Position            { return n.Pos }
func (n *BindingPattern) Position() Position          { return n.Pos }
