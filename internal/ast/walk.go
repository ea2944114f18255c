// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     ast
// Description: Depth-first traversal of DAL syntax trees
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package ast

import (
	"fmt"
	"io"
	"strings"
)

// Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children
// of node with w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order
func Walk(v Visitor, node Node) {
	if node == nil {
		return
	}
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, s := range n.Statements {
			Walk(v, s)
		}
	case *FunctionStatement:
		walkAttributes(v, n.Attributes)
		walkBlock(v, n.Body)
	case *ServiceStatement:
		walkAttributes(v, n.Attributes)
		for _, f := range n.Fields {
			if f.Value != nil {
				Walk(v, f.Value)
			}
		}
		for _, m := range n.Methods {
			Walk(v, m)
		}
	case *AgentStatement:
		walkObject(v, n.Config)
		walkBlock(v, n.Body)
	case *SpawnStatement:
		walkObject(v, n.Config)
		walkBlock(v, n.Body)
	case *MsgStatement:
		walkObject(v, n.Data)
	case *EventStatement:
		walkObject(v, n.Data)
	case *LetStatement:
		walkExpr(v, n.Value)
	case *ExpressionStatement:
		walkExpr(v, n.Expr)
	case *BlockStatement:
		for _, s := range n.Statements {
			Walk(v, s)
		}
	case *ReturnStatement:
		walkExpr(v, n.Value)
	case *BreakStatement:
		walkExpr(v, n.Value)
	case *IfStatement:
		walkExpr(v, n.Condition)
		walkBlock(v, n.Then)
		if n.Else != nil {
			Walk(v, n.Else)
		}
	case *WhileStatement:
		walkExpr(v, n.Condition)
		walkBlock(v, n.Body)
	case *ForInStatement:
		walkExpr(v, n.Iterable)
		walkBlock(v, n.Body)
	case *LoopStatement:
		walkBlock(v, n.Body)
	case *TryStatement:
		walkBlock(v, n.Body)
		for _, c := range n.Catches {
			walkBlock(v, c.Body)
		}
		walkBlock(v, n.Finally)
	case *VectorLiteral:
		for _, e := range n.Elements {
			Walk(v, e)
		}
	case *ObjectLiteral:
		for _, e := range n.Entries {
			walkExpr(v, e.KeyExpr)
			Walk(v, e.Value)
		}
	case *UnaryExpression:
		Walk(v, n.Operand)
	case *BinaryExpression:
		Walk(v, n.Left)
		Walk(v, n.Right)
	case *RangeExpression:
		Walk(v, n.Start)
		Walk(v, n.End)
	case *AssignExpression:
		Walk(v, n.Target)
		Walk(v, n.Value)
	case *IndexAssignExpression:
		Walk(v, n.Object)
		Walk(v, n.Index)
		Walk(v, n.Value)
	case *CallExpression:
		Walk(v, n.Callee)
		walkExprs(v, n.Args)
	case *NamespaceCallExpression:
		walkExprs(v, n.Args)
	case *MethodCallExpression:
		Walk(v, n.Object)
		walkExprs(v, n.Args)
	case *FieldExpression:
		Walk(v, n.Object)
	case *IndexExpression:
		Walk(v, n.Object)
		Walk(v, n.Index)
	case *ClosureExpression:
		walkBlock(v, n.Body)
	case *SpawnExpression:
		Walk(v, n.Operand)
	case *AwaitExpression:
		Walk(v, n.Operand)
	case *ThrowExpression:
		Walk(v, n.Value)
	case *MatchExpression:
		Walk(v, n.Subject)
		for _, arm := range n.Arms {
			Walk(v, arm.Pattern)
			walkBlock(v, arm.Body)
		}
	case *LiteralPattern:
		Walk(v, n.Value)
	case *RangePattern:
		Walk(v, n.Start)
		Walk(v, n.End)
	}

	v.Visit(nil)
}

func walkExpr(v Visitor, e Expression) {
	if e != nil {
		Walk(v, e)
	}
}

func walkExprs(v Visitor, exprs []Expression) {
	for _, e := range exprs {
		Walk(v, e)
	}
}

func walkBlock(v Visitor, b *BlockStatement) {
	if b != nil {
		Walk(v, b)
	}
}

func walkObject(v Visitor, o *ObjectLiteral) {
	if o != nil {
		Walk(v, o)
	}
}

func walkAttributes(v Visitor, attrs Attributes) {
	for _, a := range attrs {
		walkExprs(v, a.Args)
	}
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses an AST in depth-first order: it starts by calling
// f(node); if f returns true, Inspect invokes f recursively for each of
// the children of node, followed by a call of f(nil).
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

// NamespaceCalls returns every ns::fn call reachable from node in source order
func NamespaceCalls(node Node) []*NamespaceCallExpression {
	var calls []*NamespaceCallExpression
	Inspect(node, func(n Node) bool {
		if c, ok := n.(*NamespaceCallExpression); ok {
			calls = append(calls, c)
		}
		return true
	})
	return calls
}

// Words returns the identifiers, field and method names, namespace
// function names and string contents reachable from node, lowercased.
func Words(node Node) []string {
	var words []string
	Inspect(node, func(n Node) bool {
		switch x := n.(type) {
		case *Identifier:
			words = append(words, strings.ToLower(x.Name))
		case *StringLiteral:
			words = append(words, strings.ToLower(x.Value))
		case *FieldExpression:
			words = append(words, strings.ToLower(x.Field))
		case *MethodCallExpression:
			words = append(words, strings.ToLower(x.Method))
		case *NamespaceCallExpression:
			words = append(words, strings.ToLower(x.Namespace), strings.ToLower(x.Function))
		case *LetStatement:
			words = append(words, strings.ToLower(x.Name))
		case *ForInStatement:
			words = append(words, strings.ToLower(x.Variable))
		}
		return true
	})
	return words
}

// Fprint writes an indented tree of node to w
func Fprint(w io.Writer, node Node) error {
	depth := 0
	var err error
	Inspect(node, func(n Node) bool {
		if err != nil {
			return false
		}
		if n == nil {
			depth--
			return false
		}
		_, err = fmt.Fprintf(w, "%s%s%s\n", strings.Repeat("  ", depth), nodeName(n), summary(n))
		depth++
		return true
	})
	return err
}

func nodeName(n Node) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast.")
}

func summary(n Node) string {
	pos := n.Position()
	loc := fmt.Sprintf(" @%d:%d", pos.Line, pos.Column)
	switch x := n.(type) {
	case *Program:
		return fmt.Sprintf(" %q", x.File)
	case *ServiceStatement:
		return " " + x.Name + attrSuffix(x.Attributes) + loc
	case *FunctionStatement:
		return fmt.Sprintf(" %s(%s)%s", x.Name, joinParams(x.Params), attrSuffix(x.Attributes)) + loc
	case *AgentStatement:
		return " " + x.Name + ": " + x.AgentType + loc
	case *SpawnStatement:
		return " " + x.Name + loc
	case *MsgStatement:
		return " to " + x.Recipient + loc
	case *EventStatement:
		return " " + x.Name + loc
	case *LetStatement:
		return " " + x.Name + loc
	case *ForInStatement:
		return " " + x.Variable + loc
	case *Identifier, *IntegerLiteral, *FloatLiteral, *StringLiteral, *BoolLiteral, *NullLiteral:
		return " " + n.String()
	case *UnaryExpression:
		return " " + x.Operator
	case *BinaryExpression:
		return " " + x.Operator
	case *NamespaceCallExpression:
		return " " + x.Qualified() + loc
	case *MethodCallExpression:
		return " ." + x.Method + loc
	case *FieldExpression:
		return " ." + x.Field
	case *BindingPattern:
		return " " + x.Name
	}
	return ""
}

func attrSuffix(attrs Attributes) string {
	if len(attrs) == 0 {
		return ""
	}
	return " [" + attrs.String() + "]"
}
