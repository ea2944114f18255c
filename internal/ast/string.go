// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     ast
// Description: Source-like string rendering of AST nodes
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package ast

import (
	"fmt"
	"strconv"
	"strings"
)

func joinExprs(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func joinParams(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		if p.Type != "" {
			parts[i] = p.Name + ": " + p.Type
		} else {
			parts[i] = p.Name
		}
	}
	return strings.Join(parts, ", ")
}

func (p *Program) String() string {
	var b strings.Builder
	for _, s := range p.Statements {
		b.WriteString(s.String())
		b.WriteString("\n")
	}
	return b.String()
}

func (a *Attribute) String() string {
	if len(a.Args) == 0 {
		return "@" + a.Name
	}
	return fmt.Sprintf("@%s(%s)", a.Name, joinExprs(a.Args))
}

func (as Attributes) String() string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

func (n *FunctionStatement) String() string {
	var b strings.Builder
	if len(n.Attributes) > 0 {
		b.WriteString(n.Attributes.String())
		b.WriteString(" ")
	}
	if n.Exported {
		b.WriteString("export ")
	}
	if n.IsAsync {
		b.WriteString("async ")
	}
	fmt.Fprintf(&b, "fn %s(%s)", n.Name, joinParams(n.Params))
	if n.ReturnType != "" {
		b.WriteString(" -> " + n.ReturnType)
	}
	b.WriteString(" ")
	b.WriteString(n.Body.String())
	return b.String()
}

func (n *ServiceStatement) String() string {
	var b strings.Builder
	if len(n.Attributes) > 0 {
		b.WriteString(n.Attributes.String())
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "service %s {", n.Name)
	for _, f := range n.Fields {
		b.WriteString(" ")
		if f.Visibility != "" {
			b.WriteString("@" + f.Visibility + " ")
		}
		b.WriteString(f.Name + ": " + f.Type)
		if f.Value != nil {
			b.WriteString(" = " + f.Value.String())
		}
		b.WriteString(";")
	}
	for _, e := range n.Events {
		fmt.Fprintf(&b, " event %s(%s);", e.Name, joinParams(e.Params))
	}
	for _, m := range n.Methods {
		b.WriteString(" ")
		b.WriteString(m.String())
	}
	b.WriteString(" }")
	return b.String()
}

func (n *AgentStatement) String() string {
	s := fmt.Sprintf("agent %s: %s %s", n.Name, n.AgentType, n.Config.String())
	if len(n.Capabilities) > 0 {
		s += " with [" + strings.Join(n.Capabilities, ", ") + "]"
	}
	return s + " " + n.Body.String()
}

func (n *SpawnStatement) String() string {
	s := "spawn " + n.Name
	if n.AgentType != "" {
		s += ": " + n.AgentType
	}
	if n.Config != nil {
		s += " " + n.Config.String()
	}
	return s + " " + n.Body.String()
}

func (n *MsgStatement) String() string {
	return fmt.Sprintf("msg %s %s;", n.Recipient, n.Data.String())
}

func (n *EventStatement) String() string {
	return fmt.Sprintf("event %s %s;", n.Name, n.Data.String())
}

func (n *ImportStatement) String() string {
	if n.Alias != "" {
		return fmt.Sprintf("import %q as %s;", n.Path, n.Alias)
	}
	return fmt.Sprintf("import %q;", n.Path)
}

func (n *LetStatement) String() string {
	s := "let "
	if n.Mutable {
		s += "mut "
	}
	s += n.Name
	if n.Type != "" {
		s += ": " + n.Type
	}
	if n.Value != nil {
		s += " = " + n.Value.String()
	}
	return s + ";"
}

func (n *ExpressionStatement) String() string {
	if n.Terminated {
		return n.Expr.String() + ";"
	}
	return n.Expr.String()
}

func (n *BlockStatement) String() string {
	if n == nil || len(n.Statements) == 0 {
		return "{}"
	}
	parts := make([]string, len(n.Statements))
	for i, s := range n.Statements {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

func (n *ReturnStatement) String() string {
	if n.Value == nil {
		return "return;"
	}
	return "return " + n.Value.String() + ";"
}

func (n *BreakStatement) String() string {
	if n.Value == nil {
		return "break;"
	}
	return "break " + n.Value.String() + ";"
}

func (n *ContinueStatement) String() string { return "continue;" }

func (n *IfStatement) String() string {
	s := fmt.Sprintf("if (%s) %s", n.Condition.String(), n.Then.String())
	if n.Else != nil {
		s += " else " + n.Else.String()
	}
	return s
}

func (n *WhileStatement) String() string {
	return fmt.Sprintf("while (%s) %s", n.Condition.String(), n.Body.String())
}

func (n *ForInStatement) String() string {
	return fmt.Sprintf("for %s in %s %s", n.Variable, n.Iterable.String(), n.Body.String())
}

func (n *LoopStatement) String() string { return "loop " + n.Body.String() }

func (n *TryStatement) String() string {
	s := "try " + n.Body.String()
	for _, c := range n.Catches {
		s += " catch "
		if c.Type != "" || c.Variable != "" {
			s += "(" + strings.TrimSpace(c.Type+" "+c.Variable) + ") "
		}
		s += c.Body.String()
	}
	if n.Finally != nil {
		s += " finally " + n.Finally.String()
	}
	return s
}

func (n *Identifier) String() string     { return n.Name }
func (n *IntegerLiteral) String() string { return strconv.FormatInt(n.Value, 10) }
func (n *FloatLiteral) String() string   { return strconv.FormatFloat(n.Value, 'g', -1, 64) }
func (n *StringLiteral) String() string  { return strconv.Quote(n.Value) }
func (n *BoolLiteral) String() string    { return strconv.FormatBool(n.Value) }
func (n *NullLiteral) String() string    { return "null" }

func (n *VectorLiteral) String() string { return "[" + joinExprs(n.Elements) + "]" }

func (n *ObjectLiteral) String() string {
	if n == nil || len(n.Entries) == 0 {
		return "{}"
	}
	parts := make([]string, len(n.Entries))
	for i, e := range n.Entries {
		key := e.Key
		if e.KeyExpr != nil {
			key = "[" + e.KeyExpr.String() + "]"
		}
		parts[i] = key + ": " + e.Value.String()
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func (n *UnaryExpression) String() string {
	return "(" + n.Operator + n.Operand.String() + ")"
}

func (n *BinaryExpression) String() string {
	return "(" + n.Left.String() + " " + n.Operator + " " + n.Right.String() + ")"
}

func (n *RangeExpression) String() string {
	return n.Start.String() + ".." + n.End.String()
}

func (n *AssignExpression) String() string {
	return n.Target.String() + " = " + n.Value.String()
}

func (n *IndexAssignExpression) String() string {
	return fmt.Sprintf("%s[%s] = %s", n.Object.String(), n.Index.String(), n.Value.String())
}

func (n *CallExpression) String() string {
	return n.Callee.String() + "(" + joinExprs(n.Args) + ")"
}

func (n *NamespaceCallExpression) String() string {
	return n.Qualified() + "(" + joinExprs(n.Args) + ")"
}

func (n *MethodCallExpression) String() string {
	return n.Object.String() + "." + n.Method + "(" + joinExprs(n.Args) + ")"
}

func (n *FieldExpression) String() string { return n.Object.String() + "." + n.Field }

func (n *IndexExpression) String() string {
	return n.Object.String() + "[" + n.Index.String() + "]"
}

func (n *ClosureExpression) String() string { return n.Param + " => " + n.Body.String() }
func (n *SpawnExpression) String() string   { return "spawn " + n.Operand.String() }
func (n *AwaitExpression) String() string   { return "await " + n.Operand.String() }
func (n *ThrowExpression) String() string   { return "throw " + n.Value.String() }

func (n *MatchExpression) String() string {
	parts := make([]string, len(n.Arms))
	for i, arm := range n.Arms {
		parts[i] = arm.Pattern.String() + " => " + arm.Body.String()
	}
	return "match " + n.Subject.String() + " { " + strings.Join(parts, ", ") + " }"
}

func (n *WildcardPattern) String() string {
	if n.Default {
		return "default"
	}
	return "_"
}

func (n *LiteralPattern) String() string { return n.Value.String() }
func (n *RangePattern) String() string   { return n.Start.String() + ".." + n.End.String() }
func (n *BindingPattern) String() string { return n.Name }
