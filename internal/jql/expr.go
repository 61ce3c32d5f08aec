package jql

import (
	"fmt"
	"strings"
)

// Node is a single element of a JQL expression tree.
type Node interface {
	jql() string
}

// Raw is a verbatim JQL fragment (a saved filter reference or a user query).
type Raw string

// Predicate is a `field op "value"` comparison. The value is always quoted.
type Predicate struct {
	Field string
	Op    string
	Value string
}

// In is a `field in (a, b, ...)` membership test.
type In struct {
	Field  string
	Values []string
}

// Func is a `field in fn("arg")` test against a JQL function such as linkedIssues.
type Func struct {
	Field string
	Name  string
	Arg   string
}

// And joins its children with AND. Children are not parenthesized implicitly.
type And []Node

// Or joins its children with OR. Children are not parenthesized implicitly.
type Or []Node

// Group wraps an expression in parentheses.
type Group struct {
	Inner Node
}

func (r Raw) jql() string { return string(r) }

func (p Predicate) jql() string {
	return fmt.Sprintf("%s %s \"%s\"", p.Field, p.Op, p.Value)
}

func (in In) jql() string {
	return fmt.Sprintf("%s in (%s)", in.Field, strings.Join(in.Values, ", "))
}

func (f Func) jql() string {
	return fmt.Sprintf("%s in %s(\"%s\")", f.Field, f.Name, f.Arg)
}

func (a And) jql() string { return join([]Node(a), " AND ") }

func (o Or) jql() string { return join([]Node(o), " OR ") }

func (g Group) jql() string {
	if g.Inner == nil {
		return ""
	}
	return "(" + g.Inner.jql() + ")"
}

func join(nodes []Node, sep string) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if s := n.jql(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

// String serializes an expression tree. A nil node yields the empty string.
func String(n Node) string {
	if n == nil {
		return ""
	}
	return n.jql()
}

// Paren groups n. Empty expressions stay empty so callers never produce "()".
func Paren(n Node) Node {
	if String(n) == "" {
		return nil
	}
	return Group{Inner: n}
}
