// Package spdxexpr implements the small amount of SPDX license-expression
// algebra this repository needs: decomposing a compound expression into its
// single-license leaves, folding a set of leaves back into a compound
// expression, and applying/enumerating OR-branch choices. It deliberately
// does not implement a full SPDX expression parser/lexer — that belongs to
// the external collaborator named in the resolver's scope — only the tree
// algebra over an already-parsed Expression.
package spdxexpr

import (
	"fmt"
	"sort"
	"strings"
)

// Op is the operator joining two sub-expressions.
type Op int

const (
	// OpNone marks a leaf expression (no operator).
	OpNone Op = iota
	// OpAnd is a logical AND of two expressions.
	OpAnd
	// OpOr is a logical OR of two expressions.
	OpOr
	// OpWith is an identifier-with-exception pair; also a leaf for the
	// purposes of decompose/valid_choices, since it can't be split
	// further.
	OpWith
)

// Expression is a tree over single-license expressions combined by AND, OR
// and WITH operators.
type Expression struct {
	Op Op

	// License is set when Op is OpNone: a bare SPDX identifier.
	License string

	// Exception is set when Op is OpWith: the exception identifier.
	Exception string

	// Left/Right are set when Op is OpAnd or OpOr.
	Left  *Expression
	Right *Expression
}

// Leaf builds a single-identifier leaf expression.
func Leaf(license string) *Expression {
	return &Expression{Op: OpNone, License: license}
}

// With builds an identifier-with-exception leaf expression.
func With(license, exception string) *Expression {
	return &Expression{Op: OpWith, License: license, Exception: exception}
}

// And builds a compound AND expression.
func And(left, right *Expression) *Expression {
	return &Expression{Op: OpAnd, Left: left, Right: right}
}

// Or builds a compound OR expression.
func Or(left, right *Expression) *Expression {
	return &Expression{Op: OpOr, Left: left, Right: right}
}

// IsLeaf reports whether e is a single-license expression (OpNone or
// OpWith), ie it has no further AND/OR structure.
func (e *Expression) IsLeaf() bool {
	return e != nil && (e.Op == OpNone || e.Op == OpWith)
}

// String renders the expression in standard SPDX expression syntax,
// introducing only the parentheses required to disambiguate mixed AND/OR.
func (e *Expression) String() string {
	return e.render(0)
}

// precedence returns the binding precedence used by render: OR binds
// looser than AND, matching the SPDX expression grammar.
func (op Op) precedence() int {
	switch op {
	case OpOr:
		return 1
	case OpAnd:
		return 2
	default:
		return 3
	}
}

func (e *Expression) render(parentPrec int) string {
	if e == nil {
		return ""
	}
	switch e.Op {
	case OpNone:
		return e.License
	case OpWith:
		return fmt.Sprintf("%s WITH %s", e.License, e.Exception)
	case OpAnd, OpOr:
		opStr := "AND"
		if e.Op == OpOr {
			opStr = "OR"
		}
		prec := e.Op.precedence()
		s := fmt.Sprintf("%s %s %s", e.Left.render(prec), opStr, e.Right.render(prec))
		if prec < parentPrec {
			return "(" + s + ")"
		}
		return s
	default:
		return ""
	}
}

// leafKey returns a stable string identifying a leaf for set/map membership
// and for the canonical ordering used throughout the resolver.
func leafKey(e *Expression) string {
	if e.Op == OpWith {
		return e.License + " WITH " + e.Exception
	}
	return e.License
}

// Decompose returns every leaf of the expression tree exactly once, in
// deterministic (sorted) order by canonical string.
func Decompose(e *Expression) []*Expression {
	if e == nil {
		return nil
	}
	seen := make(map[string]*Expression)
	var walk func(*Expression)
	walk = func(x *Expression) {
		if x == nil {
			return
		}
		if x.IsLeaf() {
			seen[leafKey(x)] = x
			return
		}
		walk(x.Left)
		walk(x.Right)
	}
	walk(e)

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*Expression, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}

// ToExpression folds a set of expressions with the given operator,
// left-associatively, without introducing redundant parentheses. It returns
// nil for an empty input. op must be OpAnd or OpOr.
func ToExpression(exprs []*Expression, op Op) *Expression {
	if len(exprs) == 0 {
		return nil
	}
	result := exprs[0]
	for _, e := range exprs[1:] {
		result = &Expression{Op: op, Left: result, Right: e}
	}
	return result
}

// Choice is a single license-choice rule: if Given matches an OR
// sub-expression of the input, that sub-expression is replaced by Chosen.
type Choice struct {
	Given  *Expression
	Chosen *Expression
}

// ErrInvalidLicenseChoice is returned by ApplyChoices when a choice's Given
// expression doesn't match any OR sub-expression of the input.
type ErrInvalidLicenseChoice struct {
	Given string
}

func (e *ErrInvalidLicenseChoice) Error() string {
	return fmt.Sprintf("invalid license choice: %q does not match any OR sub-expression", e.Given)
}

// ApplyChoices applies each choice in order to expr, returning the final
// expression. Choices are applied in order; a later choice sees the
// expression after earlier choices have already been applied.
func ApplyChoices(expr *Expression, choices []Choice) (*Expression, error) {
	current := expr
	for _, choice := range choices {
		replaced, ok := replaceOrSubexpr(current, choice.Given, choice.Chosen)
		if !ok {
			return nil, &ErrInvalidLicenseChoice{Given: choice.Given.String()}
		}
		current = replaced
	}
	return current, nil
}

// replaceOrSubexpr finds the first OR sub-expression of e equal (by
// canonical string) to given, and replaces it with chosen. It returns
// (result, true) on success, or (e, false) if no match was found anywhere
// in the tree.
func replaceOrSubexpr(e, given, chosen *Expression) (*Expression, bool) {
	if e == nil {
		return nil, false
	}
	if e.Op == OpOr && e.String() == given.String() {
		return chosen, true
	}
	if e.Op == OpAnd || e.Op == OpOr {
		if left, ok := replaceOrSubexpr(e.Left, given, chosen); ok {
			return &Expression{Op: e.Op, Left: left, Right: e.Right}, true
		}
		if right, ok := replaceOrSubexpr(e.Right, given, chosen); ok {
			return &Expression{Op: e.Op, Left: e.Left, Right: right}, true
		}
	}
	return e, false
}

// ValidChoices returns all minimal sub-expressions not containing OR that
// are reachable by picking one branch per OR in expr, in deterministic
// (sorted by canonical string) order.
func ValidChoices(expr *Expression) []*Expression {
	if expr == nil {
		return nil
	}
	combos := enumerate(expr)

	seen := make(map[string]*Expression)
	for _, c := range combos {
		seen[c.String()] = c
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*Expression, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}

func enumerate(e *Expression) []*Expression {
	if e == nil {
		return nil
	}
	if e.IsLeaf() {
		return []*Expression{e}
	}
	if e.Op == OpOr {
		return append(enumerate(e.Left), enumerate(e.Right)...)
	}
	// OpAnd: cartesian product of left and right alternatives.
	lefts := enumerate(e.Left)
	rights := enumerate(e.Right)
	out := make([]*Expression, 0, len(lefts)*len(rights))
	for _, l := range lefts {
		for _, r := range rights {
			out = append(out, &Expression{Op: OpAnd, Left: l, Right: r})
		}
	}
	return out
}

// Equal reports whether two expressions are semantically equal up to AND
// associativity and commutativity, ie their decomposed AND-leaf sets match.
// This is the relation used by the decompose-idempotence property: it does
// NOT treat OR as commutative, since OR branches carry choice semantics.
func Equal(a, b *Expression) bool {
	return canonicalAndString(a) == canonicalAndString(b)
}

// canonicalAndString renders e with its top-level AND operands sorted, so
// that AND commutativity/associativity don't produce spurious differences.
func canonicalAndString(e *Expression) string {
	parts := flattenAnd(e)
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = p.String()
	}
	sort.Strings(strs)
	return strings.Join(strs, " AND ")
}

func flattenAnd(e *Expression) []*Expression {
	if e == nil {
		return nil
	}
	if e.Op != OpAnd {
		return []*Expression{e}
	}
	return append(flattenAnd(e.Left), flattenAnd(e.Right)...)
}
