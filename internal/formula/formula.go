// Package formula evaluates the small arithmetic language organizers use to
// describe payouts as a function of the round's player count.
//
//	expr    := term { ("+" | "-") term }
//	term    := unary { ("*" | "/") unary }
//	unary   := ("-" | "+") unary | primary
//	primary := number | identifier | "(" expr ")"
//
// All arithmetic is decimal. Expressions are parsed into a tree once and may be
// evaluated any number of times, concurrently.
package formula

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// PlayersVar is the variable bound to the round's player count.
const PlayersVar = "roundPlayers"

var (
	// ErrMalformed matches syntax errors: stray characters, unbalanced parentheses.
	ErrMalformed = errors.New("malformed formula")
	// ErrUnknownVariable matches references to anything other than PlayersVar.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrNonFinite matches division by zero during evaluation.
	ErrNonFinite = errors.New("formula result is not finite")
)

// Kind classifies an Error.
type Kind int

const (
	// KindMalformed is a syntax error; Error.Pos points at it.
	KindMalformed Kind = iota + 1
	// KindUnknownVariable is a reference to an unbound name; Error.Name holds it.
	KindUnknownVariable
	// KindNonFinite is an evaluation that divided by zero.
	KindNonFinite
)

// Error describes why an expression could not be compiled or evaluated.
type Error struct {
	Kind   Kind
	Expr   string
	Pos    int    // byte offset, malformed only
	Name   string // unknown variable only
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMalformed:
		return fmt.Sprintf("malformed formula %q at offset %d: %s", e.Expr, e.Pos, e.Detail)
	case KindUnknownVariable:
		return fmt.Sprintf("formula %q references unknown variable %q", e.Expr, e.Name)
	default:
		return fmt.Sprintf("formula %q is not finite: %s", e.Expr, e.Detail)
	}
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrMalformed:
		return e.Kind == KindMalformed
	case ErrUnknownVariable:
		return e.Kind == KindUnknownVariable
	case ErrNonFinite:
		return e.Kind == KindNonFinite
	}
	return false
}

// Expression is a compiled formula.
type Expression struct {
	src  string
	root node
	vars []string
}

// Compile parses src. Only syntax is checked; variables are resolved at Eval.
func Compile(src string) (*Expression, error) {
	p := &parser{src: src, lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokEOF {
		return nil, p.malformed(p.tok.pos, "empty expression")
	}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.malformed(p.tok.pos, fmt.Sprintf("unexpected %s", p.tok))
	}

	seen := make(map[string]struct{})
	collectVars(root, seen)
	vars := make([]string, 0, len(seen))
	for name := range seen {
		vars = append(vars, name)
	}
	sort.Strings(vars)

	return &Expression{src: src, root: root, vars: vars}, nil
}

// MustCompile is Compile for expressions known at build time.
func MustCompile(src string) *Expression {
	expr, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return expr
}

func (e *Expression) String() string { return e.src }

// Variables lists the names the expression references, sorted.
func (e *Expression) Variables() []string {
	out := make([]string, len(e.vars))
	copy(out, e.vars)
	return out
}

func (e *Expression) Eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	return e.root.eval(e.src, vars)
}

// Evaluate compiles and evaluates expression in one step.
func Evaluate(expression string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	expr, err := Compile(expression)
	if err != nil {
		return decimal.Zero, err
	}
	return expr.Eval(vars)
}

// EvaluateForPlayers binds PlayersVar to n.
func (e *Expression) EvaluateForPlayers(n int) (decimal.Decimal, error) {
	return e.Eval(map[string]decimal.Decimal{PlayersVar: decimal.NewFromInt(int64(n))})
}

// Valid reports whether src parses.
func Valid(src string) bool {
	_, err := Compile(strings.TrimSpace(src))
	return err == nil
}
