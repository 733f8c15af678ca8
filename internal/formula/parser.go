package formula

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type node interface {
	eval(src string, vars map[string]decimal.Decimal) (decimal.Decimal, error)
}

type numberNode struct {
	value decimal.Decimal
}

type varNode struct {
	name string
}

type negNode struct {
	operand node
}

type binaryNode struct {
	op          tokenKind
	left, right node
}

func (n numberNode) eval(string, map[string]decimal.Decimal) (decimal.Decimal, error) {
	return n.value, nil
}

func (n varNode) eval(src string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	v, ok := vars[n.name]
	if !ok {
		return decimal.Zero, &Error{Kind: KindUnknownVariable, Expr: src, Name: n.name}
	}
	return v, nil
}

func (n negNode) eval(src string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	v, err := n.operand.eval(src, vars)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Neg(), nil
}

func (n binaryNode) eval(src string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	l, err := n.left.eval(src, vars)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := n.right.eval(src, vars)
	if err != nil {
		return decimal.Zero, err
	}
	switch n.op {
	case tokPlus:
		return l.Add(r), nil
	case tokMinus:
		return l.Sub(r), nil
	case tokStar:
		return l.Mul(r), nil
	default:
		if r.IsZero() {
			return decimal.Zero, &Error{Kind: KindNonFinite, Expr: src, Detail: "division by zero"}
		}
		return l.Div(r), nil
	}
}

func collectVars(n node, seen map[string]struct{}) {
	switch v := n.(type) {
	case varNode:
		seen[v.name] = struct{}{}
	case negNode:
		collectVars(v.operand, seen)
	case binaryNode:
		collectVars(v.left, seen)
		collectVars(v.right, seen)
	}
}

type parser struct {
	src string
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) malformed(pos int, detail string) error {
	return &Error{Kind: KindMalformed, Expr: p.src, Pos: pos, Detail: detail}
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPlus || p.tok.kind == tokMinus {
		op := p.tok.kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokStar || p.tok.kind == tokSlash {
		op := p.tok.kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	switch p.tok.kind {
	case tokMinus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negNode{operand: operand}, nil
	case tokPlus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.tok
	switch tok.kind {
	case tokNumber:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return numberNode{value: tok.num}, nil
	case tokIdent:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokLParen {
			return nil, p.malformed(tok.pos, fmt.Sprintf("function calls are not supported (%s)", tok.text))
		}
		return varNode{name: tok.text}, nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.malformed(p.tok.pos, fmt.Sprintf("expected ')' but found %s", p.tok))
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, p.malformed(tok.pos, fmt.Sprintf("expected number, variable or '(' but found %s", tok))
}
