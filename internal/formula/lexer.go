package formula

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	pos  int
	text string
	num  decimal.Decimal
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokNumber, tokIdent:
		return fmt.Sprintf("%q", t.text)
	default:
		return fmt.Sprintf("'%s'", t.text)
	}
}

type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

// next returns the next token, or a malformed-kind *Error.
func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
			continue
		}
		break
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch c {
	case '+':
		l.pos++
		return token{kind: tokPlus, pos: start, text: "+"}, nil
	case '-':
		l.pos++
		return token{kind: tokMinus, pos: start, text: "-"}, nil
	case '*':
		l.pos++
		return token{kind: tokStar, pos: start, text: "*"}, nil
	case '/':
		l.pos++
		return token{kind: tokSlash, pos: start, text: "/"}, nil
	case '(':
		l.pos++
		return token{kind: tokLParen, pos: start, text: "("}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, pos: start, text: ")"}, nil
	}

	if isDigit(c) || c == '.' {
		return l.number(start)
	}
	if isIdentStart(c) {
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, pos: start, text: l.src[start:l.pos]}, nil
	}

	return token{}, &Error{Kind: KindMalformed, Expr: l.src, Pos: start, Detail: fmt.Sprintf("unexpected character %q", c)}
}

func (l *lexer) number(start int) (token, error) {
	digits := 0
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
		digits++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
			digits++
		}
	}
	text := l.src[start:l.pos]
	if digits == 0 {
		return token{}, &Error{Kind: KindMalformed, Expr: l.src, Pos: start, Detail: fmt.Sprintf("invalid number %q", text)}
	}
	if l.pos < len(l.src) && (isIdentStart(l.src[l.pos]) || l.src[l.pos] == '.') {
		return token{}, &Error{Kind: KindMalformed, Expr: l.src, Pos: l.pos, Detail: fmt.Sprintf("invalid number %q", l.src[start:l.pos+1])}
	}
	num, err := decimal.NewFromString(text)
	if err != nil {
		return token{}, &Error{Kind: KindMalformed, Expr: l.src, Pos: start, Detail: err.Error()}
	}
	return token{kind: tokNumber, pos: start, text: text, num: num}, nil
}
