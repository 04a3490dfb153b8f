package expression

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokVar
	tokOp
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokDot
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// operators ordered longest first so "<=" wins over "<".
var operators = []string{"==", "!=", "<=", ">=", "&&", "||", "<", ">", "+", "-", "*", "/", "%", "!"}

type lexer struct {
	src []rune
	pos int
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: []rune(src)}
	var tokens []token
	for {
		tok, err := l.next(src)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next(src string) (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	r := l.src[l.pos]

	switch {
	case unicode.IsDigit(r):
		return l.number(), nil
	case r == '\'' || r == '"':
		return l.quoted(src, r)
	case r == '#':
		l.pos++
		ident := l.ident()
		if ident == "" {
			return token{}, newError(src, start, ErrSyntax, "expected variable name after '#'")
		}
		return token{kind: tokVar, text: ident, pos: start}, nil
	case isIdentStart(r):
		return token{kind: tokIdent, text: l.ident(), pos: start}, nil
	}

	l.pos++
	switch r {
	case '(':
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ')':
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case '[':
		return token{kind: tokLBracket, text: "[", pos: start}, nil
	case ']':
		return token{kind: tokRBracket, text: "]", pos: start}, nil
	case '.':
		return token{kind: tokDot, text: ".", pos: start}, nil
	case ',':
		return token{kind: tokComma, text: ",", pos: start}, nil
	}
	l.pos = start

	rest := string(l.src[l.pos:])
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			l.pos += len([]rune(op))
			return token{kind: tokOp, text: op, pos: start}, nil
		}
	}

	return token{}, newError(src, start, ErrSyntax, "unexpected character %q", r)
}

func (l *lexer) number() token {
	start := l.pos
	seenDot := false
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if unicode.IsDigit(r) {
			l.pos++
			continue
		}
		// a dot only belongs to the number when a digit follows it
		if r == '.' && !seenDot && l.pos+1 < len(l.src) && unicode.IsDigit(l.src[l.pos+1]) {
			seenDot = true
			l.pos++
			continue
		}
		break
	}
	return token{kind: tokNumber, text: string(l.src[start:l.pos]), pos: start}
}

// quoted reads a string literal. A doubled quote character escapes itself.
func (l *lexer) quoted(src string, quote rune) (token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if r == quote {
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == quote {
				b.WriteRune(quote)
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		}
		b.WriteRune(r)
		l.pos++
	}
	return token{}, newError(src, start, ErrSyntax, "unterminated string literal")
}

func (l *lexer) ident() string {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	return string(l.src[start:l.pos])
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
