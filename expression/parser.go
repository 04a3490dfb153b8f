package expression

import (
	"strconv"
	"strings"
)

// keyword operators map onto their symbolic form.
var keywordOps = map[string]string{
	"and": "&&",
	"or":  "||",
	"not": "!",
	"eq":  "==",
	"ne":  "!=",
	"lt":  "<",
	"le":  "<=",
	"gt":  ">",
	"ge":  ">=",
}

type parser struct {
	src    string
	tokens []token
	pos    int
}

func parse(src string) (node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, newError(src, 0, ErrSyntax, "empty expression")
	}
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{src: src, tokens: tokens}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, newError(src, tok.pos, ErrSyntax, "unexpected token %q", tok.text)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

// operator returns the normalized operator at the cursor, if any.
func (p *parser) operator() (string, bool) {
	tok := p.peek()
	switch tok.kind {
	case tokOp:
		return tok.text, true
	case tokIdent:
		if op, ok := keywordOps[tok.text]; ok {
			return op, true
		}
	}
	return "", false
}

func (p *parser) binary(next func() (node, error), ops ...string) (node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.operator()
		if !ok || !contains(ops, op) {
			return left, nil
		}
		tok := p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{pos: tok.pos, op: op, left: left, right: right}
	}
}

func (p *parser) parseOr() (node, error) {
	return p.binary(p.parseAnd, "||")
}

func (p *parser) parseAnd() (node, error) {
	return p.binary(p.parseEquality, "&&")
}

func (p *parser) parseEquality() (node, error) {
	return p.binary(p.parseRelation, "==", "!=")
}

func (p *parser) parseRelation() (node, error) {
	return p.binary(p.parseAdditive, "<", "<=", ">", ">=")
}

func (p *parser) parseAdditive() (node, error) {
	return p.binary(p.parseMultiplicative, "+", "-")
}

func (p *parser) parseMultiplicative() (node, error) {
	return p.binary(p.parseUnary, "*", "/", "%")
}

func (p *parser) parseUnary() (node, error) {
	if op, ok := p.operator(); ok && (op == "!" || op == "-") {
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{pos: tok.pos, op: op, operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch tok.kind {
		case tokDot:
			p.advance()
			name := p.advance()
			if name.kind != tokIdent {
				return nil, newError(p.src, name.pos, ErrSyntax, "expected property name after '.'")
			}
			if p.peek().kind == tokLParen {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				n = &callNode{pos: name.pos, recv: n, name: name.text, args: args}
				continue
			}
			n = &propertyNode{pos: name.pos, recv: n, name: name.text}
		case tokLBracket:
			p.advance()
			idx, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if closing := p.advance(); closing.kind != tokRBracket {
				return nil, newError(p.src, closing.pos, ErrSyntax, "expected ']'")
			}
			n = &indexNode{pos: tok.pos, recv: n, index: idx}
		default:
			return n, nil
		}
	}
}

func (p *parser) parseArgs() ([]node, error) {
	p.advance() // (
	var args []node
	if p.peek().kind == tokRParen {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok := p.advance()
		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			return args, nil
		default:
			return nil, newError(p.src, tok.pos, ErrSyntax, "expected ',' or ')' in argument list")
		}
	}
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.advance()
	switch tok.kind {
	case tokNumber:
		if strings.Contains(tok.text, ".") {
			f, err := strconv.ParseFloat(tok.text, 64)
			if err != nil {
				return nil, newError(p.src, tok.pos, ErrSyntax, "invalid number %q", tok.text)
			}
			return &literalNode{pos: tok.pos, value: f}, nil
		}
		i, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, newError(p.src, tok.pos, ErrSyntax, "invalid number %q", tok.text)
		}
		return &literalNode{pos: tok.pos, value: i}, nil
	case tokString:
		return &literalNode{pos: tok.pos, value: tok.text}, nil
	case tokVar:
		return &variableNode{pos: tok.pos, name: tok.text}, nil
	case tokIdent:
		switch tok.text {
		case "true":
			return &literalNode{pos: tok.pos, value: true}, nil
		case "false":
			return &literalNode{pos: tok.pos, value: false}, nil
		case "null", "nil":
			return &literalNode{pos: tok.pos, value: nil}, nil
		}
		if _, isOp := keywordOps[tok.text]; isOp {
			return nil, newError(p.src, tok.pos, ErrSyntax, "unexpected operator %q", tok.text)
		}
		return &rootPropertyNode{pos: tok.pos, name: tok.text}, nil
	case tokLParen:
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.advance(); closing.kind != tokRParen {
			return nil, newError(p.src, closing.pos, ErrSyntax, "expected ')'")
		}
		return n, nil
	case tokEOF:
		return nil, newError(p.src, tok.pos, ErrSyntax, "unexpected end of expression")
	}
	return nil, newError(p.src, tok.pos, ErrSyntax, "unexpected token %q", tok.text)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
