package constraint

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a node of a parsed predicate expression.
type Expr interface {
	String() string
	Pos() int
}

// ValueKind tells how a predicate value was written.
type ValueKind int

const (
	ValueWord ValueKind = iota
	ValueString
	ValueRegex
)

// Pred is a single `name=value` predicate.
type Pred struct {
	Name string
	Kind ValueKind
	Raw  string // value as written, quotes and slashes included
	pos  int
}

// Text returns the value with quotes or regex slashes removed.
func (p *Pred) Text() string {
	switch p.Kind {
	case ValueString:
		return Unquote(p.Raw)
	case ValueRegex:
		return strings.ReplaceAll(p.Raw[1:len(p.Raw)-1], `\/`, "/")
	default:
		return p.Raw
	}
}

func (p *Pred) String() string { return p.Name + "=" + p.Raw }
func (p *Pred) Pos() int       { return p.pos }

// Not negates X.
type Not struct {
	X   Expr
	pos int
}

func (n *Not) String() string {
	switch n.X.(type) {
	case *And, *Or:
		return "!(" + n.X.String() + ")"
	}
	return "!" + n.X.String()
}

func (n *Not) Pos() int { return n.pos }

// And holds two or more operands joined by &&.
type And struct {
	Operands []Expr
}

func (a *And) String() string { return join(a.Operands, " && ") }
func (a *And) Pos() int       { return a.Operands[0].Pos() }

// Or holds two or more operands joined by ||.
type Or struct {
	Operands []Expr
}

func (o *Or) String() string { return join(o.Operands, " || ") }
func (o *Or) Pos() int       { return o.Operands[0].Pos() }

func join(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		switch e.(type) {
		case *And, *Or:
			parts[i] = "(" + e.String() + ")"
		default:
			parts[i] = e.String()
		}
	}
	return strings.Join(parts, sep)
}

// Parser builds an expression tree from lexer tokens.
type Parser struct {
	tokens  []Token
	current int
}

// NewParser creates a parser over tokens produced by Lexer.Tokenize.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse lexes and parses a complete predicate expression.
func Parse(input string) (Expr, error) {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

// Parse consumes all tokens. Trailing input is an error.
func (p *Parser) Parse() (Expr, error) {
	if p.peek().Type == TokenEOF {
		return nil, &SyntaxError{Position: p.peek().Position, Msg: "empty expression"}
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, &SyntaxError{Position: tok.Position, Msg: fmt.Sprintf("unexpected %s", tok.Type)}
	}
	return expr, nil
}

func (p *Parser) parseOr() (Expr, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	operands := []Expr{first}
	for p.peek().Type == TokenOr {
		p.current++
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return &Or{Operands: operands}, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	operands := []Expr{first}
	for p.peek().Type == TokenAnd {
		p.current++
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return &And{Operands: operands}, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenNot:
		p.current++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{X: x, pos: tok.Position}, nil
	case TokenLParen:
		p.current++
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.peek(); closing.Type != TokenRParen {
			return nil, &SyntaxError{Position: closing.Position, Msg: fmt.Sprintf("expected ')', found %s", closing.Type)}
		}
		p.current++
		return x, nil
	case TokenWord:
		return p.parsePred()
	default:
		return nil, &SyntaxError{Position: tok.Position, Msg: fmt.Sprintf("expected predicate, found %s", tok.Type)}
	}
}

func (p *Parser) parsePred() (Expr, error) {
	name := p.next()
	if eq := p.peek(); eq.Type != TokenEq {
		return nil, &SyntaxError{Position: eq.Position, Msg: fmt.Sprintf("expected '=' after %q", name.Value)}
	}
	p.current++

	val := p.peek()
	pred := &Pred{Name: name.Value, Raw: val.Value, pos: name.Position}
	switch val.Type {
	case TokenWord:
		pred.Kind = ValueWord
	case TokenString:
		pred.Kind = ValueString
	case TokenRegex:
		pred.Kind = ValueRegex
	default:
		return nil, &SyntaxError{Position: val.Position, Msg: fmt.Sprintf("expected value for %q, found %s", name.Value, val.Type)}
	}
	p.current++
	return pred, nil
}

func (p *Parser) peek() Token {
	if p.current >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.current]
}

func (p *Parser) next() Token {
	tok := p.peek()
	p.current++
	return tok
}

// IsQuoted reports whether s is wrapped in matching double quotes, single
// quotes or backquotes.
func IsQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	return (q == '"' || q == '\'' || q == '`') && s[len(s)-1] == q
}

// Unquote strips the quotes of a quoted literal and resolves escapes. Input
// that is not quoted is returned unchanged. Literals that are not valid Go
// string syntax fall back to stripping the quotes.
func Unquote(s string) string {
	if !IsQuoted(s) {
		return s
	}
	if s[0] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], `\'`, "'")
	}
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s[1 : len(s)-1]
}
