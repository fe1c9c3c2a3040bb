package constraint

import (
	"fmt"
	"unicode"
)

// TokenType identifies a lexical token of a predicate expression.
type TokenType int

const (
	TokenWord   TokenType = iota // bare word: identifiers and configuration names
	TokenString                  // "…", '…' or `…`
	TokenRegex                   // /…/
	TokenEq                      // =
	TokenNot                     // !
	TokenAnd                     // &&
	TokenOr                      // ||
	TokenLParen                  // (
	TokenRParen                  // )
	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenWord:
		return "word"
	case TokenString:
		return "string"
	case TokenRegex:
		return "regex"
	case TokenEq:
		return "'='"
	case TokenNot:
		return "'!'"
	case TokenAnd:
		return "'&&'"
	case TokenOr:
		return "'||'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	default:
		return "end of input"
	}
}

// Token is a single lexical token with its raw text and byte offset.
type Token struct {
	Type     TokenType
	Value    string
	Position int
}

// SyntaxError reports a malformed predicate expression.
type SyntaxError struct {
	Position int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid predicate at offset %d: %s", e.Position, e.Msg)
}

// Lexer scans a predicate expression into tokens.
type Lexer struct {
	input    string
	position int
	tokens   []Token
}

// NewLexer returns a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the whole input. The last token is always TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.position < len(l.input) {
		start := l.position
		c := l.input[l.position]
		switch {
		case isSpace(c):
			l.position++
		case c == '=':
			l.emit(TokenEq, "=", start)
			l.position++
		case c == '(':
			l.emit(TokenLParen, "(", start)
			l.position++
		case c == ')':
			l.emit(TokenRParen, ")", start)
			l.position++
		case c == '!':
			l.emit(TokenNot, "!", start)
			l.position++
		case c == '&' || c == '|':
			if l.position+1 >= len(l.input) || l.input[l.position+1] != c {
				return nil, &SyntaxError{Position: start, Msg: fmt.Sprintf("expected %c%c", c, c)}
			}
			if c == '&' {
				l.emit(TokenAnd, "&&", start)
			} else {
				l.emit(TokenOr, "||", start)
			}
			l.position += 2
		case c == '"' || c == '\'' || c == '`':
			if err := l.lexDelimited(TokenString, c); err != nil {
				return nil, err
			}
		case c == '/':
			if err := l.lexDelimited(TokenRegex, '/'); err != nil {
				return nil, err
			}
		case isWordChar(c):
			for l.position < len(l.input) && isWordChar(l.input[l.position]) {
				l.position++
			}
			l.emit(TokenWord, l.input[start:l.position], start)
		default:
			return nil, &SyntaxError{Position: start, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	l.emit(TokenEOF, "", l.position)
	return l.tokens, nil
}

// lexDelimited scans up to the matching closing delimiter. A backslash
// escapes the next byte, except inside backquotes.
func (l *Lexer) lexDelimited(typ TokenType, delim byte) error {
	start := l.position
	i := start + 1
	for i < len(l.input) {
		c := l.input[i]
		if c == '\\' && delim != '`' {
			i += 2
			continue
		}
		if c == delim {
			l.emit(typ, l.input[start:i+1], start)
			l.position = i + 1
			return nil
		}
		i++
	}
	return &SyntaxError{Position: start, Msg: fmt.Sprintf("unterminated %s", typ)}
}

func (l *Lexer) emit(typ TokenType, value string, pos int) {
	l.tokens = append(l.tokens, Token{Type: typ, Value: value, Position: pos})
}

func isSpace(c byte) bool {
	return unicode.IsSpace(rune(c))
}

func isWordChar(c byte) bool {
	return c == '_' || c == '.' || c == ':' || c == '-' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
