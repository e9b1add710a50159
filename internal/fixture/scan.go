package fixture

import (
	"fmt"

	"fortio.org/safecast"
)

// tokKind enumerates the tokens of type and signature expressions.
type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokLAngle  // <
	tokRAngle  // >
	tokLParen  // (
	tokRParen  // )
	tokLBrace  // {
	tokRBrace  // }
	tokComma   // ,
	tokDot     // .
	tokColon   // :
	tokEqEq    // ==
	tokArrow   // ->
	tokAt      // @
	tokBang    // !
	tokInvalid // anything else
)

func (k tokKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokLAngle:
		return "'<'"
	case tokRAngle:
		return "'>'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokComma:
		return "','"
	case tokDot:
		return "'.'"
	case tokColon:
		return "':'"
	case tokEqEq:
		return "'=='"
	case tokArrow:
		return "'->'"
	case tokAt:
		return "'@'"
	case tokBang:
		return "'!'"
	default:
		return "invalid character"
	}
}

type token struct {
	Kind tokKind
	Text string
	Pos  uint32
}

// cursor is a byte position inside one expression.
type cursor struct {
	src   string
	off   uint32
	limit uint32
}

func newCursor(src string) cursor {
	limit, err := safecast.Conv[uint32](len(src))
	if err != nil {
		panic(fmt.Errorf("expression length overflow: %w", err))
	}
	return cursor{src: src, limit: limit}
}

func (c *cursor) eof() bool { return c.off >= c.limit }

func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.off]
}

// peek2 returns the current and next byte; ok is false near the end.
func (c *cursor) peek2() (b0, b1 byte, ok bool) {
	if c.off+1 >= c.limit {
		return 0, 0, false
	}
	return c.src[c.off], c.src[c.off+1], true
}

func (c *cursor) bump() byte {
	if c.eof() {
		return 0
	}
	b := c.src[c.off]
	c.off++
	return b
}

// scanner splits an expression into tokens with one token of lookahead.
type scanner struct {
	cur  cursor
	look *token
}

func newScanner(src string) *scanner {
	return &scanner{cur: newCursor(src)}
}

func (s *scanner) peek() token {
	if s.look == nil {
		tok := s.scan()
		s.look = &tok
	}
	return *s.look
}

func (s *scanner) next() token {
	tok := s.peek()
	s.look = nil
	return tok
}

func (s *scanner) scan() token {
	c := &s.cur
	for !c.eof() && isSpace(c.peek()) {
		c.bump()
	}
	start := c.off
	if c.eof() {
		return token{Kind: tokEOF, Pos: start}
	}
	if b0, b1, ok := c.peek2(); ok {
		switch {
		case b0 == '=' && b1 == '=':
			c.bump()
			c.bump()
			return token{Kind: tokEqEq, Text: "==", Pos: start}
		case b0 == '-' && b1 == '>':
			c.bump()
			c.bump()
			return token{Kind: tokArrow, Text: "->", Pos: start}
		}
	}
	b := c.peek()
	if isIdentStart(b) {
		for !c.eof() && isIdentContinue(c.peek()) {
			c.bump()
		}
		return token{Kind: tokIdent, Text: c.src[start:c.off], Pos: start}
	}
	c.bump()
	kind := tokInvalid
	switch b {
	case '<':
		kind = tokLAngle
	case '>':
		kind = tokRAngle
	case '(':
		kind = tokLParen
	case ')':
		kind = tokRParen
	case '{':
		kind = tokLBrace
	case '}':
		kind = tokRBrace
	case ',':
		kind = tokComma
	case '.':
		kind = tokDot
	case ':':
		kind = tokColon
	case '@':
		kind = tokAt
	case '!':
		kind = tokBang
	}
	return token{Kind: kind, Text: c.src[start:c.off], Pos: start}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Identifiers are ASCII letters, digits and underscores plus any non-ASCII
// byte, so NFC-normalised Unicode names pass through intact.
func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isIdentContinue(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}
