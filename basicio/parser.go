package basicio

import (
	"fmt"

	"github.com/ironhold/revgraph/common"
)

// parser is a small hand-rolled state machine over the input bytes. It
// tracks line/column so errors can be reported precisely (spec §9:
// "error positions must carry line/column").
type parser struct {
	data       []byte
	pos        int
	line, col  int
}

type parserState int

const (
	stateBOL parserState = iota // beginning-of-line
	stateSymbol
	stateValue
)

func newParser(data []byte) *parser {
	return &parser{data: data, line: 1, col: 1}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.data)
}

func (p *parser) peek() byte {
	return p.data[p.pos]
}

func (p *parser) advance() byte {
	c := p.data[p.pos]
	p.pos++
	if c == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return c
}

func (p *parser) errAt(line, col int, expected string) error {
	got := "<eof>"
	if p.pos < len(p.data) {
		got = string(p.data[p.pos])
	}
	return common.NewSerializationError(line, col, expected, got)
}

// ParseStanzas parses a full basic_io document: a sequence of stanzas, each
// terminated by a blank line (or end of input).
func ParseStanzas(data []byte) ([]Stanza, error) {
	p := newParser(data)
	var stanzas []Stanza
	var current Stanza
	state := stateBOL

	flushStanza := func() {
		if len(current) > 0 {
			stanzas = append(stanzas, current)
			current = nil
		}
	}

	for !p.eof() {
		switch state {
		case stateBOL:
			if p.peek() == '\n' {
				p.advance()
				flushStanza()
				continue
			}
			if p.peek() == ' ' || p.peek() == '\t' {
				p.advance()
				continue
			}
			state = stateSymbol
		case stateSymbol:
			startLine, startCol := p.line, p.col
			sym, err := p.readSymbol()
			if err != nil {
				return nil, err
			}
			if sym == "" {
				return nil, p.errAt(startLine, startCol, "line symbol")
			}
			line := Line{Symbol: sym}
			values, err := p.readValues()
			if err != nil {
				return nil, err
			}
			line.Values = values
			current = append(current, line)
			state = stateBOL
		case stateValue:
			// unreachable: readValues consumes the whole value run itself.
			state = stateBOL
		}
	}
	flushStanza()
	return stanzas, nil
}

// readSymbol reads a bare symbol: a leading letter/underscore, then
// letters/digits/underscore.
func (p *parser) readSymbol() (string, error) {
	start := p.pos
	if p.eof() || !isSymbolStart(p.peek()) {
		return "", nil
	}
	p.advance()
	for !p.eof() && isSymbolRest(p.peek()) {
		p.advance()
	}
	return string(p.data[start:p.pos]), nil
}

// readValues reads the rest of a line: zero or more space-separated values,
// terminated by '\n'.
func (p *parser) readValues() ([]Value, error) {
	var values []Value
	for {
		for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
			p.advance()
		}
		if p.eof() {
			return nil, p.errAt(p.line, p.col, "end of line")
		}
		if p.peek() == '\n' {
			p.advance()
			return values, nil
		}
		v, err := p.readValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
}

func (p *parser) readValue() (Value, error) {
	line, col := p.line, p.col
	switch p.peek() {
	case '"':
		return p.readString()
	case '[':
		return p.readHex()
	default:
		sym, err := p.readSymbol()
		if err != nil {
			return Value{}, err
		}
		if sym == "" {
			return Value{}, p.errAt(line, col, "value (string, hex, or symbol)")
		}
		return Symbol(sym), nil
	}
}

func (p *parser) readString() (Value, error) {
	startLine, startCol := p.line, p.col
	p.advance() // opening quote
	var buf []byte
	for {
		if p.eof() {
			return Value{}, p.errAt(startLine, startCol, "closing '\"'")
		}
		c := p.advance()
		if c == '\\' {
			if p.eof() {
				return Value{}, p.errAt(startLine, startCol, "escaped character")
			}
			esc := p.advance()
			if esc != '"' && esc != '\\' {
				return Value{}, fmt.Errorf("basicio: invalid escape '\\%c' at %d:%d", esc, p.line, p.col)
			}
			buf = append(buf, esc)
			continue
		}
		if c == '"' {
			return String(string(buf)), nil
		}
		buf = append(buf, c)
	}
}

func (p *parser) readHex() (Value, error) {
	startLine, startCol := p.line, p.col
	p.advance() // '['
	start := p.pos
	for !p.eof() && p.peek() != ']' {
		c := p.peek()
		if !isHexDigit(c) {
			return Value{}, p.errAt(p.line, p.col, "hex digit")
		}
		p.advance()
	}
	if p.eof() {
		return Value{}, p.errAt(startLine, startCol, "closing ']'")
	}
	raw := p.data[start:p.pos]
	p.advance() // ']'
	if len(raw)%2 != 0 {
		return Value{}, fmt.Errorf("basicio: odd-length hex value at %d:%d", startLine, startCol)
	}
	decoded := make([]byte, len(raw)/2)
	for i := 0; i < len(decoded); i++ {
		hi, err := hexNibble(raw[2*i])
		if err != nil {
			return Value{}, err
		}
		lo, err := hexNibble(raw[2*i+1])
		if err != nil {
			return Value{}, err
		}
		decoded[i] = hi<<4 | lo
	}
	return Hex(decoded), nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("basicio: invalid hex digit %q", c)
	}
}

// Get returns the i-th value of a line and true, or the zero Value and
// false if the line doesn't have that many values.
func (l Line) Get(i int) (Value, bool) {
	if i < 0 || i >= len(l.Values) {
		return Value{}, false
	}
	return l.Values[i], true
}

// Str returns the i-th value's string content for KindString or KindSymbol
// values.
func (l Line) Str(i int) (string, bool) {
	v, ok := l.Get(i)
	if !ok || (v.Kind != KindString && v.Kind != KindSymbol) {
		return "", false
	}
	return v.Str, true
}

// HexBytes returns the i-th value's decoded bytes for a KindHex value.
func (l Line) HexBytes(i int) ([]byte, bool) {
	v, ok := l.Get(i)
	if !ok || v.Kind != KindHex {
		return nil, false
	}
	return v.Hex, true
}

// Find returns the first line in the stanza with the given symbol.
func (s Stanza) Find(symbol string) (Line, bool) {
	for _, l := range s {
		if l.Symbol == symbol {
			return l, true
		}
	}
	return Line{}, false
}

// FindAll returns every line in the stanza with the given symbol, in order.
func (s Stanza) FindAll(symbol string) []Line {
	var ret []Line
	for _, l := range s {
		if l.Symbol == symbol {
			ret = append(ret, l)
		}
	}
	return ret
}
