// Package basicio implements the canonical "basic_io" stanza text format:
// the single interchange format shared by roster, cset, revision and cert
// text (spec §4.7). A stanza is a contiguous block of `symbol value...`
// lines terminated by a blank line; values are quoted strings, bracketed hex
// blobs, or bare symbols.
package basicio

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// ValueKind tags how a Value was written, so Write can round-trip the exact
// original encoding.
type ValueKind int

const (
	KindString ValueKind = iota
	KindHex
	KindSymbol
)

// Value is one value token on a basic_io line. A line can carry more than
// one value (e.g. `attr "key" "value"`).
type Value struct {
	Kind ValueKind
	Str  string // KindString, KindSymbol
	Hex  []byte // KindHex
}

func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Symbol(s string) Value { return Value{Kind: KindSymbol, Str: s} }
func Hex(b []byte) Value    { return Value{Kind: KindHex, Hex: append([]byte(nil), b...)} }

// Line is one `symbol value...` line within a stanza.
type Line struct {
	Symbol string
	Values []Value
}

// Stanza is a contiguous, blank-line-terminated block of Lines.
type Stanza []Line

func NewLine(symbol string, values ...Value) Line {
	return Line{Symbol: symbol, Values: values}
}

// writeEscapedString writes a double-quoted string with \" and \\ escaping,
// the only two escapes the format defines.
func writeEscapedString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(c)
	}
	buf.WriteByte('"')
}

func (v Value) writeTo(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindString:
		writeEscapedString(buf, v.Str)
	case KindHex:
		buf.WriteByte('[')
		buf.WriteString(hex.EncodeToString(v.Hex))
		buf.WriteByte(']')
	case KindSymbol:
		if !isValidSymbol(v.Str) {
			return fmt.Errorf("basicio: %q is not a valid bare symbol", v.Str)
		}
		buf.WriteString(v.Str)
	default:
		return fmt.Errorf("basicio: unknown value kind %d", v.Kind)
	}
	return nil
}

func isValidSymbol(s string) bool {
	if s == "" {
		return false
	}
	if !isSymbolStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isSymbolRest(s[i]) {
			return false
		}
	}
	return true
}

func isSymbolStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isSymbolRest(c byte) bool {
	return isSymbolStart(c) || (c >= '0' && c <= '9')
}

func (l Line) writeTo(buf *bytes.Buffer) error {
	if !isValidSymbol(l.Symbol) {
		return fmt.Errorf("basicio: %q is not a valid line symbol", l.Symbol)
	}
	buf.WriteString(l.Symbol)
	for _, v := range l.Values {
		buf.WriteByte(' ')
		if err := v.writeTo(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('\n')
	return nil
}

// WriteStanzas renders a sequence of stanzas, each followed by a blank
// line, to canonical bytes. This is the single choke point byte-identical
// output must flow through: every caller (roster, cset, revision writers)
// builds Stanzas and hands them here.
func WriteStanzas(stanzas []Stanza) ([]byte, error) {
	var buf bytes.Buffer
	for _, st := range stanzas {
		for _, line := range st {
			if err := line.writeTo(&buf); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// String renders a single value the way it would appear in a line, for
// error messages and debugging.
func (v Value) String() string {
	var buf bytes.Buffer
	_ = v.writeTo(&buf)
	return buf.String()
}

func (l Line) String() string {
	var buf bytes.Buffer
	_ = l.writeTo(&buf)
	return strings.TrimSuffix(buf.String(), "\n")
}
