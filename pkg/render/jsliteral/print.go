package jsliteral

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Style controls how literals are printed.
type Style struct {
	Width          int
	Indent         int
	SingleQuote    bool
	TrailingComma  bool
	BracketSpacing bool
	Semi           bool
}

// DefaultStyle is width 40, two space indent, single quotes, trailing commas
// and no semicolons.
func DefaultStyle() Style {
	return Style{
		Width:          40,
		Indent:         2,
		SingleQuote:    true,
		TrailingComma:  true,
		BracketSpacing: true,
	}
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Format prints node as if it started at column. The column lets callers
// account for a statement prefix such as "module.exports = ". A trailing
// semicolon, when enabled, counts against the first line's width but is not
// part of the returned text.
func (s Style) Format(node Node, column int) string {
	s = s.normalized()
	suffix := 0
	if s.Semi {
		suffix = 1
	}
	return s.print(node, 0, column, suffix)
}

// Statement returns prefix + node, terminated by a semicolon when enabled and
// a newline.
func (s Style) Statement(prefix string, node Node) string {
	body := s.Format(node, utf8.RuneCountInString(prefix))
	if s.Semi {
		body += ";"
	}
	return prefix + body + "\n"
}

func (s Style) normalized() Style {
	if s.Width <= 0 {
		s.Width = 80
	}
	if s.Indent <= 0 {
		s.Indent = 2
	}
	return s
}

func (s Style) print(node Node, depth, column, suffix int) string {
	flat := s.flat(node)
	if !mustBreak(node) && column+utf8.RuneCountInString(flat)+suffix <= s.Width {
		return flat
	}

	switch v := node.(type) {
	case Object:
		if len(v) == 0 {
			return "{}"
		}
		inner := s.pad(depth + 1)
		var b strings.Builder
		b.WriteString("{\n")
		for i, prop := range v {
			key := s.key(prop.Key)
			b.WriteString(inner)
			b.WriteString(key)
			b.WriteString(": ")
			col := utf8.RuneCountInString(inner) + utf8.RuneCountInString(key) + 2
			b.WriteString(s.print(prop.Value, depth+1, col, s.separator(i, len(v))))
			s.writeSeparator(&b, i, len(v))
		}
		b.WriteString(s.pad(depth))
		b.WriteString("}")
		return b.String()
	case Array:
		if len(v) == 0 {
			return "[]"
		}
		inner := s.pad(depth + 1)
		var b strings.Builder
		b.WriteString("[\n")
		for i, item := range v {
			b.WriteString(inner)
			b.WriteString(s.print(item, depth+1, utf8.RuneCountInString(inner), s.separator(i, len(v))))
			s.writeSeparator(&b, i, len(v))
		}
		b.WriteString(s.pad(depth))
		b.WriteString("]")
		return b.String()
	default:
		return flat
	}
}

func (s Style) separator(i, n int) int {
	if i < n-1 || s.TrailingComma {
		return 1
	}
	return 0
}

func (s Style) writeSeparator(b *strings.Builder, i, n int) {
	if s.separator(i, n) == 1 {
		b.WriteString(",")
	}
	b.WriteString("\n")
}

func (s Style) flat(node Node) string {
	switch v := node.(type) {
	case Object:
		if len(v) == 0 {
			return "{}"
		}
		parts := make([]string, len(v))
		for i, prop := range v {
			parts[i] = s.key(prop.Key) + ": " + s.flat(prop.Value)
		}
		if s.BracketSpacing {
			return "{ " + strings.Join(parts, ", ") + " }"
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Array:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = s.flat(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case String:
		return s.quote(string(v))
	case Number:
		return string(v)
	case Bool:
		if v {
			return "true"
		}
		return "false"
	case Null, nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// mustBreak reports whether node cannot be printed on one line: an array of
// two or more objects (or arrays) that each have more than one entry always
// breaks, and so does every literal containing one.
func mustBreak(node Node) bool {
	switch v := node.(type) {
	case Object:
		for _, prop := range v {
			if mustBreak(prop.Value) {
				return true
			}
		}
	case Array:
		if conciseMatrix(v) {
			return true
		}
		for _, item := range v {
			if mustBreak(item) {
				return true
			}
		}
	}
	return false
}

func conciseMatrix(items Array) bool {
	if len(items) < 2 {
		return false
	}
	_, objects := items[0].(Object)
	for _, item := range items {
		switch v := item.(type) {
		case Object:
			if !objects || len(v) < 2 {
				return false
			}
		case Array:
			if objects || len(v) < 2 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (s Style) key(key string) string {
	if identifier.MatchString(key) {
		return key
	}
	return s.quote(key)
}

// quote picks the preferred quote unless the string contains more of it than
// of the alternative.
func (s Style) quote(value string) string {
	preferred, alternate := byte('"'), byte('\'')
	if s.SingleQuote {
		preferred, alternate = alternate, preferred
	}
	q := preferred
	if strings.Count(value, string(preferred)) > strings.Count(value, string(alternate)) {
		q = alternate
	}

	var b strings.Builder
	b.Grow(len(value) + 2)
	b.WriteByte(q)
	for _, r := range value {
		switch {
		case r == rune(q):
			b.WriteByte('\\')
			b.WriteByte(q)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\u2028':
			b.WriteString(`\u2028`)
		case r == '\u2029':
			b.WriteString(`\u2029`)
		case r < 0x20:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

func (s Style) pad(depth int) string {
	return strings.Repeat(" ", depth*s.Indent)
}
