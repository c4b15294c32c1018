// Package toml implements a line-oriented TOML grammar with an explicit AST.
//
// Scope:
// - TOML v1.0.0 core features (tables, arrays of tables, inline tables,
//   multi-line strings and arrays, dotted and quoted keys)
// - Safe dotted-key handling and table extension semantics
// - A lenient mode for configuration text that is only TOML-like: bare
//   scalars are kept as raw strings and duplicate keys overwrite
//
// Non-goals:
// - Comment preservation
// - Formatting round-trip
package toml

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// =========================
// AST Definitions
// =========================

type ValueKind string

var tomlValueKinds = struct {
	ValueString        ValueKind
	ValueInt           ValueKind
	ValueFloat         ValueKind
	ValueBool          ValueKind
	ValueDatetime      ValueKind
	ValueLocalDate     ValueKind
	ValueLocalTime     ValueKind
	ValueLocalDatetime ValueKind
	ValueTable         ValueKind
	ValueArray         ValueKind
}{
	ValueString:        "string",
	ValueInt:           "int",
	ValueFloat:         "float",
	ValueBool:          "bool",
	ValueDatetime:      "datetime",
	ValueLocalDate:     "local_date",
	ValueLocalTime:     "local_time",
	ValueLocalDatetime: "local_datetime",
	ValueTable:         "table",
	ValueArray:         "array",
}

type Node interface {
	Kind() ValueKind
	Value() any
}

// -------- Table --------

type Table struct {
	Items map[string]Node
}

func NewTable() *Table {
	return &Table{Items: make(map[string]Node)}
}

func (*Table) Kind() ValueKind { return tomlValueKinds.ValueTable }

func (*Table) Value() any { return nil }

// -------- Array --------

type Array struct {
	Elems []Node
}

func (v *Array) Kind() ValueKind { return tomlValueKinds.ValueArray }

func (v *Array) Value() any { return v.Elems }

// -------- Value --------

type Value struct {
	Type ValueKind
	V    any
}

func (v *Value) Kind() ValueKind { return v.Type }

func (v *Value) Value() any { return v.V }

// SyntaxError reports a grammar violation at a 1-based line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("toml:%d: %s", e.Line, e.Msg)
}

// =========================
// Public API
// =========================

// Option tunes the parser.
type Option func(*parser)

// Lenient makes unparseable scalars raw strings and lets duplicate keys
// overwrite earlier ones.
func Lenient() Option {
	return func(p *parser) { p.lenient = true }
}

// Parse parses TOML input from r and returns a root Table.
func Parse(r io.Reader, opts ...Option) (*Table, error) {
	p := &parser{
		scanner: bufio.NewScanner(r),
		root:    NewTable(),
	}
	p.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	p.cur = p.root
	for _, opt := range opts {
		opt(p)
	}

	for p.scanner.Scan() {
		line := strings.TrimSpace(p.scanner.Text())
		p.lineNo++

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "["):
			if err := p.parseTableHeader(line); err != nil {
				return nil, err
			}
		default:
			idx := findUnquotedEqual(line)
			if idx < 0 {
				return nil, p.errf("invalid syntax")
			}
			if err := p.parseKeyValue(line, idx); err != nil {
				return nil, err
			}
		}
	}

	if err := p.scanner.Err(); err != nil {
		return nil, err
	}

	return p.root, nil
}

// ParseString is Parse over an in-memory document.
func ParseString(s string, opts ...Option) (*Table, error) {
	return Parse(strings.NewReader(s), opts...)
}

// =========================
// Parser Implementation
// =========================

type parser struct {
	scanner *bufio.Scanner
	root    *Table
	cur     *Table
	lineNo  int
	lenient bool
}

func (p *parser) parseTableHeader(line string) error {
	s := strings.TrimSpace(stripComments(line))
	isArray := strings.HasPrefix(s, "[[")
	if isArray && !strings.HasSuffix(s, "]]") {
		return p.errf("invalid array-of-table header")
	}
	if !isArray && !strings.HasSuffix(s, "]") {
		return p.errf("invalid table header")
	}
	name := strings.TrimSpace(s[1 : len(s)-1])
	if isArray {
		name = strings.TrimSpace(s[2 : len(s)-2])
	}
	parts, err := parseKeyParts(name)
	if err != nil {
		return p.errf(err.Error())
	}
	if len(parts) == 0 {
		return p.errf("empty table name")
	}

	if !isArray {
		t, err := p.walkTables(p.root, parts)
		if err != nil {
			return err
		}
		p.cur = t
		return nil
	}

	parent, err := p.walkTables(p.root, parts[:len(parts)-1])
	if err != nil {
		return err
	}
	last := parts[len(parts)-1]
	existing, ok := parent.Items[last]
	var arr *Array
	if !ok {
		arr = &Array{Elems: make([]Node, 0)}
		parent.Items[last] = arr
	} else {
		if existing.Kind() != tomlValueKinds.ValueArray {
			return p.errf(fmt.Sprintf("key %q already defined and is not an array", last))
		}
		arr = existing.(*Array)
	}
	newTbl := NewTable()
	arr.Elems = append(arr.Elems, newTbl)
	p.cur = newTbl
	return nil
}

// walkTables descends from t through parts, creating missing tables. An array
// of tables is entered through its last element.
func (p *parser) walkTables(t *Table, parts []string) (*Table, error) {
	for _, part := range parts {
		n, ok := t.Items[part]
		if !ok {
			next := NewTable()
			t.Items[part] = next
			t = next
			continue
		}
		switch v := n.(type) {
		case *Table:
			t = v
		case *Array:
			last, ok := lastTable(v)
			if !ok {
				return nil, p.errf(fmt.Sprintf("key %q already defined and is not a table", part))
			}
			t = last
		default:
			return nil, p.errf(fmt.Sprintf("key %q already defined and is not a table", part))
		}
	}
	return t, nil
}

func lastTable(a *Array) (*Table, bool) {
	if len(a.Elems) == 0 {
		return nil, false
	}
	t, ok := a.Elems[len(a.Elems)-1].(*Table)
	return t, ok
}

func (p *parser) parseKeyValue(line string, idx int) error {
	key := strings.TrimSpace(line[:idx])
	val := strings.TrimSpace(line[idx+1:])

	parts, err := parseKeyParts(key)
	if err != nil {
		return p.errf(err.Error())
	}
	if len(parts) == 0 {
		return p.errf("empty key")
	}

	t, err := p.walkTables(p.cur, parts[:len(parts)-1])
	if err != nil {
		return err
	}

	last := parts[len(parts)-1]
	if _, exists := t.Items[last]; exists && !p.lenient {
		return p.errf(fmt.Sprintf("duplicate key %q", last))
	}

	fullVal, err := p.consumeValue(val)
	if err != nil {
		return p.errf(err.Error())
	}
	v, err := p.parseValue(fullVal)
	if err != nil {
		return p.errf(err.Error())
	}

	t.Items[last] = v
	return nil
}

func (p *parser) errf(msg string) error {
	return &SyntaxError{Line: p.lineNo, Msg: msg}
}

// consumeValue pulls continuation lines from the scanner until every
// multi-line string and bracket opened by initial is closed.
func (p *parser) consumeValue(initial string) (string, error) {
	if strings.TrimSpace(stripComments(initial)) == "" {
		return "", errors.New("empty value")
	}

	var q quoteState
	depth := 0
	scan := func(line string) {
		for i := 0; i < len(line); {
			n, outside := q.step(line, i)
			if outside {
				switch line[i] {
				case '#':
					return
				case '[', '{':
					depth++
				case ']', '}':
					depth--
				}
			}
			i += n
		}
	}

	scan(initial)
	q.endLine()
	if !q.open() && depth <= 0 {
		return initial, nil
	}

	var b strings.Builder
	b.WriteString(initial)
	for q.open() || depth > 0 {
		if !p.scanner.Scan() {
			if q.open() {
				return "", errors.New("unterminated multiline string")
			}
			return "", errors.New("unterminated compound value")
		}
		line := p.scanner.Text()
		p.lineNo++
		b.WriteString("\n")
		b.WriteString(line)
		scan(line)
		q.endLine()
	}
	return b.String(), nil
}

// =========================
// Value Parsing
// =========================

func (p *parser) parseValue(s string) (Node, error) {
	s = strings.TrimSpace(stripComments(s))
	if s == "" {
		return nil, errors.New("empty value")
	}
	v, err := p.parseTypedValue(s)
	if err != nil && p.lenient {
		return &Value{Type: tomlValueKinds.ValueString, V: s}, nil
	}
	return v, err
}

func (p *parser) parseTypedValue(s string) (Node, error) {
	switch {
	case strings.HasPrefix(s, `"""`):
		content, ok := extractTripleQuoted(s, `"""`)
		if !ok {
			return nil, errors.New("unterminated multiline string")
		}
		decoded, err := decodeBasicString(content, true)
		if err != nil {
			return nil, err
		}
		return &Value{Type: tomlValueKinds.ValueString, V: decoded}, nil
	case strings.HasPrefix(s, `'''`):
		content, ok := extractTripleQuoted(s, `'''`)
		if !ok {
			return nil, errors.New("unterminated multiline literal string")
		}
		return &Value{Type: tomlValueKinds.ValueString, V: content}, nil
	case strings.HasPrefix(s, `"`):
		content, ok := extractSingleQuoted(s, '"')
		if !ok {
			return nil, errors.New("unterminated string")
		}
		decoded, err := decodeBasicString(content, false)
		if err != nil {
			return nil, err
		}
		return &Value{Type: tomlValueKinds.ValueString, V: decoded}, nil
	case strings.HasPrefix(s, `'`):
		content, ok := extractSingleQuoted(s, '\'')
		if !ok {
			return nil, errors.New("unterminated literal string")
		}
		return &Value{Type: tomlValueKinds.ValueString, V: content}, nil
	case strings.HasPrefix(s, "["):
		return p.parseArray(s)
	case strings.HasPrefix(s, "{"):
		return p.parseInlineTable(s)
	case s == "true" || s == "false":
		return &Value{Type: tomlValueKinds.ValueBool, V: s == "true"}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &Value{Type: tomlValueKinds.ValueDatetime, V: t}, nil
	}
	if t, ok := parseLocalDateTimeVariants(s); ok {
		return t, nil
	}
	if i, err := parseIntToken(s); err == nil {
		return &Value{Type: tomlValueKinds.ValueInt, V: i}, nil
	}
	if f, err := parseFloatToken(s); err == nil {
		return &Value{Type: tomlValueKinds.ValueFloat, V: f}, nil
	}
	return nil, errors.New("unsupported value")
}

func (p *parser) parseArray(s string) (*Array, error) {
	if !strings.HasSuffix(s, "]") {
		return nil, errors.New("invalid array")
	}
	parts := splitTopLevel(s[1:len(s)-1], ',')
	arr := &Array{Elems: make([]Node, 0, len(parts))}
	for _, part := range parts {
		if part == "" {
			continue
		}
		v, err := p.parseValue(part)
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, v)
	}
	return arr, nil
}

func (p *parser) parseInlineTable(s string) (*Table, error) {
	if !strings.HasSuffix(s, "}") {
		return nil, errors.New("invalid inline table")
	}
	t := NewTable()
	for _, pair := range splitTopLevel(s[1:len(s)-1], ',') {
		if pair == "" {
			continue
		}
		idx := findUnquotedEqual(pair)
		if idx < 0 {
			return nil, errors.New("invalid inline table kv")
		}
		parts, err := parseKeyParts(strings.TrimSpace(pair[:idx]))
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			return nil, errors.New("empty inline table key")
		}
		cur := t
		for _, part := range parts[:len(parts)-1] {
			n, ok := cur.Items[part]
			if !ok {
				next := NewTable()
				cur.Items[part] = next
				cur = next
				continue
			}
			next, ok := n.(*Table)
			if !ok {
				return nil, errors.New("inline table path conflict")
			}
			cur = next
		}
		last := parts[len(parts)-1]
		if _, exists := cur.Items[last]; exists && !p.lenient {
			return nil, errors.New("duplicate inline table key")
		}
		v, err := p.parseValue(pair[idx+1:])
		if err != nil {
			return nil, err
		}
		cur.Items[last] = v
	}
	return t, nil
}

// =========================
// Lexical Utilities
// =========================

// quoteState tracks whether a byte walk is inside a basic ("...", """...""")
// or literal ('...', '''...''') string.
type quoteState struct {
	basic   bool
	literal bool
	multi   bool
}

func (q *quoteState) open() bool { return q.basic || q.literal }

// endLine drops single-line string state; only multi-line strings span lines.
func (q *quoteState) endLine() {
	if !q.multi {
		q.basic, q.literal = false, false
	}
}

// step consumes the token at s[i] and reports its width and whether it was
// outside any string.
func (q *quoteState) step(s string, i int) (int, bool) {
	rest := s[i:]
	switch {
	case q.basic:
		if s[i] == '\\' {
			return min(2, len(rest)), false
		}
		if q.multi && strings.HasPrefix(rest, `"""`) {
			q.basic, q.multi = false, false
			return 3, false
		}
		if !q.multi && s[i] == '"' {
			q.basic = false
		}
		return 1, false
	case q.literal:
		if q.multi && strings.HasPrefix(rest, `'''`) {
			q.literal, q.multi = false, false
			return 3, false
		}
		if !q.multi && s[i] == '\'' {
			q.literal = false
		}
		return 1, false
	}
	switch {
	case strings.HasPrefix(rest, `"""`):
		q.basic, q.multi = true, true
		return 3, false
	case strings.HasPrefix(rest, `'''`):
		q.literal, q.multi = true, true
		return 3, false
	case s[i] == '"':
		q.basic = true
		return 1, false
	case s[i] == '\'':
		q.literal = true
		return 1, false
	}
	return 1, true
}

// stripComments removes every '#' comment outside strings, line by line.
func stripComments(s string) string {
	var b strings.Builder
	var q quoteState
	skipping := false
	for i := 0; i < len(s); {
		if skipping {
			if s[i] != '\n' {
				i++
				continue
			}
			skipping = false
		}
		if s[i] == '\n' {
			q.endLine()
		}
		n, outside := q.step(s, i)
		if outside && s[i] == '#' {
			skipping = true
			i++
			continue
		}
		b.WriteString(s[i : i+n])
		i += n
	}
	return b.String()
}

func findUnquotedEqual(s string) int {
	var q quoteState
	for i := 0; i < len(s); {
		n, outside := q.step(s, i)
		if outside && s[i] == '=' {
			return i
		}
		i += n
	}
	return -1
}

// splitTopLevel splits s on sep outside strings, brackets and braces. Parts
// are trimmed.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	var q quoteState
	depth, start := 0, 0
	for i := 0; i < len(s); {
		n, outside := q.step(s, i)
		if outside {
			switch s[i] {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			case sep:
				if depth == 0 {
					parts = append(parts, strings.TrimSpace(s[start:i]))
					start = i + 1
				}
			}
		}
		i += n
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

func parseKeyParts(s string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	inQuote := byte(0)
	escape := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inQuote != 0 {
			switch {
			case escape:
				cur.WriteByte(ch)
				escape = false
			case inQuote == '"' && ch == '\\':
				escape = true
			case ch == inQuote:
				inQuote = 0
			default:
				cur.WriteByte(ch)
			}
			continue
		}
		switch ch {
		case '"', '\'':
			if strings.TrimSpace(cur.String()) != "" {
				return nil, errors.New("invalid quoted key position")
			}
			inQuote = ch
			cur.Reset()
		case '.':
			if part := strings.TrimSpace(cur.String()); part != "" {
				parts = append(parts, part)
			}
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	if inQuote != 0 {
		return nil, errors.New("unterminated quoted key")
	}
	if last := strings.TrimSpace(cur.String()); last != "" {
		parts = append(parts, last)
	}
	return parts, nil
}

func extractTripleQuoted(s string, delim string) (string, bool) {
	if len(s) < 6 || !strings.HasPrefix(s, delim) {
		return "", false
	}
	idx := strings.Index(s[3:], delim)
	if idx < 0 || strings.TrimSpace(s[3+idx+3:]) != "" {
		return "", false
	}
	return strings.TrimPrefix(s[3:3+idx], "\n"), true
}

func extractSingleQuoted(s string, quote byte) (string, bool) {
	if len(s) < 2 || s[0] != quote || s[len(s)-1] != quote {
		return "", false
	}
	return s[1 : len(s)-1], true
}

func decodeBasicString(s string, multiline bool) (string, error) {
	if multiline {
		// line-ending backslash trims the newline and following indentation
		var b strings.Builder
		for i := 0; i < len(s); i++ {
			if s[i] == '\\' && i+1 < len(s) && s[i+1] == '\n' {
				i++
				for i+1 < len(s) && (s[i+1] == ' ' || s[i+1] == '\t' || s[i+1] == '\n') {
					i++
				}
				continue
			}
			b.WriteByte(s[i])
		}
		s = b.String()
	}
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' {
			out.WriteByte(ch)
			continue
		}
		if i+1 >= len(s) {
			return "", errors.New("invalid escape")
		}
		i++
		switch s[i] {
		case 'b':
			out.WriteByte('\b')
		case 't':
			out.WriteByte('\t')
		case 'n':
			out.WriteByte('\n')
		case 'f':
			out.WriteByte('\f')
		case 'r':
			out.WriteByte('\r')
		case '"':
			out.WriteByte('"')
		case '\\':
			out.WriteByte('\\')
		case 'u', 'U':
			width := 4
			if s[i] == 'U' {
				width = 8
			}
			if i+width >= len(s) {
				return "", errors.New("invalid unicode escape")
			}
			v, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
			if err != nil {
				return "", err
			}
			out.WriteRune(rune(v))
			i += width
		default:
			return "", errors.New("unsupported escape")
		}
	}
	return out.String(), nil
}

func parseLocalDateTimeVariants(s string) (Node, bool) {
	layouts := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return &Value{Type: tomlValueKinds.ValueLocalDatetime, V: t}, true
		}
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return &Value{Type: tomlValueKinds.ValueLocalDate, V: d}, true
	}
	for _, l := range []string{"15:04:05", "15:04:05.999999999"} {
		if t, err := time.Parse(l, s); err == nil {
			return &Value{Type: tomlValueKinds.ValueLocalTime, V: t}, true
		}
	}
	return nil, false
}

var intBases = []struct {
	prefix string
	base   int
}{
	{"0x", 16},
	{"0o", 8},
	{"0b", 2},
}

func parseIntToken(s string) (int64, error) {
	s = strings.ReplaceAll(s, "_", "")
	sign := int64(1)
	digits := s
	if strings.HasPrefix(digits, "-") {
		sign = -1
		digits = digits[1:]
	} else {
		digits = strings.TrimPrefix(digits, "+")
	}
	for _, b := range intBases {
		if strings.HasPrefix(digits, b.prefix) {
			v, err := strconv.ParseUint(digits[2:], b.base, 64)
			if err != nil {
				return 0, err
			}
			return int64(v) * sign, nil
		}
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseFloatToken(s string) (float64, error) {
	switch {
	case s == "inf" || s == "+inf":
		return math.Inf(+1), nil
	case s == "-inf":
		return math.Inf(-1), nil
	case strings.EqualFold(strings.TrimLeft(s, "+-"), "nan"):
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
}

// =========================
// Conversion
// =========================

// ToMap converts a parsed root into plain Go maps, slices and scalars.
func ToMap(root *Table) map[string]any {
	if root == nil {
		return map[string]any{}
	}
	return toUntyped(root).(map[string]any)
}

func toUntyped(n Node) any {
	switch v := n.(type) {
	case *Value:
		return v.V
	case *Array:
		out := make([]any, len(v.Elems))
		for i := range v.Elems {
			out[i] = toUntyped(v.Elems[i])
		}
		return out
	case *Table:
		m := make(map[string]any, len(v.Items))
		for k, child := range v.Items {
			m[k] = toUntyped(child)
		}
		return m
	default:
		return nil
	}
}
