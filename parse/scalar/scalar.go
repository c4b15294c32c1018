// Package scalar turns raw configuration scalars into typed values.
//
// Infer recognises, in order: null and undefined, booleans, integers,
// decimals, exponent floats, bracketed arrays, braced objects and quoted
// strings. Anything else is returned as the trimmed string. Integers are
// int64 and floats float64; arrays are []any and objects map[string]any.
package scalar

import (
	"regexp"
	"strconv"
	"strings"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined marks "no value", as opposed to nil which is an explicit null.
var Undefined any = undefined{}

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

var (
	intPattern      = regexp.MustCompile(`^-?\d+$`)
	decimalPattern  = regexp.MustCompile(`^-?\d*\.\d+$`)
	exponentPattern = regexp.MustCompile(`^-?\d+\.\d+[eE][+-]?\d+$`)
)

// Infer converts raw into a typed value. It never fails.
func Infer(raw string) any {
	s := strings.TrimSpace(raw)
	switch s {
	case "null":
		return nil
	case "undefined":
		return Undefined
	case "true":
		return true
	case "false":
		return false
	}

	if intPattern.MatchString(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		// out of int64 range
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if decimalPattern.MatchString(s) || exponentPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if IsWrapped(s, '[', ']') {
		return inferArray(s[1 : len(s)-1])
	}
	if IsWrapped(s, '{', '}') {
		return inferObject(s[1 : len(s)-1])
	}
	if IsWrapped(s, '"', '"') || IsWrapped(s, '\'', '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

func inferArray(inner string) []any {
	parts := SplitTopLevel(inner, ',')
	out := make([]any, 0, len(parts))
	for _, part := range parts {
		v := Infer(part)
		if IsUndefined(v) {
			v = nil
		}
		out = append(out, v)
	}
	return out
}

func inferObject(inner string) map[string]any {
	out := make(map[string]any)
	for _, part := range SplitTopLevel(inner, ',') {
		idx := IndexTopLevel(part, ':')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(part[:idx])
		v := Infer(part[idx+1:])
		if IsUndefined(v) {
			continue
		}
		out[key] = v
	}
	return out
}

// IsWrapped reports whether s has at least two bytes and starts with open and
// ends with close.
func IsWrapped(s string, open, close byte) bool {
	return len(s) >= 2 && s[0] == open && s[len(s)-1] == close
}

// SplitTopLevel splits s on sep where sep is outside quotes and outside any
// [...] or {...} nesting. Parts are trimmed and empty parts dropped.
func SplitTopLevel(s string, sep byte) []string {
	var parts []string
	start := 0
	walkTopLevel(s, func(i int) bool {
		if s[i] == sep {
			if part := strings.TrimSpace(s[start:i]); part != "" {
				parts = append(parts, part)
			}
			start = i + 1
		}
		return true
	})
	if part := strings.TrimSpace(s[start:]); part != "" {
		parts = append(parts, part)
	}
	return parts
}

// IndexTopLevel returns the index of the first sep outside quotes and
// nesting, or -1.
func IndexTopLevel(s string, sep byte) int {
	found := -1
	walkTopLevel(s, func(i int) bool {
		if s[i] == sep {
			found = i
			return false
		}
		return true
	})
	return found
}

// walkTopLevel calls visit for every byte at depth zero outside a quoted
// string. A quote opens a string that only the same quote character closes.
func walkTopLevel(s string, visit func(i int) bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '[', '{':
			depth++
		case ']', '}':
			depth--
		default:
			if depth == 0 && !visit(i) {
				return
			}
		}
	}
}
