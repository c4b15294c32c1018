// Package vars resolves variable references embedded in configuration values.
//
// Three reference syntaxes are recognised: ${path}, $path and {{path}}. A
// value that is exactly one reference resolves to the referenced value with
// its type intact. Otherwise every reference inside the value is replaced by
// its string form. Paths are dotted property accesses with optional [n]
// indices; nothing beyond property access is evaluated.
package vars

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/dzjyyds666/mixconf/parse/scalar"
)

// UnresolvedError is returned when a referenced path is not present.
type UnresolvedError struct {
	Path string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved variable %q", e.Path)
}

// IsUnresolved reports whether err, or its cause, is an UnresolvedError.
func IsUnresolved(err error) bool {
	_, ok := errors.Cause(err).(*UnresolvedError)
	return ok
}

const pathExpr = `[A-Za-z_]\w*(?:\.\w+|\[\d+\])*`

var (
	// tried in this order; each must cover the whole trimmed value
	wholePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\$\{\s*([^{}]+?)\s*\}$`),
		regexp.MustCompile(`^\$(` + pathExpr + `)$`),
		regexp.MustCompile(`^\{\{\s*([^{}]+?)\s*\}\}$`),
	}
	anyReference = regexp.MustCompile(`\$\{\s*([^{}]+?)\s*\}|\$(` + pathExpr + `)|\{\{\s*([^{}]+?)\s*\}\}`)
)

// Resolve resolves raw against variables. Array literals are resolved element
// by element. A value without references is returned unchanged.
func Resolve(raw string, variables map[string]any) (any, error) {
	return ResolveFunc(raw, variables, nil)
}

// ResolveFunc is Resolve with literal applied to each value, whole or array
// element, that holds no reference. Looked-up and interpolated values never
// pass through literal. A nil literal keeps the string.
func ResolveFunc(raw string, variables map[string]any, literal func(string) any) (any, error) {
	s := strings.TrimSpace(raw)
	if scalar.IsWrapped(s, '[', ']') {
		parts := scalar.SplitTopLevel(s[1:len(s)-1], ',')
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			v, err := ResolveFunc(part, variables, literal)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	for _, re := range wholePatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return Lookup(variables, m[1])
		}
	}

	if !HasReference(raw) {
		if literal != nil {
			return literal(raw), nil
		}
		return raw, nil
	}
	return Interpolate(raw, variables)
}

// HasReference reports whether s contains any reference syntax.
func HasReference(s string) bool {
	return anyReference.MatchString(s)
}

// Interpolate replaces every reference in s with the string form of its
// value. The first unresolved reference aborts with an error.
func Interpolate(s string, variables map[string]any) (string, error) {
	var firstErr error
	out := anyReference.ReplaceAllStringFunc(s, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub := anyReference.FindStringSubmatch(m)
		path := sub[1]
		for _, alt := range sub[2:] {
			if path == "" {
				path = alt
			}
		}
		v, err := Lookup(variables, path)
		if err != nil {
			firstErr = err
			return m
		}
		return Stringify(v)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Lookup walks path through variables. Segments are separated by '.', and
// [n] or ["key"] index the current value.
func Lookup(variables map[string]any, path string) (any, error) {
	segments, ok := splitPath(strings.TrimSpace(path))
	if !ok {
		return nil, &UnresolvedError{Path: path}
	}
	var cur any = variables
	for _, seg := range segments {
		next, found := child(cur, seg)
		if !found || scalar.IsUndefined(next) {
			return nil, &UnresolvedError{Path: path}
		}
		cur = next
	}
	return cur, nil
}

func splitPath(path string) ([]string, bool) {
	if path == "" {
		return nil, false
	}
	var segments []string
	var cur strings.Builder
	flush := func() bool {
		if cur.Len() == 0 {
			return false
		}
		segments = append(segments, strings.TrimSpace(cur.String()))
		cur.Reset()
		return true
	}
	for i := 0; i < len(path); i++ {
		switch ch := path[i]; ch {
		case '.':
			if !flush() {
				return nil, false
			}
		case '[':
			if cur.Len() > 0 {
				flush()
			}
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, false
			}
			key := strings.TrimSpace(path[i+1 : i+end])
			if len(key) >= 2 && (key[0] == '"' || key[0] == '\'') && key[len(key)-1] == key[0] {
				key = key[1 : len(key)-1]
			}
			if key == "" {
				return nil, false
			}
			segments = append(segments, key)
			i += end
			if i+1 < len(path) && path[i+1] == '.' {
				i++
			}
		default:
			cur.WriteByte(ch)
		}
	}
	if cur.Len() > 0 {
		flush()
	}
	return segments, len(segments) > 0
}

func child(cur any, seg string) (any, bool) {
	switch c := cur.(type) {
	case map[string]any:
		v, ok := c[seg]
		return v, ok
	case []any:
		i, ok := index(seg, len(c))
		if !ok {
			return nil, false
		}
		return c[i], true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(cur)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		i, ok := index(seg, rv.Len())
		if !ok {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	case reflect.Struct:
		f, ok := rv.Type().FieldByName(seg)
		if !ok || !f.IsExported() {
			return nil, false
		}
		return rv.FieldByIndex(f.Index).Interface(), true
	}
	return nil, false
}

func index(seg string, n int) (int, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// Stringify renders v the way it is substituted into a larger string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
