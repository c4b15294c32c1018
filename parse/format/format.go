// Package format holds the per-format parsers used for each section of a
// mixed configuration document.
//
// Every parser returns a plain document (map[string]any) whose string leaves
// have been passed through variable resolution and type inference.
package format

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/dzjyyds666/mixconf/parse/scalar"
	"github.com/dzjyyds666/mixconf/parse/vars"
	"github.com/dzjyyds666/mixconf/pkg/logx"
)

// Options are shared by all format parsers.
type Options struct {
	// Variables is the lookup root for ${path}, $path and {{path}}.
	Variables map[string]any
	// Logger is optional.
	Logger logx.Logger
	// FirstLine is the line number of the text's first line in the enclosing
	// document. Zero means 1.
	FirstLine int
}

func (o Options) firstLine() int {
	if o.FirstLine < 1 {
		return 1
	}
	return o.FirstLine
}

// Result is a parsed document plus the non-fatal anomalies met on the way.
type Result struct {
	Data     map[string]any
	Warnings []string
}

// Parser parses one section of text.
type Parser func(text string, opts Options) (*Result, error)

// ResolveValue resolves references in raw. Text the resolver leaves untouched
// is typed with scalar.Infer; looked-up values keep their type and
// interpolated text stays a string. Undefined array elements become nil.
func ResolveValue(raw string, variables map[string]any) (any, error) {
	v, err := vars.ResolveFunc(raw, variables, scalar.Infer)
	if err != nil {
		return nil, err
	}
	if arr, ok := v.([]any); ok && scalar.IsWrapped(strings.TrimSpace(raw), '[', ']') {
		return nilUndefined(arr), nil
	}
	return v, nil
}

func nilUndefined(arr []any) []any {
	out := make([]any, len(arr))
	for i, e := range arr {
		if nested, ok := e.([]any); ok {
			e = nilUndefined(nested)
		}
		if scalar.IsUndefined(e) {
			e = nil
		}
		out[i] = e
	}
	return out
}

// postProcess rewrites every string leaf of a grammar-produced document with
// ResolveValue and normalises integer types. Keys that end up Undefined are
// dropped.
func postProcess(doc map[string]any, variables map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		nv, err := postProcessNode(v, variables)
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", k)
		}
		if scalar.IsUndefined(nv) {
			continue
		}
		out[k] = nv
	}
	return out, nil
}

func postProcessNode(v any, variables map[string]any) (any, error) {
	switch t := v.(type) {
	case string:
		return ResolveValue(t, variables)
	case map[string]any:
		return postProcess(t, variables)
	case map[any]any:
		return postProcess(stringKeys(t), variables)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			ne, err := postProcessNode(e, variables)
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", i)
			}
			if scalar.IsUndefined(ne) {
				ne = nil
			}
			out[i] = ne
		}
		return out, nil
	case int:
		return int64(t), nil
	case uint64:
		if t <= 1<<63-1 {
			return int64(t), nil
		}
		return float64(t), nil
	}
	return v, nil
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
