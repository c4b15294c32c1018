package format

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/dzjyyds666/mixconf/parse/scalar"
	"github.com/dzjyyds666/mixconf/pkg/logx"
)

type propEntry struct {
	key   string
	value string
	line  int
}

// ParseProperties parses key=value lines.
//
// Lines starting with whitespace continue the previous value, joined with a
// newline. Dotted keys build nested objects and a key ending in [] appends to
// the array at its base key. Lines without '=' produce a warning and are
// skipped.
func ParseProperties(text string, opts Options) (*Result, error) {
	logx.Debug(opts.Logger, "parsing properties section", "first_line", opts.firstLine())

	res := &Result{Data: map[string]any{}, Warnings: []string{}}
	var pending *propEntry

	flush := func() error {
		if pending == nil {
			return nil
		}
		e := pending
		pending = nil
		v, err := ResolveValue(e.value, opts.Variables)
		if err != nil {
			return errors.Wrapf(err, "line %d", e.line)
		}
		if scalar.IsUndefined(v) {
			logx.Debug(opts.Logger, "skipping undefined value", "key", e.key, "line", e.line)
			return nil
		}
		setPath(res.Data, e.key, v)
		return nil
	}

	for i, line := range splitLines(text) {
		lineNo := opts.firstLine() + i
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if pending != nil && (line[0] == ' ' || line[0] == '\t') {
			pending.value += "\n" + trimmed
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}

		idx := strings.IndexByte(trimmed, '=')
		if idx < 0 {
			msg := fmt.Sprintf("Invalid line %d: %s", lineNo, trimmed)
			logx.Warn(opts.Logger, msg)
			res.Warnings = append(res.Warnings, msg)
			continue
		}
		pending = &propEntry{key: strings.TrimSpace(trimmed[:idx]), value: strings.TrimSpace(trimmed[idx+1:]), line: lineNo}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return res, nil
}

// setPath stores v at a dotted key, creating intermediate objects and
// replacing any non-object found on the way. A trailing [] appends. A key
// with an empty segment, such as a..b or an empty key, is stored as written.
func setPath(doc map[string]any, key string, v any) {
	appendMode := strings.HasSuffix(key, "[]")
	base := strings.TrimSuffix(key, "[]")
	parts := strings.Split(base, ".")
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			parts = []string{base}
			break
		}
	}
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		part = strings.TrimSpace(part)
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	last := strings.TrimSpace(parts[len(parts)-1])
	if !appendMode {
		cur[last] = v
		return
	}
	arr, _ := cur[last].([]any)
	cur[last] = append(arr, v)
}
