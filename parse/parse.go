// Package parse reads configuration text that may interleave TOML-like,
// YAML-like and properties-like regions and returns one merged document.
//
// String values are resolved against caller-supplied variables (${path},
// $path and {{path}}) and given a type (null, bool, int64, float64, array,
// object or string). Problems confined to one region are returned as
// warnings; the rest of the document is still parsed.
//
// Nested array and object literals and nested documents are handled
// recursively, so nesting depth is bounded by the goroutine stack.
package parse

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/dzjyyds666/mixconf/pkg"
	"github.com/dzjyyds666/mixconf/pkg/logx"
)

// Options configure a parse call. The zero value is ready to use.
type Options struct {
	// Variables is the lookup root for references. Any reference to a path
	// it lacks is an error.
	Variables map[string]any
	// Lenient is accepted for compatibility; parsing is always lenient.
	Lenient bool
	// Logger receives diagnostics when set.
	Logger logx.Logger
}

// Result is a merged document and the warnings collected in parse order.
type Result struct {
	Data     map[string]any `json:"data" yaml:"data"`
	Warnings []string       `json:"warnings" yaml:"warnings"`
}

// Parse parses content. Any failure is returned as a *ParseError.
func Parse(content string, opts Options) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &ParseError{Message: fmt.Sprint(r), Format: FormatAuto}
			logx.Error(opts.Logger, "parse panicked", "err", err)
		}
	}()

	res, err = ParseMixed(content, opts)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, err
		}
		logx.Error(opts.Logger, "parse failed", "err", err)
		return nil, &ParseError{Message: err.Error(), Format: FormatAuto, Err: err}
	}
	return res, nil
}

// ParseFile reads path and parses it. The read is abandoned when ctx is done.
func ParseFile(ctx context.Context, path string, opts Options) (*Result, error) {
	text, err := pkg.ReadTextContext(ctx, path)
	if err != nil {
		logx.Error(opts.Logger, "read failed", "path", path, "err", err)
		return nil, &FileReadError{Path: path, Err: err}
	}
	return Parse(text, opts)
}

// ParseFileSync reads path, blocking until the read completes, and parses it.
func ParseFileSync(path string, opts Options) (*Result, error) {
	text, err := pkg.ReadText(path)
	if err != nil {
		logx.Error(opts.Logger, "read failed", "path", path, "err", err)
		return nil, &FileReadError{Path: path, Err: err}
	}
	return Parse(text, opts)
}
