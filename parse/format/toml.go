package format

import (
	"github.com/pkg/errors"

	"github.com/dzjyyds666/mixconf/parse/toml"
	"github.com/dzjyyds666/mixconf/pkg/logx"
)

// ParseTOML parses TOML-like text. The grammar runs in lenient mode, so bare
// values such as name = foo survive as strings and reach type inference.
func ParseTOML(text string, opts Options) (*Result, error) {
	logx.Debug(opts.Logger, "parsing toml section", "first_line", opts.firstLine())

	root, err := toml.ParseString(text, toml.Lenient())
	if err != nil {
		var serr *toml.SyntaxError
		if errors.As(err, &serr) {
			err = &toml.SyntaxError{Line: serr.Line + opts.firstLine() - 1, Msg: serr.Msg}
		}
		logx.Error(opts.Logger, "toml section rejected", "err", err)
		return nil, err
	}

	data, err := postProcess(toml.ToMap(root), opts.Variables)
	if err != nil {
		logx.Error(opts.Logger, "toml value resolution failed", "err", err)
		return nil, err
	}
	return &Result{Data: data, Warnings: []string{}}, nil
}
