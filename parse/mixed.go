package parse

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/dzjyyds666/mixconf/parse/format"
	"github.com/dzjyyds666/mixconf/parse/section"
	"github.com/dzjyyds666/mixconf/pkg/logx"
)

var parsers = map[section.Format]format.Parser{
	section.TOML:       format.ParseTOML,
	section.YAML:       format.ParseYAML,
	section.Properties: format.ParseProperties,
}

// ParseMixed splits content into sections, parses each with its format's
// parser and merges the results in order, later sections winning. A section
// that fails contributes nothing and is reported as a warning.
func ParseMixed(content string, opts Options) (*Result, error) {
	sections, err := detectSections(content)
	if err != nil {
		logx.Error(opts.Logger, "section detection failed", "err", err)
		return nil, errors.Wrap(err, "section detection failed")
	}
	logx.Debug(opts.Logger, "detected sections", "count", len(sections))

	res := &Result{Data: map[string]any{}, Warnings: []string{}}
	for _, sec := range sections {
		out, err := parseSection(sec, opts)
		if err != nil {
			msg := fmt.Sprintf("Failed to parse section %d-%d (%s): %s", sec.StartLine, sec.EndLine, sec.Format, err)
			logx.Warn(opts.Logger, msg)
			res.Warnings = append(res.Warnings, msg)
			continue
		}
		mergeInto(res.Data, out.Data)
		res.Warnings = append(res.Warnings, out.Warnings...)
	}
	return res, nil
}

func detectSections(content string) (sections []section.Section, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("%v", r)
		}
	}()
	return section.Detect(content), nil
}

func parseSection(sec section.Section, opts Options) (res *format.Result, err error) {
	p, ok := parsers[sec.Format]
	if !ok {
		return nil, errors.Errorf("no parser for format %q", sec.Format)
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return p(sec.Text, format.Options{
		Variables: opts.Variables,
		Logger:    opts.Logger,
		FirstLine: sec.StartLine,
	})
}
