package format

import (
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dzjyyds666/mixconf/pkg/logx"
)

// ParseYAML parses YAML text. Unknown or loosely typed content is accepted;
// only a top-level document that is not a mapping is rejected.
func ParseYAML(text string, opts Options) (*Result, error) {
	logx.Debug(opts.Logger, "parsing yaml section", "first_line", opts.firstLine())

	var raw any
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		logx.Error(opts.Logger, "yaml section rejected", "err", err)
		return nil, errors.Wrap(err, "yaml")
	}

	var doc map[string]any
	switch t := raw.(type) {
	case nil:
		doc = map[string]any{}
	case map[string]any:
		doc = t
	case map[any]any:
		doc = stringKeys(t)
	default:
		err := errors.Errorf("yaml: document is a %T, not a mapping", raw)
		logx.Error(opts.Logger, "yaml section rejected", "err", err)
		return nil, err
	}

	data, err := postProcess(doc, opts.Variables)
	if err != nil {
		logx.Error(opts.Logger, "yaml value resolution failed", "err", err)
		return nil, err
	}
	return &Result{Data: data, Warnings: []string{}}, nil
}

func stringKeys(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out
}
