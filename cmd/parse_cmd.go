package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/dzjyyds666/mixconf/parse"
	"github.com/dzjyyds666/mixconf/parse/scalar"
	"github.com/dzjyyds666/mixconf/parse/vars"
	"github.com/dzjyyds666/mixconf/pkg"
	"github.com/dzjyyds666/mixconf/pkg/logx"
)

type ParseParams struct {
	Find    string   `json:"find"`     // 查找的key
	Inputs  []string `json:"inputs"`   // 输入文件路径，按顺序合并
	Output  string   `json:"output"`   // 输出文件地址
	Vars    []string `json:"vars"`     // key=value 形式的变量
	EnvFile string   `json:"env_file"` // .env 文件，读入 env.*
	WithEnv bool     `json:"with_env"` // 把进程环境变量读入 env.*
	Format  string   `json:"format"`   // 输出格式 json | yaml
}

func newParseCmd() *cobra.Command {
	params := &ParseParams{}
	parseCmd := &cobra.Command{
		Use:   "parse",
		Short: "parse mixed configuration files into one document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return parseRun(cmd, params)
		},
	}
	parseCmd.Flags().StringVarP(&params.Find, "find", "f", "", "dotted path to print instead of the whole document")
	parseCmd.Flags().StringSliceVarP(&params.Inputs, "input", "i", nil, "input file path (repeatable, later files win)")
	parseCmd.Flags().StringVarP(&params.Output, "output", "o", "", "output path (default stdout)")
	parseCmd.Flags().StringArrayVar(&params.Vars, "var", nil, "variable as key=value (repeatable, dotted keys nest)")
	parseCmd.Flags().StringVar(&params.EnvFile, "env-file", "", "dotenv file exposed as env.*")
	parseCmd.Flags().BoolVar(&params.WithEnv, "with-env", false, "expose the process environment as env.*")
	parseCmd.Flags().StringVar(&params.Format, "format", "json", "output format (json, yaml)")
	return parseCmd
}

func parseRun(cmd *cobra.Command, params *ParseParams) error {
	if len(params.Inputs) == 0 {
		return fmt.Errorf("no input file path")
	}
	for _, in := range params.Inputs {
		exist, err := pkg.CheckFileExist(in)
		if err != nil {
			return fmt.Errorf("check file exist error: %w", err)
		}
		if !exist {
			return fmt.Errorf("input file %s not exist", in)
		}
	}

	variables, err := buildVariables(params)
	if err != nil {
		return err
	}
	opts := parse.Options{Variables: variables, Logger: logx.NewZerolog(log.Logger)}

	results := make([]*parse.Result, len(params.Inputs))
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, in := range params.Inputs {
		i, in := i, in
		g.Go(func() error {
			res, err := parse.ParseFile(ctx, in, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	doc := map[string]any{}
	for i, res := range results {
		for _, w := range res.Warnings {
			log.Warn().Str("file", params.Inputs[i]).Msg(w)
		}
		doc = parse.Merge(doc, res.Data)
	}

	var out any = doc
	if params.Find != "" {
		out, err = vars.Lookup(doc, params.Find)
		if err != nil {
			return fmt.Errorf("find %s: %w", params.Find, err)
		}
	}

	w := cmd.OutOrStdout()
	if params.Output != "" {
		f, err := os.Create(params.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return encode(w, out, params.Format)
}

// buildVariables layers the process environment, the dotenv file and --var
// flags, later sources winning.
func buildVariables(params *ParseParams) (map[string]any, error) {
	env := map[string]any{}
	if params.WithEnv {
		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				env[k] = v
			}
		}
	}
	if params.EnvFile != "" {
		loaded, err := godotenv.Read(params.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		for k, v := range loaded {
			env[k] = v
		}
	}

	variables := map[string]any{}
	if len(env) > 0 {
		variables["env"] = env
	}
	for _, kv := range params.Vars {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --var %q, want key=value", kv)
		}
		setVariable(variables, strings.TrimSpace(k), scalar.Infer(v))
	}
	return variables, nil
}

func setVariable(root map[string]any, key string, v any) {
	parts := strings.Split(key, ".")
	cur := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func encode(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported output format %q", format)
}
