package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dzjyyds666/mixconf/parse/section"
	"github.com/dzjyyds666/mixconf/pkg"
)

func newSectionsCmd() *cobra.Command {
	var input string
	sectionsCmd := &cobra.Command{
		Use:   "sections",
		Short: "show how a file is split into format sections",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(input) == 0 {
				return fmt.Errorf("no input file path")
			}
			text, err := pkg.ReadText(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			for _, sec := range section.Detect(text) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d-%d\t%s\n", sec.StartLine, sec.EndLine, sec.Format)
			}
			return nil
		},
	}
	sectionsCmd.Flags().StringVarP(&input, "input", "i", "", "input file path")
	return sectionsCmd
}
