package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLinesCommand(a *app) *cobra.Command {
	var numbered bool

	cmd := &cobra.Command{
		Use:   "lines <statement.pdf>",
		Short: "Print the text lines extracted from a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readLines(args[0], false)
			if err != nil {
				return err
			}
			a.logger.Debug("extracted text", "input", args[0], "lines", len(lines))

			out := cmd.OutOrStdout()
			for i, line := range lines {
				if numbered {
					fmt.Fprintf(out, "%5d  %s\n", i+1, line)
					continue
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&numbered, "number", "n", false, "prefix each line with its number")

	return cmd
}
