package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/kbstatement/internal/export"
	"github.com/cleared-dev/kbstatement/internal/model"
	"github.com/cleared-dev/kbstatement/internal/pdftext"
	"github.com/cleared-dev/kbstatement/internal/statement"
)

func newConvertCommand(a *app) *cobra.Command {
	var (
		output      string
		fromText    bool
		delimiter   string
		noBOM       bool
		noBlockText bool
	)

	cmd := &cobra.Command{
		Use:   "convert <statement.pdf>",
		Short: "Extract transactions from a statement into a CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("output") {
				a.cfg.Export.Path = output
			}
			if flags.Changed("delimiter") {
				a.cfg.Export.Delimiter = delimiter
			}
			if noBOM {
				a.cfg.Export.BOM = false
			}
			if noBlockText {
				a.cfg.Export.IncludeBlockText = false
			}
			return runConvert(cmd, a, args[0], fromText)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", export.DefaultPath, "output file (.csv or .xlsx)")
	cmd.Flags().BoolVar(&fromText, "from-text", false, "input is a text dump with one line per line instead of a PDF")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "CSV field delimiter")
	cmd.Flags().BoolVar(&noBOM, "no-bom", false, "omit the UTF-8 byte order mark")
	cmd.Flags().BoolVar(&noBlockText, "no-block-text", false, "leave the Blok_text column empty")

	return cmd
}

func runConvert(cmd *cobra.Command, a *app, input string, fromText bool) error {
	opts, err := a.cfg.ExportOptions()
	if err != nil {
		return err
	}

	lines, err := readLines(input, fromText)
	if err != nil {
		return err
	}
	a.logger.Info("extracted text", "input", input, "lines", len(lines))

	txns := statement.NewParser(a.logger).Parse(lines)
	if len(txns) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "No transactions found in %s; the PDF may use a different layout.\n", input)
		return nil
	}

	path := a.cfg.Export.Path
	if err := export.WriteFile(path, txns, opts); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d transactions (%d foreign) to %s\n", len(txns), countForeign(txns), path)
	return nil
}

func readLines(input string, fromText bool) ([]string, error) {
	if fromText {
		return pdftext.ReadLinesFile(input)
	}

	doc, err := pdftext.Open(input)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return doc.Lines()
}

func countForeign(txns []model.Transaction) int {
	n := 0
	for _, t := range txns {
		if t.IsForeign() {
			n++
		}
	}
	return n
}
