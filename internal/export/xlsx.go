package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/kbstatement/internal/model"
)

// numericColumns are written as numbers so spreadsheets can sum them.
var numericColumns = map[string]bool{
	"Castka_CZK": true,
	"FX_castka":  true,
	"FX_kurz":    true,
}

// WriteXLSX writes transactions as a single-sheet workbook.
func WriteXLSX(w io.Writer, txns []model.Transaction, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = DefaultOptions().Sheet
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range MarshalRows(txns, opts) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		values := xlsxValues(row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func xlsxValues(row Row) []any {
	strs := row.Values()
	values := make([]any, len(strs))
	for i, s := range strs {
		values[i] = s
		if s == "" || !numericColumns[Columns[i]] {
			continue
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			values[i] = v
		}
	}
	return values
}
