package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/kbstatement/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func sampleTransactions() []model.Transaction {
	return []model.Transaction{
		{
			Date:              date(2025, 1, 3),
			HeaderDescription: "ALBERT HM PRAHA 4",
			Counterparty:      "ALBERT HM PRAHA 4",
			Card:              "4165 98** **** 1234",
			CardNetwork:       "VISA",
			Amount:            dec("-1234.56"),
			AmountRaw:         "-1 234,56",
			Currency:          "CZK",
			ExecutionDate:     date(2025, 1, 3),
			Code:              "000123456",
			Type:              "Platba kartou",
			NoteForMe:         "nákup potravin",
			BlockText:         "3. 1. 2025 ALBERT HM PRAHA 4 VISA 4165 98** **** 1234 -1 234,56 Kč | …",
		},
		{
			Date:           date(2025, 1, 7),
			Counterparty:   "AMAZON EU SARL",
			Card:           "516844XXXXXX9876",
			Amount:         dec("-512.3"),
			AmountRaw:      "-512,30",
			Currency:       "CZK",
			Message:        `Order "A-1", thanks | second`,
			FXCurrency:     "EUR",
			FXAmount:       dec("20"),
			FXDate:         date(2025, 1, 8),
			FXRate:         dec("25.615"),
			FXRateCurrency: "EUR",
		},
	}
}

func TestColumns(t *testing.T) {
	want := []string{
		"Datum", "Popis_hlavicka", "Protistrana", "Protiucet", "Karta", "Karta_sit",
		"Castka_CZK", "Castka_raw", "Mena", "Datum_provedeni", "Kod_transakce",
		"Typ_transakce", "VS", "SS", "KS", "Zprava", "Popis_pro_me",
		"ID_souvisejici_platby", "ATM_ID", "FX_mena", "FX_castka", "FX_datum",
		"FX_info", "FX_kurz", "FX_kurz_mena", "Doplnek", "Blok_text",
	}
	assert.Equal(t, want, Columns)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.BOM = false
	require.NoError(t, WriteCSV(&buf, nil, opts))

	header, err := csv.NewReader(&buf).Read()
	require.NoError(t, err)
	assert.Equal(t, Columns, header)
}

func TestRowValuesFollowColumns(t *testing.T) {
	row := MarshalRow(sampleTransactions()[1], DefaultOptions())
	values := row.Values()
	require.Len(t, values, len(Columns))

	cell := func(col string) string {
		for i, c := range Columns {
			if c == col {
				return values[i]
			}
		}
		t.Fatalf("no column %s", col)
		return ""
	}
	assert.Equal(t, "2025-01-07", cell("Datum"))
	assert.Equal(t, "AMAZON EU SARL", cell("Protistrana"))
	assert.Equal(t, "516844XXXXXX9876", cell("Karta"))
	assert.Equal(t, "-512.30", cell("Castka_CZK"))
	assert.Equal(t, "-512,30", cell("Castka_raw"))
	assert.Equal(t, "EUR", cell("FX_mena"))
	assert.Equal(t, "2025-01-08", cell("FX_datum"))
	assert.Equal(t, "25.615", cell("FX_kurz"))
	assert.Equal(t, "EUR", cell("FX_kurz_mena"))
	assert.Equal(t, `Order "A-1", thanks | second`, cell("Zprava"))
}

func TestMarshalRow(t *testing.T) {
	txns := sampleTransactions()

	row := MarshalRow(txns[0], DefaultOptions())
	assert.Equal(t, "2025-01-03", row.Date)
	assert.Equal(t, "-1234.56", row.Amount)
	assert.Equal(t, "-1 234,56", row.AmountRaw)
	assert.Equal(t, "CZK", row.Currency)
	assert.Empty(t, row.FXCurrency)
	assert.Empty(t, row.FXAmount)
	assert.Empty(t, row.FXRate)
	assert.Empty(t, row.FXDate)
	assert.NotEmpty(t, row.BlockText)

	fx := MarshalRow(txns[1], DefaultOptions())
	assert.Equal(t, "-512.30", fx.Amount, "StringFixed(2) keeps trailing zero")
	assert.Equal(t, "EUR", fx.FXCurrency)
	assert.Equal(t, "20.00", fx.FXAmount)
	assert.Equal(t, "2025-01-08", fx.FXDate)
	assert.Equal(t, "25.615", fx.FXRate)
	assert.Empty(t, fx.ExecutionDate)
}

func TestMarshalRow_KeepsRatePrecision(t *testing.T) {
	txn := sampleTransactions()[1]
	txn.FXRate = decimal.NewNullDecimal(decimal.RequireFromString("26.000"))
	assert.Equal(t, "26.000", MarshalRow(txn, DefaultOptions()).FXRate)

	txn.FXRate = dec("26")
	assert.Equal(t, "26", MarshalRow(txn, DefaultOptions()).FXRate)
}

func TestMarshalRow_WithoutBlockText(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeBlockText = false
	row := MarshalRow(sampleTransactions()[0], opts)
	assert.Empty(t, row.BlockText)
}

func TestMarshalRow_EmptyFields(t *testing.T) {
	row := MarshalRow(model.Transaction{}, DefaultOptions())
	for i, v := range row.Values() {
		assert.Empty(t, v, "column %s", Columns[i])
	}
}

func TestRoundTrip(t *testing.T) {
	txns := sampleTransactions()
	opts := DefaultOptions()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, txns, opts))

	got, err := ReadCSV(&buf, opts)
	require.NoError(t, err)
	require.Len(t, got, len(txns))

	for i := range txns {
		assert.Equal(t, MarshalRow(txns[i], opts), got[i], "row %d", i)
	}
	assert.Equal(t, `Order "A-1", thanks | second`, got[1].Message)
}

func TestWriteCSV_Deterministic(t *testing.T) {
	txns := sampleTransactions()

	var first, second bytes.Buffer
	require.NoError(t, WriteCSV(&first, txns, DefaultOptions()))
	require.NoError(t, WriteCSV(&second, txns, DefaultOptions()))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestWriteCSV_BOM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTransactions(), DefaultOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))

	opts := DefaultOptions()
	opts.BOM = false
	buf.Reset()
	require.NoError(t, WriteCSV(&buf, sampleTransactions(), opts))
	assert.True(t, strings.HasPrefix(buf.String(), "Datum,"))
}

func TestWriteCSV_Delimiter(t *testing.T) {
	opts := DefaultOptions()
	opts.Delimiter = ';'
	opts.BOM = false

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTransactions(), opts))
	assert.True(t, strings.HasPrefix(buf.String(), "Datum;Popis_hlavicka;"))

	got, err := ReadCSV(&buf, opts)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AMAZON EU SARL", got[1].Counterparty)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(strings.Join(Columns, ",")+"\n"), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadCSV_WrongFieldCount(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Datum,Mena\n2025-01-01,CZK\n"), DefaultOptions())
	assert.Error(t, err)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleTransactions(), DefaultOptions()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Transakce")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "ALBERT HM PRAHA 4", rows[1][2])

	amount, err := f.GetCellValue("Transakce", "G2")
	require.NoError(t, err)
	assert.Equal(t, "-1234.56", amount)
}

func TestWriteFile_ByExtension(t *testing.T) {
	dir := t.TempDir()
	txns := sampleTransactions()

	csvPath := filepath.Join(dir, DefaultPath)
	require.NoError(t, WriteFile(csvPath, txns, DefaultOptions()))
	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := ReadCSV(f, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	xlsxPath := filepath.Join(dir, "transakce.xlsx")
	require.NoError(t, WriteFile(xlsxPath, txns, DefaultOptions()))
	wb, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"Transakce"}, wb.GetSheetList())
}

func TestWriteFile_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pdf")
	err := WriteFile(path, sampleTransactions(), DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is created for an unsupported format")
}

func TestWriteFile_Rewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	txns := sampleTransactions()

	require.NoError(t, WriteFile(path, txns, DefaultOptions()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, txns, DefaultOptions()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-exporting the same records is byte-identical")
}
