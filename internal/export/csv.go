// Package export writes parsed transactions to tabular files.
package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kbstatement/internal/model"
)

const dateFormat = "2006-01-02"

// utf8BOM lets spreadsheet software detect the encoding of Czech text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Columns is the fixed column order of every export, taken from Row's csv tags.
var Columns = rowColumns()

// Row is one export row. Field order defines the column order.
type Row struct {
	Date              string `csv:"Datum"`
	HeaderDescription string `csv:"Popis_hlavicka"`
	Counterparty      string `csv:"Protistrana"`
	CounterAccount    string `csv:"Protiucet"`
	Card              string `csv:"Karta"`
	CardNetwork       string `csv:"Karta_sit"`
	Amount            string `csv:"Castka_CZK"`
	AmountRaw         string `csv:"Castka_raw"`
	Currency          string `csv:"Mena"`
	ExecutionDate     string `csv:"Datum_provedeni"`
	Code              string `csv:"Kod_transakce"`
	Type              string `csv:"Typ_transakce"`
	VS                string `csv:"VS"`
	SS                string `csv:"SS"`
	KS                string `csv:"KS"`
	Message           string `csv:"Zprava"`
	NoteForMe         string `csv:"Popis_pro_me"`
	RelatedPaymentID  string `csv:"ID_souvisejici_platby"`
	ATMID             string `csv:"ATM_ID"`
	FXCurrency        string `csv:"FX_mena"`
	FXAmount          string `csv:"FX_castka"`
	FXDate            string `csv:"FX_datum"`
	FXInfo            string `csv:"FX_info"`
	FXRate            string `csv:"FX_kurz"`
	FXRateCurrency    string `csv:"FX_kurz_mena"`
	Extra             string `csv:"Doplnek"`
	BlockText         string `csv:"Blok_text"`
}

// Values returns the row cells in Columns order.
func (r Row) Values() []string {
	v := reflect.ValueOf(r)
	values := make([]string, v.NumField())
	for i := range values {
		values[i] = v.Field(i).String()
	}
	return values
}

func rowColumns() []string {
	t := reflect.TypeFor[Row]()
	cols := make([]string, t.NumField())
	for i := range cols {
		cols[i] = t.Field(i).Tag.Get("csv")
	}
	return cols
}

// Options controls the output encoding.
type Options struct {
	Delimiter        rune   // CSV field separator, default ','
	BOM              bool   // prefix CSV output with a UTF-8 byte order mark
	IncludeBlockText bool   // fill Blok_text with the raw block lines
	Sheet            string // XLSX sheet name
}

// DefaultOptions matches the historical transakce.csv layout.
func DefaultOptions() Options {
	return Options{
		Delimiter:        ',',
		BOM:              true,
		IncludeBlockText: true,
		Sheet:            "Transakce",
	}
}

// MarshalRow converts a Transaction to an export Row.
func MarshalRow(txn model.Transaction, opts Options) Row {
	row := Row{
		Date:              formatDate(txn.Date),
		HeaderDescription: txn.HeaderDescription,
		Counterparty:      txn.Counterparty,
		CounterAccount:    txn.CounterAccount,
		Card:              txn.Card,
		CardNetwork:       txn.CardNetwork,
		AmountRaw:         txn.AmountRaw,
		Currency:          txn.Currency,
		ExecutionDate:     formatDate(txn.ExecutionDate),
		Code:              txn.Code,
		Type:              txn.Type,
		VS:                txn.VS,
		SS:                txn.SS,
		KS:                txn.KS,
		Message:           txn.Message,
		NoteForMe:         txn.NoteForMe,
		RelatedPaymentID:  txn.RelatedPaymentID,
		ATMID:             txn.ATMID,
		FXCurrency:        txn.FXCurrency,
		FXDate:            formatDate(txn.FXDate),
		FXInfo:            txn.FXInfo,
		FXRateCurrency:    txn.FXRateCurrency,
		Extra:             txn.Extra,
	}

	if txn.Amount.Valid {
		row.Amount = txn.Amount.Decimal.StringFixed(2)
	}
	if txn.FXAmount.Valid {
		row.FXAmount = txn.FXAmount.Decimal.StringFixed(2)
	}
	if txn.FXRate.Valid {
		row.FXRate = formatScaled(txn.FXRate.Decimal)
	}
	if opts.IncludeBlockText {
		row.BlockText = txn.BlockText
	}
	return row
}

// formatScaled keeps the printed number of decimal places.
func formatScaled(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateFormat)
}

// MarshalRows converts transactions to rows, preserving order.
func MarshalRows(txns []model.Transaction, opts Options) []Row {
	rows := make([]Row, len(txns))
	for i, txn := range txns {
		rows[i] = MarshalRow(txn, opts)
	}
	return rows
}

// WriteCSV writes the header and one row per transaction.
func WriteCSV(w io.Writer, txns []model.Transaction, opts Options) error {
	if opts.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("writing BOM: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}

	rows := MarshalRows(txns, opts)
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads rows from an export written by WriteCSV.
func ReadCSV(r io.Reader, opts Options) ([]Row, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("skipping BOM: %w", err)
		}
	}

	cr := csv.NewReader(br)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = len(Columns)

	var rows []Row
	if err := gocsv.UnmarshalCSV(cr, &rows); err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return rows, nil
}
