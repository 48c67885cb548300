package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DomesticCurrency is the account currency of every statement.
const DomesticCurrency = "CZK"

// Transaction represents one transaction block parsed from a statement.
// Unparsed fields stay at their zero value.
type Transaction struct {
	Date              time.Time
	HeaderDescription string
	Counterparty      string
	CounterAccount    string
	Card              string
	CardNetwork       string
	Amount            decimal.NullDecimal // negative = debit
	AmountRaw         string
	Currency          string

	ExecutionDate time.Time
	Code          string
	Type          string
	VS            string
	SS            string
	KS            string

	Message          string
	NoteForMe        string
	RelatedPaymentID string
	ATMID            string

	FXCurrency     string
	FXAmount       decimal.NullDecimal
	FXDate         time.Time
	FXInfo         string
	FXRate         decimal.NullDecimal
	FXRateCurrency string

	Extra     string
	BlockText string
}

// IsForeign reports whether the transaction carries a non-domestic amount.
func (t Transaction) IsForeign() bool {
	if t.Currency != "" && t.Currency != DomesticCurrency {
		return true
	}
	return t.FXCurrency != "" || t.FXAmount.Valid || t.FXRate.Valid
}

// AppendMessage adds msg to Message, separating multiple messages with " | ".
func (t *Transaction) AppendMessage(msg string) {
	t.Message = joinField(t.Message, msg)
}

func joinField(cur, val string) string {
	if val == "" {
		return cur
	}
	if cur == "" {
		return val
	}
	return cur + " | " + val
}
