// Package statement turns the text lines of a Komerční banka statement into transactions.
package statement

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kbstatement/internal/model"
)

// Parser extracts transactions from statement text lines.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a Parser. A nil logger falls back to slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse splits lines into transaction blocks and parses each one, keeping
// statement order. Fields that cannot be recognized are left empty.
func (p *Parser) Parse(lines []string) []model.Transaction {
	blocks := SplitBlocks(lines)
	txns := make([]model.Transaction, 0, len(blocks))
	for i, block := range blocks {
		txn, ok := p.parseBlock(block)
		if !ok {
			p.logger.Debug("skipping block without header", "block", i+1)
			continue
		}
		txns = append(txns, txn)
	}
	return txns
}

// SplitBlocks groups lines into blocks, each starting at a transaction header
// line. Lines before the first header are dropped.
func SplitBlocks(lines []string) [][]string {
	var blocks [][]string
	var current []string
	for _, line := range lines {
		if headerRe.MatchString(line) {
			if current != nil {
				blocks = append(blocks, current)
			}
			current = []string{line}
			continue
		}
		if current != nil {
			current = append(current, line)
		}
	}
	if current != nil {
		blocks = append(blocks, current)
	}
	return blocks
}

// blockState accumulates one transaction while its lines are consumed.
type blockState struct {
	txn   *model.Transaction
	extra []string
}

func (p *Parser) parseBlock(block []string) (model.Transaction, bool) {
	if len(block) == 0 {
		return model.Transaction{}, false
	}
	txn, ok := p.parseHeader(block[0])
	if !ok {
		return model.Transaction{}, false
	}
	b := &blockState{txn: &txn}

	label := -1
	for i, line := range block {
		if isLabelLine(line) {
			label = i
			break
		}
	}

	if label >= 0 {
		if label > 1 {
			for _, line := range block[1:label] {
				if !b.parseFX(line) {
					b.misc(line)
				}
			}
		}

		post := block[label+1:]
		next := p.parseDetail(b, post)
		for _, line := range post[next:] {
			if isIgnoredLine(line) {
				continue
			}
			if isMessageLine(line) {
				txn.AppendMessage(afterColon(line))
				continue
			}
			if b.parseFX(line) {
				continue
			}
			b.misc(line)
		}

		txn.Extra = joinNonEmpty(b.extra)
	}

	if txn.FXCurrency == "" && isForeignCurrency(txn.Currency) {
		txn.FXCurrency = txn.Currency
	}
	txn.BlockText = strings.Join(block, " | ")
	return txn, true
}

func (p *Parser) parseHeader(line string) (model.Transaction, bool) {
	dm := dateRe.FindStringSubmatchIndex(line)
	if dm == nil {
		return model.Transaction{}, false
	}

	var txn model.Transaction
	rawDate := strings.TrimSpace(line[dm[2]:dm[3]])
	if d, ok := parseDate(rawDate); ok {
		txn.Date = d
	} else {
		p.logger.Warn("invalid booking date", "date", rawDate)
	}

	rest := line
	if am := headerAmountRe.FindStringSubmatchIndex(line); am != nil {
		txn.AmountRaw = strings.TrimSpace(line[am[2]:am[3]])
		if d, ok := parseAmount(txn.AmountRaw); ok {
			txn.Amount = decimal.NewNullDecimal(d)
		} else {
			p.logger.Debug("unparseable amount", "amount", txn.AmountRaw)
		}
		token := line[am[4]:am[5]]
		if txn.Currency = normalizeCurrency(token); txn.Currency == "" {
			p.logger.Debug("unknown header currency", "currency", token)
		}
		rest = line[:am[2]]
	}

	if dm[1] <= len(rest) {
		rest = strings.TrimSpace(rest[dm[1]:])
	} else {
		rest = ""
	}

	network := ""
	switch {
	case visaRe.MatchString(rest):
		network = "VISA"
	case mastercardRe.MatchString(rest):
		network = "MASTERCARD"
	}

	for _, re := range []*regexp.Regexp{cardMaskRe, cardMaskXRe, cardMaskStarRe} {
		if card := re.FindString(rest); card != "" {
			txn.Card = strings.TrimSpace(card)
			rest = strings.ReplaceAll(rest, card, " ")
			break
		}
	}

	switch network {
	case "VISA":
		rest = visaRe.ReplaceAllString(rest, " ")
	case "MASTERCARD":
		rest = mastercardRe.ReplaceAllString(rest, " ")
	}
	txn.CardNetwork = network

	account := accountRe.FindString(rest)
	if account == "" {
		account = accountShortRe.FindString(rest)
	}
	if account != "" {
		txn.CounterAccount = account
		rest = strings.ReplaceAll(rest, account, " ")
	}

	txn.Counterparty = strings.TrimSpace(multiSpaceRe.ReplaceAllString(rest, " "))
	txn.HeaderDescription = txn.Counterparty
	return txn, true
}

// parseDetail consumes the lines after the label line up to the first
// message or FX line following the detail line. It returns the index of the
// first unconsumed line.
func (p *Parser) parseDetail(b *blockState, lines []string) int {
	idx := 0
	for idx < len(lines) && !dateRe.MatchString(lines[idx]) {
		if !b.parseFX(lines[idx]) {
			b.misc(lines[idx])
		}
		idx++
	}
	if idx >= len(lines) {
		return idx
	}

	p.applyDetailLine(b.txn, lines[idx])
	idx++

	for ; idx < len(lines); idx++ {
		line := lines[idx]
		if isMessageLine(line) || b.parseFX(line) || dateRe.MatchString(line) {
			break
		}
		if isIgnoredLine(line) {
			continue
		}

		tokens := strings.Fields(line)
		if len(tokens) > 0 && b.txn.Code != "" && looksLikeCodeFragment(tokens[0]) {
			b.txn.Code = strings.TrimSpace(b.txn.Code + tokens[0])
			if len(tokens) > 1 {
				b.txn.Type = strings.TrimSpace(b.txn.Type + " " + strings.Join(tokens[1:], " "))
			}
			continue
		}

		if shouldAppendType(line, b.txn.Type) {
			b.txn.Type = strings.TrimSpace(b.txn.Type + " " + strings.TrimSpace(line))
		} else {
			b.misc(line)
		}
	}
	return idx
}

// applyDetailLine reads "<date> <code> <type...> <VS> <SS> <KS>".
func (p *Parser) applyDetailLine(txn *model.Transaction, line string) {
	dm := dateRe.FindStringSubmatchIndex(line)
	if dm == nil {
		return
	}
	rawDate := strings.TrimSpace(line[dm[2]:dm[3]])
	if d, ok := parseDate(rawDate); ok {
		txn.ExecutionDate = d
	} else {
		p.logger.Debug("invalid execution date", "date", rawDate)
	}

	tokens := strings.Fields(line[dm[1]:])
	if len(tokens) < 4 {
		return
	}
	n := len(tokens)
	txn.Code = tokens[0]
	txn.Type = strings.Join(tokens[1:n-3], " ")
	txn.VS = cleanSymbol(tokens[n-3])
	txn.SS = cleanSymbol(tokens[n-2])
	txn.KS = cleanSymbol(tokens[n-1])
}

func cleanSymbol(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

// parseFX records FX details found on line and reports whether the line was
// FX related. The first value seen for each field wins. Amounts and rates in
// the domestic currency are not FX details.
func (b *blockState) parseFX(line string) bool {
	txn := b.txn

	if m := fxRateRe.FindStringSubmatch(line); m != nil {
		if cur := normalizeCurrency(m[1]); isForeignCurrency(cur) {
			if !txn.FXRate.Valid {
				if d, ok := parseAmount(m[2]); ok {
					txn.FXRate = decimal.NewNullDecimal(d)
				}
			}
			if txn.FXRateCurrency == "" {
				txn.FXRateCurrency = cur
			}
			return true
		}
	}

	if m := fxDateAmountRe.FindStringSubmatchIndex(line); m != nil {
		if cur := normalizeCurrency(line[m[6]:m[7]]); isForeignCurrency(cur) {
			if txn.FXDate.IsZero() {
				if d, ok := parseDate(line[m[2]:m[3]]); ok {
					txn.FXDate = d
				}
			}
			if !txn.FXAmount.Valid {
				if d, ok := parseAmount(line[m[4]:m[5]]); ok {
					txn.FXAmount = decimal.NewNullDecimal(d)
				}
			}
			if txn.FXCurrency == "" {
				txn.FXCurrency = cur
			}
			if prefix := strings.TrimSpace(line[:m[0]]); prefix != "" && txn.FXInfo == "" {
				txn.FXInfo = prefix
			}
			return true
		}
	}

	if m := fxAmountOnlyRe.FindStringSubmatch(line); m != nil {
		if cur := normalizeCurrency(m[2]); isForeignCurrency(cur) {
			if !txn.FXAmount.Valid {
				if d, ok := parseAmount(m[1]); ok {
					txn.FXAmount = decimal.NewNullDecimal(d)
				}
			}
			if txn.FXCurrency == "" {
				txn.FXCurrency = cur
			}
			return true
		}
	}

	return strings.Contains(strings.ToLower(line), "kurz")
}

func isForeignCurrency(code string) bool {
	return code != "" && code != model.DomesticCurrency
}

// misc files a line that is neither detail, message nor FX.
func (b *blockState) misc(line string) {
	if isIgnoredLine(line) {
		return
	}
	txn := b.txn
	n := normalizeText(line)
	switch {
	case strings.HasPrefix(n, "popis pro me"):
		if txn.NoteForMe == "" {
			txn.NoteForMe = afterColon(line)
		}
	case strings.HasPrefix(n, "id souvisejici platby"):
		if txn.RelatedPaymentID == "" {
			txn.RelatedPaymentID = afterColon(line)
		}
	case strings.HasPrefix(n, "atm id"):
		if txn.ATMID == "" {
			txn.ATMID = afterColon(line)
		}
	default:
		b.extra = append(b.extra, strings.TrimSpace(line))
	}
}

func joinNonEmpty(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, s := range parts {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " | ")
}
