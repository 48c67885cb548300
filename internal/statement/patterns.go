package statement

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RE2 has no look-behind, so "not preceded by a digit" is spelled (?:^|\D)
// and the amount is taken from its capture group. \w and \b are ASCII-only
// in RE2; the "Kč" currency needs explicit Unicode classes.
const (
	headerDate    = `\d{1,2}\.\s+\d{1,2}\.\s+\d{4}`
	amountToken   = `-?\s*(?:\d{1,3}(?:[ .]\d{3})*|\d+),\d{2}`
	currencyToken = `(?:K[\p{L}\p{N}_]|[A-Z]{3})`
)

var (
	dateRe         = regexp.MustCompile(`^\s*(\d{1,2}\.\s*\d{1,2}\.\s*\d{4})`)
	headerRe       = regexp.MustCompile(`^\s*` + headerDate + `.*?\D` + amountToken + `\s+` + currencyToken + `\s*$`)
	headerAmountRe = regexp.MustCompile(`(?:^|\D)(` + amountToken + `)\s+(` + currencyToken + `)\s*$`)
	pageRe         = regexp.MustCompile(`^\d+/\d+$`)

	fxDateAmountRe = regexp.MustCompile(`(\d{1,2}\.\d{1,2}\.\d{4})\s+(\d[\d\s.]*,\d{2})\s+([A-Z]{3})\b`)
	fxAmountOnlyRe = regexp.MustCompile(`^\s*(\d[\d\s.]*,\d{2})\s+([A-Z]{3})\b`)
	fxRateRe       = regexp.MustCompile(`^\s*1\s+([A-Z]{3})\s*=\s*(\d[\d\s]*,\d+)\s*K\pL(?:[^\p{L}\p{N}_]|$)`)

	cardMaskRe     = regexp.MustCompile(`\b\d{4}\s\d{2}\*{2}\s\*{4}\s\d{4}\b`)
	cardMaskXRe    = regexp.MustCompile(`(?i)\b\d{6}X{4,6}\d{4}\b`)
	cardMaskStarRe = regexp.MustCompile(`\b\d{6}\*{4,6}\d{4}\b`)
	accountRe      = regexp.MustCompile(`\b\d{1,10}-\d{1,10}/\d{4}\b`)
	accountShortRe = regexp.MustCompile(`\b\d{1,10}/\d{4}\b`)

	visaRe       = regexp.MustCompile(`(?i)\bVISA\b`)
	mastercardRe = regexp.MustCompile(`(?i)\bMASTERCARD\b`)

	multiSpaceRe   = regexp.MustCompile(`\s{2,}`)
	codeFragmentRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	digitRe        = regexp.MustCompile(`\d`)
)

// ignoreSubstrings are statement boilerplate, matched against normalized text.
var ignoreSubstrings = []string{
	"vypis z uctu",
	"datum vypisu",
	"informace o uctu",
	"zustatky",
	"pocatecni zustatek",
	"konecny zustatek",
	"komercni banka, a. s.",
	"zapsana v obchodnim rejstriku",
	"trvaly pobyt",
	"cislo uctu",
	"iban",
	"hlavni mena",
	"typ uctu",
	"transakce",
}

var ignoreMatcher = ahocorasick.NewStringMatcher(ignoreSubstrings)

// continuationTriggers end a type line that wraps onto the next line.
var continuationTriggers = map[string]bool{
	"na":          true,
	"pres":        true,
	"za":          true,
	"pro":         true,
	"do":          true,
	"od":          true,
	"v":           true,
	"ve":          true,
	"s":           true,
	"z":           true,
	"extra":       true,
	"vyrovnavaci": true,
}

// normalizeText folds accents away and lowercases: "Zpráva" -> "zprava".
func normalizeText(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r >= utf8.RuneSelf
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

func isLabelLine(line string) bool {
	n := normalizeText(line)
	return strings.Contains(n, "datum proved") && strings.Contains(n, "transakce")
}

func isMessageLine(line string) bool {
	return strings.HasPrefix(normalizeText(line), "zpr")
}

func isIgnoredLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	if pageRe.MatchString(trimmed) {
		return true
	}
	return ignoreMatcher.Contains([]byte(normalizeText(line)))
}

// looksLikeCodeFragment reports whether token continues a wrapped transaction code.
func looksLikeCodeFragment(token string) bool {
	token = strings.TrimSpace(token)
	if len(token) < 8 || !codeFragmentRe.MatchString(token) {
		return false
	}
	return digitRe.MatchString(token)
}

// afterColon returns the text after the first colon, or the whole line.
func afterColon(line string) string {
	if _, v, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(line)
}

// shouldAppendType decides whether line continues the transaction type.
func shouldAppendType(line, currentType string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if strings.ContainsAny(line, ":/*") || strings.Contains(line, " - ") {
		return false
	}

	n := normalizeText(line)
	if strings.HasPrefix(n, "popis pro me") || strings.HasPrefix(n, "id souvisejici") {
		return false
	}

	typeWords := strings.Fields(normalizeText(currentType))
	if len(typeWords) == 0 {
		return false
	}
	if continuationTriggers[typeWords[len(typeWords)-1]] {
		return true
	}
	return len(typeWords) == 1 && len(strings.Fields(line)) <= 2 && !digitRe.MatchString(line)
}
