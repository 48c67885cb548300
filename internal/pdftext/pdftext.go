// Package pdftext recovers the text lines of a PDF statement.
package pdftext

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrMalformed is returned when the PDF library cannot make sense of the file.
var ErrMalformed = errors.New("malformed PDF")

const (
	// rowTolerance merges text rows whose baselines differ by at most this many points.
	rowTolerance = 2
	// gapRatio is the horizontal gap, relative to font size, that separates words.
	gapRatio = 0.2
	// fallbackGap is used when a run carries no font size.
	fallbackGap = 1.5
)

// Document is an open PDF file.
type Document struct {
	file   *os.File
	reader *pdf.Reader
}

// Open opens the PDF at path. The caller must Close the document.
func Open(path string) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("opening %s: %w: %v", path, ErrMalformed, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		return nil, fmt.Errorf("opening %s: %w: %v", path, ErrMalformed, err)
	}
	return &Document{file: f, reader: r}, nil
}

// Close releases the underlying file handle.
func (d *Document) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.reader.NumPage()
}

// Lines returns the text lines of all pages, top to bottom, in page order.
func (d *Document) Lines() (lines []string, err error) {
	page := 0
	defer func() {
		if r := recover(); r != nil {
			lines = nil
			err = fmt.Errorf("page %d: %w: %v", page, ErrMalformed, r)
		}
	}()

	for page = 1; page <= d.reader.NumPage(); page++ {
		p := d.reader.Page(page)
		if p.V.IsNull() {
			continue
		}
		lines = append(lines, rowsToLines(groupRows(p.Content().Text))...)
	}
	return lines, nil
}

// groupRows buckets glyphs by baseline, keeping content order within a row.
func groupRows(texts []pdf.Text) pdf.Rows {
	var rows pdf.Rows
	byPos := make(map[int64]*pdf.Row)
	for _, t := range texts {
		pos := int64(math.Round(t.Y))
		row, ok := byPos[pos]
		if !ok {
			row = &pdf.Row{Position: pos}
			byPos[pos] = row
			rows = append(rows, row)
		}
		row.Content = append(row.Content, t)
	}
	return rows
}

// rowsToLines merges rows that share a baseline and renders each as a line.
func rowsToLines(rows pdf.Rows) []string {
	sorted := make(pdf.Rows, 0, len(rows))
	for _, r := range rows {
		if r != nil && len(r.Content) > 0 {
			sorted = append(sorted, r)
		}
	}
	// Page coordinates grow upwards: higher Position is nearer the top.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position > sorted[j].Position
	})

	var lines []string
	var current []pdf.Text
	var anchor int64
	for i, r := range sorted {
		if i > 0 && anchor-r.Position > rowTolerance {
			if line := joinRow(current); line != "" {
				lines = append(lines, line)
			}
			current = nil
		}
		if current == nil {
			anchor = r.Position
		}
		current = append(current, r.Content...)
	}
	if line := joinRow(current); line != "" {
		lines = append(lines, line)
	}
	return lines
}

// joinRow concatenates text runs left to right, inserting a single space
// where the gap between runs is wide enough to be a word break.
func joinRow(texts []pdf.Text) string {
	if len(texts) == 0 {
		return ""
	}
	runs := make([]pdf.Text, len(texts))
	copy(runs, texts)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var b strings.Builder
	prevEnd := 0.0
	for i, t := range runs {
		s := normalizeSpaces(t.S)
		if s == "" {
			continue
		}
		if i > 0 && t.X-prevEnd > wordGap(t) {
			cur := b.String()
			if cur != "" && !strings.HasSuffix(cur, " ") && !strings.HasPrefix(s, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(s)
		prevEnd = t.X + runWidth(t)
	}
	return strings.TrimSpace(b.String())
}

func wordGap(t pdf.Text) float64 {
	if t.FontSize > 0 {
		return t.FontSize * gapRatio
	}
	return fallbackGap
}

// runWidth estimates the advance of a run when the font carries no widths.
func runWidth(t pdf.Text) float64 {
	if t.W > 0 {
		return t.W
	}
	size := t.FontSize
	if size <= 0 {
		size = 10
	}
	return 0.5 * size * float64(utf8.RuneCountInString(t.S))
}

func normalizeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u2007', '\u202f', '\t':
			return ' '
		}
		return r
	}, s)
}

// ReadLines reads a plain-text dump with one statement line per line.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		lines = append(lines, normalizeSpaces(strings.TrimRight(line, "\r")))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading text lines: %w", err)
	}
	return lines, nil
}

// ReadLinesFile reads a text dump from disk.
func ReadLinesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadLines(f)
}
