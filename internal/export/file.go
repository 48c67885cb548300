package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/kbstatement/internal/model"
)

// ErrUnsupportedFormat is returned for output paths with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// DefaultPath is the output file name used when none is configured.
const DefaultPath = "transakce.csv"

type writeFunc func(io.Writer, []model.Transaction, Options) error

func writerFor(path string) (writeFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return WriteCSV, nil
	case ".xlsx":
		return WriteXLSX, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// WriteFile writes txns to path, choosing CSV or XLSX by extension.
// The file is created or truncated.
func WriteFile(path string, txns []model.Transaction, opts Options) (err error) {
	write, err := writerFor(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if err := write(f, txns, opts); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
