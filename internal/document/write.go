package document

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name used by WriteTable for workbooks.
const DefaultSheet = "Sheet1"

// WriteText writes content to path in the format given by its extension.
// Markdown, text and HTML are written verbatim; Word content is converted
// with blank lines as paragraph breaks and '#' lines as headings.
// Parent directories are created as needed.
func WriteText(path, content string, overwrite bool) error {
	format, err := Detect(path)
	if err != nil {
		return err
	}
	if format.IsTabular() {
		return fmt.Errorf("%w: use WriteTable for %s", ErrUnsupportedFormat, format)
	}

	return writeFile(path, overwrite, func(w io.Writer) error {
		if format == FormatWord {
			return writeDocx(w, content)
		}
		_, err := io.WriteString(w, content)
		return err
	})
}

// WriteTable writes rows to a CSV or .xlsx file. Workbooks get a single
// sheet named DefaultSheet.
func WriteTable(path string, rows [][]string, overwrite bool) error {
	format, err := Detect(path)
	if err != nil {
		return err
	}

	switch format {
	case FormatCSV:
		return writeFile(path, overwrite, func(w io.Writer) error {
			cw := csv.NewWriter(w)
			if err := cw.WriteAll(rows); err != nil {
				return fmt.Errorf("failed to write csv: %w", err)
			}
			return nil
		})
	case FormatExcel:
		return writeFile(path, overwrite, func(w io.Writer) error {
			return writeWorkbook(w, rows)
		})
	}

	return fmt.Errorf("%w: %s is not a table", ErrUnsupportedFormat, format)
}

func writeWorkbook(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(DefaultSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// writeFile creates path (and its parent directory) and calls fn with it.
// Without overwrite the file is created with O_EXCL. A failed write removes
// the partial file.
func writeFile(path string, overwrite bool, fn func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrFileExists, path)
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := fn(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
