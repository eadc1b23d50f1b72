package document

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadText returns the text content of the document at path.
//
// Tabular formats are flattened one row per line with cells joined by ",".
// Workbooks list every sheet in workbook order.
func ReadText(path string) (string, error) {
	format, err := Detect(path)
	if err != nil {
		return "", err
	}

	switch format {
	case FormatMarkdown, FormatText:
		data, err := readDecoded(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case FormatHTML:
		data, err := readDecoded(path)
		if err != nil {
			return "", err
		}
		return htmlText(bytes.NewReader(data))
	case FormatWord:
		return readDocx(path)
	case FormatCSV:
		rows, err := ReadTable(path)
		if err != nil {
			return "", err
		}
		return joinRows(rows), nil
	case FormatExcel:
		return readWorkbookText(path)
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// ReadTable reads a CSV file into rows. Rows may have different lengths.
func ReadTable(path string) ([][]string, error) {
	format, err := Detect(path)
	if err != nil {
		return nil, err
	}
	if format != FormatCSV {
		return nil, fmt.Errorf("%w: %s is not a table", ErrUnsupportedFormat, format)
	}

	data, err := readDecoded(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv %s: %w", path, err)
	}
	return rows, nil
}

// ReadWorkbook reads every sheet of an .xlsx file, keyed by sheet name.
func ReadWorkbook(path string) (map[string][][]string, error) {
	f, sheets, err := openWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	book := make(map[string][][]string, len(sheets))
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		book[sheet] = rows
	}
	return book, nil
}

func readWorkbookText(path string) (string, error) {
	f, sheets, err := openWorkbook(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	parts := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		if len(rows) > 0 {
			parts = append(parts, joinRows(rows))
		}
	}
	return strings.Join(parts, "\n"), nil
}

func openWorkbook(path string) (*excelize.File, []string, error) {
	format, err := Detect(path)
	if err != nil {
		return nil, nil, err
	}
	if format != FormatExcel {
		return nil, nil, fmt.Errorf("%w: %s is not a workbook", ErrUnsupportedFormat, format)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return f, f.GetSheetList(), nil
}

// readDecoded reads a text file and returns UTF-8 bytes.
// A UTF-8 or UTF-16 BOM selects the encoding and is removed. Content that
// is not valid UTF-8 is decoded as GB18030, the common legacy encoding for
// Chinese documents.
func readDecoded(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return decodeText(raw)
}

func decodeText(raw []byte) ([]byte, error) {
	data, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode text: %w", err)
	}
	if utf8.Valid(data) {
		return data, nil
	}

	data, _, err = transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode text: %w", err)
	}
	return data, nil
}

func joinRows(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, ",")
	}
	return strings.Join(lines, "\n")
}
