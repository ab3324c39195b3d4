package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ignite/leadbook/internal/service/lead"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ReadOptions controls parsing.
type ReadOptions struct {
	// Encoding of CSV input: "utf-8" (default) or "latin1".
	Encoding string
	// MaxRows rejects files with more data rows. Zero means no limit.
	MaxRows int
}

// Read parses r in the given format into import rows. Blank rows are
// dropped; everything else is returned for the service to validate.
func Read(r io.Reader, format Format, opts ReadOptions) ([]lead.ImportRow, error) {
	var (
		records [][]string
		lines   []int
		err     error
	)
	switch format {
	case FormatCSV:
		records, lines, err = readCSV(r, opts.Encoding)
	case FormatXLSX:
		records, lines, err = readXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	fields, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}
	if opts.MaxRows > 0 && len(records)-1 > opts.MaxRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, len(records)-1, opts.MaxRows)
	}

	rows := make([]lead.ImportRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		l, ok := buildLead(fields, rec)
		if !ok {
			continue
		}
		rows = append(rows, lead.ImportRow{Line: lines[i+1], Lead: l})
	}
	return rows, nil
}

func decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
}

func readCSV(r io.Reader, encoding string) ([][]string, []int, error) {
	src, err := decoder(r, encoding)
	if err != nil {
		return nil, nil, err
	}
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: csv: %w", ErrInvalidFile, err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

func readXLSX(r io.Reader) ([][]string, []int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: workbook: %w", ErrInvalidFile, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: sheet: %w", ErrInvalidFile, err)
	}
	// leading empty rows are not a header
	start := 0
	for start < len(rows) && len(rows[start]) == 0 {
		start++
	}
	lines := make([]int, 0, len(rows)-start)
	for i := start; i < len(rows); i++ {
		lines = append(lines, i+1)
	}
	return rows[start:], lines, nil
}
