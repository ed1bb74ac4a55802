package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/printshop/catalog-backend/internal/domain"
)

// Record is one CSV data row keyed by header column name. Columns absent
// from the file are absent from the map.
type Record map[string]string

// RecordReader streams CSV data rows as Records. The first row of the input
// is the header; every data row must have exactly as many fields as the
// header.
type RecordReader struct {
	r      *csv.Reader
	header []string
	row    int
}

// NewRecordReader wraps r and consumes the header row. An empty input or an
// unreadable header returns an error wrapping domain.ErrParse.
func NewRecordReader(r io.Reader) (*RecordReader, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row: %w", domain.ErrParse)
		}
		return nil, fmt.Errorf("read header: %v: %w", err, domain.ErrParse)
	}

	return &RecordReader{r: cr, header: header}, nil
}

// Header returns the column names in file order.
func (rr *RecordReader) Header() []string {
	return rr.header
}

// Next returns the next data row. It returns io.EOF after the last row and
// an error wrapping domain.ErrParse on malformed input, including rows whose
// field count differs from the header.
func (rr *RecordReader) Next() (Record, error) {
	fields, err := rr.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read row %d: %v: %w", rr.row+1, err, domain.ErrParse)
	}
	rr.row++

	rec := make(Record, len(rr.header))
	for i, name := range rr.header {
		rec[name] = fields[i]
	}
	return rec, nil
}

// CountRows reads the entire input and returns the number of data rows,
// excluding the header. Malformed input returns an error wrapping
// domain.ErrParse.
func CountRows(r io.Reader) (int, error) {
	rr, err := NewRecordReader(r)
	if err != nil {
		return 0, err
	}

	n := 0
	for {
		if _, err := rr.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return 0, err
		}
		n++
	}
}
