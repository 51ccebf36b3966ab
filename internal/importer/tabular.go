package importer

import (
	"encoding/csv"
	"io"
)

// RowReader yields tabular records, header first, and io.EOF at the end. The
// concrete spreadsheet format behind it is an external concern; the
// coordinator only sees rows of string cells.
type RowReader interface {
	Read() ([]string, error)
}

// RowWriter receives tabular records, header first.
type RowWriter interface {
	Write(record []string) error
	Flush() error
}

type csvRowReader struct {
	r *csv.Reader
}

// NewCSVReader wraps r as a RowReader. Rows may have varying widths; missing
// trailing cells read as empty.
func NewCSVReader(r io.Reader) RowReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &csvRowReader{r: cr}
}

func (c *csvRowReader) Read() ([]string, error) {
	return c.r.Read()
}

type csvRowWriter struct {
	w *csv.Writer
}

// NewCSVWriter wraps w as a RowWriter.
func NewCSVWriter(w io.Writer) RowWriter {
	return &csvRowWriter{w: csv.NewWriter(w)}
}

func (c *csvRowWriter) Write(record []string) error {
	return c.w.Write(record)
}

func (c *csvRowWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
