package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrMissingColumn is returned when a table lacks a required column.
var ErrMissingColumn = errors.New("storage: required column missing")

// naTokens are the cell values read as missing by default in pandas.
var naTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

// IsNA reports whether a raw cell would be read as missing.
func IsNA(cell string) bool {
	return naTokens[cell]
}

// Row maps column names to cell values. Missing cells read as "".
type Row map[string]string

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for i := len(m) - 1; i >= 0; i-- {
		if err := m[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type readCloser struct {
	io.Reader
	io.Closer
}

// OpenInput opens path for reading as UTF-8 text. A leading byte order mark
// is dropped and ".gz" files are decompressed on the fly.
func OpenInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var r io.Reader = f
	closers := multiCloser{f}
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		r = gz
		closers = append(closers, gz)
	}
	r = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	return readCloser{Reader: r, Closer: closers}, nil
}

// TableReader streams rows of a headed CSV table.
type TableReader struct {
	closer io.Closer
	r      *csv.Reader
	header []string
	index  map[string]int
}

// OpenTable opens a CSV file and checks that every required column exists.
func OpenTable(path string, required ...string) (*TableReader, error) {
	in, err := OpenInput(path)
	if err != nil {
		return nil, err
	}
	t, err := NewTableReader(in, required...)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.closer = in
	return t, nil
}

// NewTableReader reads the header line of r.
func NewTableReader(r io.Reader, required ...string) (*TableReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty table: %w", err)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &TableReader{r: cr, header: header, index: make(map[string]int, len(header))}
	for i, name := range header {
		// duplicated names resolve to the first occurrence
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	for _, name := range required {
		if !t.HasColumn(name) {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	return t, nil
}

// Header returns the column names in file order.
func (t *TableReader) Header() []string { return t.header }

// HasColumn reports whether the table has the named column.
func (t *TableReader) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Next returns the next row, or io.EOF after the last one.
func (t *TableReader) Next() (Row, error) {
	rec, err := t.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read row: %w", err)
	}
	row := make(Row, len(t.header))
	for name, i := range t.index {
		if i >= len(rec) || IsNA(rec[i]) {
			row[name] = ""
			continue
		}
		row[name] = rec[i]
	}
	return row, nil
}

// ReadBatch returns up to n rows. It returns io.EOF only when no rows remain.
func (t *TableReader) ReadBatch(n int) ([]Row, error) {
	batch := make([]Row, 0, n)
	for len(batch) < n {
		row, err := t.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, row)
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

// Close releases the underlying file.
func (t *TableReader) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// CountRows counts the data rows of a table. Quoted multi-line cells count once.
func CountRows(path string) (int, error) {
	t, err := OpenTable(path)
	if err != nil {
		return 0, err
	}
	defer t.Close()
	n := 0
	for {
		if _, err := t.r.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, fmt.Errorf("%s: %w", path, err)
		}
		n++
	}
}

// BatchAppender writes record batches to one CSV file. The first non-empty
// batch truncates the file and writes the header; later batches append.
type BatchAppender struct {
	path    string
	header  []string
	written bool
	rows    int
}

// NewBatchAppender prepares an appender. The file is not touched until the
// first non-empty Append.
func NewBatchAppender(path string, header []string) *BatchAppender {
	return &BatchAppender{path: path, header: header}
}

// Append writes records. An empty batch is a no-op.
func (a *BatchAppender) Append(records [][]string) error {
	if len(records) == 0 {
		return nil
	}
	flag := os.O_WRONLY | os.O_CREATE
	if a.written {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}
	f, err := os.OpenFile(a.path, flag, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if !a.written {
		if err := w.Write(a.header); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.written = true
	a.rows += len(records)
	return nil
}

// Written reports whether the header has been written.
func (a *BatchAppender) Written() bool { return a.written }

// Rows is the number of records written so far.
func (a *BatchAppender) Rows() int { return a.rows }

// WithCRLF ends every record, header included, with "\r\n".
func WithCRLF(w *csv.Writer) { w.UseCRLF = true }

// WriteTableAtomic writes a full table to path+".tmp" and renames it over
// path once fill returns without error. On failure path is left untouched.
func WriteTableAtomic(path string, header []string, fill func(w *csv.Writer) error, opts ...func(*csv.Writer)) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	fail := func(err error) error {
		f.Close()
		os.Remove(tmp)
		return err
	}
	w := csv.NewWriter(f)
	for _, opt := range opts {
		opt(w)
	}
	if err := w.Write(header); err != nil {
		return fail(err)
	}
	if err := fill(w); err != nil {
		return fail(err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
