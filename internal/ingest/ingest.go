// Package ingest turns uploaded workbooks into named, rectangular grids.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/nconklindev/yearview/internal/types"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrEmptyWorkbook     = errors.New("file does not contain any data")
	ErrFileTooLarge      = errors.New("file is too large")
)

// Extensions lists the file types ReadFile accepts.
var Extensions = []string{".xlsx", ".xlsm", ".csv"}

// SheetError reports a sheet that could not be read.
type SheetError struct {
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q: %v", e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

type Options struct {
	// MaxFileSize rejects larger files. Zero means no limit.
	MaxFileSize int64
	// Charset of CSV input; empty means UTF-8.
	Charset string
}

// Supported reports whether the file name has an accepted extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ReadFile reads every non-empty sheet of the workbook at path.
func ReadFile(path string, opts Options) ([]types.Sheet, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if opts.MaxFileSize > 0 {
		fi, err := f.Stat()
		if err != nil {
			return nil, err
		}
		if fi.Size() > opts.MaxFileSize {
			return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, fi.Size(), opts.MaxFileSize)
		}
	}
	return Read(f, filepath.Base(path), opts)
}

// Read reads a workbook from r; name is used for its extension and, for CSV,
// as the sheet name.
func Read(r io.Reader, name string, opts Options) ([]types.Sheet, error) {
	if opts.MaxFileSize > 0 {
		data, err := io.ReadAll(io.LimitReader(r, opts.MaxFileSize+1))
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > opts.MaxFileSize {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, opts.MaxFileSize)
		}
		r = bytes.NewReader(data)
	}

	var (
		sheets []types.Sheet
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		sheets, err = readCSV(r, strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)), opts.Charset)
	case ".xlsx", ".xlsm":
		sheets, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return sheets, nil
}

func readXLSX(r io.Reader) ([]types.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets []types.Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, &SheetError{Sheet: name, Err: err}
		}
		grid := Normalize(rows)
		if grid.Rows() == 0 || grid.Columns() == 0 {
			continue
		}
		sheets = append(sheets, types.Sheet{Name: name, Grid: grid})
	}
	return sheets, nil
}

func readCSV(r io.Reader, name, charset string) ([]types.Sheet, error) {
	enc, err := GetEncoding(charset)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		r = enc.NewDecoder().Reader(r)
	}

	br := bufio.NewReaderSize(r, 1<<20)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte("\xef\xbb\xbf")) {
		br.Discard(3)
	}
	head, err := br.Peek(1024)
	if err != nil && len(head) == 0 {
		if err == io.EOF {
			return nil, ErrEmptyWorkbook
		}
		return nil, err
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffSeparator(head)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &SheetError{Sheet: name, Err: err}
	}

	grid := Normalize(records)
	if grid.Rows() == 0 || grid.Columns() == 0 {
		return nil, nil
	}
	return []types.Sheet{{Name: name, Grid: grid}}, nil
}

// sniffSeparator picks the first separator candidate on the first line.
func sniffSeparator(head []byte) rune {
	line := head
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	inQuote := false
	for _, r := range string(line) {
		switch r {
		case '"':
			inQuote = !inQuote
		case ',', ';', '\t', '|':
			if !inQuote {
				return r
			}
		}
	}
	return ','
}

// GetEncoding resolves a charset name; UTF-8 and "" yield a nil encoding.
func GetEncoding(name string) (encoding.Encoding, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, err)
	}
	return enc, nil
}

// Normalize drops rows without any non-blank cell and pads the remaining rows
// to the widest one.
func Normalize(rows [][]string) types.Grid {
	var kept [][]string
	width := 0
	for _, row := range rows {
		if !hasContent(row) {
			continue
		}
		kept = append(kept, row)
		width = max(width, len(row))
	}

	grid := make(types.Grid, len(kept))
	for i, row := range kept {
		padded := make([]string, width)
		copy(padded, row)
		grid[i] = padded
	}
	return grid
}

func hasContent(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}
