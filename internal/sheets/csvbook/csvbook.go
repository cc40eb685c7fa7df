// Package csvbook keeps each sheet of a workbook as a CSV file in a
// directory.
package csvbook

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fknsrs.biz/p/ytmetrics/internal/sheets"
)

var ErrBadSheetName = errors.New("csvbook: invalid sheet name")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Workbook struct {
	dir string
	m   sync.Mutex
}

var _ sheets.Workbook = (*Workbook)(nil)

// Open creates dir if it doesn't exist.
func Open(dir string) (*Workbook, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csvbook.Open: %w", err)
	}

	return &Workbook{dir: dir}, nil
}

func (w *Workbook) path(sheet string) (string, error) {
	if sheet == "" || sheet == "." || sheet == ".." || strings.ContainsAny(sheet, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrBadSheetName, sheet)
	}

	return filepath.Join(w.dir, sheet+".csv"), nil
}

func readFile(p string) ([][]string, error) {
	d, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(d, utf8BOM)))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = [][]string{}
	}

	return rows, nil
}

func writeRows(wr io.Writer, rows [][]string) error {
	c := csv.NewWriter(wr)
	if err := c.WriteAll(rows); err != nil {
		return err
	}
	return c.Error()
}

func (w *Workbook) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	p, err := w.path(sheet)
	if err != nil {
		return nil, fmt.Errorf("csvbook.Workbook.ReadRows: %w", err)
	}

	w.m.Lock()
	defer w.m.Unlock()

	rows, err := readFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("csvbook.Workbook.ReadRows: %q: %w", sheet, sheets.ErrSheetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("csvbook.Workbook.ReadRows: %q: %w", sheet, err)
	}

	return rows, nil
}

func (w *Workbook) CreateSheet(ctx context.Context, sheet string, header []string) error {
	p, err := w.path(sheet)
	if err != nil {
		return fmt.Errorf("csvbook.Workbook.CreateSheet: %w", err)
	}

	w.m.Lock()
	defer w.m.Unlock()

	fd, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("csvbook.Workbook.CreateSheet: %q: %w", sheet, err)
	}
	defer fd.Close()

	if err := writeRows(fd, [][]string{header}); err != nil {
		return fmt.Errorf("csvbook.Workbook.CreateSheet: %q: %w", sheet, err)
	}

	return fd.Close()
}

func (w *Workbook) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	p, err := w.path(sheet)
	if err != nil {
		return fmt.Errorf("csvbook.Workbook.AppendRows: %w", err)
	}

	w.m.Lock()
	defer w.m.Unlock()

	fd, err := os.OpenFile(p, os.O_WRONLY|os.O_APPEND, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("csvbook.Workbook.AppendRows: %q: %w", sheet, sheets.ErrSheetNotFound)
	}
	if err != nil {
		return fmt.Errorf("csvbook.Workbook.AppendRows: %q: %w", sheet, err)
	}
	defer fd.Close()

	if err := writeRows(fd, rows); err != nil {
		return fmt.Errorf("csvbook.Workbook.AppendRows: %q: %w", sheet, err)
	}

	return fd.Close()
}

// ReplaceRows writes to a temporary file and renames it over the sheet, so
// readers never see a partial sheet.
func (w *Workbook) ReplaceRows(ctx context.Context, sheet string, rows [][]string) error {
	p, err := w.path(sheet)
	if err != nil {
		return fmt.Errorf("csvbook.Workbook.ReplaceRows: %w", err)
	}

	w.m.Lock()
	defer w.m.Unlock()

	fd, err := os.CreateTemp(w.dir, "."+sheet+".*.tmp")
	if err != nil {
		return fmt.Errorf("csvbook.Workbook.ReplaceRows: %q: %w", sheet, err)
	}
	defer os.Remove(fd.Name())
	defer fd.Close()

	if err := writeRows(fd, rows); err != nil {
		return fmt.Errorf("csvbook.Workbook.ReplaceRows: %q: %w", sheet, err)
	}
	if err := fd.Close(); err != nil {
		return fmt.Errorf("csvbook.Workbook.ReplaceRows: %q: %w", sheet, err)
	}

	if err := os.Rename(fd.Name(), p); err != nil {
		return fmt.Errorf("csvbook.Workbook.ReplaceRows: %q: %w", sheet, err)
	}

	return nil
}
