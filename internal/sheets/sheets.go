// Package sheets defines the tabular storage that view history is kept in.
// A workbook holds named sheets; each sheet is an ordered list of rows whose
// first row is a header.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrSheetNotFound = errors.New("sheets: sheet not found")

type Workbook interface {
	// ReadRows returns every row including the header, or ErrSheetNotFound.
	ReadRows(ctx context.Context, sheet string) ([][]string, error)
	// CreateSheet creates an empty sheet holding only header. It is a no-op
	// if the sheet already exists.
	CreateSheet(ctx context.Context, sheet string, header []string) error
	// AppendRows adds rows after the existing ones.
	AppendRows(ctx context.Context, sheet string, rows [][]string) error
	// ReplaceRows discards the sheet's contents, creating it if needed, and
	// writes rows (header first).
	ReplaceRows(ctx context.Context, sheet string, rows [][]string) error
}

// Memory is a process-local workbook, used for dry runs and tests.
type Memory struct {
	m      sync.Mutex
	sheets map[string][][]string
}

func NewMemory() *Memory {
	return &Memory{sheets: make(map[string][][]string)}
}

func copyRows(rows [][]string) [][]string {
	r := make([][]string, len(rows))
	for i, row := range rows {
		r[i] = append([]string(nil), row...)
	}
	return r
}

func (w *Memory) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	w.m.Lock()
	defer w.m.Unlock()

	rows, ok := w.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheets.Memory.ReadRows: %q: %w", sheet, ErrSheetNotFound)
	}

	return copyRows(rows), nil
}

func (w *Memory) CreateSheet(ctx context.Context, sheet string, header []string) error {
	w.m.Lock()
	defer w.m.Unlock()

	if _, ok := w.sheets[sheet]; !ok {
		w.sheets[sheet] = [][]string{append([]string(nil), header...)}
	}

	return nil
}

func (w *Memory) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	w.m.Lock()
	defer w.m.Unlock()

	existing, ok := w.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheets.Memory.AppendRows: %q: %w", sheet, ErrSheetNotFound)
	}

	w.sheets[sheet] = append(existing, copyRows(rows)...)

	return nil
}

func (w *Memory) ReplaceRows(ctx context.Context, sheet string, rows [][]string) error {
	w.m.Lock()
	defer w.m.Unlock()

	w.sheets[sheet] = copyRows(rows)

	return nil
}

// Set overwrites a sheet's contents directly.
func (w *Memory) Set(sheet string, rows [][]string) {
	w.m.Lock()
	defer w.m.Unlock()

	w.sheets[sheet] = copyRows(rows)
}
