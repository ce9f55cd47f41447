// Package export renders a resolved calendar window as an XLSX workbook or
// an iCalendar feed.
package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

var errNoSheet = errors.New("no active sheet")

// SheetWriter appends rows to sheets of a single workbook.
type SheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
	header       int
}

func NewSheetWriter() *SheetWriter {
	return &SheetWriter{file: excelize.NewFile()}
}

// AddSheet starts a new sheet. The first call renames the default sheet.
func (w *SheetWriter) AddSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column titles and freezes them.
func (w *SheetWriter) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return errNoSheet
	}
	if err := w.setRow(headerRow(columns)); err != nil {
		return err
	}

	if w.header == 0 {
		style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		w.header = style
	}
	start, _ := excelize.CoordinatesToCellName(1, w.currentRow)
	end, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
	if err := w.file.SetCellStyle(w.currentSheet, start, end, w.header); err != nil {
		return err
	}
	if err := w.file.SetPanes(w.currentSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      w.currentRow,
		TopLeftCell: fmt.Sprintf("A%d", w.currentRow+1),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	w.currentRow++
	return nil
}

// WriteRow writes one data row.
func (w *SheetWriter) WriteRow(row []any) error {
	if w.currentSheet == "" {
		return errNoSheet
	}
	if err := w.setRow(row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

func (w *SheetWriter) setRow(row []any) error {
	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	return w.file.SetSheetRow(w.currentSheet, cell, &row)
}

func headerRow(columns []string) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = c
	}
	return out
}

// Save writes the workbook to wr.
func (w *SheetWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *SheetWriter) Close() error {
	return w.file.Close()
}
