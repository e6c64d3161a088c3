// Package export writes the records of the current view to a file.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	nt "opgateway/entity"
)

const (
	pageSize  = 500
	sheetName = "Records"
)

// Pager pages through a view of records.
type Pager interface {
	GetView() (fields []nt.Field, count int, err error)
	GetPage(offset, size int) (lines []nt.Line, err error)
}

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (format Format, err error) {

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		format = CSV
	case ".xlsx":
		format = XLSX
	default:
		err = errors.Errorf("no export format for %q, use .csv or .xlsx", path)
	}
	return
}

// Write exports every record of the view to path, in the format its extension names.
// Columns hidden in the layout are left out; with no layout every field is written.
func Write(pgr Pager, columns []nt.Column, path string) (count int, err error) {

	format, err := FormatOf(path)
	if err != nil {
		return
	}

	switch format {
	case XLSX:
		count, err = WriteXLSX(pgr, columns, path)
	default:
		var file *os.File
		file, err = os.Create(path)
		if err != nil {
			err = errors.Wrapf(err, "failed to create %s", path)
			return
		}
		defer file.Close()

		count, err = WriteCSV(file, pgr, columns)
	}
	return
}

// WriteCSV writes a header row and then a row per record.
func WriteCSV(wtr io.Writer, pgr Pager, columns []nt.Column) (count int, err error) {

	cw := csv.NewWriter(wtr)

	count, err = each(pgr, columns, func(row []any) error {
		record := make([]string, len(row))
		for i, val := range row {
			record[i] = cellText(val)
		}
		return cw.Write(record)
	})
	if err != nil {
		return
	}

	cw.Flush()
	err = errors.Wrapf(cw.Error(), "failed to write csv")
	return
}

// WriteXLSX writes records to a single sheet workbook at path.
func WriteXLSX(pgr Pager, columns []nt.Column, path string) (count int, err error) {

	book := excelize.NewFile()
	defer book.Close()

	err = book.SetSheetName("Sheet1", sheetName)
	if err != nil {
		err = errors.Wrapf(err, "failed to name sheet")
		return
	}

	sw, err := book.NewStreamWriter(sheetName)
	if err != nil {
		err = errors.Wrapf(err, "failed to create stream writer")
		return
	}

	rowNum := 1
	count, err = each(pgr, columns, func(row []any) error {
		cell, cellErr := excelize.CoordinatesToCellName(1, rowNum)
		if cellErr != nil {
			return cellErr
		}
		rowNum++

		values := make([]any, len(row))
		for i, val := range row {
			values[i] = cellValue(val)
		}
		return sw.SetRow(cell, values)
	})
	if err != nil {
		err = errors.Wrapf(err, "failed to write xlsx rows")
		return
	}

	err = sw.Flush()
	if err != nil {
		err = errors.Wrapf(err, "failed to flush xlsx rows")
		return
	}

	err = book.SaveAs(path)
	err = errors.Wrapf(err, "failed to save %s", path)
	return
}

// unexported

// each calls emit with the header row and then with each record, returning the number of records
func each(pgr Pager, columns []nt.Column, emit func([]any) error) (count int, err error) {

	fields, total, err := pgr.GetView()
	if err != nil {
		return
	}

	idxs, header := selectFields(fields, columns)
	err = emit(header)
	if err != nil {
		return
	}

	for offset := 0; offset < total; offset += pageSize {
		var lines []nt.Line
		lines, err = pgr.GetPage(offset, pageSize)
		if err != nil {
			return
		}
		if len(lines) == 0 {
			break
		}

		for _, line := range lines {
			row := make([]any, len(idxs))
			for i, idx := range idxs {
				if idx < len(line.Values) {
					row[i] = line.Values[idx].Raw
				}
			}

			err = emit(row)
			if err != nil {
				return
			}
			count++
		}
	}
	return
}

func selectFields(fields []nt.Field, columns []nt.Column) (idxs []int, header []any) {

	idxByName := map[string]int{}
	for i, field := range fields {
		idxByName[field.Name] = i
	}

	for _, col := range columns {
		idx, ok := idxByName[col.Field]
		if !ok || col.Hidden || col.Demote {
			continue
		}
		idxs = append(idxs, idx)
		header = append(header, col.Field)
	}

	if len(idxs) == 0 {
		for i, field := range fields {
			idxs = append(idxs, i)
			header = append(header, field.Name)
		}
	}
	return
}

func cellText(val any) string {
	switch val := val.(type) {
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case string:
		return val
	}
	return nt.Value{Raw: val}.String()
}

func cellValue(val any) any {
	switch val := val.(type) {
	case nil, string, bool, float64, int64, int32, int, time.Time:
		return val
	}
	return nt.Value{Raw: val}.String()
}
