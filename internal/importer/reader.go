package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Rowはヘッダー名（小文字に正規化）→セル値
type Row map[string]string

// ReadFileは拡張子で形式を判定して全行を読む。1行目はヘッダー。
func ReadFile(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
}

// ReadCSVはヘッダー付きCSVをRowの列に読む。
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // 列数は行ごとにずれていてもよい

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return rowsFromRecords(records), nil
}

func readXLSX(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	//先頭シートだけ読む
	records, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, err
	}
	return rowsFromRecords(records), nil
}

func rowsFromRecords(records [][]string) []Row {
	if len(records) == 0 {
		return []Row{}
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := Row{}
		for i, cell := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			row[header[i]] = strings.TrimSpace(cell)
		}
		rows = append(rows, row)
	}
	return rows
}
