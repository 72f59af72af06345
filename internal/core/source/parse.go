package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"dietflow/internal/core/meal"
	"dietflow/internal/pkg/common"
)

const utf8BOM = "\ufeff"

// ParseCSV 以第一列為欄位名稱解析 CSV
// 空白行略過；欄位不足的列缺少的欄位不出現，多出的欄位忽略。
func ParseCSV(r io.Reader) ([]meal.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []meal.RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	keys := headerKeys(header)

	rows := []meal.RawRecord{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if isBlankRecord(record) {
			continue
		}

		row := make(meal.RawRecord, len(keys))
		for i, value := range record {
			if i >= len(keys) {
				break
			}
			if keys[i] == "" {
				continue
			}
			row[keys[i]] = value
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// headerKeys 正規化欄位名稱，重複的名稱只保留第一個
func headerKeys(header []string) []string {
	keys := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		keys[i] = h
	}
	return keys
}

func isBlankRecord(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

// ParseJSONRows 解析 JSON 物件陣列，數字保留為 json.Number
func ParseJSONRows(r io.Reader) ([]meal.RawRecord, error) {
	var rows []meal.RawRecord
	if err := common.DecodeJSON(r, &rows); err != nil {
		return nil, fmt.Errorf("decode json rows: %w", err)
	}
	out := make([]meal.RawRecord, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
