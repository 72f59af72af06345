// Package source 載入推薦與週計畫的原始資料列。
package source

import (
	"context"
	"fmt"
	"slices"

	"dietflow/internal/core/meal"
)

// Source 資料來源介面
type Source interface {
	// FetchRows 讀取全部資料列，成功時可能回傳空切片
	FetchRows(ctx context.Context) ([]meal.RawRecord, error)
	// Resource 資料來源識別
	Resource() string
}

// FetchError 資料來源讀取失敗
// Status 為 0 表示傳輸層錯誤（連線、逾時、檔案不存在等）。
type FetchError struct {
	Resource string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Resource, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("fetch %s failed", e.Resource)
}

// Unwrap 回傳原始錯誤
func (e *FetchError) Unwrap() error {
	return e.Err
}

// StaticSource 已在記憶體中的資料列
type StaticSource struct {
	name string
	rows []meal.RawRecord
}

// NewStaticSource 建立靜態資料來源
func NewStaticSource(name string, rows []meal.RawRecord) *StaticSource {
	return &StaticSource{name: name, rows: slices.Clone(rows)}
}

// FetchRows 回傳資料列的副本
func (s *StaticSource) FetchRows(ctx context.Context) ([]meal.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := make([]meal.RawRecord, 0, len(s.rows))
	for _, r := range s.rows {
		cp := make(meal.RawRecord, len(r))
		for k, v := range r {
			cp[k] = v
		}
		rows = append(rows, cp)
	}
	return rows, nil
}

// Resource 資料來源識別
func (s *StaticSource) Resource() string {
	return s.name
}
