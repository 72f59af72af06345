package meal

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUnknownQueryField 不支援的查詢欄位
	ErrUnknownQueryField = errors.New("unknown query field")
	// ErrInvalidQueryValue 查詢值型別或格式錯誤
	ErrInvalidQueryValue = errors.New("invalid query value")
)

// QueryField 查詢條件欄位
type QueryField string

const (
	QueryText        QueryField = "text"
	QueryCaloriesMax QueryField = "calories_max"
	QueryProteinMin  QueryField = "protein_min"
	QueryCarbsMax    QueryField = "carbs_max"
	QueryFatMax      QueryField = "fat_max"
	QuerySort        QueryField = "sort"
)

// queryFieldNames 接受的欄位名稱，包含頁面輸入元件的 id
var queryFieldNames = map[string]QueryField{
	"text":         QueryText,
	"q":            QueryText,
	"calories_max": QueryCaloriesMax,
	"calMax":       QueryCaloriesMax,
	"protein_min":  QueryProteinMin,
	"pMin":         QueryProteinMin,
	"carbs_max":    QueryCarbsMax,
	"cMax":         QueryCarbsMax,
	"fat_max":      QueryFatMax,
	"fMax":         QueryFatMax,
	"sort":         QuerySort,
	"sortMode":     QuerySort,
}

// ParseQueryField 解析查詢欄位名稱
func ParseQueryField(name string) (QueryField, error) {
	f, ok := queryFieldNames[strings.TrimSpace(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownQueryField, name)
	}
	return f, nil
}

// SetField 驗證並寫入單一欄位；驗證失敗時 state 保持不變
func (s *QueryState) SetField(name string, value any) error {
	field, err := ParseQueryField(name)
	if err != nil {
		return err
	}

	switch field {
	case QueryText:
		text, err := coerceText(value)
		if err != nil {
			return err
		}
		s.Text = text
	case QuerySort:
		mode, err := coerceSortMode(value)
		if err != nil {
			return err
		}
		s.Sort = mode
	default:
		n, err := coerceNumber(field, value)
		if err != nil {
			return err
		}
		switch field {
		case QueryCaloriesMax:
			s.CaloriesMax = n
		case QueryProteinMin:
			s.ProteinMin = n
		case QueryCarbsMax:
			s.CarbsMax = n
		case QueryFatMax:
			s.FatMax = n
		}
	}
	return nil
}

func coerceText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	}
	return "", fmt.Errorf("%w: text must be a string, got %T", ErrInvalidQueryValue, value)
}

func coerceSortMode(value any) (SortMode, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: sort must be a string, got %T", ErrInvalidQueryValue, value)
	}
	mode := SortMode(strings.ToLower(strings.TrimSpace(s)))
	if !mode.Valid() {
		return "", fmt.Errorf("%w: sort must be one of %v, got %q", ErrInvalidQueryValue, SortModes, s)
	}
	return mode, nil
}

func coerceNumber(field QueryField, value any) (float64, error) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		p := ParseNumber(v.String())
		if p == nil {
			return 0, fmt.Errorf("%w: %s must be a finite number, got %q", ErrInvalidQueryValue, field, v)
		}
		n = *p
	case string:
		p := ParseNumber(v)
		if p == nil {
			return 0, fmt.Errorf("%w: %s must be a finite number, got %q", ErrInvalidQueryValue, field, v)
		}
		n = *p
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidQueryValue, field, value)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number", ErrInvalidQueryValue, field)
	}
	return n, nil
}

// Engine 持有已載入的推薦清單與一份可變的查詢條件
// Engine 不是併發安全的，呼叫端需自行串行化。
type Engine struct {
	items  []Recommendation
	state  QueryState
	result Result
}

// NewEngine 以預設條件建立查詢引擎並計算第一次結果
func NewEngine(items []Recommendation) *Engine {
	e := &Engine{
		items: append([]Recommendation(nil), items...),
		state: DefaultQueryState(),
	}
	e.Recompute()
	return e
}

// Len 已載入的推薦筆數
func (e *Engine) Len() int {
	return len(e.items)
}

// State 目前的查詢條件
func (e *Engine) State() QueryState {
	return e.state
}

// Result 最近一次計算的結果
func (e *Engine) Result() Result {
	return e.result
}

// Recompute 以目前條件重新計算結果
func (e *Engine) Recompute() Result {
	e.result = Recompute(e.items, e.state)
	return e.result
}

// SetQueryField 更新單一查詢欄位並重新計算
// 輸入無效時保留原本的條件與結果，並回傳錯誤。
func (e *Engine) SetQueryField(field string, value any) (Result, error) {
	next := e.state
	if err := next.SetField(field, value); err != nil {
		return e.result, err
	}
	e.state = next
	return e.Recompute(), nil
}
