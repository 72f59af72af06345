package meal

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// MaxResults 每次查詢最多回傳的筆數
const MaxResults = 60

// SortMode 排序方式
type SortMode string

const (
	SortByScore    SortMode = "score"
	SortByCalories SortMode = "calories"
	SortByProtein  SortMode = "protein"
)

// SortModes 所有支援的排序方式
var SortModes = []SortMode{SortByScore, SortByCalories, SortByProtein}

// Valid 檢查是否為支援的排序方式
func (m SortMode) Valid() bool {
	return slices.Contains(SortModes, m)
}

// QueryState 推薦檢視的篩選與排序條件
type QueryState struct {
	Text        string   `json:"text"`
	CaloriesMax float64  `json:"calories_max"`
	ProteinMin  float64  `json:"protein_min"`
	CarbsMax    float64  `json:"carbs_max"`
	FatMax      float64  `json:"fat_max"`
	Sort        SortMode `json:"sort"`
}

// DefaultQueryState 檢視初始化時的預設條件
func DefaultQueryState() QueryState {
	return QueryState{
		Text:        "",
		CaloriesMax: 1200,
		ProteinMin:  0,
		CarbsMax:    200,
		FatMax:      120,
		Sort:        SortByScore,
	}
}

// Result 一次查詢的結果
type Result struct {
	Items     []Recommendation `json:"items"`
	Count     int              `json:"count"`
	Total     int              `json:"total"`
	CountText string           `json:"count_text"`
	Query     QueryState       `json:"query"`
}

// CountText 結果數量的顯示文字
func CountText(n int) string {
	return fmt.Sprintf("%d results (showing top %d)", n, MaxResults)
}

// fold 不分大小寫比對用的字串轉換
func fold(s string) string {
	return cases.Fold().String(s)
}

// matcher 預先處理好搜尋字串的篩選條件
type matcher struct {
	state  QueryState
	needle string
}

func newMatcher(state QueryState) matcher {
	return matcher{state: state, needle: fold(strings.TrimSpace(state.Text))}
}

func (m matcher) match(r Recommendation) bool {
	if m.needle != "" && !strings.Contains(fold(r.Name+" "+r.Category), m.needle) {
		return false
	}
	// 缺少熱量的資料一律排除；其餘營養素缺值時不影響結果
	if r.Calories == nil || *r.Calories > m.state.CaloriesMax {
		return false
	}
	if r.Protein != nil && *r.Protein < m.state.ProteinMin {
		return false
	}
	if r.Carbs != nil && *r.Carbs > m.state.CarbsMax {
		return false
	}
	if r.Fat != nil && *r.Fat > m.state.FatMax {
		return false
	}
	return true
}

// Matches 檢查單筆推薦是否符合篩選條件
func (s QueryState) Matches(r Recommendation) bool {
	return newMatcher(s).match(r)
}

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

func compareScore(a, b Recommendation) int {
	if c := cmp.Compare(valueOr(b.Score, math.Inf(-1)), valueOr(a.Score, math.Inf(-1))); c != 0 {
		return c
	}
	return compareCalories(a, b)
}

func compareCalories(a, b Recommendation) int {
	return cmp.Compare(valueOr(a.Calories, math.Inf(1)), valueOr(b.Calories, math.Inf(1)))
}

func compareProtein(a, b Recommendation) int {
	switch {
	case a.Protein == nil && b.Protein == nil:
		return 0
	case a.Protein == nil:
		return 1
	case b.Protein == nil:
		return -1
	}
	return cmp.Compare(*b.Protein, *a.Protein)
}

func comparatorFor(mode SortMode) func(a, b Recommendation) int {
	switch mode {
	case SortByCalories:
		return compareCalories
	case SortByProtein:
		return compareProtein
	default:
		return compareScore
	}
}

// Recompute 依條件篩選、穩定排序並截取前 MaxResults 筆，不會修改 items
func Recompute(items []Recommendation, state QueryState) Result {
	m := newMatcher(state)
	out := make([]Recommendation, 0, min(len(items), MaxResults))
	for _, r := range items {
		if m.match(r) {
			out = append(out, r)
		}
	}
	total := len(out)

	slices.SortStableFunc(out, comparatorFor(state.Sort))
	if len(out) > MaxResults {
		out = slices.Clip(out[:MaxResults])
	}

	return Result{
		Items:     out,
		Count:     len(out),
		Total:     total,
		CountText: CountText(len(out)),
		Query:     state,
	}
}
