package meal

import (
	"math"
	"strconv"
	"strings"
)

// missingTokens 一律視為缺值的字面值（不分大小寫）
var missingTokens = map[string]bool{
	"nan":  true,
	"null": true,
}

// ParseNumber 將字串解析為有限數值
// 空白、nan、null、無法解析或非有限的值都回傳 nil。
func ParseNumber(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" || missingTokens[strings.ToLower(s)] {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

// NormalizeRecommendation 將原始資料列轉為推薦餐點，名稱為空時 ok 為 false
func NormalizeRecommendation(r RawRecord) (Recommendation, bool) {
	rec := Recommendation{
		Name:     r.Lookup(FieldName),
		Category: r.Lookup(FieldCategory),
		Calories: r.Number(FieldCalories),
		Protein:  r.Number(FieldProtein),
		Carbs:    r.Number(FieldCarbs),
		Fat:      r.Number(FieldFat),
		Score:    r.Number(FieldScore),
	}
	return rec, rec.Name != ""
}

// NormalizeRecommendations 正規化整批資料列，保留輸入順序並丟棄缺少名稱的資料列
func NormalizeRecommendations(rows []RawRecord) []Recommendation {
	out := make([]Recommendation, 0, len(rows))
	for _, row := range rows {
		if rec, ok := NormalizeRecommendation(row); ok {
			out = append(out, rec)
		}
	}
	return out
}

// NormalizePlanEntry 將原始資料列轉為週菜單項目，day、meal、name 任一為空時 ok 為 false
func NormalizePlanEntry(r RawRecord) (PlanEntry, bool) {
	rec, _ := NormalizeRecommendation(r)
	entry := PlanEntry{
		Day:            r.Lookup(FieldDay),
		Meal:           r.Lookup(FieldMeal),
		Recommendation: rec,
	}
	return entry, entry.Day != "" && entry.Meal != "" && entry.Name != ""
}

// NormalizePlanEntries 正規化整批週菜單資料列
func NormalizePlanEntries(rows []RawRecord) []PlanEntry {
	out := make([]PlanEntry, 0, len(rows))
	for _, row := range rows {
		if entry, ok := NormalizePlanEntry(row); ok {
			out = append(out, entry)
		}
	}
	return out
}
