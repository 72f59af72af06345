package meal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field 正規欄位名稱
type Field string

const (
	FieldName     Field = "name"
	FieldCategory Field = "category"
	FieldCalories Field = "calories"
	FieldProtein  Field = "protein"
	FieldCarbs    Field = "carbs"
	FieldFat      Field = "fat"
	FieldScore    Field = "score"
	FieldDay      Field = "day"
	FieldMeal     Field = "meal"
)

// fieldAliases 每個正規欄位依序嘗試的原始欄位名稱
var fieldAliases = map[Field][]string{
	FieldName:     {"Name", "name"},
	FieldCategory: {"Category", "category"},
	FieldCalories: {"Calories", "calories"},
	FieldProtein:  {"Protein", "protein"},
	FieldCarbs:    {"Carbs", "carbs"},
	FieldFat:      {"Fat", "fat"},
	FieldScore:    {"Score", "final_score", "score"},
	FieldDay:      {"Day", "day"},
	FieldMeal:     {"Meal", "meal"},
}

// Lookup 依別名順序取出第一個非空白的值（已去除前後空白），全部缺少時回傳空字串
func (r RawRecord) Lookup(f Field) string {
	for _, key := range fieldAliases[f] {
		v, ok := r[key]
		if !ok {
			continue
		}
		if s := strings.TrimSpace(stringify(v)); s != "" {
			return s
		}
	}
	return ""
}

// Number 取出欄位並轉為數值，無法解析時為 nil
func (r RawRecord) Number(f Field) *float64 {
	return ParseNumber(r.Lookup(f))
}

// stringify 將任意原始值轉為字串，nil 視為空字串
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
