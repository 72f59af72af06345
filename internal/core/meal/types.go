// Package meal 提供餐點推薦與週菜單資料的正規化、查詢與分組。
package meal

// RawRecord 未經處理的輸入資料列，鍵為欄位名稱（大小寫可能不同），值可能為字串、數字或 nil
type RawRecord map[string]any

// Recommendation 正規化後的推薦餐點
// 數值欄位為 nil 表示缺值，不會是 NaN 或無限大。
type Recommendation struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Carbs    *float64 `json:"carbs"`
	Fat      *float64 `json:"fat"`
	Score    *float64 `json:"score"`
}

// PlanEntry 正規化後的週菜單項目
type PlanEntry struct {
	Day  string `json:"day"`
	Meal string `json:"meal"`
	Recommendation
}
