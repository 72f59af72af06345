package meal

import "slices"

const (
	// HistogramBins 直方圖預設分箱數
	HistogramBins = 30
	// proteinHistogramMinValues 蛋白質有效值超過此筆數才產生直方圖
	proteinHistogramMinValues = 10
)

// HistogramBin 直方圖的單一分箱，範圍為 [Start, End)，最後一箱包含 End
type HistogramBin struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int     `json:"count"`
}

// Histogram 直方圖
type Histogram struct {
	Name  string         `json:"name"`
	Total int            `json:"total"`
	Bins  []HistogramBin `json:"bins"`
}

// NewHistogram 以等寬分箱計算直方圖
func NewHistogram(name string, values []float64, bins int) Histogram {
	h := Histogram{Name: name, Total: len(values), Bins: []HistogramBin{}}
	if len(values) == 0 || bins <= 0 {
		return h
	}

	lo, hi := slices.Min(values), slices.Max(values)
	if lo == hi {
		h.Bins = append(h.Bins, HistogramBin{Start: lo, End: hi, Count: len(values)})
		return h
	}

	width := (hi - lo) / float64(bins)
	h.Bins = make([]HistogramBin, bins)
	for i := range h.Bins {
		h.Bins[i].Start = lo + float64(i)*width
		h.Bins[i].End = lo + float64(i+1)*width
	}
	h.Bins[bins-1].End = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		h.Bins[idx].Count++
	}
	return h
}

// ScatterPoint 散佈圖座標
type ScatterPoint struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// DayTotal 單日熱量總和
type DayTotal struct {
	Day      string  `json:"day"`
	Calories float64 `json:"calories"`
}

// RecommendationCharts 推薦結果的分布圖資料
type RecommendationCharts struct {
	Calories Histogram  `json:"calories"`
	Score    Histogram  `json:"score"`
	Protein  *Histogram `json:"protein,omitempty"`
}

// Analytics 分析頁的圖表資料
type Analytics struct {
	CaloriesHistogram Histogram            `json:"calories_histogram"`
	Distributions     RecommendationCharts `json:"distributions"`
	ScoreScatter      []ScatterPoint       `json:"score_scatter"`
	WeeklyCalories    []DayTotal           `json:"weekly_calories"`
}

func presentValues(items []Recommendation, get func(Recommendation) *float64) []float64 {
	out := make([]float64, 0, len(items))
	for _, r := range items {
		if v := get(r); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// NewRecommendationCharts 計算熱量、分數與蛋白質的直方圖
// 蛋白質直方圖只在有效值超過 10 筆時產生。
func NewRecommendationCharts(items []Recommendation) RecommendationCharts {
	charts := RecommendationCharts{
		Calories: NewHistogram("Calories", presentValues(items, func(r Recommendation) *float64 { return r.Calories }), HistogramBins),
		Score:    NewHistogram("Score", presentValues(items, func(r Recommendation) *float64 { return r.Score }), HistogramBins),
	}
	if protein := presentValues(items, func(r Recommendation) *float64 { return r.Protein }); len(protein) > proteinHistogramMinValues {
		h := NewHistogram("Protein", protein, HistogramBins)
		charts.Protein = &h
	}
	return charts
}

// CaloriesScoreScatter 熱量對分數的散佈圖，缺少分數時以 0 表示
func CaloriesScoreScatter(items []Recommendation) []ScatterPoint {
	points := make([]ScatterPoint, 0, len(items))
	for _, r := range items {
		if r.Calories == nil {
			continue
		}
		points = append(points, ScatterPoint{Name: r.Name, X: *r.Calories, Y: valueOr(r.Score, 0)})
	}
	return points
}

// WeeklyCalorieTotals 依 DayOrder 計算每日熱量總和，沒有資料的日子為 0
func WeeklyCalorieTotals(entries []PlanEntry) []DayTotal {
	sums := make(map[string]float64, len(DayOrder))
	for _, e := range entries {
		if e.Calories != nil {
			sums[e.Day] += *e.Calories
		}
	}
	totals := make([]DayTotal, len(DayOrder))
	for i, day := range DayOrder {
		totals[i] = DayTotal{Day: day, Calories: sums[day]}
	}
	return totals
}

// NewAnalytics 彙整分析頁需要的所有圖表資料
func NewAnalytics(recs []Recommendation, plan []PlanEntry) Analytics {
	charts := NewRecommendationCharts(recs)
	return Analytics{
		CaloriesHistogram: charts.Calories,
		Distributions:     charts,
		ScoreScatter:      CaloriesScoreScatter(recs),
		WeeklyCalories:    WeeklyCalorieTotals(plan),
	}
}
