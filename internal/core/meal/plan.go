package meal

import "strings"

// DayOrder 週菜單的顯示與彙總順序
var DayOrder = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// MealSlot 餐別
type MealSlot string

const (
	Breakfast MealSlot = "Breakfast"
	Lunch     MealSlot = "Lunch"
	Dinner    MealSlot = "Dinner"
)

// slotKeywords 餐別名稱無法完全比對時，依序嘗試的關鍵字
var slotKeywords = []struct {
	keyword string
	slot    MealSlot
}{
	{"break", Breakfast},
	{"lunch", Lunch},
	{"dinner", Dinner},
}

// SlotForMeal 將 meal 欄位對應到餐別
// 先做大小寫敏感的完全比對，再做不分大小寫的關鍵字比對，都不符合時歸入 Lunch。
func SlotForMeal(meal string) MealSlot {
	switch slot := MealSlot(meal); slot {
	case Breakfast, Lunch, Dinner:
		return slot
	}
	m := fold(meal)
	for _, kw := range slotKeywords {
		if strings.Contains(m, kw.keyword) {
			return kw.slot
		}
	}
	return Lunch
}

// MealBuckets 單日依餐別分組的項目
type MealBuckets struct {
	Breakfast []PlanEntry `json:"breakfast"`
	Lunch     []PlanEntry `json:"lunch"`
	Dinner    []PlanEntry `json:"dinner"`
}

func newMealBuckets() MealBuckets {
	return MealBuckets{
		Breakfast: []PlanEntry{},
		Lunch:     []PlanEntry{},
		Dinner:    []PlanEntry{},
	}
}

func (b *MealBuckets) add(e PlanEntry) {
	switch SlotForMeal(e.Meal) {
	case Breakfast:
		b.Breakfast = append(b.Breakfast, e)
	case Dinner:
		b.Dinner = append(b.Dinner, e)
	default:
		b.Lunch = append(b.Lunch, e)
	}
}

// Slot 取出指定餐別的項目
func (b MealBuckets) Slot(slot MealSlot) []PlanEntry {
	switch slot {
	case Breakfast:
		return b.Breakfast
	case Dinner:
		return b.Dinner
	default:
		return b.Lunch
	}
}

// DayGroup 單日的週菜單
type DayGroup struct {
	Day           string      `json:"day"`
	Count         int         `json:"count"`
	TotalCalories float64     `json:"total_calories"`
	Entries       []PlanEntry `json:"entries"`
	Meals         MealBuckets `json:"meals"`
}

// GroupPlan 依 DayOrder 將項目分組，沒有項目的日子與不在 DayOrder 內的日子不會出現
func GroupPlan(entries []PlanEntry) []DayGroup {
	byDay := make(map[string][]PlanEntry, len(DayOrder))
	for _, e := range entries {
		byDay[e.Day] = append(byDay[e.Day], e)
	}

	groups := make([]DayGroup, 0, len(DayOrder))
	for _, day := range DayOrder {
		items := byDay[day]
		if len(items) == 0 {
			continue
		}
		g := DayGroup{
			Day:     day,
			Count:   len(items),
			Entries: items,
			Meals:   newMealBuckets(),
		}
		for _, e := range items {
			g.Meals.add(e)
			g.TotalCalories += valueOr(e.Calories, 0)
		}
		groups = append(groups, g)
	}
	return groups
}
