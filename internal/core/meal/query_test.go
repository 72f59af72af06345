package meal

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(items []Recommendation) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.Name
	}
	return out
}

func TestRecomputeDefaultStateExcludesHighCalories(t *testing.T) {
	recs := NormalizeRecommendations([]RawRecord{
		{"name": "X", "calories": "500", "protein": "", "score": "0.9"},
		{"name": "Y", "calories": "1500", "score": "0.8"},
	})

	res := Recompute(recs, DefaultQueryState())

	assert.Equal(t, []string{"X"}, names(res.Items))
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "1 results (showing top 60)", res.CountText)
}

func TestRecomputeProteinSortPutsMissingLast(t *testing.T) {
	recs := NormalizeRecommendations([]RawRecord{
		{"name": "A", "calories": "100", "protein": "10"},
		{"name": "B", "calories": "100"},
		{"name": "C", "calories": "100", "protein": "20"},
	})
	state := DefaultQueryState()
	state.Sort = SortByProtein

	res := Recompute(recs, state)

	assert.Equal(t, []string{"C", "A", "B"}, names(res.Items))
}

func TestRecomputeMissingCaloriesNeverPasses(t *testing.T) {
	recs := NormalizeRecommendations([]RawRecord{
		{"name": "Oatmeal", "calories": "NaN", "score": "1"},
		{"name": "Toast", "calories": "200"},
	})
	require.Len(t, recs, 2)

	state := DefaultQueryState()
	state.CaloriesMax = 1e9

	assert.Equal(t, []string{"Toast"}, names(Recompute(recs, state).Items))
}

func TestRecomputeFilters(t *testing.T) {
	recs := []Recommendation{
		{Name: "Chicken Bowl", Category: "High Protein", Calories: num(600), Protein: num(40), Carbs: num(50), Fat: num(20)},
		{Name: "Pasta", Category: "Italian", Calories: num(800), Protein: num(15), Carbs: num(110), Fat: num(25)},
		{Name: "Salad", Category: "Vegan", Calories: num(250)},
		{Name: "Burger", Category: "Fast food", Calories: num(1100), Protein: num(30), Carbs: num(90), Fat: num(130)},
	}

	tests := []struct {
		name     string
		mutate   func(s *QueryState)
		expected []string
	}{
		{"defaults", func(s *QueryState) {}, []string{"Salad", "Chicken Bowl", "Pasta"}},
		{"text matches name case-insensitively", func(s *QueryState) { s.Text = "  CHICKEN " }, []string{"Chicken Bowl"}},
		{"text matches category", func(s *QueryState) { s.Text = "vegan" }, []string{"Salad"}},
		{"text spans name and category", func(s *QueryState) { s.Text = "pasta ital" }, []string{"Pasta"}},
		{"text without match", func(s *QueryState) { s.Text = "sushi" }, []string{}},
		{"calories max inclusive", func(s *QueryState) { s.CaloriesMax = 600 }, []string{"Salad", "Chicken Bowl"}},
		{"protein min keeps missing protein", func(s *QueryState) { s.ProteinMin = 20 }, []string{"Salad", "Chicken Bowl"}},
		{"carbs max keeps missing carbs", func(s *QueryState) { s.CarbsMax = 60 }, []string{"Salad", "Chicken Bowl"}},
		{"fat max", func(s *QueryState) { s.FatMax = 200; s.CaloriesMax = 2000 }, []string{"Salad", "Chicken Bowl", "Pasta", "Burger"}},
		{"sort by calories", func(s *QueryState) { s.Sort = SortByCalories }, []string{"Salad", "Chicken Bowl", "Pasta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := DefaultQueryState()
			tt.mutate(&state)
			res := Recompute(recs, state)
			assert.Equal(t, tt.expected, names(res.Items))
			for _, r := range res.Items {
				assert.True(t, state.Matches(r))
			}
		})
	}
}

func TestRecomputeScoreSort(t *testing.T) {
	recs := []Recommendation{
		{Name: "no-score", Calories: num(100)},
		{Name: "low", Calories: num(100), Score: num(0.1)},
		{Name: "high-heavy", Calories: num(900), Score: num(0.9)},
		{Name: "high-light", Calories: num(300), Score: num(0.9)},
		{Name: "negative", Calories: num(100), Score: num(-5)},
	}

	res := Recompute(recs, DefaultQueryState())

	assert.Equal(t, []string{"high-light", "high-heavy", "low", "negative", "no-score"}, names(res.Items))
}

func TestRecomputeIsStable(t *testing.T) {
	var recs []Recommendation
	for i := 0; i < 20; i++ {
		recs = append(recs, Recommendation{Name: fmt.Sprintf("r%02d", i), Calories: num(500), Protein: num(10), Score: num(0.5)})
	}
	recs = append(recs, Recommendation{Name: "missing-a", Calories: num(500)}, Recommendation{Name: "missing-b", Calories: num(500)})

	for _, mode := range SortModes {
		t.Run(string(mode), func(t *testing.T) {
			state := DefaultQueryState()
			state.Sort = mode
			res := Recompute(recs, state)

			pos := make(map[string]int, len(res.Items))
			for i, r := range res.Items {
				pos[r.Name] = i
			}
			for i := 1; i < 20; i++ {
				assert.Less(t, pos[fmt.Sprintf("r%02d", i-1)], pos[fmt.Sprintf("r%02d", i)])
			}
			assert.Less(t, pos["missing-a"], pos["missing-b"])
		})
	}
}

func TestRecomputeCapsResults(t *testing.T) {
	recs := make([]Recommendation, 0, 150)
	for i := 0; i < 150; i++ {
		recs = append(recs, Recommendation{Name: fmt.Sprintf("meal-%d", i), Calories: num(float64(i)), Score: num(float64(i))})
	}

	res := Recompute(recs, DefaultQueryState())

	assert.Len(t, res.Items, MaxResults)
	assert.Equal(t, MaxResults, res.Count)
	assert.Equal(t, 150, res.Total)
	assert.Equal(t, "60 results (showing top 60)", res.CountText)
	assert.Equal(t, "meal-149", res.Items[0].Name)
}

func TestRecomputeDoesNotMutateInput(t *testing.T) {
	recs := []Recommendation{
		{Name: "b", Calories: num(300), Score: num(0.1)},
		{Name: "a", Calories: num(200), Score: num(0.9)},
	}
	before := append([]Recommendation(nil), recs...)

	first := Recompute(recs, DefaultQueryState())
	second := Recompute(recs, DefaultQueryState())

	assert.Equal(t, before, recs)
	assert.Equal(t, first, second)
}

func TestRecomputeRandomizedInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	maybe := func(max float64) *float64 {
		if rng.Intn(4) == 0 {
			return nil
		}
		return num(float64(rng.Intn(int(max))))
	}

	for round := 0; round < 50; round++ {
		recs := make([]Recommendation, rng.Intn(200))
		for i := range recs {
			recs[i] = Recommendation{
				Name:     fmt.Sprintf("meal %d", i),
				Category: []string{"Breakfast", "Lunch", "Dinner"}[rng.Intn(3)],
				Calories: maybe(1600),
				Protein:  maybe(80),
				Carbs:    maybe(250),
				Fat:      maybe(150),
				Score:    maybe(100),
			}
		}
		state := DefaultQueryState()
		state.Sort = SortModes[rng.Intn(len(SortModes))]
		state.ProteinMin = float64(rng.Intn(30))

		res := Recompute(recs, state)

		require.LessOrEqual(t, len(res.Items), MaxResults)
		require.LessOrEqual(t, res.Count, res.Total)
		for _, r := range res.Items {
			require.True(t, state.Matches(r))
		}
		for i := 1; i < len(res.Items); i++ {
			require.LessOrEqual(t, comparatorFor(state.Sort)(res.Items[i-1], res.Items[i]), 0)
		}
	}
}
