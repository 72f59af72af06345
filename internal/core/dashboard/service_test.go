package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dietflow/internal/core/meal"
	"dietflow/internal/core/source"
	"dietflow/internal/infrastructure/config"
	"dietflow/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recRows() []meal.RawRecord {
	return []meal.RawRecord{
		{"Name": "Chicken Bowl", "Category": "Lunch", "Calories": "650", "Protein": "40", "Score": "0.9"},
		{"name": "Pasta", "category": "Dinner", "calories": "900", "protein": "25", "score": "0.7"},
		{"name": "Salad", "category": "Lunch", "calories": "300", "protein": "10", "final_score": "0.8"},
		{"name": "Mystery", "calories": "nan"},
		{"name": "  ", "calories": "100"},
	}
}

func planRows() []meal.RawRecord {
	return []meal.RawRecord{
		{"day": "Wed", "meal": "Dinner", "name": "Fish", "calories": "500"},
		{"day": "Mon", "meal": "Breakfast", "name": "Eggs", "calories": "250"},
		{"day": "Mon", "meal": "late lunch", "name": "Soup", "calories": "300"},
		{"day": "Holiday", "meal": "Lunch", "name": "Cake", "calories": "800"},
		{"day": "Tue", "meal": "", "name": "Nothing"},
	}
}

func newTestService() *Service {
	return NewService(
		source.NewStaticSource("recs", recRows()),
		source.NewStaticSource("plan", planRows()),
	)
}

func itemNames(items []meal.Recommendation) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.Name
	}
	return out
}

func TestServiceQuery(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name   string
		params map[string]string
		want   []string
	}{
		{"defaults", nil, []string{"Chicken Bowl", "Salad", "Pasta"}},
		{"text", map[string]string{"text": "LUNCH"}, []string{"Chicken Bowl", "Salad"}},
		{"calories", map[string]string{"calories_max": "700", "sort": "calories"}, []string{"Salad", "Chicken Bowl"}},
		{"protein sort alias", map[string]string{"sortMode": "protein"}, []string{"Chicken Bowl", "Pasta", "Salad"}},
		{"protein min", map[string]string{"pMin": "30"}, []string{"Chicken Bowl"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Query(ctx, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, itemNames(res.Items))
			assert.Equal(t, len(tt.want), res.Total)
		})
	}
}

func TestServiceQueryInvalid(t *testing.T) {
	_, err := newTestService().Query(context.Background(), map[string]string{"calories_max": "abc"})
	assert.ErrorIs(t, err, common.ErrInvalidQueryInput)
	assert.ErrorIs(t, err, meal.ErrInvalidQueryValue)

	_, err = newTestService().Query(context.Background(), map[string]string{"colour": "red"})
	assert.ErrorIs(t, err, meal.ErrUnknownQueryField)
}

func TestServiceQueryRows(t *testing.T) {
	res, err := newTestService().QueryRows(recRows(), map[string]any{"calories_max": 500.0})
	require.NoError(t, err)
	assert.Equal(t, []string{"Salad"}, itemNames(res.Items))
	assert.Equal(t, "1 results (showing top 60)", res.CountText)
}

func TestServicePlan(t *testing.T) {
	plan, err := newTestService().Plan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, plan.Entries)
	require.Len(t, plan.Days, 2)
	assert.Equal(t, "Mon", plan.Days[0].Day)
	assert.Equal(t, 550.0, plan.Days[0].TotalCalories)
	require.Len(t, plan.Days[0].Meals.Breakfast, 1)
	require.Len(t, plan.Days[0].Meals.Lunch, 1)
	assert.Equal(t, "Soup", plan.Days[0].Meals.Lunch[0].Name)
	assert.Equal(t, "Wed", plan.Days[1].Day)
}

func TestServiceAnalytics(t *testing.T) {
	a, err := newTestService().Analytics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, a.CaloriesHistogram.Total)
	assert.Len(t, a.ScoreScatter, 3)
	require.Len(t, a.WeeklyCalories, 7)
	assert.Equal(t, 550.0, a.WeeklyCalories[0].Calories)
	assert.Equal(t, 0.0, a.WeeklyCalories[1].Calories)
	assert.Equal(t, 500.0, a.WeeklyCalories[2].Calories)
}

func TestServiceFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := &config.SourceConfig{Timeout: time.Second}
	svc := NewService(source.NewCSVSource(srv.URL+"/recs.csv", cfg, nil), source.NewStaticSource("plan", planRows()))

	_, err := svc.Query(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrFetchFailed)

	var fe *source.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusInternalServerError, fe.Status)

	_, err = svc.Analytics(context.Background())
	assert.ErrorIs(t, err, common.ErrFetchFailed)

	_, err = svc.Plan(context.Background())
	assert.NoError(t, err)
}

func TestServiceFetchDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := &config.SourceConfig{Timeout: 5 * time.Second}
	svc := NewService(source.NewCSVSource(srv.URL+"/recs.csv", cfg, nil), source.NewStaticSource("plan", planRows()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Query(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrGatewayTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var fe *source.FetchError
	assert.True(t, errors.As(err, &fe))
}
