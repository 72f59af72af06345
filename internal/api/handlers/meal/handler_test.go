package meal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dietflow/internal/core/dashboard"
	mealCore "dietflow/internal/core/meal"
	"dietflow/internal/core/source"
	"dietflow/internal/core/view"
	"dietflow/internal/infrastructure/config"
	"dietflow/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, recs source.Source) (*gin.Engine, *view.Registry) {
	t.Helper()

	plan := source.NewStaticSource("plan", []mealCore.RawRecord{
		{"day": "Tue", "meal": "Dinner", "name": "Fish", "calories": "500"},
		{"day": "Mon", "meal": "Breakfast", "name": "Eggs", "calories": "250"},
	})
	views := view.NewRegistry(&config.ViewsConfig{MaxViews: 10, IdleTTL: time.Minute})
	t.Cleanup(views.Close)

	r := gin.New()
	NewHandler(dashboard.NewService(recs, plan), views, false).Register(r.Group("/api/v1"))
	return r, views
}

func staticRecs() source.Source {
	return source.NewStaticSource("recs", []mealCore.RawRecord{
		{"name": "Chicken Bowl", "category": "Lunch", "calories": "650", "protein": "40", "score": "0.9"},
		{"name": "Pasta", "category": "Dinner", "calories": "900", "protein": "25", "score": "0.7"},
		{"name": "Salad", "category": "Lunch", "calories": "300", "protein": "10", "score": "0.8"},
	})
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func resultNames(res mealCore.Result) []string {
	out := make([]string, len(res.Items))
	for i, r := range res.Items {
		out[i] = r.Name
	}
	return out
}

func TestHandleRecommendations(t *testing.T) {
	r, _ := newTestRouter(t, staticRecs())

	tests := []struct {
		name   string
		query  string
		status int
		want   []string
	}{
		{"defaults", "", http.StatusOK, []string{"Chicken Bowl", "Salad", "Pasta"}},
		{"filtered", "?text=lunch&sort=calories", http.StatusOK, []string{"Salad", "Chicken Bowl"}},
		{"alias", "?calMax=400", http.StatusOK, []string{"Salad"}},
		{"invalid number", "?calories_max=lots", http.StatusBadRequest, nil},
		{"cache buster ignored", "?_=1700000000&calMax=400", http.StatusOK, []string{"Salad"}},
		{"unknown param ignored", "?sugar=1", http.StatusOK, []string{"Chicken Bowl", "Salad", "Pasta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/api/v1/recommendations"+tt.query, "")
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				resp := decode[common.ErrorResponse](t, w)
				assert.Equal(t, common.ErrCodeInvalidQueryInput, resp.Code)
				return
			}
			res := decode[mealCore.Result](t, w)
			assert.Equal(t, tt.want, resultNames(res))
			assert.Equal(t, len(tt.want), res.Total)
			assert.Equal(t, mealCore.CountText(len(tt.want)), res.CountText)
		})
	}
}

func TestHandleQueryRows(t *testing.T) {
	r, _ := newTestRouter(t, staticRecs())

	body := `{"rows":[{"Name":"A","Calories":100,"Score":0.1},{"Name":"B","Calories":"200","Score":"0.5"},{"Name":"C"}],"query":{"sort":"score","calories_max":150.5}}`
	w := do(r, http.MethodPost, "/api/v1/recommendations/query", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[mealCore.Result](t, w)
	assert.Equal(t, []string{"A"}, resultNames(res))
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 150.5, res.Query.CaloriesMax)

	w = do(r, http.MethodPost, "/api/v1/recommendations/query", `{"query":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrCodeInvalidRows, decode[common.ErrorResponse](t, w).Code)

	w = do(r, http.MethodPost, "/api/v1/recommendations/query", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestViewLifecycle(t *testing.T) {
	r, views := newTestRouter(t, staticRecs())

	w := do(r, http.MethodPost, "/api/v1/views", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	snap := decode[view.Snapshot](t, w)
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, mealCore.DefaultQueryState(), snap.Query)
	assert.Equal(t, 1, views.Len())

	path := "/api/v1/views/" + snap.ID

	w = do(r, http.MethodPatch, path+"/query", `{"field":"calories_max","value":700}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap = decode[view.Snapshot](t, w)
	assert.Equal(t, []string{"Chicken Bowl", "Salad"}, resultNames(snap.Result))

	// 無效輸入保留原條件並附上未變更的結果
	w = do(r, http.MethodPatch, path+"/query", `{"field":"calories_max","value":"lots"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	invalid := decode[InvalidQueryResponse](t, w)
	assert.Equal(t, common.ErrCodeInvalidQueryInput, invalid.Code)
	assert.Equal(t, 700.0, invalid.View.Query.CaloriesMax)
	assert.Equal(t, snap.Result, invalid.View.Result)

	w = do(r, http.MethodPatch, path+"/query", `{"value":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrCodeInvalidRequest, decode[common.ErrorResponse](t, w).Code)

	w = do(r, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, snap.Result, decode[view.Snapshot](t, w).Result)

	w = do(r, http.MethodGet, path+"/charts", "")
	require.Equal(t, http.StatusOK, w.Code)
	charts := decode[mealCore.RecommendationCharts](t, w)
	assert.Equal(t, 2, charts.Calories.Total)
	assert.Nil(t, charts.Protein)

	w = do(r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, common.ErrCodeViewNotFound, decode[common.ErrorResponse](t, w).Code)
}

func TestHandlePlanAndAnalytics(t *testing.T) {
	r, _ := newTestRouter(t, staticRecs())

	w := do(r, http.MethodGet, "/api/v1/plan", "")
	require.Equal(t, http.StatusOK, w.Code)
	plan := decode[dashboard.PlanView](t, w)
	require.Len(t, plan.Days, 2)
	assert.Equal(t, "Mon", plan.Days[0].Day)
	assert.Equal(t, "Eggs", plan.Days[0].Meals.Breakfast[0].Name)
	assert.Equal(t, "Tue", plan.Days[1].Day)
	assert.Equal(t, 500.0, plan.Days[1].TotalCalories)

	w = do(r, http.MethodGet, "/api/v1/analytics", "")
	require.Equal(t, http.StatusOK, w.Code)
	a := decode[mealCore.Analytics](t, w)
	assert.Equal(t, 3, a.CaloriesHistogram.Total)
	require.Len(t, a.WeeklyCalories, 7)
	assert.Equal(t, 250.0, a.WeeklyCalories[0].Calories)
}

func TestFetchFailureIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	recs := source.NewCSVSource(srv.URL+"/recs.csv", &config.SourceConfig{Timeout: time.Second}, nil)
	r, views := newTestRouter(t, recs)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/recommendations"},
		{http.MethodPost, "/api/v1/views"},
		{http.MethodGet, "/api/v1/analytics"},
	} {
		w := do(r, req.method, req.path, "")
		assert.Equal(t, http.StatusBadGateway, w.Code, req.path)
		assert.Equal(t, common.ErrCodeFetchFailed, decode[common.ErrorResponse](t, w).Code)
	}
	assert.Zero(t, views.Len())
}
