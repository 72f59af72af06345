// Package dashboard 組合資料來源、正規化、查詢與分組，提供 API 使用的完整流程。
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"dietflow/internal/core/meal"
	"dietflow/internal/core/source"
	"dietflow/internal/pkg/common"

	"go.uber.org/zap"
)

// Service 推薦與週計畫服務
type Service struct {
	recommendations source.Source
	plan            source.Source
}

// PlanView 分組後的週計畫
type PlanView struct {
	Days    []meal.DayGroup `json:"days"`
	Entries int             `json:"entries"`
}

// NewService 創建服務
func NewService(recommendations, plan source.Source) *Service {
	return &Service{
		recommendations: recommendations,
		plan:            plan,
	}
}

// Recommendations 載入並正規化推薦清單
func (s *Service) Recommendations(ctx context.Context) ([]meal.Recommendation, error) {
	rows, err := s.recommendations.FetchRows(ctx)
	if err != nil {
		return nil, fetchFailed(err)
	}
	recs := meal.NormalizeRecommendations(rows)
	common.LogDebug("推薦清單已正規化",
		zap.Int("rows", len(rows)),
		zap.Int("kept", len(recs)),
	)
	return recs, nil
}

// PlanEntries 載入並正規化週計畫
func (s *Service) PlanEntries(ctx context.Context) ([]meal.PlanEntry, error) {
	rows, err := s.plan.FetchRows(ctx)
	if err != nil {
		return nil, fetchFailed(err)
	}
	entries := meal.NormalizePlanEntries(rows)
	common.LogDebug("週計畫已正規化",
		zap.Int("rows", len(rows)),
		zap.Int("kept", len(entries)),
	)
	return entries, nil
}

// Query 以預設條件套用參數後查詢推薦清單
func (s *Service) Query(ctx context.Context, params map[string]string) (meal.Result, error) {
	state, err := BuildQueryState(params)
	if err != nil {
		return meal.Result{}, err
	}

	recs, err := s.Recommendations(ctx)
	if err != nil {
		return meal.Result{}, err
	}
	return meal.Recompute(recs, state), nil
}

// QueryRows 對呼叫端提供的資料列執行相同流程
func (s *Service) QueryRows(rows []meal.RawRecord, query map[string]any) (meal.Result, error) {
	state, err := buildQueryState(query)
	if err != nil {
		return meal.Result{}, err
	}
	return meal.Recompute(meal.NormalizeRecommendations(rows), state), nil
}

// Plan 載入並依日期與餐別分組週計畫
func (s *Service) Plan(ctx context.Context) (PlanView, error) {
	entries, err := s.PlanEntries(ctx)
	if err != nil {
		return PlanView{}, err
	}
	return PlanView{Days: meal.GroupPlan(entries), Entries: len(entries)}, nil
}

// Analytics 載入兩份資料並計算分析圖表
func (s *Service) Analytics(ctx context.Context) (meal.Analytics, error) {
	recs, err := s.Recommendations(ctx)
	if err != nil {
		return meal.Analytics{}, err
	}
	entries, err := s.PlanEntries(ctx)
	if err != nil {
		return meal.Analytics{}, err
	}
	return meal.NewAnalytics(recs, entries), nil
}

// BuildQueryState 將字串參數套用到預設查詢條件
func BuildQueryState(params map[string]string) (meal.QueryState, error) {
	query := make(map[string]any, len(params))
	for k, v := range params {
		query[k] = v
	}
	return buildQueryState(query)
}

func buildQueryState(query map[string]any) (meal.QueryState, error) {
	state := meal.DefaultQueryState()

	// 依欄位名稱排序，讓錯誤訊息穩定
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := state.SetField(k, query[k]); err != nil {
			return meal.DefaultQueryState(), common.ErrInvalidQueryInput.Wrap(err)
		}
	}
	return state, nil
}

// fetchFailed 將資料來源錯誤歸類為 FETCH_FAILED，請求逾時歸類為 GATEWAY_TIMEOUT
func fetchFailed(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.ErrGatewayTimeout.Wrap(err)
	}
	var fe *source.FetchError
	if errors.As(err, &fe) {
		return common.ErrFetchFailed.Wrap(err)
	}
	return common.ErrFetchFailed.Wrap(fmt.Errorf("load source: %w", err))
}
