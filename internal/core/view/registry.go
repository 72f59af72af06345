// Package view 管理推薦檢視：每個檢視持有一份推薦清單與可變的查詢條件。
package view

import (
	"sync"
	"time"

	"dietflow/internal/core/meal"
	"dietflow/internal/infrastructure/config"
	"dietflow/internal/pkg/common"

	"go.uber.org/zap"
)

// View 單一推薦檢視
// 同一檢視的查詢變更以 mu 序列化，每次變更都完成一次完整重算。
type View struct {
	ID         string
	CreatedAt  time.Time
	mu         sync.Mutex
	engine     *meal.Engine
	lastAccess time.Time
}

// Snapshot 檢視目前的狀態
type Snapshot struct {
	ID        string          `json:"view_id"`
	CreatedAt time.Time       `json:"created_at"`
	Total     int             `json:"total"`
	Query     meal.QueryState `json:"query"`
	Result    meal.Result     `json:"result"`
}

// Status 檢視註冊表狀態
type Status struct {
	Views    int    `json:"views"`
	MaxViews int    `json:"max_views"`
	IdleTTL  string `json:"idle_ttl"`
	Created  int64  `json:"created"`
	Expired  int64  `json:"expired"`
}

// Registry 檢視註冊表
type Registry struct {
	config    *config.ViewsConfig
	mu        sync.Mutex
	views     map[string]*View
	now       func() time.Time
	created   int64
	expired   int64
	stop      chan struct{}
	closeOnce sync.Once
}

// NewRegistry 創建檢視註冊表並啟動過期清理
func NewRegistry(cfg *config.ViewsConfig) *Registry {
	r := &Registry{
		config: cfg,
		views:  make(map[string]*View),
		now:    time.Now,
		stop:   make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go r.startCleanup()
	}

	common.LogInfo("檢視註冊表已初始化",
		zap.Int("max_views", cfg.MaxViews),
		zap.Duration("idle_ttl", cfg.IdleTTL),
	)
	return r
}

// Create 以推薦清單建立新檢視，查詢條件為預設值
func (r *Registry) Create(items []meal.Recommendation) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.views) >= r.config.MaxViews {
		r.expireIdle()
		if len(r.views) >= r.config.MaxViews {
			common.LogWarn("檢視數量已達上限", zap.Int("views", len(r.views)))
			return Snapshot{}, common.ErrTooManyViews
		}
	}

	now := r.now()
	v := &View{
		ID:         common.GenerateUUID(),
		CreatedAt:  now,
		engine:     meal.NewEngine(items),
		lastAccess: now,
	}
	r.views[v.ID] = v
	r.created++

	common.LogDebug("檢視已建立", zap.String("view_id", v.ID), zap.Int("total", len(items)))
	return v.snapshot(), nil
}

// lookup 取得檢視並更新最後存取時間
func (r *Registry) lookup(id string) (*View, error) {
	if !common.IsUUID(id) {
		return nil, common.ErrViewNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[id]
	if !ok {
		return nil, common.ErrViewNotFound
	}
	now := r.now()
	if r.idle(v, now) {
		delete(r.views, id)
		r.expired++
		return nil, common.ErrViewNotFound
	}
	v.lastAccess = now
	return v, nil
}

// Get 取得檢視目前的結果
func (r *Registry) Get(id string) (Snapshot, error) {
	v, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot(), nil
}

// SetQueryField 變更檢視的一個查詢欄位並重算
// 輸入無效時條件維持不變，回傳未變更的結果與 INVALID_QUERY_INPUT 錯誤。
func (r *Registry) SetQueryField(id, field string, value any) (Snapshot, error) {
	v, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := v.engine.SetQueryField(field, value); err != nil {
		common.LogDebug("查詢條件無效",
			zap.String("view_id", id),
			zap.String("field", field),
			zap.Error(err),
		)
		return v.snapshot(), common.ErrInvalidQueryInput.Wrap(err)
	}
	return v.snapshot(), nil
}

// Charts 以檢視目前的結果計算推薦圖表
func (r *Registry) Charts(id string) (meal.RecommendationCharts, error) {
	v, err := r.lookup(id)
	if err != nil {
		return meal.RecommendationCharts{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return meal.NewRecommendationCharts(v.engine.Result().Items), nil
}

// Delete 移除檢視
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.views[id]; !ok {
		return common.ErrViewNotFound
	}
	delete(r.views, id)
	common.LogDebug("檢視已移除", zap.String("view_id", id))
	return nil
}

// Len 目前的檢視數量
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Status 獲取註冊表狀態
func (r *Registry) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Status{
		Views:    len(r.views),
		MaxViews: r.config.MaxViews,
		IdleTTL:  r.config.IdleTTL.String(),
		Created:  r.created,
		Expired:  r.expired,
	}
}

// Close 停止清理並移除所有檢視
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = make(map[string]*View)
}

func (r *Registry) idle(v *View, now time.Time) bool {
	return r.config.IdleTTL > 0 && now.Sub(v.lastAccess) > r.config.IdleTTL
}

// startCleanup 定期移除閒置過久的檢視
func (r *Registry) startCleanup() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			r.expireIdle()
			r.mu.Unlock()
		case <-r.stop:
			return
		}
	}
}

// expireIdle 移除閒置檢視，呼叫者須持有鎖
func (r *Registry) expireIdle() int {
	now := r.now()
	count := 0
	for id, v := range r.views {
		if r.idle(v, now) {
			delete(r.views, id)
			count++
		}
	}
	r.expired += int64(count)

	if count > 0 {
		common.LogDebug("已清理閒置檢視",
			zap.Int("count", count),
			zap.Int("remaining", len(r.views)),
		)
	}
	return count
}

func (v *View) snapshot() Snapshot {
	return Snapshot{
		ID:        v.ID,
		CreatedAt: v.CreatedAt,
		Total:     v.engine.Len(),
		Query:     v.engine.State(),
		Result:    v.engine.Result(),
	}
}
