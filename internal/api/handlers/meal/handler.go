package meal

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"dietflow/internal/core/dashboard"
	mealCore "dietflow/internal/core/meal"
	"dietflow/internal/core/view"
	"dietflow/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// QueryRowsRequest 以呼叫端提供的資料列查詢
type QueryRowsRequest struct {
	Rows  []mealCore.RawRecord `json:"rows" binding:"required"`
	Query map[string]any       `json:"query,omitempty"`
}

// SetQueryFieldRequest 變更檢視的單一查詢欄位
type SetQueryFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value any    `json:"value"`
}

// InvalidQueryResponse 查詢條件無效時的回應，附上未變更的檢視
type InvalidQueryResponse struct {
	common.ErrorResponse
	View view.Snapshot `json:"view"`
}

// Handler 推薦與週計畫處理程序
type Handler struct {
	service *dashboard.Service
	views   *view.Registry
	debug   bool
}

// NewHandler 創建處理程序
func NewHandler(service *dashboard.Service, views *view.Registry, debug bool) *Handler {
	return &Handler{
		service: service,
		views:   views,
		debug:   debug,
	}
}

// Register 註冊路由
// rowsQueryGuards 只套用在 POST /recommendations/query。
func (h *Handler) Register(rg *gin.RouterGroup, rowsQueryGuards ...gin.HandlerFunc) {
	recs := rg.Group("/recommendations")
	{
		recs.GET("", h.HandleRecommendations)
		recs.POST("/query", append(rowsQueryGuards, h.HandleQueryRows)...)
	}

	views := rg.Group("/views")
	{
		views.POST("", h.HandleCreateView)
		views.GET("/:id", h.HandleGetView)
		views.PATCH("/:id/query", h.HandleSetQueryField)
		views.DELETE("/:id", h.HandleDeleteView)
		views.GET("/:id/charts", h.HandleViewCharts)
	}

	rg.GET("/plan", h.HandlePlan)
	rg.GET("/analytics", h.HandleAnalytics)
}

// HandleRecommendations 以查詢參數篩選推薦清單
// 非查詢欄位的參數（例如快取破壞用的 _=<ts>）直接忽略。
func (h *Handler) HandleRecommendations(c *gin.Context) {
	params := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if len(v) == 0 {
			continue
		}
		if _, err := mealCore.ParseQueryField(k); err != nil {
			continue
		}
		params[k] = v[0]
	}

	result, err := h.service.Query(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleQueryRows 對請求中的資料列執行查詢
func (h *Handler) HandleQueryRows(c *gin.Context) {
	var req QueryRowsRequest
	if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
		h.respondError(c, common.ErrInvalidRows.Wrap(err))
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		h.respondError(c, common.ErrInvalidRows.Wrap(err))
		return
	}

	result, err := h.service.QueryRows(req.Rows, req.Query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleCreateView 載入推薦清單並建立檢視
func (h *Handler) HandleCreateView(c *gin.Context) {
	recs, err := h.service.Recommendations(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	snap, err := h.views.Create(recs)
	if err != nil {
		h.respondError(c, err)
		return
	}

	common.LogInfo("檢視已建立",
		zap.String("view_id", snap.ID),
		zap.Int("total", snap.Total),
		zap.String("request_id", requestid.Get(c)),
	)
	c.JSON(http.StatusCreated, snap)
}

// HandleGetView 取得檢視目前的結果
func (h *Handler) HandleGetView(c *gin.Context) {
	snap, err := h.views.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// HandleSetQueryField 變更檢視的查詢欄位
func (h *Handler) HandleSetQueryField(c *gin.Context) {
	var req SetQueryFieldRequest
	if err := common.DecodeJSONStrict(c.Request.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			err = common.NewValidationError("request body is required")
		}
		h.respondError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		h.respondError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	if strings.TrimSpace(req.Field) == "" {
		h.respondError(c, common.ErrInvalidRequest.Wrap(common.NewValidationError("field is blank")))
		return
	}

	snap, err := h.views.SetQueryField(c.Param("id"), req.Field, req.Value)
	if err != nil {
		if errors.Is(err, common.ErrInvalidQueryInput) {
			ce := common.AsCustomError(err)
			_ = c.Error(err)
			c.AbortWithStatusJSON(ce.Status, InvalidQueryResponse{
				ErrorResponse: ce.Response(h.debug),
				View:          snap,
			})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// HandleDeleteView 移除檢視
func (h *Handler) HandleDeleteView(c *gin.Context) {
	if err := h.views.Delete(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleViewCharts 檢視目前結果的分布圖
func (h *Handler) HandleViewCharts(c *gin.Context) {
	charts, err := h.views.Charts(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, charts)
}

// HandlePlan 分組後的週計畫
func (h *Handler) HandlePlan(c *gin.Context) {
	plan, err := h.service.Plan(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// HandleAnalytics 分析圖表資料
func (h *Handler) HandleAnalytics(c *gin.Context) {
	analytics, err := h.service.Analytics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// respondError 將錯誤轉為 API 錯誤響應
func (h *Handler) respondError(c *gin.Context, err error) {
	ce := common.AsCustomError(err)
	_ = c.Error(err)

	fields := []zap.Field{
		zap.String("code", ce.Code),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
		zap.Error(err),
	}
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogDebug("請求處理失敗", fields...)
	}

	c.AbortWithStatusJSON(ce.Status, ce.Response(h.debug))
}
