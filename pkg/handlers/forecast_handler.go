package handlers

import (
	"net/http"

	"freshcast-api/pkg/models"
	"freshcast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// ForecastHandler 予測・計画・原材料の直接APIを提供する
type ForecastHandler struct {
	engine    *services.ForecastEngine
	planner   *services.SafetyStockPlanner
	materials *services.MaterialExpander
}

// NewForecastHandler 新しい予測ハンドラーを作成
func NewForecastHandler(
	engine *services.ForecastEngine,
	planner *services.SafetyStockPlanner,
	materials *services.MaterialExpander,
) *ForecastHandler {
	return &ForecastHandler{
		engine:    engine,
		planner:   planner,
		materials: materials,
	}
}

// GetForecast 単一製品の需要予測と生産計画を返す
func (fh *ForecastHandler) GetForecast(c *gin.Context) {
	productID := c.Param("product")

	var request models.ForecastRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "リクエストの解析に失敗しました: " + err.Error(),
			})
			return
		}
	}
	if request.DaysAhead == 0 {
		request.DaysAhead = 7
	}
	if request.ServiceLevel == 0 {
		request.ServiceLevel = fh.planner.DefaultServiceLevel()
	}

	forecast, err := fh.engine.ForecastDays(productID, request.DaysAhead)
	if err != nil {
		respondError(c, err, "需要予測に失敗しました")
		return
	}

	plan, err := fh.planner.Plan(forecast, request.ServiceLevel)
	if err != nil {
		respondError(c, err, "生産計画の計算に失敗しました")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"forecast": forecast,
			"plan":     plan,
		},
	})
}

// GetMaterials 全製品（またはproductsクエリで指定）の生産計画を
// 原材料所要量に展開して返す
func (fh *ForecastHandler) GetMaterials(c *gin.Context) {
	days := queryInt(c, "days", 7, 1, 90)
	serviceLevel := queryFloat(c, "service_level", fh.planner.DefaultServiceLevel())

	var productIDs []string
	if p := c.QueryArray("products"); len(p) > 0 {
		productIDs = p
	}

	batch, err := fh.engine.ForecastAll(productIDs, days)
	if err != nil {
		respondError(c, err, "需要予測に失敗しました")
		return
	}

	production := make(map[string]float64)
	plans := make([]models.ProductionPlan, 0, len(batch.Results))
	for i := range batch.Results {
		plan, err := fh.planner.Plan(&batch.Results[i], serviceLevel)
		if err != nil {
			respondError(c, err, "生産計画の計算に失敗しました")
			return
		}
		plans = append(plans, *plan)
		production[plan.ProductID] = float64(plan.RecommendedUnits)
	}

	requirements, err := fh.materials.Expand(production)
	if err != nil {
		respondError(c, err, "原材料所要量の計算に失敗しました")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"horizon_days": days,
			"plans":        plans,
			"materials":    requirements,
			"errors":       batch.Errors,
		},
	})
}

// GetSummary 全製品の期待需要と推奨生産量のサマリーを返す
func (fh *ForecastHandler) GetSummary(c *gin.Context) {
	days := queryInt(c, "days", 7, 1, 90)

	batch, err := fh.engine.ForecastAll(nil, days)
	if err != nil {
		respondError(c, err, "需要予測に失敗しました")
		return
	}

	summaries := make([]models.ProductSummary, 0, len(batch.Results))
	for i := range batch.Results {
		result := &batch.Results[i]
		plan, err := fh.planner.Plan(result, fh.planner.DefaultServiceLevel())
		if err != nil {
			respondError(c, err, "生産計画の計算に失敗しました")
			return
		}
		summaries = append(summaries, models.ProductSummary{
			ProductID:        result.ProductID,
			ExpectedDemand:   result.ExpectedTotal,
			RecommendedUnits: plan.RecommendedUnits,
			DailyAverage:     result.ExpectedTotal / float64(days),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"horizon_days": days,
			"products":     summaries,
			"errors":       batch.Errors,
		},
	})
}

// GetProducts 予測対象の製品一覧を返す
func (fh *ForecastHandler) GetProducts(c *gin.Context) {
	products, err := fh.engine.Products()
	if err != nil {
		respondError(c, err, "製品一覧の取得に失敗しました")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"products": products,
			"count":    len(products),
		},
	})
}

// Retrain 製品モデルを履歴から再学習する
func (fh *ForecastHandler) Retrain(c *gin.Context) {
	productID := c.Param("product")

	model, err := fh.engine.Retrain(productID)
	if err != nil {
		respondError(c, err, "モデルの再学習に失敗しました")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"product_id":      model.ProductID,
			"trained_at":      model.TrainedAt,
			"trained_from":    model.TrainedFrom,
			"trained_to":      model.TrainedTo,
			"training_points": model.TrainingPoints,
			"residual_std":    model.ResidualStd,
		},
	})
}
