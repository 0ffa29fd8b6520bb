package handlers

import (
	"net/http"
	"time"

	"freshcast-api/pkg/models"
	"freshcast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// QueryHandler 自然言語クエリの受け付けとルーティング結果の組み立てを行う。
// 定量系の意図は予測エンジン・生産計画・原材料展開で構造化回答を生成し、
// アドバイザリー系は外部LLMへ委譲する。
type QueryHandler struct {
	router    *services.IntentRouter
	engine    *services.ForecastEngine
	planner   *services.SafetyStockPlanner
	materials *services.MaterialExpander
	advisory  *services.AdvisoryService
}

// NewQueryHandler 新しいクエリハンドラーを作成
func NewQueryHandler(
	router *services.IntentRouter,
	engine *services.ForecastEngine,
	planner *services.SafetyStockPlanner,
	materials *services.MaterialExpander,
	advisory *services.AdvisoryService,
) *QueryHandler {
	return &QueryHandler{
		router:    router,
		engine:    engine,
		planner:   planner,
		materials: materials,
		advisory:  advisory,
	}
}

// HandleQuery 自然言語の質問を分類し、構造化回答を返す
func (qh *QueryHandler) HandleQuery(c *gin.Context) {
	var request models.QueryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "リクエストの解析に失敗しました: " + err.Error(),
		})
		return
	}

	decision := qh.router.Route(request.Question)

	answer := models.StructuredAnswer{
		Route:     decision,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	switch decision.Intent {
	case models.IntentDemand:
		qh.answerDemand(c, &answer, decision)
	case models.IntentProductionPlan:
		qh.answerProductionPlan(c, &answer, decision)
	case models.IntentMaterials:
		qh.answerMaterials(c, &answer, decision)
	default:
		qh.answerAdvisory(c, &answer, request)
	}
}

// answerDemand 需要予測の構造化回答を組み立てる
func (qh *QueryHandler) answerDemand(c *gin.Context, answer *models.StructuredAnswer, decision models.RouteDecision) {
	batch, err := qh.engine.ForecastAll(decision.MatchedProducts, decision.HorizonDays)
	if err != nil {
		respondError(c, err, "需要予測に失敗しました")
		return
	}

	answer.Type = models.AnswerForecast
	answer.Forecasts = batch.Results
	answer.Errors = batch.Errors

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    answer,
	})
}

// answerProductionPlan 安全在庫調整済みの生産計画を組み立てる
func (qh *QueryHandler) answerProductionPlan(c *gin.Context, answer *models.StructuredAnswer, decision models.RouteDecision) {
	batch, err := qh.engine.ForecastAll(decision.MatchedProducts, decision.HorizonDays)
	if err != nil {
		respondError(c, err, "需要予測に失敗しました")
		return
	}

	answer.Type = models.AnswerProductionPlan
	answer.Errors = batch.Errors
	for i := range batch.Results {
		plan, err := qh.planner.Plan(&batch.Results[i], qh.planner.DefaultServiceLevel())
		if err != nil {
			answer.Errors = append(answer.Errors, models.ProductForecastError{
				ProductID: batch.Results[i].ProductID,
				Error:     err.Error(),
			})
			continue
		}
		answer.Plans = append(answer.Plans, *plan)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    answer,
	})
}

// answerMaterials 生産計画を原材料所要量に展開して回答する
func (qh *QueryHandler) answerMaterials(c *gin.Context, answer *models.StructuredAnswer, decision models.RouteDecision) {
	batch, err := qh.engine.ForecastAll(decision.MatchedProducts, decision.HorizonDays)
	if err != nil {
		respondError(c, err, "需要予測に失敗しました")
		return
	}

	answer.Type = models.AnswerMaterials
	answer.Errors = batch.Errors

	production := make(map[string]float64)
	for i := range batch.Results {
		plan, err := qh.planner.Plan(&batch.Results[i], qh.planner.DefaultServiceLevel())
		if err != nil {
			answer.Errors = append(answer.Errors, models.ProductForecastError{
				ProductID: batch.Results[i].ProductID,
				Error:     err.Error(),
			})
			continue
		}
		answer.Plans = append(answer.Plans, *plan)
		production[plan.ProductID] = float64(plan.RecommendedUnits)
	}

	requirements, err := qh.materials.Expand(production)
	if err != nil {
		respondError(c, err, "原材料所要量の計算に失敗しました")
		return
	}
	answer.Materials = requirements

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    answer,
	})
}

// answerAdvisory 外部LLMへ委譲する。失敗時は失敗をそのまま明示する
// （定型文で取り繕わない）。
func (qh *QueryHandler) answerAdvisory(c *gin.Context, answer *models.StructuredAnswer, request models.QueryRequest) {
	text, err := qh.advisory.Answer(c.Request.Context(), request.Question, request.Context)
	if err != nil {
		respondError(c, err, "アドバイザリー応答の取得に失敗しました")
		return
	}

	answer.Type = models.AnswerAdvisory
	answer.Advisory = text

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    answer,
	})
}
