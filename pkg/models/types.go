package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QueryRequest represents an incoming natural-language query
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
	Context  string `json:"context,omitempty"` // 追加の業務コンテキスト（任意）
}

// Intent 質問の意図カテゴリ
type Intent string

const (
	IntentDemand         Intent = "demand"          // 需要予測（何個売れるか）
	IntentProductionPlan Intent = "production_plan" // 生産計画（何個作るべきか）
	IntentMaterials      Intent = "materials"       // 原材料所要量
	IntentAdvisory       Intent = "advisory"        // 業務アドバイス（LLMへ委譲）
)

// RouteDecision represents the routing result for a single query.
// MatchedProductsが空の場合は「全製品が対象」を意味する。
type RouteDecision struct {
	DecisionID      string   `json:"decision_id"`
	Query           string   `json:"query"`
	Intent          Intent   `json:"intent"`
	MatchedProducts []string `json:"matched_products"`
	Confidence      float64  `json:"confidence"`
	HorizonDays     int      `json:"horizon_days"`
}

// DemandObservation represents a single observed daily demand record
type DemandObservation struct {
	ProductID    string    `json:"product_id"`
	Date         time.Time `json:"date"`
	Quantity     int       `json:"quantity_sold"`
	IsHoliday    bool      `json:"is_holiday,omitempty"`
	WeatherIndex float64   `json:"weather_index,omitempty"`
}

// ForecastModel 製品ごとの学習済み時系列モデル。
// 学習後は不変。再学習時はModelRepositoryで参照ごと差し替える。
type ForecastModel struct {
	ProductID      string             `json:"product_id"`
	TrainedFrom    time.Time          `json:"trained_from"`
	TrainedTo      time.Time          `json:"trained_to"`
	TrainedAt      time.Time          `json:"trained_at"` // バージョン管理用の学習タイムスタンプ
	TrendIntercept float64            `json:"trend_intercept"`
	TrendSlope     float64            `json:"trend_slope"` // 1日あたりの変化量
	WeekdayFactors map[string]float64 `json:"weekday_factors"`
	MonthFactors   map[string]float64 `json:"month_factors,omitempty"` // 1年以上の履歴がある場合のみ
	ResidualStd    float64            `json:"residual_std"`
	TrainingPoints int                `json:"training_points"`
}

// DailyEstimate represents a single day's point forecast with bounds
type DailyEstimate struct {
	Date     time.Time `json:"date"`
	Expected float64   `json:"expected_quantity"`
	Lower    float64   `json:"lower_bound"`
	Upper    float64   `json:"upper_bound"`
}

// ForecastResult represents a per-product forecast over a horizon
type ForecastResult struct {
	ProductID       string          `json:"product_id"`
	HorizonStart    time.Time       `json:"horizon_start"`
	HorizonEnd      time.Time       `json:"horizon_end"`
	Daily           []DailyEstimate `json:"daily"`
	ExpectedTotal   float64         `json:"expected_total"`
	TotalUpperBound float64         `json:"total_upper_bound"`
	ResidualStd     float64         `json:"residual_std"` // 日次残差標準偏差（計画計算で使用）
	Confidence      float64         `json:"confidence"`   // 区間の信頼水準
}

// ProductForecastError 一括予測での製品ごとのエラー注記
type ProductForecastError struct {
	ProductID string `json:"product_id"`
	Error     string `json:"error"`
}

// BatchForecastResult 複数製品の一括予測結果（部分的な成功を許容）
type BatchForecastResult struct {
	Results []ForecastResult       `json:"results"`
	Errors  []ProductForecastError `json:"errors,omitempty"`
}

// ProductionPlan represents a safety-stock-adjusted production recommendation.
// RecommendedUnitsはExpectedDemand+SafetyStockを切り上げた整数（切り捨てはしない）。
type ProductionPlan struct {
	ProductID        string  `json:"product_id"`
	HorizonDays      int     `json:"horizon_days"`
	ExpectedDemand   float64 `json:"expected_demand"`
	SafetyStock      float64 `json:"safety_stock"`
	RecommendedUnits int     `json:"recommended_production"`
	ServiceLevel     float64 `json:"service_level_target"`
}

// RecipeEntry represents one ingredient requirement for one unit of a product
type RecipeEntry struct {
	ProductID       string          `json:"product_id"`
	Ingredient      string          `json:"ingredient"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"` // kg/個
}

// MaterialRequirement 原材料の合計所要量
type MaterialRequirement struct {
	Ingredient string          `json:"ingredient"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
}

// AnswerType StructuredAnswerのタグ
type AnswerType string

const (
	AnswerForecast       AnswerType = "forecast"
	AnswerProductionPlan AnswerType = "production_plan"
	AnswerMaterials      AnswerType = "materials"
	AnswerAdvisory       AnswerType = "advisory"
)

// StructuredAnswer is the tagged union returned by the query endpoint.
// Routeは常に含める（デバッグ・観測用）。
type StructuredAnswer struct {
	Type      AnswerType             `json:"type"`
	Route     RouteDecision          `json:"route"`
	Forecasts []ForecastResult       `json:"forecasts,omitempty"`
	Plans     []ProductionPlan       `json:"plans,omitempty"`
	Materials []MaterialRequirement  `json:"materials,omitempty"`
	Advisory  string                 `json:"advisory,omitempty"`
	Errors    []ProductForecastError `json:"errors,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// ForecastRequest represents a direct forecast API request
type ForecastRequest struct {
	DaysAhead    int     `json:"days_ahead"`
	ServiceLevel float64 `json:"service_level"`
}

// ProductSummary 全製品の生産サマリーの1行
type ProductSummary struct {
	ProductID        string  `json:"product_id"`
	ExpectedDemand   float64 `json:"expected_demand"`
	RecommendedUnits int     `json:"recommended_production"`
	DailyAverage     float64 `json:"daily_average"`
}
