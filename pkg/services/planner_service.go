package services

import (
	"fmt"
	"math"

	"freshcast-api/pkg/models"
)

// SafetyStockPlanner 予測結果とサービスレベル目標から生産推奨量を計算する。
// 安全在庫 = z(サービスレベル) × 日次残差標準偏差 × sqrt(期間日数)。
// 日次残差の独立性を仮定して期間全体の標準偏差を合成する。
type SafetyStockPlanner struct {
	defaultServiceLevel float64
}

// NewSafetyStockPlanner 新しい生産計画サービスを作成
func NewSafetyStockPlanner(defaultServiceLevel float64) *SafetyStockPlanner {
	if defaultServiceLevel <= 0 || defaultServiceLevel >= 1 {
		defaultServiceLevel = 0.99
	}
	return &SafetyStockPlanner{defaultServiceLevel: defaultServiceLevel}
}

// DefaultServiceLevel 既定のサービスレベル目標を返す
func (sp *SafetyStockPlanner) DefaultServiceLevel() float64 {
	return sp.defaultServiceLevel
}

// Plan 予測結果をサービスレベル調整済みの生産計画へ変換する。
// サービスレベルが(0,1)の開区間外の場合はErrInvalidServiceLevelを返す
// （0と1はz値が定義できない）。既定値の補完は呼び出し側が
// DefaultServiceLevel()で行う。
// 推奨生産量は期待需要+安全在庫を整数に切り上げる。過少生産こそが
// 防ぐべき失敗モードであるため、切り捨ては行わない。
func (sp *SafetyStockPlanner) Plan(forecast *models.ForecastResult, serviceLevel float64) (*models.ProductionPlan, error) {
	if forecast == nil {
		return nil, fmt.Errorf("予測結果がありません")
	}
	if serviceLevel <= 0 || serviceLevel >= 1 {
		return nil, fmt.Errorf("%w: %g は(0,1)の開区間で指定してください", ErrInvalidServiceLevel, serviceLevel)
	}

	days := len(forecast.Daily)
	if days == 0 {
		days = int(daysBetween(forecast.HorizonStart, forecast.HorizonEnd)) + 1
	}
	if days < 1 {
		days = 1
	}

	// サービスレベルを標準正規分位点に写像する。zはサービスレベルに対して
	// 狭義単調増加であり、安全在庫の単調性はここから従う。
	z := normalQuantile(serviceLevel)
	safetyStock := z * forecast.ResidualStd * math.Sqrt(float64(days))
	if safetyStock < 0 {
		safetyStock = 0
	}

	return &models.ProductionPlan{
		ProductID:        forecast.ProductID,
		HorizonDays:      days,
		ExpectedDemand:   forecast.ExpectedTotal,
		SafetyStock:      safetyStock,
		RecommendedUnits: int(math.Ceil(forecast.ExpectedTotal + safetyStock)),
		ServiceLevel:     serviceLevel,
	}, nil
}
