package services

import (
	"math"
	"testing"
	"time"

	"freshcast-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeForecast テスト用の予測結果を生成する
func makeForecast(productID string, days int, dailyExpected, residualStd float64) *models.ForecastResult {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	result := &models.ForecastResult{
		ProductID:    productID,
		HorizonStart: start,
		HorizonEnd:   start.AddDate(0, 0, days-1),
		ResidualStd:  residualStd,
		Confidence:   0.95,
	}
	for i := 0; i < days; i++ {
		result.Daily = append(result.Daily, models.DailyEstimate{
			Date:     start.AddDate(0, 0, i),
			Expected: dailyExpected,
		})
		result.ExpectedTotal += dailyExpected
	}
	return result
}

func TestPlanSafetyStock(t *testing.T) {
	planner := NewSafetyStockPlanner(0.99)
	forecast := makeForecast("croissant", 7, 37, 5)

	plan, err := planner.Plan(forecast, 0.95)
	require.NoError(t, err)

	assert.Equal(t, "croissant", plan.ProductID)
	assert.Equal(t, 7, plan.HorizonDays)
	assert.Equal(t, 0.95, plan.ServiceLevel)
	assert.InDelta(t, 259.0, plan.ExpectedDemand, 1e-9)

	// 安全在庫 = z(0.95) × 5 × sqrt(7)
	expectedSafety := normalQuantile(0.95) * 5 * math.Sqrt(7)
	assert.InDelta(t, expectedSafety, plan.SafetyStock, 1e-6)

	// 推奨生産量は期待需要+安全在庫の切り上げ
	assert.Equal(t, int(math.Ceil(259+expectedSafety)), plan.RecommendedUnits)
	assert.GreaterOrEqual(t, float64(plan.RecommendedUnits), plan.ExpectedDemand+plan.SafetyStock)
}

func TestPlanDefaultServiceLevel(t *testing.T) {
	planner := NewSafetyStockPlanner(0.99)
	forecast := makeForecast("baguette", 7, 20, 3)

	// 既定値は呼び出し側がDefaultServiceLevel()経由で明示的に渡す
	assert.Equal(t, 0.99, planner.DefaultServiceLevel())

	plan, err := planner.Plan(forecast, planner.DefaultServiceLevel())
	require.NoError(t, err)
	assert.Equal(t, 0.99, plan.ServiceLevel)
}

func TestPlanServiceLevelMonotonic(t *testing.T) {
	planner := NewSafetyStockPlanner(0.99)
	forecast := makeForecast("croissant", 7, 37, 5)

	// サービスレベルを上げると安全在庫は厳密に増加する
	levels := []float64{0.5, 0.8, 0.9, 0.95, 0.99, 0.999}
	prev := -math.MaxFloat64
	for _, level := range levels {
		plan, err := planner.Plan(forecast, level)
		require.NoError(t, err)
		assert.Greater(t, plan.SafetyStock, prev, "service level %v", level)
		prev = plan.SafetyStock
	}
}

func TestPlanInvalidServiceLevel(t *testing.T) {
	planner := NewSafetyStockPlanner(0.99)
	forecast := makeForecast("croissant", 7, 37, 5)

	// 0と1はz値が定義できない境界値。0は「既定値を使う」の意味ではなく拒否する。
	for _, level := range []float64{-0.5, 0.0, 1.0, 1.5} {
		_, err := planner.Plan(forecast, level)
		assert.ErrorIs(t, err, ErrInvalidServiceLevel, "service level %v", level)
	}
}

func TestPlanLowServiceLevelClampsSafetyStock(t *testing.T) {
	planner := NewSafetyStockPlanner(0.99)
	forecast := makeForecast("donut", 7, 30, 4)

	// サービスレベル0.5未満ではz値が負になるが、安全在庫は0で下限を切る
	plan, err := planner.Plan(forecast, 0.3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, plan.SafetyStock)
	assert.Equal(t, int(math.Ceil(plan.ExpectedDemand)), plan.RecommendedUnits)
}

func TestPlanZeroResidual(t *testing.T) {
	planner := NewSafetyStockPlanner(0.99)
	forecast := makeForecast("muffin", 7, 15, 0)

	// 残差ゼロ（完全に規則的な需要）では安全在庫もゼロ
	plan, err := planner.Plan(forecast, 0.99)
	require.NoError(t, err)
	assert.Equal(t, 0.0, plan.SafetyStock)
	assert.Equal(t, 105, plan.RecommendedUnits)
}

func TestPlanNilForecast(t *testing.T) {
	planner := NewSafetyStockPlanner(0.99)
	_, err := planner.Plan(nil, 0.95)
	assert.Error(t, err)
}
