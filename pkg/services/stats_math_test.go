package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMean(t *testing.T) {
	assert.Equal(t, 2.5, calculateMean([]float64{1, 2, 3, 4}))
	assert.Equal(t, 0.0, calculateMean(nil))
}

func TestCalculateStandardDeviation(t *testing.T) {
	// 平均5、偏差±3の対称な列
	assert.InDelta(t, 3.0, calculateStandardDeviation([]float64{2, 8, 2, 8}), 1e-9)
	assert.Equal(t, 0.0, calculateStandardDeviation([]float64{5, 5, 5}))
	assert.Equal(t, 0.0, calculateStandardDeviation(nil))
}

func TestCalculatePercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}

	assert.InDelta(t, 30.0, calculatePercentile(values, 0.5), 1e-9)
	assert.InDelta(t, 10.0, calculatePercentile(values, 0), 1e-9)
	assert.InDelta(t, 50.0, calculatePercentile(values, 1), 1e-9)
	// 線形補間: 0.9 * 4 = 3.6 → 40と50の間
	assert.InDelta(t, 46.0, calculatePercentile(values, 0.9), 1e-9)
}

func TestLinearFit(t *testing.T) {
	// y = 2x + 3 の完全な直線
	xs := []float64{0, 1, 2, 3, 4}
	ys := []float64{3, 5, 7, 9, 11}

	slope, intercept := linearFit(xs, ys)
	assert.InDelta(t, 2.0, slope, 1e-9)
	assert.InDelta(t, 3.0, intercept, 1e-9)
}

func TestLinearFitConstant(t *testing.T) {
	slope, intercept := linearFit([]float64{1, 2, 3}, []float64{7, 7, 7})
	assert.InDelta(t, 0.0, slope, 1e-9)
	assert.InDelta(t, 7.0, intercept, 1e-9)
}

func TestNormalQuantile(t *testing.T) {
	// 標準的なz値テーブルと照合
	assert.InDelta(t, 0.0, normalQuantile(0.5), 1e-6)
	assert.InDelta(t, 1.6449, normalQuantile(0.95), 1e-3)
	assert.InDelta(t, 1.9600, normalQuantile(0.975), 1e-3)
	assert.InDelta(t, 2.3263, normalQuantile(0.99), 1e-3)
	assert.InDelta(t, -1.6449, normalQuantile(0.05), 1e-3)
}

func TestNormalQuantileMonotonic(t *testing.T) {
	prev := normalQuantile(0.01)
	for p := 0.02; p < 1.0; p += 0.01 {
		z := normalQuantile(p)
		assert.Greater(t, z, prev, "z(%v) should exceed z(previous)", p)
		prev = z
	}
}

func TestConfidenceZScore(t *testing.T) {
	// 両側95% → z ≈ 1.96
	assert.InDelta(t, 1.96, confidenceZScore(0.95), 1e-3)
	// 不正値はデフォルトの0.95にフォールバック
	assert.InDelta(t, 1.96, confidenceZScore(0), 1e-3)
	assert.InDelta(t, 1.96, confidenceZScore(1.5), 1e-3)
}
