package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"freshcast-api/pkg/models"
)

// minTrainingPoints 学習に必要な最低データ点数（週次周期2回分）
const minTrainingPoints = 14

// yearlySeasonalityMinDays 月次（年次季節性）係数を推定する最低履歴日数
const yearlySeasonalityMinDays = 365

// ForecastModelService 製品ごとの時系列分解モデルの学習と予測を行う。
// モデルはトレンド（線形）×曜日係数×月係数の乗法分解と、
// 残差標準偏差による不確実性推定で構成される。
type ForecastModelService struct {
	confidenceLevel float64
	maxHorizonDays  int
	winsorizePct    float64
}

// NewForecastModelService 新しい予測モデルサービスを作成
func NewForecastModelService(confidenceLevel float64, maxHorizonDays int, winsorizePct float64) *ForecastModelService {
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = 0.95
	}
	if maxHorizonDays <= 0 {
		maxHorizonDays = 90
	}
	if winsorizePct <= 0 || winsorizePct > 1 {
		winsorizePct = 0.99
	}
	return &ForecastModelService{
		confidenceLevel: confidenceLevel,
		maxHorizonDays:  maxHorizonDays,
		winsorizePct:    winsorizePct,
	}
}

// ConfidenceLevel 予測区間の信頼水準を返す
func (fms *ForecastModelService) ConfidenceLevel() float64 {
	return fms.confidenceLevel
}

// MaxHorizonDays 予測可能な最大日数を返す
func (fms *ForecastModelService) MaxHorizonDays() int {
	return fms.maxHorizonDays
}

// Train 1製品分の観測データからモデルを学習する。
// 欠損日はゼロではなくギャップとして扱う（存在する観測のみで推定）。
func (fms *ForecastModelService) Train(productID string, observations []models.DemandObservation) (*models.ForecastModel, error) {
	obs := normalizeObservations(observations)
	if len(obs) < minTrainingPoints {
		return nil, fmt.Errorf("%w: 製品 %s の学習には最低%d点が必要です（実際: %d点）",
			ErrInsufficientData, productID, minTrainingPoints, len(obs))
	}

	// 外れ値処理: 設定パーセンタイルより上をクランプ
	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = float64(o.Quantity)
	}
	upperCap := calculatePercentile(values, fms.winsorizePct)
	for i, v := range values {
		if v > upperCap {
			values[i] = upperCap
		}
	}

	first := obs[0].Date
	last := obs[len(obs)-1].Date

	// トレンド: 経過日数に対する最小二乗の線形フィット
	xs := make([]float64, len(obs))
	for i, o := range obs {
		xs[i] = daysBetween(first, o.Date)
	}
	slope, intercept := linearFit(xs, values)

	trendAt := func(x float64) float64 {
		return intercept + slope*x
	}

	// 曜日係数: 曜日ごとの観測値/トレンド値の平均比。平均が1になるよう正規化。
	weekdayRatios := make(map[string][]float64)
	for i, o := range obs {
		t := trendAt(xs[i])
		if t <= 0 {
			continue
		}
		key := o.Date.Weekday().String()
		weekdayRatios[key] = append(weekdayRatios[key], values[i]/t)
	}
	weekdayFactors := normalizeFactors(weekdayRatios)

	// 月係数（年次季節性）: 1年以上の履歴がある場合のみ推定
	var monthFactors map[string]float64
	if daysBetween(first, last) >= yearlySeasonalityMinDays {
		monthRatios := make(map[string][]float64)
		for i, o := range obs {
			t := trendAt(xs[i])
			if t <= 0 {
				continue
			}
			wf := factorOrOne(weekdayFactors, o.Date.Weekday().String())
			base := t * wf
			if base <= 0 {
				continue
			}
			key := o.Date.Month().String()
			monthRatios[key] = append(monthRatios[key], values[i]/base)
		}
		monthFactors = normalizeFactors(monthRatios)
	}

	// 残差標準偏差: 観測値 − トレンド×季節係数 のばらつき
	var residuals []float64
	for i, o := range obs {
		fitted := trendAt(xs[i]) *
			factorOrOne(weekdayFactors, o.Date.Weekday().String()) *
			factorOrOne(monthFactors, o.Date.Month().String())
		residuals = append(residuals, values[i]-fitted)
	}
	residualStd := calculateStandardDeviation(residuals)

	return &models.ForecastModel{
		ProductID:      productID,
		TrainedFrom:    first,
		TrainedTo:      last,
		TrainedAt:      time.Now().UTC(),
		TrendIntercept: intercept,
		TrendSlope:     slope,
		WeekdayFactors: weekdayFactors,
		MonthFactors:   monthFactors,
		ResidualStd:    residualStd,
		TrainingPoints: len(obs),
	}, nil
}

// Predict 指定日の需要を予測する。不確実性は予測日が学習終端から
// 離れるほどsqrt(日数)で拡大する。
func (fms *ForecastModelService) Predict(model *models.ForecastModel, date time.Time) (models.DailyEstimate, error) {
	if model == nil {
		return models.DailyEstimate{}, ErrModelNotFound
	}

	daysAhead := int(daysBetween(model.TrainedTo, date))
	if daysAhead > fms.maxHorizonDays {
		return models.DailyEstimate{}, fmt.Errorf("%w: %s は学習期間終端（%s）から%d日先です（上限: %d日）",
			ErrUnsupportedHorizon, date.Format("2006-01-02"),
			model.TrainedTo.Format("2006-01-02"), daysAhead, fms.maxHorizonDays)
	}
	if daysAhead < 1 {
		daysAhead = 1
	}

	x := daysBetween(model.TrainedFrom, date)
	expected := (model.TrendIntercept + model.TrendSlope*x) *
		factorOrOne(model.WeekdayFactors, date.Weekday().String()) *
		factorOrOne(model.MonthFactors, date.Month().String())

	// 需要は負にならないため期待値は0で下限を切る
	expected = math.Max(0, expected)

	margin := confidenceZScore(fms.confidenceLevel) * model.ResidualStd * math.Sqrt(float64(daysAhead))

	return models.DailyEstimate{
		Date:     day(date),
		Expected: expected,
		Lower:    expected - margin,
		Upper:    expected + margin,
	}, nil
}

// normalizeObservations 日付順にソートし、同一日付の重複は後勝ちで除去する
func normalizeObservations(observations []models.DemandObservation) []models.DemandObservation {
	sorted := make([]models.DemandObservation, len(observations))
	copy(sorted, observations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]models.DemandObservation, 0, len(sorted))
	for _, o := range sorted {
		o.Date = day(o.Date)
		if len(out) > 0 && out[len(out)-1].Date.Equal(o.Date) {
			out[len(out)-1] = o
			continue
		}
		out = append(out, o)
	}
	return out
}

// normalizeFactors 比率リストを平均し、全係数の平均が1になるよう正規化する
func normalizeFactors(ratios map[string][]float64) map[string]float64 {
	if len(ratios) == 0 {
		return nil
	}
	factors := make(map[string]float64, len(ratios))
	var sum float64
	for key, rs := range ratios {
		factors[key] = calculateMean(rs)
		sum += factors[key]
	}
	mean := sum / float64(len(factors))
	if mean <= 0 {
		return nil
	}
	for key := range factors {
		factors[key] /= mean
	}
	return factors
}

// factorOrOne 係数マップから値を引く。未知のキーは中立の1.0を返す。
func factorOrOne(factors map[string]float64, key string) float64 {
	if f, ok := factors[key]; ok && f > 0 {
		return f
	}
	return 1.0
}

// daysBetween fromからtoまでの日数（同日は0）
func daysBetween(from, to time.Time) float64 {
	return math.Round(day(to).Sub(day(from)).Hours() / 24)
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
