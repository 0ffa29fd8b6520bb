package services

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"freshcast-api/pkg/models"
)

// HistoryStore 販売実績の読み取り専用コラボレーター
type HistoryStore interface {
	GetObservations(productID string, start, end time.Time) ([]models.DemandObservation, error)
	ListProducts() ([]string, error)
}

// ModelStore 学習済みモデルの永続化コラボレーター。
// LoadModelはモデルが存在しない場合 (nil, nil) を返す。
type ModelStore interface {
	LoadModel(productID string) (*models.ForecastModel, error)
	SaveModel(productID string, model *models.ForecastModel) error
}

// ModelRepository 製品IDから現在の学習済みモデルへのマッピングを保持する。
// モデルは学習後不変であり、再学習時は参照ごと差し替える（アトミックスワップ）。
// 進行中の予測が差し替え途中のモデルを観測することはない。
type ModelRepository struct {
	mu     sync.RWMutex
	models map[string]*models.ForecastModel
}

// NewModelRepository 新しいモデルリポジトリを作成
func NewModelRepository() *ModelRepository {
	return &ModelRepository{
		models: make(map[string]*models.ForecastModel),
	}
}

// Get 製品の現在のモデルを返す
func (mr *ModelRepository) Get(productID string) (*models.ForecastModel, bool) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	m, ok := mr.models[productID]
	return m, ok
}

// Put 製品のモデルを差し替える
func (mr *ModelRepository) Put(productID string, model *models.ForecastModel) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.models[productID] = model
}

// Products 登録済みモデルの製品ID一覧を返す
func (mr *ModelRepository) Products() []string {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	ids := make([]string, 0, len(mr.models))
	for id := range mr.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ForecastEngine 製品ごとのモデルの解決・学習・予測集計を統括する
type ForecastEngine struct {
	modelService *ForecastModelService
	repo         *ModelRepository
	history      HistoryStore
	store        ModelStore // nilの場合は永続化なし

	trainMu    sync.Mutex
	trainLocks map[string]*sync.Mutex // 同一製品の学習を直列化する
}

// NewForecastEngine 新しい予測エンジンを作成
func NewForecastEngine(modelService *ForecastModelService, repo *ModelRepository, history HistoryStore, store ModelStore) *ForecastEngine {
	return &ForecastEngine{
		modelService: modelService,
		repo:         repo,
		history:      history,
		store:        store,
		trainLocks:   make(map[string]*sync.Mutex),
	}
}

// Products 予測対象となる製品ID一覧（履歴ストア基準）を返す
func (fe *ForecastEngine) Products() ([]string, error) {
	return fe.history.ListProducts()
}

// Forecast 製品の[start, end]（両端含む）の日次予測と期間集計を返す。
// モデルはリポジトリ→永続化ストア→履歴からの遅延学習、の順に解決する。
func (fe *ForecastEngine) Forecast(productID string, start, end time.Time) (*models.ForecastResult, error) {
	if start.After(end) {
		return nil, fmt.Errorf("予測期間が不正です: %s > %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	model, err := fe.resolveModel(productID)
	if err != nil {
		return nil, err
	}

	result := &models.ForecastResult{
		ProductID:    productID,
		HorizonStart: day(start),
		HorizonEnd:   day(end),
		ResidualStd:  model.ResidualStd,
		Confidence:   fe.modelService.ConfidenceLevel(),
	}

	for d := day(start); !d.After(day(end)); d = d.AddDate(0, 0, 1) {
		estimate, err := fe.modelService.Predict(model, d)
		if err != nil {
			return nil, err
		}
		result.Daily = append(result.Daily, estimate)
		result.ExpectedTotal += estimate.Expected
		result.TotalUpperBound += estimate.Upper
	}

	return result, nil
}

// ForecastDays 学習期間の翌日からdays日分の予測を返す
func (fe *ForecastEngine) ForecastDays(productID string, days int) (*models.ForecastResult, error) {
	if days <= 0 {
		days = 7
	}
	model, err := fe.resolveModel(productID)
	if err != nil {
		return nil, err
	}
	start := model.TrainedTo.AddDate(0, 0, 1)
	end := start.AddDate(0, 0, days-1)
	return fe.Forecast(productID, start, end)
}

// ForecastAll 複数製品を一括予測する。1製品の失敗は他製品を中断させず、
// 製品ごとのエラー注記として収集する。
func (fe *ForecastEngine) ForecastAll(productIDs []string, days int) (*models.BatchForecastResult, error) {
	if len(productIDs) == 0 {
		ids, err := fe.history.ListProducts()
		if err != nil {
			return nil, fmt.Errorf("製品一覧の取得に失敗しました: %w", err)
		}
		productIDs = ids
	}

	batch := &models.BatchForecastResult{}
	for _, id := range productIDs {
		result, err := fe.ForecastDays(id, days)
		if err != nil {
			log.Printf("製品 %s の予測に失敗: %v", id, err)
			batch.Errors = append(batch.Errors, models.ProductForecastError{
				ProductID: id,
				Error:     err.Error(),
			})
			continue
		}
		batch.Results = append(batch.Results, *result)
	}
	return batch, nil
}

// Retrain 履歴から強制的に再学習し、モデルをアトミックに差し替える
func (fe *ForecastEngine) Retrain(productID string) (*models.ForecastModel, error) {
	lock := fe.trainLock(productID)
	lock.Lock()
	defer lock.Unlock()
	return fe.trainFromHistory(productID)
}

// resolveModel リポジトリ→永続化ストア→遅延学習の順でモデルを解決する
func (fe *ForecastEngine) resolveModel(productID string) (*models.ForecastModel, error) {
	if model, ok := fe.repo.Get(productID); ok {
		return model, nil
	}

	lock := fe.trainLock(productID)
	lock.Lock()
	defer lock.Unlock()

	// ロック待ちの間に別のリクエストが解決済みの可能性がある
	if model, ok := fe.repo.Get(productID); ok {
		return model, nil
	}

	if fe.store != nil {
		model, err := fe.store.LoadModel(productID)
		if err != nil {
			log.Printf("製品 %s の保存済みモデル読み込みに失敗: %v", productID, err)
		} else if model != nil {
			fe.repo.Put(productID, model)
			return model, nil
		}
	}

	return fe.trainFromHistory(productID)
}

// trainFromHistory 履歴ストアの全観測から学習してリポジトリに登録する。
// 呼び出し側が製品ごとの学習ロックを保持していること。
func (fe *ForecastEngine) trainFromHistory(productID string) (*models.ForecastModel, error) {
	observations, err := fe.history.GetObservations(productID, time.Time{}, day(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("%w: 製品 %s の販売実績を取得できません: %v", ErrModelNotFound, productID, err)
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("%w: 製品 %s の販売実績がありません", ErrModelNotFound, productID)
	}

	model, err := fe.modelService.Train(productID, observations)
	if err != nil {
		return nil, err
	}

	fe.repo.Put(productID, model)

	if fe.store != nil {
		if err := fe.store.SaveModel(productID, model); err != nil {
			log.Printf("製品 %s のモデル保存に失敗: %v", productID, err)
		}
	}
	return model, nil
}

// trainLock 製品ごとの学習ロックを取得する
func (fe *ForecastEngine) trainLock(productID string) *sync.Mutex {
	fe.trainMu.Lock()
	defer fe.trainMu.Unlock()
	lock, ok := fe.trainLocks[productID]
	if !ok {
		lock = &sync.Mutex{}
		fe.trainLocks[productID] = lock
	}
	return lock
}
