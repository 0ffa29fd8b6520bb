package services

import (
	"path/filepath"
	"testing"
	"time"

	"freshcast-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileModelStoreRoundTrip(t *testing.T) {
	store := NewFileModelStore(t.TempDir())

	model := &models.ForecastModel{
		ProductID:      "croissant",
		TrainedFrom:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		TrainedTo:      time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		TrainedAt:      time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		TrendIntercept: 35.2,
		TrendSlope:     0.05,
		WeekdayFactors: map[string]float64{"Saturday": 1.32, "Monday": 0.94},
		ResidualStd:    4.8,
		TrainingPoints: 90,
	}

	require.NoError(t, store.SaveModel("croissant", model))

	loaded, err := store.LoadModel("croissant")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, model.ProductID, loaded.ProductID)
	assert.Equal(t, model.TrendIntercept, loaded.TrendIntercept)
	assert.Equal(t, model.WeekdayFactors, loaded.WeekdayFactors)
	assert.Equal(t, model.TrainingPoints, loaded.TrainingPoints)
	assert.True(t, model.TrainedTo.Equal(loaded.TrainedTo))
}

func TestFileModelStoreMissingModel(t *testing.T) {
	store := NewFileModelStore(t.TempDir())

	// 未学習はエラーではなく (nil, nil)
	model, err := store.LoadModel("baguette")
	assert.NoError(t, err)
	assert.Nil(t, model)
}

func TestFileModelStoreOverwrite(t *testing.T) {
	store := NewFileModelStore(t.TempDir())

	first := &models.ForecastModel{ProductID: "donut", TrainingPoints: 30}
	second := &models.ForecastModel{ProductID: "donut", TrainingPoints: 60}

	require.NoError(t, store.SaveModel("donut", first))
	require.NoError(t, store.SaveModel("donut", second))

	loaded, err := store.LoadModel("donut")
	require.NoError(t, err)
	assert.Equal(t, 60, loaded.TrainingPoints)
}

func TestFileModelStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewFileModelStore(dir)

	writeSalesCSV(t, dir, "muffin.json", "{not json")

	_, err := store.LoadModel("muffin")
	assert.Error(t, err)
}

func TestFileModelStoreCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "models")
	store := NewFileModelStore(dir)

	require.NoError(t, store.SaveModel("croissant", &models.ForecastModel{ProductID: "croissant"}))

	loaded, err := store.LoadModel("croissant")
	require.NoError(t, err)
	require.NotNil(t, loaded)
}
