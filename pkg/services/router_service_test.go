package services

import (
	"testing"

	"freshcast-api/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestRouteIntents(t *testing.T) {
	router := NewIntentRouter()

	tests := []struct {
		name     string
		query    string
		intent   models.Intent
		products []string
		horizon  int
	}{
		{
			name:     "demand question",
			query:    "How many croissants will we sell next week?",
			intent:   models.IntentDemand,
			products: []string{"croissant"},
			horizon:  7,
		},
		{
			name:     "production plan question",
			query:    "How many croissants do we need for next week?",
			intent:   models.IntentProductionPlan,
			products: []string{"croissant"},
			horizon:  7,
		},
		{
			name:    "materials question",
			query:   "What raw materials should I order?",
			intent:  models.IntentMaterials,
			horizon: 7,
		},
		{
			name:    "advisory question via should-i prefix",
			query:   "Should I expand my business?",
			intent:  models.IntentAdvisory,
			horizon: 7,
		},
		{
			name:    "advisory question about purchasing",
			query:   "Where can I buy cheap flour in bulk?",
			intent:  models.IntentAdvisory,
			horizon: 7,
		},
		{
			name:    "unclassifiable falls back to advisory",
			query:   "xyzzy plugh",
			intent:  models.IntentAdvisory,
			horizon: 7,
		},
		{
			name:     "japanese demand question",
			query:    "来週クロワッサンはどのくらい売れる？",
			intent:   models.IntentDemand,
			products: []string{"croissant"},
			horizon:  7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := router.Route(tt.query)
			assert.Equal(t, tt.intent, decision.Intent)
			assert.Equal(t, tt.horizon, decision.HorizonDays)
			if tt.products != nil {
				assert.Equal(t, tt.products, decision.MatchedProducts)
			}
			assert.Greater(t, decision.Confidence, 0.0)
			assert.LessOrEqual(t, decision.Confidence, 1.0)
		})
	}
}

func TestRouteDeterministic(t *testing.T) {
	router := NewIntentRouter()
	query := "How many croissants will we sell next week?"

	first := router.Route(query)
	second := router.Route(query)

	// 同一クエリは決定ID含め完全に同じ決定を生む
	assert.Equal(t, first, second)

	// 異なるクエリは異なる決定IDを持つ
	other := router.Route("How many baguettes will we sell next week?")
	assert.NotEqual(t, first.DecisionID, other.DecisionID)
}

func TestRouteFallbackConfidence(t *testing.T) {
	router := NewIntentRouter()

	decision := router.Route("xyzzy plugh")
	assert.Equal(t, models.IntentAdvisory, decision.Intent)
	assert.Equal(t, 0.5, decision.Confidence)
	assert.Empty(t, decision.MatchedProducts)
}

func TestRouteMultipleProducts(t *testing.T) {
	router := NewIntentRouter()

	decision := router.Route("Forecast demand for croissants and baguettes")
	assert.Equal(t, models.IntentDemand, decision.Intent)
	assert.Equal(t, []string{"baguette", "croissant"}, decision.MatchedProducts)
}

func TestExtractHorizonDays(t *testing.T) {
	tests := []struct {
		query   string
		horizon int
	}{
		{"how many will we sell today", 1},
		{"demand for tomorrow", 1},
		{"forecast for next week", 7},
		{"forecast for this week", 7},
		{"demand for next month", 30},
		{"forecast for 3 days", 3},
		{"forecast for 2 weeks", 14},
		{"forecast for 1 month", 30},
		{"来月の需要", 30},
		{"10日間の予測", 10},
		{"no horizon mentioned", 7},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.horizon, extractHorizonDays(normalizeQuery(tt.query)), "query: %s", tt.query)
	}
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "how many croissants", normalizeQuery("How many CROISSANTS?!"))
	assert.Equal(t, "a b", normalizeQuery("  a    b  "))
}
