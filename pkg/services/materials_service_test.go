package services

import (
	"testing"

	"freshcast-api/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandSingleProduct(t *testing.T) {
	expander := NewMaterialExpander(DefaultRecipeEntries())

	// クロワッサン100個 = レシピ表の100個あたり所要量そのもの
	requirements, err := expander.Expand(map[string]float64{"croissant": 100})
	require.NoError(t, err)

	byIngredient := make(map[string]decimal.Decimal)
	for _, r := range requirements {
		byIngredient[r.Ingredient] = r.QuantityKg
	}

	assert.True(t, byIngredient["flour"].Equal(decimal.NewFromInt(12)), "flour = %s", byIngredient["flour"])
	assert.True(t, byIngredient["butter"].Equal(decimal.NewFromInt(8)), "butter = %s", byIngredient["butter"])
	assert.True(t, byIngredient["eggs"].Equal(decimal.NewFromInt(15)), "eggs = %s", byIngredient["eggs"])
}

func TestExpandAggregatesAcrossProducts(t *testing.T) {
	expander := NewMaterialExpander(DefaultRecipeEntries())

	requirements, err := expander.Expand(map[string]float64{
		"croissant": 100, // flour 12kg
		"baguette":  100, // flour 15kg
	})
	require.NoError(t, err)

	byIngredient := make(map[string]decimal.Decimal)
	for _, r := range requirements {
		byIngredient[r.Ingredient] = r.QuantityKg
	}
	assert.True(t, byIngredient["flour"].Equal(decimal.NewFromInt(27)), "flour = %s", byIngredient["flour"])
}

func TestExpandOrderIndependent(t *testing.T) {
	// 登録順の異なる2つのレシピセットで同じ生産計画を展開しても
	// 結果が完全に一致すること
	entries := DefaultRecipeEntries()
	reversed := make([]models.RecipeEntry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}

	production := map[string]float64{
		"croissant": 37,
		"donut":     21,
		"muffin":    55,
	}

	a, err := NewMaterialExpander(entries).Expand(production)
	require.NoError(t, err)
	b, err := NewMaterialExpander(reversed).Expand(production)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Ingredient, b[i].Ingredient)
		assert.True(t, a[i].QuantityKg.Equal(b[i].QuantityKg),
			"%s: %s != %s", a[i].Ingredient, a[i].QuantityKg, b[i].QuantityKg)
	}
}

func TestExpandSortedByQuantity(t *testing.T) {
	expander := NewMaterialExpander(DefaultRecipeEntries())

	requirements, err := expander.Expand(map[string]float64{"sandwich": 200})
	require.NoError(t, err)
	require.NotEmpty(t, requirements)

	for i := 1; i < len(requirements); i++ {
		cmp := requirements[i-1].QuantityKg.Cmp(requirements[i].QuantityKg)
		assert.GreaterOrEqual(t, cmp, 0, "requirements must be sorted by quantity desc")
	}
}

func TestExpandEmptyPlan(t *testing.T) {
	expander := NewMaterialExpander(DefaultRecipeEntries())

	requirements, err := expander.Expand(map[string]float64{})
	require.NoError(t, err)
	assert.Empty(t, requirements)
}

func TestExpandUnknownProduct(t *testing.T) {
	expander := NewMaterialExpander(DefaultRecipeEntries())

	_, err := expander.Expand(map[string]float64{"pretzel": 10})
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestExpandNormalizesProductID(t *testing.T) {
	expander := NewMaterialExpander(DefaultRecipeEntries())

	// 表記ゆれ（大文字・空白）はレシピ照合前に正規化される
	requirements, err := expander.Expand(map[string]float64{"Cinnamon Roll": 100})
	require.NoError(t, err)
	assert.NotEmpty(t, requirements)
}

func TestHasRecipe(t *testing.T) {
	expander := NewMaterialExpander(DefaultRecipeEntries())
	assert.True(t, expander.HasRecipe("croissant"))
	assert.False(t, expander.HasRecipe("pretzel"))
}
