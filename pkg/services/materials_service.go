package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"freshcast-api/pkg/models"

	"github.com/shopspring/decimal"
)

// MaterialExpander 生産計画を部品表（レシピ）経由で原材料所要量に展開する。
// レシピは静的な参照データで、製品と原材料の多対多関係を表す。
type MaterialExpander struct {
	mu      sync.RWMutex
	recipes map[string][]models.RecipeEntry
}

// NewMaterialExpander 新しい原材料展開サービスを作成
func NewMaterialExpander(entries []models.RecipeEntry) *MaterialExpander {
	me := &MaterialExpander{
		recipes: make(map[string][]models.RecipeEntry),
	}
	for _, e := range entries {
		key := normalizeProductID(e.ProductID)
		me.recipes[key] = append(me.recipes[key], e)
	}
	return me
}

// DefaultRecipeEntries ベーカリーの標準レシピ（kg/個）。
// 100個あたりのkg表記を1個あたりに換算してある。
func DefaultRecipeEntries() []models.RecipeEntry {
	perHundred := map[string]map[string]string{
		"croissant":     {"flour": "12", "butter": "8", "eggs": "15"},
		"baguette":      {"flour": "15"},
		"sourdough":     {"flour": "18", "butter": "2"},
		"sandwich":      {"flour": "8", "butter": "3", "eggs": "10", "meat": "5", "vegetables": "3"},
		"donut":         {"flour": "10", "butter": "5", "eggs": "12", "sugar": "6"},
		"muffin":        {"flour": "11", "butter": "4", "eggs": "10", "sugar": "5"},
		"cinnamon_roll": {"flour": "12", "butter": "6", "eggs": "8", "sugar": "7"},
	}

	hundred := decimal.NewFromInt(100)
	var entries []models.RecipeEntry
	for product, ingredients := range perHundred {
		for ingredient, qty := range ingredients {
			q, _ := decimal.NewFromString(qty)
			entries = append(entries, models.RecipeEntry{
				ProductID:       product,
				Ingredient:      ingredient,
				QuantityPerUnit: q.Div(hundred),
			})
		}
	}
	return entries
}

// HasRecipe 製品にレシピが登録されているかを返す
func (me *MaterialExpander) HasRecipe(productID string) bool {
	me.mu.RLock()
	defer me.mu.RUnlock()
	_, ok := me.recipes[normalizeProductID(productID)]
	return ok
}

// Expand 製品ごとの生産数量を原材料合計に展開する。
// 結果は製品の処理順に依存しない（十進数の正確な加算で蓄積する）。
// レシピ未登録の製品はErrUnknownProductを返す。ゼロ展開と設定漏れを
// 区別できないため、黙って空の結果を返すことはしない。
func (me *MaterialExpander) Expand(productionByProduct map[string]float64) ([]models.MaterialRequirement, error) {
	me.mu.RLock()
	defer me.mu.RUnlock()

	totals := make(map[string]decimal.Decimal)
	for productID, units := range productionByProduct {
		entries, ok := me.recipes[normalizeProductID(productID)]
		if !ok {
			return nil, fmt.Errorf("%w: 製品 %s のレシピが登録されていません", ErrUnknownProduct, productID)
		}
		qty := decimal.NewFromFloat(units)
		for _, e := range entries {
			totals[e.Ingredient] = totals[e.Ingredient].Add(qty.Mul(e.QuantityPerUnit))
		}
	}

	requirements := make([]models.MaterialRequirement, 0, len(totals))
	for ingredient, total := range totals {
		requirements = append(requirements, models.MaterialRequirement{
			Ingredient: ingredient,
			QuantityKg: total,
		})
	}
	// 所要量の降順、同量は名前順で安定させる
	sort.Slice(requirements, func(i, j int) bool {
		cmp := requirements[i].QuantityKg.Cmp(requirements[j].QuantityKg)
		if cmp != 0 {
			return cmp > 0
		}
		return requirements[i].Ingredient < requirements[j].Ingredient
	})
	return requirements, nil
}

// normalizeProductID 製品IDを正規化（小文字化、空白をアンダースコアに）
func normalizeProductID(productID string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(productID)), " ", "_")
}
