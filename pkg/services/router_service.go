package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"freshcast-api/pkg/models"

	"github.com/google/uuid"
)

// IntentRouter 自然言語クエリを定量系（需要予測・生産計画・原材料）と
// アドバイザリー系（LLMへ委譲）に分類する。判定はキーワード照合で行い、
// 確信が持てない場合は常にADVISORYへフォールバックする。
// 定量系の誤検知は無意味な数値回答を生むが、アドバイザリーへの誤送は
// 一般的な回答に留まるだけで被害が小さい、という非対称性による設計。
type IntentRouter struct {
	catalog          map[string]string // エイリアス -> 正規製品ID
	advisoryPatterns []string
	materialKeywords []string
	planKeywords     []string
	demandKeywords   []string
}

// NewIntentRouter 既定のキーワードセットと製品カタログでルーターを作成
func NewIntentRouter() *IntentRouter {
	return &IntentRouter{
		catalog: map[string]string{
			"croissant":     "croissant",
			"baguette":      "baguette",
			"sourdough":     "sourdough",
			"sandwich":      "sandwich",
			"donut":         "donut",
			"doughnut":      "donut",
			"muffin":        "muffin",
			"cinnamon roll": "cinnamon_roll",
			"cinnamon_roll": "cinnamon_roll",
			"クロワッサン":        "croissant",
			"バゲット":          "baguette",
			"サンドイッチ":        "sandwich",
			"ドーナツ":          "donut",
			"マフィン":          "muffin",
		},
		// 購買・保存・一般相談はLLM向け。原材料キーワードより先に評価する
		// （「どこで安い小麦粉を買えるか」は所要量計算ではなく相談）。
		advisoryPatterns: []string{
			"buy", "purchase", "supplier", "vendor", "cheap", "price",
			"recommend", "suggest", "advice", "tips", "how to",
			"storage", "shelf life", "substitute", "alternative",
			"仕入れ", "購入", "業者", "保存", "代替",
		},
		materialKeywords: []string{
			"ingredient", "material", "order", "flour", "butter", "eggs",
			"sugar", "raw", "原材料", "材料", "発注", "小麦粉",
		},
		planKeywords: []string{
			"make", "bake", "produce", "production", "need", "prepare",
			"inventory", "stock", "生産", "仕込み", "在庫", "何個作",
		},
		demandKeywords: []string{
			"sell", "sold", "sales", "demand", "forecast", "predict",
			"expect", "需要", "売れる", "予測", "売上",
		},
	}
}

// Route クエリを分類してルーティング決定を返す。
// 同一のクエリテキストは常に同一の決定を生む（決定的）。
// 解析不能な入力でもエラーにはせずADVISORYへ落とす。
func (ir *IntentRouter) Route(query string) models.RouteDecision {
	normalized := normalizeQuery(query)

	decision := models.RouteDecision{
		DecisionID:      uuid.NewSHA1(uuid.NameSpaceOID, []byte(query)).String(),
		Query:           query,
		MatchedProducts: ir.extractProducts(normalized),
		HorizonDays:     extractHorizonDays(normalized),
	}

	// 「should i ...」で始まる相談はキーワードに関わらずアドバイザリー
	if strings.HasPrefix(normalized, "should i ") {
		decision.Intent = models.IntentAdvisory
		decision.Confidence = 0.85
		return decision
	}
	if hits := countMatches(normalized, ir.advisoryPatterns); hits > 0 {
		decision.Intent = models.IntentAdvisory
		decision.Confidence = matchConfidence(hits)
		return decision
	}
	if hits := countMatches(normalized, ir.materialKeywords); hits > 0 {
		decision.Intent = models.IntentMaterials
		decision.Confidence = matchConfidence(hits)
		return decision
	}
	if hits := countMatches(normalized, ir.planKeywords); hits > 0 {
		decision.Intent = models.IntentProductionPlan
		decision.Confidence = matchConfidence(hits)
		return decision
	}
	if hits := countMatches(normalized, ir.demandKeywords); hits > 0 {
		decision.Intent = models.IntentDemand
		decision.Confidence = matchConfidence(hits)
		return decision
	}

	// どのパターンにも該当しない場合のフォールバック
	decision.Intent = models.IntentAdvisory
	decision.Confidence = 0.5
	return decision
}

// extractProducts カタログのエイリアス照合で言及製品を抽出する。
// 空集合は「全製品が対象」を意味する。
func (ir *IntentRouter) extractProducts(normalized string) []string {
	found := make(map[string]bool)
	for alias, productID := range ir.catalog {
		if strings.Contains(normalized, alias) {
			found[productID] = true
		}
	}
	products := make([]string, 0, len(found))
	for id := range found {
		products = append(products, id)
	}
	sort.Strings(products)
	return products
}

var horizonPattern = regexp.MustCompile(`(\d+)\s*(day|week|month|日|週間|か月)`)

// extractHorizonDays クエリから予測期間（日数）を抽出する。既定は7日。
func extractHorizonDays(normalized string) int {
	switch {
	case strings.Contains(normalized, "today"), strings.Contains(normalized, "tomorrow"),
		strings.Contains(normalized, "今日"), strings.Contains(normalized, "明日"):
		return 1
	case strings.Contains(normalized, "next week"), strings.Contains(normalized, "this week"),
		strings.Contains(normalized, "来週"), strings.Contains(normalized, "今週"):
		return 7
	case strings.Contains(normalized, "next month"), strings.Contains(normalized, "来月"):
		return 30
	}

	if m := horizonPattern.FindStringSubmatch(normalized); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			switch m[2] {
			case "day", "日":
				return n
			case "week", "週間":
				return n * 7
			case "month", "か月":
				return n * 30
			}
		}
	}
	return 7
}

var nonQueryChars = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// normalizeQuery 小文字化し記号類を除去する
func normalizeQuery(query string) string {
	lowered := strings.ToLower(query)
	cleaned := nonQueryChars.ReplaceAllString(lowered, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// countMatches パターンのうち正規化済みテキストに含まれる個数を返す
func countMatches(normalized string, patterns []string) int {
	hits := 0
	for _, p := range patterns {
		if strings.Contains(normalized, p) {
			hits++
		}
	}
	return hits
}

// matchConfidence ヒット数を0.6〜0.95の確信度に正規化する
func matchConfidence(hits int) float64 {
	confidence := 0.6 + 0.1*float64(hits-1)
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}
